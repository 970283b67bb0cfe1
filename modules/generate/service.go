package generate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"festiva-canvas-server/modules/common/config"
	"festiva-canvas-server/modules/common/database"
	"festiva-canvas-server/modules/common/model"
	"festiva-canvas-server/modules/common/storage"
	"festiva-canvas-server/modules/provider"
)

// Service - 축제 이미지 생성 파이프라인
// 쿼터 게이트 → 크리에이티브 디렉션 → 모델 선택 → 하이브리드 배치 → 저장
type Service struct {
	coordinator *RequestCoordinator
	quota       *QuotaTracker
	selector    *ModelSelector
	composer    *PromptComposer
	dispatcher  *BatchDispatcher
	persister   *ResultPersister
	store       ProfileStore
}

// NewService - 서비스 초기화 (실패 시 nil)
func NewService() *Service {
	cfg := config.GetConfig()
	if cfg == nil {
		log.Printf("❌ Config not loaded")
		return nil
	}

	db := database.NewClient()
	if db == nil {
		log.Printf("❌ Supabase 클라이언트 초기화 실패")
		return nil
	}

	objectStore := storage.NewClient()
	if objectStore == nil {
		log.Printf("❌ 스토리지 클라이언트 초기화 실패")
		return nil
	}

	synthesizer := provider.NewGeminiSynthesizer()
	if synthesizer == nil {
		log.Printf("❌ Gemini 합성 클라이언트 초기화 실패")
		return nil
	}

	// creative는 nil이어도 됨 - composer가 결정적 폴백으로 동작
	var creative CreativeProvider
	if c := provider.NewGeminiCreative(); c != nil {
		creative = c
	}

	svc := newServiceWith(
		NewQuotaTracker(db, cfg.DailyFreeLimit),
		NewModelSelector(synthesizer, cfg.ImageModelCandidates, cfg.ImageModelFallback),
		NewPromptComposer(creative),
		NewBatchDispatcher(synthesizer, cfg.SubCountPerVariant, cfg.ProviderTimeout),
		NewResultPersister(objectStore),
		db,
	)

	log.Printf("✅ Generate service initialized")
	return svc
}

// newServiceWith - 의존성 직접 주입용 (테스트에서 사용)
func newServiceWith(quota *QuotaTracker, selector *ModelSelector, composer *PromptComposer, dispatcher *BatchDispatcher, persister *ResultPersister, store ProfileStore) *Service {
	return &Service{
		coordinator: NewRequestCoordinator(),
		quota:       quota,
		selector:    selector,
		composer:    composer,
		dispatcher:  dispatcher,
		persister:   persister,
		store:       store,
	}
}

// Close - 백그라운드 고루틴 정리
func (s *Service) Close() {
	s.coordinator.Close()
}

// Generate - 생성 요청 처리. 에러는 중복 제출(ErrDuplicateRequest)에만 사용되고
// 나머지 실패는 응답 본문의 ErrorCode로 표현된다.
func (s *Service) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if err := validateRequest(req); err != nil {
		return &GenerateResponse{
			Success:      false,
			Images:       []model.ImageDescriptor{},
			ErrorMessage: err.Error(),
			ErrorCode:    ErrCodeInvalidRequest,
		}, nil
	}

	return s.coordinator.Submit(ctx, req, s.runPipeline)
}

// QuotaStatus - 현재 잔여 쿼터 조회 (증가 없음)
func (s *Service) QuotaStatus(ctx context.Context, userID string) (allowed bool, remaining int) {
	return s.quota.CheckAndReserve(ctx, userID)
}

// UpcomingEvents - 다가오는 축제 목록
func (s *Service) UpcomingEvents(ctx context.Context, limit int) ([]model.FestivalEvent, error) {
	return s.store.FetchUpcomingEvents(ctx, limit)
}

// runPipeline - 병합된 단일 실행 본체
func (s *Service) runPipeline(ctx context.Context, req *GenerateRequest) *GenerateResponse {
	// 1. 쿼터 게이트 (증가는 성공 후)
	allowed, remaining := s.quota.CheckAndReserve(ctx, req.UserID)
	if !allowed {
		return &GenerateResponse{
			Success:      false,
			Images:       []model.ImageDescriptor{},
			ErrorMessage: "daily generation limit reached",
			ErrorCode:    ErrCodeDailyLimit,
			Remaining:    0,
		}
	}

	// 2. 크리에이티브 디렉션 (실패해도 결정적 폴백으로 항상 완료)
	var pair PromptPair
	if req.EventID != "" {
		event, err := s.store.FetchEvent(ctx, req.EventID)
		if err != nil {
			log.Printf("❌ 이벤트 조회 실패 (%s): %v", req.EventID, err)
			return &GenerateResponse{
				Success:      false,
				Images:       []model.ImageDescriptor{},
				ErrorMessage: "unknown festival event",
				ErrorCode:    ErrCodeInvalidRequest,
			}
		}
		pair = s.composer.Compose(ctx, event, req.Industry, req.StyleContext)
	} else {
		pair = s.composer.ComposeFreeform(ctx, req.FreeformPrompt, req.Industry, req.StyleContext)
	}

	// 3. 모델 선택 (캐시, 절대 실패하지 않음)
	modelID := s.selector.SelectModel(ctx)

	// 4. clean/text 하이브리드 배치
	images := s.dispatcher.GenerateHybridBatch(ctx, modelID, pair)
	if len(images) == 0 {
		// 전부 실패해도 부드러운 응답 (HTTP 200)
		return &GenerateResponse{
			Success:      false,
			Images:       []model.ImageDescriptor{},
			Prompt:       pair.CleanPrompt,
			ErrorMessage: "no images could be generated, please try again",
			ErrorCode:    ErrCodeInternalError,
			Remaining:    remaining,
		}
	}

	// 5. 저장 (개별 실패는 inline 폴백)
	descriptors, err := s.persister.PersistAll(ctx, req.UserID, images)
	if err != nil {
		log.Printf("❌ 전체 저장 실패: %v", err)
		return &GenerateResponse{
			Success:      false,
			Images:       []model.ImageDescriptor{},
			Prompt:       pair.CleanPrompt,
			ErrorMessage: "generated images could not be delivered",
			ErrorCode:    ErrCodeInternalError,
			Remaining:    remaining,
		}
	}

	// 6. 쿼터 증가 - 성공한 요청당 정확히 1회 (이미지 장수 무관)
	s.quota.RecordSuccess(ctx, req.UserID)

	if remaining > 0 {
		remaining--
	}

	log.Printf("✅ 생성 완료: user=%s images=%d model=%s", req.UserID, len(descriptors), modelID)
	return &GenerateResponse{
		Success:   true,
		Images:    descriptors,
		Prompt:    pair.CleanPrompt,
		Remaining: remaining,
	}
}

// validateRequest - eventId/freeformPrompt 정확히 하나 + userId 필수
func validateRequest(req *GenerateRequest) error {
	if req == nil {
		return fmt.Errorf("empty request body")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("userId is required")
	}

	hasEvent := strings.TrimSpace(req.EventID) != ""
	hasFreeform := strings.TrimSpace(req.FreeformPrompt) != ""

	if hasEvent == hasFreeform {
		return fmt.Errorf("exactly one of eventId or freeformPrompt must be provided")
	}
	return nil
}
