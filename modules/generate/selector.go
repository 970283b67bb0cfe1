package generate

import (
	"context"
	"log"
	"net/http"
	"time"

	"festiva-canvas-server/modules/common/cache"
)

// 모델 선택 캐시 TTL - 만료 후 다음 호출에서 lazy 재탐색
const modelSelectionTTL = 60 * time.Second

const modelCacheKey = "selected-model"

// 전체 탐색 상한 - 탐색은 호출자와 분리된 컨텍스트로 돈다
const probeTimeout = 15 * time.Second

// ModelSelector - 이미지 모델 후보를 탐색해서 사용 가능한 것을 캐시
// 동시 탐색은 cache.GetOrCompute가 하나로 합쳐준다 (첫 번째 탐색이 이김)
type ModelSelector struct {
	provider   SynthesisProvider
	candidates []string // 선호 순서 (최신 모델 우선)
	fallback   string   // 안정 폴백 (탐색 전부 실패 시)
	selection  *cache.Cache[string]
}

// NewModelSelector - 모델 셀렉터 생성
func NewModelSelector(provider SynthesisProvider, candidates []string, fallback string) *ModelSelector {
	return &ModelSelector{
		provider:   provider,
		candidates: candidates,
		fallback:   fallback,
		selection:  cache.New[string](modelSelectionTTL),
	}
}

// SelectModel - 사용할 모델 ID 반환. 절대 실패하지 않는다.
// 탐색 결과는 모든 동시 호출자가 공유하므로, 첫 호출자가 중간에 끊겨도
// 다른 호출자들의 선택이 폴백으로 오염되지 않게 분리된 컨텍스트로 탐색한다.
func (s *ModelSelector) SelectModel(ctx context.Context) string {
	modelID, _ := s.selection.GetOrCompute(modelCacheKey, func() (string, error) {
		probeCtx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		return s.probeCandidates(probeCtx), nil
	})
	return modelID
}

// Invalidate - 캐시 강제 무효화 (다음 호출에서 재탐색)
func (s *ModelSelector) Invalidate() {
	s.selection.Invalidate(modelCacheKey)
}

// probeCandidates - 후보를 순서대로 탐색, 첫 성공을 반환 (short-circuit)
func (s *ModelSelector) probeCandidates(ctx context.Context) string {
	for _, candidate := range s.candidates {
		status, err := s.provider.Probe(ctx, candidate)
		if err == nil {
			log.Printf("✅ [ModelSelector] Selected model: %s", candidate)
			return candidate
		}

		switch {
		case status == http.StatusBadRequest || status == http.StatusNotFound:
			log.Printf("🔍 [ModelSelector] Model %s does not exist (status %d), trying next", candidate, status)
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			// 모델은 존재하지만 이 키로는 권한 없음 - 치명적 아님
			log.Printf("🔒 [ModelSelector] Model %s not permitted (status %d), trying next", candidate, status)
		default:
			log.Printf("⚠️ [ModelSelector] Model %s unavailable (status %d): %v", candidate, status, err)
		}
	}

	log.Printf("⚠️ [ModelSelector] All candidates failed, using stable fallback: %s", s.fallback)
	return s.fallback
}
