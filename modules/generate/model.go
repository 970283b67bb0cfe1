package generate

import (
	"context"
	"errors"

	"festiva-canvas-server/modules/common/model"
)

// GenerateRequest - 축제 이미지 생성 요청
// EventID와 FreeformPrompt는 정확히 하나만 설정되어야 함
type GenerateRequest struct {
	// 중복 제출 인식용 토큰 (선택)
	IdempotencyToken string `json:"idempotencyToken,omitempty"`

	// 사용자 ID (회원 전용)
	UserID string `json:"userId,omitempty"`

	// 축제 이벤트 ID (festa_event 테이블)
	EventID string `json:"eventId,omitempty"`

	// 자유 입력 프롬프트 (이벤트 선택 대신)
	FreeformPrompt string `json:"freeformPrompt,omitempty"`

	// 업종 (restaurant, retail, beauty, ...)
	Industry string `json:"industry,omitempty"`

	// 브랜드 스타일 텍스트 (선택)
	StyleContext string `json:"styleContext,omitempty"`
}

// GenerateResponse - 생성 응답
// 부드러운 실패(그레이스풀)도 Success=false + 빈 이미지 목록으로 표현됨
type GenerateResponse struct {
	Success      bool                    `json:"success"`
	Images       []model.ImageDescriptor `json:"images"`
	Prompt       string                  `json:"prompt,omitempty"`
	ErrorMessage string                  `json:"error,omitempty"`
	ErrorCode    string                  `json:"errorCode,omitempty"`

	// 무료 플랜 잔여 횟수. 한도 도달 응답이 remaining=0을 그대로
	// 전달해야 하므로 omitempty 금지
	Remaining int `json:"remaining"`
}

// PromptPair - 같은 이벤트에 대한 clean/text 프롬프트 쌍
type PromptPair struct {
	// 텍스트 없는 이미지용 프롬프트
	CleanPrompt string

	// 대문자 이벤트명 헤드라인을 반드시 렌더링하는 프롬프트
	TextPrompt string

	// 렌더링할 헤드라인 (대문자, 최대 3단어)
	Headline string
}

// Error codes
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeDuplicateRequest = "DUPLICATE_REQUEST"
	ErrCodeDailyLimit       = "DAILY_LIMIT_REACHED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// 분류 가능한 실패들. 엔타이틀먼트 소진만 위로 노출되고
// 나머지는 폴백 또는 빈 응답으로 흡수된다.
var (
	ErrDuplicateRequest    = errors.New("duplicate request")
	ErrDailyLimitReached   = errors.New("daily generation limit reached")
	ErrMalformedCreative   = errors.New("malformed creative response")
	ErrProviderUnavailable = errors.New("synthesis provider unavailable")
	ErrTotalPersistFailure = errors.New("no image could be persisted")
)

// SynthesisProvider - 이미지 합성 프로바이더 인터페이스
type SynthesisProvider interface {
	// Probe - 모델 확인용 최소 요청. HTTP 계열 상태 코드 반환 (성공 200, nil)
	Probe(ctx context.Context, modelID string) (int, error)

	// Generate - 프롬프트 1개로 count장 생성. 슬롯별 real/placeholder 태깅
	Generate(ctx context.Context, modelID string, prompt string, count int) ([]model.SynthImage, error)
}

// CreativeProvider - 크리에이티브 디렉션(텍스트 추론) 프로바이더 인터페이스
type CreativeProvider interface {
	Complete(ctx context.Context, systemInstruction string, userMessage string) (string, error)
}

// ProfileStore - 프로필/쿼터 스토어 인터페이스 (Supabase 구현: common/database)
type ProfileStore interface {
	FetchMemberQuota(ctx context.Context, userID string) (*model.MemberQuota, error)
	UpdateMemberQuota(ctx context.Context, userID string, fields map[string]interface{}) error
	IncrementGenerations(ctx context.Context, userID string) error
	FetchEvent(ctx context.Context, eventID string) (*model.FestivalEvent, error)
	FetchUpcomingEvents(ctx context.Context, limit int) ([]model.FestivalEvent, error)
}

// ObjectStore - 오브젝트 스토리지 인터페이스 (Supabase Storage 구현: common/storage)
type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
}
