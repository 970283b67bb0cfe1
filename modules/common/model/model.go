package model

import "time"

// MemberQuota - festa_member 테이블의 쿼터 관련 컬럼
type MemberQuota struct {
	MemberID         string     `json:"festa_member_id"`
	SubscriptionTier string     `json:"subscription_tier"` // "free", "pro", "business"
	GenerationsToday int        `json:"generations_today"`
	LastResetDate    *time.Time `json:"last_generation_reset"`
}

// FestivalEvent - festa_event 테이블 구조
type FestivalEvent struct {
	EventID   string  `json:"event_id"`
	EventName string  `json:"event_name"`
	EventDate *string `json:"event_date"` // date 컬럼, "2006-01-02" 형식
	Region    *string `json:"region"`
	Keywords  *string `json:"keywords"` // 콤마 구분 분위기 키워드 (선택)
}

// GenerationJob - festa_generation_jobs 테이블 구조 (비동기 경로)
type GenerationJob struct {
	JobID            string     `json:"job_id"`
	MemberID         *string    `json:"festa_member_id"`
	EventID          *string    `json:"event_id"`
	FreeformPrompt   *string    `json:"freeform_prompt"`
	Industry         *string    `json:"industry"`
	StyleContext     *string    `json:"style_context"`
	IdempotencyToken *string    `json:"idempotency_token"`
	JobStatus        string     `json:"job_status"`
	ImageURLs        []string   `json:"image_urls"`
	ErrorMessage     *string    `json:"error_message"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// SynthImage - 합성 프로바이더가 돌려주는 이미지 1장
// Placeholder는 프로바이더가 해당 슬롯에 실제 이미지를 만들지 못했다는 표시
type SynthImage struct {
	Data        []byte
	MIMEType    string
	Placeholder bool
}

// ImageDescriptor - 저장 완료된 이미지 1장의 설명자 (생성 후 불변)
type ImageDescriptor struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	StoragePath string    `json:"storagePath,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

const (
	StatusPending       = "pending"
	StatusProcessing    = "processing"
	StatusCompleted     = "completed"
	StatusFailed        = "failed"
	StatusUserCancelled = "user_cancelled"
)

// 구독 플랜
const (
	TierFree     = "free"
	TierPro      = "pro"
	TierBusiness = "business"
)
