package generate

import (
	"context"
	"log"
	"time"

	"festiva-canvas-server/modules/common/model"
)

// QuotaTracker - 무료 플랜 일일 생성 쿼터 관리
// 유료 플랜은 항상 허용. 카운터는 서버 로컬 달력일 기준으로
// 새 날짜의 첫 요청에서 한 번만 0으로 리셋된다.
type QuotaTracker struct {
	store      ProfileStore
	dailyLimit int
}

// NewQuotaTracker - 쿼터 트래커 생성
func NewQuotaTracker(store ProfileStore, dailyLimit int) *QuotaTracker {
	return &QuotaTracker{
		store:      store,
		dailyLimit: dailyLimit,
	}
}

// CheckAndReserve - 쿼터 확인. 증가는 생성 성공 후 RecordSuccess에서 수행.
func (q *QuotaTracker) CheckAndReserve(ctx context.Context, userID string) (allowed bool, remaining int) {
	quota, err := q.store.FetchMemberQuota(ctx, userID)
	if err != nil {
		// 쿼터 확인 실패해도 계속 진행 (스토어 장애가 생성을 막지 않도록)
		log.Printf("⚠️ [Quota] Failed to fetch quota for %s, allowing request: %v", userID, err)
		return true, q.dailyLimit
	}

	// 무료 플랜에만 제한 적용
	if quota.SubscriptionTier != model.TierFree {
		return true, q.dailyLimit
	}

	now := time.Now()
	generationsToday := quota.GenerationsToday

	// 달력일 롤오버 - 연/월/일 필드로 비교 (서버 로컬 타임존)
	if quota.LastResetDate == nil || !sameCalendarDay(quota.LastResetDate.Local(), now) {
		log.Printf("🔄 [Quota] New calendar day for %s, resetting counter (was %d)", userID, generationsToday)

		if err := q.store.UpdateMemberQuota(ctx, userID, map[string]interface{}{
			"generations_today":     0,
			"last_generation_reset": now.Format(time.RFC3339),
		}); err != nil {
			log.Printf("⚠️ [Quota] Failed to persist reset for %s: %v", userID, err)
		}
		generationsToday = 0
	}

	if generationsToday >= q.dailyLimit {
		log.Printf("🛑 [Quota] Daily limit reached for %s (%d/%d)", userID, generationsToday, q.dailyLimit)
		return false, 0
	}

	return true, q.dailyLimit - generationsToday
}

// RecordSuccess - 생성 성공 1건당 정확히 1회 호출 (이미지 장수와 무관)
func (q *QuotaTracker) RecordSuccess(ctx context.Context, userID string) {
	if err := q.store.IncrementGenerations(ctx, userID); err != nil {
		log.Printf("⚠️ [Quota] Failed to increment counter for %s: %v", userID, err)
	}
}

// sameCalendarDay - 연/월/일 필드가 모두 같은지 비교
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
