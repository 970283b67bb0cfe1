package generate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festiva-canvas-server/modules/common/model"
)

// stubProfileStore - 쿼터/이벤트 스토어 스텁
type stubProfileStore struct {
	quota      *model.MemberQuota
	quotaErr   error
	event      *model.FestivalEvent
	eventErr   error
	updates    []map[string]interface{}
	increments int
}

func (s *stubProfileStore) FetchMemberQuota(ctx context.Context, userID string) (*model.MemberQuota, error) {
	return s.quota, s.quotaErr
}

func (s *stubProfileStore) UpdateMemberQuota(ctx context.Context, userID string, fields map[string]interface{}) error {
	s.updates = append(s.updates, fields)
	return nil
}

func (s *stubProfileStore) IncrementGenerations(ctx context.Context, userID string) error {
	s.increments++
	return nil
}

func (s *stubProfileStore) FetchEvent(ctx context.Context, eventID string) (*model.FestivalEvent, error) {
	return s.event, s.eventErr
}

func (s *stubProfileStore) FetchUpcomingEvents(ctx context.Context, limit int) ([]model.FestivalEvent, error) {
	if s.event == nil {
		return nil, nil
	}
	return []model.FestivalEvent{*s.event}, nil
}

func freeQuota(generationsToday int, lastReset *time.Time) *model.MemberQuota {
	return &model.MemberQuota{
		MemberID:         "u1",
		SubscriptionTier: model.TierFree,
		GenerationsToday: generationsToday,
		LastResetDate:    lastReset,
	}
}

func TestQuotaAllowsUnderLimit(t *testing.T) {
	now := time.Now()
	store := &stubProfileStore{quota: freeQuota(2, &now)}
	q := NewQuotaTracker(store, 5)

	allowed, remaining := q.CheckAndReserve(context.Background(), "u1")

	assert.True(t, allowed)
	assert.Equal(t, 3, remaining)
	assert.Empty(t, store.updates)
}

func TestQuotaRejectsAtLimit(t *testing.T) {
	now := time.Now()
	store := &stubProfileStore{quota: freeQuota(5, &now)}
	q := NewQuotaTracker(store, 5)

	allowed, remaining := q.CheckAndReserve(context.Background(), "u1")

	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}

func TestQuotaResetsOnNewCalendarDay(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1)
	store := &stubProfileStore{quota: freeQuota(5, &yesterday)}
	q := NewQuotaTracker(store, 5)

	allowed, remaining := q.CheckAndReserve(context.Background(), "u1")

	// 어제 한도를 다 썼어도 새 달력일에는 풀 쿼터
	assert.True(t, allowed)
	assert.Equal(t, 5, remaining)

	require.Len(t, store.updates, 1)
	assert.Equal(t, 0, store.updates[0]["generations_today"])
	assert.Contains(t, store.updates[0], "last_generation_reset")
}

func TestQuotaResetsWhenNeverReset(t *testing.T) {
	store := &stubProfileStore{quota: freeQuota(3, nil)}
	q := NewQuotaTracker(store, 5)

	allowed, remaining := q.CheckAndReserve(context.Background(), "u1")

	assert.True(t, allowed)
	assert.Equal(t, 5, remaining)
	assert.Len(t, store.updates, 1)
}

func TestQuotaSameDayNoReset(t *testing.T) {
	now := time.Now()
	store := &stubProfileStore{quota: freeQuota(4, &now)}
	q := NewQuotaTracker(store, 5)

	allowed, remaining := q.CheckAndReserve(context.Background(), "u1")

	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
	assert.Empty(t, store.updates)
}

func TestQuotaPaidTierUnlimited(t *testing.T) {
	now := time.Now()
	store := &stubProfileStore{quota: &model.MemberQuota{
		MemberID:         "u1",
		SubscriptionTier: model.TierPro,
		GenerationsToday: 100,
		LastResetDate:    &now,
	}}
	q := NewQuotaTracker(store, 5)

	allowed, _ := q.CheckAndReserve(context.Background(), "u1")

	assert.True(t, allowed)
}

func TestQuotaStoreErrorFailsOpen(t *testing.T) {
	store := &stubProfileStore{quotaErr: errors.New("supabase down")}
	q := NewQuotaTracker(store, 5)

	allowed, _ := q.CheckAndReserve(context.Background(), "u1")

	// 스토어 장애가 생성을 막으면 안 된다
	assert.True(t, allowed)
}

func TestRecordSuccessIncrementsOnce(t *testing.T) {
	now := time.Now()
	store := &stubProfileStore{quota: freeQuota(0, &now)}
	q := NewQuotaTracker(store, 5)

	q.RecordSuccess(context.Background(), "u1")

	assert.Equal(t, 1, store.increments)
}

func TestSameCalendarDay(t *testing.T) {
	base := time.Date(2026, 9, 1, 23, 59, 0, 0, time.Local)

	assert.True(t, sameCalendarDay(base, base.Add(-23*time.Hour)))
	assert.False(t, sameCalendarDay(base, base.Add(2*time.Minute)))
}
