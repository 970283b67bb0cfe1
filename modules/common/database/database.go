package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/supabase-community/supabase-go"

	"festiva-canvas-server/modules/common/config"
	"festiva-canvas-server/modules/common/model"
)

type Client struct {
	supabase *supabase.Client
}

// NewClient - Database 클라이언트 생성
func NewClient() *Client {
	cfg := config.GetConfig()

	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("❌ Failed to create Supabase client: %v", err)
		return nil
	}

	return &Client{
		supabase: supabaseClient,
	}
}

// FetchMemberQuota - festa_member 테이블에서 쿼터 상태 조회
func (c *Client) FetchMemberQuota(ctx context.Context, userID string) (*model.MemberQuota, error) {
	var members []model.MemberQuota

	data, _, err := c.supabase.From("festa_member").
		Select("festa_member_id,subscription_tier,generations_today,last_generation_reset", "exact", false).
		Eq("festa_member_id", userID).
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query festa_member: %w", err)
	}

	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("failed to parse member response: %w", err)
	}

	if len(members) == 0 {
		return nil, fmt.Errorf("member not found: %s", userID)
	}

	return &members[0], nil
}

// UpdateMemberQuota - 쿼터 관련 컬럼 부분 업데이트
func (c *Client) UpdateMemberQuota(ctx context.Context, userID string, fields map[string]interface{}) error {
	_, _, err := c.supabase.From("festa_member").
		Update(fields, "", "").
		Eq("festa_member_id", userID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update member quota: %w", err)
	}

	return nil
}

// IncrementGenerations - 생성 성공 후 카운터 증가
// 1순위: DB측 atomic RPC (increment_generations_today)
//
// RPC 계약: 함수는 반드시 증가 후의 새 카운터 값을 `returns integer`로
// 반환해야 한다. supabase-go의 Rpc는 호출 실패와 void 반환을 모두 빈
// 문자열로 돌려주기 때문에, void로 선언된 RPC는 성공이 실패로 읽혀
// 폴백이 한 번 더 증가시킨다 (이중 과금). 빈 응답 == RPC 사용 불가는
// 이 반환 계약 위에서만 성립한다.
//
// 2순위: read-modify-write 폴백
// 폴백 경로는 같은 사용자의 동시 증가에 안전하지 않다. 사용자당 동시성이
// 낮아 지금은 허용하고, 해결은 스토리지 백엔드의 진짜 atomic 연산으로 한다.
func (c *Client) IncrementGenerations(ctx context.Context, userID string) error {
	result := c.supabase.Rpc("increment_generations_today", "",
		map[string]interface{}{"member_id": userID})
	if result != "" {
		log.Printf("✅ Quota incremented via RPC for user %s (new count: %s)", userID, result)
		return nil
	}

	log.Printf("⚠️ increment_generations_today RPC unavailable, falling back to read-modify-write")

	quota, err := c.FetchMemberQuota(ctx, userID)
	if err != nil {
		return err
	}

	return c.UpdateMemberQuota(ctx, userID, map[string]interface{}{
		"generations_today": quota.GenerationsToday + 1,
	})
}

// FetchEvent - festa_event 테이블에서 축제 이벤트 조회
func (c *Client) FetchEvent(ctx context.Context, eventID string) (*model.FestivalEvent, error) {
	var events []model.FestivalEvent

	data, _, err := c.supabase.From("festa_event").
		Select("*", "exact", false).
		Eq("event_id", eventID).
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query festa_event: %w", err)
	}

	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse event response: %w", err)
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("event not found: %s", eventID)
	}

	return &events[0], nil
}

// FetchUpcomingEvents - 오늘 이후의 축제 이벤트 목록 조회
func (c *Client) FetchUpcomingEvents(ctx context.Context, limit int) ([]model.FestivalEvent, error) {
	var events []model.FestivalEvent

	today := time.Now().Format("2006-01-02")

	data, _, err := c.supabase.From("festa_event").
		Select("*", "exact", false).
		Gte("event_date", today).
		Limit(limit, "").
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming events: %w", err)
	}

	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse events response: %w", err)
	}

	return events, nil
}

// FetchJob - festa_generation_jobs 테이블에서 Job 조회
func (c *Client) FetchJob(jobID string) (*model.GenerationJob, error) {
	log.Printf("🔍 Fetching job from Supabase: %s", jobID)

	var jobs []model.GenerationJob

	data, _, err := c.supabase.From("festa_generation_jobs").
		Select("*", "exact", false).
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query festa_generation_jobs: %w", err)
	}

	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse job response: %w", err)
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	job := &jobs[0]
	log.Printf("✅ Job fetched successfully: %s (status: %s)", job.JobID, job.JobStatus)

	return job, nil
}

// UpdateJobStatus - Job 상태 업데이트
func (c *Client) UpdateJobStatus(ctx context.Context, jobID string, status string) error {
	log.Printf("📝 Updating job %s status to: %s", jobID, status)

	updateData := map[string]interface{}{
		"job_status": status,
		"updated_at": "now()",
	}

	if status == model.StatusProcessing {
		updateData["started_at"] = "now()"
	} else if status == model.StatusCompleted || status == model.StatusFailed {
		updateData["completed_at"] = "now()"
	}

	_, _, err := c.supabase.From("festa_generation_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	return nil
}

// UpdateJobResult - Job 결과 저장 (이미지 URL 목록 + 에러 메시지)
func (c *Client) UpdateJobResult(ctx context.Context, jobID string, imageURLs []string, errorMessage string) error {
	updateData := map[string]interface{}{
		"image_urls": imageURLs,
		"updated_at": "now()",
	}
	if errorMessage != "" {
		updateData["error_message"] = errorMessage
	}

	_, _, err := c.supabase.From("festa_generation_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job result: %w", err)
	}

	log.Printf("✅ Job %s result updated: %d images", jobID, len(imageURLs))
	return nil
}
