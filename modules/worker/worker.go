package worker

import (
	"context"
	"log"
	"time"

	"festiva-canvas-server/modules/common/config"
	"festiva-canvas-server/modules/common/database"
	"festiva-canvas-server/modules/common/model"
	redisutil "festiva-canvas-server/modules/common/redis"
	"festiva-canvas-server/modules/generate"
	"festiva-canvas-server/modules/progress"

	"github.com/redis/go-redis/v9"
)

// Worker - 비동기 생성 Job 처리기
type Worker struct {
	rdb     *redis.Client
	db      *database.Client
	service *generate.Service
	hub     *progress.Hub
}

// NewWorker - 워커 생성 (의존성 초기화 실패 시 nil)
func NewWorker(service *generate.Service, hub *progress.Hub) *Worker {
	cfg := config.GetConfig()

	rdb := redisutil.Connect(cfg)
	if rdb == nil {
		log.Println("❌ [Worker] Failed to connect to Redis")
		return nil
	}

	db := database.NewClient()
	if db == nil {
		log.Println("❌ [Worker] Failed to initialize Database client")
		return nil
	}

	return &Worker{
		rdb:     rdb,
		db:      db,
		service: service,
		hub:     hub,
	}
}

// Start - 대기열 감시 루프 (고루틴으로 호출)
func (w *Worker) Start() {
	log.Printf("🔄 [Worker] Starting, watching queue: %s", redisutil.JobQueueKey)

	ctx := context.Background()

	for {
		// BRPOP - 대기열에 Job이 들어올 때까지 블로킹
		result, err := w.rdb.BRPop(ctx, 0, redisutil.JobQueueKey).Result()
		if err != nil {
			log.Printf("❌ [Worker] Redis BRPOP error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		// result[0]은 큐 이름, result[1]이 job_id
		jobID := result[1]
		log.Printf("🎯 [Worker] Received job: %s", jobID)

		go w.processJob(ctx, jobID)
	}
}

// processJob - Job 1건 처리
func (w *Worker) processJob(ctx context.Context, jobID string) {
	log.Printf("🚀 [Worker] Processing job: %s", jobID)

	job, err := w.db.FetchJob(jobID)
	if err != nil {
		log.Printf("❌ [Worker] Failed to fetch job %s: %v", jobID, err)
		return
	}

	// 시작 전 취소 확인
	if redisutil.IsJobCancelled(w.rdb, jobID) {
		log.Printf("🛑 [Worker] Job %s cancelled before start", jobID)
		w.finishCancelled(ctx, jobID)
		return
	}

	if err := w.db.UpdateJobStatus(ctx, jobID, model.StatusProcessing); err != nil {
		log.Printf("⚠️ [Worker] Failed to mark job %s processing: %v", jobID, err)
	}
	w.hub.Publish(progress.ProgressEvent{
		Type:   "status",
		JobID:  jobID,
		Status: model.StatusProcessing,
	})

	req := requestFromJob(job)
	resp, err := w.service.Generate(ctx, req)
	if err != nil {
		// 중복 토큰 등 - 파이프라인에 들어가지 못한 Job
		log.Printf("❌ [Worker] Job %s rejected: %v", jobID, err)
		w.finishFailed(ctx, jobID, err.Error())
		return
	}

	// 완료 직전 취소 확인 - 결과는 버리고 취소 상태로 마감
	if redisutil.IsJobCancelled(w.rdb, jobID) {
		log.Printf("🛑 [Worker] Job %s cancelled during processing, discarding result", jobID)
		w.finishCancelled(ctx, jobID)
		return
	}

	if !resp.Success {
		w.finishFailed(ctx, jobID, resp.ErrorMessage)
		return
	}

	imageURLs := make([]string, 0, len(resp.Images))
	for i, img := range resp.Images {
		imageURLs = append(imageURLs, img.URL)
		w.hub.Publish(progress.ProgressEvent{
			Type:     "image_ready",
			JobID:    jobID,
			ImageURL: img.URL,
			Index:    i,
			Total:    len(resp.Images),
		})
	}

	if err := w.db.UpdateJobResult(ctx, jobID, imageURLs, ""); err != nil {
		log.Printf("❌ [Worker] Failed to store result for job %s: %v", jobID, err)
		w.finishFailed(ctx, jobID, "failed to store result")
		return
	}

	if err := w.db.UpdateJobStatus(ctx, jobID, model.StatusCompleted); err != nil {
		log.Printf("⚠️ [Worker] Failed to mark job %s completed: %v", jobID, err)
	}
	w.hub.Publish(progress.ProgressEvent{
		Type:   "completed",
		JobID:  jobID,
		Status: model.StatusCompleted,
		Total:  len(imageURLs),
	})

	log.Printf("✅ [Worker] Job %s completed with %d images", jobID, len(imageURLs))
}

// finishFailed - 실패 마감 + 알림
func (w *Worker) finishFailed(ctx context.Context, jobID string, message string) {
	if err := w.db.UpdateJobResult(ctx, jobID, nil, message); err != nil {
		log.Printf("⚠️ [Worker] Failed to store error for job %s: %v", jobID, err)
	}
	if err := w.db.UpdateJobStatus(ctx, jobID, model.StatusFailed); err != nil {
		log.Printf("⚠️ [Worker] Failed to mark job %s failed: %v", jobID, err)
	}
	w.hub.Publish(progress.ProgressEvent{
		Type:    "failed",
		JobID:   jobID,
		Status:  model.StatusFailed,
		Message: message,
	})
}

// finishCancelled - 취소 마감 + 알림
func (w *Worker) finishCancelled(ctx context.Context, jobID string) {
	if err := w.db.UpdateJobStatus(ctx, jobID, model.StatusUserCancelled); err != nil {
		log.Printf("⚠️ [Worker] Failed to mark job %s cancelled: %v", jobID, err)
	}
	w.hub.Publish(progress.ProgressEvent{
		Type:   "cancelled",
		JobID:  jobID,
		Status: model.StatusUserCancelled,
	})
}

// requestFromJob - Job 행을 생성 요청으로 변환
func requestFromJob(job *model.GenerationJob) *generate.GenerateRequest {
	req := &generate.GenerateRequest{}
	if job.MemberID != nil {
		req.UserID = *job.MemberID
	}
	if job.EventID != nil {
		req.EventID = *job.EventID
	}
	if job.FreeformPrompt != nil {
		req.FreeformPrompt = *job.FreeformPrompt
	}
	if job.Industry != nil {
		req.Industry = *job.Industry
	}
	if job.StyleContext != nil {
		req.StyleContext = *job.StyleContext
	}
	if job.IdempotencyToken != nil {
		req.IdempotencyToken = *job.IdempotencyToken
	}
	return req
}
