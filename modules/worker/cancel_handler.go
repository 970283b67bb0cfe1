package worker

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"festiva-canvas-server/modules/common/config"
	"festiva-canvas-server/modules/common/database"
	"festiva-canvas-server/modules/common/model"
	redisutil "festiva-canvas-server/modules/common/redis"
)

// CancelHandler - Job 취소 API 핸들러
type CancelHandler struct {
	rdb *redis.Client
	db  *database.Client
}

// NewCancelHandler - 핸들러 생성
func NewCancelHandler() *CancelHandler {
	cfg := config.GetConfig()
	if cfg == nil {
		log.Println("❌ [Cancel] Failed to get config")
		return nil
	}

	rdb := redisutil.Connect(cfg)
	if rdb == nil {
		log.Println("❌ [Cancel] Failed to connect to Redis")
		return nil
	}

	db := database.NewClient()
	if db == nil {
		log.Println("❌ [Cancel] Failed to initialize Database client")
		return nil
	}

	return &CancelHandler{rdb: rdb, db: db}
}

// RegisterRoutes - 라우트 등록
func (h *CancelHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/jobs/{jobId}/cancel", h.CancelJob).Methods("POST", "OPTIONS")
	log.Println("✅ [Cancel] Routes registered: POST /api/jobs/{jobId}/cancel")
}

// CancelJob - Job 취소 처리
func (h *CancelHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	// CORS preflight
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	jobID := vars["jobId"]

	if jobID == "" {
		http.Error(w, `{"error": "jobId is required"}`, http.StatusBadRequest)
		return
	}

	log.Printf("🛑 [Cancel] Cancel requested for job: %s", jobID)

	// 1. Redis에 취소 플래그 설정 - 워커가 처리 중이면 결과를 버린다
	if err := redisutil.SetJobCancelled(h.rdb, jobID); err != nil {
		log.Printf("❌ [Cancel] Failed to set cancel flag: %v", err)
		http.Error(w, `{"error": "failed to set cancel flag"}`, http.StatusInternalServerError)
		return
	}

	// 2. 아직 시작 전인 Job은 바로 취소 상태로
	if err := h.db.UpdateJobStatus(r.Context(), jobID, model.StatusUserCancelled); err != nil {
		log.Printf("⚠️ [Cancel] Failed to update job status: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"job_id":  jobID,
		"status":  model.StatusUserCancelled,
	})
}
