package worker

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"festiva-canvas-server/modules/common/config"
	redisutil "festiva-canvas-server/modules/common/redis"
)

// EnqueueHandler - 생성 Job을 대기열에 넣는 핸들러
type EnqueueHandler struct {
	rdb *redis.Client
}

// EnqueueRequest - Enqueue 요청
type EnqueueRequest struct {
	JobID string `json:"job_id"`
}

// EnqueueResponse - Enqueue 응답
type EnqueueResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	JobID         string `json:"job_id,omitempty"`
	Queue         string `json:"queue,omitempty"`
	QueuePosition int64  `json:"queuePosition,omitempty"`
}

// NewEnqueueHandler - 핸들러 생성
func NewEnqueueHandler() *EnqueueHandler {
	cfg := config.GetConfig()

	rdb := redisutil.Connect(cfg)
	if rdb == nil {
		log.Println("⚠️ [Enqueue] Failed to connect to Redis")
		return nil
	}

	log.Println("✅ [Enqueue] Handler initialized with Redis connection")
	return &EnqueueHandler{rdb: rdb}
}

// RegisterRoutes - 라우트 등록
func (h *EnqueueHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/jobs/enqueue", h.HandleEnqueue).Methods("POST", "OPTIONS")
	log.Println("✅ [Enqueue] Routes registered: POST /api/jobs/enqueue")
}

// HandleEnqueue - POST /api/jobs/enqueue
func (h *EnqueueHandler) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	// CORS preflight
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
		writeEnqueueJSON(w, http.StatusBadRequest, EnqueueResponse{
			Success: false,
			Error:   "job_id is required",
		})
		return
	}

	position, err := h.rdb.LPush(r.Context(), redisutil.JobQueueKey, req.JobID).Result()
	if err != nil {
		log.Printf("❌ [Enqueue] Failed to enqueue job %s: %v", req.JobID, err)
		writeEnqueueJSON(w, http.StatusInternalServerError, EnqueueResponse{
			Success: false,
			Error:   "failed to enqueue job",
		})
		return
	}

	log.Printf("📥 [Enqueue] Job %s queued (position: %d)", req.JobID, position)

	writeEnqueueJSON(w, http.StatusOK, EnqueueResponse{
		Success:       true,
		Message:       "job queued",
		JobID:         req.JobID,
		Queue:         redisutil.JobQueueKey,
		QueuePosition: position,
	})
}

func writeEnqueueJSON(w http.ResponseWriter, status int, body EnqueueResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
