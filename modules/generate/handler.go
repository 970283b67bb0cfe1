package generate

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"festiva-canvas-server/modules/common/model"
)

// Handler - 축제 이미지 생성 API 핸들러
type Handler struct {
	service *Service
}

// NewHandler - 핸들러 생성 (서비스 초기화 실패 시 nil)
func NewHandler() *Handler {
	service := NewService()
	if service == nil {
		log.Println("❌ [Generate] Failed to initialize service")
		return nil
	}
	return &Handler{service: service}
}

// NewHandlerWith - 주입된 서비스로 핸들러 생성
func NewHandlerWith(service *Service) *Handler {
	return &Handler{service: service}
}

// Service - 워커 등 다른 모듈과 파이프라인 공유용
func (h *Handler) Service() *Service {
	return h.service
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/festival/generate", h.HandleGenerate).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/festival/quota", h.HandleQuotaStatus).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/festival/events", h.HandleUpcomingEvents).Methods("GET", "OPTIONS")
	log.Println("✅ [Generate] Routes registered: POST /api/festival/generate, GET /api/festival/quota, GET /api/festival/events")
}

// HandleGenerate - POST /api/festival/generate
// 성공과 부드러운 실패 모두 200. 하드 한도만 429, 중복/검증 실패는 400.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	// CORS preflight
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &GenerateResponse{
			Success:      false,
			Images:       []model.ImageDescriptor{},
			ErrorMessage: "invalid request body",
			ErrorCode:    ErrCodeInvalidRequest,
		})
		return
	}

	log.Printf("🎨 [Generate] Request: user=%s event=%s freeform=%t token=%s",
		req.UserID, req.EventID, req.FreeformPrompt != "", req.IdempotencyToken)

	resp, err := h.service.Generate(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrDuplicateRequest) {
			writeJSON(w, http.StatusBadRequest, &GenerateResponse{
				Success:      false,
				Images:       []model.ImageDescriptor{},
				ErrorMessage: "this request was already processed",
				ErrorCode:    ErrCodeDuplicateRequest,
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, &GenerateResponse{
			Success:      false,
			Images:       []model.ImageDescriptor{},
			ErrorMessage: "internal error",
			ErrorCode:    ErrCodeInternalError,
		})
		return
	}

	writeJSON(w, statusForResponse(resp), resp)
}

// HandleQuotaStatus - GET /api/festival/quota?userId=...
func (h *Handler) HandleQuotaStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, `{"error": "userId is required"}`, http.StatusBadRequest)
		return
	}

	allowed, remaining := h.service.QuotaStatus(r.Context(), userID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"allowed":   allowed,
		"remaining": remaining,
	})
}

// HandleUpcomingEvents - GET /api/festival/events?limit=...
func (h *Handler) HandleUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	events, err := h.service.UpcomingEvents(r.Context(), limit)
	if err != nil {
		log.Printf("❌ [Generate] Failed to fetch events: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "failed to fetch events",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"events":  events,
	})
}

// statusForResponse - 응답 본문 기반 상태 코드 결정
func statusForResponse(resp *GenerateResponse) int {
	switch resp.ErrorCode {
	case ErrCodeDailyLimit:
		return http.StatusTooManyRequests
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		// 그레이스풀 실패 포함 200
		return http.StatusOK
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("⚠️ [Generate] Failed to encode response: %v", err)
	}
}
