package progress

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// ProgressEvent - Job 진행 상황 이벤트
type ProgressEvent struct {
	Type     string `json:"type"` // "status", "image_ready", "completed", "failed", "cancelled"
	JobID    string `json:"jobId"`
	Status   string `json:"status,omitempty"`
	Message  string `json:"message,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Index    int    `json:"index,omitempty"`
	Total    int    `json:"total,omitempty"`
}

// channel - Job 1건에 대한 구독자 집합
type channel struct {
	jobID        string
	watchers     map[*watcher]struct{}
	mutex        sync.RWMutex
	createdAt    time.Time
	lastActivity time.Time
}

// Hub - Job 진행 상황 브로드캐스트 허브
// 워커가 Publish하면 해당 Job을 구독 중인 모든 WebSocket 클라이언트에게 전달
type Hub struct {
	channels map[string]*channel
	mutex    sync.RWMutex
}

// NewHub - 허브 생성 + 빈 채널 정리 고루틴 시작
func NewHub() *Hub {
	h := &Hub{
		channels: make(map[string]*channel),
	}
	go h.cleanupLoop()
	return h
}

// Publish - Job 구독자 전원에게 이벤트 전송
func (h *Hub) Publish(event ProgressEvent) {
	h.mutex.RLock()
	ch, exists := h.channels[event.JobID]
	h.mutex.RUnlock()

	if !exists {
		// 구독자 없는 Job의 이벤트는 버린다
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️ [Progress] Failed to marshal event: %v", err)
		return
	}

	ch.mutex.Lock()
	ch.lastActivity = time.Now()
	for w := range ch.watchers {
		select {
		case w.send <- payload:
		default:
			// 느린 구독자는 끊는다
			close(w.send)
			delete(ch.watchers, w)
		}
	}
	ch.mutex.Unlock()
}

// subscribe - 구독 등록
func (h *Hub) subscribe(jobID string, w *watcher) *channel {
	h.mutex.Lock()
	ch, exists := h.channels[jobID]
	if !exists {
		now := time.Now()
		ch = &channel{
			jobID:        jobID,
			watchers:     make(map[*watcher]struct{}),
			createdAt:    now,
			lastActivity: now,
		}
		h.channels[jobID] = ch
		log.Printf("✅ [Progress] Created channel for job %s", jobID)
	}
	h.mutex.Unlock()

	ch.mutex.Lock()
	ch.watchers[w] = struct{}{}
	ch.lastActivity = time.Now()
	count := len(ch.watchers)
	ch.mutex.Unlock()

	log.Printf("👤 [Progress] Watcher joined job %s (watchers: %d)", jobID, count)
	return ch
}

// unsubscribe - 구독 해제
func (h *Hub) unsubscribe(ch *channel, w *watcher) {
	ch.mutex.Lock()
	if _, exists := ch.watchers[w]; exists {
		close(w.send)
		delete(ch.watchers, w)
	}
	remaining := len(ch.watchers)
	ch.lastActivity = time.Now()
	ch.mutex.Unlock()

	log.Printf("👋 [Progress] Watcher left job %s (remaining: %d)", ch.jobID, remaining)
}

// cleanupLoop - 비어있고 오래된 채널 정리
func (h *Hub) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		h.mutex.Lock()
		cleaned := 0
		for jobID, ch := range h.channels {
			ch.mutex.RLock()
			empty := len(ch.watchers) == 0
			stale := time.Since(ch.lastActivity) > 10*time.Minute
			ch.mutex.RUnlock()

			if empty && stale {
				delete(h.channels, jobID)
				cleaned++
			}
		}
		h.mutex.Unlock()

		if cleaned > 0 {
			log.Printf("🗑️ [Progress] Cleaned up %d empty channels", cleaned)
		}
	}
}
