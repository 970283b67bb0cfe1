package progress

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 개발용 - 모든 origin 허용
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// watcher - WebSocket으로 연결된 구독자 1명
type watcher struct {
	conn *websocket.Conn
	send chan []byte
}

// Handler - Job 진행 상황 WebSocket 핸들러
type Handler struct {
	hub *Hub
}

// NewHandler - 핸들러 생성
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/jobs/{jobId}", h.HandleWatch)
	log.Println("✅ [Progress] Routes registered: GET /ws/jobs/{jobId}")
}

// HandleWatch - GET /ws/jobs/{jobId} (WebSocket 업그레이드)
func (h *Handler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["jobId"]
	if jobID == "" {
		http.Error(w, `{"error": "jobId is required"}`, http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Progress] WebSocket upgrade failed: %v", err)
		return
	}

	log.Printf("🔍 [Progress] New watcher for job %s", jobID)

	client := &watcher{
		conn: conn,
		send: make(chan []byte, 16),
	}

	ch := h.hub.subscribe(jobID, client)

	go client.writePump()
	client.readPump(h.hub, ch)
}

// writePump - send 채널 → WebSocket
func (w *watcher) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		w.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-w.send:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump - 연결 유지 + 종료 감지 (클라이언트 → 서버 메시지는 무시)
func (w *watcher) readPump(hub *Hub, ch *channel) {
	defer func() {
		hub.unsubscribe(ch, w)
		w.conn.Close()
	}()

	w.conn.SetReadLimit(512)
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ [Progress] Unexpected close: %v", err)
			}
			return
		}
	}
}
