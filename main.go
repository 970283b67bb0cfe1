package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"festiva-canvas-server/modules/common/config"
	"festiva-canvas-server/modules/generate"
	"festiva-canvas-server/modules/progress"
	"festiva-canvas-server/modules/worker"
)

// CORS 미들웨어
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "festiva-canvas-server",
	})
}

func main() {
	// 환경변수 로드
	if _, err := config.LoadConfig(); err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// 생성 파이프라인 초기화
	generateHandler := generate.NewHandler()
	if generateHandler == nil {
		log.Fatal("❌ Failed to initialize generate handler")
	}

	// 진행 상황 허브 + WebSocket 핸들러
	hub := progress.NewHub()
	progressHandler := progress.NewHandler(hub)

	// Job 대기열 핸들러들
	enqueueHandler := worker.NewEnqueueHandler()
	cancelHandler := worker.NewCancelHandler()

	// Redis Queue Worker 시작 (백그라운드)
	if jobWorker := worker.NewWorker(generateHandler.Service(), hub); jobWorker != nil {
		go jobWorker.Start()
	} else {
		log.Println("⚠️ Worker not started, async generation disabled")
	}

	// 라우터 설정
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")

	generateHandler.RegisterRoutes(r)
	progressHandler.RegisterRoutes(r)
	if enqueueHandler != nil {
		enqueueHandler.RegisterRoutes(r)
	}
	if cancelHandler != nil {
		cancelHandler.RegisterRoutes(r)
	}

	// 포트 설정 (Render.com은 PORT 환경변수 사용)
	port := os.Getenv("PORT")
	if port == "" {
		port = config.GetConfig().Port
	}

	log.Printf("🚀 Festiva Canvas Server starting on port %s", port)
	log.Printf("🎨 Generate endpoint: http://localhost:%s/api/festival/generate", port)
	log.Printf("📡 Progress WebSocket: ws://localhost:%s/ws/jobs/{jobId}", port)
	log.Printf("❤️  Health check: http://localhost:%s/health", port)

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
