package generate

import (
	"context"
	"log"
	"sync"
	"time"

	"festiva-canvas-server/modules/common/model"
)

const (
	// 완료된 토큰 기억 기간
	processedTokenRetention = 3 * time.Minute

	// 완료 후에도 막 도착한 재제출이 같은 응답을 받도록 유지하는 시간
	inflightGracePeriod = 1 * time.Second

	processedSweepInterval = 1 * time.Minute

	dedupPromptPrefixLen = 64
)

// inflightEntry - 진행 중(또는 유예 중)인 요청 1건
type inflightEntry struct {
	done chan struct{}
	resp *GenerateResponse
}

// RequestCoordinator - 동일 요청 병합 + 토큰 기반 중복 거부
// 같은 키의 동시 제출은 업스트림 1회 호출로 병합되고,
// 이미 완료된 토큰의 재제출은 ErrDuplicateRequest로 거부된다.
type RequestCoordinator struct {
	mu        sync.Mutex
	inflight  map[string]*inflightEntry
	processed map[string]time.Time

	stopSweeper chan struct{}
}

// NewRequestCoordinator - Coordinator 생성 + 토큰 정리 고루틴 시작
func NewRequestCoordinator() *RequestCoordinator {
	c := &RequestCoordinator{
		inflight:    make(map[string]*inflightEntry),
		processed:   make(map[string]time.Time),
		stopSweeper: make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Close - 정리 고루틴 중지
func (c *RequestCoordinator) Close() {
	close(c.stopSweeper)
}

// Submit - 요청 제출. 동일 키의 동시 요청은 하나의 실행을 공유한다.
// handler의 에러/패닉은 soft-failure 응답으로 흡수된다 (항상 non-nil 응답).
func (c *RequestCoordinator) Submit(ctx context.Context, req *GenerateRequest, handler func(context.Context, *GenerateRequest) *GenerateResponse) (*GenerateResponse, error) {
	key := dedupKey(req)

	c.mu.Lock()

	// 이미 완료 처리된 토큰 재제출
	if req.IdempotencyToken != "" {
		if completedAt, ok := c.processed[req.IdempotencyToken]; ok {
			if time.Since(completedAt) < processedTokenRetention {
				c.mu.Unlock()
				return nil, ErrDuplicateRequest
			}
			delete(c.processed, req.IdempotencyToken)
		}
	}

	// 동일 키가 진행 중이면 그 실행에 합류
	if entry, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-entry.done:
			return entry.resp, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// 새 실행 등록. 검사와 등록이 같은 락 아래에서 일어나야
	// 두 동시 제출이 모두 실행되는 창이 생기지 않는다.
	entry := &inflightEntry{done: make(chan struct{})}
	c.inflight[key] = entry
	c.mu.Unlock()

	entry.resp = c.runSafely(ctx, req, handler)

	// 성공한 실행만 토큰 처리 완료로 기록 - 실패는 재시도 가능해야 한다
	if req.IdempotencyToken != "" && entry.resp.Success {
		c.mu.Lock()
		c.processed[req.IdempotencyToken] = time.Now()
		c.mu.Unlock()
	}

	close(entry.done)

	// 유예 시간 동안 키를 유지해서 직후 재제출이 같은 응답을 공유
	time.AfterFunc(inflightGracePeriod, func() {
		c.mu.Lock()
		if current, ok := c.inflight[key]; ok && current == entry {
			delete(c.inflight, key)
		}
		c.mu.Unlock()
	})

	return entry.resp, nil
}

// runSafely - handler 실행, 패닉/nil을 soft-failure 응답으로 변환
func (c *RequestCoordinator) runSafely(ctx context.Context, req *GenerateRequest, handler func(context.Context, *GenerateRequest) *GenerateResponse) (resp *GenerateResponse) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ 생성 파이프라인 패닉 복구: %v", r)
			resp = &GenerateResponse{
				Success:      false,
				Images:       []model.ImageDescriptor{},
				ErrorMessage: "internal error during generation",
				ErrorCode:    ErrCodeInternalError,
			}
		}
	}()

	resp = handler(ctx, req)
	if resp == nil {
		resp = &GenerateResponse{
			Success:      false,
			Images:       []model.ImageDescriptor{},
			ErrorMessage: "internal error during generation",
			ErrorCode:    ErrCodeInternalError,
		}
	}
	return resp
}

// dedupKey - 토큰 우선, 없으면 사용자+콘텐츠 기반 키
func dedupKey(req *GenerateRequest) string {
	if req.IdempotencyToken != "" {
		return "token:" + req.IdempotencyToken
	}

	content := req.EventID
	if content == "" {
		content = req.FreeformPrompt
		if len(content) > dedupPromptPrefixLen {
			content = content[:dedupPromptPrefixLen]
		}
	}
	return "content:" + req.UserID + "|" + content
}

// sweepLoop - 보존 기간 지난 완료 토큰 정리
func (c *RequestCoordinator) sweepLoop() {
	ticker := time.NewTicker(processedSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for token, completedAt := range c.processed {
				if now.Sub(completedAt) >= processedTokenRetention {
					delete(c.processed, token)
				}
			}
			c.mu.Unlock()
		case <-c.stopSweeper:
			return
		}
	}
}
