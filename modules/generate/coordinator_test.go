package generate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festiva-canvas-server/modules/common/model"
)

func okResponse(id string) *GenerateResponse {
	return &GenerateResponse{
		Success: true,
		Images:  []model.ImageDescriptor{{ID: id, URL: "https://example.com/" + id}},
	}
}

func TestSubmitRunsHandler(t *testing.T) {
	c := NewRequestCoordinator()
	defer c.Close()

	resp, err := c.Submit(context.Background(), &GenerateRequest{UserID: "u1", EventID: "e1"},
		func(ctx context.Context, req *GenerateRequest) *GenerateResponse {
			return okResponse("img-1")
		})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, resp.Images, 1)
	assert.Equal(t, "img-1", resp.Images[0].ID)
}

func TestSubmitCollapsesConcurrentDuplicates(t *testing.T) {
	c := NewRequestCoordinator()
	defer c.Close()

	var handlerCalls int32
	release := make(chan struct{})

	handler := func(ctx context.Context, req *GenerateRequest) *GenerateResponse {
		atomic.AddInt32(&handlerCalls, 1)
		<-release
		return okResponse("shared")
	}

	req := &GenerateRequest{IdempotencyToken: "tok-1", UserID: "u1", EventID: "e1"}

	const callers = 10
	responses := make([]*GenerateResponse, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			resp, err := c.Submit(context.Background(), req, handler)
			assert.NoError(t, err)
			responses[idx] = resp
		}(i)
	}

	// 모든 고루틴이 합류할 시간을 준 뒤 실행을 풀어준다
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&handlerCalls))
	for _, resp := range responses {
		require.NotNil(t, resp)
		require.Len(t, resp.Images, 1)
		assert.Equal(t, "shared", resp.Images[0].ID)
	}
}

func TestSubmitRejectsProcessedToken(t *testing.T) {
	c := NewRequestCoordinator()
	defer c.Close()

	req := &GenerateRequest{IdempotencyToken: "tok-2", UserID: "u1", EventID: "e1"}
	handler := func(ctx context.Context, req *GenerateRequest) *GenerateResponse {
		return okResponse("first")
	}

	_, err := c.Submit(context.Background(), req, handler)
	require.NoError(t, err)

	// 유예 시간이 끝난 뒤의 재제출은 중복으로 거부
	time.Sleep(inflightGracePeriod + 100*time.Millisecond)

	_, err = c.Submit(context.Background(), req, handler)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestSubmitFailedRunDoesNotBurnToken(t *testing.T) {
	c := NewRequestCoordinator()
	defer c.Close()

	req := &GenerateRequest{IdempotencyToken: "tok-retry", UserID: "u1", EventID: "e1"}

	_, err := c.Submit(context.Background(), req, func(ctx context.Context, req *GenerateRequest) *GenerateResponse {
		return &GenerateResponse{Success: false, Images: []model.ImageDescriptor{}}
	})
	require.NoError(t, err)

	time.Sleep(inflightGracePeriod + 100*time.Millisecond)

	// 실패한 실행의 토큰은 재시도 가능해야 한다
	resp, err := c.Submit(context.Background(), req, func(ctx context.Context, req *GenerateRequest) *GenerateResponse {
		return okResponse("retry")
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestSubmitDistinctTokensRunIndependently(t *testing.T) {
	c := NewRequestCoordinator()
	defer c.Close()

	var handlerCalls int32
	handler := func(ctx context.Context, req *GenerateRequest) *GenerateResponse {
		atomic.AddInt32(&handlerCalls, 1)
		return okResponse(req.IdempotencyToken)
	}

	_, err := c.Submit(context.Background(), &GenerateRequest{IdempotencyToken: "tok-a", UserID: "u1", EventID: "e1"}, handler)
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), &GenerateRequest{IdempotencyToken: "tok-b", UserID: "u1", EventID: "e1"}, handler)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&handlerCalls))
}

func TestSubmitRecoversFromHandlerPanic(t *testing.T) {
	c := NewRequestCoordinator()
	defer c.Close()

	resp, err := c.Submit(context.Background(), &GenerateRequest{UserID: "u1", EventID: "e1"},
		func(ctx context.Context, req *GenerateRequest) *GenerateResponse {
			panic("pipeline exploded")
		})

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Images)
	assert.Equal(t, ErrCodeInternalError, resp.ErrorCode)
}

func TestSubmitNilHandlerResponseBecomesSoftFailure(t *testing.T) {
	c := NewRequestCoordinator()
	defer c.Close()

	resp, err := c.Submit(context.Background(), &GenerateRequest{UserID: "u1", EventID: "e1"},
		func(ctx context.Context, req *GenerateRequest) *GenerateResponse {
			return nil
		})

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.NotNil(t, resp.Images)
}

func TestDedupKeyFallsBackToUserAndContent(t *testing.T) {
	withToken := dedupKey(&GenerateRequest{IdempotencyToken: "tok", UserID: "u1", EventID: "e1"})
	assert.Equal(t, "token:tok", withToken)

	byEvent := dedupKey(&GenerateRequest{UserID: "u1", EventID: "e1"})
	assert.Equal(t, "content:u1|e1", byEvent)

	longPrompt := make([]byte, 200)
	for i := range longPrompt {
		longPrompt[i] = 'x'
	}
	byPrompt := dedupKey(&GenerateRequest{UserID: "u1", FreeformPrompt: string(longPrompt)})
	assert.Len(t, byPrompt, len("content:u1|")+dedupPromptPrefixLen)
}
