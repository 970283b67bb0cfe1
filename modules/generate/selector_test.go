package generate

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"festiva-canvas-server/modules/common/model"
)

// probeScript - 모델별 probe 결과 스크립트
type probeScript map[string]struct {
	status int
	err    error
}

func scriptedProvider(script probeScript) *stubSynthesizer {
	var probes int32
	return &stubSynthesizer{
		generate: func(prompt string, count int) ([]model.SynthImage, error) {
			return nil, errors.New("not used")
		},
		probe: func(modelID string) (int, error) {
			atomic.AddInt32(&probes, 1)
			if result, ok := script[modelID]; ok {
				return result.status, result.err
			}
			return http.StatusNotFound, errors.New("model not found")
		},
	}
}

func TestSelectModelPicksFirstAvailable(t *testing.T) {
	provider := scriptedProvider(probeScript{
		"model-new": {status: http.StatusOK},
	})
	s := NewModelSelector(provider, []string{"model-new", "model-old"}, "model-stable")

	assert.Equal(t, "model-new", s.SelectModel(context.Background()))
}

func TestSelectModelSkipsMissingModels(t *testing.T) {
	provider := scriptedProvider(probeScript{
		"model-new": {status: http.StatusNotFound, err: errors.New("not found")},
		"model-old": {status: http.StatusOK},
	})
	s := NewModelSelector(provider, []string{"model-new", "model-old"}, "model-stable")

	assert.Equal(t, "model-old", s.SelectModel(context.Background()))
}

func TestSelectModelSkipsForbiddenModels(t *testing.T) {
	provider := scriptedProvider(probeScript{
		"model-new": {status: http.StatusForbidden, err: errors.New("no access")},
		"model-old": {status: http.StatusOK},
	})
	s := NewModelSelector(provider, []string{"model-new", "model-old"}, "model-stable")

	assert.Equal(t, "model-old", s.SelectModel(context.Background()))
}

func TestSelectModelFallsBackWhenAllFail(t *testing.T) {
	provider := scriptedProvider(probeScript{})
	s := NewModelSelector(provider, []string{"model-new", "model-old"}, "model-stable")

	// 탐색 전부 실패해도 에러 없이 안정 폴백
	assert.Equal(t, "model-stable", s.SelectModel(context.Background()))
}

func TestSelectModelSurvivesCancelledCaller(t *testing.T) {
	provider := scriptedProvider(probeScript{
		"model-new": {status: http.StatusOK},
	})
	s := NewModelSelector(provider, []string{"model-new"}, "model-stable")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// 끊긴 호출자 때문에 공유 탐색이 폴백으로 오염되면 안 된다
	assert.Equal(t, "model-new", s.SelectModel(ctx))
}

func TestSelectModelCachesSelection(t *testing.T) {
	var probeCalls int32
	provider := &stubSynthesizer{
		generate: func(prompt string, count int) ([]model.SynthImage, error) {
			return nil, errors.New("not used")
		},
		probe: func(modelID string) (int, error) {
			atomic.AddInt32(&probeCalls, 1)
			return http.StatusOK, nil
		},
	}
	s := NewModelSelector(provider, []string{"model-new"}, "model-stable")

	for i := 0; i < 5; i++ {
		s.SelectModel(context.Background())
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&probeCalls))
}

func TestSelectModelInvalidateForcesReprobe(t *testing.T) {
	var probeCalls int32
	provider := &stubSynthesizer{
		generate: func(prompt string, count int) ([]model.SynthImage, error) {
			return nil, errors.New("not used")
		},
		probe: func(modelID string) (int, error) {
			atomic.AddInt32(&probeCalls, 1)
			return http.StatusOK, nil
		},
	}
	s := NewModelSelector(provider, []string{"model-new"}, "model-stable")

	s.SelectModel(context.Background())
	s.Invalidate()
	s.SelectModel(context.Background())

	assert.Equal(t, int32(2), atomic.LoadInt32(&probeCalls))
}

func TestSelectModelConcurrentCallersShareOneProbe(t *testing.T) {
	var probeCalls int32
	provider := &stubSynthesizer{
		generate: func(prompt string, count int) ([]model.SynthImage, error) {
			return nil, errors.New("not used")
		},
		probe: func(modelID string) (int, error) {
			atomic.AddInt32(&probeCalls, 1)
			return http.StatusOK, nil
		},
	}
	s := NewModelSelector(provider, []string{"model-new"}, "model-stable")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "model-new", s.SelectModel(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&probeCalls))
}
