package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrComputeCachesValue(t *testing.T) {
	c := New[string](time.Minute)

	var calls int32
	compute := func() (string, error) {
		atomic.AddInt32(&calls, 1)
		return "value", nil
	}

	v, err := c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	v, err = c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrComputeCollapsesConcurrentCallers(t *testing.T) {
	c := New[int](time.Minute)

	var calls int32
	release := make(chan struct{})
	compute := func() (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	const callers = 20
	results := make([]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := c.GetOrCompute("model", compute)
			require.NoError(t, err)
			results[idx] = v
		}(i)
	}

	// 모든 고루틴이 대기 상태에 들어갈 시간을 준 뒤 계산 완료
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "first resolver wins, others reuse its result")
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestGetOrComputeRecomputesAfterTTL(t *testing.T) {
	c := New[int](10 * time.Millisecond)

	var calls int32
	compute := func() (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	v, err := c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	time.Sleep(20 * time.Millisecond)

	v, err = c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "expired entry must be recomputed")
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New[int](time.Minute)

	var calls int32
	boom := errors.New("boom")
	compute := func() (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return 0, boom
		}
		return 7, nil
	}

	_, err := c.GetOrCompute("k", compute)
	require.ErrorIs(t, err, boom)

	v, err := c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGetAndInvalidate(t *testing.T) {
	c := New[string](time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	_, err := c.GetOrCompute("k", func() (string, error) { return "v", nil })
	require.NoError(t, err)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	c.Invalidate("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}
