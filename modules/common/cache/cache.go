// Package cache provides a small mutex-guarded TTL cache with an atomic
// get-or-compute operation. It replaces the ad hoc "map of pending results
// checked then inserted" pattern: the existence check and the insert happen
// under one lock, so concurrent callers for the same key never compute twice.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	done        chan struct{}
	value       V
	err         error
	completedAt time.Time
}

// Cache - 키별 단일 계산을 보장하는 TTL 캐시
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	ttl     time.Duration
}

// New - TTL 캐시 생성. ttl <= 0 이면 만료 없음.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]*entry[V]),
		ttl:     ttl,
	}
}

// GetOrCompute - 키에 대한 값을 반환. 신선한 캐시가 있으면 그대로,
// 같은 키 계산이 진행 중이면 그 결과를 기다려서 공유,
// 둘 다 아니면 compute를 실행하고 결과를 캐시한다.
// compute가 에러를 반환하면 캐시하지 않는다 (다음 호출이 재시도).
func (c *Cache[V]) GetOrCompute(key string, compute func() (V, error)) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		select {
		case <-e.done:
			// 완료된 엔트리 - TTL은 읽는 시점에 검사
			if e.err == nil && !c.expired(e) {
				c.mu.Unlock()
				return e.value, nil
			}
			// 만료/실패 - 아래에서 재계산
		default:
			// 진행 중 - 첫 번째 계산의 결과를 공유
			c.mu.Unlock()
			<-e.done
			return e.value, e.err
		}
	}

	e := &entry[V]{done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	e.value, e.err = compute()
	e.completedAt = time.Now()
	close(e.done)

	if e.err != nil {
		c.mu.Lock()
		if c.entries[key] == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}

	return e.value, e.err
}

// Get - 신선한 캐시 값 조회 (계산 없음)
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	select {
	case <-e.done:
		if e.err == nil && !c.expired(e) {
			return e.value, true
		}
		return zero, false
	default:
		return zero, false
	}
}

// Invalidate - 키 강제 제거
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *Cache[V]) expired(e *entry[V]) bool {
	return c.ttl > 0 && time.Since(e.completedAt) >= c.ttl
}
