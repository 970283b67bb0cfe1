package progress

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWatcher() *watcher {
	return &watcher{send: make(chan []byte, 16)}
}

func receive(t *testing.T, w *watcher) ProgressEvent {
	t.Helper()
	select {
	case payload := <-w.send:
		var event ProgressEvent
		require.NoError(t, json.Unmarshal(payload, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return ProgressEvent{}
	}
}

func TestPublishReachesAllWatchers(t *testing.T) {
	hub := NewHub()

	w1 := newWatcher()
	w2 := newWatcher()
	hub.subscribe("job-1", w1)
	hub.subscribe("job-1", w2)

	hub.Publish(ProgressEvent{Type: "status", JobID: "job-1", Status: "processing"})

	assert.Equal(t, "processing", receive(t, w1).Status)
	assert.Equal(t, "processing", receive(t, w2).Status)
}

func TestPublishScopedToJob(t *testing.T) {
	hub := NewHub()

	w1 := newWatcher()
	w2 := newWatcher()
	hub.subscribe("job-1", w1)
	hub.subscribe("job-2", w2)

	hub.Publish(ProgressEvent{Type: "completed", JobID: "job-1"})

	assert.Equal(t, "completed", receive(t, w1).Type)
	assert.Empty(t, w2.send)
}

func TestPublishWithoutWatchersIsDropped(t *testing.T) {
	hub := NewHub()

	// 패닉 없이 무시되어야 한다
	hub.Publish(ProgressEvent{Type: "status", JobID: "nobody-watching"})
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()

	w := newWatcher()
	ch := hub.subscribe("job-1", w)
	hub.unsubscribe(ch, w)

	hub.Publish(ProgressEvent{Type: "status", JobID: "job-1"})

	// send 채널은 이미 닫혀 있고 이벤트는 전달되지 않는다
	_, open := <-w.send
	assert.False(t, open)
}

func TestSlowWatcherIsDisconnected(t *testing.T) {
	hub := NewHub()

	slow := &watcher{send: make(chan []byte)} // 버퍼 없음, 수신자 없음
	ch := hub.subscribe("job-1", slow)

	hub.Publish(ProgressEvent{Type: "status", JobID: "job-1"})

	ch.mutex.RLock()
	defer ch.mutex.RUnlock()
	assert.Empty(t, ch.watchers)
}
