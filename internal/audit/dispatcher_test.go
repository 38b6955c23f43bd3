package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type blockingSink struct {
	gate chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{Kind: "signin.success", UserID: string(rune('a' + i))})
	}
	d.Close()

	events := sink.all()
	require.Len(t, events, 5)
	for i, event := range events {
		assert.Equal(t, string(rune('a'+i)), event.UserID)
	}
}

func TestDispatcherFansOutToAllSinks(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, first, nil, second)

	d.Emit(context.Background(), Event{Kind: "signin.success", UserID: "user-1"})
	d.Emit(context.Background(), Event{Kind: "signin.failure", UserID: "user-2"})
	d.Close()

	for _, sink := range []*recordingSink{first, second} {
		events := sink.all()
		require.Len(t, events, 2)
		assert.Equal(t, "user-1", events[0].UserID)
		assert.Equal(t, "user-2", events[1].UserID)
	}
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &recordingSink{})
	assert.Nil(t, d)

	// Nil dispatcher is a valid no-op.
	d.Emit(context.Background(), Event{Kind: "signin.success"})
	d.Close()
	assert.Zero(t, d.Dropped())
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event occupies the worker, subsequent ones fill and overflow the
	// one-slot buffer.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{Kind: "signin.failure"})
	}

	assert.Eventually(t, func() bool { return d.Dropped() > 0 }, time.Second, 5*time.Millisecond)

	close(sink.gate)
	d.Close()
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), Event{Kind: "account.updated"})
	}
	d.Close()

	assert.Len(t, sink.all(), 20)
}

func TestDispatcherCloseIdempotent(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, &recordingSink{})
	d.Close()
	d.Close()

	// Emit after close is a silent no-op.
	d.Emit(context.Background(), Event{Kind: "signin.success"})
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(4)
	sink.Emit(context.Background(), Event{Kind: "signin.success", UserID: "user-1"})

	select {
	case event := <-sink.Events():
		assert.Equal(t, "user-1", event.UserID)
	case <-time.After(time.Second):
		t.Fatal("expected an event on the channel")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{
		Kind:    "signin.failure",
		UserID:  "user-1",
		IP:      "203.0.113.9",
		Success: false,
	})

	var decoded Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "signin.failure", decoded.Kind)
	assert.Equal(t, "203.0.113.9", decoded.IP)
}
