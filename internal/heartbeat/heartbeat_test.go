package heartbeat

import (
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingEmitter struct {
	sent  atomic.Int64
	delay time.Duration
	err   error
}

func (e *countingEmitter) SendTyping(chatRef int64) error {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.sent.Add(1)
	return e.err
}

func newTestHeartbeat(e Emitter, interval time.Duration) *Heartbeat {
	h := New(e, zerolog.New(io.Discard), 42)
	h.interval = interval
	return h
}

func TestHeartbeatEmitsAtCadence(t *testing.T) {
	emitter := &countingEmitter{}
	h := newTestHeartbeat(emitter, 10*time.Millisecond)
	h.Start()
	time.Sleep(55 * time.Millisecond)
	h.Stop()

	ticks := h.Ticks()
	if ticks < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", ticks)
	}
}

func TestHeartbeatStopsFutureTicks(t *testing.T) {
	emitter := &countingEmitter{}
	h := newTestHeartbeat(emitter, 5*time.Millisecond)
	h.Start()
	time.Sleep(20 * time.Millisecond)
	h.Stop()

	at := h.Ticks()
	time.Sleep(30 * time.Millisecond)
	if got := h.Ticks(); got != at {
		t.Fatalf("ticks advanced after Stop: %d -> %d", at, got)
	}
}

func TestHeartbeatStopDoesNotWaitForInflightEmission(t *testing.T) {
	emitter := &countingEmitter{delay: 200 * time.Millisecond}
	h := newTestHeartbeat(emitter, 5*time.Millisecond)
	h.Start()
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		h.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(50 * time.Millisecond):
		t.Fatalf("Stop blocked on in-flight emission")
	}
}

func TestHeartbeatSurvivesEmitterErrors(t *testing.T) {
	emitter := &countingEmitter{err: errors.New("chat unreachable")}
	h := newTestHeartbeat(emitter, 5*time.Millisecond)
	h.Start()
	time.Sleep(30 * time.Millisecond)
	h.Stop()

	if h.Ticks() < 3 {
		t.Fatalf("loop stopped on emitter error after %d ticks", h.Ticks())
	}
}

func TestHeartbeatStopIsIdempotent(t *testing.T) {
	h := newTestHeartbeat(&countingEmitter{}, time.Millisecond)
	h.Start()
	h.Stop()
	h.Stop()
}
