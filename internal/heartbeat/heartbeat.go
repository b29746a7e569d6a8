package heartbeat

import (
	"sync"
	"sync/atomic"
	"time"

	"visage/internal/infra"
)

// Interval between keep-alive emissions while a job is processing.
const Interval = 4 * time.Second

// Emitter sends one keep-alive signal to the chat surface.
type Emitter interface {
	SendTyping(chatRef int64) error
}

// Heartbeat repeatedly signals "still working" to one chat while a job runs.
// Start begins the loop, Stop cancels future ticks without waiting for any
// in-flight emission. Emission failures are logged and never stop the loop.
type Heartbeat struct {
	emitter  Emitter
	logger   infra.Logger
	chatRef  int64
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	ticks    atomic.Int64
	active   atomic.Bool
}

func New(emitter Emitter, logger infra.Logger, chatRef int64) *Heartbeat {
	return &Heartbeat{
		emitter:  emitter,
		logger:   logger,
		chatRef:  chatRef,
		interval: Interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the emission loop. Calling Start on an active heartbeat is a
// no-op.
func (h *Heartbeat) Start() {
	if !h.active.CompareAndSwap(false, true) {
		return
	}
	go h.loop()
}

func (h *Heartbeat) loop() {
	for {
		select {
		case <-h.stop:
			return
		default:
		}

		h.ticks.Add(1)
		// Detached: a slow or failing send must not delay the cadence or
		// outlive Stop's guarantee about future ticks.
		go func() {
			if err := h.emitter.SendTyping(h.chatRef); err != nil {
				h.logger.Warn().Err(err).Int64("chat_ref", h.chatRef).Msg("heartbeat: send typing failed")
			}
		}()

		select {
		case <-h.stop:
			return
		case <-time.After(h.interval):
		}
	}
}

// Stop cancels future ticks. It returns immediately; an emission already in
// flight is allowed to drain on its own.
func (h *Heartbeat) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
		h.active.Store(false)
	})
}

// Ticks reports how many emissions have been scheduled so far.
func (h *Heartbeat) Ticks() int64 {
	return h.ticks.Load()
}
