// Package persist owns the background reconciliation of live cache state
// into the durable store. One loop runs per active event; viewer
// connections are the sole lifecycle signal.
package persist

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/iNESlab/golbang-live/go/internal/metrics"
)

// DefaultInterval is how often an active event's cache state is flushed to
// the durable store.
const DefaultInterval = 30 * time.Second

// Flusher persists one event's cache state. A failed flush is logged and
// retried on the next interval; it never blocks live serving.
type Flusher interface {
	Flush(ctx context.Context, eventID uuid.UUID) error
}

// Finalizer is notified after the last viewer's final flush, when the
// event's loop has stopped. Optional.
type Finalizer interface {
	Finalize(ctx context.Context, eventID uuid.UUID)
}

// Scheduler runs one flush loop per event with at least one connected
// viewer. State machine per event: Idle -> Active on the first viewer,
// Active -> Draining -> Idle when the counter reaches zero. Loop starts are
// guarded by the loops map under the mutex, so concurrent first viewers
// produce exactly one loop.
type Scheduler struct {
	flusher   Flusher
	finalizer Finalizer
	clock     clockwork.Clock
	interval  time.Duration

	mu    sync.Mutex
	loops map[uuid.UUID]*eventLoop

	ctx context.Context
}

type eventLoop struct {
	viewers  int
	cancel   context.CancelFunc
	flushNow chan struct{}
	done     chan struct{}
}

// NewScheduler builds a scheduler. A nil clock means the real one; a
// non-positive interval falls back to DefaultInterval. finalizer may be nil.
func NewScheduler(flusher Flusher, finalizer Finalizer, interval time.Duration, clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		flusher:   flusher,
		finalizer: finalizer,
		clock:     clock,
		interval:  interval,
		loops:     make(map[uuid.UUID]*eventLoop),
		ctx:       context.Background(),
	}
}

// SetFlusher attaches the flush target after construction. The scheduler
// is created before the scoring app (it tracks viewers for the gateway the
// app broadcasts through), so the flusher is bound in a second step.
// finalizer may be nil.
func (s *Scheduler) SetFlusher(flusher Flusher, finalizer Finalizer) {
	s.mu.Lock()
	s.flusher = flusher
	s.finalizer = finalizer
	s.mu.Unlock()
}

// Start installs the parent context for all event loops. Cancelling it
// stops every loop after one best-effort flush.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
}

// ViewerConnected increments the event's active-viewer counter, starting
// the flush loop on the transition from zero.
func (s *Scheduler) ViewerConnected(eventID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lp, ok := s.loops[eventID]; ok {
		lp.viewers++
		log.Debug().
			Str("event_id", eventID.String()).
			Int("viewers", lp.viewers).
			Msg("viewer joined active event")
		return
	}

	loopCtx, cancel := context.WithCancel(s.ctx)
	lp := &eventLoop{
		viewers:  1,
		cancel:   cancel,
		flushNow: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	s.loops[eventID] = lp
	metrics.ActivePersistLoops.Inc()
	go s.run(loopCtx, eventID, lp)

	log.Info().Str("event_id", eventID.String()).Msg("persistence loop started")
}

// ViewerDisconnected decrements the counter and triggers one immediate
// flush, so persisted state is never more than one normal disconnect stale.
// The loop itself decides whether that flush was the final one.
func (s *Scheduler) ViewerDisconnected(eventID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lp, ok := s.loops[eventID]
	if !ok {
		return
	}
	if lp.viewers > 0 {
		lp.viewers--
	}
	select {
	case lp.flushNow <- struct{}{}:
	default:
		// A flush request is already pending; the loop re-checks the
		// counter after every requested flush.
	}
	log.Debug().
		Str("event_id", eventID.String()).
		Int("viewers", lp.viewers).
		Msg("viewer left event")
}

// ActiveEvents returns how many events currently have a running loop.
func (s *Scheduler) ActiveEvents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loops)
}

// Viewers returns the active-viewer count for one event.
func (s *Scheduler) Viewers(eventID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lp, ok := s.loops[eventID]; ok {
		return lp.viewers
	}
	return 0
}

// Wait blocks until the event's loop has fully stopped. Test helper and
// shutdown aid; returns immediately when no loop is running.
func (s *Scheduler) Wait(eventID uuid.UUID) {
	s.mu.Lock()
	lp, ok := s.loops[eventID]
	s.mu.Unlock()
	if ok {
		<-lp.done
	}
}

func (s *Scheduler) run(ctx context.Context, eventID uuid.UUID, lp *eventLoop) {
	defer close(lp.done)
	defer lp.cancel()

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.flushOnce(eventID)
			s.removeLoop(eventID, lp)
			log.Info().Str("event_id", eventID.String()).Msg("persistence loop cancelled")
			return

		case <-ticker.Chan():
			s.flushOnce(eventID)

		case <-lp.flushNow:
			s.flushOnce(eventID)
			if s.stopIfIdle(eventID, lp) {
				s.mu.Lock()
				finalizer := s.finalizer
				s.mu.Unlock()
				if finalizer != nil {
					finalizer.Finalize(context.WithoutCancel(ctx), eventID)
				}
				log.Info().Str("event_id", eventID.String()).Msg("persistence loop drained and stopped")
				return
			}
		}
	}
}

func (s *Scheduler) flushOnce(eventID uuid.UUID) {
	s.mu.Lock()
	flusher := s.flusher
	s.mu.Unlock()
	if flusher == nil {
		return
	}

	// The flush must survive loop cancellation during shutdown, so it runs
	// on its own deadline rather than the loop context.
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	start := s.clock.Now()
	if err := flusher.Flush(ctx, eventID); err != nil {
		metrics.FlushesFailed.Inc()
		log.Error().Err(err).
			Str("event_id", eventID.String()).
			Msg("flush failed; retrying on next interval")
		return
	}
	metrics.FlushesSucceeded.Inc()
	metrics.FlushDuration.Observe(s.clock.Since(start).Seconds())
	log.Debug().
		Str("event_id", eventID.String()).
		Dur("took", s.clock.Since(start)).
		Msg("flushed event state to durable store")
}

// stopIfIdle completes the Draining -> Idle transition: if no viewer
// reconnected since the final flush, the scheduling marker is deleted and
// the loop stops. A viewer arriving before the marker is deleted aborts
// the transition and the loop continues.
func (s *Scheduler) stopIfIdle(eventID uuid.UUID, lp *eventLoop) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lp.viewers > 0 {
		return false
	}
	delete(s.loops, eventID)
	metrics.ActivePersistLoops.Dec()
	return true
}

func (s *Scheduler) removeLoop(eventID uuid.UUID, lp *eventLoop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.loops[eventID]; ok && current == lp {
		delete(s.loops, eventID)
		metrics.ActivePersistLoops.Dec()
	}
}
