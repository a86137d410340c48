// Copyright 2025 Certen Protocol
//
// Compliance Event Interceptor
// A bounded, non-blocking intake buffer decoupling event producers from
// the pipeline, with pluggable synchronous observers and a completeness
// counter.

package intercept

import (
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const defaultQueueSize = 10000

// Observer is called synchronously, in registration order, for every event
// that is successfully enqueued. A panicking Observer is recovered, logged,
// and does not abort the ingestion of that event or the observers
// registered after it, which still run for the same event (spec.md §4.4/§7).
type Observer func(*ComplianceEvent)

// Recorder receives queue-depth and drop signals for external metrics. It
// is optional; Interceptor works without one.
type Recorder interface {
	ObserveQueueDepth(depth int)
	IncDrops()
}

// Interceptor is CEI: a bounded channel-backed queue plus observer
// broadcast. The queue is the only intrinsically multi-producer surface in
// the core (spec.md §5); a single consumer (normally the pipeline) drains
// it via GetEvent.
type Interceptor struct {
	queue chan *ComplianceEvent

	handlersMu sync.RWMutex
	handlers   []Observer

	eventCount uint64

	recorder Recorder
	logger   *log.Logger
}

// Option configures an Interceptor at construction time.
type Option func(*Interceptor)

// WithLogger overrides the Interceptor's default logger.
func WithLogger(logger *log.Logger) Option {
	return func(i *Interceptor) { i.logger = logger }
}

// WithRecorder attaches a metrics Recorder.
func WithRecorder(r Recorder) Option {
	return func(i *Interceptor) { i.recorder = r }
}

// New returns an Interceptor with the given max queue size (spec.md default
// is unspecified; the Python original defaults to 10000).
func New(maxQueueSize int, opts ...Option) *Interceptor {
	if maxQueueSize <= 0 {
		maxQueueSize = defaultQueueSize
	}
	i := &Interceptor{
		queue:  make(chan *ComplianceEvent, maxQueueSize),
		logger: log.New(os.Stderr, "[Interceptor] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// RegisterObserver appends obs to the observer list. Registration is
// append-only under the writer lock; Intercept takes a snapshot before
// invoking observers so concurrent registration never races a broadcast in
// progress.
func (i *Interceptor) RegisterObserver(obs Observer) {
	i.handlersMu.Lock()
	defer i.handlersMu.Unlock()
	i.handlers = append(i.handlers, obs)
}

// Intercept attempts a non-blocking enqueue of event. On overflow it
// returns false and the event is dropped — the interceptor never silently
// discards while reporting success; callers must treat false as a
// durability failure and escalate (spec.md §4.4).
func (i *Interceptor) Intercept(event *ComplianceEvent) bool {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	select {
	case i.queue <- event:
		atomic.AddUint64(&i.eventCount, 1)
		if i.recorder != nil {
			i.recorder.ObserveQueueDepth(len(i.queue))
		}
		i.broadcast(event)
		return true
	default:
		i.logger.Printf("%v: event_id=%s", ErrQueueFull, event.EventID)
		if i.recorder != nil {
			i.recorder.IncDrops()
		}
		return false
	}
}

// broadcast invokes every registered observer synchronously, in
// registration order, recovering and logging any panic rather than
// propagating it.
func (i *Interceptor) broadcast(event *ComplianceEvent) {
	i.handlersMu.RLock()
	snapshot := make([]Observer, len(i.handlers))
	copy(snapshot, i.handlers)
	i.handlersMu.RUnlock()

	for _, observe := range snapshot {
		i.safeObserve(observe, event)
	}
}

func (i *Interceptor) safeObserve(observe Observer, event *ComplianceEvent) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Printf("observer panic for event_id=%s: %v", event.EventID, r)
		}
	}()
	observe(event)
}

// GetEvent retrieves the next queued event. timeout <= 0 performs a
// non-blocking read; otherwise GetEvent blocks until an event arrives or
// timeout elapses, whichever comes first (spec.md §5 Cancellation:
// get_event(timeout) honors the timeout cooperatively).
func (i *Interceptor) GetEvent(timeout time.Duration) (*ComplianceEvent, bool) {
	if timeout <= 0 {
		select {
		case e := <-i.queue:
			return e, true
		default:
			return nil, false
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case e := <-i.queue:
		return e, true
	case <-timer.C:
		return nil, false
	}
}

// EventCount returns the total number of events successfully intercepted.
func (i *Interceptor) EventCount() uint64 {
	return atomic.LoadUint64(&i.eventCount)
}

// VerifyCompleteness reports whether the intercepted event count matches
// expected, for callers that independently count events at the producer.
func (i *Interceptor) VerifyCompleteness(expected uint64) bool {
	return i.EventCount() == expected
}

// QueueDepth returns the number of events currently buffered.
func (i *Interceptor) QueueDepth() int {
	return len(i.queue)
}
