package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Clock supplies timestamps so tests can pin event times.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// Sink receives routed events. Write is called from a single goroutine per
// sink; implementations do not need their own locking.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Router fans events out to sinks, each on its own goroutine. Publish never
// blocks the simulation tick: when a buffer is full the event is dropped and
// counted instead.
type Router struct {
	queue       chan Event
	outlets     []*sinkOutlet
	clock       Clock
	minSeverity Severity
	fields      map[string]any
	dropWarn    time.Duration
	stderr      *log.Logger
	cancel      context.CancelFunc
	closed      atomic.Bool
	wg          sync.WaitGroup

	accepted     atomic.Uint64
	dropped      atomic.Uint64
	nextDropWarn atomic.Int64
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink) (*Router, error) {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	queueSize := cfg.BufferSize
	if queueSize <= 0 {
		queueSize = 512
	}
	dropWarn := cfg.DropWarnInterval
	if dropWarn <= 0 {
		dropWarn = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		queue:       make(chan Event, queueSize),
		clock:       clock,
		minSeverity: cfg.MinimumSeverity,
		fields:      cfg.CloneFields(),
		dropWarn:    dropWarn,
		stderr:      log.New(os.Stderr, "[logging] ", log.LstdFlags),
		cancel:      cancel,
	}

	// Each outlet carries a bounded slice of the main queue so one slow
	// sink cannot starve the others.
	outletSize := queueSize
	if outletSize > 1024 {
		outletSize = 1024
	}
	if outletSize < 32 {
		outletSize = 32
	}
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		out := &sinkOutlet{
			name:   named.Name,
			sink:   named.Sink,
			events: make(chan Event, outletSize),
			stderr: r.stderr,
		}
		r.outlets = append(r.outlets, out)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			out.run()
		}()
	}

	r.wg.Add(1)
	go r.dispatch(ctx)
	return r, nil
}

// Publish enqueues the event for delivery. Untyped events are refused, and
// anything arriving after Close begins is silently discarded.
func (r *Router) Publish(ctx context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.countDrop(event)
	}
}

// Close stops the dispatch loop, flushes whatever is already queued, then
// closes the sinks. The context bounds how long the flush may take.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		<-ctx.Done()
		return ctx.Err()
	}
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, out := range r.outlets {
		if err := out.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	return RouterStats{
		EventsTotal:  r.accepted.Load(),
		DroppedTotal: r.dropped.Load(),
	}
}

func (r *Router) dispatch(ctx context.Context) {
	defer func() {
		for _, out := range r.outlets {
			close(out.events)
		}
		r.wg.Done()
	}()
	for {
		select {
		case <-ctx.Done():
			// Flush the backlog before shutting the outlets.
			for {
				select {
				case event := <-r.queue:
					r.route(event)
				default:
					return
				}
			}
		case event := <-r.queue:
			r.route(event)
		}
	}
}

// route applies the severity floor, stamps the time, merges router-level
// fields, and hands the event to every outlet. Event-level Extra keys win
// over the router's fields.
func (r *Router) route(event Event) {
	if event.Severity < r.minSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.fields) > 0 {
		event = cloneForFields(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(r.fields))
		}
		for k, v := range r.fields {
			if _, exists := event.Extra[k]; !exists {
				event.Extra[k] = v
			}
		}
	}
	r.accepted.Add(1)
	for _, out := range r.outlets {
		out.offer(event)
	}
}

func (r *Router) countDrop(event Event) {
	r.dropped.Add(1)
	now := time.Now().UnixNano()
	at := r.nextDropWarn.Load()
	if at != 0 && now < at {
		return
	}
	if r.nextDropWarn.CompareAndSwap(at, now+r.dropWarn.Nanoseconds()) {
		r.stderr.Printf("dropping event type=%s tick=%d", event.Type, event.Tick)
	}
}

// sinkOutlet owns one sink and its delivery goroutine. A failed write loses
// that event; consecutive failures back the next attempt off exponentially
// so a broken sink does not spin.
type sinkOutlet struct {
	name     string
	sink     Sink
	events   chan Event
	stderr   *log.Logger
	failures int
}

func (o *sinkOutlet) offer(event Event) {
	select {
	case o.events <- cloneForFields(event):
	default:
		o.stderr.Printf("sink %s backlog full dropping event type=%s", o.name, event.Type)
	}
}

func (o *sinkOutlet) run() {
	var retryAt time.Time
	for event := range o.events {
		if !retryAt.IsZero() {
			time.Sleep(time.Until(retryAt))
			retryAt = time.Time{}
		}
		if err := o.sink.Write(event); err != nil {
			o.failures++
			delay := o.backoff()
			retryAt = time.Now().Add(delay)
			o.stderr.Printf("sink %s failed: %v (retry in %s)", o.name, err, delay)
			continue
		}
		o.failures = 0
	}
}

func (o *sinkOutlet) backoff() time.Duration {
	shift := o.failures
	if shift > 5 {
		shift = 5
	}
	return time.Duration(1<<shift) * time.Second
}
