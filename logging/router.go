package logging

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// Router fans events out to the configured sinks, stamping times from the
// injected clock and filtering by minimum severity. Dispatch is synchronous:
// events here are per-action (joins, pickups, resets), not a per-tick stream.
type Router struct {
	cfg      Config
	clock    Clock
	fallback *log.Logger
	sinks    []namedSink
	fields   map[string]any
	closed   atomic.Bool

	mu          sync.Mutex
	eventsTotal uint64
	errorsTotal uint64
}

type namedSink struct {
	name string
	sink Sink
}

type RouterStats struct {
	EventsTotal uint64
	ErrorsTotal uint64
}

func NewRouter(cfg Config, clock Clock, fallback *log.Logger, sinks map[string]Sink) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	if fallback == nil {
		fallback = log.Default()
	}

	selected := make([]namedSink, 0, len(cfg.EnabledSinks))
	for _, name := range cfg.EnabledSinks {
		sink, ok := sinks[name]
		if !ok || sink == nil {
			fallback.Printf("logging: sink %q not registered, skipping", name)
			continue
		}
		selected = append(selected, namedSink{name: name, sink: sink})
	}

	return &Router{
		cfg:      cfg,
		clock:    clock,
		fallback: fallback,
		sinks:    selected,
		fields:   cfg.CloneFields(),
	}, nil
}

func (r *Router) Publish(_ context.Context, event Event) {
	if r == nil || r.closed.Load() {
		return
	}
	if event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.fields) > 0 {
		merged := make(map[string]any, len(r.fields)+len(event.Extra))
		for k, v := range r.fields {
			merged[k] = v
		}
		for k, v := range event.Extra {
			merged[k] = v
		}
		event.Extra = merged
	}

	r.mu.Lock()
	r.eventsTotal++
	r.mu.Unlock()

	for _, entry := range r.sinks {
		if err := entry.sink.Write(event); err != nil {
			r.mu.Lock()
			r.errorsTotal++
			r.mu.Unlock()
			r.fallback.Printf("logging: sink %q write failed: %v", entry.name, err)
		}
	}
}

func (r *Router) Stats() RouterStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RouterStats{EventsTotal: r.eventsTotal, ErrorsTotal: r.errorsTotal}
}

func (r *Router) Close(ctx context.Context) error {
	if r == nil || !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	var firstErr error
	for _, entry := range r.sinks {
		if err := entry.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
