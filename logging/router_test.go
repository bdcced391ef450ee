package logging

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"
)

type captureSink struct {
	events   []Event
	writeErr error
	closed   bool
}

func (s *captureSink) Write(event Event) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.closed = true
	return nil
}

func newTestRouter(t *testing.T, cfg Config, clock Clock, sink Sink) *Router {
	t.Helper()
	router, err := NewRouter(cfg, clock, log.Default(), map[string]Sink{"capture": sink})
	if err != nil {
		t.Fatalf("failed to construct router: %v", err)
	}
	return router
}

func TestRouterStampsTimeAndDispatches(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	sink := &captureSink{}
	cfg := Config{EnabledSinks: []string{"capture"}, MinimumSeverity: SeverityDebug}
	router := newTestRouter(t, cfg, ClockFunc(func() time.Time { return now }), sink)

	router.Publish(context.Background(), Event{Type: "test.event", Severity: SeverityInfo})

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	if !sink.events[0].Time.Equal(now) {
		t.Fatalf("event time = %v, want %v", sink.events[0].Time, now)
	}
	if stats := router.Stats(); stats.EventsTotal != 1 || stats.ErrorsTotal != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRouterFiltersBySeverity(t *testing.T) {
	sink := &captureSink{}
	cfg := Config{EnabledSinks: []string{"capture"}, MinimumSeverity: SeverityWarn}
	router := newTestRouter(t, cfg, nil, sink)

	router.Publish(context.Background(), Event{Type: "quiet", Severity: SeverityInfo})
	router.Publish(context.Background(), Event{Type: "loud", Severity: SeverityError})

	if len(sink.events) != 1 || sink.events[0].Type != "loud" {
		t.Fatalf("severity filter passed %v", sink.events)
	}
}

func TestRouterMergesConfiguredFields(t *testing.T) {
	sink := &captureSink{}
	cfg := Config{
		EnabledSinks:    []string{"capture"},
		MinimumSeverity: SeverityDebug,
		Fields:          map[string]any{"service": "arena", "region": "eu"},
	}
	router := newTestRouter(t, cfg, nil, sink)

	router.Publish(context.Background(), Event{
		Type:     "test.event",
		Severity: SeverityInfo,
		Extra:    map[string]any{"region": "us"},
	})

	extra := sink.events[0].Extra
	if extra["service"] != "arena" {
		t.Fatalf("configured field missing: %v", extra)
	}
	if extra["region"] != "us" {
		t.Fatalf("event field must override the configured one: %v", extra)
	}
}

func TestRouterCountsSinkErrors(t *testing.T) {
	sink := &captureSink{writeErr: errors.New("disk full")}
	var logged strings.Builder
	cfg := Config{EnabledSinks: []string{"capture"}, MinimumSeverity: SeverityDebug}
	router, err := NewRouter(cfg, nil, log.New(&logged, "", 0), map[string]Sink{"capture": sink})
	if err != nil {
		t.Fatalf("failed to construct router: %v", err)
	}

	router.Publish(context.Background(), Event{Type: "test.event", Severity: SeverityInfo})

	if stats := router.Stats(); stats.ErrorsTotal != 1 {
		t.Fatalf("errors total = %d, want 1", stats.ErrorsTotal)
	}
	if !strings.Contains(logged.String(), "disk full") {
		t.Fatalf("fallback logger missing the sink error: %q", logged.String())
	}
}

func TestRouterCloseStopsDispatch(t *testing.T) {
	sink := &captureSink{}
	cfg := Config{EnabledSinks: []string{"capture"}, MinimumSeverity: SeverityDebug}
	router := newTestRouter(t, cfg, nil, sink)

	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !sink.closed {
		t.Fatalf("sink was not closed")
	}

	router.Publish(context.Background(), Event{Type: "late", Severity: SeverityError})
	if len(sink.events) != 0 {
		t.Fatalf("closed router still dispatched: %v", sink.events)
	}
}

func TestRouterSkipsUnregisteredSink(t *testing.T) {
	cfg := Config{EnabledSinks: []string{"capture", "missing"}, MinimumSeverity: SeverityDebug}
	sink := &captureSink{}
	router := newTestRouter(t, cfg, nil, sink)

	router.Publish(context.Background(), Event{Type: "test.event", Severity: SeverityInfo})
	if len(sink.events) != 1 {
		t.Fatalf("registered sink did not receive the event")
	}
}
