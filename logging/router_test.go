package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"hauntsim/server/logging"
	"hauntsim/server/logging/hunters"
	"hauntsim/server/logging/sinks"
)

var fixedClock = logging.ClockFunc(func() time.Time {
	return time.Date(2024, 10, 31, 23, 0, 0, 0, time.UTC)
})

func closeRouter(t *testing.T, router *logging.Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close router: %v", err)
	}
}

func TestRouterDeliversToEnabledSinks(t *testing.T) {
	memory := sinks.NewMemorySink()
	ignored := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"memory"}
	cfg.Fields = map[string]any{"run": "r-1"}

	router, err := logging.NewRouter(cfg, fixedClock, log.New(&bytes.Buffer{}, "", 0), map[string]logging.Sink{
		"memory":  memory,
		"ignored": ignored,
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	hunters.Joined(context.Background(), router, logging.HunterRef(1), hunters.JoinedPayload{Name: "Ada", Room: "Van"}, nil)
	closeRouter(t, router)

	events := memory.EventsOfType(hunters.EventJoined)
	if len(events) != 1 {
		t.Fatalf("expected one joined event, got %d", len(events))
	}
	event := events[0]
	if event.Extra["run"] != "r-1" {
		t.Fatalf("expected router fields on event, got %v", event.Extra)
	}
	if !event.Time.Equal(fixedClock.Now()) {
		t.Fatalf("expected clock time, got %v", event.Time)
	}
	if len(ignored.Events()) != 0 {
		t.Fatalf("disabled sink received %d events", len(ignored.Events()))
	}
	stats := router.Stats()
	if stats.EventsTotal != 1 || stats.DroppedTotal != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Categories[logging.CategoryHunters] != 1 {
		t.Fatalf("expected one hunters event, got %v", stats.Categories)
	}
	if got := stats.Sinks["memory"]; got.Written != 1 || got.Dropped != 0 || got.Failed != 0 {
		t.Fatalf("unexpected memory sink stats %+v", got)
	}
	if _, ok := stats.Sinks["ignored"]; ok {
		t.Fatal("disabled sink must not report stats")
	}
}

func TestRouterFiltersBySeverity(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"memory"}
	cfg.Severity = "warn"

	router, err := logging.NewRouter(cfg, fixedClock, nil, map[string]logging.Sink{"memory": memory})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "test.info", Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "test.error", Severity: logging.SeverityError})
	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityError})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 1 || events[0].Type != "test.error" {
		t.Fatalf("expected only the error event, got %+v", events)
	}
}

func TestRouterReportsMissingSink(t *testing.T) {
	var fallback bytes.Buffer
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"console", "json"}

	router, err := logging.NewRouter(cfg, fixedClock, log.New(&fallback, "", 0), map[string]logging.Sink{
		"console": sinks.NewConsoleSink(&bytes.Buffer{}, cfg.Console),
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	closeRouter(t, router)

	if !strings.Contains(fallback.String(), "sink json enabled but not provided") {
		t.Fatalf("expected missing sink warning, got %q", fallback.String())
	}
	if router.Sink("console") == nil || router.Sink("json") != nil {
		t.Fatal("unexpected sink lookup result")
	}
}

func TestPublishAfterCloseIsIgnored(t *testing.T) {
	memory := sinks.NewMemorySink()
	router, err := logging.NewRouter(logging.Config{}, fixedClock, nil, map[string]logging.Sink{"memory": memory})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	closeRouter(t, router)
	router.Publish(context.Background(), logging.Event{Type: "late"})
	closeRouter(t, router)

	if len(memory.Events()) != 0 {
		t.Fatalf("expected no events, got %d", len(memory.Events()))
	}
}

func TestWithFieldsKeepsExistingExtra(t *testing.T) {
	var got logging.Event
	base := logging.PublisherFunc(func(_ context.Context, event logging.Event) { got = event })
	pub := logging.WithFields(base, map[string]any{"run": "r-2", "hunter": "x"})

	pub.Publish(context.Background(), logging.Event{Type: "t", Extra: map[string]any{"hunter": "Ada"}})

	if got.Extra["run"] != "r-2" || got.Extra["hunter"] != "Ada" {
		t.Fatalf("unexpected extra %v", got.Extra)
	}
}

func TestJSONSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := sinks.NewJSON(&buf, 0)
	event := logging.Event{
		Type:     hunters.EventMoved,
		Time:     fixedClock.Now(),
		Actor:    logging.HunterRef(3),
		Targets:  []logging.EntityRef{logging.RoomRef("Kitchen")},
		Severity: logging.SeverityDebug,
	}
	if err := sink.Write(event); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != string(hunters.EventMoved) || decoded["severity"] != "debug" {
		t.Fatalf("unexpected line %v", decoded)
	}
}

type failingSink struct{ writes int }

func (s *failingSink) Write(logging.Event) error {
	s.writes++
	return errors.New("disk full")
}

func (s *failingSink) Close(context.Context) error { return nil }

func TestRouterSurvivesFailingSink(t *testing.T) {
	var fallback bytes.Buffer
	failing := &failingSink{}
	memory := sinks.NewMemorySink()
	router, err := logging.NewRouter(logging.Config{}, fixedClock, log.New(&fallback, "", 0), map[string]logging.Sink{
		"failing": failing,
		"memory":  memory,
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "one"})
	closeRouter(t, router)

	if len(memory.Events()) != 1 {
		t.Fatalf("healthy sink missed the event: %d", len(memory.Events()))
	}
	if failing.writes != 1 {
		t.Fatalf("expected one failed write, got %d", failing.writes)
	}
	if got := router.Stats().Sinks["failing"]; got.Failed != 1 {
		t.Fatalf("expected the failure to be counted, got %+v", got)
	}
	if !strings.Contains(fallback.String(), "sink failing failed: disk full") {
		t.Fatalf("expected failure on fallback, got %q", fallback.String())
	}
}

func TestFailingSinkBacksOffInsteadOfStalling(t *testing.T) {
	failing := &failingSink{}
	router, err := logging.NewRouter(logging.Config{}, fixedClock, log.New(&bytes.Buffer{}, "", 0), map[string]logging.Sink{
		"failing": failing,
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	for i := 0; i < 5; i++ {
		router.Publish(context.Background(), logging.Event{Type: "burst"})
	}
	closeRouter(t, router)

	// The fixed clock never leaves the first backoff window.
	if failing.writes != 1 {
		t.Fatalf("expected a single attempt inside the backoff window, got %d", failing.writes)
	}
	if got := router.Stats().Sinks["failing"]; got.Failed != 1 || got.Dropped != 4 {
		t.Fatalf("unexpected lane stats %+v", got)
	}
}
