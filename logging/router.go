package logging

import (
	"context"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize     = 512
	defaultDropWarnEvery = 5 * time.Second
	minSinkBacklog       = 32
	maxSinkBacklog       = 1024
	maxSinkBackoff       = 32 * time.Second
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sink receives routed events on its own goroutine.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// Router is the Publisher every agent shares. Publish never blocks an agent
// tick: a full queue drops the event and counts it. A dispatcher goroutine
// stamps router fields and fans each event out to one lane per sink.
type Router struct {
	queue       chan Event
	lanes       []*sinkLane
	clock       Clock
	fallback    *log.Logger
	minSeverity Severity
	fields      map[string]any
	dropWarn    *throttle

	stop      chan struct{}
	closed    atomic.Bool
	wg        sync.WaitGroup
	startOnce sync.Once

	routed     atomic.Uint64
	dropped    atomic.Uint64
	categoryMu sync.Mutex
	categories map[string]uint64
}

// SinkStats counts what happened to events handed to one sink.
type SinkStats struct {
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
	Failed  uint64 `json:"failed"`
}

// RouterStats is a point-in-time view of the router counters.
type RouterStats struct {
	EventsTotal  uint64               `json:"eventsTotal"`
	DroppedTotal uint64               `json:"droppedTotal"`
	Categories   map[string]uint64    `json:"categories,omitempty"`
	Sinks        map[string]SinkStats `json:"sinks,omitempty"`
}

// NewRouter starts a router that fans events out to the sinks named in
// cfg.EnabledSinks. Sinks absent from the map are reported on fallback and
// skipped; an empty EnabledSinks list enables every provided sink.
func NewRouter(cfg Config, clock Clock, fallback *log.Logger, sinks map[string]Sink) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	if fallback == nil {
		fallback = log.New(os.Stderr, "[logging] ", log.LstdFlags)
	}
	queueSize := cfg.BufferSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	minSeverity := cfg.MinimumSeverity
	if cfg.Severity != "" {
		minSeverity = ParseSeverity(cfg.Severity)
	}
	warnEvery := cfg.DropWarnInterval
	if warnEvery <= 0 {
		warnEvery = defaultDropWarnEvery
	}

	r := &Router{
		queue:       make(chan Event, queueSize),
		clock:       clock,
		fallback:    fallback,
		minSeverity: minSeverity,
		fields:      cfg.CloneFields(),
		dropWarn:    &throttle{every: warnEvery},
		stop:        make(chan struct{}),
		categories:  make(map[string]uint64),
	}

	backlog := min(max(queueSize, minSinkBacklog), maxSinkBacklog)
	for _, name := range sinkNames(cfg.EnabledSinks, sinks) {
		sink, ok := sinks[name]
		if !ok || sink == nil {
			fallback.Printf("sink %s enabled but not provided", name)
			continue
		}
		r.lanes = append(r.lanes, newSinkLane(name, sink, backlog, fallback, r.dropWarn))
	}

	r.start()
	return r, nil
}

func sinkNames(enabled []string, sinks map[string]Sink) []string {
	if len(enabled) > 0 {
		return enabled
	}
	names := make([]string, 0, len(sinks))
	for name := range sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Router) start() {
	r.startOnce.Do(func() {
		for _, lane := range r.lanes {
			r.wg.Add(1)
			go func(l *sinkLane) {
				defer r.wg.Done()
				l.run(r.clock)
			}(lane)
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.dispatch()
		}()
	})
}

func (r *Router) dispatch() {
	defer func() {
		for _, lane := range r.lanes {
			close(lane.events)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.route(event)
		case <-r.stop:
			// Flush what agents already queued before the lanes close.
			for {
				select {
				case event := <-r.queue:
					r.route(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) route(event Event) {
	if event.Severity < r.minSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = stampFields(event, r.fields)
	r.routed.Add(1)
	if event.Category != "" {
		r.categoryMu.Lock()
		r.categories[event.Category]++
		r.categoryMu.Unlock()
	}
	for _, lane := range r.lanes {
		lane.offer(event)
	}
}

// stampFields copies event and adds every field the event does not already
// carry in Extra.
func stampFields(event Event, fields map[string]any) Event {
	event = cloneForFields(event)
	if len(fields) == 0 {
		return event
	}
	if event.Extra == nil {
		event.Extra = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		if _, exists := event.Extra[k]; !exists {
			event.Extra[k] = v
		}
	}
	return event
}

// Publish queues event for routing. Events without a type and events
// published after Close are ignored.
func (r *Router) Publish(_ context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.dropped.Add(1)
		if r.dropWarn.allow(time.Now()) {
			r.fallback.Printf("queue full, dropping %s from %s:%s", event.Type, event.Actor.Kind, event.Actor.ID)
		}
	}
}

// Close stops accepting events, flushes the queue through every sink and
// then closes the sinks. It returns ctx's error when the flush outlives ctx.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)
	flushed := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(flushed)
	}()
	select {
	case <-flushed:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, lane := range r.lanes {
		if err := lane.sink.Close(ctx); err != nil {
			r.fallback.Printf("sink %s close failed: %v", lane.name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:  r.routed.Load(),
		DroppedTotal: r.dropped.Load(),
		Sinks:        make(map[string]SinkStats, len(r.lanes)),
	}
	r.categoryMu.Lock()
	if len(r.categories) > 0 {
		stats.Categories = make(map[string]uint64, len(r.categories))
		for k, v := range r.categories {
			stats.Categories[k] = v
		}
	}
	r.categoryMu.Unlock()
	for _, lane := range r.lanes {
		stats.Sinks[lane.name] = lane.stats()
		stats.DroppedTotal += lane.dropped.Load()
	}
	return stats
}

// Sink returns the enabled sink registered under name, or nil.
func (r *Router) Sink(name string) Sink {
	for _, lane := range r.lanes {
		if lane.name == name {
			return lane.sink
		}
	}
	return nil
}

// sinkLane feeds one sink from a bounded backlog. After a failed write the
// lane backs off exponentially; events arriving inside the backoff window
// are counted as dropped instead of stalling Close behind a sleep.
type sinkLane struct {
	name     string
	sink     Sink
	events   chan Event
	fallback *log.Logger
	dropWarn *throttle

	failures  int
	nextRetry time.Time

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

func newSinkLane(name string, sink Sink, backlog int, fallback *log.Logger, dropWarn *throttle) *sinkLane {
	return &sinkLane{
		name:     name,
		sink:     sink,
		events:   make(chan Event, backlog),
		fallback: fallback,
		dropWarn: dropWarn,
	}
}

func (l *sinkLane) offer(event Event) {
	select {
	case l.events <- cloneForFields(event):
	default:
		l.dropped.Add(1)
		if l.dropWarn.allow(time.Now()) {
			l.fallback.Printf("sink %s backlog full, dropping %s", l.name, event.Type)
		}
	}
}

func (l *sinkLane) run(clock Clock) {
	for event := range l.events {
		now := clock.Now()
		if l.failures > 0 && now.Before(l.nextRetry) {
			l.dropped.Add(1)
			continue
		}
		if err := l.sink.Write(event); err != nil {
			l.failed.Add(1)
			l.failures++
			delay := min(time.Second<<min(l.failures, 6), maxSinkBackoff)
			l.nextRetry = now.Add(delay)
			l.fallback.Printf("sink %s failed: %v (retry in %s)", l.name, err, delay)
			continue
		}
		l.written.Add(1)
		l.failures = 0
	}
}

func (l *sinkLane) stats() SinkStats {
	return SinkStats{Written: l.written.Load(), Dropped: l.dropped.Load(), Failed: l.failed.Load()}
}

// throttle lets one warning through per interval across goroutines.
type throttle struct {
	every time.Duration
	next  atomic.Int64
}

func (t *throttle) allow(now time.Time) bool {
	next := t.next.Load()
	if next != 0 && now.UnixNano() < next {
		return false
	}
	return t.next.CompareAndSwap(next, now.Add(t.every).UnixNano())
}
