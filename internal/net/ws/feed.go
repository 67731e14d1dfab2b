package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"hauntsim/server/internal/net/proto"
	"hauntsim/server/internal/telemetry"
	"hauntsim/server/logging"
)

const (
	defaultSessionBuffer = 256
	defaultWriteTimeout  = 5 * time.Second
)

// FeedConfig tunes the spectator feed.
type FeedConfig struct {
	Logger telemetry.Logger
	// Buffer is the number of frames queued per spectator before frames
	// are dropped for that spectator.
	Buffer       int
	WriteTimeout time.Duration
	// Hello builds the greeting sent to each new spectator.
	Hello func() proto.HelloV1
}

// FeedStats reports feed throughput.
type FeedStats struct {
	Spectators int    `json:"spectators"`
	Sent       uint64 `json:"sent"`
	Dropped    uint64 `json:"dropped"`
}

// Feed is a logging sink that fans every event out to connected websocket
// spectators. A slow spectator loses frames; it never stalls the router.
type Feed struct {
	logger       telemetry.Logger
	buffer       int
	writeTimeout time.Duration
	hello        func() proto.HelloV1

	mu       sync.Mutex
	sessions map[*session]struct{}
	closed   bool

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewFeed constructs an empty feed.
func NewFeed(cfg FeedConfig) *Feed {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = defaultSessionBuffer
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &Feed{
		logger:       logger,
		buffer:       buffer,
		writeTimeout: timeout,
		hello:        cfg.Hello,
		sessions:     make(map[*session]struct{}),
	}
}

// Write satisfies logging.Sink.
func (f *Feed) Write(event logging.Event) error {
	data, err := proto.EncodeEvent(event)
	if err != nil {
		return err
	}
	f.broadcast(data)
	return nil
}

func (f *Feed) broadcast(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.sessions {
		if s.enqueue(data) {
			f.sent.Add(1)
		} else {
			f.dropped.Add(1)
		}
	}
}

// Close disconnects every spectator with a normal closure.
func (f *Feed) Close(context.Context) error {
	f.mu.Lock()
	f.closed = true
	sessions := make([]*session, 0, len(f.sessions))
	for s := range f.sessions {
		sessions = append(sessions, s)
	}
	f.sessions = make(map[*session]struct{})
	f.mu.Unlock()

	for _, s := range sessions {
		s.close(websocketCloseNormal, "run finished")
	}
	return nil
}

// Stats returns a snapshot of the feed counters.
func (f *Feed) Stats() FeedStats {
	f.mu.Lock()
	spectators := len(f.sessions)
	f.mu.Unlock()
	return FeedStats{Spectators: spectators, Sent: f.sent.Load(), Dropped: f.dropped.Load()}
}

func (f *Feed) add(s *session) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.sessions[s] = struct{}{}
	return true
}

func (f *Feed) remove(s *session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, s)
}
