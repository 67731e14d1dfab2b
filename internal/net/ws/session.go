package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hauntsim/server/internal/telemetry"
)

// session owns one spectator connection. Only writeLoop writes data frames;
// close uses WriteControl, which gorilla allows concurrently.
type session struct {
	conn         *websocket.Conn
	logger       telemetry.Logger
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
}

func newSession(conn *websocket.Conn, logger telemetry.Logger, buffer int, writeTimeout time.Duration) *session {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	return &session{
		conn:         conn,
		logger:       logger,
		send:         make(chan []byte, buffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

// enqueue queues a frame without blocking and reports whether it fit.
func (s *session) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			if s.writeTimeout > 0 {
				if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
					s.logger.Printf("spectator %s: set write deadline: %v", s.conn.RemoteAddr(), err)
				}
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Printf("spectator %s: write failed: %v", s.conn.RemoteAddr(), err)
				s.close(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}

func (s *session) close(code int, reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		if code != websocket.CloseAbnormalClosure {
			deadline := time.Now().Add(time.Second)
			err := s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
			// ErrCloseSent means the close handshake already went out.
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				s.logger.Printf("spectator %s: close frame: %v", s.conn.RemoteAddr(), err)
			}
		}
		if err := s.conn.Close(); err != nil {
			s.logger.Printf("spectator %s: close: %v", s.conn.RemoteAddr(), err)
		}
	})
}
