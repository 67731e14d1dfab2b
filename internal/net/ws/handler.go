package ws

import (
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"hauntsim/server/internal/net/proto"
)

const websocketCloseNormal = websocket.CloseNormalClosure

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *nethttp.Request) bool {
		return true
	},
}

// ServeHTTP upgrades a spectator connection and keeps it subscribed until
// the client goes away or the feed closes.
func (f *Feed) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Printf("spectator upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}

	s := newSession(conn, f.logger, f.buffer, f.writeTimeout)
	if f.hello != nil {
		data, err := proto.EncodeHello(f.hello())
		if err != nil {
			f.logger.Printf("failed to marshal hello for %s: %v", r.RemoteAddr, err)
		} else {
			s.enqueue(data)
		}
	}
	if !f.add(s) {
		s.close(websocket.CloseGoingAway, "feed closed")
		return
	}
	go s.writeLoop()
	defer func() {
		f.remove(s)
		s.close(websocket.CloseNormalClosure, "")
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			f.logger.Printf("discarding malformed message from %s: %v", r.RemoteAddr, err)
			continue
		}
		switch msg.Type {
		case proto.TypeHeartbeat:
			data, err := proto.EncodeHeartbeat(proto.Heartbeat{ServerTime: time.Now(), ClientTime: msg.SentAt})
			if err != nil {
				f.logger.Printf("failed to marshal heartbeat ack for %s: %v", r.RemoteAddr, err)
				continue
			}
			if !s.enqueue(data) {
				f.dropped.Add(1)
			}
		default:
			f.logger.Printf("ignoring %q from spectator %s", msg.Type, r.RemoteAddr)
		}
	}
}
