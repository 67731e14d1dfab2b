package proto

import (
	"encoding/json"
	"testing"
	"time"

	"hauntsim/server/logging"
)

func TestEncodeEvent(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	data, err := EncodeEvent(logging.Event{
		Type:     "hunters.moved",
		Tick:     4,
		Time:     at,
		Actor:    logging.HunterRef(7),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryHunters,
		Payload:  map[string]string{"from": "Van", "to": "Hallway"},
		Extra:    map[string]any{"run": "abc"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame["type"] != TypeEvent || frame["event"] != "hunters.moved" {
		t.Fatalf("unexpected frame identity: %v", frame)
	}
	if frame["ver"] != float64(Version) {
		t.Fatalf("expected version %d, got %v", Version, frame["ver"])
	}
	if frame["time"] != float64(at.UnixMilli()) {
		t.Fatalf("expected millisecond timestamp, got %v", frame["time"])
	}
	if frame["severity"] != "info" {
		t.Fatalf("expected textual severity, got %v", frame["severity"])
	}
	actor, ok := frame["actor"].(map[string]any)
	if !ok || actor["id"] != "7" || actor["kind"] != "hunter" {
		t.Fatalf("unexpected actor: %v", frame["actor"])
	}
	payload, ok := frame["payload"].(map[string]any)
	if !ok || payload["to"] != "Hallway" {
		t.Fatalf("unexpected payload: %v", frame["payload"])
	}
}

func TestEncodeHello(t *testing.T) {
	data, err := EncodeHello(HelloV1{RunID: "run", Rooms: []Room{{Name: "Van", Exit: true, Connections: []string{"Hallway"}}}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var hello HelloV1
	if err := json.Unmarshal(data, &hello); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if hello.Type != TypeHello || hello.Ver != Version || hello.RunID != "run" {
		t.Fatalf("unexpected hello: %+v", hello)
	}
	if len(hello.Rooms) != 1 || !hello.Rooms[0].Exit {
		t.Fatalf("expected the van to be marked as exit")
	}

	empty, err := EncodeHello(HelloV1{})
	if err != nil {
		t.Fatalf("encode empty: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(empty, &raw); err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if rooms, ok := raw["rooms"].([]any); !ok || len(rooms) != 0 {
		t.Fatalf("expected an empty room list, got %v", raw["rooms"])
	}
}

func TestDecodeClientMessage(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"heartbeat","sentAt":42}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Ver != Version || msg.Type != TypeHeartbeat || msg.SentAt != 42 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if _, err := DecodeClientMessage([]byte(`{"ver":9,"type":"heartbeat"}`)); err == nil {
		t.Fatalf("expected unsupported version to fail")
	}
	if _, err := DecodeClientMessage([]byte(`{`)); err == nil {
		t.Fatalf("expected malformed payload to fail")
	}
}

func TestEncodeHeartbeat(t *testing.T) {
	now := time.UnixMilli(2000)
	data, err := EncodeHeartbeat(Heartbeat{ServerTime: now, ClientTime: 1500})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame["type"] != TypeHeartbeat || frame["rtt"] != float64(500) {
		t.Fatalf("unexpected heartbeat: %v", frame)
	}
}
