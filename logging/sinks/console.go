package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"hauntsim/server/logging"
)

// ConsoleSink prints one human readable line per event:
//
//	hunters.moved hunter:1 tick=4 @Kitchen from="Hallway" to="Kitchen"
//
// Payload fields are flattened to sorted key=value pairs. The run id stamped
// on every event is left out; severity is shown only for warnings and errors.
type ConsoleSink struct {
	logger *log.Logger
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	if w == nil {
		w = io.Discard
	}
	return &ConsoleSink{logger: log.New(w, cfg.Prefix, log.Ltime|log.Lmicroseconds)}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Print(formatLine(event))
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func formatLine(event logging.Event) string {
	var b strings.Builder
	b.WriteString(string(event.Type))
	if actor := formatEntity(event.Actor); actor != "" {
		b.WriteByte(' ')
		b.WriteString(actor)
	}
	if event.Tick > 0 {
		fmt.Fprintf(&b, " tick=%d", event.Tick)
	}
	if event.Severity >= logging.SeverityWarn {
		fmt.Fprintf(&b, " [%s]", strings.ToUpper(event.Severity.String()))
	}
	for _, target := range event.Targets {
		if target.Kind == logging.EntityKindRoom {
			b.WriteString(" @")
			b.WriteString(target.ID)
			continue
		}
		b.WriteString(" ->")
		b.WriteString(formatEntity(target))
	}
	writePairs(&b, payloadFields(event.Payload))
	extra := make(map[string]any, len(event.Extra))
	for k, v := range event.Extra {
		if k != "run" {
			extra[k] = v
		}
	}
	writePairs(&b, extra)
	return b.String()
}

func formatEntity(ref logging.EntityRef) string {
	switch {
	case ref.ID == "":
		return string(ref.Kind)
	case ref.Kind == "":
		return ref.ID
	default:
		return string(ref.Kind) + ":" + ref.ID
	}
}

// payloadFields turns a payload struct into its JSON field map. Payloads
// that do not encode to an object are kept whole under "payload".
func payloadFields(payload any) map[string]any {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return map[string]any{"payload": fmt.Sprint(payload)}
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return map[string]any{"payload": string(data)}
	}
	return fields
}

func writePairs(b *strings.Builder, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := fields[k].(type) {
		case string:
			fmt.Fprintf(b, " %s=%q", k, v)
		default:
			fmt.Fprintf(b, " %s=%v", k, v)
		}
	}
}
