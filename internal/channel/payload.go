package channel

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Kind identifies a payload variant.
type Kind int

const (
	KindHandshake Kind = iota
	KindScreenshot
	KindError
	KindEvent
	KindUnclassified
)

func (k Kind) String() string {
	switch k {
	case KindHandshake:
		return "ready"
	case KindScreenshot:
		return "screenshot"
	case KindError:
		return "error"
	case KindEvent:
		return "event"
	default:
		return "unclassified"
	}
}

// Payload is a decoded inbound message.
type Payload interface {
	Kind() Kind
}

// Handshake signals that the frame finished initializing.
type Handshake struct{}

// Screenshot carries screenshot data produced by the frame.
type Screenshot struct {
	Data string
	Auto bool // captured automatically rather than on request
}

// ErrorReport describes an execution failure inside the frame.
type ErrorReport struct {
	Error     string
	Traceback string
	Line      int // original source line, 0 if unknown
}

// Event is an opaque UI event relayed by the frame.
type Event struct {
	Type   string
	Which  int
	Fields map[string]any
}

// Unclassified holds any well-formed payload that matched no variant.
type Unclassified struct {
	Value any
}

func (Handshake) Kind() Kind    { return KindHandshake }
func (Screenshot) Kind() Kind   { return KindScreenshot }
func (ErrorReport) Kind() Kind  { return KindError }
func (Event) Kind() Kind        { return KindEvent }
func (Unclassified) Kind() Kind { return KindUnclassified }

// Decode parses data and classifies it. Handshake detection is left to the
// Channel since it depends on readiness.
func Decode(data []byte) ([]Payload, error) {
	v, err := parse(data)
	if err != nil {
		return nil, err
	}
	return classify(v), nil
}

func parse(data []byte) (any, error) {
	var v any
	if err := sonic.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	return v, nil
}

// isHandshake reports whether v is exactly {"ready": true}.
func isHandshake(v any) bool {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	ready, ok := m["ready"].(bool)
	return ok && ready
}

// classify returns one payload per truthy field, in screenshot, error,
// event order, or a single Unclassified when none is set.
func classify(v any) []Payload {
	m, ok := v.(map[string]any)
	if !ok {
		return []Payload{Unclassified{Value: v}}
	}

	var out []Payload
	if truthy(m["screenshot"]) {
		out = append(out, Screenshot{
			Data: stringify(m["screenshot"]),
			Auto: truthy(m["autoscreenshot"]),
		})
	}
	if truthy(m["error"]) {
		report := ErrorReport{Error: stringify(m["error"])}
		if tb, ok := m["traceback"]; ok && tb != nil {
			report.Traceback = stringify(tb)
		}
		out = append(out, report)
	}
	if truthy(m["event"]) {
		out = append(out, decodeEvent(m["event"]))
	}
	if len(out) == 0 {
		return []Payload{Unclassified{Value: v}}
	}
	return out
}

func decodeEvent(v any) Event {
	fields, ok := v.(map[string]any)
	if !ok {
		return Event{Type: stringify(v)}
	}
	ev := Event{Fields: fields}
	if t, ok := fields["type"].(string); ok {
		ev.Type = t
	}
	if w, ok := fields["which"].(float64); ok {
		ev.Which = int(w)
	}
	return ev
}

// truthy mirrors the frame's notion of truthiness for decoded JSON values.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	s, err := sonic.MarshalString(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
