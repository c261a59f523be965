package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type envelope struct {
	Type Type `json:"type"`
}

// Marshal encodes a request or event as a single JSON object whose first
// field is "type".
func Marshal(msg any) ([]byte, error) {
	var t Type
	switch m := msg.(type) {
	case Request:
		t = m.RequestType()
	case Event:
		t = m.EventType()
	default:
		return nil, fmt.Errorf("protocol: unsupported message %T", msg)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", t, err)
	}

	head, err := json.Marshal(envelope{Type: t})
	if err != nil {
		return nil, err
	}
	if bytes.Equal(body, []byte("{}")) {
		return head, nil
	}
	// Splice the fields of body after the type field of head.
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

// UnmarshalRequest decodes one request line.
func UnmarshalRequest(data []byte) (Request, error) {
	t, err := peekType(data)
	if err != nil {
		return nil, err
	}
	switch t {
	case TypeInit:
		return Init{}, nil
	case TypeLoadScript:
		return decodeInto[LoadScript](t, data)
	case TypeRun:
		return decodeInto[Run](t, data)
	case TypeStdinResponse:
		return decodeInto[StdinResponse](t, data)
	}
	return nil, fmt.Errorf("protocol: unknown request type %q", t)
}

// UnmarshalEvent decodes one event line.
func UnmarshalEvent(data []byte) (Event, error) {
	t, err := peekType(data)
	if err != nil {
		return nil, err
	}
	switch t {
	case TypeStatus:
		return decodeInto[Status](t, data)
	case TypeInitialized:
		return Initialized{}, nil
	case TypeScriptLoaded:
		return decodeInto[ScriptLoaded](t, data)
	case TypeError:
		return decodeInto[Error](t, data)
	case TypeOutput:
		return decodeInto[Output](t, data)
	case TypeStdinRequest:
		return decodeInto[StdinRequest](t, data)
	case TypeComplete:
		return decodeInto[Complete](t, data)
	}
	return nil, fmt.Errorf("protocol: unknown event type %q", t)
}

func peekType(data []byte) (Type, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("protocol: malformed message: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("protocol: message has no type")
	}
	return env.Type, nil
}

func decodeInto[T any](t Type, data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("protocol: decode %s: %w", t, err)
	}
	return v, nil
}
