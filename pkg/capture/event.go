package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventName identifies a push event type.
type EventName string

const (
	// EventAll carries the full list of captured requests.
	EventAll EventName = "all"
	// EventNew carries a single newly captured request.
	EventNew EventName = "new"
	// EventClear carries the list left after a purge, ordinarily empty.
	EventClear EventName = "clear"
	// EventNotify is an unnamed notification without a usable payload.
	EventNotify EventName = ""
)

// Event is one message received on the push channel.
type Event struct {
	Name EventName       `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// String implements fmt.Stringer
func (e Event) String() string {
	if e.Name == EventNotify {
		return "notify"
	}
	return string(e.Name)
}

// NewListEvent builds an all or clear event for the given requests.
func NewListEvent(name EventName, requests []Request) (Event, error) {
	if requests == nil {
		requests = []Request{}
	}
	data, err := json.Marshal(requests)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return Event{Name: name, Data: data}, nil
}

// NewRequestEvent builds a new event for a single request.
func NewRequestEvent(req Request) (Event, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Event{}, fmt.Errorf("marshal new payload: %w", err)
	}
	return Event{Name: EventNew, Data: data}, nil
}

// DecodeList decodes a list payload. A JSON null decodes to an empty list.
func DecodeList(data []byte) ([]Request, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty list payload")
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return []Request{}, nil
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("list payload must be a JSON array")
	}
	var requests []Request
	if err := json.Unmarshal(trimmed, &requests); err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []Request{}
	}
	return requests, nil
}

// DecodeRequest decodes a single request payload.
func DecodeRequest(data []byte) (Request, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Request{}, fmt.Errorf("request payload must be a JSON object")
	}
	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return Request{}, err
	}
	return req, nil
}
