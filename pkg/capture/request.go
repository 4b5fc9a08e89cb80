package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ID is the opaque identifier of a captured request.
// It decodes from either a JSON string or a JSON integer.
type ID string

// UnmarshalJSON accepts "abc", 42 and rejects everything else.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or an integer: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("id must be a string or an integer, got %s", n)
	}
	*id = ID(n.String())
	return nil
}

// String implements fmt.Stringer
func (id ID) String() string { return string(id) }

// Request represents one captured inbound HTTP request as delivered by the
// capture server. Records are treated as immutable once received.
type Request struct {
	ID        ID     `json:"id"`
	Timestamp string `json:"timestamp"`
	Method    string `json:"method"`
	URL       string `json:"url"`
	Body      string `json:"body"`
	// Headers holds a JSON-encoded object of header name to value.
	// Empty when the server does not send headers.
	Headers string `json:"headers,omitempty"`
}

// Header is a single decoded header entry.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HasHeaders reports whether the record carries a headers payload.
func (r Request) HasHeaders() bool {
	return strings.TrimSpace(r.Headers) != ""
}

// Time parses the ISO-8601 timestamp. The zero time is returned when the
// timestamp cannot be parsed.
func (r Request) Time() time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, r.Timestamp); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// DecodeHeaders decodes the headers payload. Values may be plain strings or
// lists of strings; lists are joined with ", ". The result is sorted by name.
func (r Request) DecodeHeaders() ([]Header, error) {
	if !r.HasHeaders() {
		return nil, nil
	}

	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal([]byte(r.Headers), &raw); err != nil {
		return nil, fmt.Errorf("decode headers: %w", err)
	}

	headers := make([]Header, 0, len(raw))
	for name, value := range raw {
		text, err := headerValue(value)
		if err != nil {
			return nil, fmt.Errorf("decode header %s: %w", name, err)
		}
		headers = append(headers, Header{Name: name, Value: text})
	}
	sort.Slice(headers, func(i, j int) bool { return headers[i].Name < headers[j].Name })
	return headers, nil
}

// HeaderValue looks up a header by case-insensitive name.
func (r Request) HeaderValue(name string) string {
	headers, err := r.DecodeHeaders()
	if err != nil {
		return ""
	}
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func headerValue(value json.RawMessage) (string, error) {
	var single string
	if err := json.Unmarshal(value, &single); err == nil {
		return single, nil
	}
	var list []string
	if err := json.Unmarshal(value, &list); err != nil {
		return "", err
	}
	return strings.Join(list, ", "), nil
}

// EncodeHeaders builds the headers payload from a name to value mapping.
func EncodeHeaders(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}
	payload, err := json.Marshal(headers)
	if err != nil {
		return ""
	}
	return string(payload)
}
