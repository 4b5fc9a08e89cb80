package watch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/funnyzak/reqwatch/internal/logger"
	"github.com/funnyzak/reqwatch/pkg/capture"
)

// SSESource reads push events from a text/event-stream endpoint.
type SSESource struct {
	url    string
	client *http.Client
	log    logger.Logger
	retry  atomic.Int64
}

// NewSSESource creates a source for url. The client must not carry an overall
// timeout since the stream stays open; nil uses a fresh client.
func NewSSESource(url string, client *http.Client, log logger.Logger) *SSESource {
	if client == nil {
		client = &http.Client{}
	}
	return &SSESource{url: url, client: client, log: log}
}

// Name implements Source
func (s *SSESource) Name() string { return "sse" }

// RetryAfter returns the reconnect delay announced by the server, or zero.
func (s *SSESource) RetryAfter() time.Duration {
	return time.Duration(s.retry.Load())
}

// Stream implements Source. It returns when the server closes the stream,
// the connection fails, or ctx ends.
func (s *SSESource) Stream(ctx context.Context, out chan<- capture.Event) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Endpoint: "events", Code: resp.StatusCode}
	}
	s.log.Info("push stream connected", "transport", s.Name(), "url", s.url)

	return readSSE(resp.Body, func(f sseFrame) error {
		if f.retry > 0 {
			s.retry.Store(int64(f.retry))
		}
		if !f.dispatch {
			return nil
		}
		ev := capture.Event{Name: capture.EventName(f.event), Data: []byte(f.data)}
		select {
		case out <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

type sseFrame struct {
	event    string
	data     string
	retry    time.Duration
	dispatch bool
}

// lineReader splits a stream on CRLF, LF or a bare CR. A CR ends its line
// right away so a live stream never waits on the next byte.
type lineReader struct {
	br      *bufio.Reader
	afterCR bool
	line    strings.Builder
}

func (lr *lineReader) next() (string, error) {
	lr.line.Reset()
	for {
		b, err := lr.br.ReadByte()
		if err != nil {
			return "", err
		}
		if lr.afterCR {
			lr.afterCR = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case '\r':
			lr.afterCR = true
			return lr.line.String(), nil
		case '\n':
			return lr.line.String(), nil
		}
		lr.line.WriteByte(b)
	}
}

// readSSE parses an event stream until r ends. Each blank line ends an
// event; events without data lines are not dispatched and an event cut off
// by the end of the stream is discarded. Comment lines start with ':'.
func readSSE(r io.Reader, emit func(sseFrame) error) error {
	lr := &lineReader{br: bufio.NewReader(r)}
	var (
		event   string
		data    strings.Builder
		hasData bool
	)

	for {
		line, err := lr.next()
		if err != nil {
			return err
		}

		if line == "" {
			if hasData {
				frame := sseFrame{event: event, data: strings.TrimSuffix(data.String(), "\n"), dispatch: true}
				if err := emit(frame); err != nil {
					return err
				}
			}
			event = ""
			data.Reset()
			hasData = false
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			event = value
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "retry":
			if ms, convErr := strconv.Atoi(value); convErr == nil && ms > 0 {
				if err := emit(sseFrame{retry: time.Duration(ms) * time.Millisecond}); err != nil {
					return err
				}
			}
		}
	}
}
