package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/funnyzak/reqwatch/internal/logger"
	"github.com/funnyzak/reqwatch/pkg/capture"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsWriteWait  = 5 * time.Second
	// wsReadLimit bounds one frame; an all event carries the whole store.
	wsReadLimit = 64 << 20
)

// WebSocketSource reads push events from a websocket endpoint. Each text
// frame is a JSON object {"event": name, "data": payload}.
type WebSocketSource struct {
	url    string
	dialer *websocket.Dialer
	header http.Header
	log    logger.Logger
}

// NewWebSocketSource creates a source for url, which may use the http or ws
// scheme. A nil dialer uses websocket.DefaultDialer.
func NewWebSocketSource(url string, dialer *websocket.Dialer, log logger.Logger) *WebSocketSource {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &WebSocketSource{url: toWebSocketURL(url), dialer: dialer, header: http.Header{}, log: log}
}

// Name implements Source
func (w *WebSocketSource) Name() string { return "websocket" }

// Stream implements Source.
func (w *WebSocketSource) Stream(ctx context.Context, out chan<- capture.Event) error {
	conn, resp, err := w.dialer.DialContext(ctx, w.url, w.header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w", w.url, &StatusError{Endpoint: "ws", Code: resp.StatusCode})
		}
		return fmt.Errorf("dial %s: %w", w.url, err)
	}
	defer conn.Close()
	w.log.Info("push stream connected", "transport", w.Name(), "url", w.url)

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go w.keepAlive(ctx, conn, done)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var ev capture.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			w.log.Warn("dropping undecodable websocket frame", "error", err, "size", len(payload))
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// keepAlive pings the server and closes the connection once ctx ends so the
// blocked reader returns.
func (w *WebSocketSource) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				w.log.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}

func toWebSocketURL(url string) string {
	switch {
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://")
	default:
		return url
	}
}
