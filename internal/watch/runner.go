package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/funnyzak/reqwatch/internal/config"
	"github.com/funnyzak/reqwatch/internal/logger"
	"github.com/funnyzak/reqwatch/internal/view"
	"github.com/funnyzak/reqwatch/pkg/capture"
)

// DefaultReconnectDelay is used until the server announces its own.
const DefaultReconnectDelay = 3 * time.Second

// Source delivers push events over one connection.
type Source interface {
	Name() string
	// Stream blocks until the connection ends, sending every event to out.
	Stream(ctx context.Context, out chan<- capture.Event) error
}

type retryAdvisor interface {
	RetryAfter() time.Duration
}

// NewSource builds the source selected by watch.transport.
func NewSource(server config.ServerConfig, transport string, log logger.Logger) (Source, error) {
	switch transport {
	case config.TransportSSE:
		return NewSSESource(server.Endpoint(server.EventsPath), nil, log), nil
	case config.TransportWebSocket:
		return NewWebSocketSource(server.Endpoint(server.WSPath), nil, log), nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", transport)
	}
}

// Subscribe keeps src connected until ctx ends, forwarding events to out.
// Every reconnect is followed by the server's fresh all snapshot, so nothing
// is replayed locally. out is closed on return.
func Subscribe(ctx context.Context, src Source, out chan<- capture.Event, delay time.Duration, log logger.Logger) error {
	defer close(out)
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}

	for {
		err := src.Stream(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, io.EOF) || err == nil {
			log.Warn("push stream closed by server", "transport", src.Name())
		} else {
			log.Warn("push stream failed", "transport", src.Name(), "error", err)
		}

		wait := delay
		if advisor, ok := src.(retryAdvisor); ok && advisor.RetryAfter() > 0 {
			wait = advisor.RetryAfter()
		}
		log.Debug("reconnecting", "transport", src.Name(), "in", wait.String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Runner ties a push source and a session to one lifetime.
type Runner struct {
	Source   Source
	Session  *view.Session
	Backend  view.Backend
	Prompter view.Prompter
	Delay    time.Duration
	Log      logger.Logger
}

// Run subscribes to the source and drives the session until ctx ends or the
// gesture channel and the push source are both gone.
func (r *Runner) Run(ctx context.Context, gestures <-chan view.Gesture) error {
	g, ctx := errgroup.WithContext(ctx)
	events := make(chan capture.Event, 64)

	g.Go(func() error {
		return Subscribe(ctx, r.Source, events, r.Delay, r.Log)
	})
	g.Go(func() error {
		return r.Session.Run(ctx, events, gestures, r.Backend, r.Prompter)
	})

	return g.Wait()
}
