package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/funnyzak/reqwatch/internal/watch"
	"github.com/funnyzak/reqwatch/pkg/capture"
)

// trackedSource reports dropped connections to the program.
type trackedSource struct {
	watch.Source
	send func(tea.Msg)
}

// Stream implements watch.Source
func (s trackedSource) Stream(ctx context.Context, out chan<- capture.Event) error {
	err := s.Source.Stream(ctx, out)
	if ctx.Err() == nil {
		s.send(StreamEndedMsg{Err: err})
	}
	return err
}

// RetryAfter forwards the server announced reconnect delay, if any.
func (s trackedSource) RetryAfter() time.Duration {
	if advisor, ok := s.Source.(interface{ RetryAfter() time.Duration }); ok {
		return advisor.RetryAfter()
	}
	return 0
}

// Run shows the full-screen viewer until the user quits or ctx ends. Push
// events reach the model through Program.Send, so the model's Update stays
// the only place the session is touched.
func Run(ctx context.Context, src watch.Source, delay time.Duration, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	events := make(chan capture.Event, 64)
	g.Go(func() error {
		return watch.Subscribe(gctx, trackedSource{Source: src, send: program.Send}, events, delay, opts.Log)
	})
	g.Go(func() error {
		for ev := range events {
			program.Send(PushMsg{Event: ev})
		}
		return nil
	})

	_, err := program.Run()
	cancel()
	if waitErr := g.Wait(); err == nil {
		err = waitErr
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
