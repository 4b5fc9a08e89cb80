package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/funnyzak/reqwatch/internal/logger"
	"github.com/funnyzak/reqwatch/pkg/capture"
	"github.com/google/uuid"
)

// Mode selects how the session learns about server state.
type Mode string

const (
	// ModePush applies event payloads directly.
	ModePush Mode = "push"
	// ModePoll treats every push event as a notification and pulls a fresh
	// snapshot for the active filter.
	ModePoll Mode = "poll"
)

// Sink receives every rendered table.
type Sink interface {
	Render(Table)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Table)

// Render implements Sink
func (f SinkFunc) Render(t Table) { f(t) }

// Backend performs the outbound requests behind effects.
type Backend interface {
	Fetch(ctx context.Context, url string) ([]capture.Request, error)
	Clear(ctx context.Context) error
}

// Prompter asks the user to confirm a clear. It is only used by Run; hosts
// with an asynchronous dialog answer with a ConfirmClear gesture instead.
type Prompter interface {
	Confirm(ctx context.Context) (bool, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context) (bool, error)

// Confirm implements Prompter
func (f PrompterFunc) Confirm(ctx context.Context) (bool, error) { return f(ctx) }

// SessionConfig configures a Session.
type SessionConfig struct {
	Mode          Mode
	Render        Options
	InitialFilter string
	// WarnThreshold logs a warning once the store passes this size (0 = never).
	WarnThreshold int
}

// Session owns the store, the filter and the last rendered table for one
// viewer. Its methods must be called from a single goroutine: either Run, or
// the host's own event loop.
type Session struct {
	id         string
	mode       Mode
	opts       Options
	store      *Store
	filter     *Filter
	reconciler *Reconciler
	dispatcher *Dispatcher
	sink       Sink
	log        logger.Logger

	table         Table
	warnThreshold int
	warned        bool
}

// NewSession creates a session with an empty store. sink may be nil.
func NewSession(cfg SessionConfig, sink Sink, log logger.Logger) *Session {
	mode := cfg.Mode
	if mode == "" {
		mode = ModePush
	}

	store := NewStore()
	filter := &Filter{}
	if cfg.InitialFilter != "" {
		filter.Set(cfg.InitialFilter)
	}

	id := uuid.NewString()
	s := &Session{
		id:            id,
		mode:          mode,
		opts:          cfg.Render,
		store:         store,
		filter:        filter,
		reconciler:    NewReconciler(store, filter),
		dispatcher:    NewDispatcher(filter, mode == ModePoll),
		sink:          sink,
		log:           log.With("session", id),
		warnThreshold: cfg.WarnThreshold,
	}
	s.table = Render(nil, *filter, s.opts)
	return s
}

// ID returns the session identifier used in log lines.
func (s *Session) ID() string { return s.id }

// Mode returns the integration mode.
func (s *Session) Mode() Mode { return s.mode }

// Table returns the last rendered table.
func (s *Session) Table() Table { return s.table }

// Filter returns the active filter.
func (s *Session) Filter() Filter { return *s.filter }

// Len returns the store size, which may be ahead of the rendered table.
func (s *Session) Len() int { return s.store.Len() }

// AwaitingConfirm reports whether a clear prompt is open.
func (s *Session) AwaitingConfirm() bool { return s.dispatcher.AwaitingConfirm() }

// Start renders the initial table and returns the effects needed before the
// first event arrives. In poll mode that is a pull of the active filter.
func (s *Session) Start() []Effect {
	s.render()
	if s.mode == ModePoll {
		return []Effect{s.fetchEffect()}
	}
	return nil
}

// HandleEvent applies one push event. Malformed events are logged and dropped
// with the prior state intact. The returned effects must be executed by the
// host.
func (s *Session) HandleEvent(ev capture.Event) []Effect {
	if s.mode == ModePoll {
		s.log.Debug("notification received, pulling snapshot", "event", ev.String())
		return []Effect{s.fetchEffect()}
	}
	if ev.Name == capture.EventNotify {
		s.log.Debug("ignoring notification without payload")
		return nil
	}

	render, err := s.reconciler.Apply(ev)
	if err != nil {
		s.logDropped(ev, err)
		return nil
	}
	s.checkGrowth()
	if render {
		s.render()
	} else {
		s.log.Debug("stored request outside active filter", "filter", s.filter.String(), "total", s.store.Len())
	}
	return nil
}

// ApplySnapshot replaces the store with a pulled snapshot and renders.
func (s *Session) ApplySnapshot(requests []capture.Request) error {
	if err := s.store.ReplaceAll(requests); err != nil {
		s.log.Warn("dropping pulled snapshot", "error", err)
		return err
	}
	s.checkGrowth()
	s.render()
	return nil
}

// HandleGesture dispatches one user gesture and renders when the filter
// changed.
func (s *Session) HandleGesture(g Gesture) (Outcome, error) {
	out, err := s.dispatcher.Dispatch(g)
	if err != nil {
		s.log.Warn("ignoring gesture", "gesture", g.Kind.String(), "error", err)
		return out, err
	}
	if out.Render {
		s.render()
	}
	return out, nil
}

// Execute performs one effect against backend.
func (s *Session) Execute(ctx context.Context, backend Backend, eff Effect) error {
	switch eff.Kind {
	case EffectFetch:
		list, err := backend.Fetch(ctx, eff.URL)
		if err != nil {
			return fmt.Errorf("fetch snapshot: %w", err)
		}
		return s.ApplySnapshot(list)
	case EffectClear:
		if err := backend.Clear(ctx); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		s.log.Info("clear requested, waiting for server confirmation")
		return nil
	default:
		return fmt.Errorf("unsupported effect %s", eff.Kind)
	}
}

// Run serialises events and gestures on one loop until ctx ends or both
// channels are closed. A closed event channel means the transport is gone;
// the view then stalls while gestures keep working. Effects run inline, so
// the next item is only taken once the previous one is fully applied.
func (s *Session) Run(ctx context.Context, events <-chan capture.Event, gestures <-chan Gesture, backend Backend, prompter Prompter) error {
	s.runEffects(ctx, backend, prompter, s.Start())

	for events != nil || gestures != nil {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				s.log.Warn("push channel closed, view will no longer update")
				events = nil
				continue
			}
			s.runEffects(ctx, backend, prompter, s.HandleEvent(ev))
		case g, ok := <-gestures:
			if !ok {
				gestures = nil
				continue
			}
			s.handleGestureSync(ctx, backend, prompter, g)
		}
	}
	return nil
}

func (s *Session) handleGestureSync(ctx context.Context, backend Backend, prompter Prompter, g Gesture) {
	out, err := s.HandleGesture(g)
	if err != nil {
		return
	}
	if out.Prompt {
		accepted := true
		if prompter != nil {
			accepted, err = prompter.Confirm(ctx)
			if err != nil {
				s.log.Warn("confirmation failed, treating as declined", "error", err)
				accepted = false
			}
		}
		out, _ = s.HandleGesture(ConfirmClear(accepted))
	}
	s.runEffects(ctx, backend, prompter, out.Effects)
}

func (s *Session) runEffects(ctx context.Context, backend Backend, prompter Prompter, effects []Effect) {
	for _, eff := range effects {
		if backend == nil {
			s.log.Warn("no backend for effect", "effect", eff.Kind.String())
			continue
		}
		if err := s.Execute(ctx, backend, eff); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.log.Error("effect failed", "effect", eff.Kind.String(), "error", err)
		}
	}
}

func (s *Session) fetchEffect() Effect {
	url, _ := s.filter.Value()
	return Effect{Kind: EffectFetch, URL: url}
}

func (s *Session) render() {
	s.table = Render(s.store.Snapshot(), *s.filter, s.opts)
	if s.sink != nil {
		s.sink.Render(s.table)
	}
}

func (s *Session) checkGrowth() {
	if s.warnThreshold <= 0 || s.warned || s.store.Len() < s.warnThreshold {
		return
	}
	s.warned = true
	s.log.Warn("request store is large and is never trimmed", "total", s.store.Len(), "threshold", s.warnThreshold)
}

func (s *Session) logDropped(ev capture.Event, err error) {
	switch {
	case errors.Is(err, ErrDuplicateID):
		s.log.Debug("ignoring duplicate request", "event", ev.String(), "error", err)
	case errors.Is(err, ErrUnknownEvent):
		s.log.Warn("dropping unknown event", "event", ev.String(), "error", err)
	default:
		s.log.Warn("dropping malformed event", "event", ev.String(), "error", err)
	}
}
