package view

import (
	"fmt"

	"github.com/funnyzak/reqwatch/pkg/capture"
)

// Reconciler applies push events to a Store and decides whether the view has
// to be rendered again.
type Reconciler struct {
	store  *Store
	filter *Filter
}

// NewReconciler binds a reconciler to the store it mutates and the filter that
// gates rendering.
func NewReconciler(store *Store, filter *Filter) *Reconciler {
	return &Reconciler{store: store, filter: filter}
}

// Apply processes one event. It reports whether a render is required. On error
// the store is left exactly as it was.
//
// A new request that does not match the active filter is stored without a
// render. The table then lags the store until the next compatible event or
// filter change; the viewer accepts that staleness instead of redrawing rows
// the user cannot see.
func (r *Reconciler) Apply(ev capture.Event) (bool, error) {
	switch ev.Name {
	case capture.EventAll, capture.EventClear:
		list, err := capture.DecodeList(ev.Data)
		if err != nil {
			return false, fmt.Errorf("%s event: %w: %v", ev, ErrMalformedPayload, err)
		}
		if err := r.store.ReplaceAll(list); err != nil {
			return false, fmt.Errorf("%s event: %w", ev, err)
		}
		return true, nil

	case capture.EventNew:
		req, err := capture.DecodeRequest(ev.Data)
		if err != nil {
			return false, fmt.Errorf("new event: %w: %v", ErrMalformedPayload, err)
		}
		if err := r.store.Append(req); err != nil {
			return false, fmt.Errorf("new event: %w", err)
		}
		return r.filter.Matches(req.URL), nil

	default:
		return false, fmt.Errorf("event %q: %w", ev.Name, ErrUnknownEvent)
	}
}
