package view

import "fmt"

// GestureKind identifies a user gesture.
type GestureKind int

const (
	// GestureClickURL activates the URL cell of a row.
	GestureClickURL GestureKind = iota + 1
	// GestureClickHeader activates the URL column header.
	GestureClickHeader
	// GestureClickClear activates the clear control.
	GestureClickClear
	// GestureConfirmClear answers the clear confirmation prompt.
	GestureConfirmClear
)

var gestureNames = map[GestureKind]string{
	GestureClickURL:     "click_url",
	GestureClickHeader:  "click_header",
	GestureClickClear:   "click_clear",
	GestureConfirmClear: "confirm_clear",
}

// String implements fmt.Stringer
func (k GestureKind) String() string {
	if name, ok := gestureNames[k]; ok {
		return name
	}
	return fmt.Sprintf("gesture(%d)", int(k))
}

// Gesture is one user action.
type Gesture struct {
	Kind     GestureKind
	URL      string
	Accepted bool
}

// ClickURL builds a URL cell gesture for a row with url.
func ClickURL(url string) Gesture { return Gesture{Kind: GestureClickURL, URL: url} }

// ClickHeader builds a URL header gesture.
func ClickHeader() Gesture { return Gesture{Kind: GestureClickHeader} }

// ClickClear builds a clear control gesture.
func ClickClear() Gesture { return Gesture{Kind: GestureClickClear} }

// ConfirmClear builds the answer to the clear prompt.
func ConfirmClear(accepted bool) Gesture {
	return Gesture{Kind: GestureConfirmClear, Accepted: accepted}
}

// EffectKind identifies an outbound request the host must perform.
type EffectKind int

const (
	// EffectFetch pulls a snapshot for the effect URL ("" for all requests).
	EffectFetch EffectKind = iota + 1
	// EffectClear asks the server to purge all captured requests.
	EffectClear
)

// String implements fmt.Stringer
func (k EffectKind) String() string {
	switch k {
	case EffectFetch:
		return "fetch"
	case EffectClear:
		return "clear"
	default:
		return fmt.Sprintf("effect(%d)", int(k))
	}
}

// Effect is an outbound request produced by a gesture or event.
type Effect struct {
	Kind EffectKind
	URL  string
}

// Outcome tells the caller what a gesture requires.
type Outcome struct {
	Render  bool
	Prompt  bool
	Effects []Effect
}

type gestureHandler func(d *Dispatcher, g Gesture) Outcome

// dispatchTable maps every gesture kind to its handler.
var dispatchTable = map[GestureKind]gestureHandler{
	GestureClickURL:     (*Dispatcher).clickURL,
	GestureClickHeader:  (*Dispatcher).clickHeader,
	GestureClickClear:   (*Dispatcher).clickClear,
	GestureConfirmClear: (*Dispatcher).confirmClear,
}

// Dispatcher turns gestures into filter changes and outbound effects.
// A clear runs through Idle -> AwaitingConfirm -> Idle; the store is never
// touched here, the purge only shows once the server pushes a clear event.
type Dispatcher struct {
	filter   *Filter
	pull     bool
	awaiting bool
}

// NewDispatcher creates a dispatcher. With pull set, filter changes also ask
// for a fresh snapshot from the pull endpoint.
func NewDispatcher(filter *Filter, pull bool) *Dispatcher {
	return &Dispatcher{filter: filter, pull: pull}
}

// Dispatch handles one gesture.
func (d *Dispatcher) Dispatch(g Gesture) (Outcome, error) {
	handler, ok := dispatchTable[g.Kind]
	if !ok {
		return Outcome{}, fmt.Errorf("%s: %w", g.Kind, ErrUnknownGesture)
	}
	return handler(d, g), nil
}

// AwaitingConfirm reports whether a clear prompt is open.
func (d *Dispatcher) AwaitingConfirm() bool {
	return d.awaiting
}

func (d *Dispatcher) clickURL(g Gesture) Outcome {
	if d.filter.Active() {
		return Outcome{}
	}
	d.filter.Set(g.URL)
	return d.refreshed(g.URL)
}

func (d *Dispatcher) clickHeader(Gesture) Outcome {
	if !d.filter.Active() {
		return Outcome{}
	}
	d.filter.Clear()
	return d.refreshed("")
}

func (d *Dispatcher) refreshed(url string) Outcome {
	out := Outcome{Render: true}
	if d.pull {
		out.Effects = []Effect{{Kind: EffectFetch, URL: url}}
	}
	return out
}

func (d *Dispatcher) clickClear(Gesture) Outcome {
	d.awaiting = true
	return Outcome{Prompt: true}
}

func (d *Dispatcher) confirmClear(g Gesture) Outcome {
	if !d.awaiting {
		return Outcome{}
	}
	d.awaiting = false
	if !g.Accepted {
		return Outcome{}
	}
	return Outcome{Effects: []Effect{{Kind: EffectClear}}}
}
