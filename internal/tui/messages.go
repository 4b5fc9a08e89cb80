package tui

import (
	"github.com/funnyzak/reqwatch/pkg/capture"
)

// PushMsg carries one push event into the update loop.
type PushMsg struct {
	Event capture.Event
}

// StreamEndedMsg reports that the push connection dropped. The transport
// reconnects on its own; the next event marks the view live again.
type StreamEndedMsg struct {
	Err error
}

type fetchResultMsg struct {
	seq      uint64
	url      string
	requests []capture.Request
	err      error
}

type clearResultMsg struct {
	err error
}

type clearFlashMsg struct {
	seq int
}
