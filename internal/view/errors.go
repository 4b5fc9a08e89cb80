package view

import "errors"

var (
	// ErrMalformedPayload marks an event whose payload could not be decoded or
	// violates the request schema.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrDuplicateID marks a request whose id is already present.
	ErrDuplicateID = errors.New("duplicate request id")
	// ErrUnknownEvent marks an event name the reconciler does not handle.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrUnknownGesture marks a gesture kind with no dispatch entry.
	ErrUnknownGesture = errors.New("unknown gesture")
)
