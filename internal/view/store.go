package view

import (
	"fmt"

	"github.com/funnyzak/reqwatch/pkg/capture"
)

// Store is the ordered client-side collection of captured requests, unique by
// id. Order is append order, which the server keeps chronological ascending.
// Store is not safe for concurrent use.
type Store struct {
	requests []capture.Request
	index    map[capture.ID]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{index: make(map[capture.ID]struct{})}
}

// ReplaceAll swaps the whole contents for requests, keeping their order.
// The store is left untouched when the list is rejected.
func (s *Store) ReplaceAll(requests []capture.Request) error {
	index := make(map[capture.ID]struct{}, len(requests))
	for i, req := range requests {
		if req.ID == "" {
			return fmt.Errorf("request at position %d has no id: %w", i, ErrMalformedPayload)
		}
		if _, exists := index[req.ID]; exists {
			return fmt.Errorf("request %s listed twice: %w", req.ID, ErrDuplicateID)
		}
		index[req.ID] = struct{}{}
	}

	replaced := make([]capture.Request, len(requests))
	copy(replaced, requests)
	s.requests = replaced
	s.index = index
	return nil
}

// Append adds one request at the end. An id collision leaves the store
// unchanged and returns ErrDuplicateID.
func (s *Store) Append(req capture.Request) error {
	if req.ID == "" {
		return fmt.Errorf("request has no id: %w", ErrMalformedPayload)
	}
	if _, exists := s.index[req.ID]; exists {
		return fmt.Errorf("request %s: %w", req.ID, ErrDuplicateID)
	}
	s.requests = append(s.requests, req)
	s.index[req.ID] = struct{}{}
	return nil
}

// Snapshot returns a copy of the contents in append order.
func (s *Store) Snapshot() []capture.Request {
	out := make([]capture.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Len returns the number of stored requests.
func (s *Store) Len() int {
	return len(s.requests)
}

// Contains reports whether a request with id is stored.
func (s *Store) Contains(id capture.ID) bool {
	_, ok := s.index[id]
	return ok
}
