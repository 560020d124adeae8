package sessionstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store loads, mutates and saves one kind of state. Every successful Apply
// saves the new state and refreshes its TTL.
type Store[S any] struct {
	storage Storage
	kind    string
	ttl     time.Duration
	initial func() S
}

func NewStore[S any](storage Storage, kind string, ttl time.Duration, initial func() S) *Store[S] {
	return &Store[S]{storage: storage, kind: kind, ttl: ttl, initial: initial}
}

// Load returns the stored state or the initial state when none exists.
// Corrupt payloads are treated as missing.
func (s *Store[S]) Load(ctx context.Context, sessionID string) (S, error) {
	if err := validSessionID(sessionID); err != nil {
		var zero S
		return zero, err
	}
	raw, err := s.storage.Load(ctx, s.kind, sessionID)
	if errors.Is(err, ErrNotFound) {
		return s.initial(), nil
	}
	if err != nil {
		var zero S
		return zero, fmt.Errorf("load %s state: %w", s.kind, err)
	}
	state := s.initial()
	if err := json.Unmarshal(raw, &state); err != nil {
		return s.initial(), nil
	}
	return state, nil
}

func (s *Store[S]) Save(ctx context.Context, sessionID string, state S) error {
	if err := validSessionID(sessionID); err != nil {
		return err
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode %s state: %w", s.kind, err)
	}
	if err := s.storage.Save(ctx, s.kind, sessionID, raw, s.ttl); err != nil {
		return fmt.Errorf("save %s state: %w", s.kind, err)
	}
	return nil
}

// Apply runs fn against the current state. When fn fails nothing is saved and
// the previous state is returned with the error.
func (s *Store[S]) Apply(ctx context.Context, sessionID string, fn func(S) (S, error)) (S, error) {
	current, err := s.Load(ctx, sessionID)
	if err != nil {
		return current, err
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	if err := s.Save(ctx, sessionID, next); err != nil {
		return current, err
	}
	return next, nil
}

// Reset removes the stored state and returns the initial state.
func (s *Store[S]) Reset(ctx context.Context, sessionID string) (S, error) {
	if err := validSessionID(sessionID); err != nil {
		var zero S
		return zero, err
	}
	if err := s.storage.Delete(ctx, s.kind, sessionID); err != nil {
		return s.initial(), fmt.Errorf("reset %s state: %w", s.kind, err)
	}
	return s.initial(), nil
}

// ErrInvalidSessionID is returned for empty or oversized session ids.
var ErrInvalidSessionID = errors.New("invalid session id")

func validSessionID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > 128 || strings.ContainsAny(id, ": \t\n") {
		return ErrInvalidSessionID
	}
	return nil
}
