package state

import (
	"context"
	"errors"
)

var (
	ErrStateNotFound  = errors.New("session state not found")
	ErrNilSession     = errors.New("session is nil")
	ErrInvalidSession = errors.New("session id is empty")
)

// Store keeps session snapshots so an evicted session can be rehydrated.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, sessionID string) error
}
