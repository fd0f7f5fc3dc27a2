// Package session keeps conversation state between turns.
package session

import (
	"context"
	"time"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const DefaultTimeout = 30 * time.Minute

// Store persists conversation state by session id. Get returns
// types.ErrSessionNotFound for unknown or expired sessions.
type Store interface {
	Get(ctx context.Context, sessionID string) (*types.ConversationState, error)
	Put(ctx context.Context, state *types.ConversationState) error
	Delete(ctx context.Context, sessionID string) error
	Backend() string
}
