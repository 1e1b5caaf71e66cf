// Package storage defines the rule store interface and its implementations.
package storage

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when the store has no backing location.
var ErrNotConfigured = errors.New("rule store is not configured")

// Error reports a failed rule store operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Storage is the interface for all rule persistence operations.
// Implementations must be safe for concurrent use.
type Storage interface {
	AddRedirect(ctx context.Context, guildID, channelID uint64) error
	IsRedirect(ctx context.Context, channelID uint64) (bool, error)
	RemoveRedirect(ctx context.Context, guildID, channelID uint64) error
	ListRedirects(ctx context.Context, guildID uint64) ([]uint64, error)

	// channelID may be model.AllChannels.
	AddIgnore(ctx context.Context, userID, guildID, channelID uint64) error
	IsIgnored(ctx context.Context, userID, guildID, channelID uint64) (bool, error)
	HasIgnore(ctx context.Context, userID, guildID, channelID uint64) (bool, error)
	RemoveIgnore(ctx context.Context, userID, guildID, channelID uint64) error
	ListIgnoredChannels(ctx context.Context, userID, guildID uint64) ([]uint64, error)

	AddBlock(ctx context.Context, userID, guildID, blockedUserID uint64) error
	IsBlocked(ctx context.Context, userID, guildID, blockedUserID uint64) (bool, error)
	RemoveBlock(ctx context.Context, userID, guildID, blockedUserID uint64) error
	ListBlocked(ctx context.Context, userID, guildID uint64) ([]uint64, error)

	Close() error
}
