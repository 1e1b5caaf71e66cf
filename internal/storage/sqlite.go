package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"ping_relay/internal/model"
	"ping_relay/migrations"
)

// SQLite implements Storage backed by a SQLite database.
//
// The pool is capped at a single connection. Writes serialize on it and a
// ":memory:" database stays shared between calls.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	if dsn == "" {
		return nil, ErrNotConfigured
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// AddRedirect marks channelID as a redirect channel. Adding an existing
// rule is a no-op.
func (s *SQLite) AddRedirect(ctx context.Context, guildID, channelID uint64) error {
	return s.exec(ctx, "add redirect",
		`INSERT OR IGNORE INTO redirects (guild_id, channel_id) VALUES (?, ?)`,
		int64(guildID), int64(channelID),
	)
}

// IsRedirect reports whether any guild redirects channelID.
func (s *SQLite) IsRedirect(ctx context.Context, channelID uint64) (bool, error) {
	return s.exists(ctx, "check redirect",
		`SELECT EXISTS(SELECT 1 FROM redirects WHERE channel_id = ?)`,
		int64(channelID),
	)
}

// RemoveRedirect deletes the redirect rule for the channel.
func (s *SQLite) RemoveRedirect(ctx context.Context, guildID, channelID uint64) error {
	return s.exec(ctx, "remove redirect",
		`DELETE FROM redirects WHERE guild_id = ? AND channel_id = ?`,
		int64(guildID), int64(channelID),
	)
}

// ListRedirects returns the redirect channels of a guild in insertion order.
func (s *SQLite) ListRedirects(ctx context.Context, guildID uint64) ([]uint64, error) {
	return s.listIDs(ctx, "list redirects",
		`SELECT channel_id FROM redirects WHERE guild_id = ? ORDER BY rowid`,
		int64(guildID),
	)
}

// AddIgnore stores an ignore rule. Pass model.AllChannels to ignore the
// whole guild.
func (s *SQLite) AddIgnore(ctx context.Context, userID, guildID, channelID uint64) error {
	return s.exec(ctx, "add ignore",
		`INSERT OR IGNORE INTO ignored_users (user_id, guild_id, channel_id) VALUES (?, ?, ?)`,
		int64(userID), int64(guildID), int64(channelID),
	)
}

// IsIgnored reports whether the user suppressed notifications for the
// channel, either directly or through a guild-wide rule.
func (s *SQLite) IsIgnored(ctx context.Context, userID, guildID, channelID uint64) (bool, error) {
	return s.exists(ctx, "check ignore",
		`SELECT EXISTS(SELECT 1 FROM ignored_users
		  WHERE user_id = ? AND guild_id = ? AND channel_id IN (?, ?))`,
		int64(userID), int64(guildID), int64(channelID), int64(model.AllChannels),
	)
}

// HasIgnore reports whether exactly this rule exists, without falling back
// to the guild-wide rule.
func (s *SQLite) HasIgnore(ctx context.Context, userID, guildID, channelID uint64) (bool, error) {
	return s.exists(ctx, "check ignore rule",
		`SELECT EXISTS(SELECT 1 FROM ignored_users
		  WHERE user_id = ? AND guild_id = ? AND channel_id = ?)`,
		int64(userID), int64(guildID), int64(channelID),
	)
}

// RemoveIgnore deletes exactly the given rule; removing a channel rule
// leaves a guild-wide rule in place and vice versa.
func (s *SQLite) RemoveIgnore(ctx context.Context, userID, guildID, channelID uint64) error {
	return s.exec(ctx, "remove ignore",
		`DELETE FROM ignored_users WHERE user_id = ? AND guild_id = ? AND channel_id = ?`,
		int64(userID), int64(guildID), int64(channelID),
	)
}

// ListIgnoredChannels returns the ignored channels of a user in insertion
// order. A model.AllChannels entry stands for the guild-wide rule.
func (s *SQLite) ListIgnoredChannels(ctx context.Context, userID, guildID uint64) ([]uint64, error) {
	return s.listIDs(ctx, "list ignores",
		`SELECT channel_id FROM ignored_users WHERE user_id = ? AND guild_id = ? ORDER BY rowid`,
		int64(userID), int64(guildID),
	)
}

// AddBlock stops pings from blockedUserID reaching userID.
func (s *SQLite) AddBlock(ctx context.Context, userID, guildID, blockedUserID uint64) error {
	return s.exec(ctx, "add block",
		`INSERT OR IGNORE INTO blocked_users (user_id, guild_id, blocked_user_id) VALUES (?, ?, ?)`,
		int64(userID), int64(guildID), int64(blockedUserID),
	)
}

// IsBlocked reports whether userID blocked blockedUserID in the guild.
func (s *SQLite) IsBlocked(ctx context.Context, userID, guildID, blockedUserID uint64) (bool, error) {
	return s.exists(ctx, "check block",
		`SELECT EXISTS(SELECT 1 FROM blocked_users
		  WHERE user_id = ? AND guild_id = ? AND blocked_user_id = ?)`,
		int64(userID), int64(guildID), int64(blockedUserID),
	)
}

// RemoveBlock deletes a block rule.
func (s *SQLite) RemoveBlock(ctx context.Context, userID, guildID, blockedUserID uint64) error {
	return s.exec(ctx, "remove block",
		`DELETE FROM blocked_users WHERE user_id = ? AND guild_id = ? AND blocked_user_id = ?`,
		int64(userID), int64(guildID), int64(blockedUserID),
	)
}

// ListBlocked returns the users blocked by userID in insertion order.
func (s *SQLite) ListBlocked(ctx context.Context, userID, guildID uint64) ([]uint64, error) {
	return s.listIDs(ctx, "list blocks",
		`SELECT blocked_user_id FROM blocked_users WHERE user_id = ? AND guild_id = ? ORDER BY rowid`,
		int64(userID), int64(guildID),
	)
}

func (s *SQLite) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return &Error{Op: op, Err: err}
	}
	return nil
}

func (s *SQLite) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, &Error{Op: op, Err: err}
	}
	return found, nil
}

func (s *SQLite) listIDs(ctx context.Context, op, query string, args ...any) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, &Error{Op: op, Err: fmt.Errorf("scan id: %w", err)}
		}
		ids = append(ids, uint64(id))
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	return ids, nil
}
