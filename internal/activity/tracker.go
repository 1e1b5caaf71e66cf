// Package activity tracks where users were last seen so that pings to users
// already looking at a channel can be suppressed.
package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default windows.
const (
	DefaultDebounce      = 10 * time.Second
	DefaultFreshness     = 15 * time.Second
	DefaultSweepInterval = 5 * time.Minute
)

// Options configures a Tracker. Zero fields fall back to the defaults.
type Options struct {
	// Debounce is how long IsActive waits before sampling.
	Debounce time.Duration
	// Freshness is the maximum age of a record still counted as active.
	Freshness time.Duration
	// SweepInterval is how often Run evicts stale records.
	SweepInterval time.Duration
}

type record struct {
	channelID uint64
	seenAt    time.Time
}

// Tracker is an in-memory presence cache keyed by user ID. Only the most
// recently touched channel is remembered per user. Safe for concurrent use.
type Tracker struct {
	users sync.Map // uint64 -> record

	debounce  time.Duration
	freshness time.Duration
	sweep     time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// New creates a Tracker.
func New(opts Options, log *slog.Logger) *Tracker {
	t := &Tracker{
		debounce:  opts.Debounce,
		freshness: opts.Freshness,
		sweep:     opts.SweepInterval,
		now:       time.Now,
		log:       log,
	}
	if t.debounce <= 0 {
		t.debounce = DefaultDebounce
	}
	if t.freshness <= 0 {
		t.freshness = DefaultFreshness
	}
	if t.sweep <= 0 {
		t.sweep = DefaultSweepInterval
	}
	return t
}

// UpdateUser records that userID was just active in channelID, replacing
// whatever was recorded before.
func (t *Tracker) UpdateUser(userID, channelID uint64) {
	t.users.Store(userID, record{channelID: channelID, seenAt: t.now()})
}

// IsActive waits for the debounce window and then reports whether the
// user's latest activity was in channelID and is still fresh. Activity that
// happens during the wait counts. It returns false as soon as ctx is done.
func (t *Tracker) IsActive(ctx context.Context, userID, channelID uint64) bool {
	timer := time.NewTimer(t.debounce)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	v, ok := t.users.Load(userID)
	if !ok {
		return false
	}
	rec := v.(record)
	return rec.channelID == channelID && t.now().Sub(rec.seenAt) <= t.freshness
}

// Len returns the number of tracked users.
func (t *Tracker) Len() int {
	n := 0
	t.users.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Run evicts stale records every sweep interval until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.evict(t.now().Add(-t.sweep))
		}
	}
}

// evict drops every record last seen before cutoff. A record replaced
// concurrently is left alone.
func (t *Tracker) evict(cutoff time.Time) {
	removed := 0
	t.users.Range(func(key, value any) bool {
		if value.(record).seenAt.Before(cutoff) && t.users.CompareAndDelete(key, value) {
			removed++
		}
		return true
	})
	if removed > 0 {
		t.log.Debug("evicted stale activity", "count", removed, "tracked", t.Len())
	}
}
