// Package ledger remembers which tracks were added recently so a repost within
// the TTL is not added twice.
//
// IsDuplicate followed by RecordAdded is not atomic. Two messages carrying the
// same new track can both see "not a duplicate" and both add it. The bot
// accepts that; callers needing a stronger guarantee must serialise per track.
package ledger

import (
	"sync"
	"time"
)

const (
	DefaultTTL           = time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// Ledger maps track IDs to the time they were last added.
//
// Safe for concurrent use; operations on different keys never contend on a shared lock.
type Ledger struct {
	entries sync.Map
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a [Ledger].
type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates an empty [Ledger]. A non-positive ttl uses [DefaultTTL].
func New(ttl time.Duration, opts ...Option) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l := &Ledger{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TTL returns how long an entry stays live.
func (l *Ledger) TTL() time.Duration { return l.ttl }

// IsDuplicate reports whether trackID was recorded less than TTL ago.
func (l *Ledger) IsDuplicate(trackID string) bool {
	v, ok := l.entries.Load(trackID)
	if !ok {
		return false
	}
	return l.live(v.(time.Time), l.now())
}

// RecordAdded stamps trackID with the current time, replacing any earlier entry.
func (l *Ledger) RecordAdded(trackID string) {
	l.entries.Store(trackID, l.now())
}

// Sweep deletes every expired entry and returns how many were removed.
func (l *Ledger) Sweep() int {
	now := l.now()
	removed := 0
	l.entries.Range(func(k, v any) bool {
		if !l.live(v.(time.Time), now) {
			// A concurrent RecordAdded may have refreshed the entry since Range read it.
			if l.entries.CompareAndDelete(k, v) {
				removed++
			}
		}
		return true
	})
	return removed
}

// Len counts the entries currently held, live or not.
func (l *Ledger) Len() int {
	n := 0
	l.entries.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

func (l *Ledger) live(addedAt, now time.Time) bool {
	return now.Sub(addedAt) < l.ttl
}
