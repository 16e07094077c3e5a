// Package ratelimit caps how often a user may perform an action within a
// fixed window.
package ratelimit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxRequests = 100
	DefaultWindow      = 15 * time.Minute
)

// Store records a hit and reports whether it fits in the current window. The
// check and the increment must be a single atomic step.
type Store interface {
	Hit(ctx context.Context, userID, action string, maxRequests int, window time.Duration, now time.Time) (bool, error)
}

type Limiter struct {
	store       Store
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

type Option func(*Limiter)

func WithLimit(maxRequests int, window time.Duration) Option {
	return func(l *Limiter) {
		l.maxRequests = maxRequests
		l.window = window
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:       store,
		maxRequests: DefaultMaxRequests,
		window:      DefaultWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether userID may perform action now. Store failures allow
// the request: an infrastructure hiccup must not lock out legitimate users.
func (l *Limiter) Allow(ctx context.Context, userID, action string) bool {
	allowed, err := l.store.Hit(ctx, userID, action, l.maxRequests, l.window, l.now())
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":     userID,
			"action_type": action,
		}).WithError(err).Warn("RateLimit: Store failure, allowing request")
		return true
	}
	return allowed
}
