// Package symbolmeta keeps the perpetual-instrument universe current.
package symbolmeta

import (
	"context"
	"time"

	"perpscanner/internal/market"

	"go.uber.org/zap"
)

// Store receives each freshly loaded universe.
type Store interface {
	Replace(instruments []market.Instrument)
	Len() int
}

// MidnightLoader refreshes the instrument universe at startup and then at
// every UTC midnight. A failed refresh keeps the previous universe.
type MidnightLoader struct {
	Load   func(ctx context.Context) ([]market.Instrument, error)
	Store  Store
	Logger *zap.Logger

	now func() time.Time
}

// NextMidnight returns the first UTC midnight strictly after now.
func NextMidnight(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}

// Run blocks until ctx is cancelled.
func (m *MidnightLoader) Run(ctx context.Context) error {
	m.RunOnce(ctx)

	for {
		wait := time.Until(NextMidnight(m.clock()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			m.RunOnce(ctx)
		}
	}
}

func (m *MidnightLoader) Name() string { return "instrument-refresh" }

// RunOnce performs one refresh and reports whether the store was replaced.
func (m *MidnightLoader) RunOnce(ctx context.Context) bool {
	instruments, err := m.Load(ctx)
	if err != nil {
		m.Logger.Warn("instrument refresh failed, keeping previous universe",
			zap.Int("current", m.Store.Len()), zap.Error(err))
		return false
	}
	if len(instruments) == 0 {
		m.Logger.Warn("instrument refresh returned no perpetuals, keeping previous universe")
		return false
	}

	m.Store.Replace(instruments)
	m.Logger.Info("instrument universe refreshed", zap.Int("count", len(instruments)))
	return true
}

func (m *MidnightLoader) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}
