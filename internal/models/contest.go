package models

import (
	"time"

	"github.com/google/uuid"
)

// Contest is a single discrete event (one race) with the inputs the
// decision layer needs: per-contestant model scores and market quotes.
// For historical contests the winner is known and used for settlement.
type Contest struct {
	ID        uuid.UUID              `json:"id" validate:"required"`
	Venue     string                 `json:"venue"`
	StartTime time.Time              `json:"start_time" validate:"required"`
	Scores    map[string]float64     `json:"scores"`
	Quotes    map[string]MarketQuote `json:"quotes"`
	WinnerID  string                 `json:"winner_id,omitempty"`
}

// HasResult reports whether the contest has a settled outcome.
func (c *Contest) HasResult() bool {
	return c.WinnerID != ""
}

// IsWinner reports whether the given selection won the contest.
func (c *Contest) IsWinner(selectionID string) bool {
	return c.WinnerID != "" && c.WinnerID == selectionID
}
