package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetOutcome is the settled result of a placed bet.
type BetOutcome string

const (
	BetOutcomeWin  BetOutcome = "win"
	BetOutcomeLose BetOutcome = "lose"
	BetOutcomeVoid BetOutcome = "void"
)

// Settlement is one settled bet as reported by the execution collaborator.
// Money fields use decimal to keep ledger arithmetic exact; the risk
// controller converts to float64 for its ratio checks.
type Settlement struct {
	BetID       uuid.UUID       `json:"bet_id" validate:"required"`
	ContestID   uuid.UUID       `json:"contest_id" validate:"required"`
	SelectionID string          `json:"selection_id" validate:"required"`
	Stake       decimal.Decimal `json:"stake"`
	Outcome     BetOutcome      `json:"outcome" validate:"required,oneof=win lose void"`
	Returns     decimal.Decimal `json:"returns"`
	SettledAt   time.Time       `json:"settled_at" validate:"required"`
}

// Profit returns the net profit (returns minus stake) for the bet.
func (s Settlement) Profit() decimal.Decimal {
	return s.Returns.Sub(s.Stake)
}

// IsLoss reports whether the bet lost money.
func (s Settlement) IsLoss() bool {
	return s.Profit().IsNegative()
}
