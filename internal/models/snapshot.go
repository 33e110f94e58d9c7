package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceSnapshot is one immutable entry of a user's balance ledger.
// The ledger is append-only: the current balance is the value of the
// newest snapshot, corrections happen by appending, never by editing.
type BalanceSnapshot struct {
	ID        string
	UserID    uuid.UUID
	Value     decimal.Decimal
	Seq       int64 // monotonic per user, guards against lost updates
	Date      time.Time
	CreatedAt time.Time
}
