// Package ledger maintains the append-only balance ledger.
//
// The current balance is never stored as a mutable field. Every
// ledger-affecting event appends an immutable snapshot and "current
// balance" is defined as the value of the newest snapshot, zero if
// there is none. Reversals append a compensating snapshot; nothing is
// ever updated or deleted.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mbertoldo/finbook/internal/apperrors"
	"github.com/mbertoldo/finbook/internal/models"
	"github.com/mbertoldo/finbook/internal/repository"
)

// How many times Apply re-reads and retries after a sequence conflict
const applyAttempts = 5

type Service struct {
	snapshots repository.SnapshotRepo
}

func NewService(snapshots repository.SnapshotRepo) *Service {
	return &Service{snapshots: snapshots}
}

// Reduce derives the current balance from a snapshot list: the value of
// the snapshot with the highest sequence number, or zero for an empty
// ledger. Pure, so the derivation is testable without a store.
func Reduce(snapshots []models.BalanceSnapshot) decimal.Decimal {
	latest, ok := newest(snapshots)
	if !ok {
		return decimal.Zero
	}
	return latest.Value
}

// Next computes the balance after applying a signed transaction amount:
// deposits add, payments and transfers subtract. A negated amount
// reverses the original effect, which is how deletes compensate.
func Next(current decimal.Decimal, amount decimal.Decimal, invoiceType string) (decimal.Decimal, error) {
	switch invoiceType {
	case models.InvoiceTypeDeposit:
		return current.Add(amount), nil
	case models.InvoiceTypePayment, models.InvoiceTypeTransfer:
		return current.Sub(amount), nil
	default:
		return current, fmt.Errorf("%w: %q", apperrors.ErrInvoiceTypeInvalid, invoiceType)
	}
}

// CurrentBalance returns the newest snapshot value.
// A user with no snapshots has balance zero and no error. Read errors
// are returned as is: the HTTP layer decides whether to present them
// as zero, the ledger does not hide them.
func (s *Service) CurrentBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	snapshots, err := s.snapshots.ListByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("can't read ledger: %w", err)
	}

	return Reduce(snapshots), nil
}

// History returns the user's snapshots ordered by date descending
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]models.BalanceSnapshot, error) {
	snapshots, err := s.snapshots.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("can't read ledger: %w", err)
	}

	return snapshots, nil
}

// CreateInitial appends a zero-value snapshot for a newly registered
// user. Not idempotent: a second call appends a second zero snapshot.
// The current value stays zero either way, only the history grows.
func (s *Service) CreateInitial(ctx context.Context, userID uuid.UUID) error {
	return s.append(ctx, userID, func(decimal.Decimal) (decimal.Decimal, error) {
		return decimal.Zero, nil
	})
}

// Apply records a transaction's effect on the ledger.
//
// This is a read-modify-append sequence: read the newest snapshot,
// compute the next value with Next, append it with the next sequence
// number. The append is conditional on the sequence number being
// unused, so two concurrent Applies working from the same read cannot
// both land; the loser re-reads and retries. After applyAttempts
// conflicts in a row the call gives up with ErrLedgerConflict.
func (s *Service) Apply(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, invoiceType string) error {
	if !models.ValidInvoiceType(invoiceType) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvoiceTypeInvalid, invoiceType)
	}

	return s.append(ctx, userID, func(current decimal.Decimal) (decimal.Decimal, error) {
		return Next(current, amount, invoiceType)
	})
}

func (s *Service) append(ctx context.Context, userID uuid.UUID, nextValue func(current decimal.Decimal) (decimal.Decimal, error)) error {
	for range applyAttempts {
		snapshots, err := s.snapshots.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("can't read ledger: %w", err)
		}

		value, err := nextValue(Reduce(snapshots))
		if err != nil {
			return err
		}

		seq := int64(1)
		if latest, ok := newest(snapshots); ok {
			seq = latest.Seq + 1
		}

		_, err = s.snapshots.Append(ctx, repository.AppendSnapshotInput{
			UserID: userID,
			Value:  value,
			Seq:    seq,
		})

		switch {
		case err == nil:
			return nil
		case errors.Is(err, apperrors.ErrLedgerConflict):
			continue
		default:
			return fmt.Errorf("can't append snapshot: %w", err)
		}
	}

	return apperrors.ErrLedgerConflict
}

// newest picks the snapshot with the highest sequence number.
// The list is usually date-descending already, but the sequence number
// is the ordering that appends are checked against, so it wins over
// any date tie.
func newest(snapshots []models.BalanceSnapshot) (models.BalanceSnapshot, bool) {
	if len(snapshots) == 0 {
		return models.BalanceSnapshot{}, false
	}

	latest := snapshots[0]
	for _, snapshot := range snapshots[1:] {
		if snapshot.Seq > latest.Seq {
			latest = snapshot
		}
	}

	return latest, true
}
