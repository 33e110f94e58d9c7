package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mbertoldo/finbook/internal/apperrors"
	"github.com/mbertoldo/finbook/internal/docstore/memstore"
	"github.com/mbertoldo/finbook/internal/models"
	"github.com/mbertoldo/finbook/internal/repository"
	"github.com/mbertoldo/finbook/internal/repository/docrepo"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestReduce(t *testing.T) {
	t.Parallel()

	t.Run("empty ledger reads as zero", func(t *testing.T) {
		require.True(t, Reduce(nil).IsZero())
		require.True(t, Reduce([]models.BalanceSnapshot{}).IsZero())
	})

	t.Run("picks the snapshot with the highest seq", func(t *testing.T) {
		snapshots := []models.BalanceSnapshot{
			{Seq: 2, Value: dec("380")},
			{Seq: 3, Value: dec("500")},
			{Seq: 1, Value: dec("500")},
		}

		require.True(t, Reduce(snapshots).Equal(dec("500")))
	})

	t.Run("seq wins over list order", func(t *testing.T) {
		// A date-descending list may still carry the newest seq anywhere
		snapshots := []models.BalanceSnapshot{
			{Seq: 1, Value: dec("100")},
			{Seq: 2, Value: dec("250")},
		}

		require.True(t, Reduce(snapshots).Equal(dec("250")))
	})
}

func TestNext(t *testing.T) {
	t.Parallel()

	t.Run("deposit adds", func(t *testing.T) {
		next, err := Next(dec("100"), dec("50"), models.InvoiceTypeDeposit)

		require.NoError(t, err)
		require.True(t, next.Equal(dec("150")))
	})

	t.Run("payment subtracts", func(t *testing.T) {
		next, err := Next(dec("100"), dec("30"), models.InvoiceTypePayment)

		require.NoError(t, err)
		require.True(t, next.Equal(dec("70")))
	})

	t.Run("transfer subtracts", func(t *testing.T) {
		next, err := Next(dec("100"), dec("30"), models.InvoiceTypeTransfer)

		require.NoError(t, err)
		require.True(t, next.Equal(dec("70")))
	})

	t.Run("negated amount reverses the original effect", func(t *testing.T) {
		for _, invoiceType := range []string{
			models.InvoiceTypeDeposit,
			models.InvoiceTypePayment,
			models.InvoiceTypeTransfer,
		} {
			amount := dec("120")

			after, err := Next(dec("500"), amount, invoiceType)
			require.NoError(t, err)

			back, err := Next(after, amount.Neg(), invoiceType)
			require.NoError(t, err)
			require.True(t, back.Equal(dec("500")), "type %q did not reverse", invoiceType)
		}
	})

	t.Run("unknown type fails", func(t *testing.T) {
		_, err := Next(dec("100"), dec("50"), "salary")

		require.Error(t, err)
		require.ErrorIs(t, err, apperrors.ErrInvoiceTypeInvalid)
	})
}

func TestLedgerService(t *testing.T) {
	t.Parallel()

	// Ledger service over the in-memory store with a ticking clock, so
	// every snapshot gets a distinct date
	newService := func() *Service {
		current := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
		clock := func() time.Time {
			current = current.Add(time.Second)
			return current
		}
		storage := docrepo.NewStorage(memstore.New()).WithClock(clock)
		return NewService(storage.Snapshots())
	}

	t.Run("CurrentBalance", func(t *testing.T) {
		t.Run("zero without snapshots", func(t *testing.T) {
			s := newService()

			balance, err := s.CurrentBalance(t.Context(), uuid.New())

			require.NoError(t, err, "missing ledger is not an error")
			require.True(t, balance.IsZero())
		})

		t.Run("users do not see each other", func(t *testing.T) {
			s := newService()
			userID, otherID := uuid.New(), uuid.New()

			require.NoError(t, s.Apply(t.Context(), userID, dec("500"), models.InvoiceTypeDeposit))

			balance, err := s.CurrentBalance(t.Context(), otherID)
			require.NoError(t, err)
			require.True(t, balance.IsZero())
		})
	})

	t.Run("CreateInitial", func(t *testing.T) {
		t.Run("appends a zero snapshot", func(t *testing.T) {
			s := newService()
			userID := uuid.New()

			err := s.CreateInitial(t.Context(), userID)
			require.NoError(t, err)

			balance, err := s.CurrentBalance(t.Context(), userID)
			require.NoError(t, err)
			require.True(t, balance.IsZero())

			history, err := s.History(t.Context(), userID)
			require.NoError(t, err)
			require.Len(t, history, 1)
			require.Equal(t, int64(1), history[0].Seq)
		})

		t.Run("second call grows history, balance stays zero", func(t *testing.T) {
			s := newService()
			userID := uuid.New()

			require.NoError(t, s.CreateInitial(t.Context(), userID))
			require.NoError(t, s.CreateInitial(t.Context(), userID))

			history, err := s.History(t.Context(), userID)
			require.NoError(t, err)
			require.Len(t, history, 2)

			balance, err := s.CurrentBalance(t.Context(), userID)
			require.NoError(t, err)
			require.True(t, balance.IsZero())
		})
	})

	t.Run("Apply", func(t *testing.T) {
		t.Run("deposit then payment", func(t *testing.T) {
			s := newService()
			userID := uuid.New()

			require.NoError(t, s.Apply(t.Context(), userID, dec("500"), models.InvoiceTypeDeposit))
			require.NoError(t, s.Apply(t.Context(), userID, dec("120"), models.InvoiceTypePayment))

			balance, err := s.CurrentBalance(t.Context(), userID)
			require.NoError(t, err)
			require.True(t, balance.Equal(dec("380")))
		})

		t.Run("reversals walk the balance back", func(t *testing.T) {
			s := newService()
			userID := uuid.New()

			// Deposit 500, pay 120, then reverse both in reverse order
			require.NoError(t, s.Apply(t.Context(), userID, dec("500"), models.InvoiceTypeDeposit))
			require.NoError(t, s.Apply(t.Context(), userID, dec("120"), models.InvoiceTypePayment))
			require.NoError(t, s.Apply(t.Context(), userID, dec("120").Neg(), models.InvoiceTypePayment))
			require.NoError(t, s.Apply(t.Context(), userID, dec("500").Neg(), models.InvoiceTypeDeposit))

			balance, err := s.CurrentBalance(t.Context(), userID)
			require.NoError(t, err)
			require.True(t, balance.IsZero())

			// Every intermediate value stays on record
			history, err := s.History(t.Context(), userID)
			require.NoError(t, err)
			require.Len(t, history, 4)

			values := make([]string, 0, len(history))
			for _, snapshot := range history {
				values = append(values, snapshot.Value.String())
			}
			require.Equal(t, []string{"0", "500", "380", "500"}, values, "history is date descending")
		})

		t.Run("seq grows by one per append", func(t *testing.T) {
			s := newService()
			userID := uuid.New()

			for range 3 {
				require.NoError(t, s.Apply(t.Context(), userID, dec("10"), models.InvoiceTypeDeposit))
			}

			history, err := s.History(t.Context(), userID)
			require.NoError(t, err)
			require.Len(t, history, 3)
			require.Equal(t, int64(3), history[0].Seq)
			require.Equal(t, int64(2), history[1].Seq)
			require.Equal(t, int64(1), history[2].Seq)
		})

		t.Run("invalid type fails before touching the store", func(t *testing.T) {
			s := newService()
			userID := uuid.New()

			err := s.Apply(t.Context(), userID, dec("10"), "salary")
			require.ErrorIs(t, err, apperrors.ErrInvoiceTypeInvalid)

			history, err := s.History(t.Context(), userID)
			require.NoError(t, err)
			require.Empty(t, history)
		})

		t.Run("balance may go negative", func(t *testing.T) {
			s := newService()
			userID := uuid.New()

			require.NoError(t, s.Apply(t.Context(), userID, dec("100"), models.InvoiceTypePayment))

			balance, err := s.CurrentBalance(t.Context(), userID)
			require.NoError(t, err)
			require.True(t, balance.Equal(dec("-100")))
		})
	})

	t.Run("Apply retries on seq conflict", func(t *testing.T) {
		t.Run("wins after losing a few rounds", func(t *testing.T) {
			storage := docrepo.NewStorage(memstore.New())
			conflicting := &conflictingSnapshotRepo{
				SnapshotRepo: storage.Snapshots(),
				conflicts:    applyAttempts - 1,
			}
			s := NewService(conflicting)
			userID := uuid.New()

			err := s.Apply(t.Context(), userID, dec("500"), models.InvoiceTypeDeposit)

			require.NoError(t, err, "one attempt left should be enough")
			balance, err := s.CurrentBalance(t.Context(), userID)
			require.NoError(t, err)
			require.True(t, balance.Equal(dec("500")))
		})

		t.Run("concurrent appliers never lose an update", func(t *testing.T) {
			storage := docrepo.NewStorage(memstore.New())
			s := NewService(storage.Snapshots())
			userID := uuid.New()

			const appliers = 8
			errs := make(chan error, appliers)
			for range appliers {
				go func() {
					errs <- s.Apply(context.Background(), userID, dec("10"), models.InvoiceTypeDeposit)
				}()
			}

			applied := 0
			for range appliers {
				err := <-errs
				if err == nil {
					applied++
					continue
				}
				// Under heavy contention a loser may exhaust its
				// retries, but it must fail loudly, never silently
				// overwrite another writer's append
				require.ErrorIs(t, err, apperrors.ErrLedgerConflict)
			}
			require.Positive(t, applied, "at least one applier must win")

			history, err := s.History(t.Context(), userID)
			require.NoError(t, err)
			require.Len(t, history, applied)

			seqs := make(map[int64]bool, len(history))
			for _, snapshot := range history {
				require.False(t, seqs[snapshot.Seq], "seq %d appended twice", snapshot.Seq)
				seqs[snapshot.Seq] = true
			}

			balance, err := s.CurrentBalance(t.Context(), userID)
			require.NoError(t, err)
			require.True(t, balance.Equal(dec("10").Mul(decimal.NewFromInt(int64(applied)))),
				"every successful apply must be reflected exactly once")
		})

		t.Run("gives up after too many conflicts", func(t *testing.T) {
			storage := docrepo.NewStorage(memstore.New())
			conflicting := &conflictingSnapshotRepo{
				SnapshotRepo: storage.Snapshots(),
				conflicts:    applyAttempts,
			}
			s := NewService(conflicting)

			err := s.Apply(t.Context(), uuid.New(), dec("500"), models.InvoiceTypeDeposit)

			require.ErrorIs(t, err, apperrors.ErrLedgerConflict)
		})
	})
}

// conflictingSnapshotRepo rejects the first N appends the way a real
// store does when a concurrent writer took the sequence number first
type conflictingSnapshotRepo struct {
	repository.SnapshotRepo
	conflicts int
}

func (r *conflictingSnapshotRepo) Append(ctx context.Context, input repository.AppendSnapshotInput) (models.BalanceSnapshot, error) {
	if r.conflicts > 0 {
		r.conflicts--
		return models.BalanceSnapshot{}, apperrors.ErrLedgerConflict
	}
	return r.SnapshotRepo.Append(ctx, input)
}
