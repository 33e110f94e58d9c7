package docrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mbertoldo/finbook/internal/apperrors"
	"github.com/mbertoldo/finbook/internal/docstore"
	"github.com/mbertoldo/finbook/internal/models"
	"github.com/mbertoldo/finbook/internal/repository"
)

// SnapshotRepo persists the append-only balance ledger.
// Appends are conditional on the (user_id, seq) pair being unused,
// which is what makes the ledger's read-modify-append safe to retry.
type SnapshotRepo struct {
	Store docstore.Store
	Now   repository.Clock
}

func (r *SnapshotRepo) Append(ctx context.Context, input repository.AppendSnapshotInput) (models.BalanceSnapshot, error) {
	now := r.Now().UTC()

	data := docstore.Document{
		"user_id":         input.UserID.String(),
		"current_balance": input.Value.String(),
		"seq":             strconv.FormatInt(input.Seq, 10),
		"date":            now.Format(timeLayout),
		"created_at":      now.Format(timeLayout),
	}

	id, err := r.Store.InsertUnique(ctx, collectionBalances, data, "user_id", "seq")

	switch {
	case errors.Is(err, docstore.ErrConflict):
		return models.BalanceSnapshot{}, apperrors.ErrLedgerConflict
	case err != nil:
		return models.BalanceSnapshot{}, fmt.Errorf("can't append snapshot: %w", err)
	}

	return models.BalanceSnapshot{
		ID:        id,
		UserID:    input.UserID,
		Value:     input.Value,
		Seq:       input.Seq,
		Date:      now,
		CreatedAt: now,
	}, nil
}

func (r *SnapshotRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.BalanceSnapshot, error) {
	records, err := r.Store.Query(ctx,
		collectionBalances,
		"user_id", userID.String(),
		docstore.OrderByDesc("date"),
	)
	if err != nil {
		return nil, fmt.Errorf("can't list snapshots: %w", err)
	}

	snapshots := make([]models.BalanceSnapshot, 0, len(records))
	for _, record := range records {
		snapshot, err := recordToSnapshot(record)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

func recordToSnapshot(record docstore.Record) (models.BalanceSnapshot, error) {
	userID, err := uuid.Parse(fieldString(record.Data, "user_id"))
	if err != nil {
		return models.BalanceSnapshot{}, fmt.Errorf("snapshot %s has bad user_id: %w", record.ID, err)
	}

	value, err := decimal.NewFromString(fieldString(record.Data, "current_balance"))
	if err != nil {
		return models.BalanceSnapshot{}, fmt.Errorf("snapshot %s has bad current_balance: %w", record.ID, err)
	}

	seq, err := strconv.ParseInt(fieldString(record.Data, "seq"), 10, 64)
	if err != nil {
		return models.BalanceSnapshot{}, fmt.Errorf("snapshot %s has bad seq: %w", record.ID, err)
	}

	return models.BalanceSnapshot{
		ID:        record.ID,
		UserID:    userID,
		Value:     value,
		Seq:       seq,
		Date:      parseTime(fieldString(record.Data, "date")),
		CreatedAt: parseTime(fieldString(record.Data, "created_at")),
	}, nil
}
