package cached

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/mbertoldo/finbook/internal/cache"
	"github.com/mbertoldo/finbook/internal/models"
	"github.com/mbertoldo/finbook/internal/repository"
)

type SnapshotRepo struct {
	repo  repository.SnapshotRepo
	cache cache.Cache
}

func NewSnapshotRepo(repo repository.SnapshotRepo, c cache.Cache) *SnapshotRepo {
	return &SnapshotRepo{repo: repo, cache: c}
}

// Append writes through and drops the user's cached ledger view before
// reporting success, so a later read cannot observe the pre-append state
// from cache.
func (r *SnapshotRepo) Append(ctx context.Context, input repository.AppendSnapshotInput) (models.BalanceSnapshot, error) {
	snapshot, err := r.repo.Append(ctx, input)
	if err == nil {
		_ = r.cache.InvalidatePattern(ctx, balancePrefix+":"+input.UserID.String())
	}
	return snapshot, err
}

func (r *SnapshotRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.BalanceSnapshot, error) {
	key := balancePrefix + ":" + userID.String() + ":list"

	if data, ok, _ := r.cache.Get(ctx, key); ok {
		var snapshots []models.BalanceSnapshot
		if err := json.Unmarshal(data, &snapshots); err == nil {
			return snapshots, nil
		}
	}

	snapshots, err := r.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(snapshots); err == nil {
		_ = r.cache.Set(ctx, key, data, balanceTTL)
	}

	return snapshots, nil
}
