package docrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mbertoldo/finbook/internal/apperrors"
	"github.com/mbertoldo/finbook/internal/docstore"
	"github.com/mbertoldo/finbook/internal/models"
	"github.com/mbertoldo/finbook/internal/repository"
)

type UserRepo struct {
	Store docstore.Store
	Now   repository.Clock
}

func (r *UserRepo) CreateUser(ctx context.Context, username string, hashedPassword string) (models.User, error) {
	now := r.Now().UTC()

	data := docstore.Document{
		"username":        username,
		"hashed_password": hashedPassword,
		"created_at":      now.Format(timeLayout),
	}

	id, err := r.Store.InsertUnique(ctx, collectionUsers, data, "username")

	switch {
	case errors.Is(err, docstore.ErrConflict):
		return models.User{}, apperrors.ErrUserAlreadyExists
	case err != nil:
		return models.User{}, fmt.Errorf("can't create user: %w", err)
	}

	userID, err := uuid.Parse(id)
	if err != nil {
		return models.User{}, fmt.Errorf("store assigned non-uuid user id %q: %w", id, err)
	}

	return models.User{
		ID:             userID,
		CreatedAt:      now,
		Username:       username,
		HashedPassword: hashedPassword,
	}, nil
}

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	record, err := r.Store.GetByID(ctx, collectionUsers, userID.String())

	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return models.User{}, apperrors.ErrUserNotFound
	case err != nil:
		return models.User{}, fmt.Errorf("can't get user: %w", err)
	}

	return recordToUser(record)
}

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	records, err := r.Store.Query(ctx, collectionUsers, "username", username)
	if err != nil {
		return models.User{}, fmt.Errorf("can't get user: %w", err)
	}
	if len(records) == 0 {
		return models.User{}, apperrors.ErrUserNotFound
	}

	return recordToUser(records[0])
}

func recordToUser(record docstore.Record) (models.User, error) {
	userID, err := uuid.Parse(record.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("user %s has non-uuid id: %w", record.ID, err)
	}

	return models.User{
		ID:             userID,
		CreatedAt:      parseTime(fieldString(record.Data, "created_at")),
		Username:       fieldString(record.Data, "username"),
		HashedPassword: fieldString(record.Data, "hashed_password"),
	}, nil
}
