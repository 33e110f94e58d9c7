package docrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mbertoldo/finbook/internal/apperrors"
	"github.com/mbertoldo/finbook/internal/docstore"
	"github.com/mbertoldo/finbook/internal/models"
)

type RefreshTokenRepo struct {
	Store docstore.Store
}

func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) error {
	data := docstore.Document{
		"user_id":    token.UserID.String(),
		"token":      token.Token,
		"created_at": token.CreatedAt.UTC().Format(timeLayout),
		"expires_at": token.ExpiresAt.UTC().Format(timeLayout),
		"used_at":    "",
	}

	_, err := r.Store.InsertUnique(ctx, collectionRefreshTokens, data, "token")
	if err != nil {
		return fmt.Errorf("can't save refresh token: %w", err)
	}

	return nil
}

func (r *RefreshTokenRepo) GetAndMarkUsed(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	records, err := r.Store.Query(ctx, collectionRefreshTokens, "token", tokenString)
	if err != nil {
		return models.RefreshToken{}, fmt.Errorf("can't get refresh token: %w", err)
	}
	if len(records) == 0 {
		return models.RefreshToken{}, apperrors.ErrRefreshTokenNotFound
	}

	token, err := recordToRefreshToken(records[0])
	if err != nil {
		return models.RefreshToken{}, err
	}
	if token.UsedAt != nil {
		return token, apperrors.ErrRefreshTokenIsUsed
	}

	now := time.Now().UTC()
	err = r.Store.Update(ctx, collectionRefreshTokens, records[0].ID, docstore.Document{
		"used_at": now.Format(timeLayout),
	})

	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return token, apperrors.ErrRefreshTokenNotFound
	case err != nil:
		return token, fmt.Errorf("can't mark refresh token used: %w", err)
	}

	token.UsedAt = &now
	return token, nil
}

func recordToRefreshToken(record docstore.Record) (models.RefreshToken, error) {
	userID, err := uuid.Parse(fieldString(record.Data, "user_id"))
	if err != nil {
		return models.RefreshToken{}, fmt.Errorf("refresh token %s has bad user_id: %w", record.ID, err)
	}

	token := models.RefreshToken{
		ID:        record.ID,
		UserID:    userID,
		Token:     fieldString(record.Data, "token"),
		CreatedAt: parseTime(fieldString(record.Data, "created_at")),
		ExpiresAt: parseTime(fieldString(record.Data, "expires_at")),
	}

	if raw := fieldString(record.Data, "used_at"); raw != "" {
		usedAt := parseTime(raw)
		token.UsedAt = &usedAt
	}

	return token, nil
}
