package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mbertoldo/finbook/internal/models"
)

type CreateInvoiceInput struct {
	UserID       uuid.UUID
	ReceiverName string
	Amount       decimal.Decimal
	Date         string
	Type         string
	ReceiptURL   string
}

// UpdateInvoiceInput is a partial update: nil fields stay untouched.
type UpdateInvoiceInput struct {
	ReceiverName *string
	Amount       *decimal.Decimal
	Date         *string
	Type         *string
	ReceiptURL   *string
}

// Invoice repository interface
type InvoiceRepo interface {
	// Create invoice owned by input.UserID
	Create(ctx context.Context, input CreateInvoiceInput) (models.Invoice, error)

	// List all invoices of the user, newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error)

	// Get invoice by id
	// If it does not exist or belongs to another user must return apperrors.ErrInvoiceNotFound
	GetByID(ctx context.Context, userID uuid.UUID, invoiceID string) (models.Invoice, error)

	// Update invoice fields that are set in updates and return the fresh invoice
	// Ownership is checked the same way as GetByID
	Update(ctx context.Context, userID uuid.UUID, invoiceID string, updates UpdateInvoiceInput) (models.Invoice, error)

	// Delete invoice, same ownership rules
	Delete(ctx context.Context, userID uuid.UUID, invoiceID string) error
}

type AppendSnapshotInput struct {
	UserID uuid.UUID
	Value  decimal.Decimal
	Seq    int64
}

// Balance snapshot repository interface
// The snapshot log is append-only: there is no update and no delete.
type SnapshotRepo interface {
	// Append snapshot with the given value and sequence number
	// If a snapshot with the same (user, seq) exists already must return
	// apperrors.ErrLedgerConflict so the caller can re-read and retry
	Append(ctx context.Context, input AppendSnapshotInput) (models.BalanceSnapshot, error)

	// List all snapshots of the user ordered by date descending
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.BalanceSnapshot, error)
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, username string, hashedPassword string) (models.User, error)

	// Get user by it's id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Save token
	Save(ctx context.Context, token models.RefreshToken) error

	// Return the token and mark it used in one step
	// If the token is already used must return apperrors.ErrRefreshTokenIsUsed
	// If the token is not found must return apperrors.ErrRefreshTokenNotFound
	GetAndMarkUsed(ctx context.Context, tokenString string) (models.RefreshToken, error)
}

// Storage aggregates every repository backed by the same store
type Storage interface {
	Invoices() InvoiceRepo
	Snapshots() SnapshotRepo
	Users() UserRepo
	RefreshTokens() RefreshTokenRepo
}

// Clock so repositories can be tested with a frozen time
type Clock func() time.Time
