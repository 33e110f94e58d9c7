package docrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mbertoldo/finbook/internal/apperrors"
	"github.com/mbertoldo/finbook/internal/docstore"
	"github.com/mbertoldo/finbook/internal/models"
	"github.com/mbertoldo/finbook/internal/repository"
)

type InvoiceRepo struct {
	Store docstore.Store
	Now   repository.Clock
}

func (r *InvoiceRepo) Create(ctx context.Context, input repository.CreateInvoiceInput) (models.Invoice, error) {
	now := r.Now().UTC()

	data := docstore.Document{
		"receiver_name": input.ReceiverName,
		"amount":        input.Amount.String(),
		"date":          input.Date,
		"type":          input.Type,
		"user_id":       input.UserID.String(),
		"receipt_url":   input.ReceiptURL,
		"created_at":    now.Format(timeLayout),
		"updated_at":    now.Format(timeLayout),
	}

	id, err := r.Store.Insert(ctx, collectionInvoices, data)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("can't create invoice: %w", err)
	}

	return models.Invoice{
		ID:           id,
		UserID:       input.UserID,
		ReceiverName: input.ReceiverName,
		Amount:       input.Amount,
		Date:         input.Date,
		Type:         input.Type,
		ReceiptURL:   input.ReceiptURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (r *InvoiceRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	records, err := r.Store.Query(ctx,
		collectionInvoices,
		"user_id", userID.String(),
		docstore.OrderByDesc("created_at"),
	)
	if err != nil {
		return nil, fmt.Errorf("can't list invoices: %w", err)
	}

	invoices := make([]models.Invoice, 0, len(records))
	for _, record := range records {
		invoice, err := recordToInvoice(record)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}

	return invoices, nil
}

func (r *InvoiceRepo) GetByID(ctx context.Context, userID uuid.UUID, invoiceID string) (models.Invoice, error) {
	record, err := r.Store.GetByID(ctx, collectionInvoices, invoiceID)

	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return models.Invoice{}, apperrors.ErrInvoiceNotFound
	case err != nil:
		return models.Invoice{}, fmt.Errorf("can't get invoice: %w", err)
	}

	// Hide other users' invoices the same way as missing ones
	if fieldString(record.Data, "user_id") != userID.String() {
		return models.Invoice{}, apperrors.ErrInvoiceNotFound
	}

	return recordToInvoice(record)
}

func (r *InvoiceRepo) Update(ctx context.Context, userID uuid.UUID, invoiceID string, updates repository.UpdateInvoiceInput) (models.Invoice, error) {
	if _, err := r.GetByID(ctx, userID, invoiceID); err != nil {
		return models.Invoice{}, err
	}

	fields := docstore.Document{
		"updated_at": r.Now().UTC().Format(timeLayout),
	}
	if updates.ReceiverName != nil {
		fields["receiver_name"] = *updates.ReceiverName
	}
	if updates.Amount != nil {
		fields["amount"] = updates.Amount.String()
	}
	if updates.Date != nil {
		fields["date"] = *updates.Date
	}
	if updates.Type != nil {
		fields["type"] = *updates.Type
	}
	if updates.ReceiptURL != nil {
		fields["receipt_url"] = *updates.ReceiptURL
	}

	err := r.Store.Update(ctx, collectionInvoices, invoiceID, fields)

	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return models.Invoice{}, apperrors.ErrInvoiceNotFound
	case err != nil:
		return models.Invoice{}, fmt.Errorf("can't update invoice: %w", err)
	}

	return r.GetByID(ctx, userID, invoiceID)
}

func (r *InvoiceRepo) Delete(ctx context.Context, userID uuid.UUID, invoiceID string) error {
	if _, err := r.GetByID(ctx, userID, invoiceID); err != nil {
		return err
	}

	err := r.Store.Delete(ctx, collectionInvoices, invoiceID)

	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return apperrors.ErrInvoiceNotFound
	case err != nil:
		return fmt.Errorf("can't delete invoice: %w", err)
	}

	return nil
}

func recordToInvoice(record docstore.Record) (models.Invoice, error) {
	userID, err := uuid.Parse(fieldString(record.Data, "user_id"))
	if err != nil {
		return models.Invoice{}, fmt.Errorf("invoice %s has bad user_id: %w", record.ID, err)
	}

	amount, err := decimal.NewFromString(fieldString(record.Data, "amount"))
	if err != nil {
		return models.Invoice{}, fmt.Errorf("invoice %s has bad amount: %w", record.ID, err)
	}

	return models.Invoice{
		ID:           record.ID,
		UserID:       userID,
		ReceiverName: fieldString(record.Data, "receiver_name"),
		Amount:       amount,
		Date:         fieldString(record.Data, "date"),
		Type:         fieldString(record.Data, "type"),
		ReceiptURL:   fieldString(record.Data, "receipt_url"),
		CreatedAt:    parseTime(fieldString(record.Data, "created_at")),
		UpdatedAt:    parseTime(fieldString(record.Data, "updated_at")),
	}, nil
}
