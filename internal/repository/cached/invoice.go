package cached

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/mbertoldo/finbook/internal/cache"
	"github.com/mbertoldo/finbook/internal/models"
	"github.com/mbertoldo/finbook/internal/repository"
)

type InvoiceRepo struct {
	repo  repository.InvoiceRepo
	cache cache.Cache
}

func NewInvoiceRepo(repo repository.InvoiceRepo, c cache.Cache) *InvoiceRepo {
	return &InvoiceRepo{repo: repo, cache: c}
}

func (r *InvoiceRepo) Create(ctx context.Context, input repository.CreateInvoiceInput) (models.Invoice, error) {
	invoice, err := r.repo.Create(ctx, input)
	if err == nil {
		_ = r.cache.InvalidatePattern(ctx, invoicePrefix+":"+input.UserID.String())
	}
	return invoice, err
}

func (r *InvoiceRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	key := invoicePrefix + ":" + userID.String() + ":list"

	if data, ok, _ := r.cache.Get(ctx, key); ok {
		var invoices []models.Invoice
		if err := json.Unmarshal(data, &invoices); err == nil {
			return invoices, nil
		}
	}

	invoices, err := r.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(invoices); err == nil {
		_ = r.cache.Set(ctx, key, data, invoiceTTL)
	}

	return invoices, nil
}

// GetByID always goes to the store: edit flows need fresh data
func (r *InvoiceRepo) GetByID(ctx context.Context, userID uuid.UUID, invoiceID string) (models.Invoice, error) {
	return r.repo.GetByID(ctx, userID, invoiceID)
}

func (r *InvoiceRepo) Update(ctx context.Context, userID uuid.UUID, invoiceID string, updates repository.UpdateInvoiceInput) (models.Invoice, error) {
	invoice, err := r.repo.Update(ctx, userID, invoiceID, updates)
	if err == nil {
		_ = r.cache.InvalidatePattern(ctx, invoicePrefix+":"+userID.String())
	}
	return invoice, err
}

func (r *InvoiceRepo) Delete(ctx context.Context, userID uuid.UUID, invoiceID string) error {
	err := r.repo.Delete(ctx, userID, invoiceID)
	if err == nil {
		_ = r.cache.InvalidatePattern(ctx, invoicePrefix+":"+userID.String())
	}
	return err
}
