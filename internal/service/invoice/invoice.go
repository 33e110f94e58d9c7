// Package invoice coordinates invoice mutations with the balance
// ledger and keeps an optimistic per-user invoice list for fast reads.
//
// The invoice write and the ledger append are two independent store
// calls, not a transaction. When the invoice write lands and the
// ledger append fails, the mutation stays committed and the ledger is
// left behind; the failure is logged, not compensated. This matches
// the historical behavior of the system and is deliberate.
package invoice

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mbertoldo/finbook/internal/apperrors"
	"github.com/mbertoldo/finbook/internal/logger"
	"github.com/mbertoldo/finbook/internal/models"
	"github.com/mbertoldo/finbook/internal/repository"
)

// Ledger is the slice of the ledger service the coordinator needs
type Ledger interface {
	Apply(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, invoiceType string) error
}

type Service struct {
	invoices repository.InvoiceRepo
	ledger   Ledger
	logger   logger.Logger

	// Optimistic local view of each user's invoice list. Mutations
	// patch it in place instead of re-fetching; Refresh replaces it.
	mu    sync.RWMutex
	lists map[uuid.UUID][]models.Invoice
}

func NewService(invoices repository.InvoiceRepo, ledger Ledger, l logger.Logger) *Service {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Service{
		invoices: invoices,
		ledger:   ledger,
		logger:   l,
		lists:    make(map[uuid.UUID][]models.Invoice),
	}
}

// Add creates the invoice and then applies its effect to the ledger:
// a deposit increases the balance by the amount, a payment or transfer
// decreases it.
func (s *Service) Add(ctx context.Context, input repository.CreateInvoiceInput) (models.Invoice, error) {
	if err := validateCreate(input); err != nil {
		return models.Invoice{}, err
	}

	created, err := s.invoices.Create(ctx, input)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("can't create invoice: %w", err)
	}

	// Best effort: the invoice is committed even when the append fails
	if err := s.ledger.Apply(ctx, input.UserID, created.Amount, created.Type); err != nil {
		s.logger.Error("ledger not updated after invoice create, balance diverged",
			"user_id", input.UserID,
			"invoice_id", created.ID,
			"error", err,
		)
	}

	s.prepend(created)

	return created, nil
}

// Delete removes the invoice and reverses its original ledger effect
// by re-applying the negated amount with the invoice's own type.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, invoiceID string, amount decimal.Decimal, invoiceType string) error {
	if !models.ValidInvoiceType(invoiceType) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvoiceTypeInvalid, invoiceType)
	}

	if err := s.invoices.Delete(ctx, userID, invoiceID); err != nil {
		return err
	}

	if err := s.ledger.Apply(ctx, userID, amount.Neg(), invoiceType); err != nil {
		s.logger.Error("ledger not updated after invoice delete, balance diverged",
			"user_id", userID,
			"invoice_id", invoiceID,
			"error", err,
		)
	}

	s.remove(userID, invoiceID)

	return nil
}

// Update changes invoice fields without touching the ledger. An edit
// that changes the amount or type leaves the recorded balance as it
// was; that gap is a known limitation of the system, kept on purpose.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, invoiceID string, updates repository.UpdateInvoiceInput) (models.Invoice, error) {
	if err := validateUpdate(updates); err != nil {
		return models.Invoice{}, err
	}

	updated, err := s.invoices.Update(ctx, userID, invoiceID, updates)
	if err != nil {
		return models.Invoice{}, err
	}

	s.replace(updated)

	return updated, nil
}

// GetByID reads the invoice from the repository, bypassing the local
// list, so edit flows always see fresh data.
func (s *Service) GetByID(ctx context.Context, userID uuid.UUID, invoiceID string) (models.Invoice, error) {
	return s.invoices.GetByID(ctx, userID, invoiceID)
}

// List serves the local list when it is warm and falls back to a
// refresh otherwise.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	s.mu.RLock()
	cached, ok := s.lists[userID]
	if ok {
		out := slices.Clone(cached)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	return s.Refresh(ctx, userID)
}

// Refresh re-fetches the user's invoices and replaces the local list
func (s *Service) Refresh(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	invoices, err := s.invoices.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("can't refresh invoices: %w", err)
	}

	s.mu.Lock()
	s.lists[userID] = slices.Clone(invoices)
	s.mu.Unlock()

	return invoices, nil
}

func (s *Service) prepend(invoice models.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if list, ok := s.lists[invoice.UserID]; ok {
		s.lists[invoice.UserID] = append([]models.Invoice{invoice}, list...)
	}
}

func (s *Service) remove(userID uuid.UUID, invoiceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if list, ok := s.lists[userID]; ok {
		s.lists[userID] = slices.DeleteFunc(list, func(i models.Invoice) bool {
			return i.ID == invoiceID
		})
	}
}

func (s *Service) replace(invoice models.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.lists[invoice.UserID]
	if !ok {
		return
	}
	for i := range list {
		if list[i].ID == invoice.ID {
			list[i] = invoice
		}
	}
}

func validateCreate(input repository.CreateInvoiceInput) error {
	if strings.TrimSpace(input.ReceiverName) == "" {
		return apperrors.ErrReceiverEmpty
	}
	if !input.Amount.IsPositive() {
		return apperrors.ErrAmountNotPositive
	}
	if !models.ValidInvoiceType(input.Type) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvoiceTypeInvalid, input.Type)
	}
	return nil
}

func validateUpdate(updates repository.UpdateInvoiceInput) error {
	if updates.ReceiverName != nil && strings.TrimSpace(*updates.ReceiverName) == "" {
		return apperrors.ErrReceiverEmpty
	}
	if updates.Amount != nil && !updates.Amount.IsPositive() {
		return apperrors.ErrAmountNotPositive
	}
	if updates.Type != nil && !models.ValidInvoiceType(*updates.Type) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvoiceTypeInvalid, *updates.Type)
	}
	return nil
}
