package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InvoiceTypeDeposit  = "deposit"
	InvoiceTypePayment  = "payment"
	InvoiceTypeTransfer = "transfer"
)

// ValidInvoiceType reports whether t is one of the three known invoice types.
func ValidInvoiceType(t string) bool {
	switch t {
	case InvoiceTypeDeposit, InvoiceTypePayment, InvoiceTypeTransfer:
		return true
	default:
		return false
	}
}

type Invoice struct {
	ID           string
	UserID       uuid.UUID
	ReceiverName string
	Amount       decimal.Decimal
	Date         string // calendar date, ISO 8601
	Type         string
	ReceiptURL   string // optional, may be empty
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
