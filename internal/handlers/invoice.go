package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbertoldo/finbook/internal/apperrors"
	"github.com/mbertoldo/finbook/internal/handlers/render"
	"github.com/mbertoldo/finbook/internal/handlers/userctx"
	"github.com/mbertoldo/finbook/internal/logger"
	"github.com/mbertoldo/finbook/internal/models"
	"github.com/mbertoldo/finbook/internal/repository"
)

type invoiceResponse struct {
	ID           string  `json:"id"`
	ReceiverName string  `json:"receiver_name"`
	Amount       float64 `json:"amount"`
	Date         string  `json:"date"`
	Type         string  `json:"type"`
	ReceiptURL   string  `json:"receipt_url,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toInvoiceResponse(invoice models.Invoice) invoiceResponse {
	amount, _ := invoice.Amount.Float64()
	return invoiceResponse{
		ID:           invoice.ID,
		ReceiverName: invoice.ReceiverName,
		Amount:       amount,
		Date:         invoice.Date,
		Type:         invoice.Type,
		ReceiptURL:   invoice.ReceiptURL,
		CreatedAt:    invoice.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    invoice.UpdatedAt.Format(time.RFC3339),
	}
}

func handleCreateInvoice(invoices invoiceService, l logger.Logger) http.Handler {
	type request struct {
		ReceiverName string          `json:"receiver_name" validate:"required"`
		Amount       decimal.Decimal `json:"amount" validate:"required"`
		Date         string          `json:"date" validate:"required"`
		Type         string          `json:"type" validate:"required,invoicetype"`
		ReceiptURL   string          `json:"receipt_url"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		invoice, err := invoices.Add(r.Context(), repository.CreateInvoiceInput{
			UserID:       user.ID,
			ReceiverName: data.ReceiverName,
			Amount:       data.Amount,
			Date:         data.Date,
			Type:         data.Type,
			ReceiptURL:   data.ReceiptURL,
		})

		switch {
		case err == nil:
			render.JSON(w, toInvoiceResponse(invoice))
		case errors.Is(err, apperrors.ErrAmountNotPositive),
			errors.Is(err, apperrors.ErrReceiverEmpty),
			errors.Is(err, apperrors.ErrInvoiceTypeInvalid):
			render.ServiceError(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			l.Error("Failed to create invoice", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListInvoices(invoices invoiceService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		list := invoices.List
		if r.URL.Query().Get("refresh") == "true" {
			list = invoices.Refresh
		}

		result, err := list(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to list invoices", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		response := make([]invoiceResponse, 0, len(result))
		for _, invoice := range result {
			response = append(response, toInvoiceResponse(invoice))
		}
		render.JSON(w, response)
	})
}

func handleGetInvoice(invoices invoiceService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		invoice, err := invoices.GetByID(r.Context(), user.ID, r.PathValue("id"))

		switch {
		case err == nil:
			render.JSON(w, toInvoiceResponse(invoice))
		case errors.Is(err, apperrors.ErrInvoiceNotFound):
			render.ServiceError(w, "Invoice not found", http.StatusNotFound)
		default:
			l.Error("Failed to get invoice", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleUpdateInvoice(invoices invoiceService, l logger.Logger) http.Handler {
	type request struct {
		ReceiverName *string          `json:"receiver_name"`
		Amount       *decimal.Decimal `json:"amount"`
		Date         *string          `json:"date"`
		Type         *string          `json:"type" validate:"omitempty,invoicetype"`
		ReceiptURL   *string          `json:"receipt_url"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		invoice, err := invoices.Update(r.Context(), user.ID, r.PathValue("id"), repository.UpdateInvoiceInput{
			ReceiverName: data.ReceiverName,
			Amount:       data.Amount,
			Date:         data.Date,
			Type:         data.Type,
			ReceiptURL:   data.ReceiptURL,
		})

		switch {
		case err == nil:
			render.JSON(w, toInvoiceResponse(invoice))
		case errors.Is(err, apperrors.ErrInvoiceNotFound):
			render.ServiceError(w, "Invoice not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrAmountNotPositive),
			errors.Is(err, apperrors.ErrReceiverEmpty),
			errors.Is(err, apperrors.ErrInvoiceTypeInvalid):
			render.ServiceError(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			l.Error("Failed to update invoice", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleDeleteInvoice(invoices invoiceService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		// The ledger reversal needs the stored amount and type, not
		// whatever the client claims they were
		invoice, err := invoices.GetByID(r.Context(), user.ID, r.PathValue("id"))
		if err != nil {
			if errors.Is(err, apperrors.ErrInvoiceNotFound) {
				render.ServiceError(w, "Invoice not found", http.StatusNotFound)
				return
			}
			l.Error("Failed to get invoice before delete", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		err = invoices.Delete(r.Context(), user.ID, invoice.ID, invoice.Amount, invoice.Type)

		switch {
		case err == nil:
			render.JSON(w, response{Message: "Invoice deleted"})
		case errors.Is(err, apperrors.ErrInvoiceNotFound):
			render.ServiceError(w, "Invoice not found", http.StatusNotFound)
		default:
			l.Error("Failed to delete invoice", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
