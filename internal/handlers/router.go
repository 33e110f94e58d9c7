package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mbertoldo/finbook/internal/handlers/middleware"
	"github.com/mbertoldo/finbook/internal/logger"
	"github.com/mbertoldo/finbook/internal/models"
	"github.com/mbertoldo/finbook/internal/repository"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	invoiceService invoiceService,
	balanceService balanceService,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	apiuser := http.NewServeMux()

	apiuser.Handle("POST /register", handleRegister(authService, logger))
	apiuser.Handle("POST /login", handleLogin(authService, logger))
	apiuser.Handle("POST /refresh", handleTokenRefresh(authService, logger))

	apiuser.Handle("POST /invoices", withAuth(handleCreateInvoice(invoiceService, logger)))
	apiuser.Handle("GET /invoices", withAuth(handleListInvoices(invoiceService, logger)))
	apiuser.Handle("GET /invoices/{id}", withAuth(handleGetInvoice(invoiceService, logger)))
	apiuser.Handle("PATCH /invoices/{id}", withAuth(handleUpdateInvoice(invoiceService, logger)))
	apiuser.Handle("DELETE /invoices/{id}", withAuth(handleDeleteInvoice(invoiceService, logger)))

	apiuser.Handle("GET /balance", withAuth(handleCurrentBalance(balanceService, logger)))
	apiuser.Handle("GET /balance/history", withAuth(handleBalanceHistory(balanceService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/user/", http.StripPrefix("/api/user", apiuser))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with username and password
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	Register(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Login user with username and password
	// Has to return apperrors.ErrUserNotFound if user not found
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Refresh tokens using refresh token
	// If token expired: has to return apperrors.ErrRefreshTokenExpired
	// If token not found: has to return apperrors.ErrRefreshTokenNotFound
	RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error)

	// Set auth tokens (access, refresh) to response
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)

	// Get refresh token from request
	GetRefreshString(r *http.Request) (string, error)

	// Get request and return user if it authenticated or error
	GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
}

type invoiceService interface {
	Add(ctx context.Context, input repository.CreateInvoiceInput) (models.Invoice, error)
	Update(ctx context.Context, userID uuid.UUID, invoiceID string, updates repository.UpdateInvoiceInput) (models.Invoice, error)
	Delete(ctx context.Context, userID uuid.UUID, invoiceID string, amount decimal.Decimal, invoiceType string) error
	GetByID(ctx context.Context, userID uuid.UUID, invoiceID string) (models.Invoice, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error)
	Refresh(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error)
}

type balanceService interface {
	CurrentBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.BalanceSnapshot, error)
}
