package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mbertoldo/finbook/internal/cache"
	"github.com/mbertoldo/finbook/internal/cache/memcache"
	"github.com/mbertoldo/finbook/internal/cache/rediscache"
	"github.com/mbertoldo/finbook/internal/docstore"
	"github.com/mbertoldo/finbook/internal/docstore/memstore"
	"github.com/mbertoldo/finbook/internal/docstore/postgres"
	"github.com/mbertoldo/finbook/internal/handlers"
	"github.com/mbertoldo/finbook/internal/logger"
	"github.com/mbertoldo/finbook/internal/repository/cached"
	"github.com/mbertoldo/finbook/internal/repository/docrepo"
	"github.com/mbertoldo/finbook/internal/service/auth"
	"github.com/mbertoldo/finbook/internal/service/auth/tokenmanager"
	"github.com/mbertoldo/finbook/internal/service/invoice"
	"github.com/mbertoldo/finbook/internal/service/ledger"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the document store. Without a DSN the service keeps
	// everything in memory, which only makes sense for local runs.
	var store docstore.Store
	switch c.DatabaseDSN {
	case "":
		logger.Warn("No database DSN configured, using in-memory store")
		store = memstore.New()
	default:
		pool, err := postgres.ConnectAndMigrate(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
		}
		store = postgres.NewStore(pool)
	}

	// Shared cache when redis is configured, in-process otherwise
	var docCache cache.Cache
	switch c.RedisAddr {
	case "":
		docCache = memcache.New()
	default:
		docCache = rediscache.New(redis.NewClient(&redis.Options{Addr: c.RedisAddr}))
	}

	// Initialize repositories
	storage := docrepo.NewStorage(store)
	invoiceRepo := cached.NewInvoiceRepo(storage.Invoices(), docCache)
	snapshotRepo := cached.NewSnapshotRepo(storage.Snapshots(), docCache)

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey}, storage.RefreshTokens())
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	ledgerService := ledger.NewService(snapshotRepo)
	invoiceService := invoice.NewService(invoiceRepo, ledgerService, logger)
	authService, err := auth.NewService(auth.Config{}, tokenManager, storage.Users(), ledgerService, logger)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	mux := handlers.NewRouter(
		authService,
		invoiceService,
		ledgerService,
		logger,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
