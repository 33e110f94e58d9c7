package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mbertoldo/finbook/internal/docstore/memstore"
	"github.com/mbertoldo/finbook/internal/logger"
	"github.com/mbertoldo/finbook/internal/repository/docrepo"
	"github.com/mbertoldo/finbook/internal/service/auth"
	"github.com/mbertoldo/finbook/internal/service/auth/tokenmanager"
	"github.com/mbertoldo/finbook/internal/service/invoice"
	"github.com/mbertoldo/finbook/internal/service/ledger"
)

// newTestServer wires the whole stack over the in-memory store
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	storage := docrepo.NewStorage(memstore.New())

	tm, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret-key"}, storage.RefreshTokens())
	require.NoError(t, err)

	ledgerService := ledger.NewService(storage.Snapshots())
	invoiceService := invoice.NewService(storage.Invoices(), ledgerService, nil)
	authService, err := auth.NewService(auth.Config{}, tm, storage.Users(), ledgerService, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(authService, invoiceService, ledgerService, logger.NewNoOpLogger()))
	t.Cleanup(srv.Close)
	return srv
}

type client struct {
	t       *testing.T
	baseURL string
	access  string
}

func (c *client) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	require.NoError(c.t, err)
	if c.access != "" {
		req.Header.Set("Authorization", "Bearer "+c.access)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	resp.Body.Close() //nolint:errcheck

	return resp, data
}

// register creates a user and returns a client authenticated as them
func register(t *testing.T, srv *httptest.Server, username string) *client {
	t.Helper()

	c := &client{t: t, baseURL: srv.URL}
	resp, body := c.do(http.MethodPost, "/api/user/register", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equalf(t, http.StatusOK, resp.StatusCode, "register failed: %s", body)

	header := resp.Header.Get("Authorization")
	require.NotEmpty(t, header, "register must return an access token")
	c.access = header[len("Bearer "):]
	return c
}

func TestAuthEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("register login refresh", func(t *testing.T) {
		srv := newTestServer(t)
		c := &client{t: t, baseURL: srv.URL}

		resp, _ := c.do(http.MethodPost, "/api/user/register", map[string]string{
			"username": "test-user",
			"password": "password123",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, resp.Header.Get("Authorization"))

		resp, _ = c.do(http.MethodPost, "/api/user/login", map[string]string{
			"username": "test-user",
			"password": "password123",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// Refresh rides on the cookie the login set
		refreshCookie := resp.Cookies()[0]
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/user/refresh", nil)
		require.NoError(t, err)
		req.AddCookie(refreshCookie)

		refreshResp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer refreshResp.Body.Close() //nolint:errcheck
		require.Equal(t, http.StatusOK, refreshResp.StatusCode)
		require.NotEmpty(t, refreshResp.Header.Get("Authorization"))
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		srv := newTestServer(t)
		c := &client{t: t, baseURL: srv.URL}

		body := map[string]string{"username": "test-user", "password": "password123"}
		resp, _ := c.do(http.MethodPost, "/api/user/register", body)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = c.do(http.MethodPost, "/api/user/register", body)
		require.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("wrong password unauthorized", func(t *testing.T) {
		srv := newTestServer(t)
		register(t, srv, "test-user")

		c := &client{t: t, baseURL: srv.URL}
		resp, _ := c.do(http.MethodPost, "/api/user/login", map[string]string{
			"username": "test-user",
			"password": "wrong-password",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("short password rejected", func(t *testing.T) {
		srv := newTestServer(t)

		c := &client{t: t, baseURL: srv.URL}
		resp, _ := c.do(http.MethodPost, "/api/user/register", map[string]string{
			"username": "test-user",
			"password": "short",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestProtectedEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	anon := &client{t: t, baseURL: srv.URL}

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/user/invoices"},
		{http.MethodGet, "/api/user/invoices"},
		{http.MethodGet, "/api/user/invoices/some-id"},
		{http.MethodPatch, "/api/user/invoices/some-id"},
		{http.MethodDelete, "/api/user/invoices/some-id"},
		{http.MethodGet, "/api/user/balance"},
		{http.MethodGet, "/api/user/balance/history"},
	} {
		resp, _ := anon.do(tc.method, tc.path, nil)
		require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "%s %s must require auth", tc.method, tc.path)
	}
}

func TestInvoiceEndpoints(t *testing.T) {
	t.Parallel()

	validInvoice := map[string]any{
		"receiver_name": "Grocery store",
		"amount":        120.50,
		"date":          "2026-08-28T00:00:00Z",
		"type":          "payment",
		"receipt_url":   "https://receipts.example/1",
	}

	t.Run("create and read back", func(t *testing.T) {
		srv := newTestServer(t)
		c := register(t, srv, "test-user")

		resp, body := c.do(http.MethodPost, "/api/user/invoices", validInvoice)
		require.Equalf(t, http.StatusOK, resp.StatusCode, "create failed: %s", body)

		var created struct {
			ID     string  `json:"id"`
			Amount float64 `json:"amount"`
			Type   string  `json:"type"`
		}
		require.NoError(t, json.Unmarshal(body, &created))
		require.NotEmpty(t, created.ID)
		require.Equal(t, 120.50, created.Amount)
		require.Equal(t, "payment", created.Type)

		resp, body = c.do(http.MethodGet, "/api/user/invoices/"+created.ID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var stored struct {
			ReceiverName string `json:"receiver_name"`
		}
		require.NoError(t, json.Unmarshal(body, &stored))
		require.Equal(t, "Grocery store", stored.ReceiverName)
	})

	t.Run("create moves the balance", func(t *testing.T) {
		srv := newTestServer(t)
		c := register(t, srv, "test-user")

		deposit := map[string]any{
			"receiver_name": "Employer",
			"amount":        500,
			"date":          "2026-08-28T00:00:00Z",
			"type":          "deposit",
		}
		resp, _ := c.do(http.MethodPost, "/api/user/invoices", deposit)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = c.do(http.MethodPost, "/api/user/invoices", validInvoice)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := c.do(http.MethodGet, "/api/user/balance", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var balance struct {
			Current float64 `json:"current"`
		}
		require.NoError(t, json.Unmarshal(body, &balance))
		require.Equal(t, 379.50, balance.Current)
	})

	t.Run("validation errors", func(t *testing.T) {
		srv := newTestServer(t)
		c := register(t, srv, "test-user")

		t.Run("missing fields", func(t *testing.T) {
			resp, _ := c.do(http.MethodPost, "/api/user/invoices", map[string]any{})
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})

		t.Run("unknown type", func(t *testing.T) {
			bad := map[string]any{
				"receiver_name": "Grocery store",
				"amount":        10,
				"date":          "2026-08-28T00:00:00Z",
				"type":          "salary",
			}
			resp, _ := c.do(http.MethodPost, "/api/user/invoices", bad)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})

		t.Run("negative amount", func(t *testing.T) {
			bad := map[string]any{
				"receiver_name": "Grocery store",
				"amount":        -10,
				"date":          "2026-08-28T00:00:00Z",
				"type":          "payment",
			}
			resp, _ := c.do(http.MethodPost, "/api/user/invoices", bad)
			require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		})
	})

	t.Run("list", func(t *testing.T) {
		srv := newTestServer(t)
		c := register(t, srv, "test-user")

		for range 2 {
			resp, _ := c.do(http.MethodPost, "/api/user/invoices", validInvoice)
			require.Equal(t, http.StatusOK, resp.StatusCode)
		}

		resp, body := c.do(http.MethodGet, "/api/user/invoices", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var list []map[string]any
		require.NoError(t, json.Unmarshal(body, &list))
		require.Len(t, list, 2)

		resp, body = c.do(http.MethodGet, "/api/user/invoices?refresh=true", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, json.Unmarshal(body, &list))
		require.Len(t, list, 2)
	})

	t.Run("update keeps the balance", func(t *testing.T) {
		srv := newTestServer(t)
		c := register(t, srv, "test-user")

		resp, body := c.do(http.MethodPost, "/api/user/invoices", validInvoice)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var created struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(body, &created))

		resp, body = c.do(http.MethodPatch, "/api/user/invoices/"+created.ID, map[string]any{
			"amount": 9000,
		})
		require.Equalf(t, http.StatusOK, resp.StatusCode, "update failed: %s", body)

		var updated struct {
			Amount float64 `json:"amount"`
		}
		require.NoError(t, json.Unmarshal(body, &updated))
		require.Equal(t, float64(9000), updated.Amount)

		// The recorded balance still reflects the original amount
		resp, body = c.do(http.MethodGet, "/api/user/balance", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var balance struct {
			Current float64 `json:"current"`
		}
		require.NoError(t, json.Unmarshal(body, &balance))
		require.Equal(t, -120.50, balance.Current)
	})

	t.Run("delete restores the balance", func(t *testing.T) {
		srv := newTestServer(t)
		c := register(t, srv, "test-user")

		resp, body := c.do(http.MethodPost, "/api/user/invoices", validInvoice)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var created struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(body, &created))

		resp, _ = c.do(http.MethodDelete, "/api/user/invoices/"+created.ID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = c.do(http.MethodGet, "/api/user/invoices/"+created.ID, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, body = c.do(http.MethodGet, "/api/user/balance", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var balance struct {
			Current float64 `json:"current"`
		}
		require.NoError(t, json.Unmarshal(body, &balance))
		require.Equal(t, float64(0), balance.Current)
	})

	t.Run("foreign invoice is not found", func(t *testing.T) {
		srv := newTestServer(t)
		owner := register(t, srv, "owner")
		stranger := register(t, srv, "stranger")

		resp, body := owner.do(http.MethodPost, "/api/user/invoices", validInvoice)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var created struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(body, &created))

		resp, _ = stranger.do(http.MethodGet, "/api/user/invoices/"+created.ID, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, _ = stranger.do(http.MethodDelete, "/api/user/invoices/"+created.ID, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestBalanceEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("fresh account", func(t *testing.T) {
		srv := newTestServer(t)
		c := register(t, srv, "test-user")

		resp, body := c.do(http.MethodGet, "/api/user/balance", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var balance struct {
			Current float64 `json:"current"`
		}
		require.NoError(t, json.Unmarshal(body, &balance))
		require.Equal(t, float64(0), balance.Current)

		// Registration bootstraps one zero snapshot
		resp, body = c.do(http.MethodGet, "/api/user/balance/history", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var history []struct {
			Balance float64 `json:"current_balance"`
			Date    string  `json:"date"`
		}
		require.NoError(t, json.Unmarshal(body, &history))
		require.Len(t, history, 1)
		require.Equal(t, float64(0), history[0].Balance)
		require.NotEmpty(t, history[0].Date)
	})

	t.Run("history records every change", func(t *testing.T) {
		srv := newTestServer(t)
		c := register(t, srv, "test-user")

		deposit := map[string]any{
			"receiver_name": "Employer",
			"amount":        500,
			"date":          "2026-08-28T00:00:00Z",
			"type":          "deposit",
		}
		resp, _ := c.do(http.MethodPost, "/api/user/invoices", deposit)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := c.do(http.MethodGet, "/api/user/balance/history", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var history []struct {
			Balance float64 `json:"current_balance"`
		}
		require.NoError(t, json.Unmarshal(body, &history))
		require.Len(t, history, 2, "bootstrap snapshot plus the deposit")
	})
}
