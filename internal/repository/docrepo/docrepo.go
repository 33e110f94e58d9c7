// Package docrepo implements the repositories on top of a
// collection-oriented document store. Persisted field names follow the
// store's historical schema: snake_case, amounts and timestamps as
// strings.
package docrepo

import (
	"fmt"
	"time"

	"github.com/mbertoldo/finbook/internal/docstore"
	"github.com/mbertoldo/finbook/internal/repository"
)

const (
	collectionInvoices      = "personal_invoices"
	collectionBalances      = "user_balances"
	collectionUsers         = "users"
	collectionRefreshTokens = "refresh_tokens"
)

// timeLayout is fixed-width on purpose: the store orders date fields by
// plain string comparison, and RFC3339Nano trims trailing fractional
// zeros, which breaks that ordering for same-second timestamps.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Storage struct {
	store docstore.Store
	now   repository.Clock
}

func NewStorage(store docstore.Store) *Storage {
	return &Storage{store: store, now: time.Now}
}

// WithClock replaces the time source, for tests
func (s *Storage) WithClock(now repository.Clock) *Storage {
	s.now = now
	return s
}

func (s *Storage) Invoices() repository.InvoiceRepo {
	return &InvoiceRepo{Store: s.store, Now: s.now}
}

func (s *Storage) Snapshots() repository.SnapshotRepo {
	return &SnapshotRepo{Store: s.store, Now: s.now}
}

func (s *Storage) Users() repository.UserRepo {
	return &UserRepo{Store: s.store, Now: s.now}
}

func (s *Storage) RefreshTokens() repository.RefreshTokenRepo {
	return &RefreshTokenRepo{Store: s.store}
}

func fieldString(data docstore.Document, field string) string {
	v, ok := data[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// parseTime reads timeLayout values; RFC3339Nano is a superset of the
// layout, so parsing stays lenient about the fraction width
func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
