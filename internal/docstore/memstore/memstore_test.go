package memstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mbertoldo/finbook/internal/docstore"
)

func TestMemStore(t *testing.T) {
	t.Parallel()

	t.Run("insert and get", func(t *testing.T) {
		s := New()

		id, err := s.Insert(t.Context(), "invoices", docstore.Document{"amount": "120"})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		record, err := s.GetByID(t.Context(), "invoices", id)
		require.NoError(t, err)
		require.Equal(t, "120", record.Data["amount"])
	})

	t.Run("get unknown id", func(t *testing.T) {
		s := New()

		_, err := s.GetByID(t.Context(), "invoices", "nope")
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("insert unique", func(t *testing.T) {
		t.Run("conflict on same keys", func(t *testing.T) {
			s := New()

			_, err := s.InsertUnique(t.Context(), "balances",
				docstore.Document{"user_id": "u1", "seq": "1", "current_balance": "100"},
				"user_id", "seq")
			require.NoError(t, err)

			_, err = s.InsertUnique(t.Context(), "balances",
				docstore.Document{"user_id": "u1", "seq": "1", "current_balance": "999"},
				"user_id", "seq")
			require.ErrorIs(t, err, docstore.ErrConflict)
		})

		t.Run("no conflict when any key differs", func(t *testing.T) {
			s := New()

			_, err := s.InsertUnique(t.Context(), "balances",
				docstore.Document{"user_id": "u1", "seq": "1"}, "user_id", "seq")
			require.NoError(t, err)

			_, err = s.InsertUnique(t.Context(), "balances",
				docstore.Document{"user_id": "u1", "seq": "2"}, "user_id", "seq")
			require.NoError(t, err)

			_, err = s.InsertUnique(t.Context(), "balances",
				docstore.Document{"user_id": "u2", "seq": "1"}, "user_id", "seq")
			require.NoError(t, err)
		})
	})

	t.Run("query filters by field", func(t *testing.T) {
		s := New()

		_, err := s.Insert(t.Context(), "invoices", docstore.Document{"user_id": "u1", "amount": "10"})
		require.NoError(t, err)
		_, err = s.Insert(t.Context(), "invoices", docstore.Document{"user_id": "u2", "amount": "20"})
		require.NoError(t, err)

		records, err := s.Query(t.Context(), "invoices", "user_id", "u1")
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, "10", records[0].Data["amount"])
	})

	t.Run("query orders descending", func(t *testing.T) {
		s := New()

		for _, date := range []string{"2026-08-26", "2026-08-28", "2026-08-27"} {
			_, err := s.Insert(t.Context(), "invoices", docstore.Document{"user_id": "u1", "date": date})
			require.NoError(t, err)
		}

		records, err := s.Query(t.Context(), "invoices", "user_id", "u1", docstore.OrderByDesc("date"))
		require.NoError(t, err)
		require.Len(t, records, 3)
		require.Equal(t, "2026-08-28", records[0].Data["date"])
		require.Equal(t, "2026-08-27", records[1].Data["date"])
		require.Equal(t, "2026-08-26", records[2].Data["date"])
	})

	t.Run("update merges fields", func(t *testing.T) {
		s := New()

		id, err := s.Insert(t.Context(), "invoices", docstore.Document{"amount": "10", "type": "payment"})
		require.NoError(t, err)

		err = s.Update(t.Context(), "invoices", id, docstore.Document{"amount": "20"})
		require.NoError(t, err)

		record, err := s.GetByID(t.Context(), "invoices", id)
		require.NoError(t, err)
		require.Equal(t, "20", record.Data["amount"], "updated field changes")
		require.Equal(t, "payment", record.Data["type"], "untouched field stays")
	})

	t.Run("update unknown id", func(t *testing.T) {
		s := New()

		err := s.Update(t.Context(), "invoices", "nope", docstore.Document{"amount": "20"})
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := New()

		id, err := s.Insert(t.Context(), "invoices", docstore.Document{"amount": "10"})
		require.NoError(t, err)

		require.NoError(t, s.Delete(t.Context(), "invoices", id))

		_, err = s.GetByID(t.Context(), "invoices", id)
		require.ErrorIs(t, err, docstore.ErrNotFound)

		err = s.Delete(t.Context(), "invoices", id)
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		s := New()

		id, err := s.Insert(t.Context(), "invoices", docstore.Document{"amount": "10"})
		require.NoError(t, err)

		record, err := s.GetByID(t.Context(), "invoices", id)
		require.NoError(t, err)
		record.Data["amount"] = "999"

		fresh, err := s.GetByID(t.Context(), "invoices", id)
		require.NoError(t, err)
		require.Equal(t, "10", fresh.Data["amount"])
	})
}
