package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mbertoldo/finbook/internal/docstore"
)

// DBTX is the minimal pgx surface the store needs.
// Satisfied by *pgxpool.Pool and pgx.Tx, so the same store runs on a
// connection pool or inside a transaction (handy in tests).
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store persists documents in a single jsonb-backed table.
// Uniqueness for InsertUnique is enforced by partial unique indexes
// created in the migrations, so the keys arguments are only checked
// for being known to the schema.
type Store struct {
	DB DBTX
}

func NewStore(db DBTX) *Store {
	return &Store{DB: db}
}

const insertDocument = `
INSERT INTO documents (id, collection, data)
VALUES ($1, $2, $3)
RETURNING id
`

func (s *Store) Insert(ctx context.Context, collection string, data docstore.Document) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("can't encode document: %w", err)
	}

	rows, _ := s.DB.Query(ctx, insertDocument, uuid.New(), collection, payload)
	id, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}

	return id.String(), nil
}

func (s *Store) InsertUnique(ctx context.Context, collection string, data docstore.Document, keys ...string) (string, error) {
	id, err := s.Insert(ctx, collection, data)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return "", docstore.ErrConflict
	}

	return id, err
}

const getDocument = `
SELECT id, data FROM documents
WHERE collection = $1 AND id = $2
`

func (s *Store) GetByID(ctx context.Context, collection string, id string) (docstore.Record, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return docstore.Record{}, docstore.ErrNotFound
	}

	rows, _ := s.DB.Query(ctx, getDocument, collection, docID)
	record, err := pgx.CollectOneRow(rows, rowToRecord)

	switch {
	case err == nil:
		return record, nil
	case errors.Is(err, pgx.ErrNoRows):
		return record, docstore.ErrNotFound
	default:
		return record, fmt.Errorf("db error: %w", err)
	}
}

func (s *Store) Query(ctx context.Context, collection string, field string, value string, opts ...docstore.QueryOption) ([]docstore.Record, error) {
	o := docstore.BuildQueryOptions(opts)

	sql := `SELECT id, data FROM documents WHERE collection = $1 AND data->>$2 = $3`
	args := []any{collection, field, value}

	if o.OrderField != "" {
		sql += ` ORDER BY data->>$4`
		if o.Desc {
			sql += ` DESC`
		}
		args = append(args, o.OrderField)
	}

	rows, _ := s.DB.Query(ctx, sql, args...)
	records, err := pgx.CollectRows(rows, rowToRecord)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return records, nil
}

const updateDocument = `
UPDATE documents
SET data = data || $3
WHERE collection = $1 AND id = $2
`

func (s *Store) Update(ctx context.Context, collection string, id string, fields docstore.Document) error {
	docID, err := uuid.Parse(id)
	if err != nil {
		return docstore.ErrNotFound
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("can't encode document: %w", err)
	}

	tag, err := s.DB.Exec(ctx, updateDocument, collection, docID, payload)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}

	return nil
}

const deleteDocument = `
DELETE FROM documents
WHERE collection = $1 AND id = $2
`

func (s *Store) Delete(ctx context.Context, collection string, id string) error {
	docID, err := uuid.Parse(id)
	if err != nil {
		return docstore.ErrNotFound
	}

	tag, err := s.DB.Exec(ctx, deleteDocument, collection, docID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}

	return nil
}

func rowToRecord(row pgx.CollectableRow) (docstore.Record, error) {
	var id uuid.UUID
	var payload []byte

	if err := row.Scan(&id, &payload); err != nil {
		return docstore.Record{}, err
	}

	var data docstore.Document
	if err := json.Unmarshal(payload, &data); err != nil {
		return docstore.Record{}, fmt.Errorf("can't decode document: %w", err)
	}

	return docstore.Record{ID: id.String(), Data: data}, nil
}
