package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"customer-api/internal/domain"
	"customer-api/internal/repository"
)

const (
	createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	collection TEXT NOT NULL,
	body TEXT NOT NULL
);
`
	createCollectionIndex = `CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection, seq);`
)

// DocumentRepository stores documents as JSON bodies in a single table.
type DocumentRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewDocumentRepository(db *sql.DB) repository.DocumentRepository {
	return newDocumentRepository(db, time.Now)
}

func newDocumentRepository(db *sql.DB, now func() time.Time) *DocumentRepository {
	return &DocumentRepository{db: db, now: now}
}

func (r *DocumentRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createDocumentsTable); err != nil {
		return wrapErr("create documents table", err)
	}
	if _, err := r.db.ExecContext(ctx, createCollectionIndex); err != nil {
		return wrapErr("create documents index", err)
	}
	return nil
}

func (r *DocumentRepository) List(ctx context.Context, collection string, filter domain.Filter) ([]domain.Document, error) {
	query := `SELECT id, body FROM documents WHERE collection = ?`
	args := []any{collection}

	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		query += ` AND json_extract(body, ?) = ?`
		args = append(args, jsonPath(field), filter[field])
	}
	query += ` ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query documents", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var (
			id   string
			body string
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, wrapErr("scan document", err)
		}
		doc := domain.Document{}
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
		doc[domain.IDField] = id
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate documents", err)
	}
	return docs, nil
}

func (r *DocumentRepository) Insert(ctx context.Context, collection string, doc domain.Document) (domain.InsertResult, error) {
	record := doc.Clone()
	record[domain.CreatedAtField] = r.now().UTC()

	body, err := json.Marshal(record)
	if err != nil {
		return domain.InsertResult{}, fmt.Errorf("encode document: %w", err)
	}

	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO documents (id, collection, body)
VALUES (?, ?, ?)`,
		id,
		collection,
		string(body),
	); err != nil {
		return domain.InsertResult{}, wrapErr("insert document", err)
	}

	return domain.InsertResult{Acknowledged: true, InsertedID: id}, nil
}

func (r *DocumentRepository) UpdateByID(ctx context.Context, collection, id string, fields domain.Document) (domain.UpdateResult, error) {
	docID, err := parseID(id)
	if err != nil {
		return domain.UpdateResult{}, err
	}

	patch := fields.Clone()
	patch[domain.UpdatedAtField] = r.now().UTC()

	// top-level keys are replaced wholesale, nested objects and nulls included
	keys := make([]string, 0, len(patch))
	for key := range patch {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	setExpr := "body"
	args := make([]any, 0, 2*len(keys)+2)
	for _, key := range keys {
		value, err := json.Marshal(patch[key])
		if err != nil {
			return domain.UpdateResult{}, fmt.Errorf("encode field %s: %w", key, err)
		}
		setExpr += ", ?, json(?)"
		args = append(args, jsonPath(key), string(value))
	}
	args = append(args, collection, docID)

	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET body = json_set(`+setExpr+`)
WHERE collection = ? AND id = ?`,
		args...,
	)
	if err != nil {
		return domain.UpdateResult{}, wrapErr("update document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.UpdateResult{}, wrapErr("update rows affected", err)
	}

	return domain.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  n,
		ModifiedCount: n,
	}, nil
}

func (r *DocumentRepository) DeleteByID(ctx context.Context, collection, id string) (domain.DeleteResult, error) {
	docID, err := parseID(id)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, docID)
	if err != nil {
		return domain.DeleteResult{}, wrapErr("delete document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.DeleteResult{}, wrapErr("delete rows affected", err)
	}

	return domain.DeleteResult{Acknowledged: true, DeletedCount: n}, nil
}

func (r *DocumentRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", domain.ErrInvalidIdentifier, id, err)
	}
	return parsed.String(), nil
}

func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

func wrapErr(op string, err error) error {
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
