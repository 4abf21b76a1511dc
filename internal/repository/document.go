package repository

import (
	"context"

	"customer-api/internal/domain"
)

// DocumentRepository exposes persistence operations over document collections.
//
// Implementations stamp created_at on insert and updated_at on update, and
// report malformed identifiers as domain.ErrInvalidIdentifier and lost
// connectivity as domain.ErrStorageUnavailable.
type DocumentRepository interface {
	Init(ctx context.Context) error
	List(ctx context.Context, collection string, filter domain.Filter) ([]domain.Document, error)
	Insert(ctx context.Context, collection string, doc domain.Document) (domain.InsertResult, error)
	UpdateByID(ctx context.Context, collection, id string, fields domain.Document) (domain.UpdateResult, error)
	DeleteByID(ctx context.Context, collection, id string) (domain.DeleteResult, error)
	Close(ctx context.Context) error
}
