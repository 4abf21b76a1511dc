package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"customer-api/internal/domain"
	"customer-api/internal/repository"
)

// DocumentRepository maps collections one-to-one onto Mongo collections.
type DocumentRepository struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

func NewDocumentRepository(client *mongo.Client, dbName string) repository.DocumentRepository {
	return &DocumentRepository{
		client: client,
		db:     client.Database(dbName),
		now:    time.Now,
	}
}

// Init verifies the server is reachable.
func (r *DocumentRepository) Init(ctx context.Context) error {
	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *DocumentRepository) List(ctx context.Context, collection string, filter domain.Filter) ([]domain.Document, error) {
	cursor, err := r.db.Collection(collection).Find(ctx, buildFilter(filter))
	if err != nil {
		return nil, wrapErr("find documents", err)
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, wrapErr("decode documents", err)
	}

	docs := make([]domain.Document, len(raw))
	for i := range raw {
		docs[i] = normalizeDocument(raw[i])
	}
	return docs, nil
}

func (r *DocumentRepository) Insert(ctx context.Context, collection string, doc domain.Document) (domain.InsertResult, error) {
	record := bson.M(doc.Clone())
	record[domain.CreatedAtField] = r.now().UTC()

	res, err := r.db.Collection(collection).InsertOne(ctx, record)
	if err != nil {
		return domain.InsertResult{}, wrapErr("insert document", err)
	}

	return domain.InsertResult{
		Acknowledged: true,
		InsertedID:   idString(res.InsertedID),
	}, nil
}

func (r *DocumentRepository) UpdateByID(ctx context.Context, collection, id string, fields domain.Document) (domain.UpdateResult, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return domain.UpdateResult{}, err
	}

	res, err := r.db.Collection(collection).UpdateOne(ctx,
		bson.M{domain.IDField: oid},
		setDocument(fields, r.now()),
	)
	if err != nil {
		return domain.UpdateResult{}, wrapErr("update document", err)
	}

	out := domain.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}
	if res.UpsertedID != nil {
		upserted := idString(res.UpsertedID)
		out.UpsertedID = &upserted
	}
	return out, nil
}

func (r *DocumentRepository) DeleteByID(ctx context.Context, collection, id string) (domain.DeleteResult, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	res, err := r.db.Collection(collection).DeleteOne(ctx, bson.M{domain.IDField: oid})
	if err != nil {
		return domain.DeleteResult{}, wrapErr("delete document", err)
	}
	return domain.DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}

func (r *DocumentRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func buildFilter(filter domain.Filter) bson.M {
	out := bson.M{}
	for field, value := range filter {
		out[field] = value
	}
	return out
}

func setDocument(fields domain.Document, now time.Time) bson.M {
	set := bson.M(fields.Clone())
	set[domain.UpdatedAtField] = now.UTC()
	return bson.M{"$set": set}
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q: %v", domain.ErrInvalidIdentifier, id, err)
	}
	return oid, nil
}

func idString(id any) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(id)
}

func normalizeDocument(raw bson.M) domain.Document {
	doc := make(domain.Document, len(raw))
	for k, v := range raw {
		doc[k] = normalizeValue(v)
	}
	return doc
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case bson.M:
		return map[string]any(normalizeDocument(val))
	case bson.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(val))
		for i := range val {
			out[i] = normalizeValue(val[i])
		}
		return out
	default:
		return v
	}
}

func isUnavailable(err error) bool {
	var selErr topology.ServerSelectionError
	return mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) ||
		errors.Is(err, mongo.ErrClientDisconnected) ||
		errors.As(err, &selErr)
}

func wrapErr(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
