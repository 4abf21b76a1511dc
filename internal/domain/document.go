package domain

// Document is a schema-flexible record stored under a unique identifier.
type Document map[string]any

// IDField is the key under which a document's identifier is exposed.
const IDField = "_id"

// Timestamp fields stamped by the persistence layer.
const (
	CreatedAtField = "created_at"
	UpdatedAtField = "updated_at"
)

// Filter holds exact-match equality constraints keyed by field name.
type Filter map[string]string

// InsertResult acknowledges a single document insert.
type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// UpdateResult acknowledges a single document update.
type UpdateResult struct {
	Acknowledged  bool    `json:"acknowledged"`
	MatchedCount  int64   `json:"matchedCount"`
	ModifiedCount int64   `json:"modifiedCount"`
	UpsertedCount int64   `json:"upsertedCount"`
	UpsertedID    *string `json:"upsertedId"`
}

// DeleteResult acknowledges a single document delete.
type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// Clone returns a shallow copy of the document without its identifier.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}
