// Package docstore defines the document store contract used by the catalog:
// create, read, update and delete of JSON documents grouped by collection
// name.
//
// The production implementation lives in internal/easly/store (SQLite);
// Memory is used by tests.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned by Get, Update and Delete when no document with the
// given ID exists in the collection.
var ErrNotFound = errors.New("docstore: document not found")

// Well-known collection names.
const (
	CollectionInventory = "inventory"
	CollectionOrders    = "orders"
)

// Document is a stored record. Data holds the JSON body without the ID.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Store is the collection CRUD contract.
//
// List returns documents newest first; limit <= 0 means no limit.
// Update applies patch as a JSON merge patch (RFC 7396): keys present in
// patch overwrite, a nil value removes the key.
type Store interface {
	List(ctx context.Context, collection string, limit int) ([]Document, error)
	Get(ctx context.Context, collection, id string) (*Document, error)
	Create(ctx context.Context, collection string, data any) (string, error)
	Update(ctx context.Context, collection, id string, patch map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}
