// Package store provides the persistence gateways for item documents.
package store

import (
	"context"
	"errors"

	"github.com/jacentio/pantry/item"
	"github.com/jacentio/pantry/query"
)

// ErrNotFound is returned when an operation targets a document that does
// not exist in the collection.
var ErrNotFound = errors.New("pantry: document not found")

// Gateway is the single boundary to the document store. Implementations
// report a missing document as ErrNotFound; any other error is a
// transport or store failure. Zero matched documents on a replace,
// patch, or delete is ErrNotFound, never a silent success.
type Gateway interface {
	// List returns every document in the collection matching q, with
	// q's sort and projection applied.
	List(ctx context.Context, collection string, q query.Query) ([]map[string]any, error)

	// Get returns the document with the given id.
	Get(ctx context.Context, collection string, id item.ID) (map[string]any, error)

	// Create inserts fields as a new document and returns its
	// store-generated id.
	Create(ctx context.Context, collection string, fields item.Fields) (item.ID, error)

	// Replace overwrites every client-owned field of an existing
	// document. The stored createdAt survives.
	Replace(ctx context.Context, collection string, id item.ID, fields item.Fields) error

	// Patch merges fields into an existing document, leaving fields
	// absent from the patch untouched.
	Patch(ctx context.Context, collection string, id item.ID, fields item.Fields) error

	// Delete removes an existing document.
	Delete(ctx context.Context, collection string, id item.ID) error
}
