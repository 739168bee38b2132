// Package item defines the item document model, its identifier codec,
// and the validation layer between raw request bodies and the store.
package item

import (
	"errors"

	"github.com/google/uuid"
)

// Collection is the collection holding item documents.
const Collection = "items"

// LegacyCollection is the historical products collection, still served
// by the read-only legacy list route.
const LegacyCollection = "products"

// ID is a validated item identifier in its canonical string form.
// IDs are generated by the store at create time and immutable thereafter.
type ID string

// ErrInvalidID is returned when a raw identifier does not parse.
var ErrInvalidID = errors.New("pantry: invalid item id")

// ParseID validates a raw path parameter and returns the typed
// identifier. It is called before any store work so malformed ids never
// reach a gateway.
func ParseID(raw string) (ID, error) {
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", ErrInvalidID
	}
	return ID(u.String()), nil
}

// NewID returns a freshly generated identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string {
	return string(id)
}
