package item

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
)

type fieldSpec struct {
	kind fieldKind

	// required on create and full replace
	required bool
}

// schema is the single field table driving both validators.
var schema = map[string]fieldSpec{
	"name":        {kind: kindString, required: true},
	"price":       {kind: kindNumber, required: true},
	"category":    {kind: kindString, required: true},
	"description": {kind: kindString},
}

// allowedFields fixes the check and reporting order; map iteration
// would make error bodies nondeterministic.
var allowedFields = []string{"name", "price", "category", "description"}
