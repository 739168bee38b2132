package item

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Fields is a normalized document fragment ready for the gateway.
type Fields map[string]any

// ErrorKind tags a ValidationError with its failure class.
type ErrorKind int

const (
	// KindMissingFields: a create/replace body omitted required keys.
	KindMissingFields ErrorKind = iota
	// KindInvalidType: a field value has the wrong type or is out of range.
	KindInvalidType
	// KindEmptyPatch: a partial update carried no fields at all.
	KindEmptyPatch
	// KindUnknownFields: a partial update carried keys outside the schema.
	KindUnknownFields
)

// ValidationError is the invalid branch of a validator result. Fields
// enumerates every offending key, not just the first; Allowed is set for
// KindUnknownFields.
type ValidationError struct {
	Kind    ErrorKind
	Fields  []string
	Allowed []string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindMissingFields:
		return "missing required fields: " + strings.Join(e.Fields, ", ")
	case KindInvalidType:
		return "invalid value for field: " + strings.Join(e.Fields, ", ")
	case KindEmptyPatch:
		return "empty patch: no fields to update"
	case KindUnknownFields:
		return fmt.Sprintf("unknown fields: %s (allowed: %s)",
			strings.Join(e.Fields, ", "), strings.Join(e.Allowed, ", "))
	}
	return "validation failed"
}

// Timestamp renders t in the wire format used for createdAt/updatedAt.
// Nanosecond precision keeps updatedAt strictly after createdAt even for
// updates landing within the same second.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ValidateCreate checks a create body and stamps both timestamps to the
// same instant.
func ValidateCreate(body map[string]any, now time.Time) (Fields, *ValidationError) {
	fields, verr := validateFull(body)
	if verr != nil {
		return nil, verr
	}
	ts := Timestamp(now)
	fields["createdAt"] = ts
	fields["updatedAt"] = ts
	return fields, nil
}

// ValidateReplace checks a full-replace body and refreshes only
// updatedAt; createdAt is owned by the stored document.
func ValidateReplace(body map[string]any, now time.Time) (Fields, *ValidationError) {
	fields, verr := validateFull(body)
	if verr != nil {
		return nil, verr
	}
	fields["updatedAt"] = Timestamp(now)
	return fields, nil
}

// validateFull applies the create/replace rules in order, first failure
// wins: every required key present, then name, then category, then price.
// Absent keys, JSON null, and empty strings all count as missing.
func validateFull(body map[string]any) (Fields, *ValidationError) {
	var missing []string
	for _, name := range allowedFields {
		if schema[name].required && isMissing(body[name]) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Kind: KindMissingFields, Fields: missing}
	}

	for _, name := range []string{"name", "category"} {
		if _, ok := body[name].(string); !ok {
			return nil, &ValidationError{Kind: KindInvalidType, Fields: []string{name}}
		}
	}
	price, ok := body["price"].(float64)
	if !ok || !validPrice(price) {
		return nil, &ValidationError{Kind: KindInvalidType, Fields: []string{"price"}}
	}

	fields := Fields{
		"name":        body["name"],
		"price":       price,
		"category":    body["category"],
		"description": "",
	}
	if d, present := body["description"]; present && d != nil {
		fields["description"] = d
	}
	return fields, nil
}

// ValidatePatch checks a partial-update body: only keys that are present
// are validated, unknown keys are rejected wholesale, and an empty body
// is an error. The result carries just the supplied fields plus a fresh
// updatedAt; merging is the gateway's job.
func ValidatePatch(body map[string]any, now time.Time) (Fields, *ValidationError) {
	if len(body) == 0 {
		return nil, &ValidationError{Kind: KindEmptyPatch}
	}

	var unknown []string
	for key := range body {
		if _, ok := schema[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ValidationError{Kind: KindUnknownFields, Fields: unknown, Allowed: allowedFields}
	}

	fields := Fields{}
	for _, name := range allowedFields {
		v, present := body[name]
		if !present {
			continue
		}
		switch schema[name].kind {
		case kindString:
			s, ok := v.(string)
			if !ok {
				return nil, &ValidationError{Kind: KindInvalidType, Fields: []string{name}}
			}
			fields[name] = s
		case kindNumber:
			n, ok := v.(float64)
			if !ok || !validPrice(n) {
				return nil, &ValidationError{Kind: KindInvalidType, Fields: []string{name}}
			}
			fields[name] = n
		}
	}
	fields["updatedAt"] = Timestamp(now)
	return fields, nil
}

// isMissing implements the "absent, null, or empty string" rule for
// required keys. An absent map key reads as nil, same as JSON null.
func isMissing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}

func validPrice(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0) && n >= 0
}
