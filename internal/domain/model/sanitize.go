package model

import (
	"encoding/json"
	"math"
)

// Sanitized record fields.
const (
	FieldID        = "id"
	FieldLatLon    = "latlon"
	FieldSecurity  = "security"
	FieldUserAdded = "user_added"
	FieldReviewer  = "reviewer"
)

// WriteKind distinguishes inserts from updates when sanitizing.
type WriteKind int

// Write kinds.
const (
	WriteInsert WriteKind = iota
	WriteUpdate
)

// Override describes a caller-supplied field that Sanitize replaced or removed.
type Override struct {
	Field string
}

// Sanitize returns a copy of in that is safe to forward to the store.
// user_added and reviewer are always overwritten, a falsy security becomes
// null, and updates never carry id or latlon. in is not modified.
func Sanitize(kind WriteKind, in Record, sess *Session) (Record, []Override) {
	out := make(Record, len(in)+3)
	for k, v := range in {
		out[k] = v
	}

	var overrides []Override
	if kind == WriteUpdate {
		for _, f := range []string{FieldID, FieldLatLon} {
			if _, ok := out[f]; ok {
				delete(out, f)
				overrides = append(overrides, Override{Field: f})
			}
		}
	}

	if v, ok := out[FieldSecurity]; !ok || !Truthy(v) {
		if ok && v != nil {
			overrides = append(overrides, Override{Field: FieldSecurity})
		}
		out[FieldSecurity] = nil
	}

	if v, ok := out[FieldUserAdded]; ok && v != true {
		overrides = append(overrides, Override{Field: FieldUserAdded})
	}
	out[FieldUserAdded] = true

	reviewer := sess.UserID()
	if v, ok := out[FieldReviewer]; ok && v != reviewer {
		overrides = append(overrides, Override{Field: FieldReviewer})
	}
	out[FieldReviewer] = reviewer

	return out, overrides
}

// Truthy applies JavaScript truthiness to a decoded JSON value.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return true
		}
		return f != 0 && !math.IsNaN(f)
	case float64:
		return x != 0 && !math.IsNaN(x)
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	default:
		return true
	}
}
