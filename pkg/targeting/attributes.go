package targeting

// Attributes is the open key/value bag callers supply for rule evaluation.
// Targeting rules are operator-configured at runtime, so the shape cannot be
// known at compile time; values are narrowed to scalars only at the point of
// comparison.
type Attributes map[string]any

// SegmentsKey is the reserved attribute carrying the user's segment list.
const SegmentsKey = "segments"

// Segments extracts the user's segment list from the attribute bag. Both
// []string and []any (the shape produced by JSON/YAML decoding) are
// accepted; non-string elements are skipped.
func (a Attributes) Segments() []string {
	raw, ok := a[SegmentsKey]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		segments := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				segments = append(segments, s)
			}
		}
		return segments
	default:
		return nil
	}
}

// scalarEqual compares an attribute value with a rule value after narrowing
// both to a supported scalar type. Unsupported types and cross-type
// comparisons are mismatches, never coercions.
func scalarEqual(attr, rule any) bool {
	switch r := rule.(type) {
	case string:
		a, ok := attr.(string)
		return ok && a == r
	case bool:
		a, ok := attr.(bool)
		return ok && a == r
	default:
		rf, ok := toFloat64(rule)
		if !ok {
			return false
		}
		af, ok := toFloat64(attr)
		return ok && af == rf
	}
}

// toFloat64 normalizes every numeric width to float64 so that a YAML int
// rule value matches a JSON float attribute of equal magnitude.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
