// Package targeting evaluates operator-configured targeting rules against
// caller-supplied user attributes and a server-derived platform class.
//
// A Rules value is a conjunction of independent predicate groups: attribute
// equality, segment intersection, and platform membership. Absent groups are
// vacuously true, so the zero Rules value matches everyone. Evaluation is
// fail-closed throughout: a missing attribute, a type mismatch, or an
// unknown platform excludes the user rather than including them, and no
// input can make evaluation fail with an error.
//
// Platform classification is intentionally not attribute-driven. Clients
// could assert any attribute they like, so the platform comes from the
// request's User-Agent header classified server-side:
//
//	platform := targeting.DetectPlatform(r.UserAgent())
//	ok := rules.Matches(attrs, platform)
//
// Attribute values are narrowed to scalars at comparison time. Strings and
// booleans compare directly, every numeric width is normalized to float64,
// and anything else (maps, slices, nil) is a mismatch. There is no
// cross-type coercion: the rule value "42" never matches the attribute 42.
package targeting
