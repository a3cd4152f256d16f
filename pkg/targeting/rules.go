package targeting

import "slices"

// Rules is a conjunction of optional predicate groups. All present groups
// must hold; absent groups are vacuously true. The zero value matches every
// user.
type Rules struct {
	// Attributes lists exact-match requirements against the caller's
	// attribute bag. Values must be scalars (string, bool, numeric).
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`

	// Segments requires the user's segment list to intersect this one.
	Segments []string `json:"segments,omitempty" yaml:"segments,omitempty"`

	// Platforms requires the request's derived platform to be listed.
	Platforms []Platform `json:"platforms,omitempty" yaml:"platforms,omitempty"`
}

// Empty reports whether no predicate group is configured.
func (r Rules) Empty() bool {
	return len(r.Attributes) == 0 && len(r.Segments) == 0 && len(r.Platforms) == 0
}

// Matches evaluates the rule conjunction against the user's attributes and
// the request's platform. Evaluation short-circuits on the first failing
// group and is fail-closed: missing attributes, type mismatches, empty
// segment lists, and unknown platforms all exclude the user. It never
// panics or errors regardless of input shape.
func (r Rules) Matches(attrs Attributes, platform Platform) bool {
	if !r.matchesAttributes(attrs) {
		return false
	}
	if !r.matchesSegments(attrs) {
		return false
	}
	return r.matchesPlatform(platform)
}

func (r Rules) matchesAttributes(attrs Attributes) bool {
	for key, want := range r.Attributes {
		got, ok := attrs[key]
		if !ok {
			return false
		}
		if !scalarEqual(got, want) {
			return false
		}
	}
	return true
}

func (r Rules) matchesSegments(attrs Attributes) bool {
	if len(r.Segments) == 0 {
		return true
	}

	for _, segment := range attrs.Segments() {
		if slices.Contains(r.Segments, segment) {
			return true
		}
	}
	return false
}

func (r Rules) matchesPlatform(platform Platform) bool {
	if len(r.Platforms) == 0 {
		return true
	}
	if platform == PlatformUnknown {
		return false
	}
	return slices.Contains(r.Platforms, platform)
}
