package navstack

import "strings"

// ScopeSegment is one step of a cancellation-scope path: the element it
// belongs to plus a discriminator naming which stack field produced it.
type ScopeSegment struct {
	ID            ElementID
	Discriminator string
}

// ScopePath addresses the set of in-flight operations belonging to one
// element and its descendants. Paths are values: two paths are equal iff all
// segments match in order. A path carries no ownership of the operations it
// addresses; it is only a lookup key into a ScopeRegistry.
type ScopePath []ScopeSegment

// Extend returns a new path with one more segment appended. The receiver is
// never mutated.
func (p ScopePath) Extend(id ElementID, discriminator string) ScopePath {
	out := make(ScopePath, 0, len(p)+1)
	out = append(out, p...)
	return append(out, ScopeSegment{ID: id, Discriminator: discriminator})
}

// Equal reports segment-wise equality.
func (p ScopePath) Equal(other ScopePath) bool {
	if len(p) != len(other) {
		return false
	}
	for i, segment := range p {
		if other[i] != segment {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p equals prefix or descends from it.
func (p ScopePath) HasPrefix(prefix ScopePath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i, segment := range prefix {
		if p[i] != segment {
			return false
		}
	}
	return true
}

// Key renders the canonical registry key for the path. Keys of descendant
// paths extend the ancestor's key, so prefix relationships survive the
// rendering.
func (p ScopePath) Key() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for i, segment := range p {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(segment.ID.String())
		b.WriteByte('@')
		b.WriteString(segment.Discriminator)
	}
	return b.String()
}

func (p ScopePath) String() string {
	return p.Key()
}
