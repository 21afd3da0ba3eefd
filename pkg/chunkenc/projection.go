package chunkenc

// FieldProjection restricts which fields the transpose decoder
// materializes: the zero value excludes everything; AllFields()
// includes everything; Paths entries are field-number prefixes — a field
// is included if some entry is a prefix of (or equal to) its full path
// from the record root, which also includes everything nested beneath it.
type FieldProjection struct {
	all   bool
	paths [][]int32
}

// AllFields returns a projection that materializes every field.
func AllFields() FieldProjection {
	return FieldProjection{all: true}
}

// NewFieldProjection returns a projection that materializes exactly the
// given field-number path prefixes (and everything nested under them).
// Messages and groups enclosing a projected path are kept, holding only
// their projected fields.
func NewFieldProjection(paths ...[]int32) FieldProjection {
	return FieldProjection{paths: paths}
}

func (p FieldProjection) includes(path []int32) bool {
	if p.all {
		return true
	}
	for _, prefix := range p.paths {
		if isPathPrefix(prefix, path) {
			return true
		}
	}
	return false
}

func isPathPrefix(prefix, path []int32) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i, v := range prefix {
		if path[i] != v {
			return false
		}
	}
	return true
}
