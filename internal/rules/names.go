// Package rules holds the static business data of each pipeline: advisor
// remap tables, the internal-advisors sets, fixed literal columns, rename
// pairs and the input/output column contracts.
//
// Values are built from literals on every call and exposed only through
// read methods, so no caller can mutate another run's configuration.
package rules

// NameMap is an immutable exact-match lookup from a raw name to its
// canonical display name.
type NameMap struct {
	m map[string]string
}

// NewNameMap copies pairs into a NameMap.
func NewNameMap(pairs map[string]string) NameMap {
	m := make(map[string]string, len(pairs))
	for k, v := range pairs {
		m[k] = v
	}
	return NameMap{m: m}
}

// Lookup returns the canonical name for raw.
func (n NameMap) Lookup(raw string) (string, bool) {
	v, ok := n.m[raw]
	return v, ok
}

// NameSet is an immutable set of canonical names.
type NameSet struct {
	m map[string]struct{}
}

// NewNameSet builds a set from names.
func NewNameSet(names ...string) NameSet {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return NameSet{m: m}
}

// Contains reports whether name is a member.
func (s NameSet) Contains(name string) bool {
	_, ok := s.m[name]
	return ok
}
