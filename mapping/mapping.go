// Package mapping models configured field correspondences between a
// source and a target schema, proposes new correspondences heuristically,
// and validates a mapping set for coverage and type compatibility.
package mapping

import (
	"github.com/teleskop/fieldbridge/errors"
	"github.com/teleskop/fieldbridge/transform"
)

// FieldMapping is one configured correspondence between a source field and
// a target field, with an attached transformation.
type FieldMapping struct {
	SourceFieldID  string           `json:"source_field_id" toml:"source"`
	TargetFieldID  string           `json:"target_field_id" toml:"target"`
	Transformation transform.Config `json:"transformation" toml:"-"`
}

// Set is an ordered, active mapping set. Fields map 1:1: a source or
// target field id appears in at most one mapping, and a (source, target)
// pair at most once.
type Set []FieldMapping

// SourceMapped reports whether the source field id is already mapped
func (s Set) SourceMapped(fieldID string) bool {
	for _, m := range s {
		if m.SourceFieldID == fieldID {
			return true
		}
	}
	return false
}

// TargetMapped reports whether the target field id is already mapped
func (s Set) TargetMapped(fieldID string) bool {
	for _, m := range s {
		if m.TargetFieldID == fieldID {
			return true
		}
	}
	return false
}

// ByTarget returns the mapping whose target is the given field id
func (s Set) ByTarget(fieldID string) (FieldMapping, bool) {
	for _, m := range s {
		if m.TargetFieldID == fieldID {
			return m, true
		}
	}
	return FieldMapping{}, false
}

// Extend returns a new set with the additional mappings appended. The
// receiver is never mutated. Mappings that would violate the 1:1
// invariant are rejected.
func (s Set) Extend(additions ...FieldMapping) (Set, error) {
	out := make(Set, len(s), len(s)+len(additions))
	copy(out, s)

	for _, m := range additions {
		if m.SourceFieldID == "" || m.TargetFieldID == "" {
			return nil, errors.New("mapping must name both a source and a target field")
		}
		if out.SourceMapped(m.SourceFieldID) {
			return nil, errors.Newf("source field %q is already mapped", m.SourceFieldID)
		}
		if out.TargetMapped(m.TargetFieldID) {
			return nil, errors.Newf("target field %q is already mapped", m.TargetFieldID)
		}
		out = append(out, m)
	}
	return out, nil
}

// Clone returns a copy of the set
func (s Set) Clone() Set {
	out := make(Set, len(s))
	copy(out, s)
	return out
}
