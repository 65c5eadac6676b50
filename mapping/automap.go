package mapping

import (
	"strings"
	"unicode"

	"github.com/teleskop/fieldbridge/schema"
	"github.com/teleskop/fieldbridge/transform"
)

// Propose proposes additional mappings to cover unmapped fields without
// disturbing the existing set, in two deterministic passes:
//
//  1. Exact-id pass: every unmapped source field whose id equals an
//     unmapped target field's id gets a NONE-kind mapping.
//  2. Fuzzy pass, required targets only: each required target field still
//     unmapped is paired with the first unmapped source field (in
//     declaration order) whose normalized name is equal to, contains, or
//     is contained in the target's normalized name.
//
// Already-mapped fields are never reassigned. The existing set is not
// mutated; only the new proposals are returned. Fields left uncovered are
// reported by Validate, not here.
func Propose(sourceFields, targetFields []schema.Field, existing Set) []FieldMapping {
	sourceTaken := make(map[string]bool, len(existing))
	targetTaken := make(map[string]bool, len(existing))
	for _, m := range existing {
		sourceTaken[m.SourceFieldID] = true
		targetTaken[m.TargetFieldID] = true
	}

	var proposals []FieldMapping
	propose := func(sourceID, targetID string) {
		proposals = append(proposals, FieldMapping{
			SourceFieldID:  sourceID,
			TargetFieldID:  targetID,
			Transformation: transform.NoneConfig(),
		})
		sourceTaken[sourceID] = true
		targetTaken[targetID] = true
	}

	// Pass 1: exact field-id matches
	targetIDs := make(map[string]bool, len(targetFields))
	for _, tf := range targetFields {
		targetIDs[tf.ID] = true
	}
	for _, sf := range sourceFields {
		if sourceTaken[sf.ID] || targetTaken[sf.ID] {
			continue
		}
		if targetIDs[sf.ID] {
			propose(sf.ID, sf.ID)
		}
	}

	// Pass 2: fuzzy name matching for required target fields only.
	// The first qualifying source field in declaration order wins; there
	// is no similarity scoring.
	for _, tf := range targetFields {
		if !tf.Required || targetTaken[tf.ID] {
			continue
		}
		for _, sf := range sourceFields {
			if sourceTaken[sf.ID] {
				continue
			}
			if namesMatch(sf.Name, tf.Name) {
				propose(sf.ID, tf.ID)
				break
			}
		}
	}

	return proposals
}

// namesMatch reports whether two display names match after normalization:
// equality, or containment in either direction.
func namesMatch(a, b string) bool {
	na, nb := normalizeName(a), normalizeName(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

// normalizeName case-folds a display name and strips all whitespace
func normalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
