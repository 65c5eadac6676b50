package mapping

import (
	"fmt"
	"strings"

	"github.com/teleskop/fieldbridge/schema"
)

// Validate checks a mapping set against the two catalogs. It is pure and
// never fails; problems come back as ordered, user-facing messages:
// required-field coverage first (one aggregated message naming every
// missing field), then type mismatches per offending mapping in mapping
// order. Identical types are compatible, as is string in either direction
// with text.
func Validate(set Set, sourceFields, targetFields []schema.Field) []string {
	var messages []string

	// Required-field coverage, aggregated into a single message
	var missing []string
	for _, tf := range targetFields {
		if tf.Required && !set.TargetMapped(tf.ID) {
			missing = append(missing, tf.Name)
		}
	}
	if len(missing) > 0 {
		messages = append(messages,
			fmt.Sprintf("required target fields are not mapped: %s", strings.Join(missing, ", ")))
	}

	// Type compatibility, one message per offending mapping
	for _, m := range set {
		sf, sourceKnown := schema.FieldByID(sourceFields, m.SourceFieldID)
		tf, targetKnown := schema.FieldByID(targetFields, m.TargetFieldID)

		if !sourceKnown {
			messages = append(messages,
				fmt.Sprintf("mapping references unknown source field %q", m.SourceFieldID))
			continue
		}
		if !targetKnown {
			messages = append(messages,
				fmt.Sprintf("mapping references unknown target field %q", m.TargetFieldID))
			continue
		}

		if !schema.Compatible(sf.Type, tf.Type) {
			messages = append(messages,
				fmt.Sprintf("incompatible types: %s (%s) cannot map to %s (%s)",
					sf.Name, sf.Type, tf.Name, tf.Type))
		}
	}

	return messages
}
