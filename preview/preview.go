// Package preview synthesizes a three-tier transformation preview for one
// record: the raw source record, the canonical record after source-side
// transformations, and the target record after projection — plus ordered
// validation messages and per-pair diff flags for side-by-side display.
package preview

import (
	"context"
	"fmt"

	"github.com/teleskop/fieldbridge/errors"
	"github.com/teleskop/fieldbridge/logger"
	"github.com/teleskop/fieldbridge/mapping"
	"github.com/teleskop/fieldbridge/schema"
	"github.com/teleskop/fieldbridge/transform"
)

// Preview is the immutable result of synthesizing one record. It is
// created per (record id, mapping set) and regenerated — never patched —
// when the mapping set, either field catalog, or the record changes.
type Preview struct {
	RecordID  string        `json:"record_id"`
	Source    schema.Record `json:"source"`    // raw record, keyed by source field id
	Canonical schema.Record `json:"canonical"` // after source-side transformations, keyed by source field id
	Target    schema.Record `json:"target"`    // projected, keyed by target field id
	Messages  []string      `json:"messages"`  // ordered validation messages
	Pairs     []FieldPair   `json:"pairs"`     // side-by-side display pairs with diff flags
}

// FieldPair pairs a source and a target field for side-by-side display.
// Unmapped pairs come from the fuzzy-matching heuristic and exist purely
// for display; they never create or mutate a persisted mapping.
type FieldPair struct {
	SourceFieldID string `json:"source_field_id"`
	TargetFieldID string `json:"target_field_id"`
	Mapped        bool   `json:"mapped"`
	Changed       bool   `json:"changed"`
}

// IssueCount returns the number of validation messages
func (p *Preview) IssueCount() int {
	return len(p.Messages)
}

// Synthesizer assembles previews. It is stateless apart from its
// collaborators and safe for concurrent use.
type Synthesizer struct {
	records    schema.RecordSource
	dispatcher *transform.Dispatcher
}

// NewSynthesizer creates a synthesizer over the given record source and
// transformation dispatcher.
func NewSynthesizer(records schema.RecordSource, dispatcher *transform.Dispatcher) *Synthesizer {
	return &Synthesizer{records: records, dispatcher: dispatcher}
}

// Compute synthesizes the preview for one record id.
//
// A record fetch failure is returned as an error for the caller to record
// as an explicit failure state — never as a silent empty preview. A single
// field's transformation failure is downgraded to a visible message and
// the rest of the record still computes.
func (s *Synthesizer) Compute(ctx context.Context, providerID, recordID string, set mapping.Set, source, target *schema.Catalog) (*Preview, error) {
	record, err := s.records.RawRecord(ctx, providerID, recordID)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching record %s from %s", recordID, providerID)
	}

	canonical := make(schema.Record, len(set))
	projected := make(schema.Record, len(set))
	var transformMessages []string

	for _, m := range set {
		outcome := s.dispatcher.Apply(ctx, m.Transformation, record[m.SourceFieldID], record)
		switch {
		case outcome.Err != nil:
			// Field-isolated failure: visible marker, siblings unaffected
			canonical[m.SourceFieldID] = nil
			projected[m.TargetFieldID] = nil
			transformMessages = append(transformMessages,
				fmt.Sprintf("transformation failed for field %s: %v", m.SourceFieldID, outcome.Err))
		default:
			if outcome.Note != "" {
				transformMessages = append(transformMessages,
					fmt.Sprintf("field %s: %s", m.SourceFieldID, outcome.Note))
			}
			canonical[m.SourceFieldID] = outcome.Value
			projected[m.TargetFieldID] = outcome.Value
		}
	}

	messages := mapping.Validate(set, source.Fields, target.Fields)
	messages = append(messages, transformMessages...)
	messages = append(messages, recordChecks(projected, set, target)...)

	p := &Preview{
		RecordID:  recordID,
		Source:    record,
		Canonical: canonical,
		Target:    projected,
		Messages:  messages,
		Pairs:     buildPairs(record, projected, set, source, target),
	}

	logger.Debugw("Preview synthesized",
		"provider", providerID,
		"record", recordID,
		"mappings", len(set),
		"issues", len(messages))
	return p, nil
}

// recordChecks runs record-level validation against the projected target
// record: a required target field that is mapped but empty after
// transformation, and enumerated fields holding a disallowed value.
func recordChecks(projected schema.Record, set mapping.Set, target *schema.Catalog) []string {
	var messages []string
	for _, tf := range target.Fields {
		if _, mapped := set.ByTarget(tf.ID); !mapped {
			continue
		}
		value := projected[tf.ID]
		if tf.Required && transform.Stringify(value) == "" {
			messages = append(messages,
				fmt.Sprintf("required field %s is empty after transformation", tf.Name))
			continue
		}
		if value != nil && len(tf.AllowedValues) > 0 && !tf.Allows(transform.Stringify(value)) {
			messages = append(messages,
				fmt.Sprintf("field %s: value %q is not among the allowed values", tf.Name, transform.Stringify(value)))
		}
	}
	return messages
}

// buildPairs assembles the side-by-side display pairs: every mapped pair,
// then heuristic pairs for fields without an explicit mapping. The
// heuristic reuses the auto-mapper's fuzzy matching purely for pairing.
func buildPairs(record, projected schema.Record, set mapping.Set, source, target *schema.Catalog) []FieldPair {
	pairs := make([]FieldPair, 0, len(set))
	for _, m := range set {
		pairs = append(pairs, FieldPair{
			SourceFieldID: m.SourceFieldID,
			TargetFieldID: m.TargetFieldID,
			Mapped:        true,
			Changed:       Changed(record[m.SourceFieldID], projected[m.TargetFieldID]),
		})
	}

	// Display-only proposals; the persisted mapping set is never touched.
	for _, p := range mapping.Propose(source.Fields, target.Fields, set) {
		pairs = append(pairs, FieldPair{
			SourceFieldID: p.SourceFieldID,
			TargetFieldID: p.TargetFieldID,
			Mapped:        false,
			Changed:       Changed(record[p.SourceFieldID], nil),
		})
	}
	return pairs
}
