package transform

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/teleskop/fieldbridge/errors"
	"github.com/teleskop/fieldbridge/schema"
)

// Outcome is the result of one field transformation.
//
// Exactly one of the three shapes occurs:
//   - success: Value holds the transformed value, Note empty, Err nil
//   - degraded: Value holds the source value unchanged, Note explains why
//   - failed: Err carries a tagged transformation failure (CUSTOM only),
//     Value is nil
//
// Degradation and failure are both isolated to the field; neither aborts
// the record or the batch.
type Outcome struct {
	Value interface{}
	Note  string
	Err   error
}

// Dispatcher applies transformation configs to field values. It holds no
// mutable state beyond the CUSTOM evaluator and is safe for concurrent use.
type Dispatcher struct {
	custom *CustomEvaluator // nil disables CUSTOM (degrades to identity)
}

// NewDispatcher creates a dispatcher. Pass a nil evaluator to disable
// CUSTOM formulas; those configs then degrade to identity with a note.
func NewDispatcher(custom *CustomEvaluator) *Dispatcher {
	return &Dispatcher{custom: custom}
}

// Apply transforms src according to cfg. CONCAT/JOIN and CUSTOM may read
// other fields' current values from record; record is never written.
func (d *Dispatcher) Apply(ctx context.Context, cfg Config, src interface{}, record schema.Record) Outcome {
	if !cfg.Kind.Valid() {
		return Outcome{Value: src, Note: "unknown transformation kind " + string(cfg.Kind) + "; value passed through"}
	}
	if cfg.Kind.NeedsParams() && cfg.Params == nil {
		return Outcome{Value: src, Note: "malformed " + string(cfg.Kind) + " params; value passed through"}
	}

	switch cfg.Kind {
	case KindNone:
		return Outcome{Value: src}

	case KindUppercase:
		return Outcome{Value: strings.ToUpper(Stringify(src))}

	case KindLowercase:
		return Outcome{Value: strings.ToLower(Stringify(src))}

	case KindSubstring:
		p, ok := cfg.Params.(SubstringParams)
		if !ok {
			return degradedParams(cfg.Kind, src)
		}
		return Outcome{Value: substring(Stringify(src), p.Start, p.End)}

	case KindReplace:
		p, ok := cfg.Params.(ReplaceParams)
		if !ok {
			return degradedParams(cfg.Kind, src)
		}
		return applyReplace(p, Stringify(src))

	case KindSplit:
		p, ok := cfg.Params.(SplitParams)
		if !ok {
			return degradedParams(cfg.Kind, src)
		}
		return Outcome{Value: splitPart(Stringify(src), p.Separator, p.Index)}

	case KindConcat, KindJoin:
		p, ok := cfg.Params.(ConcatParams)
		if !ok {
			return degradedParams(cfg.Kind, src)
		}
		parts := make([]string, 0, len(p.Fields))
		for _, fieldID := range p.Fields {
			parts = append(parts, Stringify(record[fieldID]))
		}
		return Outcome{Value: strings.Join(parts, p.Separator)}

	case KindMapValues:
		p, ok := cfg.Params.(MapValuesParams)
		if !ok {
			return degradedParams(cfg.Kind, src)
		}
		if mapped, found := p.Mappings[Stringify(src)]; found {
			return Outcome{Value: mapped}
		}
		// Unmatched values pass through unchanged, no implicit default
		return Outcome{Value: src}

	case KindCustom:
		p, ok := cfg.Params.(CustomParams)
		if !ok {
			return degradedParams(cfg.Kind, src)
		}
		if strings.TrimSpace(p.Formula) == "" {
			return Outcome{Value: src, Note: "empty CUSTOM formula; value passed through"}
		}
		if d.custom == nil {
			return Outcome{Value: src, Note: "CUSTOM transformations are disabled; value passed through"}
		}
		value, err := d.custom.Eval(ctx, p.Formula, src, record)
		if err != nil {
			return Outcome{Err: errors.Wrap(errors.ErrTransformation, err.Error())}
		}
		return Outcome{Value: value}
	}

	return Outcome{Value: src, Note: "unknown transformation kind " + string(cfg.Kind) + "; value passed through"}
}

func degradedParams(kind Kind, src interface{}) Outcome {
	return Outcome{Value: src, Note: "malformed " + string(kind) + " params; value passed through"}
}

// substring slices [start, end) over runes, clamping out-of-range indices
func substring(s string, start, end int) string {
	runes := []rune(s)
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

// splitPart returns the index-th separator-delimited part, or "" when the
// index is out of range
func splitPart(s, separator string, index int) string {
	parts := strings.Split(s, separator)
	if index < 0 || index >= len(parts) {
		return ""
	}
	return parts[index]
}

// applyReplace replaces all occurrences, literal by default. A pattern
// that fails to compile degrades to a literal replacement with a note.
func applyReplace(p ReplaceParams, s string) Outcome {
	if p.Regex {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return Outcome{
				Value: strings.ReplaceAll(s, p.Pattern, p.Replacement),
				Note:  "invalid REPLACE pattern " + strconv.Quote(p.Pattern) + "; applied literally",
			}
		}
		return Outcome{Value: re.ReplaceAllString(s, p.Replacement)}
	}
	return Outcome{Value: strings.ReplaceAll(s, p.Pattern, p.Replacement)}
}
