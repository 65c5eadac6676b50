package transform

import (
	"encoding/json"
)

// Params is the kind-discriminated parameter record carried by a
// transformation config. Each kind that takes parameters has one
// strongly-typed record, which removes the missing-key failure modes
// of an untyped parameter map.
type Params interface {
	kind() Kind
}

// SubstringParams slices [Start, End) of the value's string form.
// Out-of-range indices clamp, they never error.
type SubstringParams struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (SubstringParams) kind() Kind { return KindSubstring }

// ReplaceParams replaces all occurrences of Pattern in the value's string
// form. Pattern is literal unless Regex is set.
type ReplaceParams struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Regex       bool   `json:"regex,omitempty"`
}

func (ReplaceParams) kind() Kind { return KindReplace }

// SplitParams splits the value's string form on Separator and returns the
// part at Index. An out-of-range index yields the empty string.
type SplitParams struct {
	Separator string `json:"separator"`
	Index     int    `json:"index"`
}

func (SplitParams) kind() Kind { return KindSplit }

// ConcatParams joins the current values of the named record fields, in
// listed order, with Separator. CONCAT and JOIN share this record; the two
// kinds are semantically identical and kept distinct only for authoring
// clarity.
type ConcatParams struct {
	Separator string   `json:"separator"`
	Fields    []string `json:"fields"`
}

func (ConcatParams) kind() Kind { return KindConcat }

// MapValuesParams looks the value's string form up in Mappings. Unmatched
// values pass through unchanged; there is no implicit default.
type MapValuesParams struct {
	Mappings map[string]string `json:"mappings"`
}

func (MapValuesParams) kind() Kind { return KindMapValues }

// CustomParams evaluates Formula with the source value bound in scope.
type CustomParams struct {
	Formula string `json:"formula"`
}

func (CustomParams) kind() Kind { return KindCustom }

// Config is the serializable {kind, params} pair carried by a field
// mapping. Params is nil for kinds that take none, and also nil when a
// serialized parameter record did not match its kind — Apply degrades
// that case to identity passthrough with a surfaced message.
type Config struct {
	Kind   Kind
	Params Params
}

// NoneConfig is the identity transformation
func NoneConfig() Config {
	return Config{Kind: KindNone}
}

// wireConfig is the transported shape of a Config
type wireConfig struct {
	Kind   Kind            `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

// MarshalJSON encodes the config in its transported {kind, params} shape
func (c Config) MarshalJSON() ([]byte, error) {
	w := wireConfig{Kind: c.Kind}
	if c.Params != nil {
		raw, err := json.Marshal(c.Params)
		if err != nil {
			return nil, err
		}
		w.Params = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the transported shape. An absent or malformed
// serialized form is treated as kind NONE; a parameter record that does
// not decode against its kind leaves Params nil for Apply to degrade.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w wireConfig
	if err := json.Unmarshal(data, &w); err != nil || !w.Kind.Valid() {
		*c = NoneConfig()
		return nil
	}

	c.Kind = w.Kind
	c.Params = decodeParams(w.Kind, w.Params)
	return nil
}

// ParseConfig decodes a serialized transformation config, applying the
// absent-or-malformed ⇒ NONE rule.
func ParseConfig(data []byte) Config {
	if len(data) == 0 {
		return NoneConfig()
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		// Syntactically invalid input never reaches UnmarshalJSON
		return NoneConfig()
	}
	return c
}

// decodeParams decodes raw params against the kind's typed record.
// Returns nil when the kind takes no params or the record is malformed.
func decodeParams(kind Kind, raw json.RawMessage) Params {
	if !kind.NeedsParams() || len(raw) == 0 {
		return nil
	}

	switch kind {
	case KindSubstring:
		var p SubstringParams
		if json.Unmarshal(raw, &p) == nil {
			return p
		}
	case KindReplace:
		var p ReplaceParams
		if json.Unmarshal(raw, &p) == nil {
			return p
		}
	case KindSplit:
		var p SplitParams
		if json.Unmarshal(raw, &p) == nil {
			return p
		}
	case KindConcat, KindJoin:
		var p ConcatParams
		if json.Unmarshal(raw, &p) == nil {
			return p
		}
	case KindMapValues:
		var p MapValuesParams
		if json.Unmarshal(raw, &p) == nil {
			return p
		}
	case KindCustom:
		var p CustomParams
		if json.Unmarshal(raw, &p) == nil {
			return p
		}
	}
	return nil
}
