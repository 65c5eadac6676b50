package transform

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teleskop/fieldbridge/schema"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(nil)
}

func apply(t *testing.T, cfg Config, src interface{}, record schema.Record) Outcome {
	t.Helper()
	return newTestDispatcher().Apply(context.Background(), cfg, src, record)
}

func TestNoneIsIdentity(t *testing.T) {
	for _, src := range []interface{}{"hello", 42.0, true, nil, []interface{}{"a", "b"}} {
		out := apply(t, NoneConfig(), src, nil)
		require.NoError(t, out.Err)
		assert.Empty(t, out.Note)
		assert.Equal(t, src, out.Value)
	}
}

func TestCaseFolding(t *testing.T) {
	out := apply(t, Config{Kind: KindUppercase}, "Ready for Review", nil)
	assert.Equal(t, "READY FOR REVIEW", out.Value)

	out = apply(t, Config{Kind: KindLowercase}, "BLOCKED", nil)
	assert.Equal(t, "blocked", out.Value)

	// Non-string values fold their string form
	out = apply(t, Config{Kind: KindUppercase}, true, nil)
	assert.Equal(t, "TRUE", out.Value)
}

func TestSubstring(t *testing.T) {
	s := "regression-suite"
	full := apply(t, Config{Kind: KindSubstring, Params: SubstringParams{Start: 0, End: len(s)}}, s, nil)
	assert.Equal(t, s, full.Value)

	clamped := apply(t, Config{Kind: KindSubstring, Params: SubstringParams{Start: 11, End: 999}}, s, nil)
	require.NoError(t, clamped.Err)
	assert.Equal(t, "suite", clamped.Value)

	negative := apply(t, Config{Kind: KindSubstring, Params: SubstringParams{Start: -3, End: 4}}, s, nil)
	assert.Equal(t, "regr", negative.Value)

	inverted := apply(t, Config{Kind: KindSubstring, Params: SubstringParams{Start: 9, End: 2}}, s, nil)
	assert.Equal(t, "", inverted.Value)
}

func TestReplace(t *testing.T) {
	out := apply(t, Config{Kind: KindReplace, Params: ReplaceParams{Pattern: "-", Replacement: " "}}, "smoke-test-pack", nil)
	assert.Equal(t, "smoke test pack", out.Value)

	out = apply(t, Config{Kind: KindReplace, Params: ReplaceParams{Pattern: `\d+`, Replacement: "#", Regex: true}}, "run 12 of 40", nil)
	assert.Equal(t, "run # of #", out.Value)

	// Broken pattern degrades to a literal replacement with a note
	out = apply(t, Config{Kind: KindReplace, Params: ReplaceParams{Pattern: `[`, Replacement: "!", Regex: true}}, "a[b", nil)
	require.NoError(t, out.Err)
	assert.Equal(t, "a!b", out.Value)
	assert.NotEmpty(t, out.Note)
}

func TestSplit(t *testing.T) {
	cfg := Config{Kind: KindSplit, Params: SplitParams{Separator: "::", Index: 1}}
	out := apply(t, cfg, "suite::login::happy-path", nil)
	assert.Equal(t, "login", out.Value)

	outOfRange := apply(t, Config{Kind: KindSplit, Params: SplitParams{Separator: "::", Index: 9}}, "a::b", nil)
	require.NoError(t, outOfRange.Err)
	assert.Equal(t, "", outOfRange.Value)

	negative := apply(t, Config{Kind: KindSplit, Params: SplitParams{Separator: "::", Index: -1}}, "a::b", nil)
	assert.Equal(t, "", negative.Value)
}

func TestConcatReadsWholeRecord(t *testing.T) {
	record := schema.Record{"firstName": "Ada", "lastName": "Lovelace"}
	cfg := Config{Kind: KindConcat, Params: ConcatParams{Separator: " ", Fields: []string{"firstName", "lastName"}}}

	out := apply(t, cfg, nil, record)
	assert.Equal(t, "Ada Lovelace", out.Value)

	// JOIN is semantically identical to CONCAT
	cfg.Kind = KindJoin
	out = apply(t, cfg, nil, record)
	assert.Equal(t, "Ada Lovelace", out.Value)

	// Missing fields contribute their empty string form
	cfg = Config{Kind: KindConcat, Params: ConcatParams{Separator: "-", Fields: []string{"firstName", "missing"}}}
	out = apply(t, cfg, nil, record)
	assert.Equal(t, "Ada-", out.Value)
}

func TestMapValues(t *testing.T) {
	cfg := Config{Kind: KindMapValues, Params: MapValuesParams{Mappings: map[string]string{"ACTIVE": "Ready"}}}

	out := apply(t, cfg, "ACTIVE", nil)
	assert.Equal(t, "Ready", out.Value)

	// Absent key passes through unchanged, no implicit default
	out = apply(t, cfg, "UNKNOWN", nil)
	require.NoError(t, out.Err)
	assert.Equal(t, "UNKNOWN", out.Value)
}

func TestMapValuesEmptyTableBehavesAsNone(t *testing.T) {
	cfg := Config{Kind: KindMapValues, Params: MapValuesParams{Mappings: map[string]string{}}}
	for _, src := range []interface{}{"x", 3.5, nil, true} {
		out := apply(t, cfg, src, nil)
		require.NoError(t, out.Err)
		assert.Equal(t, src, out.Value)
	}
}

func TestMalformedParamsDegradeToIdentity(t *testing.T) {
	// A kind that needs params but carries none passes the value through
	// with a surfaced message, never a crash.
	out := apply(t, Config{Kind: KindSubstring}, "untouched", nil)
	require.NoError(t, out.Err)
	assert.Equal(t, "untouched", out.Value)
	assert.Contains(t, out.Note, "malformed")
}

func TestCustomDisabledDegrades(t *testing.T) {
	cfg := Config{Kind: KindCustom, Params: CustomParams{Formula: `strings.ToUpper(src.(string))`}}
	out := apply(t, cfg, "x", nil)
	require.NoError(t, out.Err)
	assert.Equal(t, "x", out.Value)
	assert.Contains(t, out.Note, "disabled")
}

func TestConfigRoundTripIsExecutionEquivalent(t *testing.T) {
	record := schema.Record{"a": "1", "b": "2"}
	configs := []Config{
		NoneConfig(),
		{Kind: KindUppercase},
		{Kind: KindSubstring, Params: SubstringParams{Start: 1, End: 3}},
		{Kind: KindReplace, Params: ReplaceParams{Pattern: "x", Replacement: "y"}},
		{Kind: KindSplit, Params: SplitParams{Separator: ",", Index: 1}},
		{Kind: KindJoin, Params: ConcatParams{Separator: "+", Fields: []string{"a", "b"}}},
		{Kind: KindMapValues, Params: MapValuesParams{Mappings: map[string]string{"x,y": "z"}}},
	}

	for _, cfg := range configs {
		raw, err := json.Marshal(cfg)
		require.NoError(t, err)

		decoded := ParseConfig(raw)
		require.Equal(t, cfg.Kind, decoded.Kind)

		src := "x,y"
		before := apply(t, cfg, src, record)
		after := apply(t, decoded, src, record)
		assert.Equal(t, before.Value, after.Value, "kind %s", cfg.Kind)
		assert.Equal(t, before.Note, after.Note, "kind %s", cfg.Kind)
	}
}

func TestParseConfigMalformedIsNone(t *testing.T) {
	assert.Equal(t, KindNone, ParseConfig(nil).Kind)
	assert.Equal(t, KindNone, ParseConfig([]byte(`not json`)).Kind)
	assert.Equal(t, KindNone, ParseConfig([]byte(`{"kind":"BOGUS"}`)).Kind)

	// Known kind with malformed params keeps the kind; Apply degrades it
	cfg := ParseConfig([]byte(`{"kind":"SUBSTRING","params":{"start":"not a number"}}`))
	assert.Equal(t, KindSubstring, cfg.Kind)
	assert.Nil(t, cfg.Params)

	out := apply(t, cfg, "value", nil)
	assert.Equal(t, "value", out.Value)
	assert.NotEmpty(t, out.Note)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "plain", Stringify("plain"))
	assert.Equal(t, "42", Stringify(42.0))
	assert.Equal(t, "4.5", Stringify(4.5))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, `["a","b"]`, Stringify([]interface{}{"a", "b"}))
}
