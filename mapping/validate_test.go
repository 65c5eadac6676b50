package mapping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teleskop/fieldbridge/schema"
)

func TestValidateCoverageMessageComesFirst(t *testing.T) {
	source := []schema.Field{
		{ID: "count", Name: "Count", Type: schema.TypeNumber},
	}
	target := []schema.Field{
		{ID: "summary", Name: "Summary", Type: schema.TypeString, Required: true},
		{ID: "severity", Name: "Severity", Type: schema.TypeString, Required: true},
		{ID: "label", Name: "Label", Type: schema.TypeString},
	}
	set := Set{{SourceFieldID: "count", TargetFieldID: "label"}}

	messages := Validate(set, source, target)
	require.NotEmpty(t, messages)

	// One aggregated coverage message naming every missing required field
	assert.Contains(t, messages[0], "Summary")
	assert.Contains(t, messages[0], "Severity")
	assert.Equal(t, 1, strings.Count(strings.Join(messages, "\n"), "not mapped"))

	// Then the number -> string mismatch, naming both fields and types
	require.Len(t, messages, 2)
	assert.Contains(t, messages[1], "Count")
	assert.Contains(t, messages[1], "Label")
	assert.Contains(t, messages[1], "number")
	assert.Contains(t, messages[1], "string")
}

func TestValidateStringTextWhitelisted(t *testing.T) {
	source := []schema.Field{{ID: "desc", Name: "Description", Type: schema.TypeText}}
	target := []schema.Field{{ID: "summary", Name: "Summary", Type: schema.TypeString}}
	set := Set{{SourceFieldID: "desc", TargetFieldID: "summary"}}

	assert.Empty(t, Validate(set, source, target))
}

func TestValidateCleanSetYieldsNoMessages(t *testing.T) {
	source := []schema.Field{{ID: "title", Name: "Title", Type: schema.TypeString}}
	target := []schema.Field{{ID: "title", Name: "Title", Type: schema.TypeString, Required: true}}
	set := Set{{SourceFieldID: "title", TargetFieldID: "title"}}

	assert.Empty(t, Validate(set, source, target))
}

func TestValidateUnknownFields(t *testing.T) {
	set := Set{{SourceFieldID: "ghost", TargetFieldID: "also-ghost"}}
	messages := Validate(set, nil, nil)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "ghost")
}

func TestExtendRejectsDuplicates(t *testing.T) {
	set := Set{{SourceFieldID: "a", TargetFieldID: "b"}}

	_, err := set.Extend(FieldMapping{SourceFieldID: "a", TargetFieldID: "c"})
	assert.Error(t, err)

	_, err = set.Extend(FieldMapping{SourceFieldID: "x", TargetFieldID: "b"})
	assert.Error(t, err)

	extended, err := set.Extend(FieldMapping{SourceFieldID: "x", TargetFieldID: "y"})
	require.NoError(t, err)
	assert.Len(t, extended, 2)
	assert.Len(t, set, 1, "receiver must not be mutated")
}
