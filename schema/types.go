// Package schema defines the field model shared by both sides of a
// migration: fields as declared by an external test-management provider,
// raw records keyed by field id, and the collaborator interfaces through
// which catalogs and records are fetched.
package schema

// FieldType is the primitive type tag a provider declares for a field
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeText    FieldType = "text"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
	TypeArray   FieldType = "array"
)

// Valid reports whether t is one of the known type tags
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeText, TypeNumber, TypeBoolean, TypeDate, TypeArray:
		return true
	}
	return false
}

// Compatible reports whether a source field of type src may be mapped onto
// a target field of type dst without a type mismatch. Identical types are
// compatible; string and text are interchangeable in both directions.
func Compatible(src, dst FieldType) bool {
	if src == dst {
		return true
	}
	if (src == TypeString && dst == TypeText) || (src == TypeText && dst == TypeString) {
		return true
	}
	return false
}

// Field is a named, typed attribute in a provider's schema.
// The id is unique within a provider+project scope.
type Field struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Type          FieldType `json:"type" db:"type"`
	Required      bool      `json:"required" db:"required"`
	AllowedValues []string  `json:"allowed_values,omitempty" db:"allowed_values"`
}

// Allows reports whether value is permitted by the field's enumeration.
// A field without allowed values permits anything.
func (f Field) Allows(value string) bool {
	if len(f.AllowedValues) == 0 {
		return true
	}
	for _, v := range f.AllowedValues {
		if v == value {
			return true
		}
	}
	return false
}

// Record is a raw record as fetched from a provider: field id -> value.
// Values are whatever the provider's JSON decoded to.
type Record map[string]interface{}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FieldByID returns the field with the given id from an ordered field list
func FieldByID(fields []Field, id string) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// RequiredFields returns the required fields in declaration order
func RequiredFields(fields []Field) []Field {
	var out []Field
	for _, f := range fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}
