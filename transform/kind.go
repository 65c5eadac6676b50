// Package transform implements the per-field transformation dispatcher:
// a pure, parameter-driven value transform applied while projecting a
// source record into its canonical form. The dispatcher performs no I/O
// and is safe under concurrent invocation; one field's failure never
// prevents other fields or records from computing.
package transform

// Kind names one of the ten supported transformations
type Kind string

const (
	KindNone      Kind = "NONE"
	KindUppercase Kind = "UPPERCASE"
	KindLowercase Kind = "LOWERCASE"
	KindSubstring Kind = "SUBSTRING"
	KindReplace   Kind = "REPLACE"
	KindSplit     Kind = "SPLIT"
	KindConcat    Kind = "CONCAT"
	KindJoin      Kind = "JOIN"
	KindMapValues Kind = "MAP_VALUES"
	KindCustom    Kind = "CUSTOM"
)

// Kinds lists every kind in a stable order
func Kinds() []Kind {
	return []Kind{
		KindNone, KindUppercase, KindLowercase, KindSubstring, KindReplace,
		KindSplit, KindConcat, KindJoin, KindMapValues, KindCustom,
	}
}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	switch k {
	case KindNone, KindUppercase, KindLowercase, KindSubstring, KindReplace,
		KindSplit, KindConcat, KindJoin, KindMapValues, KindCustom:
		return true
	}
	return false
}

// NeedsParams reports whether k carries a parameter record
func (k Kind) NeedsParams() bool {
	switch k {
	case KindNone, KindUppercase, KindLowercase:
		return false
	}
	return true
}
