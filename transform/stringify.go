package transform

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Stringify renders a record value in its canonical string form, the form
// the string-oriented kinds (case folding, substring, split, replace,
// value mapping) operate on. Structured values render as compact JSON.
func Stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		// JSON numbers decode as float64; render integers without a fraction
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	default:
		if raw, err := json.Marshal(x); err == nil {
			return string(raw)
		}
		return fmt.Sprint(x)
	}
}
