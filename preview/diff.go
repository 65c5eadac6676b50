package preview

import (
	"github.com/google/go-cmp/cmp"
)

// Changed reports deep, order-sensitive structural inequality between two
// field values. Rendering of the difference is left to the presentation
// layer; only the boolean is emitted.
func Changed(a, b interface{}) bool {
	return !cmp.Equal(a, b)
}
