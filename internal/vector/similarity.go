package vector

import (
	"math"

	"github.com/hyperjump/skillrec/pkg/utils"
)

// L2Distance returns the Euclidean distance between a and b, or +Inf when the
// lengths differ.
func L2Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	return math.Sqrt(float64(utils.SquaredL2(a, b)))
}
