// Package crystal has the small bits of crystallographic bookkeeping the
// pipelines need to compare models and reflection files: unit cells and
// point groups.
package crystal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// UnitCell holds cell edges in Angstrom and angles in degrees.
type UnitCell struct {
	A, B, C            float64
	Alpha, Beta, Gamma float64
}

// IsZero reports whether the cell was never set.
func (c UnitCell) IsZero() bool {
	return c == UnitCell{}
}

// String formats the cell the way CRYST1 cards list it.
func (c UnitCell) String() string {
	return fmt.Sprintf("%.3f %.3f %.3f %.2f %.2f %.2f", c.A, c.B, c.C, c.Alpha, c.Beta, c.Gamma)
}

// metric returns the real-space metric tensor G.
func (c UnitCell) metric() *mat.SymDense {
	ca := math.Cos(c.Alpha * math.Pi / 180)
	cb := math.Cos(c.Beta * math.Pi / 180)
	cg := math.Cos(c.Gamma * math.Pi / 180)
	return mat.NewSymDense(3, []float64{
		c.A * c.A, c.A * c.B * cg, c.A * c.C * cb,
		c.A * c.B * cg, c.B * c.B, c.B * c.C * ca,
		c.A * c.C * cb, c.B * c.C * ca, c.C * c.C,
	})
}

// Volume returns the cell volume in cubic Angstrom, sqrt(det G).
// A degenerate cell yields 0.
func (c UnitCell) Volume() float64 {
	if c.IsZero() {
		return 0
	}
	det := mat.Det(c.metric())
	if det <= 0 {
		return 0
	}
	return math.Sqrt(det)
}

// RelativeVolumeDifference returns |V(c) - V(ref)| / V(ref). It returns +Inf
// when ref has no volume.
func (c UnitCell) RelativeVolumeDifference(ref UnitCell) float64 {
	vref := ref.Volume()
	if vref == 0 {
		return math.Inf(1)
	}
	return math.Abs(c.Volume()-vref) / vref
}
