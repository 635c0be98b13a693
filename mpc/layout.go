package mpc

import "fmt"

// Field names one logical sequence inside the flat variable vector.
type Field int

const (
	FieldX Field = iota
	FieldY
	FieldHeading
	FieldSpeed
	FieldCTE
	FieldHeadingErr
	FieldSteer
	FieldAccel

	numFields
)

func (f Field) String() string {
	switch f {
	case FieldX:
		return "x"
	case FieldY:
		return "y"
	case FieldHeading:
		return "heading"
	case FieldSpeed:
		return "speed"
	case FieldCTE:
		return "cte"
	case FieldHeadingErr:
		return "heading_err"
	case FieldSteer:
		return "steer"
	case FieldAccel:
		return "accel"
	default:
		return "unknown"
	}
}

// actuator reports whether the field's block has N-1 entries instead of N.
func (f Field) actuator() bool { return f == FieldSteer || f == FieldAccel }

// stateFields lists the six state blocks in vector order.
var stateFields = [6]Field{FieldX, FieldY, FieldHeading, FieldSpeed, FieldCTE, FieldHeadingErr}

// Layout maps (field, timestep) pairs onto one flat vector: six contiguous
// state blocks of length N, then two actuator blocks of length N-1. Block
// offsets are cumulative sums of the preceding block lengths; every other
// component reads the vector through this mapping and nothing else.
type Layout struct {
	n       int
	offsets [numFields]int
}

// NewLayout computes the layout for an N-step horizon.
func NewLayout(n int) (Layout, error) {
	if n < 2 {
		return Layout{}, fmt.Errorf("%w: horizon %d, need at least 2", ErrInvalidInput, n)
	}
	l := Layout{n: n}
	off := 0
	for f := FieldX; f < numFields; f++ {
		l.offsets[f] = off
		off += l.BlockLen(f)
	}
	return l, nil
}

// Horizon returns N.
func (l Layout) Horizon() int { return l.n }

// BlockLen returns the number of entries in the field's block.
func (l Layout) BlockLen(f Field) int {
	if f.actuator() {
		return l.n - 1
	}
	return l.n
}

// Offset returns the start index of the field's block.
func (l Layout) Offset(f Field) int { return l.offsets[f] }

// NumVariables is the flat vector length: 6N + 2(N-1).
func (l Layout) NumVariables() int { return 6*l.n + 2*(l.n-1) }

// NumConstraints is one equality per state variable per timestep: 6N.
func (l Layout) NumConstraints() int { return 6 * l.n }

// Index returns the flat position of field f at timestep t, rejecting t
// outside [0,N) for state blocks and [0,N-1) for actuator blocks.
func (l Layout) Index(f Field, t int) (int, error) {
	if f < FieldX || f >= numFields {
		return 0, fmt.Errorf("%w: unknown field %d", ErrInvalidInput, int(f))
	}
	if t < 0 || t >= l.BlockLen(f) {
		return 0, fmt.Errorf("%w: timestep %d out of range [0,%d) for %s", ErrInvalidInput, t, l.BlockLen(f), f)
	}
	return l.offsets[f] + t, nil
}

// At reads field f at timestep t out of a flat vector.
func (l Layout) At(vec []float64, f Field, t int) (float64, error) {
	i, err := l.Index(f, t)
	if err != nil {
		return 0, err
	}
	if len(vec) != l.NumVariables() {
		return 0, fmt.Errorf("%w: vector length %d, want %d", ErrInvalidInput, len(vec), l.NumVariables())
	}
	return vec[i], nil
}

// idx is the unchecked fast path for internal loops that already respect
// block ranges.
func (l Layout) idx(f Field, t int) int { return l.offsets[f] + t }
