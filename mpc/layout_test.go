package mpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutOffsets(t *testing.T) {
	for n := 2; n <= 20; n++ {
		l, err := NewLayout(n)
		require.NoError(t, err)

		prev := -1
		total := 0
		for f := FieldX; f < numFields; f++ {
			off := l.Offset(f)
			assert.Greater(t, off, prev, "N=%d: offsets must be strictly increasing", n)
			assert.Equal(t, total, off, "N=%d: offset of %s must equal sum of preceding block lengths", n, f)
			prev = off
			total += l.BlockLen(f)
		}
		assert.Equal(t, 6*n+2*(n-1), total, "N=%d", n)
		assert.Equal(t, 6*n+2*(n-1), l.NumVariables(), "N=%d", n)
		assert.Equal(t, 6*n, l.NumConstraints(), "N=%d", n)
	}
}

func TestLayoutRejectsTinyHorizon(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		_, err := NewLayout(n)
		assert.ErrorIs(t, err, ErrInvalidInput, "N=%d", n)
	}
}

func TestLayoutIndexRanges(t *testing.T) {
	l, err := NewLayout(5)
	require.NoError(t, err)

	// State blocks accept [0,N), actuator blocks [0,N-1).
	_, err = l.Index(FieldSpeed, 4)
	assert.NoError(t, err)
	_, err = l.Index(FieldSpeed, 5)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = l.Index(FieldSteer, 3)
	assert.NoError(t, err)
	_, err = l.Index(FieldSteer, 4)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = l.Index(FieldX, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLayoutAt(t *testing.T) {
	l, err := NewLayout(3)
	require.NoError(t, err)

	vec := make([]float64, l.NumVariables())
	for i := range vec {
		vec[i] = float64(i)
	}

	v, err := l.At(vec, FieldCTE, 2)
	require.NoError(t, err)
	assert.Equal(t, float64(l.Offset(FieldCTE)+2), v)

	_, err = l.At(vec[:5], FieldX, 0)
	assert.ErrorIs(t, err, ErrInvalidInput, "wrong vector length")
}
