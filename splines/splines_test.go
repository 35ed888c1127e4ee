package splines

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gomesh/geometry2D"
)

func TestSplineThroughCornerPoints(t *testing.T) {
	s := NewSplines(geometry2D.Cartesian)
	index, err := s.AddSpline([]geometry2D.Point{
		{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}, {X: 3, Y: 1},
	})
	require.NoError(t, err)

	// whole adimensional coordinates reproduce the corner points
	for i, want := range s.cornerPoints[index] {
		got := s.Interpolate(index, float64(i))
		assert.InDelta(t, want.X, got.X, 1e-12)
		assert.InDelta(t, want.Y, got.Y, 1e-12)
	}
}

func TestStraightSplineLength(t *testing.T) {
	s := NewSplines(geometry2D.Cartesian)
	index, err := s.AddSpline([]geometry2D.Point{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0},
	})
	require.NoError(t, err)

	// a straight spline stays straight: natural derivatives vanish
	length := s.GetSplineLength(index, 0.0, 3.0, 100)
	assert.InDelta(t, 3.0, length, 1e-9)

	mid := s.Interpolate(index, 1.5)
	assert.InDelta(t, 1.5, mid.X, 1e-12)
	assert.InDelta(t, 0.0, mid.Y, 1e-12)
}

func TestSecondOrderDerivativeSymmetry(t *testing.T) {
	// symmetric arch: the second derivative is symmetric and peaks inside
	derivatives := SecondOrderDerivative([]geometry2D.Point{
		{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0},
	})
	assert.InDelta(t, 0.0, derivatives[0].Y, 1e-12)
	assert.InDelta(t, 0.0, derivatives[2].Y, 1e-12)
	assert.Less(t, derivatives[1].Y, 0.0)
}

func TestSplinesIntersection(t *testing.T) {
	s := NewSplines(geometry2D.Cartesian)
	first, err := s.AddSpline([]geometry2D.Point{{X: -1, Y: 0}, {X: 1, Y: 0}})
	require.NoError(t, err)
	second, err := s.AddSpline([]geometry2D.Point{{X: 0, Y: -1}, {X: 0, Y: 1}})
	require.NoError(t, err)

	found, intersection, _, firstRatio, secondRatio := s.GetSplinesIntersection(first, second)
	require.True(t, found)
	assert.InDelta(t, 0.0, intersection.X, 1e-6)
	assert.InDelta(t, 0.0, intersection.Y, 1e-6)
	assert.InDelta(t, 0.5, firstRatio, 1e-6)
	assert.InDelta(t, 0.5, secondRatio, 1e-6)

	// parallel splines do not intersect
	third, err := s.AddSpline([]geometry2D.Point{{X: -1, Y: 1}, {X: 1, Y: 1}})
	require.NoError(t, err)
	found, _, _, _, _ = s.GetSplinesIntersection(first, third)
	assert.False(t, found)
}

func TestAddSplineValidation(t *testing.T) {
	s := NewSplines(geometry2D.Cartesian)
	_, err := s.AddSpline([]geometry2D.Point{{X: 0, Y: 0}})
	assert.Error(t, err)
	assert.Equal(t, 0, s.NumSplines())
}
