package splines

import (
	"fmt"
	"math"

	"github.com/notargets/gomesh/geometry2D"
)

/*
	Natural cubic splines through corner points, used to describe curved
	boundaries. Each spline stores its corner points together with the second
	order derivative table obtained from the tridiagonal natural spline
	system.
*/
type Splines struct {
	Projection geometry2D.Projection

	cornerPoints [][]geometry2D.Point
	derivatives  [][]geometry2D.Point
	lengths      []float64
}

func NewSplines(projection geometry2D.Projection) *Splines {
	return &Splines{Projection: projection}
}

func (s *Splines) NumSplines() int {
	return len(s.cornerPoints)
}

// AddSpline appends a new spline through the given corner points and returns
// its index
func (s *Splines) AddSpline(points []geometry2D.Point) (index int, err error) {
	if len(points) < 2 {
		return 0, fmt.Errorf("splines: a spline needs at least two corner points")
	}
	corner := append([]geometry2D.Point(nil), points...)
	s.cornerPoints = append(s.cornerPoints, corner)
	s.derivatives = append(s.derivatives, SecondOrderDerivative(corner))
	index = len(s.cornerPoints) - 1
	s.lengths = append(s.lengths, s.GetSplineLength(index, 0.0, float64(len(corner)-1), 100))
	return index, nil
}

// SecondOrderDerivative solves the natural spline tridiagonal system for the
// second derivatives at the corner points
func SecondOrderDerivative(coordinates []geometry2D.Point) (derivatives []geometry2D.Point) {
	numNodes := len(coordinates)
	derivatives = make([]geometry2D.Point, numNodes)
	u := make([]geometry2D.Point, numNodes)

	for i := 1; i < numNodes-1; i++ {
		p := geometry2D.Point{
			X: derivatives[i-1].X*0.5 + 2.0,
			Y: derivatives[i-1].Y*0.5 + 2.0,
		}
		derivatives[i] = geometry2D.Point{X: -0.5 / p.X, Y: -0.5 / p.Y}

		delta := coordinates[i+1].Sub(coordinates[i]).Sub(coordinates[i].Sub(coordinates[i-1]))
		u[i] = geometry2D.Point{
			X: (delta.X*3.0 - u[i-1].X*0.5) / p.X,
			Y: (delta.Y*3.0 - u[i-1].Y*0.5) / p.Y,
		}
	}

	derivatives[numNodes-1] = geometry2D.Point{}
	for i := numNodes - 2; i >= 0; i-- {
		derivatives[i] = geometry2D.Point{
			X: derivatives[i].X*derivatives[i+1].X + u[i].X,
			Y: derivatives[i].Y*derivatives[i+1].Y + u[i].Y,
		}
	}
	return derivatives
}

// InterpolateSplinePoint evaluates a spline at the adimensional coordinate,
// where whole numbers land on the corner points
func InterpolateSplinePoint(coordinates, derivatives []geometry2D.Point,
	pointAdimensionalCoordinate float64) geometry2D.Point {
	numNodes := len(coordinates)
	left := int(math.Max(math.Min(math.Floor(pointAdimensionalCoordinate), float64(numNodes-2)), 0.0))
	right := left + 1

	leftSegment := float64(right) - pointAdimensionalCoordinate
	rightSegment := pointAdimensionalCoordinate - float64(left)

	eval := func(cl, cr, dl, dr float64) float64 {
		return cl*leftSegment + cr*rightSegment +
			(dl*(leftSegment*leftSegment*leftSegment-leftSegment)+
				dr*(rightSegment*rightSegment*rightSegment-rightSegment))/6.0
	}
	return geometry2D.Point{
		X: eval(coordinates[left].X, coordinates[right].X, derivatives[left].X, derivatives[right].X),
		Y: eval(coordinates[left].Y, coordinates[right].Y, derivatives[left].Y, derivatives[right].Y),
	}
}

// Interpolate evaluates spline index at the adimensional coordinate
func (s *Splines) Interpolate(index int, coordinate float64) geometry2D.Point {
	return InterpolateSplinePoint(s.cornerPoints[index], s.derivatives[index], coordinate)
}

// GetSplineLength integrates the arc length between two adimensional
// coordinates with numSamples subdivisions per corner interval
func (s *Splines) GetSplineLength(index int, beginFactor, endFactor float64, numSamples int) float64 {
	delta := 1.0 / float64(numSamples)
	numPoints := int(math.Max(math.Floor(0.9999+(endFactor-beginFactor)/delta), 10.0))
	delta = (endFactor - beginFactor) / float64(numPoints)

	leftPoint := s.Interpolate(index, beginFactor)
	splineLength := 0.0
	coordinate := beginFactor
	for p := 0; p < numPoints; p++ {
		coordinate += delta
		if coordinate > endFactor {
			coordinate = endFactor
		}
		rightPoint := s.Interpolate(index, coordinate)
		splineLength += geometry2D.Distance(leftPoint, rightPoint, s.Projection)
		leftPoint = rightPoint
	}
	return splineLength
}

/*
	GetSplinesIntersection finds the crossing of two splines: first the
	closest crossing of the piecewise linear corner segments, then a bisection
	refinement on the interpolated spline points.
*/
func (s *Splines) GetSplinesIntersection(first, second int) (
	found bool, intersection geometry2D.Point, crossProduct, firstSplineRatio, secondSplineRatio float64) {

	numFirst := len(s.cornerPoints[first])
	numSecond := len(s.cornerPoints[second])

	numCrossing := 0
	minimumCrossingDistance := math.MaxFloat64
	var firstCrossingIndex, secondCrossingIndex int
	var firstCrossingRatio, secondCrossingRatio float64
	var closestIntersection geometry2D.Point

	for n := 0; n < numFirst-1; n++ {
		for nn := 0; nn < numSecond-1; nn++ {
			crossing, point, _, firstRatio, secondRatio := geometry2D.AreLinesCrossing(
				s.cornerPoints[first][n], s.cornerPoints[first][n+1],
				s.cornerPoints[second][nn], s.cornerPoints[second][nn+1],
				false, s.Projection)
			if !crossing {
				continue
			}
			crossingDistance := minimumCrossingDistance
			if numFirst == 2 {
				crossingDistance = math.Abs(firstRatio - 0.5)
			} else if numSecond == 2 {
				crossingDistance = math.Abs(secondRatio - 0.5)
			}
			if crossingDistance < minimumCrossingDistance || numCrossing == 0 {
				minimumCrossingDistance = crossingDistance
				numCrossing = 1
				firstCrossingIndex = n
				secondCrossingIndex = nn
				firstCrossingRatio = firstRatio
				secondCrossingRatio = secondRatio
				closestIntersection = point
			}
		}
	}
	if numCrossing == 0 {
		return false, geometry2D.Point{}, 0, 0, 0
	}

	firstCrossing := float64(firstCrossingIndex) + firstCrossingRatio
	secondCrossing := float64(secondCrossingIndex) + secondCrossingRatio

	const (
		maxSquaredDistanceBetweenCrossings = 1e-12
		maxDistanceBetweenVertices         = 1e-4
	)
	squaredDistanceBetweenCrossings := math.MaxFloat64
	firstRatioIterations := 1.0
	secondRatioIterations := 1.0
	for numIterations := 0; squaredDistanceBetweenCrossings > maxSquaredDistanceBetweenCrossings &&
		numIterations < 20; numIterations++ {
		if firstCrossingRatio > 0 && firstCrossingRatio < 1.0 {
			firstRatioIterations = 0.5 * firstRatioIterations
		}
		if secondCrossingRatio > 0 && secondCrossingRatio < 1.0 {
			secondRatioIterations = 0.5 * secondRatioIterations
		}

		firstCrossing = math.Max(0.0, math.Min(firstCrossing, float64(numFirst)))
		secondCrossing = math.Max(0.0, math.Min(secondCrossing, float64(numSecond)))

		firstLeft := math.Max(0.0, math.Min(float64(numFirst-1), firstCrossing-firstRatioIterations/2.0))
		firstRight := math.Max(0.0, math.Min(float64(numFirst-1), firstCrossing+firstRatioIterations/2.0))
		secondLeft := math.Max(0.0, math.Min(float64(numSecond-1), secondCrossing-secondRatioIterations/2.0))
		secondRight := math.Max(0.0, math.Min(float64(numSecond-1), secondCrossing+secondRatioIterations/2.0))

		firstRatioIterations = firstRight - firstLeft
		secondRatioIterations = secondRight - secondLeft

		oldIntersection := closestIntersection
		crossing, point, cp, firstRatio, secondRatio := geometry2D.AreLinesCrossing(
			s.Interpolate(first, firstLeft), s.Interpolate(first, firstRight),
			s.Interpolate(second, secondLeft), s.Interpolate(second, secondRight),
			true, s.Projection)

		// only accept steps that stay close to the current bracket
		if firstRatio > -2.0 && firstRatio < 3.0 && secondRatio > -2.0 && secondRatio < 3.0 {
			previousFirstCrossing := firstCrossing
			previousSecondCrossing := secondCrossing

			firstCrossing = math.Max(0.0, math.Min(float64(numFirst)-1.0,
				firstLeft+firstRatio*(firstRight-firstLeft)))
			secondCrossing = math.Max(0.0, math.Min(float64(numSecond)-1.0,
				secondLeft+secondRatio*(secondRight-secondLeft)))

			if crossing {
				numCrossing = 1
				crossProduct = cp
				closestIntersection = point
			}

			if math.Abs(firstCrossing-previousFirstCrossing) > maxDistanceBetweenVertices ||
				math.Abs(secondCrossing-previousSecondCrossing) > maxDistanceBetweenVertices {
				squaredDistanceBetweenCrossings = geometry2D.SquaredDistance(
					oldIntersection, closestIntersection, s.Projection)
			} else {
				break
			}
		}
	}

	return true, closestIntersection, crossProduct, firstCrossing, secondCrossing
}
