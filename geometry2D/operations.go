package geometry2D

import (
	"math"

	"github.com/golang/geo/r3"
)

/*
	Projection-aware primitives over Point. All functions are pure and never
	fail; divisions that could degenerate are guarded with explicit epsilons.

	In the spherical projections a displacement in x (longitude) is scaled by
	the cosine of the mean latitude, so that dx/dy are meters on the sphere.
*/

// GetDx returns the x-displacement from p1 to p2 in the given projection
func GetDx(p1, p2 Point, projection Projection) (dx float64) {
	dx = p2.X - p1.X
	if projection == Spherical || projection == SphericalAccurate {
		dx = dx * DegRad * EarthRadius *
			math.Cos(0.5*(p1.Y+p2.Y)*DegRad)
	}
	return dx
}

// GetDy returns the y-displacement from p1 to p2 in the given projection
func GetDy(p1, p2 Point, projection Projection) (dy float64) {
	dy = p2.Y - p1.Y
	if projection == Spherical || projection == SphericalAccurate {
		dy = dy * DegRad * EarthRadius
	}
	return dy
}

func SquaredDistance(p1, p2 Point, projection Projection) float64 {
	dx := GetDx(p1, p2, projection)
	dy := GetDy(p1, p2, projection)
	return dx*dx + dy*dy
}

func Distance(p1, p2 Point, projection Projection) float64 {
	return math.Sqrt(SquaredDistance(p1, p2, projection))
}

// InnerProductTwoSegments computes the inner product of segments p1->p2 and
// p3->p4. The sphericalAccurate path works on the 3D chords.
func InnerProductTwoSegments(p1, p2, p3, p4 Point, projection Projection) float64 {
	if projection == SphericalAccurate {
		d1 := SphericalToCartesian(p2).Sub(SphericalToCartesian(p1))
		d2 := SphericalToCartesian(p4).Sub(SphericalToCartesian(p3))
		return d1.Dot(d2)
	}
	dx1 := GetDx(p1, p2, projection)
	dy1 := GetDy(p1, p2, projection)
	dx2 := GetDx(p3, p4, projection)
	dy2 := GetDy(p3, p4, projection)
	return dx1*dx2 + dy1*dy2
}

// OuterProductTwoSegments computes the cross product of segments p1->p2 and
// p3->p4 (the z-component)
func OuterProductTwoSegments(p1, p2, p3, p4 Point, projection Projection) float64 {
	dx1 := GetDx(p1, p2, projection)
	dy1 := GetDy(p1, p2, projection)
	dx2 := GetDx(p3, p4, projection)
	dy2 := GetDy(p3, p4, projection)
	return dx1*dy2 - dy1*dx2
}

// NormalizedInnerProductTwoSegments returns the cosine of the angle between
// the two directed segments, in [-1, 1], or DoubleMissing when either segment
// has zero length.
func NormalizedInnerProductTwoSegments(p1, p2, p3, p4 Point, projection Projection) float64 {
	l1 := Distance(p1, p2, projection)
	l2 := Distance(p3, p4, projection)
	if l1 == 0.0 || l2 == 0.0 {
		return DoubleMissing
	}
	cosphi := InnerProductTwoSegments(p1, p2, p3, p4, projection) / (l1 * l2)
	return math.Max(-1.0, math.Min(1.0, cosphi))
}

// NormalVectorOutside returns the unit normal to the right of the directed
// segment p1->p2
func NormalVectorOutside(p1, p2 Point, projection Projection) (normal Point) {
	dx := GetDx(p1, p2, projection)
	dy := GetDy(p1, p2, projection)
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist == 0.0 {
		return Point{0, 0}
	}
	return Point{dy / dist, -dx / dist}
}

// NormalVectorInside returns the unit normal to the segment p1->p2 oriented
// away from insidePoint. flipped reports whether the right-hand normal of the
// directed segment had to be reversed to achieve that orientation.
func NormalVectorInside(p1, p2, insidePoint Point, projection Projection) (normal Point, flipped bool) {
	normal = NormalVectorOutside(p1, p2, projection)
	third := Point{p1.X + normal.X, p1.Y + normal.Y}
	if OuterProductTwoSegments(p1, third, p1, p2, projection)*
		OuterProductTwoSegments(p1, insidePoint, p1, p2, projection) > 0.0 {
		normal.X = -normal.X
		normal.Y = -normal.Y
		flipped = true
	}
	return normal, flipped
}

// DistanceFromLine projects point onto the segment p1->p2. It returns the
// distance from point to the projection, the projected point itself and the
// parametric ratio along the segment clamped to [0, 1].
func DistanceFromLine(point, p1, p2 Point, projection Projection) (dis float64, projected Point, ratio float64) {
	squared := SquaredDistance(p1, p2, projection)
	if squared == 0.0 {
		return Distance(point, p1, projection), p1, 0.0
	}
	ratio = InnerProductTwoSegments(p1, p2, p1, point, projection) / squared
	ratio = math.Max(0.0, math.Min(1.0, ratio))
	projected = Point{
		p1.X + ratio*(p2.X-p1.X),
		p1.Y + ratio*(p2.Y-p1.Y),
	}
	dis = Distance(point, projected, projection)
	return dis, projected, ratio
}

// AreLinesCrossing intersects segments p1->p2 and q1->q2. ratioFirst and
// ratioSecond are the parametric positions of the intersection on each
// segment; with infinite=true the segments are treated as infinite lines.
func AreLinesCrossing(p1, p2, q1, q2 Point, infinite bool, projection Projection) (
	crossing bool, intersection Point, crossProduct, ratioFirst, ratioSecond float64) {
	const eps = 1e-12
	x21 := GetDx(p1, p2, projection)
	y21 := GetDy(p1, p2, projection)
	x43 := GetDx(q1, q2, projection)
	y43 := GetDy(q1, q2, projection)
	x31 := GetDx(p1, q1, projection)
	y31 := GetDy(p1, q1, projection)

	det := x43*y21 - y43*x21
	if math.Abs(det) < eps {
		return false, Point{}, 0, 0, 0
	}

	ratioFirst = (y31*x43 - x31*y43) / det
	ratioSecond = (y31*x21 - x31*y21) / det
	crossProduct = -det
	if infinite ||
		(ratioFirst >= 0.0 && ratioFirst <= 1.0 &&
			ratioSecond >= 0.0 && ratioSecond <= 1.0) {
		crossing = true
		intersection = Point{
			p1.X + ratioFirst*(p2.X-p1.X),
			p1.Y + ratioFirst*(p2.Y-p1.Y),
		}
	}
	return crossing, intersection, crossProduct, ratioFirst, ratioSecond
}

// SphericalToCartesian converts a lon/lat point in degrees to 3D coordinates
// on the earth sphere
func SphericalToCartesian(p Point) r3.Vector {
	lon := p.X * DegRad
	lat := p.Y * DegRad
	rr := EarthRadius * math.Cos(lat)
	return r3.Vector{
		X: rr * math.Cos(lon),
		Y: rr * math.Sin(lon),
		Z: EarthRadius * math.Sin(lat),
	}
}

// CartesianToSpherical converts a 3D point on the earth sphere back to
// lon/lat degrees; the longitude is unwrapped to the branch closest to
// referenceLongitude.
func CartesianToSpherical(v r3.Vector, referenceLongitude float64) Point {
	angle := math.Atan2(v.Y, v.X) / DegRad
	return Point{
		X: angle + math.Round((referenceLongitude-angle)/360.0)*360.0,
		Y: math.Atan2(v.Z, math.Sqrt(v.X*v.X+v.Y*v.Y)) / DegRad,
	}
}

// ComputeThreeBaseComponents returns the local right-handed 3-frame at p:
// the radial direction, the east direction and the north direction.
func ComputeThreeBaseComponents(p Point) (exxp, eyyp, ezzp r3.Vector) {
	phi0 := p.Y * DegRad
	lambda0 := p.X * DegRad

	exxp = r3.Vector{
		X: math.Cos(phi0) * math.Cos(lambda0),
		Y: math.Cos(phi0) * math.Sin(lambda0),
		Z: math.Sin(phi0),
	}
	eyyp = r3.Vector{
		X: -math.Sin(lambda0),
		Y: math.Cos(lambda0),
		Z: 0.0,
	}
	ezzp = r3.Vector{
		X: -math.Sin(phi0) * math.Cos(lambda0),
		Y: -math.Sin(phi0) * math.Sin(lambda0),
		Z: math.Cos(phi0),
	}
	return exxp, eyyp, ezzp
}
