package geometry2D

// Polygon is a closed polyline. The constructor closes the ring if the caller
// did not.
type Polygon struct {
	Geometry []Point
}

func NewPolygon(geom []Point) (poly *Polygon) {
	if len(geom) > 0 && geom[len(geom)-1] != geom[0] {
		geom = append(geom, geom[0])
	}
	return &Polygon{Geometry: geom}
}

// PointInside uses the winding number from
// http://geomalgorithms.com/a03-_inclusion.html#wn_PnPoly()
// if wn = 0, the point is outside
func (pg *Polygon) PointInside(point Point) (inside bool) {
	isLeft := func(P0, P1, P2 Point) float64 {
		return (P1.X-P0.X)*(P2.Y-P0.Y) -
			(P2.X-P0.X)*(P1.Y-P0.Y)
	}

	var wn int
	for i := 0; i < len(pg.Geometry)-1; i++ {
		pt0 := pg.Geometry[i]
		pt1 := pg.Geometry[i+1]
		if pt0.Y <= point.Y {
			if pt1.Y > point.Y {
				if isLeft(pt0, pt1, point) > 0 {
					wn++
				}
			}
		} else {
			if pt1.Y <= point.Y {
				if isLeft(pt0, pt1, point) < 0 {
					wn--
				}
			}
		}
	}
	return wn != 0
}
