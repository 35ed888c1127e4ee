package mesh

import (
	"fmt"
	"math"

	"github.com/notargets/gomesh/geometry2D"
)

/*
	Face discovery by tracing the sorted edge fans: from every directed edge,
	walk to the counterclockwise-previous edge at the head node until the walk
	closes. Interior faces come out counterclockwise with positive area; the
	outer face closes clockwise and is discarded, as is any walk longer than
	MaxNumNodesPerFace.
*/
func (m *Mesh) findFaces() {
	numEdges := m.NumEdges()
	m.EdgesNumFaces = make([]int, numEdges)
	m.EdgesFaces = make([][2]int, numEdges)
	for e := range m.EdgesFaces {
		m.EdgesFaces[e] = [2]int{geometry2D.IntMissing, geometry2D.IntMissing}
	}
	m.FacesNodes = nil
	m.FacesEdges = nil

	traversed := make([][2]bool, numEdges)
	for e := range m.Edges {
		if m.Edges[e][0] == m.Edges[e][1] {
			continue
		}
		for dir := 0; dir < 2; dir++ {
			if traversed[e][dir] {
				continue
			}
			faceNodes, faceEdges, closed := m.walkFace(e, dir, traversed)
			if !closed || len(faceNodes) < 3 {
				continue
			}
			if m.signedFaceArea(faceNodes) <= 0.0 {
				continue
			}
			f := len(m.FacesNodes)
			m.FacesNodes = append(m.FacesNodes, faceNodes)
			m.FacesEdges = append(m.FacesEdges, faceEdges)
			for _, fe := range faceEdges {
				if m.EdgesNumFaces[fe] < 2 {
					m.EdgesFaces[fe][m.EdgesNumFaces[fe]] = f
				}
				m.EdgesNumFaces[fe]++
			}
		}
	}
}

func (m *Mesh) walkFace(startEdge, startDir int, traversed [][2]bool) (faceNodes, faceEdges []int, closed bool) {
	edge := startEdge
	tail := m.Edges[edge][startDir]
	for {
		head := m.Edges[edge][0] + m.Edges[edge][1] - tail
		dir := 0
		if tail == m.Edges[edge][1] {
			dir = 1
		}
		if traversed[edge][dir] {
			// closed the cycle back onto the start edge
			return faceNodes, faceEdges, edge == startEdge && tail == m.Edges[startEdge][startDir]
		}
		traversed[edge][dir] = true
		faceNodes = append(faceNodes, tail)
		faceEdges = append(faceEdges, edge)
		if len(faceNodes) > MaxNumNodesPerFace {
			return nil, nil, false
		}

		// continue along the counterclockwise-previous edge at the head node
		fan := m.NodesEdges[head]
		idx := 0
		for i, fe := range fan {
			if fe == edge {
				idx = i
				break
			}
		}
		edge = fan[geometry2D.NextCircularBackwardIndex(idx, len(fan))]
		tail = head
	}
}

// localFromReference maps p to planar coordinates around ref; in spherical
// modes the longitude axis is scaled with the reference latitude
func (m *Mesh) localFromReference(ref, p geometry2D.Point) (x, y float64) {
	x = p.X - ref.X
	y = p.Y - ref.Y
	if m.Projection == geometry2D.Spherical || m.Projection == geometry2D.SphericalAccurate {
		x = x * geometry2D.DegRad * geometry2D.EarthRadius * math.Cos(ref.Y*geometry2D.DegRad)
		y = y * geometry2D.DegRad * geometry2D.EarthRadius
	}
	return x, y
}

func (m *Mesh) globalFromReference(ref geometry2D.Point, x, y float64) geometry2D.Point {
	if m.Projection == geometry2D.Spherical || m.Projection == geometry2D.SphericalAccurate {
		x = x / (geometry2D.DegRad * geometry2D.EarthRadius * math.Cos(ref.Y*geometry2D.DegRad))
		y = y / (geometry2D.DegRad * geometry2D.EarthRadius)
	}
	return geometry2D.Point{X: ref.X + x, Y: ref.Y + y}
}

func (m *Mesh) signedFaceArea(faceNodes []int) (area float64) {
	ref := m.Nodes[faceNodes[0]]
	for i := range faceNodes {
		j := geometry2D.NextCircularForwardIndex(i, len(faceNodes))
		xi, yi := m.localFromReference(ref, m.Nodes[faceNodes[i]])
		xj, yj := m.localFromReference(ref, m.Nodes[faceNodes[j]])
		area += 0.5 * (xi*yj - xj*yi)
	}
	return area
}

// ComputeFaceCircumcentersMassCentersAndAreas recomputes the derived face
// quantities. The solver calls this between outer iterations.
func (m *Mesh) ComputeFaceCircumcentersMassCentersAndAreas() error {
	numFaces := m.NumFaces()
	m.FacesCircumcenters = make([]geometry2D.Point, numFaces)
	m.FacesMassCenters = make([]geometry2D.Point, numFaces)
	m.FaceArea = make([]float64, numFaces)
	for f := 0; f < numFaces; f++ {
		if len(m.FacesNodes[f]) < 3 {
			return fmt.Errorf("mesh: face %d has fewer than three nodes", f)
		}
		m.FaceArea[f], m.FacesMassCenters[f] = m.faceAreaAndMassCenter(f)
		m.FacesCircumcenters[f] = m.faceCircumcenter(f)
	}
	return nil
}

func (m *Mesh) faceAreaAndMassCenter(f int) (area float64, center geometry2D.Point) {
	faceNodes := m.FacesNodes[f]
	ref := m.Nodes[faceNodes[0]]
	var cx, cy float64
	for i := range faceNodes {
		j := geometry2D.NextCircularForwardIndex(i, len(faceNodes))
		xi, yi := m.localFromReference(ref, m.Nodes[faceNodes[i]])
		xj, yj := m.localFromReference(ref, m.Nodes[faceNodes[j]])
		cross := xi*yj - xj*yi
		area += 0.5 * cross
		cx += (xi + xj) * cross
		cy += (yi + yj) * cross
	}
	if math.Abs(area) < MinCellArea {
		// degenerate face, fall back to the node average
		cx, cy = 0.0, 0.0
		for _, n := range faceNodes {
			xi, yi := m.localFromReference(ref, m.Nodes[n])
			cx += xi
			cy += yi
		}
		inv := 1.0 / float64(len(faceNodes))
		return area, m.globalFromReference(ref, cx*inv, cy*inv)
	}
	return area, m.globalFromReference(ref, cx/(6.0*area), cy/(6.0*area))
}

/*
	Circumcenter of a face. Triangles use the exact perpendicular-bisector
	intersection. Larger faces relax an estimate from the mass center: the
	line from the circumcenter to each internal edge's midpoint must be
	orthogonal to that edge, so the tangential component of the offset is
	iteratively removed.
*/
func (m *Mesh) faceCircumcenter(f int) geometry2D.Point {
	const (
		maxCircumcenterIterations = 100
		relaxation                = 0.1
		eps                       = 1e-12
	)
	faceNodes := m.FacesNodes[f]
	numNodes := len(faceNodes)
	ref := m.Nodes[faceNodes[0]]

	if numNodes == 3 {
		bx, by := m.localFromReference(ref, m.Nodes[faceNodes[1]])
		cx, cy := m.localFromReference(ref, m.Nodes[faceNodes[2]])
		d := 2.0 * (bx*cy - by*cx)
		if math.Abs(d) < 1e-16 {
			return m.FacesMassCenters[f]
		}
		ux := (cy*(bx*bx+by*by) - by*(cx*cx+cy*cy)) / d
		uy := (bx*(cx*cx+cy*cy) - cx*(bx*bx+by*by)) / d
		return m.globalFromReference(ref, ux, uy)
	}

	numInternal := 0
	for _, e := range m.FacesEdges[f] {
		if m.EdgesNumFaces[e] == 2 {
			numInternal++
		}
	}
	if numInternal < 2 {
		return m.FacesMassCenters[f]
	}

	ex, ey := m.localFromReference(ref, m.FacesMassCenters[f])
	for iter := 0; iter < maxCircumcenterIterations; iter++ {
		px, py := ex, ey
		for i := range faceNodes {
			if m.EdgesNumFaces[m.FacesEdges[f][i]] != 2 {
				continue
			}
			j := geometry2D.NextCircularForwardIndex(i, numNodes)
			ax, ay := m.localFromReference(ref, m.Nodes[faceNodes[i]])
			bx, by := m.localFromReference(ref, m.Nodes[faceNodes[j]])
			tx, ty := bx-ax, by-ay
			length := math.Sqrt(tx*tx + ty*ty)
			if length == 0.0 {
				continue
			}
			tx, ty = tx/length, ty/length
			mx, my := 0.5*(ax+bx), 0.5*(ay+by)
			increment := -relaxation * ((ex-mx)*tx + (ey-my)*ty)
			ex += increment * tx
			ey += increment * ty
		}
		if iter > 0 && math.Abs(ex-px) < eps && math.Abs(ey-py) < eps {
			break
		}
	}
	return m.globalFromReference(ref, ex, ey)
}
