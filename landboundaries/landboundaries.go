package landboundaries

import (
	"github.com/notargets/gomesh/geometry2D"
	"github.com/notargets/gomesh/mesh"
)

/*
	LandBoundaries snaps mesh boundary nodes onto externally supplied land
	boundary polylines. Polylines are separated by missing-value points in the
	input list, following the common net file convention.

	Administrate selects the candidate mesh nodes, FindNearestMeshBoundary
	matches each candidate to its closest land segment and
	SnapMeshToLandBoundaries projects the matched nodes onto that segment. A
	node is only snapped when its distance to the land boundary is within the
	average length of its own edges, so far-away boundaries leave the mesh
	untouched.
*/
type LandBoundaries struct {
	nodes    []geometry2D.Point
	segments [][2]geometry2D.Point

	candidates     []int
	nearestSegment []int
}

func New(landBoundaryNodes []geometry2D.Point) (lb *LandBoundaries) {
	lb = &LandBoundaries{}
	lb.Set(landBoundaryNodes)
	return lb
}

// Set splits the node list into polyline segments at missing values
func (lb *LandBoundaries) Set(landBoundaryNodes []geometry2D.Point) {
	lb.nodes = landBoundaryNodes
	lb.segments = lb.segments[:0]
	for i := 0; i+1 < len(landBoundaryNodes); i++ {
		first := landBoundaryNodes[i]
		second := landBoundaryNodes[i+1]
		if !first.IsValid() || !second.IsValid() {
			continue
		}
		lb.segments = append(lb.segments, [2]geometry2D.Point{first, second})
	}
}

func (lb *LandBoundaries) NumSegments() int {
	return len(lb.segments)
}

// Administrate collects the mesh boundary nodes lying inside the selecting
// polygons; with no polygons every boundary node is a candidate
func (lb *LandBoundaries) Administrate(m *mesh.Mesh, polygons []*geometry2D.Polygon) {
	lb.candidates = lb.candidates[:0]
	for n := 0; n < m.NumNodes(); n++ {
		if m.NodesTypes[n] != 2 && m.NodesTypes[n] != 3 {
			continue
		}
		if len(polygons) > 0 {
			inside := false
			for _, poly := range polygons {
				if poly.PointInside(m.Nodes[n]) {
					inside = true
					break
				}
			}
			if !inside {
				continue
			}
		}
		lb.candidates = append(lb.candidates, n)
	}
}

// FindNearestMeshBoundary stores, for every candidate node, the land segment
// it is closest to
func (lb *LandBoundaries) FindNearestMeshBoundary(m *mesh.Mesh, projectOption int) {
	lb.nearestSegment = make([]int, m.NumNodes())
	for n := range lb.nearestSegment {
		lb.nearestSegment[n] = geometry2D.IntMissing
	}
	if projectOption < 1 || len(lb.segments) == 0 {
		return
	}
	for _, n := range lb.candidates {
		bestSegment := geometry2D.IntMissing
		bestDistance := 0.0
		for s, segment := range lb.segments {
			dis, _, _ := geometry2D.DistanceFromLine(m.Nodes[n], segment[0], segment[1], m.Projection)
			if bestSegment == geometry2D.IntMissing || dis < bestDistance {
				bestSegment = s
				bestDistance = dis
			}
		}
		lb.nearestSegment[n] = bestSegment
	}
}

// SnapMeshToLandBoundaries projects the matched boundary nodes onto their
// nearest land segment. Corner nodes keep their position.
func (lb *LandBoundaries) SnapMeshToLandBoundaries(m *mesh.Mesh) {
	if len(lb.nearestSegment) != m.NumNodes() {
		return
	}
	for _, n := range lb.candidates {
		if m.NodesTypes[n] != 2 {
			continue
		}
		s := lb.nearestSegment[n]
		if s == geometry2D.IntMissing {
			continue
		}
		segment := lb.segments[s]
		dis, projected, _ := geometry2D.DistanceFromLine(m.Nodes[n], segment[0], segment[1], m.Projection)
		if dis <= lb.searchRadius(m, n) {
			m.Nodes[n] = projected
		}
	}
}

// searchRadius is the average length of the node's own edges
func (lb *LandBoundaries) searchRadius(m *mesh.Mesh, n int) float64 {
	if m.NodesNumEdges[n] == 0 {
		return 0.0
	}
	total := 0.0
	for _, e := range m.NodesEdges[n] {
		other := m.Edges[e][0] + m.Edges[e][1] - n
		total += geometry2D.Distance(m.Nodes[n], m.Nodes[other], m.Projection)
	}
	return total / float64(m.NodesNumEdges[n])
}
