package mesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/notargets/gomesh/geometry2D"
)

const (
	MaxNumEdgesPerNode   = 12
	MaxNumNodesPerFace   = 8
	MaxNumConnectedNodes = MaxNumEdgesPerNode * 4
	MinCellArea          = 1e-12
	MinEdgeLength        = 1e-4
)

// Mesh holds a 2D unstructured mesh of nodes, edges and faces. NewMesh runs
// the full administration: per-node edge lists sorted counterclockwise, face
// discovery, node classification and the derived face quantities.
type Mesh struct {
	Nodes []geometry2D.Point
	Edges [][2]int // node pairs (first, second)

	NodesEdges    [][]int // per node, edge ids sorted counterclockwise
	NodesNumEdges []int

	EdgesNumFaces []int    // 0, 1 or 2; 1 means boundary edge
	EdgesFaces    [][2]int // incident face ids, index 0 filled first

	FacesNodes [][]int // counterclockwise boundary of each face
	FacesEdges [][]int

	// 1 = interior, 2 = boundary, 3 = corner, 4 = other
	NodesTypes []int
	NodeMask   []int

	FacesCircumcenters []geometry2D.Point
	FacesMassCenters   []geometry2D.Point
	FaceArea           []float64

	Projection geometry2D.Projection
}

func NewMesh(nodes []geometry2D.Point, edges [][2]int, projection geometry2D.Projection) (m *Mesh, err error) {
	if len(nodes) == 0 || len(edges) == 0 {
		return nil, fmt.Errorf("mesh: empty node or edge set")
	}
	for e, edge := range edges {
		if edge[0] < 0 || edge[0] >= len(nodes) || edge[1] < 0 || edge[1] >= len(nodes) {
			return nil, fmt.Errorf("mesh: edge %d references node out of range", e)
		}
	}
	m = &Mesh{
		Nodes:      nodes,
		Edges:      edges,
		Projection: projection,
	}
	m.nodeAdministration()
	m.sortEdgesCounterClockWise()
	m.findFaces()
	m.classifyNodes()
	if err = m.ComputeFaceCircumcentersMassCentersAndAreas(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mesh) NumNodes() int { return len(m.Nodes) }
func (m *Mesh) NumEdges() int { return len(m.Edges) }
func (m *Mesh) NumFaces() int { return len(m.FacesNodes) }

func (m *Mesh) NumFaceEdges(f int) int { return len(m.FacesNodes[f]) }

func (m *Mesh) nodeAdministration() {
	m.NodesEdges = make([][]int, m.NumNodes())
	m.NodesNumEdges = make([]int, m.NumNodes())
	for e, edge := range m.Edges {
		if edge[0] == edge[1] {
			continue
		}
		m.NodesEdges[edge[0]] = append(m.NodesEdges[edge[0]], e)
		m.NodesEdges[edge[1]] = append(m.NodesEdges[edge[1]], e)
	}
	for n := range m.NodesEdges {
		m.NodesNumEdges[n] = len(m.NodesEdges[n])
	}
}

// sortEdgesCounterClockWise orders each node's edges by the angle of the
// connecting edge, so that consecutive edges bound consecutive faces
func (m *Mesh) sortEdgesCounterClockWise() {
	type edgeAngle struct {
		edge  int
		angle float64
	}
	for n := range m.NodesEdges {
		byAngle := make([]edgeAngle, len(m.NodesEdges[n]))
		for i, e := range m.NodesEdges[n] {
			other := m.Edges[e][0] + m.Edges[e][1] - n
			dx := geometry2D.GetDx(m.Nodes[n], m.Nodes[other], m.Projection)
			dy := geometry2D.GetDy(m.Nodes[n], m.Nodes[other], m.Projection)
			byAngle[i] = edgeAngle{edge: e, angle: math.Atan2(dy, dx)}
		}
		sort.SliceStable(byAngle, func(i, j int) bool {
			return byAngle[i].angle < byAngle[j].angle
		})
		for i, ea := range byAngle {
			m.NodesEdges[n][i] = ea.edge
		}
	}
}

func (m *Mesh) classifyNodes() {
	m.NodesTypes = make([]int, m.NumNodes())
	boundaryCount := make([]int, m.NumNodes())
	hanging := make([]bool, m.NumNodes())
	for e, edge := range m.Edges {
		switch m.EdgesNumFaces[e] {
		case 0:
			hanging[edge[0]] = true
			hanging[edge[1]] = true
		case 1:
			boundaryCount[edge[0]]++
			boundaryCount[edge[1]]++
		}
	}
	for n := range m.NodesTypes {
		switch {
		case hanging[n]:
			m.NodesTypes[n] = 4
		case boundaryCount[n] == 0:
			m.NodesTypes[n] = 1
		case m.NodesNumEdges[n] == 2:
			m.NodesTypes[n] = 3
		default:
			m.NodesTypes[n] = 2
		}
	}
}

// MaskNodesInPolygons marks in NodeMask the nodes lying inside (or, with
// inside=false, outside) the given polygons. A nil polygon selects all nodes.
func (m *Mesh) MaskNodesInPolygons(polygons []*geometry2D.Polygon, inside bool) {
	m.NodeMask = make([]int, m.NumNodes())
	if len(polygons) == 0 {
		for n := range m.NodeMask {
			m.NodeMask[n] = 1
		}
		return
	}
	for n, p := range m.Nodes {
		within := false
		for _, poly := range polygons {
			if poly.PointInside(p) {
				within = true
				break
			}
		}
		if within == inside {
			m.NodeMask[n] = 1
		}
	}
}
