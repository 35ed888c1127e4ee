package landboundaries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gomesh/geometry2D"
	"github.com/notargets/gomesh/mesh"
)

func buildGrid(t *testing.T, ni, nj int, spacing float64) *mesh.Mesh {
	t.Helper()
	var (
		nodes []geometry2D.Point
		edges [][2]int
	)
	nodeNum := func(i, j int) int { return i + j*ni }
	for j := 0; j < nj; j++ {
		for i := 0; i < ni; i++ {
			nodes = append(nodes, geometry2D.Point{
				X: float64(i) * spacing,
				Y: float64(j) * spacing,
			})
		}
	}
	for j := 0; j < nj; j++ {
		for i := 0; i < ni-1; i++ {
			edges = append(edges, [2]int{nodeNum(i, j), nodeNum(i+1, j)})
		}
	}
	for j := 0; j < nj-1; j++ {
		for i := 0; i < ni; i++ {
			edges = append(edges, [2]int{nodeNum(i, j), nodeNum(i, j+1)})
		}
	}
	m, err := mesh.NewMesh(nodes, edges, geometry2D.Cartesian)
	require.NoError(t, err)
	return m
}

func TestSetSplitsPolylines(t *testing.T) {
	lb := New([]geometry2D.Point{
		{X: 0, Y: 0}, {X: 1, Y: 0},
		{X: geometry2D.DoubleMissing, Y: geometry2D.DoubleMissing},
		{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1},
	})
	// the missing-value separator breaks the list into 1 + 2 segments
	assert.Equal(t, 3, lb.NumSegments())
}

func TestSnapMovesOnlyNearbyBoundaryNodes(t *testing.T) {
	m := buildGrid(t, 3, 3, 10.0)
	lb := New([]geometry2D.Point{
		{X: -1.37, Y: 21.25}, {X: 20.89, Y: 21.54},
	})
	lb.Administrate(m, nil)
	lb.FindNearestMeshBoundary(m, 1)
	lb.SnapMeshToLandBoundaries(m)

	// the top middle boundary node lands on the segment
	dis, _, _ := geometry2D.DistanceFromLine(m.Nodes[7],
		geometry2D.Point{X: -1.37, Y: 21.25}, geometry2D.Point{X: 20.89, Y: 21.54},
		m.Projection)
	assert.LessOrEqual(t, dis, 1e-9)

	// the bottom row is out of reach, corners never snap
	assert.Equal(t, geometry2D.Point{X: 10, Y: 0}, m.Nodes[1])
	assert.Equal(t, geometry2D.Point{X: 0, Y: 20}, m.Nodes[6])
	assert.Equal(t, geometry2D.Point{X: 20, Y: 20}, m.Nodes[8])

	// interior nodes are untouched
	assert.Equal(t, geometry2D.Point{X: 10, Y: 10}, m.Nodes[4])
}

func TestAdministrateRespectsPolygons(t *testing.T) {
	m := buildGrid(t, 3, 3, 10.0)
	lb := New([]geometry2D.Point{{X: 0, Y: 25}, {X: 20, Y: 25}})

	// a polygon selecting only the left column
	poly := geometry2D.NewPolygon([]geometry2D.Point{
		{X: -5, Y: -5}, {X: 5, Y: -5}, {X: 5, Y: 25}, {X: -5, Y: 25},
	})
	lb.Administrate(m, []*geometry2D.Polygon{poly})
	for _, n := range lb.candidates {
		assert.Equal(t, 0.0, m.Nodes[n].X, "node %d outside the polygon", n)
	}
	assert.NotEmpty(t, lb.candidates)
}
