package orthogonalization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/notargets/gomesh/InputParameters"
	"github.com/notargets/gomesh/geometry2D"
	"github.com/notargets/gomesh/mesh"
)

// buildGrid creates an ni x nj node lattice of quads with the given spacing,
// nodes stored row-major
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

// buildFan creates a fan of six equilateral triangles around the origin
func buildFan(t *testing.T) *mesh.Mesh {
	t.Helper()
	nodes := []geometry2D.Point{{X: 0, Y: 0}}
	edges := make([][2]int, 0, 12)
	for i := 0; i < 6; i++ {
		angle := float64(i) * 60.0 * geometry2D.DegRad
		nodes = append(nodes, geometry2D.Point{
			X: math.Cos(angle),
			Y: math.Sin(angle),
		})
		edges = append(edges, [2]int{0, i + 1})
	}
	for i := 0; i < 6; i++ {
		edges = append(edges, [2]int{i + 1, (i+1)%6 + 1})
	}
	m, err := mesh.NewMesh(nodes, edges, geometry2D.Cartesian)
	require.NoError(t, err)
	return m
}

func testParameters(outer, boundary, inner int) InputParameters.OrthogonalizationParameters {
	params := InputParameters.DefaultOrthogonalizationParameters()
	params.OuterIterations = outer
	params.BoundaryIterations = boundary
	params.InnerIterations = inner
	return params
}

func snapshotNodes(m *mesh.Mesh) []geometry2D.Point {
	nodes := make([]geometry2D.Point, len(m.Nodes))
	copy(nodes, m.Nodes)
	return nodes
}

func maxDisplacement(before, after []geometry2D.Point) (dis float64) {
	for n := range before {
		dis = math.Max(dis, math.Abs(before[n].X-after[n].X))
		dis = math.Max(dis, math.Abs(before[n].Y-after[n].Y))
	}
	return dis
}
