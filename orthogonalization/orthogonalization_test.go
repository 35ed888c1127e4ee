package orthogonalization

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gomesh/geometry2D"
)

func TestRegularGridStaysPut(t *testing.T) {
	// a 3x3 unit lattice is already orthogonal: one full iteration must not
	// move any node
	m := buildGrid(t, 3, 3, 1.0)
	before := snapshotNodes(m)

	params := testParameters(1, 1, 1)
	params.OrthogonalizationToSmoothingFactor = 0.975
	params.Smoothorarea = 1.0

	var o Orthogonalization
	require.NoError(t, o.Set(m, params, nil, nil))
	require.NoError(t, o.Compute(m))

	assert.LessOrEqual(t, maxDisplacement(before, m.Nodes), 1e-10)
}

func TestRegularGridIdempotentWithDefaults(t *testing.T) {
	m := buildGrid(t, 3, 3, 1.0)
	before := snapshotNodes(m)

	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(2, 25, 25), nil, nil))
	require.NoError(t, o.Compute(m))

	assert.LessOrEqual(t, maxDisplacement(before, m.Nodes), 1e-9)
}

func TestZeroOuterIterationsLeavesNodesUntouched(t *testing.T) {
	m := buildGrid(t, 3, 3, 1.0)
	before := snapshotNodes(m)

	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(0, 1, 1), nil, nil))
	require.NoError(t, o.Compute(m))

	if diff := cmp.Diff(before, m.Nodes); diff != "" {
		t.Errorf("nodes changed with zero outer iterations (-want +got):\n%s", diff)
	}
}

func TestPerturbedInteriorNodeRecovers(t *testing.T) {
	// move the center of the 3x3 lattice off the grid; ten outer iterations
	// pull it back
	m := buildGrid(t, 3, 3, 1.0)
	m.Nodes[4] = geometry2D.Point{X: 1.2, Y: 1.05}
	require.NoError(t, m.ComputeFaceCircumcentersMassCentersAndAreas())

	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(10, 1, 5), nil, nil))
	require.NoError(t, o.Compute(m))

	assert.InDelta(t, 1.0, m.Nodes[4].X, 5e-3)
	assert.InDelta(t, 1.0, m.Nodes[4].Y, 5e-3)
}

func TestTriangleFanEquilibrium(t *testing.T) {
	m := buildFan(t)
	before := snapshotNodes(m)

	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(2, 25, 25), nil, nil))
	require.NoError(t, o.Compute(m))

	// the hub stays at the origin, the rim nodes stay on the unit circle
	assert.InDelta(t, 0.0, m.Nodes[0].X, 1e-6)
	assert.InDelta(t, 0.0, m.Nodes[0].Y, 1e-6)
	for n := 1; n < m.NumNodes(); n++ {
		assert.InDelta(t, before[n].X, m.Nodes[n].X, 1e-6, "node %d", n)
		assert.InDelta(t, before[n].Y, m.Nodes[n].Y, 1e-6, "node %d", n)
	}
}

func TestOriginalNodesInvariant(t *testing.T) {
	m := buildGrid(t, 3, 3, 1.0)
	before := snapshotNodes(m)

	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(3, 2, 2), nil, nil))
	snapshot := append([]geometry2D.Point(nil), o.originalNodes...)
	require.NoError(t, o.Compute(m))

	// the original node backup is never written after Set
	if diff := cmp.Diff(snapshot, o.originalNodes); diff != "" {
		t.Errorf("originalNodes changed during compute (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before, o.originalNodes); diff != "" {
		t.Errorf("originalNodes differ from the Set snapshot (-want +got):\n%s", diff)
	}
}

func TestCornerNodesNeverMove(t *testing.T) {
	m := buildGrid(t, 3, 3, 1.0)
	m.Nodes[4] = geometry2D.Point{X: 1.3, Y: 0.8}
	require.NoError(t, m.ComputeFaceCircumcentersMassCentersAndAreas())
	corners := []int{0, 2, 6, 8}
	before := snapshotNodes(m)

	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(4, 2, 3), nil, nil))
	require.NoError(t, o.Compute(m))

	for _, n := range corners {
		assert.Equal(t, before[n], m.Nodes[n], "corner %d", n)
	}
}

func TestBoundaryNodesStayOnOriginalBoundary(t *testing.T) {
	// S4: shift a boundary node off the 5x5 grid; a single iteration projects
	// it back onto the original boundary polyline
	m := buildGrid(t, 5, 5, 1.0)

	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(1, 1, 1), nil, nil))
	m.Nodes[2] = geometry2D.Point{X: 2.0, Y: 0.3} // middle bottom boundary node
	require.NoError(t, o.Compute(m))

	assert.InDelta(t, 0.0, m.Nodes[2].Y, 1e-9)

	// every boundary node sits on the original boundary polyline
	for n := 0; n < m.NumNodes(); n++ {
		if m.NodesTypes[n] != 2 {
			continue
		}
		onBottomOrTop := math.Abs(m.Nodes[n].Y) <= 1e-9 || math.Abs(m.Nodes[n].Y-4.0) <= 1e-9
		onLeftOrRight := math.Abs(m.Nodes[n].X) <= 1e-9 || math.Abs(m.Nodes[n].X-4.0) <= 1e-9
		assert.True(t, onBottomOrTop || onLeftOrRight, "node %d drifted off the boundary", n)
	}
}

func TestLandBoundarySnap(t *testing.T) {
	// S5: a single land boundary segment slightly above the top row attracts
	// the movable top boundary nodes
	m := buildGrid(t, 3, 3, 10.0)
	landBoundary := []geometry2D.Point{
		{X: -1.37, Y: 21.25},
		{X: 20.89, Y: 21.54},
	}

	params := testParameters(1, 1, 1)
	params.ProjectToLandBoundaryOption = 1

	var o Orthogonalization
	require.NoError(t, o.Set(m, params, nil, landBoundary))
	require.NoError(t, o.Compute(m))

	// the movable top-row node lies on the segment
	dis, _, _ := geometry2D.DistanceFromLine(m.Nodes[7],
		landBoundary[0], landBoundary[1], m.Projection)
	assert.LessOrEqual(t, dis, 1e-9)

	// far boundary nodes are out of reach and stay put
	assert.InDelta(t, 0.0, m.Nodes[1].Y, 1e-9)
}

func TestGetOrthogonalityDiagnostic(t *testing.T) {
	// S6: on the regular grid every internal edge is orthogonal
	{
		m := buildGrid(t, 3, 3, 1.0)
		var o Orthogonalization
		require.NoError(t, o.Set(m, testParameters(1, 1, 1), nil, nil))

		out := make([]float64, m.NumEdges())
		o.GetOrthogonality(m, out)
		internal := 0
		for e := 0; e < m.NumEdges(); e++ {
			if m.EdgesNumFaces[e] == 2 {
				assert.LessOrEqual(t, out[e], 1e-10, "edge %d", e)
				internal++
			} else {
				assert.Equal(t, geometry2D.DoubleMissing, out[e], "edge %d", e)
			}
		}
		assert.Equal(t, 4, internal)
	}
	// spokes of the equilateral fan are orthogonal to their circumcenter line
	{
		m := buildFan(t)
		var o Orthogonalization
		require.NoError(t, o.Set(m, testParameters(1, 1, 1), nil, nil))

		out := make([]float64, m.NumEdges())
		o.GetOrthogonality(m, out)
		for e := 0; e < 6; e++ {
			assert.LessOrEqual(t, out[e], 1e-10, "spoke %d", e)
		}
	}
}

func TestAspectRatiosNonNegative(t *testing.T) {
	m := buildFan(t)
	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(1, 1, 1), nil, nil))
	require.NoError(t, o.PrepareOuterIteration(m))

	for e, ratio := range o.aspectRatios {
		assert.GreaterOrEqual(t, ratio, 0.0, "edge %d", e)
	}
}

func TestStepWiseAPI(t *testing.T) {
	m := buildGrid(t, 3, 3, 1.0)
	before := snapshotNodes(m)

	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(1, 1, 1), nil, nil))
	require.NoError(t, o.PrepareOuterIteration(m))
	require.NoError(t, o.InnerIteration(m))
	require.NoError(t, o.FinalizeOuterIteration(m))
	o.DeallocateLinearSystem()

	// one step-wise cycle on an orthogonal grid is a no-op as well
	assert.LessOrEqual(t, maxDisplacement(before, m.Nodes), 1e-10)
}

func TestSetValidation(t *testing.T) {
	var o Orthogonalization
	err := o.Set(nil, testParameters(1, 1, 1), nil, nil)
	assert.Error(t, err)
}
