package orthogonalization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAzRowsSumToOne(t *testing.T) {
	check := func(t *testing.T, o *Orthogonalization, numNodes int, nodesTypes []int) {
		t.Helper()
		seen := map[int]bool{}
		for n := 0; n < numNodes; n++ {
			if nodesTypes[n] != 1 && nodesTypes[n] != 2 {
				continue
			}
			topo := o.nodeTopologyMapping[n]
			if topo < 0 || seen[topo] {
				continue
			}
			seen[topo] = true
			tp := o.topologies[topo]
			for f := 0; f < tp.numFaces; f++ {
				if tp.sharedFaces[f] < 0 {
					continue
				}
				sum := 0.0
				for i := 0; i < tp.numNodes; i++ {
					sum += tp.Az[f][i]
				}
				assert.InDelta(t, 1.0, sum, 1e-12, "topology %d face %d", topo, f)
			}
		}
		assert.NotEmpty(t, seen)
	}

	{
		m := buildGrid(t, 3, 3, 1.0)
		var o Orthogonalization
		require.NoError(t, o.Set(m, testParameters(1, 1, 1), nil, nil))
		require.NoError(t, o.PrepareOuterIteration(m))
		check(t, &o, m.NumNodes(), m.NodesTypes)
	}
	{
		m := buildFan(t)
		var o Orthogonalization
		require.NoError(t, o.Set(m, testParameters(1, 1, 1), nil, nil))
		require.NoError(t, o.PrepareOuterIteration(m))
		check(t, &o, m.NumNodes(), m.NodesTypes)
	}
}

func TestSmootherWeightsNormalization(t *testing.T) {
	m := buildGrid(t, 3, 3, 1.0)
	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(1, 1, 1), nil, nil))
	require.NoError(t, o.PrepareOuterIteration(m))

	checked := 0
	for n := 0; n < m.NumNodes(); n++ {
		if m.NodesTypes[n] != 1 && m.NodesTypes[n] != 2 {
			continue
		}
		if m.NodesNumEdges[n] < 2 || o.nodeTopologyMapping[n] < 0 {
			continue
		}
		tp := o.topologies[o.nodeTopologyMapping[n]]
		row := n * o.maxConnectedNodes

		// the diagonal carries -1, the off-diagonal weights sum to +1
		offDiagonal := 0.0
		for i := 1; i < tp.numNodes; i++ {
			offDiagonal += o.wSmoother[row+i]
		}
		assert.InDelta(t, 1.0, offDiagonal, 1e-7, "node %d", n)
		assert.InDelta(t, -1.0, o.wSmoother[row], 1e-7, "node %d", n)
		checked++
	}
	assert.Equal(t, 5, checked)
}

func TestOrthogonalizerWeightsNormalized(t *testing.T) {
	m := buildGrid(t, 3, 3, 1.0)
	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(1, 1, 1), nil, nil))
	require.NoError(t, o.PrepareOuterIteration(m))

	for n := 0; n < m.NumNodes(); n++ {
		if m.NodesTypes[n] != 1 && m.NodesTypes[n] != 2 {
			continue
		}
		sum := 0.0
		for nn := 0; nn < m.NodesNumEdges[n]; nn++ {
			sum += o.wOrth[n*o.maxNumNeighbors+nn]
		}
		assert.InDelta(t, 1.0, sum, 1e-10, "node %d", n)
	}
}

func TestTopologyDeduplication(t *testing.T) {
	m := buildGrid(t, 3, 3, 1.0)
	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(1, 1, 1), nil, nil))
	require.NoError(t, o.PrepareOuterIteration(m))

	// far fewer classes than nodes: the four corners collapse into one class
	// and the center keeps its own. Classes compare the angles slot by slot,
	// so boundary midpoints only share a class when the boundary gap sits at
	// the same position of their sorted edge fan: nodes 1 and 3 (gap last),
	// node 5 (gap first) and node 7 (gap in the middle) differ
	assert.Less(t, len(o.topologies), m.NumNodes())
	assert.Equal(t, o.nodeTopologyMapping[1], o.nodeTopologyMapping[3])
	assert.NotEqual(t, o.nodeTopologyMapping[1], o.nodeTopologyMapping[5])
	assert.NotEqual(t, o.nodeTopologyMapping[1], o.nodeTopologyMapping[7])
	assert.NotEqual(t, o.nodeTopologyMapping[5], o.nodeTopologyMapping[7])
	assert.Equal(t, o.nodeTopologyMapping[0], o.nodeTopologyMapping[2])
	assert.Equal(t, o.nodeTopologyMapping[0], o.nodeTopologyMapping[6])
	assert.Equal(t, o.nodeTopologyMapping[0], o.nodeTopologyMapping[8])
	assert.NotEqual(t, o.nodeTopologyMapping[4], o.nodeTopologyMapping[1])

	// every stored class has a well defined angle on every connected slot
	for n := 0; n < m.NumNodes(); n++ {
		topo := o.nodeTopologyMapping[n]
		if topo < 0 {
			continue
		}
		tp := o.topologies[topo]
		for i := 1; i < tp.numNodes; i++ {
			theta := math.Atan2(tp.eta[i], tp.xi[i])
			assert.False(t, math.IsNaN(theta))
		}
	}
}

func TestInteriorStencilGeometry(t *testing.T) {
	// the interior node of a unit quad lattice gets the classic cross stencil
	// in (xi, eta): the node at the origin, edge neighbors at unit distance,
	// diagonal neighbors at distance sqrt(2)
	m := buildGrid(t, 3, 3, 1.0)
	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(1, 1, 1), nil, nil))
	require.NoError(t, o.PrepareOuterIteration(m))

	tp := o.topologies[o.nodeTopologyMapping[4]]
	require.Equal(t, 9, tp.numNodes)
	require.Equal(t, 4, tp.numFaces)

	assert.InDelta(t, 0.0, tp.xi[0], 1e-12)
	assert.InDelta(t, 0.0, tp.eta[0], 1e-12)
	for i := 1; i <= 4; i++ {
		radius := math.Hypot(tp.xi[i], tp.eta[i])
		assert.InDelta(t, 1.0, radius, 1e-12, "edge neighbor %d", i)
	}
	for i := 5; i < 9; i++ {
		radius := math.Hypot(tp.xi[i], tp.eta[i])
		assert.InDelta(t, math.Sqrt2, radius, 1e-12, "diagonal neighbor %d", i)
	}
}

func TestConnectedNodesAdministration(t *testing.T) {
	m := buildGrid(t, 3, 3, 1.0)
	var o Orthogonalization
	require.NoError(t, o.Set(m, testParameters(1, 1, 1), nil, nil))
	require.NoError(t, o.PrepareOuterIteration(m))

	// slot zero is always the node itself; the edge neighbors fill the fan
	// slots in order
	for n := 0; n < m.NumNodes(); n++ {
		if o.numConnectedNodes[n] == 0 {
			continue
		}
		assert.Equal(t, n, o.connectedNodes[n][0], "node %d", n)
		for k := 0; k < m.NodesNumEdges[n]; k++ {
			assert.Equal(t, o.nodesNodes[n][k], o.connectedNodes[n][k+1], "node %d slot %d", n, k)
		}
	}

	// the interior node sees itself, four edge neighbors and four diagonals
	assert.Equal(t, 9, o.numConnectedNodes[4])
}
