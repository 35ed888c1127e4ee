package orthogonalization

import (
	"fmt"

	"github.com/notargets/gomesh/geometry2D"
	"github.com/notargets/gomesh/mesh"
)

/*
	projectOnOriginalMeshBoundary pulls every moved boundary node back onto
	the polyline defined by the original nodes. Each node keeps an anchor
	(nearestPoints): the original boundary node whose two boundary edges
	bracket it. The node is projected onto the closer of the two original
	segments; crossing past the midpoint advances the anchor to the next
	original node, except for corners which never move their anchor.
*/
func (o *Orthogonalization) projectOnOriginalMeshBoundary(m *mesh.Mesh) error {
	for n := 0; n < m.NumNodes(); n++ {
		nearestPointIndex := o.nearestPoints[n]
		if m.NodesTypes[n] != 2 || m.NodesNumEdges[n] <= 0 ||
			m.NodesNumEdges[nearestPointIndex] <= 0 {
			continue
		}

		firstPoint := m.Nodes[n]
		leftNode := geometry2D.IntMissing
		rightNode := geometry2D.IntMissing
		numBoundaryEdges := 0
		for nn := 0; nn < m.NodesNumEdges[nearestPointIndex]; nn++ {
			edgeIndex := m.NodesEdges[nearestPointIndex][nn]
			if m.EdgesNumFaces[edgeIndex] != 1 {
				continue
			}
			numBoundaryEdges++
			other := m.Edges[edgeIndex][0] + m.Edges[edgeIndex][1] - nearestPointIndex
			if numBoundaryEdges == 1 {
				leftNode = other
			} else if numBoundaryEdges == 2 {
				rightNode = other
			}
		}
		if leftNode == geometry2D.IntMissing || rightNode == geometry2D.IntMissing {
			return fmt.Errorf("orthogonalization: node %d misses an original boundary neighbor", n)
		}

		// project onto the closer of the two original boundary segments
		dis2, projected2, rl2 := geometry2D.DistanceFromLine(firstPoint,
			o.originalNodes[nearestPointIndex], o.originalNodes[leftNode], m.Projection)
		dis3, projected3, rl3 := geometry2D.DistanceFromLine(firstPoint,
			o.originalNodes[nearestPointIndex], o.originalNodes[rightNode], m.Projection)

		if dis2 < dis3 {
			m.Nodes[n] = projected2
			if rl2 > 0.5 && m.NodesTypes[n] != 3 {
				o.nearestPoints[n] = leftNode
			}
		} else {
			m.Nodes[n] = projected3
			if rl3 > 0.5 && m.NodesTypes[n] != 3 {
				o.nearestPoints[n] = rightNode
			}
		}
	}
	return nil
}
