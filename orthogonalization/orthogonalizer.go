package orthogonalization

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gomesh/geometry2D"
	"github.com/notargets/gomesh/mesh"
)

/*
	Per-node orthogonalizer weights are the aspect ratios of the connected
	edges, halved on boundary edges. Boundary edges additionally push a
	2-vector right hand side along the outward edge normal so that boundary
	nodes are attracted back onto the boundary line.
*/
func (o *Orthogonalization) computeWeightsAndRhsOrthogonalizer(m *mesh.Mesh) error {
	for i := range o.rhsOrth {
		o.rhsOrth[i] = 0.0
	}
	for n := 0; n < m.NumNodes(); n++ {
		if m.NodesTypes[n] != 1 && m.NodesTypes[n] != 2 {
			continue
		}

		row := n * o.maxNumNeighbors
		for nn := 0; nn < m.NodesNumEdges[n]; nn++ {
			edgeIndex := m.NodesEdges[n][nn]
			aspectRatio := o.aspectRatios[edgeIndex]
			o.wOrth[row+nn] = 0.0
			if aspectRatio == geometry2D.DoubleMissing {
				continue
			}

			o.wOrth[row+nn] = aspectRatio

			if m.EdgesNumFaces[edgeIndex] == 1 {
				// boundary edge: halve the weight and accumulate the rhs
				o.wOrth[row+nn] = 0.5 * aspectRatio

				neighbor := m.Nodes[o.nodesNodes[n][nn]]
				neighborDistance := geometry2D.Distance(neighbor, m.Nodes[n], m.Projection)

				leftFace := m.EdgesFaces[edgeIndex][0]
				normal, _ := geometry2D.NormalVectorInside(
					m.Nodes[n], neighbor, m.FacesMassCenters[leftFace], m.Projection)

				// the RHS stays un-scaled in the sphericalAccurate projection
				if m.Projection == geometry2D.Spherical {
					normal.X = normal.X * cosd(0.5*(m.Nodes[n].Y+neighbor.Y))
				}

				o.rhsOrth[2*n] += neighborDistance * normal.X * 0.5
				o.rhsOrth[2*n+1] += neighborDistance * normal.Y * 0.5
			}
		}

		// normalize so the weights sum to one
		factor := floats.Sum(o.wOrth[row : row+m.NodesNumEdges[n]])
		if math.Abs(factor) > 1e-14 {
			factor = 1.0 / factor
			floats.Scale(factor, o.wOrth[row:row+m.NodesNumEdges[n]])
			o.rhsOrth[2*n] *= factor
			o.rhsOrth[2*n+1] *= factor
		}
	}
	return nil
}
