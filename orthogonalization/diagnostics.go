package orthogonalization

import (
	"math"

	"github.com/notargets/gomesh/geometry2D"
	"github.com/notargets/gomesh/mesh"
)

// GetOrthogonality fills out with, per edge, the absolute cosine of the angle
// between the edge and the line joining its two face circumcenters. Boundary
// and faceless edges report DoubleMissing. Zero means orthogonal.
func (o *Orthogonalization) GetOrthogonality(m *mesh.Mesh, out []float64) {
	for e := 0; e < m.NumEdges() && e < len(out); e++ {
		out[e] = geometry2D.DoubleMissing
		if m.EdgesNumFaces[e] != 2 {
			continue
		}
		first := m.Edges[e][0]
		second := m.Edges[e][1]
		val := geometry2D.NormalizedInnerProductTwoSegments(
			m.Nodes[first], m.Nodes[second],
			m.FacesCircumcenters[m.EdgesFaces[e][0]],
			m.FacesCircumcenters[m.EdgesFaces[e][1]],
			m.Projection)
		if val != geometry2D.DoubleMissing {
			out[e] = math.Abs(val)
		}
	}
}

// GetSmoothness fills out with the incident face area ratio clamped >= 1,
// recorded only when one of the areas falls below the minimum cell area
func (o *Orthogonalization) GetSmoothness(m *mesh.Mesh, out []float64) {
	for e := 0; e < m.NumEdges() && e < len(out); e++ {
		out[e] = geometry2D.DoubleMissing
		if m.EdgesNumFaces[e] != 2 {
			continue
		}
		leftFaceArea := m.FaceArea[m.EdgesFaces[e][0]]
		rightFaceArea := m.FaceArea[m.EdgesFaces[e][1]]
		if leftFaceArea < mesh.MinCellArea || rightFaceArea < mesh.MinCellArea {
			out[e] = rightFaceArea / leftFaceArea
			if out[e] < 1.0 {
				out[e] = 1.0 / out[e]
			}
		}
	}
}
