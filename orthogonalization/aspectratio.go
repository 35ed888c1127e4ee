package orthogonalization

import (
	"math"

	"github.com/notargets/gomesh/geometry2D"
	"github.com/notargets/gomesh/mesh"
)

// Blend between the curvilinear and the orthogonal aspect ratio estimate on
// quadrilateral edges; 1.0 disables the curvilinear correction entirely.
const curvilinearToOrthogonalRatio = 0.5

func cosd(degrees float64) float64 {
	return math.Cos(degrees * geometry2D.DegRad)
}

/*
	The aspect ratio of an edge is the length of its "flow edge" - the segment
	joining the circumcenters of the two incident faces - divided by the edge
	length. A boundary edge gets a ghost center by mirroring the single
	circumcenter across the edge.
*/
func (o *Orthogonalization) computeAspectRatios(m *mesh.Mesh) error {
	numEdges := m.NumEdges()
	averageEdgesLength := make([][2]float64, numEdges)
	for e := range averageEdgesLength {
		averageEdgesLength[e] = [2]float64{geometry2D.DoubleMissing, geometry2D.DoubleMissing}
	}
	averageFlowEdgesLength := make([]float64, numEdges)
	for e := range averageFlowEdgesLength {
		averageFlowEdgesLength[e] = geometry2D.DoubleMissing
	}
	curvilinearGridIndicator := make([]bool, m.NumNodes())
	for n := range curvilinearGridIndicator {
		curvilinearGridIndicator[n] = true
	}
	edgesLength := make([]float64, numEdges)

	for e := 0; e < numEdges; e++ {
		first := m.Edges[e][0]
		second := m.Edges[e][1]
		if first == second {
			continue
		}
		edgeLength := geometry2D.Distance(m.Nodes[first], m.Nodes[second], m.Projection)
		edgesLength[e] = edgeLength

		var leftCenter, rightCenter geometry2D.Point
		if m.EdgesNumFaces[e] > 0 {
			leftCenter = m.FacesCircumcenters[m.EdgesFaces[e][0]]
		} else {
			leftCenter = m.Nodes[first]
		}

		if m.EdgesNumFaces[e] == 2 {
			rightCenter = m.FacesCircumcenters[m.EdgesFaces[e][1]]
		} else {
			// ghost center: mirror the left center across the edge
			dinry := geometry2D.InnerProductTwoSegments(
				m.Nodes[first], m.Nodes[second], m.Nodes[first], leftCenter, m.Projection)
			dinry = dinry / math.Max(edgeLength*edgeLength, mesh.MinEdgeLength)

			x0bc := (1.0-dinry)*m.Nodes[first].X + dinry*m.Nodes[second].X
			y0bc := (1.0-dinry)*m.Nodes[first].Y + dinry*m.Nodes[second].Y
			rightCenter.X = 2.0*x0bc - leftCenter.X
			rightCenter.Y = 2.0*y0bc - leftCenter.Y
		}

		averageFlowEdgesLength[e] = geometry2D.Distance(leftCenter, rightCenter, m.Projection)
	}

	// per face contributions, quads average the opposing edge lengths
	for f := 0; f < m.NumFaces(); f++ {
		numFaceNodes := m.NumFaceEdges(f)
		if numFaceNodes < 3 {
			continue
		}
		for n := 0; n < numFaceNodes; n++ {
			if numFaceNodes != 4 {
				curvilinearGridIndicator[m.FacesNodes[f][n]] = false
			}
			edgeIndex := m.FacesEdges[f][n]
			if m.EdgesNumFaces[edgeIndex] < 1 {
				continue
			}

			edgeLength := edgesLength[edgeIndex]
			if edgeLength != 0.0 {
				o.aspectRatios[edgeIndex] = averageFlowEdgesLength[edgeIndex] / edgeLength
			}

			if numFaceNodes == 4 {
				kkp2 := n + 2
				if kkp2 >= numFaceNodes {
					kkp2 -= numFaceNodes
				}
				klinkp2 := m.FacesEdges[f][kkp2]
				edgeLength = 0.5 * (edgesLength[edgeIndex] + edgesLength[klinkp2])
			}

			if averageEdgesLength[edgeIndex][0] == geometry2D.DoubleMissing {
				averageEdgesLength[edgeIndex][0] = edgeLength
			} else {
				averageEdgesLength[edgeIndex][1] = edgeLength
			}
		}
	}

	if curvilinearToOrthogonalRatio == 1.0 {
		return nil
	}

	for e := 0; e < numEdges; e++ {
		first := m.Edges[e][0]
		second := m.Edges[e][1]
		if first < 0 || second < 0 || m.EdgesNumFaces[e] < 1 {
			continue
		}
		// only edges between curvilinear (all-quad) nodes blend
		if !curvilinearGridIndicator[first] || !curvilinearGridIndicator[second] {
			continue
		}

		if m.EdgesNumFaces[e] == 1 {
			if averageEdgesLength[e][0] != 0.0 &&
				averageEdgesLength[e][0] != geometry2D.DoubleMissing {
				o.aspectRatios[e] = averageFlowEdgesLength[e] / averageEdgesLength[e][0]
			}
		} else {
			if averageEdgesLength[e][0] != 0.0 && averageEdgesLength[e][1] != 0.0 &&
				averageEdgesLength[e][0] != geometry2D.DoubleMissing &&
				averageEdgesLength[e][1] != geometry2D.DoubleMissing {
				o.aspectRatios[e] = curvilinearToOrthogonalRatio*o.aspectRatios[e] +
					(1.0-curvilinearToOrthogonalRatio)*averageFlowEdgesLength[e]/
						(0.5*(averageEdgesLength[e][0]+averageEdgesLength[e][1]))
			}
		}
	}
	return nil
}
