package orthogonalization

import (
	"math"

	"github.com/notargets/gomesh/geometry2D"
	"github.com/notargets/gomesh/mesh"
)

/*
	The smoother classifies every node into a topology class: nodes with the
	same number of shared faces and connected nodes, whose local (xi, eta)
	patterns match angularly within thetaTolerance, share one set of discrete
	operators. The classes are interned in an append-only store and looked up
	through nodeTopologyMapping.
*/

// nodeTopology is one interned topology class with its local coordinates and,
// once assembled, its discrete operators
type nodeTopology struct {
	numFaces int
	numNodes int

	sharedFaces     []int
	connectedNodes  []int
	faceNodeMapping [][]int
	xi, eta         []float64

	// operators, assembled once per class
	Az, Gxi, Geta  [][]float64
	Divxi, Diveta  []float64
	Jxi, Jeta, ww2 []float64
}

func (o *Orthogonalization) initializeSmoother(m *mesh.Mesh) {
	numNodes := m.NumNodes()
	o.numConnectedNodes = make([]int, numNodes)
	o.connectedNodes = make([][]int, numNodes)

	o.sharedFacesCache = make([]int, mesh.MaxNumEdgesPerNode)
	o.connectedNodesCache = make([]int, mesh.MaxNumConnectedNodes)
	o.faceNodeMappingCache = make([][]int, mesh.MaxNumConnectedNodes)
	for f := range o.faceNodeMappingCache {
		o.faceNodeMappingCache[f] = make([]int, mesh.MaxNumNodesPerFace)
	}
	o.xiCache = make([]float64, mesh.MaxNumConnectedNodes)
	o.etaCache = make([]float64, mesh.MaxNumConnectedNodes)

	o.topologies = o.topologies[:0]
	o.nodeTopologyMapping = make([]int, numNodes)
	for n := range o.nodeTopologyMapping {
		o.nodeTopologyMapping[n] = geometry2D.IntMissing
	}
	o.maxConnectedNodes = 0
	o.maxSharedFaces = 0
}

func (o *Orthogonalization) computeSmootherTopologies(m *mesh.Mesh) error {
	o.initializeSmoother(m)

	for n := 0; n < m.NumNodes(); n++ {
		for i := range o.sharedFacesCache {
			o.sharedFacesCache[i] = geometry2D.IntMissing
		}
		for i := range o.connectedNodesCache {
			o.connectedNodesCache[i] = 0
		}
		numSharedFaces, numConnectedNodes := o.smootherNodeAdministration(m, n)

		for i := range o.xiCache {
			o.xiCache[i] = 0.0
			o.etaCache[i] = 0.0
		}
		if !o.smootherComputeNodeXiEta(m, n, numSharedFaces, numConnectedNodes) {
			// degenerate geometry: record the node and leave it out of the
			// smoother for this outer iteration
			o.NodeErrors = append(o.NodeErrors, m.Nodes[n])
			continue
		}

		o.saveSmootherNodeTopologyIfNeeded(n, numSharedFaces, numConnectedNodes)

		o.maxConnectedNodes = max(o.maxConnectedNodes, numConnectedNodes)
		o.maxSharedFaces = max(o.maxSharedFaces, numSharedFaces)
	}
	return nil
}

/*
	smootherNodeAdministration walks the circularly sorted edges of a node.
	Every consecutive edge pair contributes the face the two edges share, or
	missing when the pair spans the boundary gap; a pair with a faceless edge
	contributes nothing. The connected nodes start
	with the node itself, then the edge neighbors in fan order, then the
	remaining nodes of each shared face.
*/
func (o *Orthogonalization) smootherNodeAdministration(m *mesh.Mesh, currentNode int) (
	numSharedFaces, numConnectedNodes int) {
	if m.NodesNumEdges[currentNode] < 2 {
		return 0, 0
	}

	newFaceIndex := geometry2D.IntMissing
	for e := 0; e < m.NodesNumEdges[currentNode]; e++ {
		firstEdge := m.NodesEdges[currentNode][e]
		secondEdgeIndex := e + 1
		if secondEdgeIndex >= m.NodesNumEdges[currentNode] {
			secondEdgeIndex = 0
		}
		secondEdge := m.NodesEdges[currentNode][secondEdgeIndex]
		if m.EdgesNumFaces[firstEdge] < 1 || m.EdgesNumFaces[secondEdge] < 1 {
			continue
		}

		firstFaceIndex := max(min(m.EdgesNumFaces[firstEdge], 2), 1) - 1
		secondFaceIndex := max(min(m.EdgesNumFaces[secondEdge], 2), 1) - 1

		if m.EdgesFaces[firstEdge][0] != newFaceIndex &&
			(m.EdgesFaces[firstEdge][0] == m.EdgesFaces[secondEdge][0] ||
				m.EdgesFaces[firstEdge][0] == m.EdgesFaces[secondEdge][secondFaceIndex]) {
			newFaceIndex = m.EdgesFaces[firstEdge][0]
		} else if m.EdgesFaces[firstEdge][firstFaceIndex] != newFaceIndex &&
			(m.EdgesFaces[firstEdge][firstFaceIndex] == m.EdgesFaces[secondEdge][0] ||
				m.EdgesFaces[firstEdge][firstFaceIndex] == m.EdgesFaces[secondEdge][secondFaceIndex]) {
			newFaceIndex = m.EdgesFaces[firstEdge][firstFaceIndex]
		} else {
			newFaceIndex = geometry2D.IntMissing
		}

		// a corner node of valence two sees its single face twice
		if m.NodesNumEdges[currentNode] == 2 && e == 1 && m.NodesTypes[currentNode] == 3 {
			if o.sharedFacesCache[0] == newFaceIndex {
				newFaceIndex = geometry2D.IntMissing
			}
		}
		o.sharedFacesCache[numSharedFaces] = newFaceIndex
		numSharedFaces++
	}

	if numSharedFaces < 1 {
		return numSharedFaces, 0
	}

	connectedNodesIndex := 0
	o.connectedNodesCache[0] = currentNode

	// the edge-connected nodes in fan order
	for e := 0; e < m.NodesNumEdges[currentNode]; e++ {
		edgeIndex := m.NodesEdges[currentNode][e]
		node := m.Edges[edgeIndex][0] + m.Edges[edgeIndex][1] - currentNode
		connectedNodesIndex++
		o.connectedNodesCache[connectedNodesIndex] = node
	}

	// remaining face nodes; faceNodeMapping records the compressed position
	// of every face node, starting the circulation at the current node
	for f := 0; f < numSharedFaces; f++ {
		faceIndex := o.sharedFacesCache[f]
		if faceIndex < 0 {
			continue
		}

		numFaceNodes := m.NumFaceEdges(faceIndex)
		faceNodeIndex := 0
		for i := 0; i < numFaceNodes; i++ {
			if m.FacesNodes[faceIndex][i] == currentNode {
				faceNodeIndex = i
				break
			}
		}

		for i := 0; i < numFaceNodes; i++ {
			if faceNodeIndex >= numFaceNodes {
				faceNodeIndex -= numFaceNodes
			}
			node := m.FacesNodes[faceIndex][faceNodeIndex]

			isNewNode := true
			for nn := 0; nn < connectedNodesIndex+1; nn++ {
				if node == o.connectedNodesCache[nn] {
					isNewNode = false
					o.faceNodeMappingCache[f][faceNodeIndex] = nn
					break
				}
			}
			if isNewNode {
				connectedNodesIndex++
				o.connectedNodesCache[connectedNodesIndex] = node
				o.faceNodeMappingCache[f][faceNodeIndex] = connectedNodesIndex
			}

			faceNodeIndex++
		}
	}

	numConnectedNodes = connectedNodesIndex + 1
	o.numConnectedNodes[currentNode] = numConnectedNodes
	o.connectedNodes[currentNode] = append(o.connectedNodes[currentNode][:0],
		o.connectedNodesCache[:numConnectedNodes]...)

	return numSharedFaces, numConnectedNodes
}

// optimalEdgeAngle is the target interior angle of a face seen from an edge;
// theta1/theta2 are the square-corner angles at the edge's endpoints when
// known, or DoubleMissing
func optimalEdgeAngle(numFaceNodes int, theta1, theta2 float64, isBoundaryEdge bool) float64 {
	angle := math.Pi * (1.0 - 2.0/float64(numFaceNodes))
	if theta1 != geometry2D.DoubleMissing && theta2 != geometry2D.DoubleMissing && numFaceNodes == 3 {
		angle = 0.25 * math.Pi
		if theta1+theta2 == math.Pi && !isBoundaryEdge {
			angle = 0.5 * math.Pi
		}
	}
	return angle
}

/*
	smootherComputeNodeXiEta lays the connected nodes down in a local
	curvilinear frame. Faces get an angular budget around the node that is
	adjusted for triangles and square-like faces, then each face's nodes are
	positioned on a circular arc whose radius and aspect follow from the
	adjusted angles. Returns false on a degenerate configuration.
*/
func (o *Orthogonalization) smootherComputeNodeXiEta(m *mesh.Mesh, currentNode int,
	numSharedFaces, numConnectedNodes int) bool {

	thetaSquare := make([]float64, numConnectedNodes)
	for i := range thetaSquare {
		thetaSquare[i] = geometry2D.DoubleMissing
	}
	isSquareFace := make([]bool, numSharedFaces)

	numNonStencilQuad := 0
	for f := 0; f < numSharedFaces; f++ {
		edgeIndex := m.NodesEdges[currentNode][f]
		nextNode := o.connectedNodesCache[f+1] // slot 0 is the stencil node
		faceLeft := m.EdgesFaces[edgeIndex][0]
		faceRight := faceLeft
		if m.EdgesNumFaces[edgeIndex] == 2 {
			faceRight = m.EdgesFaces[edgeIndex][1]
		}

		// square neighbor: every face around it outside the current stencil
		// pair is a quad
		isSquare := true
		for e := 0; e < m.NodesNumEdges[nextNode]; e++ {
			edge := m.NodesEdges[nextNode][e]
			for ff := 0; ff < m.EdgesNumFaces[edge]; ff++ {
				face := m.EdgesFaces[edge][ff]
				if face != faceLeft && face != faceRight {
					isSquare = isSquare && m.NumFaceEdges(face) == 4
				}
			}
			if !isSquare {
				break
			}
		}

		leftFaceIndex := f - 1
		if leftFaceIndex < 0 {
			leftFaceIndex += numSharedFaces
		}

		if isSquare {
			switch m.NodesTypes[nextNode] {
			case 1, 4:
				// inner node
				numNonStencilQuad = m.NodesNumEdges[nextNode] - 2
				thetaSquare[f+1] = (2.0 - float64(numNonStencilQuad)*0.5) * math.Pi
			case 2:
				// boundary node
				numNonStencilQuad = m.NodesNumEdges[nextNode] - 1 - m.EdgesNumFaces[edgeIndex]
				thetaSquare[f+1] = (1.0 - float64(numNonStencilQuad)*0.5) * math.Pi
			case 3:
				// corner node
				thetaSquare[f+1] = 0.5 * math.Pi
			}

			if o.sharedFacesCache[f] >= 0 && m.NumFaceEdges(o.sharedFacesCache[f]) == 4 {
				numNonStencilQuad++
			}
			if o.sharedFacesCache[leftFaceIndex] >= 0 &&
				m.NumFaceEdges(o.sharedFacesCache[leftFaceIndex]) == 4 {
				numNonStencilQuad++
			}
			if numNonStencilQuad > 3 {
				isSquare = false
			}
		}

		isSquareFace[f] = isSquareFace[f] || isSquare
		isSquareFace[leftFaceIndex] = isSquareFace[leftFaceIndex] || isSquare
	}

	// fourth nodes of adjacent quads default to right angles
	for f := 0; f < numSharedFaces; f++ {
		if o.sharedFacesCache[f] < 0 {
			continue
		}
		if m.NumFaceEdges(o.sharedFacesCache[f]) == 4 {
			for n := 0; n < m.NumFaceEdges(o.sharedFacesCache[f]); n++ {
				if o.faceNodeMappingCache[f][n] <= numSharedFaces {
					continue
				}
				thetaSquare[o.faceNodeMappingCache[f][n]] = 0.5 * math.Pi
			}
		}
	}

	// angular budget of the faces around the node
	var (
		numSquaredTriangles, numTriangles              int
		phiSquaredTriangles, phiTriangles, phiTot, phi float64
	)
	for f := 0; f < numSharedFaces; f++ {
		if o.sharedFacesCache[f] < 0 {
			continue
		}
		numFaceNodes := m.NumFaceEdges(o.sharedFacesCache[f])
		phi = optimalEdgeAngle(numFaceNodes, geometry2D.DoubleMissing, geometry2D.DoubleMissing, false)

		if isSquareFace[f] || numFaceNodes == 4 {
			nextNode := f + 2
			if nextNode > numSharedFaces {
				nextNode -= numSharedFaces
			}
			isBoundaryEdge := m.EdgesNumFaces[m.NodesEdges[currentNode][f]] == 1
			phi = optimalEdgeAngle(numFaceNodes, thetaSquare[f+1], thetaSquare[nextNode], isBoundaryEdge)
			if numFaceNodes == 3 {
				numSquaredTriangles++
				phiSquaredTriangles += phi
			}
		} else {
			numTriangles++
			phiTriangles += phi
		}
		phiTot += phi
	}

	factor := 1.0
	if m.NodesTypes[currentNode] == 2 {
		factor = 0.5
	}
	if m.NodesTypes[currentNode] == 3 {
		factor = 0.25
	}

	mu := 1.0
	muSquaredTriangles := 1.0
	muTriangles := 1.0
	minPhi := 15.0 / 180.0 * math.Pi
	if numTriangles > 0 {
		muTriangles = (factor*2.0*math.Pi - (phiTot - phiTriangles)) / phiTriangles
		muTriangles = math.Max(muTriangles, float64(numTriangles)*minPhi/phiTriangles)
	} else if numSquaredTriangles > 0 {
		muSquaredTriangles = math.Max(factor*2.0*math.Pi-(phiTot-phiSquaredTriangles),
			float64(numSquaredTriangles)*minPhi) / phiSquaredTriangles
	}

	if phiTot > 1e-18 {
		mu = factor * 2.0 * math.Pi /
			(phiTot - (1.0-muTriangles)*phiTriangles - (1.0-muSquaredTriangles)*phiSquaredTriangles)
	} else if numSharedFaces > 0 {
		return false
	}

	// lay the face fans down, rotating by half of each adjusted angle
	var phi0, dPhi0, dPhi, dTheta float64
	for f := 0; f < numSharedFaces; f++ {
		phi0 += 0.5 * dPhi
		if o.sharedFacesCache[f] < 0 {
			// boundary gap in the fan
			switch m.NodesTypes[currentNode] {
			case 2:
				dPhi = math.Pi
			case 3:
				dPhi = 1.5 * math.Pi
			default:
				return false
			}
			phi0 += 0.5 * dPhi
			continue
		}

		numFaceNodes := m.NumFaceEdges(o.sharedFacesCache[f])
		if numFaceNodes > mesh.MaxNumEdgesPerNode {
			return false
		}

		dPhi0 = optimalEdgeAngle(numFaceNodes, geometry2D.DoubleMissing, geometry2D.DoubleMissing, false)
		if isSquareFace[f] {
			nextNode := f + 2
			if nextNode > numSharedFaces {
				nextNode -= numSharedFaces
			}
			isBoundaryEdge := m.EdgesNumFaces[m.NodesEdges[currentNode][f]] == 1
			dPhi0 = optimalEdgeAngle(numFaceNodes, thetaSquare[f+1], thetaSquare[nextNode], isBoundaryEdge)
			if numFaceNodes == 3 {
				dPhi0 = muSquaredTriangles * dPhi0
			}
		} else if numFaceNodes == 3 {
			dPhi0 = muTriangles * dPhi0
		}

		dPhi = mu * dPhi0
		phi0 += 0.5 * dPhi

		nodeIndex := geometry2D.FindIndex(m.FacesNodes[o.sharedFacesCache[f]], currentNode)
		dTheta = 2.0 * math.Pi / float64(numFaceNodes)

		// orientation of the face, folded cells wind backwards
		previousNode := geometry2D.NextCircularForwardIndex(nodeIndex, numFaceNodes)
		nextNode := geometry2D.NextCircularBackwardIndex(nodeIndex, numFaceNodes)
		if o.faceNodeMappingCache[f][nextNode]-o.faceNodeMappingCache[f][previousNode] == -1 ||
			o.faceNodeMappingCache[f][nextNode]-o.faceNodeMappingCache[f][previousNode] ==
				m.NodesNumEdges[currentNode] {
			dTheta = -dTheta
		}

		aspectRatio := (1.0 - math.Cos(dTheta)) / math.Sin(math.Abs(dTheta)) *
			math.Tan(0.5*dPhi)
		radius := math.Cos(0.5*dPhi) / (1.0 - math.Cos(dTheta))

		for n := 0; n < numFaceNodes; n++ {
			theta := dTheta * float64(n-nodeIndex)
			xip := radius - radius*math.Cos(theta)
			ethap := -radius * math.Sin(theta)

			o.xiCache[o.faceNodeMappingCache[f][n]] = xip*math.Cos(phi0) - aspectRatio*ethap*math.Sin(phi0)
			o.etaCache[o.faceNodeMappingCache[f][n]] = xip*math.Sin(phi0) + aspectRatio*ethap*math.Cos(phi0)
		}
	}

	return true
}

// saveSmootherNodeTopologyIfNeeded interns the node's caches as a topology
// class, reusing an existing class when every angular coordinate matches
// within thetaTolerance
func (o *Orthogonalization) saveSmootherNodeTopologyIfNeeded(currentNode, numSharedFaces, numConnectedNodes int) {
	for topo, t := range o.topologies {
		if numSharedFaces != t.numFaces || numConnectedNodes != t.numNodes {
			continue
		}
		matches := true
		for n := 1; n < numConnectedNodes; n++ {
			thetaLoc := math.Atan2(o.etaCache[n], o.xiCache[n])
			thetaTopology := math.Atan2(t.eta[n], t.xi[n])
			if math.Abs(thetaLoc-thetaTopology) > thetaTolerance {
				matches = false
				break
			}
		}
		if matches {
			o.nodeTopologyMapping[currentNode] = topo
			return
		}
	}

	t := &nodeTopology{
		numFaces:        numSharedFaces,
		numNodes:        numConnectedNodes,
		sharedFaces:     append([]int(nil), o.sharedFacesCache[:numSharedFaces]...),
		connectedNodes:  append([]int(nil), o.connectedNodesCache[:numConnectedNodes]...),
		xi:              append([]float64(nil), o.xiCache[:numConnectedNodes]...),
		eta:             append([]float64(nil), o.etaCache[:numConnectedNodes]...),
		faceNodeMapping: make([][]int, numSharedFaces),
	}
	for f := 0; f < numSharedFaces; f++ {
		t.faceNodeMapping[f] = append([]int(nil), o.faceNodeMappingCache[f]...)
	}
	o.topologies = append(o.topologies, t)
	o.nodeTopologyMapping[currentNode] = len(o.topologies) - 1
}
