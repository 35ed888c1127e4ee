package orthogonalization

import (
	"fmt"
	"math"

	"github.com/notargets/gomesh/geometry2D"
	"github.com/notargets/gomesh/mesh"
)

// computeSmootherOperators assembles the discrete operators once per topology
// class, using the first node mapped to each class
func (o *Orthogonalization) computeSmootherOperators(m *mesh.Mesh) error {
	assembled := make([]bool, len(o.topologies))
	for n := 0; n < m.NumNodes(); n++ {
		currentTopology := o.nodeTopologyMapping[n]
		if currentTopology < 0 || assembled[currentTopology] {
			continue
		}
		assembled[currentTopology] = true
		o.topologies[currentTopology].allocateOperators()
		if err := o.computeSmootherOperatorsNode(m, n); err != nil {
			return err
		}
	}
	return nil
}

func (t *nodeTopology) allocateOperators() {
	t.Az = make([][]float64, t.numFaces)
	t.Gxi = make([][]float64, t.numFaces)
	t.Geta = make([][]float64, t.numFaces)
	for f := 0; f < t.numFaces; f++ {
		t.Az[f] = make([]float64, t.numNodes)
		t.Gxi[f] = make([]float64, t.numNodes)
		t.Geta[f] = make([]float64, t.numNodes)
	}
	t.Divxi = make([]float64, t.numFaces)
	t.Diveta = make([]float64, t.numFaces)
	t.Jxi = make([]float64, t.numNodes)
	t.Jeta = make([]float64, t.numNodes)
	t.ww2 = make([]float64, t.numNodes)
}

/*
	Operator assembly in the local (xi, eta) frame of one topology class:

	Az    face circumcenter as a convex combination of the connected nodes
	G     gradient at each connected edge from the two adjacent face centers
	      and the edge endpoints
	Div   node-level divergence contribution of each connected edge
	J     Jacobian rows accumulated from Div and Az
	ww2   the reference Laplacian stencil Div . G used as regularizer
*/
func (o *Orthogonalization) computeSmootherOperatorsNode(m *mesh.Mesh, currentNode int) error {
	currentTopology := o.nodeTopologyMapping[currentNode]
	t := o.topologies[currentTopology]

	for f := 0; f < t.numFaces; f++ {
		if t.sharedFaces[f] < 0 || m.NodesTypes[currentNode] == 3 {
			continue
		}

		edgeLeft := f + 1
		edgeRight := edgeLeft + 1
		if edgeRight > t.numFaces {
			edgeRight -= t.numFaces
		}

		xiLeft := t.xi[edgeLeft]
		xiRight := t.xi[edgeRight]
		etaLeft := t.eta[edgeLeft]
		etaRight := t.eta[edgeRight]

		edgeLeftLength := math.Sqrt(xiLeft*xiLeft + etaLeft*etaLeft + 1e-16)
		edgeRightLength := math.Sqrt(xiRight*xiRight + etaRight*etaRight + 1e-16)
		cPhi := (xiLeft*xiRight + etaLeft*etaRight) / (edgeLeftLength * edgeRightLength)
		numFaceNodes := m.NumFaceEdges(t.sharedFaces[f])

		if numFaceNodes == 3 {
			// triangular face: estimate the circumcenter contributions from
			// the two adjacent edges
			nodeIndex := geometry2D.FindIndex(m.FacesNodes[t.sharedFaces[f]], currentNode)
			nodeLeft := geometry2D.NextCircularBackwardIndex(nodeIndex, numFaceNodes)
			nodeRight := geometry2D.NextCircularForwardIndex(nodeIndex, numFaceNodes)

			alpha := 1.0 / (1.0 - cPhi*cPhi + 1e-8)
			alphaLeft := 0.5 * (1.0 - edgeLeftLength/edgeRightLength*cPhi) * alpha
			alphaRight := 0.5 * (1.0 - edgeRightLength/edgeLeftLength*cPhi) * alpha

			t.Az[f][t.faceNodeMapping[f][nodeIndex]] = 1.0 - (alphaLeft + alphaRight)
			t.Az[f][t.faceNodeMapping[f][nodeLeft]] = alphaLeft
			t.Az[f][t.faceNodeMapping[f][nodeRight]] = alphaRight
		} else {
			for i := 0; i < numFaceNodes; i++ {
				t.Az[f][t.faceNodeMapping[f][i]] = 1.0 / float64(numFaceNodes)
			}
		}
	}

	xisCache := make([]float64, t.numFaces)
	etasCache := make([]float64, t.numFaces)

	for f := 0; f < t.numFaces; f++ {
		edgeIndex := m.NodesEdges[currentNode][f]
		leftFace := m.EdgesFaces[edgeIndex][0]
		faceLeftIndex := geometry2D.FindIndex(t.sharedFaces, leftFace)

		// the face is absent when the cell lies outside the polygon
		if t.sharedFaces[faceLeftIndex] != leftFace {
			return fmt.Errorf("orthogonalization: face %d is not among the shared faces of node %d",
				leftFace, currentNode)
		}

		// by construction the edge endpoint sits at slot f+1
		xiOne := t.xi[f+1]
		etaOne := t.eta[f+1]

		leftRightSwap := 1.0
		var leftXi, leftEta, rightXi, rightEta, alphaX float64
		var xiBoundary, etaBoundary float64
		faceRightIndex := 0

		if m.EdgesNumFaces[edgeIndex] == 1 {
			// boundary edge: mirror the left face center across the edge
			if f != faceLeftIndex {
				leftRightSwap = -1.0
			}

			for i := 0; i < t.numNodes; i++ {
				leftXi += t.xi[i] * t.Az[faceLeftIndex][i]
				leftEta += t.eta[i] * t.Az[faceLeftIndex][i]
			}

			alpha := (leftXi*xiOne + leftEta*etaOne) / (xiOne*xiOne + etaOne*etaOne)
			alphaX = alpha
			xiBoundary = alpha * xiOne
			etaBoundary = alpha * etaOne

			rightXi = 2.0*xiBoundary - leftXi
			rightEta = 2.0*etaBoundary - leftEta
		} else {
			faceLeftIndex = f
			faceRightIndex = geometry2D.NextCircularBackwardIndex(faceLeftIndex, t.numFaces)
			if faceRightIndex < 0 {
				continue
			}

			faceLeft := t.sharedFaces[faceLeftIndex]
			faceRight := t.sharedFaces[faceRightIndex]
			if (faceLeft != m.EdgesFaces[edgeIndex][0] && faceLeft != m.EdgesFaces[edgeIndex][1]) ||
				(faceRight != m.EdgesFaces[edgeIndex][0] && faceRight != m.EdgesFaces[edgeIndex][1]) {
				return fmt.Errorf("orthogonalization: shared faces of node %d do not match edge %d",
					currentNode, edgeIndex)
			}

			for i := 0; i < t.numNodes; i++ {
				leftXi += t.xi[i] * t.Az[faceLeftIndex][i]
				leftEta += t.eta[i] * t.Az[faceLeftIndex][i]
				rightXi += t.xi[i] * t.Az[faceRightIndex][i]
				rightEta += t.eta[i] * t.Az[faceRightIndex][i]
			}
		}

		xisCache[f] = 0.5 * (leftXi + rightXi)
		etasCache[f] = 0.5 * (leftEta + rightEta)

		exiLR := rightXi - leftXi
		eetaLR := rightEta - leftEta
		exi01 := xiOne
		eeta01 := etaOne

		fac := 1.0 / math.Abs(exi01*eetaLR-eeta01*exiLR+1e-16)
		facxi1 := -eetaLR * fac * leftRightSwap
		facxi0 := -facxi1
		faceta1 := exiLR * fac * leftRightSwap
		faceta0 := -faceta1
		facxiR := eeta01 * fac * leftRightSwap
		facxiL := -facxiR
		facetaR := -exi01 * fac * leftRightSwap
		facetaL := -facetaR

		if m.EdgesNumFaces[edgeIndex] == 1 {
			// boundary link: the right face center is the mirrored one
			facxi1 += -facxiL * 2.0 * alphaX
			facxi0 += -facxiL * 2.0 * (1.0 - alphaX)
			facxiL += facxiL
			// facxiR does not exist on a boundary edge
			faceta1 += -facetaL * 2.0 * alphaX
			faceta0 += -facetaL * 2.0 * (1.0 - alphaX)
			facetaL = 2.0 * facetaL
		}

		node1 := f + 1
		node0 := 0
		for i := 0; i < t.numNodes; i++ {
			t.Gxi[f][i] = facxiL * t.Az[faceLeftIndex][i]
			t.Geta[f][i] = facetaL * t.Az[faceLeftIndex][i]
			if m.EdgesNumFaces[edgeIndex] == 2 {
				t.Gxi[f][i] += facxiR * t.Az[faceRightIndex][i]
				t.Geta[f][i] += facetaR * t.Az[faceRightIndex][i]
			}
		}
		t.Gxi[f][node1] += facxi1
		t.Geta[f][node1] += faceta1
		t.Gxi[f][node0] += facxi0
		t.Geta[f][node0] += faceta0

		t.Divxi[f] = -eetaLR * leftRightSwap
		t.Diveta[f] = exiLR * leftRightSwap

		if m.EdgesNumFaces[edgeIndex] == 1 {
			t.Divxi[f] = 0.5*t.Divxi[f] + etaBoundary*leftRightSwap
			t.Diveta[f] = 0.5*t.Diveta[f] - xiBoundary*leftRightSwap
		}
	}

	// normalize the divergence by the dual volume
	numEdges := min(m.NodesNumEdges[currentNode], t.numFaces)
	volxi := 0.0
	for i := 0; i < numEdges; i++ {
		volxi += 0.5 * (t.Divxi[i]*xisCache[i] + t.Diveta[i]*etasCache[i])
	}
	if volxi == 0.0 {
		volxi = 1.0
	}
	for i := 0; i < numEdges; i++ {
		t.Divxi[i] /= volxi
		t.Diveta[i] /= volxi
	}

	// node-to-node gradients
	for f := 0; f < t.numFaces; f++ {
		if m.EdgesNumFaces[m.NodesEdges[currentNode][f]] == 2 {
			rightNode := f - 1
			if rightNode < 0 {
				rightNode += m.NodesNumEdges[currentNode]
			}
			for i := 0; i < t.numNodes; i++ {
				t.Jxi[i] += t.Divxi[f] * 0.5 * (t.Az[f][i] + t.Az[rightNode][i])
				t.Jeta[i] += t.Diveta[f] * 0.5 * (t.Az[f][i] + t.Az[rightNode][i])
			}
		} else {
			t.Jxi[0] += t.Divxi[f] * 0.5
			t.Jxi[f+1] += t.Divxi[f] * 0.5
			t.Jeta[0] += t.Diveta[f] * 0.5
			t.Jeta[f+1] += t.Diveta[f] * 0.5
		}
	}

	// the reference Laplacian stencil
	for e := 0; e < numEdges; e++ {
		for i := 0; i < t.numNodes; i++ {
			t.ww2[i] += t.Divxi[e]*t.Gxi[e][i] + t.Diveta[e]*t.Geta[e][i]
		}
	}

	return nil
}
