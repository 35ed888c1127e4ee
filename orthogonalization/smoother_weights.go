package orthogonalization

import (
	"math"

	"github.com/notargets/gomesh/geometry2D"
	"github.com/notargets/gomesh/mesh"
)

// matrixNorm evaluates y' M x for a 2x2 matrix stored row major
func matrixNorm(x, y [2]float64, m [4]float64) float64 {
	return (m[0]*x[0]+m[1]*x[1])*y[0] + (m[2]*x[0]+m[3]*x[1])*y[1]
}

// computeJacobian evaluates the metric Jacobian of the topology's J rows at
// the current node positions; in the spherical projections longitudes are
// scaled with the node's latitude
func (o *Orthogonalization) computeJacobian(n int, m *mesh.Mesh) (J [4]float64) {
	currentTopology := o.nodeTopologyMapping[n]
	t := o.topologies[currentTopology]

	cosFactor := 1.0
	if m.Projection == geometry2D.Spherical || m.Projection == geometry2D.SphericalAccurate {
		cosFactor = cosd(m.Nodes[n].Y)
	}
	// the J rows are shared per class, the node ids are this node's own
	for i := 0; i < t.numNodes; i++ {
		node := m.Nodes[o.connectedNodes[n][i]]
		J[0] += t.Jxi[i] * node.X * cosFactor
		J[1] += t.Jxi[i] * node.Y
		J[2] += t.Jeta[i] * node.X * cosFactor
		J[3] += t.Jeta[i] * node.Y
	}
	return J
}

/*
	computeSmootherWeights turns the per-topology operators into per-node
	stencil weights: the contravariant basis of the metric Jacobian contracts
	the monitor tensor (identity for now) with the J rows and the Div . G
	combinations. The result is regularized against the reference ww2 stencil
	and normalized so that the off-diagonal weights sum to one.
*/
func (o *Orthogonalization) computeSmootherWeights(m *mesh.Mesh) error {
	numNodes := m.NumNodes()

	// monitor tensors, identity until samples are accounted for
	Ginv := make([][4]float64, numNodes)
	for n := range Ginv {
		Ginv[n] = [4]float64{1.0, 0.0, 0.0, 1.0}
	}

	o.wSmoother = make([]float64, numNodes*o.maxConnectedNodes)

	GxiByDivxi := make([]float64, o.maxConnectedNodes)
	GxiByDiveta := make([]float64, o.maxConnectedNodes)
	GetaByDivxi := make([]float64, o.maxConnectedNodes)
	GetaByDiveta := make([]float64, o.maxConnectedNodes)

	for n := 0; n < numNodes; n++ {
		if m.NodesNumEdges[n] < 2 {
			continue
		}
		if m.NodesTypes[n] != 1 && m.NodesTypes[n] != 2 {
			continue
		}
		currentTopology := o.nodeTopologyMapping[n]
		if currentTopology < 0 {
			continue
		}
		t := o.topologies[currentTopology]
		row := n * o.maxConnectedNodes

		J := o.computeJacobian(n, m)

		determinant := J[0]*J[3] - J[1]*J[2]
		if determinant == 0.0 {
			o.NodeErrors = append(o.NodeErrors, m.Nodes[n])
			continue
		}

		// contravariant base vectors
		a1 := [2]float64{J[3] / determinant, -J[2] / determinant}
		a2 := [2]float64{-J[1] / determinant, J[0] / determinant}

		var DGinvDxi, DGinvDeta [4]float64
		for i := 0; i < t.numNodes; i++ {
			g := Ginv[o.connectedNodes[n][i]]
			for k := 0; k < 4; k++ {
				DGinvDxi[k] += g[k] * t.Jxi[i]
				DGinvDeta[k] += g[k] * t.Jeta[i]
			}
		}

		currentGinv := Ginv[n]

		for i := 0; i < t.numNodes; i++ {
			GxiByDivxi[i] = 0.0
			GxiByDiveta[i] = 0.0
			GetaByDivxi[i] = 0.0
			GetaByDiveta[i] = 0.0
			for j := 0; j < t.numFaces; j++ {
				GxiByDivxi[i] += t.Gxi[j][i] * t.Divxi[j]
				GxiByDiveta[i] += t.Gxi[j][i] * t.Diveta[j]
				GetaByDivxi[i] += t.Geta[j][i] * t.Divxi[j]
				GetaByDiveta[i] += t.Geta[j][i] * t.Diveta[j]
			}
		}

		for i := 0; i < t.numNodes; i++ {
			o.wSmoother[row+i] -= matrixNorm(a1, a1, DGinvDxi)*t.Jxi[i] +
				matrixNorm(a1, a2, DGinvDeta)*t.Jxi[i] +
				matrixNorm(a2, a1, DGinvDxi)*t.Jeta[i] +
				matrixNorm(a2, a2, DGinvDeta)*t.Jeta[i]
			o.wSmoother[row+i] += matrixNorm(a1, a1, currentGinv)*GxiByDivxi[i] +
				matrixNorm(a1, a2, currentGinv)*GxiByDiveta[i] +
				matrixNorm(a2, a1, currentGinv)*GetaByDivxi[i] +
				matrixNorm(a2, a2, currentGinv)*GetaByDiveta[i]
		}

		// regularize against the reference stencil, then normalize
		alpha := 0.0
		for i := 1; i < t.numNodes; i++ {
			alpha = math.Max(alpha,
				math.Max(-o.wSmoother[row+i], 0.0)/math.Max(1.0, t.ww2[i]))
		}

		sumValues := 0.0
		for i := 1; i < t.numNodes; i++ {
			o.wSmoother[row+i] += alpha * math.Max(1.0, t.ww2[i])
			sumValues += o.wSmoother[row+i]
		}
		o.wSmoother[row] = -sumValues
		for i := 0; i < t.numNodes; i++ {
			o.wSmoother[row+i] = -o.wSmoother[row+i] / (-sumValues + 1e-8)
		}
	}
	return nil
}
