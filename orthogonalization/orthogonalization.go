package orthogonalization

import (
	"fmt"

	"github.com/notargets/gomesh/InputParameters"
	"github.com/notargets/gomesh/geometry2D"
	"github.com/notargets/gomesh/landboundaries"
	"github.com/notargets/gomesh/mesh"
	"github.com/notargets/gomesh/utils"
)

const (
	thetaTolerance   = 1e-4
	relaxationFactor = 0.75
)

// Orthogonalization iteratively repositions mesh nodes so that edges become
// orthogonal to the lines joining adjacent face circumcenters while the mesh
// stays locally smooth. The state owns all solver caches; the Mesh is
// borrowed. Set rewrites its node mask and marks the nodes outside the
// polygons as corners (type 3); after that only its node coordinates and
// derived face quantities are rewritten.
type Orthogonalization struct {
	OuterIterations    int
	BoundaryIterations int
	InnerIterations    int

	atpf         float64 // 1 = pure orthogonalizer, 0 = pure smoother
	atpfBoundary float64
	smoothorarea float64
	mu, muMax    float64

	ProjectToLandBoundaryOption     int
	KeepCircumcentersAndMassCenters bool

	polygons       []*geometry2D.Polygon
	landBoundaries *landboundaries.LandBoundaries

	// orthogonalizer state
	maxNumNeighbors int
	nodesNodes      [][]int
	wOrth           []float64 // flattened, stride maxNumNeighbors
	rhsOrth         []float64 // 2 per node
	aspectRatios    []float64

	originalNodes         []geometry2D.Point
	orthogonalCoordinates []geometry2D.Point
	nearestPoints         []int

	// smoother state
	numConnectedNodes    []int
	connectedNodes       [][]int
	sharedFacesCache     []int
	connectedNodesCache  []int
	faceNodeMappingCache [][]int
	xiCache, etaCache    []float64
	maxConnectedNodes    int
	maxSharedFaces       int
	topologies           []*nodeTopology
	nodeTopologyMapping  []int
	wSmoother            []float64 // flattened, stride maxConnectedNodes

	// compressed linear system, rebuilt each outer iteration
	nodeCacheSize int
	cmpRhs        []float64
	cmpEndIndex   []int
	cmpStartIndex []int
	cmpNodesNodes []int
	cmpWeightX    []float64
	cmpWeightY    []float64

	// sphericalAccurate displacement table, reserved
	localCoordinatesIndexes []int
	localCoordinates        []geometry2D.Point

	// positions of nodes skipped on geometric degeneracies
	NodeErrors []geometry2D.Point
}

// Set binds the solver to a mesh, masks nodes against the polygons, snapshots
// the original node positions and prepares the land boundary administration.
func (o *Orthogonalization) Set(m *mesh.Mesh,
	params InputParameters.OrthogonalizationParameters,
	polygons []*geometry2D.Polygon,
	landBoundaryNodes []geometry2D.Point) error {

	if m == nil || m.NumNodes() == 0 || m.NumEdges() == 0 {
		return fmt.Errorf("orthogonalization: mesh is empty")
	}
	if len(m.NodesEdges) != m.NumNodes() || len(m.EdgesFaces) != m.NumEdges() {
		return fmt.Errorf("orthogonalization: mesh administration is inconsistent")
	}
	switch m.Projection {
	case geometry2D.Cartesian, geometry2D.Spherical, geometry2D.SphericalAccurate:
	default:
		return fmt.Errorf("orthogonalization: unsupported projection %v", m.Projection)
	}

	o.maxNumNeighbors = 0
	for _, numEdges := range m.NodesNumEdges {
		if numEdges > o.maxNumNeighbors {
			o.maxNumNeighbors = numEdges
		}
	}
	o.maxNumNeighbors++

	numNodes := m.NumNodes()
	o.nodesNodes = make([][]int, numNodes)
	o.wOrth = make([]float64, numNodes*o.maxNumNeighbors)
	o.rhsOrth = make([]float64, 2*numNodes)
	o.aspectRatios = make([]float64, m.NumEdges())
	o.polygons = polygons

	// nodes outside the selection polygons are frozen as corner points
	m.MaskNodesInPolygons(polygons, true)
	for n := 0; n < numNodes; n++ {
		if m.NodeMask[n] == 0 {
			m.NodesTypes[n] = 3
		}
	}

	// for each node, the opposite endpoint of every connected edge
	for n := 0; n < numNodes; n++ {
		o.nodesNodes[n] = make([]int, o.maxNumNeighbors)
		for nn := range o.nodesNodes[n] {
			o.nodesNodes[n][nn] = geometry2D.IntMissing
		}
		for nn, e := range m.NodesEdges[n] {
			o.nodesNodes[n][nn] = m.Edges[e][0] + m.Edges[e][1] - n
		}
	}

	o.OuterIterations = params.OuterIterations
	o.BoundaryIterations = params.BoundaryIterations
	o.InnerIterations = params.InnerIterations
	o.atpf = params.OrthogonalizationToSmoothingFactor
	o.atpfBoundary = params.OrthogonalizationToSmoothingFactorBoundary
	o.smoothorarea = params.Smoothorarea
	o.ProjectToLandBoundaryOption = params.ProjectToLandBoundaryOption

	o.muMax = (1.0 - o.smoothorarea) * 0.5
	o.mu = min(1e-2, o.muMax)

	// the nearest original boundary point starts as the node itself
	o.nearestPoints = make([]int, numNodes)
	for n := range o.nearestPoints {
		o.nearestPoints[n] = n
	}

	// back up the original nodes for the boundary reprojection; this snapshot
	// is never written again
	o.originalNodes = make([]geometry2D.Point, numNodes)
	copy(o.originalNodes, m.Nodes)
	o.orthogonalCoordinates = make([]geometry2D.Point, numNodes)
	copy(o.orthogonalCoordinates, m.Nodes)

	o.landBoundaries = landboundaries.New(landBoundaryNodes)
	if o.ProjectToLandBoundaryOption >= 1 {
		o.landBoundaries.Administrate(m, polygons)
		o.landBoundaries.FindNearestMeshBoundary(m, o.ProjectToLandBoundaryOption)
	}

	o.NodeErrors = nil

	if m.Projection == geometry2D.SphericalAccurate {
		if o.atpf < 1.0 {
			if err := o.PrepareOuterIteration(m); err != nil {
				return err
			}
		}
		o.localCoordinatesIndexes = make([]int, numNodes+1)
		o.localCoordinatesIndexes[0] = 1
		for n := 0; n < numNodes; n++ {
			numConnected := 0
			if len(o.numConnectedNodes) > 0 {
				numConnected = o.numConnectedNodes[n]
			}
			o.localCoordinatesIndexes[n+1] = o.localCoordinatesIndexes[n] +
				max(m.NodesNumEdges[n]+1, numConnected)
		}
		o.localCoordinates = make([]geometry2D.Point, o.localCoordinatesIndexes[numNodes]-1)
		for i := range o.localCoordinates {
			o.localCoordinates[i] = geometry2D.Point{
				X: geometry2D.DoubleMissing, Y: geometry2D.DoubleMissing}
		}
	}

	return nil
}

// Compute runs the full outer/boundary/inner iteration nest
func (o *Orthogonalization) Compute(m *mesh.Mesh) (err error) {
	defer o.DeallocateLinearSystem()

	for outerIter := 0; outerIter < o.OuterIterations; outerIter++ {
		if err = o.PrepareOuterIteration(m); err != nil {
			return err
		}
		for boundaryIter := 0; boundaryIter < o.BoundaryIterations; boundaryIter++ {
			for innerIter := 0; innerIter < o.InnerIterations; innerIter++ {
				if err = o.InnerIteration(m); err != nil {
					return err
				}
			}
		}
		if err = o.FinalizeOuterIteration(m); err != nil {
			return err
		}
	}
	return nil
}

// PrepareOuterIteration rebuilds every weight table and the compressed linear
// system against the current node positions
func (o *Orthogonalization) PrepareOuterIteration(m *mesh.Mesh) (err error) {
	if err = o.computeAspectRatios(m); err != nil {
		return err
	}
	if err = o.computeWeightsAndRhsOrthogonalizer(m); err != nil {
		return err
	}
	if err = o.computeLocalCoordinates(m); err != nil {
		return err
	}
	if err = o.computeSmootherTopologies(m); err != nil {
		return err
	}
	if err = o.computeSmootherOperators(m); err != nil {
		return err
	}
	if err = o.computeSmootherWeights(m); err != nil {
		return err
	}
	if err = o.allocateLinearSystem(m); err != nil {
		return err
	}
	return o.computeLinearSystemTerms(m)
}

// FinalizeOuterIteration ramps the smoother coefficient and refreshes the
// derived face quantities
func (o *Orthogonalization) FinalizeOuterIteration(m *mesh.Mesh) error {
	o.mu = min(2.0*o.mu, o.muMax)
	if !o.KeepCircumcentersAndMassCenters {
		return m.ComputeFaceCircumcentersMassCentersAndAreas()
	}
	return nil
}

func (o *Orthogonalization) allocateLinearSystem(m *mesh.Mesh) error {
	if o.nodeCacheSize != 0 {
		return nil
	}
	numNodes := m.NumNodes()
	o.cmpRhs = make([]float64, 2*numNodes)
	o.cmpEndIndex = make([]int, numNodes)
	o.cmpStartIndex = make([]int, numNodes)
	for n := 0; n < numNodes; n++ {
		o.cmpEndIndex[n] = o.nodeCacheSize
		o.nodeCacheSize += max(m.NodesNumEdges[n]+1, o.numConnectedNodes[n])
		o.cmpStartIndex[n] = o.nodeCacheSize
	}
	o.cmpNodesNodes = make([]int, o.nodeCacheSize)
	o.cmpWeightX = make([]float64, o.nodeCacheSize)
	o.cmpWeightY = make([]float64, o.nodeCacheSize)
	return nil
}

// DeallocateLinearSystem releases the compressed system; Compute calls it on
// the way out so the step-wise API can rebuild from scratch
func (o *Orthogonalization) DeallocateLinearSystem() {
	o.cmpRhs = nil
	o.cmpEndIndex = nil
	o.cmpStartIndex = nil
	o.cmpNodesNodes = nil
	o.cmpWeightX = nil
	o.cmpWeightY = nil
	o.nodeCacheSize = 0
}

// computeLinearSystemTerms convex-combines the orthogonalizer and smoother
// weights into the compressed stencil. The loop is data parallel: each node
// writes only its own slot range.
func (o *Orthogonalization) computeLinearSystemTerms(m *mesh.Mesh) error {
	maxAtpf := max(o.atpfBoundary, o.atpf)
	utils.ParallelFor(m.NumNodes(), func(lo, hi int) {
		for n := lo; n < hi; n++ {
			if (m.NodesTypes[n] != 1 && m.NodesTypes[n] != 2) || m.NodesNumEdges[n] < 2 {
				continue
			}
			if o.KeepCircumcentersAndMassCenters &&
				m.NodesNumEdges[n] != 3 && m.NodesNumEdges[n] != 1 {
				continue
			}

			atpfLoc := o.atpf
			if m.NodesTypes[n] == 2 {
				atpfLoc = maxAtpf
			}
			atpf1Loc := 1.0 - atpfLoc
			maxnn := o.cmpStartIndex[n] - o.cmpEndIndex[n]
			for nn, cacheIndex := 1, o.cmpEndIndex[n]; nn < maxnn; nn, cacheIndex = nn+1, cacheIndex+1 {
				var wwx, wwy float64

				// smoother, interior nodes only
				if atpf1Loc > 0.0 && m.NodesTypes[n] == 1 {
					wwx = atpf1Loc * o.wSmoother[n*o.maxConnectedNodes+nn]
					wwy = wwx
				}

				// orthogonalizer on the edge-connected slots
				if nn < m.NodesNumEdges[n]+1 {
					wwx += atpfLoc * o.wOrth[n*o.maxNumNeighbors+nn-1]
					wwy += atpfLoc * o.wOrth[n*o.maxNumNeighbors+nn-1]
					o.cmpNodesNodes[cacheIndex] = o.nodesNodes[n][nn-1]
				} else {
					o.cmpNodesNodes[cacheIndex] = o.connectedNodes[n][nn]
				}

				o.cmpWeightX[cacheIndex] = wwx
				o.cmpWeightY[cacheIndex] = wwy
			}
			o.cmpRhs[2*n] = atpfLoc * o.rhsOrth[2*n]
			o.cmpRhs[2*n+1] = atpfLoc * o.rhsOrth[2*n+1]
		}
	})
	return nil
}

// InnerIteration performs one Gauss-Seidel style sweep over all nodes, then
// commits the coordinates, reprojects the boundary onto the original mesh and
// optionally snaps to the land boundaries
func (o *Orthogonalization) InnerIteration(m *mesh.Mesh) error {
	utils.ParallelFor(m.NumNodes(), func(lo, hi int) {
		for n := lo; n < hi; n++ {
			o.updateNodeCoordinates(n, m)
		}
	})

	// full barrier: the sweep wrote orthogonalCoordinates only
	copy(m.Nodes, o.orthogonalCoordinates)

	if err := o.projectOnOriginalMeshBoundary(m); err != nil {
		return err
	}
	if err := o.computeLocalCoordinates(m); err != nil {
		return err
	}
	if o.ProjectToLandBoundaryOption >= 1 {
		o.landBoundaries.SnapMeshToLandBoundaries(m)
	}
	return nil
}

// computeLocalCoordinates is reserved for the sphericalAccurate projection
func (o *Orthogonalization) computeLocalCoordinates(m *mesh.Mesh) error {
	return nil
}

func (o *Orthogonalization) updateNodeCoordinates(n int, m *mesh.Mesh) {
	var (
		dx0, dy0   float64
		increments [2]float64
	)
	numConnected := o.cmpStartIndex[n] - o.cmpEndIndex[n]
	for nn, cacheIndex := 1, o.cmpEndIndex[n]; nn < numConnected; nn, cacheIndex = nn+1, cacheIndex+1 {
		o.computeLocalIncrements(o.cmpWeightX[cacheIndex], o.cmpWeightY[cacheIndex],
			o.cmpNodesNodes[cacheIndex], n, m, &dx0, &dy0, &increments)
	}

	if increments[0] <= 1e-8 || increments[1] <= 1e-8 {
		return
	}

	dx0 = (dx0 + o.cmpRhs[2*n]) / increments[0]
	dy0 = (dy0 + o.cmpRhs[2*n+1]) / increments[1]

	switch m.Projection {
	case geometry2D.Cartesian, geometry2D.Spherical:
		x0 := m.Nodes[n].X + dx0
		y0 := m.Nodes[n].Y + dy0
		o.orthogonalCoordinates[n].X = relaxationFactor*x0 + (1.0-relaxationFactor)*m.Nodes[n].X
		o.orthogonalCoordinates[n].Y = relaxationFactor*y0 + (1.0-relaxationFactor)*m.Nodes[n].Y
	case geometry2D.SphericalAccurate:
		localPoint := geometry2D.Point{
			X: relaxationFactor * dx0,
			Y: relaxationFactor * dy0,
		}
		exxp, eyyp, ezzp := geometry2D.ComputeThreeBaseComponents(m.Nodes[n])

		// 3D coordinates in the rotated frame, then projected to the fixed one
		local := geometry2D.SphericalToCartesian(localPoint)
		transformed := exxp.Mul(local.X).Add(eyyp.Mul(local.Y)).Add(ezzp.Mul(local.Z))
		o.orthogonalCoordinates[n] = geometry2D.CartesianToSpherical(transformed, m.Nodes[n].X)
	}
}

func (o *Orthogonalization) computeLocalIncrements(wwx, wwy float64, otherNode, n int,
	m *mesh.Mesh, dx0, dy0 *float64, increments *[2]float64) {
	var wwxTransformed, wwyTransformed float64
	switch m.Projection {
	case geometry2D.Cartesian:
		wwxTransformed = wwx
		wwyTransformed = wwy
		*dx0 += wwxTransformed * (m.Nodes[otherNode].X - m.Nodes[n].X)
		*dy0 += wwyTransformed * (m.Nodes[otherNode].Y - m.Nodes[n].Y)
	case geometry2D.Spherical:
		wwxTransformed = wwx * geometry2D.EarthRadius * geometry2D.DegRad *
			cosd(0.5*(m.Nodes[otherNode].Y+m.Nodes[n].Y))
		wwyTransformed = wwy * geometry2D.EarthRadius * geometry2D.DegRad
		*dx0 += wwxTransformed * (m.Nodes[otherNode].X - m.Nodes[n].X)
		*dy0 += wwyTransformed * (m.Nodes[otherNode].Y - m.Nodes[n].Y)
	case geometry2D.SphericalAccurate:
		wwxTransformed = wwx * geometry2D.EarthRadius * geometry2D.DegRad
		wwyTransformed = wwy * geometry2D.EarthRadius * geometry2D.DegRad
		local := o.localCoordinates[o.localCoordinatesIndexes[n]+otherNode-1]
		*dx0 += wwxTransformed * local.X
		*dy0 += wwyTransformed * local.Y
	}
	increments[0] += wwxTransformed
	increments[1] += wwyTransformed
}
