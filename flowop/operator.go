package flowop

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"

	"github.com/notargets/goflame/boundary"
	"github.com/notargets/goflame/fluid"
	"github.com/notargets/goflame/mesh"
	"github.com/notargets/goflame/steppers"
	"github.com/notargets/goflame/thermochem"
	"github.com/notargets/goflame/utils"
)

// Halo carries one edge cell's conserved state and width across a
// partition face to the neighbor rank.
type Halo struct {
	FromRank int
	Q        []float64
	DX       float64
}

/*
Operator is the finite volume spatial operator for one rank's slab of a
1D reacting Navier-Stokes problem. Advective face fluxes use the Rusanov
approximate Riemann solver, diffusive fluxes use gradient transport with
central differences over the cell center distance, and species equations
carry the mechanism's production rates as cell sources. Heat release
needs no energy source because the conserved energy includes formation
enthalpy.

RHS is collective: every rank in the group must call it in lock step,
the same way every rank of an MPI run enters the operator together.
*/
type Operator struct {
	Part  *mesh.Partition
	Gas   *thermochem.GasMixture
	BCs   boundary.Spec
	Group *utils.RankGroup
	Mail  *utils.MailBox[Halo]

	fluxDiv *sparse.CSR // (K+1) x K map from face fluxes to cell divergence
	widths  []float64
}

func NewOperator(part *mesh.Partition, gas *thermochem.GasMixture, bcs boundary.Spec,
	group *utils.RankGroup, mail *utils.MailBox[Halo]) (op *Operator, err error) {
	if err = part.Validate(); err != nil {
		return
	}
	for _, bf := range []boundary.BCFLAG{part.LeftBC, part.RightBC} {
		if bf == boundary.BC_Partition {
			continue
		}
		if _, err = bcs.Lookup(bf); err != nil {
			return
		}
	}
	op = &Operator{
		Part:  part,
		Gas:   gas,
		BCs:   bcs,
		Group: group,
		Mail:  mail,
	}
	op.assembleFluxDiv()
	return
}

/*
assembleFluxDiv builds the sparse divergence operator mapping the K+1
face fluxes to the K cell updates:

	rhs[k] = (faceTotal[k] - faceTotal[k+1]) / dx[k]

so the RHS of every conserved field is one vector-matrix product.
*/
func (op *Operator) assembleFluxDiv() {
	var (
		K = op.Part.K
	)
	op.widths = op.Part.Widths().DataP
	fd := sparse.NewDOK(K+1, K)
	for k := 0; k < K; k++ {
		fd.Set(k, k, 1./op.widths[k])
		fd.Set(k+1, k, -1./op.widths[k])
	}
	op.fluxDiv = fd.ToCSR()
	return
}

// cellState is one cell's conserved vector with the primitive quantities
// the face fluxes need.
type cellState struct {
	cons              []float64
	rho, vel, p, T, c float64
	Y                 []float64
}

func (op *Operator) primitive(cons []float64) (s cellState) {
	var (
		nSp = op.Gas.NumSpecies()
	)
	s.cons = cons
	s.rho = cons[0]
	s.vel = cons[1] / s.rho
	s.Y = make([]float64, nSp)
	for i := 0; i < nSp; i++ {
		s.Y[i] = cons[3+i] / s.rho
	}
	eInt := cons[2]/s.rho - 0.5*s.vel*s.vel
	s.T = op.Gas.Temperature(eInt, s.Y)
	s.p = op.Gas.Pressure(s.rho, s.T, s.Y)
	s.c = op.Gas.SoundSpeed(s.T, s.Y)
	return
}

func advectiveFlux(s *cellState, flux []float64) {
	flux[0] = s.cons[1]
	flux[1] = s.cons[1]*s.vel + s.p
	flux[2] = (s.cons[2] + s.p) * s.vel
	for i, rhoY := range s.cons[3:] {
		flux[3+i] = rhoY * s.vel
	}
}

/*
RHS evaluates d(q)/dt at time t. The state is first checked for
non-finite values with an or-reduction so that every rank abandons the
evaluation together, before any halo traffic, and returns DivergedError.
*/
func (op *Operator) RHS(t float64, q *fluid.ConservedVars) (rhs *fluid.ConservedVars, err error) {
	var (
		part = op.Part
		rank = part.Rank
		K    = part.K
		nF   = q.NFields()
		nSp  = q.NSpecies
	)
	if q.Dim != 1 || q.K != K {
		err = fmt.Errorf("state shape [dim %d, %d cells] does not match the 1D operator's %d cells",
			q.Dim, q.K, K)
		return
	}
	if op.Group.AllReduceOr(rank, q.HasNonFinite()) {
		err = &steppers.DivergedError{Time: t}
		return
	}
	ghostL, dxL, ghostR, dxR := op.exchangeHalo(q)
	var (
		states = make([]cellState, K+2)
		faceDX = make([]float64, K+1)
	)
	for k := 0; k < K; k++ {
		cons := make([]float64, nF)
		q.Cell(k, cons)
		states[k+1] = op.primitive(cons)
	}
	states[0] = op.primitive(ghostL)
	states[K+1] = op.primitive(ghostR)
	for f := 1; f < K; f++ {
		faceDX[f] = 0.5 * (op.widths[f-1] + op.widths[f])
	}
	faceDX[0], faceDX[K] = dxL, dxR

	var (
		faceTotal = make([]utils.Matrix, nF)
		mu        = op.Gas.Transport.Viscosity
		kappa     = op.Gas.Transport.ThermalConductivity
		diff      = op.Gas.Transport.SpeciesDiffusivity
		fL        = make([]float64, nF)
		fR        = make([]float64, nF)
	)
	for i := range faceTotal {
		faceTotal[i] = utils.NewMatrix(1, K+1)
	}
	for f := 0; f <= K; f++ {
		var (
			L, R = &states[f], &states[f+1]
			lam  = math.Max(math.Abs(L.vel)+L.c, math.Abs(R.vel)+R.c)
			dx   = faceDX[f]
		)
		advectiveFlux(L, fL)
		advectiveFlux(R, fR)
		for i := 0; i < nF; i++ {
			faceTotal[i].DataP[f] = 0.5*(fL[i]+fR[i]) - 0.5*lam*(R.cons[i]-L.cons[i])
		}
		faceTotal[1].DataP[f] -= mu * (R.vel - L.vel) / dx
		faceTotal[2].DataP[f] -= kappa * (R.T - L.T) / dx
		rhoFace := 0.5 * (L.rho + R.rho)
		for i := 0; i < nSp; i++ {
			faceTotal[3+i].DataP[f] -= rhoFace * diff[i] * (R.Y[i] - L.Y[i]) / dx
		}
	}

	rhs = fluid.NewConservedVars(q.Dim, nSp, K)
	for i, f := range rhs.Fields() {
		f.M.Mul(faceTotal[i].M, op.fluxDiv)
	}
	wdot := make([]float64, nSp)
	for k := 0; k < K; k++ {
		s := &states[k+1]
		op.Gas.ProductionRates(s.rho, s.T, s.Y, wdot)
		for i := 0; i < nSp; i++ {
			rhs.RhoY[i].DataP[k] += wdot[i]
		}
	}
	return
}

/*
exchangeHalo trades edge cell states with the neighbor ranks and fills
ghost states for domain boundary faces from the registered conditions.
The double barrier keeps a fast rank from posting its next message into
a buffer the neighbor has not finished reading.
*/
func (op *Operator) exchangeHalo(q *fluid.ConservedVars) (ghostL []float64, dxL float64,
	ghostR []float64, dxR float64) {
	var (
		part = op.Part
		rank = part.Rank
		K    = part.K
		w    = op.widths
		nF   = q.NFields()
	)
	if part.LeftRank >= 0 {
		edge := make([]float64, nF)
		q.Cell(0, edge)
		op.Mail.PostMessage(rank, part.LeftRank, Halo{FromRank: rank, Q: edge, DX: w[0]})
	}
	if part.RightRank >= 0 {
		edge := make([]float64, nF)
		q.Cell(K-1, edge)
		op.Mail.PostMessage(rank, part.RightRank, Halo{FromRank: rank, Q: edge, DX: w[K-1]})
	}
	op.Mail.DeliverMyMessages(rank)
	op.Group.Barrier(rank)
	op.Mail.ReceiveMyMessages(rank)
	for _, msg := range op.Mail.ReceiveMsgQs[rank].Cells() {
		switch msg.FromRank {
		case part.LeftRank:
			ghostL, dxL = msg.Q, 0.5*(msg.DX+w[0])
		case part.RightRank:
			ghostR, dxR = msg.Q, 0.5*(msg.DX+w[K-1])
		}
	}
	op.Mail.ClearMyMessages(rank)
	op.Group.Barrier(rank)

	if part.LeftRank < 0 {
		interior := make([]float64, nF)
		q.Cell(0, interior)
		bc, _ := op.BCs.Lookup(part.LeftBC)
		ghostL, dxL = bc.Ghost(interior), w[0]
	}
	if part.RightRank < 0 {
		interior := make([]float64, nF)
		q.Cell(K-1, interior)
		bc, _ := op.BCs.Lookup(part.RightBC)
		ghostR, dxR = bc.Ghost(interior), w[K-1]
	}
	return
}

/*
TimestepSelector returns the dt selection for the run: either the fixed
ctx.DT, or when ConstantCFL is set the acoustic CFL limit

	dt = CFL * min_k( dx[k] / (|u[k]| + c[k]) )

min-reduced over the group. Either way the step is clipped to land on
FinalTime. In CFL mode the selector is collective.
*/
func (op *Operator) TimestepSelector(ctx *steppers.RunContext) steppers.TimestepFunc {
	return func(t float64, q *fluid.ConservedVars) (dt float64) {
		dt = ctx.DT
		if ctx.ConstantCFL {
			var (
				local = math.Inf(1)
				cons  = make([]float64, q.NFields())
			)
			for k := 0; k < op.Part.K; k++ {
				q.Cell(k, cons)
				s := op.primitive(cons)
				if cand := ctx.CFL * op.widths[k] / (math.Abs(s.vel) + s.c); cand < local {
					local = cand
				}
			}
			dt = op.Group.AllReduceMin(op.Part.Rank, local)
		}
		return steppers.ClipToFinal(t, dt, ctx.FinalTime)
	}
}
