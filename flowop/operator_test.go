package flowop

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/goflame/boundary"
	"github.com/notargets/goflame/fluid"
	"github.com/notargets/goflame/mesh"
	"github.com/notargets/goflame/steppers"
	"github.com/notargets/goflame/thermochem"
	"github.com/notargets/goflame/utils"
)

func testGas() *thermochem.GasMixture {
	mech := thermochem.SingleStepH2()
	return thermochem.NewGasMixture(mech, thermochem.DefaultTransport(len(mech.Species())))
}

func runRanks(np int, body func(rank int)) {
	var wg sync.WaitGroup
	for n := 0; n < np; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			body(n)
		}(n)
	}
	wg.Wait()
}

func TestRHSFreeStream(t *testing.T) {
	// A uniform moving nitrogen stream with matching prescribed far
	// field states is an exact steady solution, so the RHS must vanish.
	var (
		g     = testGas()
		VX, _ = mesh.Uniform1D(0, 0.1, 8)
		parts = mesh.Split(VX, 1, boundary.BC_In, boundary.BC_Out)
		group = utils.NewRankGroup(1)
		mail  = utils.NewMailBox[Halo](1)
		Y     = []float64{0, 0, 0, 1}
		st    = thermochem.StateAtTP(g, 300, thermochem.OneAtm, Y, []float64{10})
	)
	bcs := boundary.Spec{
		boundary.BC_In:  boundary.NewPrescribed(g.ConservedCell(st)),
		boundary.BC_Out: boundary.NewPrescribed(g.ConservedCell(st)),
	}
	op, err := NewOperator(parts[0], g, bcs, group, mail)
	require.NoError(t, err)
	q := fluid.NewConservedVars(1, g.NumSpecies(), parts[0].K)
	for k := 0; k < q.K; k++ {
		q.SetCell(k, g.ConservedCell(st))
	}
	rhs, err := op.RHS(0, q)
	require.NoError(t, err)
	for _, f := range rhs.Fields() {
		for _, v := range f.DataP {
			assert.InDelta(t, 0., v, 1.e-8)
		}
	}
}

func TestRHSDiffusionDirection(t *testing.T) {
	// A resting temperature step in pure nitrogen: heat must flow from
	// the hot side to the cold side, conserving mass and energy overall.
	var (
		g     = testGas()
		K     = 8
		VX, _ = mesh.Uniform1D(0, 0.1, K)
		parts = mesh.Split(VX, 1, boundary.BC_Wall, boundary.BC_Wall)
		group = utils.NewRankGroup(1)
		mail  = utils.NewMailBox[Halo](1)
		bcs   = boundary.Spec{boundary.BC_Wall: boundary.ZeroGradient{}}
		Y     = []float64{0, 0, 0, 1}
	)
	op, err := NewOperator(parts[0], g, bcs, group, mail)
	require.NoError(t, err)
	q := fluid.NewConservedVars(1, g.NumSpecies(), K)
	for k := 0; k < K; k++ {
		T := 600.
		if k >= K/2 {
			T = 300.
		}
		q.SetCell(k, g.ConservedCell(thermochem.StateAtTP(g, T, thermochem.OneAtm, Y, []float64{0})))
	}
	rhs, err := op.RHS(0, q)
	require.NoError(t, err)

	assert.Less(t, rhs.RhoE.DataP[K/2-1], 0.)
	assert.Greater(t, rhs.RhoE.DataP[K/2], 0.)
	assert.InDelta(t, 0., rhs.RhoE.DataP[0], 1.e-8)
	assert.InDelta(t, 0., rhs.RhoE.DataP[K-1], 1.e-8)

	// Zero gradient ends carry no flux, so the interior telescopes.
	var massTotal, energyTotal float64
	w := parts[0].Widths().DataP
	for k := 0; k < K; k++ {
		massTotal += rhs.Rho.DataP[k] * w[k]
		energyTotal += rhs.RhoE.DataP[k] * w[k]
	}
	assert.InDelta(t, 0., massTotal, 1.e-6)
	assert.InDelta(t, 0., energyTotal, 1.e-6)
}

func TestRHSPartitionEquivalence(t *testing.T) {
	// The partitioned operator with halo exchange must reproduce the
	// single rank evaluation cell for cell on a flame-like profile that
	// exercises advection, diffusion and reaction together.
	var (
		g     = testGas()
		K     = 12
		np    = 3
		VX, _ = mesh.Uniform1D(0, 0.1, K)
	)
	unb, err := thermochem.Unburned(g, 300., thermochem.OneAtm, 1., 0.21, 0.5, 1)
	require.NoError(t, err)
	brn, err := thermochem.Burned(g, unb)
	require.NoError(t, err)
	cellAt := func(x float64) thermochem.MixtureState {
		var (
			s = 0.5 * (1. + math.Tanh((0.05-x)/0.01)) // burned on the left
			Y = make([]float64, g.NumSpecies())
			T = 300. + s*(1500.-300.)
		)
		for i := range Y {
			Y[i] = s*brn.MassFractions[i] + (1.-s)*unb.MassFractions[i]
		}
		return thermochem.StateAtTP(g, T, thermochem.OneAtm, Y, []float64{1.})
	}
	bcs := boundary.Spec{
		boundary.BC_In: boundary.NewPrescribed(g.ConservedCell(
			thermochem.StateAtTP(g, 1500., thermochem.OneAtm, brn.MassFractions, []float64{1.}))),
		boundary.BC_Out: boundary.NewPrescribed(g.ConservedCell(
			thermochem.StateAtTP(g, 300., thermochem.OneAtm, unb.MassFractions, []float64{1.}))),
	}

	// Reference evaluation on one rank.
	var single *fluid.ConservedVars
	{
		parts := mesh.Split(VX, 1, boundary.BC_In, boundary.BC_Out)
		op, err := NewOperator(parts[0], g, bcs, utils.NewRankGroup(1), utils.NewMailBox[Halo](1))
		require.NoError(t, err)
		q := fluid.NewConservedVars(1, g.NumSpecies(), K)
		for k := 0; k < K; k++ {
			x := 0.5 * (VX.DataP[k] + VX.DataP[k+1])
			q.SetCell(k, g.ConservedCell(cellAt(x)))
		}
		single, err = op.RHS(0, q)
		require.NoError(t, err)
	}

	var (
		parts = mesh.Split(VX, np, boundary.BC_In, boundary.BC_Out)
		group = utils.NewRankGroup(np)
		mail  = utils.NewMailBox[Halo](np)
		outs  = make([]*fluid.ConservedVars, np)
		errs  = make([]error, np)
	)
	runRanks(np, func(rank int) {
		op, err := NewOperator(parts[rank], g, bcs, group, mail)
		if err != nil {
			errs[rank] = err
			return
		}
		q := fluid.NewConservedVars(1, g.NumSpecies(), parts[rank].K)
		for k := 0; k < parts[rank].K; k++ {
			x := 0.5 * (parts[rank].VX[k] + parts[rank].VX[k+1])
			q.SetCell(k, g.ConservedCell(cellAt(x)))
		}
		outs[rank], errs[rank] = op.RHS(0, q)
	})
	for n := 0; n < np; n++ {
		require.NoError(t, errs[n])
	}
	for i, sf := range single.Fields() {
		for n := 0; n < np; n++ {
			var (
				oD  = outs[n].Fields()[i].DataP
				off = parts[n].KGlobalOffset
			)
			for k := 0; k < parts[n].K; k++ {
				scale := math.Max(1., math.Abs(sf.DataP[off+k]))
				assert.InDelta(t, sf.DataP[off+k], oD[k], 1.e-9*scale)
			}
		}
	}
}

func TestRHSDivergedAllRanks(t *testing.T) {
	// One rank's NaN must abort the evaluation on every rank, so the
	// group leaves the step in lock step.
	var (
		g     = testGas()
		np    = 2
		VX, _ = mesh.Uniform1D(0, 0.1, 8)
		parts = mesh.Split(VX, np, boundary.BC_In, boundary.BC_Out)
		group = utils.NewRankGroup(np)
		mail  = utils.NewMailBox[Halo](np)
		Y     = []float64{0, 0, 0, 1}
		st    = thermochem.StateAtTP(g, 300, thermochem.OneAtm, Y, []float64{0})
		bcs   = boundary.Spec{
			boundary.BC_In:  boundary.NewPrescribed(g.ConservedCell(st)),
			boundary.BC_Out: boundary.ZeroGradient{},
		}
		errs = make([]error, np)
	)
	runRanks(np, func(rank int) {
		op, err := NewOperator(parts[rank], g, bcs, group, mail)
		if err != nil {
			errs[rank] = err
			return
		}
		q := fluid.NewConservedVars(1, g.NumSpecies(), parts[rank].K)
		for k := 0; k < parts[rank].K; k++ {
			q.SetCell(k, g.ConservedCell(st))
		}
		if rank == 0 {
			q.Rho.DataP[0] = math.NaN()
		}
		_, errs[rank] = op.RHS(1.e-7, q)
	})
	for n := 0; n < np; n++ {
		require.Error(t, errs[n])
		assert.True(t, steppers.IsDiverged(errs[n]))
	}
}

func TestTimestepSelector(t *testing.T) {
	var (
		g     = testGas()
		VX, _ = mesh.Uniform1D(0, 0.1, 8)
		parts = mesh.Split(VX, 1, boundary.BC_Wall, boundary.BC_Wall)
		group = utils.NewRankGroup(1)
		mail  = utils.NewMailBox[Halo](1)
		bcs   = boundary.Spec{boundary.BC_Wall: boundary.ZeroGradient{}}
		Y     = []float64{0, 0, 0, 1}
		st    = thermochem.StateAtTP(g, 300, thermochem.OneAtm, Y, []float64{0})
	)
	op, err := NewOperator(parts[0], g, bcs, group, mail)
	require.NoError(t, err)
	q := fluid.NewConservedVars(1, g.NumSpecies(), parts[0].K)
	for k := 0; k < q.K; k++ {
		q.SetCell(k, g.ConservedCell(st))
	}
	// Fixed dt, clipped at the end of the run.
	{
		ctx := &steppers.RunContext{DT: 5.e-8, FinalTime: 2.5e-7}
		dt := op.TimestepSelector(ctx)
		assert.InDelta(t, 5.e-8, dt(0, q), 1.e-20)
		assert.InDelta(t, 1.e-8, dt(2.4e-7, q), 1.e-15)
	}
	// Acoustic CFL limit on a resting uniform state.
	{
		ctx := &steppers.RunContext{DT: 1., CFL: 0.5, ConstantCFL: true, FinalTime: 1.}
		var (
			c        = g.SoundSpeed(300, Y)
			expected = 0.5 * (0.1 / 8.) / c
			dt       = op.TimestepSelector(ctx)(0, q)
		)
		assert.InDelta(t, expected, dt, 1.e-12*expected)
	}
}

func TestNewOperatorValidation(t *testing.T) {
	var (
		g     = testGas()
		VX, _ = mesh.Uniform1D(0, 0.1, 8)
		group = utils.NewRankGroup(1)
		mail  = utils.NewMailBox[Halo](1)
	)
	// A boundary tag without a registered condition is rejected up front.
	{
		parts := mesh.Split(VX, 1, boundary.BC_In, boundary.BC_Out)
		bcs := boundary.Spec{boundary.BC_In: boundary.ZeroGradient{}}
		_, err := NewOperator(parts[0], g, bcs, group, mail)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outflow")
	}
	// Partition faces need no registered condition.
	{
		parts := mesh.Split(VX, 2, boundary.BC_In, boundary.BC_Out)
		bcs := boundary.Spec{boundary.BC_In: boundary.ZeroGradient{}}
		_, err := NewOperator(parts[0], g, bcs, group, mail)
		assert.NoError(t, err)
	}
}
