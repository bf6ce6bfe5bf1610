package thermochem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testGas() *GasMixture {
	return NewGasMixture(SingleStepH2(), DefaultTransport(4))
}

func TestMoleMassConversion(t *testing.T) {
	g := testGas()
	x := []float64{0.3, 0.15, 0.05, 0.5}
	y := g.MassFromMole(x)
	var sum float64
	for _, v := range y {
		sum += v
	}
	assert.InDelta(t, 1., sum, 1.e-14)
	x2 := g.MoleFromMass(y)
	for i := range x {
		assert.InDelta(t, x[i], x2[i], 1.e-13)
	}
}

func TestEOSInverses(t *testing.T) {
	g := testGas()
	Y := g.MassFromMole([]float64{0.295, 0.148, 0., 0.557})
	{ // Temperature inverts InternalEnergy
		for _, T := range []float64{300., 1000., 1500., 2500.} {
			e := g.InternalEnergy(T, Y)
			assert.InDelta(t, T, g.Temperature(e, Y), 1.e-8)
		}
	}
	{ // Density inverts Pressure
		rho := g.Density(300., OneAtm, Y)
		assert.InDelta(t, OneAtm, g.Pressure(rho, 300., Y), 1.e-6)
	}
	{ // Mixture gamma is bracketed by diatomic and triatomic values
		gamma := g.Gamma(Y)
		assert.Greater(t, gamma, 1.)
		assert.Less(t, gamma, 5./3.)
		assert.Greater(t, g.SoundSpeed(300., Y), 0.)
	}
}

func TestUnburnedMixture(t *testing.T) {
	g := testGas()
	st, err := Unburned(g, 300., OneAtm, 1.0, 0.21, 0.5, 1)
	assert.NoError(t, err)
	assert.Equal(t, 300., st.Temperature)
	assert.Equal(t, OneAtm, st.Pressure)
	assert.Equal(t, []float64{0.}, st.Velocity)

	// Stoichiometric H2/air: x_H2 = 0.21/0.71, x_O2 = x_H2/2, N2 balance
	x := g.MoleFromMass(st.MassFractions)
	assert.InDelta(t, 0.2957746, x[0], 1.e-6)
	assert.InDelta(t, 0.1478873, x[1], 1.e-6)
	assert.InDelta(t, 0., x[2], 1.e-12)
	assert.InDelta(t, 0.5563380, x[3], 1.e-6)

	assert.InDelta(t, 0.02851, st.MassFractions[0], 1.e-4)
	assert.InDelta(t, 0.22628, st.MassFractions[1], 1.e-4)
	assert.InDelta(t, 0.74521, st.MassFractions[3], 1.e-4)

	// Ideal gas density at ambient conditions
	assert.InDelta(t, OneAtm/(g.GasConstant(st.MassFractions)*300.), st.Density, 1.e-12)
	assert.InDelta(t, 0.85, st.Density, 0.01)
}

func TestBurnedMixture(t *testing.T) {
	g := testGas()
	unburned, err := Unburned(g, 300., OneAtm, 1.0, 0.21, 0.5, 1)
	assert.NoError(t, err)
	burned, err := Burned(g, unburned)
	assert.NoError(t, err)

	// Complete combustion at stoichiometry consumes both reactants
	x := g.MoleFromMass(burned.MassFractions)
	assert.InDelta(t, 0., x[0], 1.e-10)
	assert.InDelta(t, 0., x[1], 1.e-10)
	assert.InDelta(t, 0.347107, x[2], 1.e-5)
	assert.InDelta(t, 0.652893, x[3], 1.e-5)

	// Held at the unburned temperature and pressure, like a TP equilibrate
	assert.Equal(t, unburned.Temperature, burned.Temperature)
	assert.Equal(t, unburned.Pressure, burned.Pressure)

	// Water carries the formation enthalpy, so the burned mixture has lower
	// internal energy at the same temperature
	assert.Less(t, g.InternalEnergy(300., burned.MassFractions),
		g.InternalEnergy(300., unburned.MassFractions))
}

func TestProductionRates(t *testing.T) {
	g := testGas()
	unburned, _ := Unburned(g, 300., OneAtm, 1.0, 0.21, 0.5, 1)
	var (
		Y    = unburned.MassFractions
		rho  = unburned.Density
		wdot = make([]float64, 4)
	)
	{ // Frozen at ambient temperature
		g.ProductionRates(rho, 300., Y, wdot)
		for _, w := range wdot {
			assert.Less(t, math.Abs(w), 1.e-5)
		}
	}
	{ // Active at ignition temperature, with H2 consumed and H2O produced
		g.ProductionRates(rho, 1500., Y, wdot)
		assert.Less(t, wdot[0], 0.)
		assert.Less(t, wdot[1], 0.)
		assert.Greater(t, wdot[2], 0.)
		assert.Equal(t, 0., wdot[3])
		assert.Greater(t, math.Abs(wdot[0]), 1.e-3)
		// Mass conservation across the reaction
		var sum float64
		for _, w := range wdot {
			sum += w
		}
		assert.InDelta(t, 0., sum, math.Abs(wdot[2])*1.e-12)
	}
	{ // Exhausted reactants produce nothing
		g.ProductionRates(rho, 1500., []float64{0., 0., 0.347, 0.653}, wdot)
		for _, w := range wdot {
			assert.Equal(t, 0., w)
		}
	}
}

func TestConservedCell(t *testing.T) {
	g := testGas()
	st, _ := Unburned(g, 300., OneAtm, 1.0, 0.21, 0.5, 1)
	st.Velocity = []float64{10.}
	qc := g.ConservedCell(st)
	assert.Equal(t, 7, len(qc))
	assert.Equal(t, st.Density, qc[0])
	assert.InDelta(t, st.Density*10., qc[1], 1.e-12)

	// Species partial densities sum to the mixture density
	var sumRhoY float64
	for _, v := range qc[3:] {
		sumRhoY += v
	}
	assert.InDelta(t, st.Density, sumRhoY, 1.e-12)

	// Total energy is internal plus kinetic
	wantE := st.Density * (g.InternalEnergy(300., st.MassFractions) + 0.5*10.*10.)
	assert.InDelta(t, wantE, qc[2], math.Abs(wantE)*1.e-12)
}

func TestSpeciesIndex(t *testing.T) {
	g := testGas()
	i, err := g.SpeciesIndex("H2O")
	assert.NoError(t, err)
	assert.Equal(t, 2, i)
	_, err = g.SpeciesIndex("C2H4")
	assert.Error(t, err)
	assert.Equal(t, []string{"H2", "O2", "H2O", "N2"}, g.SpeciesNames())
}
