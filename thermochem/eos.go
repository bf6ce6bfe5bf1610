package thermochem

import (
	"fmt"
	"math"
)

/*
SimpleTransport holds constant transport coefficients: dynamic viscosity
in Pa s, thermal conductivity in W/(m K), and one mass diffusivity per
species in m2/s.
*/
type SimpleTransport struct {
	Viscosity           float64
	ThermalConductivity float64
	SpeciesDiffusivity  []float64
}

func DefaultTransport(nSpecies int) SimpleTransport {
	var (
		mu    = 1.e-5
		kappa = mu * 0.08988 / 0.75 // H2 mixture, Pr = 0.75
		d     = make([]float64, nSpecies)
	)
	for i := range d {
		d[i] = 1.e-5
	}
	return SimpleTransport{
		Viscosity:           mu,
		ThermalConductivity: kappa,
		SpeciesDiffusivity:  d,
	}
}

/*
GasMixture is the equation of state for a multicomponent calorically
perfect ideal gas. Mixture properties are mass fraction weighted over the
mechanism's species table. Because each species' internal energy carries
its formation enthalpy, temperature follows from internal energy in
closed form and reaction heat release emerges from composition change
without an energy source term.
*/
type GasMixture struct {
	Mech      Mechanism
	Transport SimpleTransport
	species   []Species
	byName    map[string]int
}

func NewGasMixture(mech Mechanism, transport SimpleTransport) (g *GasMixture) {
	g = &GasMixture{
		Mech:      mech,
		Transport: transport,
		species:   mech.Species(),
		byName:    make(map[string]int),
	}
	for i, s := range g.species {
		g.byName[s.Name] = i
	}
	return
}

func (g *GasMixture) NumSpecies() int    { return len(g.species) }
func (g *GasMixture) Species() []Species { return g.species }

func (g *GasMixture) SpeciesNames() (names []string) {
	names = make([]string, len(g.species))
	for i, s := range g.species {
		names[i] = s.Name
	}
	return
}

func (g *GasMixture) SpeciesIndex(name string) (i int, err error) {
	var ok bool
	if i, ok = g.byName[name]; !ok {
		err = fmt.Errorf("species %q not in mechanism %s", name, g.Mech.Name())
	}
	return
}

func (g *GasMixture) GasConstant(Y []float64) (R float64) {
	for i, s := range g.species {
		R += Y[i] * s.GasConstant()
	}
	return
}

func (g *GasMixture) Cp(Y []float64) (cp float64) {
	for i, s := range g.species {
		cp += Y[i] * s.Cp
	}
	return
}

func (g *GasMixture) Cv(Y []float64) (cv float64) {
	for i, s := range g.species {
		cv += Y[i] * s.Cv()
	}
	return
}

func (g *GasMixture) Gamma(Y []float64) float64 {
	return g.Cp(Y) / g.Cv(Y)
}

func (g *GasMixture) FormationEnthalpy(Y []float64) (hf float64) {
	for i, s := range g.species {
		hf += Y[i] * s.FormationEnthalpy
	}
	return
}

// InternalEnergy is the specific internal energy in J/kg at temperature T,
// including formation enthalpy.
func (g *GasMixture) InternalEnergy(T float64, Y []float64) float64 {
	return g.Cv(Y)*T + g.FormationEnthalpy(Y)
}

// Temperature inverts InternalEnergy. No iteration is needed for a
// calorically perfect mixture.
func (g *GasMixture) Temperature(eInternal float64, Y []float64) float64 {
	return (eInternal - g.FormationEnthalpy(Y)) / g.Cv(Y)
}

func (g *GasMixture) Pressure(rho, T float64, Y []float64) float64 {
	return rho * g.GasConstant(Y) * T
}

func (g *GasMixture) Density(T, P float64, Y []float64) float64 {
	return P / (g.GasConstant(Y) * T)
}

func (g *GasMixture) SoundSpeed(T float64, Y []float64) float64 {
	return math.Sqrt(g.Gamma(Y) * g.GasConstant(Y) * T)
}

func (g *GasMixture) ProductionRates(rho, T float64, Y, wdot []float64) {
	g.Mech.ProductionRates(rho, T, Y, wdot)
}

// MassFromMole converts mole fractions to mass fractions.
func (g *GasMixture) MassFromMole(x []float64) (y []float64) {
	var (
		wMean float64
	)
	y = make([]float64, len(x))
	for i, s := range g.species {
		wMean += x[i] * s.MolarMass
	}
	for i, s := range g.species {
		y[i] = x[i] * s.MolarMass / wMean
	}
	return
}

// MoleFromMass converts mass fractions to mole fractions.
func (g *GasMixture) MoleFromMass(y []float64) (x []float64) {
	var (
		molesPerKg float64
	)
	x = make([]float64, len(y))
	for i, s := range g.species {
		x[i] = y[i] / s.MolarMass
		molesPerKg += x[i]
	}
	for i := range x {
		x[i] /= molesPerKg
	}
	return
}
