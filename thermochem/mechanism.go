package thermochem

import "math"

// UniversalGasConstant is in J/(kmol K).
const UniversalGasConstant = 8314.46261815324

/*
Species collects the calorically perfect gas data for one mixture
component: molar mass in kg/kmol, specific heat at constant pressure in
J/(kg K), and the heat of formation in J/kg folded into the internal
energy so reaction heat release needs no separate source term.
*/
type Species struct {
	Name              string
	MolarMass         float64
	Cp                float64
	FormationEnthalpy float64
}

func (s Species) GasConstant() float64 { return UniversalGasConstant / s.MolarMass }
func (s Species) Cv() float64          { return s.Cp - s.GasConstant() }

/*
A Mechanism owns the species table and the net chemical production rates.
ProductionRates fills wdot with mass rates in kg/(m3 s), one per species,
for the given mixture density, temperature and mass fractions.
*/
type Mechanism interface {
	Name() string
	Species() []Species
	ProductionRates(rho, T float64, Y, wdot []float64)
}

/*
singleStepH2 is a model hydrogen mechanism: the single irreversible
reaction 2 H2 + O2 -> 2 H2O with Arrhenius rate

	q = A [H2]^2 [O2] exp(-Ta/T)

over the four species H2, O2, H2O, N2, with N2 inert. It stands in for
the full sanDiego kinetics the way a flame driver exercises one: it
ignites near the ignition temperature and is effectively frozen at
ambient conditions.
*/
type singleStepH2 struct {
	species        []Species
	preExponent    float64 // (m3/kmol)^2 / s
	activationTemp float64 // K
	iH2, iO2, iH2O int
}

func SingleStepH2() Mechanism {
	return &singleStepH2{
		// Molar masses are atomically consistent (W_H2O = W_H2 + W_O2/2)
		// so the reaction conserves mass to round off.
		species: []Species{
			{Name: "H2", MolarMass: 2.01588, Cp: 14300.},
			{Name: "O2", MolarMass: 31.99880, Cp: 918.},
			{Name: "H2O", MolarMass: 18.01528, Cp: 1996., FormationEnthalpy: -1.3423e7},
			{Name: "N2", MolarMass: 28.01340, Cp: 1040.},
		},
		preExponent:    3.5e10,
		activationTemp: 8000.,
		iH2:            0,
		iO2:            1,
		iH2O:           2,
	}
}

func (m *singleStepH2) Name() string       { return "singleStepH2" }
func (m *singleStepH2) Species() []Species { return m.species }

func (m *singleStepH2) ProductionRates(rho, T float64, Y, wdot []float64) {
	for i := range wdot {
		wdot[i] = 0.
	}
	if T <= 0 || rho <= 0 {
		return
	}
	var (
		cH2 = rho * Y[m.iH2] / m.species[m.iH2].MolarMass // kmol/m3
		cO2 = rho * Y[m.iO2] / m.species[m.iO2].MolarMass
	)
	if cH2 <= 0 || cO2 <= 0 {
		return
	}
	q := m.preExponent * cH2 * cH2 * cO2 * math.Exp(-m.activationTemp/T)
	wdot[m.iH2] = -2. * m.species[m.iH2].MolarMass * q
	wdot[m.iO2] = -m.species[m.iO2].MolarMass * q
	wdot[m.iH2O] = 2. * m.species[m.iH2O].MolarMass * q
}
