package thermochem

import "fmt"

// OneAtm is standard atmospheric pressure in Pa.
const OneAtm = 101325.

/*
MixtureState is a primitive description of a uniform gas state, the unit
of exchange between the mixture setup, boundary prescriptions and the
flame initializer.
*/
type MixtureState struct {
	Temperature   float64
	Pressure      float64
	Density       float64
	MassFractions []float64
	Velocity      []float64
}

func StateAtTP(g *GasMixture, T, P float64, Y, velocity []float64) MixtureState {
	return MixtureState{
		Temperature:   T,
		Pressure:      P,
		Density:       g.Density(T, P, Y),
		MassFractions: Y,
		Velocity:      velocity,
	}
}

/*
Unburned composes the premixed fuel/air state from the equivalence ratio,
the oxidizer fraction of the dilutent/oxidizer stream, and the molar
fuel/oxidizer stoichiometric ratio:

	x_fuel = (oxDiRatio equivRatio) / (stoichRatio + oxDiRatio equivRatio)
	x_ox   = stoichRatio x_fuel / equivRatio
	x_di   = (1 - oxDiRatio) x_ox / oxDiRatio

The mechanism must carry H2, O2 and N2.
*/
func Unburned(g *GasMixture, T, P, equivRatio, oxDiRatio, stoichRatio float64, dim int) (st MixtureState, err error) {
	var iFu, iOx, iDi int
	if iFu, err = g.SpeciesIndex("H2"); err != nil {
		return
	}
	if iOx, err = g.SpeciesIndex("O2"); err != nil {
		return
	}
	if iDi, err = g.SpeciesIndex("N2"); err != nil {
		return
	}
	x := make([]float64, g.NumSpecies())
	x[iFu] = (oxDiRatio * equivRatio) / (stoichRatio + oxDiRatio*equivRatio)
	x[iOx] = stoichRatio * x[iFu] / equivRatio
	x[iDi] = (1. - oxDiRatio) * x[iOx] / oxDiRatio
	st = StateAtTP(g, T, P, g.MassFromMole(x), make([]float64, dim))
	return
}

/*
Burned drives the unburned composition to complete combustion of the
deficient reactant at fixed temperature and pressure, the equilibrium a
cold hydrogen/air mixture relaxes to. The ignition temperature enters
later, when the inflow state is evaluated from the burned composition.
*/
func Burned(g *GasMixture, unburned MixtureState) (st MixtureState, err error) {
	var iFu, iOx, iPr int
	if iFu, err = g.SpeciesIndex("H2"); err != nil {
		return
	}
	if iOx, err = g.SpeciesIndex("O2"); err != nil {
		return
	}
	if iPr, err = g.SpeciesIndex("H2O"); err != nil {
		return
	}
	x := g.MoleFromMass(unburned.MassFractions)
	burn := x[iFu] / 2.
	if x[iOx] < burn {
		burn = x[iOx]
	}
	if burn <= 0 {
		err = fmt.Errorf("unburned mixture has no fuel/oxidizer pair to burn")
		return
	}
	x[iFu] -= 2. * burn
	x[iOx] -= burn
	x[iPr] += 2. * burn
	var total float64
	for _, v := range x {
		total += v
	}
	for i := range x {
		x[i] /= total
	}
	st = StateAtTP(g, unburned.Temperature, unburned.Pressure,
		g.MassFromMole(x), make([]float64, len(unburned.Velocity)))
	return
}

/*
ConservedCell converts a primitive mixture state to the per cell conserved
vector [rho, rhoU..., rhoE, rhoY...] used by the flow operator and the
boundary ghost states.
*/
func (g *GasMixture) ConservedCell(st MixtureState) (qc []float64) {
	var (
		dim = len(st.Velocity)
		rho = st.Density
		ke  float64
	)
	qc = make([]float64, 2+dim+g.NumSpecies())
	qc[0] = rho
	for d, u := range st.Velocity {
		qc[1+d] = rho * u
		ke += 0.5 * u * u
	}
	qc[1+dim] = rho * (g.InternalEnergy(st.Temperature, st.MassFractions) + ke)
	for i, y := range st.MassFractions {
		qc[2+dim+i] = rho * y
	}
	return
}
