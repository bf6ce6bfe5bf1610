/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/notargets/goflame/boundary"
	"github.com/notargets/goflame/fluid"
	"github.com/notargets/goflame/mesh"
	"github.com/notargets/goflame/restart"
	"github.com/notargets/goflame/thermochem"
	"github.com/notargets/goflame/viz"
	"github.com/spf13/cobra"
)

// setupCmd represents the setup command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the step 0 snapshot set for a flame case",
	Long: `
Builds the uniform 1D mesh, splits it over the requested number of ranks,
lays down the smoothed flame discontinuity (hot burned gas on the left,
fresh reactants on the right) and writes the step 0 restart snapshots and
visualization files the run command starts from.

goflame setup -c flame1d --np 2 -k 200`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sp := &SetupParams{}
		sp.Casename, _ = cmd.Flags().GetString("casename")
		sp.OutputDir, _ = cmd.Flags().GetString("outputDir")
		sp.NP, _ = cmd.Flags().GetInt("np")
		fc := DefaultFlameCase()
		fc.K, _ = cmd.Flags().GetInt("k")
		fc.XMax, _ = cmd.Flags().GetFloat64("xMax")
		fc.EquivRatio, _ = cmd.Flags().GetFloat64("phi")
		return RunSetup(sp, fc)
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
	fc := DefaultFlameCase()
	setupCmd.Flags().StringP("casename", "c", "flame1d", "case name keying the snapshot file set")
	setupCmd.Flags().StringP("outputDir", "o", ".", "directory receiving the snapshot files")
	setupCmd.Flags().Int("np", 1, "number of ranks (mesh partitions)")
	setupCmd.Flags().IntP("k", "k", fc.K, "number of cells in the mesh")
	setupCmd.Flags().Float64("xMax", fc.XMax, "domain length in meters")
	setupCmd.Flags().Float64("phi", fc.EquivRatio, "equivalence ratio of the premixed charge")
}

type SetupParams struct {
	Casename  string
	OutputDir string
	NP        int
}

/*
FlameCase collects the physical parameters of the premixed hydrogen/air
flame: the domain and discretization, the flame sheet location and
thickness, and the fresh mixture composition. The same case definition
feeds the initial profile, the boundary prescriptions and the live chart
scaling, so setup and run always agree on the states at the domain ends.
*/
type FlameCase struct {
	XMin, XMax           float64
	K                    int
	FlameLoc, FlameSigma float64
	TUnburned, TIgnition float64
	EquivRatio           float64 // fuel/oxidizer ratio relative to stoichiometric
	OxDiRatio            float64 // oxidizer mole fraction of the air stream
	StoichRatio          float64 // moles oxidizer per mole fuel at stoichiometry
	Pressure             float64
}

func DefaultFlameCase() FlameCase {
	return FlameCase{
		XMin:        0.,
		XMax:        0.1,
		K:           200,
		FlameLoc:    0.05,
		FlameSigma:  0.01,
		TUnburned:   300.,
		TIgnition:   1500.,
		EquivRatio:  1.0,
		OxDiRatio:   0.21,
		StoichRatio: 0.5,
		Pressure:    thermochem.OneAtm,
	}
}

// FlameGas builds the four species hydrogen/air mixture shared by setup and run.
func FlameGas() *thermochem.GasMixture {
	mech := thermochem.SingleStepH2()
	return thermochem.NewGasMixture(mech, thermochem.DefaultTransport(len(mech.Species())))
}

// Mixtures returns the fresh charge and its complete combustion products,
// both at the unburned temperature.
func (fc FlameCase) Mixtures(gas *thermochem.GasMixture) (unburned, burned thermochem.MixtureState, err error) {
	if unburned, err = thermochem.Unburned(gas, fc.TUnburned, fc.Pressure,
		fc.EquivRatio, fc.OxDiRatio, fc.StoichRatio, 1); err != nil {
		return
	}
	burned, err = thermochem.Burned(gas, unburned)
	return
}

/*
Boundary prescribes hot burned products entering on the left and cold
fresh reactants leaving on the right, the states the interior flame
profile relaxes against.
*/
func (fc FlameCase) Boundary(gas *thermochem.GasMixture) (bcs boundary.Spec, err error) {
	var unburned, burned thermochem.MixtureState
	if unburned, burned, err = fc.Mixtures(gas); err != nil {
		return
	}
	bcs = boundary.Spec{
		boundary.BC_In: boundary.NewPrescribed(gas.ConservedCell(
			thermochem.StateAtTP(gas, fc.TIgnition, fc.Pressure, burned.MassFractions, []float64{0}))),
		boundary.BC_Out: boundary.NewPrescribed(gas.ConservedCell(
			thermochem.StateAtTP(gas, fc.TUnburned, fc.Pressure, unburned.MassFractions, []float64{0}))),
		boundary.BC_Wall: boundary.ZeroGradient{},
	}
	return
}

/*
InitialState lays the flame discontinuity onto one rank's partition:
burned products at the ignition temperature left of the flame location,
fresh reactants right of it, blended by a tanh of width FlameSigma.
*/
func (fc FlameCase) InitialState(gas *thermochem.GasMixture, part *mesh.Partition) (q *fluid.ConservedVars, err error) {
	var unburned, burned thermochem.MixtureState
	if unburned, burned, err = fc.Mixtures(gas); err != nil {
		return
	}
	var (
		nSp = gas.NumSpecies()
		X   = part.Centers()
	)
	q = fluid.NewConservedVars(1, nSp, part.K)
	for k := 0; k < part.K; k++ {
		var (
			s = 0.5 * (1. + math.Tanh((fc.FlameLoc-X.DataP[k])/fc.FlameSigma))
			Y = make([]float64, nSp)
			T = fc.TUnburned + s*(fc.TIgnition-fc.TUnburned)
		)
		for i := range Y {
			Y[i] = s*burned.MassFractions[i] + (1.-s)*unburned.MassFractions[i]
		}
		q.SetCell(k, gas.ConservedCell(thermochem.StateAtTP(gas, T, fc.Pressure, Y, []float64{0})))
	}
	return
}

// RunSetup writes the step 0 snapshot and visualization file for every rank.
func RunSetup(sp *SetupParams, fc FlameCase) (err error) {
	var (
		gas   = FlameGas()
		VX, _ = mesh.Uniform1D(fc.XMin, fc.XMax, fc.K)
		parts = mesh.Split(VX, sp.NP, boundary.BC_In, boundary.BC_Out)
	)
	for _, part := range parts {
		var q *fluid.ConservedVars
		if q, err = fc.InitialState(gas, part); err != nil {
			return
		}
		rec := restart.NewRecord(part, q, 0, 0)
		path := filepath.Join(sp.OutputDir, restart.SnapshotName(sp.Casename, 0, part.Rank))
		if err = restart.Write(path, rec); err != nil {
			return
		}
		if err = viz.WriteVTKFile(sp.OutputDir, sp.Casename, 0, part.Rank, 0, part, gas, q); err != nil {
			return
		}
	}
	fmt.Printf("%8s\t= casename\n", sp.Casename)
	fmt.Printf("%8d\t\t= np\n", sp.NP)
	fmt.Printf("%8d\t\t= k (cells)\n", fc.K)
	fmt.Printf("%8.4f\t= xMax\n", fc.XMax)
	fmt.Printf("%8.2f\t= phi\n", fc.EquivRatio)
	fmt.Printf("wrote %d step 0 snapshots, first is %s\n",
		sp.NP, restart.SnapshotName(sp.Casename, 0, 0))
	return
}
