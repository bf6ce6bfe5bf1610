package viz

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/notargets/goflame/fluid"
	"github.com/notargets/goflame/mesh"
	"github.com/notargets/goflame/thermochem"
)

/*
CellFields is the cell centered view of a rank's state written to a
visualization file: primitive flow quantities plus per species mass
fractions and chemical production rates.
*/
type CellFields struct {
	Density, Velocity     []float64
	Pressure, Temperature []float64
	SpeciesNames          []string
	MassFractions         [][]float64
	ProductionRates       [][]float64
}

// FieldsOf derives the visualization fields from one rank's conserved
// state.
func FieldsOf(gas *thermochem.GasMixture, q *fluid.ConservedVars) (f CellFields) {
	var (
		K   = q.K
		nSp = q.NSpecies
	)
	f = CellFields{
		Density:         make([]float64, K),
		Velocity:        make([]float64, K),
		Pressure:        make([]float64, K),
		Temperature:     make([]float64, K),
		SpeciesNames:    gas.SpeciesNames(),
		MassFractions:   make([][]float64, nSp),
		ProductionRates: make([][]float64, nSp),
	}
	for i := 0; i < nSp; i++ {
		f.MassFractions[i] = make([]float64, K)
		f.ProductionRates[i] = make([]float64, K)
	}
	var (
		Y    = make([]float64, nSp)
		wdot = make([]float64, nSp)
	)
	for k := 0; k < K; k++ {
		var (
			rho = q.Rho.DataP[k]
			vel = q.RhoU[0].DataP[k] / rho
		)
		for i := 0; i < nSp; i++ {
			Y[i] = q.RhoY[i].DataP[k] / rho
		}
		eInt := q.RhoE.DataP[k]/rho - 0.5*vel*vel
		T := gas.Temperature(eInt, Y)
		gas.ProductionRates(rho, T, Y, wdot)
		f.Density[k] = rho
		f.Velocity[k] = vel
		f.Pressure[k] = gas.Pressure(rho, T, Y)
		f.Temperature[k] = T
		for i := 0; i < nSp; i++ {
			f.MassFractions[i][k] = Y[i]
			f.ProductionRates[i][k] = wdot[i]
		}
	}
	return
}

// FileName is the per rank visualization file name, {case}-{step:06d}-{rank:04d}.vtk.
func FileName(casename string, step, rank int) string {
	return fmt.Sprintf("%s-%06d-%04d.vtk", casename, step, rank)
}

/*
WriteVTK writes the rank's slab as a legacy ASCII VTK rectilinear grid,
coordinates at the K+1 cell faces and all quantities as CELL_DATA.
*/
func WriteVTK(w io.Writer, title string, x []float64, f CellFields) error {
	var (
		bw = bufio.NewWriter(w)
		K  = len(x) - 1
	)
	fmt.Fprintf(bw, "# vtk DataFile Version 3.0\n%s\nASCII\nDATASET RECTILINEAR_GRID\n", title)
	fmt.Fprintf(bw, "DIMENSIONS %d 1 1\n", K+1)
	fmt.Fprintf(bw, "X_COORDINATES %d double\n", K+1)
	writeRow(bw, x)
	fmt.Fprintf(bw, "Y_COORDINATES 1 double\n")
	writeRow(bw, []float64{0})
	fmt.Fprintf(bw, "Z_COORDINATES 1 double\n")
	writeRow(bw, []float64{0})
	fmt.Fprintf(bw, "CELL_DATA %d\n", K)
	writeScalars(bw, "density", f.Density)
	writeScalars(bw, "velocity", f.Velocity)
	writeScalars(bw, "pressure", f.Pressure)
	writeScalars(bw, "temperature", f.Temperature)
	for i, name := range f.SpeciesNames {
		writeScalars(bw, "Y_"+name, f.MassFractions[i])
	}
	for i, name := range f.SpeciesNames {
		writeScalars(bw, "wdot_"+name, f.ProductionRates[i])
	}
	return bw.Flush()
}

func writeScalars(bw *bufio.Writer, name string, vals []float64) {
	fmt.Fprintf(bw, "SCALARS %s double 1\nLOOKUP_TABLE default\n", name)
	writeRow(bw, vals)
}

func writeRow(bw *bufio.Writer, vals []float64) {
	for i, v := range vals {
		if i > 0 {
			bw.WriteByte(' ')
		}
		fmt.Fprintf(bw, "%.9e", v)
	}
	bw.WriteByte('\n')
}

// WriteVTKFile writes one rank's slab to dir under the standard name.
func WriteVTKFile(dir, casename string, step, rank int, t float64,
	part *mesh.Partition, gas *thermochem.GasMixture, q *fluid.ConservedVars) (err error) {
	var (
		path  = filepath.Join(dir, FileName(casename, step, rank))
		title = fmt.Sprintf("%s step %d time %.9e", casename, step, t)
		fh    *os.File
	)
	if fh, err = os.Create(path); err != nil {
		return fmt.Errorf("creating visualization file %s: %w", path, err)
	}
	defer fh.Close()
	if err = WriteVTK(fh, title, part.VX, FieldsOf(gas, q)); err != nil {
		return fmt.Errorf("writing visualization file %s: %w", path, err)
	}
	return
}
