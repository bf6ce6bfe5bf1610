package fluid

import (
	"fmt"
	"math"

	"github.com/notargets/goflame/utils"
)

/*
ConservedVars holds the conserved fields of a reacting gas mixture on one
rank's cells as 1 x K cell average matrices:

	Rho   - mixture mass density
	RhoU  - momentum density, one matrix per space dimension
	RhoE  - total energy density, including chemical formation enthalpy
	RhoY  - species partial densities, one matrix per species

The canonical field order everywhere (flattening, fluxes, ghost states) is
[Rho, RhoU..., RhoE, RhoY...].
*/
type ConservedVars struct {
	Dim, NSpecies int
	K             int
	Rho           utils.Matrix
	RhoU          []utils.Matrix
	RhoE          utils.Matrix
	RhoY          []utils.Matrix
}

func NewConservedVars(dim, nSpecies, K int) (q *ConservedVars) {
	q = &ConservedVars{
		Dim:      dim,
		NSpecies: nSpecies,
		K:        K,
		Rho:      utils.NewMatrix(1, K),
		RhoU:     make([]utils.Matrix, dim),
		RhoE:     utils.NewMatrix(1, K),
		RhoY:     make([]utils.Matrix, nSpecies),
	}
	for i := 0; i < dim; i++ {
		q.RhoU[i] = utils.NewMatrix(1, K)
	}
	for i := 0; i < nSpecies; i++ {
		q.RhoY[i] = utils.NewMatrix(1, K)
	}
	return
}

func (q *ConservedVars) NFields() int { return 2 + q.Dim + q.NSpecies }

// Fields returns the conserved matrices in canonical order. The matrices
// share storage with the receiver.
func (q *ConservedVars) Fields() (fields []utils.Matrix) {
	fields = make([]utils.Matrix, 0, q.NFields())
	fields = append(fields, q.Rho)
	fields = append(fields, q.RhoU...)
	fields = append(fields, q.RhoE)
	fields = append(fields, q.RhoY...)
	return
}

func (q *ConservedVars) Copy() (R *ConservedVars) {
	R = NewConservedVars(q.Dim, q.NSpecies, q.K)
	dst, src := R.Fields(), q.Fields()
	for i := range src {
		copy(dst[i].DataP, src[i].DataP)
	}
	return
}

// Cell gathers cell k's conserved values into out, which must have NFields
// entries.
func (q *ConservedVars) Cell(k int, out []float64) {
	for i, f := range q.Fields() {
		out[i] = f.DataP[k]
	}
}

func (q *ConservedVars) SetCell(k int, vals []float64) {
	for i, f := range q.Fields() {
		f.DataP[k] = vals[i]
	}
}

// Flatten serializes the state into one slice in canonical field order,
// each field contributing its K cell values contiguously.
func (q *ConservedVars) Flatten() (data []float64) {
	data = make([]float64, 0, q.NFields()*q.K)
	for _, f := range q.Fields() {
		data = append(data, f.DataP...)
	}
	return
}

func Unflatten(dim, nSpecies, K int, data []float64) (q *ConservedVars, err error) {
	nFields := 2 + dim + nSpecies
	if len(data) != nFields*K {
		err = fmt.Errorf("state length %d does not match %d fields x %d cells",
			len(data), nFields, K)
		return
	}
	q = NewConservedVars(dim, nSpecies, K)
	for i, f := range q.Fields() {
		copy(f.DataP, data[i*K:(i+1)*K])
	}
	return
}

// HasNonFinite reports whether any conserved value is NaN or infinite.
func (q *ConservedVars) HasNonFinite() bool {
	for _, f := range q.Fields() {
		for _, val := range f.DataP {
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return true
			}
		}
	}
	return false
}
