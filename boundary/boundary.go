package boundary

import "fmt"

type BCFLAG uint8

const (
	BC_None BCFLAG = iota
	BC_In
	BC_Out
	BC_Wall
	BC_Partition // a shared face with a neighbor rank, resolved by halo exchange
)

var BCNameMap = map[string]BCFLAG{
	"inflow":    BC_In,
	"in":        BC_In,
	"out":       BC_Out,
	"outflow":   BC_Out,
	"wall":      BC_Wall,
	"partition": BC_Partition,
}

func (bf BCFLAG) String() string {
	switch bf {
	case BC_In:
		return "inflow"
	case BC_Out:
		return "outflow"
	case BC_Wall:
		return "wall"
	case BC_Partition:
		return "partition"
	}
	return "none"
}

/*
A Condition supplies the ghost cell state outside a domain boundary face.
States are conserved variable vectors in the field order used everywhere:
[rho, rhoU..., rhoE, rhoY...].
*/
type Condition interface {
	Ghost(interior []float64) (ghost []float64)
}

// Prescribed holds the exterior state fixed, the viscous analog of a
// far-field Dirichlet condition.
type Prescribed struct {
	Q []float64
}

func NewPrescribed(q []float64) Prescribed {
	return Prescribed{Q: q}
}

func (p Prescribed) Ghost(interior []float64) (ghost []float64) {
	ghost = p.Q
	return
}

// ZeroGradient reflects the interior state, the "dummy" wall treatment.
type ZeroGradient struct{}

func (z ZeroGradient) Ghost(interior []float64) (ghost []float64) {
	ghost = interior
	return
}

type Spec map[BCFLAG]Condition

func (s Spec) Lookup(bf BCFLAG) (bc Condition, err error) {
	var ok bool
	if bc, ok = s[bf]; !ok {
		err = fmt.Errorf("no boundary condition registered for tag \"%s\"", bf)
	}
	return
}
