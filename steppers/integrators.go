package steppers

import (
	"fmt"
	"strings"

	"github.com/notargets/goflame/fluid"
)

// Integrator advances the conserved state by one step of size dt,
// evaluating the supplied RHS as many times as the scheme requires.
type Integrator interface {
	Name() string
	Step(t, dt float64, q *fluid.ConservedVars, rhs RHSFunc) (*fluid.ConservedVars, error)
}

func NewIntegrator(name string) (ti Integrator, err error) {
	switch strings.ToLower(name) {
	case "euler":
		ti = Euler{}
	case "rk4":
		ti = RK4{}
	case "lsrk54":
		ti = lowStorageRK{name: "lsrk54", a: lsrk54A, b: lsrk54B, c: lsrk54C}
	case "lsrk144":
		ti = lowStorageRK{name: "lsrk144", a: lsrk144A, b: lsrk144B, c: lsrk144C}
	default:
		err = fmt.Errorf("unknown time integrator %q", name)
	}
	return
}

// Euler is the first order forward Euler scheme.
type Euler struct{}

func (Euler) Name() string { return "euler" }

func (Euler) Step(t, dt float64, q *fluid.ConservedVars, rhs RHSFunc) (qNew *fluid.ConservedVars, err error) {
	var (
		k *fluid.ConservedVars
	)
	if k, err = rhs(t, q); err != nil {
		return
	}
	qNew = q.Copy()
	addScaled(qNew, dt, k)
	return
}

// RK4 is the classic fourth order Runge-Kutta scheme, four RHS
// evaluations per step.
type RK4 struct{}

func (RK4) Name() string { return "rk4" }

func (RK4) Step(t, dt float64, q *fluid.ConservedVars, rhs RHSFunc) (qNew *fluid.ConservedVars, err error) {
	var (
		k1, k2, k3, k4 *fluid.ConservedVars
	)
	if k1, err = rhs(t, q); err != nil {
		return
	}
	if k2, err = rhs(t+0.5*dt, shifted(q, 0.5*dt, k1)); err != nil {
		return
	}
	if k3, err = rhs(t+0.5*dt, shifted(q, 0.5*dt, k2)); err != nil {
		return
	}
	if k4, err = rhs(t+dt, shifted(q, dt, k3)); err != nil {
		return
	}
	qNew = q.Copy()
	var (
		qF             = qNew.Fields()
		f1, f2, f3, f4 = k1.Fields(), k2.Fields(), k3.Fields(), k4.Fields()
	)
	for i := range qF {
		var (
			qD             = qF[i].DataP
			d1, d2, d3, d4 = f1[i].DataP, f2[i].DataP, f3[i].DataP, f4[i].DataP
		)
		for n := range qD {
			qD[n] += dt / 6. * (d1[n] + 2.*(d2[n]+d3[n]) + d4[n])
		}
	}
	return
}

/*
lowStorageRK implements 2N storage Runge-Kutta schemes in the
Williamson form:

	k = a[i]*k + dt*RHS(t+c[i]*dt, p)
	p = p + b[i]*k

carrying only the state p and one residual register k across stages.
*/
type lowStorageRK struct {
	name    string
	a, b, c []float64
}

func (ls lowStorageRK) Name() string { return ls.name }

func (ls lowStorageRK) Step(t, dt float64, q *fluid.ConservedVars, rhs RHSFunc) (qNew *fluid.ConservedVars, err error) {
	var (
		p    = q.Copy()
		k    = fluid.NewConservedVars(q.Dim, q.NSpecies, q.K)
		rhsQ *fluid.ConservedVars
	)
	for i := range ls.a {
		if rhsQ, err = rhs(t+ls.c[i]*dt, p); err != nil {
			return
		}
		var (
			kF, pF, rF = k.Fields(), p.Fields(), rhsQ.Fields()
			a, b       = ls.a[i], ls.b[i]
		)
		for j := range kF {
			var (
				kD, pD, rD = kF[j].DataP, pF[j].DataP, rF[j].DataP
			)
			for n := range kD {
				kD[n] = a*kD[n] + dt*rD[n]
				pD[n] += b * kD[n]
			}
		}
	}
	qNew = p
	return
}

// shifted returns q + a*k as a new state.
func shifted(q *fluid.ConservedVars, a float64, k *fluid.ConservedVars) (r *fluid.ConservedVars) {
	r = q.Copy()
	addScaled(r, a, k)
	return
}

// addScaled accumulates q += a*k in place.
func addScaled(q *fluid.ConservedVars, a float64, k *fluid.ConservedVars) {
	qF, kF := q.Fields(), k.Fields()
	for i := range qF {
		qD, kD := qF[i].DataP, kF[i].DataP
		for n := range qD {
			qD[n] += a * kD[n]
		}
	}
}

// Carpenter and Kennedy's five stage, fourth order 2N scheme.
var (
	lsrk54A = []float64{
		0.,
		-567301805773. / 1357537059087.,
		-2404267990393. / 2016746695238.,
		-3550918686646. / 2091501179385.,
		-1275806237668. / 842570457699.,
	}
	lsrk54B = []float64{
		1432997174477. / 9575080441755.,
		5161836677717. / 13612068292357.,
		1720146321549. / 2090206949498.,
		3134564353537. / 4481467310338.,
		2277821191437. / 14882151754819.,
	}
	lsrk54C = []float64{
		0.,
		1432997174477. / 9575080441755.,
		2526269341429. / 6820363962896.,
		2006345519317. / 3224310063776.,
		2802321613138. / 2924317926251.,
	}
)

// Niegemann, Diehl and Busch's fourteen stage, fourth order 2N scheme
// with an extended stability region along the imaginary axis.
var (
	lsrk144A = []float64{
		0.,
		-0.7188012108672410,
		-0.7785331173421570,
		-0.0053282796654044,
		-0.8552979934029281,
		-3.9564138245774565,
		-1.5780575380587385,
		-2.0837094552574054,
		-0.7483334182761610,
		-0.7032861106563359,
		0.0013917096117681,
		-0.0932075369637460,
		-0.9514200470875948,
		-7.1151571693922548,
	}
	lsrk144B = []float64{
		0.0367762454319673,
		0.3136296607553959,
		0.1531848691869027,
		0.0030097086818182,
		0.3326293790646110,
		0.2440251405350864,
		0.3718879239592277,
		0.6204126221582444,
		0.1524043173028741,
		0.0760894927419266,
		0.0077604214040978,
		0.0024647284755382,
		0.0780348340049386,
		5.5059777270269628,
	}
	lsrk144C = []float64{
		0.,
		0.0367762454319673,
		0.1249685262725025,
		0.2446177702277698,
		0.2476149531070420,
		0.2969311120382472,
		0.3978149645802642,
		0.5270854589440328,
		0.6981269994175695,
		0.8190890835352128,
		0.8527059887098624,
		0.8604711817462826,
		0.8627060376969976,
		0.8734213127600976,
	}
)
