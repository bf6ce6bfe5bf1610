package steppers

import (
	"errors"
	"fmt"
	"math"

	"github.com/notargets/goflame/fluid"
)

// EmergencyStepMarker tags the diagnostic checkpoint written when the
// state has gone non-finite, sorting it after every regular step index.
const EmergencyStepMarker = 999999999

/*
The driver is generic over its collaborators:

	RHSFunc        evaluates the spatial operator plus sources at (t, q),
	               or fails with DivergedError when q is unusable
	TimestepFunc   selects the next dt, already clipped to the final time
	CheckpointFunc observes each completed step and writes outputs on its
	               own cadence
*/
type RHSFunc func(t float64, q *fluid.ConservedVars) (*fluid.ConservedVars, error)
type TimestepFunc func(t float64, q *fluid.ConservedVars) (dt float64)
type CheckpointFunc func(step int, t, dt float64, q *fluid.ConservedVars) error

// RunContext carries the loop state of one run. Step counts continue
// across restarts, so Step enters holding the restart step index.
type RunContext struct {
	Time        float64
	FinalTime   float64
	DT          float64
	CFL         float64
	ConstantCFL bool
	Step        int
	MaxSteps    int // zero means no cap
}

// DivergedError reports non-finite values in the fluid state. Every rank
// returns it together, after the divergence or-reduction.
type DivergedError struct {
	Time float64
}

func (e *DivergedError) Error() string {
	return fmt.Sprintf("non-finite values detected in simulation at t = %v", e.Time)
}

// AbnormalExitError reports a run that stopped short of its final time.
type AbnormalExitError struct {
	Time, FinalTime float64
	Cause           error
}

func (e *AbnormalExitError) Error() string {
	msg := fmt.Sprintf("simulation exited abnormally at t = %v of %v", e.Time, e.FinalTime)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AbnormalExitError) Unwrap() error { return e.Cause }

/*
ClipToFinal shortens dt so the step lands exactly on finalTime, absorbing
float dust so a vanishing sliver step is never taken at the end.
*/
func ClipToFinal(t, dt, finalTime float64) float64 {
	if t+dt >= finalTime*(1.-1.e-12) {
		dt = finalTime - t
	}
	return dt
}

/*
Advance runs the step loop from the RunContext's current time and step:

	dt     = getTimestep(t, q)
	q, err = integrator.Step(t, dt, q, rhs)
	t, step = t + dt, step + 1
	checkpoint(step, t, dt, q)

until FinalTime or the step cap. A DivergedError from the RHS aborts the
loop after forcing a diagnostic checkpoint at EmergencyStepMarker. When
the loop ends, whether cleanly or by divergence or the step cap, the
checkpoint callback is invoked one final, unconditional time, then an
AbnormalExitError (wrapping the cause, if any) is returned when the run
stopped short of FinalTime. A failing checkpoint aborts immediately.
*/
func Advance(ctx *RunContext, q *fluid.ConservedVars, rhs RHSFunc, integrator Integrator,
	getTimestep TimestepFunc, checkpoint CheckpointFunc) (qOut *fluid.ConservedVars, err error) {
	var (
		t0    = ctx.Time
		dt    float64
		cause error
	)
	if ctx.MaxSteps == 0 {
		ctx.MaxSteps = math.MaxInt
	}
	if getTimestep == nil {
		getTimestep = func(t float64, q *fluid.ConservedVars) float64 {
			return ClipToFinal(t, ctx.DT, ctx.FinalTime)
		}
	}
	if checkpoint == nil {
		checkpoint = func(step int, t, dt float64, q *fluid.ConservedVars) error { return nil }
	}
	qOut = q
	for ctx.Time < ctx.FinalTime && ctx.Step < ctx.MaxSteps {
		dt = getTimestep(ctx.Time, qOut)
		qNew, rhsErr := integrator.Step(ctx.Time, dt, qOut, rhs)
		if rhsErr != nil {
			if !IsDiverged(rhsErr) {
				return qOut, rhsErr
			}
			// Dump the bad state for post-mortem, then fall through to the
			// final checkpoint and the abnormal exit.
			if cpErr := checkpoint(EmergencyStepMarker, ctx.Time, dt, qOut); cpErr != nil {
				return qOut, cpErr
			}
			cause = rhsErr
			break
		}
		qOut = qNew
		ctx.Step++
		ctx.Time += dt
		if cpErr := checkpoint(ctx.Step, ctx.Time, dt, qOut); cpErr != nil {
			return qOut, cpErr
		}
	}
	cpErr := checkpoint(ctx.Step, ctx.Time, ctx.Time-t0, qOut)
	if ctx.Time < ctx.FinalTime {
		return qOut, &AbnormalExitError{Time: ctx.Time, FinalTime: ctx.FinalTime, Cause: cause}
	}
	if cpErr != nil {
		return qOut, cpErr
	}
	return qOut, nil
}

// IsDiverged reports whether err is, or wraps, a DivergedError.
func IsDiverged(err error) bool {
	var de *DivergedError
	return errors.As(err, &de)
}
