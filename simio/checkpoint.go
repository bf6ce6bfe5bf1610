package simio

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/notargets/goflame/fluid"
	"github.com/notargets/goflame/mesh"
	"github.com/notargets/goflame/restart"
	"github.com/notargets/goflame/runlog"
	"github.com/notargets/goflame/steppers"
	"github.com/notargets/goflame/thermochem"
	"github.com/notargets/goflame/utils"
	"github.com/notargets/goflame/viz"
)

// CheckStep reports whether step falls on the given output cadence.
func CheckStep(step, interval int) bool {
	if interval <= 0 {
		return false
	}
	return step%interval == 0
}

/*
Checkpointer is the per rank output sink the step loop drives. Every
invocation reduces the pressure and temperature extrema over the group,
so it is collective and must be entered by all ranks together; rank 0
then prints the status line, ticks the run log and feeds the live chart.
Visualization files follow the NViz cadence, restart snapshots the
NRestart cadence.

A diagnostic call at steppers.EmergencyStepMarker forces a
visualization dump and never writes a restart snapshot, keeping the
last good snapshot intact.
*/
type Checkpointer struct {
	Casename  string
	OutputDir string
	NViz      int
	NRestart  int
	Part      *mesh.Partition
	Gas       *thermochem.GasMixture
	Group     *utils.RankGroup
	Log       *runlog.Logger // rank 0 only, nil disables
	Chart     *viz.LiveChart // rank 0 only, nil disables

	lastRestartStep int
	startWall       time.Time
}

/*
NewCheckpointer readies outputs for a run resumed at restartStep. The
restart snapshot for that step already exists on disk, so the cadence
never rewrites it, which also keeps the closing checkpoint of a finished
run from writing its final snapshot twice.
*/
func NewCheckpointer(casename, outputDir string, nViz, nRestart, restartStep int,
	part *mesh.Partition, gas *thermochem.GasMixture, group *utils.RankGroup,
	log *runlog.Logger, chart *viz.LiveChart) *Checkpointer {
	return &Checkpointer{
		Casename:        casename,
		OutputDir:       outputDir,
		NViz:            nViz,
		NRestart:        nRestart,
		Part:            part,
		Gas:             gas,
		Group:           group,
		Log:             log,
		Chart:           chart,
		lastRestartStep: restartStep,
		startWall:       time.Now(),
	}
}

func minMax(vals []float64) (mn, mx float64) {
	mn, mx = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	return
}

func (cp *Checkpointer) Checkpoint(step int, t, dt float64, q *fluid.ConservedVars) (err error) {
	var (
		rank      = cp.Part.Rank
		emergency = step == steppers.EmergencyStepMarker
		f         = viz.FieldsOf(cp.Gas, q)
	)
	minP, maxP := minMax(f.Pressure)
	minT, maxT := minMax(f.Temperature)
	minP = cp.Group.AllReduceMin(rank, minP)
	maxP = cp.Group.AllReduceMax(rank, maxP)
	minT = cp.Group.AllReduceMin(rank, minT)
	maxT = cp.Group.AllReduceMax(rank, maxT)
	if rank == 0 {
		fmt.Printf("step %8d  t %12.6e  dt %12.6e  P [%11.5e, %11.5e]  T [%9.3f, %9.3f]\n",
			step, t, dt, minP, maxP, minT, maxT)
		err = cp.Log.Tick(runlog.Sample{
			Step:           step,
			Time:           t,
			DT:             dt,
			WallTime:       time.Since(cp.startWall).Seconds(),
			MinPressure:    minP,
			MaxPressure:    maxP,
			MinTemperature: minT,
			MaxTemperature: maxT,
		})
	}
	if err == nil && (emergency || CheckStep(step, cp.NViz)) {
		if err = viz.WriteVTKFile(cp.OutputDir, cp.Casename, step, rank, t,
			cp.Part, cp.Gas, q); err == nil {
			cp.Chart.Update(cp.Part.Centers().DataP, f)
		}
	}
	if err == nil && !emergency && CheckStep(step, cp.NRestart) && step != cp.lastRestartStep {
		rec := restart.NewRecord(cp.Part, q, t, step)
		path := filepath.Join(cp.OutputDir, restart.SnapshotName(cp.Casename, step, rank))
		if err = restart.Write(path, rec); err == nil {
			cp.lastRestartStep = step
		}
	}
	// One more or-reduction so a failure on any rank aborts every rank;
	// otherwise the survivors would hang in the next collective.
	if cp.Group.AllReduceOr(rank, err != nil) && err == nil {
		err = fmt.Errorf("checkpoint failed on another rank")
	}
	return
}
