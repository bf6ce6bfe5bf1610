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
	"os"
	"path/filepath"
	"sync"

	"github.com/notargets/goflame/InputParameters"
	"github.com/notargets/goflame/boundary"
	"github.com/notargets/goflame/flowop"
	"github.com/notargets/goflame/fluid"
	"github.com/notargets/goflame/restart"
	"github.com/notargets/goflame/runlog"
	"github.com/notargets/goflame/simio"
	"github.com/notargets/goflame/steppers"
	"github.com/notargets/goflame/thermochem"
	"github.com/notargets/goflame/utils"
	"github.com/notargets/goflame/viz"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Advance a flame run from a restart snapshot set",
	Long: `
Resumes the flame run identified by the -r snapshot file and advances it to
the configured final time. The case name and restart step are parsed from
the file name, one snapshot per rank. Run control (nviz, nrestart,
current_dt, t_final) resolves command line over input file over defaults.

goflame run -r flame1d-000005-0000.rst -i run.yaml --np 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rp := &RunParams{}
		rp.RestartFile, _ = cmd.Flags().GetString("restartFile")
		rp.InputFile, _ = cmd.Flags().GetString("inputFile")
		rp.Casename, _ = cmd.Flags().GetString("casename")
		rp.NP, _ = cmd.Flags().GetInt("np")
		rp.Integrator, _ = cmd.Flags().GetString("integrator")
		rp.MaxSteps, _ = cmd.Flags().GetInt("maxSteps")
		rp.CFL, _ = cmd.Flags().GetFloat64("CFL")
		rp.ConstantCFL, _ = cmd.Flags().GetBool("constantCFL")
		rp.Log, _ = cmd.Flags().GetBool("log")
		rp.Graph, _ = cmd.Flags().GetBool("graph")
		if cmd.Flags().Changed("nviz") {
			v, _ := cmd.Flags().GetInt("nviz")
			rp.Overrides.NViz = &v
		}
		if cmd.Flags().Changed("nrestart") {
			v, _ := cmd.Flags().GetInt("nrestart")
			rp.Overrides.NRestart = &v
		}
		if cmd.Flags().Changed("dt") {
			v, _ := cmd.Flags().GetFloat64("dt")
			rp.Overrides.CurrentDT = &v
		}
		if cmd.Flags().Changed("tFinal") {
			v, _ := cmd.Flags().GetFloat64("tFinal")
			rp.Overrides.FinalTime = &v
		}
		if prof, _ := cmd.Flags().GetBool("profile"); prof {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		}
		return RunFlame(rp)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("restartFile", "r", "", "restart snapshot to resume from, {case}-{step}-{rank}.rst")
	runCmd.Flags().StringP("inputFile", "i", "", "YAML run control file with nviz, nrestart, current_dt, t_final")
	runCmd.Flags().StringP("casename", "c", "", "case name for output files (default: parsed from the restart file)")
	runCmd.Flags().Int("np", 1, "number of ranks (mesh partitions)")
	runCmd.Flags().String("integrator", "euler", "time integrator: euler, rk4, lsrk54, lsrk144")
	runCmd.Flags().Int("maxSteps", 0, "stop once the step counter reaches this value, 0 for no cap")
	runCmd.Flags().Float64("CFL", 1.0, "CFL target for constantCFL stepping")
	runCmd.Flags().Bool("constantCFL", false, "pick dt from the CFL target instead of current_dt")
	runCmd.Flags().Bool("log", true, "record per step run quantities to {case}.sqlite")
	runCmd.Flags().Bool("graph", false, "display a live chart of the temperature and species profiles")
	runCmd.Flags().Bool("profile", false, "write a CPU profile for the run")
	runCmd.Flags().Int("nviz", 0, "override nviz from the input file or defaults")
	runCmd.Flags().Int("nrestart", 0, "override nrestart from the input file or defaults")
	runCmd.Flags().Float64("dt", 0, "override current_dt from the input file or defaults")
	runCmd.Flags().Float64("tFinal", 0, "override t_final from the input file or defaults")
}

type RunParams struct {
	RestartFile string
	InputFile   string
	Casename    string
	NP          int
	Integrator  string
	MaxSteps    int
	CFL         float64
	ConstantCFL bool
	Log         bool
	Graph       bool
	Overrides   InputParameters.Overrides
}

/*
RunFlame resolves the run configuration, then fans out one goroutine per
rank, each resuming its own snapshot and advancing it through the shared
rank group. The returned error is the worst rank error by exit status, so
a divergence outranks the synthesized failures of its peer ranks.
*/
func RunFlame(rp *RunParams) (err error) {
	if rp.RestartFile == "" {
		return fmt.Errorf("the flame driver only supports restarting: supply -r with a restart snapshot")
	}
	inputCase, restartStep, _, err := restart.ParseSnapshotName(rp.RestartFile)
	if err != nil {
		return
	}
	var (
		outputDir = filepath.Dir(rp.RestartFile)
		casename  = inputCase
	)
	if rp.Casename != "" {
		casename = rp.Casename
	}
	var fileData []byte
	if rp.InputFile != "" {
		if fileData, err = os.ReadFile(rp.InputFile); err != nil {
			return fmt.Errorf("reading run control file: %w", err)
		}
	}
	rc, err := InputParameters.Resolve(fileData, rp.Overrides)
	if err != nil {
		return
	}
	integ, err := steppers.NewIntegrator(rp.Integrator)
	if err != nil {
		return
	}
	var (
		fc  = DefaultFlameCase()
		gas = FlameGas()
	)
	bcs, err := fc.Boundary(gas)
	if err != nil {
		return
	}
	fmt.Printf("resuming case %s from step %d on %d ranks, %s integrator\n",
		inputCase, restartStep, rp.NP, integ.Name())
	rc.Print()

	var logger *runlog.Logger
	if rp.Log {
		if logger, err = runlog.Open(filepath.Join(outputDir, casename+".sqlite")); err != nil {
			return
		}
		defer logger.Close()
	}
	var chart *viz.LiveChart
	if rp.Graph {
		chart = viz.NewLiveChart(fc.TIgnition)
	}
	rd := &rankDriver{
		rp:          rp,
		rc:          rc,
		inputCase:   inputCase,
		casename:    casename,
		outputDir:   outputDir,
		restartStep: restartStep,
		gas:         gas,
		bcs:         bcs,
		integ:       integ,
		group:       utils.NewRankGroup(rp.NP),
		mail:        utils.NewMailBox[flowop.Halo](rp.NP),
		logger:      logger,
		chart:       chart,
	}
	var (
		errs = make([]error, rp.NP)
		wg   sync.WaitGroup
	)
	for n := 0; n < rp.NP; n++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			errs[rank] = rd.run(rank)
		}(n)
	}
	wg.Wait()
	for _, rankErr := range errs {
		if rankErr == nil {
			continue
		}
		if err == nil || ExitCode(rankErr) > ExitCode(err) {
			err = rankErr
		}
	}
	return
}

// rankDriver is the per run state shared by all rank goroutines.
type rankDriver struct {
	rp                             *RunParams
	rc                             InputParameters.RunControl
	inputCase, casename, outputDir string
	restartStep                    int
	gas                            *thermochem.GasMixture
	bcs                            boundary.Spec
	integ                          steppers.Integrator
	group                          *utils.RankGroup
	mail                           *utils.MailBox[flowop.Halo]
	logger                         *runlog.Logger
	chart                          *viz.LiveChart
}

func (rd *rankDriver) run(rank int) (err error) {
	var (
		rec *restart.Record
		q   *fluid.ConservedVars
		op  *flowop.Operator
	)
	if rec, err = restart.Load(rd.outputDir, rd.inputCase, rd.restartStep, rank, rd.rp.NP); err == nil {
		if q, err = rec.Conserved(); err == nil {
			op, err = flowop.NewOperator(&rec.LocalMesh, rd.gas, rd.bcs, rd.group, rd.mail)
		}
	}
	// Every rank must agree to enter the step loop, or a rank whose setup
	// failed would leave the others waiting at the first collective.
	if rd.group.AllReduceOr(rank, err != nil) {
		if err == nil {
			err = fmt.Errorf("run setup failed on another rank")
		}
		return
	}
	var (
		logger *runlog.Logger
		chart  *viz.LiveChart
	)
	if rank == 0 {
		logger, chart = rd.logger, rd.chart
		fmt.Printf("loaded t = %.6e, %d cells over %d ranks\n",
			rec.T, rec.GlobalNelements, rec.NumParts)
	}
	ctx := &steppers.RunContext{
		Time:        rec.T,
		FinalTime:   rd.rc.FinalTime,
		DT:          rd.rc.CurrentDT,
		CFL:         rd.rp.CFL,
		ConstantCFL: rd.rp.ConstantCFL,
		Step:        rec.Step,
		MaxSteps:    rd.rp.MaxSteps,
	}
	cp := simio.NewCheckpointer(rd.casename, rd.outputDir, rd.rc.NViz, rd.rc.NRestart,
		rec.Step, &rec.LocalMesh, rd.gas, rd.group, logger, chart)
	if _, err = steppers.Advance(ctx, q, op.RHS, rd.integ, op.TimestepSelector(ctx), cp.Checkpoint); err != nil {
		return
	}
	if rank == 0 {
		fmt.Printf("run complete: %d steps to t = %.6e\n", ctx.Step-rec.Step, ctx.Time)
	}
	return
}
