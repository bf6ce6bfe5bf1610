package InputParameters

import (
	"fmt"
	"strings"

	"github.com/ghodss/yaml"
)

// Run control parameters obtained from the YAML input file. The yaml
// package resolves field names through the json tags.
type RunControl struct {
	NViz      int     `json:"nviz"`       // steps between visualization dumps
	NRestart  int     `json:"nrestart"`   // steps between restart snapshots
	CurrentDT float64 `json:"current_dt"` // fixed timestep size
	FinalTime float64 `json:"t_final"`
}

func Defaults() RunControl {
	return RunControl{
		NViz:      5,
		NRestart:  5,
		CurrentDT: 5.e-8,
		FinalTime: 2.5e-7,
	}
}

// runControlFile shadows RunControl with pointer fields so a parse can
// tell an absent key from a zero value.
type runControlFile struct {
	NViz      *int     `json:"nviz"`
	NRestart  *int     `json:"nrestart"`
	CurrentDT *float64 `json:"current_dt"`
	FinalTime *float64 `json:"t_final"`
}

/*
Parse reads a run control YAML document into rc. A supplied input file
must carry all four keys; every missing key is reported at once rather
than one failure at a time.
*/
func (rc *RunControl) Parse(data []byte) error {
	var (
		f       runControlFile
		missing []string
	)
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing run control input: %w", err)
	}
	if f.NViz == nil {
		missing = append(missing, "nviz")
	} else {
		rc.NViz = *f.NViz
	}
	if f.NRestart == nil {
		missing = append(missing, "nrestart")
	} else {
		rc.NRestart = *f.NRestart
	}
	if f.CurrentDT == nil {
		missing = append(missing, "current_dt")
	} else {
		rc.CurrentDT = *f.CurrentDT
	}
	if f.FinalTime == nil {
		missing = append(missing, "t_final")
	} else {
		rc.FinalTime = *f.FinalTime
	}
	if len(missing) > 0 {
		return fmt.Errorf("input file is missing required keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (rc *RunControl) Validate() error {
	if rc.CurrentDT <= 0 {
		return fmt.Errorf("current_dt must be positive, have %v", rc.CurrentDT)
	}
	if rc.FinalTime < 0 {
		return fmt.Errorf("t_final must not be negative, have %v", rc.FinalTime)
	}
	return nil
}

// Overrides carries command line values that take precedence over both
// the input file and the defaults. Nil fields leave the resolved value
// alone.
type Overrides struct {
	NViz, NRestart       *int
	CurrentDT, FinalTime *float64
}

/*
Resolve layers the run control sources: compiled defaults, then the
optional input file, then command line overrides.
*/
func Resolve(fileData []byte, ov Overrides) (rc RunControl, err error) {
	rc = Defaults()
	if len(fileData) > 0 {
		if err = rc.Parse(fileData); err != nil {
			return
		}
	}
	if ov.NViz != nil {
		rc.NViz = *ov.NViz
	}
	if ov.NRestart != nil {
		rc.NRestart = *ov.NRestart
	}
	if ov.CurrentDT != nil {
		rc.CurrentDT = *ov.CurrentDT
	}
	if ov.FinalTime != nil {
		rc.FinalTime = *ov.FinalTime
	}
	err = rc.Validate()
	return
}

func (rc *RunControl) Print() {
	fmt.Printf("%8d\t\t= nviz\n", rc.NViz)
	fmt.Printf("%8d\t\t= nrestart\n", rc.NRestart)
	fmt.Printf("%8.3e\t= current_dt\n", rc.CurrentDT)
	fmt.Printf("%8.3e\t= t_final\n", rc.FinalTime)
}
