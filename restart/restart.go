package restart

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/notargets/goflame/fluid"
	"github.com/notargets/goflame/mesh"
)

/*
Record is one rank's snapshot of a run: its mesh slab, the flattened
conserved state in canonical field order, and enough run metadata to
validate a resume. The driver is restart driven, every run begins from a
set of these records, so the record must be self describing.
*/
type Record struct {
	LocalMesh       mesh.Partition
	State           []float64
	T               float64
	Step            int
	GlobalNelements int
	NumParts        int
	Dim, NSpecies   int
}

func NewRecord(part *mesh.Partition, q *fluid.ConservedVars, t float64, step int) *Record {
	return &Record{
		LocalMesh:       *part,
		State:           q.Flatten(),
		T:               t,
		Step:            step,
		GlobalNelements: part.KGlobal,
		NumParts:        part.NumParts,
		Dim:             q.Dim,
		NSpecies:        q.NSpecies,
	}
}

func (r *Record) Validate() (err error) {
	if err = r.LocalMesh.Validate(); err != nil {
		return
	}
	if r.GlobalNelements != r.LocalMesh.KGlobal {
		err = fmt.Errorf("record global element count %d does not match its mesh's %d",
			r.GlobalNelements, r.LocalMesh.KGlobal)
		return
	}
	nFields := 2 + r.Dim + r.NSpecies
	if len(r.State) != nFields*r.LocalMesh.K {
		err = fmt.Errorf("record state length %d does not match %d fields x %d cells",
			len(r.State), nFields, r.LocalMesh.K)
	}
	return
}

// Conserved rebuilds the rank's conserved state from the flattened record.
func (r *Record) Conserved() (q *fluid.ConservedVars, err error) {
	if err = r.Validate(); err != nil {
		return
	}
	q, err = fluid.Unflatten(r.Dim, r.NSpecies, r.LocalMesh.K, r.State)
	return
}

// PartitionMismatchError rejects a resume onto a different rank count.
type PartitionMismatchError struct {
	Path       string
	Have, Want int
}

func (e *PartitionMismatchError) Error() string {
	return fmt.Sprintf("restarting with a different number of ranks is not supported: "+
		"%s holds %d parts, this run has %d", e.Path, e.Have, e.Want)
}

// SnapshotName is the per rank snapshot file name, {case}-{step:06d}-{rank:04d}.rst.
func SnapshotName(casename string, step, rank int) string {
	return fmt.Sprintf("%s-%06d-%04d.rst", casename, step, rank)
}

/*
ParseSnapshotName recovers casename, step and rank from a snapshot file
name. The extension is ignored and the step and rank are taken from the
last two dash fields, so case names containing dashes round trip.
*/
func ParseSnapshotName(name string) (casename string, step, rank int, err error) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	fields := strings.Split(base, "-")
	if len(fields) < 3 {
		err = fmt.Errorf("snapshot name %q is not of the form case-step-rank", name)
		return
	}
	if step, err = strconv.Atoi(fields[len(fields)-2]); err != nil {
		err = fmt.Errorf("snapshot name %q has a non numeric step field: %w", name, err)
		return
	}
	if rank, err = strconv.Atoi(fields[len(fields)-1]); err != nil {
		err = fmt.Errorf("snapshot name %q has a non numeric rank field: %w", name, err)
		return
	}
	casename = strings.Join(fields[:len(fields)-2], "-")
	return
}

func Write(path string, rec *Record) (err error) {
	var f *os.File
	if f, err = os.Create(path); err != nil {
		return fmt.Errorf("creating snapshot %s: %w", path, err)
	}
	defer f.Close()
	if err = gob.NewEncoder(f).Encode(rec); err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", path, err)
	}
	return
}

func Read(path string) (rec *Record, err error) {
	var f *os.File
	if f, err = os.Open(path); err != nil {
		return nil, fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer f.Close()
	rec = &Record{}
	if err = gob.NewDecoder(f).Decode(rec); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return
}

/*
Load reads one rank's snapshot for the named case and step from dir and
validates it against the running world size.
*/
func Load(dir, casename string, step, rank, numParts int) (rec *Record, err error) {
	path := filepath.Join(dir, SnapshotName(casename, step, rank))
	if rec, err = Read(path); err != nil {
		return
	}
	if rec.NumParts != numParts {
		return nil, &PartitionMismatchError{Path: path, Have: rec.NumParts, Want: numParts}
	}
	if err = rec.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return
}
