package mesh

import (
	"fmt"

	"github.com/notargets/goflame/boundary"
	"github.com/notargets/goflame/utils"
)

/*
Uniform1D builds a uniform vertex distribution VX of K+1 points spanning
[xmin, xmax] and the element to vertex connectivity EToV, K x 2.
*/
func Uniform1D(xmin, xmax float64, K int) (VX utils.Vector, EToV utils.Matrix) {
	VX = utils.NewVector(K + 1)
	var (
		x  = VX.DataP
		dx = (xmax - xmin) / float64(K)
	)
	for i := 0; i < K+1; i++ {
		x[i] = xmin + dx*float64(i)
	}
	EToV = utils.NewMatrix(K, 2)
	for k := 0; k < K; k++ {
		EToV.Set(k, 0, float64(k))
		EToV.Set(k, 1, float64(k+1))
	}
	return
}

/*
A Partition is one rank's contiguous slab of the global 1D mesh. It holds
plain slices so a snapshot record can carry it through gob directly.
*/
type Partition struct {
	Rank, NumParts      int
	K, KGlobal          int
	KGlobalOffset       int // global index of this partition's first cell
	VX                  []float64
	LeftBC, RightBC     boundary.BCFLAG
	LeftRank, RightRank int // -1 when the face is a domain boundary
}

/*
Split distributes the global mesh over np ranks with a maximum cell count
imbalance of one. The domain's left boundary carries leftBC, the right
carries rightBC, and every interior rank interface becomes a partition
face resolved at run time by halo exchange.
*/
func Split(VX utils.Vector, np int, leftBC, rightBC boundary.BCFLAG) (parts []*Partition) {
	var (
		KGlobal = VX.Len() - 1
		pm      = utils.NewPartitionMap(np, KGlobal)
		x       = VX.DataP
	)
	parts = make([]*Partition, np)
	for n := 0; n < np; n++ {
		kMin, kMax := pm.GetBucketRange(n)
		k := kMax - kMin
		p := &Partition{
			Rank:          n,
			NumParts:      np,
			K:             k,
			KGlobal:       KGlobal,
			KGlobalOffset: kMin,
			VX:            make([]float64, k+1),
			LeftBC:        boundary.BC_Partition,
			RightBC:       boundary.BC_Partition,
			LeftRank:      n - 1,
			RightRank:     n + 1,
		}
		copy(p.VX, x[kMin:kMax+1])
		if n == 0 {
			p.LeftBC = leftBC
			p.LeftRank = -1
		}
		if n == np-1 {
			p.RightBC = rightBC
			p.RightRank = -1
		}
		parts[n] = p
	}
	return
}

func (p *Partition) Validate() (err error) {
	if p.K < 1 {
		return fmt.Errorf("partition %d has no cells", p.Rank)
	}
	if len(p.VX) != p.K+1 {
		return fmt.Errorf("partition %d has %d vertices for %d cells", p.Rank, len(p.VX), p.K)
	}
	for i := 0; i < p.K; i++ {
		if p.VX[i+1] <= p.VX[i] {
			return fmt.Errorf("partition %d vertices are not ascending at index %d", p.Rank, i)
		}
	}
	if p.Rank < 0 || p.Rank >= p.NumParts {
		return fmt.Errorf("partition rank %d out of range for %d parts", p.Rank, p.NumParts)
	}
	return
}

func (p *Partition) XMin() float64 { return p.VX[0] }
func (p *Partition) XMax() float64 { return p.VX[len(p.VX)-1] }

func (p *Partition) Widths() (W utils.Vector) {
	W = utils.NewVector(p.K)
	for k := 0; k < p.K; k++ {
		W.DataP[k] = p.VX[k+1] - p.VX[k]
	}
	return
}

func (p *Partition) Centers() (X utils.Vector) {
	X = utils.NewVector(p.K)
	for k := 0; k < p.K; k++ {
		X.DataP[k] = 0.5 * (p.VX[k] + p.VX[k+1])
	}
	return
}

func (p *Partition) MinWidth() (dx float64) {
	dx = p.Widths().Min()
	return
}

// EToV is the local element to vertex connectivity view of the slab.
func (p *Partition) EToV() (R utils.Matrix) {
	R = utils.NewMatrix(p.K, 2)
	for k := 0; k < p.K; k++ {
		R.Set(k, 0, float64(k))
		R.Set(k, 1, float64(k+1))
	}
	return
}
