package utils

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	{ // Split should cover the index space with a maximum imbalance of one
		getHisto := func(K, Np int) (histo map[int]int) {
			pm := NewPartitionMap(Np, K)
			histo = make(map[int]int)
			for np := 0; np < pm.ParallelDegree; np++ {
				maxK := pm.GetBucketDimension(np)
				histo[maxK]++
			}
			return
		}
		getTotal := func(histo map[int]int) (total int) {
			for key, count := range histo {
				total += key * count
			}
			return
		}
		assert.Equal(t, map[int]int{1: 32}, getHisto(32, 32))
		assert.Equal(t, map[int]int{8: 32}, getHisto(256, 32))
		assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
		assert.Equal(t, 287, getTotal(getHisto(287, 32)))
		for n := 64; n < 4000; n++ {
			var (
				keys   [2]float64
				keyNum int
			)
			histo := getHisto(n, 32)
			for key := range histo {
				keys[keyNum] = float64(key)
				keyNum++
			}
			if keyNum == 2 {
				assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
			}
			assert.Equal(t, n, getTotal(histo))
		}
	}
	{ // Inverted bucket probe - find the bucket containing an index
		for maxIndex := 10; maxIndex < 500; maxIndex++ {
			pm := NewPartitionMap(5, maxIndex)
			for k := 0; k < maxIndex; k++ {
				bn, min, max := pm.GetBucket(k)
				mmin, mmax := pm.GetBucketRange(bn)
				assert.True(t, k >= min && k < max && min == mmin && max == mmax)
				assert.Equal(t, k, pm.GetGlobalK(k-min, bn))
			}
		}
	}
}

func TestMailBox(t *testing.T) {
	// Each rank sends its rank number to its left and right neighbors, then
	// everyone receives after a barrier, as the halo exchange does.
	var (
		NP = 4
		mb = NewMailBox[int](NP)
		rg = NewRankGroup(NP)
		wg sync.WaitGroup
	)
	received := make([][]int, NP)
	for n := 0; n < NP; n++ {
		wg.Add(1)
		go func(myRank int) {
			defer wg.Done()
			if myRank > 0 {
				mb.PostMessage(myRank, myRank-1, myRank)
			}
			if myRank < NP-1 {
				mb.PostMessage(myRank, myRank+1, myRank)
			}
			mb.DeliverMyMessages(myRank)
			rg.Barrier(myRank)
			mb.ReceiveMyMessages(myRank)
			for _, msg := range mb.ReceiveMsgQs[myRank].Cells() {
				received[myRank] = append(received[myRank], msg)
			}
			mb.ClearMyMessages(myRank)
			rg.Barrier(myRank)
		}(n)
	}
	wg.Wait()
	for n := 0; n < NP; n++ {
		var want []int
		if n > 0 {
			want = append(want, n-1)
		}
		if n < NP-1 {
			want = append(want, n+1)
		}
		assert.ElementsMatch(t, want, received[n])
	}
}

func TestRankGroup(t *testing.T) {
	{ // Reductions return the combined value on every rank
		var (
			NP = 8
			rg = NewRankGroup(NP)
			wg sync.WaitGroup
		)
		mins := make([]float64, NP)
		maxs := make([]float64, NP)
		ors := make([]bool, NP)
		for n := 0; n < NP; n++ {
			wg.Add(1)
			go func(myRank int) {
				defer wg.Done()
				mins[myRank] = rg.AllReduceMin(myRank, float64(myRank+1))
				maxs[myRank] = rg.AllReduceMax(myRank, float64(myRank+1))
				ors[myRank] = rg.AllReduceOr(myRank, myRank == 5)
			}(n)
		}
		wg.Wait()
		for n := 0; n < NP; n++ {
			assert.Equal(t, 1., mins[n])
			assert.Equal(t, 8., maxs[n])
			assert.True(t, ors[n])
		}
	}
	{ // Or-reduction is false only when no rank contributes true
		var (
			NP = 3
			rg = NewRankGroup(NP)
			wg sync.WaitGroup
		)
		ors := make([]bool, NP)
		for n := 0; n < NP; n++ {
			wg.Add(1)
			go func(myRank int) {
				defer wg.Done()
				ors[myRank] = rg.AllReduceOr(myRank, false)
			}(n)
		}
		wg.Wait()
		for n := 0; n < NP; n++ {
			assert.False(t, ors[n])
		}
	}
	{ // Repeated collectives stay in phase
		var (
			NP     = 4
			rounds = 100
			rg     = NewRankGroup(NP)
			wg     sync.WaitGroup
		)
		results := make([][]float64, NP)
		for n := 0; n < NP; n++ {
			wg.Add(1)
			go func(myRank int) {
				defer wg.Done()
				for r := 0; r < rounds; r++ {
					v := float64(r*NP + myRank)
					results[myRank] = append(results[myRank], rg.AllReduceMin(myRank, v))
				}
			}(n)
		}
		wg.Wait()
		for n := 0; n < NP; n++ {
			for r := 0; r < rounds; r++ {
				assert.Equal(t, float64(r*NP), results[n][r])
			}
		}
	}
}
