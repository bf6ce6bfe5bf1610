package utils

import (
	"fmt"
	"sync"
)

type DynBuffer[T any] struct {
	cells []T
}

func NewDynBuffer[T any](sizeEstimate int) *DynBuffer[T] {
	return &DynBuffer[T]{cells: make([]T, 0, sizeEstimate)}
}

func (db *DynBuffer[T]) Add(msg T)  { db.cells = append(db.cells, msg) }
func (db *DynBuffer[T]) Cells() []T { return db.cells }
func (db *DynBuffer[T]) Reset()     { db.cells = db.cells[:0] }

type MailBox[T any] struct {
	NP           int
	MessageChans []chan *DynBuffer[T]    // One for each rank
	PostMsgQs    []map[int]*DynBuffer[T] // One for each rank, key is target rank
	ReceiveMsgQs []*DynBuffer[T]         // One for each rank
	MailFlag     []bool                  // MyRank sender has messages in outbox
}

func NewMailBox[T any](NP int) *MailBox[T] {
	mb := &MailBox[T]{
		NP:           NP,
		MessageChans: make([]chan *DynBuffer[T], NP),
		PostMsgQs:    make([]map[int]*DynBuffer[T], NP),
		ReceiveMsgQs: make([]*DynBuffer[T], NP),
		MailFlag:     make([]bool, NP),
	}
	for n := 0; n < NP; n++ {
		mb.MessageChans[n] = make(chan *DynBuffer[T], NP) // Worst case is all-to-all
		mb.PostMsgQs[n] = make(map[int]*DynBuffer[T])
		mb.ReceiveMsgQs[n] = NewDynBuffer[T](0)
	}
	return mb
}

// The pattern is: for range messages {Post}; Deliver; barrier; Receive;
// Clear; barrier. The second barrier keeps a sender from reposting into a
// buffer the receiver has not drained yet.
func (mb *MailBox[T]) PostMessage(myRank, targetRank int, msg T) {
	var (
		exists bool
		tgt    *DynBuffer[T]
	)
	if tgt, exists = mb.PostMsgQs[myRank][targetRank]; !exists {
		mb.PostMsgQs[myRank][targetRank] = NewDynBuffer[T](0)
	}
	tgt = mb.PostMsgQs[myRank][targetRank]
	tgt.Add(msg)
	if !mb.MailFlag[myRank] {
		mb.MailFlag[myRank] = true
	}
}

func (mb *MailBox[T]) DeliverMyMessages(myRank int) {
	if mb.MailFlag[myRank] {
		for targetRank, msgBuffer := range mb.PostMsgQs[myRank] {
			if targetRank < 0 || targetRank > mb.NP-1 {
				panic(fmt.Sprintf("Target rank %d out of bounds", targetRank))
			}
			mb.MessageChans[targetRank] <- msgBuffer
		}
		mb.MailFlag[myRank] = false
	}
}

func (mb *MailBox[T]) ReceiveMyMessages(myRank int) {
	for {
		select {
		case msgBuffer := <-mb.MessageChans[myRank]:
			for _, msg := range msgBuffer.Cells() {
				mb.ReceiveMsgQs[myRank].Add(msg)
			}
			msgBuffer.Reset() // Reset the originating buffer
		default:
			return
		}
	}
}

func (mb *MailBox[T]) ClearMyMessages(myRank int) {
	mb.ReceiveMsgQs[myRank].Reset()
}

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucket(kDim int) (bucketNum, min, max int) {
	// Initial guess
	bucketNum = int(float64(pm.ParallelDegree*kDim) / float64(pm.MaxIndex))
	for !(pm.Partitions[bucketNum][0] <= kDim && pm.Partitions[bucketNum][1] > kDim) {
		if pm.Partitions[bucketNum][0] > kDim {
			bucketNum--
		} else {
			bucketNum++
		}
		if bucketNum == -1 || bucketNum == pm.ParallelDegree {
			return -1, 0, 0
		}
	}
	min, max = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) (kMax int) {
	if bn == -1 {
		kMax = pm.MaxIndex
		return
	}
	var (
		k1, k2 = pm.GetBucketRange(bn)
	)
	kMax = k2 - k1
	return
}

func (pm *PartitionMap) GetGlobalK(kLocal, bn int) (kGlobal int) {
	if bn == -1 {
		kGlobal = kLocal
		return
	}
	var (
		kMin = pm.Partitions[bn][0]
	)
	kGlobal = kMin + kLocal
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

/*
RankGroup coordinates NP rank goroutines running in lock step. It supplies
the barrier and all-reduce collectives an MPI run would get from its
communicator. Every rank must enter the same sequence of collectives, or
the group deadlocks, exactly as MPI would.
*/
type RankGroup struct {
	NP      int
	mu      sync.Mutex
	cond    *sync.Cond
	arrived int
	phase   int
	fIn     []float64
	bIn     []bool
	fOut    float64
	bOut    bool
}

func NewRankGroup(NP int) (rg *RankGroup) {
	rg = &RankGroup{
		NP:  NP,
		fIn: make([]float64, NP),
		bIn: make([]bool, NP),
	}
	rg.cond = sync.NewCond(&rg.mu)
	return
}

// await parks the caller until all NP ranks have entered, then releases
// them together. The last rank to arrive runs combine over the input
// buffers before the release, so every rank reads the same combined value.
func (rg *RankGroup) await(combine func()) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	rg.arrived++
	if rg.arrived == rg.NP {
		if combine != nil {
			combine()
		}
		rg.arrived = 0
		rg.phase++
		rg.cond.Broadcast()
		return
	}
	phase := rg.phase
	for phase == rg.phase {
		rg.cond.Wait()
	}
}

func (rg *RankGroup) Barrier(myRank int) {
	rg.await(nil)
}

func (rg *RankGroup) AllReduceMin(myRank int, val float64) float64 {
	rg.mu.Lock()
	rg.fIn[myRank] = val
	rg.mu.Unlock()
	rg.await(func() {
		min := rg.fIn[0]
		for _, v := range rg.fIn[1:] {
			if v < min {
				min = v
			}
		}
		rg.fOut = min
	})
	rg.mu.Lock()
	defer rg.mu.Unlock()
	return rg.fOut
}

func (rg *RankGroup) AllReduceMax(myRank int, val float64) float64 {
	rg.mu.Lock()
	rg.fIn[myRank] = val
	rg.mu.Unlock()
	rg.await(func() {
		max := rg.fIn[0]
		for _, v := range rg.fIn[1:] {
			if v > max {
				max = v
			}
		}
		rg.fOut = max
	})
	rg.mu.Lock()
	defer rg.mu.Unlock()
	return rg.fOut
}

func (rg *RankGroup) AllReduceOr(myRank int, val bool) bool {
	rg.mu.Lock()
	rg.bIn[myRank] = val
	rg.mu.Unlock()
	rg.await(func() {
		or := false
		for _, v := range rg.bIn {
			or = or || v
		}
		rg.bOut = or
	})
	rg.mu.Lock()
	defer rg.mu.Unlock()
	return rg.bOut
}
