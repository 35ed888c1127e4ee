package utils

import (
	"runtime"
	"sync"
)

// PartitionMap splits an index range into ParallelDegree contiguous buckets,
// distributing the remainder over the leading buckets
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	Partitions     [][2]int // begin and end index of each partition
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

func (pm *PartitionMap) Split1D(bucketNum int) (bucket [2]int) {
	var (
		size = pm.MaxIndex / pm.ParallelDegree
		rem  = pm.MaxIndex % pm.ParallelDegree
	)
	begin := bucketNum*size + min(bucketNum, rem)
	end := begin + size
	if bucketNum < rem {
		end++
	}
	return [2]int{begin, end}
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (begin, end int) {
	return pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
}

// ParallelFor runs fn over [0, maxIndex) in a fork-join over the available
// cores. fn receives a half-open index range and must only write state owned
// by indices of that range.
func ParallelFor(maxIndex int, fn func(lo, hi int)) {
	np := runtime.NumCPU()
	if np > maxIndex {
		np = maxIndex
	}
	if np <= 1 {
		fn(0, maxIndex)
		return
	}
	pm := NewPartitionMap(np, maxIndex)
	var wg sync.WaitGroup
	for n := 0; n < np; n++ {
		lo, hi := pm.GetBucketRange(n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
