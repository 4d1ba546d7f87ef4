package systems

import (
	"math"
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/nearfield/components"
	"github.com/pthm-cable/nearfield/spatial"
)

// QueryStats summarises one NeighborSystem.Update.
type QueryStats struct {
	Queries int
	Capped  int
	Errors  int
	Err     error // first query error, if any
}

// queryResult captures one query's outcome to apply after the parallel phase.
type queryResult struct {
	Count  int32
	Capped bool
	Err    error
}

// workChunk is a range of frame items for a worker to query.
type workChunk struct {
	start, end int
}

// NeighborSystem runs one radius query per indexed particle and stores the
// result in its Neighbors component. Queries only read the index, so large
// frames are split across a persistent worker pool.
type NeighborSystem struct {
	neighbors *ecs.Map1[components.Neighbors]
	radius    float64
	maxCount  int
	fetch     int // maxCount+1
	threshold int

	index   spatial.Index[ecs.Entity]
	frame   []FrameItem
	results []queryResult

	numWorkers int
	scratches  [][]ecs.Entity

	// Worker pool channels
	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// NewNeighborSystem creates a neighbour system. workers <= 0 uses GOMAXPROCS.
// Frames smaller than threshold are queried on the calling goroutine.
func NewNeighborSystem(w *ecs.World, radius float64, maxCount, threshold, workers int) *NeighborSystem {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scratches := make([][]ecs.Entity, workers)
	for i := range scratches {
		scratches[i] = make([]ecs.Entity, 0, 64)
	}
	return &NeighborSystem{
		neighbors:  ecs.NewMap1[components.Neighbors](w),
		radius:     radius,
		maxCount:   maxCount,
		fetch:      fetchLimit(maxCount),
		threshold:  threshold,
		numWorkers: workers,
		scratches:  scratches,
	}
}

func fetchLimit(maxCount int) int {
	if maxCount <= 0 || maxCount == math.MaxInt {
		return maxCount
	}
	return maxCount + 1
}

// Update queries index around every item in frame.
// A query counts as capped only when more than maxCount items matched.
func (s *NeighborSystem) Update(index spatial.Index[ecs.Entity], frame []FrameItem) QueryStats {
	n := len(frame)
	if n == 0 {
		return QueryStats{}
	}
	s.index = index
	s.frame = frame
	if cap(s.results) < n {
		s.results = make([]queryResult, n)
	}
	s.results = s.results[:n]

	if n < s.threshold || s.numWorkers == 1 {
		s.queryChunk(0, n, 0)
	} else {
		s.queryParallel(n)
	}

	return s.apply()
}

// queryParallel dispatches chunks to the worker pool and waits for them.
func (s *NeighborSystem) queryParallel(n int) {
	if !s.running {
		s.startWorkers()
	}

	chunkSize := (n + s.numWorkers - 1) / s.numWorkers
	dispatched := 0
	for w := 0; w < s.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		s.workChan <- workChunk{start: start, end: end}
		dispatched++
	}
	for i := 0; i < dispatched; i++ {
		<-s.doneChan
	}
}

// queryChunk runs the queries for frame[i0:i1] using worker scratch buffer w.
func (s *NeighborSystem) queryChunk(i0, i1, w int) {
	for i := i0; i < i1; i++ {
		item := &s.frame[i]
		found, err := s.index.AppendInRadius(s.scratches[w][:0], item.X, item.Y, s.radius, s.fetch)
		s.scratches[w] = found

		r := &s.results[i]
		r.Err = err
		r.Capped = len(found) > s.maxCount
		if r.Capped {
			found = found[:s.maxCount]
		}
		r.Count = 0
		for _, e := range found {
			if e != item.Entity {
				r.Count++
			}
		}
	}
}

// apply writes results back to Neighbors components on the calling goroutine.
func (s *NeighborSystem) apply() QueryStats {
	var stats QueryStats
	for i, item := range s.frame {
		r := &s.results[i]
		stats.Queries++
		if r.Err != nil {
			stats.Errors++
			if stats.Err == nil {
				stats.Err = r.Err
			}
			continue
		}
		if r.Capped {
			stats.Capped++
		}
		nb := s.neighbors.Get(item.Entity)
		if nb == nil {
			continue
		}
		nb.Count = r.Count
		nb.Capped = r.Capped
	}
	s.index = nil
	s.frame = nil
	return stats
}

// startWorkers launches persistent worker goroutines.
func (s *NeighborSystem) startWorkers() {
	s.workChan = make(chan workChunk, s.numWorkers)
	s.doneChan = make(chan struct{}, s.numWorkers)
	s.stopChan = make(chan struct{})
	s.running = true

	for i := 0; i < s.numWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// worker processes chunks until stopped.
func (s *NeighborSystem) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopChan:
			return
		case chunk, ok := <-s.workChan:
			if !ok {
				return
			}
			s.queryChunk(chunk.start, chunk.end, id)
			s.doneChan <- struct{}{}
		}
	}
}

// Close stops the worker pool. The system can still be used afterwards;
// workers are restarted on the next parallel Update.
func (s *NeighborSystem) Close() {
	if !s.running {
		return
	}
	close(s.stopChan)
	s.wg.Wait()
	close(s.workChan)
	close(s.doneChan)
	s.running = false
}
