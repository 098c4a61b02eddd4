package pipeline

import (
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ironsheep/raster-pipeline/internal/imaging"
)

// Task is one unit of transform work: a private copy of an image buffer and
// the op to run on it, tagged with the image's sequence index.
type Task struct {
	Index  int
	Op     Op
	Buffer imaging.Array
}

// Result is the outcome of a Task, tagged with the same index.
type Result struct {
	Index  int
	Buffer imaging.Array
	Suffix string
	Err    error
}

// Pool is a fixed set of worker goroutines fed over a channel. Workers are
// spawned once at creation and live until Close.
type Pool struct {
	numWorkers int
	taskC      chan job
	closeOnce  sync.Once
	closed     atomic.Bool
}

type job struct {
	task    Task
	results chan<- Result
}

// NewPool starts a pool with numWorkers workers. If numWorkers <= 0, one
// worker per CPU is used.
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	p := &Pool{
		numWorkers: numWorkers,
		taskC:      make(chan job, numWorkers*2),
	}
	for range numWorkers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for j := range p.taskC {
		j.results <- execute(j.task)
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close stops the workers once queued tasks finish. Calling Close multiple
// times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.taskC)
	})
}

// Process runs every task and returns one result per task, sorted by
// Index. Results are gathered as workers finish, in any order. On a closed
// pool the tasks run sequentially on the caller's goroutine.
func (p *Pool) Process(tasks []Task) []Result {
	out := make([]Result, 0, len(tasks))

	if p.closed.Load() {
		for _, t := range tasks {
			out = append(out, execute(t))
		}
	} else {
		results := make(chan Result, len(tasks))
		go func() {
			for _, t := range tasks {
				p.taskC <- job{task: t, results: results}
			}
		}()
		for range tasks {
			out = append(out, <-results)
		}
	}

	slices.SortFunc(out, func(a, b Result) int { return a.Index - b.Index })
	return out
}

// execute runs a task, turning a panic in the op into an error.
func execute(t Task) (r Result) {
	r.Index = t.Index
	defer func() {
		if v := recover(); v != nil {
			r = Result{Index: t.Index, Err: fmt.Errorf("%w: %v", ErrPanic, v)}
		}
	}()

	if t.Op == nil {
		r.Err = fmt.Errorf("%w: no operation", ErrInvalidRequest)
		return r
	}
	r.Buffer, r.Suffix, r.Err = t.Op.Apply(t.Buffer)
	return r
}
