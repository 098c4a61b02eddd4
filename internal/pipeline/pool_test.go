package pipeline

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/raster-pipeline/internal/imaging"
)

// sleepyOp sleeps for a random interval so results arrive out of order.
type sleepyOp struct{}

func (sleepyOp) Name() string { return "sleepy" }

func (sleepyOp) Apply(a imaging.Array) (imaging.Array, string, error) {
	time.Sleep(rand.N(3 * time.Millisecond))
	return a, "_z", nil
}

type failOp struct{}

func (failOp) Name() string { return "fail" }

func (failOp) Apply(imaging.Array) (imaging.Array, string, error) {
	return imaging.Array{}, "", errors.New("nope")
}

func indexedTasks(op Op, n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		a := imaging.NewArray(2, 2)
		a.Data[0] = uint8(i + 1)
		// Reverse order so sorting is observable.
		tasks[i] = Task{Index: n - i, Op: op, Buffer: a}
	}
	return tasks
}

func TestNewPoolDefaults(t *testing.T) {
	p := NewPool(0)
	defer p.Close()
	assert.Positive(t, p.NumWorkers())

	p4 := NewPool(4)
	defer p4.Close()
	assert.Equal(t, 4, p4.NumWorkers())
}

func TestPoolProcessSortsByIndex(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	results := p.Process(indexedTasks(sleepyOp{}, 20))
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, i+1, r.Index)
		assert.NoError(t, r.Err)
		assert.Equal(t, "_z", r.Suffix)
		// Task with index k carried sample n-k+1.
		assert.Equal(t, uint8(20-r.Index+1), r.Buffer.Data[0])
	}
}

func TestPoolReusable(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	for range 3 {
		assert.Len(t, p.Process(indexedTasks(Grayscale{}, 5)), 5)
	}
	assert.Empty(t, p.Process(nil))
}

func TestPoolErrorsAndPanics(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	tasks := []Task{
		{Index: 1, Op: failOp{}, Buffer: imaging.NewArray(1, 1)},
		{Index: 2, Op: panicOp{on: 0}, Buffer: imaging.NewArray(1, 1)},
		{Index: 3, Buffer: imaging.NewArray(1, 1)},
		{Index: 4, Op: Grayscale{}, Buffer: imaging.NewArray(1, 1)},
	}
	results := p.Process(tasks)
	require.Len(t, results, 4)

	assert.ErrorContains(t, results[0].Err, "nope")
	assert.ErrorIs(t, results[1].Err, ErrPanic)
	assert.ErrorIs(t, results[2].Err, ErrInvalidRequest)
	assert.NoError(t, results[3].Err)
}

func TestPoolClosedRunsSequentially(t *testing.T) {
	p := NewPool(2)
	p.Close()
	p.Close()

	results := p.Process(indexedTasks(Grayscale{}, 3))
	require.Len(t, results, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{results[0].Index, results[1].Index, results[2].Index})
}
