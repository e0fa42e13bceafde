package qsbr_test

import (
	"sync"
	"testing"

	"github.com/katalvlaran/rmindex/qsbr"
	"github.com/stretchr/testify/require"
)

func TestAdvance_RunsRetiredCallbacksOnceWorkersAreQuiescent(t *testing.T) {
	d := qsbr.NewDomain()
	w := d.RegisterWorker()

	freed := false
	d.Retire(func() { freed = true })

	// Worker never entered, so it starts quiescent: the very first Advance
	// should already be safe to run the retirement.
	ran := d.Advance()
	require.Equal(t, 1, ran)
	require.True(t, freed)
	require.Equal(t, 0, d.PendingCount())
	_ = w
}

func TestAdvance_DefersWhileWorkerIsActive(t *testing.T) {
	d := qsbr.NewDomain()
	w := d.RegisterWorker()

	w.Enter(d)
	d.Retire(func() { t.Fatal("must not free while worker is active") })

	ran := d.Advance()
	require.Equal(t, 0, ran)
	require.Equal(t, 1, d.PendingCount())

	w.Leave()
	ran = d.Advance()
	require.Equal(t, 1, ran)
}

func TestDomain_ConcurrentEnterLeaveAndAdvance(t *testing.T) {
	d := qsbr.NewDomain()
	const numWorkers = 16
	workers := make([]*qsbr.Worker, numWorkers)
	for i := range workers {
		workers[i] = d.RegisterWorker()
	}

	var wg sync.WaitGroup
	wg.Add(numWorkers + 1)

	for _, w := range workers {
		go func(w *qsbr.Worker) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				w.Enter(d)
				w.Leave()
			}
		}(w)
	}
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			d.Advance()
		}
	}()
	wg.Wait()
}
