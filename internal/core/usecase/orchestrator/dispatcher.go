package orchestrator

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/kondukto-io/portguard/pkg/logger"
)

// dispatcher runs jobs on a fixed set of serial lanes. Jobs submitted with the
// same key always run on the same lane, in submission order.
type dispatcher struct {
	lanes []chan func()
	wg    sync.WaitGroup
}

func newDispatcher(lanes, buffer int) *dispatcher {
	if lanes <= 0 {
		lanes = 1
	}

	d := &dispatcher{lanes: make([]chan func(), lanes)}
	for i := range d.lanes {
		d.lanes[i] = make(chan func(), buffer)
	}

	return d
}

func (d *dispatcher) start() {
	for i := range d.lanes {
		d.wg.Add(1)
		go d.work(d.lanes[i])
	}
}

func (d *dispatcher) work(lane <-chan func()) {
	defer d.wg.Done()

	for job := range lane {
		run(job)
	}
}

func run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("orchestrator job panicked: %v", r)
		}
	}()

	job()
}

func (d *dispatcher) lane(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(d.lanes)))
}

// submit queues the job on the lane of key. It blocks while the lane is full.
func (d *dispatcher) submit(ctx context.Context, key string, job func()) error {
	select {
	case d.lanes[d.lane(key)] <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop closes the lanes and waits until queued jobs are done
func (d *dispatcher) stop() {
	for _, lane := range d.lanes {
		close(lane)
	}

	d.wg.Wait()
}
