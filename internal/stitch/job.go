package stitch

import (
	"context"
	"sync"
)

// Job is a stitch running in the background.
type Job struct {
	done   chan struct{}
	once   sync.Once
	result Result
	err    error
}

// Start runs s in a new goroutine. The returned Job's Done channel closes
// once the artifact is fully written or the stitch fails.
func Start(ctx context.Context, s Stitcher, clips []Clip, out string) *Job {
	job := &Job{done: make(chan struct{})}
	go func() {
		result, err := s.Stitch(ctx, clips, out)
		job.finish(result, err)
	}()
	return job
}

func (j *Job) finish(result Result, err error) {
	j.once.Do(func() {
		j.result = result
		j.err = err
		close(j.done)
	})
}

// Done is closed when the stitch has completed.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the stitch completes or ctx ends.
func (j *Job) Wait(ctx context.Context) (Result, error) {
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
