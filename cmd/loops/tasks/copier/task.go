package copier

import (
	"context"

	"github.com/granary-project/granary/cmd/loops/recurring"
	"github.com/granary-project/granary/pkg/domain/copyjob"
)

// initial value for task
func Seed() struct{} {
	return struct{}{}
}

// return:
//
// - task: execute one QUEUED copy job.
func Task(runner *copyjob.Runner) recurring.Task[struct{}] {
	return func(ctx context.Context, value struct{}) (struct{}, bool, error) {
		worked, err := runner.RunOnce(ctx)
		return value, worked, err
	}
}
