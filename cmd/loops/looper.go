package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/granary-project/granary/cmd/loops/hook"
	"github.com/granary-project/granary/cmd/loops/recurring"
	"github.com/granary-project/granary/cmd/loops/tasks/copier"
	"github.com/granary-project/granary/cmd/loops/tasks/publisher"
	apiqueue "github.com/granary-project/granary/pkg/api/types/queue"
	kcd "github.com/granary-project/granary/pkg/configs/daemon"
	cfg_hook "github.com/granary-project/granary/pkg/configs/hook"
	"github.com/granary-project/granary/pkg/conn/db/postgres/pool/proxy"
	"github.com/granary-project/granary/pkg/domain"
	"github.com/granary-project/granary/pkg/domain/copyjob"
	"github.com/granary-project/granary/pkg/domain/domination"
	"github.com/granary-project/granary/pkg/domain/granary"
	"github.com/granary-project/granary/pkg/domain/pool"
	"github.com/granary-project/granary/pkg/domain/publishing"
	"github.com/granary-project/granary/pkg/domain/publishing/store"
	"github.com/granary-project/granary/pkg/domain/queue"
	"github.com/granary-project/granary/pkg/loop"
)

type LoggerOptions func(*log.Logger) *log.Logger

func byLogger(l *log.Logger, opt ...LoggerOptions) *log.Logger {
	for _, o := range opt {
		l = o(l)
	}
	return l
}

func Copied() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		return log.New(l.Writer(), l.Prefix(), l.Flags())
	}
}

func WithPrefix(pre string) LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetPrefix(pre)
		return l
	}
}

func WithTimestamp() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetFlags(l.Flags() | log.Ldate | log.Ltime | log.Lmicroseconds)
		return l
	}
}

// countStatements hooks the pool's query event and returns a reader
// of the number of SQL statements sent so far.
func countStatements(events *proxy.SQLEvents) func() uint64 {
	var n uint64
	events.Query.After(func() { n += 1 })
	return func() uint64 { return n }
}

// Wrapper for monitoring loop tasks
//
//	Log the start and end of each time a task is executed. Essentially, it executes a task.
func monitor[T any](logger *log.Logger, statements func() uint64, task loop.Task[T]) loop.Task[T] {
	// counter for execution of the task
	var counter uint64
	return func(ctx context.Context, t T) (ret T, next loop.Next) {
		// func() capture the 'counter' variable
		counter += 1
		timestamp := time.Now()
		sqlBefore := statements()

		logger.Printf("task start: #0x%X: ", counter)

		// log at the end of the task
		defer func() {
			logger.Printf(
				"task end: #0x%X (takes %s, %d sql statements): %s\n with value = %#v",
				counter, time.Since(timestamp), statements()-sqlBefore, next, ret,
			)
		}()

		// execute the task specified by the argument
		ret, next = task(ctx, t)
		return
	}
}

// Manifest for starting a loop, which determines how the loop should behave.
type LoopManifest struct {
	// Which loop to run
	Type domain.LoopType

	// Policy for the looping
	Policy recurring.Policy

	// Hooks for the looping
	Hooks cfg_hook.Config
}

func mergeEmptyStruct(a, b struct{}) struct{} {
	return struct{}{}
}

func StartLoop(
	ctx context.Context,
	logger *log.Logger,
	gr granary.Granary,
	conf *kcd.DaemonConfig,
	manifest LoopManifest,
) error {
	switch manifest.Type {
	case domain.Publisher:
		return StartPublisherLoop(ctx, logger, gr, conf, manifest)
	case domain.Copier:
		return StartCopierLoop(ctx, logger, gr, manifest)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknwonLoopType, manifest.Type)
	}
}

// Start publisher loop
//
// Args:
//
// - ctx
//
// - logger : logger for monitoring loop.
//
// - gr : database aggregation
//
// - conf : daemon configuration (pool root, store root, stay of execution)
//
// - manifest
func StartPublisherLoop(
	ctx context.Context,
	logger *log.Logger,
	gr granary.Granary,
	conf *kcd.DaemonConfig,
	manifest LoopManifest,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[publisher loop]"))

	st := store.NewDir(conf.Publisher().StoreRoot())
	runner := copyjob.New(
		gr.CopyJob().Database(),
		gr.Registry().Database(),
		gr.Publishing().Database(),
		gr.Queue().Database(),
		copyjob.WithLogger(l),
	)
	queues := queue.New(
		gr.Queue().Database(),
		gr.Registry().Database(),
		gr.Publishing().Database(),
		st,
		queue.WithCopyRunner(runner),
		queue.WithLogger(l),
	)

	_, err := loop.Start(
		ctx, publisher.Seed(),
		monitor(
			l,
			countStatements(gr.Events()),
			publisher.Task(
				l,
				gr.Queue().Database(),
				queues,
				publishing.NewPublisher(
					gr.Publishing().Database(),
					st,
					pool.New(conf.Publisher().PoolRoot()),
					publishing.WithLogger(l),
				),
				domination.New(
					domination.WithStayOfExecution(conf.Domination().StayOfExecution()),
				),
				gr.Publishing().Database(),
				hook.Build[apiqueue.Summary](manifest.Hooks.Lifecycle, mergeEmptyStruct),
			).Applied(manifest.Policy),
		),
	)
	return err
}

func StartCopierLoop(
	ctx context.Context,
	logger *log.Logger,
	gr granary.Granary,
	manifest LoopManifest,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[copier loop]"))
	runner := copyjob.New(
		gr.CopyJob().Database(),
		gr.Registry().Database(),
		gr.Publishing().Database(),
		gr.Queue().Database(),
		copyjob.WithLogger(l),
	)
	_, err := loop.Start(
		ctx, copier.Seed(),
		monitor(
			l,
			countStatements(gr.Events()),
			copier.Task(runner).Applied(manifest.Policy),
		),
		loop.WithTimeout(30*time.Second),
	)
	return err
}
