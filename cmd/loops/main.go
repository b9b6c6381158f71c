package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/granary-project/granary/cmd/loops/recurring"
	kcd "github.com/granary-project/granary/pkg/configs/daemon"
	cfg_hook "github.com/granary-project/granary/pkg/configs/hook"
	"github.com/granary-project/granary/pkg/domain"
	"github.com/granary-project/granary/pkg/domain/granary"
	"github.com/granary-project/granary/pkg/utils/args"
	"github.com/granary-project/granary/pkg/utils/filewatch"
	"github.com/granary-project/granary/pkg/utils/try"
)

func main() {
	logger := log.Default()
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	// call cancel() when this function exits
	defer cancel()

	// define command line flags
	//-- path to config file
	pconfig := flag.String(
		"config", os.Getenv("GRANARY_DAEMON_CONFIG"), "path to config file",
	)
	pSchemaRepo := flag.String(
		"schema-repo", os.Getenv("GRANARY_SCHEMA"), "schema repository path",
	)
	phooks := flag.String(
		"hooks", os.Getenv("GRANARY_HOOK_CONFIG"), "path to hook config file",
	)
	//-- which loop type to run
	loopType := args.Parser(domain.AsLoopType)
	flag.Var(loopType, "type", "one of loop type")
	//-- loop policy
	policy := args.Parser(recurring.ParsePolicy)
	flag.Var(
		policy, "policy",
		`loop policy (syntax: forever[:COOLDOWN]|backlog).`+
			` "forever[:COOLDOWN]" = run forever until error. When backlog is over, `+
			`wait COOLDOWN (optional duration. default: 0) as inteval.`+
			` "backlog" = run until error or backlog is over.`,
	)
	// parse command line flags
	flag.Parse()

	{
		// watch config & hooks
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig, *phooks)
		if err != nil {
			logger.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(kcd.LoadDaemonConfig(*pconfig)).OrFatal(logger)

	gr := try.To(granary.New(
		ctx, conf.Database(), granary.WithSchemaRepository(*pSchemaRepo),
	)).OrFatal(logger)
	defer gr.Close()

	{
		ctx_, ccan := gr.Schema().Database().Context(ctx)
		defer ccan()
		ctx = ctx_
	}

	hooks := cfg_hook.Config{}
	if hookPath := *phooks; hookPath != "" {
		hooks = try.To(cfg_hook.Load(hookPath)).OrFatal(logger)
	}

	logger.Printf(
		`start loop "%s" /w policy "%s"`,
		loopType.Value().String(), policy.Value().String(),
	)

	err := StartLoop(
		ctx, logger, gr, conf,
		LoopManifest{
			Type:   loopType.Value(),
			Policy: recurring.UntilError(policy.Value()),
			Hooks:  hooks,
		},
	)

	if err == nil {
		return
	} else if errors.Is(err, context.Canceled) {
		logger.Fatal(err, "(loop context is cancelled by:", context.Cause(ctx), ")")
	}

	if ctx.Err() != nil {
		logger.Fatal(err)
	}
}
