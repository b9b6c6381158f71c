package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	kcd "github.com/granary-project/granary/pkg/configs/daemon"
	"github.com/granary-project/granary/pkg/domain/granary"
	"github.com/granary-project/granary/pkg/utils/try"
)

func main() {
	logger := log.Default()
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	defer cancel()

	pconfig := flag.String(
		"config", os.Getenv("GRANARY_DAEMON_CONFIG"), "path to config file",
	)
	pSchemaRepo := flag.String(
		"schema-repo", os.Getenv("GRANARY_SCHEMA"), "schema repository path",
	)
	pdest := flag.String(
		"copy-to", "", "copy the schema repository to this directory before upgrading",
	)
	flag.Parse()

	conf := try.To(kcd.LoadDaemonConfig(*pconfig)).OrFatal(logger)

	if *pdest != "" {
		logger.Printf("copying schema files to %s ...", *pdest)
		if err := os.CopyFS(*pdest, os.DirFS(*pSchemaRepo)); err != nil {
			logger.Fatal(err)
		}
	}

	gr := try.To(granary.New(
		ctx, conf.Database(),
		granary.WithSchemaRepository(*pSchemaRepo),
	)).OrFatal(logger)
	defer gr.Close()

	if err := gr.Schema().Database().Upgrade(ctx); err != nil {
		logger.Fatal(err)
	}

	version := try.To(gr.Schema().Database().Version(ctx)).OrFatal(logger)
	logger.Printf("database schema is at version %d", version)
}
