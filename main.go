// Package main implements the main entry point for a bytecode infuser that resolves
// branch targets of logical instruction sequences into encoded bytecode.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/retroenv/retroinfuse/internal/cli"
	"github.com/retroenv/retroinfuse/internal/config"
	"github.com/retroenv/retroinfuse/internal/fileprocessor"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	opts, infuserOptions, err := cli.ParseFlags()
	if err != nil {
		logger := config.CreateLogger(opts.Debug, opts.Quiet)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			fileprocessor.PrintBanner(logger, opts, version, commit, date)
			usageErr.ShowUsage()
		} else {
			logger.Fatal(err.Error())
		}
		os.Exit(1)
	}

	logger := config.CreateLogger(opts.Debug, opts.Quiet)
	fileprocessor.PrintBanner(logger, opts, version, commit, date)

	table, err := config.LoadOpcodeTable(opts.Table)
	if err != nil {
		logger.Fatal(err.Error())
	}

	files, err := fileprocessor.GetFilesToProcess(&opts)
	if err != nil {
		logger.Fatal(err.Error())
	}

	if opts.Batch != "" {
		err = fileprocessor.ProcessBatch(ctx, logger, table, files, opts, infuserOptions)
	} else {
		err = fileprocessor.ProcessFile(ctx, logger, table, opts, infuserOptions)
	}
	if err != nil {
		// Handle context cancellation (Ctrl+C) gracefully
		if errors.Is(err, context.Canceled) {
			logger.Info("Operation cancelled")
			return
		}
		logger.Error("Processing failed", log.Err(err))
		os.Exit(1)
	}
}
