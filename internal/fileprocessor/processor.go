// Package fileprocessor handles file loading and processing operations
package fileprocessor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/retroinfuse/internal/dump"
	"github.com/retroenv/retroinfuse/internal/opcode"
	"github.com/retroenv/retroinfuse/internal/options"
	"github.com/retroenv/retroinfuse/internal/pipeline"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/sync/errgroup"
)

const appName = "retroinfuse"

// Output file extensions used in batch mode.
const (
	BytecodeExtension = ".bin"
	ListingExtension  = ".lst"
	DumpExtension     = ".cbor"
)

// ProcessFile handles the complete file processing workflow
func ProcessFile(ctx context.Context, logger *log.Logger, table *opcode.Table, opts options.Program,
	infuserOpts options.Infuser) error {

	p := pipeline.New(logger, table)
	result, err := p.Execute(ctx, opts, infuserOpts)
	if err != nil {
		return err
	}

	if infuserOpts.Diagnostic {
		if _, err := os.Stdout.Write(result.Diagnostic); err != nil {
			return fmt.Errorf("writing diagnostic form: %w", err)
		}
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, result.Code, 0644); err != nil {
			return fmt.Errorf("writing output file %s: %w", opts.Output, err)
		}
	}

	if err := writeListing(opts, result.Listing); err != nil {
		return err
	}

	if opts.Dump != "" {
		if err := writeDump(opts.Dump, result.Dump); err != nil {
			return err
		}
	}

	if !opts.Quiet {
		logger.Info("Processed file",
			log.String("file", opts.Input),
			log.Int("size", result.Layout.Size),
			log.Int("iterations", result.Layout.Iterations))
	}
	return nil
}

// ProcessBatch processes all files in parallel, limited by the configured number of jobs.
// Failing files are logged and reported as a combined error at the end.
func ProcessBatch(ctx context.Context, logger *log.Logger, table *opcode.Table, files []string,
	opts options.Program, infuserOpts options.Infuser) error {

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(max(opts.Jobs, 1))

	failed := make([]bool, len(files))
	for i, file := range files {
		fileOpts := opts
		fileOpts.Input = file
		fileOpts.Output = GenerateOutputFilename(file, BytecodeExtension)
		fileOpts.Listing = GenerateOutputFilename(file, ListingExtension)
		if opts.Dump != "" {
			fileOpts.Dump = GenerateOutputFilename(file, DumpExtension)
		}

		group.Go(func() error {
			err := ProcessFile(ctx, logger, table, fileOpts, infuserOpts)
			if err == nil {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.Error("Processing failed", log.String("file", file), log.Err(err))
			failed[i] = true
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	var failures int
	for _, f := range failed {
		if f {
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d files failed", failures, len(files))
	}
	return nil
}

// GetFilesToProcess returns list of files to process based on options
func GetFilesToProcess(opts *options.Program) ([]string, error) {
	if opts.Batch != "" {
		matches, err := filepath.Glob(opts.Batch)
		if err != nil {
			return nil, fmt.Errorf("globbing batch pattern: %w", err)
		}
		return matches, nil
	}
	return []string{opts.Input}, nil
}

// GenerateOutputFilename generates an output filename with the given extension for an input file.
// An extra .out suffix is inserted if the result would overwrite the input file.
func GenerateOutputFilename(inputFile, extension string) string {
	ext := filepath.Ext(inputFile)
	base := inputFile[:len(inputFile)-len(ext)]
	name := base + extension
	if name == inputFile {
		name = base + ".out" + extension
	}
	return name
}

// writeListing writes the listing to the listing file. Without any output file
// configured the listing is printed on the console.
func writeListing(opts options.Program, listing []byte) error {
	var writer io.Writer
	switch {
	case opts.Listing != "":
		file, err := os.Create(opts.Listing)
		if err != nil {
			return fmt.Errorf("creating listing file %s: %w", opts.Listing, err)
		}
		defer func() { _ = file.Close() }()
		writer = file

	case opts.Output == "" && opts.Dump == "":
		writer = os.Stdout

	default:
		return nil
	}

	if _, err := writer.Write(listing); err != nil {
		return fmt.Errorf("writing listing: %w", err)
	}
	return nil
}

func writeDump(fileName string, doc *dump.Document) error {
	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("creating dump file %s: %w", fileName, err)
	}
	defer func() { _ = file.Close() }()

	if err := dump.Write(file, doc); err != nil {
		return fmt.Errorf("writing dump file %s: %w", fileName, err)
	}
	return nil
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	versionString := version
	if commit != "" {
		if len(commit) > 7 {
			commit = commit[:7]
		}
		versionString += fmt.Sprintf(" (%s)", commit)
	}

	logger.Info(appName, log.String("version", versionString))

	if date != "" && !strings.Contains(date, "unknown") {
		logger.Info("Build", log.String("date", date))
	}
}
