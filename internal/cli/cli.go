// Package cli handles command line interface logic
package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/retroenv/retroinfuse/internal/detector"
	"github.com/retroenv/retroinfuse/internal/options"
)

// ParseFlags parses command line flags and returns program and infuser options
func ParseFlags() (options.Program, options.Infuser, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options.Program
	readOptionFlags(flags, &opts)

	var noHexComments, noOffsets bool
	flags.BoolVar(&noHexComments, "nohexcomments", false, "do not output opcode bytes as hex values in listing comments")
	flags.BoolVar(&noOffsets, "nooffsets", false, "do not output offsets in listing comments")

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || (len(args) == 0 && opts.Batch == "") {
		return opts, options.Infuser{}, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, options.Infuser{}, err
	}

	if err := normalizeOptions(&opts); err != nil {
		return opts, options.Infuser{}, err
	}

	if opts.Batch == "" {
		opts.Input = args[0]
	}
	opts.NoHexComments = noHexComments
	opts.NoOffsets = noOffsets

	return opts, createInfuserOptions(opts), nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: retroinfuse [options] <file to process>\n\n")
	if e.flags != nil {
		e.flags.PrintDefaults()
	}
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && strings.HasPrefix(arg, "-") {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after file to process, please pass the file to process as last argument", arg),
			}
		}
	}
	return nil
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program) error {
	opts.Format = strings.ToLower(opts.Format)
	if _, err := detector.FormatFromString(opts.Format); err != nil {
		return err
	}

	if opts.Jobs < 1 {
		return fmt.Errorf("invalid number of jobs %d, at least 1 is required", opts.Jobs)
	}
	if opts.MaxIterations < 0 {
		return fmt.Errorf("invalid iteration limit %d", opts.MaxIterations)
	}
	return nil
}

// createInfuserOptions creates infuser options based on program options
func createInfuserOptions(opts options.Program) options.Infuser {
	infuserOptions := options.NewInfuser()
	infuserOptions.MaxIterations = opts.MaxIterations
	infuserOptions.StripNops = opts.StripNops
	infuserOptions.ThreadJumps = opts.ThreadJumps
	infuserOptions.Diagnostic = opts.Diagnostic

	// Apply inverse logic for hex comments and offsets
	infuserOptions.HexComments = !opts.NoHexComments
	infuserOptions.OffsetComments = !opts.NoOffsets
	return infuserOptions
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Input, "i", "", "name of the input file")
	flags.StringVar(&opts.Output, "o", "", "name of the output bytecode file")
	flags.StringVar(&opts.Listing, "l", "", "name of the output listing file, printed on console if no output file is given")
	flags.StringVar(&opts.Dump, "dump", "", "name of the CBOR layout dump file to write")
	flags.StringVar(&opts.Table, "t", "", "name of an opcode table TOML file to use instead of the built-in table")
	flags.StringVar(&opts.Batch, "batch", "", "process a batch of given path and file mask and automatically name the output files, for example *.ir")
	flags.StringVar(&opts.Format, "f", "", "input format (ir, bytecode) - if not auto-detected from file extension")
	flags.BoolVar(&opts.StripNops, "strip-nops", false, "remove nop instructions before resolving the layout")
	flags.BoolVar(&opts.ThreadJumps, "thread-jumps", false, "retarget branches to the final destination of goto chains")
	flags.IntVar(&opts.MaxIterations, "max-iterations", 32, "layout relaxation iteration limit")
	flags.IntVar(&opts.Jobs, "j", 4, "number of files to process in parallel in batch mode")
	flags.BoolVar(&opts.Verify, "verify", false, "verify the generated output by decoding it and check if it matches the input")
	flags.BoolVar(&opts.Diagnostic, "diag", false, "print the logical instruction form before resolving")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
}
