// Package pipeline orchestrates the infuser workflow stages.
package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/retroenv/retroinfuse/internal/detector"
	"github.com/retroenv/retroinfuse/internal/dump"
	"github.com/retroenv/retroinfuse/internal/encoder"
	"github.com/retroenv/retroinfuse/internal/layout"
	"github.com/retroenv/retroinfuse/internal/loader"
	"github.com/retroenv/retroinfuse/internal/opcode"
	"github.com/retroenv/retroinfuse/internal/options"
	"github.com/retroenv/retroinfuse/internal/passes"
	"github.com/retroenv/retroinfuse/internal/sequence"
	"github.com/retroenv/retroinfuse/internal/symbols"
	"github.com/retroenv/retroinfuse/internal/verification"
	"github.com/retroenv/retroinfuse/internal/writer"
	"github.com/retroenv/retrogolib/log"
)

// Pipeline orchestrates the complete workflow from loading to encoding.
type Pipeline struct {
	logger   *log.Logger
	table    *opcode.Table
	detector *detector.Detector
	loader   *loader.Loader
}

// Result contains all outputs of one pipeline run.
type Result struct {
	Sequence   *sequence.Sequence
	Layout     *layout.Layout
	Code       []byte         // encoded bytecode
	Listing    []byte         // listing text
	Diagnostic []byte         // logical instruction form before resolution, if enabled
	Dump       *dump.Document // resolved layout document
}

// New creates a new pipeline using the given opcode table.
func New(logger *log.Logger, table *opcode.Table) *Pipeline {
	return &Pipeline{
		logger:   logger,
		table:    table,
		detector: detector.New(logger),
		loader:   loader.New(logger, table),
	}
}

// Execute runs the complete pipeline for the input file of the options.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, infuserOpts options.Infuser) (*Result, error) {
	format, err := p.detector.Detect(opts)
	if err != nil {
		return nil, fmt.Errorf("detecting input format: %w", err)
	}

	seq, labels, err := p.loader.Load(opts, format)
	if err != nil {
		return nil, fmt.Errorf("loading input: %w", err)
	}

	if !opts.Quiet {
		p.logger.Info("Processing file",
			log.String("file", opts.Input),
			log.Stringer("format", format),
			log.Int("instructions", seq.Len()))
	}

	// bind source labels before passes change the indices
	return p.execute(ctx, seq, labels.Bind(seq), opts, infuserOpts)
}

// ExecuteWithSequence runs the pipeline with a pre-loaded sequence.
// This is useful for testing and programmatic usage where the sequence is already in memory.
// All targets of the listing get generated label names.
func (p *Pipeline) ExecuteWithSequence(ctx context.Context, seq *sequence.Sequence, opts options.Program,
	infuserOpts options.Infuser) (*Result, error) {

	return p.execute(ctx, seq, nil, opts, infuserOpts)
}

func (p *Pipeline) execute(ctx context.Context, seq *sequence.Sequence, names symbols.Names,
	opts options.Program, infuserOpts options.Infuser) (*Result, error) {

	if err := p.runPasses(ctx, seq, infuserOpts); err != nil {
		return nil, err
	}

	var diagnostic []byte
	if infuserOpts.Diagnostic {
		buf := &bytes.Buffer{}
		if err := writer.New(buf, writer.Options{}).WriteSequence(seq); err != nil {
			return nil, fmt.Errorf("writing diagnostic form: %w", err)
		}
		diagnostic = buf.Bytes()
	}

	snapshot := verification.Take(seq)
	resolver := layout.New(p.logger, layout.Options{MaxIterations: infuserOpts.MaxIterations})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolving layout: %w", err)
	}
	result, err := resolver.Resolve(seq)
	if err != nil {
		return nil, fmt.Errorf("resolving layout: %w", err)
	}

	code, err := encoder.Encode(seq)
	if err != nil {
		return nil, fmt.Errorf("encoding: %w", err)
	}

	listing, err := p.writeListing(seq, result, code, names, infuserOpts)
	if err != nil {
		return nil, fmt.Errorf("writing listing: %w", err)
	}

	doc, err := dump.Build(seq, result)
	if err != nil {
		return nil, fmt.Errorf("building layout dump: %w", err)
	}

	// Verify output (if requested)
	if opts.Verify {
		verifier := verification.New(p.logger, p.table, resolver)
		if err := verifier.VerifyOutput(snapshot, code); err != nil {
			return nil, fmt.Errorf("verification failed: %w", err)
		}
		if err := verifier.VerifyListing(snapshot, listing, code); err != nil {
			return nil, fmt.Errorf("listing verification failed: %w", err)
		}
		p.logger.Info("Verification successful")
	}

	return &Result{
		Sequence:   seq,
		Layout:     result,
		Code:       code,
		Listing:    listing,
		Diagnostic: diagnostic,
		Dump:       doc,
	}, nil
}

// runPasses applies the enabled transformation passes.
func (p *Pipeline) runPasses(ctx context.Context, seq *sequence.Sequence, infuserOpts options.Infuser) error {
	if infuserOpts.StripNops {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stripping nops: %w", err)
		}
		removed, err := passes.StripNops(seq)
		if err != nil {
			return fmt.Errorf("stripping nops: %w", err)
		}
		p.logger.Debug("Stripped nops", log.Int("removed", removed))
	}

	if infuserOpts.ThreadJumps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("threading jumps: %w", err)
		}
		changed, err := passes.ThreadJumps(seq)
		if err != nil {
			return fmt.Errorf("threading jumps: %w", err)
		}
		p.logger.Debug("Threaded jumps", log.Int("changed", changed))
	}
	return nil
}

// writeListing renders the listing of the resolved sequence.
func (p *Pipeline) writeListing(seq *sequence.Sequence, result *layout.Layout, code []byte,
	names symbols.Names, infuserOpts options.Infuser) ([]byte, error) {

	buf := &bytes.Buffer{}
	w := writer.New(buf, writer.Options{
		HexComments:    infuserOpts.HexComments,
		OffsetComments: infuserOpts.OffsetComments,
		Labels:         names,
	})
	if err := w.WriteCommentHeader(code, result.Iterations); err != nil {
		return nil, err
	}
	if err := w.WriteListing(seq, code); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
