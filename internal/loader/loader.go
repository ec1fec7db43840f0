// Package loader handles input file loading operations.
package loader

import (
	"fmt"
	"io"
	"os"

	"github.com/retroenv/retroinfuse/internal/detector"
	"github.com/retroenv/retroinfuse/internal/encoder"
	"github.com/retroenv/retroinfuse/internal/opcode"
	"github.com/retroenv/retroinfuse/internal/options"
	"github.com/retroenv/retroinfuse/internal/parser"
	"github.com/retroenv/retroinfuse/internal/sequence"
	"github.com/retroenv/retroinfuse/internal/symbols"
	"github.com/retroenv/retrogolib/log"
)

// Loader handles loading instruction sequences from disk.
type Loader struct {
	logger *log.Logger
	table  *opcode.Table
}

// New creates a new loader using the given opcode table.
func New(logger *log.Logger, table *opcode.Table) *Loader {
	return &Loader{
		logger: logger,
		table:  table,
	}
}

// Load opens the input file and reads it in the given format. The returned label
// table is empty for formats without labels.
func (l *Loader) Load(opts options.Program, format detector.Format) (*sequence.Sequence, *symbols.Table, error) {
	file, err := os.Open(opts.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file %s: %w", opts.Input, err)
	}
	defer func() { _ = file.Close() }()

	seq, labels, err := l.LoadReader(file, format)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", opts.Input, err)
	}
	return seq, labels, nil
}

// LoadReader reads a sequence and its labels in the given format.
func (l *Loader) LoadReader(reader io.Reader, format detector.Format) (*sequence.Sequence, *symbols.Table, error) {
	switch format {
	case detector.Text:
		seq, labels, err := parser.New(l.logger, l.table).Parse(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing text: %w", err)
		}
		l.logger.Debug("Loaded text input",
			log.Int("instructions", seq.Len()),
			log.Int("labels", labels.Len()))
		return seq, labels, nil

	case detector.Bytecode:
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("reading bytecode: %w", err)
		}
		seq, err := encoder.Decode(l.table, data)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding bytecode: %w", err)
		}
		return seq, symbols.New(), nil

	default:
		return nil, nil, fmt.Errorf("unsupported input format '%s'", format)
	}
}
