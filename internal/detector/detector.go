// Package detector handles input format detection.
package detector

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/retroenv/retroinfuse/internal/options"
	"github.com/retroenv/retrogolib/log"
)

// Format is the encoding of an input file.
type Format string

// supported input formats.
const (
	Text     Format = "ir"
	Bytecode Format = "bytecode"
)

func (f Format) String() string {
	return string(f)
}

// FormatFromString returns the format for the given name. An empty name
// returns an empty format without error.
func FormatFromString(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "":
		return "", nil
	case "ir", "text", "jasm":
		return Text, nil
	case "bytecode", "bin", "dj":
		return Bytecode, nil
	default:
		return "", fmt.Errorf("unsupported input format '%s'", name)
	}
}

// Detector handles input format detection from file extensions and options.
type Detector struct {
	logger *log.Logger
}

// New creates a new format detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the input format from options or file auto-detection.
// It first checks if a format is explicitly specified in options, otherwise
// attempts to detect the format from the input filename extension.
func (d *Detector) Detect(opts options.Program) (Format, error) {
	format, err := FormatFromString(opts.Format)
	if err != nil {
		return "", err
	}
	if format == "" {
		format = d.detectFromFile(opts.Input)
		d.logger.Debug("Auto-detected input format",
			log.Stringer("format", format),
			log.String("file", opts.Input))
	}
	return format, nil
}

// detectFromFile determines the format based on file extension.
func (d *Detector) detectFromFile(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".bin", ".dj":
		return Bytecode
	default:
		// .ir, .jasm and unknown extensions are read as text
		return Text
	}
}
