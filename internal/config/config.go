// Package config handles application configuration and setup
package config

import (
	"fmt"
	"os"

	"github.com/retroenv/retroinfuse/internal/opcode"
	"github.com/retroenv/retrogolib/log"
)

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// LoadOpcodeTable loads the opcode table from a TOML file, or returns the
// built-in table if no file name is given.
func LoadOpcodeTable(fileName string) (*opcode.Table, error) {
	if fileName == "" {
		return opcode.Default(), nil
	}

	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("opening opcode table %s: %w", fileName, err)
	}
	defer func() { _ = file.Close() }()

	table, err := opcode.LoadTable(file)
	if err != nil {
		return nil, fmt.Errorf("loading opcode table %s: %w", fileName, err)
	}
	return table, nil
}
