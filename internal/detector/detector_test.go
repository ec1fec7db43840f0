package detector

import (
	"testing"

	"github.com/retroenv/retroinfuse/internal/options"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestDetect(t *testing.T) {
	logger := log.NewTestLogger(t)
	d := New(logger)

	tests := []struct {
		name       string
		formatOpt  string
		inputFile  string
		wantFormat Format
	}{
		{
			name:       "explicit bytecode format option",
			formatOpt:  "bytecode",
			inputFile:  "method.ir",
			wantFormat: Bytecode,
		},
		{
			name:       "explicit text format option",
			formatOpt:  "IR",
			inputFile:  "method.dj",
			wantFormat: Text,
		},
		{
			name:       "detect from .ir extension",
			inputFile:  "method.ir",
			wantFormat: Text,
		},
		{
			name:       "detect from .jasm extension",
			inputFile:  "method.jasm",
			wantFormat: Text,
		},
		{
			name:       "detect from .dj extension",
			inputFile:  "method.DJ",
			wantFormat: Bytecode,
		},
		{
			name:       "detect from .bin extension",
			inputFile:  "method.bin",
			wantFormat: Bytecode,
		},
		{
			name:       "unknown extension defaults to text",
			inputFile:  "method.txt",
			wantFormat: Text,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := options.Program{
				Parameters: options.Parameters{Input: tt.inputFile},
				Flags:      options.Flags{Format: tt.formatOpt},
			}
			got, err := d.Detect(opts)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantFormat, got)
		})
	}
}

func TestDetect_InvalidFormat(t *testing.T) {
	d := New(log.NewTestLogger(t))
	opts := options.Program{Flags: options.Flags{Format: "class"}}

	_, err := d.Detect(opts)
	assert.ErrorContains(t, err, "unsupported input format 'class'")
}
