package verification

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/retroenv/retroinfuse/internal/config"
	"github.com/retroenv/retroinfuse/internal/encoder"
	"github.com/retroenv/retroinfuse/internal/layout"
	"github.com/retroenv/retroinfuse/internal/opcode"
	"github.com/retroenv/retroinfuse/internal/parser"
	"github.com/retroenv/retroinfuse/internal/writer"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

const testInput = `
        sconst_0
        ifeq done
        bspush 5
done:   sreturn
`

type fixture struct {
	verifier *Verifier
	snapshot *Snapshot
	data     []byte
	listing  []byte
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := log.NewTestLogger(t)
	table := opcode.Default()
	resolver := layout.New(logger, layout.Options{})

	seq, _, err := parser.New(logger, table).Parse(strings.NewReader(testInput))
	assert.NoError(t, err)
	snapshot := Take(seq)

	_, err = resolver.Resolve(seq)
	assert.NoError(t, err)
	data, err := encoder.Encode(seq)
	assert.NoError(t, err)

	buf := &bytes.Buffer{}
	assert.NoError(t, writer.New(buf, writer.Options{}).WriteListing(seq, data))

	return fixture{
		verifier: New(mismatchLogger(), table, resolver),
		snapshot: snapshot,
		data:     data,
		listing:  buf.Bytes(),
	}
}

func TestVerifyOutput(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []byte{0x03, 0xd0, 0x04, 0x10, 0x05, 0xac}, f.data)
	assert.Equal(t, 4, f.snapshot.Len())

	assert.NoError(t, f.verifier.VerifyOutput(f.snapshot, f.data))
	assert.NoError(t, f.verifier.VerifyListing(f.snapshot, f.listing, f.data))
}

func TestVerifyOutput_Mismatches(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		errContains string
	}{
		{"misaligned target", []byte{0x03, 0xd0, 0x03, 0x10, 0x05, 0xac}, "not an instruction start"},
		{"changed operand", []byte{0x03, 0xd0, 0x04, 0x10, 0x06, 0xac}, "1 instruction mismatches"},
		{"changed opcode", []byte{0x04, 0xd0, 0x04, 0x10, 0x05, 0xac}, "1 instruction mismatches"},
		{"missing instruction", []byte{0x03, 0xd0, 0x02, 0xac}, "mismatched instruction counts"},
		{"long branch form", []byte{0x03, 0x99, 0x00, 0x05, 0x10, 0x05, 0xac}, "mismatched lengths"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			err := f.verifier.VerifyOutput(f.snapshot, tt.data)
			assert.ErrorContains(t, err, tt.errContains)
		})
	}
}

func TestVerifyListing_Mismatch(t *testing.T) {
	f := newFixture(t)
	listing := strings.Replace(string(f.listing), "bspush 0x05", "bspush 0x07", 1)

	err := f.verifier.VerifyListing(f.snapshot, []byte(listing), f.data)
	assert.ErrorContains(t, err, "comparing listing")

	var parseErr *parser.Error
	err = f.verifier.VerifyListing(f.snapshot, []byte("unknown\n"), f.data)
	assert.True(t, errors.As(err, &parseErr))
}

func TestCheckBufferEqual(t *testing.T) {
	logger := mismatchLogger()

	assert.NoError(t, checkBufferEqual(logger, []byte{1, 2, 3}, []byte{1, 2, 3}))
	assert.ErrorContains(t, checkBufferEqual(logger, []byte{1, 2}, []byte{1}), "mismatched lengths, 2 != 1")
	assert.ErrorContains(t, checkBufferEqual(logger, []byte{1, 2, 3}, []byte{0, 2, 0}), "2 offset mismatches")
}

// mismatchLogger returns a logger for code paths that log mismatches at error
// level, which the test logger would report as a test failure.
func mismatchLogger() *log.Logger {
	return config.CreateLogger(false, true)
}
