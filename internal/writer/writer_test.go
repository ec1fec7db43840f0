package writer

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/retroenv/retroinfuse/internal/encoder"
	"github.com/retroenv/retroinfuse/internal/layout"
	"github.com/retroenv/retroinfuse/internal/opcode"
	"github.com/retroenv/retroinfuse/internal/parser"
	"github.com/retroenv/retroinfuse/internal/sequence"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

const testInput = `
        sconst_0
        ifeq done
        bspush 5
        tableswitch 0 done, done
done:   sreturn
`

func parseAndResolve(t *testing.T, input string) (*sequence.Sequence, []byte) {
	t.Helper()
	logger := log.NewTestLogger(t)

	seq, _, err := parser.New(logger, opcode.Default()).Parse(strings.NewReader(input))
	assert.NoError(t, err)
	_, err = layout.New(logger, layout.Options{}).Resolve(seq)
	assert.NoError(t, err)
	data, err := encoder.Encode(seq)
	assert.NoError(t, err)
	return seq, data
}

func TestWriteListing(t *testing.T) {
	seq, data := parseAndResolve(t, testInput)

	buf := &bytes.Buffer{}
	w := New(buf, Options{OffsetComments: true, HexComments: true})
	assert.NoError(t, w.WriteListing(seq, data))

	line := func(code, comment string) string {
		return fmt.Sprintf("  %-30s ; %s\n", code, comment)
	}
	expected := line("sconst_0", "$0000  03") +
		line("ifeq _label_000e", "$0001  D0 0D") +
		line("bspush 0x05", "$0003  10 05") +
		line("tableswitch 0, _label_000e, _label_000e", "$0005  AA 00 00 00 01 00 09 00 ..") +
		"\n" +
		"_label_000e:\n" +
		line("sreturn", "$000E  AC")
	assert.Equal(t, expected, buf.String())
}

func TestWriteListing_SourceLabels(t *testing.T) {
	logger := log.NewTestLogger(t)
	seq, labels, err := parser.New(logger, opcode.Default()).Parse(strings.NewReader(testInput))
	assert.NoError(t, err)
	names := labels.Bind(seq)
	_, err = layout.New(logger, layout.Options{}).Resolve(seq)
	assert.NoError(t, err)

	buf := &bytes.Buffer{}
	assert.NoError(t, New(buf, Options{Labels: names}).WriteListing(seq, nil))

	expected := "  sconst_0\n" +
		"  ifeq done\n" +
		"  bspush 0x05\n" +
		"  tableswitch 0, done, done\n" +
		"\n" +
		"done:\n" +
		"  sreturn\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteListing_GeneratedNameClash(t *testing.T) {
	input := `
start:        goto _label_0000
_label_0000:  goto start
`
	logger := log.NewTestLogger(t)
	seq, labels, err := parser.New(logger, opcode.Default()).Parse(strings.NewReader(input))
	assert.NoError(t, err)
	names := labels.Bind(seq)
	delete(names, seq.At(0))
	_, err = layout.New(logger, layout.Options{}).Resolve(seq)
	assert.NoError(t, err)

	buf := &bytes.Buffer{}
	assert.NoError(t, New(buf, Options{Labels: names}).WriteListing(seq, nil))

	expected := "_label_0000_:\n" +
		"  goto _label_0000\n" +
		"\n" +
		"_label_0000:\n" +
		"  goto _label_0000_\n"
	assert.Equal(t, expected, buf.String())

	reparsed, _, err := parser.New(logger, opcode.Default()).Parse(strings.NewReader(buf.String()))
	assert.NoError(t, err)
	assert.Equal(t, seq.String(), reparsed.String())
}

func TestWriteListing_Reparse(t *testing.T) {
	seq, data := parseAndResolve(t, testInput)

	buf := &bytes.Buffer{}
	assert.NoError(t, New(buf, Options{}).WriteListing(seq, data))

	reparsed, reparsedData := parseAndResolve(t, buf.String())
	assert.Equal(t, seq.String(), reparsed.String())
	assert.Equal(t, data, reparsedData)
}

func TestWriteListing_Unresolved(t *testing.T) {
	seq := sequence.New()
	err := New(&bytes.Buffer{}, Options{}).WriteListing(seq, nil)
	assert.ErrorContains(t, err, "requires a resolved sequence")
}

func TestWriteSequence(t *testing.T) {
	seq, _, err := parser.New(log.NewTestLogger(t), opcode.Default()).Parse(strings.NewReader(testInput))
	assert.NoError(t, err)

	buf := &bytes.Buffer{}
	assert.NoError(t, New(buf, Options{}).WriteSequence(seq))
	assert.Equal(t, "0: sconst_0\n1: ifeq(4)\n2: bspush\n3: tableswitch(4,4)\n4: sreturn\n", buf.String())
}

func TestWriteCommentHeader(t *testing.T) {
	buf := &bytes.Buffer{}
	assert.NoError(t, New(buf, Options{}).WriteCommentHeader([]byte{0xb1}, 1))

	output := buf.String()
	assert.Contains(t, output, "; Bytecode CRC32 checksum: ")
	assert.Contains(t, output, "; Code size: 1 bytes\n")
	assert.Contains(t, output, "; Layout iterations: 1\n\n")
}
