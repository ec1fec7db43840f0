package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/retroenv/retroinfuse/internal/instruction"
	"github.com/retroenv/retroinfuse/internal/opcode"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func newParser(t *testing.T) *Parser {
	t.Helper()
	return New(log.NewTestLogger(t), opcode.Default())
}

func TestParse(t *testing.T) {
	input := `
; count down
start:  sspush 0x1234
loop:
        sload 0
        IFEQ exit          ; leave the loop
        sinc 0, -1
        goto loop
        tableswitch -1 exit, loop, exit
exit:   sreturn
`
	seq, labels, err := newParser(t).Parse(strings.NewReader(input))
	assert.NoError(t, err)

	expected := "0: sspush\n1: sload\n2: ifeq(6)\n3: sinc\n4: goto(1)\n5: tableswitch(6,1,6)\n6: sreturn\n"
	assert.Equal(t, expected, seq.String())

	sspush, ok := seq.At(0).(*instruction.Simple)
	assert.True(t, ok)
	assert.Equal(t, []byte{0x12, 0x34}, sspush.Operands())

	sinc, ok := seq.At(3).(*instruction.Simple)
	assert.True(t, ok)
	assert.Equal(t, []byte{0x00, 0xff}, sinc.Operands())

	tableSwitch, ok := seq.At(5).(*instruction.Switch)
	assert.True(t, ok)
	assert.Equal(t, -1, tableSwitch.Low())

	assert.Equal(t, 3, labels.Len())
	assert.True(t, labels.IsUsed("loop"))
	assert.False(t, labels.IsUsed("start"))
	label, ok := labels.Lookup("exit")
	assert.True(t, ok)
	assert.Equal(t, instruction.Index(6), label.Index)
	assert.Equal(t, 10, label.Line)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		line        int
		errContains string
	}{
		{"unknown opcode", "nop\nfoo\n", 2, "unknown opcode 'foo'"},
		{"undefined label", "goto nowhere\n", 1, "undefined label 'nowhere'"},
		{"duplicate label", "a: nop\na: nop\n", 2, "already defined"},
		{"invalid label", "1a: nop\n", 1, "invalid label name"},
		{"trailing label", "nop\nend:\n", 2, "not followed by an instruction"},
		{"missing branch operand", "goto\n", 1, "expected 1 label operand"},
		{"unexpected operand", "nop 1\n", 1, "expected no operands"},
		{"operand too large", "bspush 256\n", 1, "invalid byte operand"},
		{"wide operand too large", "sspush 0x10000\n", 1, "invalid 2 byte operand"},
		{"switch without default", "x: tableswitch 0\n", 1, "expected low value and default label"},
		{"switch low invalid", "x: tableswitch zero x\n", 1, "invalid low value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newParser(t).Parse(strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.errContains)

			var parseErr *Error
			assert.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.line, parseErr.Line)
		})
	}
}

func TestParseOperands(t *testing.T) {
	tests := []struct {
		name     string
		operands []string
		size     int
		expected []byte
		wantErr  bool
	}{
		{name: "none", size: 0},
		{name: "byte", operands: []string{"7"}, size: 1, expected: []byte{7}},
		{name: "negative byte", operands: []string{"-2"}, size: 1, expected: []byte{0xfe}},
		{name: "bytes", operands: []string{"1", "0x02"}, size: 2, expected: []byte{1, 2}},
		{name: "wide value", operands: []string{"-1"}, size: 2, expected: []byte{0xff, 0xff}},
		{name: "wide unsigned", operands: []string{"0xbeef"}, size: 2, expected: []byte{0xbe, 0xef}},
		{name: "wrong count", operands: []string{"1", "2"}, size: 1, wantErr: true},
		{name: "not a number", operands: []string{"x"}, size: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := parseOperands(tt.operands, tt.size)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, len(tt.expected), len(data))
			for i := range tt.expected {
				assert.Equal(t, tt.expected[i], data[i])
			}
		})
	}
}
