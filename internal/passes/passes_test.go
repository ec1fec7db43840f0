package passes

import (
	"errors"
	"testing"

	"github.com/retroenv/retroinfuse/internal/instruction"
	"github.com/retroenv/retroinfuse/internal/opcode"
	"github.com/retroenv/retroinfuse/internal/sequence"
	"github.com/retroenv/retrogolib/assert"
)

var table = opcode.Default()

func op(t *testing.T, name string) *opcode.Opcode {
	t.Helper()
	o, ok := table.ByName(name)
	assert.True(t, ok)
	return o
}

func TestStripNops(t *testing.T) {
	nop := func() instruction.Instruction { return instruction.NewSimple(op(t, "nop")) }

	tests := []struct {
		name     string
		build    func() *sequence.Sequence
		removed  int
		expected string
	}{
		{
			name: "no nops",
			build: func() *sequence.Sequence {
				return sequence.New(instruction.NewSimple(op(t, "sreturn")))
			},
			expected: "0: sreturn\n",
		},
		{
			name: "targeted nop chain",
			build: func() *sequence.Sequence {
				return sequence.New(
					instruction.NewBranch(op(t, "goto"), 2),
					instruction.NewSimple(op(t, "pop")),
					nop(),
					nop(),
					instruction.NewSimple(op(t, "sreturn")),
					instruction.NewBranch(op(t, "ifeq"), 3),
				)
			},
			removed:  2,
			expected: "0: goto(2)\n1: pop\n2: sreturn\n3: ifeq(2)\n",
		},
		{
			name: "trailing targeted nop is kept",
			build: func() *sequence.Sequence {
				return sequence.New(
					instruction.NewBranch(op(t, "goto"), 2),
					nop(),
					nop(),
				)
			},
			removed:  1,
			expected: "0: goto(1)\n1: nop\n",
		},
		{
			name: "trailing nop without references",
			build: func() *sequence.Sequence {
				return sequence.New(instruction.NewSimple(op(t, "sreturn")), nop())
			},
			removed:  1,
			expected: "0: sreturn\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := tt.build()
			removed, err := StripNops(seq)
			assert.NoError(t, err)
			assert.Equal(t, tt.removed, removed)
			assert.Equal(t, tt.expected, seq.String())
		})
	}
}

func TestStripNops_Sealed(t *testing.T) {
	seq := sequence.New(instruction.NewSimple(op(t, "nop")))
	seq.Seal()
	_, err := StripNops(seq)
	assert.True(t, errors.Is(err, sequence.ErrSealed))
}

func TestThreadJumps(t *testing.T) {
	seq := sequence.New(
		instruction.NewBranch(op(t, "ifeq"), 2),
		instruction.NewSimple(op(t, "sreturn")),
		instruction.NewBranch(op(t, "goto"), 3),
		instruction.NewBranch(op(t, "goto"), 5),
		instruction.NewSwitch(op(t, "tableswitch"), 0, 2, 5),
		instruction.NewSimple(op(t, "return")),
		instruction.NewBranch(op(t, "goto"), 7),
		instruction.NewBranch(op(t, "goto"), 6),
	)

	changed, err := ThreadJumps(seq)
	assert.NoError(t, err)
	assert.Equal(t, 3, changed)
	assert.Equal(t, "ifeq(5)", seq.At(0).String())
	assert.Equal(t, "goto(5)", seq.At(2).String())
	assert.Equal(t, "tableswitch(5,5)", seq.At(4).String())
	// cycle is left alone
	assert.Equal(t, "goto(7)", seq.At(6).String())
	assert.Equal(t, "goto(6)", seq.At(7).String())
}
