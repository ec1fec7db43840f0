package instruction

import (
	"testing"

	"github.com/retroenv/retroinfuse/internal/opcode"
	"github.com/retroenv/retrogolib/assert"
)

var (
	testNop    = opcode.MustNew("NOP", opcode.Plain, opcode.Form{Code: 0x00, Width: 1})
	testBranch = opcode.MustNew("BRANCH", opcode.Branch, opcode.Form{Code: 0x10, Width: 2, Displacement: 1})
	testGoto   = opcode.MustNew("goto", opcode.Branch,
		opcode.Form{Code: 0x20, Width: 2, Displacement: 1},
		opcode.Form{Code: 0x21, Width: 3, Displacement: 2},
	)
	testSwitch = opcode.MustNew("tableswitch", opcode.Switch, opcode.Form{Code: 0x30, Width: 5, Displacement: 2})
)

func TestIndex_Valid(t *testing.T) {
	assert.True(t, Index(0).Valid(1))
	assert.True(t, Index(3).Valid(4))
	assert.False(t, Index(4).Valid(4))
	assert.False(t, NoTarget.Valid(4))
	assert.False(t, Index(0).Valid(0))
}

func TestString(t *testing.T) {
	tests := []struct {
		name        string
		instruction Instruction
		expected    string
	}{
		{"simple", NewSimple(testNop), "NOP"},
		{"simple with operands", NewSimple(opcode.MustNew("bspush", opcode.Plain,
			opcode.Form{Code: 0x10, Width: 2}), 5), "bspush"},
		{"branch", NewBranch(testBranch, 2), "BRANCH(2)"},
		{"branch without target", NewBranch(testBranch, NoTarget), "BRANCH(-1)"},
		{"switch", NewSwitch(testSwitch, 0, 4, 1, 2, 3), "tableswitch(4,1,2,3)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.instruction.String())
		})
	}
}

func TestBranch_Target(t *testing.T) {
	b := NewBranch(testGoto, 2)
	assert.Equal(t, Index(2), b.Target())
	assert.Equal(t, testGoto, b.Opcode())

	// out of range targets are accepted until resolution
	b.SetTarget(100)
	assert.Equal(t, Index(100), b.Target())
	assert.Equal(t, "goto(100)", b.String())

	b.SetReference(0, 7)
	assert.Equal(t, []Index{7}, b.References())

	_, ok := b.Displacement()
	assert.False(t, ok)
	assert.False(t, b.Resolved())
}

func TestBranch_Widths(t *testing.T) {
	b := NewBranch(testGoto, 0)
	assert.Equal(t, 2, b.Width())
	assert.Equal(t, 3, b.EncodedWidth(1))

	b.Place(10, 1)
	assert.Equal(t, 10, b.Offset())
	assert.Equal(t, 1, b.Form())
	assert.Equal(t, 3, b.Width())
	assert.False(t, b.Resolved())

	b.Resolve([]int{-10})
	displacement, ok := b.Displacement()
	assert.True(t, ok)
	assert.Equal(t, -10, displacement)
	assert.True(t, b.Resolved())

	// the diagnostic form keeps the logical target
	assert.Equal(t, "goto(0)", b.String())
}

func TestSimple(t *testing.T) {
	s := NewSimple(testNop)
	assert.Equal(t, 1, s.Width())
	assert.Equal(t, 0, len(s.Operands()))
	assert.False(t, s.Resolved())

	s.Place(4, 0)
	assert.True(t, s.Resolved())
	assert.Equal(t, 4, s.Offset())
}

func TestSwitch(t *testing.T) {
	s := NewSwitch(testSwitch, -1, 5, 6, 7)
	assert.Equal(t, -1, s.Low())
	assert.Equal(t, Index(5), s.Default())
	assert.Equal(t, []Index{6, 7}, s.Cases())
	assert.Equal(t, []Index{5, 6, 7}, s.References())
	assert.Equal(t, 5+3*2, s.Width())

	s.SetReference(2, 9)
	assert.Equal(t, []Index{6, 9}, s.Cases())

	// returned slices are copies
	refs := s.References()
	refs[0] = 1
	assert.Equal(t, Index(5), s.Default())

	s.Resolve([]int{10, 20, 30})
	displacements, ok := s.Displacements()
	assert.True(t, ok)
	assert.Equal(t, []int{10, 20, 30}, displacements)
}

func TestTargeted(t *testing.T) {
	instructions := []Instruction{
		NewSimple(testNop),
		NewBranch(testBranch, 0),
		NewSwitch(testSwitch, 0, 0),
	}

	var targeted int
	for _, ins := range instructions {
		if _, ok := ins.(Targeted); ok {
			targeted++
		}
		assert.Equal(t, ins.Opcode().Kind != opcode.Plain, isTargeted(ins))
	}
	assert.Equal(t, 2, targeted)
}

func isTargeted(ins Instruction) bool {
	_, ok := ins.(Targeted)
	return ok
}
