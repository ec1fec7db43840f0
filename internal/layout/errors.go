package layout

import (
	"errors"
	"fmt"

	"github.com/retroenv/retroinfuse/internal/instruction"
)

// ErrAlreadyResolved is returned when resolving a sequence whose targets were
// already converted to displacements.
var ErrAlreadyResolved = errors.New("sequence is already resolved")

// DanglingTargetError is returned when a logical target does not denote a live
// instruction of the sequence.
type DanglingTargetError struct {
	Index     instruction.Index // position of the referring instruction
	Opcode    string
	Reference int // reference number within the instruction, 0 for branches
	Target    instruction.Index
	Length    int // sequence length at resolution time
}

func (e *DanglingTargetError) Error() string {
	if e.Target == instruction.NoTarget {
		return fmt.Sprintf("instruction %d (%s) references a removed instruction", e.Index, e.Opcode)
	}
	return fmt.Sprintf("instruction %d (%s) references index %d outside of sequence of length %d",
		e.Index, e.Opcode, e.Target, e.Length)
}

// LayoutOverflowError is returned when a displacement can not be represented by
// any form of the opcode, or when relaxation does not reach a fixed point within
// the iteration limit.
//
//nolint:revive // established error name
type LayoutOverflowError struct {
	Index        instruction.Index
	Opcode       string
	Displacement int
	Iterations   int
	Limit        int // set when the iteration limit was exceeded
}

func (e *LayoutOverflowError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("layout did not converge within %d iterations, instruction %d (%s) still growing",
			e.Limit, e.Index, e.Opcode)
	}
	return fmt.Sprintf("displacement %d of instruction %d (%s) exceeds the largest encoding",
		e.Displacement, e.Index, e.Opcode)
}

// SwitchRangeError is returned when the low case value or the number of cases of a
// table switch does not fit its header fields.
type SwitchRangeError struct {
	Index  instruction.Index
	Opcode string
	Low    int
	Cases  int
}

func (e *SwitchRangeError) Error() string {
	return fmt.Sprintf("instruction %d (%s) low value %d or case count %d exceeds the switch header range",
		e.Index, e.Opcode, e.Low, e.Cases)
}
