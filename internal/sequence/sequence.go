// Package sequence provides the ordered instruction container that passes operate on.
//
// All structural edits keep logical targets consistent: inserting shifts references
// to moved instructions and removing an instruction clears references to it.
package sequence

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/retroenv/retroinfuse/internal/instruction"
	"github.com/retroenv/retrogolib/set"
)

// ErrSealed is returned when a resolved sequence is modified.
var ErrSealed = errors.New("sequence is resolved and can not be modified")

// Sequence is an ordered list of instructions that it exclusively owns.
type Sequence struct {
	items  []instruction.Instruction
	sealed bool
}

// New returns a new sequence containing the given instructions.
func New(instructions ...instruction.Instruction) *Sequence {
	items := make([]instruction.Instruction, len(instructions))
	copy(items, instructions)
	return &Sequence{items: items}
}

// Len returns the number of instructions.
func (s *Sequence) Len() int {
	return len(s.items)
}

// At returns the instruction at the given index.
func (s *Sequence) At(index instruction.Index) instruction.Instruction {
	return s.items[index]
}

// All returns an iterator over all instructions and their indices.
func (s *Sequence) All() iter.Seq2[instruction.Index, instruction.Instruction] {
	return func(yield func(instruction.Index, instruction.Instruction) bool) {
		for i, ins := range s.items {
			if !yield(instruction.Index(i), ins) {
				return
			}
		}
	}
}

// Instructions returns a copy of the instruction list.
func (s *Sequence) Instructions() []instruction.Instruction {
	items := make([]instruction.Instruction, len(s.items))
	copy(items, s.items)
	return items
}

// Sealed returns whether the sequence has been resolved.
func (s *Sequence) Sealed() bool {
	return s.sealed
}

// Seal marks the sequence as resolved, further structural edits fail.
func (s *Sequence) Seal() {
	s.sealed = true
}

// Append adds instructions at the end of the sequence.
func (s *Sequence) Append(instructions ...instruction.Instruction) error {
	if s.sealed {
		return ErrSealed
	}
	s.items = append(s.items, instructions...)
	return nil
}

// Insert inserts instructions before the given index. References to instructions
// at or after the index are shifted so that they keep pointing at the same
// instruction. Inserting at Len() appends.
func (s *Sequence) Insert(at instruction.Index, instructions ...instruction.Instruction) error {
	if s.sealed {
		return ErrSealed
	}
	if at < 0 || int(at) > len(s.items) {
		return fmt.Errorf("insert position %d out of range [0,%d]", at, len(s.items))
	}

	count := instruction.Index(len(instructions))
	s.remap(func(target instruction.Index) instruction.Index {
		if target >= at {
			return target + count
		}
		return target
	})

	s.items = slices.Insert(s.items, int(at), instructions...)
	return nil
}

// Remove deletes the instruction at the given index. References to later
// instructions are shifted down. References to the removed instruction are set
// to instruction.NoTarget and the referring instructions are returned, the caller
// is responsible for retargeting or removing them before resolution.
func (s *Sequence) Remove(at instruction.Index) ([]instruction.Targeted, error) {
	if s.sealed {
		return nil, ErrSealed
	}
	if !at.Valid(len(s.items)) {
		return nil, fmt.Errorf("remove position %d out of range [0,%d)", at, len(s.items))
	}

	s.items = slices.Delete(s.items, int(at), int(at)+1)

	var orphaned []instruction.Targeted
	for _, ins := range s.items {
		t, ok := ins.(instruction.Targeted)
		if !ok {
			continue
		}
		cleared := false
		for k, target := range t.References() {
			switch {
			case target == at:
				t.SetReference(k, instruction.NoTarget)
				cleared = true
			case target > at:
				t.SetReference(k, target-1)
			}
		}
		if cleared {
			orphaned = append(orphaned, t)
		}
	}
	return orphaned, nil
}

// Replace swaps the instruction at the given index, for example for opcode
// substitution. References to the index are not changed.
func (s *Sequence) Replace(at instruction.Index, ins instruction.Instruction) error {
	if s.sealed {
		return ErrSealed
	}
	if !at.Valid(len(s.items)) {
		return fmt.Errorf("replace position %d out of range [0,%d)", at, len(s.items))
	}
	s.items[at] = ins
	return nil
}

// Move moves the instruction at index from to index to, keeping every reference
// pointing at the same instruction.
func (s *Sequence) Move(from, to instruction.Index) error {
	if s.sealed {
		return ErrSealed
	}
	n := len(s.items)
	if !from.Valid(n) || !to.Valid(n) {
		return fmt.Errorf("move from %d to %d out of range [0,%d)", from, to, n)
	}
	if from == to {
		return nil
	}

	s.remap(func(target instruction.Index) instruction.Index {
		switch {
		case target == from:
			return to
		case from < to && target > from && target <= to:
			return target - 1
		case to < from && target >= to && target < from:
			return target + 1
		default:
			return target
		}
	})

	ins := s.items[from]
	s.items = slices.Delete(s.items, int(from), int(from)+1)
	s.items = slices.Insert(s.items, int(to), ins)
	return nil
}

// Retarget changes all references to index from to point at index to instead
// and returns the number of changed references.
func (s *Sequence) Retarget(from, to instruction.Index) (int, error) {
	if s.sealed {
		return 0, ErrSealed
	}

	changed := 0
	s.remap(func(target instruction.Index) instruction.Index {
		if target == from {
			changed++
			return to
		}
		return target
	})
	return changed, nil
}

// Referrers returns the indices of all instructions that reference the given index.
func (s *Sequence) Referrers(at instruction.Index) []instruction.Index {
	var referrers []instruction.Index
	for i, ins := range s.All() {
		t, ok := ins.(instruction.Targeted)
		if !ok {
			continue
		}
		for _, target := range t.References() {
			if target == at {
				referrers = append(referrers, i)
				break
			}
		}
	}
	return referrers
}

// Targets returns the set of all referenced indices.
func (s *Sequence) Targets() set.Set[instruction.Index] {
	targets := set.New[instruction.Index]()
	for _, ins := range s.items {
		t, ok := ins.(instruction.Targeted)
		if !ok {
			continue
		}
		for _, target := range t.References() {
			targets.Add(target)
		}
	}
	return targets
}

// String returns the diagnostic form of all instructions, one per line.
func (s *Sequence) String() string {
	var sb strings.Builder
	for i, ins := range s.items {
		fmt.Fprintf(&sb, "%d: %s\n", i, ins)
	}
	return sb.String()
}

// remap applies fn to every reference of every targeted instruction.
// References that are already cleared stay cleared.
func (s *Sequence) remap(fn func(instruction.Index) instruction.Index) {
	for _, ins := range s.items {
		t, ok := ins.(instruction.Targeted)
		if !ok {
			continue
		}
		for k, target := range t.References() {
			if target == instruction.NoTarget {
				continue
			}
			if mapped := fn(target); mapped != target {
				t.SetReference(k, mapped)
			}
		}
	}
}
