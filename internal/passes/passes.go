// Package passes contains structural transformations on instruction sequences.
// Every pass keeps logical targets valid.
package passes

import (
	"fmt"
	"strings"

	"github.com/retroenv/retroinfuse/internal/instruction"
	"github.com/retroenv/retroinfuse/internal/opcode"
	"github.com/retroenv/retroinfuse/internal/sequence"
	"github.com/retroenv/retrogolib/set"
)

func isOpcode(ins instruction.Instruction, name string) bool {
	return strings.EqualFold(ins.Opcode().Name, name)
}

// StripNops removes all nop instructions and returns the number of removed
// instructions. References to a removed nop are moved to the instruction that
// follows it. A trailing nop that is referenced is kept.
func StripNops(seq *sequence.Sequence) (int, error) {
	removed := 0
	for i := instruction.Index(seq.Len() - 1); i >= 0; i-- {
		if !isOpcode(seq.At(i), opcode.NameNop) {
			continue
		}

		last := int(i) == seq.Len()-1
		if last && len(seq.Referrers(i)) > 0 {
			continue
		}
		if !last {
			if _, err := seq.Retarget(i, i+1); err != nil {
				return removed, fmt.Errorf("retargeting references of nop %d: %w", i, err)
			}
		}

		if _, err := seq.Remove(i); err != nil {
			return removed, fmt.Errorf("removing nop %d: %w", i, err)
		}
		removed++
	}
	return removed, nil
}

// ThreadJumps retargets references that point at an unconditional goto to the
// final destination of the goto chain and returns the number of changed
// references. Cyclic chains are left unchanged.
func ThreadJumps(seq *sequence.Sequence) (int, error) {
	if seq.Sealed() {
		return 0, sequence.ErrSealed
	}

	changed := 0
	for i, ins := range seq.All() {
		t, ok := ins.(instruction.Targeted)
		if !ok {
			continue
		}

		for k, target := range t.References() {
			final, ok := followGoto(seq, target)
			if !ok || final == target || final == i {
				continue
			}
			t.SetReference(k, final)
			changed++
		}
	}
	return changed, nil
}

// followGoto returns the first index of the chain starting at index that is
// not an unconditional goto.
func followGoto(seq *sequence.Sequence, index instruction.Index) (instruction.Index, bool) {
	visited := set.New[instruction.Index]()
	for index.Valid(seq.Len()) {
		if visited.Contains(index) {
			return index, false
		}
		visited.Add(index)

		b, ok := seq.At(index).(*instruction.Branch)
		if !ok || !isOpcode(b, opcode.NameGoto) {
			return index, true
		}
		index = b.Target()
	}
	return index, false
}
