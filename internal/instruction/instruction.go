// Package instruction contains the instruction model that transformation passes operate on.
//
// Instructions are a closed set of variants: Simple, Branch and Switch. Branch and
// Switch reference their destinations by logical Index into the owning sequence
// instead of by byte offset. The layout resolver is the only place that validates
// these references and converts them into byte displacements.
package instruction

import (
	"fmt"

	"github.com/retroenv/retroinfuse/internal/opcode"
)

// Index is the logical position of an instruction in its sequence.
// It is not a byte offset.
type Index int

// NoTarget marks a reference whose destination was removed from the sequence.
const NoTarget Index = -1

// Valid returns whether the index denotes a live instruction in a sequence of length n.
func (i Index) Valid(n int) bool {
	return i >= 0 && int(i) < n
}

// Instruction represents one instruction of a sequence.
type Instruction interface {
	fmt.Stringer

	// Opcode returns the opcode that the instruction is an instance of.
	Opcode() *opcode.Opcode
	// EncodedWidth returns the width in bytes the instruction occupies when encoded
	// using the given form of its opcode.
	EncodedWidth(form int) int
	// Width returns the width of the currently selected form.
	Width() int
	// Offset returns the resolved byte offset, only valid once placed.
	Offset() int
	// Form returns the selected opcode form index.
	Form() int
	// Place annotates the instruction with its resolved offset and form.
	Place(offset, form int)
	// Resolved returns whether the instruction has been placed by the layout resolver
	// and holds final displacements.
	Resolved() bool

	sealed()
}

// Targeted is implemented by instructions that reference other instructions.
type Targeted interface {
	Instruction

	// References returns the logical targets in encoding order.
	References() []Index
	// SetReference changes the k-th logical target. The index is not validated.
	SetReference(k int, target Index)
	// Resolve replaces the logical targets by final byte displacements, one per reference.
	Resolve(displacements []int)
}

type header struct {
	op     *opcode.Opcode
	offset int
	form   int
	placed bool
}

func (h *header) Opcode() *opcode.Opcode {
	return h.op
}

func (h *header) Offset() int {
	return h.offset
}

func (h *header) Form() int {
	return h.form
}

func (h *header) Place(offset, form int) {
	h.offset = offset
	h.form = form
	h.placed = true
}

func (h *header) sealed() {}
