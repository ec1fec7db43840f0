package instruction

import (
	"fmt"

	"github.com/retroenv/retroinfuse/internal/opcode"
)

var _ Targeted = (*Branch)(nil)

// Branch is an instruction that transfers control to one other instruction of
// the same sequence. Until the layout is resolved its destination is a logical
// index; afterwards it also holds the final displacement, measured from the
// first byte of the branch to the first byte of the target.
type Branch struct {
	header

	target       Index
	displacement int
	resolved     bool
}

// NewBranch returns a new branch instruction targeting the given index.
func NewBranch(op *opcode.Opcode, target Index) *Branch {
	return &Branch{
		header: header{op: op},
		target: target,
	}
}

// Target returns the logical target index.
func (b *Branch) Target() Index {
	return b.target
}

// SetTarget sets the logical target index. The index is intentionally not checked
// against the sequence bounds, the layout resolver validates all targets.
func (b *Branch) SetTarget(target Index) {
	b.target = target
}

// Displacement returns the resolved byte displacement and whether the branch
// has been resolved.
func (b *Branch) Displacement() (int, bool) {
	return b.displacement, b.resolved
}

// References returns the single logical target.
func (b *Branch) References() []Index {
	return []Index{b.target}
}

// SetReference sets the logical target, k must be 0.
func (b *Branch) SetReference(k int, target Index) {
	if k != 0 {
		panic(fmt.Sprintf("branch has a single reference, got reference %d", k))
	}
	b.target = target
}

// Resolve stores the final displacement.
func (b *Branch) Resolve(displacements []int) {
	b.displacement = displacements[0]
	b.resolved = true
}

// Resolved returns whether the final displacement is set.
func (b *Branch) Resolved() bool {
	return b.resolved
}

// EncodedWidth returns the width of the given form.
func (b *Branch) EncodedWidth(form int) int {
	return b.op.Forms[form].Width
}

// Width returns the width of the selected form.
func (b *Branch) Width() int {
	return b.EncodedWidth(b.form)
}

// String returns the diagnostic form "<name>(<target index>)".
func (b *Branch) String() string {
	return fmt.Sprintf("%s(%d)", b.op.Name, b.target)
}
