package instruction

import (
	"github.com/retroenv/retroinfuse/internal/opcode"
)

var _ Instruction = (*Simple)(nil)

// Simple is a fixed width instruction with optional raw operand bytes.
type Simple struct {
	header

	operands []byte
}

// NewSimple returns a new instruction for a plain opcode.
func NewSimple(op *opcode.Opcode, operands ...byte) *Simple {
	return &Simple{
		header:   header{op: op},
		operands: operands,
	}
}

// Operands returns the raw operand bytes.
func (s *Simple) Operands() []byte {
	return s.operands
}

// EncodedWidth returns the width of the given form.
func (s *Simple) EncodedWidth(form int) int {
	return s.op.Forms[form].Width
}

// Width returns the encoded width.
func (s *Simple) Width() int {
	return s.EncodedWidth(s.form)
}

// Resolved returns whether the instruction was placed.
func (s *Simple) Resolved() bool {
	return s.placed
}

// String returns the opcode name.
func (s *Simple) String() string {
	return s.op.Name
}
