package opcode

import (
	"fmt"
	"strings"
)

type formReference struct {
	op   *Opcode
	form int
}

// Table maps opcode names and encoded form codes to opcodes.
// A table is read-only after creation and can be shared between goroutines.
type Table struct {
	opcodes []*Opcode
	byName  map[string]*Opcode
	byCode  map[byte]formReference
}

// NewTable creates a table from the given opcodes. Names are case-insensitive and
// every form code must be unique across the table.
func NewTable(opcodes ...*Opcode) (*Table, error) {
	t := &Table{
		opcodes: make([]*Opcode, 0, len(opcodes)),
		byName:  make(map[string]*Opcode, len(opcodes)),
		byCode:  make(map[byte]formReference, len(opcodes)),
	}

	for _, op := range opcodes {
		if err := op.validate(); err != nil {
			return nil, err
		}

		name := strings.ToLower(op.Name)
		if _, ok := t.byName[name]; ok {
			return nil, fmt.Errorf("duplicate opcode name '%s'", op.Name)
		}

		for i, form := range op.Forms {
			if existing, ok := t.byCode[form.Code]; ok {
				return nil, fmt.Errorf("opcode '%s' reuses code 0x%02x of opcode '%s'",
					op.Name, form.Code, existing.op.Name)
			}
			t.byCode[form.Code] = formReference{op: op, form: i}
		}

		t.byName[name] = op
		t.opcodes = append(t.opcodes, op)
	}

	return t, nil
}

// ByName returns the opcode with the given name.
func (t *Table) ByName(name string) (*Opcode, bool) {
	op, ok := t.byName[strings.ToLower(name)]
	return op, ok
}

// ByCode returns the opcode and form index that the code encodes.
func (t *Table) ByCode(code byte) (*Opcode, int, bool) {
	ref, ok := t.byCode[code]
	if !ok {
		return nil, 0, false
	}
	return ref.op, ref.form, true
}

// Opcodes returns all opcodes in definition order.
func (t *Table) Opcodes() []*Opcode {
	opcodes := make([]*Opcode, len(t.opcodes))
	copy(opcodes, t.opcodes)
	return opcodes
}

// Len returns the number of opcodes in the table.
func (t *Table) Len() int {
	return len(t.opcodes)
}
