package encoder

import (
	"encoding/binary"
	"fmt"

	"github.com/retroenv/retroinfuse/internal/instruction"
	"github.com/retroenv/retroinfuse/internal/opcode"
	"github.com/retroenv/retroinfuse/internal/sequence"
)

// MisalignedTargetError is returned when a decoded displacement does not point
// at the first byte of an instruction.
type MisalignedTargetError struct {
	Offset int // offset of the referring instruction
	Target int // offset the displacement points at
}

func (e *MisalignedTargetError) Error() string {
	return fmt.Sprintf("instruction at offset %d targets offset %d which is not an instruction start",
		e.Offset, e.Target)
}

// decoded is an instruction whose targets are still byte offsets.
type decoded struct {
	ins     instruction.Instruction
	offset  int
	width   int
	targets []int
}

// Decode parses bytecode into a new unresolved sequence. Displacements are
// converted back to logical targets.
func Decode(table *opcode.Table, data []byte) (*sequence.Sequence, error) {
	var items []decoded
	indices := make(map[int]instruction.Index)

	for offset := 0; offset < len(data); {
		item, err := decodeInstruction(table, data, offset)
		if err != nil {
			return nil, err
		}
		indices[offset] = instruction.Index(len(items))
		items = append(items, item)
		offset += item.width
	}

	seq := sequence.New()
	for _, item := range items {
		if t, ok := item.ins.(instruction.Targeted); ok {
			for k, target := range item.targets {
				index, ok := indices[target]
				if !ok {
					return nil, &MisalignedTargetError{Offset: item.offset, Target: target}
				}
				t.SetReference(k, index)
			}
		}
		if err := seq.Append(item.ins); err != nil {
			return nil, fmt.Errorf("appending decoded instruction: %w", err)
		}
	}
	return seq, nil
}

func decodeInstruction(table *opcode.Table, data []byte, offset int) (decoded, error) {
	code := data[offset]
	op, formIndex, ok := table.ByCode(code)
	if !ok {
		return decoded{}, fmt.Errorf("unknown opcode 0x%02x at offset %d", code, offset)
	}
	form := op.Forms[formIndex]

	if offset+form.Width > len(data) {
		return decoded{}, fmt.Errorf("truncated %s at offset %d", op.Name, offset)
	}
	body := data[offset+1 : offset+form.Width]

	switch op.Kind {
	case opcode.Plain:
		operands := make([]byte, len(body))
		copy(operands, body)
		return decoded{ins: instruction.NewSimple(op, operands...), offset: offset, width: form.Width}, nil

	case opcode.Branch:
		ins := instruction.NewBranch(op, instruction.NoTarget)
		target := offset + readDisplacement(body, form.Displacement)
		return decoded{ins: ins, offset: offset, width: form.Width, targets: []int{target}}, nil

	case opcode.Switch:
		return decodeSwitch(op, form, data, offset)

	default:
		return decoded{}, fmt.Errorf("unsupported opcode kind %s", op.Kind)
	}
}

func decodeSwitch(op *opcode.Opcode, form opcode.Form, data []byte, offset int) (decoded, error) {
	if form.Width != switchHeaderWidth {
		return decoded{}, fmt.Errorf("unsupported switch header width %d", form.Width)
	}
	low := int(int16(binary.BigEndian.Uint16(data[offset+1:])))
	count := int(binary.BigEndian.Uint16(data[offset+3:]))

	end := offset + form.Width + (count+1)*form.Displacement
	if end > len(data) {
		return decoded{}, fmt.Errorf("truncated %s at offset %d", op.Name, offset)
	}

	targets := make([]int, count+1)
	position := offset + form.Width
	for k := range targets {
		targets[k] = offset + readDisplacement(data[position:], form.Displacement)
		position += form.Displacement
	}

	cases := make([]instruction.Index, count)
	for k := range cases {
		cases[k] = instruction.NoTarget
	}
	ins := instruction.NewSwitch(op, low, instruction.NoTarget, cases...)
	return decoded{ins: ins, offset: offset, width: end - offset, targets: targets}, nil
}
