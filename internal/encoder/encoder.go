// Package encoder serializes resolved instruction sequences to bytecode and
// decodes bytecode back into sequences with logical targets.
//
// All multi-byte values are big-endian. A table switch is encoded as its form
// code, an int16 low case value, a uint16 case count, followed by the default
// displacement and one displacement per case.
package encoder

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/retroenv/retroinfuse/internal/instruction"
	"github.com/retroenv/retroinfuse/internal/sequence"
)

// ErrNotResolved is returned when encoding a sequence whose layout has not been resolved.
var ErrNotResolved = errors.New("sequence layout is not resolved")

// switchHeaderWidth is the size of opcode, low value and case count of a table switch.
const switchHeaderWidth = 5

// Encode returns the bytecode of a resolved sequence.
func Encode(seq *sequence.Sequence) ([]byte, error) {
	if !seq.Sealed() {
		return nil, ErrNotResolved
	}

	var buf []byte
	for i, ins := range seq.All() {
		if ins.Offset() != len(buf) {
			return nil, fmt.Errorf("instruction %d (%s) placed at offset %d but encoded at offset %d",
				i, ins.Opcode().Name, ins.Offset(), len(buf))
		}

		var err error
		buf, err = appendInstruction(buf, ins)
		if err != nil {
			return nil, fmt.Errorf("encoding instruction %d (%s): %w", i, ins.Opcode().Name, err)
		}
	}
	return buf, nil
}

func appendInstruction(buf []byte, ins instruction.Instruction) ([]byte, error) {
	form := ins.Opcode().Forms[ins.Form()]
	start := len(buf)
	buf = append(buf, form.Code)

	switch ins := ins.(type) {
	case *instruction.Simple:
		if len(ins.Operands()) != form.Width-1 {
			return nil, fmt.Errorf("has %d operand bytes, form expects %d", len(ins.Operands()), form.Width-1)
		}
		buf = append(buf, ins.Operands()...)

	case *instruction.Branch:
		d, ok := ins.Displacement()
		if !ok {
			return nil, ErrNotResolved
		}
		var err error
		if buf, err = appendDisplacement(buf, form.Displacement, d); err != nil {
			return nil, err
		}

	case *instruction.Switch:
		if form.Width != switchHeaderWidth {
			return nil, fmt.Errorf("unsupported switch header width %d", form.Width)
		}
		displacements, ok := ins.Displacements()
		if !ok {
			return nil, ErrNotResolved
		}
		if !ins.InRange() {
			return nil, fmt.Errorf("switch low value %d with %d cases exceeds the header range",
				ins.Low(), len(displacements)-1)
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(int16(ins.Low())))
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(displacements)-1))
		for _, d := range displacements {
			var err error
			if buf, err = appendDisplacement(buf, form.Displacement, d); err != nil {
				return nil, err
			}
		}
	}

	if written := len(buf) - start; written != ins.Width() {
		return nil, fmt.Errorf("wrote %d bytes, expected width %d", written, ins.Width())
	}
	return buf, nil
}

func appendDisplacement(buf []byte, size, displacement int) ([]byte, error) {
	switch size {
	case 1:
		return append(buf, byte(int8(displacement))), nil
	case 2:
		return binary.BigEndian.AppendUint16(buf, uint16(int16(displacement))), nil
	case 4:
		return binary.BigEndian.AppendUint32(buf, uint32(int32(displacement))), nil
	default:
		return nil, fmt.Errorf("unsupported displacement size %d", size)
	}
}

func readDisplacement(data []byte, size int) int {
	switch size {
	case 1:
		return int(int8(data[0]))
	case 2:
		return int(int16(binary.BigEndian.Uint16(data)))
	default:
		return int(int32(binary.BigEndian.Uint32(data)))
	}
}
