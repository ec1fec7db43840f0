// Package parser reads the textual instruction representation.
//
// The format is line based. A line holds an optional label definition, an
// optional instruction and an optional comment starting with ';':
//
//	loop:   sload 0
//	        ifeq exit        ; branch operands are labels
//	        tableswitch 0 exit loop exit
//	exit:   sreturn
//
// Operands of plain instructions are numbers. Either one number per operand
// byte, or a single number that is encoded big-endian over all operand bytes.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/retroenv/retroinfuse/internal/instruction"
	"github.com/retroenv/retroinfuse/internal/opcode"
	"github.com/retroenv/retroinfuse/internal/sequence"
	"github.com/retroenv/retroinfuse/internal/symbols"
	"github.com/retroenv/retrogolib/log"
)

// Error is a parse error with its source line.
type Error struct {
	Line int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Parser converts text into instruction sequences.
type Parser struct {
	logger *log.Logger
	table  *opcode.Table
}

// New returns a new parser using the given opcode table.
func New(logger *log.Logger, table *opcode.Table) *Parser {
	return &Parser{
		logger: logger,
		table:  table,
	}
}

// reference is a label operand waiting for its definition.
type reference struct {
	ins   instruction.Targeted
	slot  int
	label string
	line  int
}

type state struct {
	seq        *sequence.Sequence
	labels     *symbols.Table
	references []reference
}

// Parse reads all instructions from the reader. The returned label table maps
// the label names to the indices of the returned sequence.
func (p *Parser) Parse(reader io.Reader) (*sequence.Sequence, *symbols.Table, error) {
	st := &state{
		seq:    sequence.New(),
		labels: symbols.New(),
	}

	scanner := bufio.NewScanner(reader)
	line := 0
	for scanner.Scan() {
		line++
		if err := p.parseLine(st, scanner.Text(), line); err != nil {
			return nil, nil, &Error{Line: line, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading input: %w", err)
	}

	for _, label := range st.labels.Sorted() {
		if int(label.Index) == st.seq.Len() {
			return nil, nil, &Error{Line: label.Line, Err: fmt.Errorf("label '%s' is not followed by an instruction", label.Name)}
		}
	}

	for _, ref := range st.references {
		label, ok := st.labels.Lookup(ref.label)
		if !ok {
			return nil, nil, &Error{Line: ref.line, Err: fmt.Errorf("undefined label '%s'", ref.label)}
		}
		st.labels.MarkUsed(label.Name)
		ref.ins.SetReference(ref.slot, label.Index)
	}

	for _, label := range st.labels.Unused() {
		p.logger.Debug("Unused label",
			log.String("label", label.Name),
			log.Int("line", label.Line))
	}

	return st.seq, st.labels, nil
}

func (p *Parser) parseLine(st *state, text string, line int) error {
	if i := strings.IndexByte(text, ';'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)

	if i := strings.IndexByte(text, ':'); i >= 0 {
		name := strings.TrimSpace(text[:i])
		if !validLabel(name) {
			return fmt.Errorf("invalid label name '%s'", name)
		}
		if err := st.labels.Define(name, instruction.Index(st.seq.Len()), line); err != nil {
			return err
		}
		text = strings.TrimSpace(text[i+1:])
	}
	if text == "" {
		return nil
	}

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	op, ok := p.table.ByName(fields[0])
	if !ok {
		return fmt.Errorf("unknown opcode '%s'", fields[0])
	}
	operands := fields[1:]

	ins, err := p.parseInstruction(st, op, operands, line)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", op.Name, err)
	}
	return st.seq.Append(ins)
}

func (p *Parser) parseInstruction(st *state, op *opcode.Opcode, operands []string, line int) (instruction.Instruction, error) {
	switch op.Kind {
	case opcode.Plain:
		data, err := parseOperands(operands, op.MinWidth()-1)
		if err != nil {
			return nil, err
		}
		return instruction.NewSimple(op, data...), nil

	case opcode.Branch:
		if len(operands) != 1 {
			return nil, fmt.Errorf("expected 1 label operand, got %d", len(operands))
		}
		ins := instruction.NewBranch(op, instruction.NoTarget)
		st.references = append(st.references, reference{ins: ins, slot: 0, label: operands[0], line: line})
		return ins, nil

	case opcode.Switch:
		if len(operands) < 2 {
			return nil, errors.New("expected low value and default label")
		}
		low, err := strconv.ParseInt(operands[0], 0, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid low value '%s': %w", operands[0], err)
		}
		labels := operands[1:]
		cases := make([]instruction.Index, len(labels)-1)
		for i := range cases {
			cases[i] = instruction.NoTarget
		}
		ins := instruction.NewSwitch(op, int(low), instruction.NoTarget, cases...)
		for slot, label := range labels {
			st.references = append(st.references, reference{ins: ins, slot: slot, label: label, line: line})
		}
		return ins, nil

	default:
		return nil, fmt.Errorf("unsupported opcode kind %s", op.Kind)
	}
}

// parseOperands converts number tokens to operand bytes.
func parseOperands(operands []string, size int) ([]byte, error) {
	if size == 0 {
		if len(operands) != 0 {
			return nil, fmt.Errorf("expected no operands, got %d", len(operands))
		}
		return nil, nil
	}

	if len(operands) == size {
		data := make([]byte, size)
		for i, operand := range operands {
			value, err := strconv.ParseInt(operand, 0, 16)
			if err != nil || value < -128 || value > 255 {
				return nil, fmt.Errorf("invalid byte operand '%s'", operand)
			}
			data[i] = byte(value)
		}
		return data, nil
	}

	if len(operands) != 1 {
		return nil, fmt.Errorf("expected %d operand bytes or a single value, got %d operands", size, len(operands))
	}

	value, err := strconv.ParseInt(operands[0], 0, 64)
	bits := uint(size * 8)
	if err != nil || value < -(1<<(bits-1)) || value > 1<<bits-1 {
		return nil, fmt.Errorf("invalid %d byte operand '%s'", size, operands[0])
	}
	data := make([]byte, size)
	for i := size - 1; i >= 0; i-- {
		data[i] = byte(value)
		value >>= 8
	}
	return data, nil
}

func validLabel(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '.' || unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		default:
			return false
		}
	}
	return true
}
