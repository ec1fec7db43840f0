// Package writer implements listing file writing for instruction sequences.
package writer

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"github.com/retroenv/retroinfuse/internal/instruction"
	"github.com/retroenv/retroinfuse/internal/sequence"
	"github.com/retroenv/retroinfuse/internal/symbols"
	"github.com/retroenv/retrogolib/set"
)

const hexBytesPerComment = 8

// Writer writes listings of instruction sequences. A listing of a resolved
// sequence can be read again by the parser.
type Writer struct {
	options Options
	writer  io.Writer
}

// Options of the writer.
type Options struct {
	OffsetComments bool // prefix comments with the resolved offset
	HexComments    bool // add the encoded bytes as comment

	Labels symbols.Names // source label names, other targets get generated names
}

// New creates a new writer.
func New(writer io.Writer, options Options) *Writer {
	return &Writer{
		options: options,
		writer:  writer,
	}
}

// LabelName returns the generated label name for a resolved offset.
func LabelName(offset int) string {
	return fmt.Sprintf("_label_%04x", offset)
}

// WriteCommentHeader writes the CRC32 checksum and size of the encoded bytecode as comments.
func (w Writer) WriteCommentHeader(data []byte, iterations int) error {
	if _, err := fmt.Fprintf(w.writer, "; Bytecode CRC32 checksum: %08x\n", crc32.ChecksumIEEE(data)); err != nil {
		return fmt.Errorf("writing checksum: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "; Code size: %d bytes\n", len(data)); err != nil {
		return fmt.Errorf("writing code size: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "; Layout iterations: %d\n\n", iterations); err != nil {
		return fmt.Errorf("writing iterations: %w", err)
	}
	return nil
}

// WriteSequence writes the diagnostic form of every instruction, prefixed by its index.
// It works for sequences in any state and shows logical targets.
func (w Writer) WriteSequence(seq *sequence.Sequence) error {
	for i, ins := range seq.All() {
		if _, err := fmt.Fprintf(w.writer, "%d: %s\n", i, ins); err != nil {
			return fmt.Errorf("writing instruction %d: %w", i, err)
		}
	}
	return nil
}

// WriteListing writes a resolved sequence with labels for all targets.
// The data is the encoded bytecode, used for hex comments.
func (w Writer) WriteListing(seq *sequence.Sequence, data []byte) error {
	if !seq.Sealed() {
		return errors.New("listing requires a resolved sequence")
	}

	names := w.targetNames(seq)
	for i, ins := range seq.All() {
		if name, ok := names[i]; ok {
			if err := w.writeLabel(i, name); err != nil {
				return err
			}
		}

		code, err := codeText(ins, names)
		if err != nil {
			return fmt.Errorf("formatting instruction %d: %w", i, err)
		}
		if err := w.writeCodeLine(code, w.comment(ins, data)); err != nil {
			return fmt.Errorf("writing instruction %d: %w", i, err)
		}
	}
	return nil
}

// targetNames returns the label name of every referenced index. Generated names
// never repeat a source label name.
func (w Writer) targetNames(seq *sequence.Sequence) map[instruction.Index]string {
	targets := seq.Targets()
	taken := set.New[string]()
	for i, ins := range seq.All() {
		if name, ok := w.options.Labels[ins]; ok && targets.Contains(i) {
			taken.Add(name)
		}
	}

	names := make(map[instruction.Index]string, len(targets))
	for i, ins := range seq.All() {
		if !targets.Contains(i) {
			continue
		}
		name, ok := w.options.Labels[ins]
		if !ok {
			name = LabelName(ins.Offset())
			for taken.Contains(name) {
				name += "_"
			}
		}
		names[i] = name
	}
	return names
}

func (w Writer) writeLabel(index instruction.Index, name string) error {
	if index > 0 {
		if _, err := fmt.Fprintln(w.writer); err != nil {
			return fmt.Errorf("writing line: %w", err)
		}
	}
	if _, err := fmt.Fprintf(w.writer, "%s:\n", name); err != nil {
		return fmt.Errorf("writing label: %w", err)
	}
	return nil
}

func (w Writer) writeCodeLine(code, comment string) error {
	if comment == "" {
		if _, err := fmt.Fprintf(w.writer, "  %s\n", code); err != nil {
			return fmt.Errorf("writing line: %w", err)
		}
	} else {
		if _, err := fmt.Fprintf(w.writer, "  %-30s ; %s\n", code, comment); err != nil {
			return fmt.Errorf("writing line: %w", err)
		}
	}
	return nil
}

func (w Writer) comment(ins instruction.Instruction, data []byte) string {
	var parts []string
	if w.options.OffsetComments {
		parts = append(parts, fmt.Sprintf("$%04X", ins.Offset()))
	}

	end := ins.Offset() + ins.Width()
	if w.options.HexComments && end <= len(data) {
		encoded := data[ins.Offset():end]
		hex := make([]string, 0, min(len(encoded), hexBytesPerComment))
		for j, b := range encoded {
			if j == hexBytesPerComment {
				hex = append(hex, "..")
				break
			}
			hex = append(hex, fmt.Sprintf("%02X", b))
		}
		parts = append(parts, strings.Join(hex, " "))
	}
	return strings.Join(parts, "  ")
}

// codeText returns the instruction in the textual input format.
func codeText(ins instruction.Instruction, names map[instruction.Index]string) (string, error) {
	name := ins.Opcode().Name

	switch ins := ins.(type) {
	case *instruction.Simple:
		if len(ins.Operands()) == 0 {
			return name, nil
		}
		operands := make([]string, len(ins.Operands()))
		for i, b := range ins.Operands() {
			operands[i] = fmt.Sprintf("0x%02x", b)
		}
		return name + " " + strings.Join(operands, ", "), nil

	case *instruction.Branch:
		label, err := targetLabel(names, ins.Target())
		if err != nil {
			return "", err
		}
		return name + " " + label, nil

	case *instruction.Switch:
		operands := []string{fmt.Sprint(ins.Low())}
		for _, target := range ins.References() {
			label, err := targetLabel(names, target)
			if err != nil {
				return "", err
			}
			operands = append(operands, label)
		}
		return name + " " + strings.Join(operands, ", "), nil

	default:
		return "", fmt.Errorf("unsupported instruction type %T", ins)
	}
}

func targetLabel(names map[instruction.Index]string, target instruction.Index) (string, error) {
	label, ok := names[target]
	if !ok {
		return "", fmt.Errorf("invalid target %d", target)
	}
	return label, nil
}
