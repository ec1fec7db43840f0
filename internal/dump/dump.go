// Package dump encodes resolved layouts as CBOR documents for external tooling.
package dump

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/retroenv/retroinfuse/internal/encoder"
	"github.com/retroenv/retroinfuse/internal/instruction"
	"github.com/retroenv/retroinfuse/internal/layout"
	"github.com/retroenv/retroinfuse/internal/sequence"
)

// FormatVersion is incremented on incompatible document changes.
const FormatVersion = 1

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dump: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Document is the resolved layout of one sequence.
type Document struct {
	Version    int      `cbor:"1,keyasint"`
	Size       int      `cbor:"2,keyasint"`
	Iterations int      `cbor:"3,keyasint"`
	Records    []Record `cbor:"4,keyasint"`
}

// Record describes one placed instruction.
type Record struct {
	Index         int    `cbor:"1,keyasint"`
	Name          string `cbor:"2,keyasint"`
	Code          uint8  `cbor:"3,keyasint"`
	Offset        int    `cbor:"4,keyasint"`
	Width         int    `cbor:"5,keyasint"`
	Targets       []int  `cbor:"6,keyasint,omitempty"` // logical target indices
	Displacements []int  `cbor:"7,keyasint,omitempty"`
}

// Build creates the document of a resolved sequence.
func Build(seq *sequence.Sequence, result *layout.Layout) (*Document, error) {
	if !seq.Sealed() {
		return nil, fmt.Errorf("dump: %w", encoder.ErrNotResolved)
	}
	if len(result.Entries) != seq.Len() {
		return nil, fmt.Errorf("dump: layout has %d entries for %d instructions", len(result.Entries), seq.Len())
	}

	doc := &Document{
		Version:    FormatVersion,
		Size:       result.Size,
		Iterations: result.Iterations,
		Records:    make([]Record, 0, seq.Len()),
	}

	for i, ins := range seq.All() {
		entry := result.Entries[i]
		record := Record{
			Index:  int(i),
			Name:   ins.Opcode().Name,
			Code:   ins.Opcode().Forms[entry.Form].Code,
			Offset: entry.Offset,
			Width:  entry.Width,
		}

		switch ins := ins.(type) {
		case *instruction.Branch:
			d, _ := ins.Displacement()
			record.Targets = []int{int(ins.Target())}
			record.Displacements = []int{d}

		case *instruction.Switch:
			displacements, _ := ins.Displacements()
			for _, target := range ins.References() {
				record.Targets = append(record.Targets, int(target))
			}
			record.Displacements = append(record.Displacements, displacements...)
		}

		doc.Records = append(doc.Records, record)
	}
	return doc, nil
}

// Marshal returns the canonical CBOR encoding of the document.
func Marshal(doc *Document) ([]byte, error) {
	data, err := encMode.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("dump: marshal document: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a document.
func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("dump: unmarshal document: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("dump: unsupported document version %d", doc.Version)
	}
	return &doc, nil
}

// Write writes the CBOR encoded document.
func Write(writer io.Writer, doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("dump: writing document: %w", err)
	}
	return nil
}

// Read reads a CBOR encoded document.
func Read(reader io.Reader) (*Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("dump: reading document: %w", err)
	}
	return Unmarshal(data)
}
