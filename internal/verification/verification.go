// Package verification verifies that the generated bytecode and listing recreate the
// logical instruction sequence.
package verification

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/retroenv/retroinfuse/internal/encoder"
	"github.com/retroenv/retroinfuse/internal/instruction"
	"github.com/retroenv/retroinfuse/internal/layout"
	"github.com/retroenv/retroinfuse/internal/opcode"
	"github.com/retroenv/retroinfuse/internal/parser"
	"github.com/retroenv/retroinfuse/internal/sequence"
	"github.com/retroenv/retrogolib/log"
)

const maxLoggedMismatches = 10

// Snapshot is the logical form of a sequence taken before resolution.
type Snapshot struct {
	names    []string
	operands [][]byte
	targets  [][]instruction.Index
}

// Take records opcode names and logical targets of every instruction.
func Take(seq *sequence.Sequence) *Snapshot {
	s := &Snapshot{
		names:    make([]string, 0, seq.Len()),
		operands: make([][]byte, 0, seq.Len()),
		targets:  make([][]instruction.Index, 0, seq.Len()),
	}
	for _, ins := range seq.All() {
		var (
			operands []byte
			targets  []instruction.Index
		)
		switch ins := ins.(type) {
		case *instruction.Simple:
			operands = ins.Operands()
		case instruction.Targeted:
			targets = ins.References()
		}
		s.names = append(s.names, ins.Opcode().Name)
		s.operands = append(s.operands, operands)
		s.targets = append(s.targets, targets)
	}
	return s
}

// Len returns the number of recorded instructions.
func (s *Snapshot) Len() int {
	return len(s.names)
}

// Verifier checks generated outputs against a snapshot.
type Verifier struct {
	logger   *log.Logger
	table    *opcode.Table
	resolver *layout.Resolver
}

// New returns a new verifier.
func New(logger *log.Logger, table *opcode.Table, resolver *layout.Resolver) *Verifier {
	return &Verifier{
		logger:   logger,
		table:    table,
		resolver: resolver,
	}
}

// VerifyOutput decodes the bytecode, compares it with the snapshot and checks
// that resolving the decoded sequence again produces identical bytes.
func (v *Verifier) VerifyOutput(snapshot *Snapshot, data []byte) error {
	decoded, err := encoder.Decode(v.table, data)
	if err != nil {
		return fmt.Errorf("decoding bytecode: %w", err)
	}
	if err := v.compareSnapshot(snapshot, decoded); err != nil {
		return fmt.Errorf("comparing decoded bytecode: %w", err)
	}
	return v.reencode(decoded, data)
}

// VerifyListing parses a listing, compares it with the snapshot and checks that
// it encodes to identical bytes.
func (v *Verifier) VerifyListing(snapshot *Snapshot, listing, data []byte) error {
	parsed, _, err := parser.New(v.logger, v.table).Parse(bytes.NewReader(listing))
	if err != nil {
		return fmt.Errorf("parsing listing: %w", err)
	}
	if err := v.compareSnapshot(snapshot, parsed); err != nil {
		return fmt.Errorf("comparing listing: %w", err)
	}
	return v.reencode(parsed, data)
}

func (v *Verifier) reencode(seq *sequence.Sequence, expected []byte) error {
	if _, err := v.resolver.Resolve(seq); err != nil {
		return fmt.Errorf("resolving layout: %w", err)
	}
	data, err := encoder.Encode(seq)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	if err := checkBufferEqual(v.logger, expected, data); err != nil {
		return fmt.Errorf("bytecode mismatch: %w", err)
	}
	return nil
}

func (v *Verifier) compareSnapshot(snapshot *Snapshot, seq *sequence.Sequence) error {
	if snapshot.Len() != seq.Len() {
		return fmt.Errorf("mismatched instruction counts, %d != %d", snapshot.Len(), seq.Len())
	}

	got := Take(seq)
	var diffs uint64
	for i := range snapshot.names {
		if snapshot.names[i] == got.names[i] &&
			bytes.Equal(snapshot.operands[i], got.operands[i]) &&
			slices.Equal(snapshot.targets[i], got.targets[i]) {
			continue
		}

		diffs++
		if diffs <= maxLoggedMismatches {
			v.logger.Error("Instruction mismatch",
				log.Int("index", i),
				log.String("expected", format(snapshot, i)),
				log.String("got", format(got, i)))
		}
	}
	if diffs == 0 {
		return nil
	}
	return fmt.Errorf("%d instruction mismatches", diffs)
}

func format(s *Snapshot, i int) string {
	switch {
	case len(s.targets[i]) > 0:
		return fmt.Sprintf("%s%v", s.names[i], s.targets[i])
	case len(s.operands[i]) > 0:
		return fmt.Sprintf("%s % x", s.names[i], s.operands[i])
	default:
		return s.names[i]
	}
}

func checkBufferEqual(logger *log.Logger, input, output []byte) error {
	if len(input) != len(output) {
		return fmt.Errorf("mismatched lengths, %d != %d", len(input), len(output))
	}

	var diffs uint64
	for i := range input {
		if input[i] == output[i] {
			continue
		}

		diffs++
		if diffs <= maxLoggedMismatches {
			logger.Error("Offset mismatch",
				log.Hex("offset", i),
				log.Hex("expected", input[i]),
				log.Hex("got", output[i]))
		}
	}
	if diffs == 0 {
		return nil
	}
	return fmt.Errorf("%d offset mismatches", diffs)
}
