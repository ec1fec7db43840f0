// Package layout implements the target resolver that converts logical branch
// targets into byte displacements.
//
// Resolution is a fixed-point relaxation: every instruction starts with the
// smallest form of its opcode, offsets are computed, and every branch whose
// displacement does not fit its form is grown to the smallest form that does.
// Forms never shrink, so offsets only move apart and the loop terminates once
// an iteration changes nothing.
//
// Displacements are signed and measured from the first byte of the referring
// instruction to the first byte of the target:
//
//	offset(branch) + displacement == offset(target)
package layout

import (
	"fmt"

	"github.com/retroenv/retroinfuse/internal/instruction"
	"github.com/retroenv/retroinfuse/internal/sequence"
	"github.com/retroenv/retrogolib/log"
)

// DefaultMaxIterations is the relaxation iteration limit used when none is configured.
const DefaultMaxIterations = 32

// Options configures the resolver.
type Options struct {
	MaxIterations int // 0 selects DefaultMaxIterations
}

// Entry is the resolved placement of one instruction.
type Entry struct {
	Offset int
	Width  int
	Form   int
}

// Layout is the result of one resolution run.
type Layout struct {
	Entries    []Entry
	Size       int // total encoded size in bytes
	Iterations int
}

// Offset returns the resolved byte offset of the instruction at the given index.
// The index equal to the sequence length returns the total size.
func (l *Layout) Offset(index instruction.Index) int {
	if int(index) == len(l.Entries) {
		return l.Size
	}
	return l.Entries[index].Offset
}

// Resolver resolves instruction sequences. It holds no per-run state and can be
// used for multiple independent sequences concurrently.
type Resolver struct {
	logger        *log.Logger
	maxIterations int
}

// New returns a new resolver.
func New(logger *log.Logger, opts Options) *Resolver {
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Resolver{
		logger:        logger,
		maxIterations: maxIterations,
	}
}

// state is the ephemeral layout of one resolution run.
type state struct {
	instructions []instruction.Instruction
	forms        []int
	offsets      []int // one more entry than instructions, the last one is the total size
}

// Resolve computes the final layout of the sequence, stores offsets, forms and
// displacements in its instructions and seals it. The sequence is not modified
// if an error is returned.
func (r *Resolver) Resolve(seq *sequence.Sequence) (*Layout, error) {
	if err := checkUnresolved(seq); err != nil {
		return nil, err
	}
	if err := validateTargets(seq); err != nil {
		return nil, err
	}

	st := &state{
		instructions: seq.Instructions(),
		forms:        make([]int, seq.Len()),
		offsets:      make([]int, seq.Len()+1),
	}

	iterations, err := r.relax(st)
	if err != nil {
		return nil, err
	}

	return st.commit(seq, iterations), nil
}

func checkUnresolved(seq *sequence.Sequence) error {
	if seq.Sealed() {
		return ErrAlreadyResolved
	}
	for _, ins := range seq.All() {
		if ins.Resolved() {
			return ErrAlreadyResolved
		}
	}
	return nil
}

// validateTargets is the only place where logical targets and switch header
// ranges are checked.
func validateTargets(seq *sequence.Sequence) error {
	n := seq.Len()
	for i, ins := range seq.All() {
		t, ok := ins.(instruction.Targeted)
		if !ok {
			continue
		}
		if sw, ok := ins.(*instruction.Switch); ok && !sw.InRange() {
			return &SwitchRangeError{
				Index:  i,
				Opcode: ins.Opcode().Name,
				Low:    sw.Low(),
				Cases:  len(sw.References()) - 1,
			}
		}
		for k, target := range t.References() {
			if !target.Valid(n) {
				return &DanglingTargetError{
					Index:     i,
					Opcode:    ins.Opcode().Name,
					Reference: k,
					Target:    target,
					Length:    n,
				}
			}
		}
	}
	return nil
}

// relax iterates until no form changes and returns the number of iterations.
func (r *Resolver) relax(st *state) (int, error) {
	for iteration := 1; ; iteration++ {
		st.place()

		grown, err := st.grow(iteration)
		if err != nil {
			return 0, err
		}

		r.logger.Debug("Layout iteration",
			log.Int("iteration", iteration),
			log.Int("size", st.offsets[len(st.instructions)]),
			log.Int("grown", len(grown)))

		if len(grown) == 0 {
			return iteration, nil
		}

		if iteration == r.maxIterations {
			index := grown[0]
			return 0, &LayoutOverflowError{
				Index:        index,
				Opcode:       st.instructions[index].Opcode().Name,
				Displacement: st.displacement(index, 0),
				Iterations:   iteration,
				Limit:        r.maxIterations,
			}
		}
	}
}

// place computes offsets from the currently selected forms.
func (st *state) place() {
	offset := 0
	for i, ins := range st.instructions {
		st.offsets[i] = offset
		offset += ins.EncodedWidth(st.forms[i])
	}
	st.offsets[len(st.instructions)] = offset
}

func (st *state) displacement(index instruction.Index, reference int) int {
	t := st.instructions[index].(instruction.Targeted)
	target := t.References()[reference]
	return st.offsets[target] - st.offsets[index]
}

// grow selects a larger form for every instruction whose displacement does not
// fit its current form and returns the grown positions.
func (st *state) grow(iteration int) ([]instruction.Index, error) {
	var grown []instruction.Index

	for i, ins := range st.instructions {
		index := instruction.Index(i)
		op := ins.Opcode()

		switch ins := ins.(type) {
		case *instruction.Simple:
			continue

		case *instruction.Branch:
			d := st.displacement(index, 0)
			if op.Forms[st.forms[i]].Fits(d) {
				continue
			}
			form, ok := op.FormFor(d)
			if !ok {
				return nil, &LayoutOverflowError{
					Index:        index,
					Opcode:       op.Name,
					Displacement: d,
					Iterations:   iteration,
				}
			}
			if form > st.forms[i] {
				st.forms[i] = form
				grown = append(grown, index)
			}

		case *instruction.Switch:
			form := op.Forms[st.forms[i]]
			for k := range ins.References() {
				d := st.displacement(index, k)
				if !form.Fits(d) {
					return nil, &LayoutOverflowError{
						Index:        index,
						Opcode:       op.Name,
						Displacement: d,
						Iterations:   iteration,
					}
				}
			}

		default:
			panic(fmt.Sprintf("unsupported instruction type %T", ins))
		}
	}

	return grown, nil
}

// commit annotates the instructions with the final layout and seals the sequence.
func (st *state) commit(seq *sequence.Sequence, iterations int) *Layout {
	result := &Layout{
		Entries:    make([]Entry, len(st.instructions)),
		Size:       st.offsets[len(st.instructions)],
		Iterations: iterations,
	}

	for i, ins := range st.instructions {
		index := instruction.Index(i)
		ins.Place(st.offsets[i], st.forms[i])
		result.Entries[i] = Entry{
			Offset: st.offsets[i],
			Width:  ins.EncodedWidth(st.forms[i]),
			Form:   st.forms[i],
		}

		t, ok := ins.(instruction.Targeted)
		if !ok {
			continue
		}
		references := t.References()
		displacements := make([]int, len(references))
		for k := range references {
			displacements[k] = st.displacement(index, k)
		}
		t.Resolve(displacements)
	}

	seq.Seal()
	return result
}
