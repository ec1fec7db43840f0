// Package symbols tracks the labels that name positions of an instruction sequence.
package symbols

import (
	"fmt"
	"sort"

	"github.com/retroenv/retroinfuse/internal/instruction"
	"github.com/retroenv/retroinfuse/internal/sequence"
	"github.com/retroenv/retrogolib/set"
)

// Label names an instruction position.
type Label struct {
	Name  string
	Index instruction.Index
	Line  int // source line of the definition, 0 if generated
}

// Table maps label names to instruction indices and tracks which labels are
// referenced. Indices refer to the sequence the labels were defined for.
type Table struct {
	labels  map[string]*Label
	byIndex map[instruction.Index][]*Label
	used    set.Set[string]
}

// New creates a new label table.
func New() *Table {
	return &Table{
		labels:  make(map[string]*Label),
		byIndex: make(map[instruction.Index][]*Label),
		used:    set.New[string](),
	}
}

// Define adds a label for the given index.
func (t *Table) Define(name string, index instruction.Index, line int) error {
	if existing, ok := t.labels[name]; ok {
		return fmt.Errorf("label '%s' already defined on line %d", name, existing.Line)
	}

	label := &Label{
		Name:  name,
		Index: index,
		Line:  line,
	}
	t.labels[name] = label
	t.byIndex[index] = append(t.byIndex[index], label)
	return nil
}

// Lookup returns the label with the given name.
func (t *Table) Lookup(name string) (*Label, bool) {
	label, ok := t.labels[name]
	return label, ok
}

// At returns all labels of an index in definition order.
func (t *Table) At(index instruction.Index) []*Label {
	return t.byIndex[index]
}

// Len returns the number of labels.
func (t *Table) Len() int {
	return len(t.labels)
}

// MarkUsed marks a label as referenced.
func (t *Table) MarkUsed(name string) {
	t.used.Add(name)
}

// IsUsed returns whether a label is marked as referenced.
func (t *Table) IsUsed(name string) bool {
	return t.used.Contains(name)
}

// Sorted returns all labels sorted by index and name.
func (t *Table) Sorted() []*Label {
	labels := make([]*Label, 0, len(t.labels))
	for _, label := range t.labels {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Index != labels[j].Index {
			return labels[i].Index < labels[j].Index
		}
		return labels[i].Name < labels[j].Name
	})
	return labels
}

// Unused returns all labels that are not referenced, sorted by index and name.
func (t *Table) Unused() []*Label {
	var unused []*Label
	for _, label := range t.Sorted() {
		if !t.used.Contains(label.Name) {
			unused = append(unused, label)
		}
	}
	return unused
}

// Names maps instructions to the label names that refer to them.
type Names map[instruction.Instruction]string

// Bind returns the first referenced label of every labeled instruction of the
// sequence the table was built for. The names stay attached to their
// instructions through later structural edits of the sequence.
func (t *Table) Bind(seq *sequence.Sequence) Names {
	names := make(Names)
	for i, ins := range seq.All() {
		for _, label := range t.At(i) {
			if t.IsUsed(label.Name) {
				names[ins] = label.Name
				break
			}
		}
	}
	return names
}
