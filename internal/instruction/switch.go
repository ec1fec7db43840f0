package instruction

import (
	"fmt"
	"math"
	"strings"

	"github.com/retroenv/retroinfuse/internal/opcode"
)

var _ Targeted = (*Switch)(nil)

// Limits of the switch header fields.
const (
	MinSwitchLow   = math.MinInt16
	MaxSwitchLow   = math.MaxInt16
	MaxSwitchCases = math.MaxUint16
)

// Switch is a table switch with a default target and one target per case value,
// starting at the low case value.
type Switch struct {
	header

	low     int
	targets []Index // default first, then the cases

	displacements []int
	resolved      bool
}

// NewSwitch returns a new table switch.
func NewSwitch(op *opcode.Opcode, low int, fallback Index, cases ...Index) *Switch {
	targets := make([]Index, 0, len(cases)+1)
	targets = append(targets, fallback)
	targets = append(targets, cases...)
	return &Switch{
		header:  header{op: op},
		low:     low,
		targets: targets,
	}
}

// Low returns the case value of the first case target.
func (s *Switch) Low() int {
	return s.low
}

// InRange returns whether the low case value and the number of cases fit the
// switch header fields.
func (s *Switch) InRange() bool {
	return s.low >= MinSwitchLow && s.low <= MaxSwitchLow && len(s.targets)-1 <= MaxSwitchCases
}

// Default returns the logical target used for values outside of the case range.
func (s *Switch) Default() Index {
	return s.targets[0]
}

// Cases returns the logical case targets.
func (s *Switch) Cases() []Index {
	cases := make([]Index, len(s.targets)-1)
	copy(cases, s.targets[1:])
	return cases
}

// References returns the default target followed by the case targets.
func (s *Switch) References() []Index {
	references := make([]Index, len(s.targets))
	copy(references, s.targets)
	return references
}

// SetReference sets the k-th reference, 0 being the default target.
func (s *Switch) SetReference(k int, target Index) {
	s.targets[k] = target
}

// Displacements returns the resolved displacements in reference order and
// whether the switch has been resolved.
func (s *Switch) Displacements() ([]int, bool) {
	return s.displacements, s.resolved
}

// Resolve stores the final displacements.
func (s *Switch) Resolve(displacements []int) {
	s.displacements = make([]int, len(displacements))
	copy(s.displacements, displacements)
	s.resolved = true
}

// Resolved returns whether the final displacements are set.
func (s *Switch) Resolved() bool {
	return s.resolved
}

// EncodedWidth returns the header width plus one displacement field per reference.
func (s *Switch) EncodedWidth(form int) int {
	f := s.op.Forms[form]
	return f.Width + len(s.targets)*f.Displacement
}

// Width returns the encoded width.
func (s *Switch) Width() int {
	return s.EncodedWidth(s.form)
}

// String returns the diagnostic form "<name>(<default>,<case>,...)".
func (s *Switch) String() string {
	parts := make([]string, len(s.targets))
	for i, target := range s.targets {
		parts[i] = fmt.Sprint(int(target))
	}
	return fmt.Sprintf("%s(%s)", s.op.Name, strings.Join(parts, ","))
}
