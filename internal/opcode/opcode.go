// Package opcode contains the static instruction descriptors of the target virtual machine.
package opcode

import (
	"errors"
	"fmt"
	"strings"
)

// Kind defines whether instructions of an opcode carry logical targets.
type Kind uint8

// opcode kinds.
const (
	Plain  Kind = iota // no target reference
	Branch             // exactly one target reference
	Switch             // default target plus one target per case
)

var kindNames = map[Kind]string{
	Plain:  "plain",
	Branch: "branch",
	Switch: "switch",
}

// String returns the name of the kind as used in opcode table files.
func (k Kind) String() string {
	name, ok := kindNames[k]
	if !ok {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return name
}

// ParseKind converts a kind name to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Plain, nil
	}
	for kind, name := range kindNames {
		if name == s {
			return kind, nil
		}
	}
	return Plain, fmt.Errorf("unsupported opcode kind '%s'", s)
}

// Form is one encoding of an opcode. Opcodes with a single form have a fixed width,
// opcodes with multiple forms are variable width and the layout resolver picks
// the smallest form that can hold the displacement.
type Form struct {
	Code         byte // numeric code emitted for this form
	Width        int  // encoded width in bytes; for switches the width of the header only
	Displacement int  // size of each displacement field in bytes, 0 for plain opcodes
}

// Fits returns whether the signed displacement can be encoded in this form.
func (f Form) Fits(displacement int) bool {
	if f.Displacement <= 0 {
		return false
	}
	if f.Displacement >= 8 {
		return true
	}
	bits := uint(f.Displacement * 8)
	lowest := -(int64(1) << (bits - 1))
	highest := int64(1)<<(bits-1) - 1
	d := int64(displacement)
	return d >= lowest && d <= highest
}

// Opcode describes an instruction kind. Opcodes are immutable after creation and
// are shared by pointer between all instructions of that kind.
type Opcode struct {
	Name  string
	Kind  Kind
	Forms []Form // ordered by increasing width
}

// New creates and validates a new opcode.
func New(name string, kind Kind, forms ...Form) (*Opcode, error) {
	op := &Opcode{
		Name:  name,
		Kind:  kind,
		Forms: forms,
	}
	if err := op.validate(); err != nil {
		return nil, err
	}
	return op, nil
}

// MustNew creates a new opcode and panics if the definition is invalid.
// It is meant for static opcode tables.
func MustNew(name string, kind Kind, forms ...Form) *Opcode {
	op, err := New(name, kind, forms...)
	if err != nil {
		panic(err)
	}
	return op
}

// Code returns the numeric code of the smallest form.
func (o *Opcode) Code() byte {
	return o.Forms[0].Code
}

// Variable returns whether the opcode has more than one encoding width.
func (o *Opcode) Variable() bool {
	return len(o.Forms) > 1
}

// MinWidth returns the width of the smallest form.
func (o *Opcode) MinWidth() int {
	return o.Forms[0].Width
}

// MaxWidth returns the width of the largest form.
func (o *Opcode) MaxWidth() int {
	return o.Forms[len(o.Forms)-1].Width
}

// FormFor returns the index of the smallest form that can encode the displacement.
func (o *Opcode) FormFor(displacement int) (int, bool) {
	for i, form := range o.Forms {
		if form.Fits(displacement) {
			return i, true
		}
	}
	return 0, false
}

// String returns the opcode name.
func (o *Opcode) String() string {
	return o.Name
}

func (o *Opcode) validate() error {
	if o.Name == "" {
		return errors.New("opcode without name")
	}
	if len(o.Forms) == 0 {
		return fmt.Errorf("opcode '%s' has no encoding forms", o.Name)
	}

	switch o.Kind {
	case Plain:
		if len(o.Forms) != 1 {
			return fmt.Errorf("plain opcode '%s' must have exactly one form", o.Name)
		}
		form := o.Forms[0]
		if form.Width < 1 || form.Displacement != 0 {
			return fmt.Errorf("plain opcode '%s' has invalid form width %d displacement %d",
				o.Name, form.Width, form.Displacement)
		}

	case Branch:
		for i, form := range o.Forms {
			if form.Displacement <= 0 || form.Width != 1+form.Displacement {
				return fmt.Errorf("branch opcode '%s' form %d has invalid width %d displacement %d",
					o.Name, i, form.Width, form.Displacement)
			}
			if i > 0 && form.Displacement <= o.Forms[i-1].Displacement {
				return fmt.Errorf("branch opcode '%s' forms are not ordered by displacement size", o.Name)
			}
		}

	case Switch:
		if len(o.Forms) != 1 {
			return fmt.Errorf("switch opcode '%s' must have exactly one form", o.Name)
		}
		form := o.Forms[0]
		if form.Width < 1 || form.Displacement <= 0 {
			return fmt.Errorf("switch opcode '%s' has invalid form width %d displacement %d",
				o.Name, form.Width, form.Displacement)
		}

	default:
		return fmt.Errorf("opcode '%s' has unsupported kind %s", o.Name, o.Kind)
	}

	for i, form := range o.Forms {
		if form.Displacement != 0 && form.Displacement != 1 && form.Displacement != 2 && form.Displacement != 4 {
			return fmt.Errorf("opcode '%s' form %d has unsupported displacement size %d",
				o.Name, i, form.Displacement)
		}
	}
	return nil
}
