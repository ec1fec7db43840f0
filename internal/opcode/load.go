package opcode

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
)

// tableFile is the TOML representation of an opcode table:
//
//	[[opcode]]
//	name = "goto"
//	kind = "branch"
//	forms = [
//	  { code = 0xdc, width = 2, displacement = 1 },
//	  { code = 0xa7, width = 3, displacement = 2 },
//	]
type tableFile struct {
	Opcodes []opcodeEntry `toml:"opcode"`
}

type opcodeEntry struct {
	Name  string      `toml:"name"`
	Kind  string      `toml:"kind"`
	Forms []formEntry `toml:"forms"`
}

type formEntry struct {
	Code         int `toml:"code"`
	Width        int `toml:"width"`
	Displacement int `toml:"displacement"`
}

// LoadTable reads an opcode table in TOML format.
func LoadTable(reader io.Reader) (*Table, error) {
	var file tableFile
	md, err := toml.NewDecoder(reader).Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("decoding opcode table: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("unknown opcode table keys: %s", strings.Join(keys, ", "))
	}
	if len(file.Opcodes) == 0 {
		return nil, errors.New("opcode table contains no opcodes")
	}

	opcodes := make([]*Opcode, 0, len(file.Opcodes))
	for i, entry := range file.Opcodes {
		op, err := entry.opcode()
		if err != nil {
			return nil, fmt.Errorf("opcode entry %d: %w", i+1, err)
		}
		opcodes = append(opcodes, op)
	}

	table, err := NewTable(opcodes...)
	if err != nil {
		return nil, fmt.Errorf("creating opcode table: %w", err)
	}
	return table, nil
}

func (e opcodeEntry) opcode() (*Opcode, error) {
	kind, err := ParseKind(e.Kind)
	if err != nil {
		return nil, err
	}

	forms := make([]Form, 0, len(e.Forms))
	for _, f := range e.Forms {
		if f.Code < 0 || f.Code > 0xff {
			return nil, fmt.Errorf("opcode '%s' has code %d outside of byte range", e.Name, f.Code)
		}
		forms = append(forms, Form{
			Code:         byte(f.Code),
			Width:        f.Width,
			Displacement: f.Displacement,
		})
	}

	return New(e.Name, kind, forms...)
}
