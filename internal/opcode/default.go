package opcode

// Names of opcodes that are referenced by tool code.
const (
	NameNop         = "nop"
	NameGoto        = "goto"
	NameTableSwitch = "tableswitch"
)

// switch header: opcode byte, int16 low bound, uint16 case count.
const switchHeaderWidth = 5

func plain(name string, code byte, width int) *Opcode {
	return MustNew(name, Plain, Form{Code: code, Width: width})
}

// branch creates a conditional branch with a short int8 and a long int16 form.
func branch(name string, short, long byte) *Opcode {
	return MustNew(name, Branch,
		Form{Code: short, Width: 2, Displacement: 1},
		Form{Code: long, Width: 3, Displacement: 2},
	)
}

// defaultOpcodes is the instruction set of the Darjeeling style target VM.
// Long branch forms keep their JVM codes, short forms use the 0xd0 range.
func defaultOpcodes() []*Opcode {
	return []*Opcode{
		plain(NameNop, 0x00, 1),
		plain("aconst_null", 0x01, 1),
		plain("sconst_m1", 0x02, 1),
		plain("sconst_0", 0x03, 1),
		plain("sconst_1", 0x04, 1),
		plain("sconst_2", 0x05, 1),
		plain("sconst_3", 0x06, 1),
		plain("bspush", 0x10, 2),
		plain("sspush", 0x11, 3),
		plain("ldc", 0x12, 2),
		plain("sload", 0x15, 2),
		plain("aload", 0x19, 2),
		plain("sstore", 0x36, 2),
		plain("astore", 0x3a, 2),
		plain("pop", 0x57, 1),
		plain("dup", 0x59, 1),
		plain("swap", 0x5f, 1),
		plain("sadd", 0x60, 1),
		plain("ssub", 0x64, 1),
		plain("smul", 0x68, 1),
		plain("sdiv", 0x6c, 1),
		plain("sneg", 0x74, 1),
		plain("sinc", 0x84, 3),
		plain("sreturn", 0xac, 1),
		plain("areturn", 0xb0, 1),
		plain("return", 0xb1, 1),
		plain("getfield", 0xb4, 3),
		plain("putfield", 0xb5, 3),
		plain("invokevirtual", 0xb6, 3),
		plain("invokestatic", 0xb8, 3),
		plain("new", 0xbb, 3),

		branch("ifeq", 0xd0, 0x99),
		branch("ifne", 0xd1, 0x9a),
		branch("iflt", 0xd2, 0x9b),
		branch("ifge", 0xd3, 0x9c),
		branch("ifgt", 0xd4, 0x9d),
		branch("ifle", 0xd5, 0x9e),
		branch("if_scmpeq", 0xd6, 0x9f),
		branch("if_scmpne", 0xd7, 0xa0),
		branch("if_scmplt", 0xd8, 0xa1),
		branch("if_scmpge", 0xd9, 0xa2),
		branch("if_scmpgt", 0xda, 0xa3),
		branch("if_scmple", 0xdb, 0xa4),
		branch("ifnull", 0xdd, 0xc6),
		branch("ifnonnull", 0xde, 0xc7),
		MustNew(NameGoto, Branch,
			Form{Code: 0xdc, Width: 2, Displacement: 1},
			Form{Code: 0xa7, Width: 3, Displacement: 2},
			Form{Code: 0xc8, Width: 5, Displacement: 4},
		),

		MustNew(NameTableSwitch, Switch, Form{Code: 0xaa, Width: switchHeaderWidth, Displacement: 2}),
	}
}

// Default returns a new table containing the built-in instruction set.
func Default() *Table {
	t, err := NewTable(defaultOpcodes()...)
	if err != nil {
		panic(err) // static table, covered by tests
	}
	return t
}
