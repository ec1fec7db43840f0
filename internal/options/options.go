// Package options contains the program options.
package options

// Parameters contains file path options.
type Parameters struct {
	Input   string `flag:"i" usage:"input file"`
	Output  string `flag:"o" usage:"output bytecode file"`
	Listing string `flag:"l" usage:"output listing file (default: stdout if no output file is given)"`
	Dump    string `flag:"dump" usage:"output CBOR layout dump file"`
	Table   string `flag:"t" usage:"opcode table TOML file (default: built-in table)"`
	Batch   string `flag:"batch" usage:"batch process files matching pattern (e.g. *.ir)"`
}

// Flags contains behavior options.
type Flags struct {
	Format        string `flag:"f" usage:"input format: ir, bytecode (default: auto-detect)"`
	StripNops     bool   `flag:"strip-nops" usage:"remove nop instructions before resolving"`
	ThreadJumps   bool   `flag:"thread-jumps" usage:"retarget branches to the end of goto chains"`
	MaxIterations int    `flag:"max-iterations" usage:"layout relaxation iteration limit" default:"32"`
	Jobs          int    `flag:"j" usage:"number of files processed in parallel in batch mode" default:"4"`
	Verify        bool   `flag:"verify" usage:"verify output by decoding and comparing to the input"`
	Debug         bool   `flag:"debug" usage:"enable debug logging"`
	Quiet         bool   `flag:"q" usage:"quiet mode"`
}

// OutputFlags contains output formatting options.
type OutputFlags struct {
	NoHexComments bool `flag:"nohexcomments" usage:"omit hex bytes in listing comments"`
	NoOffsets     bool `flag:"nooffsets" usage:"omit offsets in listing comments"`
	Diagnostic    bool `flag:"diag" usage:"log the logical instruction form before resolving"`
}

// Program options of the infuser.
type Program struct {
	Parameters
	Flags
	OutputFlags
}

// Infuser defines options to control the transformation and output stages.
type Infuser struct {
	MaxIterations int // layout relaxation iteration limit, 0 uses the default
	StripNops     bool
	ThreadJumps   bool

	Diagnostic     bool // print the logical form before resolution
	HexComments    bool
	OffsetComments bool
}

// NewInfuser returns a new options instance with default options.
func NewInfuser() Infuser {
	return Infuser{
		HexComments:    true,
		OffsetComments: true,
	}
}
