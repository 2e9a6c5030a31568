package retrace

import (
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

// TestOpcodeSizes walks a compiled program by declared sizes; every slot must
// be accounted for and the last opcode must be Stop.
func TestOpcodeSizes(t *testing.T) {
	patterns := []string{
		`a`, `abc`, `[a-z]+`, `(a|b)*c{2,5}`, `(?<n>\w+)\s\k<n>`,
		`(?=x)y`, `(?<!a)b`, `(?>atomic)`, `^(?:(?<o>\()|(?<-o>\)))+$`,
		`(a)?(?(1)b|c)`, `x{3}y{2,}z??`,
	}
	for _, p := range patterns {
		code := MustCompile(p, None).Code()
		pos := 0
		last := OpCode(-1)
		for pos < len(code.Codes) {
			op := OpCode(code.Codes[pos])
			size := opcodeSize(op)
			assert.Assert(t, size >= 1 && size <= 3, "pattern %q op %s", p, opName(op))
			last = op & opMask
			pos += size
		}
		assert.Equal(t, pos, len(code.Codes), "pattern %q must decode exactly", p)
		assert.Equal(t, last, OpStop, "pattern %q must end in Stop", p)
	}
}

// TestTrackCount: every backtracking opcode contributes to the stack budget.
func TestTrackCount(t *testing.T) {
	code := MustCompile(`(a+)+b`, None).Code()
	assert.Assert(t, code.TrackCount > 0)

	count := 0
	for pos := 0; pos < len(code.Codes); pos += opcodeSize(OpCode(code.Codes[pos])) {
		if opcodeBacktracks(OpCode(code.Codes[pos])) {
			count++
		}
	}
	assert.Equal(t, code.TrackCount, count)
}

// TestOpcodeFlags: direction and case bits decorate consuming opcodes.
func TestOpcodeFlags(t *testing.T) {
	code := MustCompile(`ab`, RightToLeft|IgnoreCase).Code()
	foundMulti := false
	for pos := 0; pos < len(code.Codes); pos += opcodeSize(OpCode(code.Codes[pos])) {
		op := OpCode(code.Codes[pos])
		if op&opMask == OpMulti {
			foundMulti = true
			assert.Assert(t, op&Rtl != 0, "Multi must carry Rtl")
			assert.Assert(t, op&Ci != 0, "Multi must carry Ci")
		}
	}
	assert.Assert(t, foundMulti)
}

// TestCaseFoldedTables: IgnoreCase pre-lowers the string table.
func TestCaseFoldedTables(t *testing.T) {
	code := MustCompile(`AbC`, IgnoreCase).Code()
	assert.Equal(t, len(code.Strings), 1)
	assert.Equal(t, string(code.Strings[0]), "abc")
}

// TestDump is a smoke test for the disassembler.
func TestDump(t *testing.T) {
	re := MustCompile(`(?<word>\w+)::=(\d+)`, None)
	dump := re.Dump()
	for _, want := range []string{"Setmark", "Capturemark", "Multi", "Stop", "track count"} {
		assert.Assert(t, strings.Contains(dump, want), "dump should mention %s:\n%s", want, dump)
	}
}

// TestSparseCaps: sparse declared group numbers map to dense slots through
// the caps table.
func TestSparseCaps(t *testing.T) {
	re := MustCompile(`(?<17>a)(b)`, None)
	code := re.Code()
	assert.Assert(t, code.Caps != nil, "sparse numbering needs a caps map")
	assert.Equal(t, code.CapSize, 3)
	assert.Equal(t, code.Caps[0], 0)
	assert.Equal(t, code.Caps[1], 1)
	assert.Equal(t, code.Caps[17], 2)
}
