package retrace

import (
	"testing"

	"gotest.tools/v3/assert"
)

// TestBMPrefixScan tests the Boyer-Moore search in both directions.
func TestBMPrefixScan(t *testing.T) {
	fold := func(r rune) rune { return r }

	bm := newBMPrefix([]rune("needle"), false, false, fold)
	text := []rune("haystack needle haystack")
	assert.Equal(t, bm.Scan(text, 0, 0, len(text)), 9)
	assert.Equal(t, bm.Scan(text, 10, 0, len(text)), -1)
	assert.Assert(t, bm.IsMatch(text, 9, 0, len(text)))
	assert.Assert(t, !bm.IsMatch(text, 8, 0, len(text)))

	rbm := newBMPrefix([]rune("foo"), false, true, fold)
	rt := []rune("foo foo")
	// Right to left the scanner reports the candidate match end.
	assert.Equal(t, rbm.Scan(rt, len(rt), 0, len(rt)), 7)
	assert.Equal(t, rbm.Scan(rt, 6, 0, len(rt)), 3)
	assert.Equal(t, rbm.Scan(rt, 2, 0, len(rt)), -1)
	assert.Assert(t, rbm.IsMatch(rt, 3, 0, len(rt)))
}

// TestBMPrefixCaseFold tests case-insensitive prefix search.
func TestBMPrefixCaseFold(t *testing.T) {
	fold := func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}
	bm := newBMPrefix([]rune("AbC"), true, false, fold)
	text := []rune("xx aBc yy")
	assert.Equal(t, bm.Scan(text, 0, 0, len(text)), 3)
}

// TestCompiledPrefixSelection tests which optimization the writer picks.
func TestCompiledPrefixSelection(t *testing.T) {
	// A long literal head becomes a Boyer-Moore prefix.
	re := MustCompile(`hello\d+`, None)
	assert.Assert(t, re.Code().BMPrefix != nil)
	assert.Equal(t, string(re.Code().BMPrefix.Pattern), "hello")

	// A single guaranteed char cannot seed Boyer-Moore, so the first-char
	// set takes over.
	re = MustCompile(`a*b`, None)
	code := re.Code()
	assert.Assert(t, code.BMPrefix == nil)
	assert.Assert(t, code.FCPrefix != nil)
	assert.Assert(t, code.FCPrefix.Class.CharIn('a'))
	assert.Assert(t, code.FCPrefix.Class.CharIn('b'))
	assert.Assert(t, !code.FCPrefix.Class.CharIn('c'))

	// A nullable pattern can start anywhere: no prefix of any kind.
	re = MustCompile(`a*`, None)
	assert.Assert(t, re.Code().BMPrefix == nil)
	assert.Assert(t, re.Code().FCPrefix == nil)

	// A leading backreference defeats the analysis.
	re = MustCompile(`(a)|\1`, None)
	assert.Assert(t, re.Code().FCPrefix == nil)
}

// TestLeadingAnchors tests the anchor bit-set derivation.
func TestLeadingAnchors(t *testing.T) {
	tests := []struct {
		pattern string
		want    AnchorFlags
	}{
		{`\Afoo`, AnchorBeginning},
		{`\Gfoo`, AnchorStart},
		{`^foo`, AnchorBeginning}, // ^ is \A outside Multiline
		{`(\Afoo)`, AnchorBeginning},
		{`\A\Gfoo`, AnchorBeginning | AnchorStart},
		{`foo`, 0},
		{`a|\Ab`, 0}, // only one branch is anchored
	}
	for _, tc := range tests {
		re := MustCompile(tc.pattern, None)
		got := re.Code().Anchors & (AnchorBeginning | AnchorStart | AnchorEndZ | AnchorEnd)
		assert.Equal(t, got, tc.want, "pattern %q", tc.pattern)
	}
}

// TestAnchorSkip tests that anchored scans terminate without walking the text.
func TestAnchorSkip(t *testing.T) {
	re := MustCompile(`\Axyz`, None)
	m, err := re.FindStringMatch("aaaaaaaaaa xyz")
	assert.NilError(t, err)
	assert.Assert(t, m == nil, "\\A-anchored pattern must not match mid-text")

	re = MustCompile(`xyz\z`, None)
	m, err = re.FindStringMatch("xyz ... xyz")
	assert.NilError(t, err)
	assert.Assert(t, m != nil)
	assert.Equal(t, m.Index, 8)
}

// TestFirstCharSingleton tests the singleton fast path.
func TestFirstCharSingleton(t *testing.T) {
	re := MustCompile(`q\w*`, None)
	code := re.Code()
	if code.BMPrefix != nil {
		t.Skip("writer chose a multi-char prefix")
	}
	assert.Assert(t, code.FCPrefix != nil)
	ch, ok := code.FCPrefix.Class.SingletonChar()
	assert.Assert(t, ok)
	assert.Equal(t, ch, 'q')

	m, err := re.FindStringMatch("xxx qat")
	assert.NilError(t, err)
	assert.Assert(t, m != nil)
	assert.Equal(t, m.Index, 4)
}
