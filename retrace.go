// Package retrace is a backtracking regular-expression engine. Patterns
// compile to a linear integer bytecode executed by a three-stack virtual
// machine, with numbered and named capture groups, balanced groups,
// lookarounds, atomic groups, right-to-left scanning and match timeouts.
package retrace

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"
	"unicode"
)

// Options alter compilation and matching.
type Options int

const (
	None                    Options = 0x0000
	IgnoreCase              Options = 0x0001 // case-insensitive comparison via the bound case folder
	Multiline               Options = 0x0002 // ^ and $ match at inner newlines
	ExplicitCapture         Options = 0x0004 // plain (...) groups do not capture
	Compiled                Options = 0x0008 // accepted for compatibility; selects nothing here
	Singleline              Options = 0x0010 // . matches newline
	IgnorePatternWhitespace Options = 0x0020 // unescaped whitespace and # comments ignored
	RightToLeft             Options = 0x0040 // scan and consume backwards
	Debug                   Options = 0x0080 // trace execution to stderr
	ECMAScript              Options = 0x0100 // ECMAScript reference and word-boundary semantics
	CultureInvariant        Options = 0x0200 // invariant case folding
)

// DefaultMatchTimeout applies to newly compiled patterns; zero means no
// deadline.
var DefaultMatchTimeout time.Duration

// ErrStartOutOfRange is returned when a start position lies outside the input.
var ErrStartOutOfRange = errors.New("retrace: start position out of range")

// Regexp is a compiled pattern. It is safe for concurrent use: the program is
// immutable, and each scan borrows an exclusive interpreter from a one-slot
// atomic cache, allocating a fresh one when the slot is busy.
type Regexp struct {
	pattern string
	options Options
	code    *Code

	capNames  map[string]int
	capNums   []int // slot index -> declared group number
	numToName map[int]string

	matchTimeout time.Duration
	folder       func(rune) rune

	runnerSlot atomic.Pointer[runner]
}

// Compile parses a pattern into an executable Regexp.
func Compile(expr string, opt Options) (*Regexp, error) {
	return CompileWithFolder(expr, opt, unicode.ToLower)
}

// CompileWithFolder binds a specific case folder, the engine's stand-in for a
// culture: IgnoreCase comparisons lower both sides through it, and the string
// and class tables are pre-lowered with it at compile time.
func CompileWithFolder(expr string, opt Options, folder func(rune) rune) (*Regexp, error) {
	parsed, err := newParser(expr, opt).parse()
	if err != nil {
		return nil, err
	}
	code, err := writeCode(parsed, folder)
	if err != nil {
		return nil, err
	}

	numToName := make(map[int]string, len(parsed.capNames))
	for name, num := range parsed.capNames {
		numToName[num] = name
	}
	return &Regexp{
		pattern:      expr,
		options:      parsed.options,
		code:         code,
		capNames:     parsed.capNames,
		capNums:      parsed.capNums,
		numToName:    numToName,
		matchTimeout: DefaultMatchTimeout,
		folder:       folder,
	}, nil
}

// MustCompile is Compile that panics on error, for initialization of globals.
func MustCompile(expr string, opt Options) *Regexp {
	re, err := Compile(expr, opt)
	if err != nil {
		panic(fmt.Sprintf("retrace: Compile(%q): %v", expr, err))
	}
	return re
}

// String returns the source text of the pattern.
func (re *Regexp) String() string {
	return re.pattern
}

// Options returns the options in force at the end of the pattern: the compile
// options plus any bare top-level inline setting such as (?i) still on there.
// Options scoped to a group, as in (?i:...), are not included.
func (re *Regexp) Options() Options {
	return re.options
}

// RightToLeft reports whether the pattern scans backwards.
func (re *Regexp) RightToLeft() bool {
	return re.code.RightToLeft
}

// Dump disassembles the compiled program.
func (re *Regexp) Dump() string {
	return re.code.Dump()
}

// Code exposes the immutable compiled program, for tooling.
func (re *Regexp) Code() *Code {
	return re.code
}

// SetMatchTimeout bounds every subsequent scan. Set it before sharing the
// Regexp across goroutines.
func (re *Regexp) SetMatchTimeout(d time.Duration) {
	re.matchTimeout = d
}

// MatchTimeout returns the configured deadline budget.
func (re *Regexp) MatchTimeout() time.Duration {
	return re.matchTimeout
}

// GroupCount returns the number of groups, including group 0.
func (re *Regexp) GroupCount() int {
	return re.code.CapSize
}

// GroupNumberFromName resolves a group name (or decimal number string) to its
// declared number, -1 if absent.
func (re *Regexp) GroupNumberFromName(name string) int {
	if num, ok := re.capNames[name]; ok {
		return num
	}
	if num, ok := asNumber(name); ok && re.hasGroupNumber(num) {
		return num
	}
	return -1
}

// GroupNameFromNumber returns the name of a declared group number, or its
// decimal form when the group is unnamed, or "" when absent.
func (re *Regexp) GroupNameFromNumber(num int) string {
	if name, ok := re.numToName[num]; ok {
		return name
	}
	if re.hasGroupNumber(num) {
		return strconv.Itoa(num)
	}
	return ""
}

// GetGroupNames returns the name of every group in slot order.
func (re *Regexp) GetGroupNames() []string {
	names := make([]string, len(re.capNums))
	for i, num := range re.capNums {
		names[i] = re.GroupNameFromNumber(num)
	}
	return names
}

// GetGroupNumbers returns every declared group number in slot order.
func (re *Regexp) GetGroupNumbers() []int {
	return append([]int(nil), re.capNums...)
}

func (re *Regexp) hasGroupNumber(num int) bool {
	if re.code.Caps != nil {
		_, ok := re.code.Caps[num]
		return ok
	}
	return num >= 0 && num < re.code.CapSize
}

// Runner cache: one interpreter parks in the slot between scans. Acquisition
// atomically empties the slot (marking it busy); release re-fills it only if
// still empty, so a losing concurrent scan's runner is simply dropped.

func (re *Regexp) getRunner() *runner {
	if r := re.runnerSlot.Swap(nil); r != nil {
		return r
	}
	return newRunner(re)
}

func (re *Regexp) putRunner(r *runner) {
	re.runnerSlot.CompareAndSwap(nil, r)
}

func (re *Regexp) defaultStart(text []rune) int {
	if re.code.RightToLeft {
		return len(text)
	}
	return 0
}

// runQuick reports existence without building a match record.
func (re *Regexp) runQuick(text []rune, startAt int) (bool, error) {
	m, err := re.run(true, -1, text, startAt)
	return m != nil, err
}

// runFrom produces a full match record.
func (re *Regexp) runFrom(text []rune, startAt, prevlen int) (*Match, error) {
	return re.run(false, prevlen, text, startAt)
}

func (re *Regexp) run(quick bool, prevlen int, text []rune, startAt int) (*Match, error) {
	if startAt < 0 || startAt > len(text) {
		return nil, ErrStartOutOfRange
	}
	r := re.getRunner()
	defer re.putRunner(r)
	return r.scan(text, 0, len(text), startAt, prevlen, quick, re.matchTimeout)
}

// MatchString reports whether the pattern matches anywhere in s.
func (re *Regexp) MatchString(s string) (bool, error) {
	text := runesOf(s)
	return re.runQuick(text, re.defaultStart(text))
}

// Match reports whether the pattern matches anywhere in b.
func (re *Regexp) Match(b []byte) (bool, error) {
	text := runesOfBytes(b)
	return re.runQuick(text, re.defaultStart(text))
}

// MatchReader reports whether the pattern matches the text read from r. The
// input is read fully before matching.
func (re *Regexp) MatchReader(r io.Reader) (bool, error) {
	text, err := runesFromReader(r)
	if err != nil {
		return false, err
	}
	return re.runQuick(text, re.defaultStart(text))
}

// FindStringMatch returns the first match in s, or nil.
func (re *Regexp) FindStringMatch(s string) (*Match, error) {
	text := runesOf(s)
	return re.runFrom(text, re.defaultStart(text), -1)
}

// FindStringMatchStartingAt begins the search at startAt.
func (re *Regexp) FindStringMatchStartingAt(s string, startAt int) (*Match, error) {
	return re.runFrom(runesOf(s), startAt, -1)
}

// FindNextMatch continues the search after a previous match; an empty
// previous match forces one position of progress first.
func (re *Regexp) FindNextMatch(m *Match) (*Match, error) {
	if m == nil {
		return nil, nil
	}
	return re.run(false, m.Length, m.text, m.textpos)
}

// FindAllStringMatch returns up to n successive matches; n < 0 means all.
func (re *Regexp) FindAllStringMatch(s string, n int) ([]*Match, error) {
	if n == 0 {
		return nil, nil
	}
	var out []*Match
	m, err := re.FindStringMatch(s)
	if err != nil {
		return nil, err
	}
	for m != nil && (n < 0 || len(out) < n) {
		out = append(out, m)
		m, err = re.FindNextMatch(m)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FindAllString returns the text of up to n successive matches.
func (re *Regexp) FindAllString(s string, n int) ([]string, error) {
	matches, err := re.FindAllStringMatch(s, n)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		return nil, nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.String()
	}
	return out, nil
}

// FindAllStringIndex returns [start, end) rune intervals of up to n matches.
func (re *Regexp) FindAllStringIndex(s string, n int) ([][]int, error) {
	matches, err := re.FindAllStringMatch(s, n)
	if err != nil {
		return nil, err
	}
	out := make([][]int, len(matches))
	for i, m := range matches {
		out[i] = []int{m.Index, m.Index + m.Length}
	}
	return out, nil
}

// Split slices input around matches. Captured group text is included in the
// result, and count bounds the number of pieces; count < 0 means no bound.
func (re *Regexp) Split(input string, count, startAt int) ([]string, error) {
	if count == 0 {
		return nil, nil
	}
	if count == 1 {
		return []string{input}, nil
	}
	text := runesOf(input)
	if startAt < 0 {
		startAt = re.defaultStart(text)
	}
	m, err := re.runFrom(text, startAt, -1)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return []string{input}, nil
	}

	// At most count-1 matches contribute splits.
	splits := count - 1
	var out []string
	if !re.code.RightToLeft {
		prevat := 0
		for m != nil && splits != 0 {
			out = append(out, string(text[prevat:m.Index]))
			prevat = m.Index + m.Length
			out = appendSplitGroups(out, m)
			splits--
			m, err = re.FindNextMatch(m)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, string(text[prevat:]))
		return out, nil
	}

	prevat := len(text)
	for m != nil && splits != 0 {
		out = append(out, string(text[m.Index+m.Length:prevat]))
		prevat = m.Index
		out = appendSplitGroups(out, m)
		splits--
		m, err = re.FindNextMatch(m)
		if err != nil {
			return nil, err
		}
	}
	out = append(out, string(text[:prevat]))
	// Pieces were gathered right to left.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func appendSplitGroups(out []string, m *Match) []string {
	groups := m.Groups()
	for i := 1; i < len(groups); i++ {
		if groups[i].Matched() {
			out = append(out, groups[i].String())
		}
	}
	return out
}
