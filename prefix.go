package retrace

// Code-build-time analysis: leading anchors, a fixed literal prefix for
// Boyer-Moore, and the class of possible first characters. All three walk the
// parse tree in match order, which for right-to-left programs means last
// child first.

func matchOrder(nodes []Node, rtl bool) []Node {
	if !rtl {
		return nodes
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}

// leadingAnchors collects the anchors every match must satisfy at its start.
func leadingAnchors(root Node, rtl bool) AnchorFlags {
	var flags AnchorFlags
	walkAnchors(root, rtl, &flags)
	return flags
}

// walkAnchors returns true when scanning must stop (a consuming construct or
// anything it cannot see through).
func walkAnchors(n Node, rtl bool, flags *AnchorFlags) bool {
	switch t := n.(type) {
	case *Empty:
		return false
	case *Assertion:
		switch t.Kind {
		case AssertBeginning:
			*flags |= AnchorBeginning
		case AssertStart:
			*flags |= AnchorStart
		case AssertEndZ:
			*flags |= AnchorEndZ
		case AssertEnd:
			*flags |= AnchorEnd
		case AssertBol:
			*flags |= AnchorBol
		case AssertEol:
			*flags |= AnchorEol
		default:
			*flags |= AnchorBoundary
		}
		return false
	case *Concat:
		for _, child := range matchOrder(t.Nodes, rtl) {
			if walkAnchors(child, rtl, flags) {
				return true
			}
		}
		return false
	case *CaptureNode:
		return walkAnchors(t.Body, rtl, flags)
	case *GroupNode:
		return walkAnchors(t.Body, rtl, flags)
	case *Atomic:
		return walkAnchors(t.Body, rtl, flags)
	}
	return true
}

// fixedPrefix extracts the literal run every match must start with, if any.
func fixedPrefix(root Node, rtl bool) ([]rune, bool) {
	return prefixOf(root, rtl)
}

func prefixOf(n Node, rtl bool) ([]rune, bool) {
	switch t := n.(type) {
	case *Literal:
		return t.Runes, t.Opts.foldCase
	case *Concat:
		for _, child := range matchOrder(t.Nodes, rtl) {
			if zeroWidth(child) {
				continue
			}
			return prefixOf(child, rtl)
		}
		return nil, false
	case *CaptureNode:
		return prefixOf(t.Body, rtl)
	case *GroupNode:
		return prefixOf(t.Body, rtl)
	case *Atomic:
		return prefixOf(t.Body, rtl)
	case *Quantifier:
		if t.Min == 0 {
			return nil, false
		}
		if lit, ok := t.Body.(*Literal); ok && len(lit.Runes) == 1 {
			out := make([]rune, t.Min)
			for i := range out {
				out[i] = lit.Runes[0]
			}
			return out, lit.Opts.foldCase
		}
		return nil, false
	}
	return nil, false
}

func zeroWidth(n Node) bool {
	switch t := n.(type) {
	case *Empty, *Assertion, *Lookaround:
		return true
	case *Quantifier:
		return t.Max == 0
	}
	return false
}

// firstCharClass computes the set of runes that can begin a match, walking
// past nullable constructs the way a fixed-prefix search cannot. For a*b it
// finds [ab].
func firstCharClass(root Node, rtl bool) *FirstCharPrefix {
	cc := &CharClass{}
	ci := false
	// Only a definite stopping point (result 1) is usable: a nullable
	// pattern can match empty anywhere, so no first-char skip is sound.
	if tryFirstChars(root, rtl, cc, &ci) != 1 {
		return nil
	}
	if len(cc.Ranges) == 0 && !cc.Negated {
		return nil
	}
	cc.canonicalize()
	return &FirstCharPrefix{Class: cc, CaseInsensitive: ci}
}

// tryFirstChars merges a node's possible first characters into cc and
// returns 1 when the node always consumes (a stopping point), -1 when it may
// be zero-width so scanning must continue, and 0 when the analysis fails.
func tryFirstChars(n Node, rtl bool, cc *CharClass, ci *bool) int {
	switch t := n.(type) {
	case *Empty, *Nothing, *Assertion, *Lookaround:
		return -1

	case *Literal:
		if len(t.Runes) == 0 {
			return -1
		}
		r := t.Runes[0]
		if t.Opts.rightToLeft {
			r = t.Runes[len(t.Runes)-1]
		}
		if t.Opts.foldCase {
			*ci = true
		}
		if cc.Negated {
			return 0
		}
		cc.addChar(r)
		return 1

	case *Notone:
		// A negated singleton only merges into an empty result set.
		if len(cc.Ranges) != 0 || cc.Negated {
			return 0
		}
		cc.Negated = true
		cc.addChar(t.Rune)
		if t.Opts.foldCase {
			*ci = true
		}
		return 1

	case *CharClassNode:
		if t.Opts.foldCase {
			*ci = true
		}
		if len(cc.Ranges) == 0 && !cc.Negated {
			cc.Negated = t.Class.Negated
			cc.Ranges = append(cc.Ranges, t.Class.Ranges...)
			return 1
		}
		if !cc.addClass(t.Class) {
			return 0
		}
		return 1

	case *Concat:
		for _, child := range matchOrder(t.Nodes, rtl) {
			if r := tryFirstChars(child, rtl, cc, ci); r != -1 {
				return r
			}
		}
		return -1

	case *Alternate:
		res := 1
		for _, child := range t.Nodes {
			switch tryFirstChars(child, rtl, cc, ci) {
			case 0:
				return 0
			case -1:
				res = -1
			}
		}
		return res

	case *Conditional:
		res := 1
		if r := tryFirstChars(t.Yes, rtl, cc, ci); r == 0 {
			return 0
		} else if r == -1 {
			res = -1
		}
		if t.No == nil {
			return -1
		}
		if r := tryFirstChars(t.No, rtl, cc, ci); r == 0 {
			return 0
		} else if r == -1 {
			res = -1
		}
		return res

	case *Quantifier:
		r := tryFirstChars(t.Body, rtl, cc, ci)
		if r == 0 {
			return 0
		}
		if t.Min > 0 && r == 1 {
			return 1
		}
		return -1

	case *CaptureNode:
		return tryFirstChars(t.Body, rtl, cc, ci)
	case *GroupNode:
		return tryFirstChars(t.Body, rtl, cc, ci)
	case *Atomic:
		return tryFirstChars(t.Body, rtl, cc, ci)
	}
	// Backreference and anything unrecognized defeat the analysis.
	return 0
}

// BMPrefix is a Boyer-Moore (Horspool) automaton over the fixed literal that
// must begin every match. Pattern is stored in text order; for right-to-left
// programs the automaton scans leftwards for windows ending at the candidate
// position.
type BMPrefix struct {
	Pattern         []rune
	CaseInsensitive bool
	RightToLeft     bool

	folder     func(rune) rune
	asciiShift [128]int
	shift      map[rune]int
}

func newBMPrefix(pattern []rune, ci, rtl bool, folder func(rune) rune) *BMPrefix {
	pat := pattern
	if ci {
		pat = make([]rune, len(pattern))
		for i, r := range pattern {
			pat[i] = folder(r)
		}
	}
	bm := &BMPrefix{
		Pattern:         pat,
		CaseInsensitive: ci,
		RightToLeft:     rtl,
		folder:          folder,
		shift:           map[rune]int{},
	}
	m := len(pat)
	for i := range bm.asciiShift {
		bm.asciiShift[i] = m
	}
	if !rtl {
		// Shift by the rightmost occurrence among all but the last char.
		for k := 0; k < m-1; k++ {
			bm.setShift(pat[k], m-1-k)
		}
	} else {
		// Mirror image: shift by the leftmost occurrence among all but the
		// first char.
		for k := m - 1; k >= 1; k-- {
			bm.setShift(pat[k], k)
		}
	}
	return bm
}

func (bm *BMPrefix) setShift(r rune, n int) {
	if r < 128 {
		bm.asciiShift[r] = n
	} else {
		bm.shift[r] = n
	}
}

func (bm *BMPrefix) shiftFor(r rune) int {
	if r < 128 {
		return bm.asciiShift[r]
	}
	if n, ok := bm.shift[r]; ok {
		return n
	}
	return len(bm.Pattern)
}

func (bm *BMPrefix) at(text []rune, i int) rune {
	if bm.CaseInsensitive {
		return bm.folder(text[i])
	}
	return text[i]
}

// Scan finds the next candidate position at or past pos, or -1.
// Left to right it returns the index where the prefix begins; right to left
// it returns the position the prefix ends at (the candidate match end).
func (bm *BMPrefix) Scan(text []rune, pos, beg, end int) int {
	m := len(bm.Pattern)
	if !bm.RightToLeft {
		i := pos
		for i+m <= end {
			j := m - 1
			for j >= 0 && bm.at(text, i+j) == bm.Pattern[j] {
				j--
			}
			if j < 0 {
				return i
			}
			i += bm.shiftFor(bm.at(text, i+m-1))
		}
		return -1
	}
	e := pos
	for e-m >= beg {
		j := 0
		for j < m && bm.at(text, e-m+j) == bm.Pattern[j] {
			j++
		}
		if j == m {
			return e
		}
		e -= bm.shiftFor(bm.at(text, e-m))
	}
	return -1
}

// IsMatch reports whether the prefix sits exactly at the candidate position.
func (bm *BMPrefix) IsMatch(text []rune, pos, beg, end int) bool {
	m := len(bm.Pattern)
	if !bm.RightToLeft {
		if pos+m > end {
			return false
		}
		for j := 0; j < m; j++ {
			if bm.at(text, pos+j) != bm.Pattern[j] {
				return false
			}
		}
		return true
	}
	if pos-m < beg {
		return false
	}
	for j := 0; j < m; j++ {
		if bm.at(text, pos-m+j) != bm.Pattern[j] {
			return false
		}
	}
	return true
}
