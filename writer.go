package retrace

import (
	"fmt"
	"math"
)

// writer lowers a parse tree into a Code program.
type writer struct {
	codes      []int
	strings    [][]rune
	stringMap  map[string]int
	sets       []*CharClass
	setMap     map[string]int
	trackCount int
	caps       map[int]int
	folder     func(rune) rune
}

// writeCode builds the immutable program for a parsed pattern. The emitted
// stream is wrapped in the standard prologue: a Lazybranch that records the
// scan start so total failure unwinds to Stop, and the group-0 capture.
func writeCode(parsed *parsedPattern, folder func(rune) rune) (*Code, error) {
	w := &writer{
		stringMap: map[string]int{},
		setMap:    map[string]int{},
		caps:      parsed.caps,
		folder:    folder,
	}

	lb := w.emit1(OpLazybranch, 0)
	w.emit0(OpSetmark)
	if err := w.emitNode(parsed.root); err != nil {
		return nil, err
	}
	w.emit2(OpCapturemark, w.mapCap(0), -1)
	w.patch(lb, len(w.codes))
	w.emit0(OpStop)

	rtl := parsed.options&RightToLeft != 0
	code := &Code{
		Codes:       w.codes,
		Strings:     w.strings,
		Sets:        w.sets,
		TrackCount:  w.trackCount,
		Caps:        parsed.caps,
		CapSize:     parsed.capSize,
		RightToLeft: rtl,
		Debug:       parsed.options&Debug != 0,
	}
	code.Anchors = leadingAnchors(parsed.root, rtl)
	if prefix, ci := fixedPrefix(parsed.root, rtl); len(prefix) > 1 {
		code.BMPrefix = newBMPrefix(prefix, ci, rtl, folder)
	} else if fc := firstCharClass(parsed.root, rtl); fc != nil {
		// The scanner folds each input rune before the membership test.
		if fc.CaseInsensitive {
			fc.Class.addLowercase(folder)
		}
		code.FCPrefix = fc
	}
	return code, nil
}

func (w *writer) emit(op OpCode, operands ...int) int {
	pos := len(w.codes)
	if opcodeBacktracks(op) {
		w.trackCount++
	}
	w.codes = append(w.codes, int(op))
	w.codes = append(w.codes, operands...)
	if len(operands) != opcodeSize(op)-1 {
		panic(fmt.Sprintf("retrace: %s emitted with %d operands", opName(op), len(operands)))
	}
	return pos
}

func (w *writer) emit0(op OpCode) int           { return w.emit(op) }
func (w *writer) emit1(op OpCode, a int) int    { return w.emit(op, a) }
func (w *writer) emit2(op OpCode, a, b int) int { return w.emit(op, a, b) }

// patch rewrites the jump operand of the instruction at pos.
func (w *writer) patch(pos, target int) {
	w.codes[pos+1] = target
}

func (w *writer) stringIndex(rs []rune) int {
	key := string(rs)
	if i, ok := w.stringMap[key]; ok {
		return i
	}
	i := len(w.strings)
	w.strings = append(w.strings, rs)
	w.stringMap[key] = i
	return i
}

func (w *writer) setIndex(cc *CharClass) int {
	key := cc.String()
	if i, ok := w.setMap[key]; ok {
		return i
	}
	i := len(w.sets)
	w.sets = append(w.sets, cc)
	w.setMap[key] = i
	return i
}

func (w *writer) mapCap(declared int) int {
	if declared == -1 || w.caps == nil {
		return declared
	}
	return w.caps[declared]
}

func opFlags(o nodeOpts) OpCode {
	var f OpCode
	if o.rightToLeft {
		f |= Rtl
	}
	if o.foldCase {
		f |= Ci
	}
	return f
}

func (w *writer) foldRune(r rune, o nodeOpts) rune {
	if o.foldCase {
		return w.folder(r)
	}
	return r
}

func (w *writer) emitNode(n Node) error {
	switch t := n.(type) {
	case *Empty:
		return nil

	case *Nothing:
		w.emit0(OpNothing)
		return nil

	case *Literal:
		runes := t.Runes
		if t.Opts.foldCase {
			folded := make([]rune, len(runes))
			for i, r := range runes {
				folded[i] = w.folder(r)
			}
			runes = folded
		}
		switch len(runes) {
		case 0:
			return nil
		case 1:
			w.emit1(OpOne|opFlags(t.Opts), int(runes[0]))
		default:
			w.emit1(OpMulti|opFlags(t.Opts), w.stringIndex(runes))
		}
		return nil

	case *Notone:
		w.emit1(OpNotone|opFlags(t.Opts), int(w.foldRune(t.Rune, t.Opts)))
		return nil

	case *CharClassNode:
		w.emit1(OpSet|opFlags(t.Opts), w.setIndex(t.Class))
		return nil

	case *Concat:
		// A right-to-left concatenation is emitted back to front so the
		// interpreter, which always advances codepos, consumes backwards.
		if t.Opts.rightToLeft {
			for i := len(t.Nodes) - 1; i >= 0; i-- {
				if err := w.emitNode(t.Nodes[i]); err != nil {
					return err
				}
			}
			return nil
		}
		for _, child := range t.Nodes {
			if err := w.emitNode(child); err != nil {
				return err
			}
		}
		return nil

	case *Alternate:
		return w.emitAlternate(t)

	case *Quantifier:
		return w.emitQuantifier(t)

	case *CaptureNode:
		w.emit0(OpSetmark)
		if err := w.emitNode(t.Body); err != nil {
			return err
		}
		w.emit2(OpCapturemark, w.mapCap(t.Group), w.mapCap(t.Uncap))
		return nil

	case *GroupNode:
		return w.emitNode(t.Body)

	case *Atomic:
		w.emit0(OpSetjump)
		if err := w.emitNode(t.Body); err != nil {
			return err
		}
		w.emit0(OpForejump)
		return nil

	case *Lookaround:
		if !t.Negative {
			w.emit0(OpSetjump)
			w.emit0(OpSetmark)
			if err := w.emitNode(t.Body); err != nil {
				return err
			}
			w.emit0(OpGetmark)
			w.emit0(OpForejump)
			return nil
		}
		w.emit0(OpSetjump)
		lb := w.emit1(OpLazybranch, 0)
		if err := w.emitNode(t.Body); err != nil {
			return err
		}
		w.emit0(OpBackjump)
		w.patch(lb, len(w.codes))
		w.emit0(OpForejump)
		return nil

	case *Backreference:
		w.emit1(OpRef|opFlags(t.Opts), w.mapCap(t.Group))
		return nil

	case *Conditional:
		return w.emitConditional(t)

	case *Assertion:
		ops := map[AssertionType]OpCode{
			AssertBol: OpBol, AssertEol: OpEol,
			AssertBoundary: OpBoundary, AssertNonBoundary: OpNonboundary,
			AssertECMABoundary: OpECMABoundary, AssertNonECMABoundary: OpNonECMABoundary,
			AssertBeginning: OpBeginning, AssertStart: OpStart,
			AssertEndZ: OpEndZ, AssertEnd: OpEnd,
		}
		w.emit0(ops[t.Kind])
		return nil
	}
	return fmt.Errorf("retrace: writer: unhandled node type %T", n)
}

func (w *writer) emitAlternate(t *Alternate) error {
	var gotos []int
	for i, branch := range t.Nodes {
		if i < len(t.Nodes)-1 {
			lb := w.emit1(OpLazybranch, 0)
			if err := w.emitNode(branch); err != nil {
				return err
			}
			gotos = append(gotos, w.emit1(OpGoto, 0))
			w.patch(lb, len(w.codes))
			continue
		}
		if err := w.emitNode(branch); err != nil {
			return err
		}
	}
	for _, g := range gotos {
		w.patch(g, len(w.codes))
	}
	return nil
}

// singleCharTarget unwraps option-only groups and reports the single-rune
// form of a quantifier body, when one exists, so the writer can use the
// dedicated rep/loop/lazy opcodes.
func singleCharTarget(n Node) (op OpCode, operand func(w *writer) int, opts nodeOpts, ok bool) {
	for {
		g, isGroup := n.(*GroupNode)
		if !isGroup {
			break
		}
		n = g.Body
	}
	switch t := n.(type) {
	case *Literal:
		if len(t.Runes) == 1 {
			r := t.Runes[0]
			o := t.Opts
			return OpOne, func(w *writer) int { return int(w.foldRune(r, o)) }, t.Opts, true
		}
	case *Notone:
		r := t.Rune
		o := t.Opts
		return OpNotone, func(w *writer) int { return int(w.foldRune(r, o)) }, t.Opts, true
	case *CharClassNode:
		return OpSet, func(w *writer) int { return w.setIndex(t.Class) }, t.Opts, true
	}
	return 0, nil, nodeOpts{}, false
}

func (w *writer) emitQuantifier(t *Quantifier) error {
	if t.Max == 0 {
		return nil
	}

	if base, operand, opts, ok := singleCharTarget(t.Body); ok {
		// Single-character body: the minimum is a rep, the remainder a loop.
		flags := opFlags(opts)
		if t.Min == t.Max && t.Min == 1 {
			w.emit1(base|flags, operand(w))
			return nil
		}
		if t.Min > 0 {
			w.emit2((base+OpOnerep-OpOne)|flags, operand(w), t.Min)
		}
		if t.Max == -1 || t.Max > t.Min {
			loop := base + OpOneloop - OpOne
			if t.Lazy {
				loop = base + OpOnelazy - OpOne
			}
			limit := math.MaxInt32
			if t.Max != -1 {
				limit = t.Max - t.Min
			}
			w.emit2(loop|flags, operand(w), limit)
		}
		return nil
	}

	// General body: Branchmark machinery, or the counted Branchcount
	// machinery when the bounds require iteration counting.
	counted := t.Max != -1 || t.Min > 1
	if counted {
		if t.Min == 0 {
			w.emit1(OpNullcount, 0)
		} else {
			w.emit1(OpSetcount, 1-t.Min)
		}
	} else {
		if t.Min == 0 {
			w.emit0(OpNullmark)
		} else {
			w.emit0(OpSetmark)
		}
	}

	skip := -1
	if t.Min == 0 {
		skip = w.emit1(OpGoto, 0)
	}

	bodyStart := len(w.codes)
	if err := w.emitNode(t.Body); err != nil {
		return err
	}

	branchPos := len(w.codes)
	if counted {
		limit := math.MaxInt32
		if t.Max != -1 {
			limit = t.Max - t.Min
		}
		op := OpBranchcount
		if t.Lazy {
			op = OpLazybranchcount
		}
		w.emit2(op, bodyStart, limit)
	} else {
		op := OpBranchmark
		if t.Lazy {
			op = OpLazybranchmark
		}
		w.emit1(op, bodyStart)
	}
	if skip != -1 {
		w.patch(skip, branchPos)
	}
	return nil
}

func (w *writer) emitConditional(t *Conditional) error {
	w.emit0(OpSetjump)
	lb := w.emit1(OpLazybranch, 0)
	w.emit1(OpTestref, w.mapCap(t.Group))
	w.emit0(OpForejump)
	if err := w.emitNode(t.Yes); err != nil {
		return err
	}
	g := w.emit1(OpGoto, 0)
	w.patch(lb, len(w.codes))
	w.emit0(OpForejump)
	if t.No != nil {
		if err := w.emitNode(t.No); err != nil {
			return err
		}
	}
	w.patch(g, len(w.codes))
	return nil
}
