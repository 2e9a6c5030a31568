package retrace

// NodeType identifies the type of parse-tree node.
type NodeType int

const (
	NodeEmpty NodeType = iota
	NodeNothing
	NodeLiteral
	NodeNotone
	NodeCharClass
	NodeConcat
	NodeAlternate
	NodeQuantifier
	NodeCapture
	NodeGroup
	NodeAssertion
	NodeLookaround
	NodeAtomic
	NodeBackreference
	NodeConditional
)

// Node is the base interface for parse-tree nodes. The tree is a temporary
// structure consumed by the code writer; it is built for clarity, not space.
type Node interface {
	Type() NodeType
}

// nodeOpts carries the inline options in force where the node was parsed.
// The writer turns these into the Ci/Rtl bits on emitted opcodes.
type nodeOpts struct {
	foldCase    bool
	rightToLeft bool
}

// Empty matches the empty string.
type Empty struct{}

func (n *Empty) Type() NodeType { return NodeEmpty }

// Nothing never matches.
type Nothing struct{}

func (n *Nothing) Type() NodeType { return NodeNothing }

// Literal matches a sequence of runes.
type Literal struct {
	Runes []rune
	Opts  nodeOpts
}

func (n *Literal) Type() NodeType { return NodeLiteral }

// Notone matches any single rune except Rune.
type Notone struct {
	Rune rune
	Opts nodeOpts
}

func (n *Notone) Type() NodeType { return NodeNotone }

// CharClassNode matches one rune in a class.
type CharClassNode struct {
	Class *CharClass
	Opts  nodeOpts
}

func (n *CharClassNode) Type() NodeType { return NodeCharClass }

// Concat matches a sequence of nodes.
type Concat struct {
	Nodes []Node
	Opts  nodeOpts
}

func (n *Concat) Type() NodeType { return NodeConcat }

// Alternate matches one of several branches.
type Alternate struct {
	Nodes []Node
	Opts  nodeOpts
}

func (n *Alternate) Type() NodeType { return NodeAlternate }

// Quantifier matches Body repeated Min..Max times. Max == -1 means unbounded.
type Quantifier struct {
	Body Node
	Min  int
	Max  int
	Lazy bool
	Opts nodeOpts
}

func (n *Quantifier) Type() NodeType { return NodeQuantifier }

// CaptureNode records a capture of Body into group Group. For balanced groups
// Uncap names the group whose last capture is popped; Group is -1 when the
// construct only subtracts, as in (?<-b>...).
type CaptureNode struct {
	Body  Node
	Group int
	Uncap int // -1 unless balanced
	Name  string
	Opts  nodeOpts
}

func (n *CaptureNode) Type() NodeType { return NodeCapture }

// GroupNode is a non-capturing group; it exists only to carry scoped options.
type GroupNode struct {
	Body Node
	Opts nodeOpts
}

func (n *GroupNode) Type() NodeType { return NodeGroup }

// AssertionType enumerates the zero-width assertions.
type AssertionType int

const (
	AssertBol             AssertionType = iota // ^ in multiline
	AssertEol                                  // $ in multiline
	AssertBoundary                             // \b
	AssertNonBoundary                          // \B
	AssertECMABoundary                         // \b under ECMAScript
	AssertNonECMABoundary                      // \B under ECMAScript
	AssertBeginning                            // \A
	AssertStart                                // \G
	AssertEndZ                                 // \Z, $ outside multiline
	AssertEnd                                  // \z
)

type Assertion struct {
	Kind AssertionType
	Opts nodeOpts
}

func (n *Assertion) Type() NodeType { return NodeAssertion }

// Lookaround is a zero-width subexpression match. The body of a lookbehind
// is matched right to left.
type Lookaround struct {
	Body     Node
	Negative bool
	Behind   bool
	Opts     nodeOpts
}

func (n *Lookaround) Type() NodeType { return NodeLookaround }

// Atomic is a (?>...) group: once the body matches, its backtracking state
// is discarded.
type Atomic struct {
	Body Node
	Opts nodeOpts
}

func (n *Atomic) Type() NodeType { return NodeAtomic }

// Backreference matches the text of the last capture of Group.
type Backreference struct {
	Group int
	Opts  nodeOpts
}

func (n *Backreference) Type() NodeType { return NodeBackreference }

// Conditional is (?(group)yes|no): Yes runs if the group has captured.
type Conditional struct {
	Group int
	Yes   Node
	No    Node // nil means empty alternative
	Opts  nodeOpts
}

func (n *Conditional) Type() NodeType { return NodeConditional }
