package frontyaml

// Kind discriminates the node variants of a parsed tree.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMap
)

// String returns the kind name used in dumps.
func (k Kind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	default:
		return "scalar"
	}
}

// Style distinguishes block layout (indentation based) from flow layout
// ('{...}' and '[...]').
type Style int

const (
	StyleBlock Style = iota
	StyleFlow
)

func (s Style) String() string {
	if s == StyleFlow {
		return "flow"
	}
	return "block"
}

// Node is a value parsed from a document: a *ScalarNode, a *SequenceNode or a
// *MapNode. Nodes are immutable once returned by Parse.
//
// Span returns the node's half-open byte range within the original input. A
// parent's range always contains the ranges of all of its children.
type Node interface {
	Kind() Kind
	Span() (start, end int)

	yamlNode()
}

// ScalarNode is a scalar value. Value holds the interpreted text with quotes
// removed, escapes resolved and block folding applied; Raw holds the source
// text the scanner consumed, including quote or block delimiters.
type ScalarNode struct {
	Value  string
	Raw    string
	Start  int
	End    int
	Format ScalarFormat
}

func (n *ScalarNode) Kind() Kind       { return KindScalar }
func (n *ScalarNode) Span() (int, int) { return n.Start, n.End }
func (n *ScalarNode) yamlNode()        {}

// SequenceNode is an ordered list of values.
type SequenceNode struct {
	Items []Node
	Style Style
	Start int
	End   int
}

func (n *SequenceNode) Kind() Kind       { return KindSequence }
func (n *SequenceNode) Span() (int, int) { return n.Start, n.End }
func (n *SequenceNode) yamlNode()        {}

// MapProperty is one key/value entry of a MapNode. Keys are always scalars.
type MapProperty struct {
	Key   *ScalarNode
	Value Node
}

// MapNode is a collection of key/value properties in source order. Duplicate
// keys are preserved as separate properties; the later one wins when the map
// is folded to a dictionary.
type MapNode struct {
	Properties []MapProperty
	Style      Style
	Start      int
	End        int
}

func (n *MapNode) Kind() Kind       { return KindMap }
func (n *MapNode) Span() (int, int) { return n.Start, n.End }
func (n *MapNode) yamlNode()        {}

// Get returns the value of the last property named key, or nil when the key
// is absent.
func (n *MapNode) Get(key string) Node {
	for i := len(n.Properties) - 1; i >= 0; i-- {
		if n.Properties[i].Key.Value == key {
			return n.Properties[i].Value
		}
	}
	return nil
}

// spanEnd returns the end offset of a node's range.
func spanEnd(n Node) int {
	_, end := n.Span()
	return end
}
