// Package frontyaml parses the simplified YAML subset used by the
// front-matter headers of prompt, agent and instruction files.
//
// The pipeline has two stages: a scanner that turns the input into a flat
// token list, and a parser that builds an immutable tree of scalar, sequence
// and mapping nodes. Every token and node carries half-open byte offsets
// into the original input, so editors can map values and diagnostics back to
// exact source ranges. Errors never abort a parse; they accumulate while the
// parser substitutes empty scalars for whatever is missing.
//
// Beyond the positioned tree, the package offers Fold for collapsing a tree
// into plain Go values, Unmarshal and Decoder for reflection-based decoding,
// Marshal and Encoder for writing values back out, and SplitFrontMatter and
// ParseFrontMatter for handling full files whose header is fenced by '---'
// markers.
package frontyaml

// ParseOptions controls parsing behavior.
type ParseOptions struct {
	// AllowDuplicateKeys suppresses the duplicate-key diagnostic. Repeated
	// keys are kept in the tree either way, and the later one wins when a
	// mapping is folded to a dictionary.
	AllowDuplicateKeys bool
}

// Parse parses a document and returns its root node. The root is nil only
// when the input holds no content: empty or blank input, comments only, or a
// bare document marker.
//
// Diagnostics are appended to errs; pass nil to discard them. Parse never
// panics on malformed input and always returns the best tree it could build.
// The returned tree must not be modified; all other behavior is safe for
// concurrent use.
func Parse(input string, errs *[]ParseError, opts ParseOptions) Node {
	tokens := newScanner(input).scan()
	return newParser(input, tokens, errs, opts).parse()
}

// Scan tokenizes input and returns the flat token stream, terminated by an
// EOF token. It is exposed for tooling and debugging; Parse is the normal
// entry point.
func Scan(input string) []Token {
	return newScanner(input).scan()
}
