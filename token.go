package frontyaml

import (
	"fmt"
	"strings"
)

// TokenType identifies the kind of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota

	// Structural tokens.
	TokenNewline // Line break.
	TokenIndent  // Leading whitespace of a non-blank line.
	TokenComment // '#' to the end of the line.

	// Content.
	TokenScalar // Scalar in any style.

	// Indicators.
	TokenColon // ':' mapping indicator.
	TokenDash  // '-' sequence indicator.
	TokenComma // ',' flow separator.

	// Flow collection delimiters.
	TokenFlowMapStart // '{'
	TokenFlowMapEnd   // '}'
	TokenFlowSeqStart // '['
	TokenFlowSeqEnd   // ']'

	// Document markers, recognized at column 0 only.
	TokenDocumentStart // '---'
	TokenDocumentEnd   // '...'
)

// ScalarFormat records how a scalar was written in the source.
type ScalarFormat int

const (
	FormatNone    ScalarFormat = iota // Plain (unquoted).
	FormatSingle                      // Single-quoted.
	FormatDouble                      // Double-quoted.
	FormatLiteral                     // Block scalar introduced by '|'.
	FormatFolded                      // Block scalar introduced by '>'.
)

// String returns the format name used in diagnostics and dumps.
func (f ScalarFormat) String() string {
	switch f {
	case FormatSingle:
		return "single"
	case FormatDouble:
		return "double"
	case FormatLiteral:
		return "literal"
	case FormatFolded:
		return "folded"
	default:
		return "none"
	}
}

// Token is a lexical token produced by the scanner. Start and End are byte
// offsets into the original input forming a half-open range; zero-width
// tokens (an Indent of zero, EOF) have Start == End.
type Token struct {
	Type   TokenType
	Start  int
	End    int
	Value  string       // Interpreted text, escapes resolved (scalars).
	Raw    string       // Source text including delimiters (scalars, comments).
	Format ScalarFormat // Scalar style.
	Indent int          // Count of leading whitespace characters (indent tokens).
}

// String returns a human-readable representation of the token.
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenNewline:
		return "Newline"
	case TokenIndent:
		return fmt.Sprintf("Indent(%d)", t.Indent)
	case TokenComment:
		return fmt.Sprintf("Comment(%q)", t.Raw)
	case TokenScalar:
		return fmt.Sprintf("Scalar(%q, %s)", t.Value, t.Format)
	case TokenColon:
		return "':'"
	case TokenDash:
		return "'-'"
	case TokenComma:
		return "','"
	case TokenFlowMapStart:
		return "'{'"
	case TokenFlowMapEnd:
		return "'}'"
	case TokenFlowSeqStart:
		return "'['"
	case TokenFlowSeqEnd:
		return "']'"
	case TokenDocumentStart:
		return "'---'"
	case TokenDocumentEnd:
		return "'...'"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t.Type))
	}
}

// tokenColumn returns the column at which token i starts, measured in bytes
// from the start of its source line. It walks backward to the nearest line
// boundary: a Newline token, an Indent token (which always starts a line), or
// the last break embedded in a multiline scalar's raw text.
func tokenColumn(tokens []Token, i int) int {
	start := tokens[i].Start
	for j := i - 1; j >= 0; j-- {
		switch tk := tokens[j]; tk.Type {
		case TokenNewline:
			return start - tk.End
		case TokenIndent:
			return start - tk.Start
		case TokenScalar:
			if k := strings.LastIndexByte(tk.Raw, '\n'); k >= 0 {
				return start - (tk.Start + k + 1)
			}
		}
	}
	return start
}
