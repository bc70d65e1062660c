package frontyaml

import (
	"fmt"
	"strings"
)

// parser builds the AST from the scanner's token list. It never fails hard:
// diagnostics accumulate in errs while parsing continues with best-effort
// substitutes, so a single typo near the top of a header does not hide the
// rest of the document. The parser may look ahead freely and backtrack by
// restoring its token index; it never mutates the token list.
type parser struct {
	src    string
	tokens []Token
	pos    int
	errs   *[]ParseError
	opts   ParseOptions
}

func newParser(src string, tokens []Token, errs *[]ParseError, opts ParseOptions) *parser {
	return &parser{src: src, tokens: tokens, errs: errs, opts: opts}
}

// parse parses the document and returns its root node, or nil when the input
// holds no content at all.
func (p *parser) parse() Node {
	for {
		p.skipToContent()
		if p.cur().Type == TokenIndent && p.peekAt(1).Type == TokenDocumentStart {
			p.pos += 2
			continue
		}
		break
	}
	if p.cur().Type == TokenEOF {
		return nil
	}
	if p.cur().Type == TokenIndent && p.peekAt(1).Type == TokenDocumentEnd {
		return nil
	}
	return p.parseValue(-1)
}

// parseValue parses one value whose content must sit deeper than
// parentIndent. It returns nil without consuming anything when no such value
// follows (a dedent, EOF or a document marker). Values may begin mid-line,
// right after ':' or '-', or on a following line behind an indent token.
func (p *parser) parseValue(parentIndent int) Node {
	save := p.pos
	p.skipToContent()

	if p.cur().Type == TokenIndent {
		next := p.peekAt(1)
		switch {
		case next.Type == TokenFlowMapStart || next.Type == TokenFlowSeqStart:
			// Flow collections are indentation insensitive.
			p.pos++
		case p.cur().Indent <= parentIndent:
			p.pos = save
			return nil
		default:
			p.pos++
		}
	}

	switch tk := p.cur(); tk.Type {
	case TokenEOF, TokenDocumentStart, TokenDocumentEnd:
		p.pos = save
		return nil
	case TokenFlowMapStart:
		return p.parseFlowMapping()
	case TokenFlowSeqStart:
		return p.parseFlowSequence()
	case TokenDash:
		return p.parseBlockSequence(tokenColumn(p.tokens, p.pos))
	case TokenColon:
		// A lone ':' still opens a mapping; the missing key is diagnosed in
		// the mapping loop.
		return p.parseBlockMapping(tokenColumn(p.tokens, p.pos))
	case TokenScalar:
		if p.peekAt(1).Type == TokenColon {
			return p.parseBlockMapping(tokenColumn(p.tokens, p.pos))
		}
		return p.parseScalar(parentIndent)
	default:
		p.errorf(tk.Start, tk.End, ErrUnexpectedToken, "unexpected %s", tk)
		p.pos++
		return p.emptyScalarAt(tk.Start)
	}
}

// parseBlockMapping parses 'key: value' entries. baseIndent is the column of
// the first key, and every further entry must start at exactly that column.
func (p *parser) parseBlockMapping(baseIndent int) Node {
	node := &MapNode{Style: StyleBlock, Start: p.cur().Start, End: p.cur().End}
	seen := make(map[string]bool)

	for {
		var key *ScalarNode
		if tk := p.cur(); tk.Type == TokenScalar {
			p.pos++
			key = scalarFromToken(tk)
		} else {
			p.errorf(tk.Start, tk.End, ErrExpectedMappingKey, "expected a mapping key before ':'")
			key = p.emptyScalarAt(tk.Start)
		}

		var value Node
		if tk := p.cur(); tk.Type == TokenColon {
			p.pos++
			value = p.parseValue(baseIndent)
			if value == nil {
				value = p.sequenceAtSameIndent(baseIndent)
			}
			if value == nil {
				p.errorf(tk.Start, tk.End, ErrMissingValue, "missing value after ':'")
				value = p.emptyScalarAt(tk.End)
			}
		} else {
			p.errorf(key.Start, key.End, ErrExpectedColon, "expected ':' after mapping key %q", key.Value)
			value = p.emptyScalarAt(key.End)
			p.skipRestOfLine()
		}

		if seen[key.Value] && !p.opts.AllowDuplicateKeys {
			p.errorf(key.Start, key.End, ErrDuplicateKey, "duplicate mapping key %q", key.Value)
		}
		seen[key.Value] = true

		node.Properties = append(node.Properties, MapProperty{Key: key, Value: value})
		if key.End > node.End {
			node.End = key.End
		}
		if e := spanEnd(value); e > node.End {
			node.End = e
		}

		if !p.nextEntry(baseIndent, TokenScalar) {
			break
		}
	}
	return node
}

// sequenceAtSameIndent recognizes the widely used 'key:' whose sequence
// items sit at the key's own indentation rather than deeper:
//
//	tools:
//	- read
//	- write
func (p *parser) sequenceAtSameIndent(keyIndent int) Node {
	save := p.pos
	p.skipToContent()
	if p.cur().Type == TokenIndent && p.cur().Indent == keyIndent && p.peekAt(1).Type == TokenDash {
		p.pos++
		return p.parseBlockSequence(keyIndent)
	}
	p.pos = save
	return nil
}

// parseBlockSequence parses '- value' items. The first dash's column, not a
// separate indent token, establishes the item indentation, which makes
// same-line nesting like '- - x' work.
func (p *parser) parseBlockSequence(baseIndent int) Node {
	node := &SequenceNode{Style: StyleBlock, Start: p.cur().Start, End: p.cur().End}

	for {
		dash := p.cur()
		p.pos++
		item := p.parseValue(baseIndent)
		if item == nil {
			p.errorf(dash.Start, dash.End, ErrMissingValue, "missing value after '-'")
			item = p.emptyScalarAt(dash.End)
		}
		node.Items = append(node.Items, item)
		if e := spanEnd(item); e > node.End {
			node.End = e
		}

		if !p.nextEntry(baseIndent, TokenDash) {
			break
		}
	}
	return node
}

// parseScalar consumes one scalar token. Plain scalars then absorb
// continuation lines indented deeper than parentIndent: single breaks fold
// to a space, blank lines contribute literal newlines, and a leading '-'
// that cannot start a sequence item at this depth reads as prose. Quoted and
// block scalars arrive from the scanner as complete tokens.
func (p *parser) parseScalar(parentIndent int) Node {
	tk := p.cur()
	p.pos++
	node := scalarFromToken(tk)
	if tk.Format != FormatNone {
		return node
	}

	for {
		save := p.pos
		if p.cur().Type != TokenNewline {
			break
		}
		p.pos++
		blanks := 0
		for p.cur().Type == TokenNewline {
			blanks++
			p.pos++
		}
		if p.cur().Type != TokenIndent || p.cur().Indent <= parentIndent {
			p.pos = save
			break
		}
		p.pos++

		first := p.cur()
		foldable := false
		switch first.Type {
		case TokenScalar:
			foldable = first.Format == FormatNone && p.peekAt(1).Type != TokenColon
		case TokenDash:
			foldable = true
		}
		if !foldable {
			p.pos = save
			break
		}

		// The whole line, dashes and all, folds as literal text.
		segEnd := first.End
		for p.cur().Type != TokenNewline && p.cur().Type != TokenEOF && p.cur().Type != TokenComment {
			segEnd = p.cur().End
			p.pos++
		}
		seg := p.src[first.Start:segEnd]
		if blanks > 0 {
			node.Value += strings.Repeat("\n", blanks) + seg
		} else {
			node.Value += " " + seg
		}
		node.Raw += "\n" + seg
		node.End = segEnd
	}
	return node
}

// parseFlowMapping parses a '{...}' mapping. A key without a following colon
// carries an empty scalar value, so shorthand like {key} parses without
// diagnostics. A missing closer is reported and the mapping closes where the
// input ends.
func (p *parser) parseFlowMapping() Node {
	open := p.cur()
	p.pos++
	node := &MapNode{Style: StyleFlow, Start: open.Start, End: open.End}
	seen := make(map[string]bool)

	for {
		p.skipFlowSpace()
		tk := p.cur()
		if tk.Type == TokenFlowMapEnd {
			p.pos++
			node.End = tk.End
			return node
		}
		if flowTerminates(tk.Type) {
			p.errorf(tk.Start, tk.End, ErrExpectedFlowMapEnd, "expected '}' to close flow mapping")
			return node
		}
		if tk.Type != TokenScalar {
			p.errorf(tk.Start, tk.End, ErrExpectedMappingKey, "expected a mapping key, got %s", tk)
			p.pos++
			continue
		}
		p.pos++
		key := scalarFromToken(tk)

		var value Node
		p.skipFlowSpace()
		if p.cur().Type == TokenColon {
			colon := p.cur()
			p.pos++
			p.skipFlowSpace()
			if t := p.cur(); t.Type == TokenComma || t.Type == TokenFlowMapEnd || flowTerminates(t.Type) {
				p.errorf(colon.Start, colon.End, ErrMissingValue, "missing value after ':'")
				value = p.emptyScalarAt(colon.End)
			} else {
				value = p.parseFlowValue()
			}
		} else {
			value = p.emptyScalarAt(key.End)
		}

		if seen[key.Value] && !p.opts.AllowDuplicateKeys {
			p.errorf(key.Start, key.End, ErrDuplicateKey, "duplicate mapping key %q", key.Value)
		}
		seen[key.Value] = true

		node.Properties = append(node.Properties, MapProperty{Key: key, Value: value})
		if key.End > node.End {
			node.End = key.End
		}
		if e := spanEnd(value); e > node.End {
			node.End = e
		}

		p.skipFlowSpace()
		switch tk := p.cur(); tk.Type {
		case TokenComma:
			p.pos++
		case TokenFlowMapEnd:
		default:
			if !flowTerminates(tk.Type) {
				// Left in place: the next round reads it as a key or reports
				// the missing closer.
				p.errorf(tk.Start, tk.End, ErrUnexpectedToken, "expected ',' or '}' in flow mapping, got %s", tk)
			}
		}
	}
}

// parseFlowSequence parses a '[...]' sequence. A missing closer is reported
// and the sequence closes where the input ends.
func (p *parser) parseFlowSequence() Node {
	open := p.cur()
	p.pos++
	node := &SequenceNode{Style: StyleFlow, Start: open.Start, End: open.End}

	for {
		p.skipFlowSpace()
		tk := p.cur()
		if tk.Type == TokenFlowSeqEnd {
			p.pos++
			node.End = tk.End
			return node
		}
		if flowTerminates(tk.Type) {
			p.errorf(tk.Start, tk.End, ErrExpectedFlowSeqEnd, "expected ']' to close flow sequence")
			return node
		}

		item := p.parseFlowValue()
		node.Items = append(node.Items, item)
		if e := spanEnd(item); e > node.End {
			node.End = e
		}

		p.skipFlowSpace()
		switch tk := p.cur(); tk.Type {
		case TokenComma:
			p.pos++
		case TokenFlowSeqEnd:
		default:
			if !flowTerminates(tk.Type) {
				p.errorf(tk.Start, tk.End, ErrUnexpectedToken, "expected ',' or ']' in flow sequence, got %s", tk)
			}
		}
	}
}

// parseFlowValue parses one value inside a flow collection. Plain scalars
// fold across line breaks, space joined, as long as the continuation does
// not read as a key.
func (p *parser) parseFlowValue() Node {
	switch tk := p.cur(); tk.Type {
	case TokenFlowMapStart:
		return p.parseFlowMapping()
	case TokenFlowSeqStart:
		return p.parseFlowSequence()
	case TokenScalar:
		p.pos++
		node := scalarFromToken(tk)
		if tk.Format != FormatNone {
			return node
		}
		for {
			save := p.pos
			if p.cur().Type != TokenNewline {
				break
			}
			p.skipFlowSpace()
			nt := p.cur()
			if nt.Type != TokenScalar || nt.Format != FormatNone || p.peekAt(1).Type == TokenColon {
				p.pos = save
				break
			}
			p.pos++
			node.Value += " " + nt.Value
			node.Raw += "\n" + nt.Raw
			node.End = nt.End
		}
		return node
	default:
		p.errorf(tk.Start, tk.End, ErrUnexpectedToken, "unexpected %s in flow collection", tk)
		p.pos++
		return p.emptyScalarAt(tk.Start)
	}
}

// nextEntry reports whether another entry of the same block collection
// starts at exactly baseIndent, leaving the cursor on the entry's first
// content token. Junk left on the value's own line is reported and skipped.
// A deeper line is reported as unexpected indentation, consumed, and the
// collection stops; a shallower line simply closes the collection without
// consuming anything.
func (p *parser) nextEntry(baseIndent int, want TokenType) bool {
	save := p.pos

	switch tk := p.cur(); tk.Type {
	case TokenNewline, TokenComment, TokenIndent, TokenEOF, TokenDocumentStart, TokenDocumentEnd:
	default:
		p.errorf(tk.Start, tk.End, ErrUnexpectedToken, "unexpected %s after value", tk)
		p.skipRestOfLine()
		save = p.pos
	}

	p.skipToContent()
	if p.cur().Type != TokenIndent {
		p.pos = save
		return false
	}
	ind := p.cur().Indent
	first := p.peekAt(1)

	switch {
	case ind < baseIndent:
		p.pos = save
		return false
	case ind > baseIndent:
		p.errorf(first.Start, first.End, ErrUnexpectedIndentation,
			"line indented %d columns, expected %d", ind, baseIndent)
		p.pos++
		p.skipRestOfLine()
		return false
	}

	ok := first.Type == want
	if want == TokenScalar && first.Type == TokenColon {
		ok = true
	}
	if !ok {
		p.pos = save
		return false
	}
	p.pos++
	return true
}

// skipToContent advances past newlines, comments and the indent tokens of
// lines carrying no content, stopping at the first content token or its
// line's indent token.
func (p *parser) skipToContent() {
	for {
		switch p.cur().Type {
		case TokenNewline, TokenComment:
			p.pos++
		case TokenIndent:
			if t := p.peekAt(1).Type; t == TokenComment || t == TokenNewline {
				p.pos++
				continue
			}
			return
		default:
			return
		}
	}
}

// skipFlowSpace skips newlines, indentation and comments, all insignificant
// inside flow collections.
func (p *parser) skipFlowSpace() {
	for {
		switch p.cur().Type {
		case TokenNewline, TokenIndent, TokenComment:
			p.pos++
		default:
			return
		}
	}
}

// skipRestOfLine consumes tokens through the next line break.
func (p *parser) skipRestOfLine() {
	for {
		switch p.cur().Type {
		case TokenEOF:
			return
		case TokenNewline:
			p.pos++
			return
		default:
			p.pos++
		}
	}
}

func (p *parser) cur() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Type: TokenEOF, Start: len(p.src), End: len(p.src)}
}

func (p *parser) peekAt(off int) Token {
	if p.pos+off < len(p.tokens) {
		return p.tokens[p.pos+off]
	}
	return Token{Type: TokenEOF, Start: len(p.src), End: len(p.src)}
}

// errorf records a positioned diagnostic.
func (p *parser) errorf(start, end int, code ErrorCode, format string, args ...any) {
	if p.errs == nil {
		return
	}
	*p.errs = append(*p.errs, ParseError{
		Message: fmt.Sprintf(format, args...),
		Start:   start,
		End:     end,
		Code:    code,
	})
}

// emptyScalarAt builds the zero-width scalar substituted at an error
// position.
func (p *parser) emptyScalarAt(off int) *ScalarNode {
	return &ScalarNode{Start: off, End: off, Format: FormatNone}
}

func scalarFromToken(tk Token) *ScalarNode {
	return &ScalarNode{Value: tk.Value, Raw: tk.Raw, Start: tk.Start, End: tk.End, Format: tk.Format}
}

func flowTerminates(t TokenType) bool {
	return t == TokenEOF || t == TokenDocumentStart || t == TokenDocumentEnd
}
