package frontyaml

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// scanner converts an input string into a flat token list. All character
// level interpretation happens here: quote escapes, block scalar folding and
// chomping, comment recognition, and the context sensitive reading of ':'
// and '-'. The scanner never fails; malformed input degrades to plain
// scalars or shorter tokens and the parser reports what remains.
type scanner struct {
	src    string
	pos    int
	tokens []Token

	// flowDepth tracks '{' and '[' nesting. Inside flow collections the
	// separators ',' '{' '}' '[' ']' terminate plain scalars and ':' binds
	// more loosely.
	flowDepth int

	// seenBlockColon is set once a mapping colon is read on the current
	// line outside flow context. Later colons on the line are scalar
	// content, which keeps values like "10:30:00" intact.
	seenBlockColon bool

	buf []byte // Scratch for interpreted scalar values.
}

func newScanner(src string) *scanner {
	return &scanner{
		src:    src,
		tokens: make([]Token, 0, 64),
		buf:    make([]byte, 0, 64),
	}
}

// scan tokenizes the whole input and returns the token list, terminated by
// an EOF token whose range is empty.
func (s *scanner) scan() []Token {
	for s.pos < len(s.src) {
		s.scanLine()
	}
	s.emit(Token{Type: TokenEOF, Start: s.pos, End: s.pos})
	return s.tokens
}

// scanLine scans one source line: its indentation, content tokens and the
// closing line break. Block scalars started on the line consume their
// content lines internally before control returns here.
func (s *scanner) scanLine() {
	s.seenBlockColon = false
	lineStart := s.pos

	indent := 0
	for s.pos < len(s.src) && isSpaceOrTab(s.src[s.pos]) {
		indent++
		s.pos++
	}
	if s.pos >= len(s.src) {
		// Trailing whitespace before EOF, not a line.
		return
	}
	if isBreak(s.src[s.pos]) {
		// Blank line: a newline token and nothing else.
		br := s.lineBreakLen(s.pos)
		s.emit(Token{Type: TokenNewline, Start: s.pos, End: s.pos + br})
		s.pos += br
		return
	}

	s.emit(Token{Type: TokenIndent, Start: lineStart, End: lineStart + indent, Indent: indent})

	if indent == 0 {
		if typ, ok := s.documentMarker(s.pos); ok {
			s.emit(Token{Type: typ, Start: s.pos, End: s.pos + 3})
			s.pos += 3
		}
	}

	s.scanContent()
}

// documentMarker reports whether a '---' or '...' document marker starts at
// i. The three characters must be followed by whitespace, a break or EOF.
func (s *scanner) documentMarker(i int) (TokenType, bool) {
	rest := s.src[i:]
	var typ TokenType
	switch {
	case strings.HasPrefix(rest, "---"):
		typ = TokenDocumentStart
	case strings.HasPrefix(rest, "..."):
		typ = TokenDocumentEnd
	default:
		return TokenEOF, false
	}
	if len(rest) > 3 && !isSpaceOrTab(rest[3]) && !isBreak(rest[3]) {
		return TokenEOF, false
	}
	return typ, true
}

// scanContent scans the tokens of one line after its indentation, through
// the closing line break.
func (s *scanner) scanContent() {
	for s.pos < len(s.src) {
		for s.pos < len(s.src) && isSpaceOrTab(s.src[s.pos]) {
			s.pos++
		}
		if s.pos >= len(s.src) {
			return
		}
		if isBreak(s.src[s.pos]) {
			br := s.lineBreakLen(s.pos)
			s.emit(Token{Type: TokenNewline, Start: s.pos, End: s.pos + br})
			s.pos += br
			return
		}

		switch c := s.src[s.pos]; {
		case c == '#':
			start := s.pos
			for s.pos < len(s.src) && !isBreak(s.src[s.pos]) {
				s.pos++
			}
			s.emit(Token{Type: TokenComment, Start: start, End: s.pos, Raw: s.src[start:s.pos]})
		case c == '{':
			s.flowDepth++
			s.emitSingle(TokenFlowMapStart)
		case c == '}':
			if s.flowDepth > 0 {
				s.flowDepth--
			}
			s.emitSingle(TokenFlowMapEnd)
		case c == '[':
			s.flowDepth++
			s.emitSingle(TokenFlowSeqStart)
		case c == ']':
			if s.flowDepth > 0 {
				s.flowDepth--
			}
			s.emitSingle(TokenFlowSeqEnd)
		case c == ',' && s.flowDepth > 0:
			s.emitSingle(TokenComma)
		case c == ':' && s.colonIsIndicator():
			if s.flowDepth == 0 {
				s.seenBlockColon = true
			}
			s.emitSingle(TokenColon)
		case c == '-' && s.dashIsIndicator():
			s.emitSingle(TokenDash)
		case c == '\'':
			s.scanSingleQuoted()
		case c == '"':
			s.scanDoubleQuoted()
		case (c == '|' || c == '>') && s.flowDepth == 0:
			if s.scanBlockScalar() {
				// The block scalar consumed its lines and breaks.
				return
			}
			s.scanPlainScalar()
		default:
			s.scanPlainScalar()
		}
	}
}

// colonIsIndicator reports whether the ':' at the current position is a
// mapping indicator rather than scalar content. In block context a colon
// counts only when followed by whitespace, a break or EOF, and only for the
// first colon of the line. In flow context ',' '}' and ']' also count as
// what-follows, and a colon immediately after a quoted scalar or a closing
// flow delimiter counts regardless, which admits JSON-style {"a":1}.
func (s *scanner) colonIsIndicator() bool {
	if s.flowDepth > 0 {
		if s.jsonLikeBefore() {
			return true
		}
		if s.pos+1 >= len(s.src) {
			return true
		}
		next := s.src[s.pos+1]
		return isSpaceOrTab(next) || isBreak(next) || next == ',' || next == '}' || next == ']'
	}
	if s.seenBlockColon {
		return false
	}
	if s.pos+1 >= len(s.src) {
		return true
	}
	next := s.src[s.pos+1]
	return isSpaceOrTab(next) || isBreak(next)
}

// jsonLikeBefore reports whether the previously emitted token ends exactly at
// the current position and is a quoted scalar or a closing flow delimiter.
func (s *scanner) jsonLikeBefore() bool {
	if len(s.tokens) == 0 {
		return false
	}
	tk := s.tokens[len(s.tokens)-1]
	if tk.End != s.pos {
		return false
	}
	switch tk.Type {
	case TokenFlowMapEnd, TokenFlowSeqEnd:
		return true
	case TokenScalar:
		return tk.Format == FormatSingle || tk.Format == FormatDouble
	}
	return false
}

// dashIsIndicator reports whether the '-' at the current position introduces
// a sequence item. It must be followed by whitespace, a break or EOF, so
// negative numbers and words like "foo-bar" stay scalars.
func (s *scanner) dashIsIndicator() bool {
	if s.pos+1 >= len(s.src) {
		return true
	}
	next := s.src[s.pos+1]
	return isSpaceOrTab(next) || isBreak(next)
}

// scanPlainScalar scans an unquoted scalar. It stops at a line break, at a
// mapping colon, at a comment introduced by whitespace and '#', and inside
// flow context at the flow separators. Trailing whitespace is excluded from
// the token's range, so Value == Raw == input[Start:End].
func (s *scanner) scanPlainScalar() {
	start := s.pos
	end := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if isBreak(c) {
			break
		}
		if s.flowDepth > 0 && (c == ',' || c == '{' || c == '}' || c == '[' || c == ']') {
			break
		}
		if c == ':' && s.colonIsIndicator() {
			break
		}
		if c == '#' && s.pos > start && isSpaceOrTab(s.src[s.pos-1]) {
			break
		}
		if !isSpaceOrTab(c) {
			end = s.pos + 1
		}
		s.pos++
	}
	raw := s.src[start:end]
	s.emit(Token{Type: TokenScalar, Start: start, End: end, Value: raw, Raw: raw, Format: FormatNone})
}

// scanSingleQuoted scans a single-quoted scalar. The only escape is a
// doubled quote; raw line breaks inside the scalar are flow folded. An
// unterminated scalar silently extends to EOF.
func (s *scanner) scanSingleQuoted() {
	start := s.pos
	s.pos++
	s.buf = s.buf[:0]
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\'' {
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '\'' {
				s.buf = append(s.buf, '\'')
				s.pos += 2
				continue
			}
			s.pos++
			break
		}
		if isBreak(c) {
			s.foldQuotedBreak()
			continue
		}
		s.buf = append(s.buf, c)
		s.pos++
	}
	s.emit(Token{
		Type:   TokenScalar,
		Start:  start,
		End:    s.pos,
		Value:  string(s.buf),
		Raw:    s.src[start:s.pos],
		Format: FormatSingle,
	})
}

// scanDoubleQuoted scans a double-quoted scalar with the full escape set.
// Malformed escapes keep the backslash and the following character as
// literal text. An unterminated scalar silently extends to EOF.
func (s *scanner) scanDoubleQuoted() {
	start := s.pos
	s.pos++
	s.buf = s.buf[:0]
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '"' {
			s.pos++
			break
		}
		if c == '\\' {
			s.scanEscape()
			continue
		}
		if isBreak(c) {
			s.foldQuotedBreak()
			continue
		}
		s.buf = append(s.buf, c)
		s.pos++
	}
	s.emit(Token{
		Type:   TokenScalar,
		Start:  start,
		End:    s.pos,
		Value:  string(s.buf),
		Raw:    s.src[start:s.pos],
		Format: FormatDouble,
	})
}

// foldQuotedBreak applies flow folding to a raw line break inside a quoted
// scalar: whitespace around the break is dropped, a single break becomes one
// space, and N embedded blank lines become N newlines.
func (s *scanner) foldQuotedBreak() {
	for len(s.buf) > 0 && isSpaceOrTab(s.buf[len(s.buf)-1]) {
		s.buf = s.buf[:len(s.buf)-1]
	}
	breaks := 0
	for s.pos < len(s.src) {
		if isBreak(s.src[s.pos]) {
			s.pos += s.lineBreakLen(s.pos)
			breaks++
			continue
		}
		if isSpaceOrTab(s.src[s.pos]) {
			s.pos++
			continue
		}
		break
	}
	if breaks > 1 {
		for i := 1; i < breaks; i++ {
			s.buf = append(s.buf, '\n')
		}
		return
	}
	s.buf = append(s.buf, ' ')
}

// scanEscape interprets one backslash escape inside a double-quoted scalar.
func (s *scanner) scanEscape() {
	if s.pos+1 >= len(s.src) {
		s.buf = append(s.buf, '\\')
		s.pos++
		return
	}
	esc := s.src[s.pos+1]

	// An escaped line break joins the lines with nothing inserted. Leading
	// whitespace on the continuation line is dropped.
	if isBreak(esc) {
		s.pos++
		s.pos += s.lineBreakLen(s.pos)
		for s.pos < len(s.src) && isSpaceOrTab(s.src[s.pos]) {
			s.pos++
		}
		return
	}

	switch esc {
	case 'n':
		s.buf = append(s.buf, '\n')
	case 't':
		s.buf = append(s.buf, '\t')
	case '\\':
		s.buf = append(s.buf, '\\')
	case '"':
		s.buf = append(s.buf, '"')
	case '/':
		s.buf = append(s.buf, '/')
	case 'r':
		s.buf = append(s.buf, '\r')
	case '0':
		s.buf = append(s.buf, 0x00)
	case 'a':
		s.buf = append(s.buf, 0x07)
	case 'b':
		s.buf = append(s.buf, '\b')
	case 'e':
		s.buf = append(s.buf, 0x1b)
	case 'v':
		s.buf = append(s.buf, '\v')
	case 'f':
		s.buf = append(s.buf, '\f')
	case ' ':
		s.buf = append(s.buf, ' ')
	case '_':
		s.buf = utf8.AppendRune(s.buf, 0x00a0)
	case 'x':
		s.scanHexEscape(2)
		return
	case 'u':
		s.scanUnicodeEscape()
		return
	case 'U':
		s.scanHexEscape(8)
		return
	default:
		s.buf = append(s.buf, '\\', esc)
	}
	s.pos += 2
}

// scanHexEscape reads a fixed-width hex escape (\xNN or \UNNNNNNNN). When
// the digits are missing or malformed, the backslash and its letter are kept
// literally and scanning resumes after them.
func (s *scanner) scanHexEscape(width int) {
	letter := s.src[s.pos+1]
	digits := s.pos + 2
	if digits+width > len(s.src) || !isHexString(s.src[digits:digits+width]) {
		s.buf = append(s.buf, '\\', letter)
		s.pos += 2
		return
	}
	code, _ := strconv.ParseUint(s.src[digits:digits+width], 16, 32)
	s.buf = utf8.AppendRune(s.buf, rune(code))
	s.pos = digits + width
}

// scanUnicodeEscape reads \uNNNN. A high surrogate immediately followed by
// an escaped low surrogate is combined into the full code point.
func (s *scanner) scanUnicodeEscape() {
	digits := s.pos + 2
	if digits+4 > len(s.src) || !isHexString(s.src[digits:digits+4]) {
		s.buf = append(s.buf, '\\', 'u')
		s.pos += 2
		return
	}
	code, _ := strconv.ParseUint(s.src[digits:digits+4], 16, 32)
	s.pos = digits + 4

	r := rune(code)
	if utf16.IsSurrogate(r) && s.pos+6 <= len(s.src) &&
		s.src[s.pos] == '\\' && s.src[s.pos+1] == 'u' && isHexString(s.src[s.pos+2:s.pos+6]) {
		low, _ := strconv.ParseUint(s.src[s.pos+2:s.pos+6], 16, 32)
		if combined := utf16.DecodeRune(r, rune(low)); combined != utf8.RuneError {
			s.buf = utf8.AppendRune(s.buf, combined)
			s.pos += 6
			return
		}
	}
	s.buf = utf8.AppendRune(s.buf, r)
}

// blockLine is one content line of a block scalar after indentation
// stripping.
type blockLine struct {
	text         string
	moreIndented bool
	blank        bool
}

// scanBlockScalar scans a '|' or '>' block scalar starting at the current
// position, consuming its content lines and their breaks internally. It
// returns false without consuming anything when the characters after the
// marker do not form a valid header; the caller then falls back to a plain
// scalar.
func (s *scanner) scanBlockScalar() bool {
	start := s.pos
	folded := s.src[s.pos] == '>'

	// Header: an explicit indentation digit (1-9) and a chomping indicator
	// ('-' strip, '+' keep), each optional, in either order, then optional
	// spaces and a comment, then the line break.
	i := s.pos + 1
	explicit := 0
	chomp := byte(0)
	for i < len(s.src) {
		c := s.src[i]
		if c >= '1' && c <= '9' && explicit == 0 {
			explicit = int(c - '0')
			i++
			continue
		}
		if (c == '-' || c == '+') && chomp == 0 {
			chomp = c
			i++
			continue
		}
		break
	}
	sawSpace := false
	for i < len(s.src) && isSpaceOrTab(s.src[i]) {
		sawSpace = true
		i++
	}
	if i < len(s.src) && s.src[i] == '#' && sawSpace {
		for i < len(s.src) && !isBreak(s.src[i]) {
			i++
		}
	}
	if i < len(s.src) && !isBreak(s.src[i]) {
		return false
	}
	if i < len(s.src) {
		i += s.lineBreakLen(i)
	}
	s.pos = i

	// Content indentation is either parent+explicit or taken from the first
	// non-blank content line, which must sit deeper than the parent block.
	parentIndent := s.parentBlockIndent()
	contentIndent := -1
	if explicit > 0 {
		contentIndent = parentIndent + explicit
	}

	var lines []blockLine
	for s.pos < len(s.src) {
		lineStart := s.pos
		j := s.pos
		ind := 0
		for j < len(s.src) && isSpaceOrTab(s.src[j]) {
			ind++
			j++
		}
		if j >= len(s.src) || isBreak(s.src[j]) {
			// Whitespace-only lines belong to the scalar at any indentation.
			lines = append(lines, blockLine{blank: true})
			if j < len(s.src) {
				j += s.lineBreakLen(j)
			}
			s.pos = j
			continue
		}
		if ind == 0 {
			if _, ok := s.documentMarker(j); ok {
				break
			}
		}
		if contentIndent < 0 {
			if ind <= parentIndent {
				break
			}
			contentIndent = ind
		}
		if ind < contentIndent {
			break
		}
		k := j
		for k < len(s.src) && !isBreak(s.src[k]) {
			k++
		}
		text := s.src[lineStart+contentIndent : k]
		lines = append(lines, blockLine{
			text:         text,
			moreIndented: len(text) > 0 && isSpaceOrTab(text[0]),
		})
		s.pos = k
		if s.pos < len(s.src) {
			s.pos += s.lineBreakLen(s.pos)
		}
	}

	// Trailing blank lines take part in chomping only.
	t := len(lines)
	for t > 0 && lines[t-1].blank {
		t--
	}
	core := lines[:t]
	trailing := len(lines) - t

	var value string
	if folded {
		value = foldBlockLines(core)
	} else {
		parts := make([]string, len(core))
		for n, ln := range core {
			parts[n] = ln.text
		}
		value = strings.Join(parts, "\n")
	}

	switch chomp {
	case '-':
		// Strip: no trailing break.
	case '+':
		n := trailing
		if len(core) > 0 {
			n++
		}
		value += strings.Repeat("\n", n)
	default:
		// Clip: one trailing break, and only when there was content.
		if len(core) > 0 {
			value += "\n"
		}
	}

	format := FormatLiteral
	if folded {
		format = FormatFolded
	}
	s.emit(Token{
		Type:   TokenScalar,
		Start:  start,
		End:    s.pos,
		Value:  value,
		Raw:    s.src[start:s.pos],
		Format: format,
	})
	return true
}

// foldBlockLines folds the content lines of a '>' scalar. Each blank line
// contributes one newline and the break that ends a blank run collapses;
// breaks next to a more-indented line are preserved; all other breaks fold
// to a single space.
func foldBlockLines(lines []blockLine) string {
	var b strings.Builder
	emitted := false
	prevBlank := false
	lastMoreIndented := false
	for _, ln := range lines {
		if ln.blank {
			b.WriteByte('\n')
			prevBlank = true
			continue
		}
		if emitted {
			switch {
			case lastMoreIndented || ln.moreIndented:
				b.WriteByte('\n')
			case prevBlank:
				// The break closing a blank run already folded away.
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteString(ln.text)
		emitted = true
		prevBlank = false
		lastMoreIndented = ln.moreIndented
	}
	return b.String()
}

// parentBlockIndent finds the indentation of the block that owns the scalar
// being scanned, by walking the emitted tokens backward to the governing
// colon, dash or document marker. For a colon the parent is the column of
// the key scalar before it; for a dash, the dash's own column.
func (s *scanner) parentBlockIndent() int {
	for i := len(s.tokens) - 1; i >= 0; i-- {
		switch s.tokens[i].Type {
		case TokenDocumentStart:
			return 0
		case TokenDash:
			return tokenColumn(s.tokens, i)
		case TokenColon:
			if i > 0 && s.tokens[i-1].Type == TokenScalar {
				return tokenColumn(s.tokens, i-1)
			}
			return tokenColumn(s.tokens, i)
		}
	}
	return 0
}

func (s *scanner) emit(tk Token) {
	s.tokens = append(s.tokens, tk)
}

func (s *scanner) emitSingle(typ TokenType) {
	s.emit(Token{Type: typ, Start: s.pos, End: s.pos + 1})
	s.pos++
}

// lineBreakLen returns the byte width of the line break at i, treating \r\n
// as a single break.
func (s *scanner) lineBreakLen(i int) int {
	if s.src[i] == '\r' && i+1 < len(s.src) && s.src[i+1] == '\n' {
		return 2
	}
	return 1
}

func isBreak(c byte) bool {
	return c == '\n' || c == '\r'
}

func isSpaceOrTab(c byte) bool {
	return c == ' ' || c == '\t'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isHexString(str string) bool {
	for i := 0; i < len(str); i++ {
		if !isHex(str[i]) {
			return false
		}
	}
	return len(str) > 0
}
