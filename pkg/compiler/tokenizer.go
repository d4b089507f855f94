package compiler

import "strings"

// Tokenizer holds all mutable state for a single scanning pass over src.
type Tokenizer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
}

func newTokenizer(src string) *Tokenizer {
	return &Tokenizer{src: []rune(src), pos: 0, line: 1}
}

// peek returns the rune at the current position without advancing.
func (l *Tokenizer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Tokenizer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it, counting newlines.
func (l *Tokenizer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Tokenizer) atEnd() bool { return l.pos >= len(l.src) }

func isSpace(r rune) bool { return r == ' ' || r == '\n' || r == '\t' || r == '\r' }

func isNameRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_'
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// skipTrivia discards whitespace and both comment styles.
func (l *Tokenizer) skipTrivia() error {
	for !l.atEnd() {
		switch {
		case isSpace(l.peek()):
			l.advance()
		case l.peek() == '/' && l.peek2() == '/':
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		case l.peek() == '/' && l.peek2() == '*':
			startLine := l.line
			l.advance()
			l.advance()
			for {
				if l.atEnd() {
					return lexErrorf(startLine, "missing '*/' for block comment")
				}
				if l.peek() == '*' && l.peek2() == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

// scanChar collects a character literal. The opening quote must still be at
// l.peek().
func (l *Tokenizer) scanChar() (Token, error) {
	line := l.line
	l.advance()

	r := l.advance()
	switch {
	case r == 0 && l.atEnd():
		return Token{}, lexErrorf(line, "missing [']")
	case r == '\'':
		return Token{}, lexErrorf(line, "empty character literal")
	case r == '\\':
		esc := l.advance()
		switch {
		case esc == '\'' || esc == '\\':
			r = esc
		case esc == 'n':
			r = '\n'
		case esc == 't':
			r = '\t'
		case isDigit(esc):
			r = esc - '0'
		default:
			return Token{}, lexErrorf(line, "invalid escape character [%c]", esc)
		}
	case r > 127:
		return Token{}, lexErrorf(line, "character [%c] does not fit in a char", r)
	}

	if l.peek() != '\'' {
		return Token{}, lexErrorf(line, "missing [']")
	}
	l.advance()
	return Token{Type: CHAR_LIT, Lexeme: string(r), Line: line}, nil
}

// scanNumber collects an int or float literal. At most one '.' is allowed.
func (l *Tokenizer) scanNumber() (Token, error) {
	line := l.line
	start := l.pos
	dots := 0
	for !l.atEnd() && (isDigit(l.peek()) || l.peek() == '.') {
		if l.peek() == '.' {
			dots++
			if dots > 1 {
				return Token{}, lexErrorf(l.line, "unexpected [.] in number literal")
			}
		}
		l.advance()
	}
	tt := INT_LIT
	if dots == 1 {
		tt = FLOAT_LIT
	}
	return Token{Type: tt, Lexeme: string(l.src[start:l.pos]), Line: line}, nil
}

func (l *Tokenizer) scanName() Token {
	line := l.line
	start := l.pos
	for !l.atEnd() && isNameRune(l.peek()) {
		l.advance()
	}
	return Token{Type: IDENTIFIER, Lexeme: string(l.src[start:l.pos]), Line: line}
}

// nextToken returns the next token, or EOF once the input is exhausted.
func (l *Tokenizer) nextToken() (Token, error) {
	if err := l.skipTrivia(); err != nil {
		return Token{}, err
	}
	if l.atEnd() {
		return Token{Type: EOF, Line: l.line}, nil
	}

	ch := l.peek()
	line := l.line
	switch {
	case ch == '\'':
		return l.scanChar()
	case isDigit(ch):
		return l.scanNumber()
	case isNameRune(ch):
		return l.scanName(), nil
	}

	if two := string([]rune{ch, l.peek2()}); l.peek2() != 0 {
		if tt, ok := operators[two]; ok {
			l.advance()
			l.advance()
			return Token{Type: tt, Lexeme: two, Line: line}, nil
		}
	}
	if tt, ok := operators[string(ch)]; ok {
		l.advance()
		return Token{Type: tt, Lexeme: string(ch), Line: line}, nil
	}
	return Token{}, lexErrorf(line, "unexpected character %q", ch)
}

// Tokenize converts src into a token slice terminated by a single EOF token.
func Tokenize(src string) ([]Token, error) {
	l := newTokenizer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

// TokenString renders tokens one per line, for debugging output.
func TokenString(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(tok.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
