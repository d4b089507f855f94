package compiler

import "fmt"

// TokenType identifies the category of a token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // names and keywords alike
	CHAR_LIT   // 'c'
	INT_LIT    // 42
	FLOAT_LIT  // 4.2

	// Paired delimiters
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )

	// Punctuation
	DOT       // .
	SEMICOLON // ;
	COMMA     // ,

	// Operators
	PLUS        // +
	MINUS       // -
	STAR        // *
	SLASH       // /
	AND         // &
	PIPE        // |
	CARET       // ^
	NOT         // !
	SHL_OP      // <<
	SHR_OP      // >>
	AND_LOGICAL // &&
	OR_LOGICAL  // ||

	// Assignment / comparison
	ASSIGN     // =
	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=
)

var tokenNames = [...]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	CHAR_LIT:    "CHAR_LIT",
	INT_LIT:     "INT_LIT",
	FLOAT_LIT:   "FLOAT_LIT",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	DOT:         "DOT",
	SEMICOLON:   "SEMICOLON",
	COMMA:       "COMMA",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
	AND:         "AND",
	PIPE:        "PIPE",
	CARET:       "CARET",
	NOT:         "NOT",
	SHL_OP:      "SHL_OP",
	SHR_OP:      "SHR_OP",
	AND_LOGICAL: "AND_LOGICAL",
	OR_LOGICAL:  "OR_LOGICAL",
	ASSIGN:      "ASSIGN",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	LESS:        "LESS",
	GREATER:     "GREATER",
	LESS_EQ:     "LESS_EQ",
	GREATER_EQ:  "GREATER_EQ",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical unit produced by Tokenize.
type Token struct {
	Type   TokenType
	Lexeme string // source text; for CHAR_LIT the decoded character
	Line   int    // 1-based source line
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}

// operators maps operator lexemes, two-character ones included, to their
// token type. Tokenize tries two characters before one.
var operators = map[string]TokenType{
	"(":  LPAREN,
	")":  RPAREN,
	"{":  LBRACE,
	"}":  RBRACE,
	";":  SEMICOLON,
	",":  COMMA,
	".":  DOT,
	"+":  PLUS,
	"-":  MINUS,
	"*":  STAR,
	"/":  SLASH,
	"<":  LESS,
	">":  GREATER,
	"=":  ASSIGN,
	"!":  NOT,
	"^":  CARET,
	"&":  AND,
	"|":  PIPE,
	"<=": LESS_EQ,
	">=": GREATER_EQ,
	"==": EQUALS,
	"!=": NOT_EQ,
	"<<": SHL_OP,
	">>": SHR_OP,
	"&&": AND_LOGICAL,
	"||": OR_LOGICAL,
}
