// Package lexer implements a lexical analyzer (tokenizer) for the csvdb SQL
// dialect.
//
// EDUCATIONAL NOTES:
// ------------------
// A lexer (also called tokenizer or scanner) is the first phase of parsing.
// It reads the raw input string and converts it into a stream of tokens.
//
// For example, the input:
//   SELECT name FROM users WHERE age = 25;
//
// Becomes these tokens:
//   [SELECT] [IDENT:name] [FROM] [IDENT:users] [WHERE] [IDENT:age] [ASSIGN] [NUMBER:25] [;]
//
// Instead of a hand-written switch on the current character, this lexer
// keeps an ordered table of (pattern, kind) rules. At every step it tries
// the rules in order against the rest of the line and takes the first one
// that matches. Order matters: keywords must be tried before the catch-all
// identifier rule, or "SELECT" would come back as an identifier.
//
// Tokens are produced on demand. The lexer only holds a cursor over the
// current line, so nothing is carried over from one line to the next.

package lexer

import (
	"fmt"
	"regexp"

	"github.com/cabewaldrop/csvdb/internal/log"
	"github.com/cabewaldrop/csvdb/internal/sqlerr"
)

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota

	// Structure
	TokenSemicolon // ;
	TokenComma     // ,
	TokenParams    // ( ... ) captured as one token

	// Keywords
	TokenSelect
	TokenFrom
	TokenUpdate
	TokenInsert // INSERT [INTO]
	TokenDelete
	TokenValues
	TokenSet
	TokenWhere
	TokenJoin
	TokenOn
	TokenOrder       // ORDER BY
	TokenOrderOption // ASC, DESC

	// Literals
	TokenNumber
	TokenString

	// Operators
	TokenAssign // =

	// Identifiers: column names, table names, csv paths and *
	TokenIdent
)

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

// String returns a human-readable representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("Token{%s, %q, pos:%d}", t.Type, t.Literal, t.Pos)
}

var tokenNames = map[TokenType]string{
	TokenEOF:         "EOF",
	TokenSemicolon:   ";",
	TokenComma:       ",",
	TokenParams:      "PARAMS",
	TokenSelect:      "SELECT",
	TokenFrom:        "FROM",
	TokenUpdate:      "UPDATE",
	TokenInsert:      "INSERT",
	TokenDelete:      "DELETE",
	TokenValues:      "VALUES",
	TokenSet:         "SET",
	TokenWhere:       "WHERE",
	TokenJoin:        "JOIN",
	TokenOn:          "ON",
	TokenOrder:       "ORDER",
	TokenOrderOption: "ORDER_OPTION",
	TokenNumber:      "NUMBER",
	TokenString:      "STRING",
	TokenAssign:      "ASSIGN",
	TokenIdent:       "IDENTIFIER",
}

// String returns the name of a token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

// identChars is the character class of identifiers, without brackets.
// Column names may use any letter, and table names may be file paths.
const identChars = `\p{L}\p{N}_.*/\\:@~-`

// rule is one entry of the tokenizer table. Rules with skip set are
// consumed silently (whitespace and comments). Rules with word set match a
// trailing boundary character that is not part of the token: the token
// ends where the first group ends.
type rule struct {
	pattern *regexp.Regexp
	kind    TokenType
	skip    bool
	word    bool
}

func skipRule(expr string) rule {
	return rule{pattern: regexp.MustCompile(expr), skip: true}
}

func tokenRule(expr string, kind TokenType) rule {
	return rule{pattern: regexp.MustCompile(expr), kind: kind}
}

// wordRule matches expr only when it isn't followed by an identifier
// character, so "set.csv" and "on-call" stay identifiers.
func wordRule(expr string, kind TokenType) rule {
	return rule{
		pattern: regexp.MustCompile(`^(` + expr + `)(?:[^` + identChars + `]|$)`),
		kind:    kind,
		word:    true,
	}
}

// rules is tried top to bottom; the first match wins.
var rules = []rule{
	skipRule(`^\s+`),
	skipRule(`^--[^\n]*`),
	skipRule(`^/\*[\s\S]*?\*/`),

	tokenRule(`^;`, TokenSemicolon),
	tokenRule(`^,`, TokenComma),
	tokenRule(`^\(([^)]*)\)`, TokenParams),

	wordRule(`(?i)select`, TokenSelect),
	wordRule(`(?i)from`, TokenFrom),
	wordRule(`(?i)update`, TokenUpdate),
	wordRule(`(?i)insert(?:\s+into)?`, TokenInsert),
	wordRule(`(?i)delete`, TokenDelete),
	wordRule(`(?i)values`, TokenValues),
	wordRule(`(?i)set`, TokenSet),
	wordRule(`(?i)where`, TokenWhere),
	wordRule(`(?i)join`, TokenJoin),
	wordRule(`(?i)on`, TokenOn),
	wordRule(`(?i)order\s+by`, TokenOrder),
	wordRule(`(?i:asc|desc)`, TokenOrderOption),

	tokenRule(`^=`, TokenAssign),
	wordRule(`-?\d+(?:\.\d+)?`, TokenNumber),
	tokenRule(`^"[^"]*"?`, TokenString),
	tokenRule(`^'[^']*'?`, TokenString),

	tokenRule(`^[`+identChars+`]+`, TokenIdent),
}

// Lexer tokenizes one statement-bearing line.
type Lexer struct {
	input string
	pos   int // cursor into input
	err   error
}

// New creates a new Lexer for the given input.
func New(input string) *Lexer {
	l := &Lexer{}
	l.Load(input)
	return l
}

// Load resets the lexer over a new line.
func (l *Lexer) Load(input string) {
	l.input = input
	l.pos = 0
	l.err = nil
}

// Err returns the lex error that truncated the input, if any.
func (l *Lexer) Err() error {
	return l.err
}

// NextToken returns the next token from the input, or a TokenEOF token
// when the input is exhausted or nothing matches.
func (l *Lexer) NextToken() Token {
	for l.pos < len(l.input) {
		rest := l.input[l.pos:]

		matched := false
		for _, r := range rules {
			loc := r.pattern.FindStringSubmatchIndex(rest)
			if loc == nil {
				continue
			}
			matched = true

			end := loc[1]
			if r.word {
				end = loc[3]
			}
			start := l.pos
			text := rest[loc[0]:end]
			l.pos += end

			if r.skip {
				break
			}
			return Token{Type: r.kind, Literal: l.literal(r.kind, rest, text, loc), Pos: start}
		}

		if !matched {
			l.err = sqlerr.Lexf("unexpected token at position %d: %q", l.pos, truncate(rest, 20))
			log.Warn("%v", l.err)
			l.pos = len(l.input)
		}
	}

	return Token{Type: TokenEOF, Pos: l.pos}
}

// literal extracts the token value for the matched text.
func (l *Lexer) literal(kind TokenType, rest, text string, loc []int) string {
	switch kind {
	case TokenParams:
		// inner contents only; the cursor already sits after ')'
		return rest[loc[2]:loc[3]]
	case TokenString:
		// keep the opening quote, drop a closing one if present
		if len(text) > 1 && text[len(text)-1] == text[0] {
			return text[:len(text)-1]
		}
		log.Debug("unterminated string literal at position %d", l.pos-len(text))
		return text
	default:
		return text
	}
}

// Tokenize returns all tokens from the input, ending with TokenEOF.
// Useful for debugging and testing.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return tokens
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
