// Package parser - SQL Parser implementation
//
// EDUCATIONAL NOTES:
// ------------------
// A parser reads tokens from the lexer and builds an Abstract Syntax Tree (AST).
// This is the second phase of compilation/interpretation, after lexing.
//
// We use a "recursive descent" parser with a single token of lookahead.
// Each grammar rule becomes a function:
// - statement() handles one ;-terminated statement
// - clause() dispatches on the leading keyword
// - arguments() handles the comma-separated list after a keyword
//
// Errors are not thrown. The first problem is recorded on the parser and the
// parse keeps going, so one bad statement doesn't hide the rest of the
// input. The failed statement keeps a nil Expression and callers check Err()
// before evaluating anything.

package parser

import (
	"strconv"
	"strings"

	"github.com/cabewaldrop/csvdb/internal/sql/lexer"
	"github.com/cabewaldrop/csvdb/internal/sqlerr"
)

// Parser parses csvdb SQL tokens into an AST.
type Parser struct {
	lexer     *lexer.Lexer
	lookahead lexer.Token
	err       error // first pending error, cleared by Err
	failures  int   // errors recorded so far, including ones dropped
}

// New creates a new Parser for the given lexer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{lexer: l}
	p.advance()
	return p
}

// ParseString is a convenience wrapper around New(lexer.New(text)).Parse().
func ParseString(text string) (*Program, error) {
	p := New(lexer.New(text))
	prog := p.Parse()
	return prog, p.Err()
}

// Parse reads statements until the input is exhausted.
func (p *Parser) Parse() *Program {
	prog := &Program{}
	for p.lookahead.Type != lexer.TokenEOF {
		prog.Body = append(prog.Body, p.statement())
	}
	return prog
}

// Err returns the pending error and clears it.
func (p *Parser) Err() error {
	err := p.err
	p.err = nil
	return err
}

// advance pulls the next token into the lookahead slot. A lex error that
// truncated the line is surfaced as the parser's error.
func (p *Parser) advance() {
	p.lookahead = p.lexer.NextToken()
	if p.lookahead.Type == lexer.TokenEOF {
		if err := p.lexer.Err(); err != nil {
			p.fail(err)
		}
	}
}

// eat consumes the lookahead. It always advances, even on a mismatch, so
// the parser can never stall on a bad token.
func (p *Parser) eat(t lexer.TokenType) lexer.Token {
	tok := p.lookahead
	if tok.Type != t {
		p.fail(sqlerr.Syntaxf("unexpected token %q at position %d: expected %s, got %s",
			tok.Literal, tok.Pos, t, tok.Type))
	}
	p.advance()
	return tok
}

func (p *Parser) fail(err error) {
	p.failures++
	if p.err == nil {
		p.err = err
	}
}

func (p *Parser) atEnd() bool {
	return p.lookahead.Type == lexer.TokenSemicolon || p.lookahead.Type == lexer.TokenEOF
}

// statement parses `;` or `clause-chain [;]`.
func (p *Parser) statement() Statement {
	if p.lookahead.Type == lexer.TokenSemicolon {
		p.eat(lexer.TokenSemicolon)
		return &EmptyStatement{}
	}

	before := p.failures
	stmt := &ExpressionStatement{Expression: p.clause()}
	if p.lookahead.Type != lexer.TokenEOF {
		p.eat(lexer.TokenSemicolon)
	}
	if p.failures > before {
		stmt.Expression = nil
	}
	return stmt
}

// clause dispatches on the leading keyword.
func (p *Parser) clause() Expression {
	switch p.lookahead.Type {
	case lexer.TokenSelect:
		return p.keywordClause(lexer.TokenSelect, SelectExpression)
	case lexer.TokenFrom:
		return p.keywordClause(lexer.TokenFrom, FromExpression)
	case lexer.TokenUpdate:
		return p.keywordClause(lexer.TokenUpdate, UpdateExpression)
	case lexer.TokenInsert:
		return p.keywordClause(lexer.TokenInsert, InsertExpression)
	case lexer.TokenValues:
		return p.keywordClause(lexer.TokenValues, ValuesExpression)
	case lexer.TokenWhere:
		return p.keywordClause(lexer.TokenWhere, WhereExpression)
	case lexer.TokenSet:
		return p.keywordClause(lexer.TokenSet, SetExpression)
	case lexer.TokenOrder:
		return p.keywordClause(lexer.TokenOrder, OrderExpression)
	case lexer.TokenJoin:
		return p.keywordClause(lexer.TokenJoin, JoinExpression)
	case lexer.TokenOn:
		return p.keywordClause(lexer.TokenOn, OnExpression)
	case lexer.TokenDelete:
		// DELETE has no arguments of its own: DELETE FROM t WHERE ...
		p.eat(lexer.TokenDelete)
		c := &Clause{Kind: DeleteExpression}
		if !p.atEnd() {
			c.Next = p.nextClause()
		}
		return c
	case lexer.TokenNumber:
		return p.numericLiteral()
	case lexer.TokenString:
		return p.stringLiteral()
	default:
		tok := p.lookahead
		p.fail(sqlerr.Syntaxf("unexpected token %q at position %d", tok.Literal, tok.Pos))
		p.advance()
		return nil
	}
}

// nextClause parses the clause that follows another one in a chain.
func (p *Parser) nextClause() *Clause {
	tok := p.lookahead
	switch expr := p.clause().(type) {
	case *Clause:
		return expr
	case nil:
		return nil
	default:
		p.fail(sqlerr.Syntaxf("unexpected literal %q at position %d: expected a clause keyword",
			tok.Literal, tok.Pos))
		return nil
	}
}

// keywordClause parses KEYWORD arguments [next-clause].
func (p *Parser) keywordClause(t lexer.TokenType, kind NodeType) Expression {
	kw := p.eat(t)
	c := &Clause{Kind: kind}
	if !p.arguments(c, kw) {
		return nil
	}
	if !p.atEnd() {
		c.Next = p.nextClause()
	}
	return c
}

// arguments parses `arg {, arg} [ASC|DESC]` into c.
func (p *Parser) arguments(c *Clause, kw lexer.Token) bool {
	switch p.lookahead.Type {
	case lexer.TokenIdent, lexer.TokenParams:
	default:
		p.fail(sqlerr.Syntaxf("%s expects an argument at position %d, got %s",
			strings.ToUpper(kw.Literal), p.lookahead.Pos, p.lookahead.Type))
		return false
	}

	for {
		arg := p.argument()
		if arg == nil {
			return false
		}
		c.Args = append(c.Args, arg)

		if p.lookahead.Type != lexer.TokenComma {
			break
		}
		p.eat(lexer.TokenComma)
	}

	if p.lookahead.Type == lexer.TokenOrderOption {
		tok := p.eat(lexer.TokenOrderOption)
		c.Order = &OrderOption{Value: strings.ToUpper(tok.Literal)}
	}
	return true
}

// argument parses an identifier or parameter list, promoting
// `identifier = value` to an Assign.
func (p *Parser) argument() Expression {
	var root Expression
	switch p.lookahead.Type {
	case lexer.TokenIdent:
		tok := p.eat(lexer.TokenIdent)
		root = &Identifier{Name: tok.Literal}
	case lexer.TokenParams:
		tok := p.eat(lexer.TokenParams)
		root = &Params{Values: splitParams(tok.Literal)}
	default:
		p.fail(sqlerr.Syntaxf("expected identifier at position %d, got %s",
			p.lookahead.Pos, p.lookahead.Type))
		return nil
	}

	if p.lookahead.Type != lexer.TokenAssign {
		return root
	}

	left, ok := root.(*Identifier)
	if !ok {
		p.fail(sqlerr.Syntaxf("cannot assign to a parameter list at position %d", p.lookahead.Pos))
		return nil
	}
	op := p.eat(lexer.TokenAssign)
	right := p.assignValue()
	if right == nil {
		return nil
	}
	return &Assign{Op: op.Literal, Left: left, Right: right}
}

// assignValue parses the right side of key=value.
func (p *Parser) assignValue() Expression {
	switch p.lookahead.Type {
	case lexer.TokenIdent:
		tok := p.eat(lexer.TokenIdent)
		return &Identifier{Name: tok.Literal}
	case lexer.TokenNumber:
		return p.numericLiteral()
	case lexer.TokenString:
		return p.stringLiteral()
	default:
		p.fail(sqlerr.Syntaxf("expected a value after = at position %d, got %s",
			p.lookahead.Pos, p.lookahead.Type))
		return nil
	}
}

func (p *Parser) numericLiteral() Expression {
	tok := p.eat(lexer.TokenNumber)
	value, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		p.fail(sqlerr.Syntaxf("could not parse %q as number", tok.Literal))
		return nil
	}
	return &NumericLiteral{Value: value, Literal: tok.Literal}
}

// stringLiteral strips the opening quote the lexer leaves in place.
func (p *Parser) stringLiteral() Expression {
	tok := p.eat(lexer.TokenString)
	return &StringLiteral{Value: tok.Literal[1:]}
}

// splitParams splits the inside of (...) on commas, trimming spaces and a
// matching pair of surrounding quotes from each value.
func splitParams(inner string) []string {
	if strings.TrimSpace(inner) == "" {
		return []string{}
	}

	parts := strings.Split(inner, ",")
	values := make([]string, len(parts))
	for i, part := range parts {
		v := strings.TrimSpace(part)
		if len(v) >= 2 && (v[0] == '\'' || v[0] == '"') && v[len(v)-1] == v[0] {
			v = v[1 : len(v)-1]
		}
		values[i] = v
	}
	return values
}
