package exprparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ParseParams carries the placeholder maps of a request.
type ParseParams struct {
	Names  map[string]string
	Values map[string]types.AttributeValue
}

type parser struct {
	toks   []token
	pos    int
	params ParseParams
}

func newParser(expr string, params ParseParams) (*parser, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks, params: params}, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, fmt.Errorf("expected %s, got %s", what, t)
	}
	return t, nil
}

func (p *parser) done() error {
	if t := p.peek(); t.kind != tokEOF {
		return fmt.Errorf("unexpected %s", t)
	}
	return nil
}

// ParseCondition parses a condition or filter expression.
func ParseCondition(expr string, params ParseParams) (Condition, error) {
	p, err := newParser(expr, params)
	if err != nil {
		return nil, err
	}
	c, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if err := p.done(); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *parser) parseOr() (Condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().keyword("OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Condition, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().keyword("AND") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Condition, error) {
	if p.peek().keyword("NOT") {
		p.next()
		c, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Not{Condition: c}, nil
	}
	return p.parsePrimary()
}

var conditionFunctions = map[string]int{
	"attribute_exists":     1,
	"attribute_not_exists": 1,
	"attribute_type":       2,
	"begins_with":          2,
	"contains":             2,
}

func (p *parser) parsePrimary() (Condition, error) {
	t := p.peek()
	if t.kind == tokLParen {
		p.next()
		c, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return c, nil
	}
	if t.kind == tokIdent && p.toks[p.pos+1].kind == tokLParen {
		if arity, ok := conditionFunctions[strings.ToLower(t.text)]; ok {
			return p.parseFunction(arity)
		}
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	t = p.next()
	switch {
	case t.kind == tokCompare:
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return Compare{Op: t.text, Left: left, Right: right}, nil
	case t.keyword("BETWEEN"):
		from, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if t := p.next(); !t.keyword("AND") {
			return nil, fmt.Errorf("expected AND in BETWEEN, got %s", t)
		}
		to, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return Between{Operand: left, From: from, To: to}, nil
	case t.keyword("IN"):
		list, err := p.parseOperandList()
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("IN list must not be empty")
		}
		return In{Operand: left, List: list}, nil
	default:
		return nil, fmt.Errorf("expected comparator, BETWEEN or IN, got %s", t)
	}
}

func (p *parser) parseFunction(arity int) (Condition, error) {
	name := strings.ToLower(p.next().text)
	args, err := p.parseOperandList()
	if err != nil {
		return nil, err
	}
	if len(args) != arity {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", name, arity, len(args))
	}
	if _, ok := args[0].(PathOperand); !ok {
		return nil, fmt.Errorf("first argument of %s must be a document path", name)
	}
	return Function{Name: name, Args: args}, nil
}

func (p *parser) parseOperandList() ([]Operand, error) {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var list []Operand
	if p.peek().kind == tokRParen {
		p.next()
		return list, nil
	}
	for {
		o, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		list = append(list, o)
		t := p.next()
		if t.kind == tokRParen {
			return list, nil
		}
		if t.kind != tokComma {
			return nil, fmt.Errorf("expected ',' or ')', got %s", t)
		}
	}
}

func (p *parser) parseOperand() (Operand, error) {
	t := p.peek()
	switch {
	case t.kind == tokValue:
		return p.parseValue()
	case t.kind == tokIdent && strings.EqualFold(t.text, "size") && p.toks[p.pos+1].kind == tokLParen:
		p.next()
		p.next()
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return SizeOperand{Path: path}, nil
	default:
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		return PathOperand{Path: path}, nil
	}
}

func (p *parser) parseValue() (ValueOperand, error) {
	t, err := p.expect(tokValue, "value placeholder")
	if err != nil {
		return ValueOperand{}, err
	}
	v, ok := p.params.Values[t.text]
	if !ok {
		return ValueOperand{}, fmt.Errorf("value placeholder %s is not defined in ExpressionAttributeValues", t.text)
	}
	return ValueOperand{Placeholder: t.text, Value: v}, nil
}

func (p *parser) parseName() (string, error) {
	t := p.next()
	switch t.kind {
	case tokIdent:
		return t.text, nil
	case tokName:
		name, ok := p.params.Names[t.text]
		if !ok {
			return "", fmt.Errorf("name placeholder %s is not defined in ExpressionAttributeNames", t.text)
		}
		return name, nil
	default:
		return "", fmt.Errorf("expected attribute name, got %s", t)
	}
}

func (p *parser) parsePath() (Path, error) {
	name, err := p.parseName()
	if err != nil {
		return nil, err
	}
	path := Path{{Name: name}}
	for {
		switch p.peek().kind {
		case tokDot:
			p.next()
			name, err := p.parseName()
			if err != nil {
				return nil, err
			}
			path = append(path, PathElem{Name: name})
		case tokLBracket:
			p.next()
			n, err := p.expect(tokNumber, "list index")
			if err != nil {
				return nil, err
			}
			idx, err := strconv.Atoi(n.text)
			if err != nil {
				return nil, fmt.Errorf("list index %s: %w", n.text, err)
			}
			if _, err := p.expect(tokRBracket, "']'"); err != nil {
				return nil, err
			}
			path = append(path, PathElem{Index: idx, IsIndex: true})
		default:
			return path, nil
		}
	}
}

// ParseUpdate parses an update expression.
func ParseUpdate(expr string, params ParseParams) (*Update, error) {
	p, err := newParser(expr, params)
	if err != nil {
		return nil, err
	}
	u := &Update{}
	seen := map[string]bool{}
	for p.peek().kind != tokEOF {
		t := p.next()
		clause := strings.ToUpper(t.text)
		if t.kind != tokIdent || !isClause(clause) {
			return nil, fmt.Errorf("expected SET, REMOVE, ADD or DELETE, got %s", t)
		}
		if seen[clause] {
			return nil, fmt.Errorf("the %s clause appears more than once", clause)
		}
		seen[clause] = true
		if err := p.parseClause(clause, u); err != nil {
			return nil, fmt.Errorf("%s: %w", clause, err)
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("update expression is empty")
	}
	return u, nil
}

func isClause(s string) bool {
	switch s {
	case "SET", "REMOVE", "ADD", "DELETE":
		return true
	}
	return false
}

func (p *parser) parseClause(clause string, u *Update) error {
	for {
		path, err := p.parsePath()
		if err != nil {
			return err
		}
		switch clause {
		case "SET":
			if t := p.next(); t.kind != tokCompare || t.text != "=" {
				return fmt.Errorf("expected '=', got %s", t)
			}
			v, err := p.parseSetValue()
			if err != nil {
				return err
			}
			u.Set = append(u.Set, SetAction{Path: path, Value: v})
		case "REMOVE":
			u.Remove = append(u.Remove, path)
		case "ADD", "DELETE":
			v, err := p.parseValue()
			if err != nil {
				return err
			}
			if clause == "ADD" {
				u.Add = append(u.Add, PathValue{Path: path, Value: v})
			} else {
				u.Delete = append(u.Delete, PathValue{Path: path, Value: v})
			}
		}
		if p.peek().kind != tokComma {
			return nil
		}
		p.next()
	}
}

func (p *parser) parseSetValue() (SetValue, error) {
	left, err := p.parseSetOperand()
	if err != nil {
		return nil, err
	}
	switch t := p.peek(); t.kind {
	case tokPlus, tokMinus:
		p.next()
		right, err := p.parseSetOperand()
		if err != nil {
			return nil, err
		}
		return Arithmetic{Op: t.text[0], Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseSetOperand() (SetValue, error) {
	t := p.peek()
	if t.kind == tokIdent && p.toks[p.pos+1].kind == tokLParen {
		switch strings.ToLower(t.text) {
		case "list_append":
			p.next()
			p.next()
			left, err := p.parseSetOperand()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokComma, "','"); err != nil {
				return nil, err
			}
			right, err := p.parseSetOperand()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen, "')'"); err != nil {
				return nil, err
			}
			return ListAppend{Left: left, Right: right}, nil
		case "if_not_exists":
			p.next()
			p.next()
			path, err := p.parsePath()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokComma, "','"); err != nil {
				return nil, err
			}
			def, err := p.parseSetOperand()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen, "')'"); err != nil {
				return nil, err
			}
			return IfNotExists{Path: path, Default: def}, nil
		}
	}
	o, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if _, ok := o.(SizeOperand); ok {
		return nil, fmt.Errorf("size() is not allowed in an update expression")
	}
	return OperandValue{Operand: o}, nil
}

// ParseProjection parses a comma separated list of document paths.
func ParseProjection(expr string, names map[string]string) ([]Path, error) {
	p, err := newParser(expr, ParseParams{Names: names})
	if err != nil {
		return nil, err
	}
	var paths []Path
	for {
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if err := p.done(); err != nil {
		return nil, err
	}
	return paths, nil
}
