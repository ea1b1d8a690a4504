package tool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInvalidExpression is returned for expressions outside the
	// calculator's restricted grammar.
	ErrInvalidExpression = errors.New("invalid expression")

	// ErrDivisionByZero is returned when evaluation divides by zero.
	ErrDivisionByZero = errors.New("division by zero")
)

// Calculator evaluates arithmetic expressions through a restricted grammar
// evaluator. Only numeric literals, the operators + - * / % ( ), and a
// closed set of functions are accepted; there is no code-execution path.
type Calculator struct{}

// NewCalculator creates the calculator tool.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Definition implements Tool.
func (c *Calculator) Definition() Definition {
	return Definition{
		Name: "calculator",
		Description: "Perform mathematical calculations. Supports addition (+), " +
			"subtraction (-), multiplication (*), division (/), modulo (%), " +
			"parentheses, and the functions sqrt, abs, pow, min, max, round.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"expression": map[string]any{
					"type":        "string",
					"description": "Mathematical expression to evaluate (e.g., '2 + 3', '(100 + 50) / 3')",
				},
			},
			"required": []string{"expression"},
		},
	}
}

// Execute implements Tool.
func (c *Calculator) Execute(ctx context.Context, input map[string]any) (any, error) {
	expr, _ := input["expression"].(string)
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: no expression provided", ErrInvalidExpression)
	}

	result, err := Evaluate(expr)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"expression":       expr,
		"result":           result,
		"formatted_result": fmt.Sprintf("%s = %s", expr, formatNumber(result)),
	}, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Evaluate parses and evaluates expr under standard operator precedence.
func Evaluate(expr string) (float64, error) {
	tokens, err := lex(expr)
	if err != nil {
		return 0, err
	}
	p := &parser{tokens: tokens}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.peek().kind != tokenEOF {
		return 0, fmt.Errorf("%w: unexpected %q", ErrInvalidExpression, p.peek().text)
	}
	return result, nil
}

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenIdent
	tokenOp
	tokenLParen
	tokenRParen
	tokenComma
)

type token struct {
	kind  tokenKind
	text  string
	value float64
}

func lex(expr string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expr) {
		ch := expr[i]
		switch {
		case ch == ' ' || ch == '\t':
			i++
		case ch >= '0' && ch <= '9' || ch == '.':
			j := i
			for j < len(expr) && (expr[j] >= '0' && expr[j] <= '9' || expr[j] == '.') {
				j++
			}
			v, err := strconv.ParseFloat(expr[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrInvalidExpression, expr[i:j])
			}
			tokens = append(tokens, token{kind: tokenNumber, text: expr[i:j], value: v})
			i = j
		case ch >= 'a' && ch <= 'z':
			j := i
			for j < len(expr) && expr[j] >= 'a' && expr[j] <= 'z' {
				j++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: expr[i:j]})
			i = j
		case ch == '+' || ch == '-' || ch == '*' || ch == '/' || ch == '%':
			tokens = append(tokens, token{kind: tokenOp, text: string(ch)})
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")"})
			i++
		case ch == ',':
			tokens = append(tokens, token{kind: tokenComma, text: ","})
			i++
		default:
			return nil, fmt.Errorf("%w: disallowed character %q", ErrInvalidExpression, string(ch))
		}
	}
	tokens = append(tokens, token{kind: tokenEOF})
	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		t := p.peek()
		if t.kind != tokenOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if t.text == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		t := p.peek()
		if t.kind != tokenOp || (t.text != "*" && t.text != "/" && t.text != "%") {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch t.text {
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			left = math.Mod(left, right)
		}
	}
}

func (p *parser) parseUnary() (float64, error) {
	t := p.peek()
	if t.kind == tokenOp && (t.text == "-" || t.text == "+") {
		p.next()
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if t.text == "-" {
			return -v, nil
		}
		return v, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (float64, error) {
	t := p.next()
	switch t.kind {
	case tokenNumber:
		return t.value, nil
	case tokenIdent:
		return p.parseCall(t.text)
	case tokenLParen:
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.next().kind != tokenRParen {
			return 0, fmt.Errorf("%w: missing closing parenthesis", ErrInvalidExpression)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("%w: unexpected %q", ErrInvalidExpression, t.text)
	}
}

func (p *parser) parseCall(name string) (float64, error) {
	if p.next().kind != tokenLParen {
		return 0, fmt.Errorf("%w: %s is not a value", ErrInvalidExpression, name)
	}

	var args []float64
	if p.peek().kind != tokenRParen {
		for {
			v, err := p.parseExpr()
			if err != nil {
				return 0, err
			}
			args = append(args, v)
			if p.peek().kind != tokenComma {
				break
			}
			p.next()
		}
	}
	if p.next().kind != tokenRParen {
		return 0, fmt.Errorf("%w: missing closing parenthesis in %s()", ErrInvalidExpression, name)
	}

	return applyFunc(name, args)
}

func applyFunc(name string, args []float64) (float64, error) {
	arity := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s expects %d argument(s), got %d", ErrInvalidExpression, name, n, len(args))
		}
		return nil
	}

	switch name {
	case "sqrt":
		if err := arity(1); err != nil {
			return 0, err
		}
		if args[0] < 0 {
			return 0, fmt.Errorf("%w: sqrt of negative number", ErrInvalidExpression)
		}
		return math.Sqrt(args[0]), nil
	case "abs":
		if err := arity(1); err != nil {
			return 0, err
		}
		return math.Abs(args[0]), nil
	case "round":
		if err := arity(1); err != nil {
			return 0, err
		}
		return math.Round(args[0]), nil
	case "pow":
		if err := arity(2); err != nil {
			return 0, err
		}
		v := math.Pow(args[0], args[1])
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: pow result out of range", ErrInvalidExpression)
		}
		return v, nil
	case "min":
		if len(args) < 2 {
			return 0, fmt.Errorf("%w: min expects at least 2 arguments", ErrInvalidExpression)
		}
		m := args[0]
		for _, v := range args[1:] {
			if v < m {
				m = v
			}
		}
		return m, nil
	case "max":
		if len(args) < 2 {
			return 0, fmt.Errorf("%w: max expects at least 2 arguments", ErrInvalidExpression)
		}
		m := args[0]
		for _, v := range args[1:] {
			if v > m {
				m = v
			}
		}
		return m, nil
	default:
		return 0, fmt.Errorf("%w: unknown function %q", ErrInvalidExpression, name)
	}
}
