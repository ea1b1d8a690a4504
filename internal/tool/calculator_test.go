package tool

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want float64
	}{
		{"addition", "2 + 3", 5},
		{"subtraction", "10 - 4", 6},
		{"multiplication", "6 * 7", 42},
		{"division", "15 / 4", 3.75},
		{"modulo", "10 % 3", 1},
		{"precedence", "2 + 3 * 4", 14},
		{"parentheses", "(100 + 50) / 3", 50},
		{"nested parens", "((2 + 3) * (4 - 1))", 15},
		{"unary minus", "-5 + 3", -2},
		{"double unary", "--5", 5},
		{"decimal", "0.1 + 0.2", 0.30000000000000004},
		{"sqrt", "sqrt(16)", 4},
		{"abs", "abs(-7.5)", 7.5},
		{"round", "round(2.6)", 3},
		{"pow", "pow(2, 10)", 1024},
		{"min", "min(3, 1, 2)", 1},
		{"max", "max(3, 1, 2)", 3},
		{"function in expression", "sqrt(9) * 2 + 1", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.expr, err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr error
	}{
		{"empty", "", ErrInvalidExpression},
		{"division by zero", "5 / 0", ErrDivisionByZero},
		{"modulo by zero", "5 % 0", ErrDivisionByZero},
		{"disallowed character", "2 + x; import os", ErrInvalidExpression},
		{"dangling operator", "2 +", ErrInvalidExpression},
		{"unclosed paren", "(2 + 3", ErrInvalidExpression},
		{"trailing garbage", "2 + 3 )", ErrInvalidExpression},
		{"unknown function", "exec(1)", ErrInvalidExpression},
		{"bare identifier", "pi", ErrInvalidExpression},
		{"sqrt negative", "sqrt(-4)", ErrInvalidExpression},
		{"wrong arity", "pow(2)", ErrInvalidExpression},
		{"min one arg", "min(1)", ErrInvalidExpression},
		{"bad number", "1.2.3", ErrInvalidExpression},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Evaluate(%q) error = %v, want %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestCalculatorExecute(t *testing.T) {
	calc := NewCalculator()

	result, err := calc.Execute(context.Background(), map[string]any{
		"expression": "(100 + 50) / 3",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	payload, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("Execute() returned %T, want map[string]any", result)
	}
	if payload["expression"] != "(100 + 50) / 3" {
		t.Errorf("expression = %v, want the input expression", payload["expression"])
	}
	if payload["result"] != 50.0 {
		t.Errorf("result = %v, want 50", payload["result"])
	}
	if payload["formatted_result"] != "(100 + 50) / 3 = 50" {
		t.Errorf("formatted_result = %v, want %q", payload["formatted_result"], "(100 + 50) / 3 = 50")
	}
}

func TestCalculatorExecuteEmptyExpression(t *testing.T) {
	calc := NewCalculator()

	_, err := calc.Execute(context.Background(), map[string]any{"expression": "   "})
	if !errors.Is(err, ErrInvalidExpression) {
		t.Errorf("Execute() error = %v, want ErrInvalidExpression", err)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{50, "50"},
		{3.75, "3.75"},
		{-2, "-2"},
		{1024, "1024"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Errorf("formatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
