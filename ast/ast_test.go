package ast

import (
	"testing"

	"github.com/jazzml-lang/jazzml/token"
)

func TestString(t *testing.T) {
	program := &Program{
		Statements: []Statement{
			&VariableStatement{
				Token: token.Token{Type: token.VAR, Literal: "var"},
				Name: &Identifier{
					Token: token.Token{Type: token.IDENT, Literal: "myVar"},
					Value: "myVar",
				},
				Value: &Identifier{
					Token: token.Token{Type: token.IDENT, Literal: "anotherVar"},
					Value: "anotherVar",
				},
			},
			&ReturnStatement{
				Token: token.Token{Type: token.RETURN, Literal: "return"},
				ReturnValue: &Identifier{
					Token: token.Token{Type: token.IDENT, Literal: "myVar"},
					Value: "myVar",
				},
			},
		},
	}

	varStmt, ok := program.Statements[0].(*VariableStatement)
	if !ok {
		t.Fatalf("program.Statements[0] not VariableStatement. got=%T", varStmt)
	}

	returnStmt, ok := program.Statements[1].(*ReturnStatement)
	if !ok {
		t.Fatalf("program.Statements[1] not ReturnStatement. got=%T", returnStmt)
	}

	if program.String() != "var myVar = anotherVar;return myVar;" {
		t.Errorf("program.String() wrong. got %q", program.String())
	}
}

func TestAssignmentString(t *testing.T) {
	stmt := &AssignmentStatement{
		Token: token.Token{Type: token.ASSIGN, Literal: "="},
		Left: &Identifier{
			Token: token.Token{Type: token.IDENT, Literal: "x"},
			Value: "x",
		},
		Value: &IntLiteral{
			Token: token.Token{Type: token.INT, Literal: "5"},
			Value: 5,
		},
	}
	if stmt.String() != "x = 5;" {
		t.Errorf("stmt.String() wrong. got %q", stmt.String())
	}
}
