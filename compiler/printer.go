package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Printer: parenthesized prefix rendering of the AST
// ---------------------------------------------------------------------------

// Print renders a node in fully parenthesized prefix form, e.g.
// (+ 1 (* 2 3)). The output is deterministic and used by -dump ast.
func Print(n Node) string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

// PrintProgram renders one statement per line.
func PrintProgram(stmts []Stmt) string {
	var sb strings.Builder
	for _, s := range stmts {
		writeNode(&sb, s)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Literal:
		fmt.Fprintf(sb, "%#v", n.Get())
	case *Variable:
		sb.WriteString(n.Name.Lexeme)
	case *Grouping:
		parenthesize(sb, "group", n.Expression)
	case *Unary:
		parenthesize(sb, n.Operator.Lexeme, n.Right)
	case *Binary:
		parenthesize(sb, n.Operator.Lexeme, n.Left, n.Right)
	case *Logical:
		parenthesize(sb, n.Operator.Lexeme, n.Left, n.Right)
	case *Assign:
		sb.WriteString("(= ")
		sb.WriteString(n.Name.Lexeme)
		sb.WriteByte(' ')
		writeNode(sb, n.Value)
		sb.WriteByte(')')

	case *ExpressionStmt:
		parenthesize(sb, "expr", n.Expression)
	case *PrintStmt:
		parenthesize(sb, "print", n.Expression)
	case *VarStmt:
		sb.WriteString("(var ")
		sb.WriteString(n.Name.Lexeme)
		if n.Initializer != nil {
			sb.WriteByte(' ')
			writeNode(sb, n.Initializer)
		}
		sb.WriteByte(')')
	case *BlockStmt:
		nodes := make([]Node, len(n.Statements))
		for i, s := range n.Statements {
			nodes[i] = s
		}
		parenthesize(sb, "block", nodes...)
	case *IfStmt:
		if n.ElseBranch != nil {
			parenthesize(sb, "if", n.Condition, n.ThenBranch, n.ElseBranch)
		} else {
			parenthesize(sb, "if", n.Condition, n.ThenBranch)
		}
	case *WhileStmt:
		parenthesize(sb, "while", n.Condition, n.Body)

	case nil:
		sb.WriteString("nil")
	default:
		fmt.Fprintf(sb, "<%T>", n)
	}
}

func parenthesize(sb *strings.Builder, name string, parts ...Node) {
	sb.WriteByte('(')
	sb.WriteString(name)
	for _, p := range parts {
		sb.WriteByte(' ')
		writeNode(sb, p)
	}
	sb.WriteByte(')')
}
