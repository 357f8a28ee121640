package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable listing with a name header.
//
// Each line shows the instruction index, the source line (or "|" when it
// repeats the previous instruction's line) and the instruction.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Lox Bytecode v%d\n", BytecodeVersion))
	sb.WriteString(fmt.Sprintf("; Registers: %d\n", p.Registers))
	sb.WriteString(fmt.Sprintf("; Instructions: %d\n", len(p.Instructions)))
	sb.WriteString("\n")

	// Code section
	sb.WriteString("; Code:\n")
	prevLine := -1
	for i, in := range p.Instructions {
		line := p.LineAt(i)
		if line == prevLine {
			sb.WriteString(fmt.Sprintf("%04d     | %s\n", i, in))
		} else {
			sb.WriteString(fmt.Sprintf("%04d  %4d %s\n", i, line, in))
		}
		prevLine = line
	}

	return sb.String()
}
