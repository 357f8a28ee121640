package bytecode

// Program is a compiled unit: a linear instruction stream plus the source
// line of every instruction.
type Program struct {
	Instructions []Instruction
	Lines        []int // Lines[i] is the source line of Instructions[i]
	Registers    int   // number of registers allocated by the generator
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{
		Instructions: make([]Instruction, 0, 32),
		Lines:        make([]int, 0, 32),
	}
}

// Emit appends an instruction and returns its index.
func (p *Program) Emit(in Instruction, line int) int {
	p.Instructions = append(p.Instructions, in)
	p.Lines = append(p.Lines, line)
	return len(p.Instructions) - 1
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// LineAt returns the source line of instruction i, or 0 when unknown.
func (p *Program) LineAt(i int) int {
	if i < 0 || i >= len(p.Lines) {
		return 0
	}
	return p.Lines[i]
}

// Equal reports whether two programs have identical instructions, line
// tables and register counts.
func (p *Program) Equal(o *Program) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.Registers != o.Registers || len(p.Instructions) != len(o.Instructions) || len(p.Lines) != len(o.Lines) {
		return false
	}
	for i, in := range p.Instructions {
		on := o.Instructions[i]
		if in.Op != on.Op || in.A != on.A || in.B != on.B || in.C != on.C ||
			in.Name != on.Name || !in.Value.Equal(on.Value) {
			return false
		}
	}
	for i, l := range p.Lines {
		if o.Lines[i] != l {
			return false
		}
	}
	return true
}
