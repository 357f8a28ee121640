package bytecode

import (
	"fmt"

	"github.com/dibashthapa/jsbytecode/pkg/runtime"
)

// Opcode represents a register machine instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Loads (0x10-0x1F)
	// ========================================================================

	OpLoad          Opcode = 0x10 // Load <dst> <value>
	OpLoadUndefined Opcode = 0x11 // LoadUndefined <dst>: dst = nil
	OpNewString     Opcode = 0x12 // NewString <dst> <text>

	// ========================================================================
	// Variables (0x20-0x2F)
	// ========================================================================

	OpGetVariable Opcode = 0x20 // GetVariable <name> <dst>
	OpSetVariable Opcode = 0x21 // SetVariable <name> <src>

	// ========================================================================
	// Arithmetic (0x50-0x5F)
	// ========================================================================

	OpAdd Opcode = 0x50 // Add <dst> <lhs> <rhs>
	OpSub Opcode = 0x51 // Sub <dst> <lhs> <rhs>
	OpMul Opcode = 0x52 // Mul <dst> <lhs> <rhs>
	OpDiv Opcode = 0x53 // Div <dst> <lhs> <rhs>

	// ========================================================================
	// Comparison (0x60-0x6F): set the condition flag
	// ========================================================================

	OpTestLessThan           Opcode = 0x60 // TestLessThan <lhs> <rhs>
	OpTestLessThanOrEqual    Opcode = 0x61 // TestLessThanOrEqual <lhs> <rhs>
	OpTestGreaterThan        Opcode = 0x62 // TestGreaterThan <lhs> <rhs>
	OpTestGreaterThanOrEqual Opcode = 0x63 // TestGreaterThanOrEqual <lhs> <rhs>

	// ========================================================================
	// Control flow (0x80-0x8F)
	// ========================================================================

	OpLabel      Opcode = 0x80 // Label <name>
	OpJumpIfTrue Opcode = 0x81 // JumpIfTrue <name>: jump when the flag is set

	// ========================================================================
	// Output (0x90-0x9F)
	// ========================================================================

	OpPrint Opcode = 0x90 // Print <src>

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpReturn Opcode = 0xF0 // Halt the program
)

// OperandKind says which Instruction fields an opcode uses.
type OperandKind uint8

const (
	OperandsNone       OperandKind = iota
	OperandsDst                    // A
	OperandsDstValue               // A, Value
	OperandsDstText                // A, Name
	OperandsNameReg                // Name, A
	OperandsThreeRegs              // A, B, C
	OperandsTwoRegs                // B, C
	OperandsName                   // Name
	OperandsRegister               // A
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name     string      // Human-readable name
	Operands OperandKind // Fields the instruction reads
	Writes   bool        // Whether register A is written
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Loads
	OpLoad:          {"Load", OperandsDstValue, true},
	OpLoadUndefined: {"LoadUndefined", OperandsDst, true},
	OpNewString:     {"NewString", OperandsDstText, true},

	// Variables
	OpGetVariable: {"GetVariable", OperandsNameReg, true},
	OpSetVariable: {"SetVariable", OperandsNameReg, false},

	// Arithmetic
	OpAdd: {"Add", OperandsThreeRegs, true},
	OpSub: {"Sub", OperandsThreeRegs, true},
	OpMul: {"Mul", OperandsThreeRegs, true},
	OpDiv: {"Div", OperandsThreeRegs, true},

	// Comparison
	OpTestLessThan:           {"TestLessThan", OperandsTwoRegs, false},
	OpTestLessThanOrEqual:    {"TestLessThanOrEqual", OperandsTwoRegs, false},
	OpTestGreaterThan:        {"TestGreaterThan", OperandsTwoRegs, false},
	OpTestGreaterThanOrEqual: {"TestGreaterThanOrEqual", OperandsTwoRegs, false},

	// Control flow
	OpLabel:      {"Label", OperandsName, false},
	OpJumpIfTrue: {"JumpIfTrue", OperandsName, false},

	// Output
	OpPrint: {"Print", OperandsRegister, false},

	// Return
	OpReturn: {"Return", OperandsNone, false},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns an OpcodeInfo named "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsJump returns true if this opcode transfers control.
func (op Opcode) IsJump() bool {
	return op == OpJumpIfTrue
}

// IsTest returns true if this opcode sets the condition flag.
func (op Opcode) IsTest() bool {
	return op >= OpTestLessThan && op <= OpTestGreaterThanOrEqual
}

// IsArithmetic returns true for Add, Sub, Mul and Div.
func (op Opcode) IsArithmetic() bool {
	return op >= OpAdd && op <= OpDiv
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}

// ---------------------------------------------------------------------------
// Registers
// ---------------------------------------------------------------------------

// NumRegisters is the size of the register bank.
const NumRegisters = 256

// Register names one slot of the register bank.
type Register uint8

func (r Register) String() string {
	return fmt.Sprintf("r%d", uint8(r))
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

// Instruction is one decoded register machine instruction. Which fields are
// meaningful depends on Op; see OpcodeInfo.Operands.
type Instruction struct {
	Op    Opcode
	A     Register      // destination, or the single register operand
	B     Register      // left operand
	C     Register      // right operand
	Value runtime.Value // Load
	Name  string        // variable name, label name or string text
}

// Load sets dst to a non-string constant.
func Load(dst Register, v runtime.Value) Instruction {
	return Instruction{Op: OpLoad, A: dst, Value: v}
}

// LoadUndefined sets dst to nil.
func LoadUndefined(dst Register) Instruction {
	return Instruction{Op: OpLoadUndefined, A: dst}
}

// NewString sets dst to a string constant.
func NewString(dst Register, text string) Instruction {
	return Instruction{Op: OpNewString, A: dst, Name: text}
}

// GetVariable copies the named variable into dst.
func GetVariable(name string, dst Register) Instruction {
	return Instruction{Op: OpGetVariable, A: dst, Name: name}
}

// SetVariable stores src into the named variable.
func SetVariable(name string, src Register) Instruction {
	return Instruction{Op: OpSetVariable, A: src, Name: name}
}

// Arith builds one of Add, Sub, Mul, Div.
func Arith(op Opcode, dst, lhs, rhs Register) Instruction {
	return Instruction{Op: op, A: dst, B: lhs, C: rhs}
}

// Test builds one of the TestX comparisons.
func Test(op Opcode, lhs, rhs Register) Instruction {
	return Instruction{Op: op, B: lhs, C: rhs}
}

// Label marks a jump target.
func Label(name string) Instruction {
	return Instruction{Op: OpLabel, Name: name}
}

// JumpIfTrue jumps to the named label when the condition flag is set.
func JumpIfTrue(label string) Instruction {
	return Instruction{Op: OpJumpIfTrue, Name: label}
}

// Print writes the canonical text of src and a newline.
func Print(src Register) Instruction {
	return Instruction{Op: OpPrint, A: src}
}

// Return halts the program.
func Return() Instruction {
	return Instruction{Op: OpReturn}
}

// String renders the instruction as it appears in a disassembly listing.
func (in Instruction) String() string {
	info := GetOpcodeInfo(in.Op)
	switch info.Operands {
	case OperandsDst, OperandsRegister:
		return fmt.Sprintf("%-22s %s", info.Name, in.A)
	case OperandsDstValue:
		return fmt.Sprintf("%-22s %s, %#v", info.Name, in.A, in.Value)
	case OperandsDstText:
		return fmt.Sprintf("%-22s %s, %q", info.Name, in.A, in.Name)
	case OperandsNameReg:
		return fmt.Sprintf("%-22s %s, %s", info.Name, in.Name, in.A)
	case OperandsThreeRegs:
		return fmt.Sprintf("%-22s %s, %s, %s", info.Name, in.A, in.B, in.C)
	case OperandsTwoRegs:
		return fmt.Sprintf("%-22s %s, %s", info.Name, in.B, in.C)
	case OperandsName:
		return fmt.Sprintf("%-22s %s", info.Name, in.Name)
	}
	return info.Name
}

// testOpcode maps a comparison ordering to its TestX opcode.
func testOpcode(o runtime.Ordering) Opcode {
	switch o {
	case runtime.Less:
		return OpTestLessThan
	case runtime.LessEqual:
		return OpTestLessThanOrEqual
	case runtime.Greater:
		return OpTestGreaterThan
	default:
		return OpTestGreaterThanOrEqual
	}
}

// testOrdering is the inverse of testOpcode.
func testOrdering(op Opcode) runtime.Ordering {
	switch op {
	case OpTestLessThan:
		return runtime.Less
	case OpTestLessThanOrEqual:
		return runtime.LessEqual
	case OpTestGreaterThan:
		return runtime.Greater
	default:
		return runtime.GreaterEqual
	}
}
