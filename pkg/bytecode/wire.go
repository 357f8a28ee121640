package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dibashthapa/jsbytecode/pkg/runtime"
	"github.com/fxamacker/cbor/v2"
)

// BytecodeVersion is the current wire format version.
// Increment when making incompatible changes to the format.
const BytecodeVersion uint16 = 1

// BytecodeMagic starts every serialized program: "LXBC" (Lox ByteCode).
var BytecodeMagic = []byte{'L', 'X', 'B', 'C'}

const headerLen = 6 // magic + version

// ErrBadMagic is returned when data does not start with BytecodeMagic.
var ErrBadMagic = errors.New("bytecode: invalid magic")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireProgram is the CBOR body of a serialized program.
type wireProgram struct {
	Instructions []wireInstruction `cbor:"1,keyasint"`
	Lines        []int             `cbor:"2,keyasint"`
	Registers    int               `cbor:"3,keyasint"`
}

type wireInstruction struct {
	Op   uint8   `cbor:"1,keyasint"`
	A    uint8   `cbor:"2,keyasint,omitempty"`
	B    uint8   `cbor:"3,keyasint,omitempty"`
	C    uint8   `cbor:"4,keyasint,omitempty"`
	Kind uint8   `cbor:"5,keyasint,omitempty"`
	Bool bool    `cbor:"6,keyasint,omitempty"`
	Num  float64 `cbor:"7,keyasint"`
	Name string  `cbor:"8,keyasint,omitempty"`
}

// MarshalProgram serializes p: the magic, a big-endian uint16 version and
// a canonical CBOR body. Equal programs encode to identical bytes.
func MarshalProgram(p *Program) ([]byte, error) {
	wp := wireProgram{
		Instructions: make([]wireInstruction, len(p.Instructions)),
		Lines:        p.Lines,
		Registers:    p.Registers,
	}
	for i, in := range p.Instructions {
		wi := wireInstruction{
			Op:   uint8(in.Op),
			A:    uint8(in.A),
			B:    uint8(in.B),
			C:    uint8(in.C),
			Name: in.Name,
		}
		if in.Op == OpLoad {
			wi.Kind = uint8(in.Value.Kind())
			switch in.Value.Kind() {
			case runtime.KindBool:
				wi.Bool = in.Value.Bool()
			case runtime.KindNumber:
				wi.Num = in.Value.Float64()
			case runtime.KindString:
				wi.Name = in.Value.Str()
			}
		}
		wp.Instructions[i] = wi
	}

	body, err := cborEncMode.Marshal(wp)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal program: %w", err)
	}

	buf := make([]byte, 0, headerLen+len(body))
	buf = append(buf, BytecodeMagic...)
	buf = binary.BigEndian.AppendUint16(buf, BytecodeVersion)
	return append(buf, body...), nil
}

// UnmarshalProgram decodes data produced by MarshalProgram.
func UnmarshalProgram(data []byte) (*Program, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("bytecode: data too short (%d bytes)", len(data))
	}
	if string(data[0:4]) != string(BytecodeMagic) {
		return nil, fmt.Errorf("%w: expected %q, got %q", ErrBadMagic, BytecodeMagic, data[0:4])
	}
	if v := binary.BigEndian.Uint16(data[4:6]); v != BytecodeVersion {
		return nil, fmt.Errorf("bytecode: unsupported version %d (want %d)", v, BytecodeVersion)
	}

	var wp wireProgram
	if err := cbor.Unmarshal(data[headerLen:], &wp); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	if len(wp.Lines) != len(wp.Instructions) {
		return nil, fmt.Errorf("bytecode: line table has %d entries for %d instructions", len(wp.Lines), len(wp.Instructions))
	}

	p := &Program{
		Instructions: make([]Instruction, len(wp.Instructions)),
		Lines:        wp.Lines,
		Registers:    wp.Registers,
	}
	for i, wi := range wp.Instructions {
		op := Opcode(wi.Op)
		if !op.Valid() {
			return nil, fmt.Errorf("bytecode: instruction %d: unknown opcode 0x%02X", i, wi.Op)
		}
		in := Instruction{
			Op:   op,
			A:    Register(wi.A),
			B:    Register(wi.B),
			C:    Register(wi.C),
			Name: wi.Name,
		}
		if op == OpLoad {
			in.Name = ""
			switch runtime.Kind(wi.Kind) {
			case runtime.KindNil:
				in.Value = runtime.Nil
			case runtime.KindBool:
				in.Value = runtime.FromBool(wi.Bool)
			case runtime.KindNumber:
				in.Value = runtime.FromFloat64(wi.Num)
			case runtime.KindString:
				in.Value = runtime.FromString(wi.Name)
			default:
				return nil, fmt.Errorf("bytecode: instruction %d: unknown value kind %d", i, wi.Kind)
			}
		}
		p.Instructions[i] = in
	}
	if p.Lines == nil {
		p.Lines = []int{}
	}
	return p, nil
}
