// Package opcode defines the bytecode instruction set (§4.1). Unlike the
// teacher's code package, instructions are not packed into a byte stream
// with a separate constant pool — the spec's opcodes carry their immediate
// operand (an int64, a float64, a string, ...) directly, and bytecode
// serialization is an explicit non-goal (§1), so there is nothing to gain
// from byte-packing here. Instr is the tagged-variant shape §9 asks for:
// one Op tag plus whichever operand field that Op uses.
package opcode

import "fmt"

// Op is the opcode tag.
type Op byte

const (
	PushInt Op = iota
	PushFloat
	PushStr
	PushBool
	PushNull
	PushObject
	PushFunc
	Pop
	Amake

	Add
	Sub
	Mul
	Div
	Rem

	Band
	Bor
	Bxor
	Shr
	Shl

	And
	Or

	Eq
	Neq
	Lt
	Gt

	JmpF
	JmpT
	Jmp

	LoadLocal
	StoreLocal
	LoadField
	StoreField
	LoadGlobal
	StoreGlobal

	Call
	CallObj
	Ret
	Nop
	TailCall
)

var names = map[Op]string{
	PushInt: "PushInt", PushFloat: "PushFloat", PushStr: "PushStr",
	PushBool: "PushBool", PushNull: "PushNull", PushObject: "PushObject",
	PushFunc: "PushFunc", Pop: "Pop", Amake: "Amake",
	Add: "Add", Sub: "Sub", Mul: "Mul", Div: "Div", Rem: "Rem",
	Band: "Band", Bor: "Bor", Bxor: "Bxor", Shr: "Shr", Shl: "Shl",
	And: "And", Or: "Or",
	Eq: "Eq", Neq: "Neq", Lt: "Lt", Gt: "Gt",
	JmpF: "JmpF", JmpT: "JmpT", Jmp: "Jmp",
	LoadLocal: "LoadLocal", StoreLocal: "StoreLocal",
	LoadField: "LoadField", StoreField: "StoreField",
	LoadGlobal: "LoadGlobal", StoreGlobal: "StoreGlobal",
	Call: "Call", CallObj: "CallObj", Ret: "Ret", Nop: "Nop",
	TailCall: "TailCall",
}

func (op Op) String() string {
	if n, ok := names[op]; ok {
		return n
	}
	return fmt.Sprintf("Op(%d)", byte(op))
}

// Instr is a single bytecode instruction: an Op tag plus whichever operand
// field that Op actually uses. Only one of Int/Float/Str/Bool/Target is
// meaningful for any given Op; callers know which from the Op itself (see
// Instr.String below, which prints the operand each Op carries).
type Instr struct {
	Op Op

	Int   int64   // PushInt
	Float float64 // PushFloat
	Str   string  // PushStr
	Bool  bool    // PushBool

	// Target doubles as: object/func id (PushObject/PushFunc), array arity
	// (Amake), jump pc (Jmp/JmpT/JmpF — resolved by the compiler's second
	// pass), and call argument count (Call/CallObj).
	Target int
}

func (in Instr) String() string {
	switch in.Op {
	case PushInt:
		return fmt.Sprintf("%-12s %d", in.Op, in.Int)
	case PushFloat:
		return fmt.Sprintf("%-12s %v", in.Op, in.Float)
	case PushStr:
		return fmt.Sprintf("%-12s %q", in.Op, in.Str)
	case PushBool:
		return fmt.Sprintf("%-12s %v", in.Op, in.Bool)
	case PushObject, PushFunc, Amake, Jmp, JmpT, JmpF, Call, CallObj, TailCall:
		return fmt.Sprintf("%-12s %d", in.Op, in.Target)
	default:
		return in.Op.String()
	}
}

// Program is a resolved, executable instruction sequence — the output of
// compiler.Finish and the Code held by an Interpret Function.
type Program []Instr

// Disassemble renders a Program as a position-annotated listing, used by
// the CLI's --dump-bytecode flag and by compiler tests.
func (p Program) Disassemble() string {
	out := make([]byte, 0, len(p)*16)
	for i, in := range p {
		out = append(out, []byte(fmt.Sprintf("%04d %s\n", i, in))...)
	}
	return string(out)
}
