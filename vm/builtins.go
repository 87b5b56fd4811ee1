package vm

import (
	"bufio"
	"fmt"
	"math"
	"os"

	"github.com/jazzml-lang/jazzml/opcode"
	"github.com/jazzml-lang/jazzml/value"
)

// stdin is shared by getc across calls so repeated reads advance through
// the same byte stream instead of re-wrapping os.Stdin each time.
var stdin = bufio.NewReader(os.Stdin)

// InitBuiltins registers the canonical built-in set (§4.2): the sixteen
// mangled binary operators (arity 2, used when user code looks one up by
// name rather than going through its dedicated opcode), plus the
// variadic/utility natives. Grounded directly in
// original_source/src/jazzml/vm.rs::init_builtins, including its mangled
// `__op__` naming convention.
func (vm *VM) InitBuiltins() {
	register := func(name string, op opcode.Op) {
		vm.RegisterNativeFunc(name, binaryNative(op), 2)
	}

	register("__add__", opcode.Add)
	register("__sub__", opcode.Sub)
	register("__mul__", opcode.Mul)
	register("__div__", opcode.Div)
	register("__rem__", opcode.Rem)
	register("__or__", opcode.Or)
	register("__bor__", opcode.Bor)
	register("__and__", opcode.And)
	register("__band__", opcode.Band)
	register("__bxor__", opcode.Bxor)
	register("__shr__", opcode.Shr)
	register("__shl__", opcode.Shl)
	register("__eq__", opcode.Eq)
	register("__neq__", opcode.Neq)
	register("__gt__", opcode.Gt)
	register("__lt__", opcode.Lt)

	vm.RegisterNativeFunc("concat", concatNative, value.VarArgs)
	vm.RegisterNativeFunc("print", printNative, value.VarArgs)
	vm.RegisterNativeFunc("println", printlnNative, value.VarArgs)
	vm.RegisterNativeFunc("new_obj", newObjNative, value.VarArgs)
	vm.RegisterNativeFunc("array_push", arrayPushNative, 2)
	vm.RegisterNativeFunc("array_pop", arrayPopNative, 1)
	vm.RegisterNativeFunc("array_len", arrayLenNative, 1)
	vm.RegisterNativeFunc("getc", getcNative, 0)
	vm.RegisterNativeFunc("putc", putcNative, 1)
	vm.RegisterNativeFunc("chars", charsNative, 1)
}

// binaryNative wraps one of the internal binary ops as a lenient native
// (§4.5: any argument count other than two yields Null, not a fault). A
// Call with the wrong argument count never gets here, since invoke's arity
// check faults first; a wrong count arrives only through VM.RunFunc, or
// through a method call, which prepends __this__ to the arguments.
func binaryNative(op opcode.Op) value.NativeFunc {
	return func(vm value.VM, args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return value.Null, nil
		}
		return evalBinary(op, args[0], args[1])
	}
}

// evalBinary applies a binary opcode's built-in semantics to already-popped
// left/right operands (left was on top of the operand stack, per §4.1).
// Shared by the opcode dispatch loop in frame.go and by the mangled native
// wrappers above.
func evalBinary(op opcode.Op, left, right value.Value) (value.Value, error) {
	switch op {
	case opcode.Add, opcode.Sub, opcode.Mul, opcode.Div, opcode.Rem:
		return arith(op, left, right)
	case opcode.Band, opcode.Bor, opcode.Bxor, opcode.Shr, opcode.Shl:
		return bitwise(op, left, right), nil
	case opcode.And, opcode.Or:
		return boolean(op, left, right), nil
	case opcode.Eq, opcode.Neq, opcode.Lt, opcode.Gt:
		return compare(op, left, right)
	default:
		return value.Null, fmt.Errorf("not a binary opcode: %s", op)
	}
}

// arith implements §4.6's numeric-promotion table. L (left, the Value that
// was on top of the operand stack) decides the result kind.
func arith(op opcode.Op, left, right value.Value) (value.Value, error) {
	switch {
	case left.IsFloat():
		r, err := right.AsF64()
		if err != nil {
			return value.Null, err
		}
		return value.Float(applyF(op, left.AsFloat64(), r)), nil

	case left.IsInt() && right.IsFloat():
		return value.Float(applyF(op, float64(left.AsInt()), right.AsFloat64())), nil

	case left.IsInt():
		r, err := right.AsI64()
		if err != nil {
			return value.Null, err
		}
		if (op == opcode.Div || op == opcode.Rem) && r == 0 {
			return value.Null, fmt.Errorf("integer division by zero")
		}
		i, err := applyI(op, left.AsInt(), r)
		if err != nil {
			return value.Null, err
		}
		return value.Int(i), nil

	case left.IsStr() && op == opcode.Add:
		return value.Str(left.AsStr() + right.AsDisplayString(nil)), nil

	default:
		return value.Null, fmt.Errorf("unsupported operand kinds for %s: %s, %s", op, left.Kind(), right.Kind())
	}
}

func applyF(op opcode.Op, l, r float64) float64 {
	switch op {
	case opcode.Add:
		return l + r
	case opcode.Sub:
		return l - r
	case opcode.Mul:
		return l * r
	case opcode.Div:
		return l / r
	case opcode.Rem:
		return math_mod(l, r)
	}
	return 0
}

// math_mod mirrors Rust's f64::% operator (truncated remainder), matching
// original_source/builtins.rs::rem for the Float/Float case.
func math_mod(l, r float64) float64 {
	return math.Mod(l, r)
}

func applyI(op opcode.Op, l, r int64) (int64, error) {
	switch op {
	case opcode.Add:
		return l + r, nil
	case opcode.Sub:
		return l - r, nil
	case opcode.Mul:
		return l * r, nil
	case opcode.Div:
		return l / r, nil
	case opcode.Rem:
		return l % r, nil
	}
	return 0, fmt.Errorf("unknown integer operation: %s", op)
}

// bitwise implements §4.1's Band/Bor/Bxor/Shr/Shl: Null unless both
// operands are Int. Bxor is fixed to compute XOR — the original source's
// bxor body copy-pasted bor's `|` (SPEC_FULL.md decision 3).
func bitwise(op opcode.Op, left, right value.Value) value.Value {
	if !left.IsInt() || !right.IsInt() {
		return value.Null
	}
	l, r := left.AsInt(), right.AsInt()
	switch op {
	case opcode.Band:
		return value.Int(l & r)
	case opcode.Bor:
		return value.Int(l | r)
	case opcode.Bxor:
		return value.Int(l ^ r)
	case opcode.Shr:
		return value.Int(l >> uint(r))
	case opcode.Shl:
		return value.Int(l << uint(r))
	}
	return value.Null
}

// boolean implements §4.1's And/Or: Null unless both operands are Bool. Or
// is fixed to mean boolean OR — the original source dispatched Or to the
// and builtin (SPEC_FULL.md decision 2).
func boolean(op opcode.Op, left, right value.Value) value.Value {
	if !left.IsBool() || !right.IsBool() {
		return value.Null
	}
	l, r := left.AsBool(), right.AsBool()
	switch op {
	case opcode.And:
		return value.Bool(l && r)
	case opcode.Or:
		return value.Bool(l || r)
	}
	return value.Null
}

// compare implements Eq/Neq/Lt/Gt (§4.1, §4.6): Float by numeric value,
// strings lexicographically. ObjectRefs (arrays included) are equal under
// Eq/Neq only when they hold the same object id; their elements are not
// compared, and Lt/Gt on them fault rather than comparing lengths.
func compare(op opcode.Op, left, right value.Value) (value.Value, error) {
	switch op {
	case opcode.Eq:
		eq, err := valuesEqual(left, right)
		if err != nil {
			return value.Null, err
		}
		return value.Bool(eq), nil
	case opcode.Neq:
		eq, err := valuesEqual(left, right)
		if err != nil {
			return value.Null, err
		}
		return value.Bool(!eq), nil
	case opcode.Lt, opcode.Gt:
		return orderCompare(op, left, right)
	}
	return value.Null, fmt.Errorf("not a comparison opcode: %s", op)
}

func valuesEqual(left, right value.Value) (bool, error) {
	switch {
	case left.IsFloat() || right.IsFloat():
		lf, err := left.AsF64()
		if err != nil {
			return false, err
		}
		rf, err := right.AsF64()
		if err != nil {
			return false, err
		}
		return lf == rf, nil
	case left.IsInt() || right.IsInt():
		li, err := left.AsI64()
		if err != nil {
			return false, err
		}
		ri, err := right.AsI64()
		if err != nil {
			return false, err
		}
		return li == ri, nil
	case left.IsStr() && right.IsStr():
		return left.AsStr() == right.AsStr(), nil
	case left.IsBool() && right.IsBool():
		return left.AsBool() == right.AsBool(), nil
	case left.IsNull() && right.IsNull():
		return true, nil
	default:
		return left.Eq(right), nil
	}
}

func orderCompare(op opcode.Op, left, right value.Value) (value.Value, error) {
	switch {
	case left.IsFloat() || right.IsFloat():
		lf, err := left.AsF64()
		if err != nil {
			return value.Null, err
		}
		rf, err := right.AsF64()
		if err != nil {
			return value.Null, err
		}
		if op == opcode.Lt {
			return value.Bool(lf < rf), nil
		}
		return value.Bool(lf > rf), nil
	case left.IsInt():
		r, err := right.AsI64()
		if err != nil {
			return value.Null, err
		}
		if op == opcode.Lt {
			return value.Bool(left.AsInt() < r), nil
		}
		return value.Bool(left.AsInt() > r), nil
	case left.IsStr() && right.IsStr():
		if op == opcode.Lt {
			return value.Bool(left.AsStr() < right.AsStr()), nil
		}
		return value.Bool(left.AsStr() > right.AsStr()), nil
	default:
		return value.Null, fmt.Errorf("unsupported operand kinds for %s: %s, %s", op, left.Kind(), right.Kind())
	}
}

// concatNative is the variadic string-concatenation native (§4.2).
func concatNative(vmi value.VM, args []value.Value) (value.Value, error) {
	v := vmi.(*VM)
	var b []byte
	for _, a := range args {
		b = append(b, v.Display(a)...)
	}
	return value.Str(string(b)), nil
}

func printNative(vmi value.VM, args []value.Value) (value.Value, error) {
	v := vmi.(*VM)
	for _, a := range args {
		fmt.Print(v.Display(a))
	}
	return value.Null, nil
}

func printlnNative(vmi value.VM, args []value.Value) (value.Value, error) {
	v := vmi.(*VM)
	for _, a := range args {
		fmt.Print(v.Display(a))
	}
	fmt.Println()
	return value.Null, nil
}

func newObjNative(vmi value.VM, args []value.Value) (value.Value, error) {
	return value.ObjectRef(vmi.NewObject()), nil
}

func arrayPushNative(vmi value.VM, args []value.Value) (value.Value, error) {
	if len(args) != 2 || !args[0].IsObjectRef() {
		return value.Null, fmt.Errorf("array_push expects (array, value)")
	}
	obj := vmi.GetObject(args[0].AsObjectID())
	if obj == nil {
		return value.Null, fmt.Errorf("array_push: unknown object")
	}
	obj.Store(value.Int(int64(obj.Len())), args[1])
	return value.Null, nil
}

func arrayPopNative(vmi value.VM, args []value.Value) (value.Value, error) {
	if len(args) != 1 || !args[0].IsObjectRef() {
		return value.Null, fmt.Errorf("array_pop expects (array)")
	}
	obj := vmi.GetObject(args[0].AsObjectID())
	if obj == nil || obj.Len() == 0 {
		return value.Null, nil
	}
	key := value.Int(int64(obj.Len() - 1))
	v := obj.Load(key)
	obj.Delete(key)
	return v, nil
}

func arrayLenNative(vmi value.VM, args []value.Value) (value.Value, error) {
	if len(args) != 1 || !args[0].IsObjectRef() {
		return value.Null, fmt.Errorf("array_len expects (array)")
	}
	obj := vmi.GetObject(args[0].AsObjectID())
	if obj == nil {
		return value.Int(0), nil
	}
	return value.Int(int64(obj.Len())), nil
}

func getcNative(vmi value.VM, args []value.Value) (value.Value, error) {
	r, _, err := stdin.ReadRune()
	if err != nil {
		return value.Null, nil
	}
	return value.Str(string(r)), nil
}

func putcNative(vmi value.VM, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Null, nil
	}
	v := vmi.(*VM)
	fmt.Print(v.Display(args[0]))
	return value.Null, nil
}

func charsNative(vmi value.VM, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Null, fmt.Errorf("chars expects (string)")
	}
	v := vmi.(*VM)
	s := v.Display(args[0])
	id := vmi.NewObject()
	obj := vmi.GetObject(id)
	m := make(map[value.Value]value.Value)
	idx := 0
	for _, r := range s {
		m[value.Int(int64(idx))] = value.Str(string(r))
		idx++
	}
	obj.SetMap(m)
	return value.ObjectRef(id), nil
}
