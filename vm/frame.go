// Frame is the per-invocation execution context described in §4.3: a code
// slice, a program counter, an operand stack, and a locals map. Every
// Interpret call — whether reached through Call/CallObj or from the host via
// VM.RunFunc — gets its own Frame; nested calls recurse synchronously into a
// fresh run(), matching §5's single-threaded, stack-of-Go-stack-frames
// execution model. This replaces the teacher's closure-and-shared-stack
// Frame (cl/ip/basePointer indexing into one VM-wide stack) with a
// self-contained operand stack per frame, since the spec's Value model has
// no upvalue/closure concept to carry.
package vm

import (
	"github.com/jazzml-lang/jazzml/opcode"
	"github.com/jazzml-lang/jazzml/value"
)

type Frame struct {
	vm     *VM
	code   []opcode.Instr
	pc     int
	stack  []value.Value
	locals map[string]value.Value
}

func newFrame(vm *VM, code []opcode.Instr, locals map[string]value.Value) *Frame {
	if locals == nil {
		locals = make(map[string]value.Value)
	}
	return &Frame{vm: vm, code: code, locals: locals}
}

func (f *Frame) push(v value.Value) {
	f.stack = append(f.stack, v)
}

// pop removes and returns the top of the operand stack, faulting on
// underflow (§7: every opcode that needs N operands faults if fewer than N
// are present).
func (f *Frame) pop() (value.Value, error) {
	n := len(f.stack)
	if n == 0 {
		return value.Null, fault("operand stack underflow")
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v, nil
}

// run drives the dispatch loop to a Ret (or the implicit end-of-code Ret —
// §4.3 says falling off the end of a body returns Null) and yields the
// final Value.
func (f *Frame) run() (value.Value, error) {
	for {
		if f.pc < 0 || f.pc >= len(f.code) {
			return value.Null, nil
		}
		in := f.code[f.pc]
		f.pc++

		switch in.Op {
		case opcode.PushInt:
			f.push(value.Int(in.Int))

		case opcode.PushFloat:
			f.push(value.Float(in.Float))

		case opcode.PushStr:
			f.push(value.Str(in.Str))

		case opcode.PushBool:
			f.push(value.Bool(in.Bool))

		case opcode.PushNull:
			f.push(value.Null)

		case opcode.PushObject:
			f.push(value.ObjectRef(in.Target))

		case opcode.PushFunc:
			f.push(value.FuncRef(in.Target))

		case opcode.Pop:
			if _, err := f.pop(); err != nil {
				return value.Null, faultf(in, "%s", err)
			}

		case opcode.Amake:
			v, err := f.execAmake(in)
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			f.push(v)

		case opcode.Add, opcode.Sub, opcode.Mul, opcode.Div, opcode.Rem,
			opcode.Band, opcode.Bor, opcode.Bxor, opcode.Shr, opcode.Shl,
			opcode.And, opcode.Or, opcode.Eq, opcode.Neq, opcode.Lt, opcode.Gt:
			// §4.1: the value on top of the stack is the LEFT operand, the
			// next one is RIGHT — the compiler emits the RIGHT side first so
			// LEFT ends up on top at dispatch time (see scenario 1 in §8).
			left, err := f.pop()
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			right, err := f.pop()
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			result, err := evalBinary(in.Op, left, right)
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			f.push(result)

		case opcode.JmpF:
			cond, err := f.pop()
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			if !cond.IsBool() {
				return value.Null, faultf(in, "jump condition is not a Bool, got %s", cond.Kind())
			}
			if !cond.AsBool() {
				f.pc = in.Target
			}

		case opcode.JmpT:
			cond, err := f.pop()
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			if !cond.IsBool() {
				return value.Null, faultf(in, "jump condition is not a Bool, got %s", cond.Kind())
			}
			if cond.AsBool() {
				f.pc = in.Target
			}

		case opcode.Jmp:
			f.pc = in.Target

		case opcode.LoadLocal:
			v, ok := f.locals[in.Str]
			if !ok {
				v = value.Null
			}
			f.push(v)

		case opcode.StoreLocal:
			v, err := f.pop()
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			f.locals[in.Str] = v

		case opcode.LoadField:
			obj, err := f.pop()
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			key, err := f.pop()
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			if !obj.IsObjectRef() {
				return value.Null, faultf(in, "cannot load field from non-object %s", obj.Kind())
			}
			o := f.vm.GetObject(obj.AsObjectID())
			if o == nil {
				return value.Null, faultf(in, "unknown object %d", obj.AsObjectID())
			}
			f.push(o.Load(key))

		case opcode.StoreField:
			obj, err := f.pop()
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			key, err := f.pop()
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			val, err := f.pop()
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			if !obj.IsObjectRef() {
				return value.Null, faultf(in, "cannot store field on non-object %s", obj.Kind())
			}
			o := f.vm.GetObject(obj.AsObjectID())
			if o == nil {
				return value.Null, faultf(in, "unknown object %d", obj.AsObjectID())
			}
			o.Store(key, val)

		case opcode.LoadGlobal:
			v, ok := f.vm.GetGlobal(value.Str(in.Str))
			if !ok {
				v = value.Null
			}
			f.push(v)

		case opcode.StoreGlobal:
			v, err := f.pop()
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			f.vm.SetGlobal(value.Str(in.Str), v)

		case opcode.Call:
			target, err := f.pop()
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			result, err := f.executeCall(target, in.Target, false)
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			f.push(result)

		case opcode.CallObj:
			result, err := f.executeCallObj(in.Target)
			if err != nil {
				return value.Null, faultf(in, "%s", err)
			}
			f.push(result)

		case opcode.Ret:
			v, err := f.pop()
			if err != nil {
				// §4.3: Ret with an empty stack returns Null rather than
				// faulting, matching a bare `return` with no value.
				return value.Null, nil
			}
			return v, nil

		case opcode.Nop:
			// no-op

		case opcode.TailCall:
			return value.Null, faultf(in, "tail calls are not supported")

		default:
			return value.Null, faultf(in, "unknown opcode %d", in.Op)
		}
	}
}

// execAmake implements §4.1's Amake(n): pop n values off the operand stack
// and install them as an Object with integer keys 0..n-1. Because popping is
// LIFO, the LAST value pushed lands at key 0 (§8 scenario 3), so code that
// pushes an array's elements in reverse source order gets element 0 at key 0.
func (f *Frame) execAmake(in opcode.Instr) (value.Value, error) {
	n := in.Target
	m := make(map[value.Value]value.Value, n)
	for i := 0; i < n; i++ {
		v, err := f.pop()
		if err != nil {
			return value.Null, err
		}
		m[value.Int(int64(i))] = v
	}
	id := f.vm.NewObject()
	obj := f.vm.GetObject(id)
	obj.SetMap(m)
	return value.ObjectRef(id), nil
}

// executeCall implements the Call protocol of §4.3. target is whatever was
// on top of the stack when Call fired; argc is the declared argument count.
// objCall is true when this call was reached by re-dispatching through an
// Object's __call__ field, in which case the callee also receives __this__.
func (f *Frame) executeCall(target value.Value, argc int, objCall bool) (value.Value, error) {
	switch {
	case target.IsObjectRef():
		obj := f.vm.GetObject(target.AsObjectID())
		if obj == nil {
			return value.Null, fault("unknown object %d", target.AsObjectID())
		}
		callable := obj.Load(value.Str("__call__"))
		f.push(target)
		return f.executeCall(callable, argc, true)

	case target.IsFuncRef():
		fn := f.vm.GetFunc(target.AsFuncID())
		if fn == nil {
			return value.Null, fault("unknown function %d", target.AsFuncID())
		}
		return f.invoke(fn, argc, objCall)

	default:
		return value.Null, fault("cannot call value of kind %s", target.Kind())
	}
}

// executeCallObj implements CallObj(argc) per §4.1: pop the base object, pop
// the method key, look the method up on the base, and invoke it as a method
// with __this__ bound to the base.
func (f *Frame) executeCallObj(argc int) (value.Value, error) {
	base, err := f.pop()
	if err != nil {
		return value.Null, err
	}
	key, err := f.pop()
	if err != nil {
		return value.Null, err
	}
	if !base.IsObjectRef() {
		return value.Null, fault("CallObj base is not an object, got %s", base.Kind())
	}
	obj := f.vm.GetObject(base.AsObjectID())
	if obj == nil {
		return value.Null, fault("unknown object %d", base.AsObjectID())
	}
	method := obj.Load(key)
	if !method.IsFuncRef() {
		return value.Null, fault("object field %s is not callable", f.vm.Display(key))
	}
	fn := f.vm.GetFunc(method.AsFuncID())
	if fn == nil {
		return value.Null, fault("unknown function %d", method.AsFuncID())
	}
	f.push(base)
	return f.invoke(fn, argc, true)
}

// invoke binds argc actual arguments (already on the operand stack, plus —
// if objCall — the base object pushed on top of them) to fn and runs it,
// per §4.3/§4.5.
func (f *Frame) invoke(fn *value.Function, argc int, objCall bool) (value.Value, error) {
	if fn.Nargs == value.VarArgs {
		n := argc
		if objCall {
			n++ // the base object comes first, ahead of the arguments
		}
		args := make([]value.Value, n)
		for i := 0; i < n; i++ {
			v, err := f.pop()
			if err != nil {
				return value.Null, err
			}
			args[i] = v
		}
		if fn.Native != nil {
			return fn.Native(f.vm, args)
		}
		sub := newFrame(f.vm, fn.Code, make(map[string]value.Value))
		sub.stack = append(sub.stack, args...)
		return sub.run()
	}

	if fn.Nargs != argc {
		return value.Null, fault("function expects %d arguments, got %d", fn.Nargs, argc)
	}

	var this value.Value
	if objCall {
		v, err := f.pop()
		if err != nil {
			return value.Null, err
		}
		this = v
	}
	args := make([]value.Value, argc)
	for i := 0; i < argc; i++ {
		v, err := f.pop()
		if err != nil {
			return value.Null, err
		}
		args[i] = v
	}

	if fn.Native != nil {
		if objCall {
			args = append([]value.Value{this}, args...)
		}
		return fn.Native(f.vm, args)
	}

	locals := make(map[string]value.Value, len(fn.Args)+1)
	if objCall {
		locals["__this__"] = this
	}
	for i, name := range fn.Args {
		if i >= len(args) {
			break
		}
		locals[name] = args[i]
	}
	sub := newFrame(f.vm, fn.Code, locals)
	return sub.run()
}
