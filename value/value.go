// Package value implements the runtime value model: the tagged Value union,
// heap-managed Objects, and Function records. Values are cheap to copy and
// directly usable as Go map keys, which is what lets globals and Object
// fields be keyed by Value the way §3 of the spec requires.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jazzml-lang/jazzml/opcode"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindStr
	KindObjectRef
	KindFuncRef
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindStr:
		return "str"
	case KindObjectRef:
		return "object"
	case KindFuncRef:
		return "func"
	default:
		return "unknown"
	}
}

// Value is the tagged union described in §3. Every field is comparable, so a
// Value is itself comparable and usable directly as a Go map key — this is
// what backs VM.globals and Object's field map. Float is stored as its raw
// IEEE-754 bit pattern (fbits) so equality and hashing are bitwise, per spec.
type Value struct {
	kind Kind
	i    int64
	fbits uint64
	b    bool
	s    string
}

// Null is the absent/default Value (the zero Value is already Null).
var Null = Value{kind: KindNull}

func Int(i int64) Value  { return Value{kind: KindInt, i: i} }
func Bool(b bool) Value  { return Value{kind: KindBool, b: b} }
func Str(s string) Value { return Value{kind: KindStr, s: s} }
func ObjectRef(id int) Value { return Value{kind: KindObjectRef, i: int64(id)} }
func FuncRef(id int) Value   { return Value{kind: KindFuncRef, i: int64(id)} }

// Float constructs a Float Value from a float64, storing its bit pattern.
func Float(f float64) Value {
	return Value{kind: KindFloat, fbits: math.Float64bits(f)}
}

// FloatBits constructs a Float Value directly from a raw bit pattern.
func FloatBits(bits uint64) Value {
	return Value{kind: KindFloat, fbits: bits}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool  { return v.kind == KindNull }
func (v Value) IsInt() bool   { return v.kind == KindInt }
func (v Value) IsFloat() bool { return v.kind == KindFloat }
func (v Value) IsBool() bool  { return v.kind == KindBool }
func (v Value) IsStr() bool   { return v.kind == KindStr }
func (v Value) IsObjectRef() bool { return v.kind == KindObjectRef }
func (v Value) IsFuncRef() bool   { return v.kind == KindFuncRef }

// AsInt returns the raw int64 payload. Callers must check Kind first.
func (v Value) AsInt() int64 { return v.i }

// AsFloat64 returns the float64 recovered from the stored bit pattern.
func (v Value) AsFloat64() float64 { return math.Float64frombits(v.fbits) }

// FloatBitsRaw returns the raw bit pattern backing a Float Value.
func (v Value) FloatBitsRaw() uint64 { return v.fbits }

func (v Value) AsBool() bool { return v.b }
func (v Value) AsStr() string { return v.s }

// AsObjectID returns the object id held by an ObjectRef Value.
func (v Value) AsObjectID() int { return int(v.i) }

// AsFuncID returns the function id held by a FuncRef Value.
func (v Value) AsFuncID() int { return int(v.i) }

// Eq implements the Eq invariant of §8: symmetric, and Eq(a, a) holds for
// every scalar Value. Float equality is bitwise, matching how Value is
// hashed: a NaN equals a NaN with the same bit pattern, and +0.0/-0.0 are
// unequal (see SPEC_FULL.md open question 5).
func (v Value) Eq(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.fbits == other.fbits
	case KindBool:
		return v.b == other.b
	case KindStr:
		return v.s == other.s
	case KindObjectRef, KindFuncRef:
		return v.i == other.i
	default:
		return false
	}
}

// numeric coercion helpers (§4.6).

// AsF64 coerces a Value to float64 per spec's as_f64 rules. A malformed Str
// (ParseFloat failure) is returned as an error for the caller to surface as
// a fatal VM error, not swallowed here.
func (v Value) AsF64() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.AsFloat64(), nil
	case KindInt:
		return float64(v.i), nil
	case KindStr:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot coerce string %q to float: %w", v.s, err)
		}
		return f, nil
	case KindNull:
		return 0.0, nil
	default:
		return 0, fmt.Errorf("cannot coerce %s to float", v.kind)
	}
}

// AsI64 coerces a Value to int64 per spec's as_int rules.
func (v Value) AsI64() (int64, error) {
	switch v.kind {
	case KindFloat:
		return int64(v.AsFloat64()), nil
	case KindInt:
		return v.i, nil
	case KindStr:
		i, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot coerce string %q to int: %w", v.s, err)
		}
		return i, nil
	case KindNull:
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot coerce %s to int", v.kind)
	}
}

// AsDisplayString renders a Value's canonical textual form per spec's
// as_str rules. ObjectRefs are rendered via the supplied pool lookup so this
// package need not depend on vm for the debug formatter.
func (v Value) AsDisplayString(resolveObject func(id int) *Object) string {
	switch v.kind {
	case KindStr:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.AsFloat64(), 'g', -1, 64)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNull:
		return "null"
	case KindObjectRef:
		if resolveObject == nil {
			return fmt.Sprintf("<object %d>", v.i)
		}
		obj := resolveObject(int(v.i))
		if obj == nil {
			return fmt.Sprintf("<object %d>", v.i)
		}
		return obj.DebugString(resolveObject)
	case KindFuncRef:
		return fmt.Sprintf("<func %d>", v.i)
	default:
		return "<?>"
	}
}

// Object is a heap-allocated mapping from Value to Value, with an optional
// display name. Objects are referenced by id through an ObjectRef Value and
// are mutated through the pool that owns them (see vm.VM.GetObject) —
// Go's garbage collector plays the role the spec's §5 describes for
// languages without it: the pool holds the only strong references, and a
// Value only ever carries an id.
type Object struct {
	ID   int
	Name string
	// order preserves field insertion order so DebugString renders
	// deterministically, matching §9's guidance to "fix a concrete,
	// test-stable formatter".
	order []Value
	m     map[Value]Value
}

// NewObject constructs an empty Object with the given id.
func NewObject(id int) *Object {
	return &Object{ID: id, m: make(map[Value]Value)}
}

// Load returns the stored Value for k, or Null if absent (§3).
func (o *Object) Load(k Value) Value {
	if v, ok := o.m[k]; ok {
		return v
	}
	return Null
}

// Store overwrites the Value bound to k, recording insertion order the
// first time k is seen.
func (o *Object) Store(k Value, v Value) {
	if _, ok := o.m[k]; !ok {
		o.order = append(o.order, k)
	}
	o.m[k] = v
}

// Delete removes a key, used by the array_pop builtin.
func (o *Object) Delete(k Value) {
	if _, ok := o.m[k]; ok {
		delete(o.m, k)
		for i, key := range o.order {
			if key.Eq(k) {
				o.order = append(o.order[:i], o.order[i+1:]...)
				break
			}
		}
	}
}

// Len reports the number of stored entries.
func (o *Object) Len() int { return len(o.m) }

// SetMap replaces the whole field map at once (used by Amake) and resets
// insertion order to integer-key ascending order.
func (o *Object) SetMap(m map[Value]Value) {
	o.m = m
	o.order = o.order[:0]
	keys := make([]Value, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keyOrderString(keys[i]) < keyOrderString(keys[j])
	})
	o.order = keys
}

func keyOrderString(v Value) string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%020d", v.i)
	default:
		return v.AsDisplayString(nil)
	}
}

// Eq compares two Objects element-wise: same length, and every key bound to
// an equal Value in both. The Eq/Neq opcodes do not call it; they compare
// ObjectRefs by id (see compare in vm/builtins.go).
func (o *Object) Eq(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for k, v := range o.m {
		ov, ok := other.m[k]
		if !ok || !ov.Eq(v) {
			return false
		}
	}
	return true
}

// DebugString renders a stable `{k1: v1, k2: v2}` form, per §9's guidance.
func (o *Object) DebugString(resolveObject func(id int) *Object) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range o.order {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k.AsDisplayString(resolveObject))
		b.WriteString(": ")
		b.WriteString(o.m[k].AsDisplayString(resolveObject))
	}
	b.WriteByte('}')
	return b.String()
}

// Function is a record describing either a host-native callback or a fully
// resolved opcode sequence, per §3. Kind is intentionally not an interface
// with a single method so that the "Native vs Interpret" distinction stays
// an explicit, exhaustively-switchable sum rather than dynamic dispatch —
// the teacher's evaluator package instead reached for object.Builtin, a
// single-method-interface shim; this keeps the same effect (host callback
// vs bytecode body) without adding a interface-satisfaction indirection.
type Function struct {
	ID    int
	Nargs int // -1 means variadic, see VarArgs
	Args  []string

	Native      NativeFunc
	Code        []opcode.Instr // non-nil when this is an Interpret function
	IsInterpret bool
}

// VarArgs is the sentinel Nargs value meaning "variadic" (§3).
const VarArgs = -1

// NativeFunc is the host callback signature for a Native Function (§6).
type NativeFunc func(vm VM, args []Value) (Value, error)

// VM is the minimal surface value.NativeFunc needs from the vm package.
// Defining it here (rather than importing package vm) avoids an import
// cycle, since vm.VM must hold *Function and *Object values from this
// package. vm.VM satisfies this interface structurally.
type VM interface {
	NewObject() int
	GetObject(id int) *Object
	RegisterObject(obj *Object) int
	GetFunc(id int) *Function
	RunFunc(id int, args []Value) (Value, error)
}
