// Package vm implements the virtual machine (§4.2) and its per-invocation
// execution context, Frame (§4.3). The VM owns three registries — functions
// by id, objects by id, globals keyed by Value — plus the id counters that
// back §3's "ids are monotonic, never reused" invariant.
package vm

import (
	"go.uber.org/zap"

	"github.com/jazzml-lang/jazzml/opcode"
	"github.com/jazzml-lang/jazzml/value"
)

// VM holds the object pool, function registry and globals described in §3
// and §4.2. It is not safe for concurrent use — §5 specifies a strictly
// single-threaded execution model.
type VM struct {
	functions map[int]*value.Function
	objects   map[int]*value.Object
	globals   map[value.Value]value.Value

	nextFuncID int
	nextObjID  int

	log *zap.Logger
}

// New constructs an empty VM. A nil logger falls back to a no-op logger, so
// embedders that don't care about diagnostics don't have to thread one
// through.
func New(log *zap.Logger) *VM {
	if log == nil {
		log = zap.NewNop()
	}
	return &VM{
		functions: make(map[int]*value.Function),
		objects:   make(map[int]*value.Object),
		globals:   make(map[value.Value]value.Value),
		log:       log,
	}
}

// NewObject allocates an empty Object in the pool and returns its id.
func (vm *VM) NewObject() int {
	obj := value.NewObject(vm.nextObjID)
	vm.objects[vm.nextObjID] = obj
	id := vm.nextObjID
	vm.nextObjID++
	return id
}

// RegisterObject inserts a pre-built Object into the pool, assigning it the
// next id (overwriting whatever id it carried in), and returns that id.
func (vm *VM) RegisterObject(obj *value.Object) int {
	id := vm.nextObjID
	obj.ID = id
	vm.objects[id] = obj
	vm.nextObjID++
	return id
}

// GetObject returns the Object for id, or nil if unknown. Dispatch code in
// Frame treats a nil return as a fatal fault (§7).
func (vm *VM) GetObject(id int) *value.Object {
	return vm.objects[id]
}

// RegisterPredefinedFunc installs fn without binding a name in globals
// (§6), for nested function literals the compiler creates on the fly.
func (vm *VM) RegisterPredefinedFunc(fn *value.Function) int {
	id := vm.nextFuncID
	fn.ID = id
	vm.functions[id] = fn
	vm.nextFuncID++
	return id
}

// RegisterFunc installs a pre-compiled bytecode function under name,
// binding name -> FuncRef(id) in globals (§6).
func (vm *VM) RegisterFunc(name string, code []opcode.Instr, nargs int, args []string) int {
	fn := &value.Function{
		Nargs:       nargs,
		Args:        args,
		Code:        code,
		IsInterpret: true,
	}
	id := vm.RegisterPredefinedFunc(fn)
	vm.globals[value.Str(name)] = value.FuncRef(id)
	return id
}

// RegisterNativeFunc installs a host callback under name, binding
// name -> FuncRef(id) in globals (§6).
func (vm *VM) RegisterNativeFunc(name string, callback value.NativeFunc, nargs int) int {
	fn := &value.Function{
		Nargs:  nargs,
		Native: callback,
	}
	id := vm.RegisterPredefinedFunc(fn)
	vm.globals[value.Str(name)] = value.FuncRef(id)
	return id
}

// GetFunc returns the Function for id, or nil if unknown.
func (vm *VM) GetFunc(id int) *value.Function {
	return vm.functions[id]
}

// SetGlobal is a direct write to the globals map, used by Frame's
// StoreGlobal and by embedders that want to seed bindings before the first
// Run.
func (vm *VM) SetGlobal(key, val value.Value) {
	vm.globals[key] = val
}

// GetGlobal is a direct read of the globals map.
func (vm *VM) GetGlobal(key value.Value) (value.Value, bool) {
	v, ok := vm.globals[key]
	return v, ok
}

// FuncIDByName looks up the FuncRef bound to name in globals, used by the
// compiler to seed its func_def table from already-registered builtins
// (§4.4).
func (vm *VM) FuncIDByName(name string) (int, bool) {
	v, ok := vm.globals[value.Str(name)]
	if !ok || !v.IsFuncRef() {
		return 0, false
	}
	return v.AsFuncID(), true
}

// RunInstructions builds a root Frame over code and drives it to Ret,
// returning its result (§4.2).
func (vm *VM) RunInstructions(code []opcode.Instr) (value.Value, error) {
	f := newFrame(vm, code, make(map[string]value.Value))
	return f.run()
}

// RunFunc invokes a function by id directly from the host, without going
// through an opcode dispatch loop (§4.2). For an Interpret function, args
// are bound into a fresh locals map by parameter name before the body runs;
// for Native, args are passed straight through.
func (vm *VM) RunFunc(id int, args []value.Value) (value.Value, error) {
	fn := vm.functions[id]
	if fn == nil {
		return value.Null, fault("function %d not defined", id)
	}
	if fn.Native != nil {
		return fn.Native(vm, args)
	}
	locals := make(map[string]value.Value, len(fn.Args))
	for i, name := range fn.Args {
		if i >= len(args) {
			break
		}
		locals[name] = args[i]
	}
	f := newFrame(vm, fn.Code, locals)
	return f.run()
}

// DebugObject resolves an object id for value.Value.AsDisplayString.
func (vm *VM) DebugObject(id int) *value.Object {
	return vm.objects[id]
}

// Display renders v using this VM's object pool for ObjectRef formatting.
func (vm *VM) Display(v value.Value) string {
	return v.AsDisplayString(vm.DebugObject)
}
