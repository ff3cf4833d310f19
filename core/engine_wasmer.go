package core

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// wasmPageSize is the VM's native page size: 64 KiB, per spec.md §4.2.
const wasmPageSize = 64 * 1024

// hostMemoryInitialPages is the initial extent of host-owned memory: 20
// pages (1.25 MiB), per spec.md §4.2.
const hostMemoryInitialPages = 20

// maxMemoryPages is the maximum of the host-owned memory: 256 pages
// (16 MiB), the figure spec.md §5 recommends as a default cap. In
// guest-memory mode the host sets no cap; a contract's exported memory is
// bounded only by its own declared limits.
const maxMemoryPages = 256

// wasmEngine owns the Wasmer compilation engine and store shared by every
// module compiled through a Runtime. One engine per Runtime, reused across
// calls, mirroring the teacher's HeavyVM{engine *wasmer.Engine}
// (core/virtual_machine.go in the teacher).
type wasmEngine struct {
	engine *wasmer.Engine
	store  *wasmer.Store
}

func newWasmEngine() *wasmEngine {
	engine := wasmer.NewEngine()
	return &wasmEngine{engine: engine, store: wasmer.NewStore(engine)}
}

func (e *wasmEngine) compile(bytecode []byte) (*wasmer.Module, error) {
	mod, err := wasmer.NewModule(e.store, bytecode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCompileError, err)
	}
	return mod, nil
}

// newHostMemory constructs the shared host-owned memory object imported
// into every instance as env.memory when a Runtime runs in host-memory
// mode (spec.md §4.2).
func newHostMemory(store *wasmer.Store) (*wasmer.Memory, error) {
	limits, err := wasmer.NewLimits(hostMemoryInitialPages, maxMemoryPages)
	if err != nil {
		return nil, fmt.Errorf("construct memory limits: %w", err)
	}
	return wasmer.NewMemory(store, wasmer.NewMemoryType(limits)), nil
}

// newInstance builds an instance of module, importing hostMemory under
// env.memory when non-nil (host-memory mode) or leaving the guest to
// export its own memory otherwise.
func newInstance(store *wasmer.Store, module *wasmer.Module, hostMemory *wasmer.Memory) (*wasmer.Instance, error) {
	imports := wasmer.NewImportObject()
	if hostMemory != nil {
		imports.Register("env", map[string]wasmer.IntoExtern{
			"memory": hostMemory,
		})
	}
	instance, err := wasmer.NewInstance(module, imports)
	if err != nil {
		return nil, fmt.Errorf("instantiate contract module: %w", err)
	}
	return instance, nil
}

// instanceMemory resolves the linear memory an instance should read and
// write through: the shared host memory in host-memory mode, or the
// instance's own exported memory in guest-memory mode.
func instanceMemory(instance *wasmer.Instance, hostMemory *wasmer.Memory) (*wasmer.Memory, error) {
	if hostMemory != nil {
		return hostMemory, nil
	}
	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, fmt.Errorf("contract does not export memory: %w", err)
	}
	return mem, nil
}

// ensureCapacity grows mem, if necessary, to hold reqBytes of combined
// input payloads, returning InsufficientMemoryError on failure.
func ensureCapacity(mem *wasmer.Memory, reqBytes uint64) error {
	reqPages := uint32((reqBytes + wasmPageSize - 1) / wasmPageSize)
	current := mem.Size()
	if uint32(current) >= reqPages {
		return nil
	}
	delta := reqPages - uint32(current)
	if _, err := mem.Grow(wasmer.Pages(delta)); err != nil {
		return &InsufficientMemoryError{
			Req:  uint64(reqPages) * wasmPageSize,
			Free: uint64(current) * wasmPageSize,
		}
	}
	return nil
}

// callFunction looks up and invokes a named export. GetFunction returns a
// wasmer.NativeFunction, a plain callable func(...interface{})
// (interface{}, error) — not a struct with a Call method.
func callFunction(instance *wasmer.Instance, name string, args ...interface{}) (interface{}, error) {
	fn, err := instance.Exports.GetFunction(name)
	if err != nil {
		return nil, fmt.Errorf("contract missing entry point %q: %w", name, err)
	}
	result, err := fn(args...)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	return result, nil
}

func toInt32(v interface{}) (int32, error) {
	switch n := v.(type) {
	case int32:
		return n, nil
	case int64:
		return int32(n), nil
	default:
		return 0, fmt.Errorf("expected i32 result, got %T", v)
	}
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected i64 result, got %T", v)
	}
}
