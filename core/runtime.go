package core

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/wasmerio/wasmer-go/wasmer"
)

// UpdateResult is the closed result domain an update entry point encodes
// over its i32 return value (spec.md §4.3). The ordering mirrors the
// original Rust enum's declaration order.
type UpdateResult int32

const (
	ValidNoChange UpdateResult = iota
	ValidUpdate
	Invalid
)

func decodeUpdateResult(v int32) (UpdateResult, error) {
	switch UpdateResult(v) {
	case ValidNoChange, ValidUpdate, Invalid:
		return UpdateResult(v), nil
	default:
		return 0, ErrUnexpectedResult
	}
}

// Runtime owns the module cache and the compilation engine for a single
// worker. It is not safe for concurrent use from multiple goroutines
// without external synchronization: spec.md §5 describes the VM host as
// single-threaded with respect to a given Runtime handle, with multiple
// runtimes expected to run in parallel on separate threads instead.
type Runtime struct {
	logger *logrus.Logger
	store  *ContractStore
	metrics *Metrics

	mu      sync.Mutex
	wasm    *wasmEngine
	modules map[ContractKey]*wasmer.Module

	hostMemory *wasmer.Memory // nil when running in guest-memory mode
}

// NewRuntime builds a Runtime backed by store. hostMemory selects between
// the two memory-provisioning modes of spec.md §4.2: true imports a single
// growable host-owned Memory into every instance, false lets each
// contract export its own.
func NewRuntime(store *ContractStore, hostMemory bool, logger *logrus.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	wasm := newWasmEngine()
	r := &Runtime{
		logger:  logger,
		store:   store,
		metrics: NewMetrics(),
		wasm:    wasm,
		modules: make(map[ContractKey]*wasmer.Module),
	}
	if hostMemory {
		mem, err := newHostMemory(wasm.store)
		if err != nil {
			return nil, err
		}
		r.hostMemory = mem
	}
	return r, nil
}

// getModule returns the compiled module for key, compiling and caching it
// on first use. Invariant (spec.md §3): a module is only inserted after
// its bytecode has been successfully fetched from the store.
func (r *Runtime) getModule(key ContractKey) (*wasmer.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if mod, ok := r.modules[key]; ok {
		return mod, nil
	}
	bytecode, ok := r.store.Fetch(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, key)
	}
	mod, err := r.wasm.compile(bytecode)
	if err != nil {
		return nil, err
	}
	r.modules[key] = mod
	return mod, nil
}

// preparedCall is a freshly instantiated contract ready to receive buffer
// writes and an entry-point invocation. One is created per host call, per
// spec.md §4.3's fresh-instance-per-call policy.
type preparedCall struct {
	instance *wasmer.Instance
	mem      *wasmer.Memory
}

func (r *Runtime) prepareCall(key ContractKey, reqBytes uint64) (*preparedCall, error) {
	module, err := r.getModule(key)
	if err != nil {
		return nil, err
	}
	instance, err := newInstance(r.wasm.store, module, r.hostMemory)
	if err != nil {
		return nil, err
	}
	mem, err := instanceMemory(instance, r.hostMemory)
	if err != nil {
		return nil, err
	}
	if err := ensureCapacity(mem, reqBytes); err != nil {
		r.logger.WithFields(logrus.Fields{
			"contract": key.String(),
			"req_bytes": reqBytes,
		}).Error("wasm runtime failed to grow memory")
		r.metrics.memoryGrowFailures.Inc()
		return nil, err
	}
	return &preparedCall{instance: instance, mem: mem}, nil
}

// memoryAccessor returns a closure that always reads the instance's
// current backing slice, so BufferHandles never cache a stale pointer.
func (c *preparedCall) memoryAccessor() memoryAccessor {
	mem := c.mem
	return func() []byte { return mem.Data() }
}

// initBuffer asks the guest to reserve a payload region and returns a
// handle to the resulting BufferBuilder. The host always creates buffers
// as host-owned (spec.md §4.2's call sequence step 1), since the host is
// the side writing into them.
func (c *preparedCall) initBuffer(data []byte) (*BufferHandle, error) {
	result, err := callFunction(c.instance, "initiate_buffer", uint32(len(data)), int32(1))
	if err != nil {
		return nil, err
	}
	ptr, err := toInt64(result)
	if err != nil {
		return nil, fmt.Errorf("initiate_buffer: %w", err)
	}
	handle := newBufferHandle(uint32(ptr), c.memoryAccessor())
	if err := handle.Write(data); err != nil {
		return nil, err
	}
	return handle, nil
}

// outputBuffer wraps a pointer an entry point returned (to a host-owned
// BufferBuilder holding its result) in a handle.
func (c *preparedCall) outputBuffer(ptr int64) *BufferHandle {
	return newBufferHandle(uint32(ptr), c.memoryAccessor())
}

// ValidateState determines whether state is valid under parameters.
func (r *Runtime) ValidateState(key ContractKey, parameters Parameters, state State) (bool, error) {
	call, err := r.prepareCall(key, uint64(parameters.Size()+state.Size()))
	if err != nil {
		return false, err
	}
	paramBuf, err := call.initBuffer(parameters)
	if err != nil {
		return false, err
	}
	stateBuf, err := call.initBuffer(state)
	if err != nil {
		return false, err
	}
	result, err := callFunction(call.instance, "validate_state", int64(paramBuf.Ptr()), int64(stateBuf.Ptr()))
	if err != nil {
		return false, err
	}
	code, err := toInt32(result)
	if err != nil {
		return false, fmt.Errorf("validate_state: %w", err)
	}
	return code != 0, nil
}

// ValidateDelta determines whether delta is a valid delta under parameters.
func (r *Runtime) ValidateDelta(key ContractKey, parameters Parameters, delta StateDelta) (bool, error) {
	call, err := r.prepareCall(key, uint64(parameters.Size()+delta.Size()))
	if err != nil {
		return false, err
	}
	paramBuf, err := call.initBuffer(parameters)
	if err != nil {
		return false, err
	}
	deltaBuf, err := call.initBuffer(delta)
	if err != nil {
		return false, err
	}
	result, err := callFunction(call.instance, "validate_delta", int64(paramBuf.Ptr()), int64(deltaBuf.Ptr()))
	if err != nil {
		return false, err
	}
	code, err := toInt32(result)
	if err != nil {
		return false, fmt.Errorf("validate_delta: %w", err)
	}
	return code != 0, nil
}

// UpdateState applies delta to state under parameters.
//
// Contracts must implement update_state so that applying the same delta
// twice is equivalent to applying it once, and so that applying a set of
// deltas in any order yields the same final state (spec.md §4.3). The
// host relies on this to support concurrent delivery from multiple peers
// and does not itself enforce it.
func (r *Runtime) UpdateState(key ContractKey, parameters Parameters, state State, delta StateDelta) (State, error) {
	call, err := r.prepareCall(key, uint64(parameters.Size()+state.Size()+delta.Size()))
	if err != nil {
		return nil, err
	}
	paramBuf, err := call.initBuffer(parameters)
	if err != nil {
		return nil, err
	}
	stateBuf, err := call.initBuffer(state)
	if err != nil {
		return nil, err
	}
	deltaBuf, err := call.initBuffer(delta)
	if err != nil {
		return nil, err
	}
	result, err := callFunction(call.instance, "update_state", int64(paramBuf.Ptr()), int64(deltaBuf.Ptr()))
	if err != nil {
		return nil, err
	}
	code, err := toInt32(result)
	if err != nil {
		return nil, fmt.Errorf("update_state: %w", err)
	}
	updateResult, err := decodeUpdateResult(code)
	if err != nil {
		return nil, err
	}
	switch updateResult {
	case ValidNoChange:
		return state, nil
	case ValidUpdate:
		// The contract may have grown memory while writing the
		// replacement state, invalidating any pointer cached before
		// this call; re-resolve through FlipOwnership rather than
		// trust stateBuf's prior reading (spec.md §4.2, §9).
		resolved := stateBuf.FlipOwnership()
		newState, err := resolved.ReadBytes(uint32(state.Size()))
		if err != nil {
			return nil, err
		}
		return State(newState), nil
	default: // Invalid
		return nil, ErrInvalidPutValue
	}
}

// SummarizeState produces a compact digest of state for anti-entropy
// negotiation with peers.
func (r *Runtime) SummarizeState(key ContractKey, parameters Parameters, state State) (StateSummary, error) {
	call, err := r.prepareCall(key, uint64(parameters.Size()+state.Size()))
	if err != nil {
		return nil, err
	}
	paramBuf, err := call.initBuffer(parameters)
	if err != nil {
		return nil, err
	}
	stateBuf, err := call.initBuffer(state)
	if err != nil {
		return nil, err
	}
	result, err := callFunction(call.instance, "summarize_state", int64(paramBuf.Ptr()), int64(stateBuf.Ptr()))
	if err != nil {
		return nil, err
	}
	ptr, err := toInt64(result)
	if err != nil {
		return nil, fmt.Errorf("summarize_state: %w", err)
	}
	out := call.outputBuffer(ptr)
	size, err := out.Size()
	if err != nil {
		return nil, err
	}
	summary, err := out.ReadBytes(size)
	if err != nil {
		return nil, err
	}
	return StateSummary(summary), nil
}

// GetStateDelta computes what the local state holds that summary (a
// peer's digest) lacks.
func (r *Runtime) GetStateDelta(key ContractKey, parameters Parameters, state State, summary StateSummary) (StateDelta, error) {
	call, err := r.prepareCall(key, uint64(parameters.Size()+state.Size()+summary.Size()))
	if err != nil {
		return nil, err
	}
	paramBuf, err := call.initBuffer(parameters)
	if err != nil {
		return nil, err
	}
	stateBuf, err := call.initBuffer(state)
	if err != nil {
		return nil, err
	}
	summaryBuf, err := call.initBuffer(summary)
	if err != nil {
		return nil, err
	}
	result, err := callFunction(call.instance, "get_state_delta",
		int64(paramBuf.Ptr()), int64(stateBuf.Ptr()), int64(summaryBuf.Ptr()))
	if err != nil {
		return nil, err
	}
	ptr, err := toInt64(result)
	if err != nil {
		return nil, fmt.Errorf("get_state_delta: %w", err)
	}
	out := call.outputBuffer(ptr)
	size, err := out.Size()
	if err != nil {
		return nil, err
	}
	delta, err := out.ReadBytes(size)
	if err != nil {
		return nil, err
	}
	return StateDelta(delta), nil
}

// UpdateStateFromSummary reconciles currentState against currentSummary,
// used when a peer's summary implies it holds newer information than a
// plain delta exchange conveyed.
func (r *Runtime) UpdateStateFromSummary(key ContractKey, parameters Parameters, currentState State, currentSummary StateSummary) (State, error) {
	call, err := r.prepareCall(key, uint64(parameters.Size()+currentState.Size()+currentSummary.Size()))
	if err != nil {
		return nil, err
	}
	paramBuf, err := call.initBuffer(parameters)
	if err != nil {
		return nil, err
	}
	stateBuf, err := call.initBuffer(currentState)
	if err != nil {
		return nil, err
	}
	summaryBuf, err := call.initBuffer(currentSummary)
	if err != nil {
		return nil, err
	}
	result, err := callFunction(call.instance, "update_state_from_summary",
		int64(paramBuf.Ptr()), int64(stateBuf.Ptr()), int64(summaryBuf.Ptr()))
	if err != nil {
		return nil, err
	}
	code, err := toInt32(result)
	if err != nil {
		return nil, fmt.Errorf("update_state_from_summary: %w", err)
	}
	updateResult, err := decodeUpdateResult(code)
	if err != nil {
		return nil, err
	}
	switch updateResult {
	case ValidNoChange:
		return currentState, nil
	case ValidUpdate:
		resolved := stateBuf.FlipOwnership()
		newState, err := resolved.ReadBytes(uint32(currentState.Size()))
		if err != nil {
			return nil, err
		}
		return State(newState), nil
	default: // Invalid
		return nil, ErrInvalidPutValue
	}
}
