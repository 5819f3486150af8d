package core

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/wasmerio/wasmer-go/wasmer"
)

// RunResult is what a Runner implementation hands back to the Processor for
// one transaction; it becomes a Receipt verbatim (spec.md §4.6).
type RunResult struct {
	Status       ReceiptStatus
	FinalStorage Hash
	Logs         []string
	Debug        string
}

// Runner executes one transaction's invocation against storage rooted at
// initialStorage and returns its effect. signerOrOwner is the recovered
// public key for a signed transaction, or the raw owner bytes for a
// system-queued one — spec.md §4.6.
type Runner interface {
	Run(ctx context.Context, inv Invocation, storage *Storage, initialStorage Hash, blockNumber uint64, signerOrOwner []byte) (RunResult, error)
}

// Reader is the read-only counterpart used by Tracker.read and the HTTP
// façade's /read endpoints; it never mutates storage.
type Reader interface {
	Read(ctx context.Context, inv Invocation, storage *Storage, root Hash) ([]byte, error)
}

// WasmRunner executes transactions by loading a WebAssembly module named
// after the invocation's function from a fixed code root and running its
// exported _start, with host-provided storage get/put and logging —
// grounded on the teacher's HeavyVM.
type WasmRunner struct {
	CodeRoot Hash
	engine   *wasmer.Engine
	log      *logrus.Entry
}

// NewWasmRunner wires a WasmRunner whose modules live under codeRoot,
// one object per function name.
func NewWasmRunner(codeRoot Hash, log *logrus.Logger) *WasmRunner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WasmRunner{
		CodeRoot: codeRoot,
		engine:   wasmer.NewEngine(),
		log:      log.WithField("component", "wasm_runner"),
	}
}

// hostState is the mutable context a running module's host imports close
// over: the storage root it reads/writes and the logs it accumulates.
type hostState struct {
	ctx     context.Context
	storage *Storage
	root    Hash
	logs    []string
	failed  error
	mem     *wasmer.Memory
}

func (r *WasmRunner) Run(ctx context.Context, inv Invocation, storage *Storage, initialStorage Hash, blockNumber uint64, signerOrOwner []byte) (RunResult, error) {
	code, err := storage.Get(ctx, r.CodeRoot, inv.Function)
	if err != nil {
		return RunResult{Status: StatusError, FinalStorage: initialStorage, Debug: err.Error()}, nil
	}

	st := &hostState{ctx: ctx, storage: storage, root: initialStorage}

	wstore := wasmer.NewStore(r.engine)
	module, err := wasmer.NewModule(wstore, code)
	if err != nil {
		return RunResult{Status: StatusError, FinalStorage: initialStorage, Debug: err.Error()}, nil
	}
	imports := r.registerHost(wstore, st)
	instance, err := wasmer.NewInstance(module, imports)
	if err != nil {
		return RunResult{Status: StatusError, FinalStorage: initialStorage, Debug: err.Error()}, nil
	}
	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return RunResult{Status: StatusError, FinalStorage: initialStorage, Debug: "wasm memory export missing"}, nil
	}
	st.mem = mem

	start, err := instance.Exports.GetFunction("_start")
	if err != nil {
		return RunResult{Status: StatusError, FinalStorage: initialStorage, Debug: "_start function required"}, nil
	}
	if _, err := start(); err != nil {
		return RunResult{Status: StatusError, FinalStorage: initialStorage, Logs: st.logs, Debug: err.Error()}, nil
	}
	if st.failed != nil {
		return RunResult{Status: StatusError, FinalStorage: initialStorage, Logs: st.logs, Debug: st.failed.Error()}, nil
	}
	return RunResult{Status: StatusOK, FinalStorage: st.root, Logs: st.logs}, nil
}

// registerHost exposes three host functions to the wasm module: get(keyPtr,
// keyLen, outPtr) -> i32 length (-1 on miss), put(keyPtr, keyLen, valPtr,
// valLen) -> i32 status, and log(ptr, len).
func (r *WasmRunner) registerHost(store *wasmer.Store, st *hostState) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	readMem := func(ptr, ln int32) []byte {
		data := st.mem.Data()[ptr : ptr+ln]
		out := make([]byte, ln)
		copy(out, data)
		return out
	}

	hostGet := wasmer.NewFunction(store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32),
			wasmer.NewValueTypes(wasmer.I32),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			keyPtr, keyLen, outPtr := args[0].I32(), args[1].I32(), args[2].I32()
			val, err := st.storage.Get(st.ctx, st.root, string(readMem(keyPtr, keyLen)))
			if err != nil {
				if IsNotFound(err) {
					return []wasmer.Value{wasmer.NewI32(-1)}, nil
				}
				st.failed = err
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			buf := st.mem.Data()
			copy(buf[outPtr:], val)
			return []wasmer.Value{wasmer.NewI32(int32(len(val)))}, nil
		},
	)

	hostPut := wasmer.NewFunction(store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32),
			wasmer.NewValueTypes(wasmer.I32),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			keyPtr, keyLen, valPtr, valLen := args[0].I32(), args[1].I32(), args[2].I32(), args[3].I32()
			key := string(readMem(keyPtr, keyLen))
			val := readMem(valPtr, valLen)
			newRoot, err := st.storage.Put(st.ctx, st.root, key, val)
			if err != nil {
				st.failed = err
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			st.root = newRoot
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		},
	)

	hostLog := wasmer.NewFunction(store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.I32, wasmer.I32),
			wasmer.NewValueTypes(),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			ptr, ln := args[0].I32(), args[1].I32()
			st.logs = append(st.logs, string(readMem(ptr, ln)))
			return nil, nil
		},
	)

	imports.Register("env", map[string]wasmer.IntoExtern{
		"daisy_get": hostGet,
		"daisy_put": hostPut,
		"daisy_log": hostLog,
	})
	return imports
}

// ErrNoRunner is the error for a configuration that selects no Runner
// implementation. No code path in this module returns it: cmd/daisy always
// wires a WasmRunner.
var ErrNoRunner = errors.New("core: no runner configured")

// WasmReader is the read-only counterpart of WasmRunner: it executes a
// module's exported _start against a fixed root with no daisy_put import,
// so a malicious or buggy read module cannot mutate state.
type WasmReader struct {
	CodeRoot Hash
	engine   *wasmer.Engine
	log      *logrus.Entry
}

// NewWasmReader wires a WasmReader whose modules live under codeRoot.
func NewWasmReader(codeRoot Hash, log *logrus.Logger) *WasmReader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WasmReader{
		CodeRoot: codeRoot,
		engine:   wasmer.NewEngine(),
		log:      log.WithField("component", "wasm_reader"),
	}
}

func (r *WasmReader) Read(ctx context.Context, inv Invocation, storage *Storage, root Hash) ([]byte, error) {
	code, err := storage.Get(ctx, r.CodeRoot, inv.Function)
	if err != nil {
		return nil, err
	}

	st := &hostState{ctx: ctx, storage: storage, root: root}
	var result []byte

	wstore := wasmer.NewStore(r.engine)
	module, err := wasmer.NewModule(wstore, code)
	if err != nil {
		return nil, newErr(KindProtocol, "WasmReader.Read", withErr(err))
	}
	imports := wasmer.NewImportObject()
	readMem := func(ptr, ln int32) []byte {
		data := st.mem.Data()[ptr : ptr+ln]
		out := make([]byte, ln)
		copy(out, data)
		return out
	}
	hostGet := wasmer.NewFunction(wstore,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32),
			wasmer.NewValueTypes(wasmer.I32),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			keyPtr, keyLen, outPtr := args[0].I32(), args[1].I32(), args[2].I32()
			val, err := st.storage.Get(st.ctx, st.root, string(readMem(keyPtr, keyLen)))
			if err != nil {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			buf := st.mem.Data()
			copy(buf[outPtr:], val)
			return []wasmer.Value{wasmer.NewI32(int32(len(val)))}, nil
		},
	)
	hostReturn := wasmer.NewFunction(wstore,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.I32, wasmer.I32),
			wasmer.NewValueTypes(),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			result = readMem(args[0].I32(), args[1].I32())
			return nil, nil
		},
	)
	imports.Register("env", map[string]wasmer.IntoExtern{
		"daisy_get":    hostGet,
		"daisy_return": hostReturn,
	})

	instance, err := wasmer.NewInstance(module, imports)
	if err != nil {
		return nil, newErr(KindProtocol, "WasmReader.Read", withErr(err))
	}
	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, newErr(KindProtocol, "WasmReader.Read", withField("wasm memory export missing"))
	}
	st.mem = mem
	start, err := instance.Exports.GetFunction("_start")
	if err != nil {
		return nil, newErr(KindProtocol, "WasmReader.Read", withField("_start function required"))
	}
	if _, err := start(); err != nil {
		return nil, newErr(KindProtocol, "WasmReader.Read", withErr(err))
	}
	return result, nil
}
