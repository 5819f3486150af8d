package core

import "context"

// echoRunner is a deterministic test Runner: for "put" it writes args[1] at
// path args[0]; for "fail" it returns an error receipt; for anything else it
// is a no-op success. It never returns a Go error, so tests can exercise the Processor/Tracker/ChainVerifier plumbing without a
// real wasm module.
type echoRunner struct{}

func (echoRunner) Run(ctx context.Context, inv Invocation, storage *Storage, initialStorage Hash, blockNumber uint64, signerOrOwner []byte) (RunResult, error) {
	final := initialStorage
	var logs []string
	switch inv.Function {
	case "put":
		if len(inv.Args) != 2 {
			return RunResult{Status: StatusError, FinalStorage: initialStorage, Debug: "put wants 2 args"}, nil
		}
		newRoot, err := storage.Put(ctx, initialStorage, inv.Args[0], []byte(inv.Args[1]))
		if err != nil {
			return RunResult{Status: StatusError, FinalStorage: initialStorage, Debug: err.Error()}, nil
		}
		final = newRoot
		logs = append(logs, "put "+inv.Args[0])
	case "fail":
		return RunResult{Status: StatusError, FinalStorage: initialStorage, Debug: "forced failure"}, nil
	}
	return RunResult{Status: StatusOK, FinalStorage: final, Logs: logs}, nil
}

type echoReader struct{}

func (echoReader) Read(ctx context.Context, inv Invocation, storage *Storage, root Hash) ([]byte, error) {
	if inv.Function != "get" || len(inv.Args) != 1 {
		return nil, newErr(KindProtocol, "echoReader.Read", withField("unsupported"))
	}
	return storage.Get(ctx, root, inv.Args[0])
}
