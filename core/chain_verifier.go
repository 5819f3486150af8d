package core

import "context"

// ChainVerifier re-executes candidate blocks offered by a follower's pull
// loop and walks their parent chain back to the locally accepted head —
// spec.md §4.6.
type ChainVerifier struct {
	storage   *Storage
	processor *Processor
}

// NewChainVerifier wires a ChainVerifier over storage and processor; the
// processor's Runner must be the same one the leader used, or re-execution
// cannot reproduce the leader's state.
func NewChainVerifier(storage *Storage, processor *Processor) *ChainVerifier {
	return &ChainVerifier{storage: storage, processor: processor}
}

// Verify checks candidate against current, the locally accepted head.
// Equal block numbers require byte-equal blocks; a higher candidate is
// re-executed from scratch and compared, then its parent is loaded and the
// check recurses down to current. Any mismatch or missing parent is a hard
// reject.
func (v *ChainVerifier) Verify(ctx context.Context, current, candidate Block) error {
	if candidate.BlockNumber < current.BlockNumber {
		return newErr(KindChainMismatch, "Verify", withField("block_number"))
	}
	if candidate.BlockNumber == current.BlockNumber {
		if field, ok := blocksEqual(current, candidate); !ok {
			return newErr(KindChainMismatch, "Verify", withField(field))
		}
		return nil
	}

	stripped := candidate
	stripped.FinalStorage = ""
	stripped.Receipts = nil

	recomputed, err := v.processor.Process(ctx, stripped)
	if err != nil {
		return err
	}
	if field, ok := blocksEqual(recomputed, candidate); !ok {
		return newErr(KindChainMismatch, "Verify", withField(field))
	}

	if candidate.ParentBlockHash.Empty() {
		return newErr(KindChainMismatch, "Verify", withField("parent_block_hash"))
	}
	parentTree, err := v.storage.GetAll(ctx, candidate.ParentBlockHash, "")
	if err != nil {
		return newErr(KindChainMismatch, "Verify", withField("parent_block_hash"), withErr(err))
	}
	parent, err := DeserializeBlock(parentTree)
	if err != nil {
		return newErr(KindChainMismatch, "Verify", withField("parent_block_hash"), withErr(err))
	}
	return v.Verify(ctx, current, parent)
}

// blocksEqual deep-compares two blocks field by field, returning the name
// of the first mismatched field if any.
func blocksEqual(a, b Block) (string, bool) {
	switch {
	case a.BlockNumber != b.BlockNumber:
		return "block_number", false
	case a.ParentBlockHash != b.ParentBlockHash:
		return "parent_block_hash", false
	case a.InitialStorage != b.InitialStorage:
		return "initial_storage", false
	case a.FinalStorage != b.FinalStorage:
		return "final_storage", false
	case len(a.Transactions) != len(b.Transactions):
		return "transactions", false
	case len(a.Receipts) != len(b.Receipts):
		return "receipts", false
	}
	for i := range a.Transactions {
		if !transactionsEqual(a.Transactions[i], b.Transactions[i]) {
			return "transactions", false
		}
	}
	for i := range a.Receipts {
		if !receiptsEqual(a.Receipts[i], b.Receipts[i]) {
			return "receipts", false
		}
	}
	return "", true
}

func transactionsEqual(a, b Transaction) bool {
	if a.Invocation.Function != b.Invocation.Function || len(a.Invocation.Args) != len(b.Invocation.Args) {
		return false
	}
	for i := range a.Invocation.Args {
		if a.Invocation.Args[i] != b.Invocation.Args[i] {
			return false
		}
	}
	if a.Owner != b.Owner {
		return false
	}
	if (a.Signature == nil) != (b.Signature == nil) {
		return false
	}
	if a.Signature != nil {
		if string(a.Signature.Sig) != string(b.Signature.Sig) || string(a.Signature.Pub) != string(b.Signature.Pub) {
			return false
		}
	}
	return true
}

func receiptsEqual(a, b Receipt) bool {
	if a.Status != b.Status || a.InitialStorage != b.InitialStorage || a.FinalStorage != b.FinalStorage || a.Debug != b.Debug {
		return false
	}
	if len(a.Logs) != len(b.Logs) {
		return false
	}
	for i := range a.Logs {
		if a.Logs[i] != b.Logs[i] {
			return false
		}
	}
	return true
}
