package core

import "context"

// Processor executes a block's transactions against a Runner and writes the
// finished block to storage — spec.md §4.6.
type Processor struct {
	storage *Storage
	runner  Runner
}

// NewProcessor wires a Processor over storage and runner.
func NewProcessor(storage *Storage, runner Runner) *Processor {
	return &Processor{storage: storage, runner: runner}
}

// Process folds block.Transactions left-to-right, starting from
// block.InitialStorage, producing one Receipt per transaction. A
// transaction whose signature fails to verify aborts the whole block (the
// abort policy spec.md §9 selects over per-transaction rejection), to keep
// re-execution deterministic across leader and follower.
func (p *Processor) Process(ctx context.Context, block Block) (Block, error) {
	cur := block.InitialStorage
	receipts := make([]Receipt, 0, len(block.Transactions))

	for _, tx := range block.Transactions {
		if err := tx.Validate(); err != nil {
			return Block{}, err
		}

		var identity []byte
		if tx.Signature != nil {
			pub, err := tx.Verify()
			if err != nil {
				return Block{}, err
			}
			identity = pub
		} else {
			identity = []byte(tx.Owner)
		}

		result, err := p.runner.Run(ctx, tx.Invocation, p.storage, cur, block.BlockNumber, identity)
		if err != nil {
			return Block{}, err
		}

		receipts = append(receipts, Receipt{
			Status:         result.Status,
			InitialStorage: cur,
			FinalStorage:   result.FinalStorage,
			Logs:           result.Logs,
			Debug:          result.Debug,
		})
		cur = result.FinalStorage
	}

	final := block.InitialStorage
	if len(receipts) > 0 {
		final = receipts[len(receipts)-1].FinalStorage
	}

	out := block
	out.Receipts = receipts
	out.FinalStorage = final
	return out, nil
}

// Save serializes block into a fresh empty root and returns the resulting
// block hash — spec.md §4.6 "save(block, storage) = put_all(new_empty_root,
// serialize(block))".
func (p *Processor) Save(ctx context.Context, block Block) (Hash, error) {
	root, err := p.storage.New(ctx)
	if err != nil {
		return "", err
	}
	return p.storage.PutAll(ctx, root, SerializeBlock(block))
}
