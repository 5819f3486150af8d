package core

import "context"

// Block is one numbered unit of the side-chain's history — spec.md §3.
type Block struct {
	BlockNumber     uint64
	ParentBlockHash Hash
	InitialStorage  Hash
	FinalStorage    Hash
	Transactions    []Transaction
	Receipts        []Receipt
}

// Genesis builds block 0: an empty storage root and no transactions. Picking
// 0 (rather than 1) resolves spec.md §9's open question the way an
// zero-based index naturally reads in Go.
func Genesis(ctx context.Context, storage *Storage) (Block, error) {
	empty, err := storage.New(ctx)
	if err != nil {
		return Block{}, err
	}
	return Block{
		BlockNumber:     0,
		ParentBlockHash: "",
		InitialStorage:  empty,
		FinalStorage:    empty,
		Transactions:    nil,
		Receipts:        nil,
	}, nil
}

// NewBlock builds the draft for the block following parent, whose own
// serialized hash is parentHash: the new block's number is
// parent.BlockNumber+1, its initial storage is parent's final storage, and
// its transaction list is the deferred queue for that block number followed
// by extraTxs — spec.md §4.6.
func NewBlock(ctx context.Context, storage *Storage, parentHash Hash, parent Block, extraTxs []Transaction) (Block, error) {
	number := parent.BlockNumber + 1
	queued, err := DrainForBlock(ctx, storage, parent.FinalStorage, number)
	if err != nil {
		return Block{}, err
	}
	txs := make([]Transaction, 0, len(queued)+len(extraTxs))
	txs = append(txs, queued...)
	txs = append(txs, extraTxs...)

	return Block{
		BlockNumber:     number,
		ParentBlockHash: parentHash,
		InitialStorage:  parent.FinalStorage,
		FinalStorage:    parent.FinalStorage,
		Transactions:    txs,
		Receipts:        nil,
	}, nil
}
