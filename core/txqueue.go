package core

import (
	"context"
	"fmt"
	"strconv"
)

// Queue appends invocation, owned by owner, to the deferred queue for
// blockNumber and returns the new root — spec.md §4.5. Queued entries are
// system transactions: they carry owner, never a signature.
func Queue(ctx context.Context, storage *Storage, root Hash, blockNumber uint64, owner string, inv Invocation) (Hash, error) {
	dir := fmt.Sprintf("transaction_queue/%d", blockNumber)
	entries, err := storage.Ls(ctx, root, dir)
	if err != nil {
		return "", err
	}
	next := len(entries) + 1
	tx := Transaction{Invocation: inv, Owner: owner}

	txRoot, err := storage.New(ctx)
	if err != nil {
		return "", err
	}
	txRoot, err = storage.PutAll(ctx, txRoot, serializeTransaction(tx))
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("%s/%d", dir, next)
	return storage.client.ObjectPatchAddLink(ctx, root, path, txRoot, true)
}

// DrainForBlock returns every transaction deferred for blockNumber, ordered
// by ascending numeric sequence key — spec.md §4.5.
func DrainForBlock(ctx context.Context, storage *Storage, root Hash, blockNumber uint64) ([]Transaction, error) {
	dir := fmt.Sprintf("transaction_queue/%d", blockNumber)
	tree, err := storage.GetAll(ctx, root, dir)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	idx := sortedIntKeys(tree)
	out := make([]Transaction, 0, len(idx))
	for _, i := range idx {
		key := strconv.Itoa(i)
		m, ok := tree[key].(map[string]any)
		if !ok {
			return nil, newErr(KindProtocol, "DrainForBlock", withField(key))
		}
		tx, err := deserializeTransaction(m)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}
