package core

import (
	"sort"
	"strconv"

	"github.com/mr-tron/base58"
)

// SerializeBlock renders a Block as the values tree Storage.PutAll expects —
// spec.md §4.3. The caller is responsible for writing it: typically
// storage.PutAll(newEmptyRoot, SerializeBlock(b)).
func SerializeBlock(b Block) map[string]any {
	tree := map[string]any{
		"block_number":      []byte(strconv.FormatUint(b.BlockNumber, 10)),
		"parent_block_hash": LinkRef{Hash: b.ParentBlockHash},
		"initial_storage":   LinkRef{Hash: b.InitialStorage},
		"final_storage":     LinkRef{Hash: b.FinalStorage},
		"transactions":      arrayTree(b.Transactions, serializeTransaction),
		"receipts":          arrayTree(b.Receipts, serializeReceipt),
	}
	return tree
}

// DeserializeBlock is the inverse of SerializeBlock, consuming the
// map[string]any shape Storage.GetAll produces.
func DeserializeBlock(tree map[string]any) (Block, error) {
	num, err := leafUint(tree, "block_number")
	if err != nil {
		return Block{}, err
	}
	parent, err := leafHash(tree, "parent_block_hash")
	if err != nil {
		return Block{}, err
	}
	initial, err := leafHash(tree, "initial_storage")
	if err != nil {
		return Block{}, err
	}
	final, err := leafHash(tree, "final_storage")
	if err != nil {
		return Block{}, err
	}
	txsTree, ok := tree["transactions"].(map[string]any)
	if !ok {
		return Block{}, newErr(KindProtocol, "DeserializeBlock", withField("transactions"))
	}
	txs, err := arrayFromTree(txsTree, deserializeTransaction)
	if err != nil {
		return Block{}, err
	}
	rcTree, ok := tree["receipts"].(map[string]any)
	if !ok {
		return Block{}, newErr(KindProtocol, "DeserializeBlock", withField("receipts"))
	}
	receipts, err := arrayFromTree(rcTree, deserializeReceipt)
	if err != nil {
		return Block{}, err
	}
	return Block{
		BlockNumber:     num,
		ParentBlockHash: parent,
		InitialStorage:  initial,
		FinalStorage:    final,
		Transactions:    txs,
		Receipts:        receipts,
	}, nil
}

func serializeTransaction(t Transaction) map[string]any {
	m := map[string]any{
		"function": []byte(t.Invocation.Function),
		"args":     stringArrayTree(t.Invocation.Args),
	}
	if t.Signature != nil {
		m["signature"] = []byte(base58.Encode(t.Signature.Sig))
		m["public_key"] = []byte(base58.Encode(t.Signature.Pub))
	} else {
		m["owner"] = []byte(base58.Encode([]byte(t.Owner)))
	}
	return m
}

func deserializeTransaction(m map[string]any) (Transaction, error) {
	fn, err := leafString(m, "function")
	if err != nil {
		return Transaction{}, err
	}
	argsTree, ok := m["args"].(map[string]any)
	if !ok {
		return Transaction{}, newErr(KindProtocol, "deserializeTransaction", withField("args"))
	}
	args, err := stringArrayFromTree(argsTree)
	if err != nil {
		return Transaction{}, err
	}
	inv := Invocation{Function: fn, Args: args}

	_, hasSig := m["signature"]
	_, hasOwner := m["owner"]
	switch {
	case hasSig && !hasOwner:
		sigB58, err := leafString(m, "signature")
		if err != nil {
			return Transaction{}, err
		}
		pubB58, err := leafString(m, "public_key")
		if err != nil {
			return Transaction{}, err
		}
		sig, err := base58.Decode(sigB58)
		if err != nil {
			return Transaction{}, newErr(KindProtocol, "deserializeTransaction", withField("signature"), withErr(err))
		}
		pub, err := base58.Decode(pubB58)
		if err != nil {
			return Transaction{}, newErr(KindProtocol, "deserializeTransaction", withField("public_key"), withErr(err))
		}
		return Transaction{Invocation: inv, Signature: &Signature{Sig: sig, Pub: pub}}, nil
	case hasOwner && !hasSig:
		ownerB58, err := leafString(m, "owner")
		if err != nil {
			return Transaction{}, err
		}
		owner, err := base58.Decode(ownerB58)
		if err != nil {
			return Transaction{}, newErr(KindProtocol, "deserializeTransaction", withField("owner"), withErr(err))
		}
		return Transaction{Invocation: inv, Owner: string(owner)}, nil
	default:
		return Transaction{}, newErr(KindProtocol, "deserializeTransaction", withField("signature/owner"))
	}
}

func serializeReceipt(r Receipt) map[string]any {
	m := map[string]any{
		"status":          []byte(strconv.Itoa(int(r.Status))),
		"initial_storage": LinkRef{Hash: r.InitialStorage},
		"final_storage":   LinkRef{Hash: r.FinalStorage},
		"logs":            stringArrayTree(r.Logs),
	}
	if r.Debug != "" {
		m["debug"] = []byte(r.Debug)
	}
	return m
}

func deserializeReceipt(m map[string]any) (Receipt, error) {
	statusStr, err := leafString(m, "status")
	if err != nil {
		return Receipt{}, err
	}
	statusN, err := strconv.Atoi(statusStr)
	if err != nil {
		return Receipt{}, newErr(KindProtocol, "deserializeReceipt", withField("status"), withErr(err))
	}
	initial, err := leafHash(m, "initial_storage")
	if err != nil {
		return Receipt{}, err
	}
	final, err := leafHash(m, "final_storage")
	if err != nil {
		return Receipt{}, err
	}
	logsTree, ok := m["logs"].(map[string]any)
	if !ok {
		return Receipt{}, newErr(KindProtocol, "deserializeReceipt", withField("logs"))
	}
	logs, err := stringArrayFromTree(logsTree)
	if err != nil {
		return Receipt{}, err
	}
	debug := ""
	if d, ok := m["debug"]; ok {
		db, ok := d.([]byte)
		if !ok {
			return Receipt{}, newErr(KindProtocol, "deserializeReceipt", withField("debug"))
		}
		debug = string(db)
	}
	return Receipt{
		Status:         ReceiptStatus(statusN),
		InitialStorage: initial,
		FinalStorage:   final,
		Logs:           logs,
		Debug:          debug,
	}, nil
}

// arrayTree encodes an ordered list as the index-keyed mapping
// {"0": v0, "1": v1, ...} spec.md §4.3 describes.
func arrayTree[T any](items []T, encode func(T) map[string]any) map[string]any {
	out := make(map[string]any, len(items))
	for i, it := range items {
		out[strconv.Itoa(i)] = encode(it)
	}
	return out
}

func arrayFromTree[T any](tree map[string]any, decode func(map[string]any) (T, error)) ([]T, error) {
	idx := sortedIntKeys(tree)
	out := make([]T, 0, len(idx))
	for _, i := range idx {
		m, ok := tree[strconv.Itoa(i)].(map[string]any)
		if !ok {
			return nil, newErr(KindProtocol, "arrayFromTree", withField(strconv.Itoa(i)))
		}
		v, err := decode(m)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func stringArrayTree(items []string) map[string]any {
	out := make(map[string]any, len(items))
	for i, s := range items {
		out[strconv.Itoa(i)] = []byte(s)
	}
	return out
}

func stringArrayFromTree(tree map[string]any) ([]string, error) {
	idx := sortedIntKeys(tree)
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		b, ok := tree[strconv.Itoa(i)].([]byte)
		if !ok {
			return nil, newErr(KindProtocol, "stringArrayFromTree", withField(strconv.Itoa(i)))
		}
		out = append(out, string(b))
	}
	return out, nil
}

func sortedIntKeys(tree map[string]any) []int {
	out := make([]int, 0, len(tree))
	for k := range tree {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func leafString(m map[string]any, key string) (string, error) {
	b, ok := m[key].([]byte)
	if !ok {
		return "", newErr(KindProtocol, "leafString", withField(key))
	}
	return string(b), nil
}

func leafUint(m map[string]any, key string) (uint64, error) {
	s, err := leafString(m, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, newErr(KindProtocol, "leafUint", withField(key), withErr(err))
	}
	return n, nil
}

func leafHash(m map[string]any, key string) (Hash, error) {
	lr, ok := m[key].(LinkRef)
	if !ok {
		return "", newErr(KindProtocol, "leafHash", withField(key))
	}
	return lr.Hash, nil
}
