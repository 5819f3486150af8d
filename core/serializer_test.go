package core

import (
	"context"
	"testing"
)

func TestSerializeDeserializeBlockRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	empty, _ := s.New(ctx)

	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	inv := Invocation{Function: "spawn", Args: []string{"10"}}
	sig, err := Sign(EncodeInvocation(inv), kp)
	if err != nil {
		t.Fatal(err)
	}
	parentHash, err := s.Save(ctx, []byte("parent block bytes"))
	if err != nil {
		t.Fatal(err)
	}

	block := Block{
		BlockNumber:     1,
		ParentBlockHash: parentHash,
		InitialStorage:  empty,
		FinalStorage:    empty,
		Transactions: []Transaction{
			{Invocation: inv, Signature: &sig},
			{Invocation: Invocation{Function: "queued", Args: nil}, Owner: "owner-bytes"},
		},
		Receipts: []Receipt{
			{Status: StatusOK, InitialStorage: empty, FinalStorage: empty, Logs: []string{"ok"}},
			{Status: StatusError, InitialStorage: empty, FinalStorage: empty, Debug: "boom"},
		},
	}

	root, err := s.PutAll(ctx, empty, SerializeBlock(block))
	if err != nil {
		t.Fatalf("PutAll: %v", err)
	}
	tree, err := s.GetAll(ctx, root, "")
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	got, err := DeserializeBlock(tree)
	if err != nil {
		t.Fatalf("DeserializeBlock: %v", err)
	}

	if got.BlockNumber != block.BlockNumber {
		t.Errorf("BlockNumber = %d, want %d", got.BlockNumber, block.BlockNumber)
	}
	if got.ParentBlockHash != block.ParentBlockHash {
		t.Errorf("ParentBlockHash = %q, want %q", got.ParentBlockHash, block.ParentBlockHash)
	}
	if len(got.Transactions) != 2 {
		t.Fatalf("Transactions = %d, want 2", len(got.Transactions))
	}
	if got.Transactions[0].Invocation.Function != "spawn" || got.Transactions[0].Invocation.Args[0] != "10" {
		t.Errorf("tx0 invocation = %+v", got.Transactions[0].Invocation)
	}
	if got.Transactions[0].Signature == nil || string(got.Transactions[0].Signature.Sig) != string(sig.Sig) {
		t.Errorf("tx0 signature mismatch")
	}
	if got.Transactions[1].Owner != "owner-bytes" {
		t.Errorf("tx1 owner = %q, want owner-bytes", got.Transactions[1].Owner)
	}
	if len(got.Receipts) != 2 || got.Receipts[0].Logs[0] != "ok" || got.Receipts[1].Debug != "boom" {
		t.Errorf("receipts round trip mismatch: %+v", got.Receipts)
	}
}

func TestDeserializeTransactionRejectsBothSignatureAndOwner(t *testing.T) {
	m := map[string]any{
		"function":   []byte("f"),
		"args":       map[string]any{},
		"signature":  []byte("sig"),
		"public_key": []byte("pub"),
		"owner":      []byte("owner"),
	}
	if _, err := deserializeTransaction(m); err == nil {
		t.Fatal("deserializeTransaction with both signature and owner = nil error")
	}
}

func TestDeserializeTransactionRejectsNeitherSignatureNorOwner(t *testing.T) {
	m := map[string]any{
		"function": []byte("f"),
		"args":     map[string]any{},
	}
	if _, err := deserializeTransaction(m); err == nil {
		t.Fatal("deserializeTransaction with neither signature nor owner = nil error")
	}
}
