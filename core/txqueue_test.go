package core

import (
	"context"
	"testing"
)

func TestQueueThenDrainForBlock(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	root, err := s.New(ctx)
	if err != nil {
		t.Fatal(err)
	}

	root, err = Queue(ctx, s, root, 5, "owner-a", Invocation{Function: "spawn", Args: []string{"1"}})
	if err != nil {
		t.Fatalf("Queue first: %v", err)
	}
	root, err = Queue(ctx, s, root, 5, "owner-b", Invocation{Function: "spawn", Args: []string{"2"}})
	if err != nil {
		t.Fatalf("Queue second: %v", err)
	}

	txs, err := DrainForBlock(ctx, s, root, 5)
	if err != nil {
		t.Fatalf("DrainForBlock: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("len(txs) = %d, want 2", len(txs))
	}
	if txs[0].Owner != "owner-a" || txs[0].Invocation.Args[0] != "1" {
		t.Errorf("txs[0] = %+v, want owner-a/1", txs[0])
	}
	if txs[1].Owner != "owner-b" || txs[1].Invocation.Args[0] != "2" {
		t.Errorf("txs[1] = %+v, want owner-b/2", txs[1])
	}
}

func TestDrainForBlockEmptyIsNilNotError(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	root, err := s.New(ctx)
	if err != nil {
		t.Fatal(err)
	}

	txs, err := DrainForBlock(ctx, s, root, 99)
	if err != nil {
		t.Fatalf("DrainForBlock on empty queue: %v, want nil error", err)
	}
	if len(txs) != 0 {
		t.Fatalf("len(txs) = %d, want 0", len(txs))
	}
}

func TestQueueOrdersByBlockNumber(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	root, err := s.New(ctx)
	if err != nil {
		t.Fatal(err)
	}

	root, err = Queue(ctx, s, root, 1, "owner-block1", Invocation{Function: "noop"})
	if err != nil {
		t.Fatal(err)
	}
	root, err = Queue(ctx, s, root, 2, "owner-block2", Invocation{Function: "noop"})
	if err != nil {
		t.Fatal(err)
	}

	txs1, err := DrainForBlock(ctx, s, root, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs1) != 1 || txs1[0].Owner != "owner-block1" {
		t.Errorf("block 1 queue = %+v", txs1)
	}

	txs2, err := DrainForBlock(ctx, s, root, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs2) != 1 || txs2[0].Owner != "owner-block2" {
		t.Errorf("block 2 queue = %+v", txs2)
	}
}
