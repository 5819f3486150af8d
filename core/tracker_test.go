package core

import (
	"context"
	"testing"
)

func newTestTracker(t *testing.T, mode Mode) (*Tracker, *Storage, Block) {
	t.Helper()
	ctx := context.Background()
	s := newTestStorage(t)
	processor := NewProcessor(s, echoRunner{})
	verifier := NewChainVerifier(s, processor)
	g, err := Genesis(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	return NewTracker(s, processor, verifier, echoReader{}, mode, g, nil), s, g
}

func TestTrackerLeaderMintFlow(t *testing.T) {
	ctx := context.Background()
	tracker, _, _ := newTestTracker(t, ModeLeader)

	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	inv := Invocation{Function: "put", Args: []string{"greeting", "hello"}}
	sig, err := Sign(EncodeInvocation(inv), kp)
	if err != nil {
		t.Fatal(err)
	}
	if err := tracker.AddTransaction(Transaction{Invocation: inv, Signature: &sig}); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	hash, err := tracker.MintCurrentBlock(ctx)
	if err != nil {
		t.Fatalf("MintCurrentBlock: %v", err)
	}
	if hash == "" {
		t.Fatal("empty block hash")
	}

	got, err := tracker.Read(ctx, Invocation{Function: "get", Args: []string{"greeting"}})
	if err != nil {
		t.Fatalf("Read after mint: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Read = %q, want hello", got)
	}
}

func TestTrackerFollowerRejectsLeaderOnlyOps(t *testing.T) {
	ctx := context.Background()
	tracker, _, _ := newTestTracker(t, ModeFollower)

	if err := tracker.AddTransaction(Transaction{Owner: "x"}); err == nil {
		t.Fatal("AddTransaction on follower = nil error")
	}
	if _, err := tracker.MintCurrentBlock(ctx); err == nil {
		t.Fatal("MintCurrentBlock on follower = nil error")
	}
}

func TestTrackerLeaderRejectsFollowerOnlyOps(t *testing.T) {
	ctx := context.Background()
	tracker, _, g := newTestTracker(t, ModeLeader)

	if err := tracker.AdoptBlock(ctx, g); err == nil {
		t.Fatal("AdoptBlock on leader = nil error")
	}
}

func TestTrackerFollowerAdoptsValidBlock(t *testing.T) {
	ctx := context.Background()
	followerTracker, followerStorage, g := newTestTracker(t, ModeFollower)

	processor := NewProcessor(followerStorage, echoRunner{})
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	inv := Invocation{Function: "put", Args: []string{"k", "v"}}
	sig, err := Sign(EncodeInvocation(inv), kp)
	if err != nil {
		t.Fatal(err)
	}
	parentHash, err := processor.Save(ctx, g)
	if err != nil {
		t.Fatalf("Save genesis: %v", err)
	}
	draft := g
	draft.BlockNumber = g.BlockNumber + 1
	draft.ParentBlockHash = parentHash
	draft.InitialStorage = g.FinalStorage
	draft.Transactions = []Transaction{{Invocation: inv, Signature: &sig}}

	processed, err := processor.Process(ctx, draft)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := processor.Save(ctx, processed); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := followerTracker.AdoptBlock(ctx, processed); err != nil {
		t.Fatalf("AdoptBlock: %v", err)
	}
	if followerTracker.GetBlock().BlockNumber != 1 {
		t.Errorf("GetBlock().BlockNumber = %d, want 1", followerTracker.GetBlock().BlockNumber)
	}
}

func TestTrackerFollowerRejectsMutatedBlock(t *testing.T) {
	ctx := context.Background()
	followerTracker, followerStorage, g := newTestTracker(t, ModeFollower)

	processor := NewProcessor(followerStorage, echoRunner{})
	draft := g
	draft.BlockNumber = g.BlockNumber + 1
	draft.ParentBlockHash = "placeholder"
	draft.InitialStorage = g.FinalStorage
	draft.Transactions = []Transaction{{Invocation: Invocation{Function: "put", Args: []string{"k", "v"}}, Owner: "system"}}

	processed, err := processor.Process(ctx, draft)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	mutated := processed
	mutated.FinalStorage = "bogus-final-storage-hash"

	if err := followerTracker.AdoptBlock(ctx, mutated); err == nil {
		t.Fatal("AdoptBlock with mutated final_storage = nil error")
	}
}
