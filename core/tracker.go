package core

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Mode selects whether a Tracker mints blocks or only validates them.
type Mode int

const (
	ModeLeader Mode = iota
	ModeFollower
)

func (m Mode) String() string {
	if m == ModeLeader {
		return "leader"
	}
	return "follower"
}

// Tracker is the single-writer holder of the chain's current block —
// spec.md §4.7. All state transitions happen under one mutex, matching the
// "single-threaded actor" scheduling model of spec.md §5: callers never see
// partial mutation, and mode-mismatched operations fail fast instead of
// silently doing the wrong thing.
type Tracker struct {
	mu sync.Mutex

	storage   *Storage
	processor *Processor
	verifier  *ChainVerifier
	reader    Reader
	mode      Mode
	log       *logrus.Entry

	open Block // the draft block being built (leader) or the accepted head (follower)
}

// NewTracker wires a Tracker starting from initial (typically the genesis
// block, or a resolved head).
func NewTracker(storage *Storage, processor *Processor, verifier *ChainVerifier, reader Reader, mode Mode, initial Block, log *logrus.Logger) *Tracker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Tracker{
		storage:   storage,
		processor: processor,
		verifier:  verifier,
		reader:    reader,
		mode:      mode,
		open:      initial,
		log:       log.WithField("component", "tracker"),
	}
}

// Mode reports the Tracker's current operating mode.
func (t *Tracker) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// GetBlock returns the open (leader) or most recently accepted (follower)
// block.
func (t *Tracker) GetBlock() Block {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

// AddTransaction appends tx to the open block's draft transaction list.
// Leader-only.
func (t *Tracker) AddTransaction(tx Transaction) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mode != ModeLeader {
		return newErr(KindProtocol, "AddTransaction", withField("leader-only"))
	}
	t.open.Transactions = append(t.open.Transactions, tx)
	return nil
}

// Read routes a query to the Reader over the open block's final storage, or
// its initial storage if no transactions have executed yet.
func (t *Tracker) Read(ctx context.Context, inv Invocation) ([]byte, error) {
	t.mu.Lock()
	root := t.open.FinalStorage
	if root.Empty() {
		root = t.open.InitialStorage
	}
	reader := t.reader
	storage := t.storage
	t.mu.Unlock()

	return reader.Read(ctx, inv, storage, root)
}

// MintCurrentBlock processes and saves the open block, then replaces it
// with the draft for the block that follows. Leader-only.
func (t *Tracker) MintCurrentBlock(ctx context.Context) (Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mode != ModeLeader {
		return "", newErr(KindProtocol, "MintCurrentBlock", withField("leader-only"))
	}

	processed, err := t.processor.Process(ctx, t.open)
	if err != nil {
		return "", err
	}
	hash, err := t.processor.Save(ctx, processed)
	if err != nil {
		return "", err
	}

	next, err := NewBlock(ctx, t.storage, hash, processed, nil)
	if err != nil {
		return "", err
	}
	t.open = next
	return hash, nil
}

// AdoptBlock verifies candidate against the current head and, on success,
// makes it the new head. Follower-only.
func (t *Tracker) AdoptBlock(ctx context.Context, candidate Block) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mode != ModeFollower {
		return newErr(KindProtocol, "AdoptBlock", withField("follower-only"))
	}
	if err := t.verifier.Verify(ctx, t.open, candidate); err != nil {
		return err
	}
	t.open = candidate
	return nil
}
