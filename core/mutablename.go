package core

import (
	"context"
	"sync"
)

// Publisher is a single-writer guard around the mutable-name service: it
// serializes publish calls so they stay strictly ordered with respect to
// the mints that produce their target hashes — spec.md §4.8/§5.
type Publisher struct {
	mu     sync.Mutex
	client DAGClient
	key    string
}

// NewPublisher wires a Publisher over client, publishing under key (the
// configured ipfs_key).
func NewPublisher(client DAGClient, key string) *Publisher {
	return &Publisher{client: client, key: key}
}

// Publish updates the mutable name to point at root.
func (p *Publisher) Publish(ctx context.Context, root Hash) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client.Publish(ctx, p.key, root)
}

// Resolve dereferences the mutable name to its current root hash. A
// not-yet-published name is reported as a KindNotFound error, distinct
// from a transport failure — the follower loop treats that as a soft case.
func Resolve(ctx context.Context, client DAGClient, key string) (Hash, error) {
	return client.Resolve(ctx, key)
}
