package core

import (
	"context"
	"sync"
)

// MemDAGClient is a self-contained, in-process implementation of DAGClient.
// It is used by Daisy's own tests (SPEC_FULL.md §8); cmd/daisy always wires
// HTTPDAGClient, so a running node does not use it.
type MemDAGClient struct {
	mu      sync.Mutex
	objects map[Hash][]byte
	names   map[string]Hash
}

// NewMemDAGClient returns an empty in-memory adapter.
func NewMemDAGClient() *MemDAGClient {
	return &MemDAGClient{
		objects: make(map[Hash][]byte),
		names:   make(map[string]Hash),
	}
}

func (c *MemDAGClient) put(n Node) (Hash, error) {
	raw := encodeNode(n)
	h, err := hashBytes(raw)
	if err != nil {
		return "", err
	}
	c.objects[h] = raw
	return h, nil
}

func (c *MemDAGClient) ObjectNew(ctx context.Context) (Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.put(Node{Data: emptyData})
}

func (c *MemDAGClient) ObjectPut(ctx context.Context, data []byte, createIntermediates bool) (Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.put(Node{Data: append([]byte(nil), data...)})
}

func (c *MemDAGClient) get(h Hash) (Node, error) {
	raw, ok := c.objects[h]
	if !ok {
		return Node{}, newErr(KindNotFound, "ObjectGet", withPath(string(h)))
	}
	return decodeNode(raw)
}

func (c *MemDAGClient) ObjectPatchAddLink(ctx context.Context, root Hash, path string, child Hash, createIntermediates bool) (Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	segs := splitPath(path)
	if len(segs) == 0 {
		return child, nil
	}
	return c.addLinkRecursive(root, segs, child)
}

func (c *MemDAGClient) addLinkRecursive(root Hash, segs []string, child Hash) (Hash, error) {
	var node Node
	if !root.Empty() {
		var err error
		node, err = c.get(root)
		if err != nil {
			if !IsNotFound(err) {
				return "", err
			}
			node = Node{Data: emptyData}
		}
	} else {
		node = Node{Data: emptyData}
	}

	name := segs[0]
	var targetChild Hash
	if len(segs) > 1 {
		for _, l := range node.Links {
			if l.Name == name {
				targetChild = l.Hash
				break
			}
		}
		newChild, err := c.addLinkRecursive(targetChild, segs[1:], child)
		if err != nil {
			return "", err
		}
		targetChild = newChild
	} else {
		targetChild = child
	}

	newLinks := make([]Link, 0, len(node.Links)+1)
	replaced := false
	for _, l := range node.Links {
		if l.Name == name {
			newLinks = append(newLinks, Link{Name: name, Hash: targetChild})
			replaced = true
			continue
		}
		newLinks = append(newLinks, l)
	}
	if !replaced {
		newLinks = append(newLinks, Link{Name: name, Hash: targetChild})
	}
	if len(node.Data) == 0 {
		node.Data = emptyData
	}
	return c.put(Node{Data: node.Data, Links: newLinks})
}

func (c *MemDAGClient) ObjectGet(ctx context.Context, hash Hash) (Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(hash)
}

func (c *MemDAGClient) ObjectGetProtobuf(ctx context.Context, hash Hash) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.objects[hash]
	if !ok {
		return nil, newErr(KindNotFound, "ObjectGetProtobuf", withPath(string(hash)))
	}
	return raw, nil
}

func (c *MemDAGClient) Publish(ctx context.Context, key string, targetHash Hash) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[key] = targetHash
	return nil
}

func (c *MemDAGClient) Resolve(ctx context.Context, name string) (Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.names[name]
	if !ok {
		return "", newErr(KindNotFound, "Resolve", withPath(name))
	}
	return h, nil
}
