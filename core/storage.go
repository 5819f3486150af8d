package core

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// LinkRef is a bulk-write value that stores a reference to an existing
// object rather than new leaf bytes — SPEC_FULL.md §3 "Link values".
type LinkRef struct {
	Hash Hash
}

const linkSuffix = "_link"

// LsEntry is one direct child of a node, as returned by Storage.Ls.
type LsEntry struct {
	Name string
	Hash Hash
}

// UpdateOptions configures Storage.Update's behaviour when the path is
// absent.
type UpdateOptions struct {
	Default             []byte
	ApplyFuncOnDefault bool
}

// Storage is the path-addressed layer over a MerkleDAG client described in
// spec.md §4.1. It is stateless given a root: every method takes a root hash
// and, for writes, returns a new one. Single-writer serialization of root
// evolution is the Tracker's responsibility, not Storage's.
type Storage struct {
	client DAGClient
	log    *logrus.Entry
}

// NewStorage wires a Storage instance over client.
func NewStorage(client DAGClient, log *logrus.Logger) *Storage {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Storage{client: client, log: log.WithField("component", "storage")}
}

// New returns the empty-root sentinel.
func (s *Storage) New(ctx context.Context) (Hash, error) {
	return s.client.ObjectNew(ctx)
}

// walkResult captures the outcome of descending a path link-by-link, as
// described in spec.md §4.1 "Walk algorithm".
type walkResult struct {
	remaining     []string
	matchedPrefix []string
	hashes        []Hash // hashes[0] == starting root, one per matched segment thereafter
	reached       Hash
}

func (s *Storage) walk(ctx context.Context, root Hash, segs []string) (walkResult, error) {
	cur := root
	hashes := []Hash{cur}
	for i, seg := range segs {
		node, err := s.client.ObjectGet(ctx, cur)
		if err != nil {
			if IsNotFound(err) {
				return walkResult{remaining: segs[i:], matchedPrefix: segs[:i], hashes: hashes, reached: cur}, nil
			}
			return walkResult{}, err
		}
		found := false
		for _, l := range node.Links {
			if l.Name == seg {
				cur = l.Hash
				found = true
				break
			}
		}
		if !found {
			return walkResult{remaining: segs[i:], matchedPrefix: segs[:i], hashes: hashes, reached: cur}, nil
		}
		hashes = append(hashes, cur)
	}
	return walkResult{remaining: nil, matchedPrefix: segs, hashes: hashes, reached: cur}, nil
}

// Get resolves path under root and returns the bytes stored there.
func (s *Storage) Get(ctx context.Context, root Hash, path string) ([]byte, error) {
	segs := splitPath(path)
	wr, err := s.walk(ctx, root, segs)
	if err != nil {
		return nil, err
	}
	if len(wr.remaining) > 0 {
		return nil, newErr(KindNotFound, "Get", withPath(path))
	}
	node, err := s.client.ObjectGet(ctx, wr.reached)
	if err != nil {
		return nil, err
	}
	return node.Data, nil
}

// GetHash resolves path under root and returns the hash reached, without
// fetching its contents.
func (s *Storage) GetHash(ctx context.Context, root Hash, path string) (Hash, error) {
	segs := splitPath(path)
	wr, err := s.walk(ctx, root, segs)
	if err != nil {
		return "", err
	}
	if len(wr.remaining) > 0 {
		return "", newErr(KindNotFound, "GetHash", withPath(path))
	}
	return wr.reached, nil
}

// Put writes bytes as a new object and patches root's path to reference it,
// creating intermediate nodes as needed.
func (s *Storage) Put(ctx context.Context, root Hash, path string, data []byte) (Hash, error) {
	child, err := s.client.ObjectPut(ctx, data, true)
	if err != nil {
		return "", err
	}
	newRoot, err := s.client.ObjectPatchAddLink(ctx, root, path, child, true)
	if err != nil {
		return "", err
	}
	return newRoot, nil
}

// PutNew behaves like Put but fails if path is already occupied.
func (s *Storage) PutNew(ctx context.Context, root Hash, path string, data []byte) (Hash, error) {
	_, err := s.Get(ctx, root, path)
	if err == nil {
		return "", newErr(KindFileExists, "PutNew", withPath(path))
	}
	if !IsNotFound(err) {
		return "", err
	}
	return s.Put(ctx, root, path, data)
}

// Update applies f to the current value at path (or stores a default when
// absent), per spec.md §4.1.
func (s *Storage) Update(ctx context.Context, root Hash, path string, f func([]byte) []byte, opts UpdateOptions) (Hash, error) {
	cur, err := s.Get(ctx, root, path)
	if err == nil {
		return s.Put(ctx, root, path, f(cur))
	}
	if !IsNotFound(err) {
		return "", err
	}
	val := opts.Default
	if opts.ApplyFuncOnDefault {
		val = f(opts.Default)
	}
	return s.Put(ctx, root, path, val)
}

// Ls returns the direct children of the node at path; an absent path yields
// an empty list rather than an error.
func (s *Storage) Ls(ctx context.Context, root Hash, path string) ([]LsEntry, error) {
	segs := splitPath(path)
	wr, err := s.walk(ctx, root, segs)
	if err != nil {
		return nil, err
	}
	if len(wr.remaining) > 0 {
		return nil, nil
	}
	node, err := s.client.ObjectGet(ctx, wr.reached)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]LsEntry, 0, len(node.Links))
	for _, l := range node.Links {
		out = append(out, LsEntry{Name: l.Name, Hash: l.Hash})
	}
	return out, nil
}

// PutAll recursively merges values_tree into root. Values may be []byte
// (leaf), LinkRef (stored as a "<key>_link" reference, not recursed into),
// map[string]any (nested, merged against any existing child), or nil
// (skipped). Keys are written in lexicographic order so identical logical
// trees always produce identical root hashes (spec.md §9).
func (s *Storage) PutAll(ctx context.Context, root Hash, tree map[string]any) (Hash, error) {
	cur := root
	for _, key := range sortedKeys(tree) {
		val := tree[key]
		switch v := val.(type) {
		case nil:
			continue
		case []byte:
			newRoot, err := s.Put(ctx, cur, key, v)
			if err != nil {
				return "", err
			}
			cur = newRoot
		case LinkRef:
			newRoot, err := s.client.ObjectPatchAddLink(ctx, cur, key+linkSuffix, v.Hash, true)
			if err != nil {
				return "", err
			}
			cur = newRoot
		case map[string]any:
			existingChild, err := s.GetHash(ctx, cur, key)
			if err != nil {
				if !IsNotFound(err) {
					return "", err
				}
				existingChild = ""
			}
			newChild, err := s.PutAll(ctx, existingChild, v)
			if err != nil {
				return "", err
			}
			newRoot, err := s.client.ObjectPatchAddLink(ctx, cur, key, newChild, true)
			if err != nil {
				return "", err
			}
			cur = newRoot
		default:
			return "", newErr(KindProtocol, "PutAll", withField("unsupported value type"))
		}
	}
	return cur, nil
}

// GetAll is the inverse of PutAll: a "_link"-suffixed link becomes a tagged
// LinkRef and is not recursed into; any other non-leaf name recurses.
func (s *Storage) GetAll(ctx context.Context, root Hash, path string) (map[string]any, error) {
	hash := root
	if path != "" {
		h, err := s.GetHash(ctx, root, path)
		if err != nil {
			return nil, err
		}
		hash = h
	}
	return s.buildTree(ctx, hash)
}

func (s *Storage) buildTree(ctx context.Context, hash Hash) (map[string]any, error) {
	node, err := s.client.ObjectGet(ctx, hash)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(node.Links))
	for _, l := range node.Links {
		if strings.HasSuffix(l.Name, linkSuffix) {
			key := strings.TrimSuffix(l.Name, linkSuffix)
			out[key] = LinkRef{Hash: l.Hash}
			continue
		}
		if l.Hash.Empty() {
			// PutAll links an empty nested map with no child object.
			out[l.Name] = map[string]any{}
			continue
		}
		childNode, err := s.client.ObjectGet(ctx, l.Hash)
		if err != nil {
			return nil, err
		}
		if len(childNode.Links) == 0 {
			out[l.Name] = childNode.Data
			continue
		}
		sub, err := s.buildTree(ctx, l.Hash)
		if err != nil {
			return nil, err
		}
		out[l.Name] = sub
	}
	return out, nil
}

// Save stores raw bytes as a new leaf object.
func (s *Storage) Save(ctx context.Context, data []byte) (Hash, error) {
	return s.client.ObjectPut(ctx, data, true)
}

// Retrieve returns the bytes stored at hash.
func (s *Storage) Retrieve(ctx context.Context, hash Hash) ([]byte, error) {
	node, err := s.client.ObjectGet(ctx, hash)
	if err != nil {
		return nil, err
	}
	return node.Data, nil
}

// Proof returns an ordered [leaf, ..., root] list of raw protobuf node bytes
// sufficient for Verify to recompute the path from leaf to root.
func (s *Storage) Proof(ctx context.Context, root Hash, path string) ([][]byte, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		raw, err := s.client.ObjectGetProtobuf(ctx, root)
		if err != nil {
			return nil, err
		}
		return [][]byte{raw}, nil
	}
	hashes := []Hash{root}
	cur := root
	for _, seg := range segs {
		node, err := s.client.ObjectGet(ctx, cur)
		if err != nil {
			return nil, err
		}
		found := false
		for _, l := range node.Links {
			if l.Name == seg {
				cur = l.Hash
				found = true
				break
			}
		}
		if !found {
			return nil, newErr(KindNotFound, "Proof", withPath(path))
		}
		hashes = append(hashes, cur)
	}
	proof := make([][]byte, len(hashes))
	for i, h := range hashes {
		raw, err := s.client.ObjectGetProtobuf(ctx, h)
		if err != nil {
			return nil, err
		}
		proof[len(hashes)-1-i] = raw
	}
	return proof, nil
}
