package core

import (
	"strings"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// Hash is a printable multihash identifier for a MerkleDAG node. Hashes are
// immutable, globally addressable, and compared as opaque strings — see
// SPEC_FULL.md §3.
type Hash string

// Empty reports whether h is the zero-value hash (no object referenced).
func (h Hash) Empty() bool { return h == "" }

func (h Hash) String() string { return string(h) }

// hashBytes computes the content address of data: a sha256 digest wrapped as
// a multihash, rendered as a CIDv0 string. This is the canonical addressing
// scheme described in SPEC_FULL.md §3 ("Wire encoding of a DAG node").
func hashBytes(data []byte) (Hash, error) {
	sum, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	c := cid.NewCidV0(sum)
	return Hash(c.String()), nil
}

// multihashOf returns the raw multihash bytes (0x12 0x20 || digest) for data,
// the exact prefix the Prover must reproduce when walking a proof chain.
func multihashOf(data []byte) ([]byte, error) {
	return mh.Sum(data, mh.SHA2_256, -1)
}

// hashToMultihash converts a CIDv0 Hash to its raw multihash bytes — the
// representation actually stored in a link's wire-level hash field.
func hashToMultihash(h Hash) ([]byte, error) {
	if h.Empty() {
		return nil, nil
	}
	c, err := cid.Decode(string(h))
	if err != nil {
		return nil, err
	}
	return []byte(c.Hash()), nil
}

// multihashToHash is the inverse of hashToMultihash: it renders raw
// multihash bytes back into the printable CIDv0 form used everywhere else
// in the system.
func multihashToHash(b []byte) (Hash, error) {
	if len(b) == 0 {
		return "", nil
	}
	sum, err := mh.Cast(b)
	if err != nil {
		return "", err
	}
	return Hash(cid.NewCidV0(sum).String()), nil
}

// splitPath strips a leading "/" and splits the remainder on "/". An empty
// path (root itself) yields a nil slice, matching SPEC_FULL.md §4.1's "Path
// handling" rule.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func joinPath(segs []string) string {
	return strings.Join(segs, "/")
}
