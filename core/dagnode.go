package core

import (
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Link is a named edge from a DAG node to a child object. Size is advisory
// (the cumulative size of the referenced subtree) and is never used for
// addressing or verification.
type Link struct {
	Name string
	Hash Hash
	Size uint64
}

// Node is a MerkleDAG object: opaque data plus an ordered list of named
// links, addressed by sha256-of-protobuf-encoding — SPEC_FULL.md §3.
type Node struct {
	Data  []byte
	Links []Link
}

// emptyData is the two-byte sentinel intermediate nodes carry; empty bytes
// must also be accepted on read (SPEC_FULL.md / spec.md §3).
var emptyData = []byte{0x08, 0x01}

const (
	fieldNodeData  = 1
	fieldNodeLinks = 2

	fieldLinkHash = 1
	fieldLinkName = 2
	fieldLinkSize = 3
)

// encodeNode renders a Node to its canonical protobuf wire form. Links are
// written in their given order — callers that need determinism (put_all)
// sort before constructing the Node. A link's Hash field is stored on the
// wire as raw multihash bytes (not its printable CID form) so the Prover's
// byte-for-byte comparison in spec.md §4.2 works without any decoding step.
func encodeNode(n Node) []byte {
	b, err := encodeNodeErr(n)
	if err != nil {
		// Hash values constructed by this package are always valid CIDs;
		// a failure here means a caller built a Node by hand with a
		// malformed Hash, which is a programmer error.
		panic(err)
	}
	return b
}

func encodeNodeErr(n Node) ([]byte, error) {
	var b []byte
	if len(n.Data) > 0 {
		b = protowire.AppendTag(b, fieldNodeData, protowire.BytesType)
		b = protowire.AppendBytes(b, n.Data)
	}
	for _, l := range n.Links {
		link, err := encodeLink(l)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fieldNodeLinks, protowire.BytesType)
		b = protowire.AppendBytes(b, link)
	}
	return b, nil
}

func encodeLink(l Link) ([]byte, error) {
	mhBytes, err := hashToMultihash(l.Hash)
	if err != nil {
		return nil, newErr(KindProtocol, "encodeLink", withErr(err))
	}
	var b []byte
	b = protowire.AppendTag(b, fieldLinkHash, protowire.BytesType)
	b = protowire.AppendBytes(b, mhBytes)
	b = protowire.AppendTag(b, fieldLinkName, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(l.Name))
	if l.Size != 0 {
		b = protowire.AppendTag(b, fieldLinkSize, protowire.VarintType)
		b = protowire.AppendVarint(b, l.Size)
	}
	return b, nil
}

// decodeNode parses the minimal protobuf wire subset described in
// SPEC_FULL.md §3 / spec.md §4.2: only wire types 0 (varint) and 2
// (length-delimited) are understood; anything else is a protocol error.
// A node carrying one or more links together with data other than the
// two-byte empty sentinel is rejected — spec.md §9's "Node with both data
// and links" decision. Intermediate nodes (sentinel data plus links) pass.
func decodeNode(raw []byte) (Node, error) {
	var n Node
	var sawData, sawLinks bool
	b := raw
	for len(b) > 0 {
		num, typ, n2 := protowire.ConsumeTag(b)
		if n2 < 0 {
			return Node{}, newErr(KindProtocol, "decodeNode", withErr(protowire.ParseError(n2)))
		}
		b = b[n2:]
		switch typ {
		case protowire.BytesType:
			v, n3 := protowire.ConsumeBytes(b)
			if n3 < 0 {
				return Node{}, newErr(KindProtocol, "decodeNode", withErr(protowire.ParseError(n3)))
			}
			b = b[n3:]
			switch num {
			case fieldNodeData:
				n.Data = append([]byte(nil), v...)
				sawData = true
			case fieldNodeLinks:
				link, err := decodeLink(v)
				if err != nil {
					return Node{}, err
				}
				n.Links = append(n.Links, link)
				sawLinks = true
			default:
				return Node{}, newErr(KindProtocol, "decodeNode", withField("unexpected field"))
			}
		case protowire.VarintType:
			_, n3 := protowire.ConsumeVarint(b)
			if n3 < 0 {
				return Node{}, newErr(KindProtocol, "decodeNode", withErr(protowire.ParseError(n3)))
			}
			b = b[n3:]
		default:
			return Node{}, newErr(KindProtocol, "decodeNode", withField("unsupported wire type"))
		}
	}
	if sawData && sawLinks && len(n.Data) > 0 && !isSentinel(n.Data) {
		return Node{}, newErr(KindProtocol, "decodeNode", withField("mixed data+links"))
	}
	return n, nil
}

func decodeLink(raw []byte) (Link, error) {
	var l Link
	b := raw
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Link{}, newErr(KindProtocol, "decodeLink", withErr(protowire.ParseError(n)))
		}
		b = b[n:]
		switch typ {
		case protowire.BytesType:
			v, n2 := protowire.ConsumeBytes(b)
			if n2 < 0 {
				return Link{}, newErr(KindProtocol, "decodeLink", withErr(protowire.ParseError(n2)))
			}
			b = b[n2:]
			switch num {
			case fieldLinkHash:
				h, err := multihashToHash(v)
				if err != nil {
					return Link{}, newErr(KindProtocol, "decodeLink", withErr(err))
				}
				l.Hash = h
			case fieldLinkName:
				l.Name = string(v)
			default:
				return Link{}, newErr(KindProtocol, "decodeLink", withField("unexpected field"))
			}
		case protowire.VarintType:
			v, n2 := protowire.ConsumeVarint(b)
			if n2 < 0 {
				return Link{}, newErr(KindProtocol, "decodeLink", withErr(protowire.ParseError(n2)))
			}
			b = b[n2:]
			if num == fieldLinkSize {
				l.Size = v
			}
		default:
			return Link{}, newErr(KindProtocol, "decodeLink", withField("unsupported wire type"))
		}
	}
	return l, nil
}

func isSentinel(b []byte) bool {
	return len(b) == len(emptyData) && b[0] == emptyData[0] && b[1] == emptyData[1]
}

// sortedKeys returns the keys of a values tree sorted lexicographically, for
// put_all's deterministic write order (spec.md §9).
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
