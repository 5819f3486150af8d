package core

import "bytes"

// Verify performs standalone verification of a Merkle inclusion proof
// against root, path, and an expected leaf value — spec.md §4.2. It uses
// only sha256 and protobuf decoding; there is no network I/O and no
// dependency on a live Storage instance.
//
// proof must be ordered [leaf_node_bytes, ..., root_node_bytes], exactly the
// shape Storage.Proof produces. A nil return means the proof is valid
// ("qed"). Structural failures come back as a *Error with Kind
// KindInvalidProof: Field "data" for a leaf-value mismatch, a path segment
// name for a broken link in the chain, and "root" if the reconstructed top
// hash does not equal the supplied root — spec.md §9 resolves the open
// question of whether the caller's root argument is checked by checking it
// here, since verification is not sound otherwise.
func Verify(root Hash, path string, expectedValue []byte, proof [][]byte) error {
	if len(proof) == 0 {
		return newErr(KindInvalidProof, "Verify", withField("data"))
	}

	leaf, err := decodeNode(proof[0])
	if err != nil {
		return newErr(KindInvalidProof, "Verify", withField("data"), withErr(err))
	}
	if !bytes.Equal(leaf.Data, expectedValue) {
		return newErr(KindInvalidProof, "Verify", withField("data"))
	}

	segs := splitPath(path)
	reversed := make([]string, len(segs))
	for i, s := range segs {
		reversed[len(segs)-1-i] = s
	}

	prevRaw := proof[0]
	for i, seg := range reversed {
		if i+1 >= len(proof) {
			return newErr(KindInvalidProof, "Verify", withField(seg))
		}
		upperRaw := proof[i+1]

		candidate, err := expectedLinkHash(prevRaw)
		if err != nil {
			return newErr(KindInvalidProof, "Verify", withField(seg), withErr(err))
		}
		upper, err := decodeNode(upperRaw)
		if err != nil {
			return newErr(KindInvalidProof, "Verify", withField(seg), withErr(err))
		}
		matched := false
		for _, l := range upper.Links {
			if l.Name == seg && l.Hash == candidate {
				matched = true
				break
			}
		}
		if !matched {
			return newErr(KindInvalidProof, "Verify", withField(seg))
		}
		prevRaw = upperRaw
	}

	finalHash, err := expectedLinkHash(prevRaw)
	if err != nil {
		return newErr(KindInvalidProof, "Verify", withField("root"), withErr(err))
	}
	if finalHash != root {
		return newErr(KindInvalidProof, "Verify", withField("root"))
	}
	return nil
}

// expectedLinkHash computes the printable Hash a parent node's link must
// carry to reference the object whose encoded bytes are raw: sha256(raw)
// wrapped as a multihash.
func expectedLinkHash(raw []byte) (Hash, error) {
	sum, err := multihashOf(raw)
	if err != nil {
		return "", err
	}
	return multihashToHash(sum)
}
