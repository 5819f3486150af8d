package core

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"

	secp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
	"google.golang.org/protobuf/encoding/protowire"
)

// Invocation is the pure intent portion of a transaction: a function name
// plus its arguments — spec.md GLOSSARY / §3.
type Invocation struct {
	Function string
	Args     []string
}

const (
	fieldInvocationFunction = 1
	fieldInvocationArgs     = 2
)

// EncodeInvocation produces the deterministic protobuf serialization of an
// Invocation. It is exactly the payload a Transaction's signature covers —
// spec.md §4.4.
func EncodeInvocation(inv Invocation) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldInvocationFunction, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(inv.Function))
	for _, a := range inv.Args {
		b = protowire.AppendTag(b, fieldInvocationArgs, protowire.BytesType)
		b = protowire.AppendBytes(b, []byte(a))
	}
	return b
}

// KeyPair holds raw secp256k1 key material: a 33-byte compressed public key
// and a 32-byte private scalar.
type KeyPair struct {
	Public  []byte
	Private []byte
}

// Signature is a detached ECDSA signature plus the public key that produced
// it, matching spec.md §3's Transaction.signature shape.
type Signature struct {
	Sig []byte // 64 bytes: R(32) || S(32)
	Pub []byte // 33-byte compressed public key
}

// GenerateKeyPair creates a new secp256k1 keypair.
func GenerateKeyPair() (KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return KeyPair{}, newErr(KindOther, "GenerateKeyPair", withErr(err))
	}
	return KeyPair{
		Public:  priv.PubKey().SerializeCompressed(),
		Private: priv.Serialize(),
	}, nil
}

// KeyPairFromPrivate derives the full keypair (including the compressed
// public key) from a raw 32-byte private scalar.
func KeyPairFromPrivate(private []byte) KeyPair {
	priv := secp256k1.PrivKeyFromBytes(private)
	return KeyPair{
		Public:  priv.PubKey().SerializeCompressed(),
		Private: private,
	}
}

// Sign computes an ECDSA secp256k1 signature over sha256(data).
func Sign(data []byte, kp KeyPair) (Signature, error) {
	priv := secp256k1.PrivKeyFromBytes(kp.Private)
	digest := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, priv.ToECDSA(), digest[:])
	if err != nil {
		return Signature{}, newErr(KindOther, "Sign", withErr(err))
	}
	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return Signature{Sig: sig, Pub: kp.Public}, nil
}

// VerifySignature checks sig against sha256(data) and returns the signing
// public key on success, or a KindInvalidSignature error.
func VerifySignature(data []byte, sig Signature) ([]byte, error) {
	if len(sig.Sig) != 64 {
		return nil, newErr(KindInvalidSignature, "VerifySignature", withField("malformed signature"))
	}
	pub, err := secp256k1.ParsePubKey(sig.Pub)
	if err != nil {
		return nil, newErr(KindInvalidSignature, "VerifySignature", withErr(err))
	}
	r := new(big.Int).SetBytes(sig.Sig[:32])
	s := new(big.Int).SetBytes(sig.Sig[32:])
	digest := sha256.Sum256(data)
	if !ecdsa.Verify(pub.ToECDSA(), digest[:], r, s) {
		return nil, newErr(KindInvalidSignature, "VerifySignature")
	}
	return sig.Pub, nil
}

// pkixPublicKey mirrors crypto/x509/pkix's SubjectPublicKeyInfo shape. We
// decode at this level rather than via x509.ParsePKIXPublicKey because that
// helper only recognizes the named curves it has built in, and secp256k1 is
// not one of them — see DESIGN.md for why no pack library improves on
// encoding/asn1 for this generic, curve-agnostic unwrap.
type pkixPublicKey struct {
	Algo      pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

// DecodeDERPublicKey extracts the raw EC point from a DER-encoded
// SubjectPublicKeyInfo, independent of which curve OID it names.
func DecodeDERPublicKey(der []byte) ([]byte, error) {
	var spki pkixPublicKey
	if _, err := asn1.Unmarshal(der, &spki); err != nil {
		return nil, newErr(KindProtocol, "DecodeDERPublicKey", withErr(err))
	}
	return spki.PublicKey.RightAlign(), nil
}
