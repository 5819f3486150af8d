package core

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	inv := Invocation{Function: "test", Args: []string{"1", "2"}}
	payload := EncodeInvocation(inv)

	sig, err := Sign(payload, kp)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	pub, err := VerifySignature(payload, sig)
	if err != nil {
		t.Fatalf("VerifySignature: %v, want ok", err)
	}
	if string(pub) != string(kp.Public) {
		t.Errorf("recovered pub = %x, want %x", pub, kp.Public)
	}
}

func TestVerifySignatureRejectsMutatedPublicKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	payload := EncodeInvocation(Invocation{Function: "test", Args: []string{"1", "2"}})
	sig, err := Sign(payload, kp)
	if err != nil {
		t.Fatal(err)
	}

	mutatedPub := append([]byte(nil), sig.Pub...)
	mutatedPub[0] ^= 0xFF
	mutated := Signature{Sig: sig.Sig, Pub: mutatedPub}

	if _, err := VerifySignature(payload, mutated); err == nil {
		t.Fatal("VerifySignature with mutated public key = nil error, want invalid_signature")
	}
}

func TestVerifySignatureRejectsMutatedPayload(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	payload := EncodeInvocation(Invocation{Function: "test", Args: []string{"1", "2"}})
	sig, err := Sign(payload, kp)
	if err != nil {
		t.Fatal(err)
	}

	tampered := append([]byte(nil), payload...)
	tampered[0] ^= 0xFF

	if _, err := VerifySignature(tampered, sig); err == nil {
		t.Fatal("VerifySignature of mutated payload = nil error, want invalid_signature")
	}
}

func TestEncodeInvocationDeterministic(t *testing.T) {
	a := EncodeInvocation(Invocation{Function: "spawn", Args: []string{"10", "20"}})
	b := EncodeInvocation(Invocation{Function: "spawn", Args: []string{"10", "20"}})
	if string(a) != string(b) {
		t.Fatalf("EncodeInvocation not deterministic: %x != %x", a, b)
	}
}

func TestKeyPairFromPrivateMatchesGenerated(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	derived := KeyPairFromPrivate(kp.Private)
	if string(derived.Public) != string(kp.Public) {
		t.Fatalf("KeyPairFromPrivate public = %x, want %x", derived.Public, kp.Public)
	}
}
