package core

import (
	"context"
	"testing"
)

func TestProofVerifyRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	root, _ := s.New(ctx)
	root, err := s.Put(ctx, root, "football/players/id42", []byte("name:johnny"))
	if err != nil {
		t.Fatal(err)
	}

	proof, err := s.Proof(ctx, root, "football/players/id42")
	if err != nil {
		t.Fatalf("Proof: %v", err)
	}

	if err := Verify(root, "football/players/id42", []byte("name:johnny"), proof); err != nil {
		t.Fatalf("Verify: %v, want qed", err)
	}
}

func TestProofVerifyRejectsWrongPath(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	root, _ := s.New(ctx)
	root, _ = s.Put(ctx, root, "football/players/id42", []byte("name:johnny"))
	proof, err := s.Proof(ctx, root, "football/players/id42")
	if err != nil {
		t.Fatal(err)
	}

	err = Verify(root, "football/coaches/id42", []byte("name:johnny"), proof)
	e, ok := err.(*Error)
	if !ok || e.Kind != KindInvalidProof || e.Field != "coaches" {
		t.Fatalf("Verify wrong path = %v, want invalid_proof{coaches}", err)
	}
}

func TestProofVerifyRejectsWrongValue(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	root, _ := s.New(ctx)
	root, _ = s.Put(ctx, root, "football/players/id42", []byte("name:johnny"))
	proof, err := s.Proof(ctx, root, "football/players/id42")
	if err != nil {
		t.Fatal(err)
	}

	err = Verify(root, "football/players/id42", []byte("name:wrongvalue"), proof)
	if !errIsKind(err, KindInvalidProof) {
		t.Fatalf("Verify wrong value = %v, want invalid_proof", err)
	}
}

func TestProofVerifyRejectsMutatedProofByte(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	root, _ := s.New(ctx)
	root, _ = s.Put(ctx, root, "a/b/c", []byte("value"))
	proof, err := s.Proof(ctx, root, "a/b/c")
	if err != nil {
		t.Fatal(err)
	}

	mutated := make([][]byte, len(proof))
	for i, p := range proof {
		mutated[i] = append([]byte(nil), p...)
	}
	mutated[len(mutated)-1][0] ^= 0xFF

	if err := Verify(root, "a/b/c", []byte("value"), mutated); err == nil {
		t.Fatal("Verify with mutated top proof entry = nil, want an error")
	}
}

func TestProofVerifyRejectsWrongRoot(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	root, _ := s.New(ctx)
	root, _ = s.Put(ctx, root, "a/b", []byte("v"))
	proof, err := s.Proof(ctx, root, "a/b")
	if err != nil {
		t.Fatal(err)
	}

	err = Verify("bogus-root-hash", "a/b", []byte("v"), proof)
	if !errIsKind(err, KindInvalidProof) {
		t.Fatalf("Verify wrong root = %v, want invalid_proof", err)
	}
}
