package core

import (
	"context"
	"testing"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	return NewStorage(NewMemDAGClient(), nil)
}

func TestStoragePutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	root, err := s.New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r1, err := s.Put(ctx, root, "players/5/name", []byte("thomas"))
	if err != nil {
		t.Fatalf("Put name: %v", err)
	}
	r2, err := s.Put(ctx, r1, "players/5/age", []byte("55"))
	if err != nil {
		t.Fatalf("Put age: %v", err)
	}

	got, err := s.Get(ctx, r2, "players/5/name")
	if err != nil {
		t.Fatalf("Get name: %v", err)
	}
	if string(got) != "thomas" {
		t.Errorf("Get name = %q, want thomas", got)
	}

	_, err = s.Get(ctx, r2, "players/7/name")
	if !IsNotFound(err) {
		t.Errorf("Get absent player: err = %v, want not_found", err)
	}

	if _, err := s.PutNew(ctx, r2, "players/5/name", []byte("x")); !errIsKind(err, KindFileExists) {
		t.Errorf("PutNew existing path: err = %v, want file_exists", err)
	}
}

func TestStoragePutChangesRootUnlessValueUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	root, _ := s.New(ctx)

	r1, err := s.Put(ctx, root, "a/b", []byte("v1"))
	if err != nil {
		t.Fatal(err)
	}
	if r1 == root {
		t.Fatal("Put did not change root")
	}

	cur, err := s.Get(ctx, r1, "a/b")
	if err != nil {
		t.Fatal(err)
	}
	if string(cur) != "v1" {
		t.Fatalf("Get = %q", cur)
	}

	same, err := s.Put(ctx, r1, "a/b", []byte("v1"))
	if err != nil {
		t.Fatal(err)
	}
	if same != r1 {
		t.Fatalf("re-putting the same value changed root %q to %q", r1, same)
	}
}

func TestStorageLs(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	root, _ := s.New(ctx)
	root, _ = s.Put(ctx, root, "a/x", []byte("1"))
	root, _ = s.Put(ctx, root, "a/y", []byte("2"))

	entries, err := s.Ls(ctx, root, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("Ls = %d entries, want 2", len(entries))
	}

	absent, err := s.Ls(ctx, root, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if len(absent) != 0 {
		t.Fatalf("Ls of missing path = %d entries, want 0", len(absent))
	}
}

func TestStoragePutAllGetAllRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	root, _ := s.New(ctx)

	linkTarget, err := s.Save(ctx, []byte("referenced"))
	if err != nil {
		t.Fatal(err)
	}

	tree := map[string]any{
		"name": []byte("johnny"),
		"nested": map[string]any{
			"inner": []byte("value"),
		},
		"ref": LinkRef{Hash: linkTarget},
	}
	root, err = s.PutAll(ctx, root, tree)
	if err != nil {
		t.Fatalf("PutAll: %v", err)
	}

	got, err := s.GetAll(ctx, root, "")
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if string(got["name"].([]byte)) != "johnny" {
		t.Errorf("name = %v", got["name"])
	}
	nested, ok := got["nested"].(map[string]any)
	if !ok || string(nested["inner"].([]byte)) != "value" {
		t.Errorf("nested = %v", got["nested"])
	}
	lr, ok := got["ref"].(LinkRef)
	if !ok || lr.Hash != linkTarget {
		t.Errorf("ref = %v, want LinkRef{%s}", got["ref"], linkTarget)
	}
}

func TestStorageUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	root, _ := s.New(ctx)

	root, err := s.Update(ctx, root, "counter", func(b []byte) []byte { return append(b, 'x') }, UpdateOptions{Default: []byte("seed")})
	if err != nil {
		t.Fatal(err)
	}
	val, _ := s.Get(ctx, root, "counter")
	if string(val) != "seed" {
		t.Fatalf("Update on absent path = %q, want seed (default, no apply)", val)
	}

	root, err = s.Update(ctx, root, "counter", func(b []byte) []byte { return append(append([]byte(nil), b...), 'x') }, UpdateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	val, _ = s.Get(ctx, root, "counter")
	if string(val) != "seedx" {
		t.Fatalf("Update on present path = %q, want seedx", val)
	}
}

func errIsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
