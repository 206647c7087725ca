package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, ok, err := store.Get(ctx, "cached_form_responses"); ok || err != nil {
		t.Fatalf("expected absence, ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "cached_form_responses", []byte(`{"sec1":{"q1":"a"}}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "cached_form_responses", []byte(`{"sec1":{"q1":"b"}}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	value, ok, err := store.Get(ctx, "cached_form_responses")
	if err != nil || !ok || string(value) != `{"sec1":{"q1":"b"}}` {
		t.Fatalf("get: value=%s ok=%v err=%v", value, ok, err)
	}
	if err := store.Delete(ctx, "cached_form_responses"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "cached_form_responses"); ok {
		t.Fatalf("key survived delete")
	}
}

func TestPersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Set(context.Background(), "comments", []byte(`{}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if reopened.Path() != path {
		t.Fatalf("unexpected path %s", reopened.Path())
	}
	value, ok, err := reopened.Get(context.Background(), "comments")
	if err != nil || !ok || string(value) != `{}` {
		t.Fatalf("get after reopen: value=%s ok=%v err=%v", value, ok, err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
