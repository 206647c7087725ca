package testsupport_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dynforms/pkg/model"
	"github.com/goliatone/go-dynforms/pkg/testsupport"
)

func TestMustLoadForms(t *testing.T) {
	forms := testsupport.MustLoadForms(t, filepath.Join("testdata", "catalog.json"))

	got := make([]model.ID, 0, len(forms))
	for _, form := range forms {
		got = append(got, form.ID)
	}
	if diff := cmp.Diff([]model.ID{"f1", "42"}, got); diff != "" {
		t.Fatalf("form ids mismatch (-want +got):\n%s", diff)
	}
	question, ok := forms[0].Question("s1", "name")
	if !ok || !question.Required || question.Type != model.TypeText {
		t.Fatalf("question = %+v, %v", question, ok)
	}
}

func TestLoadDocumentFromPathErrors(t *testing.T) {
	if _, err := testsupport.LoadDocumentFromPath(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := testsupport.LoadDocumentFromPath(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestFlakyStorage(t *testing.T) {
	ctx := context.Background()
	store := testsupport.NewFlakyStorage()
	boom := errors.New("disk full")

	store.FailSets(boom)
	if err := store.Set(ctx, "k", []byte("v")); !errors.Is(err, boom) {
		t.Fatalf("set error = %v", err)
	}
	store.FailSets(nil)
	if err := store.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}

	store.FailGets(boom)
	if _, _, err := store.Get(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("get error = %v", err)
	}
	store.FailGets(nil)

	store.FailDeletes(boom)
	if err := store.Delete(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("delete error = %v", err)
	}
	if got, ok, _ := store.Get(ctx, "k"); !ok || string(got) != "v" {
		t.Fatalf("value = %q, %v", got, ok)
	}
}

func TestAssertJSON(t *testing.T) {
	testsupport.AssertJSON(t, `{"b":[1,2],"a":"x"}`, map[string]any{"a": "x", "b": []int{1, 2}})
}
