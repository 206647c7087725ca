// Package testsupport holds fixtures and fakes shared by package tests.
package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dynforms/pkg/catalog"
	"github.com/goliatone/go-dynforms/pkg/model"
	"github.com/goliatone/go-dynforms/pkg/storage"
)

// InspectionForm is a small form covering text, checkbox and radio
// questions. Every call returns a fresh copy.
func InspectionForm() model.Form {
	return model.Form{
		ID:    "f1",
		Title: "Inspection",
		Sections: []model.Section{{
			ID:    "s1",
			Title: "Site",
			Questions: []model.Question{
				{ID: "name", Label: "Inspector", Type: model.TypeText, Options: []string{}, Required: true},
				{ID: "issues", Label: "Issues", Type: model.TypeCheckbox, Options: []string{"Leak", "Crack", "Rust"}},
				{ID: "rating", Label: "Rating", Type: model.TypeRadio, Options: []string{"Good", "Poor"}},
			},
		}},
	}
}

// LoadDocumentFromPath reads a catalog fixture into a file-sourced Document.
func LoadDocumentFromPath(path string) (catalog.Document, error) {
	if path == "" {
		return catalog.Document{}, errors.New("testsupport: document path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog.Document{}, fmt.Errorf("testsupport: read document: %w", err)
	}
	doc, err := catalog.NewDocument(catalog.SourceFromFile(path), data)
	if err != nil {
		return catalog.Document{}, fmt.Errorf("testsupport: new document: %w", err)
	}
	return doc, nil
}

// MustLoadForms decodes a catalog fixture and fails the test on any error
// or skipped entry.
func MustLoadForms(t *testing.T, path string) []model.Form {
	t.Helper()

	doc, err := LoadDocumentFromPath(path)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	result, err := catalog.Decode(doc)
	if err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	if len(result.Skipped) > 0 {
		t.Fatalf("catalog fixture has malformed entries: %v", result.Skipped)
	}
	return result.Forms
}

// AssertJSON fails unless got encodes to the same JSON value as want.
func AssertJSON(t *testing.T, want string, got any) {
	t.Helper()

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wantValue, gotValue any
	if err := json.Unmarshal([]byte(want), &wantValue); err != nil {
		t.Fatalf("want is not JSON: %v", err)
	}
	if err := json.Unmarshal(raw, &gotValue); err != nil {
		t.Fatalf("got is not JSON: %v", err)
	}
	if diff := cmp.Diff(wantValue, gotValue); diff != "" {
		t.Fatalf("JSON mismatch (-want +got):\n%s", diff)
	}
}

// FlakyStorage wraps an in-memory store and fails operations on demand.
type FlakyStorage struct {
	*storage.Memory

	mu      sync.Mutex
	failGet error
	failSet error
	failDel error
}

// NewFlakyStorage returns a store that succeeds until told otherwise.
func NewFlakyStorage() *FlakyStorage {
	return &FlakyStorage{Memory: storage.NewMemory()}
}

// FailSets makes every Set return err. A nil err restores success.
func (f *FlakyStorage) FailSets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSet = err
}

// FailGets makes every Get return err.
func (f *FlakyStorage) FailGets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet = err
}

// FailDeletes makes every Delete return err.
func (f *FlakyStorage) FailDeletes(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failDel = err
}

func (f *FlakyStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	err := f.failGet
	f.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return f.Memory.Get(ctx, key)
}

func (f *FlakyStorage) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	err := f.failSet
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Memory.Set(ctx, key, value)
}

func (f *FlakyStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	err := f.failDel
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Memory.Delete(ctx, key)
}
