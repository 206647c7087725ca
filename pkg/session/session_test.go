package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/goliatone/go-dynforms/pkg/cache"
	"github.com/goliatone/go-dynforms/pkg/catalog"
	"github.com/goliatone/go-dynforms/pkg/connectivity"
	"github.com/goliatone/go-dynforms/pkg/model"
	"github.com/goliatone/go-dynforms/pkg/mutate"
	"github.com/goliatone/go-dynforms/pkg/responses"
	"github.com/goliatone/go-dynforms/pkg/session"
	"github.com/goliatone/go-dynforms/pkg/storage"
	"github.com/goliatone/go-dynforms/pkg/submission"
	"github.com/goliatone/go-dynforms/pkg/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func other() model.Form {
	return model.Form{ID: "f2", Title: "Other", Sections: []model.Section{}}
}

type fetchStub struct {
	mu    sync.Mutex
	forms []model.Form
	err   error
	calls int
}

func (f *fetchStub) set(err error, forms ...model.Form) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forms, f.err = forms, err
}

func (f *fetchStub) fetch(context.Context) (catalog.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return catalog.Result{}, f.err
	}
	return catalog.Result{Forms: append([]model.Form(nil), f.forms...)}, nil
}

func closeSession(t *testing.T, s *session.Session) {
	t.Helper()
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestFillAndSubmitOnline(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	var records []submission.Record
	sink := submission.SinkFunc(func(_ context.Context, r submission.Record) error {
		records = append(records, r)
		return nil
	})

	s := session.New(session.WithForms(testsupport.InspectionForm()), session.WithStorage(mem), session.WithSink(sink))
	defer closeSession(t, s)
	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := s.Select("f1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.RecordAnswer("s1", "name", responses.Text("Ana")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.RecordAnswer("s1", "rating", responses.Text("Good")); err != nil {
		t.Fatalf("record rating: %v", err)
	}
	if err := s.ToggleOption("s1", "issues", "Leak"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := s.RecordComment("s1", "issues", "Leak", "under sink"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if diff := cmp.Diff([]string{cache.KeyResponses, cache.KeySelection, cache.KeyComments}, mem.Keys()); diff != "" {
		t.Fatalf("cached keys mismatch (-want +got):\n%s", diff)
	}

	outcome, err := s.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Mode != "online" || outcome.ResubmitRequired {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
	want := responses.Tree{"s1": {
		"name":   responses.Text("Ana"),
		"rating": responses.Choice("Good"),
		"issues": responses.NewMultiChoice("Leak"),
	}}
	if diff := cmp.Diff(want, records[0].Responses); diff != "" {
		t.Fatalf("submitted responses mismatch (-want +got):\n%s", diff)
	}
	if got, _ := records[0].Comments.Get("s1", "issues", "Leak"); got != "under sink" {
		t.Fatalf("submitted comment = %q", got)
	}
	if s.State() != responses.StateSubmitted {
		t.Fatalf("state = %v", s.State())
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if keys := mem.Keys(); len(keys) != 0 {
		t.Fatalf("cache not cleared: %v", keys)
	}
}

func TestToggleKeepsCommentWhileSelected(t *testing.T) {
	s := session.New(session.WithForms(testsupport.InspectionForm()))
	defer closeSession(t, s)
	if err := s.Select("f1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	edit, err := s.BeginChoice("s1", "issues", "Crack")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := s.Confirm(edit, "north wall"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := s.ToggleOption("s1", "issues", "Rust"); err != nil {
		t.Fatalf("toggle rust: %v", err)
	}
	if got, _ := s.Comment("s1", "issues", "Crack"); got != "north wall" {
		t.Fatalf("comment lost: %q", got)
	}
	if err := s.ToggleOption("s1", "issues", "Crack"); err != nil {
		t.Fatalf("toggle crack off: %v", err)
	}
	if _, ok := s.Comment("s1", "issues", "Crack"); ok {
		t.Fatalf("comment kept on deselected option")
	}
	got, _ := s.Answer("s1", "issues")
	if diff := cmp.Diff(responses.NewMultiChoice("Rust"), got); diff != "" {
		t.Fatalf("answer mismatch (-want +got):\n%s", diff)
	}
}

func TestCancelledCaptureRecordsNothing(t *testing.T) {
	s := session.New(session.WithForms(testsupport.InspectionForm()))
	defer closeSession(t, s)
	s.Select("f1")

	edit, err := s.BeginChoice("s1", "rating", "Poor")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	edit.Cancel()
	if _, ok := s.Answer("s1", "rating"); ok {
		t.Fatalf("cancelled capture recorded an answer")
	}
	if s.State() != responses.StateEmpty {
		t.Fatalf("state = %v", s.State())
	}
}

func TestSelectSwitchDiscardsProgress(t *testing.T) {
	s := session.New(session.WithForms(testsupport.InspectionForm(), other()))
	defer closeSession(t, s)
	s.Select("f1")
	s.RecordAnswer("s1", "name", responses.Text("Ana"))

	if err := s.Select("f1"); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if _, ok := s.Answer("s1", "name"); !ok {
		t.Fatalf("re-selecting the active form discarded answers")
	}
	if err := s.Select("f2"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if s.Snapshot().Responses.Len() != 0 {
		t.Fatalf("switch kept answers")
	}
	if err := s.Select("missing"); !model.IsNotFound(err) {
		t.Fatalf("select missing error = %v", err)
	}
	if got := s.Snapshot().FormID; got != "f2" {
		t.Fatalf("failed select changed active form to %q", got)
	}
}

func TestOperationsWithoutSelection(t *testing.T) {
	s := session.New(session.WithForms(testsupport.InspectionForm()))
	defer closeSession(t, s)

	if _, err := s.Submit(context.Background()); !errors.Is(err, responses.ErrNoSelection) {
		t.Fatalf("submit error = %v", err)
	}
	if _, err := s.BeginChoice("s1", "rating", "Good"); !errors.Is(err, responses.ErrNoSelection) {
		t.Fatalf("begin error = %v", err)
	}
}

func TestCatalogRefreshKeepsSelectionAndReconciles(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	stub := &fetchStub{}
	stub.set(nil, testsupport.InspectionForm())
	s := session.New(session.WithStorage(mem), session.WithFetchFunc(stub.fetch))
	defer closeSession(t, s)

	if _, err := s.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	s.Select("f1")
	s.ToggleOption("s1", "issues", "Leak")
	s.ToggleOption("s1", "issues", "Rust")

	revised := testsupport.InspectionForm()
	revised.Sections[0].Questions[1].Options = []string{"Leak", "Crack"}
	stub.set(nil, revised, other())
	if _, err := s.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := s.Snapshot().FormID; got != "f1" {
		t.Fatalf("selection = %q", got)
	}
	got, _ := s.Answer("s1", "issues")
	if diff := cmp.Diff(responses.NewMultiChoice("Leak"), got); diff != "" {
		t.Fatalf("reconciled answer mismatch (-want +got):\n%s", diff)
	}

	stub.set(errors.New("offline"))
	if _, err := s.Refresh(ctx); err == nil {
		t.Fatalf("expected refresh error")
	}
	if len(s.Forms()) != 2 {
		t.Fatalf("failed refresh dropped forms: %d", len(s.Forms()))
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	snap, ok := s.Peek(ctx)
	if !ok {
		t.Fatalf("expected cached snapshot")
	}
	if diff := cmp.Diff(responses.Tree{"s1": {"issues": responses.NewMultiChoice("Leak")}}, snap.Responses); diff != "" {
		t.Fatalf("cached responses mismatch (-want +got):\n%s", diff)
	}
}

func TestRestoreBeforeCatalogArrives(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	mem.Set(ctx, cache.KeySelection, []byte(`"f1"`))
	mem.Set(ctx, cache.KeyResponses, []byte(`{"s1":{"name":"Ana","rating":"Poor"}}`))

	stub := &fetchStub{}
	stub.set(errors.New("offline"))
	s := session.New(
		session.WithStorage(mem),
		session.WithSignal(connectivity.NewManual(false)),
		session.WithFetchFunc(stub.fetch),
		session.WithPollInterval(time.Hour),
	)
	defer closeSession(t, s)

	restored, err := s.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if restored == nil || restored.FormID != "f1" || restored.Answers != 2 {
		t.Fatalf("restored = %+v", restored)
	}
	if _, ok := s.ActiveForm(); ok {
		t.Fatalf("active form should not be loaded yet")
	}

	stub.set(nil, testsupport.InspectionForm())
	// The poller's first tick may still be in flight and share its failure.
	for attempt := 0; attempt < 3; attempt++ {
		if _, err = s.Refresh(ctx); err == nil {
			break
		}
	}
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	form, ok := s.ActiveForm()
	if !ok || form.ID != "f1" {
		t.Fatalf("active form = %+v, %v", form, ok)
	}
	got, _ := s.Answer("s1", "rating")
	if diff := cmp.Diff(responses.Answer(responses.Choice("Poor")), got); diff != "" {
		t.Fatalf("retagged answer mismatch (-want +got):\n%s", diff)
	}

	outcome, err := s.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !outcome.ResubmitRequired || outcome.Notice != cache.OfflineNotice {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !s.Pending(ctx) {
		t.Fatalf("offline submit should keep the cache")
	}
}

func TestAdminEditsActiveForm(t *testing.T) {
	next := 0
	ids := func() model.ID {
		next++
		return model.ID("id" + string(rune('0'+next)))
	}
	s := session.New(session.WithIDGenerator(ids))
	defer closeSession(t, s)

	form, err := s.CreateForm("Audit")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := s.Snapshot().FormID; got != form.ID {
		t.Fatalf("created form not selected: %q", got)
	}
	section, err := s.AddSection(form.ID, "General")
	if err != nil {
		t.Fatalf("add section: %v", err)
	}
	question, err := s.AddQuestion(form.ID, section.ID, model.TypeRadio, "Status")
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if diff := cmp.Diff(mutate.DefaultChoiceOptions, question.Options); diff != "" {
		t.Fatalf("seed options mismatch (-want +got):\n%s", diff)
	}

	if err := s.ToggleOption(section.ID, question.ID, "Option 2"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := s.RemoveOption(form.ID, section.ID, question.ID, "Option 2"); err != nil {
		t.Fatalf("remove option: %v", err)
	}
	if _, ok := s.Answer(section.ID, question.ID); ok {
		t.Fatalf("answer to a removed option survived")
	}

	if err := s.ToggleOption(section.ID, question.ID, "Option 1"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	checkbox := model.TypeTextarea
	_, err = s.UpdateQuestion(form.ID, section.ID, question.ID, mutate.Patch{Type: &checkbox})
	if !model.IsValidation(err) {
		t.Fatalf("unforced type change error = %v", err)
	}
	updated, err := s.UpdateQuestion(form.ID, section.ID, question.ID, mutate.Patch{Type: &checkbox, ForceClear: true})
	if err != nil {
		t.Fatalf("forced type change: %v", err)
	}
	if updated.Type != model.TypeTextarea || len(updated.Options) != 0 {
		t.Fatalf("updated = %+v", updated)
	}
	if s.Snapshot().Responses.Len() != 0 {
		t.Fatalf("forced type change kept answers")
	}

	if err := s.RemoveQuestion(form.ID, section.ID, question.ID); err != nil {
		t.Fatalf("remove question: %v", err)
	}
	if err := s.RemoveQuestion(form.ID, section.ID, question.ID); !model.IsNotFound(err) {
		t.Fatalf("second remove error = %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	stub := &fetchStub{}
	stub.set(nil, testsupport.InspectionForm())
	s := session.New(session.WithFetchFunc(stub.fetch), session.WithPollInterval(time.Hour))
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.Start(context.Background()); !errors.Is(err, session.ErrStarted) {
		t.Fatalf("second start error = %v", err)
	}
	closeSession(t, s)
	closeSession(t, s)

	if err := s.Select("f1"); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("select after close error = %v", err)
	}
	if _, err := s.Start(context.Background()); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("start after close error = %v", err)
	}
}

func TestRefreshWithoutCatalog(t *testing.T) {
	s := session.New()
	defer closeSession(t, s)
	if _, err := s.Refresh(context.Background()); !errors.Is(err, session.ErrNoCatalog) {
		t.Fatalf("error = %v", err)
	}
}

func TestPersistenceFailuresReachHandler(t *testing.T) {
	ctx := context.Background()
	store := testsupport.NewFlakyStorage()
	store.FailSets(errors.New("disk full"))

	var mu sync.Mutex
	var failures []*cache.PersistenceError
	s := session.New(
		session.WithForms(testsupport.InspectionForm()),
		session.WithStorage(store),
		session.WithErrorHandler(func(err error) {
			var perr *cache.PersistenceError
			if errors.As(err, &perr) {
				mu.Lock()
				failures = append(failures, perr)
				mu.Unlock()
			}
		}),
	)
	defer closeSession(t, s)

	s.Select("f1")
	if err := s.RecordAnswer("s1", "name", responses.Text("Ana")); err != nil {
		t.Fatalf("record must succeed despite storage failures: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(failures) == 0 {
		t.Fatalf("expected persistence failures to be reported")
	}
	for _, perr := range failures {
		if perr.Op != "write" {
			t.Fatalf("op = %q", perr.Op)
		}
	}
	if got, _ := s.Answer("s1", "name"); got != responses.Text("Ana") {
		t.Fatalf("in-memory answer lost: %v", got)
	}
}

func TestOfflineSubmitBeforeStartKeepsCache(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := session.New(
		session.WithForms(testsupport.InspectionForm()),
		session.WithStorage(mem),
		session.WithSignal(connectivity.NewManual(false)),
	)
	defer closeSession(t, s)

	if err := s.Select("f1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.RecordAnswer("s1", "name", responses.Text("Dana")); err != nil {
		t.Fatalf("record: %v", err)
	}
	outcome, err := s.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !outcome.ResubmitRequired {
		t.Fatalf("outcome = %+v", outcome)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, ok, _ := mem.Get(ctx, cache.KeyResponses); !ok {
		t.Fatalf("offline submit must keep %s", cache.KeyResponses)
	}
}
