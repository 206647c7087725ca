package responses_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dynforms/pkg/model"
	"github.com/goliatone/go-dynforms/pkg/responses"
)

func auditForm() model.Form {
	return model.Form{
		ID:    "9999",
		Title: "Contractor Performance",
		Sections: []model.Section{
			{
				ID:    "sec1",
				Title: "General",
				Questions: []model.Question{
					{ID: "q1", Label: "Contractor Rep", Type: model.TypeText, Options: []string{}, Required: true},
					{ID: "q2", Label: "PPE worn?", Type: model.TypeRadio, Options: []string{"Yes", "No", "N/A"}, Required: true},
					{ID: "q7", Label: "Hazards", Type: model.TypeCheckbox, Options: []string{"Yes", "No", "Heat"}},
				},
			},
		},
	}
}

func schemaOf(forms ...model.Form) responses.SchemaSource {
	return responses.SchemaFunc(func(id model.ID) (model.Form, bool) {
		return model.FindForm(forms, id)
	})
}

func newEngine(t *testing.T, form model.Form) *responses.Engine {
	t.Helper()
	engine := responses.New(responses.WithSchema(schemaOf(form)))
	engine.SwitchForm(form.ID)
	return engine
}

func TestRecordAnswerRoundTrip(t *testing.T) {
	engine := newEngine(t, auditForm())

	cases := []struct {
		sectionID, questionID model.ID
		value                 responses.Answer
	}{
		{"sec1", "q1", responses.Text("Dana")},
		{"sec1", "q2", responses.Choice("N/A")},
		{"sec1", "q7", responses.NewMultiChoice("Heat", "Yes")},
		{"sec1", "q7", responses.NewMultiChoice()},
	}
	for _, tc := range cases {
		if err := engine.RecordAnswer(tc.sectionID, tc.questionID, tc.value); err != nil {
			t.Fatalf("record %s: %v", tc.questionID, err)
		}
		got, ok := engine.Answer(tc.sectionID, tc.questionID)
		if !ok {
			t.Fatalf("answer %s missing", tc.questionID)
		}
		if diff := cmp.Diff(tc.value, got); diff != "" {
			t.Fatalf("answer %s mismatch (-want +got):\n%s", tc.questionID, diff)
		}
	}
	if engine.State() != responses.StateEditing {
		t.Fatalf("expected editing, got %s", engine.State())
	}
}

func TestCheckboxToggleKeepsEmptySet(t *testing.T) {
	engine := newEngine(t, auditForm())

	if err := engine.RecordAnswer("sec1", "q7", responses.NewMultiChoice("Yes")); err != nil {
		t.Fatalf("record: %v", err)
	}
	raw, err := json.Marshal(engine.Responses())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"sec1":{"q7":["Yes"]}}` {
		t.Fatalf("unexpected encoding %s", raw)
	}

	current, _ := engine.Answer("sec1", "q7")
	next := responses.Toggle(current.(responses.MultiChoice), "Yes")
	if err := engine.RecordAnswer("sec1", "q7", next); err != nil {
		t.Fatalf("record toggled: %v", err)
	}
	raw, _ = json.Marshal(engine.Responses())
	if string(raw) != `{"sec1":{"q7":[]}}` {
		t.Fatalf("empty set should stay present, got %s", raw)
	}
	if engine.HasResponse("sec1", "q7") {
		t.Fatalf("empty set is not a response")
	}
}

func TestRecordAnswerValidatesAgainstSchema(t *testing.T) {
	engine := newEngine(t, auditForm())

	if err := engine.RecordAnswer("sec1", "q2", responses.Choice("Maybe")); !model.IsValidation(err) {
		t.Fatalf("expected validation error for unknown option, got %v", err)
	}
	if err := engine.RecordAnswer("sec1", "q1", responses.NewMultiChoice("x")); !model.IsValidation(err) {
		t.Fatalf("expected validation error for wrong variant, got %v", err)
	}
	if err := engine.RecordAnswer("sec9", "q1", responses.Text("x")); !model.IsNotFound(err) {
		t.Fatalf("expected not found for section, got %v", err)
	}
	if err := engine.RecordAnswer("sec1", "q404", responses.Text("x")); !model.IsNotFound(err) {
		t.Fatalf("expected not found for question, got %v", err)
	}
	// Text for a radio question is retagged to Choice.
	if err := engine.RecordAnswer("sec1", "q2", responses.Text("Yes")); err != nil {
		t.Fatalf("record text for radio: %v", err)
	}
	got, _ := engine.Answer("sec1", "q2")
	if diff := cmp.Diff(responses.Answer(responses.Choice("Yes")), got); diff != "" {
		t.Fatalf("retag mismatch (-want +got):\n%s", diff)
	}
	if engine.State() != responses.StateEditing {
		t.Fatalf("expected editing, got %s", engine.State())
	}
}

func TestRecordAnswerWithoutSelection(t *testing.T) {
	engine := responses.New()
	if err := engine.RecordAnswer("sec1", "q1", responses.Text("x")); !errors.Is(err, responses.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if err := engine.Submit(); !errors.Is(err, responses.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection on submit, got %v", err)
	}
}

func TestUnknownFormAcceptsUnvalidatedAnswers(t *testing.T) {
	engine := responses.New(responses.WithSchema(schemaOf()))
	engine.SwitchForm("offline-form")
	if err := engine.RecordAnswer("s", "q", responses.Choice("anything")); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestStateMachine(t *testing.T) {
	engine := newEngine(t, auditForm())
	if engine.State() != responses.StateEmpty {
		t.Fatalf("expected empty, got %s", engine.State())
	}

	// Submitting from Empty is allowed.
	if err := engine.Submit(); err != nil {
		t.Fatalf("submit empty: %v", err)
	}
	if err := engine.RecordAnswer("sec1", "q1", responses.Text("x")); !errors.Is(err, responses.ErrSubmitted) {
		t.Fatalf("expected ErrSubmitted, got %v", err)
	}
	if err := engine.Submit(); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	engine.Clear()
	if engine.State() != responses.StateEmpty {
		t.Fatalf("expected empty after clear, got %s", engine.State())
	}
	if engine.FormID() != "9999" {
		t.Fatalf("clear must keep the active form")
	}
	if err := engine.RecordAnswer("sec1", "q1", responses.Text("x")); err != nil {
		t.Fatalf("record after clear: %v", err)
	}
	if err := engine.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if engine.State() != responses.StateSubmitted {
		t.Fatalf("expected submitted, got %s", engine.State())
	}
}

func TestSwitchFormDiscardsEverything(t *testing.T) {
	other := model.Form{ID: "other", Title: "Other", Sections: []model.Section{{ID: "sec1", Title: "A", Questions: []model.Question{
		{ID: "q1", Label: "Name", Type: model.TypeText, Options: []string{}},
	}}}}
	engine := responses.New(responses.WithSchema(schemaOf(auditForm(), other)))
	engine.SwitchForm("9999")

	if err := engine.RecordAnswer("sec1", "q1", responses.Text("Dana")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := engine.CommitChoice("sec1", "q2", responses.Choice("No"), map[string]string{"No": "missing gloves"}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := engine.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}

	engine.SwitchForm("other")
	snap := engine.Snapshot()
	want := responses.Snapshot{FormID: "other", State: responses.StateEmpty, Responses: responses.Tree{}, Comments: responses.Comments{}}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	// Same ids in the new form must not see the old answer.
	if _, ok := engine.Answer("sec1", "q1"); ok {
		t.Fatalf("answer leaked across forms")
	}
}

func TestCommitChoiceIsAtomic(t *testing.T) {
	engine := newEngine(t, auditForm())

	err := engine.CommitChoice("sec1", "q7", responses.NewMultiChoice("Heat"), map[string]string{"Yes": "not selected"})
	if !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := engine.Answer("sec1", "q7"); ok {
		t.Fatalf("answer must not be stored when the commit fails")
	}
	if engine.Comments().Len() != 0 {
		t.Fatalf("comments must not be stored when the commit fails")
	}

	if err := engine.CommitChoice("sec1", "q7", responses.NewMultiChoice("Heat", "Yes"), map[string]string{"Heat": "boiler room", "Yes": " "}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	want := responses.Comments{"sec1": {"q7": {"Heat": "boiler room"}}}
	if diff := cmp.Diff(want, engine.Comments()); diff != "" {
		t.Fatalf("comments mismatch (-want +got):\n%s", diff)
	}

	// Deselecting Heat drops its comment.
	if err := engine.CommitChoice("sec1", "q7", responses.NewMultiChoice("Yes"), nil); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if engine.Comments().Len() != 0 {
		t.Fatalf("expected comment for deselected option to be dropped, got %v", engine.Comments())
	}
}

func TestChoiceEditConfirmAndCancel(t *testing.T) {
	form := auditForm()
	engine := newEngine(t, form)
	question, _ := form.Question("sec1", "q7")

	edit, err := engine.BeginChoice("sec1", question, "Heat")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !edit.Selected {
		t.Fatalf("toggling an absent option selects it")
	}
	edit.Cancel()
	if _, ok := engine.Answer("sec1", "q7"); ok {
		t.Fatalf("cancel must leave answers untouched")
	}
	if err := edit.Confirm("x"); !errors.Is(err, responses.ErrEditClosed) {
		t.Fatalf("expected ErrEditClosed, got %v", err)
	}

	edit, _ = engine.BeginChoice("sec1", question, "Heat")
	if err := edit.Confirm("near boiler"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	got, _ := engine.Answer("sec1", "q7")
	if diff := cmp.Diff(responses.Answer(responses.NewMultiChoice("Heat")), got); diff != "" {
		t.Fatalf("answer mismatch (-want +got):\n%s", diff)
	}
	if text, _ := engine.Comment("sec1", "q7", "Heat"); text != "near boiler" {
		t.Fatalf("unexpected comment %q", text)
	}

	edit, _ = engine.BeginChoice("sec1", question, "Heat")
	if edit.Selected || edit.Comment != "near boiler" {
		t.Fatalf("expected a deselect carrying the stored comment, got %+v", edit)
	}
	if err := edit.Confirm("ignored"); err != nil {
		t.Fatalf("confirm deselect: %v", err)
	}
	if _, ok := engine.Comment("sec1", "q7", "Heat"); ok {
		t.Fatalf("deselected option keeps no comment")
	}
}

func TestChoiceEditGoesStaleOnSwitch(t *testing.T) {
	form := auditForm()
	engine := newEngine(t, form)
	question, _ := form.Question("sec1", "q2")

	edit, err := engine.BeginChoice("sec1", question, "No")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	engine.SwitchForm(form.ID)
	if err := edit.Confirm("late"); !errors.Is(err, responses.ErrStaleEdit) {
		t.Fatalf("expected ErrStaleEdit, got %v", err)
	}
	if engine.Responses().Len() != 0 {
		t.Fatalf("stale confirm must not write")
	}
}

func TestReconcileDropsUnsupportedEntries(t *testing.T) {
	form := auditForm()
	engine := responses.New()
	engine.Restore(responses.Snapshot{
		FormID: form.ID,
		Responses: responses.Tree{
			"sec1": {
				"q1": responses.Text("Dana"),
				"q2": responses.Text("Yes"),
				"q7": responses.NewMultiChoice("Heat", "Cold"),
			},
			"gone": {"q9": responses.Text("x")},
		},
		Comments: responses.Comments{
			"sec1": {
				"q1": {"x": "not a choice"},
				"q7": {"Cold": "removed option", "Heat": "kept"},
			},
		},
	})

	edited := form.Clone()
	edited.Sections[0].Questions[0].Type = model.TypeNumber
	if !engine.Reconcile(edited) {
		t.Fatalf("expected reconcile to report changes")
	}

	want := responses.Tree{
		"sec1": {
			"q1": responses.Text("Dana"),
			"q2": responses.Choice("Yes"),
			"q7": responses.NewMultiChoice("Heat"),
		},
	}
	if diff := cmp.Diff(want, engine.Responses()); diff != "" {
		t.Fatalf("responses mismatch (-want +got):\n%s", diff)
	}
	wantComments := responses.Comments{"sec1": {"q7": {"Heat": "kept"}}}
	if diff := cmp.Diff(wantComments, engine.Comments()); diff != "" {
		t.Fatalf("comments mismatch (-want +got):\n%s", diff)
	}

	if engine.Reconcile(edited) {
		t.Fatalf("second reconcile should be a no-op")
	}
	other := edited.Clone()
	other.ID = "someone-else"
	other.Sections = nil
	if engine.Reconcile(other) {
		t.Fatalf("reconcile must ignore inactive forms")
	}
}

func TestReconcileDropsTypeMismatch(t *testing.T) {
	form := auditForm()
	engine := newEngine(t, form)
	if err := engine.RecordAnswer("sec1", "q2", responses.Choice("Yes")); err != nil {
		t.Fatalf("record: %v", err)
	}
	edited := form.Clone()
	edited.Sections[0].Questions[1].Type = model.TypeCheckbox
	engine.Reconcile(edited)
	if _, ok := engine.Answer("sec1", "q2"); ok {
		t.Fatalf("choice answer must be dropped once the question becomes a checkbox")
	}
	if engine.State() != responses.StateEmpty {
		t.Fatalf("expected empty once every answer is gone, got %s", engine.State())
	}
}

func TestRestoreRetagsViaSchema(t *testing.T) {
	form := auditForm()
	var decoded responses.Tree
	if err := json.Unmarshal([]byte(`{"sec1":{"q2":"No","q7":["Yes","Yes"],"q1":null}}`), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	engine := responses.New(responses.WithSchema(schemaOf(form)))
	engine.Restore(responses.Snapshot{FormID: form.ID, Responses: decoded})

	want := responses.Tree{"sec1": {
		"q2": responses.Choice("No"),
		"q7": responses.NewMultiChoice("Yes"),
	}}
	if diff := cmp.Diff(want, engine.Responses()); diff != "" {
		t.Fatalf("restore mismatch (-want +got):\n%s", diff)
	}
	if engine.State() != responses.StateEditing {
		t.Fatalf("expected editing after restore, got %s", engine.State())
	}

	engine.Restore(responses.Snapshot{FormID: form.ID})
	if engine.State() != responses.StateEmpty {
		t.Fatalf("expected empty after restoring nothing, got %s", engine.State())
	}
}

func TestDiscardQuestion(t *testing.T) {
	engine := newEngine(t, auditForm())
	_ = engine.CommitChoice("sec1", "q2", responses.Choice("No"), map[string]string{"No": "why"})

	if !engine.DiscardQuestion("sec1", "q2") {
		t.Fatalf("expected discard to report removal")
	}
	if engine.HasResponse("sec1", "q2") || engine.Comments().Len() != 0 {
		t.Fatalf("discard must drop answer and comments")
	}
	if engine.DiscardQuestion("sec1", "q2") {
		t.Fatalf("second discard should be a no-op")
	}
}

func TestMissingRequired(t *testing.T) {
	form := auditForm()
	engine := newEngine(t, form)
	_ = engine.RecordAnswer("sec1", "q1", responses.Text(""))

	want := []responses.Ref{
		{SectionID: "sec1", QuestionID: "q1", Label: "Contractor Rep"},
		{SectionID: "sec1", QuestionID: "q2", Label: "PPE worn?"},
	}
	if diff := cmp.Diff(want, engine.MissingRequired(form)); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
}

func TestReadersReceiveCopies(t *testing.T) {
	engine := newEngine(t, auditForm())
	_ = engine.RecordAnswer("sec1", "q7", responses.NewMultiChoice("Yes"))

	tree := engine.Responses()
	tree["sec1"]["q7"] = responses.NewMultiChoice("No")
	got, _ := engine.Answer("sec1", "q7")
	if diff := cmp.Diff(responses.Answer(responses.NewMultiChoice("Yes")), got); diff != "" {
		t.Fatalf("engine state was mutated through a copy (-want +got):\n%s", diff)
	}
}
