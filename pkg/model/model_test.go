package model_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-dynforms/pkg/model"
)

func TestIDDecodesStringsAndNumbers(t *testing.T) {
	var payload struct {
		A model.ID `json:"a"`
		B model.ID `json:"b"`
		C model.ID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"sec1","b":1718000000000,"c":null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.A != "sec1" || payload.B != "1718000000000" || payload.C != "" {
		t.Fatalf("unexpected ids: %+v", payload)
	}

	encoded, err := json.Marshal(model.ID("9999"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != `"9999"` {
		t.Fatalf("expected string encoding, got %s", encoded)
	}
}

func TestQuestionTypeParsing(t *testing.T) {
	cases := map[string]struct {
		want model.QuestionType
		ok   bool
	}{
		"text":      {model.TypeText, true},
		" Radio ":   {model.TypeRadio, true},
		"select":    {model.TypeDropdown, true},
		"checkbox":  {model.TypeCheckbox, true},
		"signature": {"signature", false},
	}
	for raw, tc := range cases {
		got, ok := model.ParseQuestionType(raw)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("ParseQuestionType(%q) = %q,%v want %q,%v", raw, got, ok, tc.want, tc.ok)
		}
	}

	var q model.Question
	if err := json.Unmarshal([]byte(`{"id":"q1","label":"x","type":"signature"}`), &q); err == nil {
		t.Fatalf("expected unknown type to fail decoding")
	}
}

func TestQuestionTypeClassification(t *testing.T) {
	for _, typ := range model.QuestionTypes {
		want := typ == model.TypeRadio || typ == model.TypeCheckbox || typ == model.TypeDropdown
		if typ.IsChoice() != want {
			t.Fatalf("%s IsChoice = %v", typ, typ.IsChoice())
		}
	}
	if !model.TypeCheckbox.IsMulti() || model.TypeRadio.IsMulti() {
		t.Fatalf("only checkbox is multi-choice")
	}
}

func TestLookups(t *testing.T) {
	form := sampleForm()

	section, ok := form.Section("sec2")
	if !ok || section.Title != "Observations" {
		t.Fatalf("section lookup failed: %+v %v", section, ok)
	}
	question, ok := form.Question("sec2", "q3")
	if !ok || question.Type != model.TypeCheckbox {
		t.Fatalf("question lookup failed: %+v %v", question, ok)
	}
	if _, ok := form.Question("sec1", "q3"); ok {
		t.Fatalf("question ids are scoped to their section")
	}
	if s, q := form.QuestionIndex("sec2", "missing"); s != 1 || q != -1 {
		t.Fatalf("QuestionIndex = %d,%d", s, q)
	}
	if got := form.QuestionCount(); got != 3 {
		t.Fatalf("QuestionCount = %d", got)
	}
	if _, ok := model.FindForm([]model.Form{form}, "nope"); ok {
		t.Fatalf("FindForm should miss")
	}
}

func TestNormalizeCleansTextAndOptions(t *testing.T) {
	form := model.Form{
		ID:    "f1",
		Title: "  <b>Site</b> Audit ",
		Sections: []model.Section{{
			ID:    "s1",
			Title: "R&D <script>alert(1)</script>",
			Questions: []model.Question{
				{ID: "q1", Label: "Crew Size", Type: model.TypeNumber, Options: []string{"stale"}},
				{ID: "q2", Label: "Company", Type: model.TypeDropdown, Options: []string{" ABC Ltd. ", "", "  ", "<i>XYZ</i> Corp."}},
			},
		}},
	}

	got := model.Normalize(form)
	want := model.Form{
		ID:    "f1",
		Title: "Site Audit",
		Sections: []model.Section{{
			ID:    "s1",
			Title: "R&D",
			Questions: []model.Question{
				{ID: "q1", Label: "Crew Size", Type: model.TypeNumber, Options: []string{}},
				{ID: "q2", Label: "Company", Type: model.TypeDropdown, Options: []string{"ABC Ltd.", "XYZ Corp."}},
			},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("normalize mismatch (-want +got):\n%s", diff)
	}
	if form.Sections[0].Questions[1].Options[0] != " ABC Ltd. " {
		t.Fatalf("normalize must not mutate its input")
	}
}

func TestCheckIdentity(t *testing.T) {
	form := sampleForm()
	if err := model.CheckIdentity(form); err != nil {
		t.Fatalf("sample form should be valid: %v", err)
	}

	dup := form.Clone()
	dup.Sections[1].ID = "sec1"
	if err := model.CheckIdentity(dup); !model.IsValidation(err) {
		t.Fatalf("expected validation error for duplicate section, got %v", err)
	}

	missing := form.Clone()
	missing.Sections[0].Questions[0].ID = ""
	if err := model.CheckIdentity(missing); !model.IsValidation(err) {
		t.Fatalf("expected validation error for missing question id, got %v", err)
	}
}

func TestUsableRequiresChoiceOptions(t *testing.T) {
	form := sampleForm()
	if err := model.Usable(form); err != nil {
		t.Fatalf("sample form should be usable: %v", err)
	}
	broken := form.Clone()
	broken.Sections[1].Questions[1].Options = []string{" ", ""}
	if err := model.Usable(broken); !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	form := sampleForm()
	clone := form.Clone()
	if diff := cmp.Diff(form, clone); diff != "" {
		t.Fatalf("clone mismatch (-want +got):\n%s", diff)
	}
	clone.Sections[1].Questions[0].Options[0] = "changed"
	if form.Sections[1].Questions[0].Options[0] == "changed" {
		t.Fatalf("clone shares option storage")
	}
}

func TestYAMLDecoding(t *testing.T) {
	doc := `
id: 9999
title: Contractor Performance
sections:
  - id: sec1
    sectionTitle: General
    questions:
      - id: q1
        label: Job Task
        type: select
        options: [Excavation, Welding]
        required: true
`
	var form model.Form
	if err := yaml.Unmarshal([]byte(doc), &form); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if form.ID != "9999" {
		t.Fatalf("id = %q", form.ID)
	}
	question, ok := form.Question("sec1", "q1")
	if !ok || question.Type != model.TypeDropdown || !question.Required {
		t.Fatalf("question = %+v", question)
	}
}

func TestErrorHelpers(t *testing.T) {
	if !model.IsNotFound(model.NotFound(model.KindSection, "s9")) {
		t.Fatalf("IsNotFound should match")
	}
	if model.IsNotFound(model.Invalid("title", "blank")) {
		t.Fatalf("validation error is not a not-found error")
	}
	if got := model.NotFound(model.KindQuestion, "q1").Error(); got != `not found: question "q1"` {
		t.Fatalf("message = %q", got)
	}
}

func sampleForm() model.Form {
	return model.Form{
		ID:    "9999",
		Title: "Contractor Performance",
		Sections: []model.Section{
			{
				ID:    "sec1",
				Title: "General",
				Questions: []model.Question{
					{ID: "q1", Label: "Contractor Rep", Type: model.TypeText, Options: []string{}, Required: true},
				},
			},
			{
				ID:    "sec2",
				Title: "Observations",
				Questions: []model.Question{
					{ID: "q2", Label: "PPE worn?", Type: model.TypeRadio, Options: []string{"Yes", "No", "N/A"}, Required: true},
					{ID: "q3", Label: "Hazards", Type: model.TypeCheckbox, Options: []string{"Noise", "Heat"}},
				},
			},
		},
	}
}
