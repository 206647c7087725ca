package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ID is an opaque identifier. Catalog payloads use both strings and numbers
// for ids, so decoding accepts either and encoding always emits a string.
type ID string

// String returns the raw identifier.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// UnmarshalJSON accepts JSON strings, numbers, and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("model: decode id: %w", err)
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("model: id must be a string or number, got %s", string(trimmed))
	}
	*id = ID(n.String())
	return nil
}

// UnmarshalYAML accepts any scalar; numeric ids keep their literal form.
func (id *ID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("model: id must be a scalar (line %d)", node.Line)
	}
	if node.Tag == "!!null" {
		*id = ""
		return nil
	}
	*id = ID(strings.TrimSpace(node.Value))
	return nil
}

// MarshalJSON always encodes the id as a JSON string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// QuestionType enumerates the supported field primitives.
type QuestionType string

const (
	TypeText     QuestionType = "text"
	TypeTextarea QuestionType = "textarea"
	TypeNumber   QuestionType = "number"
	TypeEmail    QuestionType = "email"
	TypeDate     QuestionType = "date"
	TypeTime     QuestionType = "time"
	TypeRadio    QuestionType = "radio"
	TypeCheckbox QuestionType = "checkbox"
	TypeDropdown QuestionType = "dropdown"
)

// QuestionTypes lists every declared type in builder display order.
var QuestionTypes = []QuestionType{
	TypeText,
	TypeTextarea,
	TypeRadio,
	TypeCheckbox,
	TypeDropdown,
	TypeNumber,
	TypeEmail,
	TypeDate,
	TypeTime,
}

// ParseQuestionType resolves a type name. "select" is accepted as a legacy
// alias for dropdown.
func ParseQuestionType(raw string) (QuestionType, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "select" {
		return TypeDropdown, true
	}
	candidate := QuestionType(name)
	return candidate, candidate.Valid()
}

// Valid reports whether t is one of the declared types.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeText, TypeTextarea, TypeNumber, TypeEmail, TypeDate, TypeTime,
		TypeRadio, TypeCheckbox, TypeDropdown:
		return true
	default:
		return false
	}
}

// IsChoice reports whether the type carries options.
func (t QuestionType) IsChoice() bool {
	return t == TypeRadio || t == TypeCheckbox || t == TypeDropdown
}

// IsMulti reports whether the type accepts several options at once.
func (t QuestionType) IsMulti() bool {
	return t == TypeCheckbox
}

// UnmarshalJSON normalises the type name and rejects unknown values.
func (t *QuestionType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("model: decode question type: %w", err)
	}
	parsed, ok := ParseQuestionType(raw)
	if !ok {
		return fmt.Errorf("model: unknown question type %q", raw)
	}
	*t = parsed
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML form documents.
func (t *QuestionType) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("model: decode question type: %w", err)
	}
	parsed, ok := ParseQuestionType(raw)
	if !ok {
		return fmt.Errorf("model: unknown question type %q", raw)
	}
	*t = parsed
	return nil
}

// Question is a single typed input definition.
type Question struct {
	ID          ID           `json:"id" yaml:"id"`
	Label       string       `json:"label" yaml:"label"`
	Type        QuestionType `json:"type" yaml:"type"`
	Options     []string     `json:"options,omitempty" yaml:"options,omitempty"`
	Placeholder string       `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool         `json:"required" yaml:"required"`
}

// HasOption reports whether option is one of the question's options.
func (q Question) HasOption(option string) bool {
	for _, candidate := range q.Options {
		if candidate == option {
			return true
		}
	}
	return false
}

// Section groups questions under a title.
type Section struct {
	ID        ID         `json:"id" yaml:"id"`
	Title     string     `json:"sectionTitle" yaml:"sectionTitle"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Question finds a question by id.
func (s Section) Question(id ID) (Question, bool) {
	for _, question := range s.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

func (s Section) questionIndex(id ID) int {
	for idx, question := range s.Questions {
		if question.ID == id {
			return idx
		}
	}
	return -1
}

// Form is the top-level schema artifact.
type Form struct {
	ID       ID        `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Section finds a section by id.
func (f Form) Section(id ID) (Section, bool) {
	for _, section := range f.Sections {
		if section.ID == id {
			return section, true
		}
	}
	return Section{}, false
}

// Question resolves a question through its section.
func (f Form) Question(sectionID, questionID ID) (Question, bool) {
	section, ok := f.Section(sectionID)
	if !ok {
		return Question{}, false
	}
	return section.Question(questionID)
}

// QuestionCount returns the number of questions across all sections.
func (f Form) QuestionCount() int {
	total := 0
	for _, section := range f.Sections {
		total += len(section.Questions)
	}
	return total
}

// SectionIndex returns the position of the section or -1.
func (f Form) SectionIndex(id ID) int {
	for idx, section := range f.Sections {
		if section.ID == id {
			return idx
		}
	}
	return -1
}

// QuestionIndex returns the section and question positions, or -1s when
// either id is absent.
func (f Form) QuestionIndex(sectionID, questionID ID) (int, int) {
	sIdx := f.SectionIndex(sectionID)
	if sIdx < 0 {
		return -1, -1
	}
	qIdx := f.Sections[sIdx].questionIndex(questionID)
	if qIdx < 0 {
		return sIdx, -1
	}
	return sIdx, qIdx
}

// FindForm looks up a form by id in a catalog list.
func FindForm(forms []Form, id ID) (Form, bool) {
	for _, form := range forms {
		if form.ID == id {
			return form, true
		}
	}
	return Form{}, false
}
