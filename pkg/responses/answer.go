package responses

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/goliatone/go-dynforms/pkg/model"
)

// Kind discriminates Answer variants.
type Kind string

const (
	KindText        Kind = "text"
	KindChoice      Kind = "choice"
	KindMultiChoice Kind = "multi_choice"
)

// KindFor maps a question type to the answer variant it accepts.
func KindFor(typ model.QuestionType) Kind {
	switch typ {
	case model.TypeRadio, model.TypeDropdown:
		return KindChoice
	case model.TypeCheckbox:
		return KindMultiChoice
	default:
		return KindText
	}
}

// Visitor handles every Answer variant. Adding a variant breaks every
// implementation at compile time.
type Visitor interface {
	VisitText(Text)
	VisitChoice(Choice)
	VisitMultiChoice(MultiChoice)
}

// Answer is the value recorded for a question. The set of implementations is
// closed: Text, Choice, MultiChoice.
type Answer interface {
	Kind() Kind
	// IsEmpty reports whether the answer carries no user input. An empty
	// answer is still a present entry in the tree.
	IsEmpty() bool
	Accept(Visitor)
	clone() Answer
}

// Text answers text, textarea, number, email, date, and time questions.
type Text string

func (Text) Kind() Kind {
	return KindText
}

func (t Text) IsEmpty() bool {
	return t == ""
}

func (t Text) Accept(v Visitor) {
	v.VisitText(t)
}

func (t Text) clone() Answer {
	return t
}

// Choice answers radio and dropdown questions.
type Choice string

func (Choice) Kind() Kind {
	return KindChoice
}

func (c Choice) IsEmpty() bool {
	return c == ""
}

func (c Choice) Accept(v Visitor) {
	v.VisitChoice(c)
}

func (c Choice) clone() Answer {
	return c
}

// MultiChoice answers checkbox questions. It is a set: values are unique and
// kept sorted, so two sets with the same members compare equal.
type MultiChoice []string

// NewMultiChoice builds a normalised set. The result is never nil.
func NewMultiChoice(values ...string) MultiChoice {
	seen := make(map[string]struct{}, len(values))
	out := make(MultiChoice, 0, len(values))
	for _, value := range values {
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func (MultiChoice) Kind() Kind {
	return KindMultiChoice
}

func (m MultiChoice) IsEmpty() bool {
	return len(m) == 0
}

func (m MultiChoice) Accept(v Visitor) {
	v.VisitMultiChoice(m)
}

func (m MultiChoice) clone() Answer {
	return NewMultiChoice(m...)
}

// Contains reports set membership.
func (m MultiChoice) Contains(value string) bool {
	for _, candidate := range m {
		if candidate == value {
			return true
		}
	}
	return false
}

// Equal compares membership, ignoring order.
func (m MultiChoice) Equal(other MultiChoice) bool {
	a, b := NewMultiChoice(m...), NewMultiChoice(other...)
	if len(a) != len(b) {
		return false
	}
	for idx := range a {
		if a[idx] != b[idx] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as an array; an empty set stays [].
func (m MultiChoice) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(NewMultiChoice(m...)))
}

// Toggle returns current with option added when absent or removed when
// present. Callers compute the full resulting set before recording it.
func Toggle(current MultiChoice, option string) MultiChoice {
	if current.Contains(option) {
		out := make([]string, 0, len(current))
		for _, value := range current {
			if value != option {
				out = append(out, value)
			}
		}
		return NewMultiChoice(out...)
	}
	return NewMultiChoice(append(append([]string(nil), current...), option)...)
}

// Selected reports the options an answer selects. Text answers select none.
func Selected(answer Answer) []string {
	collector := selectedVisitor{}
	answer.Accept(&collector)
	return collector.values
}

type selectedVisitor struct {
	values []string
}

func (s *selectedVisitor) VisitText(Text) {}

func (s *selectedVisitor) VisitChoice(c Choice) {
	if c != "" {
		s.values = []string{string(c)}
	}
}

func (s *selectedVisitor) VisitMultiChoice(m MultiChoice) {
	s.values = append([]string(nil), m...)
}

// Check validates answer against the question it targets: the variant must
// match the question type and choice values must be declared options.
func Check(question model.Question, answer Answer) error {
	if answer == nil {
		return model.Invalid(string(question.ID), "answer is required")
	}
	want := KindFor(question.Type)
	if answer.Kind() != want {
		return model.Invalid(string(question.ID), fmt.Sprintf("%s question expects a %s answer, got %s", question.Type, want, answer.Kind()))
	}
	for _, value := range Selected(answer) {
		if !question.HasOption(value) {
			return model.Invalid(string(question.ID), fmt.Sprintf("option %q is not offered", value))
		}
	}
	return nil
}

// FromText builds the variant matching typ from a single raw value, the
// shape simple input surfaces produce.
func FromText(typ model.QuestionType, raw string) Answer {
	switch KindFor(typ) {
	case KindChoice:
		return Choice(raw)
	case KindMultiChoice:
		if raw == "" {
			return NewMultiChoice()
		}
		return NewMultiChoice(raw)
	default:
		return Text(raw)
	}
}

// Retag converts a schema-agnostic decoded answer into the variant the
// question type expects. Text decoded for a radio/dropdown question becomes
// Choice; other mismatches are returned unchanged for Check to reject.
func Retag(question model.Question, answer Answer) Answer {
	if text, ok := answer.(Text); ok && KindFor(question.Type) == KindChoice {
		return Choice(text)
	}
	return answer
}
