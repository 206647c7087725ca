package responses

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-dynforms/pkg/model"
)

// Tree maps section id -> question id -> answer.
type Tree map[model.ID]map[model.ID]Answer

// Get looks up one answer.
func (t Tree) Get(sectionID, questionID model.ID) (Answer, bool) {
	questions, ok := t[sectionID]
	if !ok {
		return nil, false
	}
	answer, ok := questions[questionID]
	return answer, ok
}

// Len counts answers across sections.
func (t Tree) Len() int {
	total := 0
	for _, questions := range t {
		total += len(questions)
	}
	return total
}

// Clone deep-copies the tree. A nil tree clones to an empty one.
func (t Tree) Clone() Tree {
	out := make(Tree, len(t))
	for sectionID, questions := range t {
		inner := make(map[model.ID]Answer, len(questions))
		for questionID, answer := range questions {
			inner[questionID] = answer.clone()
		}
		out[sectionID] = inner
	}
	return out
}

func (t Tree) set(sectionID, questionID model.ID, answer Answer) {
	questions, ok := t[sectionID]
	if !ok {
		questions = make(map[model.ID]Answer)
		t[sectionID] = questions
	}
	questions[questionID] = answer
}

func (t Tree) remove(sectionID, questionID model.ID) bool {
	questions, ok := t[sectionID]
	if !ok {
		return false
	}
	if _, ok := questions[questionID]; !ok {
		return false
	}
	delete(questions, questionID)
	if len(questions) == 0 {
		delete(t, sectionID)
	}
	return true
}

// MarshalJSON writes {"sec":{"q":"text","q2":["a","b"]}}. A nil tree encodes
// as {}.
func (t Tree) MarshalJSON() ([]byte, error) {
	plain := make(map[model.ID]map[model.ID]Answer, len(t))
	for sectionID, questions := range t {
		plain[sectionID] = questions
	}
	return json.Marshal(plain)
}

// UnmarshalJSON decodes without a schema: strings become Text and arrays
// become MultiChoice. Use Retag once the form is known.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var raw map[model.ID]map[model.ID]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Tree, len(raw))
	for sectionID, questions := range raw {
		for questionID, value := range questions {
			answer, err := decodeAnswer(value)
			if err != nil {
				return fmt.Errorf("responses: %s/%s: %w", sectionID, questionID, err)
			}
			if answer == nil {
				continue
			}
			out.set(sectionID, questionID, answer)
		}
	}
	*t = out
	return nil
}

func decodeAnswer(value json.RawMessage) (Answer, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, err
		}
		return Text(text), nil
	case '[':
		var values []string
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return nil, err
		}
		return NewMultiChoice(values...), nil
	default:
		return nil, fmt.Errorf("unsupported answer value %s", trimmed)
	}
}

// Retag converts each answer into the variant its question expects.
// Entries for questions missing from form are kept as decoded; Reconcile
// is responsible for dropping them.
func (t Tree) Retag(form model.Form) Tree {
	out := t.Clone()
	for sectionID, questions := range out {
		for questionID, answer := range questions {
			question, ok := form.Question(sectionID, questionID)
			if !ok {
				continue
			}
			questions[questionID] = Retag(question, answer)
		}
	}
	return out
}

// Comments maps section id -> question id -> option -> comment text.
type Comments map[model.ID]map[model.ID]map[string]string

// Get looks up the comment attached to one option.
func (c Comments) Get(sectionID, questionID model.ID, option string) (string, bool) {
	text, ok := c[sectionID][questionID][option]
	return text, ok
}

// Len counts comments across questions.
func (c Comments) Len() int {
	total := 0
	for _, questions := range c {
		for _, options := range questions {
			total += len(options)
		}
	}
	return total
}

// Clone deep-copies the comment tree. A nil tree clones to an empty one.
func (c Comments) Clone() Comments {
	out := make(Comments, len(c))
	for sectionID, questions := range c {
		inner := make(map[model.ID]map[string]string, len(questions))
		for questionID, options := range questions {
			copied := make(map[string]string, len(options))
			for option, text := range options {
				copied[option] = text
			}
			inner[questionID] = copied
		}
		out[sectionID] = inner
	}
	return out
}

func (c Comments) set(sectionID, questionID model.ID, option, text string) {
	questions, ok := c[sectionID]
	if !ok {
		questions = make(map[model.ID]map[string]string)
		c[sectionID] = questions
	}
	options, ok := questions[questionID]
	if !ok {
		options = make(map[string]string)
		questions[questionID] = options
	}
	options[option] = text
}

func (c Comments) remove(sectionID, questionID model.ID, option string) {
	options, ok := c[sectionID][questionID]
	if !ok {
		return
	}
	delete(options, option)
	c.prune(sectionID, questionID)
}

func (c Comments) removeQuestion(sectionID, questionID model.ID) bool {
	questions, ok := c[sectionID]
	if !ok {
		return false
	}
	if _, ok := questions[questionID]; !ok {
		return false
	}
	delete(questions, questionID)
	if len(questions) == 0 {
		delete(c, sectionID)
	}
	return true
}

// keepOnly drops comments on options outside keep.
func (c Comments) keepOnly(sectionID, questionID model.ID, keep []string) bool {
	options, ok := c[sectionID][questionID]
	if !ok {
		return false
	}
	allowed := make(map[string]struct{}, len(keep))
	for _, option := range keep {
		allowed[option] = struct{}{}
	}
	changed := false
	for option := range options {
		if _, ok := allowed[option]; !ok {
			delete(options, option)
			changed = true
		}
	}
	c.prune(sectionID, questionID)
	return changed
}

func (c Comments) prune(sectionID, questionID model.ID) {
	questions := c[sectionID]
	if len(questions[questionID]) == 0 {
		delete(questions, questionID)
	}
	if len(questions) == 0 {
		delete(c, sectionID)
	}
}

// MarshalJSON encodes a nil tree as {}.
func (c Comments) MarshalJSON() ([]byte, error) {
	plain := make(map[model.ID]map[model.ID]map[string]string, len(c))
	for sectionID, questions := range c {
		plain[sectionID] = questions
	}
	return json.Marshal(plain)
}
