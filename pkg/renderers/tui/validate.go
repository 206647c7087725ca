package tui

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-dynforms/pkg/model"
)

var errRequired = errors.New("an answer is required")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// formatRules maps free-text types to validator tags.
var formatRules = map[model.QuestionType]struct {
	tag  string
	hint string
}{
	model.TypeNumber: {tag: "numeric", hint: "a number"},
	model.TypeEmail:  {tag: "email", hint: "an email address"},
	model.TypeDate:   {tag: "datetime=2006-01-02", hint: "a date as YYYY-MM-DD"},
	model.TypeTime:   {tag: "datetime=15:04", hint: "a time as HH:MM"},
}

// checkText validates raw against the question's type and required flag.
// Blank input passes for optional questions.
func checkText(question model.Question, raw string) error {
	value := strings.TrimSpace(raw)
	if value == "" {
		if question.Required {
			return errRequired
		}
		return nil
	}
	rule, ok := formatRules[question.Type]
	if !ok {
		return nil
	}
	if err := validatorInstance().Var(value, rule.tag); err != nil {
		return fmt.Errorf("expected %s", rule.hint)
	}
	return nil
}

func formatHint(typ model.QuestionType) string {
	if rule, ok := formatRules[typ]; ok {
		return "Enter " + rule.hint
	}
	return ""
}
