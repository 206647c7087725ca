// Package responses holds the end-user answer state for the active form.
//
// Answers are keyed by (section id, question id) and are independent of the
// schema that produced them. Switching forms discards every answer and
// comment; answers never migrate between forms because ids, types, and option
// sets are not guaranteed to line up. Within one form, Reconcile drops the
// entries a schema edit made meaningless so no answer is attributed to the
// wrong question.
//
// The engine moves through Empty -> Editing -> Submitted. Clear and
// SwitchForm return it to Empty from any state.
package responses
