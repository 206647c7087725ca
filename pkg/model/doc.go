// Package model defines the form schema shared by the builder and filler
// surfaces: a Form holds ordered Sections, a Section holds ordered Questions.
// Identifiers are opaque strings scoped to their parent (form ids are global,
// section ids are unique within a form, question ids within a section).
// Values are plain data; mutations live in pkg/mutate and always return new
// values, so a Form obtained from a lookup can be held without copying.
//
// Choice questions (radio, checkbox, dropdown) carry options; every other
// type keeps an empty option list. Normalize enforces that shape and strips
// markup from free text via a strict bluemonday policy.
package model
