// Package mutate implements structural edits over model.Form values. Every
// operation returns a new Form and leaves its argument untouched, so views
// holding the previous value stay valid until they are explicitly replaced.
// New sections and questions are appended to their parent; ids are minted
// by the configured generator (uuid v4 by default).
package mutate
