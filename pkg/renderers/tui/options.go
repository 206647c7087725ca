package tui

import "io"

// Theme captures optional message prefixes the filler applies when printing.
type Theme struct {
	SectionPrefix string
	InfoPrefix    string
	ErrorPrefix   string
}

// DefaultTheme is used unless WithTheme is given.
var DefaultTheme = Theme{
	SectionPrefix: "== ",
	ErrorPrefix:   "! ",
}

// Option configures the Filler.
type Option func(*Filler)

// WithPromptDriver overrides the prompt driver used by the filler.
func WithPromptDriver(driver PromptDriver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithOutput sets where the default survey driver prints messages.
func WithOutput(w io.Writer) Option {
	return func(f *Filler) {
		if w != nil {
			f.out = w
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(f *Filler) {
		f.theme = theme
	}
}

// WithSubmitPrompt controls whether Fill asks to submit at the end.
// Disabled, Fill only records answers.
func WithSubmitPrompt(enabled bool) Option {
	return func(f *Filler) {
		f.askSubmit = enabled
	}
}
