package catalog

import (
	"embed"
	"fmt"

	"github.com/goliatone/go-dynforms/pkg/model"
)

//go:embed sample/*.json
var sampleFS embed.FS

// SampleFS exposes the bundled demo catalog for SourceFromFS.
func SampleFS() embed.FS {
	return sampleFS
}

// SampleSource names the bundled demo catalog inside SampleFS.
const SampleSource = "sample/contractor_performance.json"

// SampleForms returns the bundled "Contractor Performance" demo form.
func SampleForms() []model.Form {
	raw, err := sampleFS.ReadFile(SampleSource)
	if err != nil {
		panic(fmt.Sprintf("catalog: sample missing: %v", err))
	}
	result, err := DecodeJSON(raw)
	if err != nil || len(result.Skipped) > 0 {
		panic(fmt.Sprintf("catalog: sample is malformed: %v %v", err, result.Skipped))
	}
	return result.Forms
}
