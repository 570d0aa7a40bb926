package pipeline

import (
	"crmetl/internal/schema"
	"crmetl/internal/transformer"
	"crmetl/internal/transformer/builtin"
)

// Hooks receive row-level diagnostics while phases run. The runner installs
// them; definitions pass them to the transformers that report.
type Hooks struct {
	DateWarning func(*builtin.ParseError)
	Classified  func(counts map[string]int)
}

// Phases holds the steps of the three transform phases, in order.
type Phases struct {
	Filter    []transformer.Step
	Normalize []transformer.Step
	Reshape   []transformer.Step
}

// Definition is everything that makes one pipeline different from another.
type Definition struct {
	Name string

	Input schema.Contract
	// Working, when set, projects the table onto these columns right after
	// validation.
	Working []string
	Output  schema.Contract

	// DedupInputs drops exact duplicate rows after concatenating inputs.
	DedupInputs bool

	// Columns read by the run summary.
	DateColumn    string
	AdvisorColumn string
	TypeColumn    string

	// Build returns fresh phases wired to h.
	Build func(h Hooks) Phases
}

// Options tune the built-in definitions.
type Options struct {
	// DateLayouts override builtin.DefaultDateLayouts.
	DateLayouts []string
}

// ByName returns the built-in definition for a pipeline name.
func ByName(name string, opts Options) (Definition, bool) {
	switch name {
	case grupoName:
		return GrupoRaices(opts), true
	case masivName:
		return Masiv(opts), true
	}
	return Definition{}, false
}
