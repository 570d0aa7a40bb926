package pipeline

import (
	"crmetl/internal/rules"
	"crmetl/internal/transformer"
	"crmetl/internal/transformer/builtin"
	"crmetl/internal/transformer/shape"
)

const masivName = rules.PipelineMasiv

// Masiv builds the dual-input Masiv pipeline. Besides the shared steps it
// cleans development names and applies the Claro de Mar rule: the stage is
// swapped into the development column, the development column becomes Sub,
// and the final development is the stage only when the stage is the special
// name, the brand otherwise.
func Masiv(opts Options) Definition {
	cat := rules.Masiv()
	sp := cat.Special
	return Definition{
		Name:          cat.Name,
		Input:         cat.Input,
		Working:       cat.Working,
		Output:        cat.Output,
		DedupInputs:   cat.DedupInputs,
		DateColumn:    rules.ColDate,
		AdvisorColumn: rules.ColAdvisor,
		TypeColumn:    rules.ColType,
		Build: func(h Hooks) Phases {
			return Phases{
				Filter: []transformer.Step{
					transformer.Rows{Label: "status", T: builtin.Equals{Column: rules.ColSaleStatus, Value: rules.StatusCompleted}},
				},
				Normalize: []transformer.Step{
					transformer.Rows{Label: "strip_accents", T: builtin.StripAccents{Columns: []string{rules.ColDevelopment}, NullAsEmpty: true}},
					transformer.Rows{Label: "title_case", T: builtin.TitleCase{Columns: []string{rules.ColAdvisor, rules.ColClient}}},
					transformer.Rows{Label: "clean_development", T: builtin.CleanDevelopment{Column: rules.ColDevelopment, Keep: sp.Raw}},
					transformer.Rows{Label: "month_start", T: builtin.MonthStart{
						Column:  rules.ColContractDate,
						Layouts: opts.DateLayouts,
						Warn:    h.DateWarning,
					}},
					transformer.Rows{Label: "title_development", T: builtin.TitleCase{Columns: []string{rules.ColDevelopment}}},
					transformer.Rows{Label: "swap_special", T: builtin.SwapWhen{Column: rules.ColDevelopment, Equals: sp.Titled, With: rules.ColStage}},
				},
				Reshape: []transformer.Step{
					shape.Rename{Pairs: cat.Renames},
					transformer.Rows{Label: "advisor_map", T: builtin.Remap{Column: rules.ColAdvisor, Names: cat.Advisors}},
					shape.Constant{Columns: cat.Constants},
					transformer.Rows{
						Label: "derive_development",
						Adds:  []string{rules.ColDevelopment},
						T:     builtin.Derive{Target: rules.ColDevelopment, From: rules.ColStage, Keep: sp.Titled, Else: sp.Brand},
					},
				},
			}
		},
	}
}
