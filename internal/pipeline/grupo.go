package pipeline

import (
	"crmetl/internal/rules"
	"crmetl/internal/transformer"
	"crmetl/internal/transformer/builtin"
	"crmetl/internal/transformer/shape"
)

const grupoName = rules.PipelineGrupo

// GrupoRaices builds the single-input Grupo Raices pipeline:
// filter, title-case people, inject literals, truncate dates, rename,
// canonicalize advisors and classify them as internal or external.
func GrupoRaices(opts Options) Definition {
	cat := rules.GrupoRaices()
	return Definition{
		Name:          cat.Name,
		Input:         cat.Input,
		Output:        cat.Output,
		DateColumn:    rules.ColDate,
		AdvisorColumn: rules.ColAdvisor,
		TypeColumn:    rules.ColType,
		Build: func(h Hooks) Phases {
			return Phases{
				Filter: []transformer.Step{
					transformer.Rows{Label: "status", T: builtin.Equals{Column: rules.ColSaleStatus, Value: rules.StatusCompleted}},
				},
				Normalize: []transformer.Step{
					transformer.Rows{Label: "title_case", T: builtin.TitleCase{Columns: []string{rules.ColAdvisor, rules.ColClient}}},
					shape.Constant{Columns: cat.Constants},
					transformer.Rows{Label: "month_start", T: builtin.MonthStart{
						Column:  rules.ColContractDate,
						Layouts: opts.DateLayouts,
						Warn:    h.DateWarning,
					}},
				},
				Reshape: []transformer.Step{
					shape.Rename{Pairs: cat.Renames},
					transformer.Rows{Label: "advisor_map", T: builtin.Remap{Column: rules.ColAdvisor, Names: cat.Advisors}},
					transformer.Rows{
						Label: "advisor_type",
						Adds:  []string{rules.ColType},
						T: builtin.Classify{
							Source:  rules.ColAdvisor,
							Target:  rules.ColType,
							Members: cat.Internal,
							In:      rules.TypeInternal,
							Out:     rules.TypeExternal,
							Report:  h.Classified,
						},
					},
				},
			}
		},
	}
}
