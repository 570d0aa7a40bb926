package rules

import "crmetl/internal/schema"

// Column names shared by both business units' reports.
const (
	ColUnit          = "Unidad"
	ColArea          = "M2"
	ColPricePerArea  = "Precio M2"
	ColAdvisor       = "Asesor"
	ColClient        = "Cliente"
	ColSalePrice     = "Precio Venta"
	ColContractDate  = "Fecha Carga contrato"
	ColSaleStatus    = "Status Venta"
	ColStage         = "Etapa"
	ColDevelopment   = "Desarrollo"
	ColDate          = "Fecha"
	ColBrand         = "Marca"
	ColSub           = "Sub"
	ColModel         = "Modelo"
	ColBranch        = "Sucursal"
	ColType          = "Tipo"
	ColHunter        = "Hunter"
	ColTeam          = "Equipo"
	StatusCompleted  = "Finalizado"
	TypeInternal     = "Interno"
	TypeExternal     = "Externo"
	BranchMerida     = "Merida"
	ModelUnknown     = "No identificado"
	TeamPlaceholder  = "N/A"
	PipelineGrupo    = "grupo_raices"
	PipelineMasiv    = "masiv"
	grupoBrand       = "Flamingo"
	masivBrand       = "Navire"
	claroDeMarRaw    = "Claro de Mar"
	claroDeMarTitled = "Claro De Mar"
)

// Literal is a fixed-value column injected into every row. A nil Value
// yields an all-null column.
type Literal struct {
	Name  string
	Value any
}

// Rename maps a source column name to its target name.
type Rename struct {
	From string
	To   string
}

// Special captures the Masiv development rule: rows whose development is
// the special name get their development and stage exchanged, and the final
// development keeps the stage only when it equals the special name.
type Special struct {
	// Raw is preserved verbatim by development cleaning when found as a
	// substring of the raw value.
	Raw string
	// Titled is the value after title-casing, used by the swap and derive
	// steps.
	Titled string
	// Brand replaces the development of every other row.
	Brand string
}

// Catalog is the complete static configuration of one pipeline.
type Catalog struct {
	Name string

	// Input lists required, typed input columns.
	Input schema.Contract
	// Working optionally narrows the table right after validation.
	Working []string
	// Output fixes the final column set and order.
	Output schema.Contract

	Advisors NameMap
	// Internal is the set Classify checks; left empty when Tipo is a
	// literal.
	Internal  NameSet
	Constants []Literal
	Renames   []Rename

	// DedupInputs drops exact duplicate rows after concatenating inputs.
	DedupInputs bool
	// Special is set for pipelines with the development swap rule.
	Special *Special
}

func salesInput(name string, withDevelopment bool) schema.Contract {
	var fields []schema.Field
	if withDevelopment {
		fields = append(fields, schema.Field{Name: ColDevelopment, Type: schema.TypeText, Required: true})
	}
	fields = append(fields,
		schema.Field{Name: ColUnit, Type: schema.TypeAuto, Required: true},
		schema.Field{Name: ColArea, Type: schema.TypeNumber, Required: true},
		schema.Field{Name: ColPricePerArea, Type: schema.TypeNumber, Required: true},
		schema.Field{Name: ColAdvisor, Type: schema.TypeText, Required: true},
		schema.Field{Name: ColClient, Type: schema.TypeText, Required: true},
		schema.Field{Name: ColSalePrice, Type: schema.TypeNumber, Required: true},
		schema.Field{Name: ColContractDate, Type: schema.TypeDate, Required: true},
		schema.Field{Name: ColSaleStatus, Type: schema.TypeText, Required: true},
		schema.Field{Name: ColStage, Type: schema.TypeText, Required: true},
	)
	return schema.Contract{Name: name, Fields: fields}
}

func output(name string, cols ...string) schema.Contract {
	fields := make([]schema.Field, len(cols))
	for i, c := range cols {
		typ := schema.TypeText
		switch c {
		case ColDate:
			typ = schema.TypeDate
		case ColArea, ColPricePerArea, ColSalePrice:
			typ = schema.TypeNumber
		case ColUnit:
			typ = schema.TypeAuto
		}
		fields[i] = schema.Field{Name: c, Type: typ}
	}
	return schema.Contract{Name: name, Fields: fields}
}

// GrupoRaices returns the Grupo Raices catalog.
func GrupoRaices() Catalog {
	return Catalog{
		Name:  PipelineGrupo,
		Input: salesInput(PipelineGrupo+"_input", false),
		Output: output(PipelineGrupo+"_output",
			ColDate, ColBrand, ColDevelopment, ColSub, ColUnit, ColModel,
			ColArea, ColPricePerArea, ColSalePrice, ColAdvisor, ColType,
			ColHunter, ColClient, ColBranch,
		),
		Advisors: NewNameMap(map[string]string{
			"Eq.":               "Eq. Good Sales",
			"Alianza":           "Alianza",
			"Grupo":             "Grupo Jr",
			"Academia":          "Academia",
			"Luis Alfonso":      "Luis Alfonso",
			"Ivan Alberto":      "Ivan Alberto",
			"Karla Soto":        "Grupo Raices",
			"Carlos Humberto":   "Carlos Humberto",
			"Carlos Daniel":     "Carlos Daniel",
			"Margarita Eugenia": "Margarita Eugenia",
			"Jorge Alberto":     "Jorge Alberto",
		}),
		Internal: NewNameSet(
			"Jorge Alberto", "Margarita Eugenia", "Carlos Daniel",
			"Carlos Humberto", "Grupo Raices", "Ivan Alberto", "Luis Alfonso",
		),
		Constants: []Literal{
			{Name: ColBrand, Value: grupoBrand},
			{Name: ColDevelopment, Value: grupoBrand},
			{Name: ColBranch, Value: BranchMerida},
			{Name: ColModel, Value: ModelUnknown},
			{Name: ColSub, Value: nil},
			{Name: ColHunter, Value: nil},
		},
		Renames: []Rename{
			{From: ColContractDate, To: ColDate},
		},
	}
}

// Masiv returns the Masiv catalog.
func Masiv() Catalog {
	in := salesInput(PipelineMasiv+"_input", true)
	return Catalog{
		Name:    PipelineMasiv,
		Input:   in,
		Working: in.Names(),
		Output: output(PipelineMasiv+"_output",
			ColDate, ColBrand, ColDevelopment, ColSub, ColUnit, ColModel,
			ColArea, ColPricePerArea, ColSalePrice, ColAdvisor, ColBranch,
			ColType, ColTeam, ColClient,
		),
		Advisors: NewNameMap(map[string]string{
			"Monserrat": "Monserrat Malja",
			"Gerardo":   "Gerardo de la Peña",
			"Said":      "Said Ortiz",
			"Yoskua":    "Yoskua Amaro",
			"Armando":   "Armando Gonzalez",
			"Cynthia":   "Cynthia Aguilar",
			"Evelyn":    "Evelyn",
			"Miguel":    "Miguel Benavente",
			"Luis":      "Luis Ruiz",
			"Iliana":    "Iliana Gómez",
		}),
		Constants: []Literal{
			{Name: ColBranch, Value: BranchMerida},
			{Name: ColType, Value: TypeInternal},
			{Name: ColTeam, Value: TeamPlaceholder},
			{Name: ColModel, Value: ModelUnknown},
			{Name: ColBrand, Value: masivBrand},
		},
		Renames: []Rename{
			{From: ColContractDate, To: ColDate},
			{From: ColDevelopment, To: ColSub},
		},
		DedupInputs: true,
		Special: &Special{
			Raw:    claroDeMarRaw,
			Titled: claroDeMarTitled,
			Brand:  masivBrand,
		},
	}
}
