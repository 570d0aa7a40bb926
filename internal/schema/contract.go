// Package schema describes the typed column sets a pipeline consumes and
// produces. A Contract is an ordered list of fields; input contracts mark the
// columns a spreadsheet must carry, output contracts fix the final column
// order.
package schema

// Field types understood by the boundary coercion.
const (
	TypeText   = "text"
	TypeNumber = "number"
	TypeDate   = "date"
	// TypeAuto holds a number when the cell parses as one and text
	// otherwise. It is stored as text by SQL backends.
	TypeAuto = "auto"
)

// Field is one named, typed column.
type Field struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"` // "text" | "number" | "date" | "auto"
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Contract is an ordered list of fields.
type Contract struct {
	Name   string  `json:"name" yaml:"name"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Names returns every field name in contract order.
func (c Contract) Names() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}

// Required returns the names of required fields in contract order.
func (c Contract) Required() []string {
	var out []string
	for _, f := range c.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Missing returns the required field names absent from columns, in contract
// order. Matching is exact and case-sensitive.
func (c Contract) Missing(columns []string) []string {
	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[col] = struct{}{}
	}
	var missing []string
	for _, name := range c.Required() {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Types maps each non-text field to its type. Text fields are omitted since
// they need no coercion.
func (c Contract) Types() map[string]string {
	out := make(map[string]string, len(c.Fields))
	for _, f := range c.Fields {
		if f.Type == "" || f.Type == TypeText {
			continue
		}
		out[f.Name] = f.Type
	}
	return out
}

// Field returns the field called name.
func (c Contract) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
