// Package ddl renders CREATE TABLE statements for the output contract of a
// pipeline. Storage backends describe their quoting and type names with a
// Dialect; the rendering itself is shared.
package ddl

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"crmetl/internal/schema"
)

// BuildCreateTableSQL renders t for dialect d:
//
//	CREATE TABLE <fqn> (
//	  <name> <type> [NOT NULL],
//	  ...
//	);
func BuildCreateTableSQL(d Dialect, t TableDef) (string, error) {
	prefix := "ddl"
	if d.Name != "" {
		prefix = d.Name + " ddl"
	}
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", prefix)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", prefix)
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", prefix, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", prefix, name)
		}

		var sb strings.Builder
		sb.WriteString(d.quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	quoted := d.QuoteFQN(fqn)
	stmt := fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", quoted, strings.Join(cols, ",\n  "))
	if d.Guard != nil {
		stmt = d.Guard(quoted, stmt)
	}
	return stmt, nil
}

func (d Dialect) quote(id string) string {
	if d.Quote == nil {
		return id
	}
	return d.Quote(id)
}

// QuoteFQN quotes each dotted segment of name. Empty segments are dropped.
func (d Dialect) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, d.quote(p))
	}
	return strings.Join(out, ".")
}

// QuoteAll quotes every column name in cols.
func (d Dialect) QuoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.quote(c)
	}
	return out
}

// SQLType returns the SQL type for a contract field type.
func (d Dialect) SQLType(fieldType string) string {
	if t, ok := d.Types[fieldType]; ok {
		return t
	}
	return d.Types[schema.TypeText]
}

var unaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ColumnName turns a spreadsheet header into a snake_case SQL column name:
// accents are removed, letters lowered, and every run of other characters
// becomes a single underscore. "Precio Venta" becomes "precio_venta".
func ColumnName(header string) string {
	s, _, err := transform.String(unaccent, header)
	if err != nil {
		s = header
	}
	var sb strings.Builder
	pending := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			pending = false
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		pending = true
	}
	return sb.String()
}

// FromContract builds a table definition holding one nullable column per
// contract field, in contract order.
func FromContract(c schema.Contract, fqn string, d Dialect) (TableDef, error) {
	td := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, len(c.Fields))}
	seen := make(map[string]string, len(c.Fields))
	for _, f := range c.Fields {
		name := ColumnName(f.Name)
		if name == "" {
			return TableDef{}, fmt.Errorf("ddl: field %q has no usable column name", f.Name)
		}
		if prev, dup := seen[name]; dup {
			return TableDef{}, fmt.Errorf("ddl: fields %q and %q both map to column %q", prev, f.Name, name)
		}
		seen[name] = f.Name
		td.Columns = append(td.Columns, ColumnDef{
			Name:     name,
			SQLType:  d.SQLType(f.Type),
			Nullable: true,
		})
	}
	return td, nil
}
