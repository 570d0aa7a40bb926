package ddl

// ColumnDef describes a single column of a table definition.
//
// Name is the logical, unquoted column name; quoting happens at render time.
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef holds the dotted table name (e.g. "crm.ventas") and an ordered
// list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect captures what differs between SQL backends when rendering DDL.
type Dialect struct {
	// Name prefixes error messages, e.g. "postgres".
	Name string

	// Quote quotes one identifier segment. Nil leaves identifiers as-is.
	Quote func(string) string

	// Types maps a field type ("text", "number", "date") to a SQL type.
	// Unknown types, "auto" included, fall back to Types["text"].
	Types map[string]string

	// Guard wraps a CREATE TABLE statement so it is a no-op when the table
	// already exists. Nil means the statement is emitted unguarded.
	Guard func(quotedFQN, create string) string
}

// IfNotExists is the Guard for dialects that accept CREATE TABLE IF NOT EXISTS.
func IfNotExists(_ string, create string) string {
	return "CREATE TABLE IF NOT EXISTS" + create[len("CREATE TABLE"):]
}
