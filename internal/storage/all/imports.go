// Package all registers every built-in storage backend. Import it for side
// effects from the command that wires the process:
//
//	import _ "crmetl/internal/storage/all"
package all

import (
	_ "crmetl/internal/storage/mssql"
	_ "crmetl/internal/storage/mysql"
	_ "crmetl/internal/storage/postgres"
	_ "crmetl/internal/storage/sqlite"
)
