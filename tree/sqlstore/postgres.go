package sqlstore

import (
	"fmt"

	// Import of PostgreSQL driver
	_ "github.com/lib/pq"
)

var postgres = dialect{
	driver: "postgres",
	createTable: `CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		version TEXT NOT NULL,
		data BYTEA NOT NULL)`,
	placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
}
