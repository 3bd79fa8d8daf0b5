package sqlstore

import (
	// Import of sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

var sqlite3 = dialect{
	driver: "sqlite3",
	createTable: `CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		version TEXT NOT NULL,
		data BLOB NOT NULL)`,
	placeholder: func(int) string { return "?" },
}
