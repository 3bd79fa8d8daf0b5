/*
Package sqlstore provides a tree.Store backed by an SQL database. Trees
are kept serialized in a single table, with a dialect per supported
database:
  - SQLite3, for URLs with the sqlite3:// scheme or plain file paths
  - PostgreSQL, for URLs with the postgres:// or postgresql:// schemes
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/matthieu-boussard/craft-ai-client-python/tree"
)

// dialect holds what changes from one database to another.
type dialect struct {
	driver      string
	createTable string
	placeholder func(int) string
}

type sqlStore struct {
	db     *sql.DB
	d      dialect
	table  string
	encdec tree.EncodeDecoder
}

/*
Open takes a database URL, a table name and a tree.EncodeDecoder and
returns a tree.Store keeping the trees encoded in the table, which is
created if it does not exist yet. An error is returned if the database
cannot be reached or the table cannot be created.
*/
func Open(ctx context.Context, url, table string, encdec tree.EncodeDecoder) (tree.Store, error) {
	d, dsn := dialectFor(url)
	if err := validTableName(table); err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %v", d.driver, err)
	}
	ss := &sqlStore{db: db, d: d, table: table, encdec: encdec}
	if _, err = db.ExecContext(ctx, fmt.Sprintf(d.createTable, table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring table %s exists: %v", table, err)
	}
	return ss, nil
}

func dialectFor(url string) (dialect, string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres, url
	default:
		return sqlite3, strings.TrimPrefix(url, "sqlite3://")
	}
}

func validTableName(table string) error {
	if table == "" {
		return fmt.Errorf("invalid table name: it is empty")
	}
	for _, r := range table {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return fmt.Errorf("invalid table name %q: contains invalid character %q", table, r)
		}
	}
	return nil
}

func (ss *sqlStore) insertStmt() string {
	return fmt.Sprintf("INSERT INTO %s (id, version, data) VALUES (%s, %s, %s)",
		ss.table, ss.d.placeholder(1), ss.d.placeholder(2), ss.d.placeholder(3))
}

func (ss *sqlStore) upsertStmt() string {
	return ss.insertStmt() + " ON CONFLICT (id) DO UPDATE SET version = excluded.version, data = excluded.data"
}

func (ss *sqlStore) Create(ctx context.Context, t *tree.Tree) error {
	t.ID = tree.NewID()
	data, err := ss.encdec.Encode(t)
	if err != nil {
		return fmt.Errorf("creating tree: encoding tree: %v", err)
	}
	if _, err = ss.db.ExecContext(ctx, ss.insertStmt(), t.ID, t.Version, data); err != nil {
		return fmt.Errorf("creating tree %q: %v", t.ID, err)
	}
	return nil
}

func (ss *sqlStore) Get(ctx context.Context, id string) (*tree.Tree, error) {
	var data []byte
	query := fmt.Sprintf("SELECT data FROM %s WHERE id = %s", ss.table, ss.d.placeholder(1))
	err := ss.db.QueryRowContext(ctx, query, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tree.ErrTreeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("retrieving tree %q: %v", id, err)
	}
	t, err := ss.encdec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("retrieving tree %q: decoding: %w", id, err)
	}
	t.ID = id
	return t, nil
}

func (ss *sqlStore) Store(ctx context.Context, t *tree.Tree) error {
	if t.ID == "" {
		return fmt.Errorf("storing tree: tree has no ID")
	}
	data, err := ss.encdec.Encode(t)
	if err != nil {
		return fmt.Errorf("storing tree %q: encoding tree: %v", t.ID, err)
	}
	if _, err = ss.db.ExecContext(ctx, ss.upsertStmt(), t.ID, t.Version, data); err != nil {
		return fmt.Errorf("storing tree %q: %v", t.ID, err)
	}
	return nil
}

func (ss *sqlStore) Delete(ctx context.Context, id string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = %s", ss.table, ss.d.placeholder(1))
	if _, err := ss.db.ExecContext(ctx, stmt, id); err != nil {
		return fmt.Errorf("deleting tree %q: %v", id, err)
	}
	return nil
}

func (ss *sqlStore) Close(ctx context.Context) error {
	return ss.db.Close()
}
