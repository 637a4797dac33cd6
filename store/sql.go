package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Environments of the QC-ETL store tree.
const (
	Production = "production"
	Staging    = "staging"
)

// ErrSourceMissing is returned when a source store does not exist.
var ErrSourceMissing = errors.New("source store not found")

// sqlConn runs queries against one database/sql handle.
type sqlConn struct {
	db      *sql.DB
	dialect dialect
	schema  string
	owned   bool // close db on Close
}

func (c *sqlConn) Query(ctx context.Context, q Query) ([]Row, error) {
	stmt, args, err := build(c.dialect, c.schema, q)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", q.Table)
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrapf(err, "column types %s", q.Table)
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(q.Columns))
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrapf(err, "scan %s", q.Table)
		}
		row := make(Row, len(vals))
		for i, v := range vals {
			var dbType string
			if i < len(types) && types[i] != nil {
				dbType = types[i].DatabaseTypeName()
			}
			row[i] = normalizeTyped(v, dbType)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", q.Table)
	}
	return out, nil
}

func (c *sqlConn) Close() error {
	if !c.owned {
		return nil
	}
	return c.db.Close()
}

// normalize maps driver values onto int64, float64, string or nil.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case fmt.Stringer:
		return x.String()
	}
	return v
}

// normalizeTyped is normalize for a column of database type dbType. pgx hands
// NUMERIC values to database/sql as their decimal text, so they are parsed
// back into float64.
func normalizeTyped(v any, dbType string) any {
	switch strings.ToUpper(dbType) {
	case "NUMERIC", "DECIMAL":
		var s string
		switch x := v.(type) {
		case string:
			s = x
		case []byte:
			s = string(x)
		default:
			return normalize(v)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return s
		}
		return f
	}
	return normalize(v)
}

// SQLite opens the per-source sqlite databases of the QC-ETL tree:
// <Root>/<Env>/qcetl_v1/<source>/latest
type SQLite struct {
	Root string
	Env  string
}

// Path returns the database path for source.
func (s SQLite) Path(source string) string {
	env := s.Env
	if env == "" {
		env = Production
	}
	return filepath.Join(s.Root, env, "qcetl_v1", source, "latest")
}

func (s SQLite) Open(ctx context.Context, source string) (Conn, error) {
	path := s.Path(source)
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(ErrSourceMissing, "%s (%s)", source, path)
	}
	dsn, err := readOnlyURI(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "ping sqlite %s", path)
	}
	return &sqlConn{db: db, dialect: questionDialect{}, owned: true}, nil
}

// readOnlyURI is the read-only sqlite URI of the database at path, with the
// path percent-encoded.
func readOnlyURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}
	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}
	return u.String(), nil
}

// Postgres reads every source from one database where each source is a schema.
type Postgres struct {
	DSN string

	once sync.Once
	db   *sql.DB
	err  error
}

var sqlOpen = sql.Open

func NewPostgres(dsn string) *Postgres {
	return &Postgres{DSN: dsn}
}

func (p *Postgres) Open(ctx context.Context, source string) (Conn, error) {
	p.once.Do(func() {
		db, err := sqlOpen("pgx", p.DSN)
		if err != nil {
			p.err = errors.Wrap(err, "open postgres")
			return
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			p.err = errors.Wrap(err, "ping postgres")
			return
		}
		p.db = db
	})
	if p.err != nil {
		return nil, p.err
	}
	return &sqlConn{db: p.db, dialect: dollarDialect{}, schema: source}, nil
}

// Close releases the shared pool.
func (p *Postgres) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}
