// Package store reads rows from the analytical result stores produced by the
// upstream QC-ETL workflows. Stores are only ever read.
package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Match selects how a Filter compares its column to the value.
type Match int

const (
	// Like matches rows whose column contains the value.
	Like Match = iota
	// Exact matches rows whose column equals the value.
	Exact
)

// Filter is the primary-key predicate of a lookup.
type Filter struct {
	Column string
	Value  string
	Match  Match
}

// Condition is an additional equality predicate, e.g. gamma = 500.
type Condition struct {
	Column string
	Value  any
}

// Query addresses rows of one table. Columns are select expressions taken from
// the column schemas and may be computed, e.g. ratios of two casts.
type Query struct {
	Table      string
	Columns    []string
	Filter     Filter
	Conditions []Condition
}

// Row is one result tuple in select order. Values are int64, float64, string or nil.
type Row []any

// Conn is an open connection to one source store.
type Conn interface {
	Query(ctx context.Context, q Query) ([]Row, error)
	Close() error
}

// Opener opens a named source store, e.g. "analysis_mutect2" or "bamqc4".
type Opener interface {
	Open(ctx context.Context, source string) (Conn, error)
}

// Status tags the outcome of a Lookup.
type Status int

const (
	Found Status = iota
	NotFound
	Ambiguous
	SourceError
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case Ambiguous:
		return "ambiguous"
	case SourceError:
		return "source_error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Lookup is the result of a lookup that expects at most one row.
type Lookup struct {
	Status Status
	Row    Row   // set when Status == Found
	Count  int   // number of rows returned
	Err    error // set when Status == SourceError
}

// LookupOne runs q and classifies the result.
func LookupOne(ctx context.Context, conn Conn, q Query) Lookup {
	rows, err := conn.Query(ctx, q)
	if err != nil {
		return Lookup{Status: SourceError, Err: err}
	}
	switch len(rows) {
	case 0:
		return Lookup{Status: NotFound}
	case 1:
		return Lookup{Status: Found, Row: rows[0], Count: 1}
	default:
		return Lookup{Status: Ambiguous, Row: rows[0], Count: len(rows)}
	}
}

var identPattern = regexp.MustCompile(`^[A-Za-z0-9_ .()+\-]+$`)

// ErrBadIdentifier is returned for table or column names that cannot be quoted safely.
var ErrBadIdentifier = errors.New("unsafe identifier")

// QuoteIdent double-quotes a table or column name. Names come from column
// schemas, never from user input, but are still checked before use.
func QuoteIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", errors.Wrapf(ErrBadIdentifier, "%q", name)
	}
	return `"` + name + `"`, nil
}

// dialect renders bind placeholders for a driver.
type dialect interface {
	placeholder(n int) string
}

type questionDialect struct{}

func (questionDialect) placeholder(int) string { return "?" }

type dollarDialect struct{}

func (dollarDialect) placeholder(n int) string { return fmt.Sprintf("$%d", n) }

// build renders q as SQL plus bind arguments. Values never appear in the SQL text.
func build(d dialect, schema string, q Query) (string, []any, error) {
	if len(q.Columns) == 0 {
		return "", nil, errors.New("query has no columns")
	}
	table, err := QuoteIdent(q.Table)
	if err != nil {
		return "", nil, err
	}
	if schema != "" {
		s, err := QuoteIdent(schema)
		if err != nil {
			return "", nil, err
		}
		table = s + "." + table
	}
	pk, err := QuoteIdent(q.Filter.Column)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(q.Columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE ")

	args := make([]any, 0, 1+len(q.Conditions))
	args = append(args, likeValue(q.Filter))
	switch q.Filter.Match {
	case Exact:
		fmt.Fprintf(&sb, "%s = %s", pk, d.placeholder(1))
	default:
		fmt.Fprintf(&sb, `%s LIKE %s ESCAPE '\'`, pk, d.placeholder(1))
	}

	for _, c := range q.Conditions {
		col, err := QuoteIdent(c.Column)
		if err != nil {
			return "", nil, err
		}
		args = append(args, c.Value)
		fmt.Fprintf(&sb, " AND %s = %s", col, d.placeholder(len(args)))
	}
	return sb.String(), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likeValue(f Filter) string {
	if f.Match == Exact {
		return f.Value
	}
	return "%" + likeEscaper.Replace(f.Value) + "%"
}
