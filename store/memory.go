package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Record is one row of an in-memory table keyed by column name or select
// expression. Computed expressions are stored under their exact expression text.
type Record map[string]any

// Memory is an in-process store used by tests.
type Memory struct {
	sources map[string]map[string][]Record
	// Fail makes Open or Query return an error for a source.
	Fail map[string]error
	// Opened counts Open calls per source; Closed counts Close calls.
	Opened map[string]int
	Closed map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		sources: make(map[string]map[string][]Record),
		Fail:    make(map[string]error),
		Opened:  make(map[string]int),
		Closed:  make(map[string]int),
	}
}

// Add appends records to source.table.
func (m *Memory) Add(source, table string, records ...Record) {
	tables, ok := m.sources[source]
	if !ok {
		tables = make(map[string][]Record)
		m.sources[source] = tables
	}
	tables[table] = append(tables[table], records...)
}

func (m *Memory) Open(_ context.Context, source string) (Conn, error) {
	if err := m.Fail[source]; err != nil {
		return nil, err
	}
	tables, ok := m.sources[source]
	if !ok {
		return nil, errors.Wrap(ErrSourceMissing, source)
	}
	m.Opened[source]++
	return &memConn{store: m, source: source, tables: tables}, nil
}

// Balanced reports whether every opened connection was closed.
func (m *Memory) Balanced() bool {
	for src, n := range m.Opened {
		if m.Closed[src] != n {
			return false
		}
	}
	return true
}

type memConn struct {
	store  *Memory
	source string
	tables map[string][]Record
}

func (c *memConn) Query(_ context.Context, q Query) ([]Row, error) {
	if err := c.store.Fail[c.source+"."+q.Table]; err != nil {
		return nil, err
	}
	records, ok := c.tables[q.Table]
	if !ok {
		return nil, errors.Errorf("no such table: %s", q.Table)
	}
	var out []Row
	for _, rec := range records {
		if !matches(rec, q) {
			continue
		}
		row := make(Row, len(q.Columns))
		for i, col := range q.Columns {
			row[i] = rec[unquote(col)]
		}
		out = append(out, row)
	}
	return out, nil
}

func (c *memConn) Close() error {
	c.store.Closed[c.source]++
	return nil
}

func matches(rec Record, q Query) bool {
	v, ok := rec[q.Filter.Column]
	if !ok {
		return false
	}
	s := fmt.Sprint(v)
	switch q.Filter.Match {
	case Exact:
		if s != q.Filter.Value {
			return false
		}
	default:
		if !strings.Contains(s, q.Filter.Value) {
			return false
		}
	}
	for _, cond := range q.Conditions {
		if fmt.Sprint(rec[cond.Column]) != fmt.Sprint(cond.Value) {
			return false
		}
	}
	return true
}

// unquote strips the double quotes of a plain quoted column; expressions are
// returned trimmed so they can be used as keys verbatim.
func unquote(col string) string {
	col = strings.TrimSpace(col)
	if len(col) >= 2 && col[0] == '"' && col[len(col)-1] == '"' && strings.Count(col, `"`) == 2 {
		return col[1 : len(col)-1]
	}
	return col
}
