// Package tables resolves per-case rows from the analytical result stores and
// turns them into render contexts and plot accumulators.
package tables

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"github.com/pkg/errors"

	"analysis_report_go/manifest"
	"analysis_report_go/plot"
	"analysis_report_go/store"
)

// ND is the placeholder shown for any value that could not be found.
const ND = "nd"

// NumDP is the number of decimal places numeric values are rounded to.
const NumDP = 2

// Fatal conditions. Any of these aborts report generation.
var (
	ErrNoWorkflowRun     = errors.New("no workflow run for case")
	ErrNoLaneSample      = errors.New("no sample for lane")
	ErrAmbiguousRow      = errors.New("multiple rows for a unique key")
	ErrSource            = errors.New("source store error")
	ErrMalformedSampleID = errors.New("malformed sample identifier")
)

// Axis is what a table iterates within each case.
type Axis int

const (
	// PerCase reads one row per case through its workflow run.
	PerCase Axis = iota
	// PerSampleType reads one merged (call-ready) row per case and sample type.
	PerSampleType
	// PerLane reads one row per sequenced lane.
	PerLane
)

func (a Axis) String() string {
	switch a {
	case PerCase:
		return "per_case"
	case PerSampleType:
		return "per_sample_type"
	case PerLane:
		return "per_lane"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// Source is one store table a Table reads from.
type Source struct {
	DB    string
	Table string
	// Key is the primary key column the lookup filters on.
	Key   string
	Match store.Match
	// Conditions narrow the lookup, e.g. gamma = 500.
	Conditions []store.Condition
	// Columns are the keys this source fills; every selected column when empty.
	Columns []string
}

// SampleType pairs a manifest tissue group with its display label.
type SampleType struct {
	Tissue  string
	Display string
}

// MergedKey selects how call-ready tables build their lookup key.
type MergedKey int

const (
	// LaneKeys joins the sorted lane keys of the sample type.
	LaneKeys MergedKey = iota
	// RunLimsKeys joins the sorted limkeys of the matching workflow run.
	RunLimsKeys
)

// PlotSpec registers a plot for one column.
type PlotSpec struct {
	Column string
	Title  string
	YLabel string
	Lo, Hi *float64
}

// RowContext identifies the row being resolved. Fields not relevant to a
// table's axis stay empty.
type RowContext struct {
	Case string
	// SampleType is the short tissue label (Normal, Tumour) used to name plot series.
	SampleType string
	Lane       string
}

// Observer receives lookup outcomes. metrics.Recorder implements it.
type Observer interface {
	Lookup(table string, status store.Status)
	NoData(table string)
}

// Env is shared by every table of a report. It is read-only once built.
type Env struct {
	Manifest *manifest.Manifest
	Store    store.Opener
	Log      *log.Logger
	Observer Observer
}

func (e Env) logger() *log.Logger {
	if e.Log == nil {
		return log.New(io.Discard, "", 0)
	}
	return e.Log
}

// Table is one analytical results table. Tables differ only by the data they
// are built with; see the New*Table constructors.
type Table struct {
	Name      string
	Title     string
	Blurb     string
	Columns   []Column
	Glossary  Pairs
	Step      string
	Processes []string
	Axis      Axis
	// Sources are read in order. PerCase tables fill each source's columns
	// independently; PerLane tables fall back to the next source on a miss.
	Sources     []Source
	Library     string
	SampleTypes []SampleType
	MergedKey   MergedKey
	PlotSpecs   []PlotSpec

	env   Env
	plots map[string]*plot.Plot
}

// Select returns the select expressions of the stored columns and the
// position of each column key in a returned row.
func (t *Table) Select() ([]string, map[string]int) {
	return t.selectFor(nil)
}

func (t *Table) selectFor(keys []string) ([]string, map[string]int) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	var exprs []string
	indices := make(map[string]int)
	for _, c := range t.Columns {
		if !c.selected() || (len(keys) > 0 && !want[c.Key]) {
			continue
		}
		indices[c.Key] = len(exprs)
		exprs = append(exprs, c.Expr)
	}
	return exprs, indices
}

// Headings returns the display headings in column order.
func (t *Table) Headings() Pairs {
	out := make(Pairs, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, Pair{Key: c.Key, Value: c.Heading})
	}
	return out
}

func (t *Table) column(key string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

func (t *Table) has(key string) bool {
	_, ok := t.column(key)
	return ok
}

// ResolveIdentifier builds the display sample id
// {case}_{tissueType}_{tissueOrigin}_{libraryDesign}_{groupId} from the sample
// metadata stored next to the results. It never fails: any miss logs a line
// and yields ND.
func (t *Table) ResolveIdentifier(ctx context.Context, conn store.Conn, sourceTable, caseID, key, pkColumn string) string {
	q := store.Query{
		Table:   sourceTable,
		Columns: []string{`"Tissue Type"`, `"Tissue Origin"`, `"Library Design"`, `"Group ID"`},
		Filter:  store.Filter{Column: pkColumn, Value: key, Match: store.Like},
	}
	res := store.LookupOne(ctx, conn, q)
	switch res.Status {
	case store.Found, store.Ambiguous:
		parts := []string{caseID}
		for _, v := range res.Row {
			if v == nil {
				parts = append(parts, ND)
				continue
			}
			parts = append(parts, fmt.Sprint(v))
		}
		return strings.Join(parts, "_")
	case store.SourceError:
		t.env.logger().Printf("No sample id for %s, where %s = %s: %v", caseID, pkColumn, key, res.Err)
	default:
		t.env.logger().Printf("No sample id for %s, where %s = %s", caseID, pkColumn, key)
	}
	return ND
}

// RowData copies the values of row into entry. Percentages are scaled by 100,
// numbers rounded to NumDP, NULL becomes ND and strings pass through. Numeric
// values are added to the column's plot, keyed by the sample id for per-case
// tables and by the case for sample-typed tables.
func (t *Table) RowData(indices map[string]int, row store.Row, entry Entry, rc RowContext) Entry {
	for _, c := range t.Columns {
		i, ok := indices[c.Key]
		if !ok || i >= len(row) {
			continue
		}
		v := normalize(row[i], c.Percent)
		entry[c.Key] = v
		if p := t.plots[c.Key]; p != nil {
			if f, ok := asFloat(v); ok {
				p.Add(rc.SampleType, t.plotID(entry, rc), f)
			}
		}
	}
	return entry
}

func (t *Table) plotID(entry Entry, rc RowContext) string {
	if t.Axis == PerCase {
		if id, ok := entry[ColSampleID].(string); ok {
			return id
		}
	}
	return rc.Case
}

// NDEntry returns an entry with every column in indices set to ND and logs
// one line naming the case and source table.
func (t *Table) NDEntry(indices map[string]int, caseID, sourceTable string) Entry {
	t.env.logger().Printf("No data found for %s from %s", caseID, sourceTable)
	if t.env.Observer != nil {
		t.env.Observer.NoData(sourceTable)
	}
	entry := make(Entry, len(indices))
	for k := range indices {
		entry[k] = ND
	}
	return entry
}

// LoadContext resolves the table's data and returns its render context.
func (t *Table) LoadContext(ctx context.Context) (*Context, error) {
	data, err := t.GetData(ctx)
	if err != nil {
		return nil, err
	}
	return &Context{
		Title:    t.Title,
		Headings: t.Headings(),
		Data:     data,
		Blurb:    t.Blurb,
		Glossary: t.Glossary,
	}, nil
}

// NamedPlot is a table plot together with the column it plots.
type NamedPlot struct {
	Column string
	Plot   *plot.Plot
}

// Plots returns the table's plots in registration order, filled by the last
// GetData call.
func (t *Table) Plots() []NamedPlot {
	out := make([]NamedPlot, 0, len(t.PlotSpecs))
	for _, spec := range t.PlotSpecs {
		if p := t.plots[spec.Column]; p != nil {
			out = append(out, NamedPlot{Column: spec.Column, Plot: p})
		}
	}
	return out
}

func (t *Table) resetPlots() {
	t.plots = make(map[string]*plot.Plot, len(t.PlotSpecs))
	for _, spec := range t.PlotSpecs {
		p := plot.New(spec.Title, spec.YLabel)
		p.Lo, p.Hi = spec.Lo, spec.Hi
		t.plots[spec.Column] = p
	}
}

func normalize(v any, percent bool) any {
	switch x := v.(type) {
	case nil:
		return ND
	case int64:
		if percent {
			return x * 100
		}
		return x
	case float64:
		if percent {
			x *= 100
		}
		return round(x)
	case string:
		return x
	}
	return v
}

func round(x float64) float64 {
	p := math.Pow10(NumDP)
	return math.Round(x*p) / p
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
