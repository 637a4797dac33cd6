package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/pkg/errors"

	"analysis_report_go/metrics"
	"analysis_report_go/plot"
	"analysis_report_go/tables"
)

// Unavailable is shown in place of a plot that has no data or failed to render.
const Unavailable = "Graph unavailable"

// Loader is a table a section can render.
type Loader interface {
	ID() string
	LoadContext(ctx context.Context) (*tables.Context, error)
	Plots() []tables.NamedPlot
}

// Options control how sections render their plots.
type Options struct {
	PlotDir string
	Log     *log.Logger
	Metrics *metrics.Recorder
	// Progress is called after each table is loaded.
	Progress func(table string)
}

func (o Options) logger() *log.Logger {
	if o.Log == nil {
		return log.New(io.Discard, "", 0)
	}
	return o.Log
}

// Section groups tables under one heading of the report.
type Section struct {
	Name   string
	Title  string
	Blurb  string
	Tables []Loader
}

// PlotContext is one rendered plot. Path is empty when the plot is unavailable.
type PlotContext struct {
	Key   string `json:"-"`
	Title string `json:"title"`
	Path  string `json:"fig_path"`
	// Note carries the placeholder text when Path is empty.
	Note string `json:"note,omitempty"`
}

// PlotContexts keeps plots in table then plot order.
type PlotContexts []PlotContext

func (p PlotContexts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pc := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(pc.Key)
		v, err := json.Marshal(pc)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SectionContext is the render context of a section.
type SectionContext struct {
	Name   string            `json:"-"`
	Title  string            `json:"title"`
	Blurb  string            `json:"blurb"`
	Tables []*tables.Context `json:"tables"`
	Plots  PlotContexts      `json:"plots"`
}

// PlotsFor returns the plots of the table at index i.
func (s *SectionContext) PlotsFor(i int) []PlotContext {
	prefix := fmt.Sprintf("%d_", i)
	var out []PlotContext
	for _, p := range s.Plots {
		if len(p.Key) > len(prefix) && p.Key[:len(prefix)] == prefix {
			out = append(out, p)
		}
	}
	return out
}

// LoadContext loads every table and renders its plots. Plots are keyed
// "{tableIndex}_{plotIndex}".
func (s *Section) LoadContext(ctx context.Context, opts Options) (*SectionContext, error) {
	sc := &SectionContext{Name: s.Name, Title: s.Title, Blurb: s.Blurb}
	for i, t := range s.Tables {
		tc, err := t.LoadContext(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "section %s: table %s", s.Name, t.ID())
		}
		sc.Tables = append(sc.Tables, tc)

		for j, np := range t.Plots() {
			sc.Plots = append(sc.Plots, renderPlot(np, t.ID(), fmt.Sprintf("%d_%d", i, j), opts))
		}
		if opts.Progress != nil {
			opts.Progress(t.ID())
		}
	}
	return sc, nil
}

func renderPlot(np tables.NamedPlot, tableID, key string, opts Options) PlotContext {
	pc := PlotContext{Key: key, Title: np.Plot.Title}
	path, err := np.Plot.Generate(opts.PlotDir, tableID+"_"+np.Column)
	switch {
	case err == nil:
		pc.Path = path
		opts.Metrics.Plot(metrics.PlotRendered)
	case errors.Is(err, plot.ErrEmptyPlot):
		opts.logger().Printf("No data to plot for %s %s", tableID, np.Column)
		pc.Note = Unavailable
		opts.Metrics.Plot(metrics.PlotEmpty)
	default:
		opts.logger().Printf("Plot %s %s failed: %v", tableID, np.Column, err)
		pc.Note = Unavailable
		opts.Metrics.Plot(metrics.PlotFailed)
	}
	return pc
}
