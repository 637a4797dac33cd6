// Package plot accumulates per-metric observations and renders them as
// scatter plots with a median line per series.
package plot

import (
	"image/color"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	common "analysis_report_go/utils"
)

// ErrEmptyPlot is returned by Generate when no observation was added.
var ErrEmptyPlot = errors.New("plot has no data")

// Series is one named sequence of (id, value) observations.
type Series struct {
	Name   string
	IDs    []string
	Values []float64
}

// Plot is the accumulator for one plotted column of a table.
type Plot struct {
	Title  string
	YLabel string
	// Lo and Hi fix the y axis when set.
	Lo, Hi *float64

	// Now stamps the output file name; time.Now when nil.
	Now func() time.Time

	series []*Series
}

func New(title, yLabel string) *Plot {
	return &Plot{Title: title, YLabel: yLabel}
}

// Bound returns a pointer to v, for Lo and Hi.
func Bound(v float64) *float64 { return &v }

// Add appends one observation to the named series. Single-series plots use
// the empty name.
func (p *Plot) Add(series, id string, value float64) {
	var s *Series
	for _, cur := range p.series {
		if cur.Name == series {
			s = cur
			break
		}
	}
	if s == nil {
		s = &Series{Name: series}
		p.series = append(p.series, s)
	}
	s.IDs = append(s.IDs, id)
	s.Values = append(s.Values, value)
}

// Series returns the accumulated series in insertion order.
func (p *Plot) Series() []*Series { return p.series }

// Len returns the total number of observations.
func (p *Plot) Len() int {
	n := 0
	for _, s := range p.series {
		n += len(s.Values)
	}
	return n
}

// Reset drops every observation.
func (p *Plot) Reset() { p.series = nil }

// FileName is the image name for a plot called name on day t.
func FileName(name string, t time.Time) string {
	return sanitize(name) + "." + t.Format("2006-01-02") + "._plot.png"
}

var nameReplacer = strings.NewReplacer("/", "_", string(filepath.Separator), "_", " ", "_")

func sanitize(name string) string { return nameReplacer.Replace(name) }

// Median returns the median of vals, averaging the two middle values for an
// even count. vals is not modified.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}
	return stat.Mean(sorted[n/2-1:n/2+1], nil)
}

// Generate renders the plot as a PNG under dir and returns its path. dir is
// created when absent. A plot without observations writes nothing and
// returns ErrEmptyPlot.
func (p *Plot) Generate(dir, name string) (string, error) {
	if p.Len() == 0 {
		return "", ErrEmptyPlot
	}

	gp := gplot.New()
	gp.Title.Text = p.Title
	gp.Y.Label.Text = p.YLabel
	gp.HideX()

	// ids share one categorical x axis, positioned by first appearance
	pos := make(map[string]float64)
	for _, s := range p.series {
		for _, id := range s.IDs {
			if _, ok := pos[id]; !ok {
				pos[id] = float64(len(pos))
			}
		}
	}

	named := len(p.series) > 1 || p.series[0].Name != ""
	for i, s := range p.series {
		if len(s.Values) == 0 {
			continue
		}
		c := seriesColor(i)

		pts := make(plotter.XYs, len(s.Values))
		for j, v := range s.Values {
			pts[j].X = pos[s.IDs[j]]
			pts[j].Y = v
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return "", errors.Wrapf(err, "scatter %s", name)
		}
		sc.GlyphStyle.Color = c
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)

		med := Median(s.Values)
		line := plotter.NewFunction(func(float64) float64 { return med })
		line.Color = c
		line.Width = vg.Points(1.5)

		gp.Add(sc, line)
		if named {
			gp.Legend.Add(s.Name, sc)
			gp.Legend.Add(s.Name+" median", line)
		}
	}
	if named {
		gp.Legend.Top = true
	}

	// padding keeps the outermost points off the frame
	gp.X.Min = -0.5
	gp.X.Max = float64(len(pos)) - 0.5
	if p.Lo != nil {
		gp.Y.Min = *p.Lo
	}
	if p.Hi != nil {
		gp.Y.Max = *p.Hi
	}

	if err := common.EnsureDir(dir); err != nil {
		return "", err
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	out := filepath.Join(dir, FileName(name, now()))

	w, h := 9*vg.Inch, 2.5*vg.Inch
	if named {
		w, h = 14*vg.Inch, 5*vg.Inch
	}
	if err := gp.Save(w, h, out); err != nil {
		return "", errors.Wrapf(err, "save plot %s", out)
	}
	return out, nil
}

// the first series keeps the red median of the single-series layout
func seriesColor(i int) color.Color {
	if i == 0 {
		return color.RGBA{R: 200, G: 30, B: 30, A: 255}
	}
	return plotutil.Color(i)
}
