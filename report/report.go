// Package report assembles table sections into the analysis report and
// renders the result as PDF, HTML or a JSON context dump.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"analysis_report_go/manifest"
	"analysis_report_go/tables"
)

const (
	reportTitle = "Analysis Data Release Report"
	reportBlurb = "Quality control summary of the sequencing data and analysis " +
		"results released for this project. Values that could not be found are shown as nd."
)

// Header is the first page of the report.
type Header struct {
	Project string `json:"project"`
	Release string `json:"release"`
	Title   string `json:"title"`
	Blurb   string `json:"blurb"`
	Date    string `json:"date"`
}

func NewHeader(m *manifest.Manifest, now time.Time) Header {
	return Header{
		Project: m.Project,
		Release: m.Release,
		Title:   reportTitle,
		Blurb:   reportBlurb,
		Date:    now.Format("2006-01-02"),
	}
}

// Report is the ordered list of sections plus the header.
type Report struct {
	Header   Header
	Sections []*Section
}

// New lays out the standard report for a release.
func New(env tables.Env, now time.Time) *Report {
	return &Report{
		Header: NewHeader(env.Manifest, now),
		Sections: []*Section{
			{
				Name:   "cases",
				Title:  "Cases",
				Blurb:  "Samples released for each case, decoded from their sample identifiers.",
				Tables: []Loader{tables.NewCasesTable(env)},
			},
			{
				Name:  "raw_data",
				Title: "Raw Sequence Data",
				Blurb: "Lane level sequencing and alignment metrics, before lanes are merged.",
				Tables: []Loader{
					tables.NewWGLaneLevelTable(env),
					tables.NewWTLaneLevelTable(env),
				},
			},
			{
				Name:  "call_ready",
				Title: "Call-Ready Alignments",
				Blurb: "Metrics of the merged alignments used for variant calling.",
				Tables: []Loader{
					tables.NewWGCallReadyTable(env),
					tables.NewWTCallReadyTable(env),
				},
			},
			{
				Name:   "mutations",
				Title:  "Mutations",
				Blurb:  "Somatic single nucleotide variants and indels.",
				Tables: []Loader{tables.NewMutect2Table(env)},
			},
			{
				Name:   "copy_number",
				Title:  "Copy Number Alterations",
				Blurb:  "Tumour purity, ploidy and the fraction of the genome altered.",
				Tables: []Loader{tables.NewSequenzaTable(env)},
			},
			{
				Name:   "structural_variants",
				Title:  "Structural Variants",
				Blurb:  "Somatic structural variants by type.",
				Tables: []Loader{tables.NewDellyTable(env)},
			},
			{
				Name:   "gene_expression",
				Title:  "Gene Expression",
				Blurb:  "Transcript abundance summaries.",
				Tables: []Loader{tables.NewRSEMTable(env)},
			},
			{
				Name:   "gene_fusions",
				Title:  "Gene Fusions",
				Blurb:  "Gene fusion calls.",
				Tables: []Loader{tables.NewStarFusionTable(env)},
			},
		},
	}
}

// TableCount is the number of tables across sections.
func (r *Report) TableCount() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Tables)
	}
	return n
}

// Context is everything the renderers need.
type Context struct {
	Header   Header            `json:"header"`
	Sections []*SectionContext `json:"-"`
}

// Section returns the named section context.
func (c *Context) Section(name string) (*SectionContext, bool) {
	for _, s := range c.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// MarshalJSON writes sections as an object keyed by name, in report order.
func (c *Context) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	h, err := json.Marshal(c.Header)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"header":`)
	buf.Write(h)
	buf.WriteString(`,"sections":{`)
	for i, s := range c.Sections {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(s.Name)
		v, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// LoadContext loads every section in order. The first fatal error stops the run.
func (r *Report) LoadContext(ctx context.Context, opts Options) (*Context, error) {
	out := &Context{Header: r.Header}
	for _, s := range r.Sections {
		sc, err := s.LoadContext(ctx, opts)
		if err != nil {
			return nil, errors.Wrap(err, "loading report")
		}
		out.Sections = append(out.Sections, sc)
	}
	return out, nil
}
