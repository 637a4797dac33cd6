package tables

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"analysis_report_go/manifest"
)

// SampleName is a sample identifier decoded into its naming fields:
// project_number_tissueType_tissueOrigin_libraryDesign[_...]
type SampleName struct {
	Case          string
	TissueType    string
	TissueOrigin  string
	LibraryDesign string
}

// DecodeSampleID splits a sample identifier. Fewer than five fields is an error.
func DecodeSampleID(id string) (SampleName, error) {
	f := strings.Split(id, "_")
	if len(f) < 5 {
		return SampleName{}, errors.Wrapf(ErrMalformedSampleID, "%q has %d fields", id, len(f))
	}
	return SampleName{
		Case:          f[0] + "_" + f[1],
		TissueType:    f[2],
		TissueOrigin:  f[3],
		LibraryDesign: f[4],
	}, nil
}

// sample groups listed in the Cases table, in display order
var caseSampleGroups = []struct{ library, tissue string }{
	{manifest.WholeGenome, manifest.Normal},
	{manifest.WholeGenome, manifest.Tumour},
	{manifest.WholeTranscriptome, manifest.Tumour},
}

// CasesTable lists every sample of every case with its decoded naming fields.
// It reads only the manifest.
type CasesTable struct {
	Title   string
	Blurb   string
	Columns []Column

	env Env
}

func NewCasesTable(env Env) *CasesTable {
	return &CasesTable{
		Title: "Cases",
		Columns: []Column{
			{Key: ColCase, Heading: "Case"},
			{Key: ColLibraryDesign, Heading: "Library Type"},
			{Key: ColTissueType, Heading: "Sample Type"},
			{Key: ColTissueOrigin, Heading: "Tissue Origin"},
			{Key: ColSampleID, Heading: "Sample ID"},
			{Key: ColExternalID, Heading: "External ID"},
		},
		env: env,
	}
}

func (t *CasesTable) Headings() Pairs {
	out := make(Pairs, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, Pair{Key: c.Key, Value: c.Heading})
	}
	return out
}

// codeGlossary collects the codes seen in one column.
type codeGlossary struct {
	vocab map[string]string
	seen  map[string]string
}

func (g *codeGlossary) add(code string) bool {
	def, ok := g.vocab[code]
	if !ok {
		def = UnrecognizedCode
	}
	g.seen[code] = def
	return ok
}

// String renders "A: def, B: def." with codes sorted.
func (g *codeGlossary) String() string {
	if len(g.seen) == 0 {
		return ""
	}
	codes := make([]string, 0, len(g.seen))
	for c := range g.seen {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprintf("%s: %s", c, g.seen[c])
	}
	return strings.Join(parts, ", ") + "."
}

// GetData returns the decoded samples and the glossary of the codes found.
// Cases without a given library or tissue group simply contribute no rows
// for it.
func (t *CasesTable) GetData(ctx context.Context) (Data, Pairs, error) {
	if t.env.Manifest == nil {
		return nil, nil, errors.New("cases table: no manifest")
	}
	glossaries := []struct {
		key string
		g   *codeGlossary
	}{
		{ColTissueType, &codeGlossary{vocab: tissueTypes, seen: map[string]string{}}},
		{ColTissueOrigin, &codeGlossary{vocab: tissueOrigins, seen: map[string]string{}}},
		{ColLibraryDesign, &codeGlossary{vocab: libraryDesigns, seen: map[string]string{}}},
	}

	var data Data
	for _, c := range t.env.Manifest.Cases() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		rows := []Entry{}
		for _, grp := range caseSampleGroups {
			for _, s := range c.Samples(grp.library, grp.tissue) {
				name, err := DecodeSampleID(s.ID)
				if err != nil {
					return nil, nil, errors.Wrapf(err, "case %s", c.ID)
				}
				codes := map[string]string{
					ColTissueType:    name.TissueType,
					ColTissueOrigin:  name.TissueOrigin,
					ColLibraryDesign: name.LibraryDesign,
				}
				for _, g := range glossaries {
					if !g.g.add(codes[g.key]) {
						t.env.logger().Printf("Unrecognized %s code %q in %s", g.key, codes[g.key], s.ID)
					}
				}
				rows = append(rows, Entry{
					ColCase:          name.Case,
					ColTissueType:    name.TissueType,
					ColTissueOrigin:  name.TissueOrigin,
					ColLibraryDesign: name.LibraryDesign,
					ColExternalID:    c.ExternalID,
					ColSampleID:      s.ID,
				})
			}
		}
		data = append(data, CaseRows{Case: c.ID, Rows: rows})
	}

	var glossary Pairs
	for _, g := range glossaries {
		if s := g.g.String(); s != "" {
			glossary = append(glossary, Pair{Key: g.key, Value: s})
		}
	}
	return data, glossary, nil
}

func (t *CasesTable) LoadContext(ctx context.Context) (*Context, error) {
	data, glossary, err := t.GetData(ctx)
	if err != nil {
		return nil, err
	}
	return &Context{
		Title:    t.Title,
		Headings: t.Headings(),
		Data:     data,
		Blurb:    t.Blurb,
		Glossary: glossary,
	}, nil
}

// Plots is always empty; the Cases table has no plots.
func (t *CasesTable) Plots() []NamedPlot { return nil }
