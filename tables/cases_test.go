package tables

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"analysis_report_go/manifest"
)

func TestDecodeSampleID(t *testing.T) {
	tests := []struct {
		id   string
		want SampleName
	}{
		{"PROJ_01_T_Or_WG", SampleName{Case: "PROJ_01", TissueType: "T", TissueOrigin: "Or", LibraryDesign: "WG"}},
		{"ABC_0042_P_Lu_WT_nn_1", SampleName{Case: "ABC_0042", TissueType: "P", TissueOrigin: "Lu", LibraryDesign: "WT"}},
	}
	for _, tt := range tests {
		got, err := DecodeSampleID(tt.id)
		if err != nil {
			t.Errorf("DecodeSampleID(%q): %v", tt.id, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DecodeSampleID(%q) = %+v, want %+v", tt.id, got, tt.want)
		}
	}

	if _, err := DecodeSampleID("PROJ_01_T"); !errors.Is(err, ErrMalformedSampleID) {
		t.Errorf("err = %v, want ErrMalformedSampleID", err)
	}
}

func TestCasesTable(t *testing.T) {
	env, _, logs := testEnv(t)
	ctx, err := NewCasesTable(env).LoadContext(context.Background())
	if err != nil {
		t.Fatalf("LoadContext: %v", err)
	}
	if len(ctx.Data) != 2 || ctx.Data[0].Case != "PROJ_01" {
		t.Fatalf("data = %+v", ctx.Data)
	}

	rows := ctx.Data[0].Rows
	var ids []string
	for _, r := range rows {
		ids = append(ids, r[ColSampleID].(string))
	}
	if want := []string{"PROJ_01_R_Ly_WG", "PROJ_01_T_Or_WG", "PROJ_01_T_Or_WT"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("sample order = %v, want %v", ids, want)
	}

	want := Entry{
		ColCase:          "PROJ_01",
		ColTissueType:    "T",
		ColTissueOrigin:  "Or",
		ColLibraryDesign: "WG",
		ColSampleID:      "PROJ_01_T_Or_WG",
		ColExternalID:    "EXT-1",
	}
	if !reflect.DeepEqual(rows[1], want) {
		t.Errorf("row = %v, want %v", rows[1], want)
	}

	lib, _ := ctx.Glossary.Get(ColLibraryDesign)
	if lib != "WG: Whole Genome, WT: Whole Transcriptome." {
		t.Errorf("library glossary = %q", lib)
	}
	origin, _ := ctx.Glossary.Get(ColTissueOrigin)
	if origin != "Lu: Lung, Ly: Lymphocyte, Or: Orbit." {
		t.Errorf("origin glossary = %q", origin)
	}
	if logs.Len() != 0 {
		t.Errorf("unexpected diagnostics: %s", logs)
	}
}

func TestCasesTableUnknownCode(t *testing.T) {
	m := manifest.New("P", "R", []*manifest.Case{{
		ID:         "P_1",
		ExternalID: "E",
		Libraries: map[string]map[string][]*manifest.Sample{
			manifest.WholeGenome: {manifest.Tumour: {{ID: "P_1_Q_Zz_WG"}}},
		},
	}})
	env, _, logs := testEnv(t)
	env.Manifest = m

	ctx, err := NewCasesTable(env).LoadContext(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := ctx.Glossary.Get(ColTissueType); got != "Q: Unrecognized code." {
		t.Errorf("tissue type glossary = %q", got)
	}
	if !strings.Contains(logs.String(), `"Zz"`) {
		t.Errorf("no diagnostic for unknown origin:\n%s", logs)
	}
	if len(ctx.Data[0].Rows) != 1 {
		t.Errorf("absent groups must be skipped, rows = %v", ctx.Data[0].Rows)
	}
}

func TestCasesTableMalformedIsFatal(t *testing.T) {
	m := manifest.New("P", "R", []*manifest.Case{{
		ID: "P_1",
		Libraries: map[string]map[string][]*manifest.Sample{
			manifest.WholeGenome: {manifest.Normal: {{ID: "P_1_R"}}},
		},
	}})
	env, _, _ := testEnv(t)
	env.Manifest = m
	if _, err := NewCasesTable(env).LoadContext(context.Background()); !errors.Is(err, ErrMalformedSampleID) {
		t.Errorf("err = %v, want ErrMalformedSampleID", err)
	}
}
