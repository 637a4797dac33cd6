package tables

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"analysis_report_go/manifest"
	"analysis_report_go/store"
)

const testManifest = `{
	"project": "PROJ",
	"release": "R1",
	"cases": {
		"PROJ_02": {
			"external_id": "EXT-2",
			"WG": {
				"Normal": {"PROJ_02_R_Ly_WG": {"lane-n1": {"run": "RUN_N1"}}},
				"Tumour": {"PROJ_02_P_Lu_WG": {"lane-t2": {"run": "RUN_T2"}, "lane-t1": {"run": "RUN_T1"}}}
			},
			"WT": {"Tumour": {"PROJ_02_P_Lu_WT": {"lane-w1": {"run": "RUN_W1"}}}},
			"analysis": {
				"calls.mutations": {"wfr-43": {"wf": "mutect2"}},
				"calls.copynumber": {"wfr-8": {"wf": "sequenza"}},
				"calls.expression": {"wfr-12": {"wf": "rsem"}},
				"alignments_WT.callready": {"wfr-93": {"wfrun": "star_call_ready", "limkeys": "lane-w1"}}
			}
		},
		"PROJ_01": {
			"external_id": "EXT-1",
			"WG": {
				"Normal": {"PROJ_01_R_Ly_WG": {"lane-a": {"run": "RUN_A"}}},
				"Tumour": {"PROJ_01_T_Or_WG": {"lane-c": {"run": "RUN_C"}, "lane-b": {"run": "RUN_B"}}}
			},
			"WT": {"Tumour": {"PROJ_01_T_Or_WT": {"lane-x": {"run": "RUN_X"}}}},
			"analysis": {
				"calls.mutations": {"wfr-42": {"wf": "mutect2_matched_by_tumor_group"}},
				"calls.copynumber": {"wfr-7": {"wf": "sequenza_by_tumor_group"}},
				"calls.expression": {"wfr-11": {"wf": "rsem"}},
				"alignments_WT.callready": {"wfr-92": {"wf": "star_call_ready", "limkeys": "lane-x2:lane-x"}}
			}
		}
	}
}`

func meta(pk, key, tissue, origin, lib, group string) store.Record {
	return store.Record{
		pk:               key,
		"Tissue Type":    tissue,
		"Tissue Origin":  origin,
		"Library Design": lib,
		"Group ID":       group,
	}
}

func with(r store.Record, kv ...any) store.Record {
	for i := 0; i+1 < len(kv); i += 2 {
		r[kv[i].(string)] = kv[i+1]
	}
	return r
}

func testEnv(t *testing.T) (Env, *store.Memory, *bytes.Buffer) {
	t.Helper()
	m, err := manifest.Parse([]byte(testManifest))
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	mem := store.NewMemory()
	var buf bytes.Buffer
	return Env{Manifest: m, Store: mem, Log: log.New(&buf, "", 0)}, mem, &buf
}

func linesMentioning(buf *bytes.Buffer, s string) int {
	n := 0
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, s) {
			n++
		}
	}
	return n
}

func TestSelectPreservesColumnOrder(t *testing.T) {
	tbl := NewMutect2Table(Env{})
	exprs, idx := tbl.Select()
	want := []string{`"num_calls"`, `"num_PASS"`, `"num_SNPs"`, `"num_indels"`, `"titv_ratio"`}
	if !reflect.DeepEqual(exprs, want) {
		t.Errorf("exprs = %v", exprs)
	}
	for i, k := range []string{ColNumCalls, ColNumPASS, ColNumSNPs, ColNumIndels, ColTiTvRatio} {
		if idx[k] != i {
			t.Errorf("index[%s] = %d, want %d", k, idx[k], i)
		}
	}
	if _, ok := idx[ColCase]; ok {
		t.Error("case is not a selected column")
	}
}

func TestMutect2Rows(t *testing.T) {
	env, mem, _ := testEnv(t)
	const tbl = "analysis_mutect2_analysis_mutect2_1"
	mem.Add("analysis_mutect2", tbl,
		with(meta(runKey, "wfr-42", "T", "Or", "WG", "g1"),
			"num_calls", int64(120), "num_PASS", int64(100), "num_SNPs", int64(90), "num_indels", int64(10), "titv_ratio", 2.0449),
		with(meta(runKey, "wfr-43", "P", "Lu", "WG", "g2"),
			"num_calls", int64(80), "num_PASS", int64(60), "num_SNPs", int64(50), "num_indels", int64(10), "titv_ratio", nil),
	)

	table := NewMutect2Table(env)
	data, err := table.GetData(context.Background())
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if len(data) != 2 || data[0].Case != "PROJ_01" || data[1].Case != "PROJ_02" {
		t.Fatalf("case order = %+v", data)
	}
	if data.Len() != env.Manifest.Len() {
		t.Errorf("rows = %d, want one per case", data.Len())
	}

	got := data[0].Rows[0]
	if got[ColNumCalls] != int64(120) || got[ColNumPASS] != int64(100) {
		t.Errorf("counts = %v, %v", got[ColNumCalls], got[ColNumPASS])
	}
	if got[ColSampleID] != "PROJ_01_T_Or_WG_g1" {
		t.Errorf("sample id = %v", got[ColSampleID])
	}
	if got[ColTiTvRatio] != 2.04 {
		t.Errorf("titv = %v, want 2.04", got[ColTiTvRatio])
	}
	if data[1].Rows[0][ColTiTvRatio] != ND {
		t.Errorf("NULL titv = %v, want nd", data[1].Rows[0][ColTiTvRatio])
	}

	plots := table.Plots()
	if len(plots) != 2 || plots[0].Column != ColNumPASS {
		t.Fatalf("plots = %+v", plots)
	}
	if n := plots[0].Plot.Len(); n != 2 {
		t.Errorf("num_PASS points = %d, want 2", n)
	}
	if n := plots[1].Plot.Len(); n != 1 {
		t.Errorf("titv points = %d, want 1 (NULL is not plotted)", n)
	}
	if ids := plots[0].Plot.Series()[0].IDs; ids[0] != "PROJ_01_T_Or_WG_g1" {
		t.Errorf("plot x = %v, want sample ids", ids)
	}
	if !mem.Balanced() {
		t.Error("connections left open")
	}
}

func TestPercentScaling(t *testing.T) {
	env, mem, _ := testEnv(t)
	const tbl = "analysis_rsem_analysis_rsem_1"
	mem.Add("analysis_rsem", tbl,
		with(meta(runKey, "wfr-11", "T", "Or", "WT", "g"),
			"total", int64(60000), "pct_non_zero", 0.123456, "Q0.05", 0.0, "Q0.5", 3.14159, "Q0.95", 120.555),
		with(meta(runKey, "wfr-12", "P", "Lu", "WT", "g"),
			"total", int64(60000), "pct_non_zero", 1.0, "Q0.05", 0.0, "Q0.5", 2.0, "Q0.95", 99.0),
	)
	data, err := NewRSEMTable(env).GetData(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	row := data[0].Rows[0]
	if row[ColPctNonZero] != 12.35 {
		t.Errorf("pct_non_zero = %v, want 12.35", row[ColPctNonZero])
	}
	if row[ColQ0_5] != 3.14 {
		t.Errorf("Q0.5 = %v, want 3.14 unscaled", row[ColQ0_5])
	}
	if row[ColTotal] != int64(60000) {
		t.Errorf("total = %v", row[ColTotal])
	}
	if data[1].Rows[0][ColPctNonZero] != 100.0 {
		t.Errorf("pct_non_zero = %v, want 100", data[1].Rows[0][ColPctNonZero])
	}
}

func TestMissingRowIsND(t *testing.T) {
	env, mem, logs := testEnv(t)
	const tbl = "analysis_delly_analysis_delly_1"
	mem.Add("analysis_delly", tbl,
		with(meta(runKey, "wfr-51", "T", "Or", "WG", "g"), "num_calls", int64(3)),
	)
	// delly runs are missing from the manifest entirely
	if _, err := NewDellyTable(env).GetData(context.Background()); !errors.Is(err, ErrNoWorkflowRun) {
		t.Fatalf("err = %v, want ErrNoWorkflowRun", err)
	}
	if !mem.Balanced() {
		t.Error("connections left open on a fatal path")
	}

	// mutect2 runs exist but the store has no row for them
	mem.Add("analysis_mutect2", "analysis_mutect2_analysis_mutect2_1")
	logs.Reset()
	data, err := NewMutect2Table(env).GetData(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	row := data[0].Rows[0]
	for _, k := range []string{ColNumCalls, ColNumPASS, ColNumSNPs, ColNumIndels, ColTiTvRatio} {
		if row[k] != ND {
			t.Errorf("%s = %v, want nd", k, row[k])
		}
	}
	if row[ColSampleID] != ND || row[ColCase] != "PROJ_01" {
		t.Errorf("identity = %v / %v", row[ColCase], row[ColSampleID])
	}
	if n := linesMentioning(logs, "PROJ_01 from analysis_mutect2_analysis_mutect2_1"); n != 1 {
		t.Errorf("got %d diagnostic lines for PROJ_01, want 1:\n%s", n, logs)
	}
}

func TestAmbiguousRowIsFatal(t *testing.T) {
	env, mem, _ := testEnv(t)
	const tbl = "analysis_starfusion_analysis_starfusion_1"
	mem.Add("analysis_starfusion", tbl,
		with(meta(runKey, "wfr-42", "T", "Or", "WT", "g"), "num_records", int64(4)),
		with(meta(runKey, "wfr-42", "T", "Or", "WT", "g"), "num_records", int64(5)),
	)
	table := NewStarFusionTable(env)
	table.Step = "calls.mutations"
	table.Processes = []string{"mutect2_matched_by_tumor_group", "mutect2"}

	_, err := table.GetData(context.Background())
	if !errors.Is(err, ErrAmbiguousRow) {
		t.Fatalf("err = %v, want ErrAmbiguousRow", err)
	}
	if !mem.Balanced() {
		t.Error("connections left open on a fatal path")
	}
}

func TestSourceErrorIsFatal(t *testing.T) {
	env, mem, _ := testEnv(t)
	mem.Add("analysis_mutect2", "analysis_mutect2_analysis_mutect2_1")
	mem.Fail["analysis_mutect2.analysis_mutect2_analysis_mutect2_1"] = errors.New("disk I/O error")

	_, err := NewMutect2Table(env).GetData(context.Background())
	if !errors.Is(err, ErrSource) {
		t.Fatalf("err = %v, want ErrSource", err)
	}
}

func TestSequenzaSourcesDegradeIndependently(t *testing.T) {
	env, mem, logs := testEnv(t)
	const (
		alt = "analysis_sequenza_analysis_sequenza_alternative_solutions_1"
		fga = "analysis_sequenza_analysis_sequenza_gamma_500_fga_1"
	)
	mem.Add("analysis_sequenza", alt,
		with(meta(runKey, "wfr-7", "T", "Or", "WG", "g"), "gamma", 100, "cellularity", 0.1, "ploidy", 2.0),
		with(meta(runKey, "wfr-7", "T", "Or", "WG", "g"), "gamma", 500, "cellularity", 0.7149, "ploidy", 3.1051),
		with(meta(runKey, "wfr-8", "P", "Lu", "WG", "g"), "gamma", 500, "cellularity", 0.5, "ploidy", 2.0),
	)
	mem.Add("analysis_sequenza", fga,
		store.Record{runKey: "wfr-8", "fga": 0.25},
	)

	data, err := NewSequenzaTable(env).GetData(context.Background())
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	first := data[0].Rows[0]
	if first[ColFGA] != ND {
		t.Errorf("FGA = %v, want nd", first[ColFGA])
	}
	if first[ColCellularity] != 0.71 || first[ColPloidy] != 3.11 {
		t.Errorf("cellularity/ploidy = %v/%v", first[ColCellularity], first[ColPloidy])
	}
	if first[ColSampleID] != "PROJ_01_T_Or_WG_g" {
		t.Errorf("sample id = %v", first[ColSampleID])
	}
	if second := data[1].Rows[0]; second[ColFGA] != 25.0 {
		t.Errorf("FGA = %v, want 25", second[ColFGA])
	}
	if n := linesMentioning(logs, fga); n != 1 {
		t.Errorf("fga diagnostics = %d, want 1", n)
	}
	if n := linesMentioning(logs, alt); n != 0 {
		t.Errorf("unexpected alt solution diagnostics:\n%s", logs)
	}
}

func TestWGLaneLevelFallback(t *testing.T) {
	env, mem, logs := testEnv(t)
	lane := func(key string, cov float64) store.Record {
		return store.Record{
			laneKey:                               key,
			"coverage deduplicated":               cov,
			"insert size average":                 350.0,
			"mark duplicates_PERCENT_DUPLICATION": 0.1,
			"total clusters":                      int64(1000),
			mappedReadsWG:                         0.98761,
		}
	}
	mem.Add("dnaseqqc", "dnaseqqc_dnaseqqc_5", lane("lane-a", 30), lane("lane-n1", 31))
	mem.Add("bamqc4", "bamqc4_bamqc4_5", lane("lane-b", 40), lane("lane-t1", 41), lane("lane-t2", 42), lane("lane-a", 99))

	table := NewWGLaneLevelTable(env)
	data, err := table.GetData(context.Background())
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	rows := data[0].Rows
	var got []string
	for _, r := range rows {
		got = append(got, r[ColSampleType].(string)+"/"+r[ColLane].(string))
	}
	want := []string{"Matched Normal/RUN_A", "Tumour/RUN_C", "Tumour/RUN_B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("row order = %v, want %v", got, want)
	}
	if rows[0][ColCoverageDedup] != 30.0 {
		t.Errorf("lane-a coverage = %v, primary store must win", rows[0][ColCoverageDedup])
	}
	if rows[1][ColCoverageDedup] != ND {
		t.Errorf("lane-c coverage = %v, want nd", rows[1][ColCoverageDedup])
	}
	if rows[2][ColCoverageDedup] != 40.0 || rows[2][ColSampleID] != "PROJ_01_T_Or_WG" {
		t.Errorf("lane-b = %v", rows[2])
	}
	if rows[2][ColMappedReads] != 98.76 || rows[2][ColMarkDupPctDup] != 10.0 {
		t.Errorf("percentages = %v, %v", rows[2][ColMappedReads], rows[2][ColMarkDupPctDup])
	}
	if n := linesMentioning(logs, "PROJ_01 from bamqc4_bamqc4_5"); n != 1 {
		t.Errorf("diagnostics:\n%s", logs)
	}

	cov := table.Plots()[0].Plot.Series()
	if len(cov) != 2 || cov[0].Name != manifest.Normal || cov[1].Name != manifest.Tumour {
		t.Errorf("series = %+v, want short tissue labels", cov)
	}
	if rows[0][ColSampleType] != "Matched Normal" {
		t.Errorf("sample type column = %v", rows[0][ColSampleType])
	}
	if !mem.Balanced() {
		t.Error("connections left open")
	}
}

func TestWGLaneLevelToleratesMissingFallbackStore(t *testing.T) {
	env, mem, _ := testEnv(t)
	mem.Add("bamqc4", "bamqc4_bamqc4_5")
	data, err := NewWGLaneLevelTable(env).GetData(context.Background())
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if data[0].Rows[0][ColCoverageDedup] != ND {
		t.Errorf("row = %v", data[0].Rows[0])
	}
}

func TestWGCallReadyKey(t *testing.T) {
	env, mem, _ := testEnv(t)
	merged := func(key string, cov float64) store.Record {
		return with(meta(mergedKey, key, "T", "Or", "WG", "g"),
			"coverage deduplicated", cov,
			"mark duplicates_PERCENT_DUPLICATION", 0.2,
			"total clusters", int64(5),
			mappedReadsWG, 0.5)
	}
	mem.Add("bamqc4merged", "bamqc4merged_bamqc4merged_5",
		merged(`["lane-a"]`, 30),
		merged(`["lane-b", "lane-c"]`, 80),
		merged(`["lane-n1"]`, 31),
		merged(`["lane-t1", "lane-t2"]`, 81),
	)
	data, err := NewWGCallReadyTable(env).GetData(context.Background())
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	tumour := data[0].Rows[1]
	if tumour[ColSampleType] != "Tumour" || tumour[ColCoverageDedup] != 80.0 {
		t.Errorf("tumour row = %v", tumour)
	}
	if tumour[ColNumLimsKeys] != int64(2) {
		t.Errorf("num_limskeys = %v", tumour[ColNumLimsKeys])
	}
	if tumour[ColSampleID] != "PROJ_01_T_Or_WG_g" {
		t.Errorf("sample id = %v", tumour[ColSampleID])
	}
}

func TestWTCallReadyUsesRunLimsKeys(t *testing.T) {
	env, mem, _ := testEnv(t)
	merged := func(key string, coding float64) store.Record {
		return with(meta(mergedKey, key, "T", "Or", "WT", "g"),
			"PCT_CODING_BASES", coding,
			"total clusters", int64(9),
			mappedReadsWT, 0.9,
			rrnaContamWT, 0.01)
	}
	mem.Add("rnaseqqc2merged", "rnaseqqc2merged_rnaseqqc2merged_2",
		merged(`["lane-x", "lane-x2"]`, 55.5),
		merged(`["lane-w1", "lane-w9"]`, 1),
	)
	data, err := NewWTCallReadyTable(env).GetData(context.Background())
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if got := data[0].Rows[0]; got[ColPctCodingBases] != 55.5 || got[ColNumLimsKeys] != int64(2) {
		t.Errorf("PROJ_01 = %v", got)
	}
	// exact match: ["lane-w1"] must not pick up ["lane-w1", "lane-w9"]
	if got := data[1].Rows[0]; got[ColPctCodingBases] != ND {
		t.Errorf("PROJ_02 = %v, want nd", got)
	}
	if _, ok := data[0].Rows[0][ColSampleType]; ok {
		t.Error("WT tables carry no sample type column")
	}
}

func TestLoadContextIsIdempotent(t *testing.T) {
	env, mem, _ := testEnv(t)
	mem.Add("analysis_mutect2", "analysis_mutect2_analysis_mutect2_1",
		with(meta(runKey, "wfr-42", "T", "Or", "WG", "g"), "num_calls", int64(1), "num_PASS", int64(1),
			"num_SNPs", int64(1), "num_indels", int64(0), "titv_ratio", 1.5),
	)
	table := NewMutect2Table(env)
	render := func() []byte {
		ctx, err := table.LoadContext(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		b, err := json.Marshal(struct {
			H Pairs `json:"headings"`
			D Data  `json:"data"`
		}{ctx.Headings, ctx.Data})
		if err != nil {
			t.Fatal(err)
		}
		return b
	}
	first, second := render(), render()
	if !bytes.Equal(first, second) {
		t.Errorf("contexts differ:\n%s\n%s", first, second)
	}
	if n := table.Plots()[0].Plot.Len(); n != 1 {
		t.Errorf("plot points = %d after two loads, want 1", n)
	}
	if !strings.HasPrefix(string(first), `{"headings":{"case":"Case","sample_id":"Sample ID","num_calls"`) {
		t.Errorf("headings not in column order: %s", first)
	}
}
