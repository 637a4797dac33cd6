package vcf_summary

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/biogo/hts/bgzf"
)

const vcf = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
chr1	100	.	A	T	50	PASS	DP=10
chr1	200	.	G	C	20	LowQual	DP=3
chr2	300	.	T	TA	60	PASS	DP=22
chr3	400	.	C	G	10	germline;normal_artifact	DP=8
`

func writeGzip(t *testing.T, path, body string) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeBGZF(t *testing.T, path, body string) {
	t.Helper()
	var buf bytes.Buffer
	bw := bgzf.NewWriter(&buf, 1)
	if _, err := bw.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := bw.Close(); err != nil {
		t.Fatal(err)
	}
	if !isBGZF(buf.Bytes()) {
		t.Fatal("writer output not recognised as bgzf")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCountCalls(t *testing.T) {
	dir := t.TempDir()
	gz := filepath.Join(dir, "PROJ_0001_T.mutect2.vep.vcf.gz")
	writeGzip(t, gz, vcf)
	bgz := filepath.Join(dir, "PROJ_0002_T.mutect2.vep.vcf.gz")
	writeBGZF(t, bgz, vcf)
	plain := filepath.Join(dir, "plain.vcf")
	if err := os.WriteFile(plain, []byte("#header only\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		path string
		want Counts
	}{
		{gz, Counts{NumCalls: 4, NumPass: 2}},
		{bgz, Counts{NumCalls: 4, NumPass: 2}},
		{plain, Counts{}},
	} {
		got, err := CountCalls(tc.path)
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		if got != tc.want {
			t.Errorf("%s: got %+v, want %+v", filepath.Base(tc.path), got, tc.want)
		}
	}
}

func TestShortName(t *testing.T) {
	re := regexp.MustCompile(DefaultNameRe)
	if got := ShortName(re, "/data/x/PROJ_0001_T.mutect2.vep.vcf.gz"); got != "PROJ_0001_T.mutect2.vep.vcf.gz" {
		t.Errorf("short name = %s", got)
	}
	if got := ShortName(re, "/data/x/other.vcf"); got != "/data/x/other.vcf" {
		t.Errorf("unmatched name = %s", got)
	}
}

func TestRunKeepsInputOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 12; i++ {
		p := filepath.Join(dir, "s"+string(rune('a'+i))+".vep.vcf.gz")
		writeGzip(t, p, vcf)
		paths = append(paths, p)
	}
	list := filepath.Join(dir, "in_files.txt")
	if err := os.WriteFile(list, []byte(strings.Join(paths, "\n")+"\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := run(list, options{nameRe: DefaultNameRe, threads: 4}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	out := stdout.String()
	if !strings.Contains(out, `"0": {`) || !strings.Contains(out, `"num_pass": 2`) {
		t.Errorf("output:\n%s", out)
	}
	if strings.Index(out, `"2": {`) > strings.Index(out, `"10": {`) {
		t.Error("keys not in input order")
	}
	if strings.Index(out, "sa.vep") > strings.Index(out, "sl.vep") {
		t.Error("files out of order")
	}
	if !strings.Contains(stderr.String(), "12 files, calls mean 4.0 sd 0.0") {
		t.Errorf("summary = %q", stderr.String())
	}
}

func TestSummarizeMissingFile(t *testing.T) {
	if _, err := Summarize([]string{"/nonexistent.vcf.gz"}, nil, 2); err == nil {
		t.Error("expected error")
	}
}
