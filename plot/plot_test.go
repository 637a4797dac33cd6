package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
		{[]float64{7}, 7},
	}
	for _, tt := range tests {
		if got := Median(tt.in); got != tt.want {
			t.Errorf("Median(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	in := []float64{3, 1, 2}
	Median(in)
	if in[0] != 3 {
		t.Error("Median must not reorder its input")
	}
}

func TestAddKeepsSeriesOrder(t *testing.T) {
	p := New("Coverage", "Coverage (x)")
	p.Add("Tumour", "C1", 80)
	p.Add("Normal", "C1", 40)
	p.Add("Tumour", "C2", 82)

	got := p.Series()
	if len(got) != 2 || got[0].Name != "Tumour" || got[1].Name != "Normal" {
		t.Fatalf("series = %+v", got)
	}
	if len(got[0].Values) != 2 || p.Len() != 3 {
		t.Errorf("Len = %d, tumour points = %d", p.Len(), len(got[0].Values))
	}
	p.Reset()
	if p.Len() != 0 {
		t.Error("Reset left observations behind")
	}
}

func TestGenerateEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	p := New("Mutation Calls", "PASS calls")
	if _, err := p.Generate(dir, "mutect2_num_PASS"); !errors.Is(err, ErrEmptyPlot) {
		t.Fatalf("err = %v, want ErrEmptyPlot", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("empty plot must not create the output dir")
	}
}

func TestGenerateWritesPNG(t *testing.T) {
	day := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		setup func(p *Plot)
	}{
		{"single", func(p *Plot) {
			p.Add("", "C1", 1.2)
			p.Add("", "C2", 2.1)
			p.Add("", "C3", 2.1)
			p.Lo = Bound(0)
		}},
		{"dual", func(p *Plot) {
			p.Add("Normal", "C1", 40)
			p.Add("Tumour", "C1", 80)
			p.Add("Tumour", "C2", 90)
			p.Lo, p.Hi = Bound(0), Bound(100)
		}},
		{"flat", func(p *Plot) {
			p.Add("", "C1", 5)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "temp")
			p := New("Title", "Y")
			p.Now = func() time.Time { return day }
			tt.setup(p)

			path, err := p.Generate(dir, "table_"+tt.name)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if want := filepath.Join(dir, "table_"+tt.name+".2024-03-09._plot.png"); path != want {
				t.Errorf("path = %s, want %s", path, want)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.HasPrefix(data, []byte("\x89PNG")) {
				t.Error("output is not a PNG")
			}
		})
	}
}

func TestFileNameSanitizes(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if got := FileName("a/b c", day); got != "a_b_c.2024-01-02._plot.png" {
		t.Errorf("FileName = %s", got)
	}
}
