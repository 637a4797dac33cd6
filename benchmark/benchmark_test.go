package benchmark

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

var sink []byte

func TestRunReportsAndPassesError(t *testing.T) {
	var buf bytes.Buffer
	want := errors.New("boom")
	res, err := Run(&buf, "analysis_report report", func() error {
		time.Sleep(time.Millisecond)
		sink = make([]byte, 1<<20)
		return want
	})
	if err != want {
		t.Errorf("err = %v, want %v", err, want)
	}
	if res.Elapsed < time.Millisecond {
		t.Errorf("elapsed = %v", res.Elapsed)
	}
	if res.TotalAlloc == 0 {
		t.Error("no allocation recorded")
	}
	out := buf.String()
	for _, s := range []string{"Running: analysis_report report", "Time Elapsed", "Goroutines:"} {
		if !strings.Contains(out, s) {
			t.Errorf("report missing %q", s)
		}
	}
}
