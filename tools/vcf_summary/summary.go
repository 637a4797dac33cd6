package vcf_summary

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/biogo/hts/bgzf"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	common "analysis_report_go/utils"
)

// Counts are the call totals of one VCF.
type Counts struct {
	NumCalls int `json:"num_calls"`
	NumPass  int `json:"num_pass"`
}

// FileSummary is one entry of the output.
type FileSummary struct {
	FileName string `json:"file_name"`
	Data     Counts `json:"data"`
}

// Summaries marshal as an object keyed by input position.
type Summaries []FileSummary

func (s Summaries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fs := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		v, err := json.Marshal(fs)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`"` + strconv.Itoa(i) + `":`)
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CountCalls counts the records of a plain, gzipped or bgzipped VCF and how
// many of them have FILTER set to PASS.
func CountCalls(path string) (Counts, error) {
	r, err := openVCF(path)
	if err != nil {
		return Counts{}, err
	}
	defer r.Close()

	var c Counts
	err = common.ScanLines(r, path, func(_ int, line string) error {
		if line == "" || strings.HasPrefix(line, "#") {
			return nil
		}
		c.NumCalls++
		fields := strings.SplitN(line, "\t", 8)
		if len(fields) >= 7 && fields[6] == "PASS" {
			c.NumPass++
		}
		return nil
	})
	if err != nil {
		return Counts{}, errors.Wrapf(err, "count %s", path)
	}
	return c, nil
}

// isBGZF reports whether hdr starts a BGZF block: a gzip member with the
// FEXTRA flag and a "BC" subfield.
func isBGZF(hdr []byte) bool {
	return len(hdr) >= 14 &&
		hdr[0] == 0x1f && hdr[1] == 0x8b && hdr[2] == 8 && hdr[3]&4 != 0 &&
		hdr[12] == 'B' && hdr[13] == 'C'
}

type bgzfFile struct {
	*bgzf.Reader
	f *os.File
}

func (b bgzfFile) Close() error {
	err := b.Reader.Close()
	if cerr := b.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// openVCF reads bgzipped files block-wise with bgzf and anything else through
// common.OpenInput.
func openVCF(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	br := bufio.NewReader(f)
	hdr, _ := br.Peek(14)
	if !isBGZF(hdr) {
		f.Close()
		return common.OpenInput(path)
	}
	r, err := bgzf.NewReader(br, 1)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to open bgzf reader for %s", path)
	}
	return bgzfFile{Reader: r, f: f}, nil
}

// ShortName is the first match of re in name, or name when nothing matches.
func ShortName(re *regexp.Regexp, name string) string {
	if re == nil {
		return name
	}
	if m := re.FindString(name); m != "" {
		return m
	}
	return name
}

// ReadList returns the non-blank lines of a list file.
func ReadList(path string) ([]string, error) {
	var out []string
	err := common.StreamLines(path, func(_ int, line string) error {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
		return nil
	})
	return out, err
}

// Summarize counts every file with up to threads workers. Results keep input order.
func Summarize(paths []string, re *regexp.Regexp, threads int) (Summaries, error) {
	if threads < 1 {
		threads = 1
	}
	out := make(Summaries, len(paths))
	errs := make([]error, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c, err := CountCalls(paths[i])
				out[i] = FileSummary{FileName: ShortName(re, paths[i]), Data: c}
				errs[i] = err
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Stats summarizes call counts across files.
type Stats struct {
	Files        int
	MeanCalls    float64
	StdDevCalls  float64
	MeanPassFrac float64
}

func Describe(s Summaries) Stats {
	st := Stats{Files: len(s)}
	if len(s) == 0 {
		return st
	}
	calls := make([]float64, len(s))
	var fracs []float64
	for i, fs := range s {
		calls[i] = float64(fs.Data.NumCalls)
		if fs.Data.NumCalls > 0 {
			fracs = append(fracs, float64(fs.Data.NumPass)/float64(fs.Data.NumCalls))
		}
	}
	if len(calls) == 1 {
		st.MeanCalls = calls[0]
	} else {
		st.MeanCalls, st.StdDevCalls = stat.MeanStdDev(calls, nil)
	}
	if len(fracs) > 0 {
		st.MeanPassFrac = stat.Mean(fracs, nil)
	}
	return st
}
