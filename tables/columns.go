package tables

import (
	"bytes"
	"encoding/json"
)

// Column keys. They double as JSON and template keys, so they stay stable
// across renderers.
const (
	ColCase          = "case"
	ColSampleID      = "sample_id"
	ColSampleType    = "sample_type"
	ColLane          = "lane"
	ColExternalID    = "external_id"
	ColTissueType    = "tissue_type"
	ColTissueOrigin  = "tissue_origin"
	ColLibraryDesign = "library_design"
	ColNumLimsKeys   = "num_limskeys"

	ColNumCalls  = "num_calls"
	ColNumPASS   = "num_PASS"
	ColNumSNPs   = "num_SNPs"
	ColNumIndels = "num_indels"
	ColTiTvRatio = "titv_ratio"

	ColNumBND = "num_BND"
	ColNumDEL = "num_DEL"
	ColNumDUP = "num_DUP"
	ColNumINS = "num_INS"
	ColNumINV = "num_INV"

	ColTotal      = "total"
	ColPctNonZero = "pct_non_zero"
	ColQ0_05      = "Q0.05"
	ColQ0_5       = "Q0.5"
	ColQ0_95      = "Q0.95"

	ColCellularity = "cellularity"
	ColPloidy      = "ploidy"
	ColFGA         = "fga"

	ColNumRecords = "num_records"

	ColCoverageDedup  = "coverage_dedup"
	ColInsertSizeAvg  = "insert_size_avg"
	ColMarkDupPctDup  = "mark_dup_pct_dup"
	ColTotalClusters  = "total_clusters"
	ColMappedReads    = "mapped_reads"
	ColPctCodingBases = "pct_coding_bases"
	ColRRNAContam     = "rrna_contam"
)

// Column is one column of a table. Columns without an Expr are filled in by the
// table itself (case, sample id, lane...) rather than read from a store.
type Column struct {
	Key     string
	Heading string
	// Expr is the select expression, a quoted column name or a computed value.
	Expr string
	// Percent marks fractions in [0,1] that are displayed multiplied by 100.
	Percent bool
}

func (c Column) selected() bool { return c.Expr != "" }

// Pair is one key/value of an ordered mapping.
type Pair struct {
	Key   string
	Value string
}

// Pairs is an ordered string mapping, rendered as a JSON object in order.
type Pairs []Pair

// Get returns the value stored under key.
func (p Pairs) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

func (p Pairs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
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

// Entry is one rendered row keyed by column key. Values are int64, float64 or string.
type Entry map[string]any

// CaseRows holds the rows of one case in iteration order.
type CaseRows struct {
	Case string
	Rows []Entry
}

func (c CaseRows) MarshalJSON() ([]byte, error) {
	rows := c.Rows
	if rows == nil {
		rows = []Entry{}
	}
	return json.Marshal(map[string][]Entry{c.Case: rows})
}

// Data is a table's rows grouped by case in ascending case order.
type Data []CaseRows

// Len returns the number of rows across cases.
func (d Data) Len() int {
	n := 0
	for _, c := range d {
		n += len(c.Rows)
	}
	return n
}

// Context is the render context of one table.
type Context struct {
	Title    string `json:"title"`
	Headings Pairs  `json:"headings"`
	Data     Data   `json:"data"`
	Blurb    string `json:"blurb"`
	Glossary Pairs  `json:"glossary"`
}
