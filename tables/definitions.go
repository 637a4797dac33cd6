package tables

import (
	"analysis_report_go/manifest"
	"analysis_report_go/plot"
	"analysis_report_go/store"
)

// Primary keys of the QC stores.
const (
	laneKey   = "Pinery Lims ID"
	mergedKey = "Merged Pinery Lims ID"
)

const (
	mappedReadsWG = `(1 - (CAST("unmapped reads meta" as FLOAT) / CAST("total input reads meta" as FLOAT)))`
	mappedReadsWT = `(1 - (CAST("unmapped reads" as FLOAT) / CAST("total reads" as FLOAT)))`
	rrnaContamWT  = `(CAST("rrna contamination properly paired" as FLOAT) / CAST("rrna contamination in total (QC-passed reads + QC-failed reads)" as FLOAT))`
)

var (
	zero    = plot.Bound(0)
	hundred = plot.Bound(100)
)

var (
	caseCols = []Column{
		{Key: ColCase, Heading: "Case"},
		{Key: ColSampleID, Heading: "Sample ID"},
	}
	bothTissues = []SampleType{
		{Tissue: manifest.Normal, Display: "Matched Normal"},
		{Tissue: manifest.Tumour, Display: "Tumour"},
	}
	tumourOnly = []SampleType{
		{Tissue: manifest.Tumour, Display: "Tumour"},
	}
)

func withCaseCols(cols ...Column) []Column {
	out := append([]Column(nil), caseCols...)
	return append(out, cols...)
}

func runSource(db, table string) Source {
	return Source{DB: db, Table: table, Key: runKey, Match: store.Like}
}

// NewMutect2Table reads somatic mutation call counts.
func NewMutect2Table(env Env) *Table {
	return &Table{
		Name:  "mutect2",
		Title: "Mutations",
		Columns: withCaseCols(
			Column{Key: ColNumCalls, Heading: "Mutation Calls", Expr: `"num_calls"`},
			Column{Key: ColNumPASS, Heading: "Mutation PASS Calls", Expr: `"num_PASS"`},
			Column{Key: ColNumSNPs, Heading: "snvs", Expr: `"num_SNPs"`},
			Column{Key: ColNumIndels, Heading: "indels", Expr: `"num_indels"`},
			Column{Key: ColTiTvRatio, Heading: "Ti/Tv", Expr: `"titv_ratio"`},
		),
		Glossary: Pairs{
			{ColNumCalls, "The number of somatic mutation calls (snvs + indels) identified by mutect2"},
			{ColNumPASS, "The number of somatic mutation calls marked as PASS"},
			{ColNumSNPs, "The number of PASS single nucleotide variant calls"},
			{ColNumIndels, "The number of PASS insertion and deletion calls"},
			{ColTiTvRatio, "Transition to Transversion ratio"},
		},
		Step:      "calls.mutations",
		Processes: []string{"mutect2_matched_by_tumor_group", "mutect2"},
		Axis:      PerCase,
		Sources:   []Source{runSource("analysis_mutect2", "analysis_mutect2_analysis_mutect2_1")},
		PlotSpecs: []PlotSpec{
			{Column: ColNumPASS, Title: "Mutation Calls", YLabel: "Mutation Calls"},
			{Column: ColTiTvRatio, Title: "Ti/Tv", YLabel: "Ti/Tv", Lo: zero},
		},
		env: env,
	}
}

// NewDellyTable reads structural variant call counts.
func NewDellyTable(env Env) *Table {
	return &Table{
		Name:  "delly",
		Title: "Genomic Structural Variants",
		Columns: withCaseCols(
			Column{Key: ColNumCalls, Heading: "SV Calls", Expr: `"num_calls"`},
			Column{Key: ColNumPASS, Heading: "SV PASS Calls", Expr: `"num_PASS"`},
			Column{Key: ColNumBND, Heading: "Translocations", Expr: `"num_BND"`},
			Column{Key: ColNumDEL, Heading: "Deletions", Expr: `"num_DEL"`},
			Column{Key: ColNumDUP, Heading: "Duplications", Expr: `"num_DUP"`},
			Column{Key: ColNumINS, Heading: "Insertions", Expr: `"num_INS"`},
			Column{Key: ColNumINV, Heading: "Inversions", Expr: `"num_INV"`},
		),
		Glossary: Pairs{
			{ColNumCalls, "The number of somatic structural variant calls identified by delly"},
			{ColNumPASS, "The number of structural variant calls marked as PASS"},
			{ColNumBND, "The number of PASS translocation calls"},
			{ColNumDEL, "The number of PASS deletion calls"},
			{ColNumDUP, "The number of PASS duplication calls"},
			{ColNumINS, "The number of PASS insertions calls"},
			{ColNumINV, "The number of PASS inversions calls"},
		},
		Step:      "calls.structuralvariants",
		Processes: []string{"delly_matched_by_tumor_group", "delly"},
		Axis:      PerCase,
		Sources:   []Source{runSource("analysis_delly", "analysis_delly_analysis_delly_1")},
		PlotSpecs: []PlotSpec{
			{Column: ColNumPASS, Title: "SV PASS Calls", YLabel: "SV PASS Calls"},
		},
		env: env,
	}
}

// NewRSEMTable reads gene expression summaries.
func NewRSEMTable(env Env) *Table {
	return &Table{
		Name:  "rsem",
		Title: "Gene Expression",
		Columns: withCaseCols(
			Column{Key: ColTotal, Heading: "Total Genes", Expr: `"total"`},
			Column{Key: ColPctNonZero, Heading: "Percent Expressed (%)", Expr: `"pct_non_zero"`, Percent: true},
			Column{Key: ColQ0_05, Heading: "TPM, 5th percentile", Expr: `"Q0.05"`},
			Column{Key: ColQ0_5, Heading: "Median TPM", Expr: `"Q0.5"`},
			Column{Key: ColQ0_95, Heading: "TPM, 95th percentile", Expr: `"Q0.95"`},
		),
		Glossary: Pairs{
			{ColTotal, "The total number of genes in the gene model"},
			{ColPctNonZero, "The percentage of genes expressed (non-zero)"},
			{ColQ0_05, "5th percentile of the Transcripts per Million scores"},
			{ColQ0_5, "Median Transcripts per Million score"},
			{ColQ0_95, "95th percentile of the Transcripts per Million score"},
		},
		Step:      "calls.expression",
		Processes: []string{"rsem"},
		Axis:      PerCase,
		Sources:   []Source{runSource("analysis_rsem", "analysis_rsem_analysis_rsem_1")},
		PlotSpecs: []PlotSpec{
			{Column: ColPctNonZero, Title: "Percent Expressed", YLabel: "Percent Expressed (%)", Lo: zero, Hi: hundred},
			{Column: ColQ0_5, Title: "Median TPM", YLabel: "Median TPM"},
		},
		env: env,
	}
}

// NewSequenzaTable joins the gamma 500 solution with the fraction of genome
// altered. Each of the two lookups degrades to nd on its own.
func NewSequenzaTable(env Env) *Table {
	alt := runSource("analysis_sequenza", "analysis_sequenza_analysis_sequenza_alternative_solutions_1")
	alt.Conditions = []store.Condition{{Column: "gamma", Value: 500}}
	alt.Columns = []string{ColCellularity, ColPloidy}

	fga := runSource("analysis_sequenza", "analysis_sequenza_analysis_sequenza_gamma_500_fga_1")
	fga.Columns = []string{ColFGA}

	return &Table{
		Name:  "sequenza",
		Title: "Copy Number Alterations",
		Columns: withCaseCols(
			Column{Key: ColCellularity, Heading: "Cellularity", Expr: `"cellularity"`},
			Column{Key: ColPloidy, Heading: "Ploidy", Expr: `"ploidy"`},
			Column{Key: ColFGA, Heading: "FGA (%)", Expr: `"fga"`, Percent: true},
		),
		Glossary: Pairs{
			{ColCellularity, "Cellularity estimate (gamma = 500)"},
			{ColPloidy, "Ploidy estimate (gamma = 500)"},
			{ColFGA, "Fraction of the genome altered (gamma = 500)"},
		},
		Step:      "calls.copynumber",
		Processes: []string{"sequenza_by_tumor_group", "sequenza"},
		Axis:      PerCase,
		Sources:   []Source{alt, fga},
		PlotSpecs: []PlotSpec{
			{Column: ColCellularity, Title: "Cellularity", YLabel: "Cellularity"},
			{Column: ColPloidy, Title: "Ploidy", YLabel: "Ploidy"},
			{Column: ColFGA, Title: "FGA", YLabel: "FGA (%)", Lo: zero, Hi: hundred},
		},
		env: env,
	}
}

// NewStarFusionTable reads gene fusion call counts.
func NewStarFusionTable(env Env) *Table {
	return &Table{
		Name:  "starfusion",
		Title: "Gene Fusions",
		Columns: withCaseCols(
			Column{Key: ColNumRecords, Heading: "Fusion Calls", Expr: `"num_records"`},
		),
		Glossary: Pairs{
			{ColNumRecords, "Number of gene fusions identified by StarFusion"},
		},
		Step:      "calls.fusions",
		Processes: []string{"starfusion", "starFusion"},
		Axis:      PerCase,
		Sources:   []Source{runSource("analysis_starfusion", "analysis_starfusion_analysis_starfusion_1")},
		PlotSpecs: []PlotSpec{
			{Column: ColNumRecords, Title: "Fusion Calls", YLabel: "Fusion Calls"},
		},
		env: env,
	}
}

var wgGlossary = Pairs{
	{ColCoverageDedup, "Mean depth of coverage corrected for duplication"},
	{ColInsertSizeAvg, "Mean size of the sequenced insert"},
	{ColMarkDupPctDup, "Percent of reads marked as duplicates"},
	{ColTotalClusters, "Number of read pairs generated"},
	{ColMappedReads, "Percent of reads mapping to the genomic reference"},
	{ColNumLimsKeys, "Number of lanes of sequencing merged to call ready"},
}

var wtGlossary = Pairs{
	{ColPctCodingBases, "Percentage of bases mapping to the coding regions of the genome"},
	{ColTotalClusters, "Number of read pairs generated"},
	{ColMappedReads, "Percentage of reads mapping to the genomic reference"},
	{ColRRNAContam, "Percentage of reads mapping to ribosomal RNA"},
	{ColNumLimsKeys, "Number of lanes of sequencing merged to call ready"},
}

// glossaryFor keeps the entries of g whose column is in cols.
func glossaryFor(g Pairs, cols []Column) Pairs {
	var out Pairs
	for _, kv := range g {
		for _, c := range cols {
			if c.Key == kv.Key {
				out = append(out, kv)
				break
			}
		}
	}
	return out
}

// NewWGLaneLevelTable reads per-lane whole genome QC, preferring dnaseqqc and
// falling back to bamqc4 for lanes it does not hold.
func NewWGLaneLevelTable(env Env) *Table {
	cols := []Column{
		{Key: ColCase, Heading: "Case"},
		{Key: ColSampleID, Heading: "Sample ID"},
		{Key: ColSampleType, Heading: "Sample Type"},
		{Key: ColLane, Heading: "Sequencing Run"},
		{Key: ColCoverageDedup, Heading: "Coverage Depth", Expr: `"coverage deduplicated"`},
		{Key: ColInsertSizeAvg, Heading: "Insert Size", Expr: `"insert size average"`},
		{Key: ColMarkDupPctDup, Heading: "Duplication (%)", Expr: `"mark duplicates_PERCENT_DUPLICATION"`, Percent: true},
		{Key: ColTotalClusters, Heading: "Read Pairs", Expr: `"total clusters"`},
		{Key: ColMappedReads, Heading: "Mapped Reads (%)", Expr: mappedReadsWG, Percent: true},
	}
	return &Table{
		Name:      "wg_lanelevel",
		Title:     "Whole Genome Libraries, tumour and matched normal",
		Columns:   cols,
		Glossary:  glossaryFor(wgGlossary, cols),
		Step:      "alignments_WG.lanelevel",
		Processes: []string{"bwaMem"},
		Axis:      PerLane,
		Sources: []Source{
			{DB: "dnaseqqc", Table: "dnaseqqc_dnaseqqc_5", Key: laneKey, Match: store.Like},
			{DB: "bamqc4", Table: "bamqc4_bamqc4_5", Key: laneKey, Match: store.Like},
		},
		Library:     manifest.WholeGenome,
		SampleTypes: bothTissues,
		PlotSpecs: []PlotSpec{
			{Column: ColCoverageDedup, Title: "Coverage Depth", YLabel: "Coverage Depth"},
			{Column: ColInsertSizeAvg, Title: "Insert Size", YLabel: "Insert Size"},
			{Column: ColMarkDupPctDup, Title: "Duplication", YLabel: "Duplication (%)", Lo: zero, Hi: hundred},
			{Column: ColTotalClusters, Title: "Read Pairs", YLabel: "Read Pairs"},
			{Column: ColMappedReads, Title: "Mapped Reads", YLabel: "Mapped Reads (%)", Lo: zero, Hi: hundred},
		},
		env: env,
	}
}

// NewWGCallReadyTable reads merged whole genome QC, keyed by the sorted lane
// keys of each sample type.
func NewWGCallReadyTable(env Env) *Table {
	cols := []Column{
		{Key: ColCase, Heading: "Case"},
		{Key: ColSampleID, Heading: "Sample ID"},
		{Key: ColSampleType, Heading: "Sample Type"},
		{Key: ColCoverageDedup, Heading: "Coverage Depth", Expr: `"coverage deduplicated"`},
		{Key: ColMarkDupPctDup, Heading: "Duplication (%)", Expr: `"mark duplicates_PERCENT_DUPLICATION"`, Percent: true},
		{Key: ColTotalClusters, Heading: "Read Pairs", Expr: `"total clusters"`},
		{Key: ColMappedReads, Heading: "Mapped Reads (%)", Expr: mappedReadsWG, Percent: true},
		{Key: ColNumLimsKeys, Heading: "Lanes Sequenced"},
	}
	return &Table{
		Name:      "wg_callready",
		Title:     "Whole Genome Libraries, tumour and matched normal",
		Columns:   cols,
		Glossary:  glossaryFor(wgGlossary, cols),
		Step:      "alignments_WG.callready",
		Processes: []string{"bamMergePreprocessing_by_tumor_group"},
		Axis:      PerSampleType,
		Sources: []Source{
			{DB: "bamqc4merged", Table: "bamqc4merged_bamqc4merged_5", Key: mergedKey, Match: store.Like},
		},
		Library:     manifest.WholeGenome,
		SampleTypes: bothTissues,
		MergedKey:   LaneKeys,
		PlotSpecs: []PlotSpec{
			{Column: ColCoverageDedup, Title: "Coverage Depth", YLabel: "Coverage Depth"},
			{Column: ColMarkDupPctDup, Title: "Duplication", YLabel: "Duplication (%)", Lo: zero, Hi: hundred},
			{Column: ColTotalClusters, Title: "Read Pairs", YLabel: "Read Pairs"},
			{Column: ColMappedReads, Title: "Mapped Reads", YLabel: "Mapped Reads (%)", Lo: zero, Hi: hundred},
		},
		env: env,
	}
}

func wtPlots() []PlotSpec {
	return []PlotSpec{
		{Column: ColPctCodingBases, Title: "Percent Coding", YLabel: "Percent Coding (%)", Lo: zero, Hi: hundred},
		{Column: ColTotalClusters, Title: "Read Pairs", YLabel: "Read Pairs"},
		{Column: ColMappedReads, Title: "Mapped Reads", YLabel: "Mapped Reads (%)", Lo: zero, Hi: hundred},
		{Column: ColRRNAContam, Title: "rRNA Contamination", YLabel: "rRNA Contamination (%)", Lo: zero, Hi: hundred},
	}
}

// NewWTLaneLevelTable reads per-lane whole transcriptome QC.
func NewWTLaneLevelTable(env Env) *Table {
	cols := []Column{
		{Key: ColCase, Heading: "Case"},
		{Key: ColSampleID, Heading: "Sample ID"},
		{Key: ColLane, Heading: "Sequencing Run"},
		{Key: ColPctCodingBases, Heading: "Percent Coding (%)", Expr: `"PCT_CODING_BASES"`},
		{Key: ColTotalClusters, Heading: "Read Pairs", Expr: `"total clusters"`},
		{Key: ColMappedReads, Heading: "Mapped Reads (%)", Expr: mappedReadsWT, Percent: true},
		{Key: ColRRNAContam, Heading: "rRNA Contamination (%)", Expr: rrnaContamWT, Percent: true},
	}
	return &Table{
		Name:      "wt_lanelevel",
		Title:     "Whole Transcriptome Libraries, tumour only",
		Columns:   cols,
		Glossary:  glossaryFor(wtGlossary, cols),
		Step:      "alignments_WT.lanelevel",
		Processes: []string{"star_lane_level", "STAR"},
		Axis:      PerLane,
		Sources: []Source{
			{DB: "rnaseqqc2", Table: "rnaseqqc2_rnaseqqc2_2", Key: laneKey, Match: store.Exact},
		},
		Library:     manifest.WholeTranscriptome,
		SampleTypes: tumourOnly,
		PlotSpecs:   wtPlots(),
		env:         env,
	}
}

// NewWTCallReadyTable reads merged whole transcriptome QC, keyed by the
// limkeys recorded on the call-ready workflow run.
func NewWTCallReadyTable(env Env) *Table {
	cols := []Column{
		{Key: ColCase, Heading: "Case"},
		{Key: ColSampleID, Heading: "Sample ID"},
		{Key: ColPctCodingBases, Heading: "Percent Coding (%)", Expr: `"PCT_CODING_BASES"`},
		{Key: ColTotalClusters, Heading: "Read Pairs", Expr: `"total clusters"`},
		{Key: ColMappedReads, Heading: "Mapped Reads (%)", Expr: mappedReadsWT, Percent: true},
		{Key: ColRRNAContam, Heading: "rRNA Contamination (%)", Expr: rrnaContamWT, Percent: true},
		{Key: ColNumLimsKeys, Heading: "Lanes Sequenced"},
	}
	return &Table{
		Name:      "wt_callready",
		Title:     "Whole Transcriptome Libraries, tumour only",
		Columns:   cols,
		Glossary:  glossaryFor(wtGlossary, cols),
		Step:      "alignments_WT.callready",
		Processes: []string{"star_call_ready", "STAR"},
		Axis:      PerSampleType,
		Sources: []Source{
			{DB: "rnaseqqc2merged", Table: "rnaseqqc2merged_rnaseqqc2merged_2", Key: mergedKey, Match: store.Exact},
		},
		Library:     manifest.WholeTranscriptome,
		SampleTypes: tumourOnly,
		MergedKey:   RunLimsKeys,
		PlotSpecs:   wtPlots(),
		env:         env,
	}
}

// ID names the table in plot file names and logs.
func (t *Table) ID() string { return t.Name }

func (t *CasesTable) ID() string { return "cases" }
