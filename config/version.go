package config

// Version system:
// vMAJOR.MINOR.PATCH

const (
	// Executable
	MainVersion = "v1.0.0"

	// Tools
	Benchmark      = "v1.0.1"
	AnalysisReport = "v1.0.0"
	VCFSummary     = "v1.0.0"
)
