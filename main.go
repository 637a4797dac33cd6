package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"analysis_report_go/benchmark"
	"analysis_report_go/config"
	"analysis_report_go/tools/analysis_report"
	"analysis_report_go/tools/vcf_summary"
)

var benchmarking bool

var rootCmd = &cobra.Command{
	Use:   "analysis_report",
	Short: "Analysis data release reporting tools",
	Long: `Analysis Report - reporting tools for analysis data releases

Tools:
  report        Generate the Analysis Data Release Report (PDF)
  vcf_summary   Count calls and PASS calls in a list of VCF files

Benchmarking:
  --benchmark   Must be used with a tool. Displays computational resource
                usage and pertinent operating system information.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "Analysis Report - Version Information")
		fmt.Fprintf(w, "\tAnalysis Report:\t%s\n", config.MainVersion)
		fmt.Fprintf(w, "\nTools:\n")
		fmt.Fprintf(w, "\treport:\t\t\t%s\n", config.AnalysisReport)
		fmt.Fprintf(w, "\tvcf_summary:\t\t%s\n", config.VCFSummary)
		fmt.Fprintf(w, "\tbenchmark:\t\t%s\n", config.Benchmark)
	},
}

func init() {
	rootCmd.Version = config.MainVersion
	rootCmd.PersistentFlags().BoolVar(&benchmarking, "benchmark", false, "report time and memory used by the tool")
	rootCmd.AddCommand(analysis_report.NewCommand(), vcf_summary.NewCommand(), versionCmd)

	// --benchmark wraps the tool's RunE
	for _, c := range rootCmd.Commands() {
		if c.RunE == nil {
			continue
		}
		inner := c.RunE
		c.RunE = func(cmd *cobra.Command, args []string) error {
			if !benchmarking {
				return inner(cmd, args)
			}
			label := fmt.Sprintf("analysis_report %s %s", cmd.Name(), strings.Join(args, " "))
			_, err := benchmark.Run(cmd.ErrOrStderr(), label, func() error { return inner(cmd, args) })
			return err
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
