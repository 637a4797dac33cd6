// Package vcf_summary counts calls and PASS calls in a list of VCF files.
package vcf_summary

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"regexp"
	"runtime"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// DefaultNameRe abbreviates annotated VCF paths to their file name.
const DefaultNameRe = `[^/]*vep\.vcf\.gz$`

type options struct {
	nameRe  string
	threads int
	quiet   bool
}

func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "vcf_summary <list_file>",
		Short: "Count calls and PASS calls for each VCF in a list file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], *opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.nameRe, "name-re", DefaultNameRe, "regex selecting the reported file name")
	f.IntVarP(&opts.threads, "threads", "t", runtime.NumCPU(), "files counted in parallel")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress the summary line")
	return cmd
}

func run(listFile string, opts options, stdout, stderr io.Writer) error {
	re, err := regexp.Compile(opts.nameRe)
	if err != nil {
		return errors.Wrap(err, "bad --name-re")
	}
	paths, err := ReadList(listFile)
	if err != nil {
		return err
	}
	sums, err := Summarize(paths, re, opts.threads)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(sums, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encode summary")
	}
	fmt.Fprintln(stdout, string(out))

	if !opts.quiet {
		st := Describe(sums)
		log.New(stderr, "vcf_summary: ", 0).Printf("%d files, calls mean %.1f sd %.1f, mean PASS fraction %.3f",
			st.Files, st.MeanCalls, st.StdDevCalls, st.MeanPassFrac)
	}
	return nil
}
