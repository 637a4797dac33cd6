// Package analysis_report is the report command: it reads a release manifest,
// queries the QC-ETL stores and writes the analysis report.
package analysis_report

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"analysis_report_go/config"
	"analysis_report_go/manifest"
	"analysis_report_go/metrics"
	"analysis_report_go/publish"
	"analysis_report_go/report"
	"analysis_report_go/store"
	"analysis_report_go/tables"
	common "analysis_report_go/utils"
)

// Options are the report command flags.
type Options struct {
	Infile      string
	Outfile     string
	Stage       bool
	HTML        string
	ContextJSON string
	PlotDir     string
	ConfigPath  string
	Set         []string
	DryRun      bool
	Quiet       bool
	NoProgress  bool
	MetricsFile string
	Publish     string
}

// NewCommand builds the report command.
func NewCommand() *cobra.Command {
	return newCommand(&Options{})
}

func newCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate an Analysis Data Release Report",
		Long: `Generate an Analysis Data Release Report for the cases in a release manifest.

Metrics are read from the QC-ETL stores (production unless --stage is given),
summarised per case, plotted, and written to a PDF. An HTML copy and the full
render context can be written alongside for review.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			return Run(cmd.Context(), cfg, *opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Infile, "infile", "i", "IRIS.json", "release manifest (JSON, gzip allowed)")
	f.StringVarP(&opts.Outfile, "outfile", "o", "Analysis_Report.pdf", "output PDF")
	f.BoolVar(&opts.Stage, "stage", false, "use QC-ETL data from staging")
	f.StringVar(&opts.HTML, "html", "", "also write the report as HTML")
	f.StringVar(&opts.ContextJSON, "context-json", "", "also write the render context as JSON")
	f.StringVar(&opts.PlotDir, "plot-dir", "", "directory for plot images (default temp)")
	f.StringVar(&opts.ConfigPath, "config", "", "config file (default "+config.FileName+" if present)")
	f.StringArrayVar(&opts.Set, "set", nil, "override a config setting, key=value (repeatable)")
	f.BoolVar(&opts.DryRun, "dry-run", false, "check the manifest and stores, print the plan, write nothing")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress diagnostics")
	f.BoolVar(&opts.NoProgress, "no-progress", false, "hide the progress bar")
	f.StringVar(&opts.MetricsFile, "metrics-file", "", "write run metrics to a Prometheus textfile")
	f.StringVar(&opts.Publish, "publish", "", "publish driver: none, fs or s3")
	f.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "staging" {
			name = "stage"
		}
		return pflag.NormalizedName(name)
	})
	return cmd
}

// resolveConfig layers the config file, --set overrides, then explicit flags.
func resolveConfig(opts *Options, flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(config.ParseArgs(opts.Set)); err != nil {
		return nil, err
	}
	if flags.Changed("outfile") {
		cfg.Output.PDF = opts.Outfile
	}
	if opts.Stage {
		cfg.Store.Env = store.Staging
	}
	if flags.Changed("html") {
		cfg.Output.HTML = opts.HTML
	}
	if flags.Changed("context-json") {
		cfg.Output.ContextJSON = opts.ContextJSON
	}
	if flags.Changed("plot-dir") {
		cfg.Output.PlotDir = opts.PlotDir
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile = opts.MetricsFile
	}
	if flags.Changed("publish") {
		cfg.Publish.Driver = opts.Publish
	}
	return cfg, config.Validate(cfg)
}

// openStore is swapped in tests.
var openStore = func(cfg config.StoreConfig) (store.Opener, func() error, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		return store.SQLite{Root: cfg.Root, Env: cfg.Env}, func() error { return nil }, nil
	case config.StorePostgres:
		pg := store.NewPostgres(cfg.DSN)
		return pg, pg.Close, nil
	case config.StoreMemory:
		return store.NewMemory(), func() error { return nil }, nil
	}
	return nil, nil, errors.Errorf("unknown store driver %q", cfg.Driver)
}

// Run generates the report described by cfg. Nothing is written when a table
// fails fatally.
func Run(ctx context.Context, cfg *config.Config, opts Options, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.New(stderr, "analysis_report: ", 0)
	if opts.Quiet {
		logger.SetOutput(io.Discard)
	}

	logger.Printf("Reading input from %s", opts.Infile)
	m, err := manifest.Load(opts.Infile)
	if err != nil {
		return err
	}
	opener, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Printf("Closing store: %v", err)
		}
	}()

	var rec *metrics.Recorder
	env := tables.Env{Manifest: m, Store: opener, Log: logger}
	if cfg.Metrics.Textfile != "" {
		rec = metrics.New()
		env.Observer = rec
	}

	start := time.Now()
	r := report.New(env, start)
	if opts.DryRun {
		return plan(ctx, r, m, opener, cfg, stdout)
	}

	// plot paths end up in the HTML and PDF, which may be written elsewhere
	plotDir, err := filepath.Abs(cfg.Output.PlotDir)
	if err != nil {
		return errors.Wrapf(err, "resolve plot directory %s", cfg.Output.PlotDir)
	}
	bar := newProgress(stderr, r.TableCount(), !opts.NoProgress && !opts.Quiet)
	rc, err := r.LoadContext(ctx, report.Options{
		PlotDir:  plotDir,
		Log:      logger,
		Metrics:  rec,
		Progress: bar.table,
	})
	bar.finish()
	if err != nil {
		return err
	}

	var written []string
	if path := cfg.Output.ContextJSON; path != "" {
		if err := writeFile(path, func(w io.Writer) error { return report.WriteContextJSON(w, rc) }); err != nil {
			return err
		}
		written = append(written, path)
	}
	if path := cfg.Output.HTML; path != "" {
		if err := writeFile(path, func(w io.Writer) error { return report.WriteHTML(w, rc) }); err != nil {
			return err
		}
		written = append(written, path)
	}
	if err := writeFile(cfg.Output.PDF, func(w io.Writer) error { return report.WritePDF(w, rc) }); err != nil {
		return err
	}
	written = append(written, cfg.Output.PDF)

	sink, err := publish.Open(ctx, publish.Config{
		Driver:    publish.Driver(cfg.Publish.Driver),
		Root:      cfg.Publish.Root,
		Bucket:    cfg.Publish.Bucket,
		Region:    cfg.Publish.Region,
		Endpoint:  cfg.Publish.Endpoint,
		Prefix:    cfg.Publish.Prefix,
		PathStyle: cfg.Publish.PathStyle,
	})
	if err != nil {
		return err
	}
	locs, err := publish.Files(ctx, sink, written...)
	if err != nil {
		return err
	}
	for _, loc := range locs {
		logger.Printf("Published %s", loc)
	}

	rec.Duration(time.Since(start))
	if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Printf("Writing metrics: %v", err)
	}
	fmt.Fprintf(stdout, "Created report %s\n", cfg.Output.PDF)
	return nil
}

// writeFile writes to a temp file next to path and renames it into place.
func writeFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := common.EnsureDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".analysis_report-*")
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "close %s", path)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "write %s", path)
}

// plan prints what a run would do and checks every source opens.
func plan(ctx context.Context, r *report.Report, m *manifest.Manifest, opener store.Opener, cfg *config.Config, w io.Writer) error {
	fmt.Fprintf(w, "Project %s release %s: %d cases\n", m.Project, m.Release, m.Len())
	fmt.Fprintf(w, "Store: %s (%s)\n", cfg.Store.Driver, cfg.Store.Env)
	seen := map[string]bool{}
	var sources []string
	for _, s := range r.Sections {
		fmt.Fprintf(w, "%s\n", s.Title)
		for _, l := range s.Tables {
			t, ok := l.(*tables.Table)
			if !ok {
				fmt.Fprintf(w, "  %s\n", l.ID())
				continue
			}
			fmt.Fprintf(w, "  %s (%s)\n", t.ID(), t.Axis)
			for _, src := range t.Sources {
				fmt.Fprintf(w, "    %s.%s\n", src.DB, src.Table)
				if !seen[src.DB] {
					seen[src.DB] = true
					sources = append(sources, src.DB)
				}
			}
		}
	}

	missing := 0
	for _, db := range sources {
		conn, err := opener.Open(ctx, db)
		if err != nil {
			missing++
			fmt.Fprintf(w, "source %s: %v\n", db, err)
			continue
		}
		conn.Close()
	}
	fmt.Fprintf(w, "Output: %s\n", cfg.Output.PDF)
	if missing > 0 {
		return errors.Errorf("%d of %d sources unavailable", missing, len(sources))
	}
	return nil
}
