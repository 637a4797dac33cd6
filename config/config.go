// Package config loads the analysis report configuration file and applies
// command line overrides.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileName is looked up in the working directory when --config is not given.
const FileName = "analysis_report.yaml"

// Store drivers.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all analysis report configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Output  OutputConfig  `yaml:"output"`
	Publish PublishConfig `yaml:"publish"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// StoreConfig says where QC-ETL data is read from.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Root   string `yaml:"root"`
	DSN    string `yaml:"dsn"`
	Env    string `yaml:"env"`
}

// OutputConfig names the artifacts of a run. Empty HTML and ContextJSON skip them.
type OutputConfig struct {
	PDF         string `yaml:"pdf"`
	HTML        string `yaml:"html"`
	ContextJSON string `yaml:"context_json"`
	PlotDir     string `yaml:"plot_dir"`
}

type PublishConfig struct {
	Driver    string `yaml:"driver"`
	Root      string `yaml:"root"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: StoreSQLite,
			Root:   "/scratch2/groups/gsi",
			Env:    "production",
		},
		Output: OutputConfig{
			PDF:     "Analysis_Report.pdf",
			PlotDir: "temp",
		},
		Publish: PublishConfig{Driver: "none"},
	}
}

// Load reads path, merges it over the defaults and validates the result.
// An empty path tries FileName and falls back to defaults when it is absent.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = FileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, errors.Wrap(err, "reading config file")
	}
	return Parse(data)
}

// Parse decodes YAML, merges it over the defaults and validates.
func Parse(data []byte) (*Config, error) {
	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, errors.Wrap(err, "parsing config file")
	}
	merged := Merge(loaded, Default())
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Merge fills zero fields of loaded from defaults.
func Merge(loaded, defaults *Config) *Config {
	out := *loaded
	pick(&out.Store.Driver, defaults.Store.Driver)
	pick(&out.Store.Root, defaults.Store.Root)
	pick(&out.Store.DSN, defaults.Store.DSN)
	pick(&out.Store.Env, defaults.Store.Env)
	pick(&out.Output.PDF, defaults.Output.PDF)
	pick(&out.Output.HTML, defaults.Output.HTML)
	pick(&out.Output.ContextJSON, defaults.Output.ContextJSON)
	pick(&out.Output.PlotDir, defaults.Output.PlotDir)
	pick(&out.Publish.Driver, defaults.Publish.Driver)
	pick(&out.Publish.Root, defaults.Publish.Root)
	pick(&out.Publish.Bucket, defaults.Publish.Bucket)
	pick(&out.Publish.Region, defaults.Publish.Region)
	pick(&out.Publish.Endpoint, defaults.Publish.Endpoint)
	pick(&out.Publish.Prefix, defaults.Publish.Prefix)
	pick(&out.Metrics.Textfile, defaults.Metrics.Textfile)
	return &out
}

func pick(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

// Validate checks that config values are usable.
func Validate(cfg *Config) error {
	switch cfg.Store.Driver {
	case StoreSQLite:
		if cfg.Store.Root == "" {
			return errors.Wrap(ErrInvalidConfig, "store.root is required for sqlite")
		}
	case StorePostgres:
		if cfg.Store.DSN == "" {
			return errors.Wrap(ErrInvalidConfig, "store.dsn is required for postgres")
		}
	case StoreMemory:
	default:
		return errors.Wrapf(ErrInvalidConfig, "store.driver must be sqlite, postgres or memory, got %q", cfg.Store.Driver)
	}
	if cfg.Store.Env != "production" && cfg.Store.Env != "staging" {
		return errors.Wrapf(ErrInvalidConfig, "store.env must be production or staging, got %q", cfg.Store.Env)
	}
	if cfg.Output.PDF == "" {
		return errors.Wrap(ErrInvalidConfig, "output.pdf is required")
	}
	switch cfg.Publish.Driver {
	case "none":
	case "fs":
		if cfg.Publish.Root == "" {
			return errors.Wrap(ErrInvalidConfig, "publish.root is required for fs")
		}
	case "s3":
		if cfg.Publish.Bucket == "" {
			return errors.Wrap(ErrInvalidConfig, "publish.bucket is required for s3")
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "publish.driver must be none, fs or s3, got %q", cfg.Publish.Driver)
	}
	return nil
}

// Options are key=value settings given on the command line.
type Options struct {
	Params map[string]string
}

// ParseArgs splits key=value arguments. A bare key maps to "".
func ParseArgs(args []string) Options {
	opts := Options{Params: make(map[string]string)}
	for _, arg := range args {
		kv := splitOption(arg)
		opts.Params[kv[0]] = kv[1]
	}
	return opts
}

func splitOption(arg string) [2]string {
	var kv [2]string
	if i := strings.IndexByte(arg, '='); i >= 0 {
		kv[0] = strings.TrimSpace(arg[:i])
		kv[1] = arg[i+1:]
		return kv
	}
	kv[0] = strings.TrimSpace(arg)
	return kv
}

// Apply sets dotted keys (e.g. store.env=staging) and revalidates.
func (c *Config) Apply(opts Options) error {
	for key, val := range opts.Params {
		dst, ok := c.field(key)
		if !ok {
			if key == "publish.path_style" {
				b, err := strconv.ParseBool(val)
				if err != nil {
					return errors.Wrapf(ErrInvalidConfig, "%s: %v", key, err)
				}
				c.Publish.PathStyle = b
				continue
			}
			return errors.Wrapf(ErrInvalidConfig, "unknown setting %q", key)
		}
		*dst = val
	}
	return Validate(c)
}

func (c *Config) field(key string) (*string, bool) {
	fields := map[string]*string{
		"store.driver":        &c.Store.Driver,
		"store.root":          &c.Store.Root,
		"store.dsn":           &c.Store.DSN,
		"store.env":           &c.Store.Env,
		"output.pdf":          &c.Output.PDF,
		"output.html":         &c.Output.HTML,
		"output.context_json": &c.Output.ContextJSON,
		"output.plot_dir":     &c.Output.PlotDir,
		"publish.driver":      &c.Publish.Driver,
		"publish.root":        &c.Publish.Root,
		"publish.bucket":      &c.Publish.Bucket,
		"publish.region":      &c.Publish.Region,
		"publish.endpoint":    &c.Publish.Endpoint,
		"publish.prefix":      &c.Publish.Prefix,
		"metrics.textfile":    &c.Metrics.Textfile,
	}
	p, ok := fields[key]
	return p, ok
}
