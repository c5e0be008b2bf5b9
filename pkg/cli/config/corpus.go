package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/madoguchi/pkg/service/corpus"
	"github.com/urfave/cli/v3"
)

// CorpusFile is the TOML layout of the corpus configuration
type CorpusFile struct {
	DefaultCategory    string         `toml:"default_category"`
	CategoryFromSource bool           `toml:"category_from_source"`
	Columns            *ColumnsConfig `toml:"columns"`
	Sources            []SourceConfig `toml:"source"`
}

// ColumnsConfig lists accepted header names per logical field
type ColumnsConfig struct {
	Question []string `toml:"question"`
	Answer   []string `toml:"answer"`
	Category []string `toml:"category"`
}

// SourceConfig is one corpus location
type SourceConfig struct {
	Path     string `toml:"path"`
	Sheet    string `toml:"sheet"`
	Category string `toml:"category"`
}

// Validate checks the file level settings. Column rules are checked by the mapping.
func (x *CorpusFile) Validate() error {
	for i, src := range x.Sources {
		if src.Path == "" {
			return goerr.Wrap(ErrInvalidConfig, "source path is required", goerr.V("source_index", i))
		}
	}
	return nil
}

// Mapping converts the file into a corpus mapping. Omitted column lists keep
// the built-in aliases.
func (x *CorpusFile) Mapping() *corpus.Mapping {
	m := corpus.DefaultMapping()
	if x.Columns != nil {
		if len(x.Columns.Question) > 0 {
			m.Columns.Question = x.Columns.Question
		}
		if len(x.Columns.Answer) > 0 {
			m.Columns.Answer = x.Columns.Answer
		}
		if x.Columns.Category != nil {
			m.Columns.Category = x.Columns.Category
		}
	}
	if x.DefaultCategory != "" {
		m.DefaultCategory = x.DefaultCategory
	}
	m.CategoryFromSource = x.CategoryFromSource
	return m
}

// CorpusSources converts the configured sources
func (x *CorpusFile) CorpusSources() []corpus.Source {
	out := make([]corpus.Source, 0, len(x.Sources))
	for _, s := range x.Sources {
		out = append(out, corpus.Source{Path: s.Path, Sheet: s.Sheet, Category: s.Category})
	}
	return out
}

// LoadCorpusConfiguration loads the corpus configuration from a TOML file
func LoadCorpusConfiguration(path string) (*CorpusFile, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "corpus config does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var cfg CorpusFile
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("error", err.Error()))
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}
	if err := cfg.Mapping().Validate(); err != nil {
		return nil, goerr.Wrap(err, "column mapping is invalid", goerr.V(ConfigPathKey, path))
	}

	return &cfg, nil
}

// Corpus holds CLI flags locating the Q&A spreadsheets
type Corpus struct {
	configPath string
	paths      []string
	sheet      string
}

// Flags returns CLI flags for corpus configuration
func (x *Corpus) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "corpus-config",
			Usage:       "TOML file with column mapping and corpus sources",
			Category:    "Corpus",
			Sources:     cli.EnvVars("MADOGUCHI_CORPUS_CONFIG"),
			Destination: &x.configPath,
		},
		&cli.StringSliceFlag{
			Name:        "corpus",
			Aliases:     []string{"c"},
			Usage:       "Corpus file, directory or glob (xlsx, xlsm, csv, tsv); repeatable",
			Category:    "Corpus",
			Sources:     cli.EnvVars("MADOGUCHI_CORPUS"),
			Destination: &x.paths,
		},
		&cli.StringFlag{
			Name:        "corpus-sheet",
			Usage:       "Worksheet name for --corpus xlsx files (first sheet when empty)",
			Category:    "Corpus",
			Sources:     cli.EnvVars("MADOGUCHI_CORPUS_SHEET"),
			Destination: &x.sheet,
		},
	}
}

// LogValue implements slog.LogValuer
func (x Corpus) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("config", x.configPath),
		slog.Any("paths", x.paths),
		slog.String("sheet", x.sheet),
	)
}

// Configure builds the corpus loader from the config file and --corpus paths
func (x *Corpus) Configure() (*corpus.Loader, error) {
	mapping := corpus.DefaultMapping()
	var sources []corpus.Source

	if x.configPath != "" {
		cfg, err := LoadCorpusConfiguration(x.configPath)
		if err != nil {
			return nil, err
		}
		mapping = cfg.Mapping()
		sources = cfg.CorpusSources()
	}

	for _, p := range x.paths {
		sources = append(sources, corpus.Source{Path: p, Sheet: x.sheet})
	}
	if len(sources) == 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "no corpus source given; use --corpus or --corpus-config")
	}

	return corpus.New(mapping, corpus.WithSources(sources...)), nil
}
