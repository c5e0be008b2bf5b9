package corpus

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/secmon-lab/madoguchi/pkg/domain/types"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
)

// Loader reads spreadsheet sources into QARecords
type Loader struct {
	mapping *Mapping
	sources []Source
}

// Option configures a Loader
type Option func(*Loader)

// WithSources sets the sources read by Load
func WithSources(sources ...Source) Option {
	return func(l *Loader) {
		l.sources = append(l.sources, sources...)
	}
}

// New creates a Loader. A nil mapping means DefaultMapping.
func New(mapping *Mapping, opts ...Option) *Loader {
	if mapping == nil {
		mapping = DefaultMapping()
	}
	l := &Loader{mapping: mapping}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Sources returns the configured sources
func (l *Loader) Sources() []Source {
	return l.sources
}

// Load reads the configured sources
func (l *Loader) Load(ctx context.Context) (*model.Corpus, error) {
	records, loadErrors := l.LoadCorpus(ctx, l.sources)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &model.Corpus{Records: records, Errors: loadErrors}, nil
}

// LoadCorpus reads every file matched by sources. Records keep file order, then row order.
// Bad rows and bad files are reported as LoadErrors and skipped; LoadCorpus itself never fails.
func (l *Loader) LoadCorpus(ctx context.Context, sources []Source) ([]*model.QARecord, []*model.LoadError) {
	var (
		records    []*model.QARecord
		loadErrors []*model.LoadError
	)
	seenIDs := make(map[model.RecordID]string)
	seenFiles := make(map[string]struct{})

	for _, src := range sources {
		paths, err := expand(src.Path)
		if err != nil {
			loadErrors = append(loadErrors, fileError(types.LoadErrorUnreadable, src.Path, err.Error()))
			continue
		}
		if len(paths) == 0 {
			loadErrors = append(loadErrors, fileError(types.LoadErrorUnreadable, src.Path, "no file matched"))
			continue
		}

		for _, path := range paths {
			if ctx.Err() != nil {
				return records, loadErrors
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			if _, ok := seenFiles[abs]; ok {
				continue
			}
			seenFiles[abs] = struct{}{}

			fileRecords, fileErrors := l.loadFile(ctx, path, src)
			loadErrors = append(loadErrors, fileErrors...)

			for _, r := range fileRecords {
				if prev, ok := seenIDs[r.ID]; ok {
					loadErrors = append(loadErrors, &model.LoadError{
						Kind:    types.LoadErrorDuplicateID,
						Source:  path,
						Row:     r.Row,
						Message: "record id " + r.ID.String() + " already loaded from " + prev,
					})
					continue
				}
				seenIDs[r.ID] = path
				records = append(records, r)
			}
		}
	}

	logger := logging.From(ctx)
	for _, e := range loadErrors {
		logger.Warn("corpus load error",
			"kind", e.Kind,
			"source", e.Source,
			"row", e.Row,
			"message", e.Message,
		)
	}
	logger.Info("corpus loaded",
		"records", len(records),
		"errors", len(loadErrors),
		"sources", len(sources),
	)

	return records, loadErrors
}

func (l *Loader) loadFile(ctx context.Context, path string, src Source) ([]*model.QARecord, []*model.LoadError) {
	if !supported(path) {
		return nil, []*model.LoadError{fileError(types.LoadErrorUnsupportedFormat, path, "extension "+filepath.Ext(path)+" is not supported")}
	}

	tbl, err := readTable(ctx, path, src.Sheet)
	if err != nil {
		return nil, []*model.LoadError{fileError(types.LoadErrorUnreadable, path, err.Error())}
	}
	if len(tbl.rows) == 0 {
		return nil, []*model.LoadError{fileError(types.LoadErrorMissingColumn, path, "file has no header row")}
	}

	positions := l.mapping.resolveColumns(tbl.rows[0])
	var loadErrors []*model.LoadError
	for _, field := range types.AllLogicalFields() {
		if _, ok := positions[field]; !ok && field.Required() {
			loadErrors = append(loadErrors, &model.LoadError{
				Kind:    types.LoadErrorMissingColumn,
				Source:  path,
				Row:     -1,
				Column:  field.String(),
				Message: field.String() + " column not found, accepted headers: " + strings.Join(l.mapping.Columns.Aliases(field), ", "),
			})
		}
	}
	if len(loadErrors) > 0 {
		return nil, loadErrors
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	categoryPos, hasCategory := positions[types.FieldCategory]

	var records []*model.QARecord
	for row, cells := range tbl.rows[1:] {
		question := strings.TrimSpace(cell(cells, positions[types.FieldQuestion]))
		answer := strings.TrimSpace(cell(cells, positions[types.FieldAnswer]))

		var empty []string
		if question == "" {
			empty = append(empty, types.FieldQuestion.String())
		}
		if answer == "" {
			empty = append(empty, types.FieldAnswer.String())
		}
		if len(empty) > 0 {
			loadErrors = append(loadErrors, &model.LoadError{
				Kind:    types.LoadErrorEmptyField,
				Source:  path,
				Row:     row,
				Column:  strings.Join(empty, ","),
				Message: strings.Join(empty, " and ") + " empty after trimming",
			})
			continue
		}

		var category string
		if hasCategory {
			category = strings.TrimSpace(cell(cells, categoryPos))
		}

		records = append(records, &model.QARecord{
			ID:       model.NewRecordID(stem, row),
			Question: question,
			Answer:   answer,
			Category: l.category(category, src, stem),
			Source:   stem,
			Row:      row,
		})
	}

	return records, loadErrors
}

func (l *Loader) category(value string, src Source, stem string) string {
	switch {
	case value != "":
		return value
	case src.Category != "":
		return src.Category
	case l.mapping.CategoryFromSource:
		return stem
	case l.mapping.DefaultCategory != "":
		return l.mapping.DefaultCategory
	default:
		return model.DefaultCategory
	}
}

func cell(cells []string, pos int) string {
	if pos < 0 || pos >= len(cells) {
		return ""
	}
	return cells[pos]
}

func fileError(kind types.LoadErrorKind, path, msg string) *model.LoadError {
	return &model.LoadError{Kind: kind, Source: path, Row: -1, Message: msg}
}

// expand resolves a glob pattern or a directory into files; a plain path is returned as is
func expand(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[") {
		info, err := os.Stat(pattern)
		if err != nil || !info.IsDir() {
			return []string{pattern}, nil
		}
		entries, err := os.ReadDir(pattern)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, e := range entries {
			if !e.IsDir() && supported(e.Name()) && !strings.HasPrefix(e.Name(), "~$") {
				files = append(files, filepath.Join(pattern, e.Name()))
			}
		}
		sort.Strings(files)
		return files, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
