package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/utils/safe"
	"github.com/xuri/excelize/v2"
)

// table is a sheet as read from disk; rows[0] is the header
type table struct {
	rows [][]string
}

func formatOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

func supported(path string) bool {
	switch formatOf(path) {
	case "xlsx", "xlsm", "csv", "tsv":
		return true
	default:
		return false
	}
}

func readTable(ctx context.Context, path, sheet string) (*table, error) {
	switch formatOf(path) {
	case "xlsx", "xlsm":
		return readWorkbook(ctx, path, sheet)
	case "csv":
		return readDelimited(ctx, path, ',')
	case "tsv":
		return readDelimited(ctx, path, '\t')
	default:
		return nil, goerr.Wrap(ErrUnsupportedFormat, "unknown extension", goerr.V("path", path))
	}
}

func readWorkbook(ctx context.Context, path, sheet string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open workbook", goerr.V("path", path))
	}
	defer safe.Close(ctx, f)

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, goerr.New("workbook has no sheet", goerr.V("path", path))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read sheet", goerr.V("path", path), goerr.V("sheet", sheet))
	}
	return &table{rows: rows}, nil
}

func readDelimited(ctx context.Context, path string, comma rune) (*table, error) {
	// #nosec G304 - path comes from operator configuration
	fd, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open file", goerr.V("path", path))
	}
	defer safe.Close(ctx, fd)

	r := csv.NewReader(fd)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse delimited file", goerr.V("path", path), goerr.V("line", len(rows)+1))
		}
		rows = append(rows, row)
	}
	return &table{rows: rows}, nil
}
