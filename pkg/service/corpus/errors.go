package corpus

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrInvalidMapping is returned when a column mapping cannot identify required fields
	ErrInvalidMapping = goerr.New("invalid column mapping")

	// ErrUnsupportedFormat is returned for files that are not xlsx, xlsm, csv or tsv
	ErrUnsupportedFormat = goerr.New("unsupported file format")
)
