package types

// LoadErrorKind classifies a recoverable problem found while loading the corpus
type LoadErrorKind string

const (
	// LoadErrorEmptyField: question or answer is empty after trimming; the row is skipped
	LoadErrorEmptyField LoadErrorKind = "EMPTY_FIELD"
	// LoadErrorMissingColumn: a required column is absent; the whole file is skipped
	LoadErrorMissingColumn LoadErrorKind = "MISSING_COLUMN"
	// LoadErrorUnreadable: the file could not be opened or parsed; the whole file is skipped
	LoadErrorUnreadable LoadErrorKind = "UNREADABLE"
	// LoadErrorUnsupportedFormat: the file extension is not a known tabular format
	LoadErrorUnsupportedFormat LoadErrorKind = "UNSUPPORTED_FORMAT"
	// LoadErrorDuplicateID: a record id was already produced by an earlier file
	LoadErrorDuplicateID LoadErrorKind = "DUPLICATE_ID"
)

// FileLevel reports whether the kind drops a whole file rather than a single row
func (k LoadErrorKind) FileLevel() bool {
	switch k {
	case LoadErrorMissingColumn, LoadErrorUnreadable, LoadErrorUnsupportedFormat:
		return true
	default:
		return false
	}
}

// String returns the string representation of the load error kind
func (k LoadErrorKind) String() string {
	return string(k)
}
