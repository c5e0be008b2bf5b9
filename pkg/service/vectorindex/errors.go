package vectorindex

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrDimensionMismatch is returned when vectors of one index differ in length
	ErrDimensionMismatch = goerr.New("vector dimension mismatch")

	// ErrProtocol is returned for persisted indexes written with another format or metric
	ErrProtocol = goerr.New("index protocol error")

	// ErrNotFound is returned when no persisted index exists
	ErrNotFound = goerr.New("index not found")

	// ErrDuplicateID is returned when two entries share a record id
	ErrDuplicateID = goerr.New("duplicate entry id")
)
