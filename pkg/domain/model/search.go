package model

import (
	"time"

	"github.com/secmon-lab/madoguchi/pkg/domain/types"
)

// SearchMode tells how a result set was produced
type SearchMode string

const (
	SearchModeVector  SearchMode = "vector"
	SearchModeKeyword SearchMode = "keyword"
)

// SearchResult is one ranked candidate answer.
// Score is in [0,1], higher is more similar.
type SearchResult struct {
	ID       RecordID
	Question string
	Answer   string
	Category string
	Score    float64
}

// SearchResponse is the outcome of one Search call
type SearchResponse struct {
	Query   string
	Mode    SearchMode
	Results []SearchResult
}

// IndexStats summarizes the index currently in service
type IndexStats struct {
	State         types.IndexState
	EverReady     bool
	Records       int
	ModelID       string
	Dimension     int
	Metric        string
	Fingerprint   string
	BuiltAt       time.Time
	LoadErrors    int
	LastRefreshAt time.Time
	LastError     string
}
