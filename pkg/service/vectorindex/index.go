package vectorindex

import (
	"cmp"
	"slices"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
)

// FormatVersion is bumped whenever the persisted layout changes
const FormatVersion = 1

// Entry is one indexed record with its question vector
type Entry struct {
	ID       model.RecordID `json:"id"`
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Category string         `json:"category"`
	Vector   []float32      `json:"-"`
}

// Manifest describes a built index
type Manifest struct {
	FormatVersion int       `json:"format_version"`
	Metric        string    `json:"metric"`
	ModelID       string    `json:"model_id"`
	Dim           int       `json:"dim"`
	Count         int       `json:"count"`
	Fingerprint   string    `json:"fingerprint"`
	BuiltAt       time.Time `json:"built_at"`
}

// Fresh reports whether an index with this manifest can serve a corpus with
// the given fingerprint and record count using modelID.
func (m Manifest) Fresh(fingerprint string, count int, modelID string) bool {
	return m.FormatVersion == FormatVersion &&
		m.Metric == MetricCosine01 &&
		m.Fingerprint == fingerprint &&
		m.Count == count &&
		m.ModelID == modelID
}

// Meta is the caller-provided part of a Manifest
type Meta struct {
	ModelID     string
	Fingerprint string
	BuiltAt     time.Time
}

// Hit is a query result
type Hit struct {
	Entry *Entry
	Score float64
}

// Index is an immutable set of entries. It is safe for concurrent queries.
type Index struct {
	manifest Manifest
	entries  []Entry
	byID     map[model.RecordID]int
	byText   map[string]int
}

// Build creates an index from entries. Vectors are copied and normalized.
// All vectors must have the same non-zero length.
func Build(entries []Entry, meta Meta) (*Index, error) {
	normalized := make([]Entry, len(entries))
	for i, e := range entries {
		e.Vector = NormalizeL2(e.Vector)
		normalized[i] = e
	}

	builtAt := meta.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now().UTC()
	}
	manifest := Manifest{
		FormatVersion: FormatVersion,
		Metric:        MetricCosine01,
		ModelID:       meta.ModelID,
		Count:         len(entries),
		Fingerprint:   meta.Fingerprint,
		BuiltAt:       builtAt,
	}
	if len(entries) > 0 {
		manifest.Dim = len(entries[0].Vector)
	}
	return assemble(manifest, normalized)
}

// assemble checks entries against manifest and indexes them. Vectors are used as given.
func assemble(manifest Manifest, entries []Entry) (*Index, error) {
	idx := &Index{
		manifest: manifest,
		entries:  entries,
		byID:     make(map[model.RecordID]int, len(entries)),
		byText:   make(map[string]int, len(entries)),
	}

	for i, e := range entries {
		if len(e.Vector) == 0 || len(e.Vector) != manifest.Dim {
			return nil, goerr.Wrap(ErrDimensionMismatch, "inconsistent vector length",
				goerr.V("id", e.ID), goerr.V("expected", manifest.Dim), goerr.V("actual", len(e.Vector)))
		}
		if _, ok := idx.byID[e.ID]; ok {
			return nil, goerr.Wrap(ErrDuplicateID, "entry id appears twice", goerr.V("id", e.ID))
		}
		idx.byID[e.ID] = i
		if _, ok := idx.byText[e.Question]; !ok {
			idx.byText[e.Question] = i
		}
	}
	return idx, nil
}

// Manifest returns the index metadata
func (x *Index) Manifest() Manifest {
	return x.manifest
}

// Len returns the number of entries
func (x *Index) Len() int {
	return len(x.entries)
}

// Get returns the entry with id
func (x *Index) Get(id model.RecordID) (*Entry, bool) {
	i, ok := x.byID[id]
	if !ok {
		return nil, false
	}
	return &x.entries[i], true
}

// Entries returns entries in build order. The slice must not be modified.
func (x *Index) Entries() []Entry {
	return x.entries
}

// VectorFor returns the stored vector of an entry whose question equals text
func (x *Index) VectorFor(text string) ([]float32, bool) {
	i, ok := x.byText[text]
	if !ok {
		return nil, false
	}
	return x.entries[i].Vector, true
}

// Query returns up to k entries closest to vector, by descending score then
// ascending id. k is clamped to [0, Len()]; an empty index yields no hits.
func (x *Index) Query(vector []float32, k int) ([]Hit, error) {
	if k <= 0 || len(x.entries) == 0 {
		return []Hit{}, nil
	}
	if len(vector) != x.manifest.Dim {
		return nil, goerr.Wrap(ErrDimensionMismatch, "query vector length differs from index",
			goerr.V("expected", x.manifest.Dim), goerr.V("actual", len(vector)))
	}
	k = min(k, len(x.entries))

	probe := NormalizeL2(vector)
	hits := make([]Hit, len(x.entries))
	for i := range x.entries {
		hits[i] = Hit{
			Entry: &x.entries[i],
			Score: Score01(dot(probe, x.entries[i].Vector)),
		}
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Entry.ID, b.Entry.ID)
	})
	return hits[:k], nil
}
