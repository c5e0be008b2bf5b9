package types

// IndexState is the readiness state of the search index
//
//	Uninitialized -> Loading -> Ready
//	Ready -> Rebuilding -> Ready
type IndexState string

const (
	IndexStateUninitialized IndexState = "UNINITIALIZED"
	IndexStateLoading       IndexState = "LOADING"
	IndexStateReady         IndexState = "READY"
	IndexStateRebuilding    IndexState = "REBUILDING"
)

// AllIndexStates returns all valid index states
func AllIndexStates() []IndexState {
	return []IndexState{
		IndexStateUninitialized,
		IndexStateLoading,
		IndexStateReady,
		IndexStateRebuilding,
	}
}

// IsValid checks if the index state is valid
func (s IndexState) IsValid() bool {
	switch s {
	case IndexStateUninitialized,
		IndexStateLoading,
		IndexStateReady,
		IndexStateRebuilding:
		return true
	default:
		return false
	}
}

// Serving reports whether queries can be answered from a complete index in this state.
// Rebuilding still serves the last-known-good snapshot.
func (s IndexState) Serving() bool {
	return s == IndexStateReady || s == IndexStateRebuilding
}

// String returns the string representation of the index state
func (s IndexState) String() string {
	return string(s)
}
