package types

import "fmt"

// WaitPolicy decides what a query does while the index is still loading
type WaitPolicy string

const (
	WaitPolicyBlock  WaitPolicy = "block"
	WaitPolicyReject WaitPolicy = "reject"
)

// IsValid checks if the wait policy is valid
func (p WaitPolicy) IsValid() bool {
	return p == WaitPolicyBlock || p == WaitPolicyReject
}

// ParseWaitPolicy parses a string into a WaitPolicy
func ParseWaitPolicy(s string) (WaitPolicy, error) {
	p := WaitPolicy(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid wait policy: %s", s)
	}
	return p, nil
}

// FallbackPolicy decides what a query does when the embedding provider is down
type FallbackPolicy string

const (
	FallbackNone    FallbackPolicy = "none"
	FallbackKeyword FallbackPolicy = "keyword"
)

// IsValid checks if the fallback policy is valid
func (p FallbackPolicy) IsValid() bool {
	return p == FallbackNone || p == FallbackKeyword
}

// ParseFallbackPolicy parses a string into a FallbackPolicy
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	p := FallbackPolicy(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid fallback policy: %s", s)
	}
	return p, nil
}
