package verifycache

import (
	"time"
)

// Mode names the verification variant that produced a result, such as a
// quick lint pass or a deep one. The cache records it for observability
// only; it plays no part in lookups or eviction.
type Mode string

// Well-known verification modes.
const (
	ModeFast Mode = "fast"
	ModeDeep Mode = "deep"
)

// Violation is a single finding reported by the verifier.
type Violation struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity,omitempty"`
}

// Result is the outcome of verifying one file. The cache never interprets
// it; it is stored, persisted and handed back unchanged.
type Result struct {
	FilePath   string      `json:"file_path"`
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations"`
	DurationMS float64     `json:"duration_ms"`
	Error      *string     `json:"error"`
}

// Duration returns the verification time as a time.Duration.
func (r Result) Duration() time.Duration {
	return time.Duration(r.DurationMS * float64(time.Millisecond))
}

// ErrorText returns the error message or an empty string.
func (r Result) ErrorText() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// clone returns a deep copy so callers cannot mutate cached state.
func (r Result) clone() Result {
	out := r
	if r.Violations != nil {
		out.Violations = make([]Violation, len(r.Violations))
		copy(out.Violations, r.Violations)
	}
	if r.Error != nil {
		msg := *r.Error
		out.Error = &msg
	}
	return out
}

// cacheEntry is the in-memory form of one cached verification.
type cacheEntry struct {
	contentHash string
	result      Result
	storedAt    time.Time
	mode        Mode
	accessCount int
}

// age reports how long ago the entry was stored.
func (e *cacheEntry) age(now time.Time) time.Duration {
	return now.Sub(e.storedAt)
}

// expired reports whether the entry is at least ttl old.
func (e *cacheEntry) expired(now time.Time, ttl time.Duration) bool {
	return e.age(now) >= ttl
}
