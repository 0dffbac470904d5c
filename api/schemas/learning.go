package schemas

import "time"

// LearnedPattern is a persisted record of an error signature that survived a
// full fix run unresolved. Frequency and last-seen are bumped on repeat
// sightings; records are never deleted. Confidence is fixed at creation and
// is not updated from later fix outcomes.
type LearnedPattern struct {
	ErrorText     string    `json:"error_text"`
	FixSuggestion string    `json:"fix_suggestion"`
	Frequency     int       `json:"frequency"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	Confidence    float64   `json:"confidence"`
	Category      string    `json:"category"`
	PatternType   string    `json:"pattern_type"`
}

// LearnedRule is a literal old/new substitution synthesized from a promoted
// LearnedPattern. Rules are appended to the engine's fix-function list for
// subsequent runs, never mid-loop.
type LearnedRule struct {
	Name string `json:"name"`
	Old  string `json:"old"`
	New  string `json:"new"`
}

// RunRecord is one entry in the append-only run-history log.
type RunRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	FilePath    string    `json:"file_path"`
	TotalErrors int       `json:"total_errors"`
	FixedErrors int       `json:"fixed_errors"`
	Passes      int       `json:"passes"`
	Converged   bool      `json:"converged"`
	NewPatterns int       `json:"new_patterns"`
}
