// Package schemas defines the shared data model for the flowmend engine:
// detection patterns, detected errors, fix attempts and the aggregate fix
// report. These types cross package boundaries and are kept free of any
// behavior beyond simple derivations so every component can depend on them
// without import cycles.
package schemas

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// PatternCategory classifies what kind of authoring mistake a pattern detects.
type PatternCategory string

const (
	CategorySyntax        PatternCategory = "syntax"
	CategoryDependency    PatternCategory = "dependency"
	CategoryConfiguration PatternCategory = "configuration"
	CategorySecurity      PatternCategory = "security"
	CategoryPerformance   PatternCategory = "performance"
	CategoryCompatibility PatternCategory = "compatibility"
)

// Severity ranks how damaging an unfixed error is to the workflow.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Pattern is a single, immutable detection rule. Matchers are compiled once
// at registry construction with case-insensitive, multiline semantics and
// must be stateless: applying one pattern never depends on another pattern's
// result within the same pass.
type Pattern struct {
	// Name is the unique key used for fix dispatch and allowlists.
	Name string `json:"name"`
	// Matcher locates instances of the mistake in the raw buffer.
	Matcher *regexp.Regexp `json:"-"`
	// Expr is the source expression of Matcher, kept for reporting.
	Expr string `json:"expr"`

	Category    PatternCategory `json:"category"`
	Severity    Severity        `json:"severity"`
	Description string          `json:"description"`
	// FixSuggestion is the static suggestion text used when no generated
	// suggestion function is registered for the pattern.
	FixSuggestion string `json:"fix_suggestion"`
	// Confidence is the base confidence in [0,1] before contextual scoring.
	Confidence  float64 `json:"confidence"`
	AutoFixable bool    `json:"auto_fixable"`
}

// DetectedError is one concrete match of a Pattern in a buffer. Instances
// live for a single detection pass; the only state carried between passes is
// the buffer itself.
type DetectedError struct {
	Pattern *Pattern `json:"pattern"`
	// Match is the exact matched text.
	Match string `json:"match"`
	// Line is the 1-based line number of the match start.
	Line int `json:"line"`
	// Context is a window of two lines before through two lines after the
	// matched line, clipped at buffer bounds.
	Context string `json:"context"`
	// SuggestedFix is the generator's computed replacement suggestion.
	SuggestedFix string `json:"suggested_fix"`
}

// ConfidenceTier buckets a continuous confidence score. Tiers are ordered;
// lower ordinal means higher confidence.
type ConfidenceTier int

const (
	TierVeryHigh ConfidenceTier = iota
	TierHigh
	TierMedium
	TierLow
	TierVeryLow
)

// String returns the wire form of the tier.
func (t ConfidenceTier) String() string {
	switch t {
	case TierVeryHigh:
		return "very_high"
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	default:
		return "very_low"
	}
}

// AtLeast reports whether t is at or above the bar set by min, i.e. whether
// an error scored at tier t should be attempted when min is the configured
// minimum confidence.
func (t ConfidenceTier) AtLeast(min ConfidenceTier) bool {
	return t <= min
}

// TierFromScore maps a clamped confidence score to its discrete tier.
func TierFromScore(score float64) ConfidenceTier {
	switch {
	case score >= 0.90:
		return TierVeryHigh
	case score >= 0.75:
		return TierHigh
	case score >= 0.60:
		return TierMedium
	case score >= 0.40:
		return TierLow
	default:
		return TierVeryLow
	}
}

// ParseTier converts the wire form back into a tier. Unknown values map to
// TierVeryHigh: used as a configured minimum, that admits the fewest fixes,
// so a mistyped tier never opens the gate wider than intended.
func ParseTier(s string) ConfidenceTier {
	switch s {
	case "very_high":
		return TierVeryHigh
	case "high":
		return TierHigh
	case "medium":
		return TierMedium
	case "low":
		return TierLow
	case "very_low":
		return TierVeryLow
	default:
		return TierVeryHigh
	}
}

// FixStatus is the outcome of one fix attempt.
type FixStatus string

const (
	FixSuccess       FixStatus = "success"
	FixFailed        FixStatus = "failed"
	FixSkipped       FixStatus = "skipped"
	FixNeedsApproval FixStatus = "needs_approval"
)

// FixAttempt records the outcome of trying to resolve one DetectedError
// during one pass of the engine.
type FixAttempt struct {
	Error            DetectedError  `json:"error"`
	OriginalContent  string         `json:"-"`
	FixedContent     string         `json:"-"`
	Description      string         `json:"description"`
	Confidence       ConfidenceTier `json:"confidence"`
	Status           FixStatus      `json:"status"`
	Pass             int            `json:"pass"`
	BackupCreated    bool           `json:"backup_created"`
	ValidationPassed bool           `json:"validation_passed"`
}

// FixReport aggregates the result of a full fix run.
type FixReport struct {
	ReportID      string    `json:"report_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	TotalErrors   int       `json:"total_errors"`
	FixedErrors   int       `json:"fixed_errors"`
	SkippedErrors int       `json:"skipped_errors"`
	FailedFixes   int       `json:"failed_fixes"`
	// ConfidenceDistribution is a histogram keyed by tier wire form.
	ConfidenceDistribution map[string]int `json:"confidence_distribution"`
	Attempts               []FixAttempt   `json:"attempts"`
	// Passes is how many passes the engine ran before halting.
	Passes int `json:"passes"`
	// Converged is false when the pass ceiling was hit while fixes were
	// still being produced. That is not an error; leftovers are reported.
	Converged  bool              `json:"converged"`
	Validation *ValidationResult `json:"validation,omitempty"`
	// FinalContent is the corrected buffer.
	FinalContent string `json:"-"`
}

// NewFixReport creates an empty report with a fresh identifier.
func NewFixReport() *FixReport {
	return &FixReport{
		ReportID:               uuid.New().String(),
		GeneratedAt:            time.Now(),
		ConfidenceDistribution: make(map[string]int),
	}
}

// Tally recomputes the aggregate counters from the attempt list. Skipped
// attempts are only recorded once per error, so the totals reflect distinct
// errors rather than per-pass re-detections.
func (r *FixReport) Tally() {
	r.TotalErrors = len(r.Attempts)
	r.FixedErrors = 0
	r.SkippedErrors = 0
	r.FailedFixes = 0
	r.ConfidenceDistribution = make(map[string]int)
	for _, a := range r.Attempts {
		r.ConfidenceDistribution[a.Confidence.String()]++
		switch a.Status {
		case FixSuccess:
			r.FixedErrors++
		case FixSkipped, FixNeedsApproval:
			r.SkippedErrors++
		case FixFailed:
			r.FailedFixes++
		}
	}
}
