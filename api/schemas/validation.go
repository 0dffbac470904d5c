package schemas

// ValidationResult is the outcome of a semantic validation pass over a
// workflow buffer. Errors are hard structural problems; warnings and
// suggestions are advisory only and never block a fix round.
type ValidationResult struct {
	IsValid     bool     `json:"is_valid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
	// SeverityScore is an aggregate badness metric in [0,100]:
	// min(100, 20*errors + 5*warnings).
	SeverityScore int `json:"severity_score"`
	// ProperPermissions reports that a top-level permissions block exists
	// and is not the blanket write-all grant.
	ProperPermissions bool `json:"proper_permissions"`
	// CriticalErrors counts errors attributed to critical severity, used
	// by the per-attempt acceptance gate.
	CriticalErrors int `json:"critical_errors"`
}

// Score computes the severity score from the current error and warning
// counts and stores it on the result.
func (v *ValidationResult) Score() {
	s := 20*len(v.Errors) + 5*len(v.Warnings)
	if s > 100 {
		s = 100
	}
	v.SeverityScore = s
	v.IsValid = len(v.Errors) == 0
}
