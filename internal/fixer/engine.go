// Package fixer is the fix engine: confidence scoring, per-pattern fix
// generation and the multi-pass fixed-point loop that decides when a buffer
// is done. One Engine fixes one buffer at a time; the only state carried
// between runs is the learned-rule list, installed between runs by the
// caller.
package fixer

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/quellcrist/flowmend/api/schemas"
	"github.com/quellcrist/flowmend/internal/config"
	"github.com/quellcrist/flowmend/internal/detector"
	"github.com/quellcrist/flowmend/internal/registry"
	"github.com/quellcrist/flowmend/internal/validator"
)

// categoryOrder fixes the order fix functions run within a pass. Syntax
// repairs go first so later structural checks see a parseable buffer.
var categoryOrder = []schemas.PatternCategory{
	schemas.CategorySyntax,
	schemas.CategoryDependency,
	schemas.CategoryConfiguration,
	schemas.CategorySecurity,
	schemas.CategoryPerformance,
	schemas.CategoryCompatibility,
}

// LeftoverRecorder receives errors that survived a full fix run. The
// learning store implements it; a nil recorder disables the feedback loop.
type LeftoverRecorder interface {
	Record(errText, fixSuggestion, category string) error
}

// fixFunc is one registered fix function. run returns the (possibly
// unchanged) buffer after attempting every error the function is
// responsible for.
type fixFunc struct {
	name string
	run  func(current string, pass int, rep *schemas.FixReport, seen map[string]bool) string
}

// Engine applies fixes until a pass changes nothing or the pass ceiling is
// hit.
type Engine struct {
	cfg      config.FixerConfig
	log      *zap.Logger
	val      *validator.Validator
	minTier  schemas.ConfidenceTier
	funcs    []fixFunc
	recorder LeftoverRecorder
}

// New constructs an Engine. The validator is required; it is the acceptance
// gate for every individual fix.
func New(cfg config.FixerConfig, val *validator.Validator, log *zap.Logger) (*Engine, error) {
	if val == nil {
		return nil, fmt.Errorf("fixer: validator is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxPasses <= 0 {
		return nil, fmt.Errorf("fixer: max passes must be positive, got %d", cfg.MaxPasses)
	}
	if cfg.MaxResidualErrors <= 0 {
		return nil, fmt.Errorf("fixer: max residual errors must be positive, got %d", cfg.MaxResidualErrors)
	}
	e := &Engine{
		cfg:     cfg,
		log:     log,
		val:     val,
		minTier: schemas.ParseTier(cfg.MinConfidence),
	}
	for _, cat := range categoryOrder {
		e.funcs = append(e.funcs, e.categoryFix(cat))
	}
	return e, nil
}

// SetRecorder installs the leftover-error sink.
func (e *Engine) SetRecorder(r LeftoverRecorder) { e.recorder = r }

// SetLearnedRules appends promoted substitution rules to the fix-function
// list. Must only be called between runs, never while Fix is in flight.
func (e *Engine) SetLearnedRules(rules []schemas.LearnedRule) {
	e.funcs = e.funcs[:len(categoryOrder)]
	for _, r := range rules {
		e.funcs = append(e.funcs, e.learnedFix(r))
	}
}

// Fix runs the multi-pass loop over the buffer and returns the aggregate
// report. Non-convergence at the pass ceiling is reported, never an error.
func (e *Engine) Fix(content string) *schemas.FixReport {
	rep := schemas.NewFixReport()
	current := content
	seen := make(map[string]bool)

	for pass := 1; pass <= e.cfg.MaxPasses; pass++ {
		rep.Passes = pass
		passFixes := 0
		for _, fn := range e.funcs {
			before := current
			current = e.safeRun(fn, current, pass, rep, seen)
			if current != before {
				passFixes++
			}
		}
		e.log.Debug("pass complete",
			zap.Int("pass", pass),
			zap.Int("changed_functions", passFixes))
		if passFixes == 0 {
			rep.Converged = true
			break
		}
	}

	current = cleanup(current)
	rep.FinalContent = current
	rep.Validation = e.val.Validate(current)
	rep.Tally()

	e.recordLeftovers(current)

	e.log.Info("fix run finished",
		zap.String("report_id", rep.ReportID),
		zap.Int("passes", rep.Passes),
		zap.Bool("converged", rep.Converged),
		zap.Int("fixed", rep.FixedErrors),
		zap.Int("skipped", rep.SkippedErrors),
		zap.Int("failed", rep.FailedFixes))
	return rep
}

// safeRun shields the loop from a panicking fix function: the buffer is
// rolled back and the panic becomes a failed attempt.
func (e *Engine) safeRun(fn fixFunc, current string, pass int, rep *schemas.FixReport, seen map[string]bool) (out string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("fix function panicked",
				zap.String("function", fn.name),
				zap.Any("panic", r))
			rep.Attempts = append(rep.Attempts, schemas.FixAttempt{
				Error:       schemas.DetectedError{Pattern: &schemas.Pattern{Name: fn.name}},
				Description: fmt.Sprintf("fix function %s panicked: %v", fn.name, r),
				Status:      schemas.FixFailed,
				Pass:        pass,
			})
			out = current
		}
	}()
	return fn.run(current, pass, rep, seen)
}

// categoryFix builds the fix function for one pattern category. Each run
// re-detects against the live buffer, so stale matches from earlier fixes in
// the same pass simply vanish.
func (e *Engine) categoryFix(cat schemas.PatternCategory) fixFunc {
	var pats []*schemas.Pattern
	for _, p := range registry.Patterns() {
		if p.Category == cat {
			pats = append(pats, p)
		}
	}
	det := detector.NewWithPatterns(e.log, pats)

	return fixFunc{
		name: "fix_" + string(cat) + "_errors",
		run: func(current string, pass int, rep *schemas.FixReport, seen map[string]bool) string {
			for _, de := range det.Detect(current) {
				tier := Score(de)
				skipKey := fmt.Sprintf("%s|%d|%s", de.Pattern.Name, de.Line, de.Match)

				if !de.Pattern.AutoFixable {
					if !seen[skipKey] {
						seen[skipKey] = true
						rep.Attempts = append(rep.Attempts, attempt(de, tier, pass, schemas.FixNeedsApproval,
							"not auto-fixable; "+de.SuggestedFix))
					}
					continue
				}
				if !tier.AtLeast(e.minTier) {
					if !seen[skipKey] {
						seen[skipKey] = true
						rep.Attempts = append(rep.Attempts, attempt(de, tier, pass, schemas.FixSkipped,
							fmt.Sprintf("confidence %s below configured minimum", tier)))
					}
					continue
				}

				candidate, err := Generate(de, current)
				if err != nil {
					rep.Attempts = append(rep.Attempts, attempt(de, tier, pass, schemas.FixFailed, err.Error()))
					continue
				}
				if candidate == current {
					continue // stale or already repaired; nothing to record
				}

				res := e.val.Validate(candidate)
				if res.CriticalErrors == 0 && len(res.Errors) < e.cfg.MaxResidualErrors {
					a := attempt(de, tier, pass, schemas.FixSuccess, de.SuggestedFix)
					a.OriginalContent = current
					a.FixedContent = candidate
					a.ValidationPassed = true
					rep.Attempts = append(rep.Attempts, a)
					current = candidate
				} else {
					rep.Attempts = append(rep.Attempts, attempt(de, tier, pass, schemas.FixFailed,
						fmt.Sprintf("rejected by validation gate: %d errors, %d critical", len(res.Errors), res.CriticalErrors)))
				}
			}
			return current
		},
	}
}

// learnedFix wraps a promoted substitution rule as a fix function. The rule
// applies everywhere at once; the same acceptance gate applies.
func (e *Engine) learnedFix(rule schemas.LearnedRule) fixFunc {
	pattern := &schemas.Pattern{
		Name:        "learned_" + rule.Name,
		Category:    schemas.CategoryConfiguration,
		Description: fmt.Sprintf("learned substitution %q -> %q", rule.Old, rule.New),
		Confidence:  0.8,
		AutoFixable: true,
	}
	return fixFunc{
		name: "fix_learned_" + rule.Name,
		run: func(current string, pass int, rep *schemas.FixReport, _ map[string]bool) string {
			if rule.Old == "" || rule.Old == rule.New || !strings.Contains(current, rule.Old) {
				return current
			}
			// A buffer that already carries the replacement is treated as
			// fixed. Without this, rules whose old text is a substring of
			// the new text (ubuntu-lat -> ubuntu-latest, bare action ->
			// pinned action) reapply on every pass and stack suffixes onto
			// corrected buffers.
			if strings.Contains(current, rule.New) {
				return current
			}
			de := schemas.DetectedError{
				Pattern:      pattern,
				Match:        rule.Old,
				SuggestedFix: fmt.Sprintf("Replace '%s' with '%s'", rule.Old, rule.New),
			}
			candidate := strings.ReplaceAll(current, rule.Old, rule.New)
			res := e.val.Validate(candidate)
			if res.CriticalErrors == 0 && len(res.Errors) < e.cfg.MaxResidualErrors {
				a := attempt(de, schemas.TierHigh, pass, schemas.FixSuccess, de.SuggestedFix)
				a.OriginalContent = current
				a.FixedContent = candidate
				a.ValidationPassed = true
				rep.Attempts = append(rep.Attempts, a)
				return candidate
			}
			rep.Attempts = append(rep.Attempts, attempt(de, schemas.TierHigh, pass, schemas.FixFailed,
				fmt.Sprintf("rejected by validation gate: %d errors, %d critical", len(res.Errors), res.CriticalErrors)))
			return current
		},
	}
}

// recordLeftovers feeds errors still present in the final buffer into the
// learning store.
func (e *Engine) recordLeftovers(final string) {
	if e.recorder == nil {
		return
	}
	det := detector.New(e.log)
	for _, de := range det.Detect(final) {
		errText := fmt.Sprintf("%s:%s", de.Pattern.Name, de.Match)
		if err := e.recorder.Record(errText, de.SuggestedFix, string(de.Pattern.Category)); err != nil {
			e.log.Warn("failed to record leftover error",
				zap.String("pattern", de.Pattern.Name),
				zap.Error(err))
		}
	}
}

func attempt(de schemas.DetectedError, tier schemas.ConfidenceTier, pass int, status schemas.FixStatus, desc string) schemas.FixAttempt {
	return schemas.FixAttempt{
		Error:       de,
		Description: desc,
		Confidence:  tier,
		Status:      status,
		Pass:        pass,
	}
}

// cleanup normalizes blank-line formatting after the loop exits: lines of
// pure whitespace become empty and the buffer ends with exactly one
// newline. No semantic changes.
func cleanup(content string) string {
	if content == "" {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
		}
	}
	out := strings.Join(lines, "\n")
	out = strings.TrimRight(out, "\n") + "\n"
	return out
}
