// Package learning persists error signatures that survived a full fix run.
// Recurring signatures are promoted into literal substitution rules and fed
// back into the fix engine between runs.
package learning

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/quellcrist/flowmend/api/schemas"
	"github.com/quellcrist/flowmend/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	patternsFile = "learned_patterns.json"
	historyFile  = "performance_history.json"

	// initialConfidence is assigned at creation and never recalculated from
	// later outcomes.
	initialConfidence = 0.8

	maxSlugLen = 50
)

var slugRe = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// Slug normalizes an error text into the store key.
func Slug(errText string) string {
	s := slugRe.ReplaceAllString(errText, "_")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	return s
}

// Store is the on-disk learned-pattern collection. Every mutation saves the
// whole file atomically (temp file + rename), so a crashed run never leaves
// a partial store behind.
type Store struct {
	mu       sync.Mutex
	log      *zap.Logger
	dataDir  string
	minFreq  int
	minConf  float64
	patterns map[string]*schemas.LearnedPattern
}

// NewStore opens (or creates) the store under cfg.DataDir.
func NewStore(cfg config.LearningConfig, log *zap.Logger) (*Store, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("learning: data dir is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("learning: creating data dir: %w", err)
	}

	s := &Store{
		log:      log,
		dataDir:  cfg.DataDir,
		minFreq:  cfg.PromoteMinFrequency,
		minConf:  cfg.PromoteMinConfidence,
		patterns: make(map[string]*schemas.LearnedPattern),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	path := filepath.Join(s.dataDir, patternsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("learning: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.patterns); err != nil {
		return fmt.Errorf("learning: decoding %s: %w", path, err)
	}
	s.log.Debug("learned patterns loaded", zap.Int("count", len(s.patterns)))
	return nil
}

// save writes the whole pattern map. Callers hold s.mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.patterns, "", "  ")
	if err != nil {
		return fmt.Errorf("learning: encoding patterns: %w", err)
	}
	path := filepath.Join(s.dataDir, patternsFile)
	tmp, err := os.CreateTemp(s.dataDir, patternsFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("learning: creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("learning: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("learning: closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("learning: replacing %s: %w", path, err)
	}
	return nil
}

// Record stores one unresolved error. New signatures start at frequency 1
// with the fixed initial confidence; repeats bump frequency and last-seen.
func (s *Store) Record(errText, fixSuggestion, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Slug(errText)
	now := time.Now().UTC()
	if p, ok := s.patterns[key]; ok {
		p.Frequency++
		p.LastSeen = now
	} else {
		s.patterns[key] = &schemas.LearnedPattern{
			ErrorText:     errText,
			FixSuggestion: fixSuggestion,
			Frequency:     1,
			FirstSeen:     now,
			LastSeen:      now,
			Confidence:    initialConfidence,
			Category:      category,
			PatternType:   "auto-discovered",
		}
	}
	return s.save()
}

// Promote returns the substitution rules synthesized from patterns that
// cleared the frequency and confidence bars. Patterns whose suggestion text
// is not a literal replacement are left out.
func (s *Store) Promote() []schemas.LearnedRule {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.patterns))
	for k := range s.patterns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rules []schemas.LearnedRule
	for _, k := range keys {
		p := s.patterns[k]
		if p.Frequency < s.minFreq || p.Confidence < s.minConf {
			continue
		}
		old, new, ok := ParseRule(p.FixSuggestion)
		if !ok {
			continue
		}
		rules = append(rules, schemas.LearnedRule{Name: Slug(old), Old: old, New: new})
	}
	s.log.Debug("promoted learned rules", zap.Int("count", len(rules)))
	return rules
}

// Patterns returns a snapshot sorted by frequency, highest first.
func (s *Store) Patterns() []schemas.LearnedPattern {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]schemas.LearnedPattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].ErrorText < out[j].ErrorText
	})
	return out
}

// AppendRun appends one run record to the history log, one JSON document
// per line.
func (s *Store) AppendRun(rec schemas.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("learning: encoding run record: %w", err)
	}
	path := filepath.Join(s.dataDir, historyFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("learning: opening %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("learning: appending run record: %w", err)
	}
	return nil
}

// ParseRule extracts a literal substitution from canonical suggestion text
// of the form "Replace '<old>' with '<new>'".
func ParseRule(suggestion string) (old, new string, ok bool) {
	const (
		prefix = "Replace '"
		middle = "' with '"
	)
	if !strings.HasPrefix(suggestion, prefix) || !strings.HasSuffix(suggestion, "'") {
		return "", "", false
	}
	rest := strings.TrimPrefix(suggestion, prefix)
	mid := strings.Index(rest, middle)
	if mid < 0 {
		return "", "", false
	}
	old = rest[:mid]
	new = strings.TrimSuffix(rest[mid+len(middle):], "'")
	if old == "" || new == "" || old == new {
		return "", "", false
	}
	return old, new, true
}
