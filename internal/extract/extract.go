// Package extract maps free-text answers to typed profile values.
package extract

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ashureev/wellness-labs/internal/domain"
	"github.com/ashureev/wellness-labs/internal/metrics"
)

// Outcome labels reported to metrics.
const (
	outcomeExtracted    = "extracted"
	outcomeNoExtraction = "no_extraction"
	outcomePrefiltered  = "prefiltered"
)

var agePattern = regexp.MustCompile(`\b(\d{1,3})\b`)

// Engine applies a RuleSet to answers. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	rules *RuleSet
}

// New creates an Engine over rules.
func New(rules *RuleSet) *Engine {
	return &Engine{rules: rules}
}

var defaultEngine = sync.OnceValue(func() *Engine {
	rules, err := DefaultRules()
	if err != nil {
		panic(err)
	}
	return New(rules)
})

// Default returns the Engine built from the embedded rules.
func Default() *Engine {
	return defaultEngine()
}

// Extract interprets answer as a value for field using the embedded rules.
func Extract(answer string, field domain.FieldName) (domain.Value, bool) {
	return Default().Extract(answer, field)
}

// Extract interprets answer as a value for field. The second result is
// false when nothing in the answer fits the field.
func (e *Engine) Extract(answer string, field domain.FieldName) (domain.Value, bool) {
	if e.Prefiltered(answer) {
		metrics.RecordExtraction(string(field), outcomePrefiltered)
		return nil, false
	}

	v, ok := e.extract(answer, field)
	if ok {
		metrics.RecordExtraction(string(field), outcomeExtracted)
	} else {
		metrics.RecordExtraction(string(field), outcomeNoExtraction)
	}
	return v, ok
}

// Prefiltered reports whether answer is too short or a content-free
// utterance such as a greeting.
func (e *Engine) Prefiltered(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if utf8.RuneCountInString(trimmed) < e.rules.Prefilter.MinLength {
		return true
	}
	return slices.Contains(e.rules.Prefilter.Ignore, strings.ToLower(trimmed))
}

func (e *Engine) extract(answer string, field domain.FieldName) (domain.Value, bool) {
	if field == domain.FieldAge {
		return extractAge(answer)
	}

	lower := strings.ToLower(answer)

	if rules, ok := e.rules.Keywords[field]; ok {
		for _, rule := range rules {
			if containsAny(lower, rule.Keywords) {
				v, err := parseEnum(field, rule.Value)
				if err != nil {
					return nil, false
				}
				return v, true
			}
		}
		return nil, false
	}

	if rule, ok := e.rules.Text[field]; ok {
		trimmed := strings.TrimSpace(answer)
		if utf8.RuneCountInString(trimmed) < rule.MinLength {
			return nil, false
		}
		if containsAny(lower, rule.Keywords) {
			return trimmed, true
		}
	}

	return nil, false
}

func extractAge(answer string) (domain.Value, bool) {
	m := agePattern.FindStringSubmatch(answer)
	if m == nil {
		return nil, false
	}
	age, err := strconv.Atoi(m[1])
	if err != nil || age < domain.MinAge || age > domain.MaxAge {
		return nil, false
	}
	return age, true
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
