package extract

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ashureev/wellness-labs/internal/domain"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// RuleSet holds the keyword tables used by the Engine.
type RuleSet struct {
	Prefilter PrefilterRule                      `yaml:"prefilter"`
	Keywords  map[domain.FieldName][]KeywordRule `yaml:"keywords"`
	Text      map[domain.FieldName]TextRule      `yaml:"text"`
}

// PrefilterRule rejects content-free answers before any field rule runs.
type PrefilterRule struct {
	MinLength int      `yaml:"min_length"`
	Ignore    []string `yaml:"ignore"`
}

// KeywordRule maps any of Keywords to an enumeration Value.
type KeywordRule struct {
	Value    string   `yaml:"value"`
	Keywords []string `yaml:"keywords"`
}

// TextRule accepts the trimmed answer verbatim when it is long enough and
// contains one of Keywords.
type TextRule struct {
	MinLength int      `yaml:"min_length"`
	Keywords  []string `yaml:"keywords"`
}

var (
	rulesOnce    sync.Once
	rulesMu      sync.Mutex
	cachedRules  *RuleSet
	rulesLoadErr error
)

// DefaultRules returns the embedded rule set, parsed once.
func DefaultRules() (*RuleSet, error) {
	rulesMu.Lock()
	defer rulesMu.Unlock()
	rulesOnce.Do(func() {
		cachedRules, rulesLoadErr = LoadRules(defaultRulesYAML)
	})
	return cachedRules, rulesLoadErr
}

// ResetRules clears the cached default rule set. For tests.
func ResetRules() {
	rulesMu.Lock()
	defer rulesMu.Unlock()
	rulesOnce = sync.Once{}
	cachedRules = nil
	rulesLoadErr = nil
}

// LoadRules parses and validates a YAML rule set.
func LoadRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse extraction rules: %w", err)
	}
	rs.normalize()
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extraction rules: %w", err)
	}
	return &rs, nil
}

func (rs *RuleSet) normalize() {
	lower := func(words []string) []string {
		out := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				out = append(out, w)
			}
		}
		return out
	}
	rs.Prefilter.Ignore = lower(rs.Prefilter.Ignore)
	for field, rules := range rs.Keywords {
		for i := range rules {
			rules[i].Keywords = lower(rules[i].Keywords)
		}
		rs.Keywords[field] = rules
	}
	for field, rule := range rs.Text {
		rule.Keywords = lower(rule.Keywords)
		rs.Text[field] = rule
	}
}

// Validate checks that every rule targets a known field and value.
func (rs *RuleSet) Validate() error {
	if rs.Prefilter.MinLength < 1 {
		return fmt.Errorf("prefilter.min_length must be >= 1")
	}
	for field, rules := range rs.Keywords {
		if len(rules) == 0 {
			return fmt.Errorf("keywords.%s has no rules", field)
		}
		for i, rule := range rules {
			if len(rule.Keywords) == 0 {
				return fmt.Errorf("keywords.%s[%d] has no keywords", field, i)
			}
			if _, err := parseEnum(field, rule.Value); err != nil {
				return fmt.Errorf("keywords.%s[%d]: %w", field, i, err)
			}
		}
	}
	for field, rule := range rs.Text {
		if field != domain.FieldGender && field != domain.FieldHealthGoals {
			return fmt.Errorf("text.%s: not a free-text field", field)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("text.%s has no keywords", field)
		}
	}
	return nil
}

func parseEnum(field domain.FieldName, value string) (domain.Value, error) {
	switch field {
	case domain.FieldActivityLevel:
		return domain.ParseActivityLevel(value)
	case domain.FieldDietaryPreference:
		return domain.ParseDietaryPreference(value)
	case domain.FieldSleepQuality:
		return domain.ParseSleepQuality(value)
	case domain.FieldStressLevel:
		return domain.ParseStressLevel(value)
	}
	return nil, fmt.Errorf("%s is not an enumerated field", field)
}
