package detection

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const DefaultThreshold = 0.6

// Rule is a weighted phrase that indicates a scam when it appears in a transcript.
type Rule struct {
	Phrase   string  `yaml:"phrase"`
	Category string  `yaml:"category"`
	Weight   float64 `yaml:"weight"`
}

type Rules struct {
	Threshold float64 `yaml:"threshold"`
	Rules     []Rule  `yaml:"rules"`
}

// DefaultRules is the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		Threshold: DefaultThreshold,
		Rules: []Rule{
			{Phrase: "gift card", Category: "payment", Weight: 0.5},
			{Phrase: "wire transfer", Category: "payment", Weight: 0.4},
			{Phrase: "bitcoin", Category: "payment", Weight: 0.4},
			{Phrase: "western union", Category: "payment", Weight: 0.4},
			{Phrase: "prepaid", Category: "payment", Weight: 0.2},
			{Phrase: "immediately", Category: "urgency", Weight: 0.15},
			{Phrase: "final notice", Category: "urgency", Weight: 0.3},
			{Phrase: "act now", Category: "urgency", Weight: 0.2},
			{Phrase: "warrant", Category: "threat", Weight: 0.35},
			{Phrase: "arrest", Category: "threat", Weight: 0.35},
			{Phrase: "suspended", Category: "threat", Weight: 0.25},
			{Phrase: "lawsuit", Category: "threat", Weight: 0.25},
			{Phrase: "social security", Category: "impersonation", Weight: 0.3},
			{Phrase: "internal revenue service", Category: "impersonation", Weight: 0.35},
			{Phrase: "irs", Category: "impersonation", Weight: 0.35},
			{Phrase: "tech support", Category: "impersonation", Weight: 0.3},
			{Phrase: "microsoft", Category: "impersonation", Weight: 0.2},
			{Phrase: "car warranty", Category: "robocall", Weight: 0.4},
			{Phrase: "press one", Category: "robocall", Weight: 0.2},
			{Phrase: "congratulations", Category: "prize", Weight: 0.2},
			{Phrase: "you have won", Category: "prize", Weight: 0.35},
			{Phrase: "verify your account", Category: "credentials", Weight: 0.4},
			{Phrase: "password", Category: "credentials", Weight: 0.3},
			{Phrase: "pin number", Category: "credentials", Weight: 0.35},
			{Phrase: "social security number", Category: "credentials", Weight: 0.4},
			{Phrase: "remote access", Category: "credentials", Weight: 0.35},
		},
	}
}

// LoadRules reads a YAML rule file. A zero threshold falls back to DefaultThreshold.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules %s: %w", path, err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if err := rules.validate(); err != nil {
		return Rules{}, fmt.Errorf("rules %s: %w", path, err)
	}
	if rules.Threshold == 0 {
		rules.Threshold = DefaultThreshold
	}
	return rules, nil
}

func (r Rules) validate() error {
	if r.Threshold < 0 || r.Threshold > 1 {
		return fmt.Errorf("threshold %v out of range [0,1]", r.Threshold)
	}
	if len(r.Rules) == 0 {
		return fmt.Errorf("no rules defined")
	}
	for i, rule := range r.Rules {
		if len(tokenize(rule.Phrase)) == 0 {
			return fmt.Errorf("rule %d: empty phrase", i)
		}
		if rule.Weight <= 0 {
			return fmt.Errorf("rule %d (%s): weight must be positive", i, rule.Phrase)
		}
	}
	return nil
}
