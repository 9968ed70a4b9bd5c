package agitation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
)

// RuleDefinition is the serialisable form of a Rule.
type RuleDefinition struct {
	Priority   int            `yaml:"priority" json:"priority"`
	Condition  ConditionType  `yaml:"condition" json:"condition"`
	Values     []int          `yaml:"values,omitempty" json:"values,omitempty"`
	Action     Action         `yaml:"action" json:"action"`
	Parameters map[string]int `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// Build validates the definition and returns the immutable rule.
func (d RuleDefinition) Build() (Rule, error) {
	return NewRule(d.Priority, d.Condition, d.Values, d.Action, d.Parameters)
}

// Definition returns the serialisable form of r.
func (r Rule) Definition() RuleDefinition {
	d := RuleDefinition{
		Priority:  r.priority,
		Condition: r.condition,
		Values:    r.Values(),
		Action:    r.action,
	}
	if len(r.parameters) > 0 {
		d.Parameters = r.Parameters()
	}
	if len(d.Values) == 0 {
		d.Values = nil
	}
	return d
}

// ModeDefinition is the serialisable form of a Mode.
type ModeDefinition struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Rules       []RuleDefinition `yaml:"rules" json:"rules"`
}

// Mode is a named, ordered rule set. A Mode never changes after NewMode
// returns; a modified mode is a new value, so a timer holding the old one is
// unaffected.
type Mode struct {
	name        string
	description string
	custom      bool
	rules       []Rule
	fingerprint string
}

// NewMode builds a mode from already validated rules. The slice is copied.
func NewMode(name string, custom bool, rules []Rule) (*Mode, error) {
	if name == "" {
		return nil, fmt.Errorf("mode name is required")
	}
	m := &Mode{
		name:   name,
		custom: custom,
		rules:  slices.Clone(rules),
	}
	m.fingerprint = fingerprint(m.rules)
	return m, nil
}

// BuildMode validates every rule of def and returns the mode.
func BuildMode(def ModeDefinition, custom bool) (*Mode, error) {
	rules := make([]Rule, 0, len(def.Rules))
	for i, rd := range def.Rules {
		r, err := rd.Build()
		if err != nil {
			return nil, fmt.Errorf("mode %s, rule %d: %w", def.Name, i, err)
		}
		rules = append(rules, r)
	}
	m, err := NewMode(def.Name, custom, rules)
	if err != nil {
		return nil, err
	}
	m.description = def.Description
	return m, nil
}

func (m *Mode) Name() string        { return m.name }
func (m *Mode) Description() string { return m.description }
func (m *Mode) IsCustom() bool      { return m.custom }

// Rules returns a copy of the rule list in declaration order.
func (m *Mode) Rules() []Rule { return slices.Clone(m.rules) }

// Fingerprint is a stable digest of the rule set.
func (m *Mode) Fingerprint() string { return m.fingerprint }

// Definition returns the serialisable form of m.
func (m *Mode) Definition() ModeDefinition {
	def := ModeDefinition{
		Name:        m.name,
		Description: m.description,
		Rules:       make([]RuleDefinition, 0, len(m.rules)),
	}
	for _, r := range m.rules {
		def.Rules = append(def.Rules, r.Definition())
	}
	return def
}

// Validate checks the mode-level invariants that individual rules cannot.
func (m *Mode) Validate() error {
	for _, r := range m.rules {
		if r.condition == ConditionDefault {
			return nil
		}
	}
	return fmt.Errorf("mode %s: %w", m.name, ErrNoDefaultRule)
}

func fingerprint(rules []Rule) string {
	defs := make([]RuleDefinition, 0, len(rules))
	for _, r := range rules {
		defs = append(defs, r.Definition())
	}
	// encoding/json sorts map keys, so the digest is stable.
	data, _ := json.Marshal(defs)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
