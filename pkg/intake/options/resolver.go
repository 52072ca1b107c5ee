// Package options computes the quick replies offered to the client after
// each turn.
package options

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/phase"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

type Rule struct {
	Phases      []phase.Phase  `yaml:"phases"`
	Field       field.Key      `yaml:"field"`
	Statuses    []field.Status `yaml:"statuses"`
	Hint        string         `yaml:"hint"`
	Options     []string       `yaml:"options"`
	MultiSelect bool           `yaml:"multi_select"`
	Confirm     string         `yaml:"confirm"`
}

type Config struct {
	MaxOptions int      `yaml:"max_options"`
	Flush      []string `yaml:"flush"`
	Rules      []Rule   `yaml:"rules"`
}

// Input is the state the resolver looks at. Selected holds the multi-select
// choices the session has accumulated so far.
type Input struct {
	Phase    phase.Phase
	Fields   field.Snapshot
	Next     field.Key
	Hints    []string
	Selected []string
}

// Result is one computed option set. Field is the field the set targets and
// ConfirmOption, when set, is the option that confirms that field.
type Result struct {
	Options       []string  `json:"options"`
	MultiSelect   bool      `json:"multi_select,omitempty"`
	Field         field.Key `json:"field,omitempty"`
	ConfirmOption string    `json:"-"`
}

// Resolver maps phase and field state to an option set. It keeps no state
// between calls.
type Resolver struct {
	cfg Config
}

func Parse(data []byte) (*Resolver, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse quick option rules: %w", err)
	}
	if cfg.MaxOptions <= 0 {
		cfg.MaxOptions = 4
	}
	for i, r := range cfg.Rules {
		if len(r.Options) == 0 {
			return nil, fmt.Errorf("quick option rule %d has no options", i)
		}
		for _, s := range r.Statuses {
			if !s.Valid() {
				return nil, fmt.Errorf("quick option rule %d: unknown status %q", i, s)
			}
		}
		if r.Field != "" && !r.Field.Valid() {
			return nil, fmt.Errorf("quick option rule %d: unknown field %q", i, r.Field)
		}
	}
	return &Resolver{cfg: cfg}, nil
}

// Default returns the resolver built from the embedded rule table.
func Default() *Resolver {
	r, err := Parse(defaultRules)
	if err != nil {
		panic(err)
	}
	return r
}

// Load reads a rule table from path, falling back to the embedded table when
// path is empty.
func Load(path string) (*Resolver, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quick option rules: %w", err)
	}
	return Parse(data)
}

// IsFlush reports whether option ends a multi-select round.
func (r *Resolver) IsFlush(option string) bool {
	return slices.Contains(r.cfg.Flush, option)
}

func (r *Resolver) Resolve(in Input) Result {
	for _, rule := range r.cfg.Rules {
		if !rule.matches(in) {
			continue
		}
		res := Result{
			MultiSelect:   rule.MultiSelect,
			Field:         rule.Field,
			ConfirmOption: rule.Confirm,
		}
		if res.Field == "" && (rule.Confirm != "" || len(rule.Statuses) > 0) {
			res.Field = in.Next
		}
		if rule.MultiSelect {
			for _, o := range rule.Options {
				if !slices.Contains(in.Selected, o) {
					res.Options = append(res.Options, o)
				}
			}
			return res
		}
		res.Options = slices.Clone(rule.Options)
		if len(res.Options) > r.cfg.MaxOptions {
			res.Options = res.Options[:r.cfg.MaxOptions]
		}
		return res
	}
	return Result{Options: []string{}}
}

func (rule Rule) matches(in Input) bool {
	if len(rule.Phases) > 0 && !slices.Contains(rule.Phases, in.Phase) {
		return false
	}
	if rule.Hint != "" && !slices.Contains(in.Hints, rule.Hint) {
		return false
	}
	if rule.Field != "" && rule.Field != in.Next {
		return false
	}
	if len(rule.Statuses) > 0 {
		if in.Next == "" || !slices.Contains(rule.Statuses, in.Fields.Status(in.Next)) {
			return false
		}
	}
	return true
}
