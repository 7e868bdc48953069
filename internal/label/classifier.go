// Package label compiles configured rules into an ordered list of matchers
// that turn raw error text into short, human-readable labels.
package label

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/ppiankov/logsift/internal/config"
)

// Sentinel is the label produced when a rule matched but its template could not be applied.
const Sentinel = "__internal_error__"

// Outcome tags a classification result.
type Outcome int

const (
	NoMatch Outcome = iota
	Labeled
	Unresolvable
)

// Result is the tagged outcome of applying one rule.
type Result struct {
	Outcome Outcome
	Label   string
	Err     error // template failure, set only for Unresolvable
}

// String returns the label to display: the resolved label, or Sentinel.
func (r Result) String() string {
	if r.Outcome == Unresolvable {
		return Sentinel
	}
	return r.Label
}

// Rule is one compiled pattern with its label template.
type Rule struct {
	Pattern  *regexp.Regexp
	Template string
	Sets     []string
}

// Apply renders the template against a successful match as returned by
// FindStringSubmatch. Placeholder {0} is the empty string and {N} is
// capture group N. Apply never fails: template errors yield Unresolvable.
func (r Rule) Apply(match []string) Result {
	args := make([]string, len(match))
	if len(match) > 0 {
		copy(args[1:], match[1:])
	}
	out, err := format(r.Template, args)
	if err != nil {
		return Result{Outcome: Unresolvable, Err: err}
	}
	return Result{Outcome: Labeled, Label: out}
}

// Classify matches text against the rule.
func (r Rule) Classify(text string) Result {
	m := r.Pattern.FindStringSubmatch(text)
	if m == nil {
		return Result{Outcome: NoMatch}
	}
	return r.Apply(m)
}

// Classifier is an ordered, immutable list of rules. First match wins.
type Classifier struct {
	rules []Rule
}

// Compile keeps the parser definitions whose sets intersect requested, in
// definition order, and compiles every rule pattern once. An invalid
// pattern is a configuration error.
func Compile(defs []config.ParserConfig, requested []string) (*Classifier, error) {
	c := &Classifier{}
	for i, def := range defs {
		if !intersects(def.Sets, requested) {
			continue
		}
		for j, rc := range def.Rules {
			re, err := regexp.Compile(rc.Pattern)
			if err != nil {
				return nil, fmt.Errorf("parsers[%d].rules[%d]: invalid pattern %q: %w", i, j, rc.Pattern, err)
			}
			c.rules = append(c.rules, Rule{
				Pattern:  re,
				Template: rc.Label,
				Sets:     slices.Clone(def.Sets),
			})
		}
	}
	return c, nil
}

func intersects(a, b []string) bool {
	for _, s := range a {
		if slices.Contains(b, s) {
			return true
		}
	}
	return false
}

// Rules returns the compiled rules in application order.
func (c *Classifier) Rules() []Rule {
	if c == nil {
		return nil
	}
	return slices.Clone(c.rules)
}

// Len returns the number of active rules.
func (c *Classifier) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

// Classify returns the result of the first rule whose pattern matches text.
func (c *Classifier) Classify(text string) Result {
	if c == nil {
		return Result{}
	}
	for _, r := range c.rules {
		if res := r.Classify(text); res.Outcome != NoMatch {
			return res
		}
	}
	return Result{}
}

// Label returns the display label of the first matching rule and whether any rule matched.
func (c *Classifier) Label(text string) (string, bool) {
	res := c.Classify(text)
	if res.Outcome == NoMatch {
		return "", false
	}
	return res.String(), true
}
