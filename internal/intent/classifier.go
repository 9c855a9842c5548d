package intent

import (
	"regexp"
	"strings"
)

// Definition is one entry of the classifier's priority list. Each pattern
// carries at most one capture group, which becomes the parameter.
type Definition struct {
	Intent   Intent
	Patterns []*regexp.Regexp
	Keywords []string

	// Ignore lists captured values that do not count as a parameter, so
	// "sector analysis" is not read as the sector "analysis".
	Ignore []string

	// IgnoreLeading lists words that, opening a capture, mark it as the
	// rest of a question or another intent's phrase rather than a value:
	// "which sector has the most risk" names no sector.
	IgnoreLeading []string
}

func (d Definition) ignores(param string) bool {
	for _, word := range d.Ignore {
		if param == word {
			return true
		}
	}
	first, _, _ := strings.Cut(param, " ")
	for _, word := range d.IgnoreLeading {
		if first == word {
			return true
		}
	}
	return false
}

// Classifier maps free text to an intent. Definitions are evaluated in
// order; the order is part of the behaviour. A Classifier is immutable and
// safe for concurrent use.
type Classifier struct {
	defs []Definition
}

// NewClassifier creates a classifier over defs in the given priority order.
// Definitions for Help are skipped since Help is the fallback.
func NewClassifier(defs ...Definition) *Classifier {
	c := &Classifier{defs: make([]Definition, 0, len(defs))}
	for _, d := range defs {
		if d.Intent == Help || d.Intent == "" {
			continue
		}
		patterns := make([]*regexp.Regexp, 0, len(d.Patterns))
		for _, p := range d.Patterns {
			if p != nil {
				patterns = append(patterns, p)
			}
		}
		d.Patterns = patterns
		c.defs = append(c.defs, d)
	}
	return c
}

// Definitions returns a copy of the priority list.
func (c *Classifier) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Classify runs the pattern pass across every definition, then the keyword
// pass, and falls back to Help. It never fails.
func (c *Classifier) Classify(text string) Result {
	norm := Normalize(text)
	if norm == "" {
		return Result{Intent: Help, Stage: StageFallback}
	}

	for _, def := range c.defs {
		for _, re := range def.Patterns {
			m := re.FindStringSubmatch(norm)
			if m == nil {
				continue
			}
			var param string
			if len(m) > 1 {
				param = strings.TrimSpace(m[1])
			}
			if param != "" && def.ignores(param) {
				continue
			}
			return Result{
				Intent:   def.Intent,
				Param:    param,
				HasParam: param != "",
				Stage:    StagePattern,
			}
		}
	}

	for _, def := range c.defs {
		for _, kw := range def.Keywords {
			if kw != "" && strings.Contains(norm, kw) {
				return Result{Intent: def.Intent, Stage: StageKeyword}
			}
		}
	}

	return Result{Intent: Help, Stage: StageFallback}
}

// Normalize lowercases text, collapses whitespace and drops trailing
// sentence punctuation.
func Normalize(text string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	return strings.TrimSpace(strings.TrimRight(norm, "?!."))
}
