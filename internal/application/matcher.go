package application

import (
	"fmt"
	"regexp"

	"voice-qa/internal/domain"
)

// CompiledEntry is an AnswerEntry whose pattern has already been compiled.
type CompiledEntry struct {
	Group   string
	Pattern *regexp.Regexp
	Answer  string
}

// AnswerTable is the matchable form of a Corpus: only activated groups, in
// corpus order, with every pattern compiled case-insensitively.
type AnswerTable struct {
	Name    string
	Entries []CompiledEntry
}

type PatternError struct {
	Group   string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("group %q: invalid pattern %q: %v", e.Group, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// CompileCorpus builds an AnswerTable. Entries with malformed patterns are
// left out and reported, one PatternError each.
func CompileCorpus(c *domain.Corpus) (*AnswerTable, []error) {
	table := &AnswerTable{}
	if c == nil {
		return table, nil
	}
	table.Name = c.Name

	var errs []error
	for _, g := range c.Groups {
		if !g.Activated {
			continue
		}
		for _, e := range g.Entries {
			re, err := compilePattern(e.Pattern)
			if err != nil {
				errs = append(errs, &PatternError{Group: g.Label, Pattern: e.Pattern, Err: err})
				continue
			}
			table.Entries = append(table.Entries, CompiledEntry{
				Group:   g.Label,
				Pattern: re,
				Answer:  e.Answer,
			})
		}
	}
	return table, errs
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// Match returns the answer of the first entry whose pattern matches u.
func Match(u domain.Utterance, entries []CompiledEntry) (string, bool) {
	for _, e := range entries {
		if e.Pattern.MatchString(string(u)) {
			return e.Answer, true
		}
	}
	return "", false
}

func (t *AnswerTable) Match(u domain.Utterance) (string, bool) {
	if t == nil {
		return "", false
	}
	return Match(u, t.Entries)
}

func (t *AnswerTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Entries)
}
