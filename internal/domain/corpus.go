package domain

// AnswerEntry pairs a case-insensitive question pattern with its spoken answer.
type AnswerEntry struct {
	Pattern string
	Answer  string
}

type AnswerGroup struct {
	Label     string
	Activated bool
	Entries   []AnswerEntry
}

// Corpus is the profile the assistant answers from. Name is the profile
// owner's name and is used in greetings.
type Corpus struct {
	Name   string
	Groups []AnswerGroup
}

// ActiveEntries returns the entries of activated groups, preserving group
// and entry order.
func (c *Corpus) ActiveEntries() []AnswerEntry {
	if c == nil {
		return nil
	}
	var entries []AnswerEntry
	for _, g := range c.Groups {
		if !g.Activated {
			continue
		}
		entries = append(entries, g.Entries...)
	}
	return entries
}
