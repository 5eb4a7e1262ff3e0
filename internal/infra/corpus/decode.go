package corpus

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"voice-qa/internal/domain"
)

type document struct {
	Name  string `json:"name" yaml:"name"`
	Books []book `json:"books" yaml:"books"`
}

type book struct {
	Label       string     `json:"label" yaml:"label"`
	IsActivated bool       `json:"isActivated" yaml:"isActivated"`
	Questions   []question `json:"questions" yaml:"questions"`
}

type question struct {
	Q string `json:"q" yaml:"q"`
	A string `json:"a" yaml:"a"`
}

// DecodeJSON parses a corpus document in its JSON form.
func DecodeJSON(data []byte) (*domain.Corpus, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding corpus JSON: %w", err)
	}
	return doc.toDomain(), nil
}

// DecodeYAML parses a corpus document written as YAML.
func DecodeYAML(data []byte) (*domain.Corpus, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding corpus YAML: %w", err)
	}
	return doc.toDomain(), nil
}

func (d document) toDomain() *domain.Corpus {
	c := &domain.Corpus{
		Name:   d.Name,
		Groups: make([]domain.AnswerGroup, 0, len(d.Books)),
	}
	for i, b := range d.Books {
		label := b.Label
		if label == "" {
			label = fmt.Sprintf("book %d", i+1)
		}
		group := domain.AnswerGroup{
			Label:     label,
			Activated: b.IsActivated,
			Entries:   make([]domain.AnswerEntry, 0, len(b.Questions)),
		}
		for _, q := range b.Questions {
			group.Entries = append(group.Entries, domain.AnswerEntry{Pattern: q.Q, Answer: q.A})
		}
		c.Groups = append(c.Groups, group)
	}
	return c
}
