package relevance

import (
	"strings"

	"golang.org/x/text/cases"
)

type Classifier struct {
	keywords []string
	folded   []string
}

// NewClassifier keeps the vocabulary order. Keywords that fold to the same form
// collapse onto the first spelling.
func NewClassifier(vocabulary []string) (*Classifier, error) {
	if err := validateVocabulary(vocabulary); err != nil {
		return nil, err
	}

	c := &Classifier{}
	seen := make(map[string]struct{}, len(vocabulary))
	for _, keyword := range vocabulary {
		folded := fold(keyword)
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		c.keywords = append(c.keywords, keyword)
		c.folded = append(c.folded, folded)
	}

	return c, nil
}

func (c *Classifier) Run(text string) (bool, []string) {
	if text == "" {
		return false, nil
	}

	haystack := fold(text)
	var matched []string
	for i, needle := range c.folded {
		if strings.Contains(haystack, needle) {
			matched = append(matched, c.keywords[i])
		}
	}

	return len(matched) > 0, matched
}

func (c *Classifier) Keywords() []string {
	out := make([]string, len(c.keywords))
	copy(out, c.keywords)
	return out
}

func containsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	haystack := fold(text)
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, fold(keyword)) {
			return true
		}
	}
	return false
}

func validateVocabulary(vocabulary []string) error {
	if len(vocabulary) == 0 {
		return ErrEmptyVocabulary
	}
	for _, keyword := range vocabulary {
		if strings.TrimSpace(keyword) == "" {
			return ErrEmptyVocabulary
		}
	}
	return nil
}

func fold(s string) string {
	return cases.Fold().String(s)
}
