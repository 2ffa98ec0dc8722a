package services

import (
	"regexp"
	"strings"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/prompts"
)

var topicWordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// topicStopWords never count as a mention of the data, even when an entity
// value or display name contains them.
var topicStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"what": true, "which": true, "how": true, "did": true, "does": true,
	"was": true, "were": true, "are": true, "this": true, "that": true,
	"per": true, "all": true, "any": true, "our": true, "you": true,
	"your": true, "its": true, "has": true, "have": true, "not": true,
}

// TopicMatcher recognizes questions about the loaded data, so that a word
// like "time" or "date" alone does not get a data question refused before
// it is translated.
type TopicMatcher struct {
	vocabulary map[string]bool
}

// NewTopicMatcher collects the hint terms and synonyms. Nil hints use the
// defaults.
func NewTopicMatcher(hints *prompts.Hints) *TopicMatcher {
	if hints == nil {
		hints = prompts.DefaultHints()
	}
	vocab := make(map[string]bool)
	for _, v := range hints.Vocabulary {
		addTopicWords(vocab, v.Term)
		for _, s := range v.Synonyms {
			addTopicWords(vocab, s)
		}
	}
	return &TopicMatcher{vocabulary: vocab}
}

// MentionsData reports whether a word of the question names a table, a
// column, an entity value or a hint term. Matching ignores case and simple
// plurals.
func (m *TopicMatcher) MentionsData(question string, snapshot *models.SchemaSnapshot) bool {
	words := topicWords(question)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if m.vocabulary[w] {
			return true
		}
	}
	if snapshot == nil {
		return false
	}
	terms := snapshotTopicWords(snapshot)
	for _, w := range words {
		if terms[w] {
			return true
		}
	}
	return false
}

func snapshotTopicWords(snapshot *models.SchemaSnapshot) map[string]bool {
	terms := make(map[string]bool)
	for _, t := range snapshot.Tables() {
		addTopicWords(terms, t.Name)
		addTopicWords(terms, t.DisplayName)
		for _, c := range t.Columns {
			addTopicWords(terms, c.Name)
			addTopicWords(terms, c.OriginalName)
		}
		for _, e := range t.EntityColumns {
			for _, v := range e.Values {
				addTopicWords(terms, v)
			}
		}
	}
	return terms
}

func addTopicWords(set map[string]bool, text string) {
	for _, w := range topicWords(text) {
		set[w] = true
	}
}

// topicWords splits text into lowercased, singular words of three or more
// characters, skipping stop words. Underscores split words, so product_name
// yields product and name.
func topicWords(text string) []string {
	var words []string
	for _, w := range topicWordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 3 || topicStopWords[w] {
			continue
		}
		words = append(words, singular(w))
	}
	return words
}

// singular strips common English plural endings.
func singular(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 4 && (strings.HasSuffix(w, "ches") || strings.HasSuffix(w, "shes") ||
		strings.HasSuffix(w, "xes") || strings.HasSuffix(w, "sses")):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}
