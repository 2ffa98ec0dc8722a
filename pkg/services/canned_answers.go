package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ekaya-inc/ekaya-ask/pkg/prompts"
)

var (
	greetings  = map[string]bool{"hi": true, "hello": true, "hey": true}
	identities = map[string]bool{"who are you": true, "what are you": true, "introduce yourself": true}

	offTopicPattern = regexp.MustCompile(`(?i)\b(weather|news|time|date|recipe|movie|music|sports|politics)\b`)
)

// NormalizeQuestion lowercases, trims and drops trailing punctuation, so
// "Hello!" and " hello " compare equal.
func NormalizeQuestion(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	q = strings.TrimRight(q, "?!. ")
	return strings.Join(strings.Fields(q), " ")
}

// IsGreeting reports whether the question is only a greeting.
func IsGreeting(question string) bool {
	return greetings[NormalizeQuestion(question)]
}

// IsIdentityQuestion reports whether the question asks who the assistant is.
func IsIdentityQuestion(question string) bool {
	return identities[NormalizeQuestion(question)]
}

// IsOffTopic reports whether the question contains an off-topic word.
func IsOffTopic(question string) bool {
	return offTopicPattern.MatchString(question)
}

// CannedAnswers holds every fixed user-facing answer. None of them contain
// raw errors or store internals.
type CannedAnswers struct {
	assistantName string
	focus         string
	examples      []string
}

// NewCannedAnswers builds the answers for an assistant name and hints.
func NewCannedAnswers(assistantName string, hints *prompts.Hints) *CannedAnswers {
	if hints == nil {
		hints = prompts.DefaultHints()
	}
	if assistantName == "" {
		assistantName = "Business Data Assistant"
	}
	focus := hints.Focus
	if focus == "" {
		focus = "the business data that has been uploaded"
	}
	return &CannedAnswers{assistantName: assistantName, focus: focus, examples: hints.Examples}
}

// Greeting answers a bare greeting.
func (c *CannedAnswers) Greeting() string {
	return fmt.Sprintf("Hi there! I'm %s. I'm here to help you analyze your business data and find insights. What would you like to know?", c.assistantName)
}

// Identity answers "who are you".
func (c *CannedAnswers) Identity() string {
	return fmt.Sprintf("I'm %s, your data analyst. I can look up specific figures, compare results and spot trends in your business data. What would you like to know?", c.assistantName)
}

// NotConfigured is shown when no text-generation service is set up.
func (c *CannedAnswers) NotConfigured() string {
	return "Please contact admin to configure the system first."
}

// NotReady is shown when the store is unreachable or empty.
func (c *CannedAnswers) NotReady() string {
	return "The system is not ready yet. Please contact admin to upload data."
}

// Generic is the fallback for off-topic questions, failed translations
// and failed statements.
func (c *CannedAnswers) Generic() string {
	return fmt.Sprintf("I couldn't find relevant data for that question. I specialize in %s.%s", c.focus, c.suggestions())
}

// EmptyResult is shown when a statement ran but matched nothing.
func (c *CannedAnswers) EmptyResult() string {
	return "I looked, but nothing in the data matches that question. Try widening it, for example a different week or part of a product name." + c.suggestions()
}

// UnknownIdentifier lists the datasets the question can be asked about.
func (c *CannedAnswers) UnknownIdentifier(tables []string) string {
	if len(tables) == 0 {
		return c.Generic()
	}
	sorted := append([]string(nil), tables...)
	sort.Strings(sorted)
	return fmt.Sprintf("I couldn't match that question to the data I have. The available datasets are: %s. Try asking about one of those.",
		strings.Join(sorted, ", "))
}

func (c *CannedAnswers) suggestions() string {
	switch len(c.examples) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf(" Try asking: '%s'", c.examples[0])
	default:
		return fmt.Sprintf(" Try asking: '%s' or '%s'", c.examples[0], c.examples[1])
	}
}
