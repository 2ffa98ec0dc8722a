// Package prompts holds the text sent to the text-generation service: the
// translation instructions, the output-format contract and the narration
// style rules.
package prompts

import (
	"fmt"
	"strings"
)

const (
	// QueryLabel precedes the statement in a translation response.
	QueryLabel = "SQL_QUERY:"
	// ExplanationLabel precedes the model's note on what the statement looks for.
	ExplanationLabel = "EXPLANATION:"
	// DataSourceMarker opens each table section of the instruction payload.
	// Nothing else in the payload may contain it.
	DataSourceMarker = "DATA SOURCE:"
)

// AnalystIntro opens the instruction payload.
func AnalystIntro(assistantName string) string {
	return fmt.Sprintf("You are %s, an analyst who answers business questions from the data sources described below. "+
		"Every answer you give is computed by running one read-only query against them.", assistantName)
}

// InstructionBlock renders the query-construction heuristics, including the
// domain vocabulary from hints.
func InstructionBlock(h *Hints) string {
	var b strings.Builder
	b.WriteString("INSTRUCTIONS:\n")

	rules := []string{
		"Answer with exactly one SELECT statement. Never modify data and never chain statements.",
		"Use the normalized column names shown above, never the original headers.",
		"Use only tables and columns that appear above. If the question cannot be answered from them, write a short reply without a query.",
		"Prefer aggregates (SUM, COUNT, AVG) over returning raw rows when the question asks for a total or a comparison.",
		"Quote text values with single quotes.",
	}
	for _, v := range h.Vocabulary {
		words := append([]string{v.Term}, v.Synonyms...)
		rules = append(rules, fmt.Sprintf("For %s questions, look for columns named like %s.",
			strings.Join(words, "/"), quoteAll(v.Columns)))
	}
	rules = append(rules, h.Patterns...)
	rules = append(rules, "In the explanation, describe the business question you are answering, not the query mechanics.")

	for i, rule := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}
	return b.String()
}

// FormatContract is the output format the response parser depends on.
func FormatContract() string {
	var b strings.Builder
	b.WriteString("RESPONSE FORMAT:\n")
	b.WriteString("Reply with exactly two labeled lines and nothing else. No markdown, no code fences, no backticks.\n")
	fmt.Fprintf(&b, "%s SELECT column FROM source WHERE condition;\n", QueryLabel)
	fmt.Fprintf(&b, "%s one sentence on what the query looks for\n", ExplanationLabel)
	return b.String()
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, ", ")
}
