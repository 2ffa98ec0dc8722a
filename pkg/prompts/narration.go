package prompts

import (
	"fmt"
	"strings"
)

// NarrationInstruction is the user message of the narration call.
const NarrationInstruction = "Provide the final answer based on the results."

// BuildNarrationPrompt embeds the question and the full result set under the
// conversational style rules.
func BuildNarrationPrompt(question string, columns []string, rows [][]any) string {
	var b strings.Builder

	b.WriteString("A query was run to answer a business question. These are its results.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(columns, ", "))
	b.WriteString("Results:\n")
	for _, row := range rows {
		b.WriteString(FormatTuple(row))
		b.WriteString("\n")
	}

	b.WriteString("\nWrite the answer for the person who asked.\n")
	b.WriteString("STYLE:\n")
	b.WriteString("- Sound like a colleague talking, friendly and direct.\n")
	b.WriteString("- Lead with the answer, then add the supporting numbers.\n")
	b.WriteString("- Mention names and figures inside ordinary sentences, for example \"Vendor A sold 500 units while Vendor B sold 300.\"\n")
	b.WriteString("- Do not use numbered lists, bullet points or bold section headings such as **Summary**.\n")
	b.WriteString("- Never mention tables, databases, queries, SQL or column names. Talk about the business, not the data plumbing.\n")

	return b.String()
}
