package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/prompts"
)

// InstructionPayload is the system message of the translation call.
type InstructionPayload struct {
	Text       string
	TableCount int
}

// ContextBuilderConfig bounds what is rendered per table.
type ContextBuilderConfig struct {
	AssistantName      string
	PromptSampleRows   int // Sample rows rendered per table
	PromptEntityValues int // Entity values rendered per column
}

// ContextBuilder renders a snapshot and the domain hints into the
// instruction payload. It does no I/O.
type ContextBuilder interface {
	Build(snapshot *models.SchemaSnapshot, question string) InstructionPayload
}

type contextBuilder struct {
	cfg   ContextBuilderConfig
	hints *prompts.Hints
}

// NewContextBuilder creates a builder. A nil hints uses the built-in vocabulary.
func NewContextBuilder(cfg ContextBuilderConfig, hints *prompts.Hints) ContextBuilder {
	if hints == nil {
		hints = prompts.DefaultHints()
	}
	return &contextBuilder{cfg: cfg, hints: hints}
}

func (b *contextBuilder) Build(snapshot *models.SchemaSnapshot, question string) InstructionPayload {
	var sb strings.Builder

	sb.WriteString(prompts.AnalystIntro(b.cfg.AssistantName))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Total Data Sources: %d\n", snapshot.TableCount())

	for _, table := range snapshot.Tables() {
		sb.WriteString("\n")
		b.writeTable(&sb, table)
	}

	sb.WriteString("\n")
	sb.WriteString(prompts.InstructionBlock(b.hints))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "USER QUESTION: %s\n\n", neutralize(question))
	sb.WriteString(prompts.FormatContract())

	return InstructionPayload{Text: sb.String(), TableCount: snapshot.TableCount()}
}

func (b *contextBuilder) writeTable(sb *strings.Builder, table models.TableDescriptor) {
	display := neutralize(table.DisplayName)
	if display == table.Name {
		fmt.Fprintf(sb, "%s %s\n", prompts.DataSourceMarker, table.Name)
	} else {
		fmt.Fprintf(sb, "%s %s (query it as %s)\n", prompts.DataSourceMarker, display, table.Name)
	}
	fmt.Fprintf(sb, "- Records: %s\n", FormatCount(table.RowCount))
	fmt.Fprintf(sb, "- Columns: %s\n", strings.Join(table.ColumnNames(), ", "))

	mapping := make(map[string]string, len(table.Columns))
	for _, col := range table.Columns {
		mapping[neutralize(col.OriginalName)] = col.Name
	}
	var mappingJSON bytes.Buffer
	enc := json.NewEncoder(&mappingJSON)
	enc.SetEscapeHTML(false)
	enc.SetIndent("  ", "  ")
	_ = enc.Encode(mapping) // a map of strings always encodes
	fmt.Fprintf(sb, "- Column mapping (original header -> query name):\n  %s\n",
		strings.TrimRight(mappingJSON.String(), "\n"))

	rows := table.SampleRows
	if len(rows) > b.cfg.PromptSampleRows {
		rows = rows[:b.cfg.PromptSampleRows]
	}
	if len(rows) > 0 {
		sb.WriteString("- Sample rows:\n")
		for _, row := range rows {
			fmt.Fprintf(sb, "  %s\n", neutralize(prompts.FormatTuple(row)))
		}
	}

	for _, entity := range table.EntityColumns {
		values := entity.Values
		if len(values) > b.cfg.PromptEntityValues {
			values = values[:b.cfg.PromptEntityValues]
		}
		if len(values) == 0 {
			continue
		}
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = neutralize(prompts.FormatValue(v))
		}
		fmt.Fprintf(sb, "- Known values of %s (%d of %d shown): %s\n",
			entity.Column, len(values), len(entity.Values), strings.Join(quoted, ", "))
	}
}

// neutralize keeps data values from being read as a section marker.
func neutralize(s string) string {
	return strings.ReplaceAll(s, prompts.DataSourceMarker, "DATA SOURCE -")
}

// FormatCount renders n with thousands separators.
func FormatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
