// Package qa implements the grounded question-answering facade of spec
// §4.11 (C11): a closed tool set, a bounded agent loop reusing the
// teacher's OpenAI client shape, and a post-hoc verifier enforcing the
// citation and numeric-grounding invariants. Tool objects are modeled as a
// small finite variant set rather than an open plugin system, per §9's
// guidance for runtime-dispatched tool calling in Go.
package qa

import (
	"context"
	"fmt"
	"strings"

	"github.com/feedback-intel/core/internal/apperr"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/repos"
)

// ToolName enumerates the closed tool set of spec §4.11.
type ToolName string

const (
	ToolAnalyticsSQL   ToolName = "analytics-sql"
	ToolVectorExamples ToolName = "vector-examples"
	ToolReportWriter   ToolName = "report-writer"
)

// ToolResult is what every tool call returns to the agent loop: a short
// human-readable summary fed back into the model's context, plus the
// structured numeric/citation facts the verifier checks the final answer
// against.
type ToolResult struct {
	Tool       ToolName          `json:"tool"`
	Summary    string            `json:"summary"`
	Numbers    []float64         `json:"numbers"`
	FeedbackIDs []string         `json:"feedback_ids,omitempty"`
}

// Tool is the closed interface every concrete tool implements. Each tool
// rejects any request outside its own whitelist instead of accepting an
// arbitrary caller-built query (spec §4.11 "analytics-sql... rejects any
// request outside the whitelist").
type Tool interface {
	Name() ToolName
	Call(ctx context.Context, args map[string]any) (ToolResult, error)
}

// AnalyticsSQLTool exposes the same closed aggregation shapes as the
// analytics engine (C7), parameterised, never a caller-built fragment.
type AnalyticsSQLTool struct {
	repo repos.AnalyticsRepo
}

func NewAnalyticsSQLTool(repo repos.AnalyticsRepo) *AnalyticsSQLTool {
	return &AnalyticsSQLTool{repo: repo}
}

func (t *AnalyticsSQLTool) Name() ToolName { return ToolAnalyticsSQL }

func (t *AnalyticsSQLTool) Call(ctx context.Context, args map[string]any) (ToolResult, error) {
	query, _ := args["query"].(string)
	dr, err := parseDateRangeArg(args)
	if err != nil {
		return ToolResult{}, err
	}
	dbc := dbctx.New(ctx)

	switch query {
	case "summary":
		total, negativePct, _, err := t.repo.Summary(dbc, dr)
		if err != nil {
			return ToolResult{}, apperr.Wrap(apperr.Internal, "analytics-sql summary", err)
		}
		return ToolResult{
			Tool:    ToolAnalyticsSQL,
			Summary: fmt.Sprintf("Over the requested window there were %d feedback items, %.1f%% negative.", total, negativePct),
			Numbers: []float64{float64(total), negativePct},
		}, nil
	case "topic-breakdown":
		rows, err := t.repo.TopicBreakdown(dbc, dr)
		if err != nil {
			return ToolResult{}, apperr.Wrap(apperr.Internal, "analytics-sql topic-breakdown", err)
		}
		var b strings.Builder
		numbers := make([]float64, 0, len(rows))
		for _, r := range rows {
			fmt.Fprintf(&b, "topic %d (%s): %d items; ", r.TopicID, r.Label, r.Count)
			numbers = append(numbers, float64(r.Count))
		}
		return ToolResult{Tool: ToolAnalyticsSQL, Summary: b.String(), Numbers: numbers}, nil
	case "sentiment-trend":
		rows, err := t.repo.SentimentTrend(dbc, "day", dr)
		if err != nil {
			return ToolResult{}, apperr.Wrap(apperr.Internal, "analytics-sql sentiment-trend", err)
		}
		var b strings.Builder
		numbers := make([]float64, 0, len(rows)*3)
		for _, r := range rows {
			fmt.Fprintf(&b, "%s: +%d/-%d/=%d; ", r.Period, r.Positive, r.Negative, r.Neutral)
			numbers = append(numbers, float64(r.Positive), float64(r.Negative), float64(r.Neutral))
		}
		return ToolResult{Tool: ToolAnalyticsSQL, Summary: b.String(), Numbers: numbers}, nil
	default:
		return ToolResult{}, apperr.Validationf("analytics-sql: unsupported query %q", query)
	}
}

// VectorExamplesTool returns feedback identifiers and text snippets for a
// topic/sentiment, capped at k<=10 (spec §4.11).
type VectorExamplesTool struct {
	repo repos.AnalyticsRepo
}

func NewVectorExamplesTool(repo repos.AnalyticsRepo) *VectorExamplesTool {
	return &VectorExamplesTool{repo: repo}
}

func (t *VectorExamplesTool) Name() ToolName { return ToolVectorExamples }

func (t *VectorExamplesTool) Call(ctx context.Context, args map[string]any) (ToolResult, error) {
	var topicFilter *uint
	if v, ok := args["topic_id"].(float64); ok {
		id := uint(v)
		topicFilter = &id
	}
	var sentimentFilter *int
	if v, ok := args["sentiment"].(float64); ok {
		s := int(v)
		sentimentFilter = &s
	}
	k := 10
	if v, ok := args["k"].(float64); ok && int(v) > 0 && int(v) < 10 {
		k = int(v)
	}

	rows, err := t.repo.Examples(dbctx.New(ctx), topicFilter, sentimentFilter, k)
	if err != nil {
		return ToolResult{}, apperr.Wrap(apperr.Internal, "vector-examples", err)
	}
	var b strings.Builder
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		fmt.Fprintf(&b, "[%s] %s\n", r.FeedbackID, truncate(r.Text, 200))
		ids = append(ids, r.FeedbackID)
	}
	return ToolResult{Tool: ToolVectorExamples, Summary: b.String(), FeedbackIDs: ids}, nil
}

// ReportWriterTool renders a structured weekly-summary from metrics the
// agent has already gathered via the other two tools — it never queries
// the database itself, so it cannot introduce ungrounded numbers.
type ReportWriterTool struct{}

func NewReportWriterTool() *ReportWriterTool { return &ReportWriterTool{} }

func (t *ReportWriterTool) Name() ToolName { return ToolReportWriter }

func (t *ReportWriterTool) Call(ctx context.Context, args map[string]any) (ToolResult, error) {
	metrics, _ := args["metrics"].(map[string]any)
	if len(metrics) == 0 {
		return ToolResult{}, apperr.Validationf("report-writer: metrics argument required")
	}
	var b strings.Builder
	numbers := make([]float64, 0, len(metrics))
	b.WriteString("Weekly summary:\n")
	for k, v := range metrics {
		fmt.Fprintf(&b, "- %s: %v\n", k, v)
		if n, ok := v.(float64); ok {
			numbers = append(numbers, n)
		}
	}
	return ToolResult{Tool: ToolReportWriter, Summary: b.String(), Numbers: numbers}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
