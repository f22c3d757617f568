package qa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feedback-intel/core/internal/apperr"
	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/repos"
)

// Filter is the caller-supplied filter bundle of spec §4.11. It is
// appended verbatim as a descriptive prompt prefix; the agent is never
// permitted to ignore it.
type Filter struct {
	Start      *time.Time
	End        *time.Time
	Sentiment  *int
	TopicID    *uint
	Source     *string
	CustomerID *string
	Language   *string
}

func (f Filter) describe() string {
	var parts []string
	if f.Start != nil && f.End != nil {
		parts = append(parts, fmt.Sprintf("date range %s to %s", f.Start.Format("2006-01-02"), f.End.Format("2006-01-02")))
	}
	if f.Sentiment != nil {
		parts = append(parts, fmt.Sprintf("sentiment=%d", *f.Sentiment))
	}
	if f.TopicID != nil {
		parts = append(parts, fmt.Sprintf("topic_id=%d", *f.TopicID))
	}
	if f.Source != nil {
		parts = append(parts, fmt.Sprintf("source=%s", *f.Source))
	}
	if f.CustomerID != nil {
		parts = append(parts, fmt.Sprintf("customer_id=%s", *f.CustomerID))
	}
	if f.Language != nil {
		parts = append(parts, fmt.Sprintf("language=%s", *f.Language))
	}
	if len(parts) == 0 {
		return "No filters were supplied; answer over all available data."
	}
	return "Caller-supplied filters (must be honored, never ignored): " + strings.Join(parts, ", ")
}

func parseDateRangeArg(args map[string]any) (repos.DateRange, error) {
	start, sok := args["start"].(string)
	end, eok := args["end"].(string)
	if !sok || !eok {
		now := time.Now().UTC()
		return repos.DateRange{Start: now.AddDate(0, 0, -30), End: now}, nil
	}
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return repos.DateRange{}, apperr.Validationf("invalid start date %q", start)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return repos.DateRange{}, apperr.Validationf("invalid end date %q", end)
	}
	return repos.DateRange{Start: s, End: e}, nil
}

// Answer is the facade's response shape (spec §4.11).
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Warning   string     `json:"warning,omitempty"`
}

type Citation struct {
	FeedbackID string `json:"feedback_id"`
	TopicID    *uint  `json:"topic_id,omitempty"`
}

// Client is the narrow slice of the OpenAI client the agent loop needs:
// JSON for tool selection, plain text for the final answer.
type Client interface {
	GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error)
	GenerateText(ctx context.Context, system, user string) (string, error)
}

const maxToolCalls = 4

type Agent struct {
	log     *logger.Logger
	client  Client
	tools   map[ToolName]Tool
	maxChars int
	maxTokenEstimate int
	timeout time.Duration
}

func NewAgent(log *logger.Logger, client Client, tools []Tool, cfg config.Config) *Agent {
	byName := make(map[ToolName]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}
	return &Agent{
		log:              log.With("service", "QAAgent"),
		client:           client,
		tools:            byName,
		maxChars:         cfg.QAMaxQuestionChars,
		maxTokenEstimate: cfg.QAMaxTokenEstimate,
		timeout:          cfg.QATimeout,
	}
}

var toolSelectionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"action": map[string]any{"type": "string", "enum": []string{"call_tool", "final_answer"}},
		"tool":   map[string]any{"type": "string", "enum": []string{"analytics-sql", "vector-examples", "report-writer"}},
		"args":   map[string]any{"type": "object"},
		"answer": map[string]any{"type": "string"},
	},
	"required": []string{"action"},
}

// Ask runs the bounded tool-call loop and returns a verified answer.
// Processing is bounded by cfg.QATimeout (spec §4.11's 30s ceiling) via
// ctx, which the caller is expected to have already wrapped with
// context.WithTimeout.
func (a *Agent) Ask(ctx context.Context, question string, filter Filter) (Answer, error) {
	if len(question) > a.maxChars {
		return Answer{}, apperr.New(apperr.TooLarge, fmt.Sprintf("question exceeds %d characters", a.maxChars))
	}
	if estimateTokens(question) > a.maxTokenEstimate {
		return Answer{}, apperr.New(apperr.TooLarge, fmt.Sprintf("question exceeds estimated %d token budget", a.maxTokenEstimate))
	}

	system := "You are a feedback-analytics assistant. You may call analytics-sql, vector-examples, or report-writer tools to gather grounded facts, then give a final_answer. Every direct quote must be followed by a feedback id citation in brackets, e.g. [fb-id]. Every number you state must come from a tool result."
	user := filter.describe() + "\n\nQuestion: " + question

	var gathered []ToolResult
	for call := 0; call < maxToolCalls; call++ {
		if err := ctx.Err(); err != nil {
			return Answer{}, apperr.Wrap(apperr.Timeout, "qa request timed out", err)
		}
		decision, err := a.client.GenerateJSON(ctx, system, user, "qa_tool_selection", toolSelectionSchema)
		if err != nil {
			return Answer{}, apperr.Wrap(apperr.Unavailable, "qa model unavailable", err)
		}
		action, _ := decision["action"].(string)
		if action == "final_answer" {
			text, _ := decision["answer"].(string)
			return a.finalize(text, gathered)
		}

		toolName, _ := decision["tool"].(string)
		args, _ := decision["args"].(map[string]any)
		tool, ok := a.tools[ToolName(toolName)]
		if !ok {
			return Answer{}, apperr.Validationf("model requested unknown tool %q", toolName)
		}
		result, err := tool.Call(ctx, args)
		if err != nil {
			return Answer{}, err
		}
		a.log.Info("qa tool call", "tool", result.Tool)
		gathered = append(gathered, result)
		user += fmt.Sprintf("\n\nTool %s result: %s", result.Tool, result.Summary)
	}

	text, err := a.client.GenerateText(ctx, system, user+"\n\nGive your final_answer now; no more tools are available.")
	if err != nil {
		return Answer{}, apperr.Wrap(apperr.Unavailable, "qa model unavailable", err)
	}
	return a.finalize(text, gathered)
}

func (a *Agent) finalize(text string, gathered []ToolResult) (Answer, error) {
	verdict := verify(text, gathered)
	answer := Answer{Text: text, Citations: verdict.citations}
	if !verdict.ok {
		answer.Warning = verdict.reason
	}
	return answer, nil
}

// estimateTokens is a coarse 4-chars-per-token heuristic, matching the
// teacher's own rough token-budgeting approach elsewhere in this service
// rather than pulling in a BPE tokenizer for a soft ceiling check.
func estimateTokens(s string) int {
	return len(s) / 4
}
