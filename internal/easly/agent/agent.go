// Package agent runs the bounded planner-executor loop used when no
// deterministic rule understands a request. Each step asks the model for a
// JSON decision, runs at most one allow-listed tool, and feeds a truncated
// transcript of outcomes into the next decision. A final synthesis call
// answers from the transcript when the model did not answer directly.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/llm"
	"github.com/shopeasly/easly/internal/easly/observability"
	"github.com/shopeasly/easly/internal/easly/scope"
)

// DefaultMaxSteps bounds the number of decisions, and so tool calls, per run.
const DefaultMaxSteps = 3

// DefaultTemperature is the sampling temperature of the final answer.
const DefaultTemperature = 0.2

const (
	stepOutcomeLimit = 600
	transcriptLimit  = 4000
)

// SystemPrompt steers answer synthesis.
const SystemPrompt = "You are Easly AI, an expert assistant for ShopEasly. " +
	"Use the provided CONTEXT faithfully. If the context does not contain the answer, say so and suggest the next best step. " +
	"Keep answers concise and helpful. Never invent data beyond the retrieved context and the user prompt."

// Completer is the model backend; *llm.Chain satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (text, provider string, err error)
}

// ToolResult is one step of a run.
type ToolResult struct {
	Tool    string `json:"tool"`
	Outcome any    `json:"outcome"`
	Denied  bool   `json:"denied,omitempty"`
}

// Result is the outcome of a run.
type Result struct {
	Answer string
	// Provider names the model that produced the last successful call. It is
	// empty when the answer was assembled locally.
	Provider string
	Steps    []ToolResult
	// Pending is set when a destructive tool stopped the run to ask for
	// confirmation.
	Pending bool
	// Filtered is set when the model's answer imitated a live report and
	// was replaced.
	Filtered bool
}

// Outcome labels passed to Agent.OnTool.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeDenied  = "denied"
	OutcomePending = "pending"
)

// Agent runs the loop against a tool catalog.
type Agent struct {
	model     Completer
	tools     *Registry
	retriever Retriever
	maxSteps  int
	temp      float64
	catalog   string

	// OnTool, when set, is called once per step with the tool name and one
	// of the Outcome labels.
	OnTool func(tool, outcome string)
}

// Option configures an Agent.
type Option func(*Agent)

// WithRetriever sets the context source. Without one the context is empty.
func WithRetriever(r Retriever) Option { return func(a *Agent) { a.retriever = r } }

// WithTemperature overrides DefaultTemperature for the synthesis call.
// Negative values are ignored.
func WithTemperature(t float64) Option {
	return func(a *Agent) {
		if t >= 0 {
			a.temp = t
		}
	}
}

// WithMaxSteps overrides DefaultMaxSteps. Non-positive values are ignored.
func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

// New returns an Agent over model and tools.
func New(model Completer, tools *Registry, opts ...Option) *Agent {
	a := &Agent{model: model, tools: tools, maxSteps: DefaultMaxSteps, temp: DefaultTemperature}
	for _, opt := range opts {
		opt(a)
	}
	a.catalog = describeTools(tools)
	return a
}

// MaxSteps returns the step bound.
func (a *Agent) MaxSteps() int { return a.maxSteps }

// Run answers question for clientID. It returns an error only when no model
// call succeeded and no tool ran; callers fall back to local answers then.
func (a *Agent) Run(ctx context.Context, clientID, question string) (*Result, error) {
	log := observability.WithTrace(ctx).With("client", clientID)

	var background string
	if a.retriever != nil {
		c, err := a.retriever.Retrieve(ctx, clientID, question)
		if err != nil {
			log.Warn("agent context unavailable", "err", err)
		}
		background = c
	}

	res := &Result{}
	var final string
loop:
	for step := 0; step < a.maxSteps; step++ {
		text, provider, err := a.model.Complete(ctx, a.decisionRequest(question, background, res.Steps))
		if err != nil {
			if len(res.Steps) == 0 {
				return nil, fmt.Errorf("agent: decide: %w", err)
			}
			log.Warn("agent decision failed", "step", step+1, "err", err)
			break
		}
		res.Provider = provider

		switch d := ParseDecision(text).(type) {
		case Fallback:
			log.Info("agent decision not parseable", "step", step+1, "err", d.Err)
			break loop
		case Answer:
			final = d.Text
			break loop
		case UseTool:
			if !a.tools.Has(d.Tool) {
				log.Warn("agent tool denied", "tool", d.Tool, "step", step+1)
				res.Steps = append(res.Steps, ToolResult{
					Tool:    d.Tool,
					Outcome: map[string]string{"error": "tool is not in the allowed catalog"},
					Denied:  true,
				})
				a.notify(d.Tool, OutcomeDenied)
				break loop
			}

			outcome, err := a.tools.Call(ctx, clientID, d.Tool, d.Args)
			label := OutcomeOK
			if err != nil {
				outcome = map[string]string{"error": err.Error()}
				label = OutcomeError
			}
			if p, ok := outcome.(*PendingConfirmation); ok {
				res.Steps = append(res.Steps, ToolResult{Tool: d.Tool, Outcome: p})
				res.Pending = true
				res.Answer = p.Message
				a.notify(d.Tool, OutcomePending)
				log.Info("agent tool awaiting confirmation", "tool", d.Tool, "step", step+1)
				return res, nil
			}
			res.Steps = append(res.Steps, ToolResult{Tool: d.Tool, Outcome: outcome})
			a.notify(d.Tool, label)
			log.Info("agent tool", "tool", d.Tool, "step", step+1, "outcome", label, "reason", d.Reason)

			if !d.NeedsAnotherTool {
				final = d.FinalAnswer
				break loop
			}
		}
	}

	if final == "" {
		text, provider, err := a.model.Complete(ctx, a.synthesisRequest(question, background, res.Steps))
		switch {
		case err == nil:
			final = strings.TrimSpace(text)
			res.Provider = provider
		case len(res.Steps) == 0:
			return nil, fmt.Errorf("agent: synthesize: %w", err)
		default:
			log.Warn("agent synthesis failed", "err", err)
			final = summarize(res.Steps)
			res.Provider = ""
		}
	}

	if scope.IsFabricatedReport(final) {
		final = scope.RedirectMessage
		res.Filtered = true
	}
	res.Answer = final
	return res, nil
}

func (a *Agent) notify(tool, outcome string) {
	if a.OnTool != nil {
		a.OnTool(tool, outcome)
	}
}

func (a *Agent) decisionRequest(question, background string, steps []ToolResult) llm.Request {
	var b strings.Builder
	fmt.Fprintf(&b, "QUESTION: %s\nCONTEXT:\n%s\nTOOL_RESULTS:\n", question, orNone(background))
	if len(steps) == 0 {
		b.WriteString("(none)")
	}
	for i, s := range steps {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, s.Tool, truncate(encode(s.Outcome), stepOutcomeLimit))
	}
	return llm.Request{
		System:   decisionPrompt + a.catalog,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: strings.TrimRight(b.String(), "\n")}},
		JSON:     true,
	}
}

func (a *Agent) synthesisRequest(question, background string, steps []ToolResult) llm.Request {
	transcript := "(none)"
	if len(steps) > 0 {
		transcript = truncate(encode(steps), transcriptLimit)
	}
	content := fmt.Sprintf("QUESTION: %s\n\nCONTEXT:\n%s\n\nTOOL_RESULT:\n%s", question, orNone(background), transcript)
	return llm.Request{
		System:      SystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: content}},
		Temperature: a.temp,
	}
}

const decisionPrompt = `Decide if calling a tool will help answer the QUESTION. Output strict JSON only:
{"useTool":boolean,"toolName":string,"args":object,"reason":string,"needsAnotherTool":boolean,"finalAnswer":string}
toolName must be one of the TOOLS below, or "none" with useTool=false when no tool is needed; then put the reply in finalAnswer.
Set needsAnotherTool=true only when another tool call must follow this one.
Delete tools need confirmToken "CONFIRM DELETE <id>" and only the user may supply it.

TOOLS:
`

func describeTools(r *Registry) string {
	var b strings.Builder
	for _, d := range r.Definitions() {
		var schema bytes.Buffer
		if err := json.Compact(&schema, d.Parameters); err != nil {
			schema.Reset()
			schema.Write(d.Parameters)
		}
		fmt.Fprintf(&b, "- %s: %s Arguments: %s\n", d.Name, d.Description, schema.String())
	}
	return b.String()
}

// summarize renders executed steps when no model is left to phrase them.
func summarize(steps []ToolResult) string {
	lines := make([]string, 0, len(steps))
	for _, s := range steps {
		switch o := s.Outcome.(type) {
		case actions.Result:
			lines = append(lines, o.Message)
		case map[string]string:
			lines = append(lines, fmt.Sprintf("❌ %s: %s", s.Tool, o["error"]))
		default:
			lines = append(lines, fmt.Sprintf("✅ %s completed.", s.Tool))
		}
	}
	return strings.Join(lines, "\n")
}

func encode(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
