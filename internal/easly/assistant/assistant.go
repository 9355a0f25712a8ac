// Package assistant runs one operator turn end to end: scope check, pending
// disambiguation, the deterministic rule cascade, action execution, and the
// agent loop with its local and offline fallbacks. Every turn is recorded in
// the client's chat history and the audit log.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopeasly/easly/common/redact"
	"github.com/shopeasly/easly/common/trace"
	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/agent"
	"github.com/shopeasly/easly/internal/easly/disambiguation"
	"github.com/shopeasly/easly/internal/easly/intent"
	"github.com/shopeasly/easly/internal/easly/llm"
	"github.com/shopeasly/easly/internal/easly/reply"
	"github.com/shopeasly/easly/internal/easly/scope"
	"github.com/shopeasly/easly/internal/easly/session"
	"github.com/shopeasly/easly/internal/easly/store"
)

// Sources name the path that answered a turn. Agent answers carry the
// provider name instead.
const (
	SourceDirect        = "direct"
	SourceGuardrail     = "guardrail"
	SourceLocalFallback = "local_fallback"
	SourceOffline       = "offline"
)

// AuditAction is the audit log action for an answered turn.
const AuditAction = "ai.request"

// ErrEmptyText is returned for a turn without text.
var ErrEmptyText = errors.New("assistant: missing text")

// OfflineMessage answers free-form questions when no model provider is
// configured.
const OfflineMessage = "🤖 AI is offline. Configure GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY or EASLY_LOCAL_LLM_URL in .env and restart the server for enhanced capabilities."

// LocalFallbackMessage answers free-form questions when every configured
// provider failed.
const LocalFallbackMessage = "⚠️ The AI providers are unavailable right now. Shop commands still work, for example \"inventory summary\", \"orders overview\", \"add 10 black t-shirts\" or \"mark order ORD-20250101-0001 as shipped\"."

// Request is one operator turn.
type Request struct {
	ClientID string
	Text     string
	// Attachment is an optional base64 image.
	Attachment string
}

// Response is the rendered answer.
type Response struct {
	Text     string          `json:"text"`
	Data     any             `json:"data,omitempty"`
	Action   *actions.Action `json:"action,omitempty"`
	Executed bool            `json:"executed,omitempty"`
	Awaiting reply.Awaiting  `json:"awaiting,omitempty"`
	Options  []reply.Option  `json:"options,omitempty"`
	Source   string          `json:"source"`
}

// History stores the conversation; *store.Store satisfies it.
type History interface {
	AppendChat(ctx context.Context, clientID, role, text, source string) error
}

// Deps are the collaborators of an Assistant. Agent, History and Audit may
// be nil.
type Deps struct {
	Scope    *scope.Filter
	Sessions *session.Manager
	Resolver *disambiguation.Resolver
	Matcher  *intent.Matcher
	Executor *actions.Executor
	Agent    *agent.Agent
	History  History
	Audit    actions.Auditor
}

// Assistant answers operator turns.
type Assistant struct {
	deps Deps
	now  func() time.Time

	// OnRule, when set, is called with the name of every matched rule.
	OnRule func(rule string)
	// OnAnswer, when set, is called once per answered turn.
	OnAnswer func(source string, elapsed time.Duration)
}

// New returns an Assistant. A nil Scope uses scope.Default.
func New(d Deps) *Assistant {
	if d.Scope == nil {
		d.Scope = scope.Default()
	}
	return &Assistant{deps: d, now: time.Now}
}

// Handle answers one turn. Errors are reserved for storage faults and
// ErrEmptyText; every model failure degrades to a fallback answer.
func (a *Assistant) Handle(ctx context.Context, req Request) (*Response, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}
	ctx, traceID := trace.Ensure(ctx)
	start := a.now()
	a.remember(ctx, req.ClientID, "user", text, "")

	resp, rule, err := a.answer(ctx, req.ClientID, text, req.Attachment)
	if err != nil {
		slog.Error("assistant turn failed", "trace_id", traceID, "client", req.ClientID, "rule", rule, "err", err)
		return nil, err
	}
	if rule != "" && a.OnRule != nil {
		a.OnRule(rule)
	}

	a.remember(ctx, req.ClientID, "assistant", resp.Text, resp.Source)
	a.record(ctx, traceID, req.ClientID, text, rule, resp)
	if a.OnAnswer != nil {
		a.OnAnswer(resp.Source, a.now().Sub(start))
	}
	return resp, nil
}

func (a *Assistant) answer(ctx context.Context, clientID, text, attachment string) (*Response, string, error) {
	if !a.deps.Scope.Allowed(text) {
		return &Response{Text: scope.OutOfScopeMessage, Source: SourceGuardrail}, "", nil
	}

	s, err := a.deps.Sessions.Get(ctx, clientID)
	if err != nil {
		return nil, "", err
	}

	if a.deps.Resolver != nil {
		rep, handled, err := a.deps.Resolver.Resolve(ctx, clientID, text, s)
		if err != nil {
			return nil, "", err
		}
		if handled {
			return a.direct(ctx, clientID, rep), "", nil
		}
	}

	rep, rule, matched, err := a.deps.Matcher.Match(ctx, intent.Input{
		ClientID:   clientID,
		Text:       text,
		Attachment: attachment,
		Session:    s,
	})
	if err != nil {
		return nil, rule, err
	}
	if matched {
		return a.direct(ctx, clientID, rep), rule, nil
	}

	return a.agent(ctx, clientID, text), "", nil
}

// direct renders a rule or resolver reply, running its action when the
// reply asks for it.
func (a *Assistant) direct(ctx context.Context, clientID string, rep reply.Reply) *Response {
	resp := &Response{
		Text:     rep.Text,
		Data:     rep.Data,
		Action:   rep.Action,
		Executed: rep.Executed,
		Awaiting: rep.Awaiting,
		Options:  rep.Options,
		Source:   SourceDirect,
	}
	if !rep.Execute || rep.Action == nil {
		return resp
	}

	res := a.deps.Executor.Execute(ctx, clientID, *rep.Action)
	resp.Text = res.Message
	resp.Executed = res.Success
	if res.Success {
		resp.Text += rep.Note
	}
	if res.Data != nil {
		resp.Data = res.Data
	}
	return resp
}

func (a *Assistant) agent(ctx context.Context, clientID, text string) *Response {
	if a.deps.Agent == nil {
		return &Response{Text: OfflineMessage, Source: SourceOffline}
	}

	res, err := a.deps.Agent.Run(ctx, clientID, text)
	switch {
	case errors.Is(err, llm.ErrNoProviders):
		return &Response{Text: OfflineMessage, Source: SourceOffline}
	case err != nil:
		slog.Warn("agent failed, answering locally", "client", clientID, "err", err)
		return &Response{Text: LocalFallbackMessage, Source: SourceLocalFallback}
	}

	resp := &Response{Text: res.Answer, Source: res.Provider}
	if resp.Source == "" {
		resp.Source = SourceLocalFallback
	}
	if len(res.Steps) > 0 {
		resp.Data = res.Steps
	}
	if res.Pending {
		resp.Awaiting = reply.AwaitingConfirmation
	}
	for _, st := range res.Steps {
		if r, ok := st.Outcome.(actions.Result); ok && r.Success {
			resp.Executed = true
		}
	}
	return resp
}

func (a *Assistant) remember(ctx context.Context, clientID, role, text, source string) {
	if a.deps.History == nil || clientID == "" {
		return
	}
	if err := a.deps.History.AppendChat(ctx, clientID, role, text, source); err != nil {
		slog.Warn("chat history write failed", "client", clientID, "err", err)
	}
}

func (a *Assistant) record(ctx context.Context, traceID, clientID, text, rule string, resp *Response) {
	if a.deps.Audit == nil {
		return
	}
	payload := store.AuditPayload{
		"prompt":   redact.String(text),
		"executed": resp.Executed,
	}
	if rule != "" {
		payload["rule"] = rule
	}
	if resp.Action != nil {
		payload["action"] = string(resp.Action.Type)
	}
	if err := a.deps.Audit.WriteAudit(ctx, traceID, clientID, AuditAction, resp.Source, store.AuditSuccess, payload, ""); err != nil {
		slog.Warn("audit write failed", "trace_id", traceID, "err", err)
	}
}
