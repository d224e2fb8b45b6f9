package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/memory"
	"github.com/sweetpotato0/health-agent/message"
	"github.com/sweetpotato0/health-agent/oracle"
	"github.com/sweetpotato0/health-agent/pkg/logging"
	"github.com/sweetpotato0/health-agent/pkg/telemetry"
	"github.com/sweetpotato0/health-agent/retrieval"
	"github.com/sweetpotato0/health-agent/session"
	"github.com/sweetpotato0/health-agent/tool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMaxRetrievalLoops bounds local retrieval attempts per turn.
	DefaultMaxRetrievalLoops = 3
	// DefaultTopK is how many snippets each local search returns.
	DefaultTopK = 4

	// DefaultContextTokens caps how much retrieved text reaches the
	// synthesis prompt.
	DefaultContextTokens = 3000

	// webUnavailableNotice stands in for results when the remote search
	// fails. It flows through grading like any other document.
	webUnavailableNotice = "⚠️ 网络搜索暂时不可用"
)

// Machine runs one conversation turn through the answer pipeline. All
// collaborators are injected; only the oracle and the local searcher are
// required.
type Machine struct {
	oracle  oracle.Client
	local   retrieval.Searcher
	web     retrieval.WebSearcher
	tools   *tool.Invoker
	memory  *memory.Gateway
	history *Compactor
	router  RouterConfig

	maxLoops      int
	topK          int
	tokenizer     retrieval.Tokenizer
	contextTokens int
	logger        *slog.Logger
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithWebSearch enables the remote fallback source.
func WithWebSearch(w retrieval.WebSearcher) MachineOption {
	return func(m *Machine) { m.web = w }
}

// WithToolInvoker enables the metric-assessment pre-step.
func WithToolInvoker(inv *tool.Invoker) MachineOption {
	return func(m *Machine) { m.tools = inv }
}

// WithMemoryGateway enables profile loading and fact extraction for
// signed-in users.
func WithMemoryGateway(gw *memory.Gateway) MachineOption {
	return func(m *Machine) { m.memory = gw }
}

// WithHistoryCompactor bounds per-session history growth.
func WithHistoryCompactor(c *Compactor) MachineOption {
	return func(m *Machine) { m.history = c }
}

// WithRouterConfig overrides the mode-detection keyword sets.
func WithRouterConfig(cfg RouterConfig) MachineOption {
	return func(m *Machine) { m.router = cfg }
}

// WithMaxRetrievalLoops overrides the local retry budget.
func WithMaxRetrievalLoops(n int) MachineOption {
	return func(m *Machine) {
		if n > 0 {
			m.maxLoops = n
		}
	}
}

// WithTopK overrides how many documents each local search returns.
func WithTopK(k int) MachineOption {
	return func(m *Machine) {
		if k > 0 {
			m.topK = k
		}
	}
}

// WithTokenizer replaces the heuristic token counter behind the synthesis
// context budget; pair it with the tiktoken implementation for exact counts.
func WithTokenizer(t retrieval.Tokenizer) MachineOption {
	return func(m *Machine) {
		if t != nil {
			m.tokenizer = t
		}
	}
}

// WithContextTokens overrides the retrieved-context token budget.
func WithContextTokens(n int) MachineOption {
	return func(m *Machine) {
		if n > 0 {
			m.contextTokens = n
		}
	}
}

// WithMachineLogger sets the logger.
func WithMachineLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMachine builds a Machine around a language oracle and a local document
// source.
func NewMachine(client oracle.Client, local retrieval.Searcher, opts ...MachineOption) *Machine {
	m := &Machine{
		oracle:        client,
		local:         local,
		router:        DefaultRouterConfig(),
		maxLoops:      DefaultMaxRetrievalLoops,
		topK:          DefaultTopK,
		tokenizer:     retrieval.HeuristicTokenizer{},
		contextTokens: DefaultContextTokens,
		logger:        logging.WithComponent("conversation"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes one turn: the user message is appended to the session, the
// pipeline produces a report, and the report is appended as the assistant
// reply. Oracle and retrieval failures degrade inside the pipeline; Run only
// fails on unusable input or a closed session.
func (m *Machine) Run(ctx context.Context, sess *session.Session, input string) (string, error) {
	if sess == nil {
		return "", fmt.Errorf("conversation: nil session: %w", errorskg.ErrInvalidInput)
	}
	if !sess.Active() {
		return "", errorskg.ErrSessionClosed
	}
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("conversation: empty input: %w", errorskg.ErrInvalidInput)
	}

	if m.history != nil {
		if msgs := sess.Messages(); m.history.ShouldCompact(msgs) {
			sess.SetMessages(m.history.Compact(ctx, msgs))
		}
	}

	turn := &Turn{
		UserID:   sess.UserID(),
		Input:    input,
		Question: input,
	}
	sess.Append(message.NewUserMessage(input))

	ctx, span := telemetry.Tracer("conversation").Start(ctx, "conversation.turn",
		trace.WithAttributes(attribute.String("session.id", sess.ID())))
	if err := m.run(ctx, turn); err != nil {
		telemetry.End(span, err)
		return "", err
	}
	span.SetAttributes(
		attribute.String("conversation.mode", turn.Mode.String()),
		attribute.Int("conversation.loop_step", turn.LoopStep),
		attribute.Bool("conversation.web_search", turn.UsedWebSearch),
	)
	telemetry.End(span, nil)

	sess.Append(message.NewAssistantMessage(turn.FinalAnswer))
	return turn.FinalAnswer, nil
}

// run drives the transition function until the turn is done. The worst-case
// walk is router, assess, maxLoops retrieve/grade pairs, one web fallback
// with its re-grade, and the summarizer; the ceiling leaves headroom beyond
// that so it only fires on a genuine transition bug.
func (m *Machine) run(ctx context.Context, turn *Turn) error {
	limit := 2*m.maxLoops + 8
	state := StateRouter
	for steps := 0; state != StateDone; steps++ {
		if steps >= limit {
			return fmt.Errorf("conversation: machine exceeded %d transitions in state %s: %w",
				limit, state, errorskg.ErrInternal)
		}
		next, err := m.step(ctx, turn, state)
		if err != nil {
			return err
		}
		state = next
	}
	return nil
}

// step executes one pipeline state and returns the next.
func (m *Machine) step(ctx context.Context, turn *Turn, state State) (State, error) {
	if err := ctx.Err(); err != nil {
		return StateDone, err
	}

	switch state {
	case StateRouter:
		return m.route(ctx, turn), nil
	case StateAssessTool:
		return m.assess(ctx, turn), nil
	case StateRetrieve:
		return m.retrieve(ctx, turn), nil
	case StateGrade:
		return m.grade(ctx, turn), nil
	case StateWebSearch:
		return m.webSearch(ctx, turn), nil
	case StateSummarize:
		turn.FinalAnswer = renderReport(turn)
		return StateDone, nil
	default:
		return StateDone, fmt.Errorf("conversation: unknown state %d: %w", state, errorskg.ErrInternal)
	}
}

// route loads the user context and classifies the message. Fact extraction
// is best effort: the gateway swallows oracle failures so a flaky extractor
// never blocks an answer.
func (m *Machine) route(ctx context.Context, turn *Turn) State {
	if m.memory != nil && !memory.IsAnonymous(turn.UserID) {
		m.memory.Remember(ctx, turn.UserID, turn.Input)
		turn.HealthProfile = m.memory.ProfileText(ctx, turn.UserID)
	}

	turn.Mode = m.router.DetectMode(turn.Input)
	turn.LoopStep = 0
	turn.Documents = nil
	turn.UsedWebSearch = false

	m.logger.Debug("routed message",
		"mode", turn.Mode.String(),
		"science_score", countMatches(strings.ToLower(turn.Input), m.router.ScienceKeywords),
		"has_profile", turn.HealthProfile != "")

	if turn.Mode == ModeAssessment {
		return StateAssessTool
	}
	return StateRetrieve
}

// assess runs the metric tools over the raw message. Per-call failures are
// already folded into the output text by the invoker.
func (m *Machine) assess(ctx context.Context, turn *Turn) State {
	if m.tools == nil {
		turn.ToolOutput = tool.NoDataMessage
		return StateRetrieve
	}
	turn.ToolOutput = m.tools.Invoke(ctx, turn.Question)
	return StateRetrieve
}

// retrieve queries the knowledge base. When an assessment ran first, the
// query is steered toward advice for the computed results. Search failure
// degrades to an empty set and lets grading drive the retry.
func (m *Machine) retrieve(ctx context.Context, turn *Turn) State {
	query := turn.Question
	if turn.ToolOutput != "" {
		query += " 健康建议"
	}

	docs, err := m.local.Search(ctx, query, m.topK)
	if err != nil {
		m.logger.Warn("knowledge base search failed", "error", err, "query", query)
		docs = nil
	}

	turn.Documents = docs
	turn.LoopStep++
	m.logger.Debug("retrieved documents", "count", len(docs), "loop_step", turn.LoopStep)
	return StateGrade
}

// grade decides the fate of the current document set: synthesize when
// relevant, rewrite and retry while budget remains, escalate to the web
// once, and finally force a best-effort answer.
func (m *Machine) grade(ctx context.Context, turn *Turn) State {
	if m.gradeDocuments(ctx, turn) {
		turn.RagOutput = m.complete(ctx, synthesisPrompt(turn, m.contextWindow(turn)), "synthesis")
		return StateSummarize
	}

	if turn.LoopStep >= m.maxLoops {
		if !turn.UsedWebSearch {
			return StateWebSearch
		}
		turn.RagOutput = m.complete(ctx, fallbackPrompt(turn, m.contextWindow(turn)), "fallback synthesis")
		return StateSummarize
	}

	if rewritten := m.complete(ctx, rewritePrompt(turn.Question), "query rewrite"); rewritten != "" {
		m.logger.Debug("rewrote query", "from", turn.Question, "to", rewritten)
		turn.Question = rewritten
	}
	return StateRetrieve
}

// gradeDocuments asks the oracle whether the retrieved set answers the
// question. Empty sets and oracle failures grade as irrelevant, which sends
// the loop back through retry.
func (m *Machine) gradeDocuments(ctx context.Context, turn *Turn) bool {
	if len(turn.Documents) == 0 {
		return false
	}
	raw, err := m.oracle.Complete(ctx, gradePrompt(turn.Question, turn.Documents))
	if err != nil {
		m.logger.Warn("document grading failed", "error", err)
		return false
	}
	return strings.Contains(strings.ToLower(strings.TrimSpace(raw)), "yes")
}

// webSearch is the one-shot remote fallback. Both outcomes mark the turn as
// web-assisted so the loop can never escalate twice; failure leaves a
// placeholder document behind.
func (m *Machine) webSearch(ctx context.Context, turn *Turn) State {
	turn.UsedWebSearch = true

	if m.web == nil {
		turn.Documents = placeholderDocuments()
		m.logger.Debug("web search not configured, using placeholder")
		return StateGrade
	}

	docs, err := m.web.Search(ctx, turn.Question)
	if err != nil {
		m.logger.Warn("web search failed", "error", err)
		turn.Documents = placeholderDocuments()
		return StateGrade
	}

	turn.Documents = docs
	m.logger.Debug("web search returned", "count", len(docs))
	return StateGrade
}

// contextWindow joins the document bodies and trims them to the token
// budget so synthesis never overruns the model window.
func (m *Machine) contextWindow(turn *Turn) string {
	joined := strings.Join(retrieval.Contents(turn.Documents), "\n\n")
	return retrieval.TruncateByTokens(m.tokenizer, joined, m.contextTokens)
}

// complete wraps an oracle call with the degrade-to-empty policy.
func (m *Machine) complete(ctx context.Context, prompt, stage string) string {
	raw, err := m.oracle.Complete(ctx, prompt)
	if err != nil {
		m.logger.Warn("oracle call failed", "stage", stage, "error", err)
		return ""
	}
	return strings.TrimSpace(raw)
}

func placeholderDocuments() []retrieval.Document {
	return []retrieval.Document{{
		Content: webUnavailableNotice,
		Source:  retrieval.SourceWeb,
	}}
}
