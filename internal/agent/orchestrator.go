package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"agrobot/internal/domain"
	"agrobot/internal/store"
	"agrobot/internal/tool"
)

// readbackTemperature is used for the second model round that phrases
// read-only results. Low so listings stay close to the data.
const readbackTemperature = 0.2

// Orchestrator runs the two-phase tool dispatch for one message: a model
// round that picks tool calls, sequential execution, then a terminal branch
// decided from the folded outcomes.
type Orchestrator struct {
	provider    domain.Provider
	registry    *tool.Registry
	logger      *slog.Logger
	model       string
	maxTokens   int
	temperature float64
	now         func() time.Time
}

type OrchestratorConfig struct {
	Provider    domain.Provider
	Registry    *tool.Registry
	Model       string
	MaxTokens   int
	Temperature float64 // first round only; the readback pins its own
	Logger      *slog.Logger
	Now         func() time.Time // test hook
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		provider:    cfg.Provider,
		registry:    cfg.Registry,
		logger:      cfg.Logger,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		now:         cfg.Now,
	}
}

// ExecutedCall pairs one tool call with its outcome.
type ExecutedCall struct {
	Call    domain.ToolCall
	Outcome *domain.ToolOutcome
}

// Run processes one user message and returns the reply text.
func (o *Orchestrator) Run(ctx context.Context, ts *store.TenantStore, userName, text, hints string) (string, error) {
	content := text
	if hints != "" {
		content = text + "\n\n" + hints
	}
	messages := []domain.Message{
		{Role: "system", Content: systemPrompt(userName, o.now())},
		{Role: "user", Content: content},
	}

	resp, err := o.provider.Chat(ctx, domain.ChatRequest{
		Messages:    messages,
		Tools:       o.registry.GetDefinitions(),
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("first model round: %w", err)
	}

	if !resp.HasToolCalls() {
		if strings.TrimSpace(resp.Content) == "" {
			return "No entendí qué querés hacer. ¿Podés reformularlo?", nil
		}
		return resp.Content, nil
	}

	executed := o.executeAll(ctx, ts, resp.ToolCalls)
	return o.resolve(ctx, ts, messages, resp, executed)
}

// executeAll runs the calls in order. Execution never stops midway: later
// outcomes are part of the same turn's report.
func (o *Orchestrator) executeAll(ctx context.Context, ts *store.TenantStore, calls []domain.ToolCall) []ExecutedCall {
	executed := make([]ExecutedCall, 0, len(calls))
	for _, call := range calls {
		out, err := o.registry.Execute(ctx, ts, call.Name, call.Arguments)
		if err != nil {
			out = domain.Errorf("error interno ejecutando %s: %v", call.Name, err)
		}
		o.logger.Info("tool executed",
			"tool", call.Name,
			"status", string(out.Status),
			"write", out.Write,
		)
		executed = append(executed, ExecutedCall{Call: call, Outcome: out})
	}
	return executed
}

// resolve picks the terminal branch:
//
//  1. any error outcome: report the errors, no second round;
//  2. any guard branch (duplicate, ambiguity, missing data): relay the
//     guard's own question, never auto-resolve;
//  3. all success with at least one write: confirmation derived from the
//     outcomes, so it can never contradict what was committed;
//  4. all success, reads only: second model round phrases the results.
func (o *Orchestrator) resolve(ctx context.Context, ts *store.TenantStore, messages []domain.Message, first *domain.ChatResponse, executed []ExecutedCall) (string, error) {
	var errs, branches, successes []string
	wrote := false
	for _, ec := range executed {
		switch {
		case ec.Outcome.Status == domain.OutcomeError:
			errs = append(errs, ec.Outcome.Message)
		case ec.Outcome.IsBranch():
			branches = append(branches, ec.Outcome.Message)
		default:
			successes = append(successes, ec.Outcome.Message)
			if ec.Outcome.Write {
				wrote = true
			}
		}
	}

	if len(errs) > 0 {
		return strings.Join(errs, "\n"), nil
	}
	if len(branches) > 0 {
		return strings.Join(branches, "\n"), nil
	}
	if wrote {
		return strings.Join(successes, "\n"), nil
	}
	return o.readback(ctx, messages, first, executed)
}

// readback sends the tool results back for natural phrasing. Tools are not
// offered again; this round only writes prose.
func (o *Orchestrator) readback(ctx context.Context, messages []domain.Message, first *domain.ChatResponse, executed []ExecutedCall) (string, error) {
	msgs := append([]domain.Message{}, messages...)
	msgs = append(msgs, domain.Message{
		Role:      "assistant",
		Content:   first.Content,
		ToolCalls: first.ToolCalls,
	})
	for _, ec := range executed {
		payload, err := json.Marshal(ec.Outcome)
		if err != nil {
			payload = []byte(ec.Outcome.Message)
		}
		msgs = append(msgs, domain.Message{
			Role:       "tool",
			Content:    string(payload),
			ToolCallID: ec.Call.ID,
			ToolName:   ec.Call.Name,
		})
	}
	msgs = append(msgs, domain.Message{Role: "system", Content: readbackPrompt})

	resp, err := o.provider.Chat(ctx, domain.ChatRequest{
		Messages:    msgs,
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		Temperature: readbackTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("readback round: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		// Fall back to the raw result messages rather than an empty reply.
		lines := make([]string, 0, len(executed))
		for _, ec := range executed {
			lines = append(lines, ec.Outcome.Message)
		}
		return strings.Join(lines, "\n"), nil
	}
	return resp.Content, nil
}
