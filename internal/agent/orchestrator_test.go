package agent

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agrobot/internal/domain"
	"agrobot/internal/store"
	"agrobot/internal/tool"
)

var fixedNow = func() time.Time {
	return time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stubProvider plays back scripted responses and records every request.
type stubProvider struct {
	responses []*domain.ChatResponse
	requests  []domain.ChatRequest
}

func (s *stubProvider) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return &domain.ChatResponse{Content: "sin respuesta", FinishReason: "stop"}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *stubProvider) Name() string                    { return "stub" }
func (s *stubProvider) Healthy(_ context.Context) error { return nil }

func toolCallResponse(calls ...domain.ToolCall) *domain.ChatResponse {
	return &domain.ChatResponse{ToolCalls: calls, FinishReason: "tool_calls"}
}

func testEnv(t *testing.T, p domain.Provider) (*Orchestrator, *store.TenantStore) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	userID, err := s.CreateUser(context.Background(), domain.User{Name: "Ana", Phone: "+5491100000001", Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	registry := tool.NewRegistry(testLogger())
	tool.RegisterAll(registry, fixedNow)

	o := NewOrchestrator(OrchestratorConfig{
		Provider: p,
		Registry: registry,
		Logger:   testLogger(),
		Now:      fixedNow,
	})
	return o, s.ForTenant(userID)
}

func TestRunWriteSuccessIsDeterministic(t *testing.T) {
	p := &stubProvider{responses: []*domain.ChatResponse{
		toolCallResponse(domain.ToolCall{
			ID:   "c1",
			Name: "create_field",
			Arguments: map[string]any{
				"name": "La Esperanza", "hectares": 120.0,
			},
		}),
	}}
	o, ts := testEnv(t, p)

	reply, err := o.Run(context.Background(), ts, "Ana", "crear campo La Esperanza de 120 hectareas", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(reply, "La Esperanza") || !strings.Contains(reply, "creado") {
		t.Errorf("reply = %q", reply)
	}
	// A committed write never gets a second model round.
	if len(p.requests) != 1 {
		t.Errorf("provider calls = %d, want 1", len(p.requests))
	}

	fields, err := ts.FindFieldByName(context.Background(), "La Esperanza")
	if err != nil || len(fields) != 1 {
		t.Fatalf("field not persisted: %v %v", fields, err)
	}
}

func TestRunDuplicateBranchRelaysGuardQuestion(t *testing.T) {
	call := domain.ToolCall{
		ID: "c1", Name: "create_field",
		Arguments: map[string]any{"name": "La Esperanza", "hectares": 120.0},
	}
	p := &stubProvider{responses: []*domain.ChatResponse{toolCallResponse(call)}}
	o, ts := testEnv(t, p)

	if _, err := ts.CreateField(context.Background(), domain.Field{Name: "La Esperanza", Hectares: 120}); err != nil {
		t.Fatalf("CreateField: %v", err)
	}

	reply, err := o.Run(context.Background(), ts, "Ana", "crear campo La Esperanza", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(reply, "Ya existe") {
		t.Errorf("reply does not relay the duplicate question: %q", reply)
	}
	if len(p.requests) != 1 {
		t.Errorf("provider calls = %d, want 1 (guard questions skip the readback)", len(p.requests))
	}

	// Still exactly one row.
	fields, _ := ts.FindFieldByName(context.Background(), "La Esperanza")
	if len(fields) != 1 {
		t.Errorf("rows = %d, want 1", len(fields))
	}
}

func TestRunErrorShortCircuits(t *testing.T) {
	p := &stubProvider{responses: []*domain.ChatResponse{
		toolCallResponse(
			domain.ToolCall{ID: "c1", Name: "create_work_order", Arguments: map[string]any{
				"work_type": "siembra", "field_name": "No Existe",
			}},
			domain.ToolCall{ID: "c2", Name: "get_fields", Arguments: map[string]any{}},
		),
	}}
	o, ts := testEnv(t, p)

	reply, err := o.Run(context.Background(), ts, "Ana", "sembrar en No Existe", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(reply, "No Existe") {
		t.Errorf("reply lacks the failing name: %q", reply)
	}
	if len(p.requests) != 1 {
		t.Errorf("provider calls = %d, want 1 (errors skip the readback)", len(p.requests))
	}
}

func TestRunReadOnlyGetsReadback(t *testing.T) {
	p := &stubProvider{responses: []*domain.ChatResponse{
		toolCallResponse(domain.ToolCall{ID: "c1", Name: "get_fields", Arguments: map[string]any{}}),
		{Content: "Tenés un campo: La Esperanza de 120 ha.", FinishReason: "stop"},
	}}
	o, ts := testEnv(t, p)

	if _, err := ts.CreateField(context.Background(), domain.Field{Name: "La Esperanza", Hectares: 120}); err != nil {
		t.Fatalf("CreateField: %v", err)
	}

	reply, err := o.Run(context.Background(), ts, "Ana", "qué campos tengo", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply != "Tenés un campo: La Esperanza de 120 ha." {
		t.Errorf("reply = %q", reply)
	}
	if len(p.requests) != 2 {
		t.Fatalf("provider calls = %d, want 2", len(p.requests))
	}

	second := p.requests[1]
	if len(second.Tools) != 0 {
		t.Error("readback round offered tools again")
	}
	if second.Temperature != readbackTemperature {
		t.Errorf("readback temperature = %v, want %v", second.Temperature, readbackTemperature)
	}
	// The tool results travel as tool-role messages.
	foundToolMsg := false
	for _, m := range second.Messages {
		if m.Role == "tool" && m.ToolCallID == "c1" {
			foundToolMsg = true
		}
	}
	if !foundToolMsg {
		t.Error("readback request lacks the tool result message")
	}
}

func TestRunPlainAnswerPassesThrough(t *testing.T) {
	p := &stubProvider{responses: []*domain.ChatResponse{
		{Content: "Hola, ¿en qué te ayudo?", FinishReason: "stop"},
	}}
	o, ts := testEnv(t, p)

	reply, err := o.Run(context.Background(), ts, "Ana", "hola", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply != "Hola, ¿en qué te ayudo?" {
		t.Errorf("reply = %q", reply)
	}
}

func TestRunHintsAppendedToUserMessage(t *testing.T) {
	p := &stubProvider{responses: []*domain.ChatResponse{
		{Content: "ok", FinishReason: "stop"},
	}}
	o, ts := testEnv(t, p)

	hints := "Datos detectados en el mensaje:\n- campo: La Esperanza"
	if _, err := o.Run(context.Background(), ts, "Ana", "crear campo", hints); err != nil {
		t.Fatalf("Run: %v", err)
	}
	user := p.requests[0].Messages[1]
	if user.Role != "user" || !strings.Contains(user.Content, "La Esperanza") {
		t.Errorf("user message = %+v", user)
	}
}
