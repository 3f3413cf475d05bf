package agent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agrobot/internal/domain"
	"agrobot/internal/identity"
	"agrobot/internal/intent"
	"agrobot/internal/store"
	"agrobot/internal/tool"
)

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ io.Reader, _, _ string) (string, error) {
	return s.text, s.err
}

type stubFetcher struct {
	data []byte
	err  error
}

func (s *stubFetcher) FetchMedia(_ context.Context, _ string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// rejectingEmbedder maps the probe message to a vector orthogonal to every
// example phrase, so the classifier never clears its threshold for it.
type rejectingEmbedder struct{ calls int }

func (e *rejectingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.calls++
	if strings.Contains(text, "zzz") {
		return []float64{0, 1}, nil
	}
	return []float64{1, 0}, nil
}

type pipelineEnv struct {
	pipeline *Pipeline
	provider *stubProvider
	store    *store.Store
	audioDir string
}

func newPipelineEnv(t *testing.T, cfg PipelineConfig) *pipelineEnv {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.CreateUser(context.Background(), domain.User{Name: "Ana", Phone: "+5491100000001", Active: true}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	p := &stubProvider{responses: []*domain.ChatResponse{
		{Content: "listo", FinishReason: "stop"},
	}}
	registry := tool.NewRegistry(testLogger())
	tool.RegisterAll(registry, fixedNow)

	audioDir := filepath.Join(t.TempDir(), "audio")
	audio, err := NewAudioStore(audioDir, testLogger())
	if err != nil {
		t.Fatalf("NewAudioStore: %v", err)
	}

	cfg.Resolver = identity.NewResolver(s, testLogger())
	cfg.Store = s
	cfg.Orchestrator = NewOrchestrator(OrchestratorConfig{
		Provider: p, Registry: registry, Logger: testLogger(), Now: fixedNow,
	})
	cfg.Audio = audio
	cfg.Logger = testLogger()
	cfg.Now = fixedNow
	return &pipelineEnv{
		pipeline: NewPipeline(cfg),
		provider: p,
		store:    s,
		audioDir: audioDir,
	}
}

func TestHandleUnauthorizedPhone(t *testing.T) {
	env := newPipelineEnv(t, PipelineConfig{})

	reply := env.pipeline.Handle(context.Background(), domain.InboundMessage{
		From: "+5491199999999", Text: "hola",
	})
	if reply != replyUnauthorized {
		t.Errorf("reply = %q", reply)
	}
	if len(env.provider.requests) != 0 {
		t.Error("provider was called for an unauthorized sender")
	}
}

func TestHandleTextMessage(t *testing.T) {
	env := newPipelineEnv(t, PipelineConfig{})

	reply := env.pipeline.Handle(context.Background(), domain.InboundMessage{
		From: "+5491100000001", Text: "hola",
	})
	if reply != "listo" {
		t.Errorf("reply = %q", reply)
	}
	if strings.Contains(reply, "(procesado desde audio)") {
		t.Error("text reply carries the audio marker")
	}
}

func TestHandleClassifierGate(t *testing.T) {
	emb := &rejectingEmbedder{}
	classifier := intent.NewClassifier(emb, 0.5, testLogger())
	env := newPipelineEnv(t, PipelineConfig{Classifier: classifier})

	reply := env.pipeline.Handle(context.Background(), domain.InboundMessage{
		From: "+5491100000001", Text: "zzz nada que ver",
	})
	if reply != replyUnclear {
		t.Errorf("reply = %q, want the clarification request", reply)
	}
	// Sub-threshold messages never reach the reasoning service.
	if len(env.provider.requests) != 0 {
		t.Errorf("provider calls = %d, want 0", len(env.provider.requests))
	}
}

func TestHandleAudioSuccess(t *testing.T) {
	env := newPipelineEnv(t, PipelineConfig{
		Transcriber: &stubTranscriber{text: "crear campo La Esperanza"},
		Fetcher:     &stubFetcher{data: []byte("OggS...")},
	})

	reply := env.pipeline.Handle(context.Background(), domain.InboundMessage{
		From: "+5491100000001", AudioURL: "media-123", MediaType: "audio/ogg",
	})
	if !strings.HasSuffix(reply, audioSuffix) {
		t.Errorf("audio reply lacks the marker: %q", reply)
	}

	// Successful transcription removes the artifact immediately.
	entries, err := os.ReadDir(env.audioDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("artifacts left after success: %d", len(entries))
	}
}

func TestHandleAudioFailureRetainsArtifact(t *testing.T) {
	env := newPipelineEnv(t, PipelineConfig{
		Transcriber: &stubTranscriber{err: fmt.Errorf("service unavailable")},
		Fetcher:     &stubFetcher{data: []byte("OggS...")},
	})

	reply := env.pipeline.Handle(context.Background(), domain.InboundMessage{
		From: "+5491100000001", AudioURL: "media-123", MediaType: "audio/ogg",
	})
	if reply != replyAudioFailed {
		t.Errorf("reply = %q", reply)
	}

	entries, err := os.ReadDir(env.audioDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("artifacts after failure = %d, want 1 (retained for the sweep)", len(entries))
	}
}

func TestHandleAudioDecodeError(t *testing.T) {
	env := newPipelineEnv(t, PipelineConfig{
		Transcriber: &stubTranscriber{err: fmt.Errorf("whisper 400: %w", domain.ErrAudioDecode)},
		Fetcher:     &stubFetcher{data: []byte("not audio")},
	})

	reply := env.pipeline.Handle(context.Background(), domain.InboundMessage{
		From: "+5491100000001", AudioURL: "media-123", MediaType: "audio/ogg",
	})
	if reply != replyAudioDecode {
		t.Errorf("reply = %q", reply)
	}
}

func TestHandleEmptyTranscription(t *testing.T) {
	env := newPipelineEnv(t, PipelineConfig{
		Transcriber: &stubTranscriber{text: "   "},
		Fetcher:     &stubFetcher{data: []byte("OggS...")},
	})

	reply := env.pipeline.Handle(context.Background(), domain.InboundMessage{
		From: "+5491100000001", AudioURL: "media-123", MediaType: "audio/ogg",
	})
	if reply != replyAudioEmpty {
		t.Errorf("reply = %q", reply)
	}
	if len(env.provider.requests) != 0 {
		t.Error("empty transcription still reached the provider")
	}
}

func TestAudioSweep(t *testing.T) {
	dir := t.TempDir()
	audio, err := NewAudioStore(dir, testLogger())
	if err != nil {
		t.Fatalf("NewAudioStore: %v", err)
	}

	old := filepath.Join(dir, "old.ogg")
	fresh := filepath.Join(dir, "fresh.ogg")
	for _, p := range []string{old, fresh} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	if removed := audio.Sweep(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh artifact was swept")
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old artifact survived the sweep")
	}
}
