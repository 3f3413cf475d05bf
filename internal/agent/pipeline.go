package agent

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agrobot/internal/domain"
	"agrobot/internal/extract"
	"agrobot/internal/identity"
	"agrobot/internal/intent"
	"agrobot/internal/store"
)

// User-facing replies for the failure paths. Nothing in the pipeline is
// fatal: every path resolves to one of these or to the orchestrator's text.
const (
	replyUnauthorized  = "Tu número no está autorizado para usar este servicio. Contactá al administrador si creés que es un error."
	replyAudioFailed   = "No pude procesar el audio. Probá de nuevo o mandá el mensaje por texto."
	replyAudioDecode   = "No pude decodificar el formato del audio. Mandá el mensaje por texto, por favor."
	replyAudioEmpty    = "No escuché nada en el audio. ¿Podés repetirlo o mandarlo por texto?"
	replyUnclear       = "No me queda claro qué querés hacer. Contame por ejemplo: \"crear un trabajo de siembra en el campo X\" o \"gasté 50000 en gasoil\"."
	replyInternalError = "Hubo un problema procesando tu mensaje. Probá de nuevo en un rato."

	audioSuffix = "\n\n(procesado desde audio)"
)

// Pipeline is the synchronous message path: identity, optional
// transcription, extraction hints, intent pre-filter, orchestration.
type Pipeline struct {
	resolver     *identity.Resolver
	store        *store.Store
	transcriber  domain.Transcriber
	classifier   *intent.Classifier // nil when the pre-filter is disabled
	orchestrator *Orchestrator
	fetcher      MediaFetcher
	audio        *AudioStore
	logger       *slog.Logger
	now          func() time.Time
}

type PipelineConfig struct {
	Resolver     *identity.Resolver
	Store        *store.Store
	Transcriber  domain.Transcriber
	Classifier   *intent.Classifier
	Orchestrator *Orchestrator
	Fetcher      MediaFetcher
	Audio        *AudioStore
	Logger       *slog.Logger
	Now          func() time.Time // test hook
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{
		resolver:     cfg.Resolver,
		store:        cfg.Store,
		transcriber:  cfg.Transcriber,
		classifier:   cfg.Classifier,
		orchestrator: cfg.Orchestrator,
		fetcher:      cfg.Fetcher,
		audio:        cfg.Audio,
		logger:       cfg.Logger,
		now:          cfg.Now,
	}
}

// Handle processes one inbound message and always returns reply text.
func (p *Pipeline) Handle(ctx context.Context, msg domain.InboundMessage) string {
	user, err := p.resolver.Resolve(ctx, msg.From)
	if err != nil {
		if !errors.Is(err, identity.ErrUnauthorized) {
			p.logger.Error("identity resolution failed", "error", err)
			return replyInternalError
		}
		return replyUnauthorized
	}

	text := msg.Text
	fromAudio := false
	if msg.IsAudio() {
		transcribed, reply := p.transcribeAudio(ctx, msg)
		if reply != "" {
			return reply
		}
		text = transcribed
		fromAudio = true
	}
	if strings.TrimSpace(text) == "" {
		return replyUnclear
	}

	reply := p.process(ctx, user, text)
	if fromAudio {
		reply += audioSuffix
	}
	return reply
}

// transcribeAudio downloads the voice note, transcribes it, and cleans the
// artifact up. A non-empty second return is the final user reply for a
// failed attempt.
func (p *Pipeline) transcribeAudio(ctx context.Context, msg domain.InboundMessage) (string, string) {
	p.audio.Sweep()

	body, err := p.fetcher.FetchMedia(ctx, msg.AudioURL)
	if err != nil {
		p.logger.Error("media download failed", "error", err)
		return "", replyAudioFailed
	}
	defer body.Close()

	path, err := p.audio.Save(body, extFor(msg.MediaType))
	if err != nil {
		p.logger.Error("audio artifact save failed", "error", err)
		return "", replyAudioFailed
	}

	f, err := os.Open(path)
	if err != nil {
		p.logger.Error("audio artifact open failed", "error", err)
		return "", replyAudioFailed
	}
	text, err := p.transcriber.Transcribe(ctx, f, filepath.Base(path), "es")
	f.Close()
	if err != nil {
		// The artifact stays for inspection; the sweep will reap it.
		p.logger.Error("transcription failed", "artifact", path, "error", err)
		if errors.Is(err, domain.ErrAudioDecode) {
			return "", replyAudioDecode
		}
		return "", replyAudioFailed
	}
	p.audio.Remove(path)

	if strings.TrimSpace(text) == "" {
		return "", replyAudioEmpty
	}
	p.logger.Info("audio transcribed", "chars", len(text))
	return text, ""
}

// process runs the text path: extraction hints, the intent pre-filter, then
// the orchestrator.
func (p *Pipeline) process(ctx context.Context, user *domain.User, text string) string {
	hints := extract.Extract(text, p.now())

	if p.classifier != nil {
		result, err := p.classifier.Classify(ctx, text)
		if err != nil {
			// Classification is a gate, not a dependency: fall through.
			p.logger.Warn("intent classification failed", "error", err)
		} else {
			p.logger.Info("intent", "name", result.Intent, "score", result.Score, "threshold", p.classifier.Threshold())
			if !p.classifier.Accepts(result) {
				return replyUnclear
			}
		}
	}

	ts := p.store.ForTenant(user.ID)
	reply, err := p.orchestrator.Run(ctx, ts, user.Name, text, hints.Block())
	if err != nil {
		p.logger.Error("orchestration failed", "user", user.ID, "error", err)
		return replyInternalError
	}
	return reply
}
