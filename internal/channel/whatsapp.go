package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"time"

	"agrobot/internal/config"
	"agrobot/internal/domain"
)

const whatsappAPIBase = "https://graph.facebook.com/v21.0"

const replyUnsupportedMedia = "Por ahora solo puedo procesar mensajes de texto y audios. Mandame el pedido por alguno de esos medios."

// Handler turns an inbound message into reply text. *agent.Pipeline is the
// production implementation.
type Handler interface {
	Handle(ctx context.Context, msg domain.InboundMessage) string
}

// WhatsApp is the Cloud API webhook adapter. Messages run through the
// handler synchronously and the reply goes back over the messages
// endpoint.
type WhatsApp struct {
	cfg     config.WhatsAppConfig
	handler Handler
	logger  *slog.Logger
	client  *http.Client
	mux     *http.ServeMux
	apiBase string
}

type WhatsAppChannelConfig struct {
	Config  config.WhatsAppConfig
	Handler Handler
	Logger  *slog.Logger
	APIBase string // test hook, defaults to the Graph API
}

func NewWhatsApp(cfg WhatsAppChannelConfig) *WhatsApp {
	if cfg.APIBase == "" {
		cfg.APIBase = whatsappAPIBase
	}
	w := &WhatsApp{
		cfg:     cfg.Config,
		handler: cfg.Handler,
		logger:  cfg.Logger,
		client:  &http.Client{Timeout: 30 * time.Second},
		apiBase: cfg.APIBase,
	}

	w.mux = http.NewServeMux()
	webhookPath := w.cfg.WebhookPath
	if webhookPath == "" {
		webhookPath = "/webhook/whatsapp"
	}
	w.mux.HandleFunc("GET "+webhookPath, w.handleVerification)
	w.mux.HandleFunc("POST "+webhookPath, w.handleIncoming)

	w.logger.Info("whatsapp channel ready", "webhook", webhookPath)
	return w
}

func (w *WhatsApp) Name() string { return "whatsapp" }

// Handler returns the HTTP handler for the webhook (mounted on the main mux).
func (w *WhatsApp) Handler() http.Handler { return w.mux }

// handleVerification answers the subscription challenge.
func (w *WhatsApp) handleVerification(rw http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == w.cfg.VerifyToken {
		w.logger.Info("whatsapp webhook verified")
		rw.WriteHeader(http.StatusOK)
		fmt.Fprint(rw, html.EscapeString(challenge))
		return
	}

	w.logger.Warn("whatsapp webhook verification failed", "mode", mode)
	http.Error(rw, "Forbidden", http.StatusForbidden)
}

// handleIncoming verifies the signature, demuxes text and audio messages,
// runs the pipeline and sends the reply.
func (w *WhatsApp) handleIncoming(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(rw, "Bad request", http.StatusBadRequest)
		return
	}

	if w.cfg.AppSecret != "" {
		sig := r.Header.Get("X-Hub-Signature-256")
		if !w.verifySignature(body, sig) {
			w.logger.Warn("whatsapp invalid signature")
			http.Error(rw, "Forbidden", http.StatusForbidden)
			return
		}
	}

	var payload waPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		w.logger.Warn("whatsapp bad payload", "err", err)
		http.Error(rw, "Bad request", http.StatusBadRequest)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				w.dispatch(r.Context(), msg)
			}
		}
	}

	rw.WriteHeader(http.StatusOK)
}

func (w *WhatsApp) dispatch(ctx context.Context, msg waMessage) {
	inbound := domain.InboundMessage{From: msg.From, Timestamp: time.Now()}

	switch {
	case msg.Type == "text" && msg.Text != nil:
		inbound.Text = msg.Text.Body
	case msg.Type == "audio" && msg.Audio != nil:
		inbound.AudioURL = msg.Audio.ID
		inbound.MediaType = msg.Audio.MimeType
	default:
		w.logger.Info("whatsapp unsupported message type", "type", msg.Type, "from", msg.From)
		w.reply(ctx, msg.From, replyUnsupportedMedia)
		return
	}

	w.logger.Info("whatsapp message received",
		"from", msg.From, "type", msg.Type, "text_len", len(inbound.Text))

	reply := w.handler.Handle(ctx, inbound)
	w.reply(ctx, msg.From, reply)
}

func (w *WhatsApp) reply(ctx context.Context, to, text string) {
	if err := w.sendMessage(ctx, to, text); err != nil {
		w.logger.Error("whatsapp send failed", "err", err, "to", to)
	}
}

// verifySignature checks the X-Hub-Signature-256 header.
func (w *WhatsApp) verifySignature(body []byte, signature string) bool {
	if len(signature) < 7 || signature[:7] != "sha256=" {
		return false
	}
	expected := signature[7:]

	mac := hmac.New(sha256.New, []byte(w.cfg.AppSecret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(computed))
}

// FetchMedia implements agent.MediaFetcher: a media id resolves to a
// download URL, which needs the same bearer token to fetch.
func (w *WhatsApp) FetchMedia(ctx context.Context, mediaID string) (io.ReadCloser, error) {
	metaReq, err := http.NewRequestWithContext(ctx, "GET", w.apiBase+"/"+mediaID, nil)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}
	metaReq.Header.Set("Authorization", "Bearer "+w.cfg.AccessToken)

	metaResp, err := w.client.Do(metaReq)
	if err != nil {
		return nil, fmt.Errorf("media metadata: %w", err)
	}
	defer metaResp.Body.Close()
	if metaResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(metaResp.Body)
		return nil, fmt.Errorf("media metadata %d: %s", metaResp.StatusCode, string(respBody))
	}

	var meta struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(metaResp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode media metadata: %w", err)
	}
	if meta.URL == "" {
		return nil, fmt.Errorf("media %s has no download url", mediaID)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", meta.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.cfg.AccessToken)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("media download %d: %s", resp.StatusCode, string(respBody))
	}
	return resp.Body, nil
}

// sendMessage posts a text message through the Cloud API.
func (w *WhatsApp) sendMessage(ctx context.Context, to string, text string) error {
	url := fmt.Sprintf("%s/%s/messages", w.apiBase, w.cfg.PhoneNumberID)

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.cfg.AccessToken)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp API %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// --- Webhook payload types ---

type waPayload struct {
	Object string    `json:"object"`
	Entry  []waEntry `json:"entry"`
}

type waEntry struct {
	ID      string     `json:"id"`
	Changes []waChange `json:"changes"`
}

type waChange struct {
	Value waValue `json:"value"`
	Field string  `json:"field"`
}

type waValue struct {
	MessagingProduct string      `json:"messaging_product"`
	Messages         []waMessage `json:"messages"`
}

type waMessage struct {
	From  string   `json:"from"`
	ID    string   `json:"id"`
	Type  string   `json:"type"`
	Text  *waText  `json:"text,omitempty"`
	Audio *waAudio `json:"audio,omitempty"`
}

type waText struct {
	Body string `json:"body"`
}

type waAudio struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
}
