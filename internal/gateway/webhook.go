// Package gateway receives inbound messages from external transports and
// hands them to the assistant.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/nhle/task-assistant/internal/assistant"
	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/scheduler"
)

// MessageHandler processes one inbound message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, in assistant.Inbound) error
}

// ReadMarker acknowledges an inbound WhatsApp message.
type ReadMarker interface {
	MarkAsRead(ctx context.Context, messageID string) error
}

const (
	// handleTimeout bounds the processing of one inbound message.
	handleTimeout   = time.Minute
	shutdownTimeout = 10 * time.Second
	maxPayloadBytes = 1 << 20
)

// JobRunner triggers a scheduler job out of turn.
type JobRunner interface {
	RunNow(name string) error
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Addr        string
	VerifyToken string
}

// Server exposes the WhatsApp webhook together with health and status
// endpoints.
type Server struct {
	cfg     ServerConfig
	handler MessageHandler
	logger  *zap.Logger

	// Optional collaborators.
	reader ReadMarker
	status func(ctx context.Context) (any, error)
	jobs   JobRunner

	inflight sync.WaitGroup
}

// NewServer creates a Server delivering webhook messages to h.
func NewServer(cfg ServerConfig, h MessageHandler, logger *zap.Logger) *Server {
	return &Server{
		cfg:     cfg,
		handler: h,
		logger:  logger.Named("gateway"),
	}
}

// SetReadMarker makes the server acknowledge each inbound message.
func (s *Server) SetReadMarker(r ReadMarker) { s.reader = r }

// SetStatus sets the function rendering GET /status.
func (s *Server) SetStatus(fn func(ctx context.Context) (any, error)) { s.status = fn }

// SetJobRunner enables POST /jobs/{name}/run, authorized with the verify
// token as a bearer token.
func (s *Server) SetJobRunner(r JobRunner) { s.jobs = r }

// Handler returns the routes wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /webhook", s.verify)
	mux.HandleFunc("POST /webhook", s.receive)
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /status", s.statusHandler)
	mux.HandleFunc("POST /jobs/{name}/run", s.runJob)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// and waits for in-flight messages.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	s.Wait()
	return nil
}

// Wait blocks until every accepted message has been processed.
func (s *Server) Wait() {
	s.inflight.Wait()
}

// verify answers the webhook subscription handshake.
func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || s.cfg.VerifyToken == "" || token != s.cfg.VerifyToken {
		s.logger.Warn("webhook verification failed", zap.String("mode", mode))
		w.WriteHeader(http.StatusForbidden)
		return
	}

	s.logger.Info("webhook verified")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string       `json:"field"`
			Value webhookValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookValue struct {
	Contacts []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []struct {
		From      string `json:"from"`
		ID        string `json:"id"`
		Timestamp string `json:"timestamp"`
		Type      string `json:"type"`
		Text      *struct {
			Body string `json:"body"`
		} `json:"text"`
	} `json:"messages"`
}

// firstMessage extracts the first text message of the payload. Status
// callbacks and non-text messages yield false.
func (p webhookPayload) firstMessage() (assistant.Inbound, bool) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return assistant.Inbound{}, false
	}
	v := p.Entry[0].Changes[0].Value
	if len(v.Messages) == 0 {
		return assistant.Inbound{}, false
	}
	m := v.Messages[0]
	if m.Type != "text" || m.Text == nil {
		return assistant.Inbound{}, false
	}

	in := assistant.Inbound{
		Channel:   model.ChannelWhatsApp,
		From:      m.From,
		Text:      m.Text.Body,
		MessageID: m.ID,
	}
	if len(v.Contacts) > 0 {
		in.ProfileName = v.Contacts[0].Profile.Name
	}
	return in, true
}

// receive acknowledges every delivery with 200 so the platform does not
// retry, and processes text messages in the background.
func (s *Server) receive(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	var payload webhookPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes)).Decode(&payload); err != nil {
		s.logger.Warn("decoding webhook payload", zap.Error(err))
		return
	}

	in, ok := payload.firstMessage()
	if !ok {
		s.logger.Debug("webhook without text message", zap.String("object", payload.Object))
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), handleTimeout)
		defer cancel()
		s.process(ctx, in)
	}()
}

func (s *Server) process(ctx context.Context, in assistant.Inbound) {
	if s.reader != nil && in.MessageID != "" {
		if err := s.reader.MarkAsRead(ctx, in.MessageID); err != nil {
			s.logger.Warn("marking message read", zap.String("message_id", in.MessageID), zap.Error(err))
		}
	}
	if err := s.handler.HandleMessage(ctx, in); err != nil {
		s.logger.Error("handling webhook message",
			zap.String("from", in.From),
			zap.String("message_id", in.MessageID),
			zap.Error(err),
		)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	body, err := s.status(r.Context())
	if err != nil {
		s.logger.Error("rendering status", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "status unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		http.NotFound(w, r)
		return
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || s.cfg.VerifyToken == "" || token != s.cfg.VerifyToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	name := r.PathValue("name")
	err := s.jobs.RunNow(name)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case err != nil:
		s.logger.Error("triggering job", zap.String("job", name), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "job not triggered"})
	default:
		s.logger.Info("job triggered", zap.String("job", name))
		writeJSON(w, http.StatusAccepted, map[string]string{"job": name, "status": "queued"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
