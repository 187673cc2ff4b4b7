package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamx/internal/shared"
	"github.com/desertthunder/jamx/internal/tasks"
)

const maxEventBody = 1 << 20

// Processor handles one accepted chat message.
type Processor interface {
	Process(ctx context.Context, msg tasks.Message) tasks.Outcome
}

type eventEnvelope struct {
	Type      string        `json:"type"`
	Challenge string        `json:"challenge"`
	Event     *messageEvent `json:"event"`
}

type messageEvent struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	TS      string `json:"ts"`
	Text    string `json:"text"`
	BotID   string `json:"bot_id"`
	Subtype string `json:"subtype"`
}

// EventsHandler receives Slack Events API callbacks.
//
// Accepted messages are processed in their own goroutine; the HTTP response
// never waits on resolution or playlist calls.
type EventsHandler struct {
	secret    string
	channelID string
	processor Processor
	logger    *log.Logger
	now       func() time.Time
	inflight  sync.WaitGroup
}

// NewEventsHandler creates an [EventsHandler] that verifies requests with
// secret and forwards messages posted in channelID to processor.
func NewEventsHandler(secret, channelID string, processor Processor, logger *log.Logger) *EventsHandler {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &EventsHandler{
		secret:    secret,
		channelID: channelID,
		processor: processor,
		logger:    logger,
		now:       time.Now,
	}
}

func (h *EventsHandler) Routes() []Route {
	return []Route{{Method: http.MethodPost, Pattern: "/slack/events"}}
}

// ServeHTTP handles url_verification challenges and event callbacks.
//
// The challenge is answered even when the signature is missing or wrong, so
// the endpoint can be registered before the signing secret is configured.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.logger.Warn("failed to parse slack envelope", "error", err)
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}

	timestamp := r.Header.Get("X-Slack-Request-Timestamp")
	signature := r.Header.Get("X-Slack-Signature")
	verifyErr := VerifySignature(h.secret, timestamp, signature, body, h.now())

	if env.Type == "url_verification" && env.Challenge != "" {
		if verifyErr != nil {
			h.logger.Warn("answering url_verification without a valid signature", "error", verifyErr)
		}
		writeJSON(w, http.StatusOK, map[string]string{"challenge": env.Challenge})
		return
	}

	if verifyErr != nil {
		h.logger.Warn("rejected slack request", "error", verifyErr)
		status := http.StatusUnauthorized
		if errors.Is(verifyErr, shared.ErrMissingSignature) {
			status = http.StatusBadRequest
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	if msg, ok := h.accept(env); ok {
		h.dispatch(r.Context(), msg)
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *EventsHandler) accept(env eventEnvelope) (tasks.Message, bool) {
	if env.Type != "event_callback" || env.Event == nil {
		return tasks.Message{}, false
	}

	ev := env.Event
	if ev.BotID != "" || ev.Subtype != "" {
		return tasks.Message{}, false
	}
	if ev.Channel == "" || ev.TS == "" || ev.Text == "" {
		return tasks.Message{}, false
	}
	if ev.Channel != h.channelID {
		return tasks.Message{}, false
	}

	return tasks.Message{Channel: ev.Channel, TS: ev.TS, Text: ev.Text}, true
}

func (h *EventsHandler) dispatch(ctx context.Context, msg tasks.Message) {
	ctx = context.WithoutCancel(ctx)

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("message processing panicked", "ts", msg.TS, "panic", r)
			}
		}()
		h.processor.Process(ctx, msg)
	}()
}

// Wait blocks until every dispatched message has finished processing.
func (h *EventsHandler) Wait() {
	h.inflight.Wait()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
