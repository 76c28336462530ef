package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ashureev/wellness-labs/internal/conversation"
	"github.com/ashureev/wellness-labs/internal/domain"
	"github.com/ashureev/wellness-labs/internal/identity"
	"github.com/ashureev/wellness-labs/internal/metrics"
)

const writeTimeout = 10 * time.Second

// Profiles is the profile access the session needs.
type Profiles interface {
	GetOrCreate(ctx context.Context, userID string) (*domain.Profile, error)
	Apply(ctx context.Context, userID string, updates map[domain.FieldName]domain.Value) (*domain.Profile, error)
}

// Config configures a Handler.
type Config struct {
	AllowedOrigin string
	IsDev         bool
	// RateLimit is the sustained inbound messages per second per connection.
	RateLimit float64
	RateBurst int
}

// Handler serves the conversation over WebSocket at /ws/{user_id}.
type Handler struct {
	profiles Profiles
	ctrl     *conversation.Controller
	turns    *conversation.TurnLock
	records  *Records
	mgr      *Manager
	cfg      Config
}

// NewHandler creates a new WebSocket handler.
func NewHandler(profiles Profiles, ctrl *conversation.Controller, turns *conversation.TurnLock, records *Records, mgr *Manager, cfg Config) *Handler {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
	return &Handler{
		profiles: profiles,
		ctrl:     ctrl,
		turns:    turns,
		records:  records,
		mgr:      mgr,
		cfg:      cfg,
	}
}

// Stats returns the connection statistics.
func (h *Handler) Stats(ctx context.Context) (Stats, error) {
	return h.records.Stats(ctx, h.mgr.Count())
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, `{"error":"missing user id"}`, http.StatusBadRequest)
		return
	}
	slog.Info("WebSocket connection request", "user_id", userID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	connID := uuid.NewString()
	ctx := identity.WithConnectionID(r.Context(), connID)

	h.mgr.Register(userID, connID, ws)
	defer h.mgr.Unregister(userID, connID)

	metrics.ConnectionOpened()
	defer metrics.ConnectionClosed()

	if err := h.records.Connect(ctx, userID, connID); err != nil {
		slog.Warn("Failed to record session", "error", err, "user_id", userID)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.records.Disconnect(dctx, userID, connID); err != nil {
			slog.Warn("Failed to record disconnect", "error", err, "user_id", userID)
		}
	}()

	if err := h.greet(ctx, ws, userID); err != nil {
		h.fail(ws, userID, err)
		return
	}

	h.readLoop(ctx, ws, userID)
	slog.Info("WebSocket session ended", "user_id", userID, "connection_id", connID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.cfg.IsDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.cfg.AllowedOrigin == "" || h.cfg.AllowedOrigin == "*" {
		return true
	}
	if origin == h.cfg.AllowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.cfg.AllowedOrigin)
	return false
}

// greet sends the first question, or the completion event for a profile
// that is already full.
func (h *Handler) greet(ctx context.Context, ws *websocket.Conn, userID string) error {
	unlock := h.turns.Lock(userID)
	defer unlock()

	p, err := h.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	res := h.ctrl.NextQuestion(ctx, p)
	if res.Type == conversation.ResultCompletion {
		return h.writeEvent(ctx, ws, newEvent(EventProfileComplete, completeData{Message: res.Message, Profile: res.Profile}))
	}
	h.saveContext(ctx, userID, res.Context)
	return h.writeEvent(ctx, ws, newEvent(EventInitProfile, res))
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, userID string) {
	limiter := rate.NewLimiter(rate.Limit(h.cfg.RateLimit), h.cfg.RateBurst)

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		if !limiter.Allow() {
			if err := h.writeEvent(ctx, ws, errorEvent(RateLimitedMessage)); err != nil {
				return
			}
			continue
		}

		ev, err := h.handleMessage(ctx, userID, data)
		if errors.Is(err, errUnknownMessage) {
			metrics.RecordMessage("in", "unknown")
			if err := h.writeEvent(ctx, ws, errorEvent(UnknownFormatMessage)); err != nil {
				return
			}
			continue
		}
		if err != nil {
			h.fail(ws, userID, err)
			return
		}
		if err := h.writeEvent(ctx, ws, ev); err != nil {
			slog.Debug("Failed to send event", "error", err, "user_id", userID)
			return
		}
	}
}

// handleMessage runs one turn. Turns for a user are serialized.
func (h *Handler) handleMessage(ctx context.Context, userID string, data []byte) (Event, error) {
	msg, err := parseInbound(data)
	if err != nil {
		return Event{}, err
	}
	metrics.RecordMessage("in", msg.Type)

	if msg.Type == msgPing {
		return newEvent(EventPong, nil), nil
	}

	if err := h.records.Touch(ctx, userID, msg.Type); err != nil {
		slog.Warn("Failed to update session activity", "error", err, "user_id", userID)
	}

	unlock := h.turns.Lock(userID)
	defer unlock()

	switch msg.Type {
	case msgUserMessage:
		return h.handleChat(ctx, userID, *msg.Message)
	default:
		return h.handleAnswer(ctx, userID, *msg.Data.Answer, msg.Data.Context)
	}
}

func (h *Handler) handleChat(ctx context.Context, userID, text string) (Event, error) {
	p, err := h.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return Event{}, fmt.Errorf("load profile: %w", err)
	}

	reply := h.ctrl.ProcessConversationalInput(text, p)
	if len(reply.ProfileUpdates) > 0 {
		p, err = h.profiles.Apply(ctx, userID, reply.ProfileUpdates)
		if err != nil {
			return Event{}, fmt.Errorf("apply updates: %w", err)
		}
	}

	if p.IsComplete() {
		return newEvent(EventProfileComplete, completeData{Message: ChatCompleteMessage, Profile: p}), nil
	}

	message := reply.Message
	if message == "" {
		message = defaultUpdateResponse
	}
	return newEvent(EventProfileUpdate, updateData{
		Message:         message,
		Profile:         p,
		ExtractedFields: reply.ExtractedFields,
	}), nil
}

func (h *Handler) handleAnswer(ctx context.Context, userID, answer string, qc *domain.QuestionContext) (Event, error) {
	p, err := h.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return Event{}, fmt.Errorf("load profile: %w", err)
	}

	if qc == nil {
		stored, ok, err := h.records.LoadContext(ctx, userID)
		if err != nil {
			slog.Warn("Failed to load conversation context", "error", err, "user_id", userID)
		}
		if ok {
			qc = &stored
		} else {
			derived := domain.NewQuestionContext(p)
			qc = &derived
		}
	}

	ans := h.ctrl.ProcessAnswer(answer, *qc)
	if ans.Extracted {
		p, err = h.profiles.Apply(ctx, userID, map[domain.FieldName]domain.Value{ans.Field: ans.Value})
		if err != nil {
			return Event{}, fmt.Errorf("apply answer: %w", err)
		}
	} else {
		slog.Debug("No value extracted from answer", "user_id", userID, "field", ans.Field)
	}

	res := h.ctrl.NextQuestion(ctx, p)
	if res.Type == conversation.ResultCompletion {
		return newEvent(EventProfileComplete, completeData{Message: res.Message, Profile: res.Profile}), nil
	}
	h.saveContext(ctx, userID, res.Context)
	return newEvent(EventAssistantQuestion, questionData{
		Question: res.Message,
		Field:    res.Field,
		Context:  res.Context,
	}), nil
}

func (h *Handler) saveContext(ctx context.Context, userID string, qc *domain.QuestionContext) {
	if qc == nil {
		return
	}
	if err := h.records.SaveContext(ctx, userID, *qc); err != nil {
		slog.Warn("Failed to store conversation context", "error", err, "user_id", userID)
	}
}

// fail reports an internal error to the client and closes the connection.
func (h *Handler) fail(ws *websocket.Conn, userID string, cause error) {
	slog.Error("WebSocket turn failed", "error", cause, "user_id", userID)
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := h.writeEvent(ctx, ws, errorEvent(InternalErrorMessage)); err != nil {
		slog.Debug("Failed to send error event", "error", err, "user_id", userID)
	}
	_ = ws.Close(websocket.StatusInternalError, "internal error")
}

func (h *Handler) writeEvent(ctx context.Context, ws *websocket.Conn, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := ws.Write(wctx, websocket.MessageText, data); err != nil {
		return err
	}
	metrics.RecordMessage("out", string(ev.Type))
	return nil
}
