package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/thinkbotapp/thinkbot/internal/engine"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	reply, err := s.engine.HandleTurn(r.Context(), userIDFrom(r.Context()), req.Message)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, "empty_message", "no message provided")
		return
	default:
		s.log.Error().Err(err).Msg("chat turn failed")
		respondError(w, http.StatusInternalServerError, "internal", "could not process message")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.MemorySnapshot(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.log.Error().Err(err).Msg("memory snapshot failed")
		respondError(w, http.StatusInternalServerError, "internal", "could not load memory")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	stats, err := s.engine.DailyMood(r.Context(), userIDFrom(r.Context()), day)
	if err != nil {
		s.log.Error().Err(err).Msg("mood stats failed")
		respondError(w, http.StatusInternalServerError, "internal", "could not compute stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type controlRequest struct {
	Action    string `json:"action"`
	Direction string `json:"direction"`
}

// handleControl acknowledges device-control commands from the UI. There is
// no device attached server-side, so the command is echoed back.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "action is required")
		return
	}
	direction := req.Direction
	if strings.TrimSpace(direction) == "" {
		direction = "none"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  fmt.Sprintf("Action: %s, Direction: %s", req.Action, direction),
	})
}
