package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/thinkbotapp/thinkbot/internal/engine"
)

type wsInbound struct {
	Message string `json:"message"`
}

type wsOutbound struct {
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleChatWS runs the streaming chat loop. Browsers cannot set an
// Authorization header on a websocket handshake, so the token rides in the
// query string instead.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing_token", "query parameter token is required")
		return
	}
	userID, err := s.tokens.Verify(token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.ActiveChatStreams.Inc()
	defer s.metrics.ActiveChatStreams.Dec()
	s.log.Info().Str("user_id", userID).Msg("chat stream opened")

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Str("user_id", userID).Msg("chat stream closed unexpectedly")
			}
			return
		}

		reply, err := s.engine.HandleTurn(r.Context(), userID, in.Message)
		var out wsOutbound
		switch {
		case err == nil:
			out.Reply = reply
		case errors.Is(err, engine.ErrEmptyMessage):
			out.Error = "no message provided"
		default:
			s.log.Error().Err(err).Str("user_id", userID).Msg("chat turn failed on stream")
			out.Error = "could not process message"
		}
		if err := conn.WriteJSON(out); err != nil {
			return
		}
	}
}
