package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/thinkbotapp/thinkbot/internal/auth"
	"github.com/thinkbotapp/thinkbot/internal/config"
	"github.com/thinkbotapp/thinkbot/internal/engine"
	"github.com/thinkbotapp/thinkbot/internal/observability"
	"github.com/thinkbotapp/thinkbot/internal/sysinfo"
)

type Server struct {
	cfg      config.Config
	engine   *engine.Engine
	auth     *auth.Service
	tokens   *auth.TokenIssuer
	system   *sysinfo.Collector
	metrics  *observability.Metrics
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func New(
	cfg config.Config,
	eng *engine.Engine,
	authService *auth.Service,
	tokens *auth.TokenIssuer,
	system *sysinfo.Collector,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Server {
	return &Server{
		cfg:     cfg,
		engine:  eng,
		auth:    authService,
		tokens:  tokens,
		system:  system,
		metrics: metrics,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other websites cannot drive a user's chat
				// session if the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ThinkBot API is running\n"))
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/login", s.handleLogin)
	r.Post("/send_otp", s.handleSendOTP)
	r.Post("/verify_otp", s.handleVerifyOTP)
	r.Post("/register", s.handleRegister)
	r.Post("/verify", s.handleVerifyEmail)

	r.Get("/system_stats", s.handleSystemStats)
	r.Get("/v1/chat/ws", s.handleChatWS)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/me", s.handleMe)
		r.Post("/chat", s.handleChat)
		r.Get("/memory", s.handleMemory)
		r.Get("/stats", s.handleStats)
		r.Post("/control", s.handleControl)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.system.Sample(r.Context()))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
