package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/thinkbotapp/thinkbot/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	user, err := s.auth.Login(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidCredentials):
		s.metrics.AuthEvents.WithLabelValues("login_rejected").Inc()
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	case errors.Is(err, auth.ErrNotVerified):
		s.metrics.AuthEvents.WithLabelValues("login_unverified").Inc()
		respondError(w, http.StatusForbidden, "not_verified", "email not verified")
		return
	default:
		respondError(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "could not issue token")
		return
	}
	s.metrics.AuthEvents.WithLabelValues("login_ok").Inc()
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := s.auth.SendOTP(r.Context(), req.Email); err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "could not send otp")
		return
	}
	s.metrics.AuthEvents.WithLabelValues("otp_sent").Inc()
	respondJSON(w, http.StatusOK, map[string]string{"message": "OTP sent"})
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.OTP) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email and otp are required")
		return
	}

	err := s.auth.VerifyOTP(r.Context(), req.Email, req.OTP)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrOTPNotFound), errors.Is(err, auth.ErrOTPInvalid):
		s.metrics.AuthEvents.WithLabelValues("otp_rejected").Inc()
		respondError(w, http.StatusBadRequest, "invalid_otp", "invalid or expired otp")
		return
	default:
		respondError(w, http.StatusInternalServerError, "internal", "could not verify otp")
		return
	}
	s.metrics.AuthEvents.WithLabelValues("otp_verified").Inc()
	respondJSON(w, http.StatusOK, map[string]string{"message": "OTP verified"})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "username, email, and password are required")
		return
	}

	user, err := s.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrOTPRequired):
		respondError(w, http.StatusForbidden, "otp_required", "verify your email with an otp first")
		return
	case errors.Is(err, auth.ErrUserExists):
		respondError(w, http.StatusConflict, "user_exists", "username or email already taken")
		return
	default:
		respondError(w, http.StatusInternalServerError, "internal", "registration failed")
		return
	}
	s.metrics.AuthEvents.WithLabelValues("registered").Inc()
	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	err := s.auth.VerifyEmail(r.Context(), req.Email)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user_not_found", "no account with this email")
		return
	default:
		respondError(w, http.StatusInternalServerError, "internal", "could not verify email")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.Me(r.Context(), userIDFrom(r.Context()))
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user_not_found", "account no longer exists")
		return
	default:
		respondError(w, http.StatusInternalServerError, "internal", "could not load account")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
