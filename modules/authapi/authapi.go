// Package authapi exposes registration, login and token renewal over HTTP.
package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/admute/backend/pkg/auth"
	"github.com/admute/backend/pkg/httpx"
)

type Service struct {
	auth *auth.Service
	log  *slog.Logger
}

// NewService creates the auth API module.
func NewService(authSvc *auth.Service, log *slog.Logger) *Service {
	if authSvc == nil {
		panic("authapi: auth.Service is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{auth: authSvc, log: log}
}

// Handle returns the module router. Register, login and refresh are open;
// the user profile requires a bearer token.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/register", s.register)
	r.Post("/login", s.login)
	r.Post("/refresh", s.refresh)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.auth))
		r.Get("/user", s.user)
	})

	return r
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	TotalMutedTime int64     `json:"total_muted_time"`
	TotalAdsMuted  int64     `json:"total_ads_muted"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Service) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}

	user, err := s.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		httpx.Error(w, r, s.log, mapAuthError(err))
		return
	}

	httpx.JSON(w, http.StatusCreated, toUserResponse(user))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Service) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}

	tokens, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.Error(w, r, s.log, mapAuthError(err))
		return
	}

	httpx.JSON(w, http.StatusOK, tokens)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Service) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}

	tokens, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.Error(w, r, s.log, mapAuthError(err))
		return
	}

	httpx.JSON(w, http.StatusOK, tokens)
}

func (s *Service) user(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, s.log, httpx.ErrUnauthorized)
		return
	}

	user, err := s.auth.UserByID(r.Context(), userID)
	if err != nil {
		httpx.Error(w, r, s.log, mapAuthError(err))
		return
	}

	httpx.JSON(w, http.StatusOK, toUserResponse(user))
}

func toUserResponse(user *auth.User) userResponse {
	return userResponse{
		ID:             user.ID.String(),
		Username:       user.Username,
		Email:          user.Email,
		TotalMutedTime: user.TotalMutedTime,
		TotalAdsMuted:  user.TotalAdsMuted,
		CreatedAt:      user.CreatedAt,
	}
}

func mapAuthError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return errors.Join(httpx.ErrBadRequest, err)
	case errors.Is(err, auth.ErrUserAlreadyExists):
		return errors.Join(httpx.ErrConflict, err)
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrNotRefreshToken):
		return errors.Join(httpx.ErrUnauthorized, err)
	case errors.Is(err, auth.ErrUserNotFound):
		return errors.Join(httpx.ErrNotFound, err)
	default:
		return err
	}
}
