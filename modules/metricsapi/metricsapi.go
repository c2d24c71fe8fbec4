// Package metricsapi exposes the usage counters over HTTP: POST reports an
// interval's usage, GET reads the lifetime totals.
package metricsapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/admute/backend/pkg/auth"
	"github.com/admute/backend/pkg/httpx"
	"github.com/admute/backend/pkg/metrics"
)

type Service struct {
	metrics *metrics.Service
	authSvc *auth.Service
	log     *slog.Logger
}

// NewService creates the metrics API module.
func NewService(metricsSvc *metrics.Service, authSvc *auth.Service, log *slog.Logger) *Service {
	if metricsSvc == nil {
		panic("metricsapi: metrics.Service is required")
	}
	if authSvc == nil {
		panic("metricsapi: auth.Service is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{metrics: metricsSvc, authSvc: authSvc, log: log}
}

// Handle returns the module router.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(auth.Middleware(s.authSvc))

	r.Get("/metrics", s.get)
	r.Post("/metrics", s.record)

	return r
}

type recordRequest struct {
	MutedTime int64 `json:"muted_time"`
	AdsMuted  int64 `json:"ads_muted"`
}

func (s *Service) record(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, s.log, httpx.ErrUnauthorized)
		return
	}

	var req recordRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}

	usage, err := s.metrics.Record(r.Context(), userID, req.MutedTime, req.AdsMuted)
	if err != nil {
		httpx.Error(w, r, s.log, mapMetricsError(err))
		return
	}

	httpx.JSON(w, http.StatusOK, usage)
}

func (s *Service) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, s.log, httpx.ErrUnauthorized)
		return
	}

	usage, err := s.metrics.Get(r.Context(), userID)
	if err != nil {
		httpx.Error(w, r, s.log, mapMetricsError(err))
		return
	}

	httpx.JSON(w, http.StatusOK, usage)
}

func mapMetricsError(err error) error {
	switch {
	case errors.Is(err, metrics.ErrNegativeDelta):
		return errors.Join(httpx.ErrBadRequest, err)
	case errors.Is(err, metrics.ErrUserNotFound):
		return errors.Join(httpx.ErrNotFound, err)
	default:
		return err
	}
}
