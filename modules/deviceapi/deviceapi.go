// Package deviceapi exposes device registration, listing, removal and
// activity pings over HTTP. All routes require a bearer token.
package deviceapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/admute/backend/pkg/auth"
	"github.com/admute/backend/pkg/device"
	"github.com/admute/backend/pkg/httpx"
)

type Service struct {
	devices *device.Service
	authSvc *auth.Service
	log     *slog.Logger
}

// NewService creates the device API module.
func NewService(devices *device.Service, authSvc *auth.Service, log *slog.Logger) *Service {
	if devices == nil {
		panic("deviceapi: device.Service is required")
	}
	if authSvc == nil {
		panic("deviceapi: auth.Service is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{devices: devices, authSvc: authSvc, log: log}
}

// Handle returns the module router.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(auth.Middleware(s.authSvc))

	r.Post("/register", s.register)
	r.Get("/list", s.list)
	r.Delete("/remove/{deviceID}", s.remove)
	r.Post("/update-activity/{deviceID}", s.updateActivity)

	return r
}

type registerRequest struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
}

type deviceResponse struct {
	DeviceID   string    `json:"device_id"`
	Name       string    `json:"name"`
	LastActive time.Time `json:"last_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type listResponse struct {
	Devices     []deviceResponse `json:"devices"`
	DeviceLimit int              `json:"device_limit"`
}

func (s *Service) register(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, s.log, httpx.ErrUnauthorized)
		return
	}

	var req registerRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}

	d, err := s.devices.Register(r.Context(), userID, req.DeviceID, req.Name)
	if err != nil {
		httpx.Error(w, r, s.log, mapDeviceError(err))
		return
	}

	httpx.JSON(w, http.StatusCreated, toDeviceResponse(d))
}

func (s *Service) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, s.log, httpx.ErrUnauthorized)
		return
	}

	devices, limit, err := s.devices.List(r.Context(), userID)
	if err != nil {
		httpx.Error(w, r, s.log, mapDeviceError(err))
		return
	}

	resp := listResponse{Devices: make([]deviceResponse, 0, len(devices)), DeviceLimit: limit}
	for i := range devices {
		resp.Devices = append(resp.Devices, toDeviceResponse(&devices[i]))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (s *Service) remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, s.log, httpx.ErrUnauthorized)
		return
	}

	if err := s.devices.Remove(r.Context(), userID, chi.URLParam(r, "deviceID")); err != nil {
		httpx.Error(w, r, s.log, mapDeviceError(err))
		return
	}

	httpx.NoContent(w)
}

func (s *Service) updateActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, s.log, httpx.ErrUnauthorized)
		return
	}

	if err := s.devices.TouchActivity(r.Context(), userID, chi.URLParam(r, "deviceID")); err != nil {
		httpx.Error(w, r, s.log, mapDeviceError(err))
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toDeviceResponse(d *device.Device) deviceResponse {
	return deviceResponse{
		DeviceID:   d.DeviceID,
		Name:       d.Name,
		LastActive: d.LastActive,
		CreatedAt:  d.CreatedAt,
	}
}

func mapDeviceError(err error) error {
	switch {
	case errors.Is(err, device.ErrMissingDeviceID):
		return errors.Join(httpx.ErrBadRequest, err)
	case errors.Is(err, device.ErrNoActiveSubscription):
		return errors.Join(httpx.ErrPreconditionFailed, err)
	case errors.Is(err, device.ErrAlreadyRegistered):
		return errors.Join(httpx.ErrConflict, err)
	case errors.Is(err, device.ErrQuotaExceeded):
		return errors.Join(httpx.ErrQuotaExceeded, err)
	case errors.Is(err, device.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		return errors.Join(httpx.ErrNotFound, err)
	default:
		return err
	}
}
