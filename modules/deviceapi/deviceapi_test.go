package deviceapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/admute/backend/modules/deviceapi"
	"github.com/admute/backend/pkg/auth"
	"github.com/admute/backend/pkg/device"
	"github.com/admute/backend/pkg/subscription"
	"golang.org/x/crypto/bcrypt"
)

type stubSubs struct {
	subs map[uuid.UUID]*subscription.Subscription
}

func (s *stubSubs) Get(_ context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	sub, ok := s.subs[userID]
	if !ok {
		return nil, subscription.ErrNotFound
	}
	return sub, nil
}

type fixture struct {
	server *httptest.Server
	token  string
	userID uuid.UUID
	subs   *stubSubs
}

func newFixture(t *testing.T, deviceLimit int) *fixture {
	t.Helper()

	discard := slog.New(slog.DiscardHandler)

	users := auth.NewMemoryUserStore()
	authSvc := auth.NewService(users, []byte("test-signing-key"),
		auth.WithBcryptCost(bcrypt.MinCost),
		auth.WithLogger(discard),
	)

	user, err := authSvc.Register(context.Background(), "tester", "tester@example.com", "password123")
	require.NoError(t, err)

	tokens, err := authSvc.Login(context.Background(), "tester", "password123")
	require.NoError(t, err)

	subs := &stubSubs{subs: map[uuid.UUID]*subscription.Subscription{
		user.ID: {
			UserID:      user.ID,
			Status:      subscription.StatusActive,
			Plan:        subscription.PlanPremiumMonthly,
			DeviceLimit: deviceLimit,
		},
	}}

	deviceSvc := device.NewService(device.NewMemoryStore(), authSvc, subs,
		device.WithLogger(discard),
	)

	server := httptest.NewServer(deviceapi.NewService(deviceSvc, authSvc, discard).Handle())
	t.Cleanup(server.Close)

	return &fixture{server: server, token: tokens.AccessToken, userID: user.ID, subs: subs}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Error.Code
}

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("created", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 2)
		resp := f.do(t, http.MethodPost, "/register", map[string]string{"device_id": "dev-1", "name": "Laptop"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var envelope struct {
			Data struct {
				DeviceID string `json:"device_id"`
				Name     string `json:"name"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
		require.Equal(t, "dev-1", envelope.Data.DeviceID)
		require.Equal(t, "Laptop", envelope.Data.Name)
	})

	t.Run("requires auth", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 2)
		resp, err := http.Post(f.server.URL+"/register", "application/json", bytes.NewBufferString(`{"device_id":"dev-1"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing device id is a bad request", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 2)
		resp := f.do(t, http.MethodPost, "/register", map[string]string{"name": "Laptop"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "bad_request", errorCode(t, resp))
	})

	t.Run("quota exceeded maps to 403", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 1)
		resp := f.do(t, http.MethodPost, "/register", map[string]string{"device_id": "dev-1"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = f.do(t, http.MethodPost, "/register", map[string]string{"device_id": "dev-2"})
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Equal(t, "quota_exceeded", errorCode(t, resp))
	})

	t.Run("no active subscription maps to precondition_failed", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 2)
		f.subs.subs[f.userID].Status = subscription.StatusPastDue

		resp := f.do(t, http.MethodPost, "/register", map[string]string{"device_id": "dev-1"})
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Equal(t, "precondition_failed", errorCode(t, resp))
	})
}

func TestList(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5)

	resp := f.do(t, http.MethodPost, "/register", map[string]string{"device_id": "dev-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/list", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data struct {
			Devices []struct {
				DeviceID string `json:"device_id"`
				Name     string `json:"name"`
			} `json:"devices"`
			DeviceLimit int `json:"device_limit"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data.Devices, 1)
	require.Equal(t, 5, envelope.Data.DeviceLimit)
	require.Equal(t, device.DefaultName, envelope.Data.Devices[0].Name)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)

	resp := f.do(t, http.MethodPost, "/register", map[string]string{"device_id": "dev-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/remove/dev-1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/remove/dev-1", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Quota is freed immediately.
	resp = f.do(t, http.MethodPost, "/register", map[string]string{"device_id": "dev-2"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestUpdateActivity(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)

	resp := f.do(t, http.MethodPost, "/register", map[string]string{"device_id": "dev-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/update-activity/dev-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/update-activity/dev-missing", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
