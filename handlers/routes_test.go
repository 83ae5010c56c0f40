package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/fenilmodi00/ipo-alert-bot/database"
	"github.com/fenilmodi00/ipo-alert-bot/jobs"
	"github.com/fenilmodi00/ipo-alert-bot/models"
	"github.com/fenilmodi00/ipo-alert-bot/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	summary shared.RunSummary
	err     error
	ran     bool
	runs    int
	ctx     context.Context
}

func (r *fakeRunner) Run(ctx context.Context) (shared.RunSummary, error) {
	r.runs++
	r.ctx = ctx
	if r.err != nil {
		return shared.RunSummary{}, r.err
	}
	r.ran = true
	return r.summary, nil
}

func (r *fakeRunner) LastSummary() (shared.RunSummary, bool) {
	return r.summary, r.ran
}

func newTestApp(t *testing.T, runner AlertRunner, adminToken string) *fiber.App {
	t.Helper()

	store := database.NewFileStateStore(filepath.Join(t.TempDir(), "ipo_status.json"))
	seed := models.NewNotificationStore()
	seed.GetOrCreate("Acme Ltd").MarkOpen()
	seed.GetOrCreate("Beta Corp")
	require.NoError(t, store.Save(context.Background(), seed))

	app := fiber.New()
	RegisterRoutes(app, store, runner, adminToken)
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestHealthRoute(t *testing.T) {
	app := newTestApp(t, &fakeRunner{}, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

type unreachableStore struct {
	database.StateStore
}

func (unreachableStore) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestHealthRouteReportsStoreFailure(t *testing.T) {
	store := unreachableStore{database.NewFileStateStore(filepath.Join(t.TempDir(), "ipo_status.json"))}
	app := fiber.New()
	RegisterRoutes(app, store, &fakeRunner{}, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", decodeBody(t, resp)["status"])
}

func TestGetNotifications(t *testing.T) {
	app := newTestApp(t, &fakeRunner{}, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(2), body["count"])
	entries := body["data"].([]interface{})
	first := entries[0].(map[string]interface{})
	assert.Equal(t, "Acme Ltd", first["company_name"])
	assert.Equal(t, true, first["notified_open"])
}

func TestGetNotificationByName(t *testing.T) {
	app := newTestApp(t, &fakeRunner{}, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/notifications/"+url.PathEscape("Acme Ltd"), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeBody(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, "Acme Ltd", data["company_name"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/notifications/Unknown", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetRunMetrics(t *testing.T) {
	runner := &fakeRunner{summary: shared.RunSummary{RunID: "run-1", OpenNotified: 2}}
	app := newTestApp(t, runner, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	runner.ran = true
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeBody(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, "run-1", data["run_id"])
	assert.Equal(t, float64(2), data["open_notified"])
}

func TestAdminRunAuthorization(t *testing.T) {
	testCases := []struct {
		name       string
		adminToken string
		header     string
		expected   int
	}{
		{"disabled", "", "Bearer anything", http.StatusForbidden},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"wrong token", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "s3cret", "Basic s3cret", http.StatusUnauthorized},
		{"valid", "s3cret", "Bearer s3cret", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{summary: shared.RunSummary{RunID: "run-2"}}
			app := newTestApp(t, runner, tc.adminToken)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/run", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, resp.StatusCode)

			if tc.expected == http.StatusOK {
				assert.Equal(t, 1, runner.runs)
			} else {
				assert.Equal(t, 0, runner.runs)
			}
		})
	}
}

func TestAdminRunConflict(t *testing.T) {
	app := newTestApp(t, &fakeRunner{err: jobs.ErrRunInProgress}, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/run", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetNotificationByNameDecodesOnce(t *testing.T) {
	names := []string{"100% Growth Ltd", "Rate 50%25 Corp"}

	for _, unescapePath := range []bool{false, true} {
		store := database.NewFileStateStore(filepath.Join(t.TempDir(), "ipo_status.json"))
		seed := models.NewNotificationStore()
		for _, name := range names {
			seed.GetOrCreate(name).MarkOpen()
		}
		require.NoError(t, store.Save(context.Background(), seed))

		app := fiber.New(fiber.Config{UnescapePath: unescapePath})
		RegisterRoutes(app, store, &fakeRunner{}, "")

		for _, name := range names {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/notifications/"+url.PathEscape(name), nil))
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode, "name %q, UnescapePath=%v", name, unescapePath)
			data := decodeBody(t, resp)["data"].(map[string]interface{})
			assert.Equal(t, name, data["company_name"])
		}
	}
}

type requestKey struct{}

func TestAdminRunUsesRequestContext(t *testing.T) {
	store := database.NewFileStateStore(filepath.Join(t.TempDir(), "ipo_status.json"))
	runner := &fakeRunner{}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.SetUserContext(context.WithValue(c.UserContext(), requestKey{}, "req-1"))
		return c.Next()
	})
	RegisterRoutes(app, store, runner, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/run", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotNil(t, runner.ctx)
	assert.Equal(t, "req-1", runner.ctx.Value(requestKey{}))
	_, hasDeadline := runner.ctx.Deadline()
	assert.True(t, hasDeadline)
}
