package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/pomo/internal/model"
	"github.com/verte-zerg/pomo/internal/pomodoro"
	"github.com/verte-zerg/pomo/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "pomo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	svc := pomodoro.NewService(st, discardLogger())
	srv := httptest.NewServer(NewRouter(svc, st, apiKey, discardLogger()))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestStartEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/pomodoros/start/u1", `{"studyPeriod":25,"purpose":"revise"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var sess model.Session
	require.NoError(t, json.Unmarshal(body, &sess))
	require.NotEmpty(t, sess.ID)
	require.Equal(t, "u1", sess.UserID)
	require.Equal(t, 5, sess.ShortBreak)
	require.Equal(t, 15, sess.LongBreak)
	require.NotNil(t, sess.StartTime)
	require.Nil(t, sess.EndTime)
	require.NotContains(t, string(body), "endTime")
}

func TestStartEndpointValidation(t *testing.T) {
	srv := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/pomodoros/start/u1", `{"purpose":"no period"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(body), `"error"`)
	require.Contains(t, string(body), "studyPeriod")

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/pomodoros/start/%20", `{"studyPeriod":25}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/pomodoros/start/u1", `{not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(body), "invalid request body")

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/pomodoros?userId=%20", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogListAndStatsEndpoints(t *testing.T) {
	srv := newTestServer(t, "")

	payloads := []string{
		`{"studyPeriod":25,"shortBreak":5,"longBreak":15,"completedRounds":1,"startTime":"2024-03-01T09:00:00Z","endTime":"2024-03-01T09:25:00Z"}`,
		`{"studyPeriod":30,"shortBreak":5,"longBreak":15,"completedRounds":2,"startTime":"2024-03-01T09:00:00Z","endTime":"2024-03-01T10:05:00Z","tag":"math"}`,
	}
	for _, p := range payloads {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/pomodoros/log/u1", p)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/pomodoros/log/u2", payloads[0])
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/pomodoros?userId=u1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []model.Session
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 2)
	require.Equal(t, "math", list[0].Tag, "newest first")

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/pomodoros", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 3)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/pomodoros/stats/u1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st model.Stats
	require.NoError(t, json.Unmarshal(body, &st))
	require.Equal(t, model.Stats{TotalSessions: 2, TotalStudyMinutes: 55, TotalCompletedRounds: 3}, st)
}

func TestLogEndpointRejectsEndBeforeStart(t *testing.T) {
	srv := newTestServer(t, "")
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/pomodoros/log/u1",
		`{"studyPeriod":25,"startTime":"2024-03-01T09:25:00Z","endTime":"2024-03-01T09:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEmptyListAndStats(t *testing.T) {
	srv := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/pomodoros?userId=ghost", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `[]`, string(body))

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/pomodoros/stats/ghost", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"totalSessions":0,"totalStudyMinutes":0,"totalCompletedRounds":0}`, string(body))
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(t, "s3cret")

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/pomodoros/stats/u1", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/pomodoros/stats/u1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer s3cret")
	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer authed.Body.Close()
	require.Equal(t, http.StatusOK, authed.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

type brokenLifecycle struct{}

func (brokenLifecycle) Start(context.Context, string, model.StartRequest) (model.Session, error) {
	return model.Session{}, &pomodoro.PersistenceError{Op: "start session", Err: errors.New("db down")}
}

func (brokenLifecycle) Log(context.Context, string, model.LogRequest) (model.Session, error) {
	panic("boom")
}

func (brokenLifecycle) List(context.Context, string) ([]model.Session, error) {
	return nil, nil
}

func (brokenLifecycle) Stats(context.Context, string) (model.Stats, error) {
	return model.Stats{}, errors.New("unexpected")
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("db down") }

func TestServerErrors(t *testing.T) {
	srv := httptest.NewServer(NewRouter(brokenLifecycle{}, downPinger{}, "", discardLogger()))
	defer srv.Close()

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/pomodoros/start/u1", `{"studyPeriod":25}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Contains(t, string(body), "db down")

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/pomodoros/log/u1", `{"studyPeriod":25}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/pomodoros/stats/u1", "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/pomodoros?userId=u1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `[]`, string(body))

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/health", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, "key")
	resp, _ := doJSON(t, http.MethodOptions, srv.URL+"/pomodoros/start/u1", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
