package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/macroviewer/pkg/cache"
	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/observability/prom"
	"github.com/matzehuels/macroviewer/pkg/session"
)

const fixture = `{
	"meta": {"snapshotDate": "2024-05-01"},
	"nodes": [
		{"iso2": "US", "iso3": "USA", "country": "United States", "gdpUsd": 25e12},
		{"iso2": "CN", "iso3": "CHN", "country": "China", "gdpUsd": 18e12},
		{"iso2": "DE", "iso3": "DEU", "country": "Germany", "gdpUsd": 4.5e12},
		{"iso2": "FR", "iso3": "FRA", "country": "France", "gdpUsd": 3e12}
	],
	"links": [
		{"s": "US", "t": "CN", "tradeUsd": 5e11, "year": 2023, "direction": "export"},
		{"s": "DE", "t": "US", "tradeUsd": 2e11, "year": 2023, "direction": "export"},
		{"s": "FR", "t": "DE", "tradeUsd": 1e11, "year": 2023, "direction": "export"},
		{"s": "US", "t": "DE", "tradeUsd": 1e11, "year": 2022, "direction": "export"}
	]
}`

const fixture2022 = `{
	"nodes": [
		{"iso2": "US", "iso3": "USA", "country": "United States", "gdpUsd": 25e12},
		{"iso2": "DE", "iso3": "DEU", "country": "Germany", "gdpUsd": 4.5e12},
		{"iso2": "JP", "iso3": "JPN", "country": "Japan", "gdpUsd": 4.2e12}
	],
	"links": [
		{"s": "US", "t": "DE", "tradeUsd": 1e11, "year": 2022, "direction": "export"},
		{"s": "JP", "t": "US", "tradeUsd": 1.5e11, "year": 2022, "direction": "export"}
	]
}`

func loadFixture(t *testing.T, js string) *dataset.Dataset {
	t.Helper()
	raw, err := dataset.Decode(strings.NewReader(js))
	require.NoError(t, err)
	d, _ := dataset.Normalize(raw)
	return d
}

func newStore(t *testing.T) session.Store {
	t.Helper()
	backend, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	return session.NewCacheStore(backend, nil)
}

func newServer(t *testing.T, store session.Store, opts ...Option) *Server {
	t.Helper()
	if store != nil {
		opts = append(opts, WithStore(store))
	}
	srv, err := New(Config{Seed: 1, SettleWindow: 200 * time.Millisecond}, loadFixture(t, fixture), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeFrame(t *testing.T, rec *httptest.ResponseRecorder) engine.Frame {
	t.Helper()
	var f engine.Frame
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	return f
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) errors.Code {
	t.Helper()
	var body struct {
		Error errorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestNewWithoutDataset(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.True(t, errors.Is(err, errors.ErrCodeDatasetMissing))
}

func TestHealth(t *testing.T) {
	srv := newServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestFrameStartsSession(t *testing.T) {
	srv := newServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/api/frame", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	id := rec.Header().Get(sessionHeader)
	require.NoError(t, errors.ValidateSessionID(id))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), sessionCookie+"="+id)

	f := decodeFrame(t, rec)
	assert.Equal(t, 2023, f.State.Year)
	assert.Len(t, f.Positions, 4)
	assert.Equal(t, 1, srv.Sessions())

	again := do(t, srv, http.MethodGet, "/api/frame", id, nil)
	assert.Equal(t, id, again.Header().Get(sessionHeader))
	assert.Equal(t, 1, srv.Sessions())
}

func TestInvalidSessionID(t *testing.T) {
	srv := newServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/api/frame", "not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeInvalidInput, errorCode(t, rec))
}

func TestActionPersistsAndResumes(t *testing.T) {
	store := newStore(t)
	srv := newServer(t, store)
	id := session.GenerateID()

	rec := do(t, srv, http.MethodPost, "/api/actions", id, filter.Action{Kind: filter.KindSetYear, Year: 2022})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2022, decodeFrame(t, rec).State.Year)

	stored, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 2022, stored.State.Year)

	// A fresh server over the same store resumes the view.
	restarted := newServer(t, store)
	rec = do(t, restarted, http.MethodGet, "/api/frame", id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2022, decodeFrame(t, rec).State.Year)
}

func TestActionErrors(t *testing.T) {
	srv := newServer(t, nil)
	id := session.GenerateID()

	tests := []struct {
		name string
		body any
	}{
		{"malformed", `{"kind":`},
		{"unknown year", filter.Action{Kind: filter.KindSetYear, Year: 1999}},
		{"unknown kind", filter.Action{Kind: "explode"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/actions", id, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, errors.ErrCodeInvalidAction, errorCode(t, rec))
		})
	}

	rec := do(t, srv, http.MethodGet, "/api/frame", id, nil)
	assert.Equal(t, 2023, decodeFrame(t, rec).State.Year)
}

func TestCountryAndTooltip(t *testing.T) {
	srv := newServer(t, nil)
	id := session.GenerateID()

	tests := []struct {
		path string
		want int
	}{
		{"/api/countries/de", http.StatusOK},
		{"/api/countries/ZZ", http.StatusNotFound},
		{"/api/countries/123", http.StatusBadRequest},
		{"/api/tooltips/US", http.StatusOK},
		{"/api/tooltips/US?to=CN", http.StatusOK},
		{"/api/tooltips/US?to=x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tt.path, id, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, srv, http.MethodGet, "/api/countries/DE", id, nil)
	var detail engine.Detail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "DE", detail.ISO2)
}

func TestSearch(t *testing.T) {
	srv := newServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/api/search?q=germ", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Suggestions []engine.Suggestion `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Suggestions, 1)
	assert.Equal(t, "DE", body.Suggestions[0].ISO2)

	rec = do(t, srv, http.MethodGet, "/api/search?q=g", "", nil)
	assert.JSONEq(t, `{"suggestions":[]}`, rec.Body.String())
}

func TestRender(t *testing.T) {
	srv := newServer(t, nil)
	id := session.GenerateID()

	rec := do(t, srv, http.MethodGet, "/api/render.svg?title=Trade", id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<svg"))
	assert.Contains(t, rec.Body.String(), "Trade")

	rec = do(t, srv, http.MethodGet, "/api/render.json", id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, json.Valid(rec.Body.Bytes()))

	rec = do(t, srv, http.MethodGet, "/api/render.gif", id, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeInvalidFormat, errorCode(t, rec))
}

func TestEndSession(t *testing.T) {
	store := newStore(t)
	srv := newServer(t, store)
	id := session.GenerateID()

	do(t, srv, http.MethodPost, "/api/actions", id, filter.Action{Kind: filter.KindSetYear, Year: 2022})
	require.Equal(t, 1, srv.Sessions())

	rec := do(t, srv, http.MethodDelete, "/api/session", id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, srv.Sessions())

	stored, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, stored)

	rec = do(t, srv, http.MethodDelete, "/api/session", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReloadSanitizesState(t *testing.T) {
	srv := newServer(t, nil)
	id := session.GenerateID()

	rec := do(t, srv, http.MethodPost, "/api/actions", id, filter.Action{Kind: filter.KindSelectCountry, ISO2: "CN"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NoError(t, srv.Reload(context.Background(), loadFixture(t, fixture2022)))

	f := decodeFrame(t, do(t, srv, http.MethodGet, "/api/frame", id, nil))
	assert.Equal(t, 2022, f.State.Year)
	assert.Empty(t, f.State.Locked, "CN is gone after reload")
	assert.Len(t, f.Positions, 3)

	assert.Error(t, srv.Reload(context.Background(), nil))
}

func TestSweep(t *testing.T) {
	srv, err := New(Config{SessionTTL: time.Millisecond}, loadFixture(t, fixture))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	do(t, srv, http.MethodGet, "/api/frame", "", nil)
	require.Equal(t, 1, srv.Sessions())
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, srv.Sweep())
	assert.Equal(t, 0, srv.Sessions())
}

func TestMetrics(t *testing.T) {
	srv := newServer(t, nil, WithMetrics(prom.New(nil)))
	do(t, srv, http.MethodGet, "/api/countries/DE", "", nil)

	rec := do(t, srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/countries/{iso2}"`)
}

func TestMatchOrigin(t *testing.T) {
	tests := []struct {
		pattern, origin string
		want            bool
	}{
		{"*", "https://example.com", true},
		{"https://example.com", "https://example.com", true},
		{"http://localhost:*", "http://localhost:5173", true},
		{"http://localhost:*", "http://evil.com", false},
		{"https://*.example.com", "https://app.example.com", true},
		{"https://*.example.com", "https://example.com", false},
		{"https://example.com", "https://example.org", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchOrigin(tt.pattern, tt.origin), "%s vs %s", tt.pattern, tt.origin)
	}
}

func TestWebsocket(t *testing.T) {
	srv := newServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	id := session.GenerateID()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func(want msgType) message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			var m message
			require.NoError(t, conn.ReadJSON(&m))
			if m.Type == want {
				return m
			}
		}
	}

	hello := read(msgHello)
	assert.Equal(t, id, hello.Session)
	require.NotNil(t, hello.Frame)
	assert.Equal(t, 2023, hello.Frame.State.Year)

	require.NoError(t, conn.WriteJSON(filter.Action{Kind: filter.KindSetYear, Year: 2022}))
	m := read(msgFrame)
	require.NotNil(t, m.Frame)
	assert.Equal(t, 2022, m.Frame.State.Year)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	m = read(msgError)
	require.NotNil(t, m.Error)
	assert.Equal(t, errors.ErrCodeInvalidAction, m.Error.Code)

	// Actions over HTTP reach the socket too.
	rec := do(t, srv, http.MethodPost, "/api/actions", id, filter.Action{Kind: filter.KindCycleDirection})
	require.Equal(t, http.StatusOK, rec.Code)
	m = read(msgFrame)
	assert.Equal(t, decodeFrame(t, rec).State.Direction, m.Frame.State.Direction)
}

func TestWebsocketRejectsOrigin(t *testing.T) {
	srv := newServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
