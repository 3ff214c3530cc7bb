// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/auraxd/internal/events"
	"github.com/ManuGH/auraxd/internal/registry"
	"github.com/ManuGH/auraxd/internal/stream"
)

type stubSource struct {
	status stream.Status
}

func (s stubSource) Status() stream.Status { return s.status }

func newTestServer(t *testing.T, sources []StatusSource, opts ...Option) (*httptest.Server, registry.Registry) {
	t.Helper()
	reg, err := registry.Open(filepath.Join(t.TempDir(), "registry.db"), registry.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	srv := httptest.NewServer(NewServer(reg, sources, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv, reg
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyzReflectsConnectorState(t *testing.T) {
	t.Run("no connector connected", func(t *testing.T) {
		srv, _ := newTestServer(t, []StatusSource{
			stubSource{status: stream.Status{Platform: events.PlatformPC}},
		})
		resp, err := http.Get(srv.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("one connector connected", func(t *testing.T) {
		srv, _ := newTestServer(t, []StatusSource{
			stubSource{status: stream.Status{Platform: events.PlatformPC, Connected: true}},
			stubSource{status: stream.Status{Platform: events.PlatformPS4EU}},
		})
		resp, err := http.Get(srv.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Ready      bool            `json:"ready"`
			Connectors []stream.Status `json:"connectors"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.Ready)
		assert.Len(t, body.Connectors, 2)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubscribeLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	sub := map[string]string{
		"subject_key":    "outfit:pc:37509488620604883",
		"destination_id": "chan-100",
		"platform":       "pc",
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/subscriptions", sub)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Same pair again is a conflict, not a second row.
	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/subscriptions", sub)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/subscriptions?subject=outfit:pc:37509488620604883", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed struct {
		Subscriptions []registry.Subscription `json:"subscriptions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed.Subscriptions, 1)
	assert.Equal(t, "chan-100", listed.Subscriptions[0].DestinationID)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/v1/subscriptions", sub)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/v1/subscriptions", sub)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubscribeValidation(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/subscriptions", map[string]string{
		"destination_id": "chan-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/subscriptions", map[string]string{
		"subject_key": "alerts:pc:1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/subscriptions", bytes.NewBufferString("{broken"))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestListRequiresSubject(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/v1/subscriptions")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPruneDestinationRemovesAllRows(t *testing.T) {
	srv, reg := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, reg.Subscribe(ctx, registry.Subscription{SubjectKey: "alerts:pc:1", DestinationID: "chan-7", Platform: "pc"}))
	require.NoError(t, reg.Subscribe(ctx, registry.Subscription{SubjectKey: "alerts:pc:10", DestinationID: "chan-7", Platform: "pc"}))
	require.NoError(t, reg.Subscribe(ctx, registry.Subscription{SubjectKey: "alerts:pc:1", DestinationID: "chan-8", Platform: "pc"}))

	resp := doJSON(t, http.MethodDelete, srv.URL+"/v1/destinations/chan-7", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Removed int64 `json:"removed"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(2), body.Removed)

	// The other destination is untouched.
	ids, err := reg.Lookup(ctx, "alerts:pc:1")
	require.NoError(t, err)
	assert.Equal(t, []string{"chan-8"}, ids)
}

func TestManagementRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, nil, WithRateLimit(2, time.Minute))

	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + "/v1/subscriptions?subject=alerts:pc:1")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/v1/subscriptions?subject=alerts:pc:1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
