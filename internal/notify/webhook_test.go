// SPDX-License-Identifier: MIT

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSinkPostsJSON(t *testing.T) {
	var mu sync.Mutex
	var gotPath string
	var gotBody Notification

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, 100, 10)
	err := sink.Send(context.Background(), "chan-42", Notification{Title: "Alert", Body: "Started", Color: "purple"})
	require.NoError(t, err)

	assert.Equal(t, "/chan-42", gotPath)
	assert.Equal(t, "Alert", gotBody.Title)
	assert.Equal(t, "purple", gotBody.Color)
}

func TestWebhookSinkClassifiesStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"forbidden is permission denied", http.StatusForbidden, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrPermissionDenied)
		}},
		{"unauthorized is permission denied", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrPermissionDenied)
		}},
		{"not found is destination gone", http.StatusNotFound, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrDestinationGone)
		}},
		{"gone is destination gone", http.StatusGone, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrDestinationGone)
		}},
		{"server error is transient", http.StatusInternalServerError, func(t *testing.T, err error) {
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrPermissionDenied)
			assert.NotErrorIs(t, err, ErrDestinationGone)
		}},
		{"rate limit is transient", http.StatusTooManyRequests, func(t *testing.T, err error) {
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrDestinationGone)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			sink := NewWebhookSink(srv.URL, 100, 10)
			err := sink.Send(context.Background(), "d1", Notification{Title: "t"})
			tt.check(t, err)
		})
	}
}

func TestWebhookSinkRespectsContextThroughLimiter(t *testing.T) {
	// Burst 1 at a very low rate: the second send has to wait and must bail
	// out when the context is cancelled.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, 0.001, 1)
	require.NoError(t, sink.Send(context.Background(), "d1", Notification{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sink.Send(ctx, "d1", Notification{})
	require.Error(t, err)
}
