package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliver_PostsJSON(t *testing.T) {
	var (
		gotAuth string
		gotCT   string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient("tok", time.Second)
	defer c.Close()
	err := c.Deliver(context.Background(), srv.URL, map[string]any{"job_id": "j1"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, "j1", gotBody["job_id"])
}

func TestDeliver_NoAuthWithoutKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	require.NoError(t, NewClient("", 0).Deliver(context.Background(), srv.URL, struct{}{}))
	assert.Empty(t, gotAuth)
}

func TestDeliver_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			err := NewClient("", time.Second).Deliver(context.Background(), srv.URL, 1)
			require.Error(t, err)
			var retryErr *RetryableError
			assert.Equal(t, tt.retryable, errors.As(err, &retryErr))
			if tt.retryable {
				assert.Equal(t, tt.status, retryErr.StatusCode)
			}
		})
	}
}

func TestDeliver_RetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewClient("", time.Second).Deliver(context.Background(), srv.URL, 1)
	var retryErr *RetryableError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, 7*time.Second, retryErr.RetryAfter)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("-1"))
	assert.Zero(t, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestDeliver_ConnectionFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient("", time.Second).Deliver(context.Background(), url, 1)
	var retryErr *RetryableError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, 0, retryErr.StatusCode)
}

func TestDeliver_CanceledContextIsFinal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewClient("", time.Second).Deliver(ctx, srv.URL, 1)
	require.Error(t, err)
	var retryErr *RetryableError
	assert.False(t, errors.As(err, &retryErr))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryableError_TruncatesMessage(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	e := &RetryableError{StatusCode: 503, Message: string(long)}
	assert.Less(t, len(e.Error()), 260)
	assert.Contains(t, e.Error(), "status 503")
}
