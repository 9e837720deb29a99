package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type pricePayload struct {
	Bitcoin struct {
		USD float64 `json:"usd"`
	} `json:"bitcoin"`
}

func TestClientGetJSONSuccess(t *testing.T) {
	var gotUA, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotKey = r.Header.Get("x-api-key")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":43250.5}}`))
	}))
	defer server.Close()

	client := NewClient("test", WithHeader("x-api-key", "k"), WithHeader("User-Agent", "board/2"))
	var out pricePayload
	require.NoError(t, client.GetJSON(context.Background(), server.URL, &out))
	require.Equal(t, 43250.5, out.Bitcoin.USD)
	require.Equal(t, "board/2", gotUA)
	require.Equal(t, "k", gotKey)
}

func TestClientAlways429ExhaustsAttempts(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":{"error_code":429}}`))
	}))
	defer server.Close()

	var delays []time.Duration
	retry := NewRetryHandler(RetryConfig{MaxAttempts: 3}).WithSleeper(recordingSleeper(&delays))
	client := NewClient("test", WithRetry(retry))

	err := client.GetJSON(context.Background(), server.URL, &pricePayload{})
	require.ErrorIs(t, err, ErrFetchFailed)
	require.True(t, IsRateLimited(err))
	require.EqualValues(t, 3, atomic.LoadInt32(&hits))
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestClientRetriesThenSucceeds(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	}))
	defer server.Close()

	var delays []time.Duration
	retry := NewRetryHandler(RetryConfig{MaxAttempts: 2}).WithSleeper(recordingSleeper(&delays))
	client := NewClient("test", WithRetry(retry))

	var out pricePayload
	require.NoError(t, client.GetJSON(context.Background(), server.URL, &out))
	require.Equal(t, 1.0, out.Bitcoin.USD)
	require.EqualValues(t, 2, atomic.LoadInt32(&hits))
	require.Len(t, delays, 1)
}

func TestClientAttemptTimeoutIsRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var delays []time.Duration
	retry := NewRetryHandler(RetryConfig{MaxAttempts: 2}).WithSleeper(recordingSleeper(&delays))
	client := NewClient("test", WithRetry(retry), WithAttemptTimeout(50*time.Millisecond))

	require.NoError(t, client.GetJSON(context.Background(), server.URL, &pricePayload{}))
	require.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestClientDecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	retry := NewRetryHandler(RetryConfig{MaxAttempts: 1})
	client := NewClient("test", WithRetry(retry))
	err := client.GetJSON(context.Background(), server.URL, &pricePayload{})
	require.ErrorIs(t, err, ErrFetchFailed)
	require.Contains(t, err.Error(), "decode response")
}

func TestClientPostJSON(t *testing.T) {
	var method, contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, contentType = r.Method, r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":2}}`))
	}))
	defer server.Close()

	var out pricePayload
	client := NewClient("test")
	require.NoError(t, client.PostJSON(context.Background(), server.URL, map[string]string{"type": "x"}, &out))
	require.Equal(t, 2.0, out.Bitcoin.USD)
	require.Equal(t, http.MethodPost, method)
	require.Equal(t, "application/json", contentType)
}

func TestClientOnceBypassesGate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"gecko_says":"(V3) To the Moon!"}`))
	}))
	defer server.Close()

	gate := NewGate(time.Hour)
	require.NoError(t, gate.Wait(context.Background()))
	client := NewClient("test", WithGate(gate))

	start := time.Now()
	var out map[string]any
	require.NoError(t, client.Once(context.Background(), http.MethodGet, server.URL, nil, &out))
	require.Less(t, time.Since(start), time.Second)
	require.Contains(t, out, "gecko_says")
}
