package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppSendText(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewWhatsAppClient(srv.URL, "12345", "secret")
	id, err := c.SendText(context.Background(), "+5215550001", "hola")
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", id)
	assert.Equal(t, "whatsapp", got.MessagingProduct)
	assert.Equal(t, "text", got.Type)
	require.NotNil(t, got.Text)
	assert.Equal(t, "hola", got.Text.Body)
}

func TestWhatsAppRetriesOnRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.2"}]}`))
	}))
	defer srv.Close()

	c := NewWhatsAppClient(srv.URL, "12345", "secret")
	require.NoError(t, c.Send(context.Background(), "+5215550001", "hola"))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestWhatsAppAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter","code":100}}`))
	}))
	defer srv.Close()

	c := NewWhatsAppClient(srv.URL, "12345", "secret")
	err := c.Send(context.Background(), "bad", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid parameter")
}

func TestWhatsAppSendDoesNotRetryServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewWhatsAppClient(srv.URL, "12345", "secret")
	err := c.Send(context.Background(), "+5215550001", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestWhatsAppMarkAsReadRetriesServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewWhatsAppClient(srv.URL, "12345", "secret")
	require.NoError(t, c.MarkAsRead(context.Background(), "wamid.in"))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestWhatsAppMarkAsRead(t *testing.T) {
	var got readReceipt
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewWhatsAppClient(srv.URL, "12345", "secret")
	require.NoError(t, c.MarkAsRead(context.Background(), "wamid.in"))
	assert.Equal(t, readReceipt{MessagingProduct: "whatsapp", Status: "read", MessageID: "wamid.in"}, got)
}
