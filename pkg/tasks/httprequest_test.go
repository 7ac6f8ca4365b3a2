package tasks_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuekit/queuekit/pkg/httpcall"
	"github.com/queuekit/queuekit/pkg/queue"
	"github.com/queuekit/queuekit/pkg/tasks"
)

func TestNewHTTPRequestHandler(t *testing.T) {
	t.Parallel()

	t.Run("handler name matches payload type", func(t *testing.T) {
		t.Parallel()

		handler := tasks.NewHTTPRequestHandler(httpcall.NewCaller())
		assert.Contains(t, handler.Name(), "HTTPRequestPayload")
	})

	t.Run("delivers request", func(t *testing.T) {
		t.Parallel()

		var gotMethod, gotBody string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
		}))
		defer server.Close()

		handler := tasks.NewHTTPRequestHandler(httpcall.NewCaller())
		payload := marshalPayload(t, tasks.HTTPRequestPayload{
			Method: "PUT",
			URL:    server.URL,
			Body:   `{"state":"active"}`,
		})
		require.NoError(t, handler.Handle(context.Background(), payload))

		assert.Equal(t, http.MethodPut, gotMethod)
		assert.JSONEq(t, `{"state":"active"}`, gotBody)
	})

	t.Run("404 fails permanently", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		handler := tasks.NewHTTPRequestHandler(httpcall.NewCaller())
		payload := marshalPayload(t, tasks.HTTPRequestPayload{Method: "GET", URL: server.URL})

		err := handler.Handle(context.Background(), payload)
		assert.ErrorIs(t, err, queue.ErrPermanent)
	})

	t.Run("503 stays retryable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		handler := tasks.NewHTTPRequestHandler(httpcall.NewCaller())
		payload := marshalPayload(t, tasks.HTTPRequestPayload{Method: "GET", URL: server.URL})

		err := handler.Handle(context.Background(), payload)
		require.Error(t, err)
		assert.NotErrorIs(t, err, queue.ErrPermanent)
	})

	t.Run("invalid payload URL fails permanently", func(t *testing.T) {
		t.Parallel()

		handler := tasks.NewHTTPRequestHandler(httpcall.NewCaller())
		payload := marshalPayload(t, tasks.HTTPRequestPayload{Method: "GET", URL: "ftp://example.com"})

		err := handler.Handle(context.Background(), payload)
		assert.ErrorIs(t, err, queue.ErrPermanent)
	})
}
