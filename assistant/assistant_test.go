package assistant_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paragondesignz/spachat/assistant"
)

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/assistant/chat/spa-helper", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Api-Key"))

		var req struct {
			Messages []assistant.Message `json:"messages"`
			Stream   bool                `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":{"content":"the Bergen holds 4 people"},"citations":[{"position":1}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	c := assistant.NewClient(srv.URL, "test-key", "spa-helper")
	answer, err := c.Chat(t.Context(), []assistant.Message{{Role: "user", Content: "how big is the Bergen?"}})
	require.NoError(t, err)
	assert.Equal(t, "the Bergen holds 4 people", answer.Content)
	assert.JSONEq(t, `[{"position":1}]`, string(answer.Citations))
}

func TestChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "assistant not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := assistant.NewClient(srv.URL, "test-key", "missing")
	_, err := c.Chat(t.Context(), []assistant.Message{{Role: "user", Content: "hi"}})
	var apiErr *assistant.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestUploadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assistant/files/spa-helper", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "products.txt", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"f-1","name":"products.txt","status":"Processing","size":12}`))
	}))
	defer srv.Close()

	c := assistant.NewClient(srv.URL, "test-key", "spa-helper")
	f, err := c.UploadFile(t.Context(), "products.txt", []byte("Bergen $949\n"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "f-1", f.ID)
	assert.Equal(t, "Processing", f.Status)
}

func TestListFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"files":[{"id":"f-1","name":"a.txt","status":"Available","size":10},{"id":"f-2","name":"b.txt","status":"Processing","size":20}]}`))
	}))
	defer srv.Close()

	c := assistant.NewClient(srv.URL, "test-key", "spa-helper")
	files, err := c.ListFiles(t.Context())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "Available", files[0].Status)
}

func TestDeleteFileNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := assistant.NewClient(srv.URL, "test-key", "spa-helper")
	err := c.DeleteFile(t.Context(), "gone")
	assert.True(t, errors.Is(err, assistant.ErrFileNotFound))
}
