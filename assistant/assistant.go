// Package assistant is the HTTP client for the managed retrieval/LLM
// assistant service. All semantic search, completion, and embedding work is
// delegated here; this client only moves messages and knowledge files over
// the wire.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the assistant data-plane endpoint.
const DefaultBaseURL = "https://prod-1-data.ke.pinecone.io"

// ErrFileNotFound is returned when the assistant does not know the file.
var ErrFileNotFound = errors.New("assistant file not found")

// APIError carries a non-2xx assistant response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("assistant API error: status %d: %s", e.Status, e.Body)
}

// Message is one chat turn sent to the assistant.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Answer is the assistant's reply. Citations and usage are passed through
// opaquely; their shapes belong to the assistant service.
type Answer struct {
	Content   string          `json:"content"`
	Citations json.RawMessage `json:"citations,omitempty"`
	Usage     json.RawMessage `json:"usage,omitempty"`
}

// File describes a knowledge file held by the assistant.
type File struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Size      int64  `json:"size"`
	CreatedOn string `json:"created_on"`
	UpdatedOn string `json:"updated_on"`
}

// Client talks to one named assistant.
type Client struct {
	http      *resty.Client
	assistant string
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout (default 2 minutes; chat
// completions and file processing are slow).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// NewClient creates a client for the named assistant. baseURL may be empty,
// in which case DefaultBaseURL is used.
func NewClient(baseURL, apiKey, assistantName string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Api-Key", apiKey).
			SetTimeout(2 * time.Minute),
		assistant: assistantName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Citations json.RawMessage `json:"citations"`
	Usage     json.RawMessage `json:"usage"`
}

// Chat sends the conversation and returns the assistant's reply.
func (c *Client) Chat(ctx context.Context, messages []Message) (*Answer, error) {
	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{Messages: messages, Stream: false}).
		SetResult(&out).
		Post("/assistant/chat/" + c.assistant)
	if err != nil {
		return nil, fmt.Errorf("assistant chat: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Status: resp.StatusCode(), Body: resp.String()}
	}
	return &Answer{
		Content:   out.Message.Content,
		Citations: out.Citations,
		Usage:     out.Usage,
	}, nil
}

// UploadFile submits a knowledge document under the given file name.
func (c *Client) UploadFile(ctx context.Context, name string, content []byte, contentType string) (*File, error) {
	var out File
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("file", name, contentType, bytes.NewReader(content)).
		SetResult(&out).
		Post("/assistant/files/" + c.assistant)
	if err != nil {
		return nil, fmt.Errorf("assistant upload %q: %w", name, err)
	}
	if resp.IsError() {
		return nil, &APIError{Status: resp.StatusCode(), Body: resp.String()}
	}
	return &out, nil
}

type listFilesResponse struct {
	Files []File `json:"files"`
}

// ListFiles returns all knowledge files the assistant holds.
func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	var out listFilesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/assistant/files/" + c.assistant)
	if err != nil {
		return nil, fmt.Errorf("assistant list files: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Status: resp.StatusCode(), Body: resp.String()}
	}
	return out.Files, nil
}

// DescribeFile returns the processing status of one knowledge file.
func (c *Client) DescribeFile(ctx context.Context, fileID string) (*File, error) {
	var out File
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/assistant/files/" + c.assistant + "/" + fileID)
	if err != nil {
		return nil, fmt.Errorf("assistant describe file %q: %w", fileID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrFileNotFound
	}
	if resp.IsError() {
		return nil, &APIError{Status: resp.StatusCode(), Body: resp.String()}
	}
	return &out, nil
}

// DeleteFile removes a knowledge file. A file the assistant no longer knows
// is reported as ErrFileNotFound so cleanup paths can ignore it.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/assistant/files/" + c.assistant + "/" + fileID)
	if err != nil {
		return fmt.Errorf("assistant delete file %q: %w", fileID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return ErrFileNotFound
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
