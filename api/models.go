package api

import (
	"encoding/json"
	"time"

	"github.com/paragondesignz/spachat/chatlog"
	"github.com/paragondesignz/spachat/knowledgebase"
)

// ErrorResponse is the JSON body for all error statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoginRequest is the JSON body for POST /admin/auth/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// SessionResponse is returned from the auth endpoints.
type SessionResponse struct {
	Authenticated bool `json:"authenticated"`
}

// ChatRequest is the JSON body for POST /chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	UserName  string `json:"user_name,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is returned from POST /chat.
type ChatResponse struct {
	SessionID string          `json:"session_id"`
	Reply     string          `json:"reply"`
	Citations json.RawMessage `json:"citations,omitempty"`
}

// ContactRequest is the JSON body for POST /contact.
type ContactRequestBody struct {
	SessionID string `json:"session_id"`
	UserName  string `json:"user_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// ListChatsResponse is returned from GET /admin/chats.
type ListChatsResponse struct {
	Chats []ChatSummary `json:"chats"`
	PaginationMeta
}

// ChatSummary is one row of the admin chat list.
type ChatSummary struct {
	SessionID         string    `json:"session_id"`
	UserName          string    `json:"user_name"`
	MessageCount      int       `json:"message_count"`
	CallbackRequested bool      `json:"callback_requested"`
	Contacted         bool      `json:"contacted"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DeleteChatsRequest is the JSON body for DELETE /admin/chats.
type DeleteChatsRequest struct {
	SessionIDs []string `json:"session_ids"`
}

// DeleteChatsResponse reports how many sessions a bulk delete removed.
type DeleteChatsResponse struct {
	Deleted int `json:"deleted"`
}

// SetContactedRequest is the JSON body for POST /admin/chats/{sessionID}/contacted.
type SetContactedRequest struct {
	Contacted bool `json:"contacted"`
}

// ExportResponse is returned from GET /admin/chats/export.
type ExportResponse struct {
	ExportedAt time.Time      `json:"exported_at"`
	Chats      []*chatlog.Log `json:"chats"`
}

// CreateTextItemRequest is the JSON body for POST /admin/knowledgebase/text
// and PUT /admin/knowledgebase/{itemID}.
type CreateTextItemRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateItemMetadataRequest is the JSON body for PATCH /admin/knowledgebase/{itemID}.
type UpdateItemMetadataRequest struct {
	Title *string `json:"title,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// ListItemsResponse is returned from GET /admin/knowledgebase.
type ListItemsResponse struct {
	Items []*knowledgebase.Item `json:"items"`
}

// ScrapeRequest is the JSON body for POST /admin/scrape.
type ScrapeRequest struct {
	URL      string `json:"url,omitempty"`
	MaxPages int    `json:"max_pages,omitempty"`
}
