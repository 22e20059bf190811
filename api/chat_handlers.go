package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paragondesignz/spachat/assistant"
	"github.com/paragondesignz/spachat/chatlog"
)

// chatContextWindow bounds how much history is replayed to the assistant.
const chatContextWindow = 20

// Chat handles one public widget message: the visitor's message and the
// assistant's reply are appended to the session log.
func (a *API) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.SessionID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "session_id and message are required")
		return
	}

	ctx := r.Context()
	log, err := a.chats.Upsert(ctx, req.SessionID, req.UserName)
	if err != nil {
		mapError(w, err)
		return
	}

	history := log.Messages
	if len(history) > chatContextWindow {
		history = history[len(history)-chatContextWindow:]
	}
	messages := make([]assistant.Message, 0, len(history)+2)
	if a.chatInstructions != "" {
		messages = append(messages, assistant.Message{Role: "user", Content: a.chatInstructions})
	}
	for _, m := range history {
		messages = append(messages, assistant.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, assistant.Message{Role: "user", Content: req.Message})

	answer, err := a.assistant.Chat(ctx, messages)
	if err != nil {
		mapError(w, err)
		return
	}

	_, err = a.chats.AppendMessages(ctx, req.SessionID, req.UserName, []chatlog.MessageInput{
		{Role: chatlog.RoleUser, Content: req.Message},
		{Role: chatlog.RoleAssistant, Content: answer.Content},
	})
	if err != nil {
		mapError(w, err)
		return
	}
	if a.stats != nil {
		a.stats.Invalidate()
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: req.SessionID,
		Reply:     answer.Content,
		Citations: answer.Citations,
	})
}

// ChatHistory returns the visitor's own session transcript so the widget can
// restore it after a page reload.
func (a *API) ChatHistory(w http.ResponseWriter, r *http.Request) {
	log, err := a.chats.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

// ContactRequest records a callback request against the session and, when a
// mailer is configured, notifies staff. A failed notification is logged but
// never fails the request.
func (a *API) ContactRequest(w http.ResponseWriter, r *http.Request) {
	var req ContactRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.Email == "" && req.Phone == "" {
		writeError(w, http.StatusBadRequest, "an email address or phone number is required")
		return
	}

	ctx := r.Context()
	if req.UserName != "" {
		if _, err := a.chats.Upsert(ctx, req.SessionID, req.UserName); err != nil {
			mapError(w, err)
			return
		}
	}
	log, err := a.chats.RecordCallbackRequest(ctx, req.SessionID, req.Email, req.Phone, req.Notes)
	if err != nil {
		mapError(w, err)
		return
	}
	if a.stats != nil {
		a.stats.Invalidate()
	}

	if a.mailer != nil {
		if _, err := a.mailer.SendCallbackNotification(ctx, log); err != nil {
			a.audit.logFailure(AuditNotifyFailed, r, "notification failed",
				slog.String("session_id", req.SessionID),
				slog.String("error", err.Error()))
		}
		if req.Email != "" {
			if _, err := a.mailer.SendCustomerConfirmation(ctx, req.Email, log.UserName); err != nil {
				a.audit.logFailure(AuditNotifyFailed, r, "confirmation failed",
					slog.String("session_id", req.SessionID),
					slog.String("error", err.Error()))
			}
		}
	}

	writeJSON(w, http.StatusOK, log)
}

// ListChats returns a page of chat sessions for the dashboard, most recently
// active first. A "query" parameter restricts the listing to sessions whose
// user name or message content matches.
func (a *API) ListChats(w http.ResponseWriter, r *http.Request) {
	var logs []*chatlog.Log
	var err error
	if query := r.URL.Query().Get("query"); query != "" {
		logs, err = a.chats.Search(r.Context(), query)
	} else {
		logs, err = a.chats.List(r.Context())
	}
	if err != nil {
		mapError(w, err)
		return
	}

	limit, offset := parsePagination(r)
	start, end, meta := paginateSlice(len(logs), limit, offset)

	summaries := make([]ChatSummary, 0, end-start)
	for _, log := range logs[start:end] {
		summaries = append(summaries, ChatSummary{
			SessionID:         log.SessionID,
			UserName:          log.UserName,
			MessageCount:      len(log.Messages),
			CallbackRequested: log.CallbackRequested,
			Contacted:         log.Contacted,
			CreatedAt:         log.CreatedAt,
			UpdatedAt:         log.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, ListChatsResponse{Chats: summaries, PaginationMeta: meta})
}

// GetChat returns one full session transcript.
func (a *API) GetChat(w http.ResponseWriter, r *http.Request) {
	log, err := a.chats.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

// DeleteChat removes a session transcript.
func (a *API) DeleteChat(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := a.chats.Delete(r.Context(), sessionID); err != nil {
		mapError(w, err)
		return
	}
	if a.stats != nil {
		a.stats.Invalidate()
	}
	a.audit.log(AuditChatDeleted, r, slog.String("session_id", sessionID))
	w.WriteHeader(http.StatusNoContent)
}

// DeleteChats removes a batch of session transcripts in one request.
func (a *API) DeleteChats(w http.ResponseWriter, r *http.Request) {
	var req DeleteChatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.SessionIDs) == 0 {
		writeError(w, http.StatusBadRequest, "session_ids is required")
		return
	}

	deleted, err := a.chats.DeleteMany(r.Context(), req.SessionIDs)
	if err != nil {
		mapError(w, err)
		return
	}
	if a.stats != nil {
		a.stats.Invalidate()
	}
	a.audit.log(AuditChatDeleted, r, slog.Int("deleted", deleted))
	writeJSON(w, http.StatusOK, DeleteChatsResponse{Deleted: deleted})
}

// SetChatContacted toggles the staff followed-up flag on a callback request.
func (a *API) SetChatContacted(w http.ResponseWriter, r *http.Request) {
	var req SetContactedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	log, err := a.chats.SetContacted(r.Context(), chi.URLParam(r, "sessionID"), req.Contacted)
	if err != nil {
		mapError(w, err)
		return
	}
	if a.stats != nil {
		a.stats.Invalidate()
	}
	writeJSON(w, http.StatusOK, log)
}

// ExportChats returns every transcript as a single JSON document.
func (a *API) ExportChats(w http.ResponseWriter, r *http.Request) {
	logs, err := a.chats.List(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditChatExported, r, slog.Int("chats", len(logs)))

	w.Header().Set("Content-Disposition", `attachment; filename="chat-export.json"`)
	writeJSON(w, http.StatusOK, ExportResponse{
		ExportedAt: time.Now().UTC(),
		Chats:      logs,
	})
}
