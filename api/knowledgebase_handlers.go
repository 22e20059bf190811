package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paragondesignz/spachat/knowledgebase"
)

// maxUploadBytes caps knowledge base document uploads at 20 MiB.
const maxUploadBytes = 20 << 20

// ListKnowledgebase returns knowledge base items, optionally filtered by the
// "type" and "status" query parameters.
func (a *API) ListKnowledgebase(w http.ResponseWriter, r *http.Request) {
	filter := knowledgebase.Filter{
		Type:   knowledgebase.ItemType(r.URL.Query().Get("type")),
		Status: knowledgebase.ItemStatus(r.URL.Query().Get("status")),
	}
	items, err := a.kb.List(r.Context(), filter)
	if err != nil {
		mapError(w, err)
		return
	}
	if items == nil {
		items = []*knowledgebase.Item{}
	}
	writeJSON(w, http.StatusOK, ListItemsResponse{Items: items})
}

// CreateTextItem creates a draft from inline text.
func (a *API) CreateTextItem(w http.ResponseWriter, r *http.Request) {
	var req CreateTextItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	item, err := a.kb.CreateTextDraft(r.Context(), req.Title, req.Content)
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditItemCreated, r, slog.String("item_id", item.ID))
	writeJSON(w, http.StatusCreated, item)
}

// UploadItem creates a draft from a multipart file upload. The file part must
// be named "file"; an optional "notes" part is stored alongside.
func (a *API) UploadItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload failed")
		return
	}

	item, err := a.kb.CreateUploadDraft(r.Context(), header.Filename, content,
		header.Header.Get("Content-Type"), r.FormValue("notes"))
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditItemCreated, r, slog.String("item_id", item.ID), slog.String("file", header.Filename))
	writeJSON(w, http.StatusCreated, item)
}

// GetItem returns one item's metadata.
func (a *API) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := a.kb.Get(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// GetItemContent streams the stored document back to the dashboard.
func (a *API) GetItemContent(w http.ResponseWriter, r *http.Request) {
	content, item, err := a.kb.Content(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		mapError(w, err)
		return
	}
	w.Header().Set("Content-Type", item.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+item.StoredFileName+`"`)
	w.Write(content)
}

// UpdateTextItem replaces a text item's content and title.
func (a *API) UpdateTextItem(w http.ResponseWriter, r *http.Request) {
	var req CreateTextItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	item, err := a.kb.UpdateText(r.Context(), chi.URLParam(r, "itemID"), req.Title, req.Content)
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditItemUpdated, r, slog.String("item_id", item.ID))
	writeJSON(w, http.StatusOK, item)
}

// UpdateItemMetadata patches an item's title or notes.
func (a *API) UpdateItemMetadata(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := a.kb.UpdateMetadata(r.Context(), chi.URLParam(r, "itemID"), func(it *knowledgebase.Item) {
		if req.Title != nil {
			it.Title = *req.Title
		}
		if req.Notes != nil {
			it.Notes = *req.Notes
		}
	})
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditItemUpdated, r, slog.String("item_id", item.ID))
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem removes an item and its assistant copy.
func (a *API) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if err := a.kb.Delete(r.Context(), itemID); err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditItemDeleted, r, slog.String("item_id", itemID))
	w.WriteHeader(http.StatusNoContent)
}

// SubmitItem pushes a draft to the assistant for indexing. A rejected upload
// surfaces as 502 with the failure recorded on the item.
func (a *API) SubmitItem(w http.ResponseWriter, r *http.Request) {
	item, err := a.kb.Submit(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditItemSubmitted, r, slog.String("item_id", item.ID))
	writeJSON(w, http.StatusOK, item)
}
