package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paragondesignz/spachat/assistant"
)

// ListAssistantFiles returns the files currently indexed by the assistant.
func (a *API) ListAssistantFiles(w http.ResponseWriter, r *http.Request) {
	files, err := a.assistant.ListFiles(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	if files == nil {
		files = []assistant.File{}
	}
	writeJSON(w, http.StatusOK, map[string][]assistant.File{"files": files})
}

// DescribeAssistantFile returns one indexed file's metadata, including its
// processing status.
func (a *API) DescribeAssistantFile(w http.ResponseWriter, r *http.Request) {
	file, err := a.assistant.DescribeFile(r.Context(), chi.URLParam(r, "fileID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// DeleteAssistantFile removes a file from the assistant's index.
func (a *API) DeleteAssistantFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if err := a.assistant.DeleteFile(r.Context(), fileID); err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditFileDeleted, r, slog.String("file_id", fileID))
	w.WriteHeader(http.StatusNoContent)
}

// SyncProducts refreshes the assistant's product catalogue from the
// storefront feed.
func (a *API) SyncProducts(w http.ResponseWriter, r *http.Request) {
	if a.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "storefront sync is not configured")
		return
	}
	res, err := a.syncer.SyncProducts(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditFeedSynced, r, slog.String("file", res.FileName), slog.Int("entries", res.Entries))
	writeJSON(w, http.StatusOK, res)
}

// SyncBlog refreshes the assistant's blog file from the storefront feed. An
// optional "handle" query parameter selects the blog.
func (a *API) SyncBlog(w http.ResponseWriter, r *http.Request) {
	if a.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "storefront sync is not configured")
		return
	}
	res, err := a.syncer.SyncBlog(r.Context(), r.URL.Query().Get("handle"))
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditFeedSynced, r, slog.String("file", res.FileName), slog.Int("entries", res.Entries))
	writeJSON(w, http.StatusOK, res)
}

// ScrapeSite crawls the public website and replaces the assistant's website
// content file. The crawl runs synchronously; the dashboard holds the
// request open until it finishes.
func (a *API) ScrapeSite(w http.ResponseWriter, r *http.Request) {
	if a.crawler == nil {
		writeError(w, http.StatusServiceUnavailable, "website crawling is not configured")
		return
	}

	var req ScrapeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	site := req.URL
	if site == "" {
		site = a.crawlSite
	}
	if site == "" {
		writeError(w, http.StatusBadRequest, "no site configured to crawl")
		return
	}
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = a.crawlMaxPages
	}

	res, err := a.crawler.CrawlSite(r.Context(), site, maxPages, a.assistant)
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditCrawlCompleted, r, slog.String("site", site), slog.Int("pages", res.Pages))
	writeJSON(w, http.StatusOK, res)
}

// Stats returns the aggregated dashboard snapshot.
func (a *API) Stats(w http.ResponseWriter, r *http.Request) {
	snap, err := a.stats.Snapshot(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
