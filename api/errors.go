package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/paragondesignz/spachat/assistant"
	"github.com/paragondesignz/spachat/crawler"
	"github.com/paragondesignz/spachat/knowledgebase"
	"github.com/paragondesignz/spachat/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func mapError(w http.ResponseWriter, err error) {
	var apiErr *assistant.APIError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, assistant.ErrFileNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, knowledgebase.ErrSubmissionFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, crawler.ErrRunFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
