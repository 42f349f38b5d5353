package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"

	"github.com/probelab/polymigrate/auth"
	"github.com/probelab/polymigrate/httpjson"
)

// downloadTestFile streams one stored judge test file ("7" or "7.a").
func (httpserver *HttpServer) downloadTestFile(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	if !requireScope(w, r, auth.ScopeMigrate) {
		return
	}

	problemID, err := uuid.Parse(chi.URLParam(r, "problemId"))
	if err != nil {
		httpjson.WriteErrorJson(w, "invalid problem id",
			http.StatusBadRequest, "invalid_request")
		return
	}
	name := chi.URLParam(r, "testFile")

	content, err := httpserver.store.GetObject(r.Context(),
		fmt.Sprintf("test_cases/%s", problemID), name)
	if err != nil {
		logger.Warn("test file download failed",
			"problem_id", problemID, "file", name, "error", err)
		httpjson.WriteErrorJson(w, "test file not found",
			http.StatusNotFound, "test_file_not_found")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(content)
}
