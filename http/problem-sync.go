package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"

	"github.com/probelab/polymigrate/auth"
	"github.com/probelab/polymigrate/httpjson"
)

func (httpserver *HttpServer) syncProblemTests(w http.ResponseWriter, r *http.Request) {
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

	report, err := httpserver.migrSrvc.MigrateTestCasesToStorage(r.Context(), problemID)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteSuccessJson(w, report)
}
