package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"

	"github.com/probelab/polymigrate/httpjson"
	"github.com/probelab/polymigrate/problem"
)

func (httpserver *HttpServer) getProblem(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	problemID, err := uuid.Parse(chi.URLParam(r, "problemId"))
	if err != nil {
		httpjson.WriteErrorJson(w, "invalid problem id",
			http.StatusBadRequest, "invalid_request")
		return
	}

	p, err := httpserver.probRepo.GetByID(r.Context(), problemID)
	if err != nil {
		if errors.Is(err, problem.ErrNotFound) {
			httpjson.WriteErrorJson(w, "problem not found",
				http.StatusNotFound, "problem_not_found")
			return
		}
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteSuccessJson(w, p)
}
