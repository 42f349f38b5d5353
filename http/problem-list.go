package http

import (
	"net/http"

	"github.com/go-chi/httplog/v2"

	"github.com/probelab/polymigrate/httpjson"
	"github.com/probelab/polymigrate/problem"
)

func (httpserver *HttpServer) listProblems(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	problems, err := httpserver.probRepo.List(r.Context())
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	if problems == nil {
		problems = []problem.Problem{}
	}

	httpjson.WriteSuccessJson(w, problems)
}
