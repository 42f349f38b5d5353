package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/httplog/v2"

	"github.com/probelab/polymigrate/auth"
	"github.com/probelab/polymigrate/httpjson"
	"github.com/probelab/polymigrate/migrator"
	"github.com/probelab/polymigrate/problem"
)

type migrateProblemRequest struct {
	SourceID   string   `json:"source_id"`
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags"`
	Locked     bool     `json:"locked"`
}

func (httpserver *HttpServer) migrateProblem(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	if !requireScope(w, r, auth.ScopeMigrate) {
		return
	}

	var req migrateProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteErrorJson(w, "invalid request body",
			http.StatusBadRequest, "invalid_request")
		return
	}
	if req.SourceID == "" {
		httpjson.WriteErrorJson(w, "source_id is required",
			http.StatusBadRequest, "invalid_request")
		return
	}

	fields := migrator.UserFields{
		Difficulty: problem.Difficulty(req.Difficulty),
		Tags:       req.Tags,
		Locked:     req.Locked,
	}

	p, err := httpserver.migrSrvc.MigrateMetadataAndSamples(r.Context(), req.SourceID, fields)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteSuccessJson(w, p)
}
