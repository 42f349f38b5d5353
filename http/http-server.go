package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/golang-jwt/jwt/v5/request"
	"github.com/google/uuid"

	"github.com/probelab/polymigrate/auth"
	"github.com/probelab/polymigrate/httpjson"
	"github.com/probelab/polymigrate/migrator"
	"github.com/probelab/polymigrate/problem"
)

type migrationSrvc interface {
	MigrateMetadataAndSamples(ctx context.Context, sourceID string, fields migrator.UserFields) (problem.Problem, error)
	MigrateTestCasesToStorage(ctx context.Context, recordID uuid.UUID) (migrator.SyncReport, error)
}

type problemReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (problem.Problem, error)
	List(ctx context.Context) ([]problem.Problem, error)
}

type objectGetter interface {
	GetObject(ctx context.Context, namespace, name string) ([]byte, error)
}

type HttpServer struct {
	migrSrvc migrationSrvc
	probRepo problemReader
	store    objectGetter
	router   *chi.Mux
}

func NewHttpServer(
	migrSrvc migrationSrvc,
	probRepo problemReader,
	store objectGetter,
	jwtKey []byte,
) *HttpServer {
	router := chi.NewRouter()

	logger := httplog.NewLogger("polymigrate", httplog.Options{
		LogLevel:         slog.LevelDebug,
		Concise:          true,
		RequestHeaders:   true,
		MessageFieldName: "message",
	})

	router.Use(httplog.RequestLogger(logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           3000,
	}))

	router.Use(getJwtAuthMiddleware(jwtKey))

	server := &HttpServer{
		migrSrvc: migrSrvc,
		probRepo: probRepo,
		store:    store,
		router:   router,
	}

	server.routes()

	return server
}

func (httpserver *HttpServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpserver.router.ServeHTTP(w, r)
}

func (httpserver *HttpServer) Start(address string) error {
	return http.ListenAndServe(address, httpserver.router)
}

func (httpserver *HttpServer) routes() {
	r := httpserver.router
	r.Post("/problems/migrate", httpserver.migrateProblem)
	r.Post("/problems/{problemId}/sync-tests", httpserver.syncProblemTests)
	r.Get("/problems", httpserver.listProblems)
	r.Get("/problems/{problemId}", httpserver.getProblem)
	r.Get("/problems/{problemId}/tests/{testFile}", httpserver.downloadTestFile)
}

func getJwtAuthMiddleware(jwtKey []byte) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, err := request.BearerExtractor{}.ExtractToken(r)
			if err != nil {
				if errors.Is(err, request.ErrNoTokenInRequest) {
					ctx := context.WithValue(r.Context(), auth.CtxJwtClaimsKey, (*auth.JwtClaims)(nil))
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := auth.ValidateJWT(token, jwtKey)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), auth.CtxJwtClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}

// requireScope rejects the request unless the bearer token carries the
// scope. Returns false after writing the response.
func requireScope(w http.ResponseWriter, r *http.Request, scope string) bool {
	claims, _ := r.Context().Value(auth.CtxJwtClaimsKey).(*auth.JwtClaims)
	if !claims.HasScope(scope) {
		httpjson.WriteErrorJson(w, "missing required scope",
			http.StatusUnauthorized, "unauthorized")
		return false
	}
	return true
}
