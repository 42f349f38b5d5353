package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/polymigrate/auth"
	polyhttp "github.com/probelab/polymigrate/http"
	"github.com/probelab/polymigrate/migrator"
	"github.com/probelab/polymigrate/problem"
	"github.com/probelab/polymigrate/storage"
)

var testJwtKey = []byte("test")

type fakeMigrator struct {
	migrated problem.Problem
	report   migrator.SyncReport
	err      error

	gotSourceID string
	gotFields   migrator.UserFields
}

func (f *fakeMigrator) MigrateMetadataAndSamples(_ context.Context, sourceID string, fields migrator.UserFields) (problem.Problem, error) {
	f.gotSourceID = sourceID
	f.gotFields = fields
	return f.migrated, f.err
}

func (f *fakeMigrator) MigrateTestCasesToStorage(_ context.Context, _ uuid.UUID) (migrator.SyncReport, error) {
	return f.report, f.err
}

type fakeReader struct {
	problems map[uuid.UUID]problem.Problem
}

func (f *fakeReader) GetByID(_ context.Context, id uuid.UUID) (problem.Problem, error) {
	p, ok := f.problems[id]
	if !ok {
		return problem.Problem{}, problem.ErrNotFound
	}
	return p, nil
}

func (f *fakeReader) List(_ context.Context) ([]problem.Problem, error) {
	var out []problem.Problem
	for _, p := range f.problems {
		out = append(out, p)
	}
	return out, nil
}

func newTestServer(t *testing.T, m *fakeMigrator, r *fakeReader) *polyhttp.HttpServer {
	t.Helper()
	if m == nil {
		m = &fakeMigrator{}
	}
	if r == nil {
		r = &fakeReader{problems: map[uuid.UUID]problem.Problem{}}
	}
	store, err := storage.NewLocalProvider(t.TempDir())
	require.NoError(t, err)
	return polyhttp.NewHttpServer(m, r, store, testJwtKey)
}

func newTestServerWithStore(t *testing.T, store *storage.LocalProvider) *polyhttp.HttpServer {
	t.Helper()
	m := &fakeMigrator{}
	r := &fakeReader{problems: map[uuid.UUID]problem.Problem{}}
	return polyhttp.NewHttpServer(m, r, store, testJwtKey)
}

func migratorToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateJWT("tester", uuid.New(), []string{auth.ScopeMigrate}, testJwtKey)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, srv nethttp.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestMigrateEndpointHappyPath(t *testing.T) {
	m := &fakeMigrator{migrated: problem.Problem{
		ID:        uuid.New(),
		PolygonID: "100001",
		Slug:      "two-sum",
		Title:     "Two Sum",
	}}
	srv := newTestServer(t, m, nil)

	w := doJSON(t, srv, nethttp.MethodPost, "/problems/migrate", migratorToken(t),
		map[string]any{
			"source_id":  "100001",
			"difficulty": "Easy",
			"tags":       []string{"math"},
		})

	require.Equal(t, nethttp.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "100001", m.gotSourceID)
	assert.Equal(t, problem.DifficultyEasy, m.gotFields.Difficulty)

	var resp struct {
		Status string          `json:"status"`
		Data   problem.Problem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "two-sum", resp.Data.Slug)
}

func TestMigrateEndpointRequiresToken(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	w := doJSON(t, srv, nethttp.MethodPost, "/problems/migrate", "",
		map[string]any{"source_id": "100001", "difficulty": "Easy"})

	assert.Equal(t, nethttp.StatusUnauthorized, w.Code)
}

func TestMigrateEndpointRequiresScope(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	token, err := auth.GenerateJWT("viewer", uuid.New(), nil, testJwtKey)
	require.NoError(t, err)

	w := doJSON(t, srv, nethttp.MethodPost, "/problems/migrate", token,
		map[string]any{"source_id": "100001", "difficulty": "Easy"})

	assert.Equal(t, nethttp.StatusUnauthorized, w.Code)
}

func TestMigrateEndpointRejectsMissingSourceID(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	w := doJSON(t, srv, nethttp.MethodPost, "/problems/migrate", migratorToken(t),
		map[string]any{"difficulty": "Easy"})

	assert.Equal(t, nethttp.StatusBadRequest, w.Code)
}

func TestSyncEndpointReturnsReport(t *testing.T) {
	m := &fakeMigrator{report: migrator.SyncReport{Uploaded: 24, Deleted: 40, Total: 12}}
	srv := newTestServer(t, m, nil)

	w := doJSON(t, srv, nethttp.MethodPost,
		fmt.Sprintf("/problems/%s/sync-tests", uuid.New()), migratorToken(t), nil)

	require.Equal(t, nethttp.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data migrator.SyncReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 24, resp.Data.Uploaded)
	assert.Equal(t, 12, resp.Data.Total)
}

func TestGetProblemNotFound(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	w := doJSON(t, srv, nethttp.MethodGet,
		fmt.Sprintf("/problems/%s", uuid.New()), "", nil)

	assert.Equal(t, nethttp.StatusNotFound, w.Code)
}

func TestDownloadTestFile(t *testing.T) {
	store, err := storage.NewLocalProvider(t.TempDir())
	require.NoError(t, err)
	srv := newTestServerWithStore(t, store)

	id := uuid.New()
	ns := fmt.Sprintf("test_cases/%s", id)
	require.NoError(t, store.PutObject(context.Background(), ns, "7.a", []byte("42\n")))

	w := doJSON(t, srv, nethttp.MethodGet,
		fmt.Sprintf("/problems/%s/tests/7.a", id), migratorToken(t), nil)

	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.Equal(t, "42\n", w.Body.String())

	w = doJSON(t, srv, nethttp.MethodGet,
		fmt.Sprintf("/problems/%s/tests/8", id), migratorToken(t), nil)
	assert.Equal(t, nethttp.StatusNotFound, w.Code)
}

func TestListProblemsIsPublic(t *testing.T) {
	id := uuid.New()
	r := &fakeReader{problems: map[uuid.UUID]problem.Problem{
		id: {ID: id, Slug: "two-sum", Title: "Two Sum"},
	}}
	srv := newTestServer(t, nil, r)

	w := doJSON(t, srv, nethttp.MethodGet, "/problems", "", nil)

	require.Equal(t, nethttp.StatusOK, w.Code)
	var resp struct {
		Data []problem.Problem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "two-sum", resp.Data[0].Slug)
}
