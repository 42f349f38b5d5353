package migrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/probelab/polymigrate/polygon"
	"github.com/probelab/polymigrate/problem"
	"github.com/probelab/polymigrate/storage"
)

// fetcher is the slice of the source client the engine needs.
type fetcher interface {
	FetchProblemInfo(ctx context.Context, problemID string) (polygon.SourceProblem, error)
	FetchSamples(ctx context.Context, problemID string) ([]polygon.SampleTest, error)
	FetchAllTestCases(ctx context.Context, problemID string) ([]polygon.JudgeTestCase, error)
}

type problemRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (problem.Problem, error)
	GetByPolygonID(ctx context.Context, polygonID string) (problem.Problem, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Upsert(ctx context.Context, p *problem.Problem) error
	ReplaceSamples(ctx context.Context, problemID uuid.UUID, samples []problem.SampleTest) error
	SetTags(ctx context.Context, problemID uuid.UUID, tags []string) error
}

// Srvc reconciles the local problem store with the authoring service.
// Every run re-derives the target state from a fresh source snapshot;
// nothing is ever patched incrementally.
type Srvc struct {
	fetch   fetcher
	repo    problemRepo
	store   storage.Provider
	rdb     *redis.Client
	lockTTL time.Duration
}

func NewSrvc(fetch fetcher, repo problemRepo, store storage.Provider, rdb *redis.Client, lockTTL time.Duration) *Srvc {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &Srvc{
		fetch:   fetch,
		repo:    repo,
		store:   store,
		rdb:     rdb,
		lockTTL: lockTTL,
	}
}

// UserFields are the locally owned attributes a collaborator supplies
// when migrating a problem. They are validated before any fetch or
// write happens.
type UserFields struct {
	Difficulty problem.Difficulty `json:"difficulty"`
	Tags       []string           `json:"tags"`
	Locked     bool               `json:"locked"`
}

const maxTagLen = 64

func validateUserFields(f UserFields) error {
	if !problem.ValidDifficulty(f.Difficulty) {
		return newErrInvalidDifficulty(string(f.Difficulty))
	}
	for _, tag := range f.Tags {
		if tag == "" || len(tag) > maxTagLen {
			return newErrInvalidTag(tag)
		}
	}
	return nil
}
