package migrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/probelab/polymigrate/logger"
	"github.com/probelab/polymigrate/polygon"
	"github.com/probelab/polymigrate/problem"
	"github.com/probelab/polymigrate/srvcerr"
)

// MigrateMetadataAndSamples pulls the current metadata, statement and
// sample tests of a source problem and reconciles the relational store
// with them. Source-derived fields are overwritten, locally owned ones
// come from userFields, and the slug of an existing record never
// changes. The sample set is replaced wholesale.
func (s *Srvc) MigrateMetadataAndSamples(ctx context.Context, sourceID string, userFields UserFields) (problem.Problem, error) {
	ctx = logger.WithMigration(ctx, sourceID)
	log := logger.FromContext(ctx)

	// User input is checked before anything is fetched or written, so a
	// typo in a tag never leaves a half-migrated record behind.
	if err := validateUserFields(userFields); err != nil {
		return problem.Problem{}, err
	}

	release, err := s.acquireRunLock(ctx, sourceID)
	if err != nil {
		return problem.Problem{}, err
	}
	defer release()

	src, err := s.fetch.FetchProblemInfo(ctx, sourceID)
	if err != nil {
		return problem.Problem{}, classifyFetchErr(err)
	}
	samples, err := s.fetch.FetchSamples(ctx, sourceID)
	if err != nil {
		return problem.Problem{}, classifyFetchErr(err)
	}

	p := problem.Problem{
		PolygonID:       sourceID,
		Title:           src.Title,
		Difficulty:      userFields.Difficulty,
		TimeLimitMs:     src.TimeLimitMs,
		MemoryLimitKb:   src.MemoryLimitKb,
		Checker:         src.Checker,
		StatementStory:  src.Statement.Story,
		StatementInput:  src.Statement.InputFormat,
		StatementOutput: src.Statement.OutputFormat,
		StatementNotes:  src.Statement.Notes,
		TestCount:       src.TestCount,
		Locked:          userFields.Locked,
	}

	existing, err := s.repo.GetByPolygonID(ctx, sourceID)
	switch {
	case err == nil:
		p.ID = existing.ID
		p.Slug = existing.Slug
		log.Info("updating existing problem", "slug", existing.Slug)
	case errors.Is(err, problem.ErrNotFound):
		p.ID = uuid.New()
		p.Slug, err = s.uniqueSlug(ctx, src.Title)
		if err != nil {
			return problem.Problem{}, srvcerr.ErrInternalSE().SetDebug(err)
		}
		log.Info("creating new problem", "slug", p.Slug)
	default:
		return problem.Problem{}, srvcerr.ErrInternalSE().SetDebug(err)
	}

	if err := s.repo.Upsert(ctx, &p); err != nil {
		return problem.Problem{}, srvcerr.ErrInternalSE().SetDebug(err)
	}
	if err := s.repo.SetTags(ctx, p.ID, userFields.Tags); err != nil {
		return problem.Problem{}, srvcerr.ErrInternalSE().SetDebug(err)
	}

	rows := make([]problem.SampleTest, 0, len(samples))
	for _, smp := range samples {
		rows = append(rows, problem.SampleTest{
			ProblemID: p.ID,
			Ord:       smp.Ord,
			Input:     smp.Input,
			Output:    smp.Output,
		})
	}
	if err := s.repo.ReplaceSamples(ctx, p.ID, rows); err != nil {
		return problem.Problem{}, srvcerr.ErrInternalSE().SetDebug(err)
	}

	stored, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return problem.Problem{}, srvcerr.ErrInternalSE().SetDebug(err)
	}
	log.Info("metadata migration complete", "slug", stored.Slug, "samples", len(rows))
	return stored, nil
}

// classifyFetchErr translates source client failures into the service
// error vocabulary while keeping the cause attached for logs.
func classifyFetchErr(err error) error {
	var partial *polygon.PartialFetchError
	if errors.As(err, &partial) {
		return newErrIncompleteTestSet(partial.MissingIndices).SetDebug(err)
	}
	if polygon.IsTransient(err) {
		return newErrSourceUnavailable().SetDebug(err)
	}
	var perm *polygon.PermanentError
	if errors.As(err, &perm) {
		return newErrSourceRejected().SetDebug(err)
	}
	return srvcerr.ErrInternalSE().SetDebug(fmt.Errorf("unexpected fetch failure: %w", err))
}
