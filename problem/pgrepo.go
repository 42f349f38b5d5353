package problem

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/probelab/polymigrate/logger"
)

// ErrNotFound is returned when a problem lookup matches no row.
var ErrNotFound = errors.New("problem not found")

// PgRepo persists problems, samples and tag associations in Postgres.
// The pool is created once per process and shared.
type PgRepo struct {
	pool *pgxpool.Pool
}

func NewPgRepo(pool *pgxpool.Pool) *PgRepo {
	return &PgRepo{pool: pool}
}

const problemColumns = `
	id, polygon_id, slug, title, difficulty,
	time_limit_ms, memory_limit_kb, checker,
	statement_story, statement_input, statement_output, statement_notes,
	test_count, locked, created_at, updated_at`

func scanProblem(row pgx.Row) (Problem, error) {
	var p Problem
	err := row.Scan(
		&p.ID, &p.PolygonID, &p.Slug, &p.Title, &p.Difficulty,
		&p.TimeLimitMs, &p.MemoryLimitKb, &p.Checker,
		&p.StatementStory, &p.StatementInput, &p.StatementOutput, &p.StatementNotes,
		&p.TestCount, &p.Locked, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (r *PgRepo) GetByID(ctx context.Context, id uuid.UUID) (Problem, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+problemColumns+` FROM problems WHERE id = $1`, id)
	p, err := scanProblem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Problem{}, ErrNotFound
		}
		return Problem{}, fmt.Errorf("failed to get problem by id: %w", err)
	}
	p.Tags, err = r.GetTags(ctx, p.ID)
	if err != nil {
		return Problem{}, err
	}
	return p, nil
}

func (r *PgRepo) GetByPolygonID(ctx context.Context, polygonID string) (Problem, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+problemColumns+` FROM problems WHERE polygon_id = $1`, polygonID)
	p, err := scanProblem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Problem{}, ErrNotFound
		}
		return Problem{}, fmt.Errorf("failed to get problem by polygon id: %w", err)
	}
	p.Tags, err = r.GetTags(ctx, p.ID)
	if err != nil {
		return Problem{}, err
	}
	return p, nil
}

func (r *PgRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM problems WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}
	return exists, nil
}

// Upsert inserts the problem or, when a row with the same polygon_id
// already exists, updates it in place. The slug column is written only
// on insert; a re-migration never changes an assigned slug. The stored
// id and slug are written back into p.
func (r *PgRepo) Upsert(ctx context.Context, p *Problem) error {
	log := logger.FromContext(ctx)
	log.Debug("upserting problem", "polygon_id", p.PolygonID, "slug", p.Slug)

	query := `
		INSERT INTO problems (
			id, polygon_id, slug, title, difficulty,
			time_limit_ms, memory_limit_kb, checker,
			statement_story, statement_input, statement_output, statement_notes,
			test_count, locked
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (polygon_id) DO UPDATE SET
			title = EXCLUDED.title,
			difficulty = EXCLUDED.difficulty,
			time_limit_ms = EXCLUDED.time_limit_ms,
			memory_limit_kb = EXCLUDED.memory_limit_kb,
			checker = EXCLUDED.checker,
			statement_story = EXCLUDED.statement_story,
			statement_input = EXCLUDED.statement_input,
			statement_output = EXCLUDED.statement_output,
			statement_notes = EXCLUDED.statement_notes,
			test_count = EXCLUDED.test_count,
			locked = EXCLUDED.locked,
			updated_at = NOW()
		RETURNING id, slug, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		p.ID, p.PolygonID, p.Slug, p.Title, p.Difficulty,
		p.TimeLimitMs, p.MemoryLimitKb, p.Checker,
		p.StatementStory, p.StatementInput, p.StatementOutput, p.StatementNotes,
		p.TestCount, p.Locked,
	).Scan(&p.ID, &p.Slug, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert problem: %w", err)
	}
	return nil
}

// ReplaceSamples swaps the full sample set of a problem in one
// transaction: delete everything, insert the current set. Partial
// updates cannot shrink a collection; full replace can, and a reader
// sees either the old complete set or the new one, never a mix.
func (r *PgRepo) ReplaceSamples(ctx context.Context, problemID uuid.UUID, samples []SampleTest) error {
	log := logger.FromContext(ctx)
	log.Debug("replacing samples", "problem_id", problemID, "count", len(samples))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM sample_tests WHERE problem_id = $1`, problemID)
	if err != nil {
		return fmt.Errorf("failed to delete existing samples: %w", err)
	}

	for _, s := range samples {
		_, err = tx.Exec(ctx, `
			INSERT INTO sample_tests (problem_id, ord, input, output)
			VALUES ($1, $2, $3, $4)
		`, problemID, s.Ord, s.Input, s.Output)
		if err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", s.Ord, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sample replace: %w", err)
	}
	return nil
}

func (r *PgRepo) GetSamples(ctx context.Context, problemID uuid.UUID) ([]SampleTest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT problem_id, ord, input, output
		FROM sample_tests WHERE problem_id = $1 ORDER BY ord ASC
	`, problemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []SampleTest
	for rows.Next() {
		var s SampleTest
		if err := rows.Scan(&s.ProblemID, &s.Ord, &s.Input, &s.Output); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// SetTags replaces the problem's tag associations. Tag rows themselves
// are a shared vocabulary: missing ones are created, none are ever
// deleted here.
func (r *PgRepo) SetTags(ctx context.Context, problemID uuid.UUID, tags []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM problem_tags WHERE problem_id = $1`, problemID)
	if err != nil {
		return fmt.Errorf("failed to clear tag associations: %w", err)
	}

	for _, name := range tags {
		var tagID uuid.UUID
		err = tx.QueryRow(ctx, `
			INSERT INTO tags (id, name) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, uuid.New(), name).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("failed to resolve tag %q: %w", name, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO problem_tags (problem_id, tag_id) VALUES ($1, $2)
		`, problemID, tagID)
		if err != nil {
			return fmt.Errorf("failed to associate tag %q: %w", name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tag replace: %w", err)
	}
	return nil
}

func (r *PgRepo) GetTags(ctx context.Context, problemID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.name FROM tags t
		JOIN problem_tags pt ON pt.tag_id = t.id
		WHERE pt.problem_id = $1 ORDER BY t.name ASC
	`, problemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

func (r *PgRepo) List(ctx context.Context) ([]Problem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT`+problemColumns+` FROM problems ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}
	defer rows.Close()

	var problems []Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan problem: %w", err)
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}

// Delete removes a problem. Samples and tag associations go with it
// via FK cascade; the tag vocabulary stays.
func (r *PgRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM problems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete problem: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
