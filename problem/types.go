package problem

import (
	"time"

	"github.com/google/uuid"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ValidDifficulty reports whether d is one of the known levels.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Problem is the relational-store projection of a source problem plus
// locally owned fields. PolygonID and Slug are both unique; Slug is
// immutable once assigned so external references never break.
type Problem struct {
	ID            uuid.UUID  `json:"id"`
	PolygonID     string     `json:"polygon_id"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Difficulty    Difficulty `json:"difficulty"`
	TimeLimitMs   int        `json:"time_limit_ms"`
	MemoryLimitKb int        `json:"memory_limit_kb"`
	Checker       string     `json:"checker"`

	StatementStory  string `json:"statement_story"`
	StatementInput  string `json:"statement_input"`
	StatementOutput string `json:"statement_output"`
	StatementNotes  string `json:"statement_notes"`

	TestCount int  `json:"test_count"`
	Locked    bool `json:"locked"`

	Tags []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SampleTest is a statement sample persisted alongside the problem.
// Ord is 1-based display order, unique per problem.
type SampleTest struct {
	ProblemID uuid.UUID `json:"problem_id"`
	Ord       int       `json:"ord"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
}
