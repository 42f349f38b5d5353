package migrator

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"
)

// uniqueSlug derives a URL slug from the title, appending -1, -2, ...
// until it does not collide with an existing problem. Assigned slugs
// are never changed afterwards, so the loop only runs on first insert.
func (s *Srvc) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "problem"
	}

	candidate := base
	for i := 1; ; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
