package migrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/probelab/polymigrate/logger"
	"github.com/probelab/polymigrate/problem"
	"github.com/probelab/polymigrate/srvcerr"
)

// SyncReport summarizes one storage synchronization run.
type SyncReport struct {
	Uploaded int `json:"uploaded"`
	Deleted  int `json:"deleted"`
	Total    int `json:"total"`
}

func testNamespace(recordID uuid.UUID) string {
	return fmt.Sprintf("test_cases/%s", recordID)
}

// MigrateTestCasesToStorage fetches the complete judge test set of the
// problem's source and rewrites its storage namespace from scratch:
// clean everything, upload input `i` and answer `i.a` per test, then
// verify the object count. Clean-then-write makes reruns converge even
// when the source shrank its test set.
func (s *Srvc) MigrateTestCasesToStorage(ctx context.Context, recordID uuid.UUID) (SyncReport, error) {
	p, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, problem.ErrNotFound) {
			return SyncReport{}, newErrProblemNotFound()
		}
		return SyncReport{}, srvcerr.ErrInternalSE().SetDebug(err)
	}

	ctx = logger.WithMigration(ctx, p.PolygonID)
	log := logger.FromContext(ctx)

	release, err := s.acquireRunLock(ctx, p.PolygonID)
	if err != nil {
		return SyncReport{}, err
	}
	defer release()

	// Fetch before touching storage: a partial source never destroys a
	// previously complete namespace.
	tests, err := s.fetch.FetchAllTestCases(ctx, p.PolygonID)
	if err != nil {
		return SyncReport{}, classifyFetchErr(err)
	}

	ns := testNamespace(recordID)

	stale, err := s.store.ListObjects(ctx, ns)
	if err != nil {
		return SyncReport{}, newErrStorageSyncFailed().SetDebug(err)
	}
	if err := s.store.CleanNamespace(ctx, ns); err != nil {
		return SyncReport{}, newErrStorageSyncFailed().SetDebug(err)
	}
	log.Info("cleaned test namespace", "namespace", ns, "deleted", len(stale))

	for _, tc := range tests {
		name := strconv.Itoa(tc.Index)
		if err := s.store.PutObject(ctx, ns, name, tc.Input); err != nil {
			return SyncReport{}, newErrStorageSyncFailed().SetDebug(err)
		}
		if err := s.store.PutObject(ctx, ns, name+".a", tc.Answer); err != nil {
			return SyncReport{}, newErrStorageSyncFailed().SetDebug(err)
		}
	}

	names, err := s.store.ListObjects(ctx, ns)
	if err != nil {
		return SyncReport{}, newErrStorageSyncFailed().SetDebug(err)
	}
	want := 2 * len(tests)
	if len(names) != want {
		return SyncReport{}, newErrStorageVerifyFailed(want, len(names))
	}

	// Keep the recorded count in step with what storage now holds.
	if p.TestCount != len(tests) {
		p.TestCount = len(tests)
		if err := s.repo.Upsert(ctx, &p); err != nil {
			return SyncReport{}, srvcerr.ErrInternalSE().SetDebug(err)
		}
	}

	report := SyncReport{
		Uploaded: want,
		Deleted:  len(stale),
		Total:    len(tests),
	}
	log.Info("test storage sync complete",
		"uploaded", report.Uploaded, "deleted", report.Deleted, "tests", report.Total)
	return report, nil
}
