package migrator

import (
	"fmt"
	"net/http"

	"github.com/probelab/polymigrate/srvcerr"
)

const (
	ErrCodeInvalidDifficulty   = "invalid_difficulty"
	ErrCodeInvalidTag          = "invalid_tag"
	ErrCodeMigrationInFlight   = "migration_in_flight"
	ErrCodeSourceUnavailable   = "source_unavailable"
	ErrCodeSourceRejected      = "source_rejected"
	ErrCodeIncompleteTestSet   = "incomplete_test_set"
	ErrCodeStorageSyncFailed   = "storage_sync_failed"
	ErrCodeStorageVerifyFailed = "storage_verify_failed"
	ErrCodeProblemNotFound     = "problem_not_found"
)

func newErrProblemNotFound() *srvcerr.Error {
	return srvcerr.New(
		ErrCodeProblemNotFound,
		"the problem was not found",
	).SetHttpStatusCode(http.StatusNotFound)
}

func newErrInvalidDifficulty(got string) *srvcerr.Error {
	return srvcerr.New(
		ErrCodeInvalidDifficulty,
		fmt.Sprintf("difficulty must be Easy, Medium or Hard, got %q", got),
	).SetHttpStatusCode(http.StatusBadRequest)
}

func newErrInvalidTag(tag string) *srvcerr.Error {
	return srvcerr.New(
		ErrCodeInvalidTag,
		fmt.Sprintf("tag name %q is empty or too long", tag),
	).SetHttpStatusCode(http.StatusBadRequest)
}

func newErrMigrationInFlight(sourceID string) *srvcerr.Error {
	return srvcerr.New(
		ErrCodeMigrationInFlight,
		fmt.Sprintf("a migration for problem %s is already running", sourceID),
	).SetHttpStatusCode(http.StatusConflict)
}

func newErrSourceUnavailable() *srvcerr.Error {
	return srvcerr.New(
		ErrCodeSourceUnavailable,
		"the problem source is temporarily unavailable, try again later",
	).SetHttpStatusCode(http.StatusBadGateway)
}

func newErrSourceRejected() *srvcerr.Error {
	return srvcerr.New(
		ErrCodeSourceRejected,
		"the problem source rejected the request",
	).SetHttpStatusCode(http.StatusBadGateway)
}

func newErrIncompleteTestSet(missing []int) *srvcerr.Error {
	return srvcerr.New(
		ErrCodeIncompleteTestSet,
		fmt.Sprintf("could not fetch the complete test set, missing indices %v", missing),
	).SetHttpStatusCode(http.StatusBadGateway)
}

func newErrStorageSyncFailed() *srvcerr.Error {
	return srvcerr.New(
		ErrCodeStorageSyncFailed,
		"failed to write test cases to storage",
	).SetHttpStatusCode(http.StatusInternalServerError)
}

func newErrStorageVerifyFailed(want, got int) *srvcerr.Error {
	return srvcerr.New(
		ErrCodeStorageVerifyFailed,
		fmt.Sprintf("storage verification failed: expected %d objects, found %d", want, got),
	).SetHttpStatusCode(http.StatusInternalServerError)
}
