package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/probelab/polymigrate/logger"
)

// Cache is the artifact cache consulted before every external call.
// Implemented by rediscache.Cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Fetcher retrieves problem artifacts through the signed client,
// consulting the cache on every path. Cache consultation is not
// optional per call site; it lives inside the fetcher so that the same
// problem can never hit the cache on one path and the live API on
// another.
type Fetcher struct {
	client      *Client
	cache       Cache
	maxRetries  int
	concurrency int
}

func NewFetcher(client *Client, cache Cache, maxRetries, concurrency int) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{
		client:      client,
		cache:       cache,
		maxRetries:  maxRetries,
		concurrency: concurrency,
	}
}

func keyInfo(id string) string       { return id + "_info" }
func keyChecker(id string) string    { return id + "_checker" }
func keyStatements(id string) string { return id + "_statements" }
func keyCount(id string) string      { return id + "_test_cases_count" }
func keyTest(id string, i int) string {
	return fmt.Sprintf("%s_test_cases_test_%d", id, i)
}

// FetchProblemInfo returns the current snapshot of the problem's
// metadata and statement.
func (f *Fetcher) FetchProblemInfo(ctx context.Context, problemID string) (SourceProblem, error) {
	var info problemInfo
	err := f.cachedJSON(ctx, keyInfo(problemID), &info, func() (any, error) {
		return f.client.ProblemInfo(ctx, problemID)
	})
	if err != nil {
		return SourceProblem{}, err
	}

	var checker string
	err = f.cachedJSON(ctx, keyChecker(problemID), &checker, func() (any, error) {
		return f.client.ProblemChecker(ctx, problemID)
	})
	if err != nil {
		return SourceProblem{}, err
	}

	var statements map[string]statementPayload
	err = f.cachedJSON(ctx, keyStatements(problemID), &statements, func() (any, error) {
		return f.client.ProblemStatements(ctx, problemID)
	})
	if err != nil {
		return SourceProblem{}, err
	}

	count, err := f.FetchTestCaseCount(ctx, problemID)
	if err != nil {
		return SourceProblem{}, err
	}

	lang, stmt := pickStatement(statements)

	return SourceProblem{
		PolygonID:     problemID,
		Title:         stmt.Name,
		TimeLimitMs:   info.TimeLimit,
		MemoryLimitKb: info.MemoryLimit * 1024,
		Checker:       checker,
		Statement: Statement{
			Language:     lang,
			Story:        stmt.Legend,
			InputFormat:  stmt.Input,
			OutputFormat: stmt.Output,
			Notes:        stmt.Notes,
		},
		TestCount: count,
	}, nil
}

// FetchTestCaseCount returns the number of judge tests the source
// currently has.
func (f *Fetcher) FetchTestCaseCount(ctx context.Context, problemID string) (int, error) {
	if raw, ok := f.cacheGet(ctx, keyCount(problemID)); ok {
		if count, err := strconv.Atoi(string(raw)); err == nil {
			return count, nil
		}
	}
	tests, err := f.fetchTestsMeta(ctx, problemID)
	if err != nil {
		return 0, err
	}
	count := len(tests)
	f.cacheSet(ctx, keyCount(problemID), []byte(strconv.Itoa(count)))
	return count, nil
}

// FetchTestCase returns one judge test case by its 1-based index,
// retrying transient failures with exponential backoff.
func (f *Fetcher) FetchTestCase(ctx context.Context, problemID string, index int) (JudgeTestCase, error) {
	key := keyTest(problemID, index)
	if raw, ok := f.cacheGet(ctx, key); ok {
		var tc JudgeTestCase
		if err := json.Unmarshal(raw, &tc); err == nil {
			return tc, nil
		}
	}

	var tc JudgeTestCase
	err := f.withRetry(ctx, func() error {
		input, err := f.client.ProblemTestInput(ctx, problemID, index)
		if err != nil {
			return err
		}
		answer, err := f.client.ProblemTestAnswer(ctx, problemID, index)
		if err != nil {
			return err
		}
		tc = JudgeTestCase{Index: index, Input: input, Answer: answer}
		return nil
	})
	if err != nil {
		return JudgeTestCase{}, err
	}

	if raw, err := json.Marshal(tc); err == nil {
		f.cacheSet(ctx, key, raw)
	}
	return tc, nil
}

// FetchAllTestCases fetches the complete judge test set with bounded
// concurrency. On success the returned slice has exactly count entries
// ordered by index with no gaps; otherwise it fails with a
// PartialFetchError naming the unreachable indices, or with the first
// permanent error encountered.
func (f *Fetcher) FetchAllTestCases(ctx context.Context, problemID string) ([]JudgeTestCase, error) {
	count, err := f.FetchTestCaseCount(ctx, problemID)
	if err != nil {
		return nil, err
	}

	results := make([]JudgeTestCase, count)
	fetchErrs := make([]error, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i := 1; i <= count; i++ {
		index := i
		g.Go(func() error {
			tc, err := f.FetchTestCase(gctx, problemID, index)
			if err != nil {
				fetchErrs[index-1] = err
				// A permanent error aborts the whole fan-out early.
				if !IsTransient(err) {
					return err
				}
				return nil
			}
			results[index-1] = tc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var missing []int
	for i, err := range fetchErrs {
		if err != nil {
			missing = append(missing, i+1)
		}
	}
	if len(missing) > 0 {
		return nil, &PartialFetchError{ProblemID: problemID, MissingIndices: missing}
	}

	// Completeness check: the list must be exactly 1..count. "No data
	// at index i" is an error, never an absent test.
	for i, tc := range results {
		if tc.Index != i+1 {
			return nil, &PartialFetchError{ProblemID: problemID, MissingIndices: []int{i + 1}}
		}
	}

	logger.FromContext(ctx).Info("fetched full judge test set",
		"polygon_id", problemID, "count", count)
	return results, nil
}

// FetchSamples returns the tests flagged for display in the statement,
// re-numbered 1..n in index order.
func (f *Fetcher) FetchSamples(ctx context.Context, problemID string) ([]SampleTest, error) {
	tests, err := f.fetchTestsMeta(ctx, problemID)
	if err != nil {
		return nil, err
	}

	var samples []SampleTest
	for _, meta := range tests {
		if !meta.UseInStatements {
			continue
		}
		tc, err := f.FetchTestCase(ctx, problemID, meta.Index)
		if err != nil {
			return nil, err
		}
		samples = append(samples, SampleTest{
			Ord:    len(samples) + 1,
			Input:  string(tc.Input),
			Output: string(tc.Answer),
		})
	}
	return samples, nil
}

func (f *Fetcher) fetchTestsMeta(ctx context.Context, problemID string) ([]testMeta, error) {
	var tests []testMeta
	err := f.cachedJSON(ctx, problemID+"_tests", &tests, func() (any, error) {
		var metas []testMeta
		err := f.withRetry(ctx, func() error {
			var err error
			metas, err = f.client.ProblemTests(ctx, problemID)
			return err
		})
		return metas, err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].Index < tests[j].Index })
	return tests, nil
}

// cachedJSON loads key from the cache into out, or calls fetch, caches
// its JSON serialization and decodes it into out.
func (f *Fetcher) cachedJSON(ctx context.Context, key string, out any, fetch func() (any, error)) error {
	if raw, ok := f.cacheGet(ctx, key); ok {
		if err := json.Unmarshal(raw, out); err == nil {
			return nil
		}
	}
	val, err := fetch()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to serialize %s for cache: %w", key, err)
	}
	f.cacheSet(ctx, key, raw)
	return json.Unmarshal(raw, out)
}

// cacheGet treats a cache failure as a miss: the migration must not
// fail because the cache is down, it just gets slower.
func (f *Fetcher) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	raw, found, err := f.cache.Get(ctx, key)
	if err != nil {
		logger.FromContext(ctx).Warn("cache get failed", "key", key, "error", err)
		return nil, false
	}
	return raw, found
}

func (f *Fetcher) cacheSet(ctx context.Context, key string, val []byte) {
	if err := f.cache.Set(ctx, key, val, 0); err != nil {
		logger.FromContext(ctx).Warn("cache set failed", "key", key, "error", err)
	}
}

// withRetry retries op with bounded exponential backoff as long as the
// failure is transient.
func (f *Fetcher) withRetry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(f.maxRetries)), ctx))
}
