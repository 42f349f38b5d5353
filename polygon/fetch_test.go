package polygon_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/polymigrate/polygon"
	"github.com/probelab/polymigrate/rediscache"
)

// fakePolygon serves a problem with the given test inputs/answers and
// counts calls per API method.
type fakePolygon struct {
	mu      sync.Mutex
	calls   map[string]int
	tests   []string // tests[i] is input of test i+1
	answers []string
	samples map[int]bool // indices flagged for the statement
	failIdx map[int]bool // testInput indices that always return 502
}

func (f *fakePolygon) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		f.calls[r.URL.Path]++
		f.mu.Unlock()

		switch r.URL.Path {
		case "/problem.info":
			fmt.Fprint(w, `{"status":"OK","result":{"timeLimit":2000,"memoryLimit":256}}`)
		case "/problem.checker":
			fmt.Fprint(w, `{"status":"OK","result":"std::wcmp.cpp"}`)
		case "/problem.statements":
			fmt.Fprint(w, `{"status":"OK","result":{"english":{"name":"Two Sum","legend":"story","input":"in fmt","output":"out fmt","notes":"1 <= n"}}}`)
		case "/problem.tests":
			w.Write([]byte(f.testsJSON()))
		case "/problem.testInput":
			idx := atoiForm(r, "testIndex")
			if f.failIdx[idx] {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, f.tests[idx-1])
		case "/problem.testAnswer":
			idx := atoiForm(r, "testIndex")
			fmt.Fprint(w, f.answers[idx-1])
		default:
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"status":"FAILED","comment":"unknown method"}`)
		}
	})
}

func (f *fakePolygon) testsJSON() string {
	out := `{"status":"OK","result":[`
	for i := range f.tests {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"index":%d,"manual":false,"useInStatements":%v}`,
			i+1, f.samples[i+1])
	}
	return out + `]}`
}

func (f *fakePolygon) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls["/"+method]
}

func atoiForm(r *http.Request, key string) int {
	var idx int
	fmt.Sscanf(r.Form.Get(key), "%d", &idx)
	return idx
}

func newTestFetcher(t *testing.T, fake *fakePolygon) *polygon.Fetcher {
	t.Helper()
	fake.calls = map[string]int{}

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	cache, err := rediscache.New(rdb, time.Hour)
	require.NoError(t, err)

	client := polygon.NewClient(srv.URL, "key", "secret", 5*time.Second)
	return polygon.NewFetcher(client, cache, 1, 3)
}

func TestFetchProblemInfo(t *testing.T) {
	t.Parallel()
	fake := &fakePolygon{tests: []string{"1 2", "3 4"}, answers: []string{"3", "7"}}
	fetcher := newTestFetcher(t, fake)

	prob, err := fetcher.FetchProblemInfo(context.Background(), "102")
	require.NoError(t, err)
	assert.Equal(t, "102", prob.PolygonID)
	assert.Equal(t, "Two Sum", prob.Title)
	assert.Equal(t, 2000, prob.TimeLimitMs)
	assert.Equal(t, 256*1024, prob.MemoryLimitKb)
	assert.Equal(t, "std::wcmp.cpp", prob.Checker)
	assert.Equal(t, "story", prob.Statement.Story)
	assert.Equal(t, 2, prob.TestCount)
}

func TestFetcherCacheAvoidsSecondCall(t *testing.T) {
	t.Parallel()
	fake := &fakePolygon{tests: []string{"1 2"}, answers: []string{"3"}}
	fetcher := newTestFetcher(t, fake)
	ctx := context.Background()

	first, err := fetcher.FetchTestCase(ctx, "102", 1)
	require.NoError(t, err)
	second, err := fetcher.FetchTestCase(ctx, "102", 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.count("problem.testInput"),
		"second fetch within TTL must be served from cache")
}

func TestFetchAllTestCasesOrderedAndComplete(t *testing.T) {
	t.Parallel()
	fake := &fakePolygon{
		tests:   []string{"a", "b", "c", "d", "e"},
		answers: []string{"A", "B", "C", "D", "E"},
	}
	fetcher := newTestFetcher(t, fake)

	cases, err := fetcher.FetchAllTestCases(context.Background(), "102")
	require.NoError(t, err)
	require.Len(t, cases, 5)
	for i, tc := range cases {
		assert.Equal(t, i+1, tc.Index)
		assert.Equal(t, fake.tests[i], string(tc.Input))
		assert.Equal(t, fake.answers[i], string(tc.Answer))
	}
}

func TestFetchAllTestCasesReportsMissingIndices(t *testing.T) {
	t.Parallel()
	fake := &fakePolygon{
		tests:   []string{"a", "b", "c", "d"},
		answers: []string{"A", "B", "C", "D"},
		failIdx: map[int]bool{3: true},
	}
	fetcher := newTestFetcher(t, fake)

	_, err := fetcher.FetchAllTestCases(context.Background(), "102")
	require.Error(t, err)

	var partial *polygon.PartialFetchError
	require.True(t, errors.As(err, &partial),
		"an unreachable index must fail the fetch, not shorten the list")
	assert.Equal(t, []int{3}, partial.MissingIndices)
	assert.Equal(t, "102", partial.ProblemID)
}

func TestFetchSamples(t *testing.T) {
	t.Parallel()
	fake := &fakePolygon{
		tests:   []string{"1 2", "3 4", "5 6"},
		answers: []string{"3", "7", "11"},
		samples: map[int]bool{1: true, 3: true},
	}
	fetcher := newTestFetcher(t, fake)

	samples, err := fetcher.FetchSamples(context.Background(), "102")
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 1, samples[0].Ord)
	assert.Equal(t, "1 2", samples[0].Input)
	assert.Equal(t, "3", samples[0].Output)
	assert.Equal(t, 2, samples[1].Ord)
	assert.Equal(t, "5 6", samples[1].Input)
	assert.Equal(t, "11", samples[1].Output)
}
