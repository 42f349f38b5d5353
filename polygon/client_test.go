package polygon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSignsEveryRequest(t *testing.T) {
	t.Parallel()

	var sigs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "key", r.Form.Get("apiKey"))
		assert.NotEmpty(t, r.Form.Get("time"))
		sig := r.Form.Get("apiSig")
		require.Len(t, sig, nonceLength+128, "nonce plus sha512 hex")
		sigs = append(sigs, sig)
		w.Write([]byte(`{"status":"OK","result":{"timeLimit":1000,"memoryLimit":256}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", 5*time.Second)
	ctx := context.Background()

	info, err := client.ProblemInfo(ctx, "102")
	require.NoError(t, err)
	assert.Equal(t, 1000, info.TimeLimit)
	assert.Equal(t, 256, info.MemoryLimit)

	_, err = client.ProblemInfo(ctx, "102")
	require.NoError(t, err)

	require.Len(t, sigs, 2)
	assert.NotEqual(t, sigs[0], sigs[1], "retrying the same logical call must use a fresh nonce")
}

func TestClientClassifiesServerErrorsAsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", 5*time.Second)
	_, err := client.ProblemInfo(context.Background(), "102")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestClientClassifiesRejectionsAsPermanent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":"FAILED","comment":"apiSig is invalid"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "bad-secret", 5*time.Second)
	_, err := client.ProblemInfo(context.Background(), "102")
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.Contains(t, err.Error(), "apiSig is invalid")
}

func TestClientFailedEnvelopeIsPermanent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"FAILED","comment":"problemId: Problem not found"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", 5*time.Second)
	_, err := client.ProblemInfo(context.Background(), "999999")
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

func TestClientTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", 20*time.Millisecond)
	_, err := client.ProblemInfo(context.Background(), "102")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}
