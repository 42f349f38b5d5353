package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/probelab/polymigrate/logger"
)

// Client executes signed calls against the Polygon problem API. It
// holds a single shared http.Client; it keeps no other state and is
// safe for concurrent use.
type Client struct {
	httpc   *http.Client
	baseURL string
	apiKey  string
	secret  string
	timeout time.Duration
}

func NewClient(baseURL, apiKey, secret string, timeout time.Duration) *Client {
	return &Client{
		httpc:   &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		secret:  secret,
		timeout: timeout,
	}
}

// apiEnvelope is the JSON wrapper of every structured response.
type apiEnvelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

// call executes one signed request and returns the raw response body.
// Every attempt gets its own nonce and timestamp; a retried logical
// call therefore never reuses a signature.
func (c *Client) call(ctx context.Context, method string, params map[string]string) ([]byte, error) {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("apiKey", c.apiKey)
	values.Set("time", strconv.FormatInt(time.Now().Unix(), 10))
	values.Set("apiSig", signParams(method, values, c.secret, newNonce()))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL,
		strings.NewReader(values.Encode()))
	if err != nil {
		return nil, &PermanentError{Method: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	logger.FromContext(ctx).Debug("calling polygon api", "method", method)

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Covers timeouts, DNS failures and connection resets.
		return nil, &TransientError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Method: method, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &TransientError{Method: method,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body))}
	default:
		// 4xx responses still carry a JSON envelope with a comment.
		var env apiEnvelope
		comment := ""
		if err := json.Unmarshal(body, &env); err == nil {
			comment = env.Comment
		}
		return nil, &PermanentError{Method: method, Comment: comment,
			Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
}

// callResult executes a signed request and decodes the JSON envelope
// into out.
func (c *Client) callResult(ctx context.Context, method string, params map[string]string, out any) error {
	body, err := c.call(ctx, method, params)
	if err != nil {
		return err
	}
	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &PermanentError{Method: method,
			Err: fmt.Errorf("malformed response: %w", err)}
	}
	if env.Status != "OK" {
		return &PermanentError{Method: method, Comment: env.Comment,
			Err: fmt.Errorf("api status %q", env.Status)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return &PermanentError{Method: method,
			Err: fmt.Errorf("malformed result: %w", err)}
	}
	return nil
}

func (c *Client) ProblemInfo(ctx context.Context, problemID string) (problemInfo, error) {
	var info problemInfo
	err := c.callResult(ctx, "problem.info", map[string]string{"problemId": problemID}, &info)
	return info, err
}

func (c *Client) ProblemChecker(ctx context.Context, problemID string) (string, error) {
	var checker string
	err := c.callResult(ctx, "problem.checker", map[string]string{"problemId": problemID}, &checker)
	return checker, err
}

func (c *Client) ProblemStatements(ctx context.Context, problemID string) (map[string]statementPayload, error) {
	var statements map[string]statementPayload
	err := c.callResult(ctx, "problem.statements", map[string]string{"problemId": problemID}, &statements)
	return statements, err
}

func (c *Client) ProblemTests(ctx context.Context, problemID string) ([]testMeta, error) {
	var tests []testMeta
	err := c.callResult(ctx, "problem.tests",
		map[string]string{"problemId": problemID, "testset": "tests"}, &tests)
	return tests, err
}

// ProblemTestInput returns the raw input bytes of one test.
func (c *Client) ProblemTestInput(ctx context.Context, problemID string, index int) ([]byte, error) {
	return c.call(ctx, "problem.testInput", map[string]string{
		"problemId": problemID,
		"testset":   "tests",
		"testIndex": strconv.Itoa(index),
	})
}

// ProblemTestAnswer returns the raw expected-output bytes of one test.
func (c *Client) ProblemTestAnswer(ctx context.Context, problemID string, index int) ([]byte, error) {
	return c.call(ctx, "problem.testAnswer", map[string]string{
		"problemId": problemID,
		"testset":   "tests",
		"testIndex": strconv.Itoa(index),
	})
}

func (c *Client) ProblemFiles(ctx context.Context, problemID string) ([]FileMeta, error) {
	var files struct {
		ResourceFiles []FileMeta `json:"resourceFiles"`
		SourceFiles   []FileMeta `json:"sourceFiles"`
		AuxFiles      []FileMeta `json:"auxFiles"`
	}
	err := c.callResult(ctx, "problem.files", map[string]string{"problemId": problemID}, &files)
	if err != nil {
		return nil, err
	}
	all := append(files.ResourceFiles, files.SourceFiles...)
	return append(all, files.AuxFiles...), nil
}

// ProblemViewFile returns the raw content of a named problem file.
func (c *Client) ProblemViewFile(ctx context.Context, problemID, fileType, name string) ([]byte, error) {
	return c.call(ctx, "problem.viewFile", map[string]string{
		"problemId": problemID,
		"type":      fileType,
		"name":      name,
	})
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
