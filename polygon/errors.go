package polygon

import (
	"errors"
	"fmt"
	"sort"
)

// TransientError marks a failure worth retrying: network errors,
// timeouts, 429 and 5xx responses.
type TransientError struct {
	Method string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("polygon %s: transient: %v", e.Method, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a failure that a retry cannot fix: bad
// credentials, a rejected signature, a 4xx response or a malformed
// payload. Comment carries the remote service's explanation when the
// API returned a FAILED envelope.
type PermanentError struct {
	Method  string
	Comment string
	Err     error
}

func (e *PermanentError) Error() string {
	if e.Comment != "" {
		return fmt.Sprintf("polygon %s: %s", e.Method, e.Comment)
	}
	return fmt.Sprintf("polygon %s: %v", e.Method, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// PartialFetchError reports the test indices that remained unreachable
// after retries. A fetch never returns a short list as if it were
// complete; it fails with this error instead.
type PartialFetchError struct {
	ProblemID      string
	MissingIndices []int
}

func (e *PartialFetchError) Error() string {
	sort.Ints(e.MissingIndices)
	return fmt.Sprintf("polygon problem %s: test cases missing after retries: %v",
		e.ProblemID, e.MissingIndices)
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
