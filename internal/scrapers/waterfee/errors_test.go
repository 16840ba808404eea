package waterfee

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestErrorCode(t *testing.T) {
	testCases := []struct {
		err    error
		expect string
	}{
		{err: nil, expect: ""},
		{err: context.DeadlineExceeded, expect: CodeTimeout},
		{err: fmt.Errorf("wrapped: %w", context.DeadlineExceeded), expect: CodeTimeout},
		{err: &url.Error{Op: "Get", URL: "https://wt.lzss.com", Err: timeoutError{}}, expect: CodeTimeout},
		{err: &url.Error{Op: "Post", URL: "https://wt.lzss.com", Err: errors.New("connection reset")}, expect: CodeConnection},
		{err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, expect: CodeConnection},
		{err: fmt.Errorf("billing: %w", &StatusError{Method: "POST", StatusCode: 502, Status: "502 Bad Gateway"}), expect: CodeConnection},
		{err: ErrDataListNotFound, expect: CodeUnknown},
		{err: fmt.Errorf("%w: missing [__VIEWSTATE]", ErrTokensUnavailable), expect: CodeUnknown},
		{err: errors.New("something else"), expect: CodeUnknown},
	}

	for _, test := range testCases {
		require.Equal(t, test.expect, ErrorCode(test.err), fmt.Sprint(test.err))
	}
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Method: "POST", StatusCode: 500, Status: "500 Internal Server Error"}
	require.Equal(t, "POST: unexpected status 500 Internal Server Error", err.Error())
}
