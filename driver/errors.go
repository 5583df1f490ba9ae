package driver

import (
	"fmt"

	"github.com/coldframe/origin/internal/herr"
	"github.com/coldframe/origin/response"
)

// RecoverFilterFailure implements spec.md §7's InternalFilter
// propagation rule: "recoverable iff headers have not yet reached the
// writer; the driver substitutes a 500 response." Call it after the
// handler returns and resp.Err() is non-nil. It returns true iff it
// wrote a substitute 500 response — a false return means the error was
// not an InternalFilter, or headers were already started, and the
// caller must close the connection instead.
func RecoverFilterFailure(resp *response.Response, write Write) bool {
	err := resp.Err()
	if err == nil || !herr.IsInternalFilter(err) {
		return false
	}
	if resp.State().Has(response.Started) {
		return false
	}
	body := fmt.Sprintf("500 Internal Server Error: %s", err)
	msg := fmt.Sprintf("HTTP/1.1 500 Internal Server Error\r\ncontent-length: %d\r\nconnection: close\r\n\r\n%s",
		len(body), body)
	_ = write([]byte(msg))
	return true
}

// FatalToConnection reports whether err terminates the whole
// connection rather than just the current response, per spec.md §7's
// propagation table: ClientGone aborts the writer and drops any
// further queued work on the connection.
func FatalToConnection(err error) bool {
	return herr.IsClientGone(err)
}
