package relay

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

var (
	// ErrUploadClosed is returned by Write after Close or Discard.
	ErrUploadClosed = errors.New("relay: upload already closed")
	// ErrInvalidTarget is returned by New for a missing or non-HTTP target URL.
	ErrInvalidTarget = errors.New("relay: invalid target url")
)

// maxDetailBytes bounds how much of a text/plain error body is read.
const maxDetailBytes = 100

// UnexpectedHTTPResponse reports a relay the backend rejected or never
// answered. Detail is the human-readable text relayed to the FTP client.
type UnexpectedHTTPResponse struct {
	Detail     string
	StatusCode int
	Err        error
}

func (e *UnexpectedHTTPResponse) Error() string {
	return e.Detail
}

func (e *UnexpectedHTTPResponse) Unwrap() error {
	return e.Err
}

// transportError normalizes a failure that happened before a response
// status was available.
func transportError(err error) *UnexpectedHTTPResponse {
	return &UnexpectedHTTPResponse{
		Detail: fmt.Sprintf("%T: %v", err, err),
		Err:    err,
	}
}

// statusError builds the "<status>: <reason>" detail, extended with the
// first body line when the backend answered in text/plain.
func statusError(resp *http.Response) *UnexpectedHTTPResponse {
	detail := strconv.Itoa(resp.StatusCode) + ": " + reasonPhrase(resp)

	if isTextPlain(resp.Header.Get("Content-Type")) {
		if line, ok := firstBodyLine(resp.Body); ok {
			detail += ". " + line
		}
	}

	return &UnexpectedHTTPResponse{Detail: detail, StatusCode: resp.StatusCode}
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}

func isTextPlain(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/plain"
}

// firstBodyLine is best effort: any read failure drops the extra detail.
func firstBodyLine(body io.Reader) (string, bool) {
	if body == nil {
		return "", false
	}
	data, err := io.ReadAll(io.LimitReader(body, maxDetailBytes))
	if err != nil || len(data) == 0 {
		return "", false
	}
	line := string(data)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	return line, true
}
