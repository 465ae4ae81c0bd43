package download

import (
	"errors"
	"fmt"
)

// NotFoundError means the server answered 404 for a checksum URL,
// which is how a release that does not exist upstream shows up.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no such release: %s was not found", e.URL)
}

// StatusError is any other non-success HTTP status. It is never retried.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned HTTP status %d", e.URL, e.StatusCode)
}

// MissingContentLengthError is returned when a response does not declare its size.
type MissingContentLengthError struct {
	URL string
}

func (e *MissingContentLengthError) Error() string {
	return fmt.Sprintf("response for %s has no content length", e.URL)
}

// ChecksumMismatchError means the downloaded bytes do not hash to the published digest.
type ChecksumMismatchError struct {
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum did not match: expected %s, computed %s", e.Expected, e.Actual)
}

// MalformedChecksumError means the checksum file holds no digest token.
type MalformedChecksumError struct {
	Path     string
	Contents string
}

func (e *MalformedChecksumError) Error() string {
	return fmt.Sprintf("malformed checksum file %s: %q", e.Path, e.Contents)
}

// transientError marks a failure worth retrying: the request never got a
// response, or the body stream broke part way.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

// IsTransient reports whether err was classified as a retryable network failure.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}
