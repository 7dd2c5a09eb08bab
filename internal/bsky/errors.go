package bsky

import (
	"errors"
	"fmt"
)

// ErrPollTimeout is returned when a processing job never reaches a terminal
// state within the polling ceiling. Equivalent to job failure for the
// publish stage.
var ErrPollTimeout = errors.New("video processing did not finish within the polling ceiling")

// AuthError is fatal to the run: retrying with the same credentials cannot
// change the outcome.
type AuthError struct {
	Op  string // "create session", "service auth"
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// ResolutionError covers PDS endpoint discovery failures. Transient network
// failures are retried a bounded number of times before one of these
// escapes; a definitive directory answer (non-2xx) fails immediately.
type ResolutionError struct {
	DID string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve PDS for %s: %v", e.DID, e.Err)
}
func (e *ResolutionError) Unwrap() error { return e.Err }

// UploadError covers upload rejections other than the recoverable conflict
// case. The byte upload is not resumable, so these are fatal to the publish
// stage.
type UploadError struct {
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("video upload rejected (%d): %s", e.StatusCode, e.Body)
}

// PublishError covers post-record creation failures. The uploaded blob is
// not rolled back; an uploaded-but-unposted video is an accepted outcome and
// must be visible in the error text.
type PublishError struct {
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("create post (uploaded video is NOT rolled back): %v", e.Err)
}
func (e *PublishError) Unwrap() error { return e.Err }
