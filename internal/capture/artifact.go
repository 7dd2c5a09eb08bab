package capture

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Kind distinguishes capture outputs.
type Kind string

const (
	RawVideo   Kind = "raw_video"
	StillPhoto Kind = "still_photo"
)

// ErrArtifactTooSmall marks a capture output that exists but is below the
// minimum byte threshold (camera produced a stub or died mid-write).
var ErrArtifactTooSmall = errors.New("artifact below minimum size")

// Artifact is a validated capture output. Downstream stages must only ever
// receive an Artifact that passed [Validate].
type Artifact struct {
	Path      string
	Kind      Kind
	CreatedAt time.Time
	SizeBytes int64
}

// Validate stats path and enforces the minimum size threshold, returning the
// trusted Artifact on success.
func Validate(path string, kind Kind, minBytes int64) (Artifact, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("%s missing: %w", kind, err)
	}
	if fi.Size() < minBytes {
		return Artifact{}, fmt.Errorf("%s %s: %w (%d < %d bytes)",
			kind, path, ErrArtifactTooSmall, fi.Size(), minBytes)
	}
	return Artifact{
		Path:      path,
		Kind:      kind,
		CreatedAt: fi.ModTime(),
		SizeBytes: fi.Size(),
	}, nil
}
