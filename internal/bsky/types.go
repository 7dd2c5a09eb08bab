package bsky

import (
	"encoding/json"
	"time"
)

// Session holds the per-run credentials. Sessions are never persisted or
// cached across runs; every pipeline invocation authenticates afresh.
type Session struct {
	AccessToken  string
	RefreshToken string
	DID          string
	Handle       string
	Expiry       time.Time // Parsed from the access JWT; zero when unknown.
}

// ServiceAuth is the short-lived token scoped to the account's PDS for video
// uploads. It exists only for the duration of one upload sequence and must
// be fetched immediately before use.
type ServiceAuth struct {
	Token    string
	Audience string
}

// JobState is the remote transcoding job state as reported by the video
// service. The client never invents intermediate states.
type JobState string

const (
	JobCreated   JobState = "JOB_STATE_CREATED"
	JobRunning   JobState = "JOB_STATE_RUNNING"
	JobEncoding  JobState = "JOB_STATE_ENCODING"
	JobCompleted JobState = "JOB_STATE_COMPLETED"
	JobFailed    JobState = "JOB_STATE_FAILED"
	JobUnknown   JobState = ""
)

// Terminal reports whether the state ends polling.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// UploadJob tracks one remote transcoding job. Created on submission and
// mutated only by [Apply] from server responses; Blob is present only once
// the job completes.
type UploadJob struct {
	ID    string
	State JobState
	// Blob is the service's blob reference, passed through verbatim into
	// the post embed. The client treats it as opaque.
	Blob    json.RawMessage
	Message string // Error or progress detail from the service, if any.
}

// PublishRecord identifies the created post.
type PublishRecord struct {
	URI string
	CID string
}

// --- wire types ---

type sessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type sessionResponse struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	DID        string `json:"did"`
	Handle     string `json:"handle"`
}

type didDocument struct {
	Service []didService `json:"service"`
}

type didService struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

type serviceAuthResponse struct {
	Token string `json:"token"`
}

// uploadResponse is returned by both the 200 and 409 paths of uploadVideo.
type uploadResponse struct {
	JobID string   `json:"jobId"`
	State JobState `json:"state"`
	Error string   `json:"error"`
}

// JobStatus is the nested jobStatus payload from getJobStatus.
type JobStatus struct {
	JobID string          `json:"jobId"`
	State JobState        `json:"state"`
	Blob  json.RawMessage `json:"blob"`
	Error string          `json:"error"`
}

type jobStatusResponse struct {
	JobStatus JobStatus `json:"jobStatus"`
}

type createRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

type postRecord struct {
	Type      string     `json:"$type"`
	Text      string     `json:"text"`
	CreatedAt string     `json:"createdAt"`
	Embed     videoEmbed `json:"embed"`
}

type videoEmbed struct {
	Type  string          `json:"$type"`
	Video json.RawMessage `json:"video"`
	Alt   string          `json:"alt,omitempty"`
}

type createRecordResponse struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}
