package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"
)

// UploadVideo submits the video bytes to the video service. A 200 yields a
// fresh job; a 409 conflict means the service already accepted these bytes,
// which is recovered as a success path: the existing job is returned and the
// caller polls it exactly like a fresh one. Any other response is an
// UploadError, fatal to the publish stage (the byte upload is not
// resumable).
func (c *Client) UploadVideo(ctx context.Context, auth ServiceAuth, did, filename string, data []byte) (UploadJob, error) {
	q := url.Values{}
	q.Set("did", did)
	q.Set("name", filename)
	endpoint := c.cfg.VideoServer + "/xrpc/app.bsky.video.uploadVideo?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return UploadJob{}, &UploadError{StatusCode: 0, Body: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	req.Header.Set("Content-Type", "video/mp4")

	resp, err := c.upload.Do(req)
	if err != nil {
		return UploadJob{}, &UploadError{StatusCode: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var parsed uploadResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return UploadJob{}, &UploadError{StatusCode: resp.StatusCode, Body: "decode upload response: " + err.Error()}
		}
		if parsed.JobID == "" {
			return UploadJob{}, &UploadError{StatusCode: resp.StatusCode, Body: "upload response had no job ID"}
		}
		state := parsed.State
		if state == JobUnknown {
			state = JobCreated
		}
		return UploadJob{ID: parsed.JobID, State: state}, nil

	case http.StatusConflict:
		var parsed uploadResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.JobID == "" {
			return UploadJob{}, &UploadError{StatusCode: resp.StatusCode, Body: "conflict response had no recoverable job"}
		}
		c.Logf("Video already uploaded, recovering job %s (state %s)", parsed.JobID, parsed.State)
		return UploadJob{ID: parsed.JobID, State: parsed.State, Message: parsed.Error}, nil

	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return UploadJob{}, &UploadError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
}

// GetJobStatus reads the current job status from the video service. It is a
// pure state read: a still-running job is not an error.
func (c *Client) GetJobStatus(ctx context.Context, auth ServiceAuth, jobID string) (JobStatus, error) {
	q := url.Values{}
	q.Set("jobId", jobID)
	endpoint := c.cfg.VideoServer + "/xrpc/app.bsky.video.getJobStatus?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return JobStatus{}, err
	}
	req.Header.Set("Authorization", "Bearer "+auth.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return JobStatus{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return JobStatus{}, httpStatusError(resp)
	}

	var parsed jobStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return JobStatus{}, err
	}
	return parsed.JobStatus, nil
}

// Apply is the job state transition function: it folds one server response
// into the job. Transitions are driven exclusively by server responses; an
// empty state in the response leaves the job unchanged rather than guessing.
func Apply(job UploadJob, status JobStatus) UploadJob {
	if status.JobID != "" && status.JobID != job.ID {
		// Response for a different job; ignore it.
		return job
	}
	if status.State != JobUnknown {
		job.State = status.State
	}
	if len(status.Blob) > 0 {
		job.Blob = status.Blob
	}
	if status.Error != "" {
		job.Message = status.Error
	}
	return job
}

// AwaitJob polls the job at the configured fixed interval until it reaches a
// terminal state or the wall-clock ceiling elapses. A ceiling hit returns
// the job marked Failed together with ErrPollTimeout, so the worst-case
// pipeline duration stays bounded. Transient status-read errors are logged
// and polling continues; the ceiling bounds them too.
//
// A job that arrives Completed without a blob reference (a recovered
// duplicate upload whose conflict body carried only the state) is not
// honored as-is: it is polled so the blob is read from getJobStatus, making
// the recovered path indistinguishable from a fresh upload for the caller.
func (c *Client) AwaitJob(ctx context.Context, auth ServiceAuth, job UploadJob) (UploadJob, error) {
	interval := time.Duration(c.cfg.PollIntervalSec) * time.Second
	ceiling := time.Duration(c.cfg.PollCeilingMinutes) * time.Minute
	if ceiling <= 0 {
		ceiling = 5 * time.Minute
	}
	return c.awaitJob(ctx, auth, job, interval, ceiling)
}

// awaitJob is the poll loop with explicit durations.
func (c *Client) awaitJob(ctx context.Context, auth ServiceAuth, job UploadJob, interval, ceiling time.Duration) (UploadJob, error) {
	deadline := time.Now().Add(ceiling)
	attempt := 0
	for {
		if job.State == JobFailed || (job.State == JobCompleted && len(job.Blob) > 0) {
			return job, nil
		}
		if time.Now().After(deadline) {
			job.State = JobFailed
			return job, ErrPollTimeout
		}

		attempt++
		status, err := c.GetJobStatus(ctx, auth, job.ID)
		if err != nil {
			if ctx.Err() != nil {
				job.State = JobFailed
				return job, ctx.Err()
			}
			c.Logf("Job status check failed (attempt %d): %v", attempt, err)
		} else {
			job = Apply(job, status)
			c.Logf("Job %s status: %s (attempt %d)", job.ID, displayState(job.State), attempt)
			if job.State.Terminal() {
				return job, nil
			}
		}

		select {
		case <-ctx.Done():
			job.State = JobFailed
			return job, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// displayState renders JobUnknown readably in logs.
func displayState(s JobState) string {
	if s == JobUnknown {
		return "UNKNOWN"
	}
	return string(s)
}
