package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/ab604/pi-sunrise-timelapse/internal/bsky"
	"github.com/ab604/pi-sunrise-timelapse/internal/config"
	"github.com/ab604/pi-sunrise-timelapse/internal/display"
	"github.com/ab604/pi-sunrise-timelapse/internal/logging"
	"github.com/ab604/pi-sunrise-timelapse/internal/transcode"
)

// uploadFilename is the name sent with the blob upload. The video service
// only uses it for display; the real identity is the job.
const uploadFilename = "video.mp4"

// Publisher runs the full Bluesky publish sequence for a finished video:
// session, PDS resolution, service auth, upload, job poll, record creation.
type Publisher struct {
	cfg    *config.Config
	client *bsky.Client
	log    *logging.Logger
}

func NewPublisher(cfg *config.Config, client *bsky.Client, log *logging.Logger) *Publisher {
	return &Publisher{cfg: cfg, client: client, log: log}
}

// Publish uploads the video and creates the post, returning the record and
// the profile permalink. Size is checked before any network traffic so an
// oversized file never burns an upload. A failure after the blob is
// processed leaves the blob on the server; that is deliberate — the next
// attempt recovers it through the upload conflict path.
func (p *Publisher) Publish(ctx context.Context, video transcode.Video, text string) (bsky.PublishRecord, string, error) {
	maxBytes := int64(p.cfg.Bluesky.MaxUploadMB) * 1024 * 1024
	if video.SizeBytes > maxBytes {
		return bsky.PublishRecord{}, "", fmt.Errorf("video is %s, over the %dMB upload limit",
			display.FormatMB(video.SizeBytes), p.cfg.Bluesky.MaxUploadMB)
	}

	session, err := p.client.CreateSession(ctx, p.cfg.Bluesky.Handle, p.cfg.Bluesky.AppPassword)
	if err != nil {
		return bsky.PublishRecord{}, "", err
	}
	p.log.Info("Authenticated as @%s", session.Handle)

	audience, err := p.client.ResolveServiceAudience(ctx, session.DID)
	if err != nil {
		return bsky.PublishRecord{}, "", err
	}
	p.log.Debug("PDS audience: %s", audience)

	auth, err := p.client.GetServiceAuth(ctx, session, audience)
	if err != nil {
		return bsky.PublishRecord{}, "", err
	}

	data, err := os.ReadFile(video.Path)
	if err != nil {
		return bsky.PublishRecord{}, "", fmt.Errorf("reading video for upload: %w", err)
	}

	job, err := p.client.UploadVideo(ctx, auth, session.DID, uploadFilename, data)
	if err != nil {
		return bsky.PublishRecord{}, "", err
	}
	p.log.Info("Upload accepted, job %s", job.ID)

	job, err = p.client.AwaitJob(ctx, auth, job)
	if err != nil {
		return bsky.PublishRecord{}, "", err
	}
	if job.State == bsky.JobFailed {
		return bsky.PublishRecord{}, "", fmt.Errorf("video processing failed: job %s: %s", job.ID, job.Message)
	}
	if len(job.Blob) == 0 {
		return bsky.PublishRecord{}, "", &bsky.PublishError{Err: fmt.Errorf("job %s completed without a blob reference", job.ID)}
	}
	p.log.Success("Video processing complete")

	record, err := p.client.CreatePost(ctx, session, job.Blob, text, p.cfg.Bluesky.AltText)
	if err != nil {
		return bsky.PublishRecord{}, "", err
	}
	return record, bsky.PostLink(session.Handle, record.URI), nil
}
