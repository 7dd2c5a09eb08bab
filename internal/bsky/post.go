package bsky

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CreatePost creates the feed post embedding the completed upload's blob.
// Exactly one attempt: by the time this is called the video is uploaded and
// processed, and a failure here leaves that blob in place (documented
// limitation, surfaced through PublishError).
func (c *Client) CreatePost(ctx context.Context, session Session, blob json.RawMessage, text, alt string) (PublishRecord, error) {
	if len(blob) == 0 {
		return PublishRecord{}, &PublishError{Err: fmt.Errorf("no blob reference for embed")}
	}

	body, err := json.Marshal(createRecordRequest{
		Repo:       session.DID,
		Collection: "app.bsky.feed.post",
		Record: postRecord{
			Type:      "app.bsky.feed.post",
			Text:      text,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
			Embed: videoEmbed{
				Type:  "app.bsky.embed.video",
				Video: blob,
				Alt:   alt,
			},
		},
	})
	if err != nil {
		return PublishRecord{}, &PublishError{Err: err}
	}

	var parsed createRecordResponse
	endpoint := c.cfg.Server + "/xrpc/com.atproto.repo.createRecord"
	if err := c.postJSON(ctx, c.http, endpoint, session.AccessToken, body, &parsed); err != nil {
		return PublishRecord{}, &PublishError{Err: err}
	}
	return PublishRecord{URI: parsed.URI, CID: parsed.CID}, nil
}

// PostLink derives the human-facing bsky.app permalink from the record URI
// (at://did/collection/rkey). Returns "" when the URI is not in that shape.
func PostLink(handle, uri string) string {
	if handle == "" || uri == "" {
		return ""
	}
	idx := strings.LastIndex(uri, "/")
	if idx < 0 || idx == len(uri)-1 {
		return ""
	}
	return "https://bsky.app/profile/" + handle + "/post/" + uri[idx+1:]
}
