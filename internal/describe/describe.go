// Package describe generates the post's weather description from the
// analysis photo via an OpenAI-compatible vision endpoint. The service is
// strictly optional: every failure path (no key, HTTP error, timeout, empty
// completion) yields the configured fallback text, so callers always get a
// non-empty description.
package describe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ab604/pi-sunrise-timelapse/internal/config"
)

// Source records how a description was produced.
type Source string

const (
	GeneratedRemote Source = "remote"
	Fallback        Source = "fallback"
)

// Description is the text attached to the published post. Text is never
// empty.
type Description struct {
	Text   string
	Source Source
}

// Client calls the vision endpoint.
type Client struct {
	cfg  *config.Config
	http *http.Client
}

// NewClient builds a Client with the configured request timeout.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: time.Duration(cfg.Describe.TimeoutSeconds) * time.Second,
		},
	}
}

// chat completion wire types (request subset we send, response subset we read)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatContent struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// FromPhoto returns a weather description for the photo at path. The error
// return explains why the fallback was used; the Description itself is
// always usable.
func (c *Client) FromPhoto(ctx context.Context, path string) (Description, error) {
	fb := Description{Text: c.cfg.Describe.Fallback, Source: Fallback}

	if c.cfg.Describe.APIKey == "" {
		return fb, fmt.Errorf("no API key configured")
	}

	img, err := os.ReadFile(path)
	if err != nil {
		return fb, fmt.Errorf("read photo: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Describe.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContent{
				{Type: "text", Text: c.cfg.Describe.Prompt},
				{Type: "image_url", ImageURL: &chatImageURL{
					URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
				}},
			},
		}},
		MaxTokens:   c.cfg.Describe.MaxTokens,
		Temperature: c.cfg.Describe.Temperature,
	})
	if err != nil {
		return fb, fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Describe.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fb, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Describe.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fb, fmt.Errorf("description request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fb, fmt.Errorf("description service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fb, fmt.Errorf("decode description response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return fb, fmt.Errorf("description response had no choices")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return fb, fmt.Errorf("description response was empty")
	}
	return Description{Text: text, Source: GeneratedRemote}, nil
}
