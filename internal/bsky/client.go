// Package bsky implements the Bluesky publish protocol: session creation,
// PDS discovery through the PLC directory, service-auth token issuance, the
// video service upload with asynchronous job polling, and post-record
// creation.
package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ab604/pi-sunrise-timelapse/internal/config"
)

// serviceAuthLexicon is the method the scoped token is minted for.
const serviceAuthLexicon = "com.atproto.repo.uploadBlob"

// serviceAuthValidity bounds the scoped token's lifetime. Tokens are fetched
// immediately before each upload sequence, never cached across runs.
const serviceAuthValidity = 30 * time.Minute

// Client talks to the session server, the PLC directory, and the video
// service. One Client serves one run.
type Client struct {
	cfg    *config.Bluesky
	http   *http.Client
	upload *http.Client // Longer timeout for the multi-minute byte upload.

	// Logf receives progress lines (poll attempts, resolution retries).
	// No-op by default.
	Logf func(format string, args ...interface{})
}

// NewClient builds a Client from the Bluesky section of the config.
func NewClient(cfg *config.Bluesky) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second},
		upload: &http.Client{Timeout: time.Duration(cfg.UploadTimeoutSec) * time.Second},
		Logf:   func(string, ...interface{}) {},
	}
}

// CreateSession authenticates with handle + app password. Any failure is an
// AuthError: fatal to the run, never retried, since identical credentials
// would fail the same way.
func (c *Client) CreateSession(ctx context.Context, handle, password string) (Session, error) {
	body, err := json.Marshal(sessionRequest{Identifier: handle, Password: password})
	if err != nil {
		return Session{}, &AuthError{Op: "create session", Err: err}
	}

	var parsed sessionResponse
	endpoint := c.cfg.Server + "/xrpc/com.atproto.server.createSession"
	if err := c.postJSON(ctx, c.http, endpoint, "", body, &parsed); err != nil {
		return Session{}, &AuthError{Op: "create session", Err: err}
	}

	return Session{
		AccessToken:  parsed.AccessJwt,
		RefreshToken: parsed.RefreshJwt,
		DID:          parsed.DID,
		Handle:       parsed.Handle,
		Expiry:       tokenExpiry(parsed.AccessJwt),
	}, nil
}

// tokenExpiry extracts the exp claim from the access JWT without verifying
// the signature (the server signed it; we only need the lifetime for
// logging). Returns zero time when the claim is absent or unparseable.
func tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// ResolveServiceAudience looks up the account's DID document in the PLC
// directory and derives the did:web audience of its PDS. The endpoint can
// rotate, so this runs fresh every run. Transient network failures are
// retried with exponential backoff up to the configured attempt count; a
// definitive directory response (non-2xx, or a document without a PDS
// service entry) fails immediately.
func (c *Client) ResolveServiceAudience(ctx context.Context, did string) (string, error) {
	attempt := 0
	operation := func() (string, error) {
		attempt++
		if attempt > 1 {
			c.Logf("Retrying PDS resolution (attempt %d)", attempt)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.PLCDirectory+"/"+did, nil)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return "", err // transient; retry
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", backoff.Permanent(fmt.Errorf("directory returned %d", resp.StatusCode))
		}

		var doc didDocument
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			return "", backoff.Permanent(fmt.Errorf("decode DID document: %w", err))
		}
		aud, err := pdsAudience(doc)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		return aud, nil
	}

	maxTries := c.cfg.ResolveRetries
	if maxTries < 1 {
		maxTries = 1
	}
	aud, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(maxTries)),
	)
	if err != nil {
		return "", &ResolutionError{DID: did, Err: err}
	}
	return aud, nil
}

// pdsAudience finds the #atproto_pds service entry and converts its endpoint
// host into a did:web identity.
func pdsAudience(doc didDocument) (string, error) {
	for _, svc := range doc.Service {
		if svc.ID != "#atproto_pds" || svc.ServiceEndpoint == "" {
			continue
		}
		u, err := url.Parse(svc.ServiceEndpoint)
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("unusable PDS endpoint %q", svc.ServiceEndpoint)
		}
		return "did:web:" + u.Host, nil
	}
	return "", fmt.Errorf("DID document has no #atproto_pds service")
}

// GetServiceAuth mints the short-lived upload token scoped to the resolved
// PDS audience. Failure is an AuthError, fatal to the publish stage.
func (c *Client) GetServiceAuth(ctx context.Context, session Session, audience string) (ServiceAuth, error) {
	q := url.Values{}
	q.Set("aud", audience)
	q.Set("lxm", serviceAuthLexicon)
	q.Set("exp", strconv.FormatInt(time.Now().Add(serviceAuthValidity).Unix(), 10))

	endpoint := c.cfg.Server + "/xrpc/com.atproto.server.getServiceAuth?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ServiceAuth{}, &AuthError{Op: "service auth", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return ServiceAuth{}, &AuthError{Op: "service auth", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ServiceAuth{}, &AuthError{Op: "service auth", Err: httpStatusError(resp)}
	}

	var parsed serviceAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ServiceAuth{}, &AuthError{Op: "service auth", Err: err}
	}
	return ServiceAuth{Token: parsed.Token, Audience: audience}, nil
}

// postJSON posts body to endpoint (optionally with a bearer token) and
// decodes a 200 response into out. Non-200 responses become errors carrying
// a body snippet.
func (c *Client) postJSON(ctx context.Context, client *http.Client, endpoint, bearer string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpStatusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// httpStatusError builds an error from a non-200 response, keeping a bounded
// body snippet for diagnosis.
func httpStatusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
