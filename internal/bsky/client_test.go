package bsky

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ab604/pi-sunrise-timelapse/internal/config"
)

// testClient builds a Client whose session server, PLC directory and video
// service all point at the given test server.
func testClient(url string) *Client {
	return NewClient(&config.Bluesky{
		Server:             url,
		VideoServer:        url,
		PLCDirectory:       url,
		ResolveRetries:     3,
		PollIntervalSec:    0,
		PollCeilingMinutes: 1,
		HTTPTimeoutSec:     5,
		UploadTimeoutSec:   5,
	})
}

// unsignedJWT builds a JWT-shaped token with the given exp claim. The client
// never verifies signatures, so a dummy one is enough.
func unsignedJWT(t *testing.T, exp int64) string {
	t.Helper()
	enc := func(v interface{}) string {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(b)
	}
	header := enc(map[string]string{"alg": "HS256", "typ": "JWT"})
	claims := enc(map[string]int64{"exp": exp})
	return header + "." + claims + ".c2ln"
}

func TestCreateSession(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Unix()
	var gotBody sessionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xrpc/com.atproto.server.createSession", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(sessionResponse{
			AccessJwt:  unsignedJWT(t, exp),
			RefreshJwt: "refresh",
			DID:        "did:plc:abc123",
			Handle:     "user.bsky.social",
		})
	}))
	defer srv.Close()

	sess, err := testClient(srv.URL).CreateSession(context.Background(), "user.bsky.social", "app-pass")
	require.NoError(t, err)

	assert.Equal(t, "user.bsky.social", gotBody.Identifier)
	assert.Equal(t, "app-pass", gotBody.Password)
	assert.Equal(t, "did:plc:abc123", sess.DID)
	assert.Equal(t, exp, sess.Expiry.Unix())
}

func TestCreateSession_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"AuthenticationRequired"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateSession(context.Background(), "user", "wrong")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "401")
}

func TestTokenExpiry_Unparseable(t *testing.T) {
	assert.True(t, tokenExpiry("not-a-jwt").IsZero())
	assert.True(t, tokenExpiry("").IsZero())
}

func TestResolveServiceAudience(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/did:plc:abc123", r.URL.Path)
		json.NewEncoder(w).Encode(didDocument{Service: []didService{
			{ID: "#atproto_labeler", Type: "Labeler", ServiceEndpoint: "https://labeler.example"},
			{ID: "#atproto_pds", Type: "AtprotoPersonalDataServer", ServiceEndpoint: "https://pds.example.host"},
		}})
	}))
	defer srv.Close()

	aud, err := testClient(srv.URL).ResolveServiceAudience(context.Background(), "did:plc:abc123")
	require.NoError(t, err)
	assert.Equal(t, "did:web:pds.example.host", aud)
}

func TestResolveServiceAudience_NoPDSIsPermanent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(didDocument{})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ResolveServiceAudience(context.Background(), "did:plc:abc123")
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, 1, calls, "a definitive directory answer must not be retried")
}

func TestResolveServiceAudience_Non200IsPermanent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ResolveServiceAudience(context.Background(), "did:plc:missing")
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, 1, calls)
}

func TestResolveServiceAudience_RetriesNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // all connections now fail

	c := testClient(srv.URL)
	attempts := 0
	c.Logf = func(format string, args ...interface{}) {
		attempts++ // one retry line per attempt after the first
	}

	_, err := c.ResolveServiceAudience(context.Background(), "did:plc:abc123")
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, 2, attempts, "3 tries means 2 retry log lines")
}

func TestPdsAudience(t *testing.T) {
	cases := []struct {
		name    string
		doc     didDocument
		want    string
		wantErr bool
	}{
		{
			name: "standard",
			doc: didDocument{Service: []didService{
				{ID: "#atproto_pds", ServiceEndpoint: "https://morel.us-east.host.bsky.network"},
			}},
			want: "did:web:morel.us-east.host.bsky.network",
		},
		{
			name:    "no services",
			doc:     didDocument{},
			wantErr: true,
		},
		{
			name: "wrong service id only",
			doc: didDocument{Service: []didService{
				{ID: "#atproto_labeler", ServiceEndpoint: "https://x.example"},
			}},
			wantErr: true,
		},
		{
			name: "endpoint without host",
			doc: didDocument{Service: []didService{
				{ID: "#atproto_pds", ServiceEndpoint: "not a url"},
			}},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pdsAudience(tc.doc)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetServiceAuth(t *testing.T) {
	now := time.Now()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xrpc/com.atproto.server.getServiceAuth", r.URL.Path)
		require.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "did:web:pds.example", q.Get("aud"))
		assert.Equal(t, "com.atproto.repo.uploadBlob", q.Get("lxm"))

		var exp int64
		fmt.Sscan(q.Get("exp"), &exp)
		assert.InDelta(t, now.Add(30*time.Minute).Unix(), exp, 60, "exp should be ~30 minutes out")

		json.NewEncoder(w).Encode(serviceAuthResponse{Token: "scoped-token"})
	}))
	defer srv.Close()

	auth, err := testClient(srv.URL).GetServiceAuth(context.Background(),
		Session{AccessToken: "access-token"}, "did:web:pds.example")
	require.NoError(t, err)
	assert.Equal(t, "scoped-token", auth.Token)
	assert.Equal(t, "did:web:pds.example", auth.Audience)
}

func TestGetServiceAuth_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GetServiceAuth(context.Background(), Session{}, "did:web:x")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "service auth", authErr.Op)
}
