//go:build e2e
// +build e2e

// Package e2e_test exercises a running voice studio server over HTTP.
//
// The suite expects the server at E2E_BASE_URL (default http://localhost:8080)
// with E2E_USERNAME/E2E_PASSWORD matching one of the configured accounts.
// When no credentials are set the server is assumed to run in dev mode with
// the fixed development user.
package e2e_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const timeout = 15 * time.Second

var (
	baseURL  = getenv("E2E_BASE_URL", "http://localhost:8080")
	username = os.Getenv("E2E_USERNAME")
	password = os.Getenv("E2E_PASSWORD")
)

// getenv returns the value of the environment variable k or def if empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

type envelope struct {
	Message string          `json:"message"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newClient returns a client with a cookie jar so the session survives
// between requests.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Timeout: timeout, Jar: jar}
}

// waitForAppReady polls /readyz until it answers 200 or the deadline passes.
func waitForAppReady(t *testing.T, client *http.Client, maxWait time.Duration) {
	t.Helper()
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/readyz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(time.Second)
	}
	t.Skipf("server at %s not ready after %s", baseURL, maxWait)
}

// login establishes a session when credentials are configured.
func login(t *testing.T, client *http.Client) {
	t.Helper()
	if username == "" {
		return
	}
	resp := doJSON(t, client, http.MethodPost, "/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func doJSON(t *testing.T, client *http.Client, method, path string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, baseURL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response, into any) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	if into != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, into))
	}
	return env
}

// saveClip uploads audio bytes through the multipart save endpoint.
func saveClip(t *testing.T, client *http.Client, audio []byte, fields map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", "clip.mp3")
	require.NoError(t, err)
	_, _ = fw.Write(audio)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, baseURL+"/v1/audio/save", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}
