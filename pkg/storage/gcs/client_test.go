package gcs

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func staticTokens() *tokenSource {
	return &tokenSource{
		fetch: func(context.Context) (string, time.Time, error) {
			return "tok", time.Now().Add(time.Hour), nil
		},
	}
}

func TestUploadPostsMediaAndReturnsPublicURL(t *testing.T) {
	var gotPath, gotQuery, gotAuth, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"x"}`))
	}))
	defer srv.Close()

	client := &Client{
		httpClient:    srv.Client(),
		defaultBucket: "frames",
		tokenSource:   staticTokens(),
		apiBase:       srv.URL,
		publicBase:    "https://cdn.example.com",
	}

	u, err := client.Upload(context.Background(), "orders/FF-ABC123/0.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/frames/orders/FF-ABC123/0.png", u)
	require.Equal(t, "/upload/storage/v1/b/frames/o", gotPath)
	require.Contains(t, gotQuery, "uploadType=media")
	require.Contains(t, gotQuery, "name=orders%2FFF-ABC123%2F0.png")
	require.Equal(t, "Bearer tok", gotAuth)
	require.Equal(t, "image/png", gotType)
	require.Equal(t, "png-bytes", string(gotBody))
}

func TestUploadSurfacesHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	client := &Client{httpClient: srv.Client(), defaultBucket: "frames", tokenSource: staticTokens(), apiBase: srv.URL}
	_, err := client.Upload(context.Background(), "a.png", "image/png", []byte("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}

func TestDeleteTreatsNotFoundAsSuccess(t *testing.T) {
	statuses := []int{http.StatusNoContent, http.StatusNotFound}
	for _, status := range statuses {
		var gotMethod, gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.EscapedPath()
			w.WriteHeader(status)
		}))

		client := &Client{httpClient: srv.Client(), defaultBucket: "frames", tokenSource: staticTokens(), apiBase: srv.URL}
		err := client.Delete(context.Background(), "orders/FF-ABC123/0.png")
		srv.Close()

		require.NoError(t, err, "status %d", status)
		require.Equal(t, http.MethodDelete, gotMethod)
		require.Equal(t, "/storage/v1/b/frames/o/orders%2FFF-ABC123%2F0.png", gotPath)
	}
}

func TestDeleteFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := &Client{httpClient: srv.Client(), defaultBucket: "frames", tokenSource: staticTokens(), apiBase: srv.URL}
	require.Error(t, client.Delete(context.Background(), "a.png"))
}

func TestPingUsesObjectList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/b/frames/o" || r.URL.Query().Get("maxResults") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &Client{httpClient: srv.Client(), defaultBucket: "frames", tokenSource: staticTokens(), apiBase: srv.URL}
	require.NoError(t, client.Ping(context.Background()))
}

func TestTokenSourceCachesUntilNearExpiry(t *testing.T) {
	calls := 0
	ts := &tokenSource{
		fetch: func(context.Context) (string, time.Time, error) {
			calls++
			return "tok", time.Now().Add(time.Hour), nil
		},
	}
	for i := 0; i < 3; i++ {
		tok, err := ts.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, "tok", tok)
	}
	require.Equal(t, 1, calls)
}

func TestParsePrivateKeyFormats(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	parsed, err := parsePrivateKey(string(pkcs1))
	require.NoError(t, err)
	require.True(t, key.Equal(parsed))

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pkcs8 := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	parsed, err = parsePrivateKey(string(pkcs8))
	require.NoError(t, err)
	require.True(t, key.Equal(parsed))

	_, err = parsePrivateKey("not a key")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "invalid private key"))
}
