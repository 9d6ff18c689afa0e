package comixapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fpang/comix-generator/internal/comix"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient creates a Client pointing at a test HTTP server.
func newTestClient(server *httptest.Server) *Client {
	return NewClient(server.URL+"/generate-images", WithHTTPClient(server.Client()))
}

func sampleRequest(t *testing.T) comix.GenerationRequest {
	t.Helper()
	req, err := comix.NewGenerationRequest("My Day", []string{"I woke up", "I ate breakfast", "I went to work"})
	require.NoError(t, err)
	return req
}

const successBody = `{
  "images": [
    {"content_type": "image/jpeg", "base64": "AAAA", "prompt": "I woke up"},
    {"content_type": "image/jpeg", "base64": "BBBB", "prompt": "I ate breakfast"},
    {"content_type": "image/jpeg", "base64": "CCCC", "original_prompt": "I went to work"}
  ],
  "finalImage": {"content_type": "image/png", "base64": "DDDD"}
}`

func TestGenerate_SendsExactBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate-images", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err, "X-Request-ID should be a UUID")

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"title":"My Day","captions":["I woke up","I ate breakfast","I went to work"]}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, successBody)
	}))
	defer server.Close()

	result, err := newTestClient(server).Generate(context.Background(), sampleRequest(t))
	require.NoError(t, err)

	require.Len(t, result.Images, 3)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", result.Images[0].DataURI())
	assert.Equal(t, "I went to work", result.Images[2].PromptText())
	assert.Equal(t, "data:image/png;base64,DDDD", result.FinalImage.DataURI())
}

func TestGenerate_ServerErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		kind    ErrorKind
	}{
		{"error field", http.StatusInternalServerError, `{"error":"rate limited"}`, "rate limited", KindServer},
		{"empty object", http.StatusInternalServerError, `{}`, comix.MsgUnknownError, KindServer},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, comix.MsgUnknownError, KindServer},
		{"fastapi detail", http.StatusUnauthorized, `{"detail":"Invalid token"}`, "Invalid token", KindUnauthorized},
		{"quota", http.StatusTooManyRequests, `{"detail":"Quota exceeded"}`, "Quota exceeded", KindQuotaExceeded},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","token"],"msg":"field required"}]}`, "field required", KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient(server).Generate(context.Background(), sampleRequest(t))

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.kind, apiErr.Kind)
		})
	}
}

func TestGenerate_MalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"images": [`)
	}))
	defer server.Close()

	_, err := newTestClient(server).Generate(context.Background(), sampleRequest(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestGenerate_TooManyImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(comix.GenerationResult{Images: make([]comix.ImageAsset, 4)})
	}))
	defer server.Close()

	_, err := newTestClient(server).Generate(context.Background(), sampleRequest(t))
	assert.Error(t, err)
}

func TestGenerate_MissingFinalImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"images":[{"content_type":"image/jpeg","base64":"AAAA"}]}`)
	}))
	defer server.Close()

	result, err := newTestClient(server).Generate(context.Background(), sampleRequest(t))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "no final image")
}

func TestGenerate_GzipResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Encoding"), "gzip")
		w.Header().Set("Content-Encoding", "gzip")
		zw := gzip.NewWriter(w)
		io.WriteString(zw, successBody)
		zw.Close()
	}))
	defer server.Close()

	result, err := newTestClient(server).Generate(context.Background(), sampleRequest(t))
	require.NoError(t, err)
	assert.Len(t, result.Images, 3)
}

func TestGenerate_ZstdResponse(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	io.WriteString(enc, successBody)
	require.NoError(t, enc.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "zstd")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	result, err := newTestClient(server).Generate(context.Background(), sampleRequest(t))
	require.NoError(t, err)
	assert.Equal(t, "DDDD", result.FinalImage.Base64)
}

func TestGenerate_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server).Generate(ctx, sampleRequest(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "expected deadline error, got %v", err)
}

func TestNewClient_DefaultEndpoint(t *testing.T) {
	assert.Equal(t, DefaultEndpoint, NewClient("").Endpoint())
}

func TestDecodingReader_UnknownEncoding(t *testing.T) {
	_, err := decodingReader("br", bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		limit    int
		expected string
	}{
		{"short", 10, "short"},
		{"this is a long string", 10, "this is a ..."},
		{"exact", 5, "exact"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, truncate(tt.input, tt.limit))
	}
}
