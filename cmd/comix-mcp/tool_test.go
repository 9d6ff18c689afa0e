package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpang/comix-generator/internal/comix"
	"github.com/fpang/comix-generator/internal/comixapi"
)

func pngBase64(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestGenerator(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *generator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &generator{
		gen:     comixapi.NewClient(server.URL, comixapi.WithHTTPClient(server.Client())),
		timeout: timeout,
		status:  io.Discard,
		label:   "test",
	}
}

func TestHandle_Success(t *testing.T) {
	img := pngBase64(t, 8, 4)
	var got map[string]any
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		res := comix.GenerationResult{FinalImage: comix.ImageAsset{ContentType: "image/png", Base64: img}}
		for i := 0; i < comix.CaptionCount; i++ {
			res.Images = append(res.Images, comix.ImageAsset{ContentType: "image/png", Base64: img, OriginalPrompt: fmt.Sprintf("prompt %d", i+1)})
		}
		json.NewEncoder(w).Encode(res)
	}, time.Minute)

	result, out, err := g.handle(context.Background(), nil, GenerateInput{
		Title:    " My Day ",
		Captions: []string{"I woke up", "I ate breakfast", "I went to work"},
	})
	require.NoError(t, err)

	assert.Equal(t, "My Day", got["title"])
	assert.Equal(t, "success", out.Outcome)
	require.Len(t, out.Images, 4)
	assert.Equal(t, "image1", out.Images[0].Slot)
	assert.Equal(t, "prompt 3", out.Images[2].Prompt)
	assert.Equal(t, "final-image", out.Images[3].Slot)
	assert.Equal(t, 8, out.Images[3].Width)

	require.Len(t, result.Content, 5)
	imgContent, ok := result.Content[0].(*mcp.ImageContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", imgContent.MIMEType)
}

func TestHandle_MissingCaption(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, time.Minute)

	_, _, err := g.handle(context.Background(), nil, GenerateInput{Captions: []string{"a", " ", "c"}})
	require.Error(t, err)
	assert.Equal(t, comix.MsgMissingCaptions, err.Error())
}

func TestHandle_WrongCaptionCount(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {}, time.Minute)
	_, _, err := g.handle(context.Background(), nil, GenerateInput{Captions: []string{"a"}})
	assert.Error(t, err)
}

func TestHandle_ServerError(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"detail":"Quota exceeded"}`)
	}, time.Minute)

	_, _, err := g.handle(context.Background(), nil, GenerateInput{Captions: []string{"a", "b", "c"}})
	require.Error(t, err)
	assert.Equal(t, "Quota exceeded", err.Error())
}

func TestHandle_Timeout(t *testing.T) {
	release := make(chan struct{})
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}, 50*time.Millisecond)
	defer close(release)

	_, _, err := g.handle(context.Background(), nil, GenerateInput{Captions: []string{"a", "b", "c"}})
	require.Error(t, err)
	assert.Equal(t, comix.MsgTooLong, err.Error())
}

func TestNewServer(t *testing.T) {
	assert.NotNil(t, newServer(&generator{}))
}
