package imagegen

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type memStore struct {
	key         string
	contentType string
	data        []byte
	err         error
}

func (m *memStore) Put(_ context.Context, key, contentType string, body io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.key, m.contentType = key, contentType
	b, err := io.ReadAll(body)
	m.data = b
	return "https://cdn.example/" + key, err
}

type fixedGenerator struct{ url string }

func (f fixedGenerator) Generate(_ context.Context, prompt string) (ImageResult, error) {
	return ImageResult{URL: f.url, Prompt: prompt}, nil
}

func TestPlaceholder(t *testing.T) {
	res, err := Placeholder{}.Generate(context.Background(), "cat")
	require.NoError(t, err)
	assert.Equal(t, DefaultPlaceholderURL, res.URL)
	assert.Equal(t, "cat", res.Prompt)
}

func TestOpenAIGenerate(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/images/generations"), r.URL.Path)
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created":1,"data":[{"url":"https://tmp.example/img.png"}]}`)
	}))
	defer srv.Close()

	g := NewOpenAI("test", srv.URL, "")
	res, err := g.Generate(context.Background(), "a quiet lake")
	require.NoError(t, err)
	assert.Equal(t, "https://tmp.example/img.png", res.URL)
	assert.Equal(t, "dall-e-3", gjson.GetBytes(body, "model").String())
	assert.Equal(t, "a quiet lake", gjson.GetBytes(body, "prompt").String())
}

func TestRehost(t *testing.T) {
	img := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer img.Close()

	store := &memStore{}
	r := Rehost(fixedGenerator{url: img.URL + "/x.png"}, store, 0)

	res, err := r.Generate(context.Background(), "sunrise")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(store.key, "generated/"))
	assert.True(t, strings.HasSuffix(store.key, ".png"))
	assert.Equal(t, "image/png", store.contentType)
	assert.True(t, bytes.Equal([]byte("png-bytes"), store.data))
	assert.Equal(t, "https://cdn.example/"+store.key, res.URL)
	assert.Equal(t, "sunrise", res.Prompt)
}

func TestRehost_FetchFailure(t *testing.T) {
	img := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer img.Close()

	_, err := Rehost(fixedGenerator{url: img.URL}, &memStore{}, 0).Generate(context.Background(), "p")
	require.Error(t, err)
}

func TestRehost_StoreFailure(t *testing.T) {
	img := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg"))
	}))
	defer img.Close()

	boom := errors.New("bucket gone")
	_, err := Rehost(fixedGenerator{url: img.URL}, &memStore{err: boom}, 0).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, boom)
}

func TestRehost_RejectsOversizedImage(t *testing.T) {
	tests := []struct {
		name    string
		chunked bool
	}{
		{name: "declared length", chunked: false},
		{name: "chunked body", chunked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/png")
				if tt.chunked {
					w.(http.Flusher).Flush()
				}
				_, _ = w.Write([]byte("png-bytes-too-long"))
			}))
			defer img.Close()

			store := &memStore{}
			r := Rehost(fixedGenerator{url: img.URL}, store, 0)
			r.maxBytes = 8

			_, err := r.Generate(context.Background(), "p")
			require.ErrorIs(t, err, ErrImageTooLarge)
			assert.Empty(t, store.key)
		})
	}
}
