package catapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	payload := pngBytes(t)

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	mux.HandleFunc("/images/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "secret" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}
		results := make([]map[string]any, n)
		for i := range results {
			results[i] = map[string]any{
				"id":     []string{"a1", "b2", "c3", "d4", "e5", "f6"}[i%6],
				"url":    srv.URL + "/img/" + []string{"a1.png", "b2.JPG", "c3"}[i%3],
				"width":  3,
				"height": 2,
				"breeds": []map[string]any{{"name": "Bengal"}},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(results)
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	})
	mux.HandleFunc("/broken.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image"))
	})
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := New(testLogger(), WithBaseURL(srv.URL+"/"), WithAPIKey("k"))
	records, err := c.Search(context.Background(), 40)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NotNil(t, got)
	assert.Equal(t, "/images/search", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "low", q.Get("size"))
	assert.Equal(t, "jpg", q.Get("mime_types"))
	assert.Equal(t, "json", q.Get("format"))
	assert.Equal(t, "true", q.Get("has_breeds"))
	assert.Equal(t, "RANDOM", q.Get("order"))
	assert.Equal(t, "0", q.Get("page"))
	assert.Equal(t, "25", q.Get("limit"), "limit is capped at the page size")
	assert.Equal(t, "k", got.Header.Get("x-api-key"))
}

func TestSearchRecords(t *testing.T) {
	srv := newTestServer(t, 5)
	c := New(testLogger(), WithBaseURL(srv.URL), WithAPIKey("secret"))

	records, err := c.Search(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, records, 3, "response is truncated to the requested count")

	assert.Equal(t, "a1", records[0].ID)
	assert.Equal(t, ".png", records[0].Ext)
	assert.Equal(t, ".jpg", records[1].Ext, "extensions are lowercased")
	assert.Equal(t, DefaultExt, records[2].Ext)
	assert.Equal(t, "Bengal", records[0].Breeds[0]["name"])
	assert.Equal(t, 3, records[0].Width)
}

func TestSearchErrors(t *testing.T) {
	srv := newTestServer(t, 1)

	t.Run("unauthorized", func(t *testing.T) {
		c := New(testLogger(), WithBaseURL(srv.URL))
		_, err := c.Search(context.Background(), 1)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusUnauthorized, se.Code)
		assert.Contains(t, err.Error(), "missing key")
	})

	t.Run("invalid limit", func(t *testing.T) {
		c := New(testLogger(), WithBaseURL(srv.URL))
		_, err := c.Search(context.Background(), 0)
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{"))
		}))
		defer bad.Close()
		c := New(testLogger(), WithBaseURL(bad.URL))
		_, err := c.Search(context.Background(), 1)
		assert.ErrorContains(t, err, "failed to parse")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := New(testLogger(), WithBaseURL(srv.URL), WithAPIKey("secret"))
		_, err := c.Search(ctx, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFetch(t *testing.T) {
	srv := newTestServer(t, 1)
	c := New(testLogger(), WithHTTPClient(srv.Client()))

	a, err := c.Fetch(context.Background(), srv.URL+"/img/a1.png")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 3}, a.Shape)
	assert.Equal(t, []uint8{10, 20, 30}, a.Data[(1*3+1)*3:(1*3+1)*3+3])

	_, err = c.Fetch(context.Background(), srv.URL+"/missing.jpg")
	var se *StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)

	_, err = c.Fetch(context.Background(), srv.URL+"/broken.jpg")
	assert.ErrorContains(t, err, "failed to decode image")
}

func TestExtFromURL(t *testing.T) {
	tests := map[string]string{
		"https://cdn2.thecatapi.com/images/abc.jpg":         ".jpg",
		"https://cdn2.thecatapi.com/images/abc.PNG?x=1.gif": ".png",
		"https://cdn2.thecatapi.com/images/abc":             ".jpg",
		"https://cdn2.thecatapi.com/images.d/abc":           ".jpg",
		"relative/file.jpeg":                                ".jpeg",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExtFromURL(in), in)
	}
}
