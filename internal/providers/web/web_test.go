package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><head><title>Sample</title></head><body>
<h1 class="headline">Breaking News</h1>
<ul><li>first</li><li>second</li></ul>
<a href="/about">About</a>
<a href="/contact">Contact</a>
</body></html>`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	p := New(Config{})
	res, err := p.fetch(context.Background(), map[string]interface{}{"url": srv.URL})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 200, res.Output["status_code"])
	assert.Contains(t, res.Output["body"], "Breaking News")
	assert.Contains(t, res.Output["content_type"], "text/html")
}

func TestFetchTruncation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 100; i++ {
			w.Write([]byte("0123456789"))
		}
	}))
	defer srv.Close()

	p := New(Config{MaxOutputLength: 100})
	res, err := p.fetch(context.Background(), map[string]interface{}{"url": srv.URL})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, res.Truncated)
}

func TestFetchInvalidURL(t *testing.T) {
	p := New(Config{})
	res, err := p.fetch(context.Background(), map[string]interface{}{"url": "http://127.0.0.1:1/unreachable"})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestExtractText(t *testing.T) {
	p := New(Config{})

	res, err := p.extract(context.Background(), map[string]interface{}{
		"html":     samplePage,
		"selector": "li",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 2, res.Output["count"])
	assert.Equal(t, []string{"first", "second"}, res.Output["matches"])
}

func TestExtractAttribute(t *testing.T) {
	p := New(Config{})

	res, err := p.extract(context.Background(), map[string]interface{}{
		"html":      samplePage,
		"selector":  "a",
		"attribute": "href",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, []string{"/about", "/contact"}, res.Output["matches"])
}

func TestExtractRequiresSource(t *testing.T) {
	p := New(Config{})

	res, err := p.extract(context.Background(), map[string]interface{}{"selector": "a"})
	require.NoError(t, err)
	assert.False(t, res.Success)
}
