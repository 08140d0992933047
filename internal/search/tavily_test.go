package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsa-copilot/internal/config"
)

func testServer(t *testing.T, results map[string][]tavilyResult) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.APIKey)

		_ = json.NewEncoder(w).Encode(tavilyResponse{Results: results[req.Query]})
	}))
}

func newClient(url string) *Tavily {
	return NewTavily(config.SearchConfig{
		APIKey:  "test-key",
		BaseURL: url,
		Timeout: 5 * time.Second,
	})
}

func TestSearchFormatsResults(t *testing.T) {
	srv := testServer(t, map[string][]tavilyResult{
		"acme hosting": {
			{Title: "Acme Cloud", URL: "https://acme.example/cloud", Content: "Acme hosts user content."},
		},
	})
	defer srv.Close()

	out, err := newClient(srv.URL).Search(context.Background(), []string{"acme hosting"}, 5)
	require.NoError(t, err)
	assert.Contains(t, out, "### Results for: acme hosting")
	assert.Contains(t, out, "**Acme Cloud**\n   https://acme.example/cloud")
}

func TestSearchMultipleQueriesKeepOrder(t *testing.T) {
	srv := testServer(t, map[string][]tavilyResult{
		"first":  {{Title: "A", URL: "https://a.example", Content: "a"}},
		"second": {{Title: "B", URL: "https://b.example", Content: "b"}},
	})
	defer srv.Close()

	out, err := newClient(srv.URL).Search(context.Background(), []string{"first", "second"}, 5)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "first"), strings.Index(out, "second"),
		"blocks follow query order regardless of completion order")
}

func TestSearchEmptyResults(t *testing.T) {
	srv := testServer(t, nil)
	defer srv.Close()

	out, err := newClient(srv.URL).Search(context.Background(), []string{"nothing"}, 5)
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchNoQueries(t *testing.T) {
	_, err := newClient("http://unused.example").Search(context.Background(), nil, 5)
	assert.Error(t, err)
}

func TestSearchBackendErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Search(context.Background(), []string{"acme"}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestFormatResultsTruncatesLongContent(t *testing.T) {
	out := formatResults("q", []tavilyResult{
		{Title: "T", URL: "https://t.example", Content: strings.Repeat("x", 2000)},
	})
	assert.Contains(t, out, "...")
	assert.Less(t, len(out), 1200)
}

func TestFormatResultsTruncatesOnRuneBoundary(t *testing.T) {
	// 400 three-byte runes; the 1000-byte cut lands mid-rune.
	out := formatResults("q", []tavilyResult{
		{Title: "T", URL: "https://t.example", Content: strings.Repeat("€", 400)},
	})
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, strings.Repeat("€", 333)+"...")
	assert.NotContains(t, out, strings.Repeat("€", 334))
}
