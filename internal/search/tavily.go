package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"dsa-copilot/internal/config"
)

// Searcher executes a batch of query strings against a web search backend and
// returns one formatted text blob with embedded source URLs.
type Searcher interface {
	Search(ctx context.Context, queries []string, maxResults int) (string, error)
}

const maxContentChars = 1000

// Tavily is a client for the Tavily search API.
type Tavily struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func NewTavily(cfg config.SearchConfig) *Tavily {
	return &Tavily{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// Search runs every query concurrently and aggregates the formatted results.
// Result blocks keep the "**Title**\n   URL" shape that the streaming layer's
// source extraction depends on.
func (t *Tavily) Search(ctx context.Context, queries []string, maxResults int) (string, error) {
	if len(queries) == 0 {
		return "", fmt.Errorf("no search queries provided")
	}

	blocks := make([]string, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		g.Go(func() error {
			resp, err := t.searchOne(gctx, query, maxResults)
			if err != nil {
				return fmt.Errorf("query %q: %w", query, err)
			}
			blocks[i] = formatResults(query, resp.Results)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(blocks, "\n\n"), nil
}

func (t *Tavily) searchOne(ctx context.Context, query string, maxResults int) (*tavilyResponse, error) {
	body, err := json.Marshal(tavilyRequest{APIKey: t.apiKey, Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

func formatResults(query string, results []tavilyResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Results for: %s\n", query)
	if len(results) == 0 {
		b.WriteString("No results found.\n")
		return b.String()
	}
	for _, r := range results {
		content := r.Content
		if len(content) > maxContentChars {
			// Never cut in the middle of a multi-byte rune.
			cut := maxContentChars
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			content = content[:cut] + "..."
		}
		fmt.Fprintf(&b, "**%s**\n   %s\n   %s\n", r.Title, r.URL, content)
	}
	return b.String()
}
