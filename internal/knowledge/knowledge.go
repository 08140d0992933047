package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Chunk is one retrievable unit of the Digital Services Act knowledge base:
// an article, a recital, or a definition, as produced by the upstream ETL.
type Chunk struct {
	ID            string `json:"id"`
	ArticleNumber string `json:"article_number,omitempty"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	Section       string `json:"section"`
	Category      string `json:"category"`
	Kind          string `json:"chunk_type"`
}

// Base serves lookups over the chunk table. The table is loaded lazily from
// disk exactly once; concurrent first callers share a single load through a
// singleflight group rather than racing on package-level state.
type Base struct {
	path string

	group  singleflight.Group
	mu     sync.RWMutex
	chunks []Chunk
}

func NewBase(path string) *Base {
	return &Base{path: path}
}

func (b *Base) load(_ context.Context) ([]Chunk, error) {
	b.mu.RLock()
	chunks := b.chunks
	b.mu.RUnlock()
	if chunks != nil {
		return chunks, nil
	}

	v, err, _ := b.group.Do("load", func() (any, error) {
		raw, err := os.ReadFile(b.path)
		if err != nil {
			return nil, fmt.Errorf("read knowledge base: %w", err)
		}
		var loaded []Chunk
		if err := json.Unmarshal(raw, &loaded); err != nil {
			return nil, fmt.Errorf("parse knowledge base: %w", err)
		}
		b.mu.Lock()
		b.chunks = loaded
		b.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Chunk), nil
}

// Article returns the article chunk with the given number, or nil.
func (b *Base) Article(ctx context.Context, number string) (*Chunk, error) {
	return b.byID(ctx, "article_"+number)
}

// Recital returns the recital chunk with the given number, or nil.
func (b *Base) Recital(ctx context.Context, number string) (*Chunk, error) {
	return b.byID(ctx, "recital_"+number)
}

func (b *Base) byID(ctx context.Context, id string) (*Chunk, error) {
	chunks, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		if chunks[i].ID == id {
			return &chunks[i], nil
		}
	}
	return nil, nil
}

type scoredChunk struct {
	chunk Chunk
	score int
}

// Retrieve returns the top-limit chunks ranked by keyword overlap with the
// query, formatted for inclusion in a model prompt.
func (b *Base) Retrieve(ctx context.Context, query string, limit int) (string, error) {
	chunks, err := b.load(ctx)
	if err != nil {
		return "", err
	}
	if limit <= 0 {
		limit = 5
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return "No relevant DSA provisions found.", nil
	}

	scored := make([]scoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if s := score(c, terms); s > 0 {
			scored = append(scored, scoredChunk{chunk: c, score: s})
		}
	}
	if len(scored) == 0 {
		return "No relevant DSA provisions found.", nil
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > limit {
		scored = scored[:limit]
	}

	var sb strings.Builder
	for _, sc := range scored {
		fmt.Fprintf(&sb, "## %s (%s)\n%s\n\n", sc.chunk.Title, sc.chunk.Section, sc.chunk.Content)
	}
	return strings.TrimSpace(sb.String()), nil
}

func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()\"'")
		if len(f) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

func score(c Chunk, terms []string) int {
	title := strings.ToLower(c.Title)
	content := strings.ToLower(c.Content)
	total := 0
	for _, t := range terms {
		// Title hits weigh more than body hits.
		total += 3 * strings.Count(title, t)
		total += strings.Count(content, t)
	}
	return total
}
