package knowledge

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleLookup(t *testing.T) {
	b := NewBase("testdata/chunks.json")

	chunk, err := b.Article(context.Background(), "16")
	require.NoError(t, err)
	require.NotNil(t, chunk)
	assert.Equal(t, "Article 16: Notice and action mechanisms", chunk.Title)
	assert.Equal(t, "article", chunk.Kind)

	missing, err := b.Article(context.Background(), "999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRecitalLookup(t *testing.T) {
	b := NewBase("testdata/chunks.json")

	chunk, err := b.Recital(context.Background(), "40")
	require.NoError(t, err)
	require.NotNil(t, chunk)
	assert.Equal(t, "Recital 40", chunk.Title)
}

func TestRetrieveRanksTitleHitsFirst(t *testing.T) {
	b := NewBase("testdata/chunks.json")

	out, err := b.Retrieve(context.Background(), "trusted flaggers", 2)
	require.NoError(t, err)
	first := strings.SplitN(out, "\n", 2)[0]
	assert.Contains(t, first, "Trusted flaggers")
}

func TestRetrieveNoMatches(t *testing.T) {
	b := NewBase("testdata/chunks.json")

	out, err := b.Retrieve(context.Background(), "zzzz qqqq", 5)
	require.NoError(t, err)
	assert.Equal(t, "No relevant DSA provisions found.", out)
}

func TestLoadFailureSurfaces(t *testing.T) {
	b := NewBase("testdata/does-not-exist.json")
	_, err := b.Retrieve(context.Background(), "hosting", 5)
	assert.Error(t, err)
}

func TestConcurrentFirstLoad(t *testing.T) {
	b := NewBase("testdata/chunks.json")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chunk, err := b.Article(context.Background(), "22")
			assert.NoError(t, err)
			assert.NotNil(t, chunk)
		}()
	}
	wg.Wait()
}
