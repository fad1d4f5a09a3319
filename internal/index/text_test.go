package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTextIndex() *TextIndex {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ix := NewTextIndex()
	ix.Upsert(1, "Blue Bottle Coffee", "Single origin pour over coffee and pastries", base)
	ix.Upsert(2, "Philz", "Custom blended coffee, mint mojito", base.Add(time.Hour))
	ix.Upsert(3, "Tartine Bakery", "Bread, croissants and a little coffee", base.Add(2*time.Hour))
	ix.Upsert(4, "Café Réveille", "Espresso bar", base.Add(3*time.Hour))
	ix.Upsert(5, "Zuni", "Roast chicken", base.Add(4*time.Hour))
	return ix
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"blue", "bottle", "coffee"}, Tokenize("The Blue-Bottle  COFFEE!"))
	assert.Equal(t, []string{"cafe", "reveille"}, Tokenize("Café Réveille"))
	assert.Empty(t, Tokenize("   "))
	assert.Empty(t, Tokenize("the and of"))
}

func TestTextIndex_SearchOrdersByScore(t *testing.T) {
	ix := newTextIndex()

	hits := ix.Search("coffee", 10)
	require.Len(t, hits, 3)

	// name match outranks description-only matches
	assert.Equal(t, uint(1), hits[0].ID)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestTextIndex_MultipleTermsAccumulate(t *testing.T) {
	ix := newTextIndex()

	hits := ix.Search("coffee bread", 10)
	require.NotEmpty(t, hits)

	scores := map[uint]float64{}
	for _, h := range hits {
		scores[h.ID] = h.Score
	}
	// Tartine matches both terms in its description, Philz only one
	assert.Greater(t, scores[3], scores[2])
}

func TestTextIndex_DiacriticInsensitive(t *testing.T) {
	ix := newTextIndex()

	hits := ix.Search("cafe", 5)
	require.Len(t, hits, 1)
	assert.Equal(t, uint(4), hits[0].ID)
}

func TestTextIndex_EmptyAndNoMatch(t *testing.T) {
	ix := newTextIndex()

	assert.Empty(t, ix.Search("", 5))
	assert.Empty(t, ix.Search("   \t", 5))
	assert.Empty(t, ix.Search("sushi", 5))
	assert.NotNil(t, ix.Search("sushi", 5))
}

func TestTextIndex_LimitAndTieBreak(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ix := NewTextIndex()
	ix.Upsert(1, "Taco Stand", "", base)
	ix.Upsert(2, "Taco Stand", "", base.Add(time.Hour))
	ix.Upsert(3, "Taco Stand", "", base.Add(2*time.Hour))

	hits := ix.Search("taco", 2)
	require.Len(t, hits, 2)
	// equal scores: newest first
	assert.Equal(t, uint(3), hits[0].ID)
	assert.Equal(t, uint(2), hits[1].ID)
}

func TestTextIndex_UpsertReplacesAndRemove(t *testing.T) {
	ix := newTextIndex()

	ix.Upsert(5, "Zuni Coffee", "Roast chicken", time.Now())
	hits := ix.Search("chicken", 5)
	require.Len(t, hits, 1)
	assert.Len(t, ix.Search("coffee", 10), 4)

	ix.Remove(5)
	assert.Empty(t, ix.Search("chicken", 5))
	assert.Equal(t, 4, ix.Len())
}

func TestTextIndex_Rebuild(t *testing.T) {
	ix := newTextIndex()

	ix.Rebuild([]TextDoc{{ID: 42, Name: "Noodle Bar", CreatedAt: time.Now()}})
	assert.Equal(t, 1, ix.Len())
	assert.Empty(t, ix.Search("coffee", 5))

	hits := ix.Search("noodle", 5)
	require.Len(t, hits, 1)
	assert.Equal(t, uint(42), hits[0].ID)
}
