package index

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/placedir/placedir-backend/pkg/slug"
)

const (
	nameWeight        = 2.0
	descriptionWeight = 1.0
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"the": {}, "to": {}, "with": {},
}

// TextHit is one search result
type TextHit struct {
	ID        uint
	Score     float64
	CreatedAt time.Time
}

// TextDoc is one place fed to Rebuild
type TextDoc struct {
	ID          uint
	Name        string
	Description string
	CreatedAt   time.Time
}

type fieldStats struct {
	freq  map[string]int
	total int
}

type textDoc struct {
	name        fieldStats
	description fieldStats
	createdAt   time.Time
}

// TextIndex is an inverted index over place names and descriptions
type TextIndex struct {
	mu       sync.RWMutex
	docs     map[uint]textDoc
	postings map[string]map[uint]struct{}
}

func NewTextIndex() *TextIndex {
	return &TextIndex{
		docs:     make(map[uint]textDoc),
		postings: make(map[string]map[uint]struct{}),
	}
}

// Tokenize folds diacritics and case, splits on anything that is not a
// letter or digit and drops stop words.
func Tokenize(text string) []string {
	folded := strings.ToLower(slug.Fold(text))
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

func newFieldStats(text string) fieldStats {
	tokens := Tokenize(text)
	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}
	return fieldStats{freq: freq, total: len(tokens)}
}

// score is 0 when the term is absent and grows with its share of the field
func (f fieldStats) score(term string) float64 {
	n := f.freq[term]
	if n == 0 {
		return 0
	}
	return 0.5 + 0.5*float64(n)/float64(f.total)
}

// Upsert indexes or re-indexes a document
func (ix *TextIndex) Upsert(id uint, name, description string, createdAt time.Time) {
	doc := textDoc{
		name:        newFieldStats(name),
		description: newFieldStats(description),
		createdAt:   createdAt,
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeLocked(id)
	ix.docs[id] = doc
	for _, field := range []fieldStats{doc.name, doc.description} {
		for term := range field.freq {
			bucket, ok := ix.postings[term]
			if !ok {
				bucket = make(map[uint]struct{})
				ix.postings[term] = bucket
			}
			bucket[id] = struct{}{}
		}
	}
}

// Remove drops a document; unknown ids are ignored
func (ix *TextIndex) Remove(id uint) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(id)
}

func (ix *TextIndex) removeLocked(id uint) {
	doc, ok := ix.docs[id]
	if !ok {
		return
	}
	delete(ix.docs, id)
	for _, field := range []fieldStats{doc.name, doc.description} {
		for term := range field.freq {
			if bucket, ok := ix.postings[term]; ok {
				delete(bucket, id)
				if len(bucket) == 0 {
					delete(ix.postings, term)
				}
			}
		}
	}
}

// Rebuild replaces the whole index with docs
func (ix *TextIndex) Rebuild(docs []TextDoc) {
	fresh := NewTextIndex()
	for _, d := range docs {
		fresh.Upsert(d.ID, d.Name, d.Description, d.CreatedAt)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs = fresh.docs
	ix.postings = fresh.postings
}

// Len returns the number of indexed documents
func (ix *TextIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Search returns documents matching any query term, highest score first,
// ties broken by newest first. A blank query yields no hits.
func (ix *TextIndex) Search(query string, limit int) []TextHit {
	terms := uniqueTerms(Tokenize(query))
	if len(terms) == 0 || limit <= 0 {
		return []TextHit{}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	scores := make(map[uint]float64)
	for _, term := range terms {
		for id := range ix.postings[term] {
			doc := ix.docs[id]
			scores[id] += nameWeight*doc.name.score(term) + descriptionWeight*doc.description.score(term)
		}
	}

	hits := make([]TextHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, TextHit{ID: id, Score: score, CreatedAt: ix.docs[id].createdAt})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].ID > hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
