package retrieval

import "github.com/kailas-cloud/ragrec/internal/domain/item"

// Hit is a corpus item paired with its cosine similarity to the query vector.
type Hit struct {
	item  item.CorpusItem
	score float64
}

// NewHit creates a retrieval hit.
func NewHit(it item.CorpusItem, score float64) Hit {
	return Hit{item: it, score: score}
}

// Item returns the retrieved corpus item.
func (h Hit) Item() item.CorpusItem { return h.item }

// Score returns the similarity score.
func (h Hit) Score() float64 { return h.score }

// Ordered reports whether scores are non-increasing across hits.
func Ordered(hits []Hit) bool {
	for i := 1; i < len(hits); i++ {
		if hits[i].score > hits[i-1].score {
			return false
		}
	}
	return true
}
