package semantic

// SearchResult is a single nearest-neighbor hit, best first.
type SearchResult struct {
	ID      string  `json:"id"`
	Score   float32 `json:"score"`
	Content string  `json:"content"`
	ChunkID int     `json:"chunk_id"`
}

// VectorRecord is one chunk ready for storage: a point ID, its embedding,
// and the payload persisted alongside (content text plus chunk_id metadata).
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any
}
