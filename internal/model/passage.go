package model

import "encoding/json"

// Passage is a chunk joined with its document, as gathered for retrieval.
// It is a query result, not a table.
type Passage struct {
	ChunkID    uint    `json:"chunk_id"`
	DocumentID uint    `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Embedding  string  `json:"-"`
	Score      float32 `json:"score"`
}

func (p *Passage) EmbeddingVector() []float32 {
	if p.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(p.Embedding), &v)
	return v
}
