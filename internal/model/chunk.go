package model

import (
	"encoding/json"
	"time"
)

// Chunk is one retrieval segment of a document. ChunkIndex values of a
// document always form 0..N-1; the set is replaced as a whole on re-embed.
// Embedding is stored as a JSON array of float32 for portability.
type Chunk struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DocumentID  uint      `gorm:"not null;uniqueIndex:idx_chunk_document_position,priority:1" json:"document_id"`
	ChunkIndex  int       `gorm:"not null;uniqueIndex:idx_chunk_document_position,priority:2" json:"chunk_index"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	StartOffset int       `gorm:"not null" json:"start_offset"`
	EndOffset   int       `gorm:"not null" json:"end_offset"`
	Length      int       `gorm:"not null" json:"length"`
	Embedding   string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *Chunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *Chunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = ""
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
