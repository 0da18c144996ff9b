package model

import "time"

// Document is one uploaded file. Filename is the normalized, filesystem-safe
// name; Ready reports whether the chunk set matches the stored file.
type Document struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrgID        uint      `gorm:"not null;index" json:"org_id"`
	CollectionID uint      `gorm:"not null;index" json:"collection_id"`
	Filename     string    `gorm:"size:256;not null;index" json:"filename"`
	OriginalName string    `gorm:"size:256;not null" json:"original_name"`
	StorageKey   string    `gorm:"size:512;not null" json:"-"`
	ContentType  string    `gorm:"size:128" json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Ready        bool      `gorm:"not null;default:false;index" json:"ready"`
	ChunkCount   int       `gorm:"not null;default:0" json:"chunk_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
