package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DocumentRef identifies a document by id, by filename, or both.
type DocumentRef struct {
	ID       uint   `json:"id,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// ShareReference points a public share token at a collection. CollectionToken
// is empty until the collection has been inferred from DocumentRefs.
type ShareReference struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Token           string         `gorm:"size:64;not null;uniqueIndex" json:"token"`
	OrgID           uint           `gorm:"not null;index" json:"org_id"`
	CollectionToken string         `gorm:"size:64;not null;default:'';index" json:"collection_token"`
	DocumentRefs    datatypes.JSON `json:"document_refs"`
	CreatedBy       uint           `gorm:"index" json:"created_by"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Refs returns the decoded document references; empty on parse error.
func (s *ShareReference) Refs() []DocumentRef {
	if len(s.DocumentRefs) == 0 {
		return nil
	}
	var refs []DocumentRef
	_ = json.Unmarshal(s.DocumentRefs, &refs)
	return refs
}

// SetRefs stores refs as JSON.
func (s *ShareReference) SetRefs(refs []DocumentRef) {
	if len(refs) == 0 {
		s.DocumentRefs = datatypes.JSON("[]")
		return
	}
	b, _ := json.Marshal(refs)
	s.DocumentRefs = datatypes.JSON(b)
}
