package model

import "time"

// Collection groups the documents uploaded together. Token is the opaque
// identifier handed out to clients and share links.
type Collection struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"size:64;not null;uniqueIndex" json:"token"`
	OrgID     uint      `gorm:"not null;index" json:"org_id"`
	Name      string    `gorm:"size:256;not null" json:"name"`
	CreatedBy uint      `gorm:"index" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
