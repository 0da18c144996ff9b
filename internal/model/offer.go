package model

import (
	"time"

	"gorm.io/datatypes"
)

// Offer is the persisted, normalized offer extracted from one document.
// Fields holds an offer.FieldMap and Unparsed the raw text of values that
// could not be coerced, both as JSON.
type Offer struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	OrgID         uint           `gorm:"not null;index" json:"org_id"`
	CollectionID  uint           `gorm:"not null;index" json:"collection_id"`
	DocumentID    uint           `gorm:"not null;uniqueIndex" json:"document_id"`
	Issuer        string         `gorm:"size:128;not null" json:"issuer"`
	Fields        datatypes.JSON `json:"fields"`
	Unparsed      datatypes.JSON `json:"unparsed"`
	PremiumTotal  *float64       `json:"premium_total"`
	InsuredAmount *float64       `json:"insured_amount"`
	Currency      string         `gorm:"size:8" json:"currency"`
	PeriodFrom    *time.Time     `json:"period_from"`
	PeriodTo      *time.Time     `json:"period_to"`
	SourceText    string         `gorm:"type:text" json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
