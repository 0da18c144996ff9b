// Package comparison builds side-by-side tables from normalized offers.
package comparison

import (
	"errors"
	"time"

	"offerdesk/internal/offer"
)

const keySeparator = "::"

// Synthetic row codes carrying pricing that lives outside the field map.
const (
	RowPremiumTotal  = "premium_total"
	RowInsuredAmount = "insured_amount"
)

const GroupPricing = "pricing"

var (
	ErrInvalidInput = errors.New("invalid comparison input")
	ErrNoRecords    = errors.New("no offers to compare")
)

// Row is one line of the table.
type Row struct {
	Code      string     `json:"code"`
	Label     string     `json:"label"`
	Group     string     `json:"group"`
	Type      offer.Type `json:"type"`
	Synthetic bool       `json:"synthetic,omitempty"`
}

// ColumnMeta is per-offer context for sorting and filtering.
type ColumnMeta struct {
	SourceID      string     `json:"source_id"`
	Issuer        string     `json:"issuer"`
	PremiumTotal  *float64   `json:"premium_total"`
	InsuredAmount *float64   `json:"insured_amount"`
	Currency      string     `json:"currency,omitempty"`
	PeriodFrom    *time.Time `json:"period_from,omitempty"`
	PeriodTo      *time.Time `json:"period_to,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Matrix is the comparison view. Values is keyed by Key(code, column); a
// missing key means unknown, not false or zero.
type Matrix struct {
	Rows     []Row                 `json:"rows"`
	Columns  []string              `json:"columns"`
	Values   map[string]any        `json:"values"`
	Metadata map[string]ColumnMeta `json:"metadata"`
}

// Key is the composite value key for a row code and a column id.
func Key(code, column string) string {
	return code + keySeparator + column
}

// Value returns the value stored for code in column.
func (m *Matrix) Value(code, column string) (any, bool) {
	v, ok := m.Values[Key(code, column)]
	return v, ok
}
