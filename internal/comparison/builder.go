package comparison

import (
	"fmt"
	"strings"

	"offerdesk/internal/offer"
)

const unknownIssuer = "Unknown"

var syntheticRows = []Row{
	{Code: RowPremiumTotal, Label: "Total premium", Group: GroupPricing, Type: offer.TypeNumber, Synthetic: true},
	{Code: RowInsuredAmount, Label: "Insured amount", Group: GroupPricing, Type: offer.TypeNumber, Synthetic: true},
}

// Build merges records into a matrix with one column per record, in input
// order. Rows follow the catalog order with the pricing rows appended.
func Build(records []offer.Record, catalog offer.Catalog) (*Matrix, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, ErrNoRecords)
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	for _, row := range syntheticRows {
		if _, clash := catalog.Lookup(row.Code); clash {
			return nil, fmt.Errorf("%w: catalog field %q is reserved for pricing", ErrInvalidInput, row.Code)
		}
	}

	rows := make([]Row, 0, len(catalog)+len(syntheticRows))
	for _, f := range catalog {
		rows = append(rows, Row{Code: f.Code, Label: f.Label, Group: f.Group, Type: f.Type})
	}
	rows = append(rows, syntheticRows...)

	columns := ColumnIDs(records)
	m := &Matrix{
		Rows:     rows,
		Columns:  columns,
		Values:   make(map[string]any, len(rows)*len(records)),
		Metadata: make(map[string]ColumnMeta, len(records)),
	}

	for i, rec := range records {
		col := columns[i]
		for _, f := range catalog {
			if v := rec.Fields.Get(f.Code); v != nil {
				m.Values[Key(f.Code, col)] = v
			}
		}
		if p := rec.Pricing.PremiumTotal; p != nil {
			m.Values[Key(RowPremiumTotal, col)] = *p
		}
		if a := rec.Pricing.InsuredAmount; a != nil {
			m.Values[Key(RowInsuredAmount, col)] = *a
		}

		m.Metadata[col] = ColumnMeta{
			SourceID:      rec.SourceID,
			Issuer:        rec.Issuer,
			PremiumTotal:  rec.Pricing.PremiumTotal,
			InsuredAmount: rec.Pricing.InsuredAmount,
			Currency:      rec.Pricing.Currency,
			PeriodFrom:    rec.Pricing.PeriodFrom,
			PeriodTo:      rec.Pricing.PeriodTo,
			CreatedAt:     rec.CreatedAt,
		}
	}
	return m, nil
}

// ColumnIDs assigns one distinct id per record. A unique issuer name is used
// as is; a repeated one becomes "<issuer> #1", "<issuer> #2", ... in input
// order.
func ColumnIDs(records []offer.Record) []string {
	issuers := make([]string, len(records))
	counts := make(map[string]int, len(records))
	for i, rec := range records {
		name := strings.TrimSpace(rec.Issuer)
		if name == "" {
			name = unknownIssuer
		}
		issuers[i] = name
		counts[name]++
	}

	// Reserve every unique issuer first so a numbered id can never take a
	// name that another record uses verbatim.
	used := make(map[string]bool, len(records))
	for name, n := range counts {
		if n == 1 {
			used[name] = true
		}
	}

	ids := make([]string, len(records))
	next := make(map[string]int, len(counts))
	for i, name := range issuers {
		if counts[name] == 1 {
			ids[i] = name
			continue
		}
		for {
			next[name]++
			candidate := fmt.Sprintf("%s #%d", name, next[name])
			if !used[candidate] {
				used[candidate] = true
				ids[i] = candidate
				break
			}
		}
	}
	return ids
}
