package comparison

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerdesk/internal/offer"
)

func record(issuer string, damage bool, premium float64) offer.Record {
	return offer.Record{
		SourceID: fmt.Sprintf("%s-%v-%v", issuer, damage, premium),
		Issuer:   issuer,
		Fields:   offer.FieldMap{"damage": offer.BoolValue(damage)},
		Pricing: offer.Pricing{
			PremiumTotal: &premium,
			Currency:     "EUR",
		},
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestBuild_DuplicateIssuers(t *testing.T) {
	records := []offer.Record{
		record("BALTA", true, 850),
		record("BALTA", false, 920),
		record("BALCIA", false, 795),
	}

	m, err := Build(records, offer.DefaultCatalog())
	require.NoError(t, err)

	assert.Equal(t, []string{"BALTA #1", "BALTA #2", "BALCIA"}, m.Columns)
	assert.Equal(t, true, m.Values["damage::BALTA #1"])
	assert.Equal(t, false, m.Values["damage::BALTA #2"])
	assert.Equal(t, false, m.Values["damage::BALCIA"])

	require.Len(t, m.Metadata, 3)
	for col, want := range map[string]float64{"BALTA #1": 850, "BALTA #2": 920, "BALCIA": 795} {
		meta, ok := m.Metadata[col]
		require.True(t, ok, col)
		require.NotNil(t, meta.PremiumTotal, col)
		assert.Equal(t, want, *meta.PremiumTotal, col)
		assert.Equal(t, "EUR", meta.Currency)
		assert.Equal(t, records[0].CreatedAt, meta.CreatedAt)
	}
	assert.Equal(t, "BALTA", m.Metadata["BALTA #2"].Issuer)
	assert.Equal(t, records[1].SourceID, m.Metadata["BALTA #2"].SourceID)

	v, ok := m.Value(RowPremiumTotal, "BALTA #2")
	require.True(t, ok)
	assert.Equal(t, 920.0, v)
}

func TestBuild_ColumnsUniqueWhenAllIssuersMatch(t *testing.T) {
	for _, n := range []int{1, 2, 5, 17} {
		records := make([]offer.Record, n)
		for i := range records {
			records[i] = record("BTA", i%2 == 0, float64(100+i))
		}

		m, err := Build(records, offer.DefaultCatalog())
		require.NoError(t, err)
		require.Len(t, m.Columns, n)

		seen := map[string]bool{}
		for _, col := range m.Columns {
			assert.False(t, seen[col], "duplicate column %q", col)
			seen[col] = true
		}
		if n == 1 {
			assert.Equal(t, []string{"BTA"}, m.Columns)
		}
		for i, rec := range records {
			assert.Equal(t, rec.Fields.Get("damage"), m.Values[Key("damage", m.Columns[i])])
		}
	}
}

func TestColumnIDs_LiteralNumberedIssuer(t *testing.T) {
	records := []offer.Record{{Issuer: "BALTA"}, {Issuer: "BALTA #1"}, {Issuer: "BALTA"}, {Issuer: ""}, {Issuer: " "}}

	ids := ColumnIDs(records)

	assert.Equal(t, []string{"BALTA #2", "BALTA #1", "BALTA #3", "Unknown #1", "Unknown #2"}, ids)
}

func TestBuild_RowsFollowCatalogWithPricingAppended(t *testing.T) {
	catalog := offer.Catalog{
		{Code: "theft", Label: "Theft", Group: "coverage", Type: offer.TypeBoolean},
		{Code: "damage", Label: "Damage", Group: "coverage", Type: offer.TypeBoolean},
	}
	m, err := Build([]offer.Record{record("IF", true, 10)}, catalog)
	require.NoError(t, err)

	codes := make([]string, len(m.Rows))
	for i, r := range m.Rows {
		codes[i] = r.Code
	}
	assert.Equal(t, []string{"theft", "damage", RowPremiumTotal, RowInsuredAmount}, codes)
	assert.True(t, m.Rows[2].Synthetic)
	assert.False(t, m.Rows[0].Synthetic)
}

func TestBuild_MissingValuesAreOmitted(t *testing.T) {
	rec := offer.Record{Issuer: "Gjensidige", Fields: offer.FieldMap{}}
	m, err := Build([]offer.Record{rec}, offer.DefaultCatalog())
	require.NoError(t, err)

	assert.Empty(t, m.Values)
	meta := m.Metadata["Gjensidige"]
	assert.Nil(t, meta.PremiumTotal)
	assert.Nil(t, meta.InsuredAmount)
}

func TestBuild_Deterministic(t *testing.T) {
	records := []offer.Record{record("A", true, 1), record("B", false, 2), record("A", false, 3)}
	first, err := Build(records, offer.DefaultCatalog())
	require.NoError(t, err)
	second, err := Build(records, offer.DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil, offer.DefaultCatalog())
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = Build([]offer.Record{record("A", true, 1)}, offer.Catalog{{Code: "", Label: "x", Group: "g", Type: offer.TypeText}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, offer.ErrInvalidCatalog)

	_, err = Build([]offer.Record{record("A", true, 1)}, offer.Catalog{{Code: RowPremiumTotal, Label: "Premium", Group: "g", Type: offer.TypeNumber}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
