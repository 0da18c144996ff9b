package offer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	require.NoError(t, DefaultCatalog().Validate())
}

func TestCatalogValidate(t *testing.T) {
	tests := []struct {
		name    string
		catalog Catalog
	}{
		{name: "empty", catalog: Catalog{}},
		{name: "missing code", catalog: Catalog{{Label: "Damage", Group: "coverage", Type: TypeBoolean}}},
		{name: "bad type", catalog: Catalog{{Code: "damage", Label: "Damage", Group: "coverage", Type: "money"}}},
		{name: "separator in code", catalog: Catalog{{Code: "a::b", Label: "A", Group: "g", Type: TypeText}}},
		{name: "unknown enum", catalog: Catalog{{Code: "region", Label: "Region", Group: "g", Type: TypeText, Enum: "planets"}}},
		{name: "duplicate", catalog: Catalog{
			{Code: "damage", Label: "Damage", Group: "coverage", Type: TypeBoolean},
			{Code: "damage", Label: "Damage again", Group: "coverage", Type: TypeBoolean},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.catalog.Validate(), ErrInvalidCatalog)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	content := `
[[fields]]
code = "damage"
label = "Damage"
group = "coverage"
type = "boolean"

[[fields]]
code = "territory"
label = "Territory"
group = "terms"
type = "text"
enum = "territory"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	f, ok := catalog.Lookup("territory")
	require.True(t, ok)
	assert.Equal(t, EnumTerritory, f.Enum)
	assert.Equal(t, TypeText, f.Type)
}
