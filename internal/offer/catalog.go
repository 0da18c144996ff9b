// Package offer turns the loosely typed field maps produced by offer
// extraction into typed, canonical offer records.
package offer

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Type is the value type of a catalog field.
type Type string

const (
	TypeBoolean Type = "boolean"
	TypeNumber  Type = "number"
	TypeText    Type = "text"
	TypeList    Type = "list"
)

var ErrInvalidCatalog = errors.New("invalid field catalog")

// Field describes one comparable coverage attribute. The catalog is supplied
// by configuration; it is never derived from extracted data.
type Field struct {
	Code  string `json:"code" toml:"code" validate:"required,max=64,excludes=::"`
	Label string `json:"label" toml:"label" validate:"required,max=128"`
	Group string `json:"group" toml:"group" validate:"required,max=64"`
	Type  Type   `json:"type" toml:"type" validate:"required,oneof=boolean number text list"`
	Enum  string `json:"enum,omitempty" toml:"enum" validate:"omitempty,enumeration"`
}

type Catalog []Field

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("enumeration", func(fl validator.FieldLevel) bool {
		_, ok := enumerations[fl.Field().String()]
		return ok
	})
	return v
}

// Validate checks every field and rejects duplicate codes.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: catalog is empty", ErrInvalidCatalog)
	}
	seen := make(map[string]struct{}, len(c))
	for i, f := range c {
		if err := validate.Struct(f); err != nil {
			return fmt.Errorf("%w: field %d (%q): %v", ErrInvalidCatalog, i, f.Code, err)
		}
		if _, dup := seen[f.Code]; dup {
			return fmt.Errorf("%w: duplicate field code %q", ErrInvalidCatalog, f.Code)
		}
		seen[f.Code] = struct{}{}
	}
	return nil
}

// Lookup returns the field with the given code.
func (c Catalog) Lookup(code string) (Field, bool) {
	for _, f := range c {
		if f.Code == code {
			return f, true
		}
	}
	return Field{}, false
}

type catalogFile struct {
	Fields []Field `toml:"fields"`
}

// LoadCatalog reads a TOML file with a [[fields]] table array.
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file failed: %w", err)
	}
	var file catalogFile
	if _, err := toml.Decode(string(raw), &file); err != nil {
		return nil, fmt.Errorf("decode catalog file failed: %w", err)
	}
	catalog := Catalog(file.Fields)
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// DefaultCatalog is the motor own-damage (KASKO) catalog used when no catalog
// file is configured.
func DefaultCatalog() Catalog {
	return Catalog{
		{Code: "damage", Label: "Damage", Group: "coverage", Type: TypeBoolean},
		{Code: "theft", Label: "Theft", Group: "coverage", Type: TypeBoolean},
		{Code: "glass", Label: "Glass breakage", Group: "coverage", Type: TypeBoolean},
		{Code: "natural_disasters", Label: "Natural disasters", Group: "coverage", Type: TypeBoolean},
		{Code: "vandalism", Label: "Vandalism", Group: "coverage", Type: TypeBoolean},
		{Code: "fire", Label: "Fire", Group: "coverage", Type: TypeBoolean},
		{Code: "roadside_assistance", Label: "Roadside assistance", Group: "services", Type: TypeBoolean},
		{Code: "replacement_vehicle", Label: "Replacement vehicle", Group: "services", Type: TypeBoolean},
		{Code: "deductible", Label: "Deductible", Group: "terms", Type: TypeNumber},
		{Code: "glass_deductible", Label: "Glass deductible", Group: "terms", Type: TypeNumber},
		{Code: "territory", Label: "Territory", Group: "terms", Type: TypeText, Enum: EnumTerritory},
		{Code: "exclusions", Label: "Exclusions", Group: "terms", Type: TypeList},
		{Code: "notes", Label: "Notes", Group: "other", Type: TypeText},
	}
}
