// Package schema loads blueprints, the per-type descriptors that list a
// directory type's fields and storage settings, and merges submitted data
// into stored records.
package schema

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/flexdir/internal/apperr"
	pkgconfig "github.com/starford/flexdir/pkg/config"
)

// Storage types.
const (
	StorageFile   = "file"
	StorageFolder = "folder"
)

// DefaultKind is the object and collection kind used when none is set.
const DefaultKind = "default"

// Field describes one blueprint field.
type Field struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	Label        string `yaml:"label"`
	Multilingual bool   `yaml:"multilingual"`
}

// Validate validates the field.
func (f Field) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
	)
}

// StorageConfig is the storage section of a blueprint.
type StorageConfig struct {
	Type       string `yaml:"type"`
	Format     string `yaml:"format"`
	Path       string `yaml:"path"`
	KeyField   string `yaml:"key_field"`
	Object     string `yaml:"object"`
	Collection string `yaml:"collection"`
}

// Blueprint is the schema descriptor of one directory type.
type Blueprint struct {
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Merge       MergePolicy   `yaml:"merge"`
	Fields      []Field       `yaml:"fields"`
	Storage     StorageConfig `yaml:"storage"`
}

// Validate validates the blueprint. Storage type and format are checked
// when the type builds its backend.
func (b *Blueprint) Validate() error {
	if b.Merge == "" {
		b.Merge = MergeOverride
	}
	return validation.ValidateStruct(b,
		validation.Field(&b.Fields, validation.Required),
		validation.Field(&b.Merge, validation.In(MergeOverride, MergeKeepEmpty)),
	)
}

// Parse decodes and validates a blueprint for directory type name. The
// file name selects YAML or JSON syntax.
func Parse(name, filename string, data []byte) (*Blueprint, error) {
	var bp Blueprint
	if err := pkgconfig.Decode(filename, data, &bp); err != nil {
		return nil, &apperr.ConfigError{Type: name, Msg: "invalid blueprint " + filename, Err: err}
	}
	bp.applyDefaults(name)
	return &bp, nil
}

// DefaultPath is the storage path of a type whose blueprint sets none.
func DefaultPath(name string) string {
	return fmt.Sprintf("user://data/flex-directory/%s.json", name)
}

func (b *Blueprint) applyDefaults(name string) {
	if b.Storage.Type == "" {
		b.Storage.Type = StorageFile
	}
	if b.Storage.Path == "" {
		b.Storage.Path = DefaultPath(name)
	}
	if b.Storage.Object == "" {
		b.Storage.Object = DefaultKind
	}
	if b.Storage.Collection == "" {
		b.Storage.Collection = DefaultKind
	}
	b.Storage.Type = strings.ToLower(b.Storage.Type)
}

// FieldNames returns the field names in declaration order.
func (b *Blueprint) FieldNames() []string {
	out := make([]string, 0, len(b.Fields))
	for _, f := range b.Fields {
		out = append(out, f.Name)
	}
	return out
}

// MultilingualFields returns the names of fields flagged multilingual.
func (b *Blueprint) MultilingualFields() []string {
	var out []string
	for _, f := range b.Fields {
		if f.Multilingual {
			out = append(out, f.Name)
		}
	}
	return out
}

// MergeData merges submitted data over an existing record's fields using
// the blueprint's merge policy.
func (b *Blueprint) MergeData(existing, data map[string]any) map[string]any {
	return Merge(b.Merge, existing, data)
}
