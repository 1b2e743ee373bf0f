package models

// Field types understood by data flow validation and coercion.
const (
	FieldTypeString  = "string"
	FieldTypeInteger = "integer"
	FieldTypeFloat   = "float"
	FieldTypeBoolean = "boolean"
	FieldTypeArray   = "array"
	FieldTypeObject  = "object"
	FieldTypeNull    = "null"
)

// FieldSchema declares the contract of one field of a node input record.
type FieldSchema struct {
	Name      string   `json:"name"                 validate:"required" yaml:"name"`
	Type      string   `json:"type,omitempty"                           yaml:"type,omitempty"`
	Required  bool     `json:"required,omitempty"                       yaml:"required,omitempty"`
	Default   any      `json:"default,omitempty"                        yaml:"default,omitempty"`
	MinLength *int     `json:"min_length,omitempty"                     yaml:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"                     yaml:"max_length,omitempty"`
	Min       *float64 `json:"min,omitempty"                            yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"                            yaml:"max,omitempty"`
	// Source names the field to read from the source record; defaults to Name.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	// Rules are transformation rule names applied in order.
	Rules []string `json:"rules,omitempty" yaml:"rules,omitempty"`
	// DateFormat is the Go layout used by the format_date rule.
	DateFormat string `json:"date_format,omitempty" yaml:"date_format,omitempty"`
}

// Schema is an ordered list of field contracts.
type Schema []FieldSchema
