package dataflow

import (
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"

	"github.com/dukex/graphflow/pkg/models"
)

// Validation error codes.
const (
	CodeRequired  = "required"
	CodeType      = "type"
	CodeMinLength = "min_length"
	CodeMaxLength = "max_length"
	CodeMin       = "min"
	CodeMax       = "max"
)

// Validate checks data against the schema and returns every violation found.
// Absent optional fields are not checked. Unknown declared types pass.
func Validate(data map[string]any, schema models.Schema) []ValidationError {
	var violations []ValidationError

	for _, field := range schema {
		value, present := data[field.Name]

		if isMissing(value, present) {
			if field.Required {
				violations = append(violations, ValidationError{
					Field:   field.Name,
					Code:    CodeRequired,
					Message: "field is required",
				})
			}

			continue
		}

		if field.Type != "" && !matchesType(value, field.Type) {
			violations = append(violations, ValidationError{
				Field:   field.Name,
				Code:    CodeType,
				Message: fmt.Sprintf("expected %s, got %T", field.Type, value),
			})

			continue
		}

		violations = append(violations, checkBounds(field, value)...)
	}

	return violations
}

func isMissing(value any, present bool) bool {
	if !present || value == nil {
		return true
	}

	str, ok := value.(string)

	return ok && str == ""
}

func matchesType(value any, fieldType string) bool {
	switch fieldType {
	case models.FieldTypeString:
		_, ok := value.(string)

		return ok
	case models.FieldTypeInteger:
		switch v := value.(type) {
		case float32, float64:
			number, _ := toFloat(v)
			_, inRange := floatToInt(number)

			return inRange && number == math.Trunc(number)
		default:
			_, ok := toFloat(value)

			return ok
		}
	case models.FieldTypeFloat:
		_, ok := toFloat(value)

		return ok
	case models.FieldTypeBoolean:
		return isBool(value)
	case models.FieldTypeArray:
		if value == nil {
			return false
		}

		kind := reflect.TypeOf(value).Kind()

		return kind == reflect.Slice || kind == reflect.Array
	case models.FieldTypeObject:
		return value != nil && reflect.TypeOf(value).Kind() == reflect.Map
	case models.FieldTypeNull:
		return value == nil
	default:
		return true
	}
}

func checkBounds(field models.FieldSchema, value any) []ValidationError {
	var violations []ValidationError

	if str, ok := value.(string); ok {
		length := utf8.RuneCountInString(str)

		if field.MinLength != nil && length < *field.MinLength {
			violations = append(violations, ValidationError{
				Field:   field.Name,
				Code:    CodeMinLength,
				Message: fmt.Sprintf("length %d is below minimum %d", length, *field.MinLength),
			})
		}

		if field.MaxLength != nil && length > *field.MaxLength {
			violations = append(violations, ValidationError{
				Field:   field.Name,
				Code:    CodeMaxLength,
				Message: fmt.Sprintf("length %d exceeds maximum %d", length, *field.MaxLength),
			})
		}

		return violations
	}

	number, ok := toFloat(value)
	if !ok || isBool(value) {
		return nil
	}

	if field.Min != nil && number < *field.Min {
		violations = append(violations, ValidationError{
			Field:   field.Name,
			Code:    CodeMin,
			Message: fmt.Sprintf("value %v is below minimum %v", number, *field.Min),
		})
	}

	if field.Max != nil && number > *field.Max {
		violations = append(violations, ValidationError{
			Field:   field.Name,
			Code:    CodeMax,
			Message: fmt.Sprintf("value %v exceeds maximum %v", number, *field.Max),
		})
	}

	return violations
}

func isBool(value any) bool {
	_, ok := value.(bool)

	return ok
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
