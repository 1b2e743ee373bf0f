package dataflow

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/graphflow/pkg/models"
)

// Transformation rule names.
const (
	RuleUppercase  = "uppercase"
	RuleLowercase  = "lowercase"
	RuleTrim       = "trim"
	RuleFormatDate = "format_date"
	RuleJSONEncode = "json_encode"
	RuleJSONDecode = "json_decode"
)

const defaultDateFormat = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	defaultDateFormat,
	time.RFC1123Z,
	time.RFC1123,
}

// Transform applies the per-field rule pipeline of schema to data. For each
// field the rules run in declared order, then the default is substituted when
// the value is absent, then the value is coerced to the declared type. Fields
// the schema does not mention pass through unchanged.
func Transform(data map[string]any, schema models.Schema) (map[string]any, error) {
	result := maps.Clone(data)
	if result == nil {
		result = make(map[string]any)
	}

	for _, field := range schema {
		source := field.Source
		if source == "" {
			source = field.Name
		}

		value, present := data[source]

		if present && value != nil {
			for _, rule := range field.Rules {
				transformed, err := applyRule(rule, value, field)
				if err != nil {
					return nil, &Error{Field: field.Name, Rule: rule, Err: err}
				}

				value = transformed
			}
		}

		if (!present || value == nil) && field.Default != nil {
			value = field.Default
			present = true
		}

		if !present {
			continue
		}

		if value != nil && field.Type != "" {
			value = coerce(value, field.Type)
		}

		result[field.Name] = value
	}

	return result, nil
}

func applyRule(rule string, value any, field models.FieldSchema) (any, error) {
	switch rule {
	case RuleUppercase:
		return mapString(value, strings.ToUpper), nil
	case RuleLowercase:
		return mapString(value, strings.ToLower), nil
	case RuleTrim:
		return mapString(value, strings.TrimSpace), nil
	case RuleFormatDate:
		return formatDate(value, field.DateFormat), nil
	case RuleJSONEncode:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}

		return string(encoded), nil
	case RuleJSONDecode:
		str, ok := value.(string)
		if !ok {
			return value, nil
		}

		var decoded any

		err := json.Unmarshal([]byte(str), &decoded)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}

		return decoded, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, rule)
	}
}

func mapString(value any, fn func(string) string) any {
	if str, ok := value.(string); ok {
		return fn(str)
	}

	return value
}

// formatDate reformats recognised dates and unix timestamps; anything else is
// returned unchanged.
func formatDate(value any, layout string) any {
	if layout == "" {
		layout = defaultDateFormat
	}

	switch v := value.(type) {
	case time.Time:
		return v.Format(layout)
	case string:
		for _, candidate := range dateLayouts {
			parsed, err := time.Parse(candidate, strings.TrimSpace(v))
			if err == nil {
				return parsed.Format(layout)
			}
		}

		return value
	default:
		seconds, ok := toFloat(value)
		if !ok || isBool(value) {
			return value
		}

		return time.Unix(int64(seconds), 0).UTC().Format(layout)
	}
}

// coerce converts value to the declared field type when a lossless or
// conventional conversion exists; otherwise value is returned unchanged and
// left for Validate to report.
func coerce(value any, fieldType string) any {
	switch fieldType {
	case models.FieldTypeString:
		switch v := value.(type) {
		case string:
			return v
		case map[string]any, []any:
			encoded, err := json.Marshal(v)
			if err != nil {
				return value
			}

			return string(encoded)
		default:
			return fmt.Sprint(v)
		}
	case models.FieldTypeInteger:
		switch v := value.(type) {
		case bool:
			if v {
				return int64(1)
			}

			return int64(0)
		case string:
			if parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return parsed
			}

			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				if number, ok := floatToInt(parsed); ok {
					return number
				}
			}

			return value
		default:
			if number, ok := toFloat(v); ok {
				if truncated, ok := floatToInt(number); ok {
					return truncated
				}
			}

			return value
		}
	case models.FieldTypeFloat:
		switch v := value.(type) {
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return parsed
			}

			return value
		default:
			if number, ok := toFloat(v); ok {
				return number
			}

			return value
		}
	case models.FieldTypeBoolean:
		switch v := value.(type) {
		case bool:
			return v
		case string:
			if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return parsed
			}

			return value
		default:
			if number, ok := toFloat(v); ok {
				return number != 0
			}

			return value
		}
	case models.FieldTypeArray, models.FieldTypeObject:
		str, ok := value.(string)
		if !ok {
			return value
		}

		var decoded any
		if err := json.Unmarshal([]byte(str), &decoded); err != nil {
			return value
		}

		if matchesType(decoded, fieldType) {
			return decoded
		}

		return value
	default:
		return value
	}
}

// floatToInt truncates f to an int64 when f is finite and inside the int64 range.
func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}

	return int64(math.Trunc(f)), true
}
