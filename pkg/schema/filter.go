package schema

import (
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Filter checks model output field by field. Fields that fail their type
// or validator rules become nil and are reported; unknown keys are dropped.
// Array fields keep their valid items and lose the rest.
func (s Schema) Filter(data map[string]any) (map[string]any, []ValidationError) {
	out := make(map[string]any, len(s.Fields))
	var errs []ValidationError

	for _, field := range s.Fields {
		val, exists := data[field.Name]
		if !exists || val == nil {
			if field.Required && !field.Nullable {
				errs = append(errs, ValidationError{Field: field.Name, Message: "required field is missing"})
			}
			out[field.Name] = nil
			continue
		}

		if err := validateFieldType(field, val); err != nil {
			errs = append(errs, ValidationError{Field: field.Name, Message: err.Error(), Value: val})
			out[field.Name] = nil
			continue
		}

		if field.Type == TypeArray {
			kept, dropped := filterItems(field, val.([]any))
			for _, d := range dropped {
				errs = append(errs, ValidationError{Field: field.Name, Message: d.Error(), Value: val})
			}
			out[field.Name] = kept
			continue
		}

		if err := checkRules(fieldRules(field.Validators), val); err != nil {
			errs = append(errs, ValidationError{Field: field.Name, Message: err.Error(), Value: val})
			out[field.Name] = nil
			continue
		}
		out[field.Name] = val
	}

	return out, errs
}

// maxIntFloat is the smallest float64 that overflows an int.
const maxIntFloat = float64(math.MaxInt) + 1

// validateFieldType checks if a value matches the expected field type.
func validateFieldType(field Field, val any) error {
	if val == nil {
		if field.Required && !field.Nullable {
			return fmt.Errorf("value is null but field is required")
		}
		return nil
	}

	switch field.Type {
	case TypeString:
		if _, ok := val.(string); !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
	case TypeInteger:
		f, ok := toFloat(val)
		if !ok {
			return fmt.Errorf("expected integer, got %T", val)
		}
		if f != math.Trunc(f) {
			return fmt.Errorf("expected integer, got %v", val)
		}
		if f < math.MinInt || f >= maxIntFloat {
			return fmt.Errorf("integer %v out of range", val)
		}
	case TypeNumber:
		if _, ok := toFloat(val); !ok {
			return fmt.Errorf("expected number, got %T", val)
		}
	case TypeBoolean:
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", val)
		}
	case TypeArray:
		if _, ok := val.([]any); !ok {
			return fmt.Errorf("expected array, got %T", val)
		}
	case TypeObject:
		if _, ok := val.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", val)
		}
	}

	return nil
}

func filterItems(field Field, arr []any) ([]any, []error) {
	rules := diveRules(field.Validators)
	kept := make([]any, 0, len(arr))
	var dropped []error
	for i, item := range arr {
		if field.Items != nil {
			if err := validateFieldType(*field.Items, item); err != nil || item == nil {
				dropped = append(dropped, fmt.Errorf("item %d: invalid type", i))
				continue
			}
		}
		if err := checkRules(rules, item); err != nil {
			dropped = append(dropped, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		kept = append(kept, item)
	}
	return kept, dropped
}

// fieldRules returns the validators that apply to the field itself.
func fieldRules(validators []string) []string {
	if i := slices.Index(validators, "dive"); i >= 0 {
		return validators[:i]
	}
	return validators
}

// diveRules returns the validators that apply to each array element.
func diveRules(validators []string) []string {
	if i := slices.Index(validators, "dive"); i >= 0 {
		return validators[i+1:]
	}
	return nil
}

func checkRules(rules []string, val any) error {
	for _, rule := range rules {
		name, param, _ := strings.Cut(rule, "=")
		if err := checkRule(name, param, val); err != nil {
			return err
		}
	}
	return nil
}

func checkRule(name, param string, val any) error {
	num, isNum := toFloat(val)
	str, isStr := val.(string)

	switch name {
	case "min", "gte", "max", "lte", "gt", "lt":
		if !isNum {
			return nil
		}
		limit, err := strconv.ParseFloat(param, 64)
		if err != nil {
			return nil
		}
		if !compare(name, num, limit) {
			return fmt.Errorf("%v fails %s=%s", val, name, param)
		}
	case "oneof":
		if isStr && !slices.Contains(strings.Fields(param), str) {
			return fmt.Errorf("%q is not one of [%s]", str, param)
		}
	case "datetime":
		if isStr {
			if _, err := time.Parse(param, str); err != nil {
				return fmt.Errorf("%q does not match layout %s", str, param)
			}
		}
	case "url":
		if isStr && !isAbsoluteURL(str) {
			return fmt.Errorf("%q is not a valid URL", str)
		}
	}
	return nil
}

func compare(op string, v, limit float64) bool {
	switch op {
	case "min", "gte":
		return v >= limit
	case "max", "lte":
		return v <= limit
	case "gt":
		return v > limit
	case "lt":
		return v < limit
	}
	return true
}

func isAbsoluteURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	}
	return 0, false
}
