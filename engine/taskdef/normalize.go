// Package taskdef reshapes the raw task definitions returned by the task
// engine's QueryTask request into stable, lower-case descriptors.
package taskdef

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/compozy/taskbridge/pkg/ordered"
)

// ErrInvalidDefinition is returned when a definition has the wrong shape.
var ErrInvalidDefinition = errors.New("invalid task definition")

// Normalized key names.
const (
	KeyName                = "name"
	KeyDescription         = "description"
	KeyDisplayName         = "display_name"
	KeyParameters          = "parameters"
	KeyCommuteOnSubset     = "commute_on_subset"
	KeyCommuteOnDownsample = "commute_on_downsample"
	KeyRequired            = "required"
	KeyType                = "type"
	KeyDimensions          = "dimensions"
	KeyDirection           = "direction"
	KeyMin                 = "min"
	KeyMax                 = "max"
	KeyDefaultValue        = "default_value"
	KeyChoiceList          = "choice_list"
	KeyFoldCase            = "fold_case"
	KeyAutoExtension       = "auto_extension"
	KeyIsTemporary         = "is_temporary"
	KeyIsDirectory         = "is_directory"
)

var textKeys = map[string]string{
	"NAME":         KeyName,
	"DESCRIPTION":  KeyDescription,
	"DISPLAY_NAME": KeyDisplayName,
}

var taskRenames = map[string]string{
	"COMMUTE_ON_SUBSET":     KeyCommuteOnSubset,
	"COMMUTE_ON_DOWNSAMPLE": KeyCommuteOnDownsample,
}

// Promoted only when the value is not null.
var nullableRenames = map[string]string{
	"MIN":         KeyMin,
	"MAX":         KeyMax,
	"DEFAULT":     KeyDefaultValue,
	"CHOICE_LIST": KeyChoiceList,
}

var parameterRenames = map[string]string{
	"FOLD_CASE":      KeyFoldCase,
	"AUTO_EXTENSION": KeyAutoExtension,
	"IS_TEMPORARY":   KeyIsTemporary,
	"IS_DIRECTORY":   KeyIsDirectory,
}

// Normalize converts a raw DEFINITION object into the normalized task shape.
// Every renamed key keeps the position of its raw key and unknown keys are
// copied unchanged. The input is not modified.
func Normalize(def *ordered.Object) (*ordered.Object, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: definition is missing", ErrInvalidDefinition)
	}
	out := ordered.NewObject()
	for pair := def.Oldest(); pair != nil; pair = pair.Next() {
		key, value := pair.Key, pair.Value
		if renamed, ok := textKeys[key]; ok {
			out.Set(renamed, stringify(value))
			continue
		}
		if renamed, ok := taskRenames[key]; ok {
			out.Set(renamed, value)
			continue
		}
		if key == "PARAMETERS" {
			params, err := normalizeParameters(value)
			if err != nil {
				return nil, err
			}
			out.Set(KeyParameters, params)
			continue
		}
		out.Set(key, value)
	}
	for _, key := range []string{KeyName, KeyDescription, KeyDisplayName} {
		if _, ok := out.Get(key); !ok {
			out.Set(key, "")
		}
	}
	if _, ok := out.Get(KeyParameters); !ok {
		out.Set(KeyParameters, []any{})
	}
	return out, nil
}

func normalizeParameters(value any) ([]any, error) {
	if value == nil {
		return []any{}, nil
	}
	raw, ok := value.(*ordered.Object)
	if !ok {
		return nil, fmt.Errorf("%w: PARAMETERS must be an object, got %T", ErrInvalidDefinition, value)
	}
	params := make([]any, 0, raw.Len())
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		param, ok := pair.Value.(*ordered.Object)
		if !ok {
			return nil, fmt.Errorf(
				"%w: parameter %q must be an object, got %T",
				ErrInvalidDefinition,
				pair.Key,
				pair.Value,
			)
		}
		normalized, err := normalizeParameter(param)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", pair.Key, err)
		}
		params = append(params, normalized)
	}
	return params, nil
}

func normalizeParameter(param *ordered.Object) (*ordered.Object, error) {
	out := ordered.NewObject()
	var dimensions any
	hasDimensions := false
	for pair := param.Oldest(); pair != nil; pair = pair.Next() {
		key, value := pair.Key, pair.Value
		if renamed, ok := textKeys[key]; ok {
			out.Set(renamed, stringify(value))
			continue
		}
		if renamed, ok := nullableRenames[key]; ok {
			if value != nil {
				out.Set(renamed, value)
			}
			continue
		}
		if renamed, ok := parameterRenames[key]; ok {
			out.Set(renamed, value)
			continue
		}
		switch key {
		case "REQUIRED":
			out.Set(KeyRequired, truthy(value))
		case "TYPE":
			typeName, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: TYPE must be a string, got %T", ErrInvalidDefinition, value)
			}
			base, dims := splitType(typeName)
			out.Set(KeyType, base)
			if dims != "" {
				out.Set(KeyDimensions, dims)
			}
		case "DIMENSIONS":
			dimensions, hasDimensions = value, true
			out.Set(KeyDimensions, value)
		case "DIRECTION":
			out.Set(KeyDirection, strings.ToLower(stringify(value)))
		default:
			out.Set(key, value)
		}
	}
	if hasDimensions {
		out.Set(KeyDimensions, dimensions)
	}
	for _, key := range []string{KeyName, KeyDescription, KeyDisplayName} {
		if _, ok := out.Get(key); !ok {
			out.Set(key, "")
		}
	}
	if _, ok := out.Get(KeyRequired); !ok {
		out.Set(KeyRequired, false)
	}
	return out, nil
}

// splitType separates "STRING[*]" into "STRING" and "[*]". Types without
// brackets lose a trailing ARRAY suffix: "DOUBLEARRAY" becomes "DOUBLE".
func splitType(typeName string) (string, string) {
	if base, rest, ok := strings.Cut(typeName, "["); ok {
		return base, "[" + rest
	}
	return strings.TrimSuffix(typeName, "ARRAY"), ""
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case *ordered.Object, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case *ordered.Object:
		return v.Len() > 0
	default:
		return true
	}
}
