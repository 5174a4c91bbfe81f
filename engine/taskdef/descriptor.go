package taskdef

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/compozy/taskbridge/pkg/ordered"
)

// TaskDescriptor is the typed view of a normalized task definition.
type TaskDescriptor struct {
	URI                 string                `mapstructure:"uri"                   json:"uri"`
	Name                string                `mapstructure:"name"                  json:"name"`
	Description         string                `mapstructure:"description"           json:"description"`
	DisplayName         string                `mapstructure:"display_name"          json:"display_name"`
	Parameters          []ParameterDescriptor `mapstructure:"parameters"            json:"parameters"`
	CommuteOnSubset     *bool                 `mapstructure:"commute_on_subset"     json:"commute_on_subset,omitempty"`
	CommuteOnDownsample *bool                 `mapstructure:"commute_on_downsample" json:"commute_on_downsample,omitempty"`
	// Extra holds keys the engine sent that have no field here.
	Extra map[string]any `mapstructure:",remain" json:"-"`
}

// ParameterDescriptor describes one task parameter. Min, Max, DefaultValue
// and ChoiceList keep whatever JSON shape the engine used, with numbers as
// json.Number.
type ParameterDescriptor struct {
	Name          string         `mapstructure:"name"           json:"name"`
	DisplayName   string         `mapstructure:"display_name"   json:"display_name"`
	Description   string         `mapstructure:"description"    json:"description"`
	Type          string         `mapstructure:"type"           json:"type"`
	Direction     string         `mapstructure:"direction"      json:"direction"`
	Required      bool           `mapstructure:"required"       json:"required"`
	Dimensions    string         `mapstructure:"dimensions"     json:"dimensions,omitempty"`
	Min           any            `mapstructure:"min"            json:"min,omitempty"`
	Max           any            `mapstructure:"max"            json:"max,omitempty"`
	DefaultValue  any            `mapstructure:"default_value"  json:"default_value,omitempty"`
	ChoiceList    any            `mapstructure:"choice_list"    json:"choice_list,omitempty"`
	FoldCase      *bool          `mapstructure:"fold_case"      json:"fold_case,omitempty"`
	AutoExtension *string        `mapstructure:"auto_extension" json:"auto_extension,omitempty"`
	IsTemporary   *bool          `mapstructure:"is_temporary"   json:"is_temporary,omitempty"`
	IsDirectory   *bool          `mapstructure:"is_directory"   json:"is_directory,omitempty"`
	Extra         map[string]any `mapstructure:",remain" json:"-"`
}

// IsInput reports whether the engine reads this parameter.
func (p *ParameterDescriptor) IsInput() bool {
	return p.Direction == "input"
}

// IsOutput reports whether the engine writes this parameter.
func (p *ParameterDescriptor) IsOutput() bool {
	return p.Direction == "output"
}

// Decode converts a normalized definition into a TaskDescriptor and stamps
// it with uri.
func Decode(normalized *ordered.Object, uri string) (*TaskDescriptor, error) {
	if normalized == nil {
		return nil, fmt.Errorf("%w: definition is missing", ErrInvalidDefinition)
	}
	input, ok := ordered.ToPlain(normalized).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: definition is not an object", ErrInvalidDefinition)
	}
	input["uri"] = uri
	var desc TaskDescriptor
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       numberToBoolHook(),
		WeaklyTypedInput: true,
		Result:           &desc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return &desc, nil
}

// numberToBoolHook decodes JSON numbers into bool fields as "non-zero".
func numberToBoolHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to.Kind() != reflect.Bool || from != reflect.TypeOf(json.Number("")) {
			return data, nil
		}
		f, err := data.(json.Number).Float64()
		if err != nil {
			return nil, err
		}
		return f != 0, nil
	}
}
