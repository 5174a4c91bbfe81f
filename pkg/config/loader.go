package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Source supplies configuration values as a nested map.
type Source interface {
	Load() (map[string]any, error)
}

// Service loads and validates the configuration.
type Service interface {
	Load(ctx context.Context, sources ...Source) (*Config, error)
	Validate(config *Config) error
}

type loader struct {
	validator *validator.Validate
	environ   func() []string
}

type LoaderOption func(*loader)

// WithEnviron replaces os.Environ as the environment source.
func WithEnviron(environ func() []string) LoaderOption {
	return func(l *loader) {
		l.environ = environ
	}
}

// NewService creates a new configuration service with validation support.
func NewService(opts ...LoaderOption) Service {
	l := &loader{
		validator: validator.New(),
		environ:   os.Environ,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load applies defaults, then environment variables, then sources in order;
// later layers win.
func (l *loader) Load(_ context.Context, sources ...Source) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := l.loadEnvironment(k); err != nil {
		return nil, err
	}
	for _, source := range sources {
		if source == nil {
			continue
		}
		data, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration source: %w", err)
		}
		if err := k.Load(rawMap(data), nil); err != nil {
			return nil, fmt.Errorf("failed to merge configuration source: %w", err)
		}
	}
	return l.unmarshalAndValidate(k)
}

// loadEnvironment only reads the variables named by env tags.
func (l *loader) loadEnvironment(k *koanf.Koanf) error {
	envToPath := make(map[string]string)
	for _, mapping := range GenerateEnvMappings() {
		envToPath[mapping.EnvVar] = mapping.ConfigPath
	}
	provider := env.Provider(".", env.Opt{
		EnvironFunc: l.environ,
		TransformFunc: func(key string, value string) (string, any) {
			configPath, ok := envToPath[key]
			if !ok {
				return "", nil
			}
			return configPath, strings.TrimSpace(value)
		},
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

func (l *loader) unmarshalAndValidate(k *koanf.Koanf) (*Config, error) {
	var config Config
	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &config,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := l.Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// Validate checks if the configuration meets all validation requirements.
func (l *loader) Validate(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := l.validator.Struct(config); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) {
	return r, nil
}

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("raw map provider does not support ReadBytes")
}
