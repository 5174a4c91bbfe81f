// Package settings resolves engine configuration from the user and system
// settings files.
//
// Scalar properties resolve user first, then system. Environment entries
// from both tiers are merged key by key with user entries winning. Files are
// re-read on every call so edits made by other processes are always visible.
package settings

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/ini.v1"
)

// Tier selects one of the two settings files.
type Tier string

const (
	TierUser   Tier = "user"
	TierSystem Tier = "system"
)

// TierFor maps a --system style flag to a tier.
func TierFor(system bool) Tier {
	if system {
		return TierSystem
	}
	return TierUser
}

const (
	PropertiesSection  = "taskbridge"
	EnvironmentSection = "engine-environment"

	// PropertyEngine is the full path to the engine executable.
	PropertyEngine = "engine"
	// PropertyEngineArgs is passed to the engine as one extra argument.
	PropertyEngineArgs = "engine-args"
	// PropertyEngineTimeout bounds each engine run, e.g. "90s" or "2h".
	PropertyEngineTimeout = "engine-timeout"
)

// Entry is a single key/value pair of a tier section.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Option func(*Resolver)

// WithFs replaces the OS filesystem, mainly for tests.
func WithFs(fsys afero.Fs) Option {
	return func(r *Resolver) {
		r.fs = fsys
	}
}

type Resolver struct {
	fs     afero.Fs
	paths  Paths
	stores map[Tier]*tierStore
}

func NewResolver(paths Paths, opts ...Option) *Resolver {
	r := &Resolver{
		fs:    afero.NewOsFs(),
		paths: paths,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.stores = map[Tier]*tierStore{
		TierUser:   newTierStore(r.fs, paths.User),
		TierSystem: newTierStore(r.fs, paths.System),
	}
	return r
}

func (r *Resolver) Paths() Paths {
	return r.paths
}

func (r *Resolver) store(tier Tier) (*tierStore, error) {
	s, ok := r.stores[tier]
	if !ok {
		return nil, fmt.Errorf("unknown configuration tier %q", tier)
	}
	return s, nil
}

// Property returns the user value of name, else the system value.
func (r *Resolver) Property(name string) (string, error) {
	for _, tier := range []Tier{TierUser, TierSystem} {
		file, err := r.stores[tier].load()
		if err != nil {
			return "", err
		}
		if value, ok := lookup(file, PropertiesSection, name); ok {
			return value, nil
		}
	}
	return "", &MissingError{Section: PropertiesSection, Key: name}
}

// OptionalProperty is Property with a missing key reported as ok=false.
func (r *Resolver) OptionalProperty(name string) (string, bool, error) {
	value, err := r.Property(name)
	if errors.Is(err, ErrConfigMissing) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *Resolver) SetProperty(name, value string, tier Tier) error {
	if err := validateKey(name); err != nil {
		return err
	}
	return r.set(tier, PropertiesSection, map[string]string{name: value}, []string{name})
}

func (r *Resolver) RemoveProperty(name string, tier Tier) error {
	return r.remove(tier, PropertiesSection, name)
}

// Properties lists the properties of a single tier in file order.
func (r *Resolver) Properties(tier Tier) ([]Entry, error) {
	return r.list(tier, PropertiesSection)
}

// EnvironmentOverlay merges the environment sections of both tiers. The
// result is never nil.
func (r *Resolver) EnvironmentOverlay() (map[string]string, error) {
	overlay := make(map[string]string)
	for _, tier := range []Tier{TierSystem, TierUser} {
		file, err := r.stores[tier].load()
		if err != nil {
			return nil, err
		}
		for _, entry := range entries(file, EnvironmentSection) {
			overlay[entry.Key] = entry.Value
		}
	}
	return overlay, nil
}

func (r *Resolver) SetEnvironment(key, value string, tier Tier) error {
	return r.SetEnvironmentEntries(map[string]string{key: value}, tier)
}

// SetEnvironmentEntries writes several entries in one file rewrite. New keys
// are appended in sorted order.
func (r *Resolver) SetEnvironmentEntries(values map[string]string, tier Tier) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		if err := validateKey(key); err != nil {
			return err
		}
		if strings.Contains(key, "=") {
			return fmt.Errorf("invalid environment variable name %q", key)
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return r.set(tier, EnvironmentSection, values, keys)
}

func (r *Resolver) RemoveEnvironment(key string, tier Tier) error {
	return r.remove(tier, EnvironmentSection, key)
}

// Environment lists the environment entries of a single tier in file order.
func (r *Resolver) Environment(tier Tier) ([]Entry, error) {
	return r.list(tier, EnvironmentSection)
}

func (r *Resolver) set(tier Tier, section string, values map[string]string, order []string) error {
	s, err := r.store(tier)
	if err != nil {
		return err
	}
	return s.update(func(file *ini.File) ([]written, error) {
		sec := file.Section(section)
		changed := make([]written, 0, len(order))
		for _, key := range order {
			if _, err := sec.NewKey(key, values[key]); err != nil {
				return nil, fmt.Errorf("failed to set %s in section %s: %w", key, section, err)
			}
			changed = append(changed, written{section: section, key: key, value: values[key]})
		}
		return changed, nil
	})
}

func (r *Resolver) remove(tier Tier, section, key string) error {
	s, err := r.store(tier)
	if err != nil {
		return err
	}
	return s.update(func(file *ini.File) ([]written, error) {
		sec, err := file.GetSection(section)
		if err != nil || !sec.HasKey(key) {
			return nil, &MissingError{Section: section, Key: key, Tier: tier}
		}
		sec.DeleteKey(key)
		return nil, nil
	})
}

func (r *Resolver) list(tier Tier, section string) ([]Entry, error) {
	s, err := r.store(tier)
	if err != nil {
		return nil, err
	}
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	return entries(file, section), nil
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("configuration key must not be empty")
	}
	if strings.ContainsAny(key, "\r\n[]") {
		return fmt.Errorf("configuration key %q contains invalid characters", key)
	}
	// Lines starting with '#' or ';' are comments in the settings file.
	if strings.HasPrefix(key, "#") || strings.HasPrefix(key, ";") {
		return fmt.Errorf("configuration key %q must not start with %q", key, key[:1])
	}
	return nil
}
