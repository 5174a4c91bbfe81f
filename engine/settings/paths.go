package settings

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	appDirName     = "taskbridge"
	configFileName = "settings.cfg"
)

// Paths holds the location of both tier files. It is computed once and then
// passed to NewResolver.
type Paths struct {
	User   string
	System string
}

// DefaultPaths returns the per-OS tier locations.
func DefaultPaths() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve user home directory: %w", err)
	}
	user, err := userConfigFile(home)
	if err != nil {
		return Paths{}, err
	}
	system, err := systemConfigFile()
	if err != nil {
		return Paths{}, err
	}
	return Paths{User: user, System: system}, nil
}

// WithOverrides replaces the non-empty fields of p.
func (p Paths) WithOverrides(user, system string) Paths {
	if user != "" {
		p.User = filepath.Clean(user)
	}
	if system != "" {
		p.System = filepath.Clean(system)
	}
	return p
}

// For returns the file backing tier.
func (p Paths) For(tier Tier) string {
	if tier == TierSystem {
		return p.System
	}
	return p.User
}
