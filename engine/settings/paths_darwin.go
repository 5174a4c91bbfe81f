//go:build darwin

package settings

import "path/filepath"

func userConfigFile(home string) (string, error) {
	return filepath.Join(home, "Library", "Preferences", appDirName, configFileName), nil
}

func systemConfigFile() (string, error) {
	return filepath.Join("/Library", "Preferences", appDirName, configFileName), nil
}
