//go:build !windows && !darwin

package settings

import "path/filepath"

func userConfigFile(home string) (string, error) {
	return filepath.Join(home, "."+appDirName, configFileName), nil
}

func systemConfigFile() (string, error) {
	return filepath.Join("/var", "lib", appDirName, configFileName), nil
}
