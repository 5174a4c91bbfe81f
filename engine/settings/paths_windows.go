//go:build windows

package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

func userConfigFile(home string) (string, error) {
	base := os.Getenv("LOCALAPPDATA")
	if base == "" {
		base = filepath.Join(home, "AppData", "Local")
	}
	return filepath.Join(base, appDirName, configFileName), nil
}

func systemConfigFile() (string, error) {
	base, err := windows.KnownFolderPath(windows.FOLDERID_ProgramData, 0)
	if err != nil {
		base = os.Getenv("ProgramData")
		if base == "" {
			return "", fmt.Errorf("failed to resolve the ProgramData folder: %w", err)
		}
	}
	return filepath.Join(base, appDirName, configFileName), nil
}
