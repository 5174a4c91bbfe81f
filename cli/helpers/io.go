package helpers

import (
	"fmt"
	"os"
	"strings"
)

// ReadInput returns the bytes of an inline value, or of the file named by an
// "@path" value.
func ReadInput(source string) ([]byte, error) {
	path, ok := strings.CutPrefix(source, "@")
	if !ok {
		return []byte(source), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
