package bridge

import (
	"runtime"
	"slices"
	"strings"
)

// mergeEnvironment applies overlay on top of base. Keys of base keep their
// position; new keys are appended in sorted order.
func mergeEnvironment(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}
	lookup := make(map[string]string, len(overlay))
	for key := range overlay {
		lookup[envKey(key)] = key
	}
	merged := make([]string, 0, len(base)+len(overlay))
	replaced := make(map[string]struct{}, len(overlay))
	for _, kv := range base {
		equal := strings.IndexByte(kv, '=')
		if equal <= 0 {
			merged = append(merged, kv)
			continue
		}
		if key, ok := lookup[envKey(kv[:equal])]; ok {
			if _, done := replaced[key]; done {
				continue
			}
			merged = append(merged, key+"="+overlay[key])
			replaced[key] = struct{}{}
			continue
		}
		merged = append(merged, kv)
	}
	added := make([]string, 0, len(overlay))
	for key := range overlay {
		if _, ok := replaced[key]; !ok {
			added = append(added, key)
		}
	}
	slices.Sort(added)
	for _, key := range added {
		merged = append(merged, key+"="+overlay[key])
	}
	return merged
}

// envKey folds case where the OS treats variable names case-insensitively.
func envKey(key string) string {
	if runtime.GOOS == "windows" {
		return strings.ToUpper(key)
	}
	return key
}
