// internal/config/utils.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var configFileNames = []string{"config.yaml", "config.yml", "lockkeeper.yaml", "lockkeeper.yml"}

// resolveConfigFilePath returns configPath itself when it is a file, otherwise
// the first known config file inside the directory.
func resolveConfigFilePath(configPath string) (string, error) {
	if configPath == "" {
		return "", fmt.Errorf("config path cannot be empty")
	}

	fileInfo, err := os.Stat(configPath)
	if err != nil {
		return "", err
	}
	if !fileInfo.IsDir() {
		return configPath, nil
	}

	for _, name := range configFileNames {
		candidate := filepath.Join(configPath, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no config file found in directory %s", configPath)
}

func normalizeBackendType(backendType string) string {
	switch t := strings.ToLower(strings.TrimSpace(backendType)); t {
	case "dynamo", "ddb":
		return BackendDynamoDB
	case "scylla", "cassandra":
		return BackendScyllaDB
	case "mem", "inmemory":
		return BackendMemory
	default:
		return t
	}
}
