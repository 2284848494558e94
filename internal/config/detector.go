// internal/config/detector.go
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrBackendNotSpecified is returned when the file has no backend.type.
var ErrBackendNotSpecified = errors.New("backend type not specified in config")

// DetectBackendType reports the backend a configuration selects by decoding
// only backend.type, so it works on files the full loader would reject.
// LOCKKEEPER_BACKEND_TYPE takes precedence over the file.
func DetectBackendType(configPath string) (string, error) {
	if env := os.Getenv(EnvPrefix + "_BACKEND_TYPE"); env != "" {
		return normalizeBackendType(env), nil
	}

	file, err := resolveConfigFilePath(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("configuration file not found at %s", configPath)
	case err != nil:
		return "", err
	}

	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	var root RootConfig
	if err := yaml.NewDecoder(f).Decode(&root); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("invalid configuration file %s: %w", file, err)
	}
	if root.Backend.Type == "" {
		return "", ErrBackendNotSpecified
	}
	return normalizeBackendType(root.Backend.Type), nil
}
