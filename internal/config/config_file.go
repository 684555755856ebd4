package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/Netflix/go-env"
	toml "github.com/pelletier/go-toml/v2"
)

// loadFile reads a TOML config file and returns its values keyed by environment variable name.
//
// Only top level keys with scalar values are supported, e.g
//
//	PORT = 80
//	LOG_LEVEL = "debug"
//	READ_TIMEOUT = "30s"
func loadFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		s, err := tomlValueToString(value)
		if err != nil {
			return nil, fmt.Errorf("config file %s: key %s: %w", path, key, err)
		}
		values[strings.ToUpper(key)] = s
	}
	return values, nil
}

func tomlValueToString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// unknownKeys returns the keys of values that do not name a ServerEnvironment setting, sorted
func unknownKeys(values map[string]string) []string {
	// Marshal returns one entry per env tag key, which is the set of known settings
	known, err := env.Marshal(&ServerEnvironment{})
	if err != nil {
		return nil
	}

	var unknown []string
	for key := range values {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	slices.Sort(unknown)
	return unknown
}
