package federation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxConfigPathLen bounds how long a config path argument may be before
// LoadParams/SaveParams refuse it outright.
const maxConfigPathLen = 256

// allowedConfigExt is the set of extensions LoadParams/SaveParams accept.
var allowedConfigExt = map[string]bool{".yaml": true, ".yml": true}

// LoadParams reads and parses a ControllerParams document from path.
func LoadParams(path string) (*ControllerParams, error) {
	clean, err := sanitizeConfigPath(path)
	if err != nil {
		return nil, fmt.Errorf("federation: %w", err)
	}

	data, err := os.ReadFile(clean) // #nosec G304 - clean is sanitized by sanitizeConfigPath above
	if err != nil {
		return nil, fmt.Errorf("federation: reading %s: %w", clean, err)
	}

	var params ControllerParams
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("federation: parsing %s: %w", clean, err)
	}
	return &params, nil
}

// SaveParams writes params to path as YAML, creating or truncating it.
func SaveParams(params *ControllerParams, path string) error {
	clean, err := sanitizeConfigPath(path)
	if err != nil {
		return fmt.Errorf("federation: %w", err)
	}

	data, err := yaml.Marshal(params)
	if err != nil {
		return fmt.Errorf("federation: encoding %s: %w", clean, err)
	}
	if err := os.WriteFile(clean, data, 0600); err != nil {
		return fmt.Errorf("federation: writing %s: %w", clean, err)
	}
	return nil
}

// sanitizeConfigPath cleans path and rejects anything that still contains a
// ".." segment after cleaning, carries an unexpected extension, or is simply
// too long to be a reasonable config path. Absolute paths are accepted.
func sanitizeConfigPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty config path")
	}
	if len(path) > maxConfigPathLen {
		return "", fmt.Errorf("config path exceeds %d characters", maxConfigPathLen)
	}

	clean := filepath.Clean(path)
	for _, segment := range strings.Split(clean, string(filepath.Separator)) {
		if segment == ".." {
			return "", fmt.Errorf("config path %q escapes its directory", path)
		}
	}

	if !allowedConfigExt[strings.ToLower(filepath.Ext(clean))] {
		return "", fmt.Errorf("config path %q must end in .yaml or .yml", path)
	}

	return clean, nil
}
