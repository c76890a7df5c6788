package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProcessConfig represents one external validator.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of validators.yaml.
//
//	validators:
//	  - name: dns
//	    command: ./scripts/check-host.sh
//	    env: {RESOLVER: 1.1.1.1}
type ConfigFile struct {
	Validators []ProcessConfig `yaml:"validators" json:"validators"`
}

// LoadConfig reads a configuration file (YAML or JSON) and returns the
// validators by name. A missing file yields an empty map.
func LoadConfig(path string) (map[string]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ProcessConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read validators config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	out := make(map[string]ProcessConfig, len(cfg.Validators))
	for _, v := range cfg.Validators {
		if v.Name == "" || v.Command == "" {
			return nil, fmt.Errorf("validator %q: name and command are required", v.Name)
		}
		out[v.Name] = v
	}
	return out, nil
}
