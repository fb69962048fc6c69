package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds the effective configuration: defaults, then the YAML file at
// filepath (skipped when empty or missing), then environment overrides.
// The result is not validated; commands call Validate once they know which
// pieces they need.
func Load(filepath string) (*Config, error) {
	cfg := Default()

	if filepath != "" {
		if _, err := os.Stat(filepath); err == nil {
			k := koanf.New(".")
			if err := k.Load(file.Provider(filepath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config from %q: %w", filepath, err)
			}
			if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
				return nil, fmt.Errorf("failed to parse config from %q: %w", filepath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file %q: %w", filepath, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}
