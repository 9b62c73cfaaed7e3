// Package config loads the pushext configuration consumed from the host
// build pipeline using koanf. Values are merged with priority:
// environment variables (PUSHEXT_*) > project config (pushext.yml, legacy
// pushext.json) > defaults. CLI flags are applied on top by the caller.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "PUSHEXT_"

// Configuration holds the injection settings read from the build pipeline.
type Configuration struct {
	// Mode is the aps-environment value: "development" or "production".
	Mode string `koanf:"mode"`
	// DevTeam is the Apple developer team identifier stamped on targets.
	DevTeam string `koanf:"dev_team"`
	// BundleIdentifier is the reverse-domain app id.
	BundleIdentifier string `koanf:"bundle_identifier"`
	// AppName names the .xcodeproj inside the project root.
	AppName string `koanf:"app_name"`
	// TemplatesDir points at an extension template directory overriding the
	// embedded defaults.
	TemplatesDir string `koanf:"templates_dir"`
	// EntitlementsPath and InfoPlistPath override the conventional file
	// locations under the project root.
	EntitlementsPath string `koanf:"entitlements_path"`
	InfoPlistPath    string `koanf:"info_plist_path"`
}

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// ProjectRoot is the directory searched for pushext.yml / pushext.json.
	ProjectRoot string
	// WarningWriter receives deprecation warnings (default: os.Stderr).
	WarningWriter io.Writer
}

// Load loads configuration for the given project root.
func Load(projectRoot string) (*Configuration, error) {
	return LoadWithOptions(LoadOptions{ProjectRoot: projectRoot})
}

// LoadWithOptions loads configuration with custom options.
func LoadWithOptions(opts LoadOptions) (*Configuration, error) {
	k := koanf.New(".")
	warningWriter := opts.WarningWriter
	if warningWriter == nil {
		warningWriter = os.Stderr
	}

	for key, value := range defaults() {
		k.Set(key, value)
	}

	if err := loadProjectConfig(k, opts.ProjectRoot, warningWriter); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaults returns the built-in configuration values.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"mode": "production",
	}
}

// loadProjectConfig loads pushext.yml when present, falling back to legacy
// pushext.json with a deprecation warning. Neither file is required.
func loadProjectConfig(k *koanf.Koanf, projectRoot string, warningWriter io.Writer) error {
	yamlPath := filepath.Join(projectRoot, "pushext.yml")
	jsonPath := filepath.Join(projectRoot, "pushext.json")

	if fileExists(yamlPath) {
		if err := validateYAMLSyntax(yamlPath); err != nil {
			return err
		}
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to load config %s: %w", yamlPath, err)
		}
		return nil
	}

	if fileExists(jsonPath) {
		if err := k.Load(file.Provider(jsonPath), json.Parser()); err != nil {
			return fmt.Errorf("failed to load config %s: %w", jsonPath, err)
		}
		fmt.Fprintf(warningWriter, "Warning: using deprecated JSON config at %s; rename to pushext.yml\n", jsonPath)
	}
	return nil
}

// Validate checks the loaded values for fields with a fixed domain.
func (c *Configuration) Validate() error {
	switch c.Mode {
	case "development", "production":
		return nil
	default:
		return fmt.Errorf("invalid mode %q: must be \"development\" or \"production\"", c.Mode)
	}
}

// validateYAMLSyntax parses the file with yaml.v3 first so syntax errors
// surface with position information instead of a generic provider error.
func validateYAMLSyntax(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var doc interface{}
	if err := yamlv3.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// envTransform converts environment variable names to config keys.
// Example: PUSHEXT_DEV_TEAM -> dev_team
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, envPrefix))
}
