// Package config loads docsync configuration from file, environment, and
// defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for docsync.
type Config struct {
	Scan     ScanConfig     `mapstructure:"scan"`
	Manifest ManifestConfig `mapstructure:"manifest"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Apply    ApplyConfig    `mapstructure:"apply"`
	Layout   LayoutConfig   `mapstructure:"layout"`
	Template TemplateConfig `mapstructure:"template"`
}

// ScanConfig controls tree scanning.
type ScanConfig struct {
	// IgnorePatterns are gitignore-style patterns applied on every scan,
	// in addition to .gitignore and .docsyncignore files.
	IgnorePatterns []string `mapstructure:"ignore_patterns"`
	// Workers bounds concurrent content hashing.
	Workers int `mapstructure:"workers"`
}

// ManifestConfig locates the manifest document.
type ManifestConfig struct {
	Path string `mapstructure:"path"`
}

// AuditConfig controls manifest auditing.
type AuditConfig struct {
	// Scope is the scope the audited tree belongs to: global or per-feature.
	Scope string `mapstructure:"scope"`
	// Foreign names basename patterns known to belong to a specific scope.
	// A file matching one of these outside its scope is flagged as misplaced.
	Foreign []ForeignPattern `mapstructure:"foreign"`
}

// ForeignPattern is one scope claim over a basename pattern.
type ForeignPattern struct {
	Pattern string `mapstructure:"pattern"`
	Scope   string `mapstructure:"scope"`
}

// ApplyConfig controls plan execution.
type ApplyConfig struct {
	// AbortOnFirstError stops the batch at the first failing operation
	// instead of continuing best-effort.
	AbortOnFirstError bool `mapstructure:"abort_on_first_error"`
}

// LayoutConfig maps scopes to directories under the target root.
type LayoutConfig struct {
	FeaturesDir string `mapstructure:"features_dir"`
}

// TemplateConfig locates content templates for created files.
type TemplateConfig struct {
	Dir string `mapstructure:"dir"`
}

var defaultConfig = Config{
	Scan: ScanConfig{
		IgnorePatterns: []string{".docsync/**"},
		Workers:        4,
	},
	Manifest: ManifestConfig{Path: ".docsync/manifest.yaml"},
	Audit:    AuditConfig{Scope: "global"},
	Layout:   LayoutConfig{FeaturesDir: "features"},
	Template: TemplateConfig{Dir: ".docsync/templates"},
}

// Load reads configuration with the usual precedence: explicit file (when
// path is non-empty), then .docsync/config.yaml in the working directory,
// then DOCSYNC_* environment variables, then defaults. A missing config file
// is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("scan.ignore_patterns", defaultConfig.Scan.IgnorePatterns)
	v.SetDefault("scan.workers", defaultConfig.Scan.Workers)
	v.SetDefault("manifest.path", defaultConfig.Manifest.Path)
	v.SetDefault("audit.scope", defaultConfig.Audit.Scope)
	v.SetDefault("apply.abort_on_first_error", defaultConfig.Apply.AbortOnFirstError)
	v.SetDefault("layout.features_dir", defaultConfig.Layout.FeaturesDir)
	v.SetDefault("template.dir", defaultConfig.Template.Dir)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".docsync")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DOCSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
