package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/percentile-data/growth.report/internal/refdata"
)

// DefaultConfigPath is the path to the canonical server defaults file.
// This is the single source of truth for all default server values.
const DefaultConfigPath = "config/growth.defaults.json"

// ServerConfig holds the tunable knobs for the growth report server.
// Fields are pointers so that a partial config file only overrides what
// it names; the Get* methods supply defaults for everything else.
type ServerConfig struct {
	// DefaultSource is the reference source used for term evaluations
	// when a request does not name one ("who" or "cdc").
	DefaultSource *string `json:"default_source,omitempty"`

	// MaxImportBytes caps the accepted size of an import payload.
	MaxImportBytes *int64 `json:"max_import_bytes,omitempty"`

	// RequestLogging toggles the HTTP request log middleware.
	RequestLogging *bool `json:"request_logging,omitempty"`

	// PreloadReferences warms the reference table cache at startup.
	PreloadReferences *bool `json:"preload_references,omitempty"`

	// ShutdownTimeout is how long a graceful shutdown may take,
	// as a duration string like "1s".
	ShutdownTimeout *string `json:"shutdown_timeout,omitempty"`
}

// EmptyServerConfig returns a ServerConfig with all fields set to nil.
// Use LoadServerConfig to load actual values from a file.
func EmptyServerConfig() *ServerConfig {
	return &ServerConfig{}
}

// LoadServerConfig loads a ServerConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file keep their
// defaults, so partial configs are safe.
func LoadServerConfig(path string) (*ServerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyServerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent
// directories. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ServerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadServerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *ServerConfig) Validate() error {
	if c.DefaultSource != nil {
		source, err := refdata.ParseSource(*c.DefaultSource)
		if err != nil {
			return fmt.Errorf("invalid default_source: %w", err)
		}
		if source == refdata.SourceFenton {
			return fmt.Errorf("default_source must be a term source, got %q", *c.DefaultSource)
		}
	}

	if c.MaxImportBytes != nil && *c.MaxImportBytes <= 0 {
		return fmt.Errorf("max_import_bytes must be positive, got %d", *c.MaxImportBytes)
	}

	if c.ShutdownTimeout != nil && *c.ShutdownTimeout != "" {
		if _, err := time.ParseDuration(*c.ShutdownTimeout); err != nil {
			return fmt.Errorf("invalid shutdown_timeout '%s': %w", *c.ShutdownTimeout, err)
		}
	}

	return nil
}

// GetDefaultSource returns the term reference source or the default.
func (c *ServerConfig) GetDefaultSource() refdata.Source {
	if c.DefaultSource == nil {
		return refdata.SourceWHO
	}
	source, err := refdata.ParseSource(*c.DefaultSource)
	if err != nil {
		return refdata.SourceWHO
	}
	return source
}

// GetMaxImportBytes returns the import payload cap or the default.
func (c *ServerConfig) GetMaxImportBytes() int64 {
	if c.MaxImportBytes == nil {
		return 10 * 1024 * 1024 // 10MB
	}
	return *c.MaxImportBytes
}

// GetRequestLogging returns the request_logging value or the default.
func (c *ServerConfig) GetRequestLogging() bool {
	if c.RequestLogging == nil {
		return true
	}
	return *c.RequestLogging
}

// GetPreloadReferences returns the preload_references value or the default.
func (c *ServerConfig) GetPreloadReferences() bool {
	if c.PreloadReferences == nil {
		return true
	}
	return *c.PreloadReferences
}

// GetShutdownTimeout parses and returns the ShutdownTimeout as a time.Duration.
func (c *ServerConfig) GetShutdownTimeout() time.Duration {
	if c.ShutdownTimeout == nil || *c.ShutdownTimeout == "" {
		return time.Second // default
	}
	d, err := time.ParseDuration(*c.ShutdownTimeout)
	if err != nil {
		return time.Second // default on parse error
	}
	return d
}
