package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/percentile-data/growth.report/internal/refdata"
)

func TestEmptyServerConfigDefaults(t *testing.T) {
	cfg := EmptyServerConfig()

	if cfg.GetDefaultSource() != refdata.SourceWHO {
		t.Errorf("GetDefaultSource() = %v, want who", cfg.GetDefaultSource())
	}
	if cfg.GetMaxImportBytes() != 10*1024*1024 {
		t.Errorf("GetMaxImportBytes() = %d, want 10MB", cfg.GetMaxImportBytes())
	}
	if cfg.GetRequestLogging() != true {
		t.Errorf("GetRequestLogging() = %v, want true", cfg.GetRequestLogging())
	}
	if cfg.GetPreloadReferences() != true {
		t.Errorf("GetPreloadReferences() = %v, want true", cfg.GetPreloadReferences())
	}
	if cfg.GetShutdownTimeout() != time.Second {
		t.Errorf("GetShutdownTimeout() = %v, want 1s", cfg.GetShutdownTimeout())
	}
}

func TestLoadServerConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "default_source": "cdc",
  "max_import_bytes": 2048,
  "request_logging": false,
  "preload_references": false,
  "shutdown_timeout": "5s"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadServerConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetDefaultSource() != refdata.SourceCDC {
		t.Errorf("GetDefaultSource() = %v, want cdc", cfg.GetDefaultSource())
	}
	if cfg.GetMaxImportBytes() != 2048 {
		t.Errorf("GetMaxImportBytes() = %d, want 2048", cfg.GetMaxImportBytes())
	}
	if cfg.GetRequestLogging() != false {
		t.Errorf("GetRequestLogging() = %v, want false", cfg.GetRequestLogging())
	}
	if cfg.GetPreloadReferences() != false {
		t.Errorf("GetPreloadReferences() = %v, want false", cfg.GetPreloadReferences())
	}
	if cfg.GetShutdownTimeout() != 5*time.Second {
		t.Errorf("GetShutdownTimeout() = %v, want 5s", cfg.GetShutdownTimeout())
	}
}

func TestLoadServerConfigPartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	// Only one field set; everything else keeps its default
	testJSON := `{"default_source": "cdc"}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadServerConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetDefaultSource() != refdata.SourceCDC {
		t.Errorf("GetDefaultSource() = %v, want cdc", cfg.GetDefaultSource())
	}
	if cfg.MaxImportBytes != nil {
		t.Error("Expected MaxImportBytes to stay nil in a partial config")
	}
	if cfg.GetMaxImportBytes() != 10*1024*1024 {
		t.Errorf("GetMaxImportBytes() = %d, want default", cfg.GetMaxImportBytes())
	}
}

func TestLoadServerConfigRejectsBadFiles(t *testing.T) {
	tmpDir := t.TempDir()

	// Wrong extension
	badExt := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(badExt, []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := LoadServerConfig(badExt); err == nil {
		t.Error("Expected an error for a non-json extension")
	}

	// Missing file
	if _, err := LoadServerConfig(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("Expected an error for a missing file")
	}

	// Malformed JSON
	badJSON := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(badJSON, []byte("{nope"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := LoadServerConfig(badJSON); err == nil {
		t.Error("Expected an error for malformed JSON")
	}
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{"unknown source", `{"default_source": "euro"}`, "default_source"},
		{"fenton rejected", `{"default_source": "fenton"}`, "term source"},
		{"negative import cap", `{"max_import_bytes": -5}`, "max_import_bytes"},
		{"bad shutdown timeout", `{"shutdown_timeout": "eventually"}`, "shutdown_timeout"},
	}

	tmpDir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tmpDir, strings.ReplaceAll(tt.name, " ", "_")+".json")
			if err := os.WriteFile(configPath, []byte(tt.json), 0644); err != nil {
				t.Fatalf("Failed to write test config: %v", err)
			}

			_, err := LoadServerConfig(configPath)
			if err == nil {
				t.Fatalf("Expected %s to be rejected", tt.name)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	// The canonical defaults file must agree with the built-in defaults
	if cfg.GetDefaultSource() != refdata.SourceWHO {
		t.Errorf("Canonical default_source = %v, want who", cfg.GetDefaultSource())
	}
	if cfg.GetShutdownTimeout() != time.Second {
		t.Errorf("Canonical shutdown_timeout = %v, want 1s", cfg.GetShutdownTimeout())
	}
	if !cfg.GetRequestLogging() {
		t.Error("Canonical request_logging should be true")
	}
}
