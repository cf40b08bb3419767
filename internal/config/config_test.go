package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MAPPING_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HeaderScanRows != 20 {
		t.Fatalf("expected 20 header scan rows, got %d", cfg.HeaderScanRows)
	}
	if cfg.AICacheTTL != 168*time.Hour {
		t.Fatalf("expected 7 day cache ttl, got %s", cfg.AICacheTTL)
	}
	if cfg.AIThreshold != 0.7 {
		t.Fatalf("expected threshold 0.7, got %v", cfg.AIThreshold)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAPPING_CONFIG_PATH", "")
	t.Setenv("AI_CACHE_TTL", "90")
	t.Setenv("AI_MAPPING_THRESHOLD", "1.5")
	t.Setenv("HEADER_SCAN_ROWS", "-3")
	t.Setenv("AI_MAPPING_ENABLED", "off")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.AICacheTTL != 90*time.Second {
		t.Fatalf("expected 90s ttl, got %s", cfg.AICacheTTL)
	}
	if cfg.AIThreshold != 1 {
		t.Fatalf("expected threshold clamped to 1, got %v", cfg.AIThreshold)
	}
	if cfg.HeaderScanRows != 20 {
		t.Fatalf("expected fallback scan rows, got %d", cfg.HeaderScanRows)
	}
	if cfg.AIMappingEnabled {
		t.Fatalf("expected AI mapping disabled")
	}
}

func TestLoadMappingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.yaml")
	body := "document_types:\n  load_plan:\n    \"Trip Ref\": loadNumber\nsynonyms:\n  consignee name: shipToCustomer\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	mf, err := LoadMappingFile(path)
	if err != nil {
		t.Fatalf("LoadMappingFile: %v", err)
	}
	if mf.DocumentTypes["load_plan"]["Trip Ref"] != "loadNumber" {
		t.Fatalf("unexpected document types %#v", mf.DocumentTypes)
	}
	if mf.Synonyms["consignee name"] != "shipToCustomer" {
		t.Fatalf("unexpected synonyms %#v", mf.Synonyms)
	}
}

func TestStrictConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("document_types: [unclosed"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MAPPING_CONFIG_PATH", path)
	t.Setenv("STRICT_CONFIG", "true")
	if _, err := Load(); err == nil {
		t.Fatalf("expected strict load to fail")
	}
	t.Setenv("STRICT_CONFIG", "false")
	if _, err := Load(); err != nil {
		t.Fatalf("lenient load failed: %v", err)
	}
}
