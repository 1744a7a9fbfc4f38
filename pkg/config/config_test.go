package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sampleConfig struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

type validatedConfig struct {
	Port int `yaml:"port"`
}

func (c *validatedConfig) Validate() error {
	if c.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "name: othala\nport: 9090\n")
	var cfg sampleConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "othala" || cfg.Port != 9090 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_APP_NAME", "from-env")
	path := writeFile(t, "name: ${TEST_APP_NAME}\nport: 1\n")
	var cfg sampleConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "from-env" {
		t.Errorf("name = %q", cfg.Name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var cfg sampleConfig
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRunsValidation(t *testing.T) {
	path := writeFile(t, "port: -1\n")
	var cfg validatedConfig
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected validation failure")
	}
}

func TestLoadIfPresent_MissingKeepsDefaults(t *testing.T) {
	cfg := sampleConfig{Name: "default", Port: 8080}
	if err := LoadIfPresent(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err != nil {
		t.Fatalf("LoadIfPresent: %v", err)
	}
	if cfg.Name != "default" || cfg.Port != 8080 {
		t.Errorf("defaults clobbered: %+v", cfg)
	}
}

func TestLoadIfPresent_MissingStillValidates(t *testing.T) {
	cfg := validatedConfig{Port: 0}
	if err := LoadIfPresent(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Fatal("expected validation failure for invalid defaults")
	}
}

func TestLoadIfPresent_ExistingFileLoads(t *testing.T) {
	path := writeFile(t, "name: loaded\nport: 2\n")
	cfg := sampleConfig{Name: "default"}
	if err := LoadIfPresent(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "loaded" {
		t.Errorf("name = %q", cfg.Name)
	}
}
