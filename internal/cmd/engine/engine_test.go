package engine

import (
	"context"
	"flag"
	"strings"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("engine", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "localhost:8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, "localhost:8080")
	}
	if cfg.DBPath != "engine.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "engine.db")
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.TokenTTL)
	}
}

func TestParseConfigEnvOverride(t *testing.T) {
	t.Setenv("RPG_SUB006_ENGINE_HTTP_ADDR", "0.0.0.0:9000")
	t.Setenv("RPG_SUB006_ENGINE_DB_PATH", "/var/lib/engine/engine.db")

	fs := flag.NewFlagSet("engine", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "0.0.0.0:9000" {
		t.Errorf("HTTPAddr = %q, want env override", cfg.HTTPAddr)
	}
	if cfg.DBPath != "/var/lib/engine/engine.db" {
		t.Errorf("DBPath = %q, want env override", cfg.DBPath)
	}
}

func TestParseConfigFlagOverridesEnv(t *testing.T) {
	t.Setenv("RPG_SUB006_ENGINE_HTTP_ADDR", "0.0.0.0:9000")

	fs := flag.NewFlagSet("engine", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "127.0.0.1:7000"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:7000" {
		t.Errorf("HTTPAddr = %q, want flag override", cfg.HTTPAddr)
	}
}

func TestRunRequiresTokenKey(t *testing.T) {
	err := Run(context.Background(), Config{HTTPAddr: "localhost:0", DBPath: "ignored.db"})
	if err == nil {
		t.Fatal("Run() error = nil, want missing key error")
	}
	if !strings.Contains(err.Error(), "token signing key") {
		t.Fatalf("Run() error = %v, want token signing key error", err)
	}
}

func TestRunRejectsMalformedTokenKey(t *testing.T) {
	err := Run(context.Background(), Config{HTTPAddr: "localhost:0", DBPath: "ignored.db", TokenKey: "zz"})
	if err == nil {
		t.Fatal("Run() error = nil, want decode error")
	}
	if !strings.Contains(err.Error(), "decode token key") {
		t.Fatalf("Run() error = %v, want decode error", err)
	}
}
