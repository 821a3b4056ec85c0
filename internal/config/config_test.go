// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

// load parses vars as the whole environment.
func load(vars map[string]string) (*Config, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	return parse(env.Options{Environment: vars})
}

// TestLoad_Defaults verifies that Load returns sensible development defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(nil)
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	defaults := map[string]string{
		"Host":       cfg.Host,
		"Port":       cfg.Port,
		"Env":        cfg.Env,
		"DBUser":     cfg.DBUser,
		"DBPassword": cfg.DBPassword,
		"BaseURL":    cfg.BaseURL,
	}
	want := map[string]string{
		"Host":       "0.0.0.0",
		"Port":       "8080",
		"Env":        "development",
		"DBUser":     "estrategas",
		"DBPassword": "changeme",
		"BaseURL":    "http://localhost:8080",
	}
	for field, got := range defaults {
		if got != want[field] {
			t.Errorf("%s: got %q, want %q", field, got, want[field])
		}
	}

	if cfg.StoreTimeout != 10*time.Second {
		t.Errorf("StoreTimeout: got %v, want 10s", cfg.StoreTimeout)
	}
	if cfg.UploadMaxBytes != 10<<20 {
		t.Errorf("UploadMaxBytes: got %d, want %d", cfg.UploadMaxBytes, 10<<20)
	}
	if cfg.UseValkey() {
		t.Error("UseValkey should be false without VALKEY_HOST")
	}
	if !cfg.IsDev() {
		t.Error("IsDev should be true by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(map[string]string{
		"APP_PORT":         "9000",
		"APP_BASE_URL":     "https://estrategas.example/",
		"VALKEY_HOST":      "valkey",
		"STORE_TIMEOUT":    "3s",
		"STORAGE_DRIVER":   "minio",
		"MINIO_ENDPOINT":   "minio:9000",
		"MINIO_BUCKET":     "img",
		"MINIO_ACCESS_KEY": "k",
		"MINIO_SECRET_KEY": "s",
		"MINIO_USE_SSL":    "false",
		"LOG_LEVEL":        "debug",
	})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Addr() != "0.0.0.0:9000" {
		t.Errorf("Addr: got %q", cfg.Addr())
	}
	if cfg.BaseURL != "https://estrategas.example" {
		t.Errorf("BaseURL: got %q", cfg.BaseURL)
	}
	if !cfg.UseValkey() {
		t.Error("UseValkey should be true")
	}
	if cfg.StoreTimeout != 3*time.Second {
		t.Errorf("StoreTimeout: got %v", cfg.StoreTimeout)
	}
	if cfg.MinIOUseSSL {
		t.Error("MinIOUseSSL should be false")
	}
	if lvl, _ := cfg.SlogLevel(); lvl != slog.LevelDebug {
		t.Errorf("SlogLevel: got %v, want debug", lvl)
	}
}

func TestTrustedProxyPrefixes(t *testing.T) {
	cfg, err := load(nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, _ := cfg.TrustedProxyPrefixes(); len(got) != 0 {
		t.Errorf("default: got %v, want no trusted proxies", got)
	}

	cfg, err = load(map[string]string{"TRUSTED_PROXIES": "10.0.0.0/8, 192.168.1.7,fd00::/8"})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	got, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		t.Fatalf("TrustedProxyPrefixes: %v", err)
	}
	want := []string{"10.0.0.0/8", "192.168.1.7/32", "fd00::/8"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("prefix %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{
			name: "production default password",
			vars: map[string]string{"APP_ENV": "production", "STORAGE_DRIVER": "s3",
				"S3_ENDPOINT": "e", "S3_BUCKET": "b", "S3_ACCESS_KEY": "k", "S3_SECRET_KEY": "s"},
			want: "POSTGRES_PASSWORD",
		},
		{
			name: "production memory storage",
			vars: map[string]string{"APP_ENV": "production", "POSTGRES_PASSWORD": "fuerte"},
			want: "STORAGE_DRIVER must be set",
		},
		{
			name: "unknown driver",
			vars: map[string]string{"STORAGE_DRIVER": "ftp"},
			want: "unknown STORAGE_DRIVER",
		},
		{
			name: "s3 incomplete",
			vars: map[string]string{"STORAGE_DRIVER": "s3", "S3_ENDPOINT": "e"},
			want: "S3_BUCKET",
		},
		{
			name: "bad log level",
			vars: map[string]string{"LOG_LEVEL": "ruidoso"},
			want: "LOG_LEVEL",
		},
		{
			name: "bad trusted proxy",
			vars: map[string]string{"TRUSTED_PROXIES": "10.0.0.0/8,proxy.local"},
			want: "TRUSTED_PROXIES",
		},
		{
			name: "bad duration",
			vars: map[string]string{"STORE_TIMEOUT": "pronto"},
			want: "parsing config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(tt.vars)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

// TestLoad_ProductionValid verifies a fully configured production setup.
func TestLoad_ProductionValid(t *testing.T) {
	cfg, err := load(map[string]string{
		"APP_ENV": "production", "POSTGRES_PASSWORD": "fuerte",
		"STORAGE_DRIVER": "s3", "S3_ENDPOINT": "https://s3.example", "S3_BUCKET": "img",
		"S3_ACCESS_KEY": "k", "S3_SECRET_KEY": "s",
	})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.IsDev() {
		t.Error("IsDev should be false in production")
	}
	if !strings.Contains(cfg.DSN(), "estrategas:fuerte@localhost:5432/estrategas") {
		t.Errorf("DSN: got %q", cfg.DSN())
	}
}
