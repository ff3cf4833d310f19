package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"

	"contractvm/internal/testutil"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()
	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Dir != "./data" {
		t.Errorf("Store.Dir = %q, want the default %q", cfg.Store.Dir, "./data")
	}
	if cfg.Store.Capacity != 512 {
		t.Errorf("Store.Capacity = %d, want default 512", cfg.Store.Capacity)
	}
	if cfg.Gateway.ListenAddr != ":8080" {
		t.Errorf("Gateway.ListenAddr = %q, want default %q", cfg.Gateway.ListenAddr, ":8080")
	}
	if !cfg.VM.HostMemory {
		t.Error("VM.HostMemory should default to true")
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	if err := os.MkdirAll(sb.Path("config"), 0o700); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	data := []byte("store:\n  dir: /var/lib/contractd\n  capacity: 64\n")
	if err := sb.WriteFile("config/default.yaml", data, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Dir != "/var/lib/contractd" {
		t.Errorf("Store.Dir = %q, want %q", cfg.Store.Dir, "/var/lib/contractd")
	}
	if cfg.Store.Capacity != 64 {
		t.Errorf("Store.Capacity = %d, want 64", cfg.Store.Capacity)
	}
}

func TestLoadMergesEnvOverlay(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	if err := os.MkdirAll(sb.Path("config"), 0o700); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := sb.WriteFile("config/default.yaml", []byte("store:\n  capacity: 64\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := sb.WriteFile("config/staging.yaml", []byte("gateway:\n  listen_addr: \":9090\"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	cfg, err := Load("", "staging")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Capacity != 64 {
		t.Errorf("Store.Capacity = %d, want the base config's 64 to survive the overlay merge", cfg.Store.Capacity)
	}
	if cfg.Gateway.ListenAddr != ":9090" {
		t.Errorf("Gateway.ListenAddr = %q, want the staging overlay's %q", cfg.Gateway.ListenAddr, ":9090")
	}
}
