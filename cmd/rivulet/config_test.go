package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rivulet-hv/rivulet/internal/riscv"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vm.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CPUs != 1 || cfg.MemoryMiB != 64 || cfg.EntryPC != 0x8020_0000 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
cpus: 2
memory_mib: 128
entry_pc: 0x80200000
page_table:
  mode: sv39x4
  root: 0x80040000
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CPUs != 2 || cfg.MemoryMiB != 128 {
		t.Errorf("config = %+v", cfg)
	}

	pt, err := cfg.guestPageTable()
	if err != nil {
		t.Fatal(err)
	}
	if pt.HgatpMode() != riscv.HgatpModeSv39x4 {
		t.Errorf("mode = %d, want sv39x4", pt.HgatpMode())
	}
	if pt.RootAddress() != 0x8004_0000 {
		t.Errorf("root = 0x%x", pt.RootAddress())
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero cpus", "cpus: 0\n"},
		{"too many cpus", "cpus: 1000\n"},
		{"zero memory", "memory_mib: 0\n"},
		{"bad yaml", "cpus: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadConfig(writeConfig(t, tt.body)); err == nil {
				t.Error("bad config accepted")
			}
		})
	}
}

func TestGuestPageTableUnknownMode(t *testing.T) {
	cfg := defaultConfig()
	cfg.PageTable.Mode = "sv57"
	if _, err := cfg.guestPageTable(); err == nil {
		t.Error("unknown mode accepted")
	}
}
