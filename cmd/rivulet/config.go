package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rivulet-hv/rivulet/internal/pagetable"
	"github.com/rivulet-hv/rivulet/internal/vcpu"
)

// PageTableConfig locates the guest's pre-built G-stage page table.
type PageTableConfig struct {
	Mode string `yaml:"mode"`
	Root uint64 `yaml:"root"`
}

// Config describes one guest VM.
type Config struct {
	CPUs      uint64          `yaml:"cpus"`
	MemoryMiB uint64          `yaml:"memory_mib"`
	EntryPC   uint64          `yaml:"entry_pc"`
	PageTable PageTableConfig `yaml:"page_table"`
}

func defaultConfig() Config {
	return Config{
		CPUs:      1,
		MemoryMiB: 64,
		EntryPC:   0x8020_0000,
		PageTable: PageTableConfig{Mode: "sv48x4"},
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.CPUs == 0 || cfg.CPUs > vcpu.MaxCPUs {
		return Config{}, fmt.Errorf("config: cpus must be 1..%d, got %d", vcpu.MaxCPUs, cfg.CPUs)
	}
	if cfg.MemoryMiB == 0 {
		return Config{}, fmt.Errorf("config: memory_mib must be nonzero")
	}
	return cfg, nil
}

// guestPageTable builds the page-table description the vCPUs are pointed
// at. Root 0 means the table has not been built yet, which is fine for
// inspection commands but not for running.
func (c Config) guestPageTable() (pagetable.GuestStagePageTable, error) {
	switch c.PageTable.Mode {
	case "sv39x4":
		return pagetable.NewSv39x4(c.PageTable.Root)
	case "sv48x4", "":
		return pagetable.NewSv48x4(c.PageTable.Root)
	default:
		return nil, fmt.Errorf("config: unknown page table mode %q", c.PageTable.Mode)
	}
}
