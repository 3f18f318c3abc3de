// rivulet drives the hypervisor's vCPU core: it sizes and allocates vCPU
// storage, builds the table for a guest VM, and runs its harts. The
// inspection flags work on any host; entering a guest requires running in
// HS mode on a riscv64 machine with the H-extension.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/rivulet-hv/rivulet/internal/cpufeat"
	"github.com/rivulet-hv/rivulet/internal/pages"
	"github.com/rivulet-hv/rivulet/internal/vcpu"
)

func run() error {
	configPath := flag.String("config", "", "path to a VM config (YAML)")
	showOffsets := flag.Bool("offsets", false, "print the world-switch frame offsets and exit")
	showPages := flag.Bool("pages", false, "print vCPU storage sizing and exit")
	logLevel := flag.String("log-level", envOr("RIVULET_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	flag.Parse()

	setupLogging(*logLevel)

	if *showOffsets {
		for _, off := range vcpu.AsmOffsets() {
			fmt.Printf("%-18s %d\n", off.Name, off.Offset)
		}
		return nil
	}

	if *showPages {
		fmt.Printf("max vcpus:     %d\n", vcpu.MaxCPUs)
		fmt.Printf("storage pages: %d (%d KiB)\n", vcpu.VmCpusPages,
			uint64(vcpu.VmCpusPages)*pages.Size4k/1024)
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	if err := cpufeat.Load(); err != nil {
		slog.Warn("cpu feature detection failed, assuming baseline", "error", err)
	}
	slog.Info("cpu features", "sstc", cpufeat.Get().HasSstc)

	table, err := buildTable(cfg)
	if err != nil {
		return err
	}

	return runHarts(cfg, table)
}

// buildTable allocates backing storage, constructs the vCPU table and
// installs entry state on every hart of the VM.
func buildTable(cfg Config) (*vcpu.VmCpus, error) {
	pg, err := pages.Alloc(uint64(vcpu.VmCpusPages))
	if err != nil {
		return nil, err
	}

	table, err := vcpu.NewVmCpus(pages.OwnerHost, pg)
	if err != nil {
		return nil, fmt.Errorf("build vcpu table: %w", err)
	}

	pt, err := cfg.guestPageTable()
	if err != nil {
		return nil, err
	}

	for id := uint64(0); id < cfg.CPUs; id++ {
		idle, err := table.AddVcpu(id)
		if err != nil {
			return nil, fmt.Errorf("add vcpu %d: %w", id, err)
		}
		err = idle.Call(func(v *vcpu.VmCpu) error {
			v.SetHgatp(pt)
			v.SetSepc(cfg.EntryPC)
			return nil
		})
		idle.Release()
		if err != nil {
			return nil, err
		}
		slog.Debug("vcpu ready", "id", id, "entry", fmt.Sprintf("0x%x", cfg.EntryPC))
	}

	return table, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func envOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	if err := run(); err != nil {
		slog.Error("rivulet failed", "error", err)
		os.Exit(1)
	}
}
