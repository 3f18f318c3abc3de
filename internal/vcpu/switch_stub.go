//go:build !riscv64

package vcpu

// Non-riscv64 builds can construct vCPUs and tables (useful for tooling
// and tests) but cannot enter a guest. Tests swap runGuestFn and hwCsrs
// for fakes.

func runGuest(state *vmCpuState) {
	panic("vcpu: guest world switch requires a riscv64 host")
}

type machineCsrOps struct{}

func (machineCsrOps) loadGuestCsrs(csrs *guestVsCsrs, sstc bool) {
	panic("vcpu: CSR access requires a riscv64 host")
}

func (machineCsrOps) saveGuestCsrs(csrs *guestVsCsrs, sstc bool) {
	panic("vcpu: CSR access requires a riscv64 host")
}

func (machineCsrOps) readTrapCsrs(trap *TrapState) {
	panic("vcpu: CSR access requires a riscv64 host")
}
