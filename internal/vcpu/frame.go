package vcpu

import "github.com/rivulet-hv/rivulet/internal/riscv"

// The structs below are the register-state frame shared with the context
// switch in switch_riscv64.s. The assembly addresses them by byte offset
// (offsets.go), so field order is ABI: never reorder or insert fields.
// Every field is a uint64, which keeps the layout free of padding.

// hostCpuState is the hypervisor's own GPR and CSR state, saved when
// entering a guest and restored when it exits.
type hostCpuState struct {
	Gprs       [riscv.NumGprs]uint64
	Sstatus    uint64
	Hstatus    uint64
	Scounteren uint64
	Stvec      uint64
	Sscratch   uint64
}

// guestCpuState is the guest hart's GPR and CSR state, restored when
// entering the guest and saved when it exits.
type guestCpuState struct {
	Gprs       [riscv.NumGprs]uint64
	Sstatus    uint64
	Hstatus    uint64
	Scounteren uint64
	Sepc       uint64
}

// guestVsCsrs holds the CSRs that only take effect while V=1. They are
// loaded before entry and saved after exit so a vCPU can resume on a
// different physical CPU.
type guestVsCsrs struct {
	Hgatp      uint64
	Htimedelta uint64
	Vsstatus   uint64
	Vsie       uint64
	Vstvec     uint64
	Vsscratch  uint64
	Vsepc      uint64
	Vscause    uint64
	Vstval     uint64
	Vsatp      uint64
	Vstimecmp  uint64
}

// TrapState is the snapshot of the supervisor trap CSRs taken immediately
// after a guest exit, before anything else can clobber them.
type TrapState struct {
	Scause uint64
	Stval  uint64
	Htval  uint64
	Htinst uint64
}

// vmCpuState is the complete register-state frame for one vCPU. The
// context switch takes a pointer to this and treats every byte as raw
// machine state; the frame must start zeroed and be patched field by
// field.
type vmCpuState struct {
	hostRegs    hostCpuState
	guestRegs   guestCpuState
	guestVsCsrs guestVsCsrs
	trapCsrs    TrapState
}
