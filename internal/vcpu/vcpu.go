// Package vcpu implements the per-hart core of the hypervisor: the
// register-state frame shared with the context-switch assembly, the
// engine that runs a guest hart until it traps back, and the
// fixed-capacity table that arbitrates vCPU slots between physical CPUs.
package vcpu

import (
	"github.com/rivulet-hv/rivulet/internal/cpufeat"
	"github.com/rivulet-hv/rivulet/internal/imsic"
	"github.com/rivulet-hv/rivulet/internal/pages"
	"github.com/rivulet-hv/rivulet/internal/pagetable"
	"github.com/rivulet-hv/rivulet/internal/riscv"
	"github.com/rivulet-hv/rivulet/internal/sbi"
)

// TODO: allocate VMIDs per VM instead of pinning every guest to 1.
const placeholderVMID = 1

// Exit classifies why a vCPU stopped executing guest code.
type Exit interface {
	isExit()
}

// ExitEcall is an ECALL from VS mode. Message is nil when the registers
// did not decode as a known SBI call; that is preserved, not an error.
type ExitEcall struct {
	Message *sbi.Message
}

// ExitPageFault is a G-stage page fault, carrying the faulting guest
// physical address tagged with the VM that owns it.
type ExitPageFault struct {
	Addr pages.GuestPhysAddr
}

// ExitOther covers every trap cause the hypervisor does not currently
// handle specially. It carries the raw trap snapshot.
type ExitOther struct {
	Trap TrapState
}

func (ExitEcall) isExit()     {}
func (ExitPageFault) isExit() {}
func (ExitOther) isExit()     {}

var (
	_ Exit = ExitEcall{}
	_ Exit = ExitPageFault{}
	_ Exit = ExitOther{}
)

// Hardware access points for the run loop. On riscv64 these are backed by
// the assembly in switch_riscv64.s and csr_riscv64.s; tests swap them for
// fakes so the engine can run anywhere.
var (
	runGuestFn = runGuest
	hwCsrs     csrOps = machineCsrOps{}
)

// csrOps abstracts the supervisor CSR accesses surrounding the world
// switch.
type csrOps interface {
	// loadGuestCsrs programs the V=1-only CSRs from the frame. Writing
	// them at V=0 is architecturally safe; they take effect at sret.
	loadGuestCsrs(csrs *guestVsCsrs, sstc bool)
	// saveGuestCsrs reads the V=1-only CSRs back into the frame.
	saveGuestCsrs(csrs *guestVsCsrs, sstc bool)
	// readTrapCsrs snapshots scause/stval/htval/htinst.
	readTrapCsrs(trap *TrapState)
}

// VmCpu is a single virtual CPU of a VM: one register-state frame, the
// optional interrupt-file binding, and the owner tag used on page-fault
// exits. It contains no pointers so the table can place it in raw
// page-backed storage.
type VmCpu struct {
	state      vmCpuState
	intFile    imsic.GuestFile
	hasIntFile bool
	guestID    pages.OwnerID
}

// New creates a vCPU for the given VM. The result is architecturally
// valid to run once a translation root (SetHgatp) and an interrupt file
// (SetInterruptFile) have been installed.
func New(guestID pages.OwnerID) *VmCpu {
	v := new(VmCpu)
	v.reset(guestID)
	return v
}

// reset zeroes the vCPU and installs the initial CSR values: the first
// sret lands in VS mode with interrupts previously enabled, and the
// cycle/time/instret counters are delegated to the guest.
func (v *VmCpu) reset(guestID pages.OwnerID) {
	*v = VmCpu{guestID: guestID}
	v.state.guestRegs.Hstatus = riscv.HstatusSPV | riscv.HstatusSPVP
	v.state.guestRegs.Sstatus = riscv.SstatusSPIE | riscv.SstatusSPP
	v.state.guestRegs.Scounteren = riscv.ScounterenCY | riscv.ScounterenTM | riscv.ScounterenIR
}

// GuestID returns the owner tag of the VM this vCPU belongs to.
func (v *VmCpu) GuestID() pages.OwnerID {
	return v.guestID
}

// SetHgatp points the vCPU's G-stage translation at the root of table.
func (v *VmCpu) SetHgatp(table pagetable.GuestStagePageTable) {
	ppn := table.RootAddress() / pages.Size4k
	v.state.guestVsCsrs.Hgatp = riscv.HgatpValue(ppn, placeholderVMID, table.HgatpMode())
}

// SetSepc sets the PC the vCPU will start from on its next run.
func (v *VmCpu) SetSepc(sepc uint64) {
	v.state.guestRegs.Sepc = sepc
}

// SetGpr writes one of the vCPU's general-purpose registers. Writes to
// the zero register are discarded.
func (v *VmCpu) SetGpr(gpr riscv.GprIndex, value uint64) {
	if gpr == riscv.GprZero || gpr >= riscv.NumGprs {
		return
	}
	v.state.guestRegs.Gprs[gpr] = value
}

// Gpr reads one of the vCPU's general-purpose registers.
func (v *VmCpu) Gpr(gpr riscv.GprIndex) uint64 {
	if gpr >= riscv.NumGprs {
		return 0
	}
	return v.state.guestRegs.Gprs[gpr]
}

// Sepc returns the PC the vCPU will resume from.
func (v *VmCpu) Sepc() uint64 {
	return v.state.guestRegs.Sepc
}

// SetEcallResult writes the result of an SBI call into A0/A1 for the
// guest to pick up after its ECALL returns.
func (v *VmCpu) SetEcallResult(result sbi.Return) {
	v.SetGpr(riscv.GprA0, uint64(result.Error))
	if result.Error == sbi.Success {
		v.SetGpr(riscv.GprA1, result.Value)
	}
}

// SetInterruptFile binds an IMSIC guest interrupt file to this vCPU and
// patches hstatus.VGEIN so the file is selected at the next guest entry.
func (v *VmCpu) SetInterruptFile(file imsic.GuestFile) {
	v.intFile = file
	v.hasIntFile = true

	hstatus := v.state.guestRegs.Hstatus &^ riscv.HstatusVGEINMask
	hstatus |= (uint64(file.RawIndex()) << riscv.HstatusVGEINShift) & riscv.HstatusVGEINMask
	v.state.guestRegs.Hstatus = hstatus
}

// RunToExit runs the guest hart until it traps back and classifies the
// exit. The caller must hold exclusive access to this vCPU and keep the
// calling thread pinned to one physical CPU for the duration
// (runtime.LockOSThread); preemption inside the switch would corrupt CSR
// state.
//
// Running without a bound interrupt file is not rejected; the guest's
// external interrupts are silently lost until one is set.
func (v *VmCpu) RunToExit() Exit {
	sstc := cpufeat.Get().HasSstc

	hwCsrs.loadGuestCsrs(&v.state.guestVsCsrs, sstc)

	runGuestFn(&v.state)

	// Snapshot the trap cause before any CSR write can clobber it.
	hwCsrs.readTrapCsrs(&v.state.trapCsrs)

	// Save the V=1 CSRs so the next run, possibly on another physical
	// CPU, resumes from here.
	hwCsrs.saveGuestCsrs(&v.state.guestVsCsrs, sstc)

	return v.classifyExit()
}

func (v *VmCpu) classifyExit() Exit {
	trap := riscv.TrapFromScause(v.state.trapCsrs.Scause)

	switch {
	case !trap.Interrupt && trap.Cause == riscv.ExcEcallFromVS:
		var args [8]uint64
		copy(args[:], v.state.guestRegs.Gprs[riscv.GprA0:riscv.GprA7+1])
		msg, ok := sbi.DecodeMessage(args)

		// SBI calls return to the instruction after the ECALL; skip it
		// here so the caller only has to post the result before the
		// next run.
		v.state.guestRegs.Sepc += 4

		if !ok {
			return ExitEcall{}
		}
		return ExitEcall{Message: &msg}

	case trap.IsGuestPageFault():
		addr := v.state.trapCsrs.Htval<<2 | v.state.trapCsrs.Stval&0x3
		return ExitPageFault{Addr: pages.Guest(addr, v.guestID)}

	default:
		return ExitOther{Trap: v.state.trapCsrs}
	}
}
