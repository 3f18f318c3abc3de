//go:build riscv64

package vcpu

// runGuest is the world switch, implemented in switch_riscv64.s. It saves
// the host context into the frame, enters the guest with sret, and on the
// next trap out of the guest restores the host context and returns.
//
//go:noescape
func runGuest(state *vmCpuState)

// guestReturn is the trap vector installed while the guest runs. It is
// only ever entered by hardware; the declaration exists for the linker.
func guestReturn()

// Per-CSR accessors, implemented in csr_riscv64.s. CSR numbers are
// immediates in the instruction encoding, so each register gets its own
// function.

func csrrScause() uint64
func csrrStval() uint64
func csrrHtval() uint64
func csrrHtinst() uint64

func csrrHgatp() uint64
func csrrHtimedelta() uint64
func csrrVsstatus() uint64
func csrrVsie() uint64
func csrrVstvec() uint64
func csrrVsscratch() uint64
func csrrVsepc() uint64
func csrrVscause() uint64
func csrrVstval() uint64
func csrrVsatp() uint64
func csrrVstimecmp() uint64

func csrwHgatp(v uint64)
func csrwHtimedelta(v uint64)
func csrwVsstatus(v uint64)
func csrwVsie(v uint64)
func csrwVstvec(v uint64)
func csrwVsscratch(v uint64)
func csrwVsepc(v uint64)
func csrwVscause(v uint64)
func csrwVstval(v uint64)
func csrwVsatp(v uint64)
func csrwVstimecmp(v uint64)

// machineCsrOps accesses the live CSRs of the calling physical CPU.
type machineCsrOps struct{}

func (machineCsrOps) loadGuestCsrs(csrs *guestVsCsrs, sstc bool) {
	csrwHgatp(csrs.Hgatp)
	csrwHtimedelta(csrs.Htimedelta)
	csrwVsstatus(csrs.Vsstatus)
	csrwVsie(csrs.Vsie)
	csrwVstvec(csrs.Vstvec)
	csrwVsscratch(csrs.Vsscratch)
	csrwVsepc(csrs.Vsepc)
	csrwVscause(csrs.Vscause)
	csrwVstval(csrs.Vstval)
	csrwVsatp(csrs.Vsatp)
	if sstc {
		csrwVstimecmp(csrs.Vstimecmp)
	}
}

func (machineCsrOps) saveGuestCsrs(csrs *guestVsCsrs, sstc bool) {
	csrs.Hgatp = csrrHgatp()
	csrs.Htimedelta = csrrHtimedelta()
	csrs.Vsstatus = csrrVsstatus()
	csrs.Vsie = csrrVsie()
	csrs.Vstvec = csrrVstvec()
	csrs.Vsscratch = csrrVsscratch()
	csrs.Vsepc = csrrVsepc()
	csrs.Vscause = csrrVscause()
	csrs.Vstval = csrrVstval()
	csrs.Vsatp = csrrVsatp()
	if sstc {
		csrs.Vstimecmp = csrrVstimecmp()
	}
}

func (machineCsrOps) readTrapCsrs(trap *TrapState) {
	trap.Scause = csrrScause()
	trap.Stval = csrrStval()
	trap.Htval = csrrHtval()
	trap.Htinst = csrrHtinst()
}
