// Package riscv defines architectural constants for RV64 harts with the
// Hypervisor extension (H-extension).
package riscv

import "fmt"

// Privilege levels
const (
	PrivUser       uint8 = 0
	PrivSupervisor uint8 = 1
	PrivMachine    uint8 = 3
)

// GprIndex names an entry in the general-purpose register file.
type GprIndex uint32

const (
	GprZero GprIndex = iota
	GprRA
	GprSP
	GprGP
	GprTP
	GprT0
	GprT1
	GprT2
	GprS0
	GprS1
	GprA0
	GprA1
	GprA2
	GprA3
	GprA4
	GprA5
	GprA6
	GprA7
	GprS2
	GprS3
	GprS4
	GprS5
	GprS6
	GprS7
	GprS8
	GprS9
	GprS10
	GprS11
	GprT3
	GprT4
	GprT5
	GprT6
)

// NumGprs is the size of the register file, including the zero register.
const NumGprs = 32

var gprNames = [NumGprs]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

func (g GprIndex) String() string {
	if g < NumGprs {
		return gprNames[g]
	}
	return fmt.Sprintf("GprIndex(%d)", uint32(g))
}

// CSR addresses
const (
	CSRSstatus    uint16 = 0x100
	CSRStvec      uint16 = 0x105
	CSRScounteren uint16 = 0x106
	CSRSscratch   uint16 = 0x140
	CSRSepc       uint16 = 0x141
	CSRScause     uint16 = 0x142
	CSRStval      uint16 = 0x143
	CSRSatp       uint16 = 0x180

	CSRHstatus    uint16 = 0x600
	CSRHedeleg    uint16 = 0x602
	CSRHideleg    uint16 = 0x603
	CSRHtimedelta uint16 = 0x605
	CSRHtval      uint16 = 0x643
	CSRHtinst     uint16 = 0x64A
	CSRHgatp      uint16 = 0x680

	CSRVsstatus  uint16 = 0x200
	CSRVsie      uint16 = 0x204
	CSRVstvec    uint16 = 0x205
	CSRVsscratch uint16 = 0x240
	CSRVsepc     uint16 = 0x241
	CSRVscause   uint16 = 0x242
	CSRVstval    uint16 = 0x243
	CSRVstimecmp uint16 = 0x24D
	CSRVsatp     uint16 = 0x280
)

// sstatus bits
const (
	SstatusSIE  uint64 = 1 << 1
	SstatusSPIE uint64 = 1 << 5
	SstatusSPP  uint64 = 1 << 8 // previous privilege: 1 = Supervisor
	SstatusSUM  uint64 = 1 << 18
	SstatusMXR  uint64 = 1 << 19
)

// hstatus bits
const (
	HstatusVSBE uint64 = 1 << 5
	HstatusGVA  uint64 = 1 << 6
	HstatusSPV  uint64 = 1 << 7 // virtualization was enabled before the trap
	HstatusSPVP uint64 = 1 << 8 // privilege before the trap: 1 = Supervisor
	HstatusHU   uint64 = 1 << 9
	HstatusVTVM uint64 = 1 << 20
	HstatusVTW  uint64 = 1 << 21
	HstatusVTSR uint64 = 1 << 22

	HstatusVGEINShift        = 12
	HstatusVGEINMask  uint64 = 0x3f << HstatusVGEINShift
)

// scounteren bits
const (
	ScounterenCY uint64 = 1 << 0
	ScounterenTM uint64 = 1 << 1
	ScounterenIR uint64 = 1 << 2
)

// hgatp fields
const (
	HgatpPPNMask    uint64 = (1 << 44) - 1
	HgatpVMIDShift         = 44
	HgatpVMIDMask   uint64 = 0x3fff << HgatpVMIDShift
	HgatpModeShift         = 60

	HgatpModeBare   uint64 = 0
	HgatpModeSv39x4 uint64 = 8
	HgatpModeSv48x4 uint64 = 9
)

// HgatpValue encodes the guest-stage translation root register from its
// physical page number, VMID and translation mode fields.
func HgatpValue(ppn, vmid, mode uint64) uint64 {
	return (ppn & HgatpPPNMask) |
		((vmid << HgatpVMIDShift) & HgatpVMIDMask) |
		(mode << HgatpModeShift)
}
