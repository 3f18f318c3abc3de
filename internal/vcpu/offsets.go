package vcpu

import "github.com/rivulet-hv/rivulet/internal/riscv"

// Byte offsets into vmCpuState. The context switch assembly picks these
// up through go_asm.h (const_frameHostRA and friends), so the constants
// below and the structs in frame.go cannot drift without offsets_test.go
// failing.

const gprBytes = 8 * riscv.NumGprs

// Sub-record bases and CSR fields.
const (
	frameHostGprs       = 0
	frameHostSstatus    = frameHostGprs + gprBytes
	frameHostHstatus    = frameHostSstatus + 8
	frameHostScounteren = frameHostHstatus + 8
	frameHostStvec      = frameHostScounteren + 8
	frameHostSscratch   = frameHostStvec + 8

	frameGuestGprs       = frameHostSscratch + 8
	frameGuestSstatus    = frameGuestGprs + gprBytes
	frameGuestHstatus    = frameGuestSstatus + 8
	frameGuestScounteren = frameGuestHstatus + 8
	frameGuestSepc       = frameGuestScounteren + 8

	frameVsHgatp      = frameGuestSepc + 8
	frameVsHtimedelta = frameVsHgatp + 8
	frameVsVsstatus   = frameVsHtimedelta + 8
	frameVsVsie       = frameVsVsstatus + 8
	frameVsVstvec     = frameVsVsie + 8
	frameVsVsscratch  = frameVsVstvec + 8
	frameVsVsepc      = frameVsVsscratch + 8
	frameVsVscause    = frameVsVsepc + 8
	frameVsVstval     = frameVsVscause + 8
	frameVsVsatp      = frameVsVstval + 8
	frameVsVstimecmp  = frameVsVsatp + 8

	frameTrapScause = frameVsVstimecmp + 8
	frameTrapStval  = frameTrapScause + 8
	frameTrapHtval  = frameTrapStval + 8
	frameTrapHtinst = frameTrapHtval + 8

	frameSize = frameTrapHtinst + 8
)

// Host GPR slots.
const (
	frameHostRA  = frameHostGprs + 8*int(riscv.GprRA)
	frameHostSP  = frameHostGprs + 8*int(riscv.GprSP)
	frameHostGP  = frameHostGprs + 8*int(riscv.GprGP)
	frameHostTP  = frameHostGprs + 8*int(riscv.GprTP)
	frameHostT0  = frameHostGprs + 8*int(riscv.GprT0)
	frameHostT1  = frameHostGprs + 8*int(riscv.GprT1)
	frameHostT2  = frameHostGprs + 8*int(riscv.GprT2)
	frameHostS0  = frameHostGprs + 8*int(riscv.GprS0)
	frameHostS1  = frameHostGprs + 8*int(riscv.GprS1)
	frameHostA0  = frameHostGprs + 8*int(riscv.GprA0)
	frameHostA1  = frameHostGprs + 8*int(riscv.GprA1)
	frameHostA2  = frameHostGprs + 8*int(riscv.GprA2)
	frameHostA3  = frameHostGprs + 8*int(riscv.GprA3)
	frameHostA4  = frameHostGprs + 8*int(riscv.GprA4)
	frameHostA5  = frameHostGprs + 8*int(riscv.GprA5)
	frameHostA6  = frameHostGprs + 8*int(riscv.GprA6)
	frameHostA7  = frameHostGprs + 8*int(riscv.GprA7)
	frameHostS2  = frameHostGprs + 8*int(riscv.GprS2)
	frameHostS3  = frameHostGprs + 8*int(riscv.GprS3)
	frameHostS4  = frameHostGprs + 8*int(riscv.GprS4)
	frameHostS5  = frameHostGprs + 8*int(riscv.GprS5)
	frameHostS6  = frameHostGprs + 8*int(riscv.GprS6)
	frameHostS7  = frameHostGprs + 8*int(riscv.GprS7)
	frameHostS8  = frameHostGprs + 8*int(riscv.GprS8)
	frameHostS9  = frameHostGprs + 8*int(riscv.GprS9)
	frameHostS10 = frameHostGprs + 8*int(riscv.GprS10)
	frameHostS11 = frameHostGprs + 8*int(riscv.GprS11)
	frameHostT3  = frameHostGprs + 8*int(riscv.GprT3)
	frameHostT4  = frameHostGprs + 8*int(riscv.GprT4)
	frameHostT5  = frameHostGprs + 8*int(riscv.GprT5)
	frameHostT6  = frameHostGprs + 8*int(riscv.GprT6)
)

// Guest GPR slots.
const (
	frameGuestRA  = frameGuestGprs + 8*int(riscv.GprRA)
	frameGuestSP  = frameGuestGprs + 8*int(riscv.GprSP)
	frameGuestGP  = frameGuestGprs + 8*int(riscv.GprGP)
	frameGuestTP  = frameGuestGprs + 8*int(riscv.GprTP)
	frameGuestT0  = frameGuestGprs + 8*int(riscv.GprT0)
	frameGuestT1  = frameGuestGprs + 8*int(riscv.GprT1)
	frameGuestT2  = frameGuestGprs + 8*int(riscv.GprT2)
	frameGuestS0  = frameGuestGprs + 8*int(riscv.GprS0)
	frameGuestS1  = frameGuestGprs + 8*int(riscv.GprS1)
	frameGuestA0  = frameGuestGprs + 8*int(riscv.GprA0)
	frameGuestA1  = frameGuestGprs + 8*int(riscv.GprA1)
	frameGuestA2  = frameGuestGprs + 8*int(riscv.GprA2)
	frameGuestA3  = frameGuestGprs + 8*int(riscv.GprA3)
	frameGuestA4  = frameGuestGprs + 8*int(riscv.GprA4)
	frameGuestA5  = frameGuestGprs + 8*int(riscv.GprA5)
	frameGuestA6  = frameGuestGprs + 8*int(riscv.GprA6)
	frameGuestA7  = frameGuestGprs + 8*int(riscv.GprA7)
	frameGuestS2  = frameGuestGprs + 8*int(riscv.GprS2)
	frameGuestS3  = frameGuestGprs + 8*int(riscv.GprS3)
	frameGuestS4  = frameGuestGprs + 8*int(riscv.GprS4)
	frameGuestS5  = frameGuestGprs + 8*int(riscv.GprS5)
	frameGuestS6  = frameGuestGprs + 8*int(riscv.GprS6)
	frameGuestS7  = frameGuestGprs + 8*int(riscv.GprS7)
	frameGuestS8  = frameGuestGprs + 8*int(riscv.GprS8)
	frameGuestS9  = frameGuestGprs + 8*int(riscv.GprS9)
	frameGuestS10 = frameGuestGprs + 8*int(riscv.GprS10)
	frameGuestS11 = frameGuestGprs + 8*int(riscv.GprS11)
	frameGuestT3  = frameGuestGprs + 8*int(riscv.GprT3)
	frameGuestT4  = frameGuestGprs + 8*int(riscv.GprT4)
	frameGuestT5  = frameGuestGprs + 8*int(riscv.GprT5)
	frameGuestT6  = frameGuestGprs + 8*int(riscv.GprT6)
)

// AsmOffset is one named entry of the frame layout contract.
type AsmOffset struct {
	Name   string
	Offset int
}

// AsmOffsets returns the full offset table handed to the context switch,
// in frame order. Tests pin each entry to the Go struct layout; cmd
// tooling prints it for inspection against the assembly.
func AsmOffsets() []AsmOffset {
	offsets := make([]AsmOffset, 0, 2*(riscv.NumGprs-1)+9)
	for gpr := riscv.GprRA; gpr < riscv.NumGprs; gpr++ {
		offsets = append(offsets, AsmOffset{
			Name:   "host_" + gpr.String(),
			Offset: frameHostGprs + 8*int(gpr),
		})
	}
	offsets = append(offsets,
		AsmOffset{"host_sstatus", frameHostSstatus},
		AsmOffset{"host_hstatus", frameHostHstatus},
		AsmOffset{"host_scounteren", frameHostScounteren},
		AsmOffset{"host_stvec", frameHostStvec},
		AsmOffset{"host_sscratch", frameHostSscratch},
	)
	for gpr := riscv.GprRA; gpr < riscv.NumGprs; gpr++ {
		offsets = append(offsets, AsmOffset{
			Name:   "guest_" + gpr.String(),
			Offset: frameGuestGprs + 8*int(gpr),
		})
	}
	offsets = append(offsets,
		AsmOffset{"guest_sstatus", frameGuestSstatus},
		AsmOffset{"guest_hstatus", frameGuestHstatus},
		AsmOffset{"guest_scounteren", frameGuestScounteren},
		AsmOffset{"guest_sepc", frameGuestSepc},
	)
	return offsets
}
