package vcpu

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/rivulet-hv/rivulet/internal/riscv"
)

// The CSR instructions in the assembly are hand-encoded WORDs, each
// annotated with the mnemonic it is meant to be. This test decodes every
// word back into its opcode/funct3/rd/rs1/csr fields and checks them
// against the annotation, so a wrong register or CSR number in the world
// switch cannot hide behind the stubbed-switch tests.

var csrNumbers = map[string]uint16{
	"sstatus":    riscv.CSRSstatus,
	"stvec":      riscv.CSRStvec,
	"scounteren": riscv.CSRScounteren,
	"sscratch":   riscv.CSRSscratch,
	"sepc":       riscv.CSRSepc,
	"scause":     riscv.CSRScause,
	"stval":      riscv.CSRStval,
	"hstatus":    riscv.CSRHstatus,
	"htimedelta": riscv.CSRHtimedelta,
	"htval":      riscv.CSRHtval,
	"htinst":     riscv.CSRHtinst,
	"hgatp":      riscv.CSRHgatp,
	"vsstatus":   riscv.CSRVsstatus,
	"vsie":       riscv.CSRVsie,
	"vstvec":     riscv.CSRVstvec,
	"vsscratch":  riscv.CSRVsscratch,
	"vsepc":      riscv.CSRVsepc,
	"vscause":    riscv.CSRVscause,
	"vstval":     riscv.CSRVstval,
	"vsatp":      riscv.CSRVsatp,
	"vstimecmp":  riscv.CSRVstimecmp,
}

func gprNumber(t *testing.T, name string) uint32 {
	t.Helper()
	for i := riscv.GprIndex(0); i < riscv.NumGprs; i++ {
		if i.String() == name {
			return uint32(i)
		}
	}
	t.Fatalf("unknown register %q in mnemonic", name)
	return 0
}

func checkCsrWord(t *testing.T, file string, word uint32, mnemonic string) {
	t.Helper()

	ops := strings.Fields(strings.ReplaceAll(mnemonic, ",", " "))
	if len(ops) == 0 {
		t.Errorf("%s: empty mnemonic for word 0x%08x", file, word)
		return
	}

	// sret has no operands; match it whole.
	if ops[0] == "sret" {
		if word != 0x10200073 {
			t.Errorf("%s: sret encoded as 0x%08x, want 0x10200073", file, word)
		}
		return
	}

	var wantFunct3, wantRd, wantRs1 uint32
	var csrName string
	switch {
	case ops[0] == "csrr" && len(ops) == 3: // csrrs rd, csr, zero
		wantFunct3 = 2
		wantRd = gprNumber(t, ops[1])
		csrName = ops[2]
	case ops[0] == "csrw" && len(ops) == 3: // csrrw zero, csr, rs1
		wantFunct3 = 1
		wantRs1 = gprNumber(t, ops[2])
		csrName = ops[1]
	case ops[0] == "csrrw" && len(ops) == 4:
		wantFunct3 = 1
		wantRd = gprNumber(t, ops[1])
		wantRs1 = gprNumber(t, ops[3])
		csrName = ops[2]
	default:
		t.Errorf("%s: unrecognized mnemonic %q", file, mnemonic)
		return
	}

	wantCsr, ok := csrNumbers[csrName]
	if !ok {
		t.Errorf("%s: unknown CSR %q in mnemonic %q", file, csrName, mnemonic)
		return
	}

	opcode := word & 0x7f
	rd := (word >> 7) & 0x1f
	funct3 := (word >> 12) & 0x7
	rs1 := (word >> 15) & 0x1f
	csr := word >> 20

	if opcode != 0x73 {
		t.Errorf("%s: %q: opcode 0x%02x, want SYSTEM (0x73)", file, mnemonic, opcode)
	}
	if funct3 != wantFunct3 {
		t.Errorf("%s: %q: funct3 %d, want %d", file, mnemonic, funct3, wantFunct3)
	}
	if rd != wantRd {
		t.Errorf("%s: %q: rd x%d, want x%d", file, mnemonic, rd, wantRd)
	}
	if rs1 != wantRs1 {
		t.Errorf("%s: %q: rs1 x%d, want x%d", file, mnemonic, rs1, wantRs1)
	}
	if csr != uint32(wantCsr) {
		t.Errorf("%s: %q: csr 0x%03x, want 0x%03x", file, mnemonic, csr, wantCsr)
	}
}

func TestCsrWordEncodings(t *testing.T) {
	wordRe := regexp.MustCompile(`WORD\s+\$0x([0-9A-Fa-f]+)\s+// (.+)`)

	total := 0
	for _, file := range []string{"csr_riscv64.s", "switch_riscv64.s"} {
		data, err := os.ReadFile(file)
		if err != nil {
			t.Fatal(err)
		}

		for _, line := range strings.Split(string(data), "\n") {
			m := wordRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			word, err := strconv.ParseUint(m[1], 16, 32)
			if err != nil {
				t.Errorf("%s: bad word on line %q: %v", file, line, err)
				continue
			}
			checkCsrWord(t, file, uint32(word), strings.TrimSpace(m[2]))
			total++
		}
	}

	// 26 accessor words plus the 15 world-switch defines; if the scan
	// finds fewer, the regexp has drifted from the assembly.
	if total < 41 {
		t.Fatalf("decoded %d WORD encodings, want at least 41", total)
	}
}
