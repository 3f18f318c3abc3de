// Package pagetable carries the contract between the guest physical
// memory manager and the vCPU core. The page-table builder itself lives
// with the memory manager; the core only needs the root address and mode
// constant that together encode hgatp.
package pagetable

import (
	"fmt"

	"github.com/rivulet-hv/rivulet/internal/riscv"
)

// GuestStagePageTable describes a built G-stage translation table.
type GuestStagePageTable interface {
	// RootAddress is the physical address of the root table.
	RootAddress() uint64
	// HgatpMode is the architectural MODE field value for this format.
	HgatpMode() uint64
}

// G-stage root tables are four concatenated 4 KiB pages.
const rootAlign = 16 * 1024

type rootedTable struct {
	root uint64
	mode uint64
}

func (t rootedTable) RootAddress() uint64 { return t.root }
func (t rootedTable) HgatpMode() uint64   { return t.mode }

func newRooted(root, mode uint64) (GuestStagePageTable, error) {
	if root%rootAlign != 0 {
		return nil, fmt.Errorf("pagetable: root 0x%x is not %d-byte aligned", root, rootAlign)
	}
	return rootedTable{root: root, mode: mode}, nil
}

// NewSv39x4 describes an Sv39x4 G-stage table rooted at root.
func NewSv39x4(root uint64) (GuestStagePageTable, error) {
	return newRooted(root, riscv.HgatpModeSv39x4)
}

// NewSv48x4 describes an Sv48x4 G-stage table rooted at root.
func NewSv48x4(root uint64) (GuestStagePageTable, error) {
	return newRooted(root, riscv.HgatpModeSv48x4)
}
