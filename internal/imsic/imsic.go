// Package imsic models identifiers for IMSIC guest interrupt files. The
// allocator that hands them out lives elsewhere; the vCPU core only needs
// an opaque handle it can program into hstatus.VGEIN.
package imsic

import "fmt"

// GuestFile identifies one guest interrupt file on a physical CPU's IMSIC.
type GuestFile struct {
	index uint32
}

// NewGuestFile wraps a raw interrupt-file index.
func NewGuestFile(index uint32) GuestFile {
	return GuestFile{index: index}
}

// RawIndex is the numeric value programmed into the VGEIN field of hstatus
// to select this file at guest entry.
func (f GuestFile) RawIndex() uint32 {
	return f.index
}

func (f GuestFile) String() string {
	return fmt.Sprintf("imsic:%d", f.index)
}
