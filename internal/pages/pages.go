// Package pages provides the page-granular storage primitives the
// hypervisor hands between its layers: contiguous 4 KiB page ranges,
// page-owner tags, and owner-tagged guest physical addresses.
package pages

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Size4k is the base page size.
const Size4k uint64 = 4096

var (
	ErrNoPages        = errors.New("pages: empty page range")
	ErrUnalignedRange = errors.New("pages: range is not 8-byte aligned")
	ErrUnsizedRange   = errors.New("pages: range is not a whole number of pages")
)

// Num4k returns the number of 4 KiB pages needed to hold the given number
// of bytes.
func Num4k(bytes uint64) uint64 {
	return (bytes + Size4k - 1) / Size4k
}

// OwnerID tags the owner of a physical page: the hypervisor itself, the
// host VM, or one of the guest VMs.
type OwnerID uint32

const (
	// OwnerHypervisor owns pages internal to the hypervisor.
	OwnerHypervisor OwnerID = 0
	// OwnerHost owns pages assigned to the host VM.
	OwnerHost OwnerID = 1
)

func (o OwnerID) String() string {
	switch o {
	case OwnerHypervisor:
		return "hypervisor"
	case OwnerHost:
		return "host"
	default:
		return fmt.Sprintf("guest:%d", uint32(o))
	}
}

// GuestPhysAddr is a guest physical address tagged with the VM that owns
// the address space it refers to.
type GuestPhysAddr struct {
	addr  uint64
	owner OwnerID
}

// Guest tags addr as a guest physical address owned by owner.
func Guest(addr uint64, owner OwnerID) GuestPhysAddr {
	return GuestPhysAddr{addr: addr, owner: owner}
}

// Bits returns the numeric address.
func (a GuestPhysAddr) Bits() uint64 { return a.addr }

// Owner returns the VM the address belongs to.
func (a GuestPhysAddr) Owner() OwnerID { return a.owner }

func (a GuestPhysAddr) String() string {
	return fmt.Sprintf("GPA 0x%x (%s)", a.addr, a.owner)
}

// SequentialPages is a contiguous range of 4 KiB pages. Ranges from Alloc
// are page aligned; ranges from FromBytes are only required to be 8-byte
// aligned. The range is owned by whatever structure it is donated to for that
// structure's lifetime.
type SequentialPages struct {
	mem []byte
}

// Alloc maps a fresh anonymous range of n pages.
func Alloc(n uint64) (SequentialPages, error) {
	if n == 0 {
		return SequentialPages{}, ErrNoPages
	}

	mem, err := unix.Mmap(
		-1,
		0,
		int(n*Size4k),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANONYMOUS|unix.MAP_PRIVATE,
	)
	if err != nil {
		return SequentialPages{}, fmt.Errorf("pages: mmap %d pages: %w", n, err)
	}

	return SequentialPages{mem: mem}, nil
}

// FromBytes wraps caller-supplied backing memory as a page range. The
// memory must be 8-byte aligned and a whole number of pages; ranges that
// came from mmap always are.
func FromBytes(mem []byte) (SequentialPages, error) {
	if len(mem) == 0 {
		return SequentialPages{}, ErrNoPages
	}
	if uintptr(unsafe.Pointer(&mem[0]))%8 != 0 {
		return SequentialPages{}, ErrUnalignedRange
	}
	if uint64(len(mem))%Size4k != 0 {
		return SequentialPages{}, ErrUnsizedRange
	}
	return SequentialPages{mem: mem}, nil
}

// Len returns the number of pages in the range.
func (p SequentialPages) Len() uint64 {
	return uint64(len(p.mem)) / Size4k
}

// Base returns a pointer to the first byte of the range.
func (p SequentialPages) Base() unsafe.Pointer {
	return unsafe.Pointer(&p.mem[0])
}

// Bytes returns the raw backing memory.
func (p SequentialPages) Bytes() []byte {
	return p.mem
}
