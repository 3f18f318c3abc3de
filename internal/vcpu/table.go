package vcpu

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/rivulet-hv/rivulet/internal/pages"
	"github.com/rivulet-hv/rivulet/internal/spin"
)

// MaxCPUs is the fixed capacity of a VM's vCPU table.
const MaxCPUs = 64

var (
	ErrBadCpuId                 = errors.New("vcpu: cpu id out of range")
	ErrVmCpuExists              = errors.New("vcpu: vcpu already added")
	ErrVmCpuNotFound            = errors.New("vcpu: vcpu not present")
	ErrVmCpuRunning             = errors.New("vcpu: vcpu is running")
	ErrInsufficientVmCpuStorage = errors.New("vcpu: insufficient vcpu storage")
)

// VmCpuStatus is the state of one slot in the table.
type VmCpuStatus uint32

const (
	// VmCpuNotPresent slots have never been added to the VM. It must be
	// the zero value: slots come up NotPresent straight out of zeroed
	// page storage.
	VmCpuNotPresent VmCpuStatus = iota
	// VmCpuAvailable vCPUs exist and are not running anywhere.
	VmCpuAvailable
	// VmCpuRunning vCPUs are claimed exclusively by a physical CPU.
	VmCpuRunning
)

func (s VmCpuStatus) String() string {
	switch s {
	case VmCpuNotPresent:
		return "NotPresent"
	case VmCpuAvailable:
		return "Available"
	case VmCpuRunning:
		return "Running"
	default:
		return fmt.Sprintf("VmCpuStatus(%d)", uint32(s))
	}
}

// vmCpuEntry is one slot of the table.
//
// Locking: status must be acquired before mu, always. The one place that
// takes status while holding mu is RunningVmCpu.Release, which is safe
// because nothing can be waiting on mu under a status guard while the
// slot is Running.
type vmCpuEntry struct {
	status spin.RWMutex
	state  VmCpuStatus
	mu     sync.Mutex
	cpu    VmCpu
}

// VmCpusPages is the number of 4 KiB pages of backing storage a vCPU
// table requires.
const VmCpusPages = (MaxCPUs*unsafe.Sizeof(vmCpuEntry{}) + uintptr(pages.Size4k) - 1) / uintptr(pages.Size4k)

// VmCpus is the fixed-capacity set of vCPUs of one VM, placed over
// caller-supplied page storage. Slot IDs run 0..MaxCPUs.
type VmCpus struct {
	entries []vmCpuEntry
	backing pages.SequentialPages
}

// NewVmCpus builds a vCPU table for the VM tagged guestID over the given
// page range. It fails with ErrInsufficientVmCpuStorage when fewer than
// VmCpusPages pages are supplied. Every slot starts NotPresent around a
// default, runnable vCPU.
func NewVmCpus(guestID pages.OwnerID, pg pages.SequentialPages) (*VmCpus, error) {
	if pg.Len() < uint64(VmCpusPages) {
		return nil, ErrInsufficientVmCpuStorage
	}

	entries := unsafe.Slice((*vmCpuEntry)(pg.Base()), MaxCPUs)
	for i := range entries {
		e := &entries[i]
		*e = vmCpuEntry{}
		e.cpu.reset(guestID)
	}

	return &VmCpus{entries: entries, backing: pg}, nil
}

func (t *VmCpus) entry(id uint64) (*vmCpuEntry, error) {
	if id >= MaxCPUs {
		return nil, ErrBadCpuId
	}
	return &t.entries[id], nil
}

// AddVcpu brings the vCPU at id into the VM, transitioning its slot
// NotPresent -> Available, and returns a pinned idle reference to it.
func (t *VmCpus) AddVcpu(id uint64) (*IdleVmCpu, error) {
	e, err := t.entry(id)
	if err != nil {
		return nil, err
	}

	e.status.Lock()
	if e.state != VmCpuNotPresent {
		e.status.Unlock()
		return nil, ErrVmCpuExists
	}
	e.state = VmCpuAvailable

	// Keep readers out until the handle exists, then hold the slot in
	// Available without blocking other readers.
	e.status.Downgrade()
	return &IdleVmCpu{entry: e}, nil
}

// GetVcpu returns a pinned idle reference to the vCPU at id. The slot
// cannot transition to Running while the reference is held.
func (t *VmCpus) GetVcpu(id uint64) (*IdleVmCpu, error) {
	e, err := t.entry(id)
	if err != nil {
		return nil, err
	}

	e.status.RLock()
	switch e.state {
	case VmCpuAvailable:
		return &IdleVmCpu{entry: e}, nil
	case VmCpuRunning:
		e.status.RUnlock()
		return nil, ErrVmCpuRunning
	default:
		e.status.RUnlock()
		return nil, ErrVmCpuNotFound
	}
}

// TakeVcpu claims the vCPU at id exclusively for running, transitioning
// its slot Available -> Running. The slot returns to Available when the
// handle is released.
func (t *VmCpus) TakeVcpu(id uint64) (*RunningVmCpu, error) {
	e, err := t.entry(id)
	if err != nil {
		return nil, err
	}

	e.status.Lock()
	switch e.state {
	case VmCpuAvailable:
		e.state = VmCpuRunning
		// No idle reference can exist here (they hold status shared),
		// so the vCPU lock is free; take it before readers can observe
		// the Running state.
		e.mu.Lock()
		e.status.Unlock()
		return &RunningVmCpu{table: t, entry: e, id: id}, nil
	case VmCpuRunning:
		e.status.Unlock()
		return nil, ErrVmCpuRunning
	default:
		e.status.Unlock()
		return nil, ErrVmCpuNotFound
	}
}

// IdleVmCpu is a reference to an Available vCPU. While it is held the
// slot cannot leave the Available state, so the vCPU cannot start running
// behind the holder's back. Release it when done; holding it blocks
// writers.
type IdleVmCpu struct {
	entry *vmCpuEntry
}

// Call runs f with the vCPU locked.
func (c *IdleVmCpu) Call(f func(vcpu *VmCpu) error) error {
	c.entry.mu.Lock()
	defer c.entry.mu.Unlock()
	return f(&c.entry.cpu)
}

// Release drops the reference. The handle must not be used afterwards.
func (c *IdleVmCpu) Release() {
	c.entry.status.RUnlock()
	c.entry = nil
}

// RunningVmCpu is exclusive ownership of a Running vCPU. Exactly one
// exists per slot at a time; it is the only path back to Available.
type RunningVmCpu struct {
	table *VmCpus
	entry *vmCpuEntry
	id    uint64
}

// ID returns the slot ID this handle was taken from.
func (c *RunningVmCpu) ID() uint64 {
	return c.id
}

// VmCpu returns the claimed vCPU. The handle's exclusivity is the
// caller's license to mutate and run it.
func (c *RunningVmCpu) VmCpu() *VmCpu {
	return &c.entry.cpu
}

// Release returns the slot to Available and gives up the vCPU lock, in
// that order. Finding the slot in any state but Running is a consistency
// violation and panics.
func (c *RunningVmCpu) Release() {
	e := c.entry

	e.status.Lock()
	if e.state != VmCpuRunning {
		panic(fmt.Sprintf("vcpu: slot %d released while %s", c.id, e.state))
	}
	e.state = VmCpuAvailable
	e.status.Unlock()

	e.mu.Unlock()
	c.entry = nil
}
