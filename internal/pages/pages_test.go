package pages

import (
	"errors"
	"testing"
)

func TestNum4k(t *testing.T) {
	tests := []struct {
		bytes uint64
		pages uint64
	}{
		{0, 0},
		{1, 1},
		{Size4k, 1},
		{Size4k + 1, 2},
		{10 * Size4k, 10},
	}
	for _, tt := range tests {
		if got := Num4k(tt.bytes); got != tt.pages {
			t.Errorf("Num4k(%d) = %d, want %d", tt.bytes, got, tt.pages)
		}
	}
}

func TestAlloc(t *testing.T) {
	pg, err := Alloc(3)
	if err != nil {
		t.Fatal(err)
	}
	if pg.Len() != 3 {
		t.Errorf("Len() = %d, want 3", pg.Len())
	}

	// Fresh anonymous pages are zeroed.
	for i, b := range pg.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d = 0x%x, want 0", i, b)
		}
	}

	if _, err := Alloc(0); !errors.Is(err, ErrNoPages) {
		t.Errorf("Alloc(0): %v, want ErrNoPages", err)
	}
}

func TestFromBytes(t *testing.T) {
	mem := make([]byte, 2*Size4k)
	pg, err := FromBytes(mem)
	if err != nil {
		t.Fatal(err)
	}
	if pg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", pg.Len())
	}

	if _, err := FromBytes(nil); !errors.Is(err, ErrNoPages) {
		t.Errorf("FromBytes(nil): %v, want ErrNoPages", err)
	}
	if _, err := FromBytes(make([]byte, Size4k-1)); !errors.Is(err, ErrUnsizedRange) {
		t.Errorf("partial page: %v, want ErrUnsizedRange", err)
	}

	backing := make([]byte, Size4k+8)
	if _, err := FromBytes(backing[1 : Size4k+1]); !errors.Is(err, ErrUnalignedRange) {
		t.Errorf("misaligned range: %v, want ErrUnalignedRange", err)
	}
}

func TestGuestPhysAddr(t *testing.T) {
	addr := Guest(0x2af37b, OwnerID(5))
	if addr.Bits() != 0x2af37b {
		t.Errorf("Bits() = 0x%x", addr.Bits())
	}
	if addr.Owner() != 5 {
		t.Errorf("Owner() = %d", addr.Owner())
	}
}

func TestOwnerString(t *testing.T) {
	tests := []struct {
		owner OwnerID
		s     string
	}{
		{OwnerHypervisor, "hypervisor"},
		{OwnerHost, "host"},
		{OwnerID(7), "guest:7"},
	}
	for _, tt := range tests {
		if got := tt.owner.String(); got != tt.s {
			t.Errorf("OwnerID(%d).String() = %q, want %q", tt.owner, got, tt.s)
		}
	}
}
