package frame

import (
	"fmt"
	"strings"
)

// RegionType classifies a memory map entry.
type RegionType uint8

const (
	// Usable memory may be handed out as frames.
	Usable RegionType = iota + 1
	// Reserved memory must never be touched.
	Reserved
	// ACPIReclaimable holds ACPI tables that may be reclaimed after parsing.
	ACPIReclaimable
	// ACPINVS must be preserved across sleep states.
	ACPINVS
	// BadMemory was reported defective by firmware.
	BadMemory
	// Bootloader memory holds the loader's own structures and the kernel image.
	Bootloader
)

// String implements fmt.Stringer for RegionType.
func (t RegionType) String() string {
	switch t {
	case Usable:
		return "usable"
	case Reserved:
		return "reserved"
	case ACPIReclaimable:
		return "acpi-reclaimable"
	case ACPINVS:
		return "acpi-nvs"
	case BadMemory:
		return "bad"
	case Bootloader:
		return "bootloader"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Region is one entry of the boot memory map, covering [Start, End).
type Region struct {
	Start uint64
	End   uint64
	Type  RegionType
}

// Len returns the number of bytes covered by r.
func (r Region) Len() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// MemoryMap is the physical memory layout reported at boot, in firmware order.
type MemoryMap []Region

// Usable returns the total number of usable bytes in the map.
func (m MemoryMap) Usable() uint64 {
	var total uint64
	for _, r := range m {
		if r.Type == Usable {
			total += r.Len()
		}
	}
	return total
}

// End returns the highest address covered by any region.
func (m MemoryMap) End() uint64 {
	var end uint64
	for _, r := range m {
		end = max(end, r.End)
	}
	return end
}

// String renders the map one region per line.
func (m MemoryMap) String() string {
	var b strings.Builder
	for _, r := range m {
		fmt.Fprintf(&b, "[0x%010x - 0x%010x], size: %10d, type: %s\n", r.Start, r.End, r.Len(), r.Type)
	}
	return b.String()
}

// DefaultMemoryMap describes a machine with physSize bytes of RAM: the first
// MiB is held by firmware and the boot loader, the rest is usable.
func DefaultMemoryMap(physSize uint64) MemoryMap {
	const low = 1 << 20
	if physSize <= low {
		return MemoryMap{{Start: 0, End: physSize, Type: Reserved}}
	}
	return MemoryMap{
		{Start: 0, End: 0x9_f000, Type: Reserved},
		{Start: 0x9_f000, End: 0xa_0000, Type: ACPINVS},
		{Start: 0xa_0000, End: low, Type: Bootloader},
		{Start: low, End: physSize, Type: Usable},
	}
}
