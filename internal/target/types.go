// Package target holds the read-only projection of a microcontroller
// that the rest of this repository operates against: address spaces,
// memory segments, registers, the GDB register map, the two address
// translator variants, and the TargetController interface the session
// and handler code drives.
//
// Field shapes are grounded on bloombloombloom/Bloom's
// src/Targets/TargetAddressSpaceDescriptor.hpp,
// TargetMemorySegmentDescriptor.hpp and TargetRegisterDescriptor.hpp,
// re-expressed as plain Go structs rather than the original's
// id-allocating constructors.
package target

import "fmt"

// AddressSpaceID is a process-wide unique identifier for an
// AddressSpaceDescriptor.
type AddressSpaceID uint8

// SegmentType classifies a memory segment by what kind of storage it
// represents.
type SegmentType int

const (
	SegmentFlash SegmentType = iota
	SegmentRAM
	SegmentEEPROM
	SegmentIO
	SegmentAliased
	SegmentFuses
)

func (t SegmentType) String() string {
	switch t {
	case SegmentFlash:
		return "flash"
	case SegmentRAM:
		return "ram"
	case SegmentEEPROM:
		return "eeprom"
	case SegmentIO:
		return "io"
	case SegmentAliased:
		return "aliased"
	case SegmentFuses:
		return "fuses"
	default:
		return "unknown"
	}
}

// MemoryAccess records whether a segment may be read, written, or
// executed from in a given mode (debug or programming).
type MemoryAccess struct {
	Readable   bool
	Writable   bool
	Executable bool
}

// AddressRange is an inclusive [Start,End] byte range, matching the
// original's TargetMemoryAddressRange.
type AddressRange struct {
	Start uint64
	End   uint64
}

// Size returns the number of bytes the range spans.
func (r AddressRange) Size() uint64 { return r.End - r.Start + 1 }

// Contains reports whether addr falls within the inclusive range.
func (r AddressRange) Contains(addr uint64) bool {
	return addr >= r.Start && addr <= r.End
}

// Intersects reports whether r and other share at least one address.
func (r AddressRange) Intersects(other AddressRange) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// Intersection returns the overlapping sub-range of r and other, and
// whether they overlap at all.
func (r AddressRange) Intersection(other AddressRange) (AddressRange, bool) {
	if !r.Intersects(other) {
		return AddressRange{}, false
	}
	start := r.Start
	if other.Start > start {
		start = other.Start
	}
	end := r.End
	if other.End < end {
		end = other.End
	}
	return AddressRange{Start: start, End: end}, true
}

// SegmentDescriptor describes one memory segment within an address
// space: its extent, type, and per-mode access.
type SegmentDescriptor struct {
	Key                   string
	Name                  string
	Type                  SegmentType
	AddressRange          AddressRange
	DebugModeAccess       MemoryAccess
	ProgrammingModeAccess MemoryAccess
	// PageSize is the programming granularity in bytes, 0 if the
	// segment has none (e.g. it is not flash-type).
	PageSize uint64
}

// Size returns the segment's extent in bytes.
func (s SegmentDescriptor) Size() uint64 { return s.AddressRange.Size() }

// AddressSpaceDescriptor describes one of a target's disjoint address
// spaces (program flash, data RAM, EEPROM, a flat system space, ...).
type AddressSpaceDescriptor struct {
	ID         AddressSpaceID
	Key        string
	Start      uint64
	Size       uint64
	BigEndian  bool
	Segments   map[string]SegmentDescriptor
}

// Segment looks up a segment by key.
func (a *AddressSpaceDescriptor) Segment(key string) (SegmentDescriptor, bool) {
	seg, ok := a.Segments[key]
	return seg, ok
}

// SegmentsIntersecting returns every segment in the address space that
// overlaps r, in an unspecified order.
func (a *AddressSpaceDescriptor) SegmentsIntersecting(r AddressRange) []SegmentDescriptor {
	var out []SegmentDescriptor
	for _, seg := range a.Segments {
		if seg.AddressRange.Intersects(r) {
			out = append(out, seg)
		}
	}
	return out
}

// SegmentContaining returns the segment whose range contains addr, if
// any.
func (a *AddressSpaceDescriptor) SegmentContaining(addr uint64) (SegmentDescriptor, bool) {
	for _, seg := range a.Segments {
		if seg.AddressRange.Contains(addr) {
			return seg, true
		}
	}
	return SegmentDescriptor{}, false
}

// RegisterType distinguishes a general-purpose register (part of the
// GPR file) from any other kind (status, stack pointer, peripheral
// register, ...).
type RegisterType int

const (
	RegisterGeneralPurpose RegisterType = iota
	RegisterOther
)

// RegisterAccess records whether a register may be read or written.
type RegisterAccess struct {
	Readable bool
	Writable bool
}

// BitFieldDescriptor describes a named sub-range of bits within a
// register, used by the writeRegisterBitField monitor command.
type BitFieldDescriptor struct {
	Key         string
	Name        string
	Mask        uint64
	Description string
}

// RegisterID is a stable, unique identifier for a
// (peripheralKey, groupKey, registerKey) triple.
type RegisterID uint32

// RegisterDescriptor describes one target register.
type RegisterDescriptor struct {
	ID              RegisterID
	Key             string
	Name            string
	AddressSpaceID  AddressSpaceID
	AddressSpaceKey string
	StartAddress    uint64
	Size            uint64
	Type            RegisterType
	Access          RegisterAccess
	Description     string
	BitFields       map[string]BitFieldDescriptor
}

// BitField looks up a bit-field by key.
func (r *RegisterDescriptor) BitField(key string) (BitFieldDescriptor, bool) {
	bf, ok := r.BitFields[key]
	return bf, ok
}

// TargetDescriptor is the full read-only projection of a target: its
// address spaces and its registers, the latter indexed both by id (for
// O(1) lookup from a breakpoint or monitor command) and by an
// "addressSpaceKey.key" composite key (see RegisterByKey).
type TargetDescriptor struct {
	AddressSpaces map[string]*AddressSpaceDescriptor
	registersByID map[RegisterID]*RegisterDescriptor
	registersByKey map[string]*RegisterDescriptor
}

// NewTargetDescriptor builds a TargetDescriptor from its address
// spaces and the full flat list of registers each one owns.
func NewTargetDescriptor(addressSpaces []*AddressSpaceDescriptor, registers []*RegisterDescriptor) *TargetDescriptor {
	td := &TargetDescriptor{
		AddressSpaces:  make(map[string]*AddressSpaceDescriptor, len(addressSpaces)),
		registersByID:  make(map[RegisterID]*RegisterDescriptor, len(registers)),
		registersByKey: make(map[string]*RegisterDescriptor, len(registers)),
	}
	for _, as := range addressSpaces {
		td.AddressSpaces[as.Key] = as
	}
	for _, r := range registers {
		td.registersByID[r.ID] = r
		td.registersByKey[fmt.Sprintf("%s.%s", r.AddressSpaceKey, r.Key)] = r
	}
	return td
}

// Register looks up a register by id.
func (t *TargetDescriptor) Register(id RegisterID) (*RegisterDescriptor, bool) {
	r, ok := t.registersByID[id]
	return r, ok
}

// RegisterByKey looks up a register by its "addressSpaceKey.key"
// composite key, as used by the GDB register-map builders in
// gdb_descriptor.go.
func (t *TargetDescriptor) RegisterByKey(key string) (*RegisterDescriptor, bool) {
	r, ok := t.registersByKey[key]
	return r, ok
}

// AllRegisters returns every register the descriptor knows about, in
// an unspecified order. Used by qRcmd's read-regs/write-reg commands
// to resolve a peripheral/group/register path prefix against the
// registered keys.
func (t *TargetDescriptor) AllRegisters() []*RegisterDescriptor {
	out := make([]*RegisterDescriptor, 0, len(t.registersByID))
	for _, r := range t.registersByID {
		out = append(out, r)
	}
	return out
}

// AddressSpace looks up an address space by key.
func (t *TargetDescriptor) AddressSpace(key string) (*AddressSpaceDescriptor, bool) {
	as, ok := t.AddressSpaces[key]
	return as, ok
}
