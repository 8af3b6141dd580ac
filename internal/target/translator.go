package target

import "fmt"

// AddressTranslator bidirectionally maps between GDB's single linear
// address space and a target's (address space, segment, native
// address). Two concrete variants are provided: AVR
// (bitmask-tagged) and RISC-V (flat, segment-table lookup).
type AddressTranslator interface {
	// AddressSpaceFromGdbAddress returns the address space a GDB
	// address belongs to.
	AddressSpaceFromGdbAddress(gdbAddr uint64) (*AddressSpaceDescriptor, error)
	// ToNative converts a GDB address to its address space and native
	// byte address within it.
	ToNative(gdbAddr uint64) (as *AddressSpaceDescriptor, native uint64, err error)
	// ToGdb is the inverse of ToNative: given a native address within
	// a known address space and segment, produces the GDB address.
	ToGdb(native uint64, as *AddressSpaceDescriptor, seg *SegmentDescriptor) (uint64, error)
}

// AVR high-address-bit masks selecting the memory space GDB intends,
// per the AVR variant's bitmask-tagged addressing.
const (
	avrSRAMMask   = 0x00800000
	avrEEPROMMask = 0x00810000
)

// AVRAddressTranslator implements the AVR variant: the top bits of a
// 32-bit GDB address pick SRAM or EEPROM; anything else is a flash
// (program memory) address used unmodified.
type AVRAddressTranslator struct {
	Program *AddressSpaceDescriptor
	SRAM    *AddressSpaceDescriptor
	EEPROM  *AddressSpaceDescriptor
}

func (t *AVRAddressTranslator) AddressSpaceFromGdbAddress(gdbAddr uint64) (*AddressSpaceDescriptor, error) {
	switch {
	case gdbAddr&avrEEPROMMask == avrEEPROMMask:
		return t.EEPROM, nil
	case gdbAddr&avrSRAMMask == avrSRAMMask:
		return t.SRAM, nil
	default:
		return t.Program, nil
	}
}

func (t *AVRAddressTranslator) ToNative(gdbAddr uint64) (*AddressSpaceDescriptor, uint64, error) {
	switch {
	case gdbAddr&avrEEPROMMask == avrEEPROMMask:
		seg, ok := t.EEPROM.SegmentContaining(0)
		if !ok {
			// Fall back to scanning for any segment; EEPROM targets
			// typically expose exactly one.
			for _, s := range t.EEPROM.Segments {
				seg = s
				ok = true
				break
			}
		}
		if !ok {
			return nil, 0, fmt.Errorf("target: EEPROM address space has no segments")
		}
		offset := gdbAddr &^ uint64(avrEEPROMMask)
		return t.EEPROM, offset + seg.AddressRange.Start, nil
	case gdbAddr&avrSRAMMask == avrSRAMMask:
		return t.SRAM, gdbAddr &^ uint64(avrSRAMMask), nil
	default:
		return t.Program, gdbAddr, nil
	}
}

func (t *AVRAddressTranslator) ToGdb(native uint64, as *AddressSpaceDescriptor, seg *SegmentDescriptor) (uint64, error) {
	switch {
	case as == t.EEPROM:
		return (native - seg.AddressRange.Start) | avrEEPROMMask, nil
	case as == t.SRAM:
		return native | avrSRAMMask, nil
	case as == t.Program:
		return native, nil
	default:
		return 0, fmt.Errorf("target: address space %q is not one of this translator's program/SRAM/EEPROM spaces", as.Key)
	}
}

// RISCVAddressTranslator implements the RISC-V variant: a single flat
// system address space that GDB addresses pass through unchanged; the
// containing segment is found by table lookup.
type RISCVAddressTranslator struct {
	System *AddressSpaceDescriptor
}

func (t *RISCVAddressTranslator) AddressSpaceFromGdbAddress(gdbAddr uint64) (*AddressSpaceDescriptor, error) {
	return t.System, nil
}

func (t *RISCVAddressTranslator) ToNative(gdbAddr uint64) (*AddressSpaceDescriptor, uint64, error) {
	return t.System, gdbAddr, nil
}

func (t *RISCVAddressTranslator) ToGdb(native uint64, as *AddressSpaceDescriptor, seg *SegmentDescriptor) (uint64, error) {
	if as != t.System {
		return 0, fmt.Errorf("target: address space %q is not this translator's system space", as.Key)
	}
	return native, nil
}
