package target

import (
	"fmt"

	"github.com/embedded-tools/gdbrspd/internal/target/arch"
)

// GdbRegisterNumber is GDB's own register index, contiguous over
// [0,N) for a given family.
type GdbRegisterNumber uint32

// GdbRegisterDescriptor maps one GDB register number to either a
// target register, or to the program counter / stack pointer, which
// route through the TargetController's dedicated PC/SP operations
// instead of generic register I/O (per the g/p/P handler
// contracts).
type GdbRegisterDescriptor struct {
	Number    GdbRegisterNumber
	SizeBytes int
	Register  *RegisterDescriptor // nil for IsPC or IsSP
	IsPC      bool
	IsSP      bool
}

// GdbTargetDescriptor is the family-specific adapter built once per
// debug session after target activation: cached references into the
// TargetDescriptor, the ordered GDB register map, and the address
// translator.
type GdbTargetDescriptor struct {
	Family  arch.Family
	Arch    arch.Architecture
	Target  *TargetDescriptor
	Program *AddressSpaceDescriptor
	Data    *AddressSpaceDescriptor // SRAM address space on AVR; same as Program on RISC-V

	// RegisterMap is ordered ascending by Number and must be
	// contiguous from 0.
	RegisterMap []GdbRegisterDescriptor

	Translator AddressTranslator
}

// GdbRegister looks up a GDB register map entry by number.
func (d *GdbTargetDescriptor) GdbRegister(n GdbRegisterNumber) (GdbRegisterDescriptor, bool) {
	if int(n) < 0 || int(n) >= len(d.RegisterMap) {
		return GdbRegisterDescriptor{}, false
	}
	return d.RegisterMap[n], true
}

// NewAVRGdbTargetDescriptor builds the GDB adapter for a classic AVR
// target. programSpaceKey, sramSpaceKey and eepromSpaceKey name the
// address spaces within td; gprKeys is the 32 general-purpose register
// keys (r0..r31) in order, statusKey/spKey name the status and stack
// pointer registers within sramSpaceKey, grounded on the "AVR:
// 0..31 = GPRs, 32 = status, 33 = SP, 34 = PC" register numbering.
func NewAVRGdbTargetDescriptor(
	td *TargetDescriptor,
	programSpaceKey, sramSpaceKey, eepromSpaceKey string,
	gprKeys [32]string,
	statusKey, spKey string,
) (*GdbTargetDescriptor, error) {
	program, ok := td.AddressSpace(programSpaceKey)
	if !ok {
		return nil, fmt.Errorf("target: no such address space %q", programSpaceKey)
	}
	sram, ok := td.AddressSpace(sramSpaceKey)
	if !ok {
		return nil, fmt.Errorf("target: no such address space %q", sramSpaceKey)
	}
	eeprom, ok := td.AddressSpace(eepromSpaceKey)
	if !ok {
		return nil, fmt.Errorf("target: no such address space %q", eepromSpaceKey)
	}

	regMap := make([]GdbRegisterDescriptor, 0, 35)
	for i, key := range gprKeys {
		reg, ok := td.RegisterByKey(fmt.Sprintf("%s.%s", sramSpaceKey, key))
		if !ok {
			return nil, fmt.Errorf("target: no such GPR register %q (gdb r%d)", key, i)
		}
		regMap = append(regMap, GdbRegisterDescriptor{
			Number:    GdbRegisterNumber(i),
			SizeBytes: 1,
			Register:  reg,
		})
	}

	status, ok := td.RegisterByKey(fmt.Sprintf("%s.%s", sramSpaceKey, statusKey))
	if !ok {
		return nil, fmt.Errorf("target: no such status register %q", statusKey)
	}
	regMap = append(regMap, GdbRegisterDescriptor{Number: 32, SizeBytes: 1, Register: status})

	sp, ok := td.RegisterByKey(fmt.Sprintf("%s.%s", sramSpaceKey, spKey))
	if !ok {
		return nil, fmt.Errorf("target: no such stack-pointer register %q", spKey)
	}
	regMap = append(regMap, GdbRegisterDescriptor{Number: 33, SizeBytes: 2, Register: sp, IsSP: true})

	regMap = append(regMap, GdbRegisterDescriptor{Number: 34, SizeBytes: 4, IsPC: true})

	translator := &AVRAddressTranslator{
		Program: program,
		SRAM:    sram,
		EEPROM:  eeprom,
	}

	return &GdbTargetDescriptor{
		Family:      arch.AVR,
		Arch:        arch.ForFamily(arch.AVR),
		Target:      td,
		Program:     program,
		Data:        sram,
		RegisterMap: regMap,
		Translator:  translator,
	}, nil
}

// NewRISCVGdbTargetDescriptor builds the GDB adapter for a flat
// RISC-V system address space. gprKeys is x0..x31 (GDB numbers 0..31),
// pc is mapped last at GDB number 32, matching upstream RISC-V GDB's
// register numbering (no separate SP number: x2 is both a GPR and the
// ABI stack pointer).
func NewRISCVGdbTargetDescriptor(
	td *TargetDescriptor,
	systemSpaceKey string,
	gprKeys [32]string,
	spGPRIndex int,
) (*GdbTargetDescriptor, error) {
	system, ok := td.AddressSpace(systemSpaceKey)
	if !ok {
		return nil, fmt.Errorf("target: no such address space %q", systemSpaceKey)
	}

	regMap := make([]GdbRegisterDescriptor, 0, 33)
	for i, key := range gprKeys {
		reg, ok := td.RegisterByKey(fmt.Sprintf("%s.%s", systemSpaceKey, key))
		if !ok {
			return nil, fmt.Errorf("target: no such GPR register %q (gdb x%d)", key, i)
		}
		regMap = append(regMap, GdbRegisterDescriptor{
			Number:    GdbRegisterNumber(i),
			SizeBytes: 4,
			Register:  reg,
			IsSP:      i == spGPRIndex,
		})
	}
	regMap = append(regMap, GdbRegisterDescriptor{Number: GdbRegisterNumber(len(gprKeys)), SizeBytes: 4, IsPC: true})

	translator := &RISCVAddressTranslator{System: system}

	return &GdbTargetDescriptor{
		Family:      arch.RISCV,
		Arch:        arch.ForFamily(arch.RISCV),
		Target:      td,
		Program:     system,
		Data:        system,
		RegisterMap: regMap,
		Translator:  translator,
	}, nil
}
