package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/embedded-tools/gdbrspd/internal/target"
)

// targetConfig is the on-disk JSON shape of a target-descriptor file,
// the concrete form the CLI defers to "the surrounding program" for
// supplying a TargetDescriptor. It mirrors target.AddressSpaceDescriptor/
// SegmentDescriptor/RegisterDescriptor field-for-field rather than
// introducing a second vocabulary to keep in sync.
type targetConfig struct {
	Family        string               `json:"family"`
	AddressSpaces []addressSpaceConfig `json:"addressSpaces"`
	Registers     []registerConfig     `json:"registers"`

	// AVR wiring.
	ProgramSpace string      `json:"programSpace,omitempty"`
	SRAMSpace    string      `json:"sramSpace,omitempty"`
	EEPROMSpace  string      `json:"eepromSpace,omitempty"`
	GPRKeys      [32]string  `json:"gprKeys,omitempty"`
	StatusKey    string      `json:"statusKey,omitempty"`
	SPKey        string      `json:"spKey,omitempty"`

	// RISC-V wiring.
	SystemSpace string `json:"systemSpace,omitempty"`
	SPGPRIndex  int    `json:"spGprIndex,omitempty"`
}

type addressSpaceConfig struct {
	Key       string          `json:"key"`
	ID        uint8           `json:"id"`
	BigEndian bool            `json:"bigEndian,omitempty"`
	Segments  []segmentConfig `json:"segments"`
}

type segmentConfig struct {
	Key                   string `json:"key"`
	Name                  string `json:"name,omitempty"`
	Type                  string `json:"type"`
	Start                 uint64 `json:"start"`
	End                   uint64 `json:"end"`
	PageSize              uint64 `json:"pageSize,omitempty"`
	DebugReadable         bool   `json:"debugReadable,omitempty"`
	DebugWritable         bool   `json:"debugWritable,omitempty"`
	ProgrammingReadable   bool   `json:"programmingReadable,omitempty"`
	ProgrammingWritable   bool   `json:"programmingWritable,omitempty"`
}

type registerConfig struct {
	ID              uint32                    `json:"id"`
	Key             string                    `json:"key"`
	Name            string                    `json:"name,omitempty"`
	AddressSpaceKey string                    `json:"addressSpaceKey"`
	StartAddress    uint64                    `json:"startAddress"`
	Size            uint64                    `json:"size"`
	BitFields       map[string]bitFieldConfig `json:"bitFields,omitempty"`
}

type bitFieldConfig struct {
	Name        string `json:"name,omitempty"`
	Mask        uint64 `json:"mask"`
	Description string `json:"description,omitempty"`
}

func segmentType(s string) (target.SegmentType, error) {
	switch s {
	case "flash":
		return target.SegmentFlash, nil
	case "ram":
		return target.SegmentRAM, nil
	case "eeprom":
		return target.SegmentEEPROM, nil
	case "io":
		return target.SegmentIO, nil
	case "aliased":
		return target.SegmentAliased, nil
	case "fuses":
		return target.SegmentFuses, nil
	default:
		return 0, fmt.Errorf("config: unknown segment type %q", s)
	}
}

func loadTargetConfig(path string) (*target.GdbTargetDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg targetConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg.build()
}

func (cfg *targetConfig) build() (*target.GdbTargetDescriptor, error) {
	addressSpaces := make([]*target.AddressSpaceDescriptor, 0, len(cfg.AddressSpaces))
	for _, asc := range cfg.AddressSpaces {
		segs := make(map[string]target.SegmentDescriptor, len(asc.Segments))
		for _, sc := range asc.Segments {
			typ, err := segmentType(sc.Type)
			if err != nil {
				return nil, err
			}
			segs[sc.Key] = target.SegmentDescriptor{
				Key:          sc.Key,
				Name:         sc.Name,
				Type:         typ,
				AddressRange: target.AddressRange{Start: sc.Start, End: sc.End},
				DebugModeAccess: target.MemoryAccess{
					Readable: sc.DebugReadable, Writable: sc.DebugWritable,
				},
				ProgrammingModeAccess: target.MemoryAccess{
					Readable: sc.ProgrammingReadable, Writable: sc.ProgrammingWritable,
				},
				PageSize: sc.PageSize,
			}
		}
		addressSpaces = append(addressSpaces, &target.AddressSpaceDescriptor{
			ID: target.AddressSpaceID(asc.ID), Key: asc.Key, BigEndian: asc.BigEndian, Segments: segs,
		})
	}

	registers := make([]*target.RegisterDescriptor, 0, len(cfg.Registers))
	for _, rc := range cfg.Registers {
		bitFields := make(map[string]target.BitFieldDescriptor, len(rc.BitFields))
		for key, bf := range rc.BitFields {
			bitFields[key] = target.BitFieldDescriptor{Key: key, Name: bf.Name, Mask: bf.Mask, Description: bf.Description}
		}
		registers = append(registers, &target.RegisterDescriptor{
			ID: target.RegisterID(rc.ID), Key: rc.Key, Name: rc.Name,
			AddressSpaceKey: rc.AddressSpaceKey, StartAddress: rc.StartAddress, Size: rc.Size,
			BitFields: bitFields,
		})
	}

	td := target.NewTargetDescriptor(addressSpaces, registers)

	switch cfg.Family {
	case "avr":
		return target.NewAVRGdbTargetDescriptor(td, cfg.ProgramSpace, cfg.SRAMSpace, cfg.EEPROMSpace, cfg.GPRKeys, cfg.StatusKey, cfg.SPKey)
	case "riscv":
		var gprKeys [32]string
		copy(gprKeys[:], cfg.GPRKeys[:])
		return target.NewRISCVGdbTargetDescriptor(td, cfg.SystemSpace, gprKeys, cfg.SPGPRIndex)
	default:
		return nil, fmt.Errorf("config: unknown target family %q (want \"avr\" or \"riscv\")", cfg.Family)
	}
}
