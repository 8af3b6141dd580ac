package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/embedded-tools/gdbrspd/internal/target"
)

// buildMemoryMapXML renders the qXfer:memory-map:read payload: one
// <memory> element per segment GDB can sensibly treat as addressable
// storage, in the session's GDB address space.
func (ds *DebugSession) buildMemoryMapXML() string {
	type entry struct {
		gdbStart uint64
		length   uint64
		kind     string
		pageSize uint64
	}
	var entries []entry

	for _, as := range ds.Target.Target.AddressSpaces {
		for _, seg := range as.Segments {
			seg := seg
			kind, ok := memoryMapKind(seg.Type)
			if !ok {
				continue
			}
			gdbStart, err := ds.Target.Translator.ToGdb(seg.AddressRange.Start, as, &seg)
			if err != nil {
				continue
			}
			entries = append(entries, entry{gdbStart: gdbStart, length: seg.Size(), kind: kind, pageSize: seg.PageSize})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].gdbStart < entries[j].gdbStart })

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?>`)
	sb.WriteString(`<!DOCTYPE memory-map PUBLIC "+//IDN gnu.org//DTD GDB Memory Map V1.0//EN" "http://sourceware.org/gdb/gdb-memory-map.dtd">`)
	sb.WriteString("<memory-map>")
	for _, e := range entries {
		if e.kind == "flash" && e.pageSize > 0 {
			fmt.Fprintf(&sb, `<memory type="flash" start="0x%x" length="0x%x"><property name="blocksize">0x%x</property></memory>`, e.gdbStart, e.length, e.pageSize)
		} else {
			fmt.Fprintf(&sb, `<memory type="%s" start="0x%x" length="0x%x"/>`, e.kind, e.gdbStart, e.length)
		}
	}
	sb.WriteString("</memory-map>")
	return sb.String()
}

func memoryMapKind(t target.SegmentType) (string, bool) {
	switch t {
	case target.SegmentFlash:
		return "flash", true
	case target.SegmentRAM, target.SegmentEEPROM:
		return "ram", true
	default:
		return "", false
	}
}
