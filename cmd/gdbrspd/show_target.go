package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newShowTargetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-target",
		Short: "Load a target descriptor JSON file and print its address spaces, segments, and registers",
		RunE:  runShowTarget,
	}
	cmd.Flags().String("target", "", "path to a target descriptor JSON file (required)")
	cmd.MarkFlagRequired("target")
	return cmd
}

func runShowTarget(cmd *cobra.Command, args []string) error {
	targetPath, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	td, err := loadTargetConfig(targetPath)
	if err != nil {
		return err
	}

	fmt.Printf("family: %s\n", td.Family)
	keys := make([]string, 0, len(td.Target.AddressSpaces))
	for key := range td.Target.AddressSpaces {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		as := td.Target.AddressSpaces[key]
		fmt.Printf("address space %q (id %d):\n", as.Key, as.ID)
		segKeys := make([]string, 0, len(as.Segments))
		for k := range as.Segments {
			segKeys = append(segKeys, k)
		}
		sort.Strings(segKeys)
		for _, k := range segKeys {
			seg := as.Segments[k]
			fmt.Printf("  segment %q: %s [0x%x,0x%x] debug(r=%v w=%v) programming(r=%v w=%v)\n",
				seg.Key, seg.Type, seg.AddressRange.Start, seg.AddressRange.End,
				seg.DebugModeAccess.Readable, seg.DebugModeAccess.Writable,
				seg.ProgrammingModeAccess.Readable, seg.ProgrammingModeAccess.Writable)
		}
	}

	regs := td.Target.AllRegisters()
	sort.Slice(regs, func(i, j int) bool { return regs[i].Key < regs[j].Key })
	for _, r := range regs {
		fmt.Printf("register %q: %s.0x%x (%d bytes)\n", r.Key, r.AddressSpaceKey, r.StartAddress, r.Size)
	}
	fmt.Printf("gdb register map: %d entries\n", len(td.RegisterMap))
	return nil
}
