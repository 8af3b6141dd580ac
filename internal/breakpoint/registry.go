// Package breakpoint implements the two-level breakpoint bookkeeping
// map: a Registry keyed first by address-space id, then by address,
// holding one target.ProgramBreakpoint per slot.
package breakpoint

import (
	"sort"

	"github.com/embedded-tools/gdbrspd/internal/target"
)

// Registry is the two-level address-space→address→breakpoint map a
// DebugSession owns for the GDB-requested ("external") breakpoints,
// per the BreakpointRegistry entity. It is not safe for
// concurrent use: the owning session thread alone touches it.
type Registry struct {
	byAddressSpace map[target.AddressSpaceID]map[uint64]target.ProgramBreakpoint
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byAddressSpace: make(map[target.AddressSpaceID]map[uint64]target.ProgramBreakpoint)}
}

// Insert records bp, keyed by its AddressSpaceID and Address. A second
// Insert at the same (AddressSpaceID, Address) replaces the first,
// matching the registry's "at most one breakpoint per
// (addressSpaceId,address)" invariant.
func (r *Registry) Insert(bp target.ProgramBreakpoint) {
	byAddr, ok := r.byAddressSpace[bp.AddressSpaceID]
	if !ok {
		byAddr = make(map[uint64]target.ProgramBreakpoint)
		r.byAddressSpace[bp.AddressSpaceID] = byAddr
	}
	byAddr[bp.Address] = bp
}

// RemoveByAddress removes any breakpoint at (asID, address). It is a
// no-op if none is present, matching the "a second z0 on an
// unknown breakpoint still responds OK" requirement.
func (r *Registry) RemoveByAddress(asID target.AddressSpaceID, address uint64) {
	byAddr, ok := r.byAddressSpace[asID]
	if !ok {
		return
	}
	delete(byAddr, address)
}

// Remove removes bp by its (AddressSpaceID, Address).
func (r *Registry) Remove(bp target.ProgramBreakpoint) {
	r.RemoveByAddress(bp.AddressSpaceID, bp.Address)
}

// Find looks up the breakpoint at (asID, address).
func (r *Registry) Find(asID target.AddressSpaceID, address uint64) (target.ProgramBreakpoint, bool) {
	byAddr, ok := r.byAddressSpace[asID]
	if !ok {
		return target.ProgramBreakpoint{}, false
	}
	bp, ok := byAddr[address]
	return bp, ok
}

// Contains reports whether a breakpoint is registered at (asID, address).
func (r *Registry) Contains(asID target.AddressSpaceID, address uint64) bool {
	_, ok := r.Find(asID, address)
	return ok
}

// Size returns the total number of breakpoints across all address
// spaces.
func (r *Registry) Size() int {
	n := 0
	for _, byAddr := range r.byAddressSpace {
		n += len(byAddr)
	}
	return n
}

// All returns every registered breakpoint across every address space,
// ordered first by AddressSpaceID then by Address, for deterministic
// iteration (e.g. when reinstalling breakpoints after a flash write).
func (r *Registry) All() []target.ProgramBreakpoint {
	out := make([]target.ProgramBreakpoint, 0, r.Size())
	for _, byAddr := range r.byAddressSpace {
		for _, bp := range byAddr {
			out = append(out, bp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddressSpaceID != out[j].AddressSpaceID {
			return out[i].AddressSpaceID < out[j].AddressSpaceID
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// InAddressSpace returns every breakpoint registered within one
// address space, ordered ascending by address.
func (r *Registry) InAddressSpace(asID target.AddressSpaceID) []target.ProgramBreakpoint {
	byAddr, ok := r.byAddressSpace[asID]
	if !ok {
		return nil
	}
	out := make([]target.ProgramBreakpoint, 0, len(byAddr))
	for _, bp := range byAddr {
		out = append(out, bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Clear removes every breakpoint from the registry. The session's
// flash-programming path does not call it: it keeps the registry's
// entries while the breakpoints are lifted from the target and
// reinstalls them from those entries after vFlashDone.
func (r *Registry) Clear() {
	r.byAddressSpace = make(map[target.AddressSpaceID]map[uint64]target.ProgramBreakpoint)
}
