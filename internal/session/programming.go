package session

import "fmt"

// ProgrammingSession accumulates vFlashWrite chunks into one
// contiguous buffer ahead of a vFlashDone: writes must
// arrive in non-decreasing address order; a gap between the previous
// chunk's end and the next one's start is filled with 0xFF (flash's
// erased-state byte) rather than rejected, and any address that goes
// backwards over already-buffered bytes is an overlap error.
type ProgrammingSession struct {
	StartAddress uint64
	Buffer       []byte
}

// end returns the native address just past the last buffered byte.
func (p *ProgrammingSession) end() uint64 {
	return p.StartAddress + uint64(len(p.Buffer))
}

// Append adds a chunk at addr. It is the caller's responsibility to
// have translated addr into the same native address space the session
// was started in.
func (p *ProgrammingSession) Append(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if len(p.Buffer) == 0 {
		p.StartAddress = addr
		p.Buffer = append(p.Buffer, data...)
		return nil
	}
	next := p.end()
	if addr < next {
		return fmt.Errorf("session: vFlashWrite at 0x%x overlaps already-buffered data ending at 0x%x", addr, next-1)
	}
	if addr > next {
		gap := make([]byte, addr-next)
		for i := range gap {
			gap[i] = 0xFF
		}
		p.Buffer = append(p.Buffer, gap...)
	}
	p.Buffer = append(p.Buffer, data...)
	return nil
}
