package session

import "testing"

func TestProgrammingSessionAppendGapFill(t *testing.T) {
	p := &ProgrammingSession{}
	if err := p.Append(0, []byte{0xDE, 0xAD, 0xBE, 0xEF}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := p.Append(6, []byte{0xCA, 0xFE}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0xFF, 0xFF, 0xCA, 0xFE}
	if string(p.Buffer) != string(want) {
		t.Fatalf("Buffer = % x, want % x", p.Buffer, want)
	}
	if p.StartAddress != 0 {
		t.Fatalf("StartAddress = %d, want 0", p.StartAddress)
	}
}

func TestProgrammingSessionOverlapIsError(t *testing.T) {
	p := &ProgrammingSession{}
	if err := p.Append(0x10, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := p.Append(0x11, []byte{5, 6}); err == nil {
		t.Fatal("expected an overlap error")
	}
}

func TestProgrammingSessionFirstWriteSetsStart(t *testing.T) {
	p := &ProgrammingSession{}
	if err := p.Append(0x1000, []byte{1, 2}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if p.StartAddress != 0x1000 {
		t.Fatalf("StartAddress = %x, want 0x1000", p.StartAddress)
	}
}
