package arch

import "testing"

func TestEncodeDecodeRegisterRoundtrip(t *testing.T) {
	cases := []struct {
		value uint64
		size  int
	}{
		{0x12, 1},
		{0x1234, 2},
		{0x12345678, 4},
		{0x0102030405060708, 8},
	}
	for _, c := range cases {
		buf := EncodeRegister(c.value, c.size)
		if len(buf) != c.size {
			t.Fatalf("EncodeRegister(%x, %d) produced %d bytes", c.value, c.size, len(buf))
		}
		if got := DecodeRegister(buf); got != c.value {
			t.Fatalf("DecodeRegister(EncodeRegister(%x)) = %x", c.value, got)
		}
	}
}

func TestEncodeRegisterLittleEndian(t *testing.T) {
	buf := EncodeRegister(0x12345678, 4)
	want := []byte{0x78, 0x56, 0x34, 0x12}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("EncodeRegister not little-endian: got %x, want %x", buf, want)
		}
	}
}

func TestAVRRjmpUnsafe(t *testing.T) {
	// RJMP .+0 : 1100 0000 0000 0000 = 0xC000, stored little-endian.
	buf := []byte{0x00, 0xC0}
	safe, size := avrIsSafeInstruction(buf)
	if safe {
		t.Fatalf("RJMP classified safe")
	}
	if size != 2 {
		t.Fatalf("RJMP size = %d, want 2", size)
	}
}

func TestAVRNopSafe(t *testing.T) {
	// NOP: 0x0000.
	buf := []byte{0x00, 0x00}
	safe, size := avrIsSafeInstruction(buf)
	if !safe {
		t.Fatalf("NOP classified unsafe")
	}
	if size != 2 {
		t.Fatalf("NOP size = %d, want 2", size)
	}
}

func TestAVRRetUnsafe(t *testing.T) {
	// RET: 0x9508.
	buf := []byte{0x08, 0x95}
	if safe, _ := avrIsSafeInstruction(buf); safe {
		t.Fatalf("RET classified safe")
	}
}

func TestAVRShortBufferUnsafe(t *testing.T) {
	if safe, size := avrIsSafeInstruction([]byte{0x01}); safe || size != 0 {
		t.Fatalf("1-byte buffer should be unsafe with size 0, got safe=%v size=%d", safe, size)
	}
}

func TestRISCVAlwaysUnsafe(t *testing.T) {
	// RISC-V range-stepping always single-steps; riscvIsSafeInstruction
	// must never report safe regardless of opcode.
	opcodes := [][]byte{
		{0x13, 0x00, 0x00, 0x00}, // ADDI x0,x0,0 (NOP), 32-bit
		{0x01, 0x00},             // C.NOP, compressed
	}
	for _, op := range opcodes {
		if safe, _ := riscvIsSafeInstruction(op); safe {
			t.Fatalf("riscvIsSafeInstruction(%x) reported safe", op)
		}
	}
}

func TestForFamily(t *testing.T) {
	if ForFamily(AVR).Family != AVR {
		t.Fatal("ForFamily(AVR) mismatch")
	}
	if ForFamily(RISCV).Family != RISCV {
		t.Fatal("ForFamily(RISCV) mismatch")
	}
}
