package session

import (
	"context"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		payload string
		want    Kind
	}{
		{"?", KindHaltReason},
		{"D", KindDetach},
		{"g", KindReadRegisters},
		{"G0011", KindWriteRegisters},
		{"p0", KindReadRegister},
		{"P0=11", KindWriteRegister},
		{"m0,4", KindReadMemory},
		{"M0,2:1122", KindWriteMemory},
		{"vFlashErase:0,100", KindFlashErase},
		{"vFlashWrite:0:abcd", KindFlashWrite},
		{"vFlashDone", KindFlashDone},
		{"Z0,200,2", KindSetBreakpoint},
		{"Z1,200,2", KindSetBreakpoint},
		{"z0,200,2", KindRemoveBreakpoint},
		{"vCont?", KindVContQuery},
		{"vCont;c", KindVCont},
		{"vCont;r,0,10", KindVCont},
		{"c", KindContinue},
		{"s", KindStep},
		{"qSupported:multiprocess+", KindQSupported},
		{"qAttached", KindQAttached},
		{"qXfer:memory-map:read::0,100", KindQXferMemoryMap},
		{"qRcmd,68656c70", KindQRcmd},
		{"QStartNoAckMode", KindStartNoAckMode},
		{"vUnknownThing", KindUnknown},
	}
	for _, c := range cases {
		if got := classify([]byte(c.payload)); got != c.want {
			t.Errorf("classify(%q) = %v, want %v", c.payload, got, c.want)
		}
	}
}

func TestHandleHaltReasonRepliesTrap(t *testing.T) {
	ds, _, out := newTestSession(t, 2)
	if err := ds.handleHaltReason(context.Background(), []byte("?")); err != nil {
		t.Fatalf("handleHaltReason: %v", err)
	}
	got := <-out
	if string(got) != "T05" {
		t.Fatalf("reply = %q, want %q", got, "T05")
	}
}
