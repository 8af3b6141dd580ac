package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/embedded-tools/gdbrspd/internal/monitor"
)

// handleQSupported completes the feature-negotiation handshake. Per
// The session is only usable if the client advertises
// either swbreak+ or hwbreak+ (i.e. it understands stop-reply
// breakpoint reason annotations); anything else ends the session, the
// same as a disconnect.
func (ds *DebugSession) handleQSupported(ctx context.Context, payload []byte) error {
	body := strings.TrimPrefix(string(payload), "qSupported")
	body = strings.TrimPrefix(body, ":")
	features := strings.Split(body, ";")
	ok := false
	for _, f := range features {
		if f == "swbreak+" || f == "hwbreak+" {
			ok = true
			break
		}
	}
	if !ok {
		_ = ds.replyText(fmt.Sprintf("PacketSize=%x", gdbPacketSize))
		return &NotSupportedError{Err: fmt.Errorf("session: client advertised neither swbreak+ nor hwbreak+")}
	}
	return ds.replyText(fmt.Sprintf(
		"PacketSize=%x;swbreak+;hwbreak+;qXfer:memory-map:read+;vContSupported+",
		gdbPacketSize,
	))
}

func (ds *DebugSession) handleQAttached(ctx context.Context, payload []byte) error {
	return ds.replyText("1")
}

// handleQXferMemoryMap serves qXfer:memory-map:read::offset,length,
// building the XML document once per session and slicing it to the
// requested offset/length window, with an "l" final-chunk marker when
// the slice reaches the end of the document.
func (ds *DebugSession) handleQXferMemoryMap(ctx context.Context, payload []byte) error {
	if ds.memoryMapXML == "" {
		ds.memoryMapXML = ds.buildMemoryMapXML()
	}
	body := strings.TrimPrefix(string(payload), "qXfer:memory-map:read:")
	_, rangeArgs, ok := strings.Cut(body, ":")
	if !ok {
		return ds.replyError(1)
	}
	offsetStr, lengthStr, ok := strings.Cut(rangeArgs, ",")
	if !ok {
		return ds.replyError(1)
	}
	offset, err := parseHexUint(offsetStr)
	if err != nil {
		return ds.replyError(1)
	}
	length, err := parseHexUint(lengthStr)
	if err != nil {
		return ds.replyError(1)
	}

	xml := ds.memoryMapXML
	if offset >= uint64(len(xml)) {
		return ds.replyText("l")
	}
	end := offset + length
	last := false
	if end >= uint64(len(xml)) {
		end = uint64(len(xml))
		last = true
	}
	prefix := "m"
	if last {
		prefix = "l"
	}
	return ds.replyText(prefix + xml[offset:end])
}

// handleQRcmd decodes the hex-encoded monitor command and dispatches
// it through the internal/monitor package, relaying its text output as
// one or more 'O' packets followed by a final status reply.
func (ds *DebugSession) handleQRcmd(ctx context.Context, payload []byte) error {
	hexCmd := strings.TrimPrefix(string(payload), "qRcmd,")
	raw, err := decodeHex(hexCmd)
	if err != nil {
		return ds.replyError(1)
	}
	fields := strings.Fields(string(raw))

	output, derr := monitor.Dispatch(ctx, ds, fields)
	if output != "" {
		if err := ds.replyText("O" + encodeHex([]byte(output))); err != nil {
			return err
		}
	}
	if derr != nil {
		// Every monitor-command failure, whether a bad argument or a
		// TargetController error surfaced through it, is reported as
		// human-readable text; the connection stays open.
		optErr := &InvalidOptionError{Err: derr}
		ds.Logger.Printf("session: %v", optErr)
		if err := ds.replyText("O" + encodeHex([]byte(optErr.Error()+"\n"))); err != nil {
			return err
		}
		return ds.replyOK()
	}
	return ds.replyOK()
}
