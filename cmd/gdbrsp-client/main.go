// The gdbrsp-client command is a manual RSP test harness: it dials a
// gdbrspd daemon over TCP and offers a readline prompt for typing raw
// RSP command bodies ("m0,4", "Z0,200,2", "qRcmd,68656c70", ...),
// printing the decoded reply. It exists so the wire protocol can be
// exercised by a human operator without a real gdb binary on hand, the
// same role gdb/lldb itself plays against a production target.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:2331", "gdbrspd daemon address to dial")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("gdbrsp-client: dial %s: %v", *addr, err)
	}
	defer conn.Close()

	historyFile := historyFilePath()
	rdline, err := readline.NewEx(&readline.Config{
		Prompt:      "(gdbrsp) ",
		HistoryFile: historyFile,
	})
	if err != nil {
		log.Fatalf("gdbrsp-client: %v", err)
	}
	defer rdline.Close()

	fmt.Println("connected to", *addr)
	fmt.Println("type a command body (without the leading $ or trailing checksum), e.g. \"?\" or \"m0,4\"")

	c := &client{conn: conn}
	for {
		line, err := rdline.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			fmt.Println("exiting.")
			return
		}
		if err != nil {
			log.Fatalf("gdbrsp-client: %v", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		reply, err := c.send(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("-> %s\n", reply)
	}
}

func historyFilePath() string {
	u, err := user.Current()
	if err != nil || u.HomeDir == "" {
		return ""
	}
	return u.HomeDir + "/.gdbrsp-client.history"
}

// client sends one raw RSP command body at a time and reads back the
// ack byte plus the response frame. It does not do the full
// checksummed retransmit dance internal/rsp implements on the server
// side: a manual test tool is allowed to be a little less forgiving
// of a bad link than the production codec.
type client struct {
	conn net.Conn
}

func (c *client) send(body string) (string, error) {
	frame := encodeFrame(body)
	if _, err := c.conn.Write(frame); err != nil {
		return "", err
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer c.conn.SetReadDeadline(time.Time{})

	ack := make([]byte, 1)
	if _, err := io.ReadFull(c.conn, ack); err != nil {
		return "", fmt.Errorf("reading ack: %w", err)
	}
	if ack[0] == '-' {
		return "", fmt.Errorf("server nacked the frame (bad checksum on our end)")
	}

	payload, err := readFrame(c.conn)
	if err != nil {
		return "", err
	}

	// Acknowledge the server's response so it doesn't spend its
	// retransmit budget waiting on us.
	if _, err := c.conn.Write([]byte{'+'}); err != nil {
		return "", err
	}
	return payload, nil
}

func encodeFrame(body string) []byte {
	sum := checksum(body)
	return []byte(fmt.Sprintf("$%s#%02x", body, sum))
}

func checksum(body string) byte {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum += body[i]
	}
	return sum
}

// readFrame reads one "$payload#xx" frame, unescaping '}'-prefixed
// bytes, and returns the decoded payload.
func readFrame(r io.Reader) (string, error) {
	buf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		if buf[0] == '$' {
			break
		}
	}

	var out []byte
	escaped := false
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		b := buf[0]
		if escaped {
			out = append(out, b^0x20)
			escaped = false
			continue
		}
		if b == '}' {
			escaped = true
			continue
		}
		if b == '#' {
			break
		}
		out = append(out, b)
	}
	// Trailing two checksum hex digits; not re-verified by this manual
	// client, only drained off the wire.
	if _, err := io.ReadFull(r, make([]byte, 2)); err != nil {
		return "", err
	}
	return string(out), nil
}
