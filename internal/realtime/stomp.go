package realtime

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Minimal STOMP 1.2 framing, enough to talk to the backend broker:
// CONNECT/CONNECTED, SUBSCRIBE, SEND, MESSAGE, ERROR, and heartbeats.

const (
	cmdConnect   = "CONNECT"
	cmdConnected = "CONNECTED"
	cmdSubscribe = "SUBSCRIBE"
	cmdSend      = "SEND"
	cmdMessage   = "MESSAGE"
	cmdError     = "ERROR"
)

type frame struct {
	command string
	headers map[string]string
	body    []byte
}

// encode renders the frame as COMMAND, header lines, blank line, body,
// NUL terminator.
func (f frame) encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.command)
	buf.WriteByte('\n')
	for k, v := range f.headers {
		buf.WriteString(escapeHeader(k))
		buf.WriteByte(':')
		buf.WriteString(escapeHeader(v))
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// isHeartbeat reports whether raw is a STOMP heartbeat (EOL only).
func isHeartbeat(raw []byte) bool {
	return len(bytes.TrimRight(bytes.TrimRight(raw, "\x00"), "\r\n")) == 0
}

func decodeFrame(raw []byte) (frame, error) {
	raw = bytes.TrimSuffix(raw, []byte{0})
	// STOMP 1.2 allows CRLF line endings; the body is taken verbatim, so
	// only the blank-line terminator needs both forms.
	head, body, found := bytes.Cut(raw, []byte("\n\n"))
	if !found {
		head, body, found = bytes.Cut(raw, []byte("\r\n\r\n"))
	}
	if !found {
		return frame{}, fmt.Errorf("frame has no header terminator")
	}

	lines := strings.Split(strings.TrimRight(string(head), "\r\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return frame{}, fmt.Errorf("frame has no command")
	}

	f := frame{
		command: strings.TrimRight(lines[0], "\r"),
		headers: make(map[string]string, len(lines)-1),
		body:    body,
	}
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return frame{}, fmt.Errorf("malformed header line %q", line)
		}
		// First occurrence wins per the STOMP spec.
		key := unescapeHeader(k)
		if _, seen := f.headers[key]; !seen {
			f.headers[key] = unescapeHeader(v)
		}
	}
	return f, nil
}

var headerEscaper = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`, ":", `\c`)

var headerUnescaper = strings.NewReplacer(`\r`, "\r", `\n`, "\n", `\c`, ":", `\\`, `\`)

func escapeHeader(s string) string   { return headerEscaper.Replace(s) }
func unescapeHeader(s string) string { return headerUnescaper.Replace(s) }

// parseHeartbeat parses a heart-beat header ("sx,sy") into millisecond
// values; zero disables the respective direction.
func parseHeartbeat(value string) (sx, sy int64) {
	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	sx, _ = strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	sy, _ = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	return sx, sy
}
