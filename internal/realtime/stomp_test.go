package realtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameEncodeDecodeRoundTrip(t *testing.T) {
	in := frame{
		command: cmdSend,
		headers: map[string]string{
			"destination":  "/app/chat.send/r1",
			"content-type": "application/json",
		},
		body: []byte(`{"messageText":"hi"}`),
	}

	out, err := decodeFrame(in.encode())
	require.NoError(t, err)
	require.Equal(t, cmdSend, out.command)
	require.Equal(t, "/app/chat.send/r1", out.headers["destination"])
	require.Equal(t, in.body, out.body)
}

func TestHeaderEscaping(t *testing.T) {
	in := frame{
		command: cmdMessage,
		headers: map[string]string{"subscription": "a:b\nc\\d"},
	}
	out, err := decodeFrame(in.encode())
	require.NoError(t, err)
	require.Equal(t, "a:b\nc\\d", out.headers["subscription"])
}

func TestDecodeAcceptsCRLFLineEndings(t *testing.T) {
	raw := []byte("CONNECTED\r\nversion:1.2\r\nheart-beat:0,0\r\n\r\n\x00")
	f, err := decodeFrame(raw)
	require.NoError(t, err)
	require.Equal(t, cmdConnected, f.command)
	require.Equal(t, "1.2", f.headers["version"])
	require.Equal(t, "0,0", f.headers["heart-beat"])
	require.Empty(t, f.body)

	raw = []byte("MESSAGE\r\ndestination:/topic/room/r1\r\n\r\n{\"id\":\"m1\"}\x00")
	f, err = decodeFrame(raw)
	require.NoError(t, err)
	require.Equal(t, cmdMessage, f.command)
	require.Equal(t, []byte(`{"id":"m1"}`), f.body)
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	_, err := decodeFrame([]byte("MESSAGE\nno-terminator"))
	require.Error(t, err)

	_, err = decodeFrame([]byte("MESSAGE\nbadheader\n\nbody\x00"))
	require.Error(t, err)
}

func TestFirstHeaderOccurrenceWins(t *testing.T) {
	raw := []byte("MESSAGE\ndestination:/topic/room/r1\ndestination:/topic/room/r2\n\n\x00")
	f, err := decodeFrame(raw)
	require.NoError(t, err)
	require.Equal(t, "/topic/room/r1", f.headers["destination"])
}

func TestHeartbeatDetection(t *testing.T) {
	require.True(t, isHeartbeat([]byte("\n")))
	require.True(t, isHeartbeat([]byte("\r\n")))
	require.False(t, isHeartbeat([]byte("MESSAGE\n\n\x00")))
}

func TestParseHeartbeat(t *testing.T) {
	sx, sy := parseHeartbeat("4000,5000")
	require.EqualValues(t, 4000, sx)
	require.EqualValues(t, 5000, sy)

	sx, sy = parseHeartbeat("garbage")
	require.Zero(t, sx)
	require.Zero(t, sy)
}
