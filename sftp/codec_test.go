package sftp

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderCursorRoundTrip(t *testing.T) {
	pkt := newBuilder(fxpOpen).
		putUint32(42).
		putString("/home/user/file").
		putUint32(FlagRead).
		putUint64(0xdeadbeef).
		putBytes([]byte{1, 2, 3}).
		finish()

	typ, body, err := readPacket(bufio.NewReader(bytes.NewReader(pkt)))
	require.NoError(t, err)
	assert.Equal(t, uint8(fxpOpen), typ)

	cur := newCursor(body)
	id, err := cur.getUint32()
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	path, err := cur.getString()
	require.NoError(t, err)
	assert.Equal(t, "/home/user/file", path)

	mode, err := cur.getUint32()
	require.NoError(t, err)
	assert.EqualValues(t, FlagRead, mode)

	n64, err := cur.getUint64()
	require.NoError(t, err)
	assert.EqualValues(t, 0xdeadbeef, n64)

	raw, err := cur.getBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, raw)

	assert.Equal(t, 0, cur.remaining())
}

func TestReadPacketTruncatedLength(t *testing.T) {
	_, _, err := readPacket(bufio.NewReader(bytes.NewReader([]byte{0, 0})))
	assert.ErrorIs(t, err, ErrConnectionLost)
}

func TestReadPacketTruncatedBody(t *testing.T) {
	pkt := newBuilder(fxpClose).putUint32(1).finish()
	truncated := pkt[:len(pkt)-2]
	_, _, err := readPacket(bufio.NewReader(bytes.NewReader(truncated)))
	assert.ErrorIs(t, err, ErrConnectionLost)
}

func TestCursorUnderrun(t *testing.T) {
	cur := newCursor([]byte{0, 0, 0, 1})
	_, err := cur.getUint64()
	assert.ErrorIs(t, err, ErrTruncated)

	cur2 := newCursor([]byte{0, 0, 0, 5, 'a', 'b'})
	_, err = cur2.getBytes()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "OK", StatusOK.String())
	assert.Equal(t, "no such file", StatusNoSuchFile.String())
	assert.Equal(t, "unknown status", Status(99).String())
}
