package sftp

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnpackAttrsAllFields(t *testing.T) {
	b := newBuilder(fxpAttrs)
	b.putUint32(attrSize | attrUIDGID | attrPermissions | attrACModTime | attrExtended)
	b.putUint64(1234)
	b.putUint32(100)
	b.putUint32(200)
	b.putUint32(posixIFDIR | 0755)
	b.putUint32(111)
	b.putUint32(222)
	b.putUint32(1) // one extended pair
	b.putString("ext-type")
	b.putString("ext-data")
	pkt := b.finish()

	cur := newCursor(pkt[5:]) // skip length+type; no request id in this synthetic body
	a, err := unpackAttrs(cur)
	require.NoError(t, err, spew.Sdump(a))

	assert.EqualValues(t, 1234, a.Size)
	assert.EqualValues(t, 100, a.UID)
	assert.EqualValues(t, 200, a.GID)
	assert.EqualValues(t, 111, a.ATime)
	assert.EqualValues(t, 222, a.MTime)
	require.Len(t, a.Extended, 1)
	assert.Equal(t, "ext-type", a.Extended[0].Type)
	assert.True(t, a.IsDir(), spew.Sdump(a))
}

func TestUnpackAttrsNoOptionalFields(t *testing.T) {
	b := newBuilder(fxpAttrs)
	b.putUint32(0)
	pkt := b.finish()

	cur := newCursor(pkt[5:])
	a, err := unpackAttrs(cur)
	require.NoError(t, err)
	assert.Zero(t, a.Size)
	assert.False(t, a.IsDir())
}

func TestIsDirPermissionBits(t *testing.T) {
	assert.True(t, IsDir(posixIFDIR|0755))
	assert.False(t, IsDir(0100644))
}

func TestUnpackNameEntry(t *testing.T) {
	b := newBuilder(fxpName)
	b.putString("file.txt")
	b.putString("-rw-r--r-- 1 user group 0 Jan 1 00:00 file.txt")
	b.putUint32(attrPermissions)
	b.putUint32(0100644)
	pkt := b.finish()

	cur := newCursor(pkt[5:])
	a, err := unpackNameEntry(cur)
	require.NoError(t, err)
	assert.Equal(t, "file.txt", a.Filename)
	assert.False(t, a.IsDir())
}
