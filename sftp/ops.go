package sftp

import (
	"github.com/pkg/errors"

	"github.com/ewxrjk/remdiff/internal/rlog"
)

// realpathRaw sends FXP_REALPATH with path exactly as given, with no
// home-directory prefix. Only Connect's home-directory bootstrap and
// Realpath itself call this.
func (c *Connection) realpathRaw(path string) (string, error) {
	typ, body, err := c.request(func(id uint32) []byte {
		return newBuilder(fxpRealpath).putUint32(id).putString(path).finish()
	})
	if err != nil {
		return "", err
	}
	cur := newCursor(body)
	if _, err := cur.getUint32(); err != nil { // id
		return "", err
	}
	switch typ {
	case fxpName:
		count, err := cur.getUint32()
		if err != nil {
			return "", err
		}
		if count != 1 {
			return "", errors.Wrapf(ErrProtocol, "sftp: %s: realpath returned %d names", c.host, count)
		}
		return cur.getString()
	case fxpStatus:
		return "", statusError(body)
	default:
		return "", errors.Wrapf(ErrProtocol, "sftp: %s: unexpected reply type %d to REALPATH", c.host, typ)
	}
}

// Realpath resolves path (interpreted against the remote home directory
// unless absolute) to its canonical form.
func (c *Connection) Realpath(path string) (string, error) {
	return c.realpathRaw(c.resolvePath(path))
}

// Open opens a remote file for the given access mode (a combination of
// the Flag* bits) and returns its handle.
func (c *Connection) Open(path string, mode uint32) (Handle, error) {
	full := c.resolvePath(path)
	rlog.Debugf("open %s %s mode=%#x", c.host, full, mode)
	typ, body, err := c.request(func(id uint32) []byte {
		return newBuilder(fxpOpen).putUint32(id).putString(full).putUint32(mode).putUint32(0).finish()
	})
	if err != nil {
		return nil, err
	}
	return decodeHandle(c.host, "OPEN", typ, body)
}

// Opendir opens a remote directory for reading. Version 3 has no
// distinct open-for-directory flags: it is FXP_OPEN with no mode bits,
// exactly as Open(path, 0) would send.
func (c *Connection) Opendir(path string) (Handle, error) {
	full := c.resolvePath(path)
	rlog.Debugf("opendir %s %s", c.host, full)
	typ, body, err := c.request(func(id uint32) []byte {
		return newBuilder(fxpOpen).putUint32(id).putString(full).putUint32(0).putUint32(0).finish()
	})
	if err != nil {
		return nil, err
	}
	return decodeHandle(c.host, "OPENDIR", typ, body)
}

func decodeHandle(host, op string, typ uint8, body []byte) (Handle, error) {
	cur := newCursor(body)
	if _, err := cur.getUint32(); err != nil {
		return nil, err
	}
	switch typ {
	case fxpHandle:
		h, err := cur.getBytes()
		if err != nil {
			return nil, err
		}
		return Handle(append([]byte(nil), h...)), nil
	case fxpStatus:
		return nil, statusError(body)
	default:
		return nil, errors.Wrapf(ErrProtocol, "sftp: %s: unexpected reply type %d to %s", host, typ, op)
	}
}

// Close closes a handle previously returned by Open or Opendir.
func (c *Connection) Close(h Handle) error {
	rlog.Debugf("close %s %x", c.host, []byte(h))
	typ, body, err := c.request(func(id uint32) []byte {
		return newBuilder(fxpClose).putUint32(id).putBytes(h).finish()
	})
	if err != nil {
		return err
	}
	if typ != fxpStatus {
		return errors.Wrapf(ErrProtocol, "sftp: %s: unexpected reply type %d to CLOSE", c.host, typ)
	}
	return statusError(body)
}

// Stat retrieves attributes of a path, following symlinks.
func (c *Connection) Stat(path string) (Attributes, error) {
	return c.gstat(fxpStat, c.resolvePath(path))
}

// Lstat retrieves attributes of a path, without following a final
// symlink.
func (c *Connection) Lstat(path string) (Attributes, error) {
	return c.gstat(fxpLstat, c.resolvePath(path))
}

// Fstat retrieves attributes of an already-open handle.
func (c *Connection) Fstat(h Handle) (Attributes, error) {
	typ, body, err := c.request(func(id uint32) []byte {
		return newBuilder(fxpFstat).putUint32(id).putBytes(h).finish()
	})
	if err != nil {
		return Attributes{}, err
	}
	return decodeAttrs(c.host, "FSTAT", typ, body)
}

func (c *Connection) gstat(typ uint8, target string) (Attributes, error) {
	rtyp, body, err := c.request(func(id uint32) []byte {
		return newBuilder(typ).putUint32(id).putString(target).finish()
	})
	if err != nil {
		return Attributes{}, err
	}
	return decodeAttrs(c.host, "STAT", rtyp, body)
}

func decodeAttrs(host, op string, typ uint8, body []byte) (Attributes, error) {
	cur := newCursor(body)
	if _, err := cur.getUint32(); err != nil {
		return Attributes{}, err
	}
	switch typ {
	case fxpAttrs:
		return unpackAttrs(cur)
	case fxpStatus:
		return Attributes{}, statusError(body)
	default:
		return Attributes{}, errors.Wrapf(ErrProtocol, "sftp: %s: unexpected reply type %d to %s", host, typ, op)
	}
}

// BeginRead issues an FXP_READ for length bytes at offset and returns
// its request ID immediately, without waiting for the reply: the first
// half of the split read API that lets a feeder keep several reads
// pipelined.
func (c *Connection) BeginRead(h Handle, offset uint64, length uint32) (uint32, error) {
	id := c.allocateID()
	err := c.sendPacket(newBuilder(fxpRead).putUint32(id).putBytes(h).putUint64(offset).putUint32(length).finish())
	if err != nil {
		c.mu.Lock()
		delete(c.waiting, id)
		c.mu.Unlock()
		return 0, err
	}
	return id, nil
}

// FinishRead awaits the reply to a BeginRead. An EOF status is reported
// as a nil error and a zero-length result, matching the SFTP EOF
// convention; any other status is an error.
func (c *Connection) FinishRead(id uint32) ([]byte, error) {
	typ, body, err := c.await(id)
	if err != nil {
		return nil, err
	}
	cur := newCursor(body)
	if _, err := cur.getUint32(); err != nil {
		return nil, err
	}
	switch typ {
	case fxpData:
		data, err := cur.getBytes()
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), data...), nil
	case fxpStatus:
		code, msg, err := statusCode(body)
		if err != nil {
			return nil, err
		}
		if code == StatusEOF {
			return nil, nil
		}
		return nil, &SftpError{Status: code, Message: msg}
	default:
		return nil, errors.Wrapf(ErrProtocol, "sftp: %s: unexpected reply type %d to READ", c.host, typ)
	}
}

// BeginReaddir issues an FXP_READDIR against an open directory handle
// and returns its request ID.
func (c *Connection) BeginReaddir(h Handle) (uint32, error) {
	id := c.allocateID()
	err := c.sendPacket(newBuilder(fxpReaddir).putUint32(id).putBytes(h).finish())
	if err != nil {
		c.mu.Lock()
		delete(c.waiting, id)
		c.mu.Unlock()
		return 0, err
	}
	return id, nil
}

// FinishReaddir awaits the reply to a BeginReaddir. On success it
// returns the decoded entries and ok=true; at end of directory (an EOF
// status) it returns ok=false with a nil error.
func (c *Connection) FinishReaddir(id uint32) (entries []Attributes, ok bool, err error) {
	typ, body, err := c.await(id)
	if err != nil {
		return nil, false, err
	}
	cur := newCursor(body)
	if _, err := cur.getUint32(); err != nil {
		return nil, false, err
	}
	switch typ {
	case fxpName:
		count, err := cur.getUint32()
		if err != nil {
			return nil, false, err
		}
		entries = make([]Attributes, 0, count)
		for i := uint32(0); i < count; i++ {
			a, err := unpackNameEntry(cur)
			if err != nil {
				return nil, false, err
			}
			entries = append(entries, a)
		}
		return entries, true, nil
	case fxpStatus:
		code, msg, err := statusCode(body)
		if err != nil {
			return nil, false, err
		}
		if code == StatusEOF {
			return nil, false, nil
		}
		return nil, false, &SftpError{Status: code, Message: msg}
	default:
		return nil, false, errors.Wrapf(ErrProtocol, "sftp: %s: unexpected reply type %d to READDIR", c.host, typ)
	}
}
