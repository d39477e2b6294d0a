package sftp

// Attributes is the decoded tail of a version 3 ATTRS structure: a
// flags word plus whichever of the optional fields the flags say are
// present. When unpacked from an SSH_FXP_NAME reply it additionally
// carries the entry's short and "longname" forms.
type Attributes struct {
	Flags       uint32
	Size        uint64
	UID, GID    uint32
	Permissions uint32
	ATime       uint32
	MTime       uint32
	Extended    []ExtendedAttr

	// Filename and Longname are only populated when Attributes was
	// decoded as part of an SSH_FXP_NAME entry.
	Filename string
	Longname string
}

// ExtendedAttr is one (type, data) pair from an ATTRS extended block.
type ExtendedAttr struct {
	Type string
	Data string
}

// IsDir reports whether the permissions field's POSIX type bits mark a
// directory. It returns false if attrPermissions was not set in Flags.
func (a *Attributes) IsDir() bool {
	return a.Flags&attrPermissions != 0 && IsDir(a.Permissions)
}

// unpackAttrs decodes an ATTRS body (flags onward) from c.
func unpackAttrs(c *cursor) (Attributes, error) {
	var a Attributes
	var err error
	if a.Flags, err = c.getUint32(); err != nil {
		return a, err
	}
	if a.Flags&attrSize != 0 {
		if a.Size, err = c.getUint64(); err != nil {
			return a, err
		}
	}
	if a.Flags&attrUIDGID != 0 {
		if a.UID, err = c.getUint32(); err != nil {
			return a, err
		}
		if a.GID, err = c.getUint32(); err != nil {
			return a, err
		}
	}
	if a.Flags&attrPermissions != 0 {
		if a.Permissions, err = c.getUint32(); err != nil {
			return a, err
		}
	}
	if a.Flags&attrACModTime != 0 {
		if a.ATime, err = c.getUint32(); err != nil {
			return a, err
		}
		if a.MTime, err = c.getUint32(); err != nil {
			return a, err
		}
	}
	if a.Flags&attrExtended != 0 {
		count, err := c.getUint32()
		if err != nil {
			return a, err
		}
		a.Extended = make([]ExtendedAttr, 0, count)
		for i := uint32(0); i < count; i++ {
			typ, err := c.getString()
			if err != nil {
				return a, err
			}
			data, err := c.getString()
			if err != nil {
				return a, err
			}
			a.Extended = append(a.Extended, ExtendedAttr{Type: typ, Data: data})
		}
	}
	return a, nil
}

// unpackNameEntry decodes one entry of an SSH_FXP_NAME reply: filename,
// longname, then an ATTRS tail.
func unpackNameEntry(c *cursor) (Attributes, error) {
	filename, err := c.getString()
	if err != nil {
		return Attributes{}, err
	}
	longname, err := c.getString()
	if err != nil {
		return Attributes{}, err
	}
	a, err := unpackAttrs(c)
	if err != nil {
		return a, err
	}
	a.Filename = filename
	a.Longname = longname
	return a, nil
}
