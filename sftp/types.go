// Package sftp implements a client for version 3 of the SSH File
// Transfer Protocol, addressed to a child `ssh -s HOST sftp` process
// rather than to a network socket.
package sftp

// Packet types, as defined by the SFTP version 3 internet draft.
const (
	fxpInit     = 1
	fxpVersion  = 2
	fxpOpen     = 3
	fxpClose    = 4
	fxpRead     = 5
	fxpWrite    = 6
	fxpLstat    = 7
	fxpFstat    = 8
	fxpSetstat  = 9
	fxpFsetstat = 10
	fxpOpendir  = 11
	fxpReaddir  = 12
	fxpRemove   = 13
	fxpMkdir    = 14
	fxpRmdir    = 15
	fxpRealpath = 16
	fxpStat     = 17
	fxpRename   = 18
	fxpReadlink = 19
	fxpSymlink  = 20

	fxpStatus = 101
	fxpHandle = 102
	fxpData   = 103
	fxpName   = 104
	fxpAttrs  = 105
)

// Status is the numeric code carried by an FXP_STATUS reply.
type Status uint32

// Status codes used by version 3 of the protocol. Only OK, EOF and
// NoSuchFile are ever interpreted specially; every other code surfaces
// to the caller as an opaque *SftpError.
const (
	StatusOK               Status = 0
	StatusEOF              Status = 1
	StatusNoSuchFile       Status = 2
	StatusPermissionDenied Status = 3
	StatusFailure          Status = 4
	StatusBadMessage       Status = 5
	StatusNoConnection     Status = 6
	StatusConnectionLost   Status = 7
	StatusOpUnsupported    Status = 8
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusEOF:
		return "EOF"
	case StatusNoSuchFile:
		return "no such file"
	case StatusPermissionDenied:
		return "permission denied"
	case StatusFailure:
		return "failure"
	case StatusBadMessage:
		return "bad message"
	case StatusNoConnection:
		return "no connection"
	case StatusConnectionLost:
		return "connection lost"
	case StatusOpUnsupported:
		return "operation unsupported"
	default:
		return "unknown status"
	}
}

// Access-mode bits for Connection.Open, per SSH_FXF_*.
const (
	FlagRead   = 0x00000001
	FlagWrite  = 0x00000002
	FlagAppend = 0x00000004
	FlagCreat  = 0x00000008
	FlagTrunc  = 0x00000010
	FlagExcl   = 0x00000020
	FlagText   = 0x00000040
)

// Attribute-presence bits within an ATTRS structure.
const (
	attrSize        = 0x00000001
	attrUIDGID      = 0x00000002
	attrPermissions = 0x00000004
	attrACModTime   = 0x00000008
	attrExtended    = 0x80000000
)

// sftpProtocolVersion is the only protocol version this client speaks.
// Servers announcing a higher version are accepted and treated as
// version 3: no extension negotiated by a later version is ever used.
const sftpProtocolVersion = 3

// POSIX file-type bits within the ATTRS permissions word, used to
// recognize a directory on a server that has no dedicated type field
// (version 3 has none).
const (
	posixIFMT  = 0170000
	posixIFDIR = 0040000
)

// IsDir reports whether the permissions word's type bits denote a
// directory, per the POSIX S_IFDIR convention that version 3 servers are
// assumed to populate.
func IsDir(permissions uint32) bool {
	return permissions&posixIFMT == posixIFDIR
}
