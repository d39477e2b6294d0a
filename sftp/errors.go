package sftp

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrProtocol marks a malformed or unexpectedly-typed inbound packet.
// An under-length body is reported separately, as ErrTruncated, which
// is not wrapped in ErrProtocol.
var ErrProtocol = errors.New("sftp: protocol error")

// ErrConnectionLost marks the inbound stream reaching end of file while
// the Connection still expected replies.
var ErrConnectionLost = errors.New("sftp: connection lost")

// SftpError represents a non-OK SSH_FXP_STATUS reply. Status lets a
// caller test for the one code callers actually branch on,
// StatusNoSuchFile; every other status is reported but otherwise
// undifferentiated.
type SftpError struct {
	Status  Status
	Message string
}

func (e *SftpError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sftp: %s", e.Status)
	}
	return fmt.Sprintf("sftp: %s: %s", e.Status, e.Message)
}

// IsNoSuchFile reports whether err is an *SftpError carrying
// StatusNoSuchFile.
func IsNoSuchFile(err error) bool {
	var sftpErr *SftpError
	if errors.As(err, &sftpErr) {
		return sftpErr.Status == StatusNoSuchFile
	}
	return false
}
