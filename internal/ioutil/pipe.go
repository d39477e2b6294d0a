// Package ioutil holds the small POSIX-flavoured I/O primitives shared
// by the sftp and differ packages: close-on-exec pipe creation and
// interrupt-safe full writes.
package ioutil

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Pipe creates a pipe whose two ends are both marked close-on-exec, the
// Go-native equivalent of pipe(2) followed by fcntl(F_SETFD, FD_CLOEXEC)
// on each end that misc.cc's close_on_exec performs by hand. *os.File
// wraps each end so the caller gets ordinary Read/Write/Close/Fd
// semantics.
func Pipe() (r, w *os.File, err error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, nil, errors.Wrap(err, "pipe")
	}
	return os.NewFile(uintptr(fds[0]), "|0"), os.NewFile(uintptr(fds[1]), "|1"), nil
}

// WriteAll writes the whole of p to w, restarting on short writes the
// way misc.cc's writeall() restarts on EINTR. Go's os.File.Write already
// retries syscalls interrupted by EINTR internally, so this loop only
// guards against a short write with no error, which the io.Writer
// contract rules out but which costs nothing to handle.
func WriteAll(w *os.File, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// IsBrokenPipe reports whether err denotes EPIPE, the signal that the
// reading end of a pipe (typically diff) has gone away. Feeders and the
// driver treat this as normal early termination, not a failure.
func IsBrokenPipe(err error) bool {
	return errors.Is(err, unix.EPIPE)
}
