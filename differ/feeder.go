package differ

import (
	"os"

	ioutil "github.com/ewxrjk/remdiff/internal/ioutil"
	"github.com/ewxrjk/remdiff/internal/rlog"
	"github.com/ewxrjk/remdiff/sftp"
)

// feederInflightLimit bounds how many SFTP reads a feeder keeps
// outstanding at once.
const feederInflightLimit = 4

// feederChunkSize is the length requested by each read.
const feederChunkSize = 4096

// remoteReader is the slice of *sftp.Connection a feeder actually uses.
// Accepting this instead of the concrete type lets tests drive feed
// with a fake that never spawns ssh.
type remoteReader interface {
	BeginRead(h sftp.Handle, offset uint64, length uint32) (uint32, error)
	FinishRead(id uint32) ([]byte, error)
	Close(h sftp.Handle) error
}

// feed copies handle's remote contents into w, one file descriptor's
// worth of a diff operand. It keeps up to feederInflightLimit reads
// pipelined: the offset it requests is advanced by feederChunkSize at
// the moment a read is issued, not by however many bytes the previous
// read actually returned, so a short final read doesn't change where
// subsequent reads land; the server is expected to report EOF at a
// short read rather than at an exact boundary.
//
// feed always closes both w and handle before returning, whether it
// stopped because of EOF, a read error, or the write end going away
// (diff exited early without consuming everything, the only case
// IsBrokenPipe is expected to trigger).
func feed(conn remoteReader, context string, handle sftp.Handle, w *os.File) {
	defer func() {
		_ = conn.Close(handle)
		_ = w.Close()
	}()

	var offset uint64
	var inflight []uint32

	drain := func() {
		for _, id := range inflight {
			_, _ = conn.FinishRead(id)
		}
		inflight = nil
	}

	for {
		for len(inflight) < feederInflightLimit {
			id, err := conn.BeginRead(handle, offset, feederChunkSize)
			if err != nil {
				rlog.Errorf("%s: read: %v", context, err)
				drain()
				return
			}
			offset += feederChunkSize
			inflight = append(inflight, id)
		}

		id := inflight[0]
		inflight = inflight[1:]
		data, err := conn.FinishRead(id)
		if err != nil {
			rlog.Errorf("%s: read: %v", context, err)
			drain()
			return
		}
		if len(data) == 0 {
			drain()
			return
		}
		if err := ioutil.WriteAll(w, data); err != nil {
			if !ioutil.IsBrokenPipe(err) {
				rlog.Errorf("%s: write: %v", context, err)
			}
			drain()
			return
		}
	}
}
