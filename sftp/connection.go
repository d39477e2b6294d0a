package sftp

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/ewxrjk/remdiff/internal/rlog"
)

// Handle is an opaque byte string issued by the server identifying an
// open file or directory. It must be closed exactly once.
type Handle []byte

// reply is a stashed {type, body} pair: a reply the reader goroutine has
// decoded but no awaiter has collected yet. body is the packet body
// including its leading 4-byte request-ID field, so callers parse it the
// same way regardless of whether they came from the reply table or (for
// the handshake, before any table exists) a direct read.
type reply struct {
	typ  uint8
	body []byte
}

// Connection owns one child `ssh -s HOST sftp` process and multiplexes
// every request this process makes to it onto a single pipe pair. The
// invariant it maintains is that every outstanding request ID appears in
// exactly one of {waiting, replies}, and that all of waiting, replies,
// nextID and quit are only ever touched with mu held.
type Connection struct {
	host string

	connectMu sync.Mutex // serializes Connect/Disconnect against each other
	connected bool

	cmd *exec.Cmd
	wr  io.WriteCloser
	rd  *bufio.Reader
	rc  io.Closer // the underlying reader, for Close

	mu      sync.Mutex
	cond    *sync.Cond
	nextID  uint32
	waiting map[uint32]struct{}
	replies map[uint32]reply
	quit    bool
	readErr error

	home       string
	readerDone chan struct{}
}

// NewConnection returns a Connection for host, not yet connected. Callers
// normally obtain a shared, already-connected Connection from a
// *Registry instead of constructing one directly.
func NewConnection(host string) *Connection {
	c := &Connection{
		host:    host,
		waiting: make(map[uint32]struct{}),
		replies: make(map[uint32]reply),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Host returns the hostname this Connection was constructed for.
func (c *Connection) Host() string { return c.host }

// Connect establishes the session: it forks `ssh -s HOST sftp`, performs
// the FXP_INIT/FXP_VERSION handshake, starts the reader goroutine, and
// resolves the remote home directory. It is idempotent: a Connection
// that is already connected returns immediately.
func (c *Connection) Connect() error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if c.connected {
		return nil
	}

	rlog.Debugf("connect %s", c.host)

	cmd := exec.Command("ssh", "-s", c.host, "sftp")
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.Wrapf(err, "sftp: %s: stdin pipe", c.host)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrapf(err, "sftp: %s: stdout pipe", c.host)
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "sftp: %s: ssh", c.host)
	}
	c.cmd = cmd

	if err := c.connectPipes(stdin, stdout, stdout); err != nil {
		c.teardown()
		return err
	}
	return nil
}

// connectPipes performs everything about Connect that doesn't involve
// spawning a subprocess: the handshake, starting the reader goroutine,
// and resolving the home directory. Split out so tests can drive a
// Connection over an in-memory pipe instead of a real `ssh` child.
func (c *Connection) connectPipes(wr io.WriteCloser, rd io.Reader, rc io.Closer) error {
	c.wr = wr
	c.rc = rc
	c.rd = bufio.NewReaderSize(rd, inboundBufferSize)

	if err := c.handshake(); err != nil {
		return err
	}

	c.readerDone = make(chan struct{})
	go c.readLoop()

	home, err := c.realpathRaw("")
	if err != nil {
		c.mu.Lock()
		c.quit = true
		c.mu.Unlock()
		c.cond.Broadcast()
		<-c.readerDone
		return errors.Wrapf(err, "sftp: %s: resolving home directory", c.host)
	}
	c.home = home
	c.connected = true

	rlog.Debugf("connect %s: home=%q", c.host, c.home)
	return nil
}

// handshake sends FXP_INIT and synchronously reads the FXP_VERSION reply,
// before the reader goroutine exists. Versions above 3 are accepted and
// treated as version 3; no extension advertised in the reply is ever
// used.
func (c *Connection) handshake() error {
	pkt := newBuilder(fxpInit).putUint32(sftpProtocolVersion).finish()
	if err := writeAll(c.wr, pkt); err != nil {
		return errors.Wrapf(err, "sftp: %s: sending INIT", c.host)
	}
	typ, body, err := readPacket(c.rd)
	if err != nil {
		return errors.Wrapf(err, "sftp: %s: reading VERSION", c.host)
	}
	if typ != fxpVersion {
		return errors.Wrapf(ErrProtocol, "sftp: %s: expected VERSION, got type %d", c.host, typ)
	}
	version, err := newCursor(body).getUint32()
	if err != nil {
		return errors.Wrapf(err, "sftp: %s: decoding VERSION", c.host)
	}
	if version < sftpProtocolVersion {
		return errors.Wrapf(ErrProtocol, "sftp: %s: server version %d unsupported", c.host, version)
	}
	return nil
}

// teardown closes whatever pipes were opened, reaps the child, and
// resets the request table; used when Connect fails partway through and
// by Disconnect once the reader goroutine has exited.
func (c *Connection) teardown() {
	if c.wr != nil {
		_ = c.wr.Close()
	}
	if c.rc != nil {
		_ = c.rc.Close()
	}
	if c.cmd != nil {
		_ = c.cmd.Wait()
	}
	c.cmd, c.wr, c.rc, c.rd = nil, nil, nil, nil

	c.mu.Lock()
	c.quit = false
	c.readErr = nil
	c.waiting = make(map[uint32]struct{})
	c.replies = make(map[uint32]reply)
	c.mu.Unlock()
}

// Disconnect tears the session down: it signals the reader goroutine to
// quit, closes the read side so a reader parked in a blocking read
// returns, waits for it, closes both pipe ends, and waits for the child.
// Idempotent.
func (c *Connection) Disconnect() error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if !c.connected && c.readerDone == nil {
		return nil
	}
	rlog.Debugf("disconnect %s", c.host)

	c.mu.Lock()
	alreadyQuit := c.quit
	c.quit = true
	c.mu.Unlock()
	c.cond.Broadcast()

	if !alreadyQuit {
		if c.rc != nil {
			_ = c.rc.Close()
		}
		<-c.readerDone
	}

	c.teardown()
	c.connected = false
	return nil
}

// readLoop is the sole consumer of the inbound pipe. It sleeps until
// there is at least one outstanding request, reads one packet, stashes
// it in the reply table keyed by the request ID carried in the packet's
// first four body bytes, and wakes every waiter to let them re-check.
func (c *Connection) readLoop() {
	defer close(c.readerDone)
	for {
		c.mu.Lock()
		for len(c.waiting) == 0 && !c.quit {
			c.cond.Wait()
		}
		if c.quit {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		typ, body, err := readPacket(c.rd)
		if err != nil {
			c.abort(err)
			return
		}
		id, err := newCursor(body).getUint32()
		if err != nil {
			c.abort(errors.Wrap(ErrProtocol, "reply missing request id"))
			return
		}

		c.mu.Lock()
		c.replies[id] = reply{typ: typ, body: body}
		delete(c.waiting, id)
		c.mu.Unlock()
		c.cond.Broadcast()
	}
}

// abort marks the connection as failed: quit is set, the failure is
// recorded so awaiters can report it, and every waiter is woken so none
// is left permanently blocked.
func (c *Connection) abort(err error) {
	rlog.Debugf("connection %s: reader error: %v", c.host, err)
	c.mu.Lock()
	c.readErr = err
	c.quit = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// allocateID scans upward from the nextID cursor for the first request
// ID not currently present in either the waiting set or the reply table,
// records it as waiting, advances the cursor past it, and returns it.
// IDs are 32-bit and may wrap.
func (c *Connection) allocateID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if _, busy := c.waiting[c.nextID]; busy {
			c.nextID++
			continue
		}
		if _, busy := c.replies[c.nextID]; busy {
			c.nextID++
			continue
		}
		break
	}
	id := c.nextID
	c.nextID++
	c.waiting[id] = struct{}{}
	return id
}

// sendPacket writes a complete packet to the outbound pipe under the
// lock and wakes the reader goroutine.
func (c *Connection) sendPacket(pkt []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quit {
		return ErrConnectionLost
	}
	if err := writeAll(c.wr, pkt); err != nil {
		return errors.Wrapf(err, "sftp: %s: write", c.host)
	}
	c.cond.Broadcast()
	return nil
}

// await blocks until id's reply has been stashed by the reader goroutine
// and returns it, or returns ErrConnectionLost (or the reader's recorded
// failure) once quit is observed. There is no per-request timeout:
// cancellation is global, via Disconnect.
func (c *Connection) await(id uint32) (uint8, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if r, ok := c.replies[id]; ok {
			delete(c.replies, id)
			return r.typ, r.body, nil
		}
		if c.quit {
			delete(c.waiting, id)
			if c.readErr != nil {
				return 0, nil, c.readErr
			}
			return 0, nil, ErrConnectionLost
		}
		c.cond.Wait()
	}
}

// request allocates an ID, sends a packet built from it, and awaits the
// reply: the synchronous half of every operation except read/readdir.
func (c *Connection) request(build func(id uint32) []byte) (uint8, []byte, error) {
	id := c.allocateID()
	if err := c.sendPacket(build(id)); err != nil {
		c.mu.Lock()
		delete(c.waiting, id)
		c.mu.Unlock()
		return 0, nil, err
	}
	return c.await(id)
}

// resolvePath prepends the remote home directory to path unless path is
// already absolute. Used by every path-taking operation, Realpath
// included. Only connectPipes' home-directory bootstrap, which is what
// discovers the home directory in the first place, sends its REALPATH
// argument unresolved, via realpathRaw.
func (c *Connection) resolvePath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return c.home + "/" + path
}

// statusError decodes an FXP_STATUS body (starting with the request-ID
// field, which it skips) into an error: nil for StatusOK, *SftpError
// otherwise.
func statusError(body []byte) error {
	cur := newCursor(body)
	if _, err := cur.getUint32(); err != nil { // request id
		return errors.Wrap(err, "decoding STATUS")
	}
	code, err := cur.getUint32()
	if err != nil {
		return errors.Wrap(err, "decoding STATUS code")
	}
	msg, _ := cur.getString() // language-tagged string follows; ignored like the original
	if Status(code) == StatusOK {
		return nil
	}
	return &SftpError{Status: Status(code), Message: msg}
}

// statusCode extracts just the numeric status from an FXP_STATUS body,
// for callers (FinishRead, FinishReaddir) that treat EOF specially.
func statusCode(body []byte) (Status, string, error) {
	cur := newCursor(body)
	if _, err := cur.getUint32(); err != nil {
		return 0, "", err
	}
	code, err := cur.getUint32()
	if err != nil {
		return 0, "", err
	}
	msg, _ := cur.getString()
	return Status(code), msg, nil
}
