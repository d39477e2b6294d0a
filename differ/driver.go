package differ

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"

	ioutil "github.com/ewxrjk/remdiff/internal/ioutil"
	"github.com/ewxrjk/remdiff/sftp"
)

// Mode selects which of diff's output formats Comparison drives it in.
// Exactly one applies; the CLI layer resolves "last flag wins" down to
// a single Mode before calling CompareFiles.
type Mode int

const (
	ModeNormal Mode = iota
	ModeUnified
	ModeBrief
	ModeSideBySide
)

// Options configures one Comparison.
type Options struct {
	Mode Mode

	// Context, if non-nil, supplies unified mode's -U count. Nil means
	// plain -u (diff's own default context).
	Context *int

	// NewAsEmpty1 and NewAsEmpty2 make a missing operand compare as an
	// empty file (/dev/null) instead of failing, one flag per position
	// matching diff's -N/--new-file split behaviour per side.
	NewAsEmpty1, NewAsEmpty2 bool

	// ReportIdentical asks for a brief-style "Files ... are identical"
	// line even in normal mode, diff's -s/--report-identical-files.
	ReportIdentical bool

	// ExtraArgs are passed through to diff verbatim, after the mode
	// flag and before the two operands.
	ExtraArgs []string

	// Registry supplies remote connections. Nil selects the process-wide
	// default registry.
	Registry *sftp.Registry
}

// Comparison drives a single invocation of diff over two operands,
// each of which may be a plain local path or a HOST:PATH remote one.
// It is not safe to reuse concurrently, and CompareFiles should be
// called at most once per Comparison.
type Comparison struct {
	opts Options

	extraFiles []*os.File
	rules      []Rule
	wg         sync.WaitGroup
}

// NewComparison returns a Comparison configured by opts.
func NewComparison(opts Options) *Comparison {
	return &Comparison{opts: opts}
}

func (c *Comparison) registry() *sftp.Registry {
	if c.opts.Registry != nil {
		return c.opts.Registry
	}
	return sftp.DefaultRegistry()
}

func (c *Comparison) newAsEmpty(position int) bool {
	if position == 1 {
		return c.opts.NewAsEmpty1
	}
	return c.opts.NewAsEmpty2
}

// CompareFiles runs diff over f1 and f2 and returns diff's own exit
// status: 0 (no differences), 1 (differences found), or 2 (trouble,
// including a signal-terminated diff or a comparand resolution
// failure reported via err).
func (c *Comparison) CompareFiles(f1, f2 string) (int, error) {
	args := []string{"diff"}
	switch c.opts.Mode {
	case ModeNormal:
	case ModeUnified:
		if c.opts.Context != nil {
			args = append(args, fmt.Sprintf("-U%d", *c.opts.Context))
		} else {
			args = append(args, "-u")
		}
	case ModeBrief:
		args = append(args, "-q")
	case ModeSideBySide:
		args = append(args, "-y")
	default:
		return 2, &ArgumentError{Message: "unknown comparison mode"}
	}
	if c.opts.ReportIdentical {
		args = append(args, "-s")
	}
	args = append(args, c.opts.ExtraArgs...)

	path1, err := c.addFile(f1, 1)
	if err != nil {
		return 2, err
	}
	defer c.drain()

	path2, err := c.addFile(f2, 2)
	if err != nil {
		return 2, err
	}
	args = append(args, path1, path2)

	return c.runDiff(args)
}

// addFile classifies one operand, arranges for diff to see it (directly
// for a local path, via a synthetic /dev/fd/N fed by a feeder goroutine
// for a remote one), and registers whatever output-rewriting rule the
// substitution requires, and returns the path diff should actually be
// given.
func (c *Comparison) addFile(f string, position int) (string, error) {
	if host, path, ok := strings.Cut(f, ":"); ok {
		return c.addRemoteFile(host, path, f, position)
	}
	return c.addLocalFile(f, position)
}

func (c *Comparison) addLocalFile(f string, position int) (string, error) {
	info, err := os.Stat(f)
	switch {
	case err != nil && os.IsNotExist(err):
		if c.newAsEmpty(position) {
			c.addRule(position, "/dev/null", f)
			return "/dev/null", nil
		}
		return f, nil // let diff itself report the missing file
	case err != nil:
		return "", errors.Wrapf(err, "%s", f)
	case info.IsDir():
		return "", &IsDirectoryError{Operand: f}
	default:
		return f, nil
	}
}

func (c *Comparison) addRemoteFile(host, path, full string, position int) (string, error) {
	conn, err := c.registry().Connection(host)
	if err != nil {
		return "", errors.Wrapf(err, "%s", host)
	}

	attrs, err := conn.Stat(path)
	switch {
	case err != nil && sftp.IsNoSuchFile(err) && c.newAsEmpty(position):
		c.addRule(position, "/dev/null", full)
		return "/dev/null", nil
	case err != nil:
		return "", errors.Wrapf(err, "%s", full)
	case attrs.IsDir():
		return "", &IsDirectoryError{Operand: full}
	}

	handle, err := conn.Open(path, sftp.FlagRead)
	if err != nil {
		return "", errors.Wrapf(err, "%s", full)
	}

	r, w, err := ioutil.Pipe()
	if err != nil {
		_ = conn.Close(handle)
		return "", err
	}

	fd := 3 + len(c.extraFiles)
	c.extraFiles = append(c.extraFiles, r)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		feed(conn, full, handle, w)
	}()

	synth := fmt.Sprintf("/dev/fd/%d", fd)
	c.addRule(position, synth, full)
	return synth, nil
}

// addRule records the replacement rule (if any) that undoes synth back
// to user in diff's output, appropriate to the configured mode. No rule
// is needed when synth and user are already the same string, nor in
// side-by-side mode, which never prints a filename in its output.
func (c *Comparison) addRule(position int, synth, user string) {
	if synth == user {
		return
	}
	switch c.opts.Mode {
	case ModeUnified:
		if position == 1 {
			c.rules = append(c.rules, newPrefixRule("--- ", synth, user))
		} else {
			c.rules = append(c.rules, newPrefixRule("+++ ", synth, user))
		}
	case ModeBrief:
		c.addIdentityRule(position, synth, user)
	case ModeNormal:
		if c.opts.ReportIdentical {
			c.addIdentityRule(position, synth, user)
		}
	case ModeSideBySide:
	}
}

func (c *Comparison) addIdentityRule(position int, synth, user string) {
	if position == 1 {
		c.rules = append(c.rules, newPrefixRule("Files ", synth, user))
	} else {
		c.rules = append(c.rules, newSubstringRule(" and ", synth, user))
	}
}

// runDiff forks diff with the collected extra files attached at fds
// 3, 4, ..., and proxies its stdout line by line through the
// registered rewrite rules.
func (c *Comparison) runDiff(args []string) (int, error) {
	cmd := exec.Command(args[0], args[1:]...)
	cmd.ExtraFiles = c.extraFiles
	cmd.Stderr = os.Stderr

	outR, outW, err := ioutil.Pipe()
	if err != nil {
		return 2, err
	}
	cmd.Stdout = outW

	if err := cmd.Start(); err != nil {
		_ = outR.Close()
		_ = outW.Close()
		return 2, errors.Wrapf(err, "%s", args[0])
	}
	_ = outW.Close() // the child has its own dup; our copy must go so reading outR sees EOF

	if err := c.proxyOutput(outR); err != nil {
		_ = outR.Close()
		_ = cmd.Wait()
		return 2, err
	}
	_ = outR.Close()

	waitErr := cmd.Wait()
	if waitErr == nil {
		return cmd.ProcessState.ExitCode(), nil
	}
	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return 2, errors.Wrapf(waitErr, "%s", args[0])
	}
	if exitErr.ExitCode() == -1 {
		return 2, errors.Errorf("%s: %s", args[0], exitErr.ProcessState.String())
	}
	return exitErr.ExitCode(), nil
}

// proxyOutput copies lines from r to stdout, rewriting each with the
// registered rules. A final line with no trailing newline is discarded:
// diff's output is always newline-terminated, so a partial line can
// only mean diff was killed mid-write.
func (c *Comparison) proxyOutput(r *os.File) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if strings.HasSuffix(line, "\n") {
			text := strings.TrimSuffix(line, "\n")
			for _, rule := range c.rules {
				text = rule.Apply(text)
			}
			if _, werr := fmt.Fprintln(os.Stdout, text); werr != nil {
				return errors.Wrap(werr, "writing to stdout")
			}
		}
		if err != nil {
			return nil
		}
	}
}

// drain closes every remote operand's reader fd and waits for its
// feeder to finish. Closing happens before waiting: a feeder still
// mid-write when diff exits early sees a broken pipe on its next write
// and exits on its own once this drops the last reference to the read
// end.
func (c *Comparison) drain() {
	for _, f := range c.extraFiles {
		_ = f.Close()
	}
	c.wg.Wait()
}
