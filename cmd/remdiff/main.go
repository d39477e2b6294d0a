// Command remdiff compares two files, either of which may live on a
// remote host reached over SSH, by driving the local `diff` utility
// and feeding it remote content through synthetic file descriptors.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flags "github.com/jessevdk/go-flags"

	"github.com/ewxrjk/remdiff/differ"
	"github.com/ewxrjk/remdiff/internal/rlog"
)

const version = "remdiff 1.0"

func main() {
	// Turns a write to a closed downstream pipe into a plain EPIPE
	// error instead of killing the process. diff, spawned later, inherits
	// this disposition too; it has no effect on its own run since we
	// always drain its output to EOF before reaping it.
	signal.Ignore(syscall.SIGPIPE)
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	var opts options
	parser := newParser(&opts)
	parser.Usage = "[OPTIONS] OPERAND1 OPERAND2"

	extra, err := parser.ParseArgs(argv)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			printUsage(parser)
			return 0
		}
		fmt.Fprintln(os.Stderr, "remdiff:", err)
		return 2
	}
	if len(extra) != 0 {
		fmt.Fprintf(os.Stderr, "remdiff: unexpected argument %q\n", extra[0])
		return 2
	}

	if opts.Help {
		printUsage(parser)
		return 0
	}
	if opts.Version {
		fmt.Println(version)
		return 0
	}

	rlog.Init(opts.Debug)
	defer rlog.Sync()

	if opts.Positional.Operand1 == "" || opts.Positional.Operand2 == "" {
		fmt.Fprintln(os.Stderr, "remdiff: exactly two operands are required")
		return 2
	}

	compOpts, argErr := buildOptions(argv, &opts)
	if argErr != nil {
		fmt.Fprintln(os.Stderr, "remdiff:", argErr)
		return 2
	}

	comparison := differ.NewComparison(compOpts)
	rc, err := comparison.CompareFiles(opts.Positional.Operand1, opts.Positional.Operand2)
	if err != nil {
		fmt.Fprintln(os.Stderr, "remdiff:", err)
	}
	return rc
}

// modeFlags maps each command-line spelling that selects a mode to the
// mode it selects. Order in argv, not declaration order here, decides
// which one wins: getopt_long-style CLIs let a later mode flag silently
// override an earlier one, and go-flags' struct-tag binding gives us no
// way to observe that order, so buildOptions rescans argv directly.
var modeFlags = map[string]differ.Mode{
	"--normal": differ.ModeNormal,
	"-q":       differ.ModeBrief,
	"--brief":  differ.ModeBrief,
	"-u":       differ.ModeUnified,
	"-U":       differ.ModeUnified,
	"--unified": differ.ModeUnified,
	"-y":            differ.ModeSideBySide,
	"--side-by-side": differ.ModeSideBySide,
}

// buildOptions turns the parsed flag struct plus a left-to-right rescan
// of argv (for mode precedence) into differ.Options.
func buildOptions(argv []string, opts *options) (differ.Options, error) {
	mode := differ.ModeUnified
	for _, arg := range argv {
		if arg == "--" {
			break
		}
		token := arg
		if idx := strings.IndexByte(token, '='); idx >= 0 {
			token = token[:idx]
		}
		if strings.HasPrefix(token, "-U") && token != "-U" {
			mode = differ.ModeUnified
			continue
		}
		if m, ok := modeFlags[token]; ok {
			mode = m
		}
	}

	var context *int
	if opts.UnifiedNum != "" {
		n, err := parsePositiveInt(opts.UnifiedNum)
		if err != nil {
			return differ.Options{}, fmt.Errorf("invalid -U argument %q", opts.UnifiedNum)
		}
		context = &n
	}

	return differ.Options{
		Mode:            mode,
		Context:         context,
		NewAsEmpty1:     opts.NewFile || opts.NewFile1,
		NewAsEmpty2:     opts.NewFile || opts.NewFile2,
		ReportIdentical: opts.ReportIdentical,
		ExtraArgs:       passthruArgs(opts),
	}, nil
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

// passthruArgs reconstructs diff's own --name / --name=value form from
// the bool/string fields options binds the pass-through registry to.
func passthruArgs(opts *options) []string {
	var args []string
	boolFlag := func(set bool, long string) {
		if set {
			args = append(args, "--"+long)
		}
	}
	valueFlag := func(value, long string) {
		if value != "" {
			args = append(args, "--"+long+"="+value)
		}
	}

	boolFlag(opts.IgnoreCase, "ignore-case")
	boolFlag(opts.IgnoreAllSpace, "ignore-all-space")
	boolFlag(opts.IgnoreSpaceChange, "ignore-space-change")
	boolFlag(opts.IgnoreBlankLines, "ignore-blank-lines")
	boolFlag(opts.ExpandTabs, "expand-tabs")
	boolFlag(opts.InitialTab, "initial-tab")
	boolFlag(opts.SuppressCommonLines, "suppress-common-lines")
	boolFlag(opts.Minimal, "minimal")
	valueFlag(opts.Width, "width")
	valueFlag(opts.Ifdef, "ifdef")
	valueFlag(opts.Color, "color")
	valueFlag(opts.TabSize, "tabsize")
	valueFlag(opts.HorizonLines, "horizon-lines")

	return args
}

func printUsage(parser *flags.Parser) {
	parser.WriteHelp(os.Stdout)
}
