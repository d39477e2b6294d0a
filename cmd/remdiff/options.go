package main

import "github.com/jessevdk/go-flags"

// passthruOption is one entry of the fixed registry of diff options
// forwarded verbatim, mirroring the original driver's dynamic
// passthru_option() registrations as a static table instead: Go's
// reflection-driven go-flags binds each one to its own struct field, so
// there's no runtime registration step left to perform.
type passthruOption struct {
	long    string
	short   string
	takesArg bool
}

// passthruOptions lists the registry; nothing reads it at run time,
// since the options themselves are ordinary struct fields below so
// go-flags parses them without any custom bridging code, and usage
// text comes from go-flags' own WriteHelp.
var passthruOptions = []passthruOption{
	{long: "ignore-case", takesArg: false},
	{long: "ignore-all-space", short: "w", takesArg: false},
	{long: "ignore-space-change", short: "b", takesArg: false},
	{long: "ignore-blank-lines", short: "B", takesArg: false},
	{long: "expand-tabs", short: "t", takesArg: false},
	{long: "initial-tab", short: "T", takesArg: false},
	{long: "suppress-common-lines", takesArg: false},
	{long: "minimal", short: "d", takesArg: false},
	{long: "width", short: "W", takesArg: true},
	{long: "ifdef", takesArg: true},
	{long: "color", takesArg: true},
	{long: "tabsize", takesArg: true},
	{long: "horizon-lines", takesArg: true},
}

// options is the full set of flags go-flags parses, plus the two
// positional operands. Mode flags are bound here so go-flags can
// validate their shape (e.g. -U takes an optional numeric argument),
// but which one wins when several are given is decided afterwards by
// rescanning argv in order, since go-flags itself has no notion of
// "last flag wins" between distinct fields.
type options struct {
	Help    bool `long:"help" description:"show this help message and exit"`
	Version bool `long:"version" description:"show version information and exit"`
	Debug   bool `long:"debug" description:"enable internal tracing to standard error"`

	Normal     bool   `long:"normal" description:"traditional diff output"`
	Brief      bool   `short:"q" long:"brief" description:"report only when files differ"`
	Unified    bool   `short:"u" description:"unified diff"`
	UnifiedNum string `short:"U" long:"unified" optional:"yes" optional-value:"" description:"unified diff, optionally with NUM context lines"`
	SideBySide bool   `short:"y" long:"side-by-side" description:"side-by-side output"`

	NewFile  bool `short:"N" long:"new-file" description:"treat a missing operand on either side as empty"`
	NewFile1 bool `long:"new-file1" description:"treat a missing operand 1 as empty"`
	NewFile2 bool `long:"new-file2" description:"treat a missing operand 2 as empty"`
	ReportIdentical bool `short:"s" long:"report-identical-files" description:"report when two files are identical"`

	IgnoreCase          bool   `long:"ignore-case" description:"ignore case differences"`
	IgnoreAllSpace      bool   `short:"w" long:"ignore-all-space" description:"ignore all white space"`
	IgnoreSpaceChange   bool   `short:"b" long:"ignore-space-change" description:"ignore changes in amount of white space"`
	IgnoreBlankLines    bool   `short:"B" long:"ignore-blank-lines" description:"ignore changes where lines are blank"`
	ExpandTabs          bool   `short:"t" long:"expand-tabs" description:"expand tabs to spaces in output"`
	InitialTab          bool   `short:"T" long:"initial-tab" description:"make tabs line up by prepending one"`
	SuppressCommonLines bool   `long:"suppress-common-lines" description:"do not print common lines"`
	Minimal             bool   `short:"d" long:"minimal" description:"try hard to find a smaller set of changes"`
	Width               string `short:"W" long:"width" description:"output at most NUM print columns"`
	Ifdef               string `long:"ifdef" description:"make merged #ifdef format output"`
	Color               string `long:"color" description:"colorize the output; WHEN is never, always, or auto"`
	TabSize             string `long:"tabsize" description:"tab stops every NUM print columns"`
	HorizonLines        string `long:"horizon-lines" description:"keep NUM lines of the common prefix/suffix"`

	Positional struct {
		Operand1 string `positional-arg-name:"OPERAND1"`
		Operand2 string `positional-arg-name:"OPERAND2"`
	} `positional-args:"yes"`
}

// newParser builds a go-flags parser with its own HelpFlag handling
// disabled: options.Help and options.Version are ordinary fields so
// that exit-code 0 usage/version output is driven by main, not by
// go-flags' default behaviour (which exits the process directly).
func newParser(opts *options) *flags.Parser {
	p := flags.NewParser(opts, flags.PassDoubleDash)
	p.Options &^= flags.HelpFlag
	return p
}
