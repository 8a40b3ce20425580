package utils

import (
	"flag"
	"fmt"
	"strings"
)

// options is the package-level singleton backing Opts(), following the
// donor's convention of a single struct of CLI flags reachable from
// anywhere without threading a context object through every call.
type options struct {
	noColorize bool
	verbose    bool
	dot        string
}

var opts = &options{}

// CanColorize wraps a fatih/color SprintFunc so it degrades to plain
// fmt.Sprintf joins when colorization is disabled (-no-color, or a
// non-interactive run), exactly mirroring the donor's location/lattice
// colorize tables.
func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	return func(is ...interface{}) string {
		if opts.noColorize {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
		return col(is...)
	}
}

type optInterface struct{}

// Opts exposes the CLI-configured options.
func Opts() optInterface { return optInterface{} }

func (optInterface) NoColorize() bool { return opts.noColorize }
func (optInterface) Verbose() bool    { return opts.verbose }
func (optInterface) DotDir() string   { return opts.dot }

// RegisterFlags wires the shared options onto a flag.FlagSet; main
// calls this on flag.CommandLine, tests may call it on their own set.
func RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&opts.noColorize, "no-color", false, "disable colorized diagnostic output")
	fs.BoolVar(&opts.verbose, "verbose", false, "log fixed-point driver progress")
	fs.StringVar(&opts.dot, "dot", "", "directory to dump before/after CFG graphviz files into")
}
