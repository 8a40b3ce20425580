package main

import (
	"flag"
	"fmt"
	"go/types"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ownlang/objnorm/cfgdump"
	"github.com/ownlang/objnorm/diag"
	"github.com/ownlang/objnorm/ir"
	"github.com/ownlang/objnorm/irtest"
	"github.com/ownlang/objnorm/normalize"
	"github.com/ownlang/objnorm/utils"
)

var opts = utils.Opts()

func main() {
	utils.RegisterFlags(flag.CommandLine)
	flag.Parse()

	module, fn := demoProgram()

	if dir := opts.DotDir(); dir != "" {
		if err := dumpCFG(dir, "before", fn); err != nil {
			log.Fatalln("failed to dump CFG:", err)
		}
	}

	diags := diag.NewSet()
	func() {
		defer utils.TimeTrack(time.Now(), "normalize.Run")
		normalize.Run(module, fn, diags)
	}()

	if dir := opts.DotDir(); dir != "" {
		if err := dumpCFG(dir, "after", fn); err != nil {
			log.Fatalln("failed to dump CFG:", err)
		}
	}

	if !diags.HasErrors() {
		fmt.Println("no diagnostics")
		return
	}
	for _, d := range diags.Items() {
		fmt.Println(d.String())
	}
	os.Exit(1)
}

// demoProgram builds a small function exercising the overwrite-of-live-
// storage case (a store into already-initialized stack storage). The
// storage is a built-in Int, which store may overwrite without a
// deinitialization sequence, so the pass inserts nothing and reports
// nothing.
func demoProgram() (*ir.Module, *ir.Function) {
	b := irtest.NewFunction("demo")
	s := b.AllocStack(types.Typ[types.Int])
	b.Store(ir.ConstOperand(1), ir.LocalOperand(s))
	b.Store(ir.ConstOperand(2), ir.LocalOperand(s))
	loaded := b.Load(s)
	b.Return(ir.LocalOperand(loaded))
	return b.Module(), b.Function()
}

func dumpCFG(dir, label string, fn *ir.Function) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.%s", fn.Name, label))
	out, err := cfgdump.Dot(fn).SaveImage(path, "svg")
	if err != nil {
		return err
	}
	log.Println("wrote", out)
	return nil
}
