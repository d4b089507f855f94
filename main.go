//go:build !js

// Command scriptvm compiles and runs scripts.
//
//	scriptvm -in add.sc -run -args "int 2, int 3"
//	scriptvm -in add.sc -out add.svm
//	scriptvm -run-bin add.svm -args "int 2, int 3" -ret int
//	scriptvm -in circle.sc -entry sdf -render circle.png
//	scriptvm -config scriptvm.yaml -watch
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"scriptvm/pkg/config"
	"scriptvm/pkg/hostlib"
	"scriptvm/pkg/hotreload"
	"scriptvm/pkg/logger"
	"scriptvm/pkg/render"
	"scriptvm/pkg/script"
)

// imageExt is the extension of saved program images.
const imageExt = ".svm"

type options struct {
	inPath     string
	outPath    string
	runProgram bool
	runBinPath string
	args       string
	ret        string
	entry      string
	stackSize  int
	disasm     bool
	watch      bool
	renderPath string
	configPath string
	logLevel   string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scriptvm", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.inPath, "in", "", "input script path")
	fs.StringVar(&o.outPath, "out", "", "output image path (default: input with "+imageExt+" extension)")
	fs.BoolVar(&o.runProgram, "run", false, "run the compiled script")
	fs.StringVar(&o.runBinPath, "run-bin", "", "run an existing image file")
	fs.StringVar(&o.args, "args", "", `entry arguments, e.g. "int 2, float 0.5"`)
	fs.StringVar(&o.ret, "ret", "", "expected return type (default: the entry function's)")
	fs.StringVar(&o.entry, "entry", "", "entry function name (default: main)")
	fs.IntVar(&o.stackSize, "stack", 0, "stack size in bytes")
	fs.BoolVar(&o.disasm, "disasm", false, "print the bytecode listing")
	fs.BoolVar(&o.watch, "watch", false, "recompile and rerun when the script changes")
	fs.StringVar(&o.renderPath, "render", "", "rasterize a float(float, float) distance script to this PNG")
	fs.StringVar(&o.configPath, "config", "", "host config file ("+config.FileName+")")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	o.merge(cfg)

	level, err := logger.ParseLevel(o.logLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	log := logger.New(stderr, level, "scriptvm")

	if o.runProgram && o.runBinPath != "" {
		fmt.Fprintln(stderr, "use either -run or -run-bin, not both")
		return 2
	}
	if o.inPath == "" && o.runBinPath == "" {
		fmt.Fprintln(stderr, "nothing to do: provide -in to compile, -run to run it, or -run-bin <file> to run an existing image")
		fs.Usage()
		return 2
	}
	if o.watch && o.inPath == "" {
		fmt.Fprintln(stderr, "-watch requires -in or a config with a script")
		return 2
	}

	prog, err := newProgram(o)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if o.watch {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		watch(ctx, prog, o, cfg, log, stdout)
		return 0
	}

	if err := execute(prog, o, cfg, log, stdout); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// loadConfig reads path, or the nearest scriptvm.yaml above the working
// directory when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		found, err := config.FindConfig(".")
		if err != nil || found == "" {
			return config.Default(), err
		}
		path = found
	}
	return config.Load(path)
}

// merge fills options left unset on the command line from cfg.
func (o *options) merge(cfg *config.Config) {
	if o.inPath == "" && o.runBinPath == "" {
		o.inPath = cfg.Script
	}
	if o.entry == "" {
		o.entry = cfg.Entry
	}
	if o.stackSize == 0 {
		o.stackSize = cfg.StackSize
	}
	if o.logLevel == "" {
		o.logLevel = cfg.LogLevel
	}
}

func newProgram(o options) (*script.Program, error) {
	prog := script.NewProgram(o.inPath, o.stackSize, o.entry)
	if err := hostlib.Register(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

func execute(prog *script.Program, o options, cfg *config.Config, log *logger.Logger, stdout io.Writer) error {
	if o.inPath != "" {
		if err := compileScript(prog, o, log, stdout); err != nil {
			return err
		}
		output := o.outPath
		if output == "" {
			output = defaultOutputPath(o.inPath)
		}
		if err := prog.SaveImage(output); err != nil {
			return fmt.Errorf("failed to write image %q: %w", output, err)
		}
		fmt.Fprintf(stdout, "compiled %d bytes -> %s\n", prog.Image().CodeEnd, output)
	} else {
		if err := prog.LoadImage(o.runBinPath); err != nil {
			return fmt.Errorf("failed to load image %q: %w", o.runBinPath, err)
		}
		if o.disasm {
			if err := printListing(prog, stdout); err != nil {
				return err
			}
		}
	}

	if o.renderPath != "" {
		if err := renderScript(prog, cfg, o.renderPath, log); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "rendered -> %s\n", o.renderPath)
	}

	if o.runProgram || o.runBinPath != "" {
		return runEntry(prog, o, stdout)
	}
	return nil
}

func compileScript(prog *script.Program, o options, log *logger.Logger, stdout io.Writer) error {
	done := log.Step("compile " + o.inPath)
	err := prog.Compile()
	log.Compilation(o.inPath, err)
	if err != nil {
		return fmt.Errorf("compilation failed: %w", err)
	}
	done()
	if o.disasm {
		return printListing(prog, stdout)
	}
	return nil
}

func printListing(prog *script.Program, stdout io.Writer) error {
	listing, err := prog.Image().Disassemble()
	if err != nil {
		return fmt.Errorf("disassemble: %w", err)
	}
	fmt.Fprint(stdout, listing)
	return nil
}

func runEntry(prog *script.Program, o options, stdout io.Writer) error {
	args, err := script.ParseArgs(o.args)
	if err != nil {
		return err
	}
	ret := o.ret
	if ret == "" {
		ret = prog.Image().EntryReturnType
	}
	result, err := prog.Execute(ret, args...)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	fmt.Fprintf(stdout, "%s() = %s\n", prog.Image().Entry, script.FormatValue(ret, result))
	return nil
}

func renderScript(ev render.Evaluator, cfg *config.Config, path string, log *logger.Logger) error {
	defer log.Step("render " + path)()
	opts := render.DefaultOptions()
	opts.Width, opts.Height = cfg.Render.Width, cfg.Render.Height
	img, err := render.Rasterize(ev, opts)
	if err != nil {
		return err
	}
	return render.SavePNG(render.Scale(img, cfg.Window.Width, cfg.Window.Height), path)
}

// watch recompiles on every change and reruns the entry function until ctx
// is cancelled.
func watch(ctx context.Context, prog *script.Program, o options, cfg *config.Config, log *logger.Logger, stdout io.Writer) {
	r := hotreload.New(prog, log)
	r.OnReload(func(gen string, p *script.Program) {
		if o.disasm {
			if err := printListing(p, stdout); err != nil {
				log.Error("%v", err)
			}
		}
		if o.renderPath != "" {
			if err := renderScript(p, cfg, o.renderPath, log); err != nil {
				log.Error("%v", err)
			}
		}
		if o.runProgram {
			if err := runEntry(p, o, stdout); err != nil {
				log.Error("%v", err)
			}
		}
	})
	if err := r.Init(); err != nil {
		log.Warn("%s has no runnable version yet: %v", o.inPath, err)
	}
	r.Run(ctx, cfg.PollInterval)
}

func defaultOutputPath(inPath string) string {
	ext := filepath.Ext(inPath)
	if ext == "" {
		return inPath + imageExt
	}
	return strings.TrimSuffix(inPath, ext) + imageExt
}
