// Command console is a headless reload runner. It compiles a script, runs
// its entry function, and runs it again after every successful reload.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"scriptvm/pkg/config"
	"scriptvm/pkg/hostlib"
	"scriptvm/pkg/hotreload"
	"scriptvm/pkg/logger"
	"scriptvm/pkg/script"
)

// startTicker reruns the entry every interval until stop is closed.
func startTicker(r *hotreload.Reloader, run func(*script.Program), interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.With(run)
		case <-stop:
			return
		}
	}
}

func main() {
	configPath := flag.String("config", "", "host config file")
	scriptPath := flag.String("script", "", "script to run (overrides the config)")
	entry := flag.String("entry", "", "entry function (overrides the config)")
	args := flag.String("args", "", `entry arguments, e.g. "int 2, int 3"`)
	every := flag.Duration("every", 0, "also rerun on this interval")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *scriptPath != "" {
		cfg.Script = *scriptPath
	}
	if *entry != "" {
		cfg.Entry = *entry
	}
	if cfg.Script == "" {
		fmt.Fprintln(os.Stderr, "no script: provide -script or a config with one")
		os.Exit(2)
	}

	values, err := script.ParseArgs(*args)
	if err != nil {
		log.Fatalf("Bad -args: %v", err)
	}

	lg := logger.New(os.Stdout, cfg.Level(), "console")
	prog := script.NewProgram(cfg.Script, cfg.StackSize, cfg.Entry)
	if err := hostlib.Register(prog); err != nil {
		log.Fatalf("Failed to bind host library: %v", err)
	}

	r := hotreload.New(prog, lg)
	run := func(p *script.Program) {
		if !p.Compiled() {
			return
		}
		ret := p.Image().EntryReturnType
		res, err := p.Execute(ret, values...)
		if err != nil {
			lg.Error("%v", err)
			return
		}
		lg.Info("%s() = %s", cfg.Entry, script.FormatValue(ret, res))
	}
	r.OnReload(func(_ string, p *script.Program) { run(p) })

	if err := r.Init(); err != nil {
		lg.Warn("waiting for %s to compile: %v", cfg.Script, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *every > 0 {
		stopTicker := make(chan struct{})
		go startTicker(r, run, *every, stopTicker)
		defer close(stopTicker)
	}

	r.Run(ctx, cfg.PollInterval)
}
