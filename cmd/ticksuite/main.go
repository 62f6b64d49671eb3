package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"tickexec/internal/diag"
	"tickexec/internal/sched"
	"tickexec/internal/suite"
)

func main() {
	os.Exit(run())
}

func run() int {
	console := diag.Console()

	path := "ticksuite.yml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := sched.LoadOver(path, suite.DefaultConfig())
	if err != nil {
		fmt.Fprintf(console, "%s setup: %v\n", suite.FailPattern, err)
		return 2
	}
	level, err := diag.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(console, "%s setup: %v\n", suite.FailPattern, err)
		return 2
	}
	log := diag.NewLogger(os.Stderr, level)

	sched.SetPanicHandler(func(info sched.PanicInfo) {
		fmt.Fprintf(console, "task %d (%s) panicked: %v\n%s\n%s panic\n",
			info.TaskID, info.Name, info.Value, info.Stack, suite.FailPattern)
		diag.Halt(1)
	})

	var opts []sched.Option
	if cfg.TraceCSV != "" {
		tr, err := diag.CreateCSVTrace(cfg.TraceCSV)
		if err != nil {
			fmt.Fprintf(console, "%s setup: %v\n", suite.FailPattern, err)
			return 2
		}
		defer func() {
			if err := tr.Close(); err != nil {
				log.Err().Err(err).Log("closing trace")
			}
		}()
		opts = append(opts, sched.WithObserver(tr.Observe))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sum, err := suite.Run(ctx, cfg, suite.Cases(), console, log, opts...)
	if err != nil {
		log.Err().Err(err).Log("suite aborted")
		return 2
	}
	if !sum.OK() {
		return 1
	}
	return 0
}
