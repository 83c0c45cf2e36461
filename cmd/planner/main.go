// Package main provides the entry point for the livestream programming planner.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	"github.com/listenupapp/liveplan/internal/di"
	"github.com/listenupapp/liveplan/internal/logger"
	"github.com/listenupapp/liveplan/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	injector := di.NewContainer()
	defer func() {
		// The container closes the run store.
		_ = injector.Shutdown()
	}()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start planner: %v\n", err)
		return 2
	}

	log := do.MustInvoke[*logger.Logger](injector)
	p := do.MustInvoke[*pipeline.Pipeline](injector)

	sum, err := p.Run(ctx, pipeline.Options{
		OnProgress: func(pr *pipeline.Progress) {
			log.Debug("progress", "run_id", pr.RunID, "phase", pr.Phase, "step", pr.Step, "steps", pr.Steps)
		},
	})
	if sum != nil {
		printSummary(os.Stdout, sum)
	}
	if err != nil {
		log.Error("Run failed", "error", err)
		return 1
	}
	return 0
}

func printSummary(w io.Writer, sum *pipeline.Summary) {
	fmt.Fprintf(w, "Run %s: %s\n", sum.RunID, sum.Status)
	fmt.Fprintf(w, "  sessions:     %d\n", sum.Sessions)
	fmt.Fprintf(w, "  sample data:  %t\n", sum.Sample)
	fmt.Fprintf(w, "  degradations: %d\n", len(sum.Degradations()))
	fmt.Fprintf(w, "  fallbacks:    %d\n", len(sum.Fallbacks))
	fmt.Fprintf(w, "  outputs:      %d files, %d charts\n", len(sum.Files), len(sum.Charts))
	if sum.ReportPath != "" {
		fmt.Fprintf(w, "  report:       %s\n", sum.ReportPath)
	}
	if sum.Bundle != nil {
		fmt.Fprintf(w, "  bundle:       %s (sha256 %s)\n", sum.Bundle.Path, sum.Bundle.Checksum)
	}
	for _, n := range sum.Degradations() {
		fmt.Fprintf(w, "  ! %s\n", n)
	}
	fmt.Fprintf(w, "  duration:     %s\n", sum.Duration.Round(time.Millisecond))
}
