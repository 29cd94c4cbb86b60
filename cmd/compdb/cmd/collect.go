package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ritzau/compdb/pkg/collector"
	"github.com/ritzau/compdb/pkg/config"
	"github.com/ritzau/compdb/pkg/feed"
	"github.com/ritzau/compdb/pkg/logging"
	"github.com/ritzau/compdb/pkg/output"
)

// collect runs one session fed by f. The session is ended on every path,
// including interruption, so the output is always a closed array.
func collect(ctx context.Context, cfg *config.Config, f feed.Feed, report io.Writer) error {
	start := time.Now()
	session := collector.Begin(cfg)
	defer session.End()

	logging.Info("collecting", "feed", f.Name(), "output", cfg.Output, "jobs", cfg.Jobs)

	ch := make(chan collector.Command, cfg.Jobs*4)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ch)
		return f.Run(gctx, func(ctx context.Context, cmd collector.Command) error {
			select {
			case ch <- cmd:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})
	g.Go(func() error {
		return session.Consume(gctx, cfg.Jobs, ch)
	})

	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
		logging.Info("interrupted, closing compilation database")
		runErr = nil
	}

	endErr := session.End()
	output.PrintSessionReport(report, session.Stats(), time.Since(start))

	if runErr != nil {
		return fmt.Errorf("%s: %w", f.Name(), runErr)
	}
	return endErr
}
