package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/blobwatch/internal/watch"
)

// newWatchCmd builds the `blobwatch watch` command. It watches each given
// blob path until interrupted, logging every settled change. When a token
// fires it is terminal, so the command immediately watches the path again —
// the same replace-on-change pattern a config-reload consumer uses.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <path>...",
		Short: "Watch blobs and report changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), args)
		},
	}
}

func runWatch(parent context.Context, paths []string) error {
	logger := buildLogger()

	client, err := buildStoreClient(logger)
	if err != nil {
		return err
	}

	opts, err := loadedCfg.WatchOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := watch.NewProvider(ctx, client, client, opts, logger)
	if err != nil {
		return fmt.Errorf("starting provider: %w", err)
	}
	defer provider.Close()

	for _, path := range paths {
		if err := watchPath(provider, path, logger); err != nil {
			return err
		}
	}

	logger.Info("watching", slog.Int("paths", len(paths)))

	<-ctx.Done()
	logger.Info("shutting down")

	return provider.Close()
}

// watchPath arms a watch for one path. The callback replaces the fired
// token with a fresh one: changed tokens are single-use.
func watchPath(provider *watch.Provider, path string, logger *slog.Logger) error {
	token, err := provider.Watch(path)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	_, err = token.RegisterCallback(func() {
		logger.Info("change notification", slog.String("path", path))

		token.Release()

		if rewatchErr := watchPath(provider, path, logger); rewatchErr != nil {
			// Provider shut down between the notification and the re-arm.
			logger.Warn("could not re-arm watch",
				slog.String("path", path),
				slog.String("error", rewatchErr.Error()),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("registering callback for %s: %w", path, err)
	}

	return nil
}
