package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/thiagokokada/gitdesk/internal/buildinfo"
	"github.com/thiagokokada/gitdesk/internal/config"
	"github.com/thiagokokada/gitdesk/internal/git"
	"github.com/thiagokokada/gitdesk/internal/persist"
	"github.com/thiagokokada/gitdesk/internal/remote"
	"github.com/thiagokokada/gitdesk/internal/server"
	"github.com/thiagokokada/gitdesk/internal/session"
	"github.com/thiagokokada/gitdesk/internal/watch"
)

const shutdownTimeout = 10 * time.Second

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:])
}

func run(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("gitdesk", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", config.DefaultPath(), "configuration file")
	showVersion := fs.Bool("version", false, "print version information and exit")
	config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: gitdesk [flags] [repo]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Println(buildinfo.String())
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyFlags(fs); err != nil {
		return err
	}
	if remaining := fs.Args(); len(remaining) > 0 {
		cfg.Repo = remaining[len(remaining)-1]
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(cfg.Verbose)
	return serve(ctx, cfg)
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// openRepository returns the repository to serve and, for local
// repositories, the worktree root to watch.
func openRepository(ctx context.Context, cfg config.Config) (session.Repository, string, error) {
	if cfg.Remote != "" {
		client, err := remote.New(cfg.Remote, &http.Client{Timeout: cfg.CallTimeout})
		if err != nil {
			return nil, "", err
		}
		if err := client.Ping(ctx); err != nil {
			return nil, "", fmt.Errorf("reach %s: %w", cfg.Remote, err)
		}
		return client, "", nil
	}
	svc, err := git.Open(cfg.Repo, git.Options{
		CommitLimit:  cfg.CommitLimit,
		ContextLines: cfg.DiffContext,
		Author:       git.Signature{Name: cfg.AuthorName, Email: cfg.AuthorEmail},
	})
	if err != nil {
		return nil, "", err
	}
	return svc, svc.RepoPath(), nil
}

func serve(ctx context.Context, cfg config.Config) (err error) {
	repo, root, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	store, err := persist.OpenBadger(cfg.StatePath())
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, store.Close()) }()
	slot, err := persist.New(store, cfg.Session)
	if err != nil {
		return err
	}

	ctrl := session.New(repo, session.Options{Debounce: cfg.Debounce, CallTimeout: cfg.CallTimeout})
	sub, err := ctrl.Subscribe()
	if err != nil {
		return err
	}
	observed := make(chan struct{})
	go func() {
		defer close(observed)
		// Runs until ctrl.Close ends the subscription so the final state is saved.
		slot.Observe(context.WithoutCancel(ctx), sub)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = errors.Join(err, ctrl.Close(shutdownCtx))
		<-observed
	}()
	if err := persist.Hydrate(ctrl, slot); err != nil {
		return err
	}

	if cfg.Watch && root != "" {
		w, err := watch.Start(root, cfg.WatchDelay, func() {
			if err := ctrl.Refresh(); err != nil {
				slog.Debug("refresh after change", slog.Any("error", err))
			}
		})
		if err != nil {
			slog.Error("auto reload disabled", slog.Any("error", err))
		} else {
			defer w.Close()
		}
	}

	api := server.New(repo, ctrl)
	api.OnReset(func() error { return persist.Reset(ctrl, slot) })
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	httpServer := &http.Server{Handler: api, ReadHeaderTimeout: 10 * time.Second}
	served := make(chan error, 1)
	go func() { served <- httpServer.Serve(ln) }()
	slog.Info("serving",
		slog.String("addr", ln.Addr().String()),
		slog.String("session", cfg.Session),
		slog.String("repo", cfg.Repo),
	)

	select {
	case <-ctx.Done():
	case err := <-served:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
