package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/scribe-dev/scribe/internal/catalog"
	"github.com/scribe-dev/scribe/internal/config"
	"github.com/scribe-dev/scribe/internal/dictation"
	"github.com/scribe-dev/scribe/internal/lock"
	"github.com/scribe-dev/scribe/internal/log"
	"github.com/scribe-dev/scribe/internal/session"
	"github.com/scribe-dev/scribe/internal/state"
	"github.com/scribe-dev/scribe/internal/transcribe"
)

// app bundles what a command needs. Mutating apps hold the data directory
// lock and carry the active session across invocations through state.json.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	svc     *dictation.Service
	catalog *catalog.Store
	lock    *lock.Lock
	mutate  bool
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	return cfg, nil
}

func (o *rootOptions) newLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Log.Level)
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openApp loads config and wires the dictation service. With mutate set it
// takes the data directory lock and resumes the session saved in state.json.
func (o *rootOptions) openApp(ctx context.Context, mutate bool) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := o.newLogger(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, mutate: mutate}
	if mutate {
		l, err := lock.Acquire(cfg.LockPath())
		if err != nil {
			return nil, err
		}
		a.lock = l
	}

	journal, err := log.NewLogger(cfg.DataDir)
	if err != nil {
		_ = a.lock.Release()
		return nil, err
	}

	if cfg.Catalog.Enabled {
		store, err := catalog.Open(cfg.CatalogPath())
		if err != nil {
			logger.Warn("session catalog unavailable, searching by scan", "error", err)
		} else {
			a.catalog = store
		}
	}

	var model transcribe.Transcriber
	if cfg.Transcriber.Command != "" {
		model = transcribe.NewCommand(cfg.Transcriber.Command, cfg.Transcriber.Args, cfg.TranscribeTimeout())
	}

	repo := session.NewRepository(cfg.SessionsDir(), session.WithLogger(logger))
	a.svc = dictation.New(repo, model, dictation.Options{
		Journal: journal,
		Catalog: a.catalog,
		Logger:  logger,
	})

	if mutate {
		if err := a.resumeSaved(ctx); err != nil {
			a.mutate = false // keep state.json as it was
			_ = a.close()
			return nil, err
		}
	}
	return a, nil
}

// resumeSaved reactivates the session recorded in state.json. A session that
// no longer exists, or an unreadable state file, is forgotten.
func (a *app) resumeSaved(ctx context.Context) error {
	id, err := a.savedID()
	if err != nil || id == "" {
		return err
	}
	err = a.svc.Resume(ctx, id)
	if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrInvalidID) {
		a.logger.Warn("saved active session is gone, starting fresh", "session", id)
		return state.Clear(a.cfg.StatePath())
	}
	return err
}

// activeID returns the active session id: the in-process one for mutating
// apps, the saved one otherwise.
func (a *app) activeID(ctx context.Context) (string, error) {
	if a.mutate {
		sess, ok, err := a.svc.Active(ctx)
		if err != nil || !ok {
			return "", err
		}
		return sess.ID, nil
	}
	return a.savedID()
}

// savedID reads the active session id from state.json. A corrupt file is
// logged and treated as no active session; mutating apps then overwrite it on
// close.
func (a *app) savedID() (string, error) {
	id, err := state.ActiveSession(a.cfg.StatePath())
	if errors.Is(err, state.ErrCorrupt) {
		a.logger.Warn("ignoring unreadable state file", "path", a.cfg.StatePath(), "error", err)
		return "", nil
	}
	return id, err
}

// close saves the active session id (mutating apps only), stops the service
// and releases the catalog and lock.
func (a *app) close() error {
	var errs []error
	if a.mutate && a.svc != nil {
		sess, ok, err := a.svc.Active(context.Background())
		if err != nil {
			errs = append(errs, err)
		} else {
			st := &state.State{}
			if ok {
				st.ActiveSession = sess.ID
			}
			errs = append(errs, state.Save(a.cfg.StatePath(), st))
		}
	}
	if a.svc != nil {
		a.svc.Close()
	}
	if a.catalog != nil {
		errs = append(errs, a.catalog.Close())
	}
	errs = append(errs, a.lock.Release())
	return errors.Join(errs...)
}

// withApp opens an app, runs fn and closes the app, reporting the first
// error.
func (o *rootOptions) withApp(ctx context.Context, mutate bool, fn func(*app) error) error {
	a, err := o.openApp(ctx, mutate)
	if err != nil {
		return err
	}
	runErr := fn(a)
	closeErr := a.close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}
