package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jgivc/fetchimages/internal/adapter/fsadapter"
	"github.com/jgivc/fetchimages/internal/adapter/htmladapter"
	"github.com/jgivc/fetchimages/internal/adapter/httpadapter"
	"github.com/jgivc/fetchimages/internal/adapter/mdadapter"
	"github.com/jgivc/fetchimages/internal/config"
	"github.com/jgivc/fetchimages/internal/entity"
	"github.com/jgivc/fetchimages/internal/handler/console"
	"github.com/jgivc/fetchimages/internal/metrics"
	"github.com/jgivc/fetchimages/internal/repository/ledger"
	"github.com/jgivc/fetchimages/internal/service/fetch"
	"github.com/jgivc/fetchimages/internal/service/input"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

const pingTimeout = 5 * time.Second

var ErrNoURLs = errors.New("no image urls given")

// Options are command line values that take precedence over the config file.
type Options struct {
	ConfigOptional bool
	OutputDir      string
	InputFile      string
	Format         string
	Base           string
	Args           []string
}

type App struct {
	cfgPath string
	opts    Options
	fs      afero.Fs
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer

	cfg   *config.Config
	rdb   *redis.Client
	srv   *fetch.FetchService
	input *input.InputService
	log   *slog.Logger
}

func New(cfgPath string, opts Options) *App {
	return &App{
		cfgPath: cfgPath,
		opts:    opts,
		fs:      afero.NewOsFs(),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// Start loads the config and wires every component. It does no network I/O
// except the redis ping when the redis ledger is configured.
func (a *App) Start(ctx context.Context) error {
	cfg, err := config.Load(a.cfgPath, a.opts.ConfigOptional)
	if err != nil {
		return err
	}
	if a.opts.OutputDir != "" {
		cfg.OutputDir = a.opts.OutputDir
	}
	a.cfg = cfg

	lo := &slog.HandlerOptions{}
	switch cfg.LogLevel {
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	default:
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	log := slog.New(slog.NewTextHandler(a.stderr, lo))
	a.log = log

	mode, err := ledger.ParseMode(cfg.Ledger.Mode)
	if err != nil {
		return err
	}

	var l fetch.Ledger

	switch cfg.Ledger.Backend {
	case config.LedgerBackendRedis:
		opt, err := redis.ParseURL(cfg.Ledger.RedisURL)
		if err != nil {
			return fmt.Errorf("cannot parse redis url: %w", err)
		}

		a.rdb = redis.NewClient(opt)

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()

		if err := a.rdb.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("cannot connect to redis: %w", err)
		}

		l = ledger.NewRedisLedger(a.rdb, cfg.Ledger.RedisKey, mode, log)
	default:
		fl, err := ledger.NewFileLedger(a.fs, filepath.Join(cfg.OutputDir, cfg.Ledger.FileName), mode, log)
		if err != nil {
			return err
		}
		l = fl
	}

	observers := []fetch.Observer{console.NewReporter(a.stdout, log)}
	if cfg.Metrics.TextFile != "" {
		observers = append(observers, metrics.NewRecorder(cfg.Metrics.TextFile, log))
	}

	client := httpadapter.NewHTTPAdapter(&cfg.HTTP, log)
	store := fsadapter.NewFSAdapterWithFS(a.fs, cfg.OutputDir, []string{cfg.Ledger.FileName}, log)

	a.srv = fetch.NewFetchService(client, store, l, cfg.HTTP.MaxSize, log, observers...)
	a.input = input.NewInputService(a.fs, mdadapter.NewMDAdapter(log), htmladapter.NewHTMLAdapter(log), log)

	log.Debug("App started",
		slog.String("output_dir", cfg.OutputDir),
		slog.String("ledger_backend", cfg.Ledger.Backend),
		slog.String("ledger_mode", mode.String()),
	)

	return nil
}

// Run collects URLs from the input file, the arguments or the prompt, and fetches them.
func (a *App) Run(ctx context.Context) (*entity.BatchReport, error) {
	urls, err := a.collect()
	if err != nil {
		return nil, err
	}

	if len(urls) == 0 {
		return nil, ErrNoURLs
	}

	return a.srv.FetchAll(ctx, urls)
}

func (a *App) collect() ([]string, error) {
	var urls []string

	if a.opts.InputFile != "" {
		format, err := input.ParseFormat(a.opts.Format)
		if err != nil {
			return nil, err
		}

		fromFile, err := a.input.FromFile(a.opts.InputFile, format, a.opts.Base)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	}

	urls = append(urls, a.input.FromArgs(a.opts.Args)...)

	if a.opts.InputFile == "" && len(a.opts.Args) == 0 {
		return a.input.Prompt(a.stdin, a.stdout)
	}

	return urls, nil
}

func (a *App) Stop() {
	if a.rdb == nil {
		return
	}

	if err := a.rdb.Close(); err != nil {
		a.log.Warn("Cannot close redis client", slog.Any("error", err))
	}
}
