package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/wes321/dingcad/app"
	"github.com/wes321/dingcad/core/services/remote"
	"github.com/wes321/dingcad/core/services/watch"
	"github.com/wes321/dingcad/hal"
	"github.com/wes321/dingcad/internal/buildinfo"
)

type options struct {
	cfg      app.Config
	headless hal.HeadlessConfig
	enabled  bool // headless
}

// parseFlags applies defaults, then the -config file, then every flag set
// explicitly on the command line.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	def := app.DefaultConfig()
	fs := flag.NewFlagSet("dingcad", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		o          options
		configPath string
		fv         = def
	)
	fs.StringVar(&configPath, "config", "", "TOML config file.")
	fs.BoolVar(&o.enabled, "headless", false, "Run without a window.")
	fs.IntVar(&o.headless.Hz, "hz", 60, "Tick rate in headless mode.")
	fs.Uint64Var(&o.headless.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	fs.IntVar(&fv.Window.Width, "width", def.Window.Width, "Framebuffer width.")
	fs.IntVar(&fv.Window.Height, "height", def.Window.Height, "Framebuffer height.")
	fs.IntVar(&fv.Window.Scale, "scale", def.Window.Scale, "Window pixel scale.")
	fs.StringVar(&fv.Scene.Path, "scene", def.Scene.Path, "Scene file to load at startup.")
	fs.BoolVar(&fv.Scene.Watch, "watch", def.Scene.Watch, "Reload the scene file when it changes.")
	fs.StringVar(&fv.Library.Dir, "lib", def.Library.Dir, "Directory of library modules.")
	fs.BoolVar(&fv.Remote.Enabled, "remote", def.Remote.Enabled, "Serve the remote control API.")
	fs.StringVar(&fv.Remote.Addr, "addr", def.Remote.Addr, "Remote control listen address.")
	fs.StringVar(&fv.Log.Level, "log-level", def.Log.Level, "Log level.")
	fs.BoolVar(&fv.Log.Development, "dev", def.Log.Development, "Development logging.")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	o.cfg = def
	if configPath != "" {
		cfg, err := app.LoadConfig(configPath)
		if err != nil {
			return o, err
		}
		o.cfg = cfg
	}
	fs.Visit(func(f *flag.Flag) {
		c := &o.cfg
		switch f.Name {
		case "width":
			c.Window.Width = fv.Window.Width
		case "height":
			c.Window.Height = fv.Window.Height
		case "scale":
			c.Window.Scale = fv.Window.Scale
		case "scene":
			c.Scene.Path = fv.Scene.Path
		case "watch":
			c.Scene.Watch = fv.Scene.Watch
		case "lib":
			c.Library.Dir = fv.Library.Dir
		case "remote":
			c.Remote.Enabled = fv.Remote.Enabled
		case "addr":
			c.Remote.Addr = fv.Remote.Addr
		case "log-level":
			c.Log.Level = fv.Log.Level
		case "dev":
			c.Log.Development = fv.Log.Development
		}
	})
	if err := o.cfg.Validate(); err != nil {
		return o, fmt.Errorf("invalid config: %w", err)
	}

	o.headless.Width = o.cfg.Window.Width
	o.headless.Height = o.cfg.Window.Height
	return o, nil
}

func newLogger(c app.LogConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	o, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	logger, err := newLogger(o.cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	ready := make(chan *app.App, 1)
	var a *app.App
	newApp := func(h hal.HAL) func() error {
		created, err := app.New(h, o.cfg, app.WithLogger(logger))
		if err != nil {
			return func() error { return err }
		}
		a = created
		ready <- created
		return func() error {
			if ctx.Err() != nil {
				return hal.ErrQuit
			}
			return created.Step()
		}
	}

	g.Go(func() error { return serveAux(ctx, o.cfg, logger, ready) })

	if o.enabled {
		o.headless.Logger = logger.Named("hal")
		g.Go(func() error {
			defer cancel()
			err := hal.RunHeadless(ctx, newApp, o.headless)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		// ebiten must own the main goroutine.
		err := hal.RunWindow(newApp, hal.WindowConfig{
			Width:  o.cfg.Window.Width,
			Height: o.cfg.Window.Height,
			Scale:  o.cfg.Window.Scale,
			TPS:    o.cfg.Window.TPS,
			Title:  o.cfg.Window.Title + " (" + buildinfo.Short() + ")",
			Logger: logger.Named("hal"),
		})
		cancel()
		if err != nil {
			_ = g.Wait()
			closeApp(a)
			return err
		}
	}

	err = g.Wait()
	closeApp(a)
	return err
}

func closeApp(a *app.App) {
	if a != nil {
		a.Close()
	}
}

// serveAux runs the scene watcher and the remote server once the app exists.
func serveAux(ctx context.Context, cfg app.Config, logger *zap.Logger, ready <-chan *app.App) error {
	var a *app.App
	select {
	case <-ctx.Done():
		return nil
	case a = <-ready:
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Scene.Path != "" {
		w := watch.New(cfg.Scene.Path, a.LoadSceneFromCode, watch.WithLogger(logger.Named("watch")))
		if err := w.Initial(); err != nil {
			logger.Warn("no initial scene", zap.Error(err))
		}
		if cfg.Scene.Watch {
			g.Go(func() error { return w.Run(ctx) })
		}
	}
	if cfg.Remote.Enabled {
		srv := remote.New(a, remote.Config{Addr: cfg.Remote.Addr, Logger: logger.Named("remote")})
		g.Go(func() error { return srv.Run(ctx) })
	}
	return g.Wait()
}
