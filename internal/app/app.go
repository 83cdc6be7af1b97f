// Package app wires the board, sessions, dispatcher and packet link into a
// running BBS.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/valyala/fasthttp"

	"meshbbs/internal/expiry"
	"meshbbs/pkg/board"
	"meshbbs/pkg/board/filestore"
	"meshbbs/pkg/board/pebblestore"
	"meshbbs/pkg/config"
	"meshbbs/pkg/config/banner"
	"meshbbs/pkg/dispatch"
	"meshbbs/pkg/framer"
	"meshbbs/pkg/logger"
	"meshbbs/pkg/session"
	"meshbbs/pkg/state"
	"meshbbs/pkg/transport"
)

// Options tune New for the different entry points.
type Options struct {
	Version string
	// Link replaces the configured transport, e.g. a console bound to stdin.
	Link transport.Transport
	// DisableHTTP skips the health, metrics and gateway listener.
	DisableHTTP bool
	// BannerOut receives the startup banner; nil means stdout.
	BannerOut io.Writer
	// Dispatch overrides dispatcher options such as the shuffler.
	Dispatch *dispatch.Options
}

// App groups the running components.
type App struct {
	eff   config.EffectiveConfigResult
	opts  Options
	paths state.Paths

	board      *board.Store
	sessions   *session.Store
	dispatcher *dispatch.Dispatcher
	framer     framer.Framer
	link       transport.Transport
	gateway    *transport.Gateway
	outbox     *transport.Outbox
	sweeper    *expiry.Sweeper

	expiryCancel context.CancelFunc
	pumpCancel   context.CancelFunc
	pumpDone     chan struct{}
	srvFast      *fasthttp.Server
	status       atomic.Value // string
}

// New opens the board and builds every component. It does not start the
// listener or the pump; Run does.
func New(ctx context.Context, eff config.EffectiveConfigResult, opts Options) (*App, error) {
	if eff.Config == nil {
		return nil, fmt.Errorf("config is nil")
	}
	cfg := eff.Config
	a := &App{eff: eff, opts: opts, paths: state.PathsFor(cfg.Data.Dir)}
	a.status.Store("starting")

	p, err := OpenPersister(cfg.Data.Backend, a.paths)
	if err != nil {
		return nil, err
	}
	a.board = board.New(cfg.BoardConfig(), p)
	if err := a.board.Load(ctx); err != nil {
		logger.Warn("board_load_failed_starting_empty", "backend", cfg.Data.Backend, "error", err)
	}

	a.sessions = session.NewStore()
	dopts := dispatch.Options{StartingChips: cfg.Games.StartingChips}
	if opts.Dispatch != nil {
		dopts = *opts.Dispatch
		if dopts.StartingChips == 0 {
			dopts.StartingChips = cfg.Games.StartingChips
		}
	}
	a.dispatcher = dispatch.New(a.sessions, a.board, dopts)
	a.framer = cfg.Framer()

	a.sweeper, err = expiry.New(a.sessions, cfg.Sessions.TTL(), cfg.Sessions.SweepCron)
	if err != nil {
		_ = a.board.Close()
		return nil, err
	}

	switch {
	case opts.Link != nil:
		a.link = opts.Link
	case cfg.Transport.Kind == config.TransportConsole:
		a.link = transport.NewConsole("!console", os.Stdin, os.Stdout)
	default:
		a.gateway = transport.NewGateway(transport.GatewayOptions{
			MailboxSize: cfg.Transport.MailboxSize,
			WebhookURL:  cfg.Transport.WebhookURL,
		})
		a.link = a.gateway
	}
	if g, ok := a.link.(*transport.Gateway); ok {
		a.gateway = g
	}
	a.outbox = transport.NewOutbox(a.link, cfg.Transport.Delay())

	logger.Info("app_initialized",
		"backend", cfg.Data.Backend,
		"transport", a.link.Name(),
		"topics", len(a.board.Topics()),
		"chunk_delay", cfg.Transport.Delay().String())
	return a, nil
}

// OpenPersister returns the board persister for backend under paths.
func OpenPersister(backend string, paths state.Paths) (board.Persister, error) {
	switch backend {
	case config.BackendFile:
		return filestore.New(paths.Snapshot), nil
	case config.BackendPebble, "":
		s, err := pebblestore.Open(paths.Board)
		if err != nil {
			return nil, fmt.Errorf("failed to open pebble at %s: %w", paths.Board, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown data backend %q", backend)
	}
}

// Run prints the banner, starts the sweeper, listener and pump, and blocks
// until ctx is done, the listener fails or the link runs dry.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	a.expiryCancel = a.sweeper.Start(ctx)

	var errCh <-chan error
	if !a.opts.DisableHTTP {
		errCh = a.startHTTP(ctx)
	}

	// the pump outlives ctx so an in-flight dispatch can finish; Shutdown
	// stops it before the final save
	pumpCtx, pumpCancel := context.WithCancel(context.WithoutCancel(ctx))
	a.pumpCancel = pumpCancel
	a.pumpDone = make(chan struct{})
	go func() {
		defer close(a.pumpDone)
		a.pump(pumpCtx)
	}()

	a.status.Store("running")
	select {
	case <-ctx.Done():
		return nil
	case <-a.pumpDone:
		logger.Info("link_closed", "transport", a.link.Name())
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) printBanner() {
	w := a.opts.BannerOut
	if w == nil {
		w = os.Stdout
	}
	banner.Print(w, a.eff, a.opts.Version)
}

// Status reports the lifecycle stage: starting, running, shutting_down or
// stopped.
func (a *App) Status() string {
	s, _ := a.status.Load().(string)
	return s
}
