package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/api/option"

	"github.com/dukerupert/weddingbell/internal/auth"
	"github.com/dukerupert/weddingbell/internal/config"
	"github.com/dukerupert/weddingbell/internal/database"
	"github.com/dukerupert/weddingbell/internal/logging"
	"github.com/dukerupert/weddingbell/internal/notify"
	"github.com/dukerupert/weddingbell/internal/push"
	"github.com/dukerupert/weddingbell/internal/server"
	"github.com/dukerupert/weddingbell/internal/store"
	ws "github.com/dukerupert/weddingbell/internal/websocket"
	"github.com/dukerupert/weddingbell/internal/whatsapp"
)

const usage = `usage: weddingbell <command> [flags]

commands:
  serve   run the callable server and morning sweep (default)
  sweep   run one morning sweep and print the report
  pair    pair a linked WhatsApp device
  token   mint a caller token`

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	switch cmd {
	case "serve":
		err = serve(cfg, logger)
	case "sweep":
		err = sweepOnce(cfg, logger)
	case "pair":
		err = pair(cfg, logger)
	case "token":
		err = mintToken(cfg, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error(cmd+" failed", "error", err)
		os.Exit(1)
	}
}

// app holds the wired dependencies shared by serve and sweep.
type app struct {
	dispatcher *notify.Dispatcher
	hub        *ws.Hub
	closers    []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, *server.Server, error) {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{closers: []func(){func() { db.Close() }}}

	cfg.LogPresence(logger)

	sender, err := newSender(ctx, cfg, logging.Component(logger, "whatsapp"))
	if err != nil {
		a.close()
		return nil, nil, err
	}
	if lc, ok := sender.(*whatsapp.LinkedClient); ok {
		a.closers = append(a.closers, lc.Disconnect)
	}

	pusher, err := newPusher(ctx, cfg, logging.Component(logger, "fcm"))
	if err != nil {
		a.close()
		return nil, nil, err
	}

	a.hub = ws.NewHub(logging.Component(logger, "websocket"))
	stores := notify.Stores{
		Weddings: store.NewWeddingStore(db),
		Events:   store.NewEventStore(db),
		Guests:   store.NewGuestStore(db),
		RSVPs:    store.NewRSVPStore(db),
		Users:    store.NewUserStore(db),
	}
	a.dispatcher = notify.NewDispatcher(notify.Config{
		AppLink:             cfg.WhatsApp.AppLink,
		SendTimeout:         cfg.SendTimeout,
		ChunkTimeout:        cfg.ChunkTimeout,
		ClaimLease:          cfg.ClaimLease,
		InvitesRequireAdmin: cfg.InvitesRequireAdmin,
	}, stores, sender, pusher, a.hub, logging.Component(logger, "notify"))

	srv := server.New(db, a.dispatcher, a.hub, auth.NewTokens(cfg.JWTSecret), logger)
	return a, srv, nil
}

// newSender returns nil when the gateway cannot be used; invite calls then
// fail with a precondition error.
func newSender(ctx context.Context, cfg *config.Config, logger *slog.Logger) (whatsapp.Sender, error) {
	if cfg.WhatsApp.Mode == config.ModeLinked {
		lc, err := whatsapp.NewLinkedClient(ctx, cfg.WhatsApp.DataDir, cfg.WhatsApp.DefaultCountryCode, logger)
		if err != nil {
			return nil, fmt.Errorf("open linked device: %w", err)
		}
		if !lc.Paired() {
			logger.Warn("linked device not paired; run weddingbell pair")
			return lc, nil
		}
		if err := lc.Connect(ctx, os.Stdout); err != nil {
			logger.Error("connect linked device", "error", err)
		}
		return lc, nil
	}

	return whatsapp.NewCloudClient(cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneNumberID,
		whatsapp.WithBaseURL(cfg.WhatsApp.APIBaseURL),
	), nil
}

func newPusher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (push.Multicaster, error) {
	if !cfg.Push.Enabled() {
		logger.Warn("push not configured; event notifications disabled")
		return nil, nil
	}
	creds, err := push.LoadCredentials(ctx, cfg.Push.CredentialsFile)
	if err != nil {
		return nil, err
	}
	client, err := push.NewFCMClient(ctx, cfg.Push.ProjectID, cfg.Push.Concurrency, logger, option.WithCredentials(creds))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func serve(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, srv, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	scheduler := notify.NewScheduler(a.dispatcher, cfg.SweepSchedule, logging.Component(logger, "sweep"))
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Invite dispatch sends one message per guest.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("weddingbell starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func sweepOnce(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, _, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	report := a.dispatcher.RunMorningSweep(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func pair(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lc, err := whatsapp.NewLinkedClient(ctx, cfg.WhatsApp.DataDir, cfg.WhatsApp.DefaultCountryCode, logging.Component(logger, "whatsapp"))
	if err != nil {
		return err
	}
	defer lc.Disconnect()

	if lc.Paired() {
		fmt.Println("Device already paired.")
		return nil
	}
	if err := lc.Connect(ctx, os.Stdout); err != nil {
		return err
	}
	fmt.Println("Device paired.")
	return nil
}

func mintToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userID := fs.String("user", "", "user id (token subject)")
	role := fs.String("role", "admin", "caller role")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	fs.Parse(args)

	token, err := auth.NewTokens(cfg.JWTSecret).Issue(*userID, *role, *ttl)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Println(token)
	return nil
}
