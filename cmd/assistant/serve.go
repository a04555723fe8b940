package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/task-assistant/internal/config"
	"github.com/nhle/task-assistant/internal/gateway"
	"github.com/nhle/task-assistant/internal/logging"
	"github.com/nhle/task-assistant/internal/scheduler"
	"github.com/nhle/task-assistant/internal/store"
)

const defaultPollInterval = 2 * time.Minute

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook gateway and the reminder scheduler",
	Long: `Start the HTTP gateway (WhatsApp webhook, /health, /status), the
optional IMAP mailbox poller and the reminder, overdue and digest sweeps.
POST /jobs/<name>/run with "Authorization: Bearer <verify token>" runs a
job without waiting for its interval.

Examples:
  assistant serve
  assistant serve --addr :8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

// statusReport is the body of GET /status.
type statusReport struct {
	Jobs   []scheduler.JobStatus  `json:"jobs"`
	Store  store.Stats            `json:"store"`
	Health *scheduler.HealthStats `json:"health,omitempty"`
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(cfg, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := gateway.NewServer(gateway.ServerConfig{
		Addr:        addr,
		VerifyToken: cfg.WhatsApp.VerifyToken,
	}, rt.assistant, logger)
	if rt.whatsapp != nil {
		srv.SetReadMarker(rt.whatsapp)
	}
	srv.SetJobRunner(rt.scheduler)
	srv.SetStatus(func(ctx context.Context) (any, error) {
		stats, err := rt.store.Stats(ctx)
		if err != nil {
			return nil, err
		}
		report := statusReport{Jobs: rt.scheduler.Status(), Store: stats}
		if rt.health != nil {
			h := rt.health.Stats()
			report.Health = &h
		}
		return report, nil
	})

	if imap := cfg.Email.IMAP; imap.Host != "" {
		mailbox := gateway.NewMailbox(gateway.IMAPConfig{
			Host:     imap.Host,
			Port:     imap.Port,
			Username: imap.Username,
			Password: imap.Password,
			TLS:      imap.TLS,
			Mailbox:  imap.Mailbox,
		}, rt.assistant, logger)
		rt.scheduler.Register(mailbox.Job(config.Seconds(imap.PollIntervalSec, defaultPollInterval)))
	}

	if err := config.Watch(configPath, func(c *config.Config) {
		if err := logging.SetLevel(logLevel, c.Logging.Level); err != nil {
			logger.Warn("ignoring log level", zap.Error(err))
			return
		}
		logger.Info("config reloaded", zap.String("level", logLevel.String()))
	}, func(err error) {
		logger.Warn("config reload failed", zap.Error(err))
	}); err != nil {
		logger.Info("config file not watched", zap.Error(err))
	}

	rt.scheduler.Start(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		rt.scheduler.Stop()
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	logger.Info("shutting down")
	return nil
}
