package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nhle/task-assistant/internal/assistant"
	"github.com/nhle/task-assistant/internal/channel"
	"github.com/nhle/task-assistant/internal/config"
	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/nlp"
	"github.com/nhle/task-assistant/internal/scheduler"
	"github.com/nhle/task-assistant/internal/store"
)

// consoleQueue is the number of undelivered console messages kept.
const consoleQueue = 64

// runtime holds the components shared by the commands, built once from
// the loaded configuration.
type runtime struct {
	store     *store.SQLiteStore
	clock     clockwork.Clock
	router    *channel.Router
	console   *channel.ConsoleSender
	whatsapp  *channel.WhatsAppClient
	assistant *assistant.Assistant
	sweeper   *scheduler.Sweeper
	scheduler *scheduler.Scheduler
	health    *scheduler.HealthPinger
}

func openStore(c *config.Config) (*store.SQLiteStore, error) {
	if dir := filepath.Dir(c.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return store.NewSQLiteStore(c.Database.Path)
}

// newRuntime wires the components. With console set, messages for the
// console channel are queued for a local chat; otherwise they are logged.
func newRuntime(c *config.Config, console bool) (*runtime, error) {
	s, err := openStore(c)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		store:  s,
		clock:  clockwork.NewRealClock(),
		router: channel.NewRouter(logger),
	}
	if console {
		rt.console = channel.NewConsoleSender(consoleQueue)
		rt.router.Register(model.ChannelConsole, rt.console)
	}

	if c.WhatsApp.Enabled() {
		rt.whatsapp = channel.NewWhatsAppClient(c.WhatsApp.APIBase, c.WhatsApp.PhoneNumberID, c.WhatsApp.AccessToken)
		rt.router.Register(model.ChannelWhatsApp, rt.whatsapp)
	}
	if smtp := c.Email.SMTP; smtp.Host != "" {
		rt.router.Register(model.ChannelEmail, channel.NewEmailSender(channel.SMTPConfig{
			Host:     smtp.Host,
			Port:     smtp.Port,
			Username: smtp.Username,
			Password: smtp.Password,
			From:     smtp.From,
			TLS:      smtp.TLS,
		}, c.Email.Subject))
	}

	loc := c.Location()
	interpreter := nlp.NewInterpreter(nlp.NewClassifier())
	rt.assistant = assistant.New(s, interpreter, rt.router, rt.clock, loc, logger)

	sweepCfg, err := sweepConfig(c)
	if err != nil {
		s.Close()
		return nil, err
	}
	rt.sweeper = scheduler.NewSweeper(s, rt.router, rt.clock, sweepCfg, logger)

	rt.scheduler = scheduler.New(rt.clock, logger)
	for _, job := range rt.sweeper.Jobs(
		config.Seconds(c.Scheduler.ReminderIntervalSec, 5*time.Minute),
		config.Seconds(c.Scheduler.OverdueIntervalSec, time.Hour),
		config.Seconds(c.Scheduler.DigestCheckSec, time.Minute),
	) {
		rt.scheduler.Register(job)
	}
	if c.Health.URL != "" {
		rt.health = scheduler.NewHealthPinger(c.Health.URL, s, rt.router, rt.clock, logger)
		rt.scheduler.Register(rt.health.Job(config.Seconds(c.Health.IntervalSec, 10*time.Minute)))
	}
	return rt, nil
}

func sweepConfig(c *config.Config) (scheduler.SweepConfig, error) {
	sc := scheduler.DefaultSweepConfig()
	hour, minute, err := config.ParseClock(c.Scheduler.DigestTime)
	if err != nil {
		return sc, err
	}
	sc.DigestHour, sc.DigestMinute = hour, minute
	if c.Scheduler.ReminderBatch > 0 {
		sc.ReminderBatch = c.Scheduler.ReminderBatch
	}
	if c.Scheduler.DigestWindowMin > 0 {
		sc.DigestWindow = time.Duration(c.Scheduler.DigestWindowMin) * time.Minute
	}
	sc.Location = c.Location()
	return sc, nil
}

// Close stops the scheduler and closes the store.
func (rt *runtime) Close() error {
	rt.scheduler.Stop()
	return rt.store.Close()
}
