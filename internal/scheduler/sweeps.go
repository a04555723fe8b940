package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nhle/task-assistant/internal/channel"
	"github.com/nhle/task-assistant/internal/compose"
	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/store"
)

// Job names.
const (
	JobReminders = "reminders"
	JobOverdue   = "overdue"
	JobDigest    = "digest"
	JobHealth    = "health"
)

const (
	digestOverdueCap   = 5
	digestUpcomingCap  = 5
	digestUpcomingDays = 3
)

// SweepConfig controls the sweeps' batch sizes and digest time.
type SweepConfig struct {
	// ReminderBatch caps how many due reminders one sweep handles.
	ReminderBatch int

	// DigestHour and DigestMinute are the users' local time of day at which
	// the digest is sent. A user whose local time is within DigestWindow
	// after that gets it on the next sweep.
	DigestHour   int
	DigestMinute int
	DigestWindow time.Duration

	// Location is used for users whose timezone cannot be loaded.
	Location *time.Location
}

// DefaultSweepConfig returns the production defaults: digest at 08:00.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		ReminderBatch: 100,
		DigestHour:    8,
		DigestWindow:  time.Hour,
		Location:      time.UTC,
	}
}

// Sweeper holds the store-driven sweeps.
type Sweeper struct {
	store  store.Store
	out    channel.Outbound
	clock  clockwork.Clock
	cfg    SweepConfig
	logger *zap.Logger
}

// NewSweeper creates a Sweeper.
func NewSweeper(s store.Store, out channel.Outbound, clock clockwork.Clock, cfg SweepConfig, logger *zap.Logger) *Sweeper {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ReminderBatch <= 0 {
		cfg.ReminderBatch = 100
	}
	return &Sweeper{
		store:  s,
		out:    out,
		clock:  clock,
		cfg:    cfg,
		logger: logger.Named("sweeper"),
	}
}

// DueReminders delivers every unsent reminder whose time has come and
// returns how many were delivered. Each reminder is marked sent after the
// delivery attempt whether or not it succeeded, so none is sent twice.
// Reminders of completed tasks are marked without being delivered.
func (w *Sweeper) DueReminders(ctx context.Context) (int, error) {
	now := w.clock.Now()
	due, err := w.store.GetDueReminders(ctx, now, w.cfg.ReminderBatch)
	if err != nil {
		return 0, fmt.Errorf("loading due reminders: %w", err)
	}
	if len(due) > 0 {
		w.logger.Info("due reminders", zap.Int("count", len(due)))
	}

	var (
		delivered int
		errs      error
	)
	for _, r := range due {
		if w.deliverReminder(ctx, r, now) {
			delivered++
		}

		marked, err := w.store.MarkReminderSent(ctx, r.ID, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("marking reminder %s: %w", r.ID, err))
			continue
		}
		if !marked {
			w.logger.Debug("reminder already marked", zap.String("reminder", r.ID))
		}
	}
	return delivered, errs
}

func (w *Sweeper) deliverReminder(ctx context.Context, r model.DueReminder, now time.Time) bool {
	log := w.logger.With(zap.String("reminder", r.ID), zap.String("user", r.User.ID))

	if r.Task != nil && r.Task.Status == model.TaskStatusDone {
		log.Debug("task already done, skipping reminder", zap.String("task", r.Task.ID))
		return false
	}
	if !r.User.Active {
		log.Debug("user inactive, skipping reminder")
		return false
	}

	ch := r.Channel
	if ch == "" {
		ch = r.User.Channel
	}
	if err := w.out.Send(ctx, ch, r.User.Address, compose.Reminder(r, now, w.cfg.Location)); err != nil {
		log.Warn("reminder delivery failed", zap.Error(err))
		return false
	}
	log.Info("reminder sent")
	return true
}

// Overdue moves pending tasks past their due time to overdue and returns
// how many changed.
func (w *Sweeper) Overdue(ctx context.Context) (int64, error) {
	n, err := w.store.MarkOverdue(ctx, w.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("marking overdue tasks: %w", err)
	}
	if n > 0 {
		w.logger.Info("tasks overdue", zap.Int64("count", n))
	}
	return n, nil
}

// Digest sends the daily summary to every active user whose local time is
// inside the digest window and who has not had one today. It returns how
// many digests were sent.
func (w *Sweeper) Digest(ctx context.Context) (int, error) {
	users, err := w.store.ListActiveUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing active users: %w", err)
	}

	now := w.clock.Now()
	var (
		sent int
		errs error
	)
	for _, u := range users {
		ok, err := w.digestUser(ctx, u, now)
		if err != nil {
			w.logger.Warn("digest failed", zap.String("user", u.ID), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, errs
}

func (w *Sweeper) digestUser(ctx context.Context, u model.User, now time.Time) (bool, error) {
	local := now.In(u.Location(w.cfg.Location))
	y, m, d := local.Date()
	start := time.Date(y, m, d, w.cfg.DigestHour, w.cfg.DigestMinute, 0, 0, local.Location())
	if local.Before(start) || !local.Before(start.Add(w.cfg.DigestWindow)) {
		return false, nil
	}

	date := local.Format(time.DateOnly)
	if u.LastDigestOn == date {
		return false, nil
	}
	claimed, err := w.store.ClaimDigest(ctx, u.ID, date)
	if err != nil {
		return false, fmt.Errorf("claiming digest for %s: %w", u.ID, err)
	}
	if !claimed {
		return false, nil
	}

	data, err := w.digestData(ctx, u, local)
	if err != nil {
		return false, err
	}
	if err := w.out.Send(ctx, u.Channel, u.Address, compose.Digest(data)); err != nil {
		return false, fmt.Errorf("sending digest to %s: %w", u.ID, err)
	}
	w.logger.Info("digest sent", zap.String("user", u.ID), zap.String("date", date))
	return true, nil
}

// digestData gathers the user's overdue tasks, tasks due today and tasks
// due in the following days. local is now in the user's location.
func (w *Sweeper) digestData(ctx context.Context, u model.User, local time.Time) (compose.DigestData, error) {
	y, m, d := local.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, local.Location())
	tomorrow := today.AddDate(0, 0, 1)
	horizon := tomorrow.AddDate(0, 0, digestUpcomingDays)

	data := compose.DigestData{Name: u.Name, Now: local}

	var err error
	data.Overdue, err = w.store.FindTasks(ctx, store.TaskFilter{
		OwnerID:  u.ID,
		Statuses: []model.TaskStatus{model.TaskStatusOverdue},
		Sort:     store.PendingOrder,
		Limit:    digestOverdueCap,
	})
	if err != nil {
		return data, fmt.Errorf("loading overdue tasks for %s: %w", u.ID, err)
	}

	data.Today, err = w.store.FindTasks(ctx, store.TaskFilter{
		OwnerID:  u.ID,
		Statuses: []model.TaskStatus{model.TaskStatusPending},
		DueFrom:  &today,
		DueTo:    &tomorrow,
		Sort:     store.PendingOrder,
	})
	if err != nil {
		return data, fmt.Errorf("loading today's tasks for %s: %w", u.ID, err)
	}

	data.Upcoming, err = w.store.FindTasks(ctx, store.TaskFilter{
		OwnerID:  u.ID,
		Statuses: []model.TaskStatus{model.TaskStatusPending},
		DueFrom:  &tomorrow,
		DueTo:    &horizon,
		Sort:     store.PendingOrder,
		Limit:    digestUpcomingCap,
	})
	if err != nil {
		return data, fmt.Errorf("loading upcoming tasks for %s: %w", u.ID, err)
	}
	return data, nil
}

// Jobs returns the sweeps as scheduler jobs with the given intervals.
func (w *Sweeper) Jobs(reminders, overdue, digest time.Duration) []Job {
	return []Job{
		{Name: JobReminders, Interval: reminders, Run: func(ctx context.Context) error {
			_, err := w.DueReminders(ctx)
			return err
		}},
		{Name: JobOverdue, Interval: overdue, Run: func(ctx context.Context) error {
			_, err := w.Overdue(ctx)
			return err
		}},
		{Name: JobDigest, Interval: digest, Run: func(ctx context.Context) error {
			_, err := w.Digest(ctx)
			return err
		}},
	}
}
