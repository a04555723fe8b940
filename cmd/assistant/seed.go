package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/nhle/task-assistant/internal/config"
	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/store"
)

//go:embed seed.yaml
var seedYAML []byte

type seedUser struct {
	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Channel  string `yaml:"channel"`
	Timezone string `yaml:"timezone"`
	Admin    bool   `yaml:"admin"`
}

type seedTask struct {
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	Priority     string `yaml:"priority"`
	DueIn        string `yaml:"due_in"`
	DueDays      int    `yaml:"due_days"`
	DueTime      string `yaml:"due_time"`
	RemindBefore string `yaml:"remind_before"`
}

type seedData struct {
	User  seedUser   `yaml:"user"`
	Tasks []seedTask `yaml:"tasks"`
}

// due resolves the task's due time relative to now. Tasks with neither
// due_in nor due_time have none.
func (t seedTask) due(now time.Time) (*time.Time, error) {
	switch {
	case t.DueIn != "":
		d, err := time.ParseDuration(t.DueIn)
		if err != nil {
			return nil, fmt.Errorf("task %q due_in: %w", t.Title, err)
		}
		due := now.Add(d)
		return &due, nil
	case t.DueTime != "":
		hour, minute, err := config.ParseClock(t.DueTime)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", t.Title, err)
		}
		y, m, d := now.Date()
		due := time.Date(y, m, d+t.DueDays, hour, minute, 0, 0, now.Location())
		return &due, nil
	}
	return nil, nil
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a demo user with three tasks and their reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		user, n, err := seedDemo(cmd.Context(), s, seedYAML, time.Now())
		if err != nil {
			return err
		}
		logger.Info("seed completed", zap.String("user", user.Address), zap.Int("tasks", n))
		fmt.Fprintf(cmd.OutOrStdout(), "Usuario %s (%s) con %d tareas\n", user.Name, user.Address, n)
		return nil
	},
}

// seedDemo finds or creates the demo user and adds its tasks, each with a
// reminder ahead of its due time.
func seedDemo(ctx context.Context, s store.Store, data []byte, now time.Time) (*model.User, int, error) {
	var seed seedData
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, 0, fmt.Errorf("parsing seed data: %w", err)
	}

	user, err := s.GetUserByAddress(ctx, seed.User.Address)
	if errors.Is(err, store.ErrNotFound) {
		user, err = s.CreateUser(ctx, model.User{
			Name:     seed.User.Name,
			Address:  seed.User.Address,
			Channel:  model.Channel(seed.User.Channel),
			Timezone: seed.User.Timezone,
			Active:   true,
			IsAdmin:  seed.User.Admin,
		})
	}
	if err != nil {
		return nil, 0, fmt.Errorf("seeding user: %w", err)
	}

	local := now.In(user.Location(time.UTC))
	for _, st := range seed.Tasks {
		due, err := st.due(local)
		if err != nil {
			return nil, 0, err
		}
		task, err := s.CreateTask(ctx, model.Task{
			UserID:      user.ID,
			Title:       st.Title,
			Description: st.Description,
			DueAt:       due,
			Priority:    model.Priority(st.Priority),
			CreatedAt:   now,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("seeding task %q: %w", st.Title, err)
		}
		if due == nil || st.RemindBefore == "" {
			continue
		}
		before, err := time.ParseDuration(st.RemindBefore)
		if err != nil {
			return nil, 0, fmt.Errorf("task %q remind_before: %w", st.Title, err)
		}
		if _, err := s.CreateReminder(ctx, model.Reminder{
			UserID:    user.ID,
			TaskID:    &task.ID,
			RemindAt:  due.Add(-before),
			Channel:   user.Channel,
			CreatedAt: now,
		}); err != nil {
			return nil, 0, fmt.Errorf("seeding reminder for %q: %w", st.Title, err)
		}
	}
	return user, len(seed.Tasks), nil
}
