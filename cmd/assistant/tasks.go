package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/task-assistant/internal/assistant"
	"github.com/nhle/task-assistant/internal/compose"
	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/store"
)

var (
	taskUser     string
	taskDue      string
	taskPriority string
	taskTitle    string
	taskAll      bool
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage tasks directly",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's open tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, func(ctx context.Context, s store.Store, user *model.User, loc *time.Location) error {
			return listTasks(ctx, s, user, loc, taskAll, cmd.OutOrStdout())
		})
	},
}

var tasksAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task and its reminders",
	Long: `Create a task. --due takes "2006-01-02 15:04" in the user's timezone
or a Spanish expression such as "el viernes a las 6pm".

Example:
  assistant tasks add --user +521234567890 --due "mañana a las 9" --priority high "Pagar la luz"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, func(ctx context.Context, s store.Store, user *model.User, loc *time.Location) error {
			task, err := addTask(ctx, s, user, strings.Join(args, " "), taskDue, model.Priority(taskPriority), time.Now().In(loc))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), task.ID)
			return nil
		})
	},
}

var tasksEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a task's title, due time or priority",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, func(ctx context.Context, s store.Store, user *model.User, loc *time.Location) error {
			edit := taskEdit{Due: taskDue, Priority: model.Priority(taskPriority), Title: taskTitle}
			return editTask(ctx, s, user, args[0], edit, time.Now().In(loc))
		})
	},
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <id>...",
	Short: "Mark tasks done, overdue ones included",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, func(ctx context.Context, s store.Store, user *model.User, _ *time.Location) error {
			for _, id := range args {
				if err := completeTask(ctx, s, user, id, time.Now()); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var tasksRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Delete tasks and their reminders",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, func(ctx context.Context, s store.Store, user *model.User, _ *time.Location) error {
			for _, id := range args {
				if err := removeTask(ctx, s, user, id); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{tasksListCmd, tasksAddCmd, tasksEditCmd, tasksDoneCmd, tasksRmCmd} {
		c.Flags().StringVar(&taskUser, "user", "", "user address (phone, email or console:name)")
		_ = c.MarkFlagRequired("user")
	}
	tasksListCmd.Flags().BoolVar(&taskAll, "all", false, "include completed tasks")
	for _, c := range []*cobra.Command{tasksAddCmd, tasksEditCmd} {
		c.Flags().StringVar(&taskDue, "due", "", "when the task is due")
		c.Flags().StringVar(&taskPriority, "priority", "", "low, medium or high")
	}
	tasksEditCmd.Flags().StringVar(&taskTitle, "title", "", "new title")

	tasksCmd.AddCommand(tasksListCmd, tasksAddCmd, tasksEditCmd, tasksDoneCmd, tasksRmCmd)
}

// withUser opens the store and looks up --user, passing along the user's
// timezone.
func withUser(cmd *cobra.Command, fn func(ctx context.Context, s store.Store, user *model.User, loc *time.Location) error) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := cmd.Context()
		user, err := s.GetUserByAddress(ctx, taskUser)
		if err != nil {
			return fmt.Errorf("user %s: %w", taskUser, err)
		}
		return fn(ctx, s, user, user.Location(cfg.Location()))
	})
}

func listTasks(ctx context.Context, s store.Store, user *model.User, loc *time.Location, all bool, out io.Writer) error {
	statuses := []model.TaskStatus{model.TaskStatusPending, model.TaskStatusOverdue}
	if all {
		statuses = append(statuses, model.TaskStatusDone)
	}
	tasks, err := s.FindTasks(ctx, store.TaskFilter{OwnerID: user.ID, Statuses: statuses, Sort: store.PendingOrder})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tESTADO\tVENCE\tPRIORIDAD\tTÍTULO")
	for _, t := range tasks {
		due := "-"
		if t.DueAt != nil {
			due = t.DueAt.In(loc).Format(reminderTimeLayout)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Status, due, compose.PriorityLabel(t.Priority), t.Title)
	}
	return w.Flush()
}

// addTask creates a task the way a chat message would, reminders included.
// Due expressions are read in now's location.
func addTask(ctx context.Context, s store.Store, user *model.User, title, due string, p model.Priority, now time.Time) (*model.Task, error) {
	if p != "" && !p.Valid() {
		return nil, fmt.Errorf("unknown priority %q", p)
	}
	task := model.Task{UserID: user.ID, Title: strings.TrimSpace(title), Priority: p, CreatedAt: now}
	if due != "" {
		at, err := parseReminderTime(due, now)
		if err != nil {
			return nil, err
		}
		task.DueAt = &at
	}

	created, err := s.CreateTask(ctx, task)
	if err != nil {
		return nil, err
	}
	for _, r := range assistant.DeriveReminders(*created, now, user.Channel) {
		if _, err := s.CreateReminder(ctx, r); err != nil {
			return nil, errors.Join(err, s.DeleteTask(ctx, created.ID))
		}
	}
	return created, nil
}

type taskEdit struct {
	Title    string
	Due      string
	Priority model.Priority
}

// editTask applies the non-empty fields of e, reading Due in now's
// location. Reminders already scheduled keep their times.
func editTask(ctx context.Context, s store.Store, user *model.User, id string, e taskEdit, now time.Time) error {
	task, err := ownedTask(ctx, s, user, id)
	if err != nil {
		return err
	}
	if e.Title != "" {
		task.Title = e.Title
	}
	if e.Priority != "" {
		if !e.Priority.Valid() {
			return fmt.Errorf("unknown priority %q", e.Priority)
		}
		task.Priority = e.Priority
	}
	if e.Due != "" {
		at, err := parseReminderTime(e.Due, now)
		if err != nil {
			return err
		}
		task.DueAt = &at
	}
	task.UpdatedAt = now
	return s.UpdateTask(ctx, *task)
}

// completeTask closes a pending or overdue task.
func completeTask(ctx context.Context, s store.Store, user *model.User, id string, now time.Time) error {
	task, err := ownedTask(ctx, s, user, id)
	if err != nil {
		return err
	}
	err = s.TransitionTask(ctx, task.ID, model.TaskStatusPending, model.TaskStatusDone, now)
	if errors.Is(err, store.ErrInvalidTransition) {
		err = s.TransitionTask(ctx, task.ID, model.TaskStatusOverdue, model.TaskStatusDone, now)
	}
	return err
}

func removeTask(ctx context.Context, s store.Store, user *model.User, id string) error {
	task, err := ownedTask(ctx, s, user, id)
	if err != nil {
		return err
	}
	return s.DeleteTask(ctx, task.ID)
}

func ownedTask(ctx context.Context, s store.Store, user *model.User, id string) (*model.Task, error) {
	task, err := s.GetTaskByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}
	if task.UserID != user.ID {
		return nil, fmt.Errorf("task %s belongs to another user", task.ID)
	}
	return task, nil
}
