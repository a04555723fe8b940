package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/nlp"
	"github.com/nhle/task-assistant/internal/store"
)

// reminderTimeLayout is the explicit form accepted by "reminders add --at".
const reminderTimeLayout = "2006-01-02 15:04"

var (
	reminderUser string
	reminderAt   string
	reminderTask string
	reminderAll  bool
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Manage reminders directly",
}

var remindersAddCmd = &cobra.Command{
	Use:   "add <message>",
	Short: "Schedule a reminder for a user",
	Long: `Schedule a reminder. --at takes "2006-01-02 15:04" in the user's
timezone or a Spanish expression such as "mañana a las 9".

Example:
  assistant reminders add --user +521234567890 --at "mañana a las 9" "Pagar la luz"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.SQLiteStore) error {
			ctx := cmd.Context()
			user, err := s.GetUserByAddress(ctx, reminderUser)
			if err != nil {
				return fmt.Errorf("user %s: %w", reminderUser, err)
			}
			at, err := parseReminderTime(reminderAt, time.Now().In(user.Location(cfg.Location())))
			if err != nil {
				return err
			}

			r := model.Reminder{
				UserID:   user.ID,
				RemindAt: at,
				Channel:  user.Channel,
				Message:  strings.Join(args, " "),
			}
			if reminderTask != "" {
				task, err := s.GetTaskByID(ctx, reminderTask)
				if err != nil {
					return fmt.Errorf("task %s: %w", reminderTask, err)
				}
				if task.UserID != user.ID {
					return fmt.Errorf("task %s belongs to another user", task.ID)
				}
				r.TaskID = &task.ID
			}

			created, err := s.CreateReminder(ctx, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", created.ID, at.Format(reminderTimeLayout))
			return nil
		})
	},
}

var remindersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.SQLiteStore) error {
			ctx := cmd.Context()
			user, err := s.GetUserByAddress(ctx, reminderUser)
			if err != nil {
				return fmt.Errorf("user %s: %w", reminderUser, err)
			}
			return listReminders(ctx, s, user, reminderAll, cmd)
		})
	},
}

var remindersRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Delete reminders",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.SQLiteStore) error {
			for _, id := range args {
				if err := s.DeleteReminder(cmd.Context(), id); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{remindersAddCmd, remindersListCmd} {
		c.Flags().StringVar(&reminderUser, "user", "", "user address (phone, email or console:name)")
		_ = c.MarkFlagRequired("user")
	}
	remindersAddCmd.Flags().StringVar(&reminderAt, "at", "", "when to remind")
	remindersAddCmd.Flags().StringVar(&reminderTask, "task", "", "task ID the reminder belongs to")
	_ = remindersAddCmd.MarkFlagRequired("at")
	remindersListCmd.Flags().BoolVar(&reminderAll, "all", false, "include reminders already sent")

	remindersCmd.AddCommand(remindersAddCmd, remindersListCmd, remindersRmCmd)
}

func withStore(fn func(s *store.SQLiteStore) error) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// parseReminderTime accepts reminderTimeLayout in now's location or a
// Spanish date expression resolved against now. The result must be in the
// future.
func parseReminderTime(value string, now time.Time) (time.Time, error) {
	at, err := time.ParseInLocation(reminderTimeLayout, strings.TrimSpace(value), now.Location())
	if err != nil {
		var ok bool
		at, ok = nlp.ExtractDate(value, now)
		if !ok {
			return time.Time{}, fmt.Errorf("cannot read %q as a date", value)
		}
	}
	if !at.After(now) {
		return time.Time{}, fmt.Errorf("%s is in the past", at.Format(reminderTimeLayout))
	}
	return at, nil
}

func listReminders(ctx context.Context, s store.Store, user *model.User, all bool, cmd *cobra.Command) error {
	reminders, err := s.ListReminders(ctx, store.ReminderFilter{UserID: user.ID, IncludeSent: all})
	if err != nil {
		return err
	}
	loc := user.Location(cfg.Location())

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCUÁNDO\tCANAL\tENVIADO\tMENSAJE")
	for _, r := range reminders {
		msg := r.Message
		if msg == "" && r.TaskID != nil {
			if task, err := s.GetTaskByID(ctx, *r.TaskID); err == nil {
				msg = task.Title
			}
		}
		sent := "no"
		if r.Sent {
			sent = "sí"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.RemindAt.In(loc).Format(reminderTimeLayout), r.Channel, sent, msg)
	}
	return w.Flush()
}
